package vkswr_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/szx/vkswr"
	"github.com/szx/vkswr/il"
	"github.com/szx/vkswr/internal/shaders"
	"github.com/szx/vkswr/spirv"
)

// benchShaders lists demo shaders from trivial to looping.
var benchShaders = []struct {
	name  string
	words func() []uint32
}{
	{"empty", shaders.EmptyVertex},
	{"passthrough", shaders.PassthroughVertex},
	{"clip_loop", shaders.ClipDistanceVertex},
	{"checker", shaders.CheckerFragment},
}

// ---------------------------------------------------------------------------
// Pipeline stages
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks SPIR-V decoding alone.
func BenchmarkParse(b *testing.B) {
	for _, sc := range benchShaders {
		b.Run(sc.name, func(b *testing.B) {
			words := sc.words()
			b.ReportAllocs()
			b.SetBytes(int64(len(words) * 4))
			b.ResetTimer()

			var m *spirv.Module
			for i := 0; i < b.N; i++ {
				var err error
				m, err = spirv.Parse(sc.name, words)
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
			}
			runtime.KeepAlive(m)
		})
	}
}

// BenchmarkLower benchmarks IL lowering of an already parsed module.
func BenchmarkLower(b *testing.B) {
	for _, sc := range benchShaders {
		b.Run(sc.name, func(b *testing.B) {
			m, err := spirv.Parse(sc.name, sc.words())
			if err != nil {
				b.Fatalf("parse failed: %v", err)
			}
			b.ReportAllocs()
			b.ResetTimer()

			var code []il.Instruction
			for i := 0; i < b.N; i++ {
				code, err = il.Lower(m)
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}
			}
			runtime.KeepAlive(code)
		})
	}
}

// BenchmarkCompile benchmarks the full compile pipeline with validation.
func BenchmarkCompile(b *testing.B) {
	for _, sc := range benchShaders {
		b.Run(sc.name, func(b *testing.B) {
			words := sc.words()
			b.ReportAllocs()
			b.SetBytes(int64(len(words) * 4))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				if _, err := vkswr.Compile(sc.name, words); err != nil {
					b.Fatalf("compile failed: %v", err)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// BenchmarkExecuteVertex benchmarks a batch of 1024 vertices, sequentially
// and on a worker pool.
func BenchmarkExecuteVertex(b *testing.B) {
	vertices := make([]vkswr.Vertex, 1024)
	for i := range vertices {
		vertices[i] = vkswr.Vertex{Index: uint32(i), Position: [4]float32{1, 2, 3, 1}}
	}

	for _, workers := range []int{1, runtime.GOMAXPROCS(0)} {
		s, err := vkswr.Compile("clip", shaders.ClipDistanceVertex(), vkswr.WithWorkers(workers))
		if err != nil {
			b.Fatalf("compile failed: %v", err)
		}
		name := "sequential"
		if workers > 1 {
			name = "parallel"
		}
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := vkswr.ExecuteVertex(context.Background(), s, vkswr.VertexInputState{}, vertices); err != nil {
					b.Fatalf("execute failed: %v", err)
				}
			}
		})
	}
}

// BenchmarkExecuteFragment benchmarks shading a 64x64 tile.
func BenchmarkExecuteFragment(b *testing.B) {
	s, err := vkswr.Compile("checker", shaders.CheckerFragment(), vkswr.WithWorkers(runtime.GOMAXPROCS(0)))
	if err != nil {
		b.Fatalf("compile failed: %v", err)
	}
	fragments := make([]vkswr.Fragment, 64*64)
	for i := range fragments {
		fragments[i].Position = [4]float32{float32(i%64) + 0.5, float32(i/64) + 0.5, 0, 1}
	}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := vkswr.ExecuteFragment(context.Background(), s, fragments); err != nil {
			b.Fatalf("execute failed: %v", err)
		}
	}
}
