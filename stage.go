package vkswr

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/szx/vkswr/internal/parallel"
	"github.com/szx/vkswr/interp"
)

// MaxClipDistances is the number of clip and cull distances per vertex.
const MaxClipDistances = interp.MaxClipDistances

// Vertex is the pre-populated input of one vertex invocation.
type Vertex struct {
	Position      [4]float32
	PointSize     float32
	Index         uint32
	Instance      uint32
	ClipDistances [MaxClipDistances]float32
	CullDistances [MaxClipDistances]float32
}

// VertexOutput is the result of one vertex invocation.
type VertexOutput struct {
	Position      [4]float32
	PointSize     float32
	Index         uint32
	ClipDistances [MaxClipDistances]float32
	CullDistances [MaxClipDistances]float32

	// Varyings holds every output location the shader declared.
	Varyings map[uint32][4]float32
}

// Fragment is the pre-populated input of one fragment invocation.
type Fragment struct {
	// Position is the window-space fragment coordinate.
	Position [4]float32

	// Color is the interpolated color. It feeds input location 0 unless
	// Varyings carries that location.
	Color [4]float32

	// Varyings holds the interpolated input locations.
	Varyings map[uint32][4]float32
}

// FragmentOutput is the result of one fragment invocation.
type FragmentOutput struct {
	Position [4]float32

	// Color is output location 0.
	Color [4]float32

	// Outputs holds every output location the shader declared.
	Outputs map[uint32][4]float32

	Discarded bool
}

// Pixel converts Color to an 8-bit color, clamping each channel to [0, 1].
func (f FragmentOutput) Pixel() color.NRGBA {
	return color.NRGBA{
		R: unorm8(f.Color[0]),
		G: unorm8(f.Color[1]),
		B: unorm8(f.Color[2]),
		A: unorm8(f.Color[3]),
	}
}

func unorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// InvocationError reports the failure of one invocation of a batch.
type InvocationError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error { return e.Err }

// ExecuteVertex runs s once per vertex and returns the outputs in input
// order. Failed invocations leave their output zero and are reported as
// joined *InvocationError values. When ctx is cancelled, invocations not
// yet started are skipped and ctx.Err() is returned.
//
// Input location 0 falls back to the vertex position when state binds
// no attribute to it.
func ExecuteVertex(ctx context.Context, s *Shader, state VertexInputState, vertices []Vertex) ([]VertexOutput, error) {
	if stage := s.Stage(); stage != gputypes.ShaderStageVertex {
		return nil, fmt.Errorf("%w: %s is a %s shader", ErrStageMismatch, s.name, stage)
	}

	out := make([]VertexOutput, len(vertices))
	err := s.invoke(ctx, len(vertices), func(i int) error {
		v := vertices[i]
		locations, err := state.fetch(v.Index, v.Instance)
		if err != nil {
			return err
		}
		if _, ok := locations[0]; !ok {
			if locations == nil {
				locations = make(map[uint32][4]uint32, 1)
			}
			locations[0] = floatWords(v.Position)
		}

		res, err := s.program.RunVertex(interp.VertexInput{
			Position:      v.Position,
			PointSize:     v.PointSize,
			VertexIndex:   v.Index,
			ClipDistances: v.ClipDistances,
			CullDistances: v.CullDistances,
			Locations:     locations,
		})
		if err != nil {
			return err
		}
		out[i] = VertexOutput{
			Position:      res.Position,
			PointSize:     res.PointSize,
			Index:         res.VertexIndex,
			ClipDistances: res.ClipDistances,
			CullDistances: res.CullDistances,
			Varyings:      floatLocations(res.Outputs),
		}
		return nil
	})
	return out, err
}

// ExecuteFragment runs s once per fragment and returns the outputs in
// input order. Errors are reported as for ExecuteVertex.
func ExecuteFragment(ctx context.Context, s *Shader, fragments []Fragment) ([]FragmentOutput, error) {
	if stage := s.Stage(); stage != gputypes.ShaderStageFragment {
		return nil, fmt.Errorf("%w: %s is a %s shader", ErrStageMismatch, s.name, stage)
	}

	out := make([]FragmentOutput, len(fragments))
	err := s.invoke(ctx, len(fragments), func(i int) error {
		f := fragments[i]
		locations := make(map[uint32][4]uint32, len(f.Varyings)+1)
		locations[0] = floatWords(f.Color)
		for loc, v := range f.Varyings {
			locations[loc] = floatWords(v)
		}

		res, err := s.program.RunFragment(interp.FragmentInput{
			FragCoord: f.Position,
			Locations: locations,
		})
		if err != nil {
			return err
		}
		outputs := floatLocations(res.Outputs)
		out[i] = FragmentOutput{
			Position:  res.FragCoord,
			Color:     outputs[0],
			Outputs:   outputs,
			Discarded: res.Discarded,
		}
		return nil
	})
	return out, err
}

// invoke calls fn for every index in [0, n), sequentially or on a worker
// pool depending on the shader's options.
func (s *Shader) invoke(ctx context.Context, n int, fn func(i int) error) error {
	errs := make([]error, n)
	call := func(i int) {
		if err := fn(i); err != nil {
			errs[i] = &InvocationError{Index: i, Err: err}
		}
	}

	if s.opts.Workers <= 1 || n < 2 {
		for i := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			call(i)
		}
	} else {
		pool := parallel.NewWorkerPool(min(s.opts.Workers, n))
		defer pool.Close()
		if err := pool.ForEach(ctx, n, call); err != nil {
			return err
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		failed := 0
		for _, e := range errs {
			if e != nil {
				failed++
			}
		}
		Logger().Warn("vkswr: invocations failed", "shader", s.name, "failed", failed, "total", n)
	}
	return err
}

func floatWords(v [4]float32) [4]uint32 {
	var w [4]uint32
	for i, f := range v {
		w[i] = math.Float32bits(f)
	}
	return w
}

func floatLocations(words map[uint32][4]uint32) map[uint32][4]float32 {
	if words == nil {
		return nil
	}
	out := make(map[uint32][4]float32, len(words))
	for loc, w := range words {
		var v [4]float32
		for i, x := range w {
			v[i] = math.Float32frombits(x)
		}
		out[loc] = v
	}
	return out
}
