package il_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/szx/vkswr/il"
	"github.com/szx/vkswr/internal/shaders"
	"github.com/szx/vkswr/spirv"
)

func lower(t *testing.T, words []uint32) []il.Instruction {
	t.Helper()
	m, err := spirv.Parse("test", words)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	prog, err := il.Lower(m)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return prog
}

func lowerErr(t *testing.T, words []uint32) error {
	t.Helper()
	m, err := spirv.Parse("test", words)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	prog, err := il.Lower(m)
	if err == nil {
		t.Fatalf("Lower succeeded, want error; program:\n%s", il.Format(prog))
	}
	return err
}

// vertexFixture is a minimal vertex module with a PointSize output.
type vertexFixture struct {
	b         *spirv.ModuleBuilder
	void, fn  spirv.ObjectID
	f32, u32  spirv.ObjectID
	vec4      spirv.ObjectID
	pointSize spirv.ObjectID
	main      spirv.ObjectID
}

func newVertexFixture() *vertexFixture {
	b := spirv.NewShaderBuilder()
	f := &vertexFixture{b: b}
	f.void = b.AddTypeVoid()
	f.fn = b.AddTypeFunction(f.void)
	f.f32 = b.AddTypeFloat(32)
	f.u32 = b.AddTypeInt(32, false)
	f.vec4 = b.AddTypeVector(f.f32, 4)
	ptr := b.AddTypePointer(spirv.StorageClassOutput, f.f32)
	f.pointSize = b.AddVariable(ptr, spirv.StorageClassOutput)
	b.AddDecorate(f.pointSize, spirv.DecorationBuiltIn, uint32(spirv.BuiltInPointSize))
	return f
}

func (f *vertexFixture) begin() {
	f.main = f.b.AddFunction(f.fn, f.void, spirv.FunctionControlNone)
	f.b.AddLabel()
}

func (f *vertexFixture) finish() []uint32 {
	f.b.AddReturn()
	f.b.AddFunctionEnd()
	f.b.AddEntryPoint(spirv.ExecutionModelVertex, f.main, "main", f.pointSize)
	return f.b.BuildWords()
}

func declOf(t *testing.T, prog []il.Instruction, id il.Variable) il.Decl {
	t.Helper()
	for _, inst := range prog {
		if d, ok := inst.(il.VariableDecl); ok && d.ID == id {
			return d.Decl
		}
	}
	t.Fatalf("no declaration for %%%d", id)
	return il.Decl{}
}

func TestLower_Demos(t *testing.T) {
	for _, name := range shaders.Names() {
		t.Run(name, func(t *testing.T) {
			prog := lower(t, shaders.Demos[name]())
			if errs := il.Validate(prog); len(errs) > 0 {
				t.Fatalf("Validate: %v\n%s", errs, il.Format(prog))
			}
		})
	}
}

func TestLower_DeclaresEveryResultOnce(t *testing.T) {
	for _, name := range shaders.Names() {
		t.Run(name, func(t *testing.T) {
			m, err := spirv.Parse(name, shaders.Demos[name]())
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			prog, err := il.Lower(m)
			if err != nil {
				t.Fatalf("Lower failed: %v", err)
			}

			decls := make(map[il.Variable]int)
			for _, inst := range prog {
				if d, ok := inst.(il.VariableDecl); ok {
					decls[d.ID]++
				}
			}
			for _, inst := range m.EntryFunction().Body {
				r, ok := inst.(spirv.ResultInstruction)
				if !ok {
					continue
				}
				if n := decls[il.Variable(r.ResultID())]; n != 1 {
					t.Errorf("result %%%d declared %d times", r.ResultID(), n)
				}
			}
		})
	}
}

func TestLower_SectionOrder(t *testing.T) {
	prog := lower(t, shaders.CheckerFragment())

	lastScalar, firstComposite, lastComposite, firstPointer, firstLabel := -1, -1, -1, -1, -1
	for i, inst := range prog {
		switch inst := inst.(type) {
		case il.StoreImm32:
			lastScalar = i
		case il.StoreImm32Array:
			if firstComposite < 0 {
				firstComposite = i
			}
			lastComposite = i
		case il.VariableDecl:
			if inst.Decl.Kind == il.KindPointer && firstPointer < 0 {
				firstPointer = i
			}
		case il.Label:
			if firstLabel < 0 {
				firstLabel = i
			}
		}
	}
	if lastScalar < 0 || firstComposite < 0 || firstPointer < 0 || firstLabel < 0 {
		t.Fatalf("missing section: scalar=%d composite=%d pointer=%d label=%d",
			lastScalar, firstComposite, firstPointer, firstLabel)
	}
	if !(lastScalar < firstComposite && lastComposite < firstPointer && firstPointer < firstLabel) {
		t.Errorf("sections out of order: scalar<=%d composite=%d..%d pointer>=%d label>=%d",
			lastScalar, firstComposite, lastComposite, firstPointer, firstLabel)
	}
}

func TestLower_CompositeConstant(t *testing.T) {
	prog := lower(t, shaders.CheckerFragment())

	var found []il.StoreImm32Array
	for _, inst := range prog {
		if s, ok := inst.(il.StoreImm32Array); ok {
			found = append(found, s)
		}
	}
	if len(found) != 2 {
		t.Fatalf("got %d StoreImm32Array, want 2", len(found))
	}
	// vec4(1, 1, 1, 1)
	want := []uint32{0x3F800000, 0x3F800000, 0x3F800000, 0x3F800000}
	if !reflect.DeepEqual(found[0].Imm, want) {
		t.Errorf("light Imm = %08X, want %08X", found[0].Imm, want)
	}
	decl := declOf(t, prog, found[0].Dst)
	if decl.Kind != il.KindF32 || decl.ComponentCount != 4 {
		t.Errorf("light decl = %s, want f32 x4", decl)
	}
}

func TestLower_AccessChainFlattening(t *testing.T) {
	prog := lower(t, shaders.VertexIndexVertex())

	var chains []il.LoadVariableOffset
	for _, inst := range prog {
		if c, ok := inst.(il.LoadVariableOffset); ok {
			chains = append(chains, c)
		}
	}
	if len(chains) != 2 {
		t.Fatalf("got %d LoadVariableOffset, want 2", len(chains))
	}
	outer, inner := chains[0], chains[1]
	if inner.Base != outer.Base {
		t.Errorf("chained base = %%%d, want root %%%d", inner.Base, outer.Base)
	}
	if len(inner.Offsets) != 2 || inner.Offsets[0] != outer.Offsets[0] {
		t.Errorf("chained offsets = %v, want [%v ...]", inner.Offsets, outer.Offsets)
	}
	if decl := declOf(t, prog, inner.Base); decl.Kind != il.KindPointer {
		t.Errorf("root kind = %s, want ptr", decl.Kind)
	}
}

func TestLower_BuiltinBackings(t *testing.T) {
	prog := lower(t, shaders.PassthroughVertex())

	var block il.Decl
	for _, inst := range prog {
		d, ok := inst.(il.VariableDecl)
		if !ok || d.Decl.Kind != il.KindPointer {
			continue
		}
		pointee := *d.Decl.Backing.(il.BackingPointer).Pointee
		if pointee.Kind == il.KindStruct {
			block = pointee
			break
		}
	}
	if block.Kind != il.KindStruct {
		t.Fatal("no gl_PerVertex declaration")
	}
	members := block.Backing.(il.BackingStruct).Members
	want := []il.Builtin{il.BuiltinPosition, il.BuiltinPointSize, il.BuiltinClipDistance}
	if len(members) != len(want) {
		t.Fatalf("got %d members, want %d", len(members), len(want))
	}
	for i, b := range want {
		got, ok := members[i].Backing.(il.BackingBuiltin)
		if !ok || got.Builtin != b {
			t.Errorf("member %d backing = %#v, want %s", i, members[i].Backing, b)
		}
	}
	if members[2].Kind != il.KindArray || members[2].ComponentCount != 8 {
		t.Errorf("clip member = %s, want array x8", members[2])
	}
}

func TestLower_LocationBackings(t *testing.T) {
	prog := lower(t, shaders.ColorFragment())

	var locations []il.BackingLocation
	for _, inst := range prog {
		d, ok := inst.(il.VariableDecl)
		if !ok || d.Decl.Kind != il.KindPointer {
			continue
		}
		if loc, ok := d.Decl.Backing.(il.BackingPointer).Pointee.Backing.(il.BackingLocation); ok {
			locations = append(locations, loc)
		}
	}
	want := []il.BackingLocation{{Location: 0}, {Location: 0, Output: true}}
	if !reflect.DeepEqual(locations, want) {
		t.Errorf("locations = %+v, want %+v", locations, want)
	}
}

func TestLower_CompositeExtractChain(t *testing.T) {
	f := newVertexFixture()
	b := f.b
	two := b.AddConstant(f.u32, 2)
	arr := b.AddTypeArray(f.vec4, two)
	ptr := b.AddTypePointer(spirv.StorageClassFunction, arr)
	f.begin()
	local := b.AddLocalVariable(ptr)
	v := b.AddLoad(arr, local)
	e := b.AddCompositeExtract(f.f32, v, 1, 2)
	b.AddStore(f.pointSize, e)
	prog := lower(t, f.finish())

	tmp := il.Variable(e) + 1
	var extracts []il.LoadVariableImmOffset
	for _, inst := range prog {
		if x, ok := inst.(il.LoadVariableImmOffset); ok {
			extracts = append(extracts, x)
		}
	}
	want := []il.LoadVariableImmOffset{
		{ID: tmp, Base: il.Variable(v), Offset: 1},
		{ID: il.Variable(e), Base: tmp, Offset: 2},
	}
	if !reflect.DeepEqual(extracts, want) {
		t.Errorf("extracts = %+v, want %+v", extracts, want)
	}
	if d := declOf(t, prog, tmp); d.Kind != il.KindF32 || d.ComponentCount != 4 {
		t.Errorf("temporary decl = %s, want f32 x4", d)
	}

	// Unit stride from the element size.
	elem := declOf(t, prog, il.Variable(local)).Backing.(il.BackingPointer).Pointee
	if got := elem.Backing.(il.BackingArray).Stride; got != 16 {
		t.Errorf("implicit stride = %d, want 16", got)
	}
}

func TestLower_ArrayStride(t *testing.T) {
	tests := []struct {
		name   string
		length uint32
		stride uint32
		want   il.Decl
	}{
		{
			name: "zero stride single element", length: 1, stride: 0,
			want: il.Decl{Kind: il.KindF32, ComponentCount: 1, Backing: il.BackingMemory{}},
		},
		{
			name: "explicit stride", length: 3, stride: 16,
			want: il.Decl{Kind: il.KindArray, ComponentCount: 3, Backing: il.BackingArray{
				Element: &il.Decl{Kind: il.KindF32, ComponentCount: 1, Backing: il.BackingMemory{}},
				Stride:  16,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVertexFixture()
			b := f.b
			length := b.AddConstant(f.u32, tt.length)
			arr := b.AddTypeArray(f.f32, length)
			b.AddDecorate(arr, spirv.DecorationArrayStride, tt.stride)
			ptr := b.AddTypePointer(spirv.StorageClassFunction, arr)
			f.begin()
			local := b.AddLocalVariable(ptr)
			prog := lower(t, f.finish())

			got := *declOf(t, prog, il.Variable(local)).Backing.(il.BackingPointer).Pointee
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("decl = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLower_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *vertexFixture)
		kind  spirv.ErrorKind
	}{
		{
			name: "composite of composites",
			build: func(f *vertexFixture) {
				one := f.b.AddConstantFloat32(f.f32, 1)
				v := f.b.AddConstantComposite(f.vec4, one, one, one, one)
				two := f.b.AddConstant(f.u32, 2)
				arr := f.b.AddTypeArray(f.vec4, two)
				f.b.AddConstantComposite(arr, v, v)
			},
			kind: spirv.ErrUnsupportedFeature,
		},
		{
			name: "struct constant",
			build: func(f *vertexFixture) {
				st := f.b.AddTypeStruct(f.f32, f.f32)
				one := f.b.AddConstantFloat32(f.f32, 1)
				f.b.AddConstantComposite(st, one, one)
			},
			kind: spirv.ErrUnsupportedFeature,
		},
		{
			name: "unsupported built-in",
			build: func(f *vertexFixture) {
				ptr := f.b.AddTypePointer(spirv.StorageClassInput, f.u32)
				v := f.b.AddVariable(ptr, spirv.StorageClassInput)
				f.b.AddDecorate(v, spirv.DecorationBuiltIn, uint32(spirv.BuiltInInstanceIdx))
			},
			kind: spirv.ErrUnsupportedFeature,
		},
		{
			name: "array of structs",
			build: func(f *vertexFixture) {
				st := f.b.AddTypeStruct(f.f32)
				two := f.b.AddConstant(f.u32, 2)
				arr := f.b.AddTypeArray(st, two)
				ptr := f.b.AddTypePointer(spirv.StorageClassOutput, arr)
				f.b.AddVariable(ptr, spirv.StorageClassOutput)
			},
			kind: spirv.ErrUnsupportedFeature,
		},
		{
			name: "zero stride with several elements",
			build: func(f *vertexFixture) {
				two := f.b.AddConstant(f.u32, 2)
				arr := f.b.AddTypeArray(f.f32, two)
				f.b.AddDecorate(arr, spirv.DecorationArrayStride, 0)
				ptr := f.b.AddTypePointer(spirv.StorageClassOutput, arr)
				f.b.AddVariable(ptr, spirv.StorageClassOutput)
			},
			kind: spirv.ErrStructuralViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVertexFixture()
			tt.build(f)
			f.begin()
			err := lowerErr(t, f.finish())

			if !errors.Is(err, &spirv.Error{Kind: tt.kind}) {
				t.Fatalf("error = %v, want kind %s", err, tt.kind)
			}
			var e *spirv.Error
			if errors.As(err, &e) && e.Module != "test" {
				t.Errorf("error module = %q, want %q", e.Module, "test")
			}
		})
	}
}

func TestLower_Idempotent(t *testing.T) {
	m, err := spirv.Parse("clip", shaders.ClipDistanceVertex())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	first, err := il.Lower(m)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	second, err := il.Lower(m)
	if err != nil {
		t.Fatalf("second Lower failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("lowering differs:\n%s\nvs\n%s", il.Format(first), il.Format(second))
	}
}

func TestLower_ControlFlow(t *testing.T) {
	prog := lower(t, shaders.ClipDistanceVertex())

	counts := make(map[string]int)
	for _, inst := range prog {
		switch inst.(type) {
		case il.Label:
			counts["label"]++
		case il.Branch:
			counts["branch"]++
		case il.BranchConditional:
			counts["cond"]++
		case il.LoopMerge:
			counts["loop"]++
		}
	}
	want := map[string]int{"label": 6, "branch": 4, "cond": 1, "loop": 1}
	if !reflect.DeepEqual(counts, want) {
		t.Errorf("control flow counts = %v, want %v", counts, want)
	}
}

func TestLower_Golden(t *testing.T) {
	got := il.Format(lower(t, shaders.PassthroughVertex()))
	path := filepath.Join("testdata", "passthrough.il")

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if err := os.WriteFile(path, []byte(got), 0o644); err != nil {
			t.Fatalf("write golden file: %v", err)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}
	if strings.ReplaceAll(string(want), "\r\n", "\n") != got {
		t.Errorf("IL differs from %s:\ngot:\n%s\nwant:\n%s", path, got, want)
	}
}
