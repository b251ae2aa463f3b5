package interp

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/szx/vkswr/il"
)

var (
	f32x1 = il.Decl{Kind: il.KindF32, ComponentCount: 1, Backing: il.BackingMemory{}}
	f32x4 = il.Decl{Kind: il.KindF32, ComponentCount: 4, Backing: il.BackingMemory{}}
	i32x1 = il.Decl{Kind: il.KindI32, ComponentCount: 1, Backing: il.BackingMemory{}}
	u32x1 = il.Decl{Kind: il.KindU32, ComponentCount: 1, Backing: il.BackingMemory{}}
	bool1 = il.Decl{Kind: il.KindBool, ComponentCount: 1, Backing: il.BackingMemory{}}
)

func pointerTo(d il.Decl) il.Decl {
	return il.Decl{Kind: il.KindPointer, ComponentCount: 1, Backing: il.BackingPointer{Pointee: &d}}
}

// run executes code on a fresh machine and returns it.
func run(t *testing.T, code []il.Instruction, opts ...Option) *Machine {
	t.Helper()
	p, err := NewProgram(code, opts...)
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	m := p.NewMachine()
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	return m
}

// runErr executes code and returns the failure.
func runErr(t *testing.T, code []il.Instruction, opts ...Option) (*Machine, *ExecError) {
	t.Helper()
	p, err := NewProgram(code, opts...)
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	m := p.NewMachine()
	err = m.Run()
	if err == nil {
		t.Fatal("Run succeeded, want error")
	}
	if !errors.Is(err, ErrFatal) {
		t.Errorf("error %v does not wrap ErrFatal", err)
	}
	var e *ExecError
	if !errors.As(err, &e) {
		t.Fatalf("error %T is not *ExecError", err)
	}
	return m, e
}

func (m *Machine) testArray(t *testing.T, v il.Variable) ArrayVariable {
	t.Helper()
	a, err := m.arrayOf(v)
	if err != nil {
		t.Fatalf("variable %%%d: %v", v, err)
	}
	return a
}

func (m *Machine) testWords(t *testing.T, v il.Variable) []uint32 {
	t.Helper()
	a := m.testArray(t, v)
	words := make([]uint32, a.Len())
	for i := range words {
		words[i] = m.mem.word(a.lane(uint32(i)))
	}
	return words
}

func (m *Machine) testFloats(t *testing.T, v il.Variable) []float32 {
	t.Helper()
	words := m.testWords(t, v)
	floats := make([]float32, len(words))
	for i, w := range words {
		floats[i] = math.Float32frombits(w)
	}
	return floats
}

func TestStoreImm32Array_MemoryLayout(t *testing.T) {
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: f32x4},
		il.StoreImm32Array{Dst: 1, Imm: []uint32{0x11223344, 2, 3, 0xFFFFFFFF}},
	})

	a := m.testArray(t, 1)
	if a.Region.Size != 16 || a.Stride != 4 {
		t.Fatalf("region = %+v stride %d, want size 16 stride 4", a.Region, a.Stride)
	}
	got := m.mem.buf[a.Region.Address : a.Region.Address+16]
	want := make([]byte, 16)
	for i, w := range []uint32{0x11223344, 2, 3, 0xFFFFFFFF} {
		binary.NativeEndian.PutUint32(want[i*4:], w)
	}
	if string(got) != string(want) {
		t.Errorf("memory = % x, want % x", got, want)
	}
}

func TestStoreImm32_Overflow(t *testing.T) {
	_, e := runErr(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: f32x1},
		il.StoreImm32Array{Dst: 1, Imm: []uint32{1, 2}},
	})
	if e.PC != 1 {
		t.Errorf("PC = %d, want 1", e.PC)
	}
}

func TestMulVectorScalar(t *testing.T) {
	vec := []float32{1, -2.5, 3.25, 1e-3}
	var imm []uint32
	for _, f := range vec {
		imm = append(imm, math.Float32bits(f))
	}
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: f32x4},
		il.StoreImm32Array{Dst: 1, Imm: imm},
		il.VariableDecl{ID: 2, Decl: f32x1},
		il.StoreImm32{Dst: 2, Imm: math.Float32bits(0.3)},
		il.VariableDecl{ID: 3, Decl: f32x4},
		il.MathMulVectorScalar{ID: 3, Vector: 1, Scalar: 2},
	})

	got := m.testWords(t, 3)
	for i, f := range vec {
		if want := math.Float32bits(f * float32(0.3)); got[i] != want {
			t.Errorf("lane %d = %08X, want %08X", i, got[i], want)
		}
	}
}

func TestMath_Broadcast(t *testing.T) {
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: il.Decl{Kind: il.KindI32, ComponentCount: 4, Backing: il.BackingMemory{}}},
		il.StoreImm32Array{Dst: 1, Imm: []uint32{1, 2, 3, 4}},
		il.VariableDecl{ID: 2, Decl: i32x1},
		il.StoreImm32{Dst: 2, Imm: 10},
		il.VariableDecl{ID: 3, Decl: il.Decl{Kind: il.KindI32, ComponentCount: 4, Backing: il.BackingMemory{}}},
		il.Math{Op: il.MathMulI32I32, ID: 3, Op1: 1, Op2: 2},
	})
	got := m.testWords(t, 3)
	want := []uint32{10, 20, 30, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("lane %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestAccessChain_RegionArithmetic(t *testing.T) {
	arr := il.Decl{Kind: il.KindArray, ComponentCount: 3, Backing: il.BackingArray{Element: &f32x4, Stride: 16}}
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: u32x1},
		il.StoreImm32{Dst: 1, Imm: 2},
		il.VariableDecl{ID: 2, Decl: u32x1},
		il.StoreImm32{Dst: 2, Imm: 3},
		il.VariableDecl{ID: 10, Decl: pointerTo(arr)},
		il.VariableDecl{ID: 11, Decl: pointerTo(f32x4)},
		il.LoadVariableOffset{ID: 11, Base: 10, Offsets: []il.Variable{1}},
		il.VariableDecl{ID: 12, Decl: pointerTo(f32x1)},
		il.LoadVariableOffset{ID: 12, Base: 10, Offsets: []il.Variable{1, 2}},
	})

	root, _ := m.vars.pointer(m.bound[10])
	base := m.vars.arrays[root.Target.Index]
	if base.Region.Size != 48 || base.Stride != 16 || base.ElementStride != 4 {
		t.Fatalf("root = %+v, want size 48 stride 16 element stride 4", base)
	}

	elem, _ := m.vars.pointer(m.bound[11])
	got := m.vars.arrays[elem.Target.Index]
	want := ArrayVariable{Region: Region{Address: base.Region.Address + 32, Size: 16}, Stride: 4, ElementStride: 4}
	if got != want {
		t.Errorf("element = %+v, want %+v", got, want)
	}

	lane, _ := m.vars.pointer(m.bound[12])
	got = m.vars.arrays[lane.Target.Index]
	want = ArrayVariable{Region: Region{Address: base.Region.Address + 44, Size: 4}, Stride: 4, ElementStride: 4}
	if got != want {
		t.Errorf("lane = %+v, want %+v", got, want)
	}
}

// chainLoop indexes the same array element through a pointer and a
// value n times.
func chainLoop(n uint32) []il.Instruction {
	arr := il.Decl{Kind: il.KindArray, ComponentCount: 3, Backing: il.BackingArray{Element: &f32x4, Stride: 16}}
	return []il.Instruction{
		il.VariableDecl{ID: 1, Decl: i32x1},
		il.StoreImm32{Dst: 1, Imm: 0},
		il.VariableDecl{ID: 2, Decl: i32x1},
		il.StoreImm32{Dst: 2, Imm: 1},
		il.VariableDecl{ID: 3, Decl: i32x1},
		il.StoreImm32{Dst: 3, Imm: n},
		il.VariableDecl{ID: 5, Decl: u32x1},
		il.StoreImm32{Dst: 5, Imm: 2},
		il.VariableDecl{ID: 10, Decl: pointerTo(arr)},
		il.VariableDecl{ID: 11, Decl: pointerTo(i32x1)},
		il.Label{ID: 100},
		il.StoreVariable{DstPointer: 11, Src: 1},
		il.Branch{Target: 101},
		il.Label{ID: 101},
		il.LoopMerge{Merge: 103, Continue: 102},
		il.VariableDecl{ID: 20, Decl: i32x1},
		il.LoadVariable{ID: 20, SrcPointer: 11},
		il.VariableDecl{ID: 21, Decl: bool1},
		il.Math{Op: il.MathLessThanI32I32, ID: 21, Op1: 20, Op2: 3},
		il.BranchConditional{Condition: 21, True: 102, False: 103},
		il.Label{ID: 102},
		il.VariableDecl{ID: 30, Decl: pointerTo(f32x1)},
		il.LoadVariableOffset{ID: 30, Base: 10, Offsets: []il.Variable{5, 5}},
		il.VariableDecl{ID: 31, Decl: f32x4},
		il.VariableDecl{ID: 32, Decl: f32x1},
		il.LoadVariableImmOffset{ID: 32, Base: 31, Offset: 1},
		il.VariableDecl{ID: 24, Decl: i32x1},
		il.Math{Op: il.MathAddI32I32, ID: 24, Op1: 20, Op2: 2},
		il.StoreVariable{DstPointer: 11, Src: 24},
		il.Branch{Target: 101},
		il.Label{ID: 103},
		il.Return{},
	}
}

func TestAccessChain_LoopReusesElements(t *testing.T) {
	short := run(t, chainLoop(2))
	long := run(t, chainLoop(500))

	if long.Steps() <= short.Steps() {
		t.Fatalf("steps = %d and %d, want the longer loop to run more", long.Steps(), short.Steps())
	}
	if got, want := len(long.vars.arrays), len(short.vars.arrays); got != want {
		t.Errorf("array table has %d entries after 500 iterations, %d after 2", got, want)
	}
	if got, want := long.MemoryUsed(), short.MemoryUsed(); got != want {
		t.Errorf("memory used = %d after 500 iterations, %d after 2", got, want)
	}

	root, _ := long.vars.pointer(long.bound[10])
	base := long.vars.arrays[root.Target.Index]
	lane, _ := long.vars.pointer(long.bound[30])
	if got := long.vars.arrays[lane.Target.Index].Region; got != (Region{Address: base.Region.Address + 40, Size: 4}) {
		t.Errorf("lane region = %+v, want offset 40 from %d", got, base.Region.Address)
	}
}

func TestAccessChain_OutOfRange(t *testing.T) {
	_, e := runErr(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: u32x1},
		il.StoreImm32{Dst: 1, Imm: 4},
		il.VariableDecl{ID: 10, Decl: pointerTo(f32x4)},
		il.VariableDecl{ID: 11, Decl: pointerTo(f32x1)},
		il.LoadVariableOffset{ID: 11, Base: 10, Offsets: []il.Variable{1}},
	})
	if !strings.Contains(e.Error(), "out of range") {
		t.Errorf("error = %v, want out of range", e)
	}
}

func TestStoreVariableArray(t *testing.T) {
	one, two := math.Float32bits(1), math.Float32bits(2)
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: f32x1},
		il.StoreImm32{Dst: 1, Imm: one},
		il.VariableDecl{ID: 2, Decl: f32x1},
		il.StoreImm32{Dst: 2, Imm: two},
		il.VariableDecl{ID: 3, Decl: il.Decl{Kind: il.KindF32, ComponentCount: 2, Backing: il.BackingMemory{}}},
		il.StoreImm32Array{Dst: 3, Imm: []uint32{two, one}},
		// One value per lane.
		il.VariableDecl{ID: 4, Decl: f32x4},
		il.StoreVariableArray{Dst: 4, Values: []il.Variable{1, 2, 2, 1}},
		// Concatenation.
		il.VariableDecl{ID: 5, Decl: f32x4},
		il.StoreVariableArray{Dst: 5, Values: []il.Variable{3, 1, 2}},
	})
	if got, want := m.testWords(t, 4), []uint32{one, two, two, one}; !equalWords(got, want) {
		t.Errorf("per-lane = %08X, want %08X", got, want)
	}
	if got, want := m.testWords(t, 5), []uint32{two, one, one, two}; !equalWords(got, want) {
		t.Errorf("concatenated = %08X, want %08X", got, want)
	}
}

func equalWords(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadStoreThroughPointer(t *testing.T) {
	m := run(t, []il.Instruction{
		il.VariableDecl{ID: 1, Decl: f32x4},
		il.StoreImm32Array{Dst: 1, Imm: []uint32{1, 2, 3, 4}},
		il.VariableDecl{ID: 2, Decl: pointerTo(f32x4)},
		il.StoreVariable{DstPointer: 2, Src: 1},
		il.VariableDecl{ID: 3, Decl: f32x4},
		il.LoadVariable{ID: 3, SrcPointer: 2},
		il.VariableDecl{ID: 4, Decl: u32x1},
		il.LoadVariableImmOffset{ID: 4, Base: 3, Offset: 2},
	})
	if got := m.testWords(t, 3); !equalWords(got, []uint32{1, 2, 3, 4}) {
		t.Errorf("loaded = %v, want [1 2 3 4]", got)
	}
	if got := m.testWords(t, 4); got[0] != 3 {
		t.Errorf("extracted = %d, want 3", got[0])
	}
}

func TestNewProgram_Labels(t *testing.T) {
	p, err := NewProgram([]il.Instruction{
		il.Label{ID: 5},
		il.Branch{Target: 9},
		il.Label{ID: 9},
		il.Return{},
	})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	if pc, ok := p.Label(9); !ok || pc != 2 {
		t.Errorf("Label(9) = %d, %v, want 2, true", pc, ok)
	}
	if _, ok := p.Label(7); ok {
		t.Error("Label(7) found, want missing")
	}

	_, err = NewProgram([]il.Instruction{il.Label{ID: 5}, il.Label{ID: 5}})
	if !errors.Is(err, ErrFatal) {
		t.Errorf("duplicate label error = %v, want ErrFatal", err)
	}

	if _, err := NewProgram(nil, WithMemorySize(MinMemorySize-1)); err == nil {
		t.Error("NewProgram accepted a memory size below the minimum")
	}
}

// sumLoop computes 0 + 1 + ... + 9 into %4.
var sumLoop = []il.Instruction{
	il.VariableDecl{ID: 1, Decl: i32x1},
	il.StoreImm32{Dst: 1, Imm: 0},
	il.VariableDecl{ID: 2, Decl: i32x1},
	il.StoreImm32{Dst: 2, Imm: 1},
	il.VariableDecl{ID: 3, Decl: i32x1},
	il.StoreImm32{Dst: 3, Imm: 10},
	il.VariableDecl{ID: 10, Decl: pointerTo(i32x1)}, // i
	il.VariableDecl{ID: 11, Decl: pointerTo(i32x1)}, // sum
	il.Label{ID: 100},
	il.StoreVariable{DstPointer: 10, Src: 1},
	il.StoreVariable{DstPointer: 11, Src: 1},
	il.Branch{Target: 101},
	il.Label{ID: 101},
	il.LoopMerge{Merge: 103, Continue: 102},
	il.VariableDecl{ID: 20, Decl: i32x1},
	il.LoadVariable{ID: 20, SrcPointer: 10},
	il.VariableDecl{ID: 21, Decl: bool1},
	il.Math{Op: il.MathLessThanI32I32, ID: 21, Op1: 20, Op2: 3},
	il.BranchConditional{Condition: 21, True: 102, False: 103},
	il.Label{ID: 102},
	il.VariableDecl{ID: 22, Decl: i32x1},
	il.LoadVariable{ID: 22, SrcPointer: 11},
	il.VariableDecl{ID: 23, Decl: i32x1},
	il.Math{Op: il.MathAddI32I32, ID: 23, Op1: 22, Op2: 20},
	il.StoreVariable{DstPointer: 11, Src: 23},
	il.VariableDecl{ID: 24, Decl: i32x1},
	il.Math{Op: il.MathAddI32I32, ID: 24, Op1: 20, Op2: 2},
	il.StoreVariable{DstPointer: 10, Src: 24},
	il.Branch{Target: 101},
	il.Label{ID: 103},
	il.VariableDecl{ID: 4, Decl: i32x1},
	il.LoadVariable{ID: 4, SrcPointer: 11},
	il.Return{},
}

func TestBranches_Loop(t *testing.T) {
	m := run(t, sumLoop)
	if got := m.testWords(t, 4); got[0] != 45 {
		t.Errorf("sum = %d, want 45", got[0])
	}
	if m.State() != StateTerminated {
		t.Errorf("state = %d, want terminated", m.State())
	}
	// Loop-local declarations keep one binding across iterations.
	used := m.MemoryUsed()
	if used > 20*4 {
		t.Errorf("memory used = %d bytes, want declarations allocated once", used)
	}
}

func TestInstructionBudget(t *testing.T) {
	code := []il.Instruction{il.Label{ID: 1}, il.Branch{Target: 1}}
	m, e := runErr(t, code, WithMaxInstructions(100))
	if !strings.Contains(e.Error(), "budget") {
		t.Errorf("error = %v, want budget exhaustion", e)
	}
	if m.Steps() != 100 {
		t.Errorf("steps = %d, want 100", m.Steps())
	}
}

func TestMemoryExhaustion(t *testing.T) {
	huge := il.Decl{Kind: il.KindF32, ComponentCount: DefaultMemorySize, Backing: il.BackingMemory{}}
	_, e := runErr(t, []il.Instruction{il.VariableDecl{ID: 1, Decl: huge}})
	if !strings.Contains(e.Error(), "out of scratch memory") {
		t.Errorf("error = %v, want memory exhaustion", e)
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name string
		code []il.Instruction
		pc   int
		want string
	}{
		{
			name: "undeclared variable",
			code: []il.Instruction{il.StoreImm32{Dst: 7, Imm: 1}},
			pc:   0,
			want: "not declared",
		},
		{
			name: "branch to unplaced label",
			code: []il.Instruction{il.Label{ID: 1}, il.Branch{Target: 2}},
			pc:   1,
			want: "unplaced label",
		},
		{
			name: "value used as pointer",
			code: []il.Instruction{
				il.VariableDecl{ID: 1, Decl: f32x1},
				il.StoreVariable{DstPointer: 1, Src: 1},
			},
			pc:   1,
			want: "used as a pointer",
		},
		{
			name: "lane count mismatch",
			code: []il.Instruction{
				il.VariableDecl{ID: 1, Decl: il.Decl{Kind: il.KindF32, ComponentCount: 2, Backing: il.BackingMemory{}}},
				il.VariableDecl{ID: 2, Decl: f32x4},
				il.Math{Op: il.MathAddF32F32, ID: 2, Op1: 1, Op2: 1},
			},
			pc:   2,
			want: "lanes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, e := runErr(t, tt.code)
			if e.PC != tt.pc {
				t.Errorf("PC = %d, want %d", e.PC, tt.pc)
			}
			if !strings.Contains(e.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", e, tt.want)
			}
		})
	}
}

func TestRun_Empty(t *testing.T) {
	m := run(t, nil)
	if m.State() != StateTerminated || m.Steps() != 0 {
		t.Errorf("state = %d steps = %d, want terminated after 0 steps", m.State(), m.Steps())
	}
}

func TestNewMachine_State(t *testing.T) {
	p, err := NewProgram([]il.Instruction{il.Return{}, il.Kill{}})
	if err != nil {
		t.Fatalf("NewProgram failed: %v", err)
	}
	m := p.NewMachine()
	if m.State() != StateLoaded {
		t.Errorf("state = %d, want loaded", m.State())
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if m.Steps() != 1 || m.Discarded() {
		t.Errorf("steps = %d discarded = %v, want Return to stop before Kill", m.Steps(), m.Discarded())
	}
}
