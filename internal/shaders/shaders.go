// Package shaders assembles the small SPIR-V programs used by the test
// suites and by spvrun's -demo flag.
package shaders

import (
	"sort"

	"github.com/szx/vkswr/spirv"
)

// Demos maps demo names to shader constructors.
var Demos = map[string]func() []uint32{
	"passthrough": PassthroughVertex,
	"scale":       ScaleVertex,
	"pointsize":   PointSizeVertex,
	"vertexindex": VertexIndexVertex,
	"subtract":    SubtractVertex,
	"clip":        ClipDistanceVertex,
	"empty":       EmptyVertex,
	"color":       ColorFragment,
	"checker":     CheckerFragment,
	"gradient":    GradientFragment,
	"discard":     DiscardFragment,
}

// Names returns the demo names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Demos))
	for name := range Demos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// module carries the ids every shader here shares.
type module struct {
	b *spirv.ModuleBuilder

	void, voidFn  spirv.ObjectID
	boolean       spirv.ObjectID
	f32, i32, u32 spirv.ObjectID
	vec4          spirv.ObjectID
	int0, int1    spirv.ObjectID
	int2, int8    spirv.ObjectID
	uint0, uint8  spirv.ObjectID
	ptrInVec4     spirv.ObjectID
	ptrOutVec4    spirv.ObjectID
	ptrOutFloat   spirv.ObjectID
	main          spirv.ObjectID
	interfaceVars []spirv.ObjectID
}

func newModule() *module {
	b := spirv.NewShaderBuilder()
	m := &module{b: b}
	m.void = b.AddTypeVoid()
	m.voidFn = b.AddTypeFunction(m.void)
	m.boolean = b.AddTypeBool()
	m.f32 = b.AddTypeFloat(32)
	m.i32 = b.AddTypeInt(32, true)
	m.u32 = b.AddTypeInt(32, false)
	m.vec4 = b.AddTypeVector(m.f32, 4)
	m.int0 = b.AddConstantInt32(m.i32, 0)
	m.int1 = b.AddConstantInt32(m.i32, 1)
	m.int2 = b.AddConstantInt32(m.i32, 2)
	m.int8 = b.AddConstantInt32(m.i32, 8)
	m.uint0 = b.AddConstant(m.u32, 0)
	m.uint8 = b.AddConstant(m.u32, 8)
	m.ptrInVec4 = b.AddTypePointer(spirv.StorageClassInput, m.vec4)
	m.ptrOutVec4 = b.AddTypePointer(spirv.StorageClassOutput, m.vec4)
	m.ptrOutFloat = b.AddTypePointer(spirv.StorageClassOutput, m.f32)
	return m
}

// perVertex declares the gl_PerVertex output block
// { vec4 Position; float PointSize; float ClipDistance[8]; }.
func (m *module) perVertex() spirv.ObjectID {
	b := m.b
	clip := b.AddTypeArray(m.f32, m.uint8)
	block := b.AddTypeStruct(m.vec4, m.f32, clip)
	b.AddDecorate(block, spirv.DecorationBlock)
	b.AddMemberDecorate(block, 0, spirv.DecorationBuiltIn, uint32(spirv.BuiltInPosition))
	b.AddMemberDecorate(block, 1, spirv.DecorationBuiltIn, uint32(spirv.BuiltInPointSize))
	b.AddMemberDecorate(block, 2, spirv.DecorationBuiltIn, uint32(spirv.BuiltInClipDistance))
	b.AddName(block, "gl_PerVertex")

	ptr := b.AddTypePointer(spirv.StorageClassOutput, block)
	v := b.AddVariable(ptr, spirv.StorageClassOutput)
	m.interfaceVars = append(m.interfaceVars, v)
	return v
}

// location declares a vec4 stage variable at the given location.
func (m *module) location(storage spirv.StorageClass, location uint32) spirv.ObjectID {
	ptr := m.ptrInVec4
	if storage == spirv.StorageClassOutput {
		ptr = m.ptrOutVec4
	}
	v := m.b.AddVariable(ptr, storage)
	m.b.AddDecorate(v, spirv.DecorationLocation, location)
	m.interfaceVars = append(m.interfaceVars, v)
	return v
}

// builtin declares a built-in stage variable of the given pointee type.
func (m *module) builtin(storage spirv.StorageClass, pointee spirv.ObjectID, builtin spirv.BuiltIn) spirv.ObjectID {
	ptr := m.b.AddTypePointer(storage, pointee)
	v := m.b.AddVariable(ptr, storage)
	m.b.AddDecorate(v, spirv.DecorationBuiltIn, uint32(builtin))
	m.interfaceVars = append(m.interfaceVars, v)
	return v
}

func (m *module) begin() {
	m.main = m.b.AddFunction(m.voidFn, m.void, spirv.FunctionControlNone)
	m.b.AddName(m.main, "main")
	m.b.AddLabel()
}

func (m *module) finish(model spirv.ExecutionModel) []uint32 {
	m.b.AddReturn()
	m.b.AddFunctionEnd()
	m.b.AddEntryPoint(model, m.main, "main", m.interfaceVars...)
	if model == spirv.ExecutionModelFragment {
		m.b.AddExecutionMode(m.main, spirv.ExecutionModeOriginUpperLeft)
	}
	return m.b.BuildWords()
}

// PassthroughVertex copies the location 0 input into gl_Position.
func PassthroughVertex() []uint32 {
	m := newModule()
	out := m.perVertex()
	in := m.location(spirv.StorageClassInput, 0)

	m.begin()
	v := m.b.AddLoad(m.vec4, in)
	pos := m.b.AddAccessChain(m.ptrOutVec4, out, m.int0)
	m.b.AddStore(pos, v)
	return m.finish(spirv.ExecutionModelVertex)
}

// ScaleVertex writes the location 0 input times 2.0 to gl_Position.
func ScaleVertex() []uint32 {
	m := newModule()
	two := m.b.AddConstantFloat32(m.f32, 2.0)
	out := m.perVertex()
	in := m.location(spirv.StorageClassInput, 0)

	m.begin()
	v := m.b.AddLoad(m.vec4, in)
	scaled := m.b.AddVectorTimesScalar(m.vec4, v, two)
	pos := m.b.AddAccessChain(m.ptrOutVec4, out, m.int0)
	m.b.AddStore(pos, scaled)
	return m.finish(spirv.ExecutionModelVertex)
}

// PointSizeVertex writes component 2 of the location 0 input to
// gl_PointSize.
func PointSizeVertex() []uint32 {
	m := newModule()
	out := m.perVertex()
	in := m.location(spirv.StorageClassInput, 0)

	m.begin()
	v := m.b.AddLoad(m.vec4, in)
	z := m.b.AddCompositeExtract(m.f32, v, 2)
	size := m.b.AddAccessChain(m.ptrOutFloat, out, m.int1)
	m.b.AddStore(size, z)
	return m.finish(spirv.ExecutionModelVertex)
}

// VertexIndexVertex writes float(gl_VertexIndex / 3) to gl_Position.x
// through a two-step access chain.
func VertexIndexVertex() []uint32 {
	m := newModule()
	three := m.b.AddConstant(m.u32, 3)
	out := m.perVertex()
	index := m.builtin(spirv.StorageClassInput, m.u32, spirv.BuiltInVertexIndex)

	m.begin()
	idx := m.b.AddLoad(m.u32, index)
	q := m.b.AddBinaryOp(spirv.OpUDiv, m.u32, idx, three)
	f := m.b.AddUnaryOp(spirv.OpConvertUToF, m.f32, q)
	pos := m.b.AddAccessChain(m.ptrOutVec4, out, m.int0)
	x := m.b.AddAccessChain(m.ptrOutFloat, pos, m.uint0)
	m.b.AddStore(x, f)
	return m.finish(spirv.ExecutionModelVertex)
}

// SubtractVertex writes gl_Position minus the location 0 input back to
// gl_Position.
func SubtractVertex() []uint32 {
	m := newModule()
	out := m.perVertex()
	in := m.location(spirv.StorageClassInput, 0)

	m.begin()
	pos := m.b.AddAccessChain(m.ptrOutVec4, out, m.int0)
	p := m.b.AddLoad(m.vec4, pos)
	v := m.b.AddLoad(m.vec4, in)
	d := m.b.AddBinaryOp(spirv.OpFSub, m.vec4, p, v)
	m.b.AddStore(pos, d)
	return m.finish(spirv.ExecutionModelVertex)
}

// ClipDistanceVertex fills gl_ClipDistance[i] = float(i) in a loop.
func ClipDistanceVertex() []uint32 {
	m := newModule()
	b := m.b
	ptrFuncInt := b.AddTypePointer(spirv.StorageClassFunction, m.i32)
	out := m.perVertex()

	m.begin()
	i := b.AddLocalVariable(ptrFuncInt)
	b.AddStore(i, m.int0)

	header, check, body := b.AllocID(), b.AllocID(), b.AllocID()
	cont, merge := b.AllocID(), b.AllocID()
	b.AddBranch(header)

	b.PlaceLabel(header)
	b.AddLoopMerge(merge, cont, spirv.LoopControlNone)
	b.AddBranch(check)

	b.PlaceLabel(check)
	iv := b.AddLoad(m.i32, i)
	cond := b.AddBinaryOp(spirv.OpSLessThan, m.boolean, iv, m.int8)
	b.AddBranchConditional(cond, body, merge)

	b.PlaceLabel(body)
	iv = b.AddLoad(m.i32, i)
	f := b.AddUnaryOp(spirv.OpConvertSToF, m.f32, iv)
	clip := b.AddAccessChain(m.ptrOutFloat, out, m.int2, iv)
	b.AddStore(clip, f)
	b.AddBranch(cont)

	b.PlaceLabel(cont)
	iv = b.AddLoad(m.i32, i)
	next := b.AddBinaryOp(spirv.OpIAdd, m.i32, iv, m.int1)
	b.AddStore(i, next)
	b.AddBranch(header)

	b.PlaceLabel(merge)
	return m.finish(spirv.ExecutionModelVertex)
}

// EmptyVertex returns immediately.
func EmptyVertex() []uint32 {
	m := newModule()
	m.perVertex()
	m.begin()
	return m.finish(spirv.ExecutionModelVertex)
}

// ColorFragment copies the interpolated location 0 color to the location 0
// output.
func ColorFragment() []uint32 {
	m := newModule()
	in := m.location(spirv.StorageClassInput, 0)
	out := m.location(spirv.StorageClassOutput, 0)

	m.begin()
	c := m.b.AddLoad(m.vec4, in)
	m.b.AddStore(out, c)
	return m.finish(spirv.ExecutionModelFragment)
}

// CheckerFragment shades an 8x8 checkerboard from gl_FragCoord.
func CheckerFragment() []uint32 {
	m := newModule()
	b := m.b
	one := b.AddConstantFloat32(m.f32, 1)
	dark := b.AddConstantFloat32(m.f32, 0.2)
	light := b.AddConstantComposite(m.vec4, one, one, one, one)
	shade := b.AddConstantComposite(m.vec4, dark, dark, dark, one)
	coord := m.builtin(spirv.StorageClassInput, m.vec4, spirv.BuiltInFragCoord)
	out := m.location(spirv.StorageClassOutput, 0)

	m.begin()
	fc := b.AddLoad(m.vec4, coord)
	x := b.AddCompositeExtract(m.f32, fc, 0)
	y := b.AddCompositeExtract(m.f32, fc, 1)
	xi := b.AddUnaryOp(spirv.OpConvertFToS, m.i32, x)
	yi := b.AddUnaryOp(spirv.OpConvertFToS, m.i32, y)
	cx := b.AddBinaryOp(spirv.OpSDiv, m.i32, xi, m.int8)
	cy := b.AddBinaryOp(spirv.OpSDiv, m.i32, yi, m.int8)
	sum := b.AddBinaryOp(spirv.OpIAdd, m.i32, cx, cy)
	parity := b.AddBinaryOp(spirv.OpBitwiseAnd, m.i32, sum, m.int1)
	even := b.AddBinaryOp(spirv.OpIEqual, m.boolean, parity, m.int0)
	color := b.AddSelect(m.vec4, even, light, shade)
	b.AddStore(out, color)
	return m.finish(spirv.ExecutionModelFragment)
}

// GradientFragment shades vec4(x/64, y/64, 0.5, 1) from gl_FragCoord.
func GradientFragment() []uint32 {
	m := newModule()
	b := m.b
	scale := b.AddConstantFloat32(m.f32, 1.0/64)
	half := b.AddConstantFloat32(m.f32, 0.5)
	one := b.AddConstantFloat32(m.f32, 1)
	coord := m.builtin(spirv.StorageClassInput, m.vec4, spirv.BuiltInFragCoord)
	out := m.location(spirv.StorageClassOutput, 0)

	m.begin()
	fc := b.AddLoad(m.vec4, coord)
	x := b.AddCompositeExtract(m.f32, fc, 0)
	y := b.AddCompositeExtract(m.f32, fc, 1)
	r := b.AddBinaryOp(spirv.OpFMul, m.f32, x, scale)
	g := b.AddBinaryOp(spirv.OpFMul, m.f32, y, scale)
	color := b.AddCompositeConstruct(m.vec4, r, g, half, one)
	b.AddStore(out, color)
	return m.finish(spirv.ExecutionModelFragment)
}

// DiscardFragment kills fragments left of x = 4 and passes the location 0
// color through otherwise.
func DiscardFragment() []uint32 {
	m := newModule()
	b := m.b
	four := b.AddConstantFloat32(m.f32, 4)
	coord := m.builtin(spirv.StorageClassInput, m.vec4, spirv.BuiltInFragCoord)
	in := m.location(spirv.StorageClassInput, 0)
	out := m.location(spirv.StorageClassOutput, 0)

	m.begin()
	fc := b.AddLoad(m.vec4, coord)
	x := b.AddCompositeExtract(m.f32, fc, 0)
	left := b.AddBinaryOp(spirv.OpFOrdLessThan, m.boolean, x, four)
	kill, merge := b.AllocID(), b.AllocID()
	b.AddSelectionMerge(merge, spirv.SelectionControlNone)
	b.AddBranchConditional(left, kill, merge)

	b.PlaceLabel(kill)
	b.AddKill()

	b.PlaceLabel(merge)
	c := b.AddLoad(m.vec4, in)
	b.AddStore(out, c)
	return m.finish(spirv.ExecutionModelFragment)
}
