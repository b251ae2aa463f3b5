package spirv

import "strconv"

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common SPIR-V versions
var (
	Version1_0 = Version{1, 0}
	Version1_3 = Version{1, 3}
	Version1_4 = Version{1, 4}
	Version1_5 = Version{1, 5}
	Version1_6 = Version{1, 6}
)

// SPIR-V magic number and constants
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator

	// HeaderWords is the number of words preceding the first instruction.
	HeaderWords = 5
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes recognised by the parser. Debug and preamble opcodes are
// listed so they can be skipped by name.
const (
	OpNop                  OpCode = 0
	OpSourceContinued      OpCode = 2
	OpSource               OpCode = 3
	OpSourceExtension      OpCode = 4
	OpName                 OpCode = 5
	OpMemberName           OpCode = 6
	OpString               OpCode = 7
	OpLine                 OpCode = 8
	OpExtension            OpCode = 10
	OpExtInstImport        OpCode = 11
	OpExtInst              OpCode = 12
	OpMemoryModel          OpCode = 14
	OpEntryPoint           OpCode = 15
	OpExecutionMode        OpCode = 16
	OpCapability           OpCode = 17
	OpTypeVoid             OpCode = 19
	OpTypeBool             OpCode = 20
	OpTypeInt              OpCode = 21
	OpTypeFloat            OpCode = 22
	OpTypeVector           OpCode = 23
	OpTypeMatrix           OpCode = 24
	OpTypeArray            OpCode = 28
	OpTypeRuntimeArray     OpCode = 29
	OpTypeStruct           OpCode = 30
	OpTypePointer          OpCode = 32
	OpTypeFunction         OpCode = 33
	OpConstantTrue         OpCode = 41
	OpConstantFalse        OpCode = 42
	OpConstant             OpCode = 43
	OpConstantComposite    OpCode = 44
	OpFunction             OpCode = 54
	OpFunctionParameter    OpCode = 55
	OpFunctionEnd          OpCode = 56
	OpFunctionCall         OpCode = 57
	OpVariable             OpCode = 59
	OpLoad                 OpCode = 61
	OpStore                OpCode = 62
	OpAccessChain          OpCode = 65
	OpInBoundsAccessChain  OpCode = 66
	OpDecorate             OpCode = 71
	OpMemberDecorate       OpCode = 72
	OpVectorShuffle        OpCode = 79
	OpCompositeConstruct   OpCode = 80
	OpCompositeExtract     OpCode = 81
	OpConvertFToU          OpCode = 109
	OpConvertFToS          OpCode = 110
	OpConvertSToF          OpCode = 111
	OpConvertUToF          OpCode = 112
	OpFNegate              OpCode = 127
	OpIAdd                 OpCode = 128
	OpFAdd                 OpCode = 129
	OpISub                 OpCode = 130
	OpFSub                 OpCode = 131
	OpIMul                 OpCode = 132
	OpFMul                 OpCode = 133
	OpUDiv                 OpCode = 134
	OpSDiv                 OpCode = 135
	OpFDiv                 OpCode = 136
	OpUMod                 OpCode = 137
	OpSRem                 OpCode = 138
	OpSMod                 OpCode = 139
	OpVectorTimesScalar    OpCode = 142
	OpSelect               OpCode = 169
	OpIEqual               OpCode = 170
	OpULessThan            OpCode = 176
	OpSLessThan            OpCode = 177
	OpFOrdLessThan         OpCode = 184
	OpShiftRightLogical    OpCode = 194
	OpShiftLeftLogical     OpCode = 196
	OpBitwiseOr            OpCode = 197
	OpBitwiseXor           OpCode = 198
	OpBitwiseAnd           OpCode = 199
	OpLoopMerge            OpCode = 246
	OpSelectionMerge       OpCode = 247
	OpLabel                OpCode = 248
	OpBranch               OpCode = 249
	OpBranchConditional    OpCode = 250
	OpKill                 OpCode = 252
	OpReturn               OpCode = 253
	OpReturnValue          OpCode = 254
	OpUnreachable          OpCode = 255
	OpNoLine               OpCode = 317
	OpModuleProcessed      OpCode = 330
	OpDecorateString       OpCode = 5632
	OpMemberDecorateString OpCode = 5633
)

// String returns the SPIR-V mnemonic of the opcode.
func (op OpCode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "Op" + strconv.FormatUint(uint64(op), 10)
}

// Capability represents a SPIR-V capability.
type Capability uint32

// Capabilities the driver knows about.
const (
	CapabilityMatrix       Capability = 0
	CapabilityShader       Capability = 1
	CapabilityGeometry     Capability = 2
	CapabilityTessellation Capability = 3
	CapabilityFloat16      Capability = 9
	CapabilityFloat64      Capability = 10
	CapabilityInt64        Capability = 11
	CapabilityInt16        Capability = 22
	CapabilityClipDistance Capability = 32
	CapabilityCullDistance Capability = 33
	CapabilityInt8         Capability = 39
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// Addressing models.
const (
	AddressingModelLogical    AddressingModel = 0
	AddressingModelPhysical32 AddressingModel = 1
	AddressingModelPhysical64 AddressingModel = 2
)

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// Memory models.
const (
	MemoryModelSimple  MemoryModel = 0
	MemoryModelGLSL450 MemoryModel = 1
	MemoryModelOpenCL  MemoryModel = 2
	MemoryModelVulkan  MemoryModel = 3
)

// ExecutionModel represents a SPIR-V execution model (shader stage).
type ExecutionModel uint32

// Execution models.
const (
	ExecutionModelVertex                 ExecutionModel = 0
	ExecutionModelTessellationControl    ExecutionModel = 1
	ExecutionModelTessellationEvaluation ExecutionModel = 2
	ExecutionModelGeometry               ExecutionModel = 3
	ExecutionModelFragment               ExecutionModel = 4
	ExecutionModelGLCompute              ExecutionModel = 5
	ExecutionModelKernel                 ExecutionModel = 6
)

// String returns the execution model name.
func (m ExecutionModel) String() string {
	return lookupName(executionModelNames, uint32(m))
}

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// Execution modes.
const (
	ExecutionModePixelCenterInteger ExecutionMode = 6
	ExecutionModeOriginUpperLeft    ExecutionMode = 7
	ExecutionModeOriginLowerLeft    ExecutionMode = 8
	ExecutionModeEarlyFragmentTests ExecutionMode = 9
	ExecutionModeDepthReplacing     ExecutionMode = 12
	ExecutionModeLocalSize          ExecutionMode = 17
)

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

// Storage classes.
const (
	StorageClassUniformConstant StorageClass = 0
	StorageClassInput           StorageClass = 1
	StorageClassUniform         StorageClass = 2
	StorageClassOutput          StorageClass = 3
	StorageClassWorkgroup       StorageClass = 4
	StorageClassCrossWorkgroup  StorageClass = 5
	StorageClassPrivate         StorageClass = 6
	StorageClassFunction        StorageClass = 7
	StorageClassGeneric         StorageClass = 8
	StorageClassPushConstant    StorageClass = 9
	StorageClassAtomicCounter   StorageClass = 10
	StorageClassImage           StorageClass = 11
	StorageClassStorageBuffer   StorageClass = 12
)

// String returns the storage class name.
func (s StorageClass) String() string {
	return lookupName(storageClassNames, uint32(s))
}

// supported reports whether the interpreter can back the storage class.
func (s StorageClass) supported() bool {
	switch s {
	case StorageClassInput, StorageClassOutput, StorageClassFunction,
		StorageClassPushConstant, StorageClassUniform:
		return true
	default:
		return false
	}
}

// Decoration represents a SPIR-V decoration.
type Decoration uint32

// Decorations.
const (
	DecorationRelaxedPrecision Decoration = 0
	DecorationSpecID           Decoration = 1
	DecorationBlock            Decoration = 2
	DecorationBufferBlock      Decoration = 3
	DecorationRowMajor         Decoration = 4
	DecorationColMajor         Decoration = 5
	DecorationArrayStride      Decoration = 6
	DecorationMatrixStride     Decoration = 7
	DecorationBuiltIn          Decoration = 11
	DecorationNoPerspective    Decoration = 13
	DecorationFlat             Decoration = 14
	DecorationCentroid         Decoration = 16
	DecorationSample           Decoration = 17
	DecorationInvariant        Decoration = 18
	DecorationRestrict         Decoration = 19
	DecorationVolatile         Decoration = 21
	DecorationCoherent         Decoration = 23
	DecorationNonWritable      Decoration = 24
	DecorationNonReadable      Decoration = 25
	DecorationLocation         Decoration = 30
	DecorationComponent        Decoration = 31
	DecorationIndex            Decoration = 32
	DecorationBinding          Decoration = 33
	DecorationDescriptorSet    Decoration = 34
	DecorationOffset           Decoration = 35
)

// String returns the decoration name.
func (d Decoration) String() string {
	return lookupName(decorationNames, uint32(d))
}

// BuiltIn represents a SPIR-V built-in variable tag.
type BuiltIn uint32

// Built-ins.
const (
	BuiltInPosition     BuiltIn = 0
	BuiltInPointSize    BuiltIn = 1
	BuiltInClipDistance BuiltIn = 3
	BuiltInCullDistance BuiltIn = 4
	BuiltInVertexID     BuiltIn = 5
	BuiltInInstanceID   BuiltIn = 6
	BuiltInFragCoord    BuiltIn = 15
	BuiltInPointCoord   BuiltIn = 16
	BuiltInFrontFacing  BuiltIn = 17
	BuiltInFragDepth    BuiltIn = 22
	BuiltInVertexIndex  BuiltIn = 42
	BuiltInInstanceIdx  BuiltIn = 43
)

// String returns the built-in name.
func (b BuiltIn) String() string {
	return lookupName(builtInNames, uint32(b))
}

// FunctionControl represents SPIR-V function control flags.
type FunctionControl uint32

// Function control flags.
const (
	FunctionControlNone       FunctionControl = 0
	FunctionControlInline     FunctionControl = 1
	FunctionControlDontInline FunctionControl = 2
)

// SelectionControl represents SPIR-V selection control flags.
type SelectionControl uint32

// Selection control flags.
const (
	SelectionControlNone SelectionControl = 0
)

// LoopControl represents SPIR-V loop control flags.
type LoopControl uint32

// Loop control flags.
const (
	LoopControlNone LoopControl = 0
)

var opcodeNames = map[OpCode]string{
	OpNop: "OpNop", OpSourceContinued: "OpSourceContinued", OpSource: "OpSource",
	OpSourceExtension: "OpSourceExtension", OpName: "OpName", OpMemberName: "OpMemberName",
	OpString: "OpString", OpLine: "OpLine", OpExtension: "OpExtension",
	OpExtInstImport: "OpExtInstImport", OpExtInst: "OpExtInst",
	OpMemoryModel: "OpMemoryModel", OpEntryPoint: "OpEntryPoint",
	OpExecutionMode: "OpExecutionMode", OpCapability: "OpCapability",
	OpTypeVoid: "OpTypeVoid", OpTypeBool: "OpTypeBool", OpTypeInt: "OpTypeInt",
	OpTypeFloat: "OpTypeFloat", OpTypeVector: "OpTypeVector", OpTypeMatrix: "OpTypeMatrix",
	OpTypeArray: "OpTypeArray", OpTypeRuntimeArray: "OpTypeRuntimeArray",
	OpTypeStruct: "OpTypeStruct", OpTypePointer: "OpTypePointer",
	OpTypeFunction: "OpTypeFunction", OpConstantTrue: "OpConstantTrue",
	OpConstantFalse: "OpConstantFalse", OpConstant: "OpConstant",
	OpConstantComposite: "OpConstantComposite", OpFunction: "OpFunction",
	OpFunctionParameter: "OpFunctionParameter", OpFunctionEnd: "OpFunctionEnd",
	OpFunctionCall: "OpFunctionCall", OpVariable: "OpVariable", OpLoad: "OpLoad",
	OpStore: "OpStore", OpAccessChain: "OpAccessChain",
	OpInBoundsAccessChain: "OpInBoundsAccessChain", OpDecorate: "OpDecorate",
	OpMemberDecorate: "OpMemberDecorate", OpVectorShuffle: "OpVectorShuffle",
	OpCompositeConstruct: "OpCompositeConstruct", OpCompositeExtract: "OpCompositeExtract",
	OpConvertFToU: "OpConvertFToU", OpConvertFToS: "OpConvertFToS",
	OpConvertSToF: "OpConvertSToF", OpConvertUToF: "OpConvertUToF",
	OpFNegate: "OpFNegate", OpIAdd: "OpIAdd", OpFAdd: "OpFAdd", OpISub: "OpISub",
	OpFSub: "OpFSub", OpIMul: "OpIMul", OpFMul: "OpFMul", OpUDiv: "OpUDiv",
	OpSDiv: "OpSDiv", OpFDiv: "OpFDiv", OpUMod: "OpUMod", OpSRem: "OpSRem",
	OpSMod: "OpSMod", OpVectorTimesScalar: "OpVectorTimesScalar",
	OpSelect: "OpSelect", OpIEqual: "OpIEqual", OpULessThan: "OpULessThan",
	OpSLessThan: "OpSLessThan", OpFOrdLessThan: "OpFOrdLessThan",
	OpShiftRightLogical: "OpShiftRightLogical", OpShiftLeftLogical: "OpShiftLeftLogical",
	OpBitwiseOr: "OpBitwiseOr", OpBitwiseXor: "OpBitwiseXor", OpBitwiseAnd: "OpBitwiseAnd",
	OpLoopMerge: "OpLoopMerge", OpSelectionMerge: "OpSelectionMerge", OpLabel: "OpLabel",
	OpBranch: "OpBranch", OpBranchConditional: "OpBranchConditional", OpKill: "OpKill",
	OpReturn: "OpReturn", OpReturnValue: "OpReturnValue", OpUnreachable: "OpUnreachable",
	OpNoLine: "OpNoLine", OpModuleProcessed: "OpModuleProcessed",
	OpDecorateString: "OpDecorateString", OpMemberDecorateString: "OpMemberDecorateString",
}

var capabilityNames = map[uint32]string{
	0: "Matrix", 1: "Shader", 2: "Geometry", 3: "Tessellation",
	9: "Float16", 10: "Float64", 11: "Int64", 22: "Int16",
	32: "ClipDistance", 33: "CullDistance", 39: "Int8",
}

var storageClassNames = map[uint32]string{
	0: "UniformConstant", 1: "Input", 2: "Uniform", 3: "Output",
	4: "Workgroup", 5: "CrossWorkgroup", 6: "Private", 7: "Function",
	8: "Generic", 9: "PushConstant", 10: "AtomicCounter", 11: "Image",
	12: "StorageBuffer",
}

var decorationNames = map[uint32]string{
	0: "RelaxedPrecision", 1: "SpecId", 2: "Block", 3: "BufferBlock",
	4: "RowMajor", 5: "ColMajor", 6: "ArrayStride", 7: "MatrixStride",
	11: "BuiltIn", 13: "NoPerspective", 14: "Flat", 16: "Centroid",
	17: "Sample", 18: "Invariant", 19: "Restrict", 21: "Volatile",
	23: "Coherent", 24: "NonWritable", 25: "NonReadable",
	30: "Location", 31: "Component", 32: "Index",
	33: "Binding", 34: "DescriptorSet", 35: "Offset",
}

var builtInNames = map[uint32]string{
	0: "Position", 1: "PointSize", 3: "ClipDistance", 4: "CullDistance",
	5: "VertexId", 6: "InstanceId", 15: "FragCoord", 16: "PointCoord",
	17: "FrontFacing", 22: "FragDepth", 42: "VertexIndex", 43: "InstanceIndex",
}

var executionModelNames = map[uint32]string{
	0: "Vertex", 1: "TessellationControl", 2: "TessellationEvaluation",
	3: "Geometry", 4: "Fragment", 5: "GLCompute", 6: "Kernel",
}

var executionModeNames = map[uint32]string{
	6: "PixelCenterInteger", 7: "OriginUpperLeft", 8: "OriginLowerLeft",
	9: "EarlyFragmentTests", 12: "DepthReplacing", 17: "LocalSize",
}

func lookupName(m map[uint32]string, v uint32) string {
	if s, ok := m[v]; ok {
		return s
	}
	return strconv.FormatUint(uint64(v), 10)
}
