package spirv

import (
	"math"
)

// Encode encodes the instruction back into words.
func (i RawInstruction) Encode() []uint32 {
	wordCount := uint32(len(i.Operands) + 1) // +1 for opcode word
	result := make([]uint32, 0, wordCount)
	result = append(result, (wordCount<<16)|uint32(i.Opcode))
	result = append(result, i.Operands...)
	return result
}

// InstructionBuilder builds SPIR-V instructions.
type InstructionBuilder struct {
	words []uint32
}

// NewInstructionBuilder creates a new instruction builder.
func NewInstructionBuilder() *InstructionBuilder {
	return &InstructionBuilder{
		words: make([]uint32, 0, 8),
	}
}

// AddWord adds a word to the instruction.
func (b *InstructionBuilder) AddWord(word uint32) {
	b.words = append(b.words, word)
}

// AddID adds an id operand.
func (b *InstructionBuilder) AddID(id ObjectID) {
	b.words = append(b.words, uint32(id))
}

// AddString adds a null-terminated UTF-8 string.
func (b *InstructionBuilder) AddString(s string) {
	bytes := append([]byte(s), 0)
	for len(bytes)%4 != 0 {
		bytes = append(bytes, 0)
	}
	for i := 0; i < len(bytes); i += 4 {
		word := uint32(bytes[i]) |
			uint32(bytes[i+1])<<8 |
			uint32(bytes[i+2])<<16 |
			uint32(bytes[i+3])<<24
		b.words = append(b.words, word)
	}
}

// Build builds the instruction with the given opcode.
func (b *InstructionBuilder) Build(opcode OpCode) RawInstruction {
	return RawInstruction{
		Opcode:   opcode,
		Operands: b.words,
	}
}

// ModuleBuilder assembles SPIR-V modules. The test suites and the command
// line tools use it to produce shaders without an offline compiler.
type ModuleBuilder struct {
	// Header
	version   Version
	generator uint32
	schema    uint32

	// Sections in logical layout order.
	capabilities   []RawInstruction
	extensions     []RawInstruction
	extInstImports []RawInstruction
	memoryModel    *RawInstruction
	entryPoints    []RawInstruction
	executionModes []RawInstruction
	debugNames     []RawInstruction // OpName, OpMemberName
	annotations    []RawInstruction // OpDecorate, OpMemberDecorate
	types          []RawInstruction // OpType*, OpConstant*
	globalVars     []RawInstruction // OpVariable (global)
	functions      []RawInstruction // OpFunction...OpFunctionEnd

	nextID uint32
}

// NewModuleBuilder creates a new SPIR-V module builder.
func NewModuleBuilder(version Version) *ModuleBuilder {
	return &ModuleBuilder{
		version:   version,
		generator: GeneratorID,
		nextID:    1,
	}
}

// NewShaderBuilder returns a builder preloaded with the Shader capability
// and the Logical/GLSL450 memory model.
func NewShaderBuilder() *ModuleBuilder {
	b := NewModuleBuilder(Version1_0)
	b.AddCapability(CapabilityShader)
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	return b
}

// AllocID allocates a new SPIR-V ID.
func (b *ModuleBuilder) AllocID() ObjectID {
	id := b.nextID
	b.nextID++
	return ObjectID(id)
}

// AddCapability adds a capability.
func (b *ModuleBuilder) AddCapability(capability Capability) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(capability))
	b.capabilities = append(b.capabilities, builder.Build(OpCapability))
}

// AddExtension adds an extension.
func (b *ModuleBuilder) AddExtension(name string) {
	builder := NewInstructionBuilder()
	builder.AddString(name)
	b.extensions = append(b.extensions, builder.Build(OpExtension))
}

// AddExtInstImport imports an extended instruction set.
func (b *ModuleBuilder) AddExtInstImport(name string) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(id)
	builder.AddString(name)
	b.extInstImports = append(b.extInstImports, builder.Build(OpExtInstImport))
	return id
}

// SetMemoryModel sets the memory model.
func (b *ModuleBuilder) SetMemoryModel(addressing AddressingModel, memory MemoryModel) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(addressing))
	builder.AddWord(uint32(memory))
	inst := builder.Build(OpMemoryModel)
	b.memoryModel = &inst
}

// AddEntryPoint adds an entry point.
func (b *ModuleBuilder) AddEntryPoint(execModel ExecutionModel, funcID ObjectID, name string, interfaces ...ObjectID) {
	builder := NewInstructionBuilder()
	builder.AddWord(uint32(execModel))
	builder.AddID(funcID)
	builder.AddString(name)
	for _, iface := range interfaces {
		builder.AddID(iface)
	}
	b.entryPoints = append(b.entryPoints, builder.Build(OpEntryPoint))
}

// AddExecutionMode adds an execution mode.
func (b *ModuleBuilder) AddExecutionMode(entryPoint ObjectID, mode ExecutionMode, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddID(entryPoint)
	builder.AddWord(uint32(mode))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.executionModes = append(b.executionModes, builder.Build(OpExecutionMode))
}

// AddName adds a debug name.
func (b *ModuleBuilder) AddName(id ObjectID, name string) {
	builder := NewInstructionBuilder()
	builder.AddID(id)
	builder.AddString(name)
	b.debugNames = append(b.debugNames, builder.Build(OpName))
}

// AddDecorate adds a decoration.
func (b *ModuleBuilder) AddDecorate(id ObjectID, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddID(id)
	builder.AddWord(uint32(decoration))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.annotations = append(b.annotations, builder.Build(OpDecorate))
}

// AddMemberDecorate adds a member decoration.
func (b *ModuleBuilder) AddMemberDecorate(structID ObjectID, member uint32, decoration Decoration, params ...uint32) {
	builder := NewInstructionBuilder()
	builder.AddID(structID)
	builder.AddWord(member)
	builder.AddWord(uint32(decoration))
	for _, param := range params {
		builder.AddWord(param)
	}
	b.annotations = append(b.annotations, builder.Build(OpMemberDecorate))
}

func (b *ModuleBuilder) addType(op OpCode, operands ...uint32) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(id)
	for _, w := range operands {
		builder.AddWord(w)
	}
	b.types = append(b.types, builder.Build(op))
	return id
}

// AddTypeVoid adds OpTypeVoid.
func (b *ModuleBuilder) AddTypeVoid() ObjectID {
	return b.addType(OpTypeVoid)
}

// AddTypeBool adds OpTypeBool.
func (b *ModuleBuilder) AddTypeBool() ObjectID {
	return b.addType(OpTypeBool)
}

// AddTypeFloat adds OpTypeFloat.
func (b *ModuleBuilder) AddTypeFloat(width uint32) ObjectID {
	return b.addType(OpTypeFloat, width)
}

// AddTypeInt adds OpTypeInt.
func (b *ModuleBuilder) AddTypeInt(width uint32, signed bool) ObjectID {
	var signedness uint32
	if signed {
		signedness = 1
	}
	return b.addType(OpTypeInt, width, signedness)
}

// AddTypeVector adds OpTypeVector.
func (b *ModuleBuilder) AddTypeVector(componentType ObjectID, count uint32) ObjectID {
	return b.addType(OpTypeVector, uint32(componentType), count)
}

// AddTypeArray adds OpTypeArray. length is a constant id.
func (b *ModuleBuilder) AddTypeArray(elementType, length ObjectID) ObjectID {
	return b.addType(OpTypeArray, uint32(elementType), uint32(length))
}

// AddTypePointer adds OpTypePointer.
func (b *ModuleBuilder) AddTypePointer(storageClass StorageClass, baseType ObjectID) ObjectID {
	return b.addType(OpTypePointer, uint32(storageClass), uint32(baseType))
}

// AddTypeFunction adds OpTypeFunction.
func (b *ModuleBuilder) AddTypeFunction(returnType ObjectID, paramTypes ...ObjectID) ObjectID {
	operands := []uint32{uint32(returnType)}
	for _, paramType := range paramTypes {
		operands = append(operands, uint32(paramType))
	}
	return b.addType(OpTypeFunction, operands...)
}

// AddTypeStruct adds OpTypeStruct.
func (b *ModuleBuilder) AddTypeStruct(memberTypes ...ObjectID) ObjectID {
	operands := make([]uint32, 0, len(memberTypes))
	for _, memberType := range memberTypes {
		operands = append(operands, uint32(memberType))
	}
	return b.addType(OpTypeStruct, operands...)
}

// AddConstant adds OpConstant.
func (b *ModuleBuilder) AddConstant(typeID ObjectID, values ...uint32) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(typeID)
	builder.AddID(id)
	for _, value := range values {
		builder.AddWord(value)
	}
	b.types = append(b.types, builder.Build(OpConstant))
	return id
}

// AddConstantFloat32 adds a 32-bit float constant.
func (b *ModuleBuilder) AddConstantFloat32(typeID ObjectID, value float32) ObjectID {
	return b.AddConstant(typeID, math.Float32bits(value))
}

// AddConstantInt32 adds a 32-bit signed integer constant.
func (b *ModuleBuilder) AddConstantInt32(typeID ObjectID, value int32) ObjectID {
	return b.AddConstant(typeID, uint32(value))
}

// AddConstantBool adds OpConstantTrue or OpConstantFalse.
func (b *ModuleBuilder) AddConstantBool(typeID ObjectID, value bool) ObjectID {
	op := OpConstantFalse
	if value {
		op = OpConstantTrue
	}
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(typeID)
	builder.AddID(id)
	b.types = append(b.types, builder.Build(op))
	return id
}

// AddConstantComposite adds OpConstantComposite.
func (b *ModuleBuilder) AddConstantComposite(typeID ObjectID, constituents ...ObjectID) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(typeID)
	builder.AddID(id)
	for _, constituent := range constituents {
		builder.AddID(constituent)
	}
	b.types = append(b.types, builder.Build(OpConstantComposite))
	return id
}

// AddVariable adds a module-scope OpVariable.
func (b *ModuleBuilder) AddVariable(pointerType ObjectID, storageClass StorageClass) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(pointerType)
	builder.AddID(id)
	builder.AddWord(uint32(storageClass))
	b.globalVars = append(b.globalVars, builder.Build(OpVariable))
	return id
}

// AddVariableWithInit adds a module-scope OpVariable with an initializer.
func (b *ModuleBuilder) AddVariableWithInit(pointerType ObjectID, storageClass StorageClass, initID ObjectID) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(pointerType)
	builder.AddID(id)
	builder.AddWord(uint32(storageClass))
	builder.AddID(initID)
	b.globalVars = append(b.globalVars, builder.Build(OpVariable))
	return id
}

// AddFunction adds a function definition.
func (b *ModuleBuilder) AddFunction(funcType, returnType ObjectID, control FunctionControl) ObjectID {
	id := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(returnType)
	builder.AddID(id)
	builder.AddWord(uint32(control))
	builder.AddID(funcType)
	b.functions = append(b.functions, builder.Build(OpFunction))
	return id
}

// AddFunctionParameter adds a function parameter.
func (b *ModuleBuilder) AddFunctionParameter(typeID ObjectID) ObjectID {
	return b.addResult(OpFunctionParameter, typeID)
}

// AddLocalVariable adds a Function storage class OpVariable to the current
// function.
func (b *ModuleBuilder) AddLocalVariable(pointerType ObjectID) ObjectID {
	return b.addResult(OpVariable, pointerType, uint32(StorageClassFunction))
}

// AddLabel adds a label.
func (b *ModuleBuilder) AddLabel() ObjectID {
	id := b.AllocID()
	b.PlaceLabel(id)
	return id
}

// PlaceLabel emits OpLabel for an id allocated earlier, which lets a
// branch name a block before the block is written.
func (b *ModuleBuilder) PlaceLabel(id ObjectID) {
	builder := NewInstructionBuilder()
	builder.AddID(id)
	b.functions = append(b.functions, builder.Build(OpLabel))
}

// AddReturn adds OpReturn.
func (b *ModuleBuilder) AddReturn() {
	b.AddInstruction(OpReturn)
}

// AddFunctionEnd adds OpFunctionEnd.
func (b *ModuleBuilder) AddFunctionEnd() {
	b.AddInstruction(OpFunctionEnd)
}

// AddInstruction appends an arbitrary instruction to the function section.
func (b *ModuleBuilder) AddInstruction(opcode OpCode, operands ...uint32) {
	b.functions = append(b.functions, RawInstruction{Opcode: opcode, Operands: operands})
}

// addResult appends a value-producing instruction and returns its id.
func (b *ModuleBuilder) addResult(opcode OpCode, resultType ObjectID, operands ...uint32) ObjectID {
	resultID := b.AllocID()
	builder := NewInstructionBuilder()
	builder.AddID(resultType)
	builder.AddID(resultID)
	for _, w := range operands {
		builder.AddWord(w)
	}
	b.functions = append(b.functions, builder.Build(opcode))
	return resultID
}

// AddBinaryOp adds a binary operation instruction.
func (b *ModuleBuilder) AddBinaryOp(opcode OpCode, resultType, left, right ObjectID) ObjectID {
	return b.addResult(opcode, resultType, uint32(left), uint32(right))
}

// AddUnaryOp adds a unary operation instruction.
func (b *ModuleBuilder) AddUnaryOp(opcode OpCode, resultType, operand ObjectID) ObjectID {
	return b.addResult(opcode, resultType, uint32(operand))
}

// AddLoad adds OpLoad.
func (b *ModuleBuilder) AddLoad(resultType, pointer ObjectID) ObjectID {
	return b.addResult(OpLoad, resultType, uint32(pointer))
}

// AddStore adds OpStore.
func (b *ModuleBuilder) AddStore(pointer, value ObjectID) {
	b.AddInstruction(OpStore, uint32(pointer), uint32(value))
}

// AddAccessChain adds OpAccessChain.
func (b *ModuleBuilder) AddAccessChain(resultType, base ObjectID, indices ...ObjectID) ObjectID {
	operands := []uint32{uint32(base)}
	for _, index := range indices {
		operands = append(operands, uint32(index))
	}
	return b.addResult(OpAccessChain, resultType, operands...)
}

// AddCompositeConstruct adds OpCompositeConstruct.
func (b *ModuleBuilder) AddCompositeConstruct(resultType ObjectID, constituents ...ObjectID) ObjectID {
	operands := make([]uint32, 0, len(constituents))
	for _, constituent := range constituents {
		operands = append(operands, uint32(constituent))
	}
	return b.addResult(OpCompositeConstruct, resultType, operands...)
}

// AddCompositeExtract adds OpCompositeExtract.
func (b *ModuleBuilder) AddCompositeExtract(resultType, composite ObjectID, indexes ...uint32) ObjectID {
	return b.addResult(OpCompositeExtract, resultType, append([]uint32{uint32(composite)}, indexes...)...)
}

// AddVectorTimesScalar adds OpVectorTimesScalar.
func (b *ModuleBuilder) AddVectorTimesScalar(resultType, vector, scalar ObjectID) ObjectID {
	return b.addResult(OpVectorTimesScalar, resultType, uint32(vector), uint32(scalar))
}

// AddSelect adds OpSelect.
func (b *ModuleBuilder) AddSelect(resultType, condition, accept, reject ObjectID) ObjectID {
	return b.addResult(OpSelect, resultType, uint32(condition), uint32(accept), uint32(reject))
}

// AddSelectionMerge adds OpSelectionMerge.
func (b *ModuleBuilder) AddSelectionMerge(mergeLabel ObjectID, control SelectionControl) {
	b.AddInstruction(OpSelectionMerge, uint32(mergeLabel), uint32(control))
}

// AddLoopMerge adds OpLoopMerge.
func (b *ModuleBuilder) AddLoopMerge(mergeLabel, continueLabel ObjectID, control LoopControl) {
	b.AddInstruction(OpLoopMerge, uint32(mergeLabel), uint32(continueLabel), uint32(control))
}

// AddBranch adds OpBranch.
func (b *ModuleBuilder) AddBranch(target ObjectID) {
	b.AddInstruction(OpBranch, uint32(target))
}

// AddBranchConditional adds OpBranchConditional.
func (b *ModuleBuilder) AddBranchConditional(condition, trueLabel, falseLabel ObjectID) {
	b.AddInstruction(OpBranchConditional, uint32(condition), uint32(trueLabel), uint32(falseLabel))
}

// AddKill adds OpKill (fragment shader discard).
func (b *ModuleBuilder) AddKill() {
	b.AddInstruction(OpKill)
}

// BuildWords generates the final module as words.
func (b *ModuleBuilder) BuildWords() []uint32 {
	words := []uint32{MagicNumber, versionToWord(b.version), b.generator, b.nextID, b.schema}

	sections := [][]RawInstruction{b.capabilities, b.extensions, b.extInstImports}
	if b.memoryModel != nil {
		sections = append(sections, []RawInstruction{*b.memoryModel})
	}
	sections = append(sections,
		b.entryPoints, b.executionModes, b.debugNames, b.annotations,
		b.types, b.globalVars, b.functions)

	for _, section := range sections {
		for _, inst := range section {
			words = append(words, inst.Encode()...)
		}
	}
	return words
}

// Build generates the final SPIR-V binary.
func (b *ModuleBuilder) Build() []byte {
	return BytesFromWords(b.BuildWords())
}

// versionToWord converts Version to SPIR-V word format.
func versionToWord(v Version) uint32 {
	return (uint32(v.Major) << 16) | (uint32(v.Minor) << 8)
}
