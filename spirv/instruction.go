package spirv

// Instruction is the closed set of function-body instructions the parser
// accepts. Ids are unwrapped into ObjectID.
type Instruction interface {
	instruction()
}

// ResultInstruction is an instruction that defines a result id.
type ResultInstruction interface {
	Instruction
	// ResultID returns the id the instruction defines.
	ResultID() ObjectID
	// ResultTypeID returns the id of the result type.
	ResultTypeID() ObjectID
}

// Result holds the result type and id shared by value-producing
// instructions.
type Result struct {
	Type ObjectID
	ID   ObjectID
}

// ResultID implements ResultInstruction.
func (r Result) ResultID() ObjectID { return r.ID }

// ResultTypeID implements ResultInstruction.
func (r Result) ResultTypeID() ObjectID { return r.Type }

// Label is OpLabel; it starts a block.
type Label struct {
	ID ObjectID
}

// LocalVariable is a function-scope OpVariable.
type LocalVariable struct {
	Result
	StorageClass StorageClass
	Initializer  ObjectID
}

// Load is OpLoad.
type Load struct {
	Result
	Pointer ObjectID
}

// Store is OpStore.
type Store struct {
	Pointer ObjectID
	Object  ObjectID
}

// AccessChain is OpAccessChain or OpInBoundsAccessChain.
type AccessChain struct {
	Result
	Base    ObjectID
	Indexes []ObjectID
}

// CompositeExtract is OpCompositeExtract with literal indexes.
type CompositeExtract struct {
	Result
	Composite ObjectID
	Indexes   []uint32
}

// CompositeConstruct is OpCompositeConstruct.
type CompositeConstruct struct {
	Result
	Constituents []ObjectID
}

// VectorTimesScalar is OpVectorTimesScalar.
type VectorTimesScalar struct {
	Result
	Vector ObjectID
	Scalar ObjectID
}

// Binary is a two-operand arithmetic, bitwise or comparison instruction.
type Binary struct {
	Result
	Op    OpCode
	Left  ObjectID
	Right ObjectID
}

// Convert is a numeric conversion instruction.
type Convert struct {
	Result
	Op      OpCode
	Operand ObjectID
}

// Select is OpSelect.
type Select struct {
	Result
	Condition ObjectID
	Accept    ObjectID
	Reject    ObjectID
}

// SelectionMerge is OpSelectionMerge.
type SelectionMerge struct {
	Merge   ObjectID
	Control SelectionControl
}

// LoopMerge is OpLoopMerge.
type LoopMerge struct {
	Merge    ObjectID
	Continue ObjectID
	Control  LoopControl
}

// Branch is OpBranch.
type Branch struct {
	Target ObjectID
}

// BranchConditional is OpBranchConditional.
type BranchConditional struct {
	Condition ObjectID
	True      ObjectID
	False     ObjectID
}

// Return is OpReturn.
type Return struct{}

// Kill is OpKill.
type Kill struct{}

func (*Label) instruction()              {}
func (*LocalVariable) instruction()      {}
func (*Load) instruction()               {}
func (*Store) instruction()              {}
func (*AccessChain) instruction()        {}
func (*CompositeExtract) instruction()   {}
func (*CompositeConstruct) instruction() {}
func (*VectorTimesScalar) instruction()  {}
func (*Binary) instruction()             {}
func (*Convert) instruction()            {}
func (*Select) instruction()             {}
func (*SelectionMerge) instruction()     {}
func (*LoopMerge) instruction()          {}
func (*Branch) instruction()             {}
func (*BranchConditional) instruction()  {}
func (*Return) instruction()             {}
func (*Kill) instruction()               {}

// binaryOps lists the opcodes decoded into Binary.
var binaryOps = map[OpCode]bool{
	OpIAdd: true, OpISub: true, OpIMul: true,
	OpFAdd: true, OpFSub: true, OpFMul: true, OpFDiv: true,
	OpSDiv: true, OpUDiv: true, OpSMod: true, OpSRem: true, OpUMod: true,
	OpBitwiseAnd: true, OpBitwiseOr: true, OpBitwiseXor: true,
	OpShiftLeftLogical: true, OpShiftRightLogical: true,
	OpIEqual: true, OpULessThan: true, OpSLessThan: true, OpFOrdLessThan: true,
}

// convertOps lists the opcodes decoded into Convert.
var convertOps = map[OpCode]bool{
	OpConvertSToF: true, OpConvertFToU: true, OpConvertFToS: true, OpConvertUToF: true,
}
