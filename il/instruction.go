package il

import "fmt"

// Instruction is the closed set of IL instructions.
type Instruction interface {
	instruction()
}

// Label marks the following instruction as a branch target.
type Label struct {
	ID LabelID
}

// VariableDecl binds ID to fresh storage described by Decl.
type VariableDecl struct {
	ID   Variable
	Decl Decl
}

// StoreImm32 writes one word to offset 0 of Dst.
type StoreImm32 struct {
	Dst Variable
	Imm uint32
}

// StoreImm32Array writes Imm[i] to byte offset 4*i of Dst.
type StoreImm32Array struct {
	Dst Variable
	Imm []uint32
}

// LoadVariableOffset points the pointer ID at Base walked through
// Offsets. Each offset names a variable holding a u32 index.
type LoadVariableOffset struct {
	ID      Variable
	Base    Variable
	Offsets []Variable
}

// LoadVariableImmOffset copies component Offset of the composite Base
// into ID.
type LoadVariableImmOffset struct {
	ID     Variable
	Base   Variable
	Offset uint32
}

// StoreVariable copies the value Src into the storage targeted by the
// pointer DstPointer.
type StoreVariable struct {
	DstPointer Variable
	Src        Variable
}

// StoreVariableArray concatenates Values into Dst.
type StoreVariableArray struct {
	Dst    Variable
	Values []Variable
}

// LoadVariable copies the storage targeted by SrcPointer into ID.
type LoadVariable struct {
	ID         Variable
	SrcPointer Variable
}

// MathMulVectorScalar multiplies each f32 lane of Vector by Scalar.
type MathMulVectorScalar struct {
	ID     Variable
	Vector Variable
	Scalar Variable
}

// Math applies Op lane by lane to Op1 and Op2. A single-lane operand is
// broadcast against a vector operand.
type Math struct {
	Op  MathOp
	ID  Variable
	Op1 Variable
	Op2 Variable
}

// Convert applies the numeric conversion Op lane by lane.
type Convert struct {
	Op  ConvertOp
	ID  Variable
	Src Variable
}

// Select picks Accept or Reject lane by lane on Condition.
type Select struct {
	ID        Variable
	Condition Variable
	Accept    Variable
	Reject    Variable
}

// SelectionMerge declares the merge block of a selection. It does not
// change control flow.
type SelectionMerge struct {
	Merge LabelID
}

// LoopMerge declares the merge and continue blocks of a loop. It does not
// change control flow.
type LoopMerge struct {
	Merge    LabelID
	Continue LabelID
}

// Branch jumps to Target.
type Branch struct {
	Target LabelID
}

// BranchConditional jumps to True when Condition is non-zero and to False
// otherwise.
type BranchConditional struct {
	Condition Variable
	True      LabelID
	False     LabelID
}

// Return ends the invocation.
type Return struct{}

// Kill ends the invocation and discards the fragment.
type Kill struct{}

func (Label) instruction()                 {}
func (VariableDecl) instruction()          {}
func (StoreImm32) instruction()            {}
func (StoreImm32Array) instruction()       {}
func (LoadVariableOffset) instruction()    {}
func (LoadVariableImmOffset) instruction() {}
func (StoreVariable) instruction()         {}
func (StoreVariableArray) instruction()    {}
func (LoadVariable) instruction()          {}
func (MathMulVectorScalar) instruction()   {}
func (Math) instruction()                  {}
func (Convert) instruction()               {}
func (Select) instruction()                {}
func (SelectionMerge) instruction()        {}
func (LoopMerge) instruction()             {}
func (Branch) instruction()                {}
func (BranchConditional) instruction()     {}
func (Return) instruction()                {}
func (Kill) instruction()                  {}

// MathOp selects the lane operation of a Math instruction.
type MathOp uint8

const (
	MathAddI32I32 MathOp = iota
	MathAddF32F32
	MathSubI32I32
	MathSubF32F32
	MathMulI32I32
	MathMulF32F32
	MathDivF32F32
	MathDivI32I32
	MathDivU32U32
	// MathModI32I32 takes the sign of the divisor.
	MathModI32I32
	MathModU32U32
	// MathRemI32I32 takes the sign of the dividend.
	MathRemI32I32
	MathBitAnd
	MathBitOr
	MathBitXor
	MathBitShiftLeft
	MathBitShiftRight
	MathEqualI32I32
	MathLessThanU32U32
	MathLessThanI32I32
	MathLessThanF32F32
)

var mathOpNames = [...]string{
	MathAddI32I32:      "MathAddI32I32",
	MathAddF32F32:      "MathAddF32F32",
	MathSubI32I32:      "MathSubI32I32",
	MathSubF32F32:      "MathSubF32F32",
	MathMulI32I32:      "MathMulI32I32",
	MathMulF32F32:      "MathMulF32F32",
	MathDivF32F32:      "MathDivF32F32",
	MathDivI32I32:      "MathDivI32I32",
	MathDivU32U32:      "MathDivU32U32",
	MathModI32I32:      "MathModI32I32",
	MathModU32U32:      "MathModU32U32",
	MathRemI32I32:      "MathRemI32I32",
	MathBitAnd:         "MathBitAnd",
	MathBitOr:          "MathBitOr",
	MathBitXor:         "MathBitXor",
	MathBitShiftLeft:   "MathBitShiftLeft",
	MathBitShiftRight:  "MathBitShiftRight",
	MathEqualI32I32:    "MathEqualI32I32",
	MathLessThanU32U32: "MathLessThanU32U32",
	MathLessThanI32I32: "MathLessThanI32I32",
	MathLessThanF32F32: "MathLessThanF32F32",
}

func (op MathOp) String() string {
	if int(op) < len(mathOpNames) {
		return mathOpNames[op]
	}
	return fmt.Sprintf("MathOp(%d)", uint8(op))
}

// IsComparison reports whether op produces 0/1 lanes.
func (op MathOp) IsComparison() bool {
	return op >= MathEqualI32I32
}

// ConvertOp selects the conversion of a Convert instruction. Names read
// source kind first.
type ConvertOp uint8

const (
	// MathConvertI32F32 converts signed integers to floats.
	MathConvertI32F32 ConvertOp = iota
	// MathConvertU32F32 converts unsigned integers to floats.
	MathConvertU32F32
	// MathConvertF32U32 truncates floats toward zero into unsigned
	// integers, clamping to the representable range.
	MathConvertF32U32
	// MathConvertF32I32 truncates floats toward zero into signed integers.
	MathConvertF32I32
)

var convertOpNames = [...]string{
	MathConvertI32F32: "MathConvertI32F32",
	MathConvertU32F32: "MathConvertU32F32",
	MathConvertF32U32: "MathConvertF32U32",
	MathConvertF32I32: "MathConvertF32I32",
}

func (op ConvertOp) String() string {
	if int(op) < len(convertOpNames) {
		return convertOpNames[op]
	}
	return fmt.Sprintf("ConvertOp(%d)", uint8(op))
}
