package spirv

// ObjectID is the numeric id the binary assigns to a type, constant,
// variable, label or instruction result.
type ObjectID uint32

// Module is a decoded shader module with a single entry point.
// A Module is immutable once Parse returns and may be shared freely.
type Module struct {
	// Name is the name the module was compiled under.
	Name string

	// Header holds the binary header fields.
	Header Header

	// Capabilities lists the declared capabilities in source order.
	Capabilities []Capability

	// EntryPoint is the only entry point of the module.
	EntryPoint EntryPoint

	// Objects maps global ids to their types, constants and variables.
	Objects map[ObjectID]Object

	// Order lists the keys of Objects in declaration order.
	Order []ObjectID

	// Functions maps function ids to their flattened bodies.
	Functions map[ObjectID]*Function
}

// Header is the five-word SPIR-V module header.
type Header struct {
	Version   Version
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// EntryPoint describes the shader stage entry.
type EntryPoint struct {
	Model     ExecutionModel
	Function  ObjectID
	Name      string
	Interface []ObjectID
	Modes     []ExecutionModeDecl
}

// ExecutionModeDecl is a recorded OpExecutionMode.
type ExecutionModeDecl struct {
	Mode     ExecutionMode
	Literals []uint32
}

// Function is a function definition with its blocks flattened into one
// instruction list: each block contributes its label followed by its body.
type Function struct {
	ID           ObjectID
	ResultType   ObjectID
	FunctionType ObjectID
	Body         []Instruction
}

// EntryFunction returns the function named by the entry point.
func (m *Module) EntryFunction() *Function {
	return m.Functions[m.EntryPoint.Function]
}

// Type returns the type with the given id, or nil.
func (m *Module) Type(id ObjectID) Type {
	t, _ := m.Objects[id].(Type)
	return t
}

// Object is a module-scope declaration: a Type, a Constant or a *Variable.
type Object interface {
	object()
}

// Type is the sealed set of type declarations.
type Type interface {
	Object
	typeDecl()
}

// TypeVoid is OpTypeVoid.
type TypeVoid struct{}

// TypeBool is OpTypeBool.
type TypeBool struct{}

// TypeInt is OpTypeInt. Width is always 32.
type TypeInt struct {
	Width  uint32
	Signed bool
}

// TypeFloat is OpTypeFloat. Width is always 32.
type TypeFloat struct {
	Width uint32
}

// TypeVector is OpTypeVector.
type TypeVector struct {
	Component ObjectID
	Count     uint32
}

// TypeArray is OpTypeArray. Length names an integer constant.
type TypeArray struct {
	Element     ObjectID
	Length      ObjectID
	Decorations Decorations
}

// TypeStruct is OpTypeStruct with per-member decorations.
type TypeStruct struct {
	Members           []ObjectID
	MemberDecorations []Decorations
	Decorations       Decorations
}

// TypePointer is OpTypePointer.
type TypePointer struct {
	StorageClass StorageClass
	Pointee      ObjectID
}

// TypeFunction is OpTypeFunction.
type TypeFunction struct {
	Return ObjectID
	Params []ObjectID
}

func (*TypeVoid) object()     {}
func (*TypeBool) object()     {}
func (*TypeInt) object()      {}
func (*TypeFloat) object()    {}
func (*TypeVector) object()   {}
func (*TypeArray) object()    {}
func (*TypeStruct) object()   {}
func (*TypePointer) object()  {}
func (*TypeFunction) object() {}

func (*TypeVoid) typeDecl()     {}
func (*TypeBool) typeDecl()     {}
func (*TypeInt) typeDecl()      {}
func (*TypeFloat) typeDecl()    {}
func (*TypeVector) typeDecl()   {}
func (*TypeArray) typeDecl()    {}
func (*TypeStruct) typeDecl()   {}
func (*TypePointer) typeDecl()  {}
func (*TypeFunction) typeDecl() {}

// Constant is the sealed set of constant declarations.
type Constant interface {
	Object
	constantDecl()
	// TypeID returns the id of the constant's type.
	TypeID() ObjectID
}

// ConstantScalar is OpConstant, OpConstantTrue or OpConstantFalse.
// Floats keep their bit pattern; booleans are 1 or 0.
type ConstantScalar struct {
	Type  ObjectID
	Value uint32
}

// ConstantComposite is OpConstantComposite.
type ConstantComposite struct {
	Type         ObjectID
	Constituents []ObjectID
}

func (*ConstantScalar) object()          {}
func (*ConstantComposite) object()       {}
func (*ConstantScalar) constantDecl()    {}
func (*ConstantComposite) constantDecl() {}

// TypeID implements Constant.
func (c *ConstantScalar) TypeID() ObjectID { return c.Type }

// TypeID implements Constant.
func (c *ConstantComposite) TypeID() ObjectID { return c.Type }

// Variable is a module-scope OpVariable: a pointer to a memory object.
type Variable struct {
	// Type is the pointer type id.
	Type ObjectID
	// Pointee is the id of the pointed-to type.
	Pointee      ObjectID
	StorageClass StorageClass
	// Initializer names a constant, or is zero.
	Initializer ObjectID
	Decorations Decorations
}

func (*Variable) object() {}

// Decorations collects the decorations applied to a type, struct member
// or variable.
type Decorations struct {
	BuiltIn          *BuiltIn
	Location         *uint32
	Offset           *uint32
	ArrayStride      *uint32
	DescriptorSet    *uint32
	Binding          *uint32
	Block            bool
	RelaxedPrecision bool
}

// IsZero reports whether no decoration has been recorded.
func (d *Decorations) IsZero() bool {
	return d.BuiltIn == nil && d.Location == nil && d.Offset == nil &&
		d.ArrayStride == nil && d.DescriptorSet == nil && d.Binding == nil &&
		!d.Block && !d.RelaxedPrecision
}
