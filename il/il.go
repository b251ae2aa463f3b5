package il

import (
	"fmt"
)

// Variable is an IL variable handle. Variables translated from the module
// reuse the originating object id; temporaries take ids above the module
// bound.
type Variable uint32

// LabelID names a block entry point.
type LabelID uint32

// Kind is the scalar or composite kind of a variable.
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindF32
	KindU32
	KindI32
	KindArray
	KindStruct
	KindPointer
)

var kindNames = [...]string{
	KindVoid:    "void",
	KindBool:    "bool",
	KindF32:     "f32",
	KindU32:     "u32",
	KindI32:     "i32",
	KindArray:   "array",
	KindStruct:  "struct",
	KindPointer: "ptr",
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsScalar reports whether k is a 32-bit lane kind.
func (k Kind) IsScalar() bool {
	switch k {
	case KindBool, KindF32, KindU32, KindI32:
		return true
	}
	return false
}

// Builtin is a pipeline built-in slot.
type Builtin uint8

const (
	BuiltinPosition Builtin = iota
	BuiltinPointSize
	BuiltinVertexIndex
	BuiltinFragCoord
	BuiltinClipDistance
	BuiltinCullDistance
)

var builtinNames = [...]string{
	BuiltinPosition:     "Position",
	BuiltinPointSize:    "PointSize",
	BuiltinVertexIndex:  "VertexIndex",
	BuiltinFragCoord:    "FragCoord",
	BuiltinClipDistance: "ClipDistance",
	BuiltinCullDistance: "CullDistance",
}

func (b Builtin) String() string {
	if int(b) < len(builtinNames) {
		return builtinNames[b]
	}
	return fmt.Sprintf("Builtin(%d)", uint8(b))
}

// Decl describes the storage of a variable.
//
// For scalar kinds ComponentCount is the number of lanes (1 for scalars,
// 2-4 for vectors). For arrays it is the element count, for structs the
// member count, and for pointers 1.
type Decl struct {
	Kind           Kind
	ComponentCount uint32
	Backing        Backing
}

// Backing selects where a declaration's storage lives.
type Backing interface {
	backing()
}

// BackingMemory is freshly allocated scratch memory with a lane stride of
// four bytes.
type BackingMemory struct{}

func (BackingMemory) backing() {}

// BackingLocation is a numbered stage interface slot. Inputs and outputs
// are separate tables.
type BackingLocation struct {
	Location uint32
	Output   bool
}

func (BackingLocation) backing() {}

// BackingBuiltin is a built-in stage slot.
type BackingBuiltin struct {
	Builtin Builtin
}

func (BackingBuiltin) backing() {}

// BackingArray is an array of Element with Stride bytes between elements.
type BackingArray struct {
	Element *Decl
	Stride  uint32
}

func (BackingArray) backing() {}

// BackingStruct is a struct whose members are declared independently.
type BackingStruct struct {
	Members []Decl
}

func (BackingStruct) backing() {}

// BackingPointer is a pointer whose initial target is a fresh variable
// declared by Pointee.
type BackingPointer struct {
	Pointee *Decl
}

func (BackingPointer) backing() {}

// ByteSize returns the number of bytes a memory-backed declaration
// occupies.
func (d Decl) ByteSize() uint32 {
	switch d.Kind {
	case KindVoid, KindPointer:
		return 0
	case KindArray:
		if arr, ok := d.Backing.(BackingArray); ok {
			return arr.Stride * d.ComponentCount
		}
	case KindStruct:
		var size uint32
		if st, ok := d.Backing.(BackingStruct); ok {
			for _, m := range st.Members {
				size += m.ByteSize()
			}
		}
		return size
	}
	return 4 * d.ComponentCount
}

// String renders the declaration the way Format prints it.
func (d Decl) String() string {
	var backing string
	switch b := d.Backing.(type) {
	case BackingMemory:
		backing = "memory"
	case BackingLocation:
		dir := "in"
		if b.Output {
			dir = "out"
		}
		backing = fmt.Sprintf("location(%s %d)", dir, b.Location)
	case BackingBuiltin:
		backing = "builtin(" + b.Builtin.String() + ")"
	case BackingArray:
		backing = fmt.Sprintf("array(%s, stride %d)", b.Element, b.Stride)
	case BackingStruct:
		backing = "struct{"
		for i, m := range b.Members {
			if i > 0 {
				backing += ", "
			}
			backing += m.String()
		}
		backing += "}"
	case BackingPointer:
		backing = "ptr(" + b.Pointee.String() + ")"
	default:
		backing = "?"
	}
	return fmt.Sprintf("%s x%d %s", d.Kind, d.ComponentCount, backing)
}
