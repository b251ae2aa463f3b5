package interp

import (
	"fmt"
)

// ArrayVariable is a run of lanes in scratch memory.
type ArrayVariable struct {
	Region Region
	// Stride is the byte distance between elements.
	Stride uint32
	// ElementStride is the stride of the array produced by indexing one
	// element.
	ElementStride uint32
}

// Len returns the number of elements.
func (a ArrayVariable) Len() uint32 {
	if a.Stride == 0 {
		return 0
	}
	return a.Region.Size / a.Stride
}

// lane returns the address of element i, broadcasting single-element
// arrays.
func (a ArrayVariable) lane(i uint32) uint32 {
	if a.Len() <= 1 {
		return a.Region.Address
	}
	return a.Region.Address + i*a.Stride
}

// element returns the sub-array for element i.
func (a ArrayVariable) element(i uint32) (ArrayVariable, error) {
	if i >= a.Len() {
		return ArrayVariable{}, fatalf("index %d out of range for %d elements", i, a.Len())
	}
	return ArrayVariable{
		Region:        Region{Address: a.Region.Address + i*a.Stride, Size: a.Stride},
		Stride:        a.ElementStride,
		ElementStride: laneSize,
	}, nil
}

// StructVariable groups the handles of its members.
type StructVariable struct {
	Members []Handle
}

// PointerVariable names the array or struct it targets. A pointer never
// targets another pointer.
type PointerVariable struct {
	Target Handle
}

// HandleKind selects the table a Handle indexes.
type HandleKind uint8

const (
	HandleArray HandleKind = iota
	HandleStruct
	HandlePointer
)

func (k HandleKind) String() string {
	switch k {
	case HandleArray:
		return "array"
	case HandleStruct:
		return "struct"
	case HandlePointer:
		return "pointer"
	}
	return fmt.Sprintf("HandleKind(%d)", uint8(k))
}

// Handle is a typed index into one of the variable tables.
type Handle struct {
	Kind  HandleKind
	Index uint32
}

// variables holds the three variable tables of a Machine.
type variables struct {
	arrays   []ArrayVariable
	structs  []StructVariable
	pointers []PointerVariable
}

func (v *variables) addArray(a ArrayVariable) Handle {
	v.arrays = append(v.arrays, a)
	return Handle{Kind: HandleArray, Index: uint32(len(v.arrays) - 1)}
}

func (v *variables) addStruct(s StructVariable) Handle {
	v.structs = append(v.structs, s)
	return Handle{Kind: HandleStruct, Index: uint32(len(v.structs) - 1)}
}

func (v *variables) addPointer(p PointerVariable) Handle {
	v.pointers = append(v.pointers, p)
	return Handle{Kind: HandlePointer, Index: uint32(len(v.pointers) - 1)}
}

func (v *variables) array(h Handle) (ArrayVariable, error) {
	if h.Kind != HandleArray {
		return ArrayVariable{}, fatalf("%s variable used as an array", h.Kind)
	}
	return v.arrays[h.Index], nil
}

func (v *variables) pointer(h Handle) (*PointerVariable, error) {
	if h.Kind != HandlePointer {
		return nil, fatalf("%s variable used as a pointer", h.Kind)
	}
	return &v.pointers[h.Index], nil
}
