package il

import (
	"fmt"
)

// ValidationError represents a validation error.
type ValidationError struct {
	Message string
	// Index is the position of the offending instruction, or -1.
	Index int
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("instruction %d: %s", e.Index, e.Message)
	}
	return e.Message
}

// Validate checks the structural rules of a program:
//   - every variable is declared once, before any instruction uses it
//   - constant and pointer declarations keep their section order
//   - pointer operands are pointers and lane operands are scalar kinds
//   - labels are unique and every branch or merge target exists
//
// Validate returns nil for a valid program.
func Validate(prog []Instruction) []ValidationError {
	v := &validator{
		prog:     prog,
		declared: make(map[Variable]Decl, len(prog)/2),
		labels:   make(map[LabelID]int),
	}
	v.collectLabels()
	v.checkPrefix()
	for i, inst := range prog {
		v.index = i
		v.checkInstruction(inst)
	}
	return v.errors
}

type validator struct {
	prog     []Instruction
	declared map[Variable]Decl
	labels   map[LabelID]int
	index    int
	errors   []ValidationError
}

func (v *validator) addError(format string, args ...interface{}) {
	v.errors = append(v.errors, ValidationError{
		Message: fmt.Sprintf(format, args...),
		Index:   v.index,
	})
}

func (v *validator) collectLabels() {
	for i, inst := range v.prog {
		l, ok := inst.(Label)
		if !ok {
			continue
		}
		if prev, dup := v.labels[l.ID]; dup {
			v.index = i
			v.addError("label %d already placed at instruction %d", l.ID, prev)
			continue
		}
		v.labels[l.ID] = i
	}
}

// section orders the declaration prefix of a program.
type section uint8

const (
	sectionScalars section = iota
	sectionComposites
	sectionPointers
)

var sectionNames = [...]string{"scalar constant", "composite constant", "global pointer"}

// checkPrefix verifies the declaration prefix: scalar constants, then
// composite constants, then global pointers. The prefix ends at the first
// instruction that is not a declaration or an initializing store.
func (v *validator) checkPrefix() {
	current := sectionScalars
	enter := func(i int, s section) {
		if s < current {
			v.index = i
			v.addError("%s declared after %s section", sectionNames[s], sectionNames[current])
			return
		}
		current = s
	}
	for i, inst := range v.prog {
		switch inst := inst.(type) {
		case VariableDecl:
			if inst.Decl.Kind == KindPointer {
				enter(i, sectionPointers)
			}
		case StoreImm32:
			enter(i, sectionScalars)
		case StoreImm32Array:
			enter(i, sectionComposites)
		case StoreVariable:
		default:
			return
		}
	}
}

func (v *validator) checkInstruction(inst Instruction) {
	switch inst := inst.(type) {
	case Label:
	case VariableDecl:
		if _, dup := v.declared[inst.ID]; dup {
			v.addError("variable %d declared twice", inst.ID)
		}
		v.declared[inst.ID] = inst.Decl

	case StoreImm32:
		v.use(inst.Dst)
	case StoreImm32Array:
		v.use(inst.Dst)
	case LoadVariableOffset:
		v.useKind(inst.ID, KindPointer)
		v.useKind(inst.Base, KindPointer)
		for _, off := range inst.Offsets {
			v.useLanes(off)
		}
	case LoadVariableImmOffset:
		v.use(inst.ID)
		v.use(inst.Base)
	case StoreVariable:
		v.useKind(inst.DstPointer, KindPointer)
		v.use(inst.Src)
	case StoreVariableArray:
		v.use(inst.Dst)
		for _, val := range inst.Values {
			v.use(val)
		}
	case LoadVariable:
		v.use(inst.ID)
		v.useKind(inst.SrcPointer, KindPointer)
	case MathMulVectorScalar:
		v.useLanes(inst.ID)
		v.useKind(inst.Vector, KindF32)
		v.useKind(inst.Scalar, KindF32)
	case Math:
		v.useLanes(inst.ID)
		v.useLanes(inst.Op1)
		v.useLanes(inst.Op2)
	case Convert:
		v.useLanes(inst.ID)
		v.useLanes(inst.Src)
	case Select:
		v.useLanes(inst.ID)
		v.useLanes(inst.Condition)
		v.useLanes(inst.Accept)
		v.useLanes(inst.Reject)

	case SelectionMerge:
		v.target(inst.Merge)
	case LoopMerge:
		v.target(inst.Merge)
		v.target(inst.Continue)
	case Branch:
		v.target(inst.Target)
	case BranchConditional:
		v.useLanes(inst.Condition)
		v.target(inst.True)
		v.target(inst.False)
	case Return, Kill:
	default:
		v.addError("unknown instruction %T", inst)
	}
}

func (v *validator) use(id Variable) (Decl, bool) {
	d, ok := v.declared[id]
	if !ok {
		v.addError("variable %d used before declaration", id)
	}
	return d, ok
}

func (v *validator) useKind(id Variable, kind Kind) {
	if d, ok := v.use(id); ok && d.Kind != kind {
		v.addError("variable %d is %s, want %s", id, d.Kind, kind)
	}
}

func (v *validator) useLanes(id Variable) {
	if d, ok := v.use(id); ok && !d.Kind.IsScalar() {
		v.addError("variable %d is %s, want a scalar or vector", id, d.Kind)
	}
}

func (v *validator) target(id LabelID) {
	if _, ok := v.labels[id]; !ok {
		v.addError("label %d is never placed", id)
	}
}
