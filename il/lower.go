package il

import (
	"fmt"

	"github.com/szx/vkswr/spirv"
)

// Lower translates a parsed module into an IL program.
//
// The program declares scalar constants, then composite constants, then
// global pointers, and then lists the entry function body in source order.
// Lower does not modify m and returns the same program for the same module.
func Lower(m *spirv.Module) ([]Instruction, error) {
	fn := m.EntryFunction()
	if fn == nil {
		return nil, &spirv.Error{
			Kind:    spirv.ErrEntryPointMissing,
			Module:  m.Name,
			Offset:  -1,
			Message: fmt.Sprintf("entry point %q names no function", m.EntryPoint.Name),
		}
	}

	l := &lowerer{
		module:     m,
		fn:         fn,
		decls:      make(map[spirv.ObjectID]Decl, len(m.Order)),
		valueTypes: make(map[spirv.ObjectID]spirv.ObjectID, len(m.Order)+len(fn.Body)),
		chains:     make(map[spirv.ObjectID]accessChain),
		out:        make([]Instruction, 0, 2*(len(m.Order)+len(fn.Body))),
	}
	l.nextTemp = l.firstTemp()

	if err := l.lowerScalarConstants(); err != nil {
		return nil, l.wrap(err)
	}
	if err := l.lowerCompositeConstants(); err != nil {
		return nil, l.wrap(err)
	}
	if err := l.lowerGlobals(); err != nil {
		return nil, l.wrap(err)
	}
	for _, inst := range fn.Body {
		if err := l.lowerInstruction(inst); err != nil {
			return nil, l.wrap(err)
		}
	}
	return l.out, nil
}

// accessChain is a flattened pointer derivation: Root walked through
// Offsets.
type accessChain struct {
	root    Variable
	offsets []Variable
}

type lowerer struct {
	module *spirv.Module
	fn     *spirv.Function

	// decls caches declarations by type id.
	decls map[spirv.ObjectID]Decl

	// valueTypes maps constants and body results to their type ids.
	valueTypes map[spirv.ObjectID]spirv.ObjectID

	// chains records every AccessChain result.
	chains map[spirv.ObjectID]accessChain

	nextTemp Variable
	out      []Instruction
}

func (l *lowerer) emit(insts ...Instruction) {
	l.out = append(l.out, insts...)
}

// wrap stamps the module name onto lowering errors.
func (l *lowerer) wrap(err error) error {
	if e, ok := err.(*spirv.Error); ok && e.Module == "" {
		e.Module = l.module.Name
	}
	return err
}

// firstTemp returns the lowest id no module object or result uses.
func (l *lowerer) firstTemp() Variable {
	next := l.module.Header.Bound
	bump := func(id spirv.ObjectID) {
		if uint32(id) >= next {
			next = uint32(id) + 1
		}
	}
	for _, id := range l.module.Order {
		bump(id)
	}
	for _, inst := range l.fn.Body {
		switch inst := inst.(type) {
		case spirv.ResultInstruction:
			bump(inst.ResultID())
		case *spirv.Label:
			bump(inst.ID)
		}
	}
	return Variable(next)
}

func (l *lowerer) temp() Variable {
	v := l.nextTemp
	l.nextTemp++
	return v
}

func (l *lowerer) lowerScalarConstants() error {
	for _, id := range l.module.Order {
		c, ok := l.module.Objects[id].(*spirv.ConstantScalar)
		if !ok {
			continue
		}
		decl, err := l.declForType(c.Type)
		if err != nil {
			return err
		}
		if !decl.Kind.IsScalar() || decl.ComponentCount != 1 {
			return spirv.NewError(spirv.ErrStructuralViolation, "constant %%%d has non-scalar type %%%d", id, c.Type)
		}
		l.valueTypes[id] = c.Type
		l.emit(
			VariableDecl{ID: Variable(id), Decl: decl},
			StoreImm32{Dst: Variable(id), Imm: c.Value},
		)
	}
	return nil
}

func (l *lowerer) lowerCompositeConstants() error {
	for _, id := range l.module.Order {
		c, ok := l.module.Objects[id].(*spirv.ConstantComposite)
		if !ok {
			continue
		}
		if _, isStruct := l.module.Objects[c.Type].(*spirv.TypeStruct); isStruct {
			return spirv.NewError(spirv.ErrUnsupportedFeature, "struct constant %%%d", id)
		}
		decl, err := l.declForType(c.Type)
		if err != nil {
			return err
		}
		imm := make([]uint32, len(c.Constituents))
		for i, part := range c.Constituents {
			scalar, ok := l.module.Objects[part].(*spirv.ConstantScalar)
			if !ok {
				return spirv.NewError(spirv.ErrUnsupportedFeature,
					"composite constant %%%d: constituent %%%d is not a scalar constant", id, part)
			}
			imm[i] = scalar.Value
		}
		l.valueTypes[id] = c.Type
		l.emit(
			VariableDecl{ID: Variable(id), Decl: decl},
			StoreImm32Array{Dst: Variable(id), Imm: imm},
		)
	}
	return nil
}

func (l *lowerer) lowerGlobals() error {
	for _, id := range l.module.Order {
		v, ok := l.module.Objects[id].(*spirv.Variable)
		if !ok {
			continue
		}
		pointee, err := l.declForType(v.Pointee)
		if err != nil {
			return err
		}
		switch {
		case v.Decorations.BuiltIn != nil:
			b, err := builtinFor(*v.Decorations.BuiltIn)
			if err != nil {
				return err
			}
			pointee.Backing = BackingBuiltin{Builtin: b}
		case v.Decorations.Location != nil:
			pointee.Backing = BackingLocation{
				Location: *v.Decorations.Location,
				Output:   v.StorageClass == spirv.StorageClassOutput,
			}
		}
		l.emit(VariableDecl{ID: Variable(id), Decl: Decl{
			Kind:           KindPointer,
			ComponentCount: 1,
			Backing:        BackingPointer{Pointee: &pointee},
		}})
		if v.Initializer != 0 {
			l.emit(StoreVariable{DstPointer: Variable(id), Src: Variable(v.Initializer)})
		}
	}
	return nil
}

// declForType derives the declaration of a value of the given type.
func (l *lowerer) declForType(id spirv.ObjectID) (Decl, error) {
	if d, ok := l.decls[id]; ok {
		return d, nil
	}
	d, err := l.buildDecl(id)
	if err != nil {
		return Decl{}, err
	}
	l.decls[id] = d
	return d, nil
}

func (l *lowerer) buildDecl(id spirv.ObjectID) (Decl, error) {
	switch t := l.module.Type(id).(type) {
	case *spirv.TypeVoid:
		return Decl{Kind: KindVoid, Backing: BackingMemory{}}, nil
	case *spirv.TypeBool:
		return Decl{Kind: KindBool, ComponentCount: 1, Backing: BackingMemory{}}, nil
	case *spirv.TypeFloat:
		return Decl{Kind: KindF32, ComponentCount: 1, Backing: BackingMemory{}}, nil
	case *spirv.TypeInt:
		if t.Signed {
			return Decl{Kind: KindI32, ComponentCount: 1, Backing: BackingMemory{}}, nil
		}
		return Decl{Kind: KindU32, ComponentCount: 1, Backing: BackingMemory{}}, nil

	case *spirv.TypeVector:
		elem, err := l.declForType(t.Component)
		if err != nil {
			return Decl{}, err
		}
		if !elem.Kind.IsScalar() || elem.ComponentCount != 1 {
			return Decl{}, spirv.NewError(spirv.ErrUnsupportedFeature, "vector %%%d of non-scalar %%%d", id, t.Component)
		}
		return Decl{Kind: elem.Kind, ComponentCount: t.Count, Backing: elem.Backing}, nil

	case *spirv.TypeArray:
		elem, err := l.declForType(t.Element)
		if err != nil {
			return Decl{}, err
		}
		if elem.Kind == KindStruct {
			return Decl{}, spirv.NewError(spirv.ErrUnsupportedFeature, "array %%%d of structs", id)
		}
		length, err := l.module.ArrayLength(t)
		if err != nil {
			return Decl{}, err
		}
		stride := elem.ByteSize()
		if t.Decorations.ArrayStride != nil {
			stride = *t.Decorations.ArrayStride
			if stride == 0 {
				if length == 1 {
					return elem, nil
				}
				return Decl{}, spirv.NewError(spirv.ErrStructuralViolation, "array %%%d has stride 0 and length %d", id, length)
			}
		}
		return Decl{Kind: KindArray, ComponentCount: length, Backing: BackingArray{Element: &elem, Stride: stride}}, nil

	case *spirv.TypeStruct:
		members := make([]Decl, len(t.Members))
		for i, mt := range t.Members {
			md, err := l.declForType(mt)
			if err != nil {
				return Decl{}, err
			}
			if i < len(t.MemberDecorations) && t.MemberDecorations[i].BuiltIn != nil {
				b, err := builtinFor(*t.MemberDecorations[i].BuiltIn)
				if err != nil {
					return Decl{}, err
				}
				md.Backing = BackingBuiltin{Builtin: b}
			}
			members[i] = md
		}
		return Decl{Kind: KindStruct, ComponentCount: uint32(len(members)), Backing: BackingStruct{Members: members}}, nil

	case *spirv.TypePointer:
		pointee, err := l.declForType(t.Pointee)
		if err != nil {
			return Decl{}, err
		}
		return Decl{Kind: KindPointer, ComponentCount: 1, Backing: BackingPointer{Pointee: &pointee}}, nil

	case nil:
		return Decl{}, spirv.NewError(spirv.ErrStructuralViolation, "%%%d is not a type", id)
	default:
		return Decl{}, spirv.NewError(spirv.ErrUnsupportedFeature, "values of type %%%d (%T)", id, t)
	}
}

func builtinFor(b spirv.BuiltIn) (Builtin, error) {
	switch b {
	case spirv.BuiltInPosition:
		return BuiltinPosition, nil
	case spirv.BuiltInPointSize:
		return BuiltinPointSize, nil
	case spirv.BuiltInVertexIndex:
		return BuiltinVertexIndex, nil
	case spirv.BuiltInFragCoord:
		return BuiltinFragCoord, nil
	case spirv.BuiltInClipDistance:
		return BuiltinClipDistance, nil
	case spirv.BuiltInCullDistance:
		return BuiltinCullDistance, nil
	}
	return 0, spirv.NewError(spirv.ErrUnsupportedFeature, "built-in %s", b)
}

// declare emits the VariableDecl of a result and records its type.
func (l *lowerer) declare(r spirv.Result) error {
	decl, err := l.declForType(r.Type)
	if err != nil {
		return err
	}
	l.valueTypes[r.ID] = r.Type
	l.emit(VariableDecl{ID: Variable(r.ID), Decl: decl})
	return nil
}

func (l *lowerer) lowerInstruction(inst spirv.Instruction) error {
	switch inst := inst.(type) {
	case *spirv.Label:
		l.emit(Label{ID: LabelID(inst.ID)})

	case *spirv.LocalVariable:
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		if inst.Initializer != 0 {
			l.emit(StoreVariable{DstPointer: Variable(inst.ID), Src: Variable(inst.Initializer)})
		}

	case *spirv.Load:
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		l.emit(LoadVariable{ID: Variable(inst.ID), SrcPointer: Variable(inst.Pointer)})

	case *spirv.Store:
		l.emit(StoreVariable{DstPointer: Variable(inst.Pointer), Src: Variable(inst.Object)})

	case *spirv.AccessChain:
		return l.lowerAccessChain(inst)

	case *spirv.CompositeExtract:
		return l.lowerCompositeExtract(inst)

	case *spirv.CompositeConstruct:
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		values := make([]Variable, len(inst.Constituents))
		for i, c := range inst.Constituents {
			values[i] = Variable(c)
		}
		l.emit(StoreVariableArray{Dst: Variable(inst.ID), Values: values})

	case *spirv.VectorTimesScalar:
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		l.emit(MathMulVectorScalar{ID: Variable(inst.ID), Vector: Variable(inst.Vector), Scalar: Variable(inst.Scalar)})

	case *spirv.Binary:
		op, ok := mathOps[inst.Op]
		if !ok {
			return spirv.NewError(spirv.ErrUnsupportedFeature, "instruction %s", inst.Op)
		}
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		l.emit(Math{Op: op, ID: Variable(inst.ID), Op1: Variable(inst.Left), Op2: Variable(inst.Right)})

	case *spirv.Convert:
		op, ok := convertOps[inst.Op]
		if !ok {
			return spirv.NewError(spirv.ErrUnsupportedFeature, "instruction %s", inst.Op)
		}
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		l.emit(Convert{Op: op, ID: Variable(inst.ID), Src: Variable(inst.Operand)})

	case *spirv.Select:
		if err := l.declare(inst.Result); err != nil {
			return err
		}
		l.emit(Select{
			ID:        Variable(inst.ID),
			Condition: Variable(inst.Condition),
			Accept:    Variable(inst.Accept),
			Reject:    Variable(inst.Reject),
		})

	case *spirv.SelectionMerge:
		l.emit(SelectionMerge{Merge: LabelID(inst.Merge)})
	case *spirv.LoopMerge:
		l.emit(LoopMerge{Merge: LabelID(inst.Merge), Continue: LabelID(inst.Continue)})
	case *spirv.Branch:
		l.emit(Branch{Target: LabelID(inst.Target)})
	case *spirv.BranchConditional:
		l.emit(BranchConditional{
			Condition: Variable(inst.Condition),
			True:      LabelID(inst.True),
			False:     LabelID(inst.False),
		})
	case *spirv.Return:
		l.emit(Return{})
	case *spirv.Kill:
		l.emit(Kill{})

	default:
		return spirv.NewError(spirv.ErrUnsupportedFeature, "instruction %T", inst)
	}
	return nil
}

// lowerAccessChain flattens chained access chains onto their root
// variable so the interpreter walks the whole path at once.
func (l *lowerer) lowerAccessChain(inst *spirv.AccessChain) error {
	if err := l.declare(inst.Result); err != nil {
		return err
	}
	chain := accessChain{root: Variable(inst.Base)}
	if parent, ok := l.chains[inst.Base]; ok {
		chain.root = parent.root
		chain.offsets = append(chain.offsets, parent.offsets...)
	}
	for _, idx := range inst.Indexes {
		chain.offsets = append(chain.offsets, Variable(idx))
	}
	l.chains[inst.ID] = chain

	offsets := make([]Variable, len(chain.offsets))
	copy(offsets, chain.offsets)
	l.emit(LoadVariableOffset{ID: Variable(inst.ID), Base: chain.root, Offsets: offsets})
	return nil
}

// lowerCompositeExtract lowers a multi-level extract into a sequence of
// single-level extracts through temporaries.
func (l *lowerer) lowerCompositeExtract(inst *spirv.CompositeExtract) error {
	if len(inst.Indexes) == 0 {
		return spirv.NewError(spirv.ErrStructuralViolation, "extract %%%d has no indexes", inst.ID)
	}
	src := Variable(inst.Composite)
	srcType, ok := l.valueTypes[inst.Composite]
	if !ok && len(inst.Indexes) > 1 {
		return spirv.NewError(spirv.ErrStructuralViolation, "extract %%%d from untyped value %%%d", inst.ID, inst.Composite)
	}
	last := len(inst.Indexes) - 1
	for _, idx := range inst.Indexes[:last] {
		elemType, err := l.componentType(srcType, idx)
		if err != nil {
			return err
		}
		decl, err := l.declForType(elemType)
		if err != nil {
			return err
		}
		tmp := l.temp()
		l.emit(
			VariableDecl{ID: tmp, Decl: decl},
			LoadVariableImmOffset{ID: tmp, Base: src, Offset: idx},
		)
		src, srcType = tmp, elemType
	}

	if err := l.declare(inst.Result); err != nil {
		return err
	}
	l.emit(LoadVariableImmOffset{ID: Variable(inst.ID), Base: src, Offset: inst.Indexes[last]})
	return nil
}

// componentType returns the type of component idx of a composite type.
func (l *lowerer) componentType(id spirv.ObjectID, idx uint32) (spirv.ObjectID, error) {
	switch t := l.module.Type(id).(type) {
	case *spirv.TypeVector:
		if idx < t.Count {
			return t.Component, nil
		}
	case *spirv.TypeArray:
		length, err := l.module.ArrayLength(t)
		if err != nil {
			return 0, err
		}
		if idx < length {
			return t.Element, nil
		}
	case *spirv.TypeStruct:
		if int(idx) < len(t.Members) {
			return t.Members[idx], nil
		}
	default:
		return 0, spirv.NewError(spirv.ErrStructuralViolation, "%%%d is not a composite type", id)
	}
	return 0, spirv.NewError(spirv.ErrStructuralViolation, "index %d out of range for type %%%d", idx, id)
}

var mathOps = map[spirv.OpCode]MathOp{
	spirv.OpIAdd:              MathAddI32I32,
	spirv.OpFAdd:              MathAddF32F32,
	spirv.OpISub:              MathSubI32I32,
	spirv.OpFSub:              MathSubF32F32,
	spirv.OpIMul:              MathMulI32I32,
	spirv.OpFMul:              MathMulF32F32,
	spirv.OpFDiv:              MathDivF32F32,
	spirv.OpSDiv:              MathDivI32I32,
	spirv.OpUDiv:              MathDivU32U32,
	spirv.OpSMod:              MathModI32I32,
	spirv.OpUMod:              MathModU32U32,
	spirv.OpSRem:              MathRemI32I32,
	spirv.OpBitwiseAnd:        MathBitAnd,
	spirv.OpBitwiseOr:         MathBitOr,
	spirv.OpBitwiseXor:        MathBitXor,
	spirv.OpShiftLeftLogical:  MathBitShiftLeft,
	spirv.OpShiftRightLogical: MathBitShiftRight,
	spirv.OpIEqual:            MathEqualI32I32,
	spirv.OpULessThan:         MathLessThanU32U32,
	spirv.OpSLessThan:         MathLessThanI32I32,
	spirv.OpFOrdLessThan:      MathLessThanF32F32,
}

var convertOps = map[spirv.OpCode]ConvertOp{
	spirv.OpConvertSToF: MathConvertI32F32,
	spirv.OpConvertUToF: MathConvertU32F32,
	spirv.OpConvertFToU: MathConvertF32U32,
	spirv.OpConvertFToS: MathConvertF32I32,
}
