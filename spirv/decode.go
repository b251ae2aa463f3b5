package spirv

// decodeInstruction turns a function-body RawInstruction into its typed
// form, checking operand counts along the way.
//
//nolint:gocyclo,cyclop // one case per accepted opcode
func (p *parser) decodeInstruction(raw RawInstruction) (Instruction, error) {
	ops := raw.Operands
	n := len(ops)
	id := func(i int) ObjectID { return ObjectID(ops[i]) }
	result := func() Result { return Result{Type: id(0), ID: id(1)} }
	ids := func(from int) []ObjectID {
		out := make([]ObjectID, 0, n-from)
		for _, w := range ops[from:] {
			out = append(out, ObjectID(w))
		}
		return out
	}

	switch op := raw.Opcode; {
	case op == OpLabel:
		if n != 1 {
			return nil, p.shapeError(raw)
		}
		return &Label{ID: id(0)}, nil

	case op == OpVariable:
		if n != 3 && n != 4 {
			return nil, p.shapeError(raw)
		}
		v := &LocalVariable{Result: result(), StorageClass: StorageClass(ops[2])}
		if n == 4 {
			v.Initializer = id(3)
		}
		return v, nil

	case op == OpLoad:
		// Trailing memory operands are ignored.
		if n < 3 {
			return nil, p.shapeError(raw)
		}
		return &Load{Result: result(), Pointer: id(2)}, nil

	case op == OpStore:
		if n < 2 {
			return nil, p.shapeError(raw)
		}
		return &Store{Pointer: id(0), Object: id(1)}, nil

	case op == OpAccessChain || op == OpInBoundsAccessChain:
		if n < 3 {
			return nil, p.shapeError(raw)
		}
		return &AccessChain{Result: result(), Base: id(2), Indexes: ids(3)}, nil

	case op == OpCompositeExtract:
		if n < 4 {
			return nil, p.shapeError(raw)
		}
		return &CompositeExtract{
			Result:    result(),
			Composite: id(2),
			Indexes:   append([]uint32(nil), ops[3:]...),
		}, nil

	case op == OpCompositeConstruct:
		if n < 3 {
			return nil, p.shapeError(raw)
		}
		return &CompositeConstruct{Result: result(), Constituents: ids(2)}, nil

	case op == OpVectorTimesScalar:
		if n != 4 {
			return nil, p.shapeError(raw)
		}
		return &VectorTimesScalar{Result: result(), Vector: id(2), Scalar: id(3)}, nil

	case binaryOps[op]:
		if n != 4 {
			return nil, p.shapeError(raw)
		}
		return &Binary{Result: result(), Op: op, Left: id(2), Right: id(3)}, nil

	case convertOps[op]:
		if n != 3 {
			return nil, p.shapeError(raw)
		}
		return &Convert{Result: result(), Op: op, Operand: id(2)}, nil

	case op == OpSelect:
		if n != 5 {
			return nil, p.shapeError(raw)
		}
		return &Select{Result: result(), Condition: id(2), Accept: id(3), Reject: id(4)}, nil

	case op == OpSelectionMerge:
		if n != 2 {
			return nil, p.shapeError(raw)
		}
		return &SelectionMerge{Merge: id(0), Control: SelectionControl(ops[1])}, nil

	case op == OpLoopMerge:
		if n < 3 {
			return nil, p.shapeError(raw)
		}
		return &LoopMerge{Merge: id(0), Continue: id(1), Control: LoopControl(ops[2])}, nil

	case op == OpBranch:
		if n != 1 {
			return nil, p.shapeError(raw)
		}
		return &Branch{Target: id(0)}, nil

	case op == OpBranchConditional:
		// Branch weights are accepted and dropped.
		if n != 3 && n != 5 {
			return nil, p.shapeError(raw)
		}
		return &BranchConditional{Condition: id(0), True: id(1), False: id(2)}, nil

	case op == OpReturn:
		if n != 0 {
			return nil, p.shapeError(raw)
		}
		return &Return{}, nil

	case op == OpKill:
		if n != 0 {
			return nil, p.shapeError(raw)
		}
		return &Kill{}, nil

	default:
		return nil, p.errorf(ErrUnsupportedFeature, raw, "instruction %s", op)
	}
}

// references returns the value ids an instruction reads and the labels it
// may transfer control to.
func references(inst Instruction) (values, labels []ObjectID) {
	switch in := inst.(type) {
	case *LocalVariable:
		if in.Initializer != 0 {
			values = []ObjectID{in.Initializer}
		}
	case *Load:
		values = []ObjectID{in.Pointer}
	case *Store:
		values = []ObjectID{in.Pointer, in.Object}
	case *AccessChain:
		values = append([]ObjectID{in.Base}, in.Indexes...)
	case *CompositeExtract:
		values = []ObjectID{in.Composite}
	case *CompositeConstruct:
		values = in.Constituents
	case *VectorTimesScalar:
		values = []ObjectID{in.Vector, in.Scalar}
	case *Binary:
		values = []ObjectID{in.Left, in.Right}
	case *Convert:
		values = []ObjectID{in.Operand}
	case *Select:
		values = []ObjectID{in.Condition, in.Accept, in.Reject}
	case *SelectionMerge:
		labels = []ObjectID{in.Merge}
	case *LoopMerge:
		labels = []ObjectID{in.Merge, in.Continue}
	case *Branch:
		labels = []ObjectID{in.Target}
	case *BranchConditional:
		values = []ObjectID{in.Condition}
		labels = []ObjectID{in.True, in.False}
	}
	return values, labels
}
