package interp

import (
	"github.com/szx/vkswr/il"
)

// State is the lifecycle stage of a Machine.
type State uint8

const (
	// StateLoaded is a machine with stage inputs in place and pc 0.
	StateLoaded State = iota
	// StateRunning is a machine executing instructions.
	StateRunning
	// StateTerminated is a machine that hit Return, Kill or the end of
	// the program.
	StateTerminated
)

// Machine is the execution state of one invocation. A Machine is not safe
// for concurrent use.
type Machine struct {
	program *Program

	pc        int
	state     State
	steps     int
	discarded bool

	mem  *memory
	vars variables

	// bound maps IL variables to their storage.
	bound map[il.Variable]Handle

	builtins map[il.Builtin]Handle
	inputs   map[uint32]Handle
	outputs  map[uint32]Handle

	// elements caches the sub-arrays produced by indexing, so access
	// chains inside loops reuse table entries.
	elements map[elementKey]Handle
}

// elementKey names element index of the array at table slot parent.
type elementKey struct {
	parent, index uint32
}

// NewMachine creates a machine in StateLoaded with empty stage tables.
func (p *Program) NewMachine() *Machine {
	return &Machine{
		program:  p,
		mem:      newMemory(p.config.memorySize),
		bound:    make(map[il.Variable]Handle),
		builtins: make(map[il.Builtin]Handle),
		inputs:   make(map[uint32]Handle),
		outputs:  make(map[uint32]Handle),
		elements: make(map[elementKey]Handle),
	}
}

// State returns the lifecycle state.
func (m *Machine) State() State { return m.state }

// Steps returns the number of instructions executed so far.
func (m *Machine) Steps() int { return m.steps }

// Discarded reports whether the invocation ended with Kill.
func (m *Machine) Discarded() bool { return m.discarded }

// MemoryUsed returns the number of scratch bytes allocated.
func (m *Machine) MemoryUsed() int { return int(m.mem.used()) }

// Run executes instructions until the invocation terminates. Falling off
// the end of the program terminates normally.
func (m *Machine) Run() error {
	code := m.program.code
	budget := m.program.config.maxInstructions
	m.state = StateRunning
	for m.pc < len(code) {
		inst := code[m.pc]
		if budget > 0 && m.steps >= budget {
			return &ExecError{PC: m.pc, Instruction: inst, Err: fatalf("instruction budget of %d exhausted", budget)}
		}
		m.steps++

		next, done, err := m.step(inst)
		if err != nil {
			return &ExecError{PC: m.pc, Instruction: inst, Err: err}
		}
		if done {
			break
		}
		m.pc = next
	}
	m.state = StateTerminated
	return nil
}

// step executes one instruction and returns the next pc, or done when the
// invocation ends.
//
//nolint:gocyclo,cyclop // one case per instruction
func (m *Machine) step(inst il.Instruction) (next int, done bool, err error) {
	next = m.pc + 1
	switch inst := inst.(type) {
	case il.Label, il.SelectionMerge, il.LoopMerge:

	case il.VariableDecl:
		err = m.declare(inst.ID, inst.Decl)

	case il.StoreImm32:
		err = m.storeImm(inst.Dst, []uint32{inst.Imm})
	case il.StoreImm32Array:
		err = m.storeImm(inst.Dst, inst.Imm)

	case il.LoadVariableOffset:
		err = m.loadOffset(inst)
	case il.LoadVariableImmOffset:
		err = m.loadImmOffset(inst)

	case il.StoreVariable:
		var p *PointerVariable
		var src Handle
		if p, err = m.pointerOf(inst.DstPointer); err != nil {
			break
		}
		if src, err = m.handle(inst.Src); err != nil {
			break
		}
		err = m.copyValue(p.Target, src)

	case il.StoreVariableArray:
		err = m.storeArray(inst)

	case il.LoadVariable:
		var p *PointerVariable
		var dst Handle
		if p, err = m.pointerOf(inst.SrcPointer); err != nil {
			break
		}
		if dst, err = m.handle(inst.ID); err != nil {
			break
		}
		err = m.copyValue(dst, p.Target)

	case il.MathMulVectorScalar:
		err = m.mulVectorScalar(inst)
	case il.Math:
		err = m.math(inst)
	case il.Convert:
		err = m.convert(inst)
	case il.Select:
		err = m.selectLanes(inst)

	case il.Branch:
		next, err = m.jump(inst.Target)
	case il.BranchConditional:
		var cond uint32
		if cond, err = m.scalar(inst.Condition); err != nil {
			break
		}
		target := inst.False
		if cond != 0 {
			target = inst.True
		}
		next, err = m.jump(target)

	case il.Return:
		done = true
	case il.Kill:
		m.discarded = true
		done = true

	default:
		err = fatalf("unsupported instruction %T", inst)
	}
	return next, done, err
}

func (m *Machine) jump(target il.LabelID) (int, error) {
	pc, ok := m.program.labels[target]
	if !ok {
		return 0, fatalf("branch to unplaced label @%d", target)
	}
	return pc, nil
}

// declare binds id to storage for decl. A variable that is already bound
// keeps its storage, so declarations inside loops do not reallocate.
func (m *Machine) declare(id il.Variable, decl il.Decl) error {
	if _, ok := m.bound[id]; ok {
		return nil
	}
	h, err := m.instantiate(decl)
	if err != nil {
		return err
	}
	m.bound[id] = h
	return nil
}

func (m *Machine) instantiate(decl il.Decl) (Handle, error) {
	switch b := decl.Backing.(type) {
	case il.BackingMemory:
		return m.allocLanes(decl.ComponentCount)

	case il.BackingBuiltin:
		h, err := m.builtin(b.Builtin)
		if err != nil {
			return Handle{}, err
		}
		return m.view(h, decl.ComponentCount), nil

	case il.BackingLocation:
		table := m.inputs
		if b.Output {
			table = m.outputs
		}
		h, ok := table[b.Location]
		if !ok {
			var err error
			if h, err = m.allocLanes(max(decl.ComponentCount, 4)); err != nil {
				return Handle{}, err
			}
			table[b.Location] = h
		}
		return m.view(h, decl.ComponentCount), nil

	case il.BackingArray:
		elemStride := uint32(laneSize)
		if inner, ok := b.Element.Backing.(il.BackingArray); ok {
			elemStride = inner.Stride
		}
		r, err := m.mem.alloc(b.Stride * decl.ComponentCount)
		if err != nil {
			return Handle{}, err
		}
		return m.vars.addArray(ArrayVariable{Region: r, Stride: b.Stride, ElementStride: elemStride}), nil

	case il.BackingStruct:
		members := make([]Handle, len(b.Members))
		for i, md := range b.Members {
			h, err := m.instantiate(md)
			if err != nil {
				return Handle{}, err
			}
			members[i] = h
		}
		return m.vars.addStruct(StructVariable{Members: members}), nil

	case il.BackingPointer:
		target, err := m.instantiate(*b.Pointee)
		if err != nil {
			return Handle{}, err
		}
		if target.Kind == HandlePointer {
			return Handle{}, fatalf("pointer to pointer")
		}
		return m.vars.addPointer(PointerVariable{Target: target}), nil
	}
	return Handle{}, fatalf("declaration with backing %T", decl.Backing)
}

// allocLanes allocates n zeroed lanes.
func (m *Machine) allocLanes(n uint32) (Handle, error) {
	r, err := m.mem.alloc(n * laneSize)
	if err != nil {
		return Handle{}, err
	}
	return m.vars.addArray(ArrayVariable{Region: r, Stride: laneSize, ElementStride: laneSize}), nil
}

// view narrows an array to its first n elements.
func (m *Machine) view(h Handle, n uint32) Handle {
	if h.Kind != HandleArray || n == 0 {
		return h
	}
	a := m.vars.arrays[h.Index]
	if n >= a.Len() {
		return h
	}
	a.Region.Size = n * a.Stride
	return m.vars.addArray(a)
}

// builtinLanes is the lane count of each built-in slot.
var builtinLanes = map[il.Builtin]uint32{
	il.BuiltinPosition:     4,
	il.BuiltinPointSize:    1,
	il.BuiltinVertexIndex:  1,
	il.BuiltinFragCoord:    4,
	il.BuiltinClipDistance: MaxClipDistances,
	il.BuiltinCullDistance: MaxClipDistances,
}

// builtin returns the slot of b, allocating it on first use.
func (m *Machine) builtin(b il.Builtin) (Handle, error) {
	if h, ok := m.builtins[b]; ok {
		return h, nil
	}
	lanes, ok := builtinLanes[b]
	if !ok {
		return Handle{}, fatalf("unknown built-in %s", b)
	}
	h, err := m.allocLanes(lanes)
	if err != nil {
		return Handle{}, err
	}
	m.builtins[b] = h
	return h, nil
}

func (m *Machine) handle(v il.Variable) (Handle, error) {
	h, ok := m.bound[v]
	if !ok {
		return Handle{}, fatalf("variable %%%d is not declared", v)
	}
	return h, nil
}

func (m *Machine) arrayOf(v il.Variable) (ArrayVariable, error) {
	h, err := m.handle(v)
	if err != nil {
		return ArrayVariable{}, err
	}
	return m.vars.array(h)
}

func (m *Machine) pointerOf(v il.Variable) (*PointerVariable, error) {
	h, err := m.handle(v)
	if err != nil {
		return nil, err
	}
	return m.vars.pointer(h)
}

// scalar reads lane 0 of v.
func (m *Machine) scalar(v il.Variable) (uint32, error) {
	a, err := m.arrayOf(v)
	if err != nil {
		return 0, err
	}
	if a.Region.Size < laneSize {
		return 0, fatalf("variable %%%d has no lanes", v)
	}
	return m.mem.word(a.Region.Address), nil
}

// index selects element i of an array or member i of a struct. Array
// table entries are never modified, so a derived element is created once
// per parent and index.
func (m *Machine) index(h Handle, i uint32) (Handle, error) {
	switch h.Kind {
	case HandleArray:
		key := elementKey{parent: h.Index, index: i}
		if e, ok := m.elements[key]; ok {
			return e, nil
		}
		elem, err := m.vars.arrays[h.Index].element(i)
		if err != nil {
			return Handle{}, err
		}
		e := m.vars.addArray(elem)
		m.elements[key] = e
		return e, nil
	case HandleStruct:
		members := m.vars.structs[h.Index].Members
		if int(i) >= len(members) {
			return Handle{}, fatalf("member %d out of range for %d members", i, len(members))
		}
		return members[i], nil
	}
	return Handle{}, fatalf("cannot index a %s", h.Kind)
}

// copyValue copies src into dst: raw bytes between arrays, member-wise
// between structs.
func (m *Machine) copyValue(dst, src Handle) error {
	switch {
	case dst.Kind == HandleArray && src.Kind == HandleArray:
		m.mem.copyRegion(m.vars.arrays[dst.Index].Region, m.vars.arrays[src.Index].Region)
		return nil
	case dst.Kind == HandleStruct && src.Kind == HandleStruct:
		dm, sm := m.vars.structs[dst.Index].Members, m.vars.structs[src.Index].Members
		for i := range min(len(dm), len(sm)) {
			if err := m.copyValue(dm[i], sm[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return fatalf("cannot copy a %s into a %s", src.Kind, dst.Kind)
}

func (m *Machine) storeImm(dst il.Variable, words []uint32) error {
	a, err := m.arrayOf(dst)
	if err != nil {
		return err
	}
	if uint32(len(words))*laneSize > a.Region.Size {
		return fatalf("%d words do not fit %d bytes of %%%d", len(words), a.Region.Size, dst)
	}
	for i, w := range words {
		m.mem.setWord(a.Region.Address+uint32(i)*laneSize, w)
	}
	return nil
}

func (m *Machine) loadOffset(inst il.LoadVariableOffset) error {
	base, err := m.pointerOf(inst.Base)
	if err != nil {
		return err
	}
	cur := base.Target
	for _, off := range inst.Offsets {
		idx, err := m.scalar(off)
		if err != nil {
			return err
		}
		if cur, err = m.index(cur, idx); err != nil {
			return err
		}
	}
	p, err := m.pointerOf(inst.ID)
	if err != nil {
		return err
	}
	p.Target = cur
	return nil
}

func (m *Machine) loadImmOffset(inst il.LoadVariableImmOffset) error {
	base, err := m.handle(inst.Base)
	if err != nil {
		return err
	}
	elem, err := m.index(base, inst.Offset)
	if err != nil {
		return err
	}
	dst, err := m.handle(inst.ID)
	if err != nil {
		return err
	}
	return m.copyValue(dst, elem)
}

// storeArray writes value i into element i when the value count matches
// the element count, and concatenates the values otherwise.
func (m *Machine) storeArray(inst il.StoreVariableArray) error {
	dst, err := m.handle(inst.Dst)
	if err != nil {
		return err
	}
	if dst.Kind == HandleStruct {
		members := m.vars.structs[dst.Index].Members
		if len(inst.Values) != len(members) {
			return fatalf("%d values for %d members", len(inst.Values), len(members))
		}
		for i, v := range inst.Values {
			src, err := m.handle(v)
			if err != nil {
				return err
			}
			if err := m.copyValue(members[i], src); err != nil {
				return err
			}
		}
		return nil
	}

	a, err := m.vars.array(dst)
	if err != nil {
		return err
	}
	perElement := uint32(len(inst.Values)) == a.Len()
	var offset uint32
	for i, v := range inst.Values {
		src, err := m.arrayOf(v)
		if err != nil {
			return err
		}
		if perElement {
			offset = uint32(i) * a.Stride
		}
		size := src.Region.Size
		if perElement {
			size = min(size, a.Stride)
		}
		if offset+size > a.Region.Size {
			return fatalf("values overflow %d bytes of %%%d", a.Region.Size, inst.Dst)
		}
		m.mem.copyRegion(Region{Address: a.Region.Address + offset, Size: size}, src.Region)
		offset += size
	}
	return nil
}
