package spirv

import (
	"fmt"
)

// Parse decodes a SPIR-V module into a validated object graph.
//
// The module must declare exactly one Vertex or Fragment entry point, use
// the Logical/GLSL450 memory model and the Shader capability. Failures are
// returned as *Error; use KindOf to classify them.
func Parse(name string, words []uint32) (*Module, error) {
	header, insts, err := Decode(words)
	if err != nil {
		return nil, withModule(err, name)
	}

	p := &parser{
		name: name,
		module: &Module{
			Name:      name,
			Header:    header,
			Objects:   make(map[ObjectID]Object, header.Bound),
			Functions: make(map[ObjectID]*Function, 1),
		},
		variables: make(map[ObjectID]*Variable),
		defined:   make(map[ObjectID]bool, header.Bound),
	}

	if err := p.parse(insts); err != nil {
		return nil, withModule(err, name)
	}
	return p.module, nil
}

// parser holds the state of a single Parse call.
type parser struct {
	name   string
	module *Module

	// Sections of the module, in source order.
	preamble    []RawInstruction
	globals     []RawInstruction
	annotations []RawInstruction
	functions   []RawInstruction

	variables map[ObjectID]*Variable

	// defined records every id declared so far, globally or in a function.
	defined map[ObjectID]bool
}

func (p *parser) parse(insts []RawInstruction) error {
	if err := p.splitSections(insts); err != nil {
		return err
	}
	if err := p.parsePreamble(); err != nil {
		return err
	}
	if err := p.parseTypes(); err != nil {
		return err
	}
	if err := p.parseConstants(); err != nil {
		return err
	}
	if err := p.parseVariables(); err != nil {
		return err
	}
	if err := p.parseDecorations(); err != nil {
		return err
	}
	if err := p.validateStructs(); err != nil {
		return err
	}
	if err := p.parseFunctions(); err != nil {
		return err
	}
	return p.resolveEntryPoint()
}

// errorf builds an *Error located at the given instruction.
func (p *parser) errorf(kind ErrorKind, raw RawInstruction, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Module:  p.name,
		Offset:  raw.Offset,
		Message: fmt.Sprintf(format, args...),
	}
}

func withModule(err error, name string) error {
	if e, ok := err.(*Error); ok && e.Module == "" {
		e.Module = name
	}
	return err
}

// splitSections sorts instructions into the logical module layout.
// Everything from the first OpFunction on belongs to the function section.
func (p *parser) splitSections(insts []RawInstruction) error {
	for i, raw := range insts {
		switch raw.Opcode {
		case OpFunction:
			p.functions = insts[i:]
			return nil
		case OpCapability, OpExtInstImport, OpMemoryModel,
			OpEntryPoint, OpExecutionMode:
			p.preamble = append(p.preamble, raw)
		case OpSource, OpSourceContinued, OpSourceExtension, OpName, OpMemberName,
			OpString, OpLine, OpNoLine, OpModuleProcessed, OpNop, OpExtension:
			// Debug information and extension declarations carry no
			// semantics for the accepted subset.
		case OpDecorate, OpMemberDecorate, OpDecorateString, OpMemberDecorateString:
			p.annotations = append(p.annotations, raw)
		default:
			p.globals = append(p.globals, raw)
		}
	}
	return nil
}

func (p *parser) parsePreamble() error {
	var (
		memoryModel bool
		entries     []RawInstruction
		modes       []RawInstruction
	)

	for _, raw := range p.preamble {
		switch raw.Opcode {
		case OpCapability:
			if len(raw.Operands) != 1 {
				return p.errorf(ErrMalformedBinary, raw, "OpCapability expects 1 operand, got %d", len(raw.Operands))
			}
			capability := Capability(raw.Operands[0])
			switch capability {
			case CapabilityShader, CapabilityMatrix, CapabilityClipDistance, CapabilityCullDistance:
			default:
				return p.errorf(ErrUnsupportedFeature, raw, "capability %s", lookupName(capabilityNames, uint32(capability)))
			}
			p.module.Capabilities = append(p.module.Capabilities, capability)

		case OpExtInstImport:
			if len(raw.Operands) < 2 {
				return p.errorf(ErrMalformedBinary, raw, "OpExtInstImport expects a result id and a name")
			}
			if err := p.define(raw, ObjectID(raw.Operands[0])); err != nil {
				return err
			}

		case OpMemoryModel:
			if len(raw.Operands) != 2 {
				return p.errorf(ErrMalformedBinary, raw, "OpMemoryModel expects 2 operands, got %d", len(raw.Operands))
			}
			if AddressingModel(raw.Operands[0]) != AddressingModelLogical {
				return p.errorf(ErrUnsupportedFeature, raw, "addressing model %d", raw.Operands[0])
			}
			if MemoryModel(raw.Operands[1]) != MemoryModelGLSL450 {
				return p.errorf(ErrUnsupportedFeature, raw, "memory model %d", raw.Operands[1])
			}
			memoryModel = true

		case OpEntryPoint:
			entries = append(entries, raw)

		case OpExecutionMode:
			modes = append(modes, raw)
		}
	}

	if !memoryModel {
		return &Error{Kind: ErrStructuralViolation, Module: p.name, Offset: -1, Message: "missing OpMemoryModel"}
	}
	if len(entries) != 1 {
		return &Error{
			Kind:    ErrEntryPointMissing,
			Module:  p.name,
			Offset:  -1,
			Message: fmt.Sprintf("module declares %d entry points, want exactly 1", len(entries)),
		}
	}

	raw := entries[0]
	if len(raw.Operands) < 3 {
		return p.errorf(ErrMalformedBinary, raw, "OpEntryPoint expects at least 3 operands, got %d", len(raw.Operands))
	}
	model := ExecutionModel(raw.Operands[0])
	if model != ExecutionModelVertex && model != ExecutionModelFragment {
		return p.errorf(ErrUnsupportedFeature, raw, "execution model %s", model)
	}
	name, nameWords, ok := decodeString(raw.Operands[2:])
	if !ok {
		return p.errorf(ErrMalformedBinary, raw, "entry point name is not terminated")
	}
	entry := EntryPoint{
		Model:    model,
		Function: ObjectID(raw.Operands[1]),
		Name:     name,
	}
	for _, w := range raw.Operands[2+nameWords:] {
		entry.Interface = append(entry.Interface, ObjectID(w))
	}

	for _, mode := range modes {
		if len(mode.Operands) < 2 {
			return p.errorf(ErrMalformedBinary, mode, "OpExecutionMode expects at least 2 operands")
		}
		if ObjectID(mode.Operands[0]) != entry.Function {
			return p.errorf(ErrStructuralViolation, mode, "execution mode targets %%%d, entry point is %%%d", mode.Operands[0], entry.Function)
		}
		entry.Modes = append(entry.Modes, ExecutionModeDecl{
			Mode:     ExecutionMode(mode.Operands[1]),
			Literals: append([]uint32(nil), mode.Operands[2:]...),
		})
	}

	p.module.EntryPoint = entry
	return nil
}

// define records a new id, rejecting duplicates.
func (p *parser) define(raw RawInstruction, id ObjectID) error {
	if id == 0 {
		return p.errorf(ErrStructuralViolation, raw, "%s defines id 0", raw.Opcode)
	}
	if p.defined[id] {
		return p.errorf(ErrStructuralViolation, raw, "duplicate id %%%d", id)
	}
	p.defined[id] = true
	return nil
}

// addObject records a global declaration.
func (p *parser) addObject(raw RawInstruction, id ObjectID, obj Object) error {
	if err := p.define(raw, id); err != nil {
		return err
	}
	p.module.Objects[id] = obj
	p.module.Order = append(p.module.Order, id)
	return nil
}

// lookupType resolves a type reference made by raw.
func (p *parser) lookupType(raw RawInstruction, id ObjectID) (Type, error) {
	t, ok := p.module.Objects[id].(Type)
	if !ok {
		return nil, p.errorf(ErrStructuralViolation, raw, "%s references %%%d, which is not a declared type", raw.Opcode, id)
	}
	return t, nil
}

func isConstantOp(op OpCode) bool {
	switch op {
	case OpConstant, OpConstantTrue, OpConstantFalse, OpConstantComposite:
		return true
	}
	return false
}

// parseTypes is the first pass over the global section. Constants and
// variables are skipped here and handled by their own passes.
//
//nolint:gocognit,gocyclo,cyclop // one case per type opcode
func (p *parser) parseTypes() error {
	for _, raw := range p.globals {
		if isConstantOp(raw.Opcode) || raw.Opcode == OpVariable {
			continue
		}

		ops := raw.Operands
		if len(ops) == 0 {
			return p.errorf(ErrMalformedBinary, raw, "%s has no result id", raw.Opcode)
		}
		id := ObjectID(ops[0])

		var typ Type
		switch raw.Opcode {
		case OpTypeVoid:
			if len(ops) != 1 {
				return p.shapeError(raw)
			}
			typ = &TypeVoid{}

		case OpTypeBool:
			if len(ops) != 1 {
				return p.shapeError(raw)
			}
			typ = &TypeBool{}

		case OpTypeInt:
			if len(ops) != 3 {
				return p.shapeError(raw)
			}
			if ops[1] != 32 {
				return p.errorf(ErrUnsupportedFeature, raw, "integer width %d", ops[1])
			}
			typ = &TypeInt{Width: ops[1], Signed: ops[2] != 0}

		case OpTypeFloat:
			if len(ops) != 2 {
				return p.shapeError(raw)
			}
			if ops[1] != 32 {
				return p.errorf(ErrUnsupportedFeature, raw, "float width %d", ops[1])
			}
			typ = &TypeFloat{Width: ops[1]}

		case OpTypeVector:
			if len(ops) != 3 {
				return p.shapeError(raw)
			}
			component, err := p.lookupType(raw, ObjectID(ops[1]))
			if err != nil {
				return err
			}
			switch component.(type) {
			case *TypeBool, *TypeInt, *TypeFloat:
			default:
				return p.errorf(ErrStructuralViolation, raw, "vector component %%%d is not a scalar", ops[1])
			}
			if ops[2] < 2 || ops[2] > 4 {
				return p.errorf(ErrStructuralViolation, raw, "vector size %d", ops[2])
			}
			typ = &TypeVector{Component: ObjectID(ops[1]), Count: ops[2]}

		case OpTypeArray:
			if len(ops) != 3 {
				return p.shapeError(raw)
			}
			if _, err := p.lookupType(raw, ObjectID(ops[1])); err != nil {
				return err
			}
			// The length constant is resolved by parseConstants.
			typ = &TypeArray{Element: ObjectID(ops[1]), Length: ObjectID(ops[2])}

		case OpTypeStruct:
			members := make([]ObjectID, 0, len(ops)-1)
			for _, w := range ops[1:] {
				if _, err := p.lookupType(raw, ObjectID(w)); err != nil {
					return err
				}
				members = append(members, ObjectID(w))
			}
			typ = &TypeStruct{
				Members:           members,
				MemberDecorations: make([]Decorations, len(members)),
			}

		case OpTypePointer:
			if len(ops) != 3 {
				return p.shapeError(raw)
			}
			storage := StorageClass(ops[1])
			if !storage.supported() {
				return p.errorf(ErrUnsupportedFeature, raw, "storage class %s", storage)
			}
			if _, err := p.lookupType(raw, ObjectID(ops[2])); err != nil {
				return err
			}
			typ = &TypePointer{StorageClass: storage, Pointee: ObjectID(ops[2])}

		case OpTypeFunction:
			if len(ops) < 2 {
				return p.shapeError(raw)
			}
			if _, err := p.lookupType(raw, ObjectID(ops[1])); err != nil {
				return err
			}
			fn := &TypeFunction{Return: ObjectID(ops[1])}
			for _, w := range ops[2:] {
				if _, err := p.lookupType(raw, ObjectID(w)); err != nil {
					return err
				}
				fn.Params = append(fn.Params, ObjectID(w))
			}
			typ = fn

		case OpTypeMatrix, OpTypeRuntimeArray:
			return p.errorf(ErrUnsupportedFeature, raw, "%s", raw.Opcode)

		default:
			return p.errorf(ErrUnsupportedFeature, raw, "%s in global section", raw.Opcode)
		}

		if err := p.addObject(raw, id, typ); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) shapeError(raw RawInstruction) *Error {
	return p.errorf(ErrMalformedBinary, raw, "%s has unexpected operand count %d", raw.Opcode, len(raw.Operands))
}

// parseConstants is the second pass over the global section.
func (p *parser) parseConstants() error {
	for _, raw := range p.globals {
		if !isConstantOp(raw.Opcode) {
			continue
		}
		ops := raw.Operands
		if len(ops) < 2 {
			return p.shapeError(raw)
		}
		typeID, id := ObjectID(ops[0]), ObjectID(ops[1])
		typ, err := p.lookupType(raw, typeID)
		if err != nil {
			return err
		}

		var c Constant
		switch raw.Opcode {
		case OpConstant:
			switch typ.(type) {
			case *TypeInt, *TypeFloat:
			default:
				return p.errorf(ErrStructuralViolation, raw, "OpConstant of non-numeric type %%%d", typeID)
			}
			if len(ops) != 3 {
				return p.shapeError(raw)
			}
			c = &ConstantScalar{Type: typeID, Value: ops[2]}

		case OpConstantTrue, OpConstantFalse:
			if _, ok := typ.(*TypeBool); !ok {
				return p.errorf(ErrStructuralViolation, raw, "%s of non-bool type %%%d", raw.Opcode, typeID)
			}
			if len(ops) != 2 {
				return p.shapeError(raw)
			}
			var v uint32
			if raw.Opcode == OpConstantTrue {
				v = 1
			}
			c = &ConstantScalar{Type: typeID, Value: v}

		case OpConstantComposite:
			composite := &ConstantComposite{Type: typeID}
			for _, w := range ops[2:] {
				if _, ok := p.module.Objects[ObjectID(w)].(Constant); !ok {
					return p.errorf(ErrStructuralViolation, raw, "constituent %%%d is not a declared constant", w)
				}
				composite.Constituents = append(composite.Constituents, ObjectID(w))
			}
			if vec, ok := typ.(*TypeVector); ok && uint32(len(composite.Constituents)) != vec.Count {
				return p.errorf(ErrStructuralViolation, raw, "vector constant has %d constituents, type has %d", len(composite.Constituents), vec.Count)
			}
			c = composite
		}

		if err := p.addObject(raw, id, c); err != nil {
			return err
		}
	}

	// Array lengths may only be resolved once constants exist.
	for _, id := range p.module.Order {
		arr, ok := p.module.Objects[id].(*TypeArray)
		if !ok {
			continue
		}
		if _, err := p.module.ArrayLength(arr); err != nil {
			return withModule(err, p.name)
		}
	}
	return nil
}

// ArrayLength returns the value of the array's length constant.
func (m *Module) ArrayLength(arr *TypeArray) (uint32, error) {
	c, ok := m.Objects[arr.Length].(*ConstantScalar)
	if !ok {
		return 0, NewError(ErrStructuralViolation, "array length %%%d is not a scalar constant", arr.Length)
	}
	if _, ok := m.Objects[c.Type].(*TypeInt); !ok {
		return 0, NewError(ErrStructuralViolation, "array length %%%d is not an integer", arr.Length)
	}
	if c.Value == 0 {
		return 0, NewError(ErrStructuralViolation, "array length %%%d is zero", arr.Length)
	}
	return c.Value, nil
}

// parseVariables is the third pass over the global section.
func (p *parser) parseVariables() error {
	for _, raw := range p.globals {
		if raw.Opcode != OpVariable {
			continue
		}
		ops := raw.Operands
		if len(ops) != 3 && len(ops) != 4 {
			return p.shapeError(raw)
		}
		typeID, id, storage := ObjectID(ops[0]), ObjectID(ops[1]), StorageClass(ops[2])
		ptr, ok := p.module.Objects[typeID].(*TypePointer)
		if !ok {
			return p.errorf(ErrStructuralViolation, raw, "variable %%%d has non-pointer type %%%d", id, typeID)
		}
		if !storage.supported() {
			return p.errorf(ErrUnsupportedFeature, raw, "storage class %s", storage)
		}
		if storage != ptr.StorageClass {
			return p.errorf(ErrStructuralViolation, raw, "variable %%%d storage class %s differs from pointer %s", id, storage, ptr.StorageClass)
		}
		v := &Variable{Type: typeID, Pointee: ptr.Pointee, StorageClass: storage}
		if len(ops) == 4 {
			if _, ok := p.module.Objects[ObjectID(ops[3])].(Constant); !ok {
				return p.errorf(ErrStructuralViolation, raw, "initializer %%%d is not a constant", ops[3])
			}
			v.Initializer = ObjectID(ops[3])
		}
		if err := p.addObject(raw, id, v); err != nil {
			return err
		}
		p.variables[id] = v
	}
	return nil
}

// parseDecorations applies OpDecorate and OpMemberDecorate to the types
// and variables they target.
func (p *parser) parseDecorations() error {
	for _, raw := range p.annotations {
		ops := raw.Operands
		switch raw.Opcode {
		case OpDecorateString, OpMemberDecorateString:
			// String decorations (HLSL semantics) carry no meaning here.
			continue

		case OpDecorate:
			if len(ops) < 2 {
				return p.shapeError(raw)
			}
			target := ObjectID(ops[0])
			var decs *Decorations
			switch obj := p.module.Objects[target].(type) {
			case *TypeStruct:
				decs = &obj.Decorations
			case *TypeArray:
				decs = &obj.Decorations
			case *Variable:
				decs = &obj.Decorations
			case nil:
				return p.errorf(ErrStructuralViolation, raw, "decoration targets unknown id %%%d", target)
			default:
				return p.errorf(ErrStructuralViolation, raw, "decoration %s on %%%d, which is neither a struct, an array nor a variable",
					Decoration(ops[1]), target)
			}
			if err := p.applyDecoration(raw, decs, Decoration(ops[1]), ops[2:]); err != nil {
				return err
			}

		case OpMemberDecorate:
			if len(ops) < 3 {
				return p.shapeError(raw)
			}
			st, ok := p.module.Objects[ObjectID(ops[0])].(*TypeStruct)
			if !ok {
				return p.errorf(ErrStructuralViolation, raw, "member decoration targets %%%d, which is not a struct", ops[0])
			}
			member := ops[1]
			if int(member) >= len(st.Members) {
				return p.errorf(ErrStructuralViolation, raw, "member %d out of range for struct %%%d", member, ops[0])
			}
			if err := p.applyDecoration(raw, &st.MemberDecorations[member], Decoration(ops[2]), ops[3:]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) applyDecoration(raw RawInstruction, decs *Decorations, dec Decoration, literals []uint32) error {
	literal := func() (*uint32, error) {
		if len(literals) != 1 {
			return nil, p.errorf(ErrMalformedBinary, raw, "decoration %s expects 1 literal, got %d", dec, len(literals))
		}
		v := literals[0]
		return &v, nil
	}

	var err error
	switch dec {
	case DecorationBuiltIn:
		var v *uint32
		if v, err = literal(); err == nil {
			b := BuiltIn(*v)
			decs.BuiltIn = &b
		}
	case DecorationLocation:
		decs.Location, err = literal()
	case DecorationOffset:
		decs.Offset, err = literal()
	case DecorationArrayStride:
		decs.ArrayStride, err = literal()
	case DecorationDescriptorSet:
		decs.DescriptorSet, err = literal()
	case DecorationBinding:
		decs.Binding, err = literal()
	case DecorationBlock:
		decs.Block = true
	case DecorationRelaxedPrecision:
		decs.RelaxedPrecision = true
	case DecorationNoPerspective, DecorationFlat, DecorationCentroid, DecorationSample,
		DecorationInvariant, DecorationRestrict, DecorationVolatile, DecorationCoherent,
		DecorationNonWritable, DecorationNonReadable, DecorationColMajor, DecorationRowMajor,
		DecorationMatrixStride, DecorationComponent, DecorationIndex:
		// Interpolation and access qualifiers do not change interpretation.
	default:
		return p.errorf(ErrUnsupportedFeature, raw, "decoration %s", dec)
	}
	return err
}

// validateStructs checks block layout rules: only Block structs carry
// offsets, every Block member has an offset or a built-in, and array
// members carry a stride.
func (p *parser) validateStructs() error {
	for _, id := range p.module.Order {
		st, ok := p.module.Objects[id].(*TypeStruct)
		if !ok {
			continue
		}
		for i, member := range st.Members {
			decs := st.MemberDecorations[i]
			if decs.Offset != nil && !st.Decorations.Block {
				return &Error{
					Kind:    ErrStructuralViolation,
					Module:  p.name,
					Offset:  -1,
					Message: fmt.Sprintf("struct %%%d member %d has an offset but the struct is not a Block", id, i),
				}
			}
			if st.Decorations.Block && decs.Offset == nil && decs.BuiltIn == nil {
				return &Error{
					Kind:    ErrStructuralViolation,
					Module:  p.name,
					Offset:  -1,
					Message: fmt.Sprintf("Block struct %%%d member %d has no offset", id, i),
				}
			}
			if arr, ok := p.module.Objects[member].(*TypeArray); ok && decs.BuiltIn == nil && arr.Decorations.ArrayStride == nil {
				return &Error{
					Kind:    ErrStructuralViolation,
					Module:  p.name,
					Offset:  -1,
					Message: fmt.Sprintf("struct %%%d member %d is an array without ArrayStride", id, i),
				}
			}
		}
	}
	return nil
}

// parseFunctions decodes every function definition.
func (p *parser) parseFunctions() error {
	var (
		fn        *Function
		inBlock   bool
		labels    map[ObjectID]bool
		labelUses []labelUse
	)

	for _, raw := range p.functions {
		ops := raw.Operands
		switch raw.Opcode {
		case OpLine, OpNoLine, OpNop:
			continue

		case OpFunction:
			if fn != nil {
				return p.errorf(ErrStructuralViolation, raw, "nested OpFunction")
			}
			if len(ops) != 4 {
				return p.shapeError(raw)
			}
			id := ObjectID(ops[1])
			if _, err := p.lookupType(raw, ObjectID(ops[0])); err != nil {
				return err
			}
			if _, ok := p.module.Objects[ObjectID(ops[3])].(*TypeFunction); !ok {
				return p.errorf(ErrStructuralViolation, raw, "function %%%d has non-function type %%%d", id, ops[3])
			}
			if err := p.define(raw, id); err != nil {
				return err
			}
			fn = &Function{ID: id, ResultType: ObjectID(ops[0]), FunctionType: ObjectID(ops[3])}
			labels = make(map[ObjectID]bool)
			labelUses = labelUses[:0]
			inBlock = false
			continue

		case OpFunctionParameter:
			return p.errorf(ErrUnsupportedFeature, raw, "function parameters")

		case OpFunctionEnd:
			if fn == nil {
				return p.errorf(ErrStructuralViolation, raw, "OpFunctionEnd outside a function")
			}
			if inBlock {
				return p.errorf(ErrStructuralViolation, raw, "function %%%d ends inside an unterminated block", fn.ID)
			}
			for _, use := range labelUses {
				if !labels[use.label] {
					return p.errorf(ErrStructuralViolation, use.raw, "branch to unknown label %%%d", use.label)
				}
			}
			p.module.Functions[fn.ID] = fn
			fn = nil
			continue
		}

		if fn == nil {
			return p.errorf(ErrStructuralViolation, raw, "%s outside a function", raw.Opcode)
		}

		inst, err := p.decodeInstruction(raw)
		if err != nil {
			return err
		}

		if label, ok := inst.(*Label); ok {
			if inBlock {
				return p.errorf(ErrStructuralViolation, raw, "block ends without a terminator before label %%%d", label.ID)
			}
			if err := p.define(raw, label.ID); err != nil {
				return err
			}
			labels[label.ID] = true
			inBlock = true
			fn.Body = append(fn.Body, inst)
			continue
		}

		if !inBlock {
			return p.errorf(ErrStructuralViolation, raw, "%s before the first label of a block", raw.Opcode)
		}

		values, targets := references(inst)
		for _, id := range values {
			if !p.defined[id] {
				return p.errorf(ErrStructuralViolation, raw, "%s references undefined id %%%d", raw.Opcode, id)
			}
		}
		for _, target := range targets {
			labelUses = append(labelUses, labelUse{label: target, raw: raw})
		}
		if res, ok := inst.(ResultInstruction); ok {
			if _, err := p.lookupType(raw, res.ResultTypeID()); err != nil {
				return err
			}
			if err := p.define(raw, res.ResultID()); err != nil {
				return err
			}
		}
		if local, ok := inst.(*LocalVariable); ok && local.StorageClass != StorageClassFunction {
			return p.errorf(ErrStructuralViolation, raw, "function-scope variable with storage class %s", local.StorageClass)
		}

		fn.Body = append(fn.Body, inst)
		if isTerminator(inst) {
			inBlock = false
		}
	}

	if fn != nil {
		return &Error{Kind: ErrMalformedBinary, Module: p.name, Offset: -1, Message: fmt.Sprintf("function %%%d has no OpFunctionEnd", fn.ID)}
	}
	return nil
}

type labelUse struct {
	label ObjectID
	raw   RawInstruction
}

func isTerminator(inst Instruction) bool {
	switch inst.(type) {
	case *Branch, *BranchConditional, *Return, *Kill:
		return true
	}
	return false
}

// resolveEntryPoint checks that the entry point names a parsed function
// and that its interface lists global variables.
func (p *parser) resolveEntryPoint() error {
	entry := &p.module.EntryPoint
	if _, ok := p.module.Functions[entry.Function]; !ok {
		return &Error{
			Kind:    ErrEntryPointMissing,
			Module:  p.name,
			Offset:  -1,
			Message: fmt.Sprintf("entry point %q names %%%d, which is not a function", entry.Name, entry.Function),
		}
	}
	for _, id := range entry.Interface {
		if _, ok := p.variables[id]; !ok {
			return &Error{
				Kind:    ErrStructuralViolation,
				Module:  p.name,
				Offset:  -1,
				Message: fmt.Sprintf("entry point interface %%%d is not a global variable", id),
			}
		}
	}
	return nil
}
