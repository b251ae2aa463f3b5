package spirv

import (
	"fmt"
	"math"
	"strings"
)

// Disassemble renders a module in spirv-dis style text. It only checks the
// binary framing, so modules that Parse rejects can still be inspected.
func Disassemble(words []uint32) (string, error) {
	header, insts, err := Decode(words)
	if err != nil {
		return "", err
	}

	d := &disassembler{floats: make(map[uint32]bool)}
	fmt.Fprintf(&d.sb, "; SPIR-V\n")
	fmt.Fprintf(&d.sb, "; Version: %d.%d\n", header.Version.Major, header.Version.Minor)
	fmt.Fprintf(&d.sb, "; Generator: 0x%08X\n", header.Generator)
	fmt.Fprintf(&d.sb, "; Bound: %d\n", header.Bound)
	fmt.Fprintf(&d.sb, "; Schema: %d\n", header.Schema)

	for _, raw := range insts {
		d.instruction(raw)
	}
	return d.sb.String(), nil
}

type disassembler struct {
	sb strings.Builder
	// floats records float type ids so constants print as numbers.
	floats map[uint32]bool
}

func idText(n uint32) string {
	return fmt.Sprintf("%%%d", n)
}

func idList(ops []uint32) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = idText(op)
	}
	return strings.Join(parts, " ")
}

func literals(ops []uint32) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = fmt.Sprintf("%d", op)
	}
	return strings.Join(parts, " ")
}

// statement writes an instruction without a result id.
func (d *disassembler) statement(op OpCode, operands ...string) {
	d.sb.WriteString("               ")
	d.sb.WriteString(op.String())
	for _, operand := range operands {
		if operand != "" {
			d.sb.WriteByte(' ')
			d.sb.WriteString(operand)
		}
	}
	d.sb.WriteByte('\n')
}

// result writes an instruction that defines an id, right-aligning the id
// the way spirv-dis does.
func (d *disassembler) result(resultID uint32, op OpCode, operands ...string) {
	fmt.Fprintf(&d.sb, "%12s = %s", idText(resultID), op)
	for _, operand := range operands {
		if operand != "" {
			d.sb.WriteByte(' ')
			d.sb.WriteString(operand)
		}
	}
	d.sb.WriteByte('\n')
}

//nolint:gocognit,gocyclo,cyclop,funlen // one case per instruction layout
func (d *disassembler) instruction(raw RawInstruction) {
	op, ops := raw.Opcode, raw.Operands
	n := len(ops)

	// Operands are read by index below; fall back to the generic form when
	// an instruction is shorter than its layout.
	need := func(k int) bool { return n >= k }

	switch {
	case op == OpCapability && need(1):
		d.statement(op, lookupName(capabilityNames, ops[0]))

	case op == OpExtension:
		s, _, _ := decodeString(ops)
		d.statement(op, fmt.Sprintf("%q", s))

	case op == OpExtInstImport && need(1):
		s, _, _ := decodeString(ops[1:])
		d.result(ops[0], op, fmt.Sprintf("%q", s))

	case op == OpMemoryModel && need(2):
		addressing := map[uint32]string{0: "Logical", 1: "Physical32", 2: "Physical64"}
		memory := map[uint32]string{0: "Simple", 1: "GLSL450", 2: "OpenCL", 3: "Vulkan"}
		d.statement(op, lookupName(addressing, ops[0]), lookupName(memory, ops[1]))

	case op == OpEntryPoint && need(3):
		s, words, _ := decodeString(ops[2:])
		d.statement(op, lookupName(executionModelNames, ops[0]), idText(ops[1]), fmt.Sprintf("%q", s), idList(ops[2+words:]))

	case op == OpExecutionMode && need(2):
		d.statement(op, idText(ops[0]), lookupName(executionModeNames, ops[1]), literals(ops[2:]))

	case op == OpName && need(1):
		s, _, _ := decodeString(ops[1:])
		d.statement(op, idText(ops[0]), fmt.Sprintf("%q", s))

	case op == OpMemberName && need(2):
		s, _, _ := decodeString(ops[2:])
		d.statement(op, idText(ops[0]), fmt.Sprintf("%d", ops[1]), fmt.Sprintf("%q", s))

	case op == OpDecorate && need(2):
		d.statement(op, idText(ops[0]), decorationText(ops[1], ops[2:]))

	case op == OpMemberDecorate && need(3):
		d.statement(op, idText(ops[0]), fmt.Sprintf("%d", ops[1]), decorationText(ops[2], ops[3:]))

	case (op == OpTypeVoid || op == OpTypeBool) && need(1):
		d.result(ops[0], op)

	case (op == OpTypeInt || op == OpTypeFloat) && need(1):
		if op == OpTypeFloat {
			d.floats[ops[0]] = true
		}
		d.result(ops[0], op, literals(ops[1:]))

	case (op == OpTypeVector || op == OpTypeMatrix) && need(3):
		d.result(ops[0], op, idText(ops[1]), fmt.Sprintf("%d", ops[2]))

	case (op == OpTypeArray || op == OpTypeStruct || op == OpTypeFunction || op == OpTypeRuntimeArray) && need(1):
		d.result(ops[0], op, idList(ops[1:]))

	case op == OpTypePointer && need(3):
		d.result(ops[0], op, lookupName(storageClassNames, ops[1]), idText(ops[2]))

	case op == OpConstant && need(3):
		value := literals(ops[2:])
		if d.floats[ops[0]] && n == 3 {
			value = fmt.Sprintf("%g", math.Float32frombits(ops[2]))
		}
		d.result(ops[1], op, idText(ops[0]), value)

	case op == OpVariable && need(3):
		d.result(ops[1], op, idText(ops[0]), lookupName(storageClassNames, ops[2]), idList(ops[3:]))

	case op == OpFunction && need(4):
		control := map[uint32]string{0: "None", 1: "Inline", 2: "DontInline"}
		d.result(ops[1], op, idText(ops[0]), lookupName(control, ops[2]), idText(ops[3]))

	case op == OpLabel && need(1):
		d.result(ops[0], op)

	case op == OpCompositeExtract && need(3):
		d.result(ops[1], op, idText(ops[0]), idText(ops[2]), literals(ops[3:]))

	case op == OpSelectionMerge && need(2):
		d.statement(op, idText(ops[0]), "None")

	case op == OpLoopMerge && need(3):
		d.statement(op, idText(ops[0]), idText(ops[1]), "None")

	case op == OpStore || op == OpBranch || op == OpBranchConditional ||
		op == OpReturn || op == OpKill || op == OpFunctionEnd || op == OpReturnValue:
		d.statement(op, idList(ops))

	case hasResult(op) && need(2):
		d.result(ops[1], op, idText(ops[0]), idList(ops[2:]))

	default:
		d.statement(op, literals(ops))
	}
}

func decorationText(dec uint32, params []uint32) string {
	name := lookupName(decorationNames, dec)
	if Decoration(dec) == DecorationBuiltIn && len(params) == 1 {
		return name + " " + lookupName(builtInNames, params[0])
	}
	if len(params) == 0 {
		return name
	}
	return name + " " + literals(params)
}

// hasResult reports whether op carries a result type and result id as its
// first two operands.
func hasResult(op OpCode) bool {
	switch {
	case binaryOps[op], convertOps[op]:
		return true
	}
	switch op {
	case OpConstantTrue, OpConstantFalse, OpConstantComposite,
		OpFunctionParameter, OpFunctionCall, OpLoad, OpAccessChain, OpInBoundsAccessChain,
		OpVectorShuffle, OpCompositeConstruct, OpFNegate, OpVectorTimesScalar,
		OpSelect, OpExtInst:
		return true
	}
	return false
}
