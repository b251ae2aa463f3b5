package il

import (
	"fmt"
	"strings"
)

// Format renders a program as text, one numbered instruction per line.
func Format(prog []Instruction) string {
	var b strings.Builder
	for i, inst := range prog {
		fmt.Fprintf(&b, "%4d  %s\n", i, FormatInstruction(inst))
	}
	return b.String()
}

// FormatInstruction renders a single instruction. Variables print as %n,
// labels as @n.
func FormatInstruction(inst Instruction) string {
	switch inst := inst.(type) {
	case Label:
		return fmt.Sprintf("Label @%d", inst.ID)
	case VariableDecl:
		return fmt.Sprintf("VariableDecl %%%d: %s", inst.ID, inst.Decl)
	case StoreImm32:
		return fmt.Sprintf("StoreImm32 %%%d <- 0x%08X", inst.Dst, inst.Imm)
	case StoreImm32Array:
		words := make([]string, len(inst.Imm))
		for i, w := range inst.Imm {
			words[i] = fmt.Sprintf("0x%08X", w)
		}
		return fmt.Sprintf("StoreImm32Array %%%d <- [%s]", inst.Dst, strings.Join(words, ", "))
	case LoadVariableOffset:
		return fmt.Sprintf("LoadVariableOffset %%%d <- %%%d[%s]", inst.ID, inst.Base, variables(inst.Offsets))
	case LoadVariableImmOffset:
		return fmt.Sprintf("LoadVariableImmOffset %%%d <- %%%d.%d", inst.ID, inst.Base, inst.Offset)
	case StoreVariable:
		return fmt.Sprintf("StoreVariable *%%%d <- %%%d", inst.DstPointer, inst.Src)
	case StoreVariableArray:
		return fmt.Sprintf("StoreVariableArray %%%d <- {%s}", inst.Dst, variables(inst.Values))
	case LoadVariable:
		return fmt.Sprintf("LoadVariable %%%d <- *%%%d", inst.ID, inst.SrcPointer)
	case MathMulVectorScalar:
		return fmt.Sprintf("MathMulVectorScalar %%%d <- %%%d, %%%d", inst.ID, inst.Vector, inst.Scalar)
	case Math:
		return fmt.Sprintf("%s %%%d <- %%%d, %%%d", inst.Op, inst.ID, inst.Op1, inst.Op2)
	case Convert:
		return fmt.Sprintf("%s %%%d <- %%%d", inst.Op, inst.ID, inst.Src)
	case Select:
		return fmt.Sprintf("Select %%%d <- %%%d ? %%%d : %%%d", inst.ID, inst.Condition, inst.Accept, inst.Reject)
	case SelectionMerge:
		return fmt.Sprintf("SelectionMerge @%d", inst.Merge)
	case LoopMerge:
		return fmt.Sprintf("LoopMerge @%d continue @%d", inst.Merge, inst.Continue)
	case Branch:
		return fmt.Sprintf("Branch @%d", inst.Target)
	case BranchConditional:
		return fmt.Sprintf("BranchConditional %%%d ? @%d : @%d", inst.Condition, inst.True, inst.False)
	case Return:
		return "Return"
	case Kill:
		return "Kill"
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%T", inst)
	}
}

func variables(vs []Variable) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%%%d", v)
	}
	return strings.Join(parts, ", ")
}
