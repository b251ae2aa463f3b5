// Package il defines the linear shader IL executed by the interpreter.
//
// The IL is a flat instruction list over explicitly declared variables.
// Every variable is bound by a VariableDecl before any instruction reads
// it, and each declaration names the storage that backs the variable:
// scratch memory, a stage location, a built-in, or a composite of other
// declarations.
//
// # Structure
//
// Lower emits a program in four sections:
//   - Scalar constants: VariableDecl + StoreImm32
//   - Composite constants: VariableDecl + StoreImm32Array
//   - Global pointers: VariableDecl with a Pointer backing
//   - The entry function body, in source order
//
// # Translation Pipeline
//
//	SPIR-V words → spirv.Parse → *spirv.Module → il.Lower → []il.Instruction
//
// Validate checks the ordering rules and control-flow targets of a
// program; Format renders it as text for debugging and golden tests.
package il
