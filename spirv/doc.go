// Package spirv decodes SPIR-V shader binaries into a typed object graph.
//
// SPIR-V is the standard intermediate language for GPU shaders,
// used by Vulkan, OpenCL, and other APIs.
//
// # Parsing
//
// Parse validates a binary and returns a Module holding every global type,
// constant and variable plus the body of each function:
//
//	words, err := spirv.WordsFromBytes(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//	module, err := spirv.Parse("triangle.vert", words)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Only the subset needed by simple vertex and fragment shaders is accepted:
//   - 32-bit integer and float scalars, vectors, arrays and structs
//   - Input, Output, Function, Uniform and PushConstant storage
//   - Structured control flow (selection and loop merges, branches, kill)
//   - Exactly one Vertex or Fragment entry point
//
// Anything else fails with an *Error of kind ErrUnsupportedFeature.
//
// # Binary Writer
//
// ModuleBuilder constructs modules programmatically:
//
//	builder := spirv.NewShaderBuilder()
//	floatType := builder.AddTypeFloat(32)
//	vec4Type := builder.AddTypeVector(floatType, 4)
//	words := builder.BuildWords()
//
// # Disassembly
//
// Disassemble renders a binary in the textual form used by spirv-dis.
//
// # SPIR-V Structure
//
// SPIR-V modules consist of:
//   - Header (magic, version, generator, bound, schema)
//   - Capabilities (required features)
//   - Extensions (optional extensions)
//   - Extended instruction imports (GLSL.std.450, etc.)
//   - Memory model (addressing and memory model)
//   - Entry points (shader entry functions)
//   - Execution modes (shader configuration)
//   - Debug information (names, source info)
//   - Annotations (decorations)
//   - Types and constants
//   - Global variables
//   - Functions (code)
//
// # References
//
// SPIR-V Specification: https://registry.khronos.org/SPIR-V/specs/unified1/SPIRV.html
package spirv
