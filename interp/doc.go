// Package interp executes IL programs on a software shader machine.
//
// A Program is built once from lowered IL and is immutable; it may be run
// concurrently from any number of goroutines. Each call to RunVertex or
// RunFragment creates a fresh Machine that owns its scratch memory,
// variable tables and program counter for exactly one invocation.
//
// # Memory Model
//
// Scratch memory is a flat byte buffer with a bump allocator. Every value
// lives in an array variable: a memory region plus the byte stride between
// its lanes. Struct variables group member handles, and pointer variables
// name the array or struct they currently target. Lanes are 32-bit words
// stored in native byte order.
//
// # Stage Interface
//
// Before a run, the stage entry points allocate the built-in slots
// (Position, PointSize, VertexIndex, ClipDistance, CullDistance for
// vertices; FragCoord for fragments) and the input locations, and fill
// them from the invocation input. Declarations with a built-in or location
// backing bind to these slots. After the run the same slots and every
// output location are read back.
//
// # Errors
//
// Execution failures are fatal for the invocation and are returned as
// *ExecError, which wraps ErrFatal.
package interp
