// Package vkswr provides the software shader core of a Vulkan-class driver.
//
// vkswr decodes SPIR-V shader modules, lowers them to a linear IL, and
// interprets the IL on a software machine modelling the vertex and
// fragment stages:
//
//	words ─► spirv.Parse ─► il.Lower ─► il.Validate ─► interp.NewProgram
//
// A compiled Shader is immutable and may be shared between goroutines.
// ExecuteVertex and ExecuteFragment run one invocation per input and
// return the outputs in input order.
//
// Example usage:
//
//	shader, err := vkswr.Compile("main.vert", words)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := vkswr.ExecuteVertex(ctx, shader, vkswr.VertexInputState{}, []vkswr.Vertex{
//	    {Position: [4]float32{0, 0, 0, 1}},
//	})
package vkswr

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/szx/vkswr/il"
	"github.com/szx/vkswr/interp"
	"github.com/szx/vkswr/spirv"
)

var (
	// ErrInvalidShader is wrapped by every Compile failure.
	ErrInvalidShader = errors.New("vkswr: invalid shader")

	// ErrStageMismatch is returned when a shader runs on the wrong stage.
	ErrStageMismatch = errors.New("vkswr: shader stage mismatch")
)

// Options configures shader compilation and execution.
type Options struct {
	// Workers is the number of goroutines invocations run on. Values
	// below 2 run invocations sequentially on the calling goroutine.
	Workers int

	// MemorySize is the scratch memory of one invocation in bytes.
	MemorySize int

	// MaxInstructions bounds the instructions one invocation may
	// execute. Zero disables the bound.
	MaxInstructions int

	// Validate enables IL validation before the program is built.
	Validate bool
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		Workers:         1,
		MemorySize:      interp.DefaultMemorySize,
		MaxInstructions: interp.DefaultMaxInstructions,
		Validate:        true,
	}
}

// Option modifies Options.
type Option func(*Options)

// WithWorkers sets the number of invocation workers.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithMemorySize sets the per-invocation scratch memory size.
func WithMemorySize(n int) Option {
	return func(o *Options) { o.MemorySize = n }
}

// WithMaxInstructions sets the per-invocation instruction budget.
func WithMaxInstructions(n int) Option {
	return func(o *Options) { o.MaxInstructions = n }
}

// WithValidation enables or disables IL validation.
func WithValidation(enabled bool) Option {
	return func(o *Options) { o.Validate = enabled }
}

// Shader is a compiled shader module.
type Shader struct {
	name    string
	module  *spirv.Module
	code    []il.Instruction
	program *interp.Program
	opts    Options
}

// Compile compiles a SPIR-V module using default options modified by
// opts.
func Compile(name string, words []uint32, opts ...Option) (*Shader, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return CompileWithOptions(name, words, o)
}

// CompileWithOptions compiles a SPIR-V module.
//
// The compilation pipeline is:
//  1. Parse the binary into a module
//  2. Lower the module to IL
//  3. Validate the IL (if enabled)
//  4. Build the executable program
//
// Every failure wraps ErrInvalidShader; parse and lowering failures also
// wrap a *spirv.Error.
func CompileWithOptions(name string, words []uint32, opts Options) (*Shader, error) {
	module, err := spirv.Parse(name, words)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShader, err)
	}

	code, err := il.Lower(module)
	if err != nil {
		return nil, fmt.Errorf("%w: lowering error: %w", ErrInvalidShader, err)
	}

	if opts.Validate {
		if errs := il.Validate(code); len(errs) > 0 {
			return nil, fmt.Errorf("%w: validation failed: %w", ErrInvalidShader, errs[0])
		}
	}

	program, err := interp.NewProgram(code,
		interp.WithMemorySize(opts.MemorySize),
		interp.WithMaxInstructions(opts.MaxInstructions))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShader, err)
	}

	s := &Shader{name: name, module: module, code: code, program: program, opts: opts}
	Logger().Debug("vkswr: shader compiled",
		"name", name,
		"stage", s.Stage(),
		"words", len(words),
		"instructions", len(code))
	return s, nil
}

// Name returns the name the shader was compiled under.
func (s *Shader) Name() string { return s.name }

// Stage returns the pipeline stage of the entry point.
func (s *Shader) Stage() gputypes.ShaderStage {
	switch s.module.EntryPoint.Model {
	case spirv.ExecutionModelVertex:
		return gputypes.ShaderStageVertex
	case spirv.ExecutionModelFragment:
		return gputypes.ShaderStageFragment
	}
	return gputypes.ShaderStageNone
}

// EntryPoint returns the entry point name.
func (s *Shader) EntryPoint() string { return s.module.EntryPoint.Name }

// Module returns the parsed module.
func (s *Shader) Module() *spirv.Module { return s.module }

// IL returns the lowered program. The slice must not be modified.
func (s *Shader) IL() []il.Instruction { return s.code }

// Options returns the options the shader was compiled with.
func (s *Shader) Options() Options { return s.opts }

// Program returns the executable program.
func (s *Shader) Program() *interp.Program { return s.program }
