package interp

import (
	"fmt"

	"github.com/szx/vkswr/il"
)

const (
	// DefaultMemorySize is the scratch memory of one invocation.
	DefaultMemorySize = 16 << 10

	// MinMemorySize is the smallest accepted scratch memory size.
	MinMemorySize = 10000

	// DefaultMaxInstructions bounds the instructions one invocation may
	// execute.
	DefaultMaxInstructions = 1 << 20
)

// Option configures a Program.
type Option func(*config)

type config struct {
	memorySize      int
	maxInstructions int
}

// WithMemorySize sets the scratch memory size in bytes.
func WithMemorySize(n int) Option {
	return func(c *config) { c.memorySize = n }
}

// WithMaxInstructions sets the per-invocation instruction budget. Zero or
// negative disables the budget.
func WithMaxInstructions(n int) Option {
	return func(c *config) { c.maxInstructions = n }
}

// Program is an executable IL program. It is immutable and safe for
// concurrent use.
type Program struct {
	code   []il.Instruction
	labels map[il.LabelID]int
	config config
}

// NewProgram indexes the labels of code. Every label must be placed once.
func NewProgram(code []il.Instruction, opts ...Option) (*Program, error) {
	cfg := config{
		memorySize:      DefaultMemorySize,
		maxInstructions: DefaultMaxInstructions,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.memorySize < MinMemorySize {
		return nil, fmt.Errorf("interp: memory size %d is below the minimum of %d", cfg.memorySize, MinMemorySize)
	}

	labels := make(map[il.LabelID]int)
	for pc, inst := range code {
		l, ok := inst.(il.Label)
		if !ok {
			continue
		}
		if prev, dup := labels[l.ID]; dup {
			return nil, &ExecError{
				PC:          pc,
				Instruction: inst,
				Err:         fatalf("label @%d already placed at %d", l.ID, prev),
			}
		}
		labels[l.ID] = pc
	}

	slogger().Debug("interp: program built",
		"instructions", len(code),
		"labels", len(labels),
		"memory", cfg.memorySize)

	return &Program{code: code, labels: labels, config: cfg}, nil
}

// Len returns the number of instructions.
func (p *Program) Len() int { return len(p.code) }

// Label returns the instruction index of a label.
func (p *Program) Label(id il.LabelID) (int, bool) {
	pc, ok := p.labels[id]
	return pc, ok
}
