package interp

import (
	"maps"
	"slices"

	"github.com/szx/vkswr/il"
)

// MaxClipDistances is the number of clip and cull distance lanes.
const MaxClipDistances = 8

// VertexInput is the pre-populated state of one vertex invocation.
type VertexInput struct {
	Position      [4]float32
	PointSize     float32
	VertexIndex   uint32
	ClipDistances [MaxClipDistances]float32
	CullDistances [MaxClipDistances]float32

	// Locations holds the raw words of each input location.
	Locations map[uint32][4]uint32
}

// VertexResult is the read-back state of one vertex invocation.
type VertexResult struct {
	Position      [4]float32
	PointSize     float32
	VertexIndex   uint32
	ClipDistances [MaxClipDistances]float32
	CullDistances [MaxClipDistances]float32

	// Outputs holds the raw words of every output location the shader
	// declared.
	Outputs map[uint32][4]uint32
}

// FragmentInput is the pre-populated state of one fragment invocation.
type FragmentInput struct {
	FragCoord [4]float32

	// Locations holds the raw words of each interpolated input location.
	Locations map[uint32][4]uint32
}

// FragmentResult is the read-back state of one fragment invocation.
type FragmentResult struct {
	FragCoord [4]float32
	Outputs   map[uint32][4]uint32
	Discarded bool
}

// RunVertex executes one vertex invocation.
func (p *Program) RunVertex(in VertexInput) (VertexResult, error) {
	m := p.NewMachine()
	if err := m.loadVertex(in); err != nil {
		return VertexResult{}, &ExecError{PC: -1, Err: err}
	}
	if err := m.Run(); err != nil {
		slogger().Debug("interp: vertex invocation failed", "index", in.VertexIndex, "err", err)
		return VertexResult{}, err
	}

	out := VertexResult{Outputs: m.readOutputs()}
	m.readFloats(il.BuiltinPosition, out.Position[:])
	var scalar [1]float32
	m.readFloats(il.BuiltinPointSize, scalar[:])
	out.PointSize = scalar[0]
	var index [1]uint32
	m.readWords(il.BuiltinVertexIndex, index[:])
	out.VertexIndex = index[0]
	m.readFloats(il.BuiltinClipDistance, out.ClipDistances[:])
	m.readFloats(il.BuiltinCullDistance, out.CullDistances[:])
	return out, nil
}

// RunFragment executes one fragment invocation.
func (p *Program) RunFragment(in FragmentInput) (FragmentResult, error) {
	m := p.NewMachine()
	if err := m.loadFragment(in); err != nil {
		return FragmentResult{}, &ExecError{PC: -1, Err: err}
	}
	if err := m.Run(); err != nil {
		slogger().Debug("interp: fragment invocation failed", "x", in.FragCoord[0], "y", in.FragCoord[1], "err", err)
		return FragmentResult{}, err
	}

	out := FragmentResult{Outputs: m.readOutputs(), Discarded: m.Discarded()}
	m.readFloats(il.BuiltinFragCoord, out.FragCoord[:])
	return out, nil
}

func (m *Machine) loadVertex(in VertexInput) error {
	if err := m.writeFloats(il.BuiltinPosition, in.Position[:]); err != nil {
		return err
	}
	if err := m.writeFloats(il.BuiltinPointSize, []float32{in.PointSize}); err != nil {
		return err
	}
	if err := m.writeWords(il.BuiltinVertexIndex, []uint32{in.VertexIndex}); err != nil {
		return err
	}
	if err := m.writeFloats(il.BuiltinClipDistance, in.ClipDistances[:]); err != nil {
		return err
	}
	if err := m.writeFloats(il.BuiltinCullDistance, in.CullDistances[:]); err != nil {
		return err
	}
	return m.loadLocations(in.Locations)
}

func (m *Machine) loadFragment(in FragmentInput) error {
	if err := m.writeFloats(il.BuiltinFragCoord, in.FragCoord[:]); err != nil {
		return err
	}
	return m.loadLocations(in.Locations)
}

// loadLocations fills the input location table in location order, so the
// memory layout does not depend on map iteration.
func (m *Machine) loadLocations(locations map[uint32][4]uint32) error {
	for _, loc := range slices.Sorted(maps.Keys(locations)) {
		h, err := m.allocLanes(4)
		if err != nil {
			return err
		}
		words := locations[loc]
		a := m.vars.arrays[h.Index]
		for i, w := range words {
			m.mem.setWord(a.lane(uint32(i)), w)
		}
		m.inputs[loc] = h
	}
	return nil
}

func (m *Machine) writeWords(b il.Builtin, words []uint32) error {
	h, err := m.builtin(b)
	if err != nil {
		return err
	}
	a := m.vars.arrays[h.Index]
	for i, w := range words[:min(uint32(len(words)), a.Len())] {
		m.mem.setWord(a.lane(uint32(i)), w)
	}
	return nil
}

func (m *Machine) writeFloats(b il.Builtin, values []float32) error {
	words := make([]uint32, len(values))
	for i, v := range values {
		words[i] = bits(v)
	}
	return m.writeWords(b, words)
}

// readWords copies lanes of a built-in slot into dst. Slots the
// invocation never touched read as zero.
func (m *Machine) readWords(b il.Builtin, dst []uint32) {
	h, ok := m.builtins[b]
	if !ok {
		return
	}
	a := m.vars.arrays[h.Index]
	for i := range min(uint32(len(dst)), a.Len()) {
		dst[i] = m.mem.word(a.lane(i))
	}
}

func (m *Machine) readFloats(b il.Builtin, dst []float32) {
	words := make([]uint32, len(dst))
	m.readWords(b, words)
	for i, w := range words {
		dst[i] = f32(w)
	}
}

func (m *Machine) readOutputs() map[uint32][4]uint32 {
	if len(m.outputs) == 0 {
		return nil
	}
	outputs := make(map[uint32][4]uint32, len(m.outputs))
	for loc, h := range m.outputs {
		var words [4]uint32
		a := m.vars.arrays[h.Index]
		for i := range min(a.Len(), 4) {
			words[i] = m.mem.word(a.lane(i))
		}
		outputs[loc] = words
	}
	return outputs
}
