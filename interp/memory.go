package interp

import (
	"encoding/binary"
	"math"
)

// laneSize is the width of every scalar lane.
const laneSize = 4

// Region is a span of scratch memory.
type Region struct {
	Address uint32
	Size    uint32
}

// memory is a bump-allocated scratch buffer. Allocations are never freed;
// the whole buffer is dropped with its Machine.
type memory struct {
	buf  []byte
	last uint32
}

func newMemory(size int) *memory {
	return &memory{buf: make([]byte, size)}
}

// alloc reserves size bytes aligned to the lane size. Fresh memory is
// zeroed.
func (m *memory) alloc(size uint32) (Region, error) {
	aligned := (size + laneSize - 1) &^ (laneSize - 1)
	if uint64(m.last)+uint64(aligned) > uint64(len(m.buf)) {
		return Region{}, fatalf("out of scratch memory: need %d bytes, %d of %d free",
			aligned, uint32(len(m.buf))-m.last, len(m.buf))
	}
	r := Region{Address: m.last, Size: size}
	m.last += aligned
	return r, nil
}

// used returns the number of allocated bytes.
func (m *memory) used() uint32 { return m.last }

func (m *memory) word(addr uint32) uint32 {
	return binary.NativeEndian.Uint32(m.buf[addr:])
}

func (m *memory) setWord(addr, v uint32) {
	binary.NativeEndian.PutUint32(m.buf[addr:], v)
}

func (m *memory) float(addr uint32) float32 {
	return math.Float32frombits(m.word(addr))
}

func (m *memory) setFloat(addr uint32, v float32) {
	m.setWord(addr, math.Float32bits(v))
}

// copyRegion copies min(dst.Size, src.Size) bytes. Overlapping regions
// are handled like memmove.
func (m *memory) copyRegion(dst, src Region) {
	n := min(dst.Size, src.Size)
	copy(m.buf[dst.Address:dst.Address+n], m.buf[src.Address:src.Address+n])
}
