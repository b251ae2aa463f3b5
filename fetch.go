package vkswr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
)

// VertexInputState binds vertex buffers to a vertex shader's input
// locations. Buffers[i] describes the layout of Data[i].
type VertexInputState struct {
	Buffers []gputypes.VertexBufferLayout
	Data    [][]byte
}

// fetch reads the attributes of one vertex into location words.
// Components the format does not carry default to (0, 0, 0, 1).
func (s VertexInputState) fetch(vertex, instance uint32) (map[uint32][4]uint32, error) {
	if len(s.Buffers) == 0 {
		return nil, nil
	}
	if len(s.Data) != len(s.Buffers) {
		return nil, fmt.Errorf("vertex input: %d buffer layouts but %d data slices", len(s.Buffers), len(s.Data))
	}

	locations := make(map[uint32][4]uint32)
	for b, layout := range s.Buffers {
		var element uint64
		switch layout.StepMode {
		case gputypes.VertexStepModeVertexBufferNotUsed:
			continue
		case gputypes.VertexStepModeInstance:
			element = uint64(instance)
		default:
			element = uint64(vertex)
		}

		for _, attr := range layout.Attributes {
			start := element*layout.ArrayStride + attr.Offset
			size := attr.Format.Size()
			if size == 0 || start+size > uint64(len(s.Data[b])) {
				return nil, fmt.Errorf("vertex input: location %d reads bytes [%d, %d) of buffer %d with %d bytes",
					attr.ShaderLocation, start, start+size, b, len(s.Data[b]))
			}
			words, err := decodeAttribute(attr.Format, s.Data[b][start:start+size])
			if err != nil {
				return nil, fmt.Errorf("vertex input: location %d: %w", attr.ShaderLocation, err)
			}
			locations[attr.ShaderLocation] = words
		}
	}
	return locations, nil
}

func decodeAttribute(format gputypes.VertexFormat, data []byte) ([4]uint32, error) {
	var one uint32
	var count int
	switch format {
	case gputypes.VertexFormatFloat32, gputypes.VertexFormatFloat32x2,
		gputypes.VertexFormatFloat32x3, gputypes.VertexFormatFloat32x4:
		one = math.Float32bits(1)
		count = len(data) / 4
	case gputypes.VertexFormatUint32, gputypes.VertexFormatUint32x2,
		gputypes.VertexFormatUint32x3, gputypes.VertexFormatUint32x4,
		gputypes.VertexFormatSint32, gputypes.VertexFormatSint32x2,
		gputypes.VertexFormatSint32x3, gputypes.VertexFormatSint32x4:
		one = 1
		count = len(data) / 4
	case gputypes.VertexFormatUnorm8x4:
		var words [4]uint32
		for i, b := range data[:4] {
			words[i] = math.Float32bits(float32(b) / 255)
		}
		return words, nil
	default:
		return [4]uint32{}, fmt.Errorf("unsupported vertex format %v", format)
	}

	words := [4]uint32{0, 0, 0, one}
	for i := range count {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}
