package spirv

import (
	"encoding/binary"
	"fmt"
)

// RawInstruction is one undecoded instruction of the word stream.
type RawInstruction struct {
	Opcode OpCode
	// Operands holds every word after the opcode word.
	Operands []uint32
	// Offset is the word index of the opcode word within the module.
	Offset int
}

// WordsFromBytes converts a little-endian SPIR-V file into words.
func WordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, &Error{
			Kind:    ErrMalformedBinary,
			Offset:  len(data) / 4,
			Message: fmt.Sprintf("byte length %d is not a multiple of 4", len(data)),
		}
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return words, nil
}

// BytesFromWords converts words into a little-endian SPIR-V file image.
func BytesFromWords(words []uint32) []byte {
	data := make([]byte, len(words)*4)
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[i*4:], w)
	}
	return data
}

// Decode splits a module into its header and raw instructions.
func Decode(words []uint32) (Header, []RawInstruction, error) {
	if len(words) < HeaderWords {
		return Header{}, nil, &Error{
			Kind:    ErrMalformedBinary,
			Offset:  len(words),
			Message: fmt.Sprintf("module has %d words, header needs %d", len(words), HeaderWords),
		}
	}
	if words[0] != MagicNumber {
		return Header{}, nil, &Error{
			Kind:    ErrMalformedBinary,
			Offset:  0,
			Message: fmt.Sprintf("invalid magic number 0x%08X", words[0]),
		}
	}

	header := Header{
		Version:   Version{Major: uint8(words[1] >> 16), Minor: uint8(words[1] >> 8)},
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}

	insts := make([]RawInstruction, 0, (len(words)-HeaderWords)/4)
	for offset := HeaderWords; offset < len(words); {
		word := words[offset]
		opcode := OpCode(word & 0xFFFF)
		wordCount := int(word >> 16)

		if wordCount == 0 {
			return header, nil, &Error{
				Kind:    ErrMalformedBinary,
				Offset:  offset,
				Message: fmt.Sprintf("%s has word count 0", opcode),
			}
		}
		if offset+wordCount > len(words) {
			return header, nil, &Error{
				Kind:    ErrMalformedBinary,
				Offset:  offset,
				Message: fmt.Sprintf("%s needs %d words, %d remain", opcode, wordCount, len(words)-offset),
			}
		}

		insts = append(insts, RawInstruction{
			Opcode:   opcode,
			Operands: words[offset+1 : offset+wordCount],
			Offset:   offset,
		})
		offset += wordCount
	}

	return header, insts, nil
}

// decodeString reads a null-terminated UTF-8 literal packed into words and
// returns the string and the number of words it occupied.
func decodeString(words []uint32) (string, int, bool) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), i + 1, true
			}
			buf = append(buf, b)
		}
	}
	return "", 0, false
}
