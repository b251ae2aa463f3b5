package spirv

import (
	"encoding/binary"
	"testing"
)

func TestModuleBuilder_MinimalModule(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)
	builder.AddCapability(CapabilityShader)
	builder.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	data := builder.Build()

	// Verify header (5 words = 20 bytes)
	if len(data) < 20 {
		t.Fatalf("Module too small: got %d bytes, want at least 20", len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != MagicNumber {
		t.Errorf("Invalid magic number: got 0x%08X, want 0x%08X", magic, MagicNumber)
	}

	version := binary.LittleEndian.Uint32(data[4:8])
	expectedVersion := uint32(1<<16 | 3<<8) // Version 1.3
	if version != expectedVersion {
		t.Errorf("Invalid version: got 0x%08X, want 0x%08X", version, expectedVersion)
	}

	bound := binary.LittleEndian.Uint32(data[12:16])
	if bound == 0 {
		t.Error("Bound should be > 0")
	}

	schema := binary.LittleEndian.Uint32(data[16:20])
	if schema != 0 {
		t.Errorf("Schema should be 0, got %d", schema)
	}
}

func TestModuleBuilder_BuildMatchesBuildWords(t *testing.T) {
	builder := NewShaderBuilder()
	floatType := builder.AddTypeFloat(32)
	builder.AddTypeVector(floatType, 4)

	words := builder.BuildWords()
	data := builder.Build()
	if len(data) != len(words)*4 {
		t.Fatalf("Build() = %d bytes, BuildWords() = %d words", len(data), len(words))
	}

	decoded, err := WordsFromBytes(data)
	if err != nil {
		t.Fatalf("WordsFromBytes() error = %v", err)
	}
	for i := range words {
		if decoded[i] != words[i] {
			t.Fatalf("word %d = 0x%08X, want 0x%08X", i, decoded[i], words[i])
		}
	}
}

func TestInstructionBuilder_String(t *testing.T) {
	tests := []struct {
		text  string
		words int
	}{
		{"", 1},
		{"abc", 1},
		{"main", 2},
		{"hello", 2},
		{"GLSL.std.450", 4},
	}

	for _, tt := range tests {
		builder := NewInstructionBuilder()
		builder.AddString(tt.text)
		inst := builder.Build(OpName)

		if len(inst.Operands) != tt.words {
			t.Errorf("AddString(%q) produced %d words, want %d", tt.text, len(inst.Operands), tt.words)
		}
		got, n, ok := decodeString(inst.Operands)
		if !ok || got != tt.text || n != tt.words {
			t.Errorf("decodeString() = %q, %d, %v; want %q, %d, true", got, n, ok, tt.text, tt.words)
		}
	}
}

func TestRawInstruction_Encode(t *testing.T) {
	inst := RawInstruction{Opcode: OpTypeVector, Operands: []uint32{4, 3, 4}}
	encoded := inst.Encode()

	if len(encoded) != 4 {
		t.Fatalf("Encode() produced %d words, want 4", len(encoded))
	}
	if wordCount := encoded[0] >> 16; wordCount != 4 {
		t.Errorf("word count = %d, want 4", wordCount)
	}
	if op := OpCode(encoded[0] & 0xFFFF); op != OpTypeVector {
		t.Errorf("opcode = %v, want OpTypeVector", op)
	}
}

func TestModuleBuilder_IDAllocation(t *testing.T) {
	builder := NewModuleBuilder(Version1_3)

	id1 := builder.AllocID()
	id2 := builder.AllocID()
	id3 := builder.AllocID()

	if id1 >= id2 || id2 >= id3 {
		t.Error("IDs should be strictly increasing")
	}
	if id1 == 0 {
		t.Error("IDs should never be 0")
	}

	words := builder.BuildWords()
	if words[3] != uint32(id3)+1 {
		t.Errorf("bound = %d, want %d", words[3], id3+1)
	}
}
