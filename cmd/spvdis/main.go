// spvdis - SPIR-V disassembler
// Prints the .spvasm text of a binary module.
package main

import (
	"fmt"
	"os"

	"github.com/szx/vkswr/spirv"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: spvdis <file.spv>")
		return
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	words, err := spirv.WordsFromBytes(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	text, err := spirv.Disassemble(words)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(text)
}
