// Package main provides the entry point for armsim.
// armsim is an instruction-level emulator for 32-bit ARM programs.
//
// For the full CLI, use: go run ./cmd/armsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("armsim - 32-bit ARM instruction emulator")
	fmt.Println("")
	fmt.Println("Usage: armsim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config    Path to a JSON or YAML run configuration")
	fmt.Println("  -trace     Write a step trace to this file")
	fmt.Println("  -traceall  Trace steps in every processor mode")
	fmt.Println("  -mem       RAM size in bytes")
	fmt.Println("  -break     Comma-separated breakpoint addresses")
	fmt.Println("  -max-steps Stop after this many steps")
	fmt.Println("  -delay     Pause between steps in milliseconds")
	fmt.Println("  -keyboard  Deliver keystrokes as IRQs")
	fmt.Println("  -v         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/armsim' for the full CLI.")
	fmt.Println("Run 'go run ./cmd/armdis' to disassemble an ELF file.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/armsim' instead.")
	}
}
