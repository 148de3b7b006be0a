// Package main provides the armdis command, which prints a disassembly of
// the loadable segments of a 32-bit ARM ELF file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/armsim/insts"
	"github.com/sarchlab/armsim/loader"
)

var (
	allSegments = flag.Bool("all", false, "Disassemble non-executable segments too")
	showRaw     = flag.Bool("raw", true, "Show the raw instruction word")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: armdis [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	prog, err := loader.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	w := bufio.NewWriter(os.Stdout)
	disassemble(w, prog, *allSegments, *showRaw)

	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// disassemble writes one line per word of each selected segment. Trailing
// bytes that do not fill a word are skipped.
func disassemble(w io.Writer, prog *loader.Program, all, raw bool) {
	decoder := insts.NewDecoder()

	for _, seg := range prog.Segments {
		if !all && seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}

		fmt.Fprintf(w, "segment 0x%08x (%d bytes)\n", seg.PhysAddr, len(seg.Data))

		for off := 0; off+4 <= len(seg.Data); off += 4 {
			addr := seg.PhysAddr + uint32(off)
			word := prog.ByteOrder.Uint32(seg.Data[off:])

			marker := "  "
			if addr == prog.EntryPoint {
				marker = "=>"
			}

			if raw {
				fmt.Fprintf(w, "%s %08x:  %08x  %s\n", marker, addr, word, decoder.Decode(word).StringAt(addr))
			} else {
				fmt.Fprintf(w, "%s %08x:  %s\n", marker, addr, decoder.Decode(word).StringAt(addr))
			}
		}
	}
}
