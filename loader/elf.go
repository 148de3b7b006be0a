// Package loader provides ELF binary loading for 32-bit ARM executables.
package loader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// DefaultStackTop is the initial stack pointer for loaded programs.
const DefaultStackTop = 0x7000

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// PhysAddr is the RAM address the segment is copied to.
	PhysAddr uint32
	// VirtAddr is the segment's link-time virtual address.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory; bytes past len(Data) are zero-filled.
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// End returns the first address past the segment in memory.
func (s Segment) End() uint64 {
	return uint64(s.PhysAddr) + uint64(s.MemSize)
}

// Program represents a parsed ELF program ready to be copied into RAM.
type Program struct {
	// EntryPoint is the address of the first instruction.
	EntryPoint uint32
	// Segments contains all PT_LOAD segments.
	Segments []Segment
	// ByteOrder is the data encoding declared by the ELF header.
	ByteOrder binary.ByteOrder
	// InitialSP is the initial stack pointer value.
	InitialSP uint32
}

// Load opens and parses a 32-bit ARM ELF executable.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parse(f)
}

// Parse parses a 32-bit ARM ELF executable from r.
func Parse(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	return parse(f)
}

func parse(f *elf.File) (*Program, error) {
	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file (class: %v)", f.Class)
	}

	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("not an ARM ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		ByteOrder:  f.ByteOrder,
		InitialSP:  DefaultStackTop,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		if phdr.Filesz > phdr.Memsz {
			return nil, fmt.Errorf("segment at 0x%x has file size %d larger than memory size %d",
				phdr.Paddr, phdr.Filesz, phdr.Memsz)
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Paddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Paddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			PhysAddr: uint32(phdr.Paddr),
			VirtAddr: uint32(phdr.Vaddr),
			Data:     data,
			MemSize:  uint32(phdr.Memsz),
			Flags:    flags,
		})
	}

	return prog, nil
}

// Fits reports whether every segment lies within a memory of the given size.
func (p *Program) Fits(memSize int) error {
	for _, seg := range p.Segments {
		if seg.End() > uint64(memSize) {
			return fmt.Errorf("segment 0x%08x-0x%08x does not fit in %d bytes of memory",
				seg.PhysAddr, seg.End(), memSize)
		}
	}
	return nil
}
