// Package trace writes per-step execution trace logs.
//
// Each traced step produces one line:
//
//	000001 00001000 3FFF8000 0010 SYS 0=00000000 1=0000002A ... 14=00000000
//
// holding the step number, the address of the executed instruction, the RAM
// checksum, the flags in N C Z V order, the processor mode name, and r0-r14.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// SystemMode is the mode name of steps traced by default.
const SystemMode = "SYS"

// DefaultFileName is the conventional trace log name.
const DefaultFileName = "trace.log"

// Record is the machine state after one step.
type Record struct {
	Step     uint64
	PC       uint32
	Checksum uint32

	N, Z, C, V bool

	Mode string
	Regs [15]uint32
}

// Format renders a record as a trace line without the trailing newline.
func Format(rec Record) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%06d %08X %08X %d%d%d%d %s",
		rec.Step, rec.PC, rec.Checksum,
		digit(rec.N), digit(rec.C), digit(rec.Z), digit(rec.V),
		rec.Mode)

	for i, r := range rec.Regs {
		fmt.Fprintf(&sb, " %d=%08X", i, r)
	}

	return sb.String()
}

func digit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Writer appends trace lines to an io.Writer. It is safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	w        *bufio.Writer
	closer   io.Closer
	traceAll bool
}

// WriterOption is a functional option for configuring a Writer.
type WriterOption func(*Writer)

// WithTraceAll records steps in every mode, not only System mode.
func WithTraceAll(all bool) WriterOption {
	return func(w *Writer) {
		w.traceAll = all
	}
}

// NewWriter creates a trace writer over w.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	tw := &Writer{w: bufio.NewWriter(w)}

	for _, opt := range opts {
		opt(tw)
	}

	return tw
}

// Open creates or truncates the trace file at path.
func Open(path string, opts ...WriterOption) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	tw := NewWriter(f, opts...)
	tw.closer = f

	return tw, nil
}

// Write appends rec unless it is filtered out by mode.
func (w *Writer) Write(rec Record) error {
	if !w.traceAll && rec.Mode != SystemMode {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.WriteString(Format(rec) + "\n"); err != nil {
		return fmt.Errorf("failed to write trace line: %w", err)
	}

	return nil
}

// Flush writes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.w.Flush()
}

// Close flushes buffered lines and closes the file opened by Open.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}

	if w.closer != nil {
		return w.closer.Close()
	}

	return nil
}
