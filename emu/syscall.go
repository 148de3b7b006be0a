package emu

import (
	"fmt"

	"github.com/sarchlab/armsim/insts"
)

// SWI numbers.
const (
	SWIPutChar  uint32 = 0x00 // write the low byte of r0
	SWIExit     uint32 = 0x11 // halt
	SWIReadLine uint32 = 0x6a // read a line into [r1], at most r2 bytes
)

// executeSWI classifies a software interrupt. Exit halts, the two I/O
// services are deferred to the driver, and other numbers are no-ops.
func executeSWI(_ *Memory, _ *RegFile, inst *insts.Instruction) Outcome {
	switch inst.SWINumber {
	case SWIExit:
		return OutcomeHalt
	case SWIPutChar, SWIReadLine:
		return OutcomeSoftwareInterrupt
	default:
		return OutcomeContinue
	}
}

// SWIHandler services the software interrupts deferred by the execution
// engine. It runs after Supervisor-mode entry.
type SWIHandler interface {
	// Handle performs the service for the given SWI number.
	// Arguments are passed in r0-r2.
	Handle(number uint32) error
}

// DefaultSWIHandler services character output and line input through a
// Host.
type DefaultSWIHandler struct {
	regFile *RegFile
	memory  *Memory
	host    Host
}

// NewDefaultSWIHandler creates a default SWI handler.
func NewDefaultSWIHandler(regFile *RegFile, memory *Memory, host Host) *DefaultSWIHandler {
	return &DefaultSWIHandler{
		regFile: regFile,
		memory:  memory,
		host:    host,
	}
}

// Handle performs the service for the given SWI number.
func (h *DefaultSWIHandler) Handle(number uint32) error {
	switch number {
	case SWIPutChar:
		return h.handlePutChar()
	case SWIReadLine:
		return h.handleReadLine()
	default:
		return nil
	}
}

// handlePutChar writes the low byte of r0 to the host.
func (h *DefaultSWIHandler) handlePutChar() error {
	return h.host.WriteChar(byte(h.regFile.ReadReg(0)))
}

// handleReadLine blocks until the host supplies a line, then stores it at
// the address in r1 as a NUL-terminated string of at most r2 bytes.
func (h *DefaultSWIHandler) handleReadLine() error {
	buf := h.regFile.ReadReg(1)
	maxBytes := int(h.regFile.ReadReg(2))

	line, err := h.host.ReadLine(maxBytes)
	if err != nil {
		return fmt.Errorf("failed to read line: %w", err)
	}

	for i, b := range TerminateLine(line, maxBytes) {
		h.memory.Write8(buf+uint32(i), b)
	}

	return nil
}

// TerminateLine formats a host line for guest memory: truncated to
// maxBytes-1 bytes, followed by a carriage return when it still fits, then
// a NUL. The result never exceeds maxBytes.
func TerminateLine(line string, maxBytes int) []byte {
	if maxBytes <= 0 {
		return nil
	}

	out := []byte(line)
	if len(out) > maxBytes-1 {
		out = out[:maxBytes-1]
	}
	if len(out)+1 < maxBytes {
		out = append(out, '\r')
	}

	return append(out, 0)
}
