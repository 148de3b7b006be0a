// Package emu provides functional A32 emulation.
package emu

import (
	"encoding/binary"
	"fmt"

	"github.com/go-logr/logr"
)

// DefaultMemorySize is the RAM size used when none is configured.
const DefaultMemorySize = 32768

// Memory is byte-addressable storage with a fixed capacity and a selectable
// byte order. Multi-byte accesses must be aligned to their width.
//
// Out-of-bounds accesses panic. Misaligned accesses are logged; reads return
// 0 and writes are dropped.
type Memory struct {
	data  []byte
	order binary.ByteOrder

	// checksum is the sum of (byte ^ address) over the whole buffer.
	checksum      uint32
	trackChecksum bool

	logger logr.Logger
}

// MemoryOption is a functional option for configuring Memory.
type MemoryOption func(*Memory)

// WithMemoryLogger sets the logger that receives misaligned-access
// diagnostics.
func WithMemoryLogger(logger logr.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = logger
	}
}

// WithoutChecksum disables checksum maintenance.
func WithoutChecksum() MemoryOption {
	return func(m *Memory) {
		m.trackChecksum = false
	}
}

// NewMemory creates a zero-filled memory of the given size.
func NewMemory(size int, order binary.ByteOrder, opts ...MemoryOption) *Memory {
	if size <= 0 {
		panic(fmt.Sprintf("invalid memory size %d", size))
	}

	m := &Memory{
		data:          make([]byte, size),
		order:         order,
		trackChecksum: true,
		logger:        logr.Discard(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.recomputeChecksum()

	return m
}

// Size returns the capacity in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// Order returns the byte order used for multi-byte accesses.
func (m *Memory) Order() binary.ByteOrder {
	return m.order
}

// SetOrder changes the byte order. Only loaders should call this.
func (m *Memory) SetOrder(order binary.ByteOrder) {
	m.order = order
}

// Checksum returns the current checksum.
func (m *Memory) Checksum() uint32 {
	return m.checksum
}

// Bytes returns a copy of the memory contents.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// Clear zeroes the memory.
func (m *Memory) Clear() {
	clear(m.data)
	m.recomputeChecksum()
}

func (m *Memory) recomputeChecksum() {
	if !m.trackChecksum {
		return
	}

	var sum uint32
	for addr, b := range m.data {
		sum += uint32(b) ^ uint32(addr)
	}
	m.checksum = sum
}

func (m *Memory) checkBounds(addr uint32, width int) {
	if uint64(addr)+uint64(width) > uint64(len(m.data)) {
		panic(fmt.Sprintf("memory access out of bounds: addr=0x%08X width=%d size=%d",
			addr, width, len(m.data)))
	}
}

func (m *Memory) aligned(addr uint32, width int, write bool) bool {
	if addr%uint32(width) == 0 {
		return true
	}

	op := "read"
	if write {
		op = "write"
	}
	m.logger.Error(nil, "misaligned memory access",
		"op", op, "addr", fmt.Sprintf("0x%08X", addr), "width", width)

	return false
}

func (m *Memory) store(addr uint32, b byte) {
	if m.trackChecksum {
		m.checksum -= uint32(m.data[addr]) ^ addr
		m.checksum += uint32(b) ^ addr
	}
	m.data[addr] = b
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) uint8 {
	m.checkBounds(addr, 1)
	return m.data[addr]
}

// Read16 reads a half-word. Misaligned reads return 0.
func (m *Memory) Read16(addr uint32) uint16 {
	m.checkBounds(addr, 2)
	if !m.aligned(addr, 2, false) {
		return 0
	}
	return m.order.Uint16(m.data[addr:])
}

// Read32 reads a word. Misaligned reads return 0.
func (m *Memory) Read32(addr uint32) uint32 {
	m.checkBounds(addr, 4)
	if !m.aligned(addr, 4, false) {
		return 0
	}
	return m.order.Uint32(m.data[addr:])
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) {
	m.checkBounds(addr, 1)
	m.store(addr, value)
}

// Write16 writes a half-word. Misaligned writes are dropped.
func (m *Memory) Write16(addr uint32, value uint16) {
	m.checkBounds(addr, 2)
	if !m.aligned(addr, 2, true) {
		return
	}

	var buf [2]byte
	m.order.PutUint16(buf[:], value)
	m.store(addr, buf[0])
	m.store(addr+1, buf[1])
}

// Write32 writes a word. Misaligned writes are dropped.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.checkBounds(addr, 4)
	if !m.aligned(addr, 4, true) {
		return
	}

	var buf [4]byte
	m.order.PutUint32(buf[:], value)
	for i, b := range buf {
		m.store(addr+uint32(i), b)
	}
}

// LoadBytes copies data into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) {
	m.checkBounds(addr, len(data))
	for i, b := range data {
		m.store(addr+uint32(i), b)
	}
}

// TestFlag reports whether bit is set in the word at addr.
func (m *Memory) TestFlag(addr uint32, bit uint) bool {
	checkBit(bit)
	return m.Read32(addr)&(1<<bit) != 0
}

// SetFlag sets or clears bit in the word at addr.
func (m *Memory) SetFlag(addr uint32, bit uint, value bool) {
	checkBit(bit)

	word := m.Read32(addr)
	if value {
		word |= 1 << bit
	} else {
		word &^= 1 << bit
	}
	m.Write32(addr, word)
}

func checkBit(bit uint) {
	if bit > 31 {
		panic(fmt.Sprintf("bit index %d out of range", bit))
	}
}

// ExtractBits returns word masked to bits lo..hi inclusive. The bits are not
// shifted down.
func ExtractBits(word uint32, lo, hi uint) uint32 {
	if lo > 31 || hi > 31 || lo > hi {
		panic(fmt.Sprintf("invalid bit range %d..%d", lo, hi))
	}

	mask := uint32((uint64(1)<<(hi-lo+1))-1) << lo
	return word & mask
}
