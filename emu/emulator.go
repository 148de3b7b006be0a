package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"maps"
	"os"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/armsim/insts"
	"github.com/sarchlab/armsim/loader"
	"github.com/sarchlab/armsim/trace"
)

// Exception vectors.
const (
	VectorSWI uint32 = 0x08
	VectorIRQ uint32 = 0x18
)

// HaltReason explains why a step or run stopped.
type HaltReason uint8

// Halt reasons.
const (
	HaltNone        HaltReason = iota
	HaltInstruction            // SWI 0x11
	HaltZeroWord               // fetched word was 0
	HaltBreakpoint             // PC reached a breakpoint
	HaltStopped                // Stop was called during Run
	HaltStepLimit              // the configured step limit was reached
	HaltNotLoaded              // no program is loaded
)

func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "none"
	case HaltInstruction:
		return "halt instruction"
	case HaltZeroWord:
		return "zero word"
	case HaltBreakpoint:
		return "breakpoint"
	case HaltStopped:
		return "stopped"
	case HaltStepLimit:
		return "step limit"
	case HaltNotLoaded:
		return "not loaded"
	}
	return "unknown"
}

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if execution stopped.
	Halted bool

	// Reason says why execution stopped when Halted is true.
	Reason HaltReason

	// Err is set if host I/O or tracing failed during the step.
	Err error
}

// Tracer receives one record per executed step.
type Tracer interface {
	Write(rec trace.Record) error
}

// Emulator fetches, decodes and executes A32 instructions.
//
// Step, Run and every accessor that reads machine state are serialized by a
// single lock. RaiseIRQ and Stop may be called from any goroutine, including
// while a step is blocked waiting for line input.
type Emulator struct {
	mu sync.Mutex

	regFile    *RegFile
	memory     *Memory
	decoder    *insts.Decoder
	host       Host
	swiHandler SWIHandler
	tracer     Tracer
	logger     logr.Logger

	memorySize  int
	stackTop    uint32
	stackTopSet bool
	runDelay    time.Duration
	maxSteps    uint64

	breakpoints map[uint32]struct{}

	// resumeAddr is the breakpoint address the next step may execute
	// instead of halting on.
	resumeAddr  uint32
	resumeArmed bool

	running atomic.Bool
	stopReq atomic.Bool

	irqMu      sync.Mutex
	irqPending bool
	lastChar   byte

	stepCount uint64
	loaded    bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemorySize sets the RAM size in bytes.
func WithMemorySize(size int) EmulatorOption {
	return func(e *Emulator) {
		e.memorySize = size
	}
}

// WithHost sets the host used for character I/O.
func WithHost(host Host) EmulatorOption {
	return func(e *Emulator) {
		e.host = host
	}
}

// WithSWIHandler replaces the handler for deferred software interrupts.
func WithSWIHandler(handler SWIHandler) EmulatorOption {
	return func(e *Emulator) {
		e.swiHandler = handler
	}
}

// WithTracer sets the receiver of per-step trace records.
func WithTracer(tracer Tracer) EmulatorOption {
	return func(e *Emulator) {
		e.tracer = tracer
	}
}

// WithLogger sets the logger for step and memory diagnostics.
func WithLogger(logger logr.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithRunDelay sets a pause between steps in Run. Zero yields the processor
// without sleeping.
func WithRunDelay(d time.Duration) EmulatorOption {
	return func(e *Emulator) {
		e.runDelay = d
	}
}

// WithStackTop sets the initial stack pointer.
func WithStackTop(sp uint32) EmulatorOption {
	return func(e *Emulator) {
		e.stackTop = sp
		e.stackTopSet = true
	}
}

// WithMaxSteps limits Run to a number of executed steps. A value of 0 means
// no limit.
func WithMaxSteps(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxSteps = max
	}
}

// WithBreakpoints installs initial breakpoints.
func WithBreakpoints(addrs ...uint32) EmulatorOption {
	return func(e *Emulator) {
		for _, addr := range addrs {
			e.breakpoints[addr] = struct{}{}
		}
	}
}

// NewEmulator creates a new emulator in System mode with zeroed RAM.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		decoder:     insts.NewDecoder(),
		logger:      logr.Discard(),
		memorySize:  DefaultMemorySize,
		stackTop:    loader.DefaultStackTop,
		breakpoints: make(map[uint32]struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.memory = NewMemory(e.memorySize, binary.LittleEndian, WithMemoryLogger(e.logger))
	e.regFile = NewRegFile()
	e.regFile.WriteReg(RegSP, e.stackTop)

	if e.host == nil {
		e.host = NewStreamHost(os.Stdin, os.Stdout)
	}

	if e.swiHandler == nil {
		e.swiHandler = NewDefaultSWIHandler(e.regFile, e.memory, e.host)
	}

	return e
}

// RegFile returns the emulator's register file. Callers outside Step should
// hold the lock through WithLock.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's RAM. Callers outside Step should hold the
// lock through WithLock.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// WithLock runs fn with exclusive access to RAM and the register file.
func (e *Emulator) WithLock(fn func(ram *Memory, regs *RegFile)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.memory, e.regFile)
}

// StepCount returns the number of steps executed since the last load or
// reset.
func (e *Emulator) StepCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.stepCount
}

// Loaded reports whether a program was loaded successfully.
func (e *Emulator) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loaded
}

// Fetch reads the instruction word at addr.
func (e *Emulator) Fetch(addr uint32) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.memory.Read32(addr)
}

// Decode decodes a raw instruction word without touching machine state.
func (e *Emulator) Decode(raw uint32) *insts.Instruction {
	return e.decoder.Decode(raw)
}

// Step executes one instruction.
func (e *Emulator) Step() StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.step()
}

func (e *Emulator) step() StepResult {
	if !e.loaded {
		return StepResult{Halted: true, Reason: HaltNotLoaded}
	}

	addr := e.regFile.CurrentAddress()

	if e.hitBreakpoint(addr) {
		e.logger.V(1).Info("breakpoint", "addr", hex(addr))
		return StepResult{Halted: true, Reason: HaltBreakpoint}
	}

	raw := e.memory.Read32(addr)
	if raw == 0 {
		e.logger.V(1).Info("halt on zero word", "addr", hex(addr))
		return StepResult{Halted: true, Reason: HaltZeroWord}
	}

	inst := e.decoder.Decode(raw)
	inst.PCAddress = addr
	inst.LastChar = e.LastChar()

	if e.logger.V(2).Enabled() {
		e.logger.V(2).Info("step", "addr", hex(addr), "raw", hex(raw), "inst", inst.StringAt(addr))
	}

	outcome := OutcomeContinue
	if ConditionPassed(inst.Cond, e.regFile.NZCV()) {
		outcome = HandlerFor(inst.Shape)(e.memory, e.regFile, inst)
	}

	var errs []error

	if inst.DisplayWritten {
		if err := e.host.WriteChar(byte(inst.DisplayValue)); err != nil {
			errs = append(errs, fmt.Errorf("failed to write display output: %w", err))
		}
	}

	e.regFile.IncPC()
	e.stepCount++

	if err := e.traceStep(addr); err != nil {
		errs = append(errs, err)
	}

	switch outcome {
	case OutcomeHalt:
		e.regFile.DecPC()
		e.logger.V(1).Info("halt instruction", "addr", hex(addr))
		return StepResult{Halted: true, Reason: HaltInstruction, Err: errors.Join(errs...)}
	case OutcomeSoftwareInterrupt:
		e.enterException(ModeSupervisor, VectorSWI, e.regFile.CurrentAddress())
		if err := e.swiHandler.Handle(inst.SWINumber); err != nil {
			errs = append(errs, fmt.Errorf("swi 0x%x: %w", inst.SWINumber, err))
		}
	}

	e.checkIRQ()

	return StepResult{Err: errors.Join(errs...)}
}

// hitBreakpoint reports whether the step at addr must halt. Halting arms a
// one-shot resume so the next step at the same address executes.
func (e *Emulator) hitBreakpoint(addr uint32) bool {
	armed := e.resumeArmed && e.resumeAddr == addr
	e.resumeArmed = false

	if _, ok := e.breakpoints[addr]; !ok || armed {
		return false
	}

	e.resumeAddr = addr
	e.resumeArmed = true

	return true
}

func (e *Emulator) traceStep(addr uint32) error {
	if e.tracer == nil {
		return nil
	}

	snap := e.regFile.Snapshot()
	rec := trace.Record{
		Step:     e.stepCount,
		PC:       addr,
		Checksum: e.memory.Checksum(),
		N:        e.regFile.N(),
		Z:        e.regFile.Z(),
		C:        e.regFile.C(),
		V:        e.regFile.V(),
		Mode:     e.regFile.Mode().String(),
	}
	copy(rec.Regs[:], snap[:15])

	return e.tracer.Write(rec)
}

// enterException switches to mode, saves CPSR into the new mode's SPSR and
// the return address into its lr, masks IRQs, and jumps to vector.
func (e *Emulator) enterException(mode Mode, vector, returnAddr uint32) {
	saved := e.regFile.CPSR()

	e.regFile.SetMode(mode)
	e.regFile.SetSPSR(saved)
	e.regFile.WriteReg(RegLR, returnAddr)
	e.regFile.SetT(false)
	e.regFile.SetI(true)

	// r15 holds the vector plus the pipeline distance; no IncPC follows.
	e.regFile.SetPC(vector + 8)

	e.logger.V(1).Info("exception entry", "mode", mode.String(), "vector", hex(vector),
		"lr", hex(returnAddr))
}

// checkIRQ enters IRQ mode when an interrupt is pending and not masked. The
// saved lr points one instruction past the return address, matching the
// SUBS pc, lr, #4 return idiom.
func (e *Emulator) checkIRQ() {
	e.irqMu.Lock()
	defer e.irqMu.Unlock()

	if !e.irqPending || e.regFile.I() {
		return
	}

	e.enterException(ModeIRQ, VectorIRQ, e.regFile.CurrentAddress()+4)
	e.irqPending = false
}

// RaiseIRQ latches an interrupt request and records the character that
// caused it. The request is taken at the next instruction boundary where
// IRQs are unmasked.
func (e *Emulator) RaiseIRQ(lastChar byte) {
	e.irqMu.Lock()
	defer e.irqMu.Unlock()

	e.irqPending = true
	e.lastChar = lastChar
}

// IRQPending reports whether an interrupt request is latched.
func (e *Emulator) IRQPending() bool {
	e.irqMu.Lock()
	defer e.irqMu.Unlock()

	return e.irqPending
}

// LastChar returns the last character delivered with RaiseIRQ.
func (e *Emulator) LastChar() byte {
	e.irqMu.Lock()
	defer e.irqMu.Unlock()

	return e.lastChar
}

// Run executes instructions until a halt, a breakpoint, the step limit, an
// I/O error, or Stop. A Stop issued while no Run is active ends the next Run
// before its first step.
func (e *Emulator) Run() StepResult {
	e.running.Store(true)
	defer e.running.Store(false)

	for {
		if e.stopReq.Swap(false) {
			return StepResult{Halted: true, Reason: HaltStopped}
		}

		if e.maxSteps > 0 && e.StepCount() >= e.maxSteps {
			return StepResult{Halted: true, Reason: HaltStepLimit}
		}

		result := e.Step()
		if result.Halted || result.Err != nil {
			return result
		}

		if e.runDelay > 0 {
			time.Sleep(e.runDelay)
		} else {
			runtime.Gosched()
		}
	}
}

// Stop asks Run to return at the next instruction boundary. The request
// stays pending until a Run consumes it or a program is loaded.
func (e *Emulator) Stop() {
	e.stopReq.Store(true)
}

// Running reports whether Run is executing.
func (e *Emulator) Running() bool {
	return e.running.Load()
}

// AddBreakpoint installs a breakpoint at addr.
func (e *Emulator) AddBreakpoint(addr uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.breakpoints[addr] = struct{}{}
}

// RemoveBreakpoint removes the breakpoint at addr, if any.
func (e *Emulator) RemoveBreakpoint(addr uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.breakpoints, addr)
}

// IsBreakpoint reports whether a breakpoint is installed at addr.
func (e *Emulator) IsBreakpoint(addr uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.breakpoints[addr]
	return ok
}

// Breakpoints returns the installed breakpoints in ascending order.
func (e *Emulator) Breakpoints() []uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Sorted(maps.Keys(e.breakpoints))
}

// Reset clears RAM and registers and returns to the post-construction
// state. Breakpoints are kept.
func (e *Emulator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset()
	e.loaded = false
}

func (e *Emulator) reset() {
	e.memory.Clear()
	e.regFile.Clear()
	e.regFile.WriteReg(RegSP, e.stackTop)
	e.stepCount = 0
	e.resumeArmed = false
	e.stopReq.Store(false)

	e.irqMu.Lock()
	e.irqPending = false
	e.lastChar = 0
	e.irqMu.Unlock()
}

// LoadProgram resets the machine, stores program as consecutive words at
// entry in the current byte order, and points the PC at entry.
func (e *Emulator) LoadProgram(entry uint32, program []uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	end := uint64(entry) + 4*uint64(len(program))
	if entry%4 != 0 || end > uint64(e.memory.Size()) {
		e.loaded = false
		return fmt.Errorf("program of %d words at 0x%08x does not fit in %d bytes of memory",
			len(program), entry, e.memory.Size())
	}

	e.reset()
	for i, word := range program {
		e.memory.Write32(entry+uint32(4*i), word)
	}
	e.start(entry, e.stackTop)

	return nil
}

// LoadELF loads a 32-bit ARM ELF executable. On failure the machine state
// is left untouched and Loaded reports false.
func (e *Emulator) LoadELF(path string) error {
	prog, err := loader.Load(path)
	if err != nil {
		e.mu.Lock()
		e.loaded = false
		e.mu.Unlock()
		return err
	}

	return e.LoadSegments(prog)
}

// LoadSegments copies a parsed program into RAM and prepares the registers
// for execution.
func (e *Emulator) LoadSegments(prog *loader.Program) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := prog.Fits(e.memory.Size()); err != nil {
		e.loaded = false
		return err
	}

	e.reset()
	if prog.ByteOrder != nil {
		e.memory.SetOrder(prog.ByteOrder)
	}

	// Bytes past each segment's file data stay zero from the reset.
	for _, seg := range prog.Segments {
		e.memory.LoadBytes(seg.PhysAddr, seg.Data)
	}

	sp := prog.InitialSP
	if e.stackTopSet || sp == 0 {
		sp = e.stackTop
	}
	e.start(prog.EntryPoint, sp)

	e.logger.V(1).Info("program loaded", "entry", hex(prog.EntryPoint),
		"segments", len(prog.Segments))

	return nil
}

func (e *Emulator) start(entry, sp uint32) {
	e.regFile.SetMode(ModeSystem)
	e.regFile.SetPC(entry + 8)
	e.regFile.WriteReg(RegSP, sp)
	e.regFile.ClearNZCV()
	e.loaded = true
}

// DisasmLine is one row of a disassembly listing.
type DisasmLine struct {
	Address    uint32
	Raw        uint32
	Text       string
	Breakpoint bool
	Current    bool
}

// Disassemble decodes count words starting at addr. The listing stops at the
// end of memory.
func (e *Emulator) Disassemble(addr uint32, count int) []DisasmLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr &^= 3
	count = max(count, 0)
	current := e.regFile.CurrentAddress()
	lines := make([]DisasmLine, 0, count)

	for i := 0; i < count; i++ {
		if uint64(addr)+4 > uint64(e.memory.Size()) {
			break
		}

		raw := e.memory.Read32(addr)
		_, bp := e.breakpoints[addr]
		lines = append(lines, DisasmLine{
			Address:    addr,
			Raw:        raw,
			Text:       e.decoder.Decode(raw).StringAt(addr),
			Breakpoint: bp,
			Current:    addr == current,
		})

		addr += 4
	}

	return lines
}

// StackEntry is one word of the stack view.
type StackEntry struct {
	Address uint32
	Value   uint32
}

// StackWindow returns up to n words on either side of sp, clamped to
// memory.
func (e *Emulator) StackWindow(n int) []StackEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	sp := int64(e.regFile.ReadReg(RegSP) &^ 3)
	lo := max(sp-4*int64(n), 0)
	hi := min(sp+4*int64(n), int64(e.memory.Size())-4)

	var entries []StackEntry
	for addr := lo; addr <= hi; addr += 4 {
		entries = append(entries, StackEntry{
			Address: uint32(addr),
			Value:   e.memory.Read32(uint32(addr)),
		})
	}

	return entries
}

func hex(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
