// Package main provides the armsim command, which runs a 32-bit ARM ELF
// program on the emulator with console I/O.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/sarchlab/armsim/config"
	"github.com/sarchlab/armsim/emu"
	"github.com/sarchlab/armsim/insts"
	"github.com/sarchlab/armsim/trace"
)

var (
	configPath  = flag.String("config", "", "Path to a JSON or YAML run configuration")
	traceFile   = flag.String("trace", "", "Write a step trace to this file")
	traceAll    = flag.Bool("traceall", false, "Trace steps in every processor mode")
	memSize     = flag.Int("mem", 0, "RAM size in bytes")
	breakpoints = flag.String("break", "", "Comma-separated breakpoint addresses")
	maxSteps    = flag.Uint64("max-steps", 0, "Stop after this many steps (0 = no limit)")
	runDelay    = flag.Uint64("delay", 0, "Pause between steps in milliseconds")
	keyboard    = flag.Bool("keyboard", false, "Deliver keystrokes as IRQs (requires a terminal)")
	verbosity   = flag.Int("v", 0, "Log verbosity")
)

// Exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitUsage   = 2
	exitLimit   = 3
	exitStopped = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: armsim [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		return exitUsage
	}

	programPath := flag.Arg(0)
	logger := newLogger(os.Stderr, *verbosity)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	opts := append(cfg.EmulatorOptions(), emu.WithLogger(logger))

	if cfg.TraceFile != "" {
		w, err := trace.Open(cfg.TraceFile, trace.WithTraceAll(cfg.TraceAll))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error(err, "failed to close trace file")
			}
		}()
		opts = append(opts, emu.WithTracer(w))
	}

	var keys *keyboardHost
	switch {
	case *keyboard:
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintf(os.Stderr, "Error: -keyboard requires a terminal on stdin\n")
			return exitUsage
		}
		keys = newKeyboardHost(os.Stdout)
		opts = append(opts, emu.WithHost(keys))
	case term.IsTerminal(int(os.Stdin.Fd())):
		opts = append(opts, emu.WithHost(emu.NewStreamHost(os.Stdin, os.Stdout, emu.WithPrompt("> "))))
	default:
		opts = append(opts, emu.WithHost(emu.NewStreamHost(os.Stdin, os.Stdout)))
	}

	emulator := emu.NewEmulator(opts...)

	if err := emulator.LoadELF(programPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		return exitError
	}

	if *verbosity > 0 {
		fmt.Fprintf(os.Stderr, "Loaded: %s\n", programPath)
		fmt.Fprintf(os.Stderr, "Entry point: 0x%08X\n", emulator.RegFile().CurrentAddress())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if keys != nil {
		keys.bind(emulator.RaiseIRQ, stop)
		if err := keys.start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		defer keys.stop()
	}

	result, err := execute(ctx, stop, emulator, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return exitError
	}

	if *verbosity > 0 {
		fmt.Fprintf(os.Stderr, "\nHalted: %s\n", result.Reason)
		fmt.Fprintf(os.Stderr, "Instructions executed: %d\n", emulator.StepCount())
		dumpRegisters(os.Stderr, emulator)
	}

	return exitCode(result)
}

// execute runs the emulator until it halts, stopping it when ctx is done.
// Breakpoint halts print the registers and resume.
func execute(ctx context.Context, cancel context.CancelFunc, e *emu.Emulator, status io.Writer) (emu.StepResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	var result emu.StepResult

	g.Go(func() error {
		defer close(done)

		for {
			result = e.Run()
			if result.Err != nil {
				return result.Err
			}
			if result.Reason != emu.HaltBreakpoint || ctx.Err() != nil {
				return nil
			}

			fmt.Fprintf(status, "\nBreakpoint at 0x%08X\n", e.RegFile().CurrentAddress())
			dumpRegisters(status, e)
		}
	})

	g.Go(func() error {
		select {
		case <-ctx.Done():
			// A second interrupt kills the process.
			cancel()
			e.Stop()
		case <-done:
		}
		return nil
	})

	return result, g.Wait()
}

func exitCode(result emu.StepResult) int {
	switch result.Reason {
	case emu.HaltStepLimit:
		return exitLimit
	case emu.HaltStopped:
		return exitStopped
	case emu.HaltNotLoaded:
		return exitError
	default:
		return exitOK
	}
}

// loadConfig reads the configuration file, if any, then applies the flags
// that were set on the command line.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	var errs []error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trace":
			cfg.TraceFile = *traceFile
		case "traceall":
			cfg.TraceAll = *traceAll
		case "mem":
			cfg.MemorySize = *memSize
		case "max-steps":
			cfg.MaxSteps = *maxSteps
		case "delay":
			cfg.RunDelayMS = *runDelay
		case "break":
			addrs, err := parseAddrs(*breakpoints)
			if err != nil {
				errs = append(errs, err)
				return
			}
			cfg.Breakpoints = addrs
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseAddrs parses a comma-separated list of addresses. Hex needs a 0x
// prefix.
func parseAddrs(list string) ([]uint32, error) {
	var addrs []uint32
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		addr, err := strconv.ParseUint(field, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", field, err)
		}
		addrs = append(addrs, uint32(addr))
	}
	return addrs, nil
}

func newLogger(w io.Writer, verbosity int) logr.Logger {
	return funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{Verbosity: verbosity})
}

func dumpRegisters(w io.Writer, e *emu.Emulator) {
	e.WithLock(func(_ *emu.Memory, regs *emu.RegFile) {
		snap := regs.Snapshot()
		for i, v := range snap {
			fmt.Fprintf(w, "%-4s 0x%08X", insts.RegName(uint8(i)), v)
			if i%4 == 3 {
				fmt.Fprintln(w)
			} else {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintf(w, "cpsr 0x%08X  mode %s\n", regs.CPSR(), regs.Mode())
	})
}
