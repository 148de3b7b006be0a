package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Raw-mode control keys.
const (
	keyInterrupt = 0x03
	keyEOF       = 0x04
	keyBackspace = 0x08
	keyDelete    = 0x7F
)

// keyboardHost puts the terminal in raw mode and delivers every keystroke to
// the guest. Keys typed while the guest waits for a line are edited and
// echoed locally; all other keys raise an IRQ carrying the character.
type keyboardHost struct {
	out       io.Writer
	raise     func(byte)
	interrupt func()

	mu      sync.Mutex
	reading bool

	keys      chan byte
	closed    chan struct{}
	closeOnce sync.Once

	fd       int
	oldState *term.State
}

func newKeyboardHost(out io.Writer) *keyboardHost {
	return &keyboardHost{
		out:    out,
		keys:   make(chan byte, 64),
		closed: make(chan struct{}),
	}
}

// bind connects the host to the emulator's IRQ line and to the run's
// cancellation.
func (h *keyboardHost) bind(raise func(byte), interrupt func()) {
	h.raise = raise
	h.interrupt = interrupt
}

// start switches stdin to raw mode and begins reading keys.
func (h *keyboardHost) start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	h.oldState = oldState

	go h.readLoop(os.Stdin)

	return nil
}

// stop restores the terminal. The read goroutine ends with the process.
func (h *keyboardHost) stop() {
	h.close()

	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
}

func (h *keyboardHost) close() {
	h.closeOnce.Do(func() { close(h.closed) })
}

func (h *keyboardHost) readLoop(r io.Reader) {
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.route(buf[0])
		}
		if err != nil {
			h.close()
			return
		}
	}
}

// route hands one key to a pending line read, or raises an IRQ with it.
func (h *keyboardHost) route(b byte) {
	h.mu.Lock()
	reading := h.reading
	h.mu.Unlock()

	switch {
	case reading:
		select {
		case h.keys <- b:
		case <-h.closed:
		}
	case b == keyInterrupt:
		if h.interrupt != nil {
			h.interrupt()
		}
	case h.raise != nil:
		h.raise(b)
	}
}

func (h *keyboardHost) setReading(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.reading = v
}

// WriteChar writes c, expanding newlines for a raw terminal.
func (h *keyboardHost) WriteChar(c byte) error {
	if c == '\n' {
		_, err := io.WriteString(h.out, "\r\n")
		return err
	}

	_, err := h.out.Write([]byte{c})
	return err
}

// ReadLine collects keys until Enter, handling backspace and echo.
func (h *keyboardHost) ReadLine(_ int) (string, error) {
	h.setReading(true)
	defer h.setReading(false)

	var line []byte
	for {
		select {
		case <-h.closed:
			return "", io.EOF
		case b := <-h.keys:
			switch b {
			case '\r', '\n':
				_, err := io.WriteString(h.out, "\r\n")
				return string(line), err
			case keyBackspace, keyDelete:
				if len(line) > 0 {
					line = line[:len(line)-1]
					if _, err := io.WriteString(h.out, "\b \b"); err != nil {
						return "", err
					}
				}
			case keyInterrupt, keyEOF:
				return "", io.EOF
			default:
				line = append(line, b)
				if _, err := h.out.Write([]byte{b}); err != nil {
					return "", err
				}
			}
		}
	}
}
