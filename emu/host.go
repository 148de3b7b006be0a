package emu

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Host is the I/O surface the emulator drives: the display device, the
// character-output SWI, and the line-input SWI.
type Host interface {
	// WriteChar emits one character of guest output.
	WriteChar(c byte) error

	// ReadLine blocks until a line of input is available. maxBytes is the
	// guest buffer size; the emulator truncates longer lines.
	ReadLine(maxBytes int) (string, error)
}

// StreamHost is a Host over an io.Reader and io.Writer.
type StreamHost struct {
	in     *bufio.Reader
	out    io.Writer
	prompt string
}

// StreamHostOption is a functional option for configuring a StreamHost.
type StreamHostOption func(*StreamHost)

// WithPrompt sets text written to the output before each line read.
func WithPrompt(prompt string) StreamHostOption {
	return func(h *StreamHost) {
		h.prompt = prompt
	}
}

// NewStreamHost creates a host reading lines from in and writing output to
// out.
func NewStreamHost(in io.Reader, out io.Writer, opts ...StreamHostOption) *StreamHost {
	h := &StreamHost{
		in:  bufio.NewReader(in),
		out: out,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// WriteChar writes c to the output.
func (h *StreamHost) WriteChar(c byte) error {
	_, err := h.out.Write([]byte{c})
	return err
}

// ReadLine reads up to the next newline. The line terminator is stripped.
// A final line without a newline is returned without error.
func (h *StreamHost) ReadLine(_ int) (string, error) {
	if h.prompt != "" {
		if _, err := io.WriteString(h.out, h.prompt); err != nil {
			return "", err
		}
	}

	line, err := h.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// ChannelHost is a Host driven through channels, for embedding the emulator
// in an interactive front end. Output is buffered in memory.
type ChannelHost struct {
	lines    chan string
	requests chan int

	mu  sync.Mutex
	out []byte
}

// NewChannelHost creates a ChannelHost.
func NewChannelHost() *ChannelHost {
	return &ChannelHost{
		lines:    make(chan string),
		requests: make(chan int, 1),
	}
}

// Submit delivers a line to a pending ReadLine. It blocks until the line is
// taken.
func (h *ChannelHost) Submit(line string) {
	h.lines <- line
}

// Requests returns a channel that receives the buffer size each time the
// guest starts waiting for a line.
func (h *ChannelHost) Requests() <-chan int {
	return h.requests
}

// Close makes pending and future ReadLine calls return io.EOF.
func (h *ChannelHost) Close() {
	close(h.lines)
}

// WriteChar appends c to the output buffer.
func (h *ChannelHost) WriteChar(c byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.out = append(h.out, c)

	return nil
}

// Output returns everything written so far.
func (h *ChannelHost) Output() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return string(h.out)
}

// ReadLine waits for Submit or Close.
func (h *ChannelHost) ReadLine(maxBytes int) (string, error) {
	select {
	case h.requests <- maxBytes:
	default:
	}

	line, ok := <-h.lines
	if !ok {
		return "", io.EOF
	}

	return line, nil
}
