// Package sink writes newline-delimited telemetry lines to an output: a writer such
// as stdout, or a serial device emulating a GPS receiver.
package sink

import (
	"bufio"
	"io"
	"sync"

	serial "go.bug.st/serial"
)

// Sink accepts one telemetry line at a time.
type Sink interface {
	WriteLine(s string) error
	Close() error
}

// Writer is a buffered Sink over an io.Writer. Lines are flushed on every write.
type Writer struct {
	mu sync.Mutex
	w  *bufio.Writer
	c  io.Closer
}

// NewWriter wraps w. If w is also an io.Closer, Close closes it.
func NewWriter(w io.Writer) *Writer {
	out := &Writer{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		out.c = c
	}
	return out
}

// WriteLine writes s + '\n'.
func (o *Writer) WriteLine(s string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, err := o.w.WriteString(s); err != nil {
		return err
	}
	if err := o.w.WriteByte('\n'); err != nil {
		return err
	}
	return o.w.Flush()
}

// Close flushes pending output and closes the underlying writer when possible.
func (o *Writer) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		return err
	}
	if o.c == nil {
		return nil
	}
	return o.c.Close()
}

// Serial writes lines to a serial device (e.g. /dev/ttyUSB0 or one end of a PTY pair).
type Serial struct {
	*Writer
	port serial.Port
}

// OpenSerial opens device at the given baud rate.
func OpenSerial(device string, baud int) (*Serial, error) {
	if baud <= 0 {
		baud = 9600
	}
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return &Serial{Writer: NewWriter(p), port: p}, nil
}

// Close closes the underlying port.
func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	return s.Writer.Close()
}
