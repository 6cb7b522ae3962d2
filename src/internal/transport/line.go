// FILE: src/internal/transport/line.go
package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

const maxLineSize = 64 * 1024

type lineResult struct {
	frame Frame
	err   error
}

// LineTransport frames messages as newline-terminated lines over any
// io.ReadWriter. A background reader delivers lines so Receive can honor
// context cancellation.
type LineTransport struct {
	rw      io.ReadWriter
	writeMu sync.Mutex
	lines   chan lineResult
	done    chan struct{}
	once    sync.Once
}

func NewLineTransport(rw io.ReadWriter) *LineTransport {
	t := &LineTransport{
		rw:    rw,
		lines: make(chan lineResult),
		done:  make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *LineTransport) readLoop() {
	scanner := bufio.NewScanner(t.rw)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		f, err := ParseFrame(scanner.Text())
		select {
		case t.lines <- lineResult{frame: f, err: err}:
		case <-t.done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case t.lines <- lineResult{err: err}:
	case <-t.done:
	}
}

func (t *LineTransport) Send(ctx context.Context, f Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	line, err := FormatFrame(f)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := io.WriteString(t.rw, line); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", f.Command, err)
	}
	return nil
}

func (t *LineTransport) Receive(ctx context.Context) (Frame, error) {
	select {
	case <-t.done:
		return Frame{}, ErrClosed
	default:
	}

	select {
	case r := <-t.lines:
		return r.frame, r.err
	case <-t.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Close stops the reader and closes the underlying stream if it is an io.Closer.
func (t *LineTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		if c, ok := t.rw.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}
