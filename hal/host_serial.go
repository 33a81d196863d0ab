//go:build !tinygo

package hal

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	tty "github.com/mattn/go-tty"
)

// ConsoleMode selects where host console input comes from.
type ConsoleMode uint8

const (
	ConsoleNone ConsoleMode = iota
	// ConsoleStdin reads lines from standard input.
	ConsoleStdin
	// ConsoleTTY opens the controlling terminal and echoes input locally.
	ConsoleTTY
)

func (m ConsoleMode) String() string {
	switch m {
	case ConsoleNone:
		return "none"
	case ConsoleStdin:
		return "stdin"
	case ConsoleTTY:
		return "tty"
	default:
		return "unknown"
	}
}

// ParseConsoleMode parses the -console flag.
func ParseConsoleMode(s string) (ConsoleMode, bool) {
	switch s {
	case "", "none":
		return ConsoleNone, true
	case "stdin":
		return ConsoleStdin, true
	case "tty":
		return ConsoleTTY, true
	default:
		return ConsoleNone, false
	}
}

const serialRxSize = 1024

type hostSerial struct {
	mode ConsoleMode

	wmu sync.Mutex
	w   io.Writer

	rmu sync.Mutex
	rx  []byte
}

func newHostSerial(mode ConsoleMode, w io.Writer) *hostSerial {
	return &hostSerial{mode: mode, w: w}
}

func (s *hostSerial) Write(p []byte) (int, error) {
	if s.w == nil {
		return 0, ErrNotImplemented
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.w.Write(p)
}

func (s *hostSerial) TryRead(p []byte) int {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	n := copy(p, s.rx)
	s.rx = s.rx[n:]
	if len(s.rx) == 0 {
		s.rx = nil
	}
	return n
}

// feed queues received bytes. Input beyond the receive buffer is dropped.
func (s *hostSerial) feed(p []byte) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	room := serialRxSize - len(s.rx)
	if room <= 0 {
		return
	}
	if len(p) > room {
		p = p[:room]
	}
	s.rx = append(s.rx, p...)
}

// pump reads console input until ctx is done or the source closes.
func (s *hostSerial) pump(ctx context.Context) error {
	switch s.mode {
	case ConsoleStdin:
		return s.pumpReader(ctx, os.Stdin)
	case ConsoleTTY:
		t, err := tty.Open()
		if err != nil {
			// No controlling terminal: fall back to plain stdin.
			return s.pumpReader(ctx, os.Stdin)
		}
		defer t.Close()
		return s.pumpTTY(ctx, t)
	default:
		return nil
	}
}

// pumpReader feeds lines from r. On cancel r is closed if it can be, which
// unblocks the reader goroutine.
func (s *hostSerial) pumpReader(ctx context.Context, r io.Reader) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				s.feed(line)
			}
			if err != nil {
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		if c, ok := r.(io.Closer); ok {
			c.Close()
		}
	case <-done:
	}
	return nil
}

func (s *hostSerial) pumpTTY(ctx context.Context, t *tty.TTY) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var enc [utf8.UTFMax]byte
		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}
			switch r {
			case '\r', '\n':
				s.echo(t, "\r\n")
				s.feed([]byte{'\n'})
			case 8, 127:
				s.echo(t, "\b \b")
				s.feed([]byte{8})
			default:
				n := utf8.EncodeRune(enc[:], r)
				s.echo(t, string(enc[:n]))
				s.feed(enc[:n])
			}
		}
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
	return nil
}

func (s *hostSerial) echo(t *tty.TTY, str string) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	t.Output().WriteString(str)
}
