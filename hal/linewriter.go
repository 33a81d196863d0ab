package hal

import (
	"bytes"
	"sync"
)

// LineWriter adapts a Logger to io.Writer, emitting one log line per newline.
type LineWriter struct {
	mu  sync.Mutex
	l   Logger
	buf []byte
}

func NewLineWriter(l Logger) *LineWriter {
	return &LineWriter{l: l}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(w.buf[:i], []byte{'\r'})
		if w.l != nil {
			w.l.WriteLineBytes(line)
		}
		w.buf = w.buf[i+1:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}
