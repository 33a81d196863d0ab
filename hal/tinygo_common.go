//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

type uartSerial struct {
	uart *machine.UART
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}

func (s *uartSerial) TryRead(p []byte) int {
	if s.uart == nil {
		return 0
	}
	n := 0
	for n < len(p) && s.uart.Buffered() > 0 {
		c, err := s.uart.ReadByte()
		if err != nil {
			break
		}
		if c == '\r' {
			c = '\n'
		}
		p[n] = c
		n++
	}
	return n
}

type tinyGoSleeper struct{}

func (tinyGoSleeper) SleepMillis(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

type tinyGoClock struct{}

func (tinyGoClock) CoreClockHz() uint32 { return machine.CPUFrequency() }
