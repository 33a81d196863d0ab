//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig describes the simulated board.
type HostConfig struct {
	// CoreClockHz overrides the core clock. Zero uses PLL, then
	// DefaultCoreClockHz.
	CoreClockHz uint32
	PLL         *ClockConfig
	Console     ConsoleMode
	// Output receives log lines and console output. Nil means stdout.
	Output io.Writer
}

// CoreHz resolves the configured core clock.
func (c HostConfig) CoreHz() (uint32, error) {
	switch {
	case c.CoreClockHz != 0:
		return c.CoreClockHz, nil
	case c.PLL != nil:
		if err := c.PLL.Validate(); err != nil {
			return 0, err
		}
		return c.PLL.HCLKHz(), nil
	default:
		return DefaultCoreClockHz, nil
	}
}

type hostHAL struct {
	logger *hostLogger
	led    *hostLED
	clock  hostClock
	st     *hostSysTick
	scb    *hostSCB
	mem    *hostMemory
	cpu    *hostCPU
	t      *hostTime
	serial *hostSerial
	fb     *hostFramebuffer
}

// New returns a host HAL simulating a Cortex-M4 core.
func New(cfg HostConfig) (HAL, error) {
	hz, err := cfg.CoreHz()
	if err != nil {
		return nil, fmt.Errorf("host hal: %w", err)
	}
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	logger := &hostLogger{w: out}
	st := &hostSysTick{}
	scb := &hostSCB{}
	mem := newHostMemory()
	cpu := newHostCPU(mem, scb)
	return &hostHAL{
		logger: logger,
		led:    &hostLED{logger: logger},
		clock:  hostClock{hz: hz},
		st:     st,
		scb:    scb,
		mem:    mem,
		cpu:    cpu,
		t:      newHostTime(hz, st, cpu),
		serial: newHostSerial(cfg.Console, out),
		fb:     newHostFramebuffer(320, 240),
	}, nil
}

func (h *hostHAL) Logger() Logger   { return h.logger }
func (h *hostHAL) LED() LED         { return h.led }
func (h *hostHAL) Clock() Clock     { return h.clock }
func (h *hostHAL) SysTick() SysTick { return h.st }
func (h *hostHAL) SCB() SCB         { return h.scb }
func (h *hostHAL) Memory() Memory   { return h.mem }
func (h *hostHAL) CPU() CPU         { return h.cpu }
func (h *hostHAL) Serial() Serial   { return h.serial }
func (h *hostHAL) Display() Display { return hostDisplay{fb: h.fb} }
func (h *hostHAL) Sleeper() Sleeper { return hostSleeper{} }

// step runs one application step, then takes any PendSV left pending outside
// a trap and reports a requested reset.
func (h *hostHAL) step(fn func() error) error {
	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	h.cpu.poll()
	if h.scb.takeReset() {
		return ErrReset
	}
	return nil
}

// reset returns the core to its power-on state. The clock keeps running.
func (h *hostHAL) reset() {
	h.st.reset()
	h.cpu.reset()
	h.t.restart()
	h.led.Low()
	h.fb.ClearRGB(0, 0, 0)
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		l.logger.WriteLineString("led: HIGH")
	}
	l.on = true
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.logger.WriteLineString("led: LOW")
	}
	l.on = false
}

func (l *hostLED) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
