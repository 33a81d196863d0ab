//go:build !tinygo

package hal

import (
	"context"
	"sync"
	"time"
)

// DefaultCoreClockHz is the host core clock when none is configured.
const DefaultCoreClockHz = 16_000_000

type hostClock struct {
	hz uint32
}

func (c hostClock) CoreClockHz() uint32 { return c.hz }

// hostTime turns wall time into core cycles for the SysTick model.
type hostTime struct {
	mu  sync.Mutex
	hz  uint32
	st  *hostSysTick
	cpu *hostCPU

	last   time.Time
	acc    time.Duration
	cycles uint64
}

func newHostTime(hz uint32, st *hostSysTick, cpu *hostCPU) *hostTime {
	return &hostTime{hz: hz, st: st, cpu: cpu}
}

func (t *hostTime) step() {
	t.mu.Lock()
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.mu.Unlock()
		return
	}
	t.acc += now.Sub(t.last)
	t.last = now

	// A stalled host (suspend, debugger) does not owe the core more than a
	// second of cycles.
	if t.acc > time.Second {
		t.acc = time.Second
	}
	cycles := uint64(t.acc) * uint64(t.hz) / uint64(time.Second)
	t.acc -= time.Duration(cycles * uint64(time.Second) / uint64(t.hz))
	t.mu.Unlock()

	t.runCycles(cycles)
}

// runCycles advances the core by n cycles and delivers the resulting SysTick
// exceptions.
func (t *hostTime) runCycles(n uint64) {
	if n == 0 {
		return
	}
	t.mu.Lock()
	t.cycles += n
	t.mu.Unlock()
	t.cpu.sysTick(t.st.advance(n))
}

// run steps the clock every period until ctx is done.
func (t *hostTime) run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = time.Millisecond
	}
	tk := time.NewTicker(period)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tk.C:
			t.step()
		}
	}
}

func (t *hostTime) Cycles() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cycles
}

func (t *hostTime) restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = time.Time{}
	t.acc = 0
}

type hostSleeper struct{}

func (hostSleeper) SleepMillis(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
