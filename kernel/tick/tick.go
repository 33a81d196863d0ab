// Package tick implements the millisecond tick source driven by the SysTick
// timer interrupt.
package tick

import (
	"math"
	"math/bits"
	"sync/atomic"

	hclog "github.com/hashicorp/go-hclog"
)

const (
	// DefaultHz is substituted when a caller asks for a 0 Hz tick.
	DefaultHz = 1000

	// MaxReload is the largest reload count the 24-bit SysTick LOAD register can hold
	// (LOAD = reload - 1).
	MaxReload = 1 << 24
)

// Clock reports the core clock frequency once clock bring-up is complete.
type Clock interface {
	CoreClockHz() uint32
}

// Timer is the SysTick register block.
type Timer interface {
	// SetLoad writes the reload register.
	SetLoad(v uint32)
	// ClearCurrent zeroes the current value register.
	ClearCurrent()
	// Start selects the core clock, enables the interrupt and the counter.
	Start()
	SetInterrupt(on bool)
	SetEnabled(on bool)
}

// Source is the process-wide monotonic tick counter.
//
// OnTick is the only writer and runs in interrupt context. Every other method
// is a reader and may be called from any context.
type Source struct {
	_ [0]func() // prevent accidental copying.

	clock Clock
	timer Timer
	log   hclog.Logger

	count  atomic.Uint32
	hz     atomic.Uint32
	core   atomic.Uint32
	reload atomic.Uint32
}

// New returns an unconfigured tick source. Call Init before relying on Now.
func New(clock Clock, timer Timer, log hclog.Logger) *Source {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Source{clock: clock, timer: timer, log: log}
}

// ReloadFor returns the number of core cycles per tick for the given rates,
// clamped to [1, MaxReload]. A zero hz is treated as DefaultHz.
func ReloadFor(coreHz, hz uint32) uint32 {
	if hz == 0 {
		hz = DefaultHz
	}
	reload := coreHz / hz
	if reload == 0 {
		reload = 1
	}
	if reload > MaxReload {
		reload = MaxReload
	}
	return reload
}

// Init programs the timer for hz ticks per second, resets the counter and
// starts the timer. It returns the reload count in core cycles.
func (s *Source) Init(hz uint32) uint32 {
	if hz == 0 {
		hz = DefaultHz
	}
	reload := s.program(hz)
	s.count.Store(0)
	s.timer.Start()
	s.log.Info("systick started", "core_hz", s.coreHz(), "tick_hz", s.Hz(), "load", reload-1)
	return reload
}

// Reinit changes the tick rate without resetting the counter.
func (s *Source) Reinit(hz uint32) uint32 {
	if hz == 0 {
		hz = DefaultHz
	}
	reload := s.program(hz)
	s.log.Info("systick reconfigured", "tick_hz", s.Hz(), "load", reload-1, "now", s.Now())
	return reload
}

// program writes the reload for hz. When the reload is clamped the stored rate
// is the one the timer actually runs at, not the one requested.
func (s *Source) program(hz uint32) uint32 {
	core := s.coreHz()
	reload := ReloadFor(core, hz)
	s.timer.SetLoad(reload - 1)
	s.timer.ClearCurrent()
	if core != 0 {
		hz = max(core/reload, 1)
	}
	s.hz.Store(hz)
	s.core.Store(core)
	s.reload.Store(reload)
	return reload
}

func (s *Source) coreHz() uint32 {
	if s.clock == nil {
		return 0
	}
	return s.clock.CoreClockHz()
}

// OnTick is the SysTick exception body.
func (s *Source) OnTick() {
	s.count.Add(1)
}

// Now returns the current tick count.
func (s *Source) Now() uint32 { return s.count.Load() }

// Elapsed returns the ticks since the given count. Wraparound is transparent.
func (s *Source) Elapsed(since uint32) uint32 {
	return s.Now() - since
}

// BusyWait spins until d ticks have elapsed and returns the elapsed count it
// observed. It does not yield the processor.
func (s *Source) BusyWait(d uint32) uint32 {
	start := s.Now()
	for {
		if e := s.Elapsed(start); e >= d {
			return e
		}
	}
}

// Delay spins for d ticks.
func (s *Source) Delay(d uint32) {
	_ = s.BusyWait(d)
}

// Advancing reports whether the counter moved within the given number of polls.
func (s *Source) Advancing(spins int) bool {
	start := s.Now()
	for i := 0; i < spins; i++ {
		if s.Now() != start {
			return true
		}
	}
	return false
}

// Hz returns the effective tick rate in whole Hz, or 0 before Init. A rate
// below 1 Hz reports 1.
func (s *Source) Hz() uint32 { return s.hz.Load() }

// Reload returns the configured number of core cycles per tick.
func (s *Source) Reload() uint32 { return s.reload.Load() }

// Load returns the value programmed into the reload register.
func (s *Source) Load() uint32 {
	r := s.reload.Load()
	if r == 0 {
		return 0
	}
	return r - 1
}

func (s *Source) per(seconds uint64) uint32 {
	return uint32(s.millis(uint64(s.Now())) / (1000 * seconds))
}

// millis converts ticks to milliseconds from the programmed reload and core
// clock, falling back to the stored rate when no clock was known.
func (s *Source) millis(ticks uint64) uint64 {
	core, reload := uint64(s.core.Load()), uint64(s.reload.Load())
	if core != 0 && reload != 0 {
		hi, lo := bits.Mul64(ticks*reload, 1000)
		if hi >= core {
			return math.MaxUint64
		}
		q, _ := bits.Div64(hi, lo, core)
		return q
	}
	hz := uint64(s.hz.Load())
	if hz == 0 {
		hz = DefaultHz
	}
	return ticks * 1000 / hz
}

// Millis returns how many milliseconds d ticks last at the programmed rate.
func (s *Source) Millis(d uint32) uint32 {
	return uint32(min(s.millis(uint64(d)), math.MaxUint32))
}

// Seconds returns whole seconds elapsed since Init.
func (s *Source) Seconds() uint32 { return s.per(1) }

// Minutes returns whole minutes elapsed since Init.
func (s *Source) Minutes() uint32 { return s.per(60) }

// Hours returns whole hours elapsed since Init.
func (s *Source) Hours() uint32 { return s.per(60 * 60) }

// EnableInterrupt sets TICKINT so each wrap raises the SysTick exception.
func (s *Source) EnableInterrupt() { s.timer.SetInterrupt(true) }

// DisableInterrupt clears TICKINT. The counter stops advancing while the timer
// keeps running.
func (s *Source) DisableInterrupt() { s.timer.SetInterrupt(false) }

// Enable starts the timer counting.
func (s *Source) Enable() { s.timer.SetEnabled(true) }

// Disable stops the timer.
func (s *Source) Disable() { s.timer.SetEnabled(false) }
