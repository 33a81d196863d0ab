package app

import (
	"errors"
	"fmt"

	"cm4kern/hal"
	"cm4kern/internal/buildinfo"
	"cm4kern/kernel/sched"
	"cm4kern/kernel/svc"
	"cm4kern/kernel/tick"
	"cm4kern/kernel/trap"
	"cm4kern/usr"

	hclog "github.com/hashicorp/go-hclog"
)

// Config selects the kernel build-time knobs.
type Config struct {
	// TickHz is the SysTick rate (0 = 1000).
	TickHz uint32
	// BlinkTicks is the LED toggle period in ticks (0 = 500).
	BlinkTicks uint32
	// Mock serves requests from the mock backend instead of the board.
	Mock bool
	// LogLevel is an hclog level name ("" = info).
	LogLevel string
	// SkipSelfTest disables the boot-time request round.
	SkipSelfTest bool
	// LivenessSpins bounds the poll that checks the tick counter moves.
	LivenessSpins int
	// MonitorEvery is the number of steps between monitor frames (0 = 10).
	MonitorEvery int
}

func (c Config) withDefaults() Config {
	if c.TickHz == 0 {
		c.TickHz = tick.DefaultHz
	}
	if c.BlinkTicks == 0 {
		c.BlinkTicks = 500
	}
	if c.LivenessSpins <= 0 {
		c.LivenessSpins = 10_000_000
	}
	if c.MonitorEvery <= 0 {
		c.MonitorEvery = 10
	}
	return c
}

type system struct {
	h   hal.HAL
	cfg Config
	log hclog.Logger

	tick  *tick.Source
	sw    *sched.NopSwitcher
	trig  *sched.Trigger
	be    svc.Backend
	gw    *trap.Gateway
	calls usr.Calls

	con *console
	mon *monitor

	tickLive  bool
	loops     uint32
	lastBlink uint32
	ledOn     bool
	steps     int
	report    selfTestReport
}

// New initializes the kernel with default config and returns its step
// function.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{})
}

func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s := newSystem(h, cfg)
	s.boot()
	return s.step
}

// Run boots the kernel and steps it forever (TinyGo entrypoint).
func Run(h hal.HAL) {
	RunWithConfig(h, Config{})
}

func RunWithConfig(h hal.HAL, cfg Config) {
	step := NewWithConfig(h, cfg)
	sl := h.Sleeper()
	for {
		if err := step(); err != nil {
			h.Logger().WriteLineString(err.Error())
			select {}
		}
		sl.SleepMillis(1)
	}
}

func newLogger(h hal.HAL, level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:        "kern",
		Level:       hclog.LevelFromString(level),
		Output:      hal.NewLineWriter(h.Logger()),
		DisableTime: true,
		Color:       hclog.ColorOff,
	})
}

func newSystem(h hal.HAL, cfg Config) *system {
	cfg = cfg.withDefaults()
	log := newLogger(h, cfg.LogLevel)
	s := &system{h: h, cfg: cfg, log: log}

	s.tick = tick.New(h.Clock(), h.SysTick(), log.Named("tick"))
	s.sw = &sched.NopSwitcher{}
	s.trig = sched.New(h.SCB(), s.sw)

	if cfg.Mock {
		s.be = svc.NewMockBackend(s.trig)
	} else {
		s.be = svc.NewBoardBackend(svc.BoardConfig{
			Memory:      h.Memory(),
			Port:        h.Serial(),
			Clock:       s.tick,
			Resetter:    h.SCB(),
			Rescheduler: s.trig,
		})
	}

	s.gw = trap.New(h.Memory(), svc.NewDispatcher(s.be), log.Named("trap"))
	if log.IsTrace() {
		tl := log.Named("trap")
		s.gw.Observe(func(p trap.Phase, req svc.Request, f *trap.Frame) {
			tl.Trace("phase", "phase", p, "req", req, "r0", f.R0)
		})
	}

	h.CPU().Install(hal.Handlers{
		SVCall:  s.gw.Handle,
		PendSV:  s.trig.OnPendSV,
		SysTick: s.tick.OnTick,
		Return:  s.gw.Resume,
	})
	s.calls = usr.New(h.CPU())

	s.con = newConsole(s)
	s.mon = newMonitor(s)
	return s
}

func (s *system) boot() {
	bootDiagStart(s.h)

	s.stage("clock")
	s.log.Info("cm4kern", "build", buildinfo.String())
	s.log.Info("core clock", "hz", s.h.Clock().CoreClockHz())

	s.stage("systick")
	s.tick.Init(s.cfg.TickHz)
	s.tickLive = s.tick.Advancing(s.cfg.LivenessSpins)
	if !s.tickLive {
		s.log.Warn("tick counter is not advancing, falling back to the sleeper for delays")
	}

	if !s.cfg.SkipSelfTest {
		s.stage("self-test")
		s.report = s.selfTest()
	}

	s.stage("main loop")
	s.lastBlink = s.tick.Now()
	s.log.Info("entering main loop", "blink_ticks", s.cfg.BlinkTicks, "backend", s.backendName())
}

func (s *system) stage(name string) {
	bootDiagSetStep(name)
	s.log.Debug("boot", "stage", name)
}

func (s *system) backendName() string {
	if s.cfg.Mock {
		return "mock"
	}
	return "board"
}

// delay waits for the given number of ticks, on the tick counter when it is
// alive and on the sleeper otherwise.
func (s *system) delay(ticks uint32) {
	if s.tickLive {
		s.tick.Delay(ticks)
		return
	}
	s.h.Sleeper().SleepMillis(s.tick.Millis(ticks))
}

func (s *system) step() (err error) {
	defer func() {
		if v := recover(); v != nil {
			s.fault(v)
			err = fmt.Errorf("kernel fault: %v", v)
		}
	}()

	s.con.poll()

	if !s.tickLive {
		s.delay(s.cfg.BlinkTicks)
		s.blink()
	} else if s.tick.Elapsed(s.lastBlink) >= s.cfg.BlinkTicks {
		s.blink()
	}

	s.steps++
	if s.steps%s.cfg.MonitorEvery == 0 {
		if err := s.mon.render(); err != nil && !errors.Is(err, hal.ErrNotImplemented) {
			s.log.Warn("monitor", "error", err)
		}
	}
	return nil
}

func (s *system) blink() {
	s.ledOn = !s.ledOn
	if s.ledOn {
		s.h.LED().High()
	} else {
		s.h.LED().Low()
	}
	s.loops++
	s.lastBlink = s.tick.Now()

	pid := s.calls.GetPID()
	now := s.calls.Time()
	s.log.Info(fmt.Sprintf("Main loop: %d (%d, %d)", s.loops, pid, now))
}
