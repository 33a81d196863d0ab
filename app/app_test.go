package app

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"cm4kern/hal"
	"cm4kern/kernel/svc"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newTestSystem builds a system on a host board whose clock is not running,
// so delays go through the sleeper.
func newTestSystem(t *testing.T, cfg Config) (*system, *lockedBuffer) {
	t.Helper()
	out := &lockedBuffer{}
	h, err := hal.New(hal.HostConfig{Output: out})
	if err != nil {
		t.Fatalf("hal.New() = %v", err)
	}
	cfg.LivenessSpins = 1000
	s := newSystem(h, cfg)
	s.boot()
	return s, out
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.TickHz != 1000 || c.BlinkTicks != 500 || c.MonitorEvery != 10 || c.LivenessSpins <= 0 {
		t.Fatalf("withDefaults() = %+v", c)
	}
}

func TestBootProgramsSysTick(t *testing.T) {
	s, _ := newTestSystem(t, Config{SkipSelfTest: true})
	if got := s.h.SysTick().Load(); got != 15999 {
		t.Fatalf("LOAD = %d, want 15999", got)
	}
	if c := s.h.SysTick().Control(); c&(hal.SysTickEnable|hal.SysTickTickInt|hal.SysTickClkSource) != hal.SysTickEnable|hal.SysTickTickInt|hal.SysTickClkSource {
		t.Fatalf("CTRL = %#x", c)
	}
	if s.tickLive {
		t.Fatal("tickLive = true with the clock stopped")
	}
}

func TestSelfTestMock(t *testing.T) {
	s, _ := newTestSystem(t, Config{Mock: true})
	r := s.report

	if r.PID != svc.DefaultID {
		t.Fatalf("PID = %d, want %d", r.PID, svc.DefaultID)
	}
	if r.T2-r.T1 != 1 {
		t.Fatalf("mock time %d -> %d, want consecutive", r.T1, r.T2)
	}
	if r.Wrote != len(selfTestBanner) || r.WriteErr != nil {
		t.Fatalf("write = %d, %v", r.Wrote, r.WriteErr)
	}
	if r.Read != 0 || r.ReadErr != nil {
		t.Fatalf("read = %d, %v", r.Read, r.ReadErr)
	}
	if r.Switches != 1 {
		t.Fatalf("yield reschedules = %d, want 1", r.Switches)
	}
	if uint32(r.Invalid) != 0xFFFF_FFDA {
		t.Fatalf("invalid r0 = %#x, want 0xffffffda", uint32(r.Invalid))
	}
}

func TestSelfTestBoardWritesConsole(t *testing.T) {
	s, out := newTestSystem(t, Config{})
	if !strings.Contains(out.String(), string(selfTestBanner)) {
		t.Fatalf("console missing banner:\n%s", out.String())
	}
	if s.report.Wrote != len(selfTestBanner) {
		t.Fatalf("wrote %d, want %d", s.report.Wrote, len(selfTestBanner))
	}
	if s.report.Invalid != svc.ENOSYS.Neg() {
		t.Fatalf("invalid = %d, want %d", s.report.Invalid, svc.ENOSYS.Neg())
	}
	st := s.gw.Stats()
	if st.Unknown != 1 || st.PerReq[255] != 1 {
		t.Fatalf("stats unknown=%d per[255]=%d, want 1/1", st.Unknown, st.PerReq[255])
	}
}

func TestStepBlinksWithFallbackDelay(t *testing.T) {
	s, out := newTestSystem(t, Config{SkipSelfTest: true, BlinkTicks: 1})
	if err := s.step(); err != nil {
		t.Fatalf("step() = %v", err)
	}
	if err := s.step(); err != nil {
		t.Fatalf("step() = %v", err)
	}
	if s.loops != 2 || s.ledOn {
		t.Fatalf("loops=%d ledOn=%v, want 2/false", s.loops, s.ledOn)
	}
	got := out.String()
	for _, want := range []string{"led: HIGH", "led: LOW", "Main loop: 1 (1000, 0)", "Main loop: 2 (1000, 0)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestMonitorRenders(t *testing.T) {
	s, _ := newTestSystem(t, Config{SkipSelfTest: true})
	if err := s.mon.render(); err != nil {
		t.Fatalf("render() = %v", err)
	}
	d := s.mon.d
	if got, want := d.pixel(0, 0), hal.RGB565(0x18, 0x18, 0x18); got != want {
		t.Fatalf("header pixel = %#04x, want %#04x", got, want)
	}

	w, h := d.Size()
	lit := 0
	for y := 0; y < int(h); y++ {
		for x := 0; x < int(w); x++ {
			if d.pixel(x, y) == hal.RGB565(colorFG.R, colorFG.G, colorFG.B) {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Fatal("monitor drew no text")
	}

	lines := s.mon.lines()
	if !strings.HasPrefix(lines[0], "core 16000000 Hz  tick 1000 Hz  LOAD 15999") {
		t.Fatalf("lines[0] = %q", lines[0])
	}
	if lines[len(lines)-1] != stalledLine {
		t.Fatalf("last line = %q, want %q", lines[len(lines)-1], stalledLine)
	}
}

func TestStepRecoversFault(t *testing.T) {
	s, out := newTestSystem(t, Config{SkipSelfTest: true})
	s.con = nil

	err := s.step()
	if err == nil || !strings.Contains(err.Error(), "kernel fault") {
		t.Fatalf("step() = %v, want kernel fault", err)
	}
	if !strings.Contains(out.String(), "Kernel fault:") {
		t.Fatalf("fault not logged:\n%s", out.String())
	}
	if got := s.mon.d.pixel(0, 0); got != 0xFFFF {
		t.Fatalf("fault screen pixel = %#04x, want 0xffff", got)
	}
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s          string
		n          int16
		head, tail string
	}{
		{"abcdef", 3, "abc", "def"},
		{"abc", 5, "abc", ""},
		{"жжжж", 2, "жж", "жж"},
		{"", 3, "", ""},
		{"abc", 0, "", "abc"},
	}
	for _, tt := range tests {
		head, tail := takeRunes(tt.s, tt.n)
		if head != tt.head || tail != tt.tail {
			t.Fatalf("takeRunes(%q, %d) = %q, %q, want %q, %q", tt.s, tt.n, head, tail, tt.head, tt.tail)
		}
	}
}

func TestHeadlessBoot(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the host clock in real time")
	}
	out := &lockedBuffer{}
	var sys *system
	newApp := func(h hal.HAL) func() error {
		s := newSystem(h, Config{BlinkTicks: 20, LivenessSpins: 1 << 30})
		s.boot()
		sys = s
		return s.step
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := hal.RunHeadless(ctx, hal.HostConfig{Output: out}, newApp, hal.HeadlessConfig{Hz: 1000, Ticks: 200})
	if err != nil {
		t.Fatalf("RunHeadless() = %v", err)
	}

	if !sys.tickLive {
		t.Fatal("tick counter never advanced")
	}
	if d := sys.report.T2 - sys.report.T1; d < selfTestDelay {
		t.Fatalf("self-test time delta = %d, want >= %d", d, selfTestDelay)
	}
	if sys.loops == 0 {
		t.Fatalf("no blink after 200 steps:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Main loop: 1 (1000, ") {
		t.Fatalf("missing main loop line:\n%s", out.String())
	}
}
