package app

import (
	"fmt"
	"image/color"
	"strings"

	"cm4kern/internal/buildinfo"
	"cm4kern/kernel/svc"

	"tinygo.org/x/tinyfont"
)

var (
	colorBG       = color.RGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	colorFG       = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	colorDim      = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	colorHeaderBG = color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 0xff}
	colorLEDOn    = color.RGBA{R: 0x4a, G: 0xdf, B: 0x6a, A: 0xff}
	colorLEDOff   = color.RGBA{R: 0x24, G: 0x24, B: 0x24, A: 0xff}
	colorErr      = color.RGBA{R: 0xff, G: 0x55, B: 0x55, A: 0xff}
)

const stalledLine = "tick stalled: fallback delay"

// monitor renders a status panel: clock, ticks, trap counts per request and
// reschedule counters.
type monitor struct {
	s     *system
	d     *fbDisplay
	font  tinyfont.Fonter
	lineH int16
	cols  int
}

func newMonitor(s *system) *monitor {
	m := &monitor{
		s:     s,
		d:     newFBDisplay(s.h.Display().Framebuffer()),
		font:  &tinyfont.TomThumb,
		lineH: 8,
	}
	_, outbox := tinyfont.LineWidth(m.font, "0")
	if w, _ := m.d.Size(); outbox > 0 {
		m.cols = int(w) / int(outbox)
	}
	return m
}

func (m *monitor) lines() []string {
	s := m.s
	t := s.tick
	st := s.gw.Stats()

	lines := []string{
		fmt.Sprintf("core %d Hz  tick %d Hz  LOAD %d", s.h.Clock().CoreClockHz(), t.Hz(), t.Load()),
		fmt.Sprintf("ticks %d  up %02d:%02d:%02d  loop %d", t.Now(), t.Hours(), t.Minutes()%60, t.Seconds()%60, s.loops),
		fmt.Sprintf("backend %s  traps %d  unknown %d", s.backendName(), st.Total, st.Unknown),
		fmt.Sprintf("last %s -> %d", st.Last, st.LastR0),
	}
	for _, r := range svc.Requests {
		lines = append(lines, fmt.Sprintf("  svc #%-3d %-7s %d", uint8(r), r, st.PerReq[r]))
	}
	lines = append(lines,
		fmt.Sprintf("resched req %d  pendsv %d  switch %d", s.trig.Requested(), s.trig.Delivered(), s.sw.Count()),
	)
	if !s.tickLive {
		lines = append(lines, stalledLine)
	}
	return lines
}

func (m *monitor) render() error {
	if !m.d.ready() {
		return nil
	}
	w, h := m.d.Size()
	m.d.FillRectangle(0, 0, w, h, colorBG)
	m.d.FillRectangle(0, 0, w, m.lineH+2, colorHeaderBG)
	m.text(2, m.lineH, "cm4kern "+buildinfo.Short(), colorFG)

	led := colorLEDOff
	if m.s.ledOn {
		led = colorLEDOn
	}
	m.d.FillRectangle(w-12, 2, 8, m.lineH-2, led)

	y := 2*m.lineH + 4
	for _, line := range m.lines() {
		if y > h {
			break
		}
		c := colorFG
		switch {
		case strings.HasPrefix(line, "  "):
			c = colorDim
		case line == stalledLine:
			c = colorErr
		}
		m.text(2, y, line, c)
		y += m.lineH
	}
	return m.d.Display()
}

func (m *monitor) text(x, y int16, s string, c color.RGBA) {
	if m.cols > 0 && len(s) > m.cols {
		s = s[:m.cols]
	}
	tinyfont.WriteLine(m.d, m.font, x, y, s, c)
}
