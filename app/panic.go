package app

import (
	"fmt"
	"image/color"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"tinygo.org/x/tinyfont"
)

// fault reports a panic raised while stepping the kernel: every line goes to
// the log, and as many as fit are drawn on the framebuffer.
func (s *system) fault(v any) {
	lines := []string{
		"Kernel fault:",
		fmt.Sprintf("panic: %v", v),
		fmt.Sprintf("ticks: %d  traps: %d", s.tick.Now(), s.gw.Stats().Total),
	}
	if stack := debug.Stack(); len(stack) > 0 {
		lines = append(lines, "stack:")
		for _, line := range strings.Split(string(stack), "\n") {
			if line != "" {
				lines = append(lines, line)
			}
		}
	} else {
		lines = append(lines, "stack: unavailable")
	}

	for _, line := range lines {
		s.h.Logger().WriteLineString(line)
	}
	drawFault(newFBDisplay(s.h.Display().Framebuffer()), lines)
}

func drawFault(d *fbDisplay, lines []string) {
	if !d.ready() {
		return
	}
	d.fb.ClearRGB(255, 255, 255)

	font := &tinyfont.TomThumb
	const fontHeight, fontOffset = int16(8), int16(6)
	_, outboxWidth := tinyfont.LineWidth(font, "0")
	fontWidth := int16(outboxWidth)
	if fontWidth <= 0 {
		_ = d.Display()
		return
	}

	fg := color.RGBA{R: 0, G: 0, B: 0, A: 255}
	maxW, maxH := d.Size()
	cols := maxW / fontWidth
	if cols <= 0 {
		cols = 1
	}

	y := int16(0)
	for _, line := range lines {
		for len(line) > 0 {
			if y+fontHeight > maxH {
				_ = d.Display()
				return
			}
			chunk, rest := takeRunes(line, cols)
			drawTextLine(d, font, fontWidth, fontOffset, 0, y, chunk, fg)
			y += fontHeight
			line = strings.TrimLeft(rest, " ")
		}
	}
	_ = d.Display()
}

func drawTextLine(
	d *fbDisplay,
	font tinyfont.Fonter,
	fontWidth, fontOffset int16,
	x0, y0 int16,
	s string,
	fg color.RGBA,
) {
	x := x0
	for _, r := range s {
		tinyfont.DrawChar(d, font, x, y0+fontOffset, r, fg)
		x += fontWidth
	}
}

// takeRunes splits s after n runes.
func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
