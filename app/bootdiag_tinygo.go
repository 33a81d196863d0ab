//go:build tinygo && bootdebug

package app

import (
	"sync"
	"time"

	"cm4kern/hal"
)

var (
	bootDiagMu   sync.Mutex
	bootDiagStep string
)

func bootDiagSetStep(msg string) {
	bootDiagMu.Lock()
	bootDiagStep = msg
	bootDiagMu.Unlock()
}

// bootDiagStart repeats the current boot stage on the UART so a board that
// hangs before the main loop still says where it stopped.
func bootDiagStart(h hal.HAL) {
	if h == nil {
		return
	}
	l := h.Logger()

	go func() {
		for {
			bootDiagMu.Lock()
			step := bootDiagStep
			bootDiagMu.Unlock()

			if step == "" {
				step = "<reset>"
			}
			line := "bootdiag: " + step
			if l != nil {
				l.WriteLineString(line)
			}
			if step == "main loop" {
				return
			}
			time.Sleep(250 * time.Millisecond)
		}
	}()
}
