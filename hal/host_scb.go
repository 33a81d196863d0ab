//go:build !tinygo

package hal

import "sync/atomic"

// hostSCB holds ICSR.PENDSVSET and the AIRCR reset request.
type hostSCB struct {
	pendsv atomic.Bool
	reset  atomic.Bool
}

func (s *hostSCB) PendSV()             { s.pendsv.Store(true) }
func (s *hostSCB) PendSVPending() bool { return s.pendsv.Load() }
func (s *hostSCB) SystemReset()        { s.reset.Store(true) }

// takePendSV clears the pending bit, as exception entry does.
func (s *hostSCB) takePendSV() bool { return s.pendsv.Swap(false) }

func (s *hostSCB) takeReset() bool { return s.reset.Swap(false) }
