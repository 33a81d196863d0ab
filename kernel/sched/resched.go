// Package sched holds the reschedule trigger: the edge between a yield
// request and whatever performs the actual context switch.
package sched

import "sync/atomic"

// Pender sets the PendSV pending bit and issues the barriers that make the
// write visible before returning.
type Pender interface {
	PendSV()
}

// Switcher is the context-switch body. It runs in the PendSV exception, after
// the trap that requested it has returned.
type Switcher interface {
	Reschedule()
}

// Trigger pends reschedules and delivers them to a Switcher.
type Trigger struct {
	_ [0]func() // prevent accidental copying.

	pend Pender
	sw   Switcher

	requested atomic.Uint32
	delivered atomic.Uint32
}

func New(pend Pender, sw Switcher) *Trigger {
	if sw == nil {
		sw = &NopSwitcher{}
	}
	return &Trigger{pend: pend, sw: sw}
}

// RequestReschedule pends the low-priority exception and returns. The switch
// happens later, never inside the caller's exception.
func (t *Trigger) RequestReschedule() {
	t.requested.Add(1)
	if t.pend != nil {
		t.pend.PendSV()
	}
}

// OnPendSV is the PendSV exception body.
func (t *Trigger) OnPendSV() {
	t.delivered.Add(1)
	t.sw.Reschedule()
}

// Requested returns how many reschedules were requested.
func (t *Trigger) Requested() uint32 { return t.requested.Load() }

// Delivered returns how many PendSV exceptions reached the switcher.
func (t *Trigger) Delivered() uint32 { return t.delivered.Load() }

// Switcher returns the installed context-switch body.
func (t *Trigger) Switcher() Switcher { return t.sw }

// NopSwitcher resumes the interrupted context. It only counts notifications.
type NopSwitcher struct {
	n atomic.Uint32
}

func (s *NopSwitcher) Reschedule() { s.n.Add(1) }

// Count returns how many reschedule notifications arrived.
func (s *NopSwitcher) Count() uint32 { return s.n.Load() }
