//go:build !tinygo

package hal

import (
	"sync"
	"sync/atomic"

	"cm4kern/kernel/trap"
)

// Exception is a core exception number.
type Exception uint8

const (
	ExcNone    Exception = 0
	ExcSVCall  Exception = 11
	ExcPendSV  Exception = 14
	ExcSysTick Exception = 15
)

func (e Exception) String() string {
	switch e {
	case ExcNone:
		return "thread"
	case ExcSVCall:
		return "SVCall"
	case ExcPendSV:
		return "PendSV"
	case ExcSysTick:
		return "SysTick"
	default:
		return "unknown"
	}
}

const (
	xpsrThumb = 1 << 24
	// callerLR is the link register value stacked for every simulated caller.
	callerLR = FlashBase + 0x201
)

// hostCPU is the exception controller. Thread mode, SVCall and PendSV share
// one lock: a trap runs to completion, is unstacked and resumed, and only then
// is a pended PendSV taken. SysTick is delivered without the lock and may preempt a trap.
type hostCPU struct {
	_ [0]func() // prevent accidental copying.

	mu  sync.Mutex
	mem *hostMemory
	scb *hostSCB
	psp uint32
	h   Handlers

	tick   atomic.Pointer[func()]
	active atomic.Uint32
	taken  [16]atomic.Uint32
}

func newHostCPU(mem *hostMemory, scb *hostSCB) *hostCPU {
	return &hostCPU{mem: mem, scb: scb, psp: StackTop}
}

func (c *hostCPU) Install(h Handlers) {
	c.mu.Lock()
	c.h = h
	c.mu.Unlock()

	if h.SysTick != nil {
		fn := h.SysTick
		c.tick.Store(&fn)
	} else {
		c.tick.Store(nil)
	}
}

// Trap must not be called from inside an installed handler.
func (c *hostCPU) Trap(id uint8, a0, a1, a2 uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.svc(id, a0, a1, a2)
}

func (c *hostCPU) TrapBuffer(id uint8, a0 uint32, buf []byte) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := uint32(len(buf))
	if n > ScratchSize {
		// Report an unmapped buffer rather than truncating it.
		return c.svc(id, a0, 0, n)
	}
	scratch, _ := c.mem.Bytes(ScratchBase, n)
	copy(scratch, buf)
	r0 := c.svc(id, a0, ScratchBase, n)
	copy(buf, scratch)
	return r0
}

func (c *hostCPU) svc(id uint8, a0, a1, a2 uint32) uint32 {
	sp := c.psp - trap.FrameBytes
	f := c.mem.frameAt(sp)
	*f = trap.Frame{
		R0:   a0,
		R1:   a1,
		R2:   a2,
		LR:   callerLR,
		PC:   SVCAddr(id) + trap.SVCWidth,
		XPSR: xpsrThumb,
	}
	c.psp = sp

	c.enter(ExcSVCall)
	if c.h.SVCall != nil {
		c.h.SVCall(f)
	}
	c.exit()

	popped := *f
	c.psp = sp + trap.FrameBytes

	if c.h.Return != nil {
		c.h.Return(&popped)
	}
	c.pendSV()
	return popped.R0
}

// pendSV takes a pending PendSV. The caller holds mu.
func (c *hostCPU) pendSV() {
	if !c.scb.takePendSV() {
		return
	}
	c.enter(ExcPendSV)
	if c.h.PendSV != nil {
		c.h.PendSV()
	}
	c.exit()
}

// poll takes a PendSV that was pended outside any trap.
func (c *hostCPU) poll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendSV()
}

// sysTick raises the SysTick exception n times.
func (c *hostCPU) sysTick(n int) {
	fn := c.tick.Load()
	for ; n > 0; n-- {
		c.taken[ExcSysTick].Add(1)
		if fn != nil {
			(*fn)()
		}
	}
}

func (c *hostCPU) enter(e Exception) {
	c.active.Store(uint32(e))
	c.taken[e].Add(1)
}

func (c *hostCPU) exit() { c.active.Store(uint32(ExcNone)) }

// Active returns the exception the controller is currently in, ignoring
// SysTick.
func (c *hostCPU) Active() Exception { return Exception(c.active.Load()) }

// Taken returns how many times e was entered.
func (c *hostCPU) Taken(e Exception) uint32 { return c.taken[e&15].Load() }

func (c *hostCPU) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mem.clear()
	c.psp = StackTop
	c.h = Handlers{}
	c.tick.Store(nil)
	c.scb.takePendSV()
	c.active.Store(uint32(ExcNone))
}
