//go:build !tinygo

package hal

import (
	"testing"

	"cm4kern/kernel/trap"
)

func newTestCPU() (*hostCPU, *hostSCB, *hostMemory) {
	mem := newHostMemory()
	scb := &hostSCB{}
	return newHostCPU(mem, scb), scb, mem
}

func TestFlashHoldsSVCPerID(t *testing.T) {
	mem := newHostMemory()
	for _, id := range []uint8{0, 3, 120, 255} {
		pc := SVCAddr(id) + trap.SVCWidth
		if got := trap.RequestID(mem, pc); got != id {
			t.Fatalf("RequestID(%#x) = %d, want %d", pc, got, id)
		}
	}
}

func TestTrapStacksFrame(t *testing.T) {
	cpu, _, _ := newTestCPU()

	var seen trap.Frame
	var sp uintptr
	cpu.Install(Handlers{SVCall: func(f *trap.Frame) {
		seen = *f
		sp = uintptr(cpu.psp)
		if cpu.Active() != ExcSVCall {
			t.Errorf("Active() = %s, want SVCall", cpu.Active())
		}
		f.SetResult(int32(f.R0 + f.R1 + f.R2))
	}})

	r0 := cpu.Trap(55, 1, 2, 3)
	if r0 != 6 {
		t.Fatalf("Trap() = %d, want 6", r0)
	}
	if seen.R0 != 1 || seen.R1 != 2 || seen.R2 != 3 || seen.PC != SVCAddr(55)+2 || seen.XPSR != xpsrThumb {
		t.Fatalf("stacked frame = %+v", seen)
	}
	if sp != StackTop-trap.FrameBytes {
		t.Fatalf("psp in handler = %#x, want %#x", sp, StackTop-trap.FrameBytes)
	}
	if cpu.psp != StackTop {
		t.Fatalf("psp after return = %#x, want %#x", cpu.psp, StackTop)
	}
	if cpu.Active() != ExcNone {
		t.Fatalf("Active() after return = %s", cpu.Active())
	}
}

func TestPendSVTakenAfterTrapReturns(t *testing.T) {
	cpu, scb, _ := newTestCPU()

	var order []string
	cpu.Install(Handlers{
		SVCall: func(f *trap.Frame) {
			order = append(order, "svcall")
			scb.PendSV()
			if !scb.PendSVPending() {
				t.Error("PendSVPending() = false inside SVCall")
			}
			f.SetResult(0)
			order = append(order, "result")
		},
		PendSV: func() {
			if cpu.psp != StackTop {
				t.Errorf("PendSV ran with frame still stacked, psp %#x", cpu.psp)
			}
			order = append(order, "pendsv")
		},
		Return: func(f *trap.Frame) {
			order = append(order, "resume")
		},
	})

	cpu.Trap(120, 0, 0, 0)

	want := []string{"svcall", "result", "resume", "pendsv"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	if scb.PendSVPending() {
		t.Fatal("PendSV still pending after delivery")
	}
	if cpu.Taken(ExcPendSV) != 1 || cpu.Taken(ExcSVCall) != 1 {
		t.Fatalf("taken svcall=%d pendsv=%d, want 1/1", cpu.Taken(ExcSVCall), cpu.Taken(ExcPendSV))
	}
}

func TestNoPendSVWithoutRequest(t *testing.T) {
	cpu, _, _ := newTestCPU()
	n := 0
	cpu.Install(Handlers{PendSV: func() { n++ }})
	cpu.Trap(5, 0, 0, 0)
	cpu.poll()
	if n != 0 {
		t.Fatalf("PendSV ran %d times, want 0", n)
	}
}

func TestPollTakesPendingPendSV(t *testing.T) {
	cpu, scb, _ := newTestCPU()
	n := 0
	cpu.Install(Handlers{PendSV: func() { n++ }})
	scb.PendSV()
	scb.PendSV()
	cpu.poll()
	cpu.poll()
	if n != 1 {
		t.Fatalf("PendSV ran %d times, want 1", n)
	}
}

func TestTrapBufferRoundTrip(t *testing.T) {
	cpu, _, mem := newTestCPU()
	cpu.Install(Handlers{SVCall: func(f *trap.Frame) {
		b, ok := mem.Bytes(f.R1, f.R2)
		if !ok {
			f.SetResult(-14)
			return
		}
		for i := range b {
			b[i] ^= 0x20
		}
		f.SetResult(int32(len(b)))
	}})

	buf := []byte("hello")
	if r0 := cpu.TrapBuffer(50, 0, buf); r0 != 5 {
		t.Fatalf("TrapBuffer() = %d, want 5", r0)
	}
	if string(buf) != "HELLO" {
		t.Fatalf("buf = %q, want %q", buf, "HELLO")
	}

	big := make([]byte, ScratchSize+1)
	if r0 := int32(cpu.TrapBuffer(50, 0, big)); r0 != -14 {
		t.Fatalf("oversized TrapBuffer() = %d, want -14", r0)
	}
}

func TestSysTickDeliveredOutsideTrapLock(t *testing.T) {
	cpu, _, _ := newTestCPU()
	st := &hostSysTick{}
	clk := newHostTime(16_000_000, st, cpu)

	ticks := 0
	cpu.Install(Handlers{
		SysTick: func() { ticks++ },
		SVCall: func(f *trap.Frame) {
			// A tick arriving mid-trap must not wait for the trap to finish.
			clk.runCycles(16_000)
		},
	})
	st.SetLoad(15_999)
	st.ClearCurrent()
	st.Start()

	cpu.Trap(113, 0, 0, 0)
	if ticks != 1 {
		t.Fatalf("ticks = %d, want 1", ticks)
	}
}

func TestResetClearsState(t *testing.T) {
	cpu, scb, mem := newTestCPU()
	b, _ := mem.Bytes(SRAMBase, 4)
	copy(b, "abcd")
	scb.PendSV()
	cpu.Install(Handlers{SVCall: func(f *trap.Frame) {}})

	cpu.reset()
	if string(b) != "\x00\x00\x00\x00" {
		t.Fatalf("sram = %q after reset", b)
	}
	if scb.PendSVPending() {
		t.Fatal("PendSV pending after reset")
	}
	if r0 := cpu.Trap(3, 7, 0, 0); r0 != 7 {
		t.Fatalf("Trap() without handler = %d, want R0 unchanged 7", r0)
	}
}

func TestMemoryBounds(t *testing.T) {
	mem := newHostMemory()
	tests := []struct {
		addr, n uint32
		ok      bool
	}{
		{SRAMBase, 16, true},
		{SRAMBase + SRAMSize - 1, 1, true},
		{SRAMBase + SRAMSize, 0, true},
		{SRAMBase + SRAMSize, 1, false},
		{SRAMBase - 1, 1, false},
		{SRAMBase + 8, 0xFFFF_FFFF, false},
		{FlashBase, 4, false},
	}
	for _, tt := range tests {
		_, ok := mem.Bytes(tt.addr, tt.n)
		if ok != tt.ok {
			t.Fatalf("Bytes(%#x, %d) ok = %v, want %v", tt.addr, tt.n, ok, tt.ok)
		}
	}
}
