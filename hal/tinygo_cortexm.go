//go:build tinygo && baremetal && cortexm

package hal

import (
	"device/arm"
	"runtime/volatile"
	"unsafe"

	"cm4kern/kernel/trap"
)

const (
	icsrPendSVSet    = 1 << 28
	aircrVectKey     = 0x05FA << 16
	aircrSysResetReq = 1 << 2
)

type sysTickRegs struct{}

func (sysTickRegs) SetLoad(v uint32) { arm.SYST.SYST_RVR.Set(v & 0x00FF_FFFF) }
func (sysTickRegs) ClearCurrent()    { arm.SYST.SYST_CVR.Set(0) }

func (sysTickRegs) Start() {
	arm.SYST.SYST_CSR.SetBits(SysTickClkSource | SysTickTickInt | SysTickEnable)
}

func (sysTickRegs) SetInterrupt(on bool) { setBit(&arm.SYST.SYST_CSR, SysTickTickInt, on) }
func (sysTickRegs) SetEnabled(on bool)   { setBit(&arm.SYST.SYST_CSR, SysTickEnable, on) }

func (sysTickRegs) Load() uint32    { return arm.SYST.SYST_RVR.Get() }
func (sysTickRegs) Current() uint32 { return arm.SYST.SYST_CVR.Get() }
func (sysTickRegs) Control() uint32 { return arm.SYST.SYST_CSR.Get() }

func setBit(r *volatile.Register32, bit uint32, on bool) {
	if on {
		r.SetBits(bit)
	} else {
		r.ClearBits(bit)
	}
}

type scbRegs struct{}

func (scbRegs) PendSV() {
	arm.SCB.ICSR.Set(icsrPendSVSet)
	arm.Asm("dsb 0xF")
	arm.Asm("isb 0xF")
}

func (scbRegs) PendSVPending() bool { return arm.SCB.ICSR.HasBits(icsrPendSVSet) }

func (scbRegs) SystemReset() {
	arm.Asm("dsb 0xF")
	arm.SCB.AIRCR.Set(aircrVectKey | aircrSysResetReq)
	arm.Asm("dsb 0xF")
	for {
		arm.Asm("wfi")
	}
}

// flatMemory is the physical address space. RAM accesses are limited to
// [ramBase, ramBase+ramSize).
type flatMemory struct {
	ramBase uint32
	ramSize uint32
}

func (m flatMemory) Halfword(addr uint32) uint16 {
	return volatile.LoadUint16((*uint16)(unsafe.Pointer(uintptr(addr))))
}

func (m flatMemory) Bytes(addr, n uint32) ([]byte, bool) {
	if addr < m.ramBase {
		return nil, false
	}
	off := addr - m.ramBase
	if off > m.ramSize || n > m.ramSize-off {
		return nil, false
	}
	if n == 0 {
		return []byte{}, true
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n), true
}

var handlers Handlers

// cortexCPU traps with a real "svc #imm". The immediate is encoded in the
// instruction, so every request id the kernel knows gets its own call site;
// anything else goes through "svc #255".
type cortexCPU struct{}

func (cortexCPU) Install(h Handlers) {
	arm.DisableInterrupts()
	handlers = h
	arm.EnableInterrupts(0)
}

func (cortexCPU) Trap(id uint8, a0, a1, a2 uint32) uint32 {
	return uint32(svcall(id, uintptr(a0), uintptr(a1), uintptr(a2)))
}

func (cortexCPU) TrapBuffer(id uint8, a0 uint32, buf []byte) uint32 {
	var p uintptr
	if len(buf) > 0 {
		p = uintptr(unsafe.Pointer(&buf[0]))
	}
	return uint32(svcall(id, uintptr(a0), p, uintptr(len(buf))))
}

func svcall(id uint8, a0, a1, a2 uintptr) uintptr {
	switch id {
	case 3:
		return arm.SVCall3(3, a0, a1, a2)
	case 5:
		return arm.SVCall3(5, a0, a1, a2)
	case 50:
		return arm.SVCall3(50, a0, a1, a2)
	case 55:
		return arm.SVCall3(55, a0, a1, a2)
	case 113:
		return arm.SVCall3(113, a0, a1, a2)
	case 119:
		return arm.SVCall3(119, a0, a1, a2)
	case 120:
		return arm.SVCall3(120, a0, a1, a2)
	default:
		return arm.SVCall3(255, a0, a1, a2)
	}
}

// The handlers below read the frame from the process stack. Callers must run
// in thread mode on PSP, which is where goroutines run under the tasks
// scheduler.

//export SVC_Handler
func svcHandler() {
	sp := arm.AsmFull("mrs {}, psp", nil)
	f := trap.FrameAt(sp)
	if handlers.SVCall != nil {
		handlers.SVCall(f)
	}
	if handlers.Return != nil {
		handlers.Return(f)
	}
}

//export PendSV_Handler
func pendSVHandler() {
	if handlers.PendSV != nil {
		handlers.PendSV()
	}
}

//export SysTick_Handler
func sysTickHandler() {
	if handlers.SysTick != nil {
		handlers.SysTick()
	}
}
