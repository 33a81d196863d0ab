//go:build !tinygo

package hal

import (
	"unsafe"

	"cm4kern/kernel/trap"
)

// Host memory map.
const (
	FlashBase = 0x0800_0000
	SRAMBase  = 0x2000_0000
	SRAMSize  = 16 * 1024

	// ScratchBase is where TrapBuffer stages caller buffers.
	ScratchBase = SRAMBase
	ScratchSize = 4 * 1024

	// StackTop is the initial process stack pointer.
	StackTop = SRAMBase + SRAMSize
)

// SVCAddr returns the address of the "svc #id" instruction in host flash.
func SVCAddr(id uint8) uint32 {
	return FlashBase + uint32(id)*trap.SVCWidth
}

// hostMemory is flash with one SVC per request id followed by SRAM backed by
// words, so exception frames can be overlaid in place.
type hostMemory struct {
	flash []uint16
	sram  []uint32
}

func newHostMemory() *hostMemory {
	m := &hostMemory{
		flash: make([]uint16, 256),
		sram:  make([]uint32, SRAMSize/4),
	}
	for i := range m.flash {
		m.flash[i] = trap.EncodeSVC(uint8(i))
	}
	return m
}

func (m *hostMemory) Halfword(addr uint32) uint16 {
	switch {
	case addr >= FlashBase && addr-FlashBase < uint32(len(m.flash))*2:
		return m.flash[(addr-FlashBase)/2]
	case addr >= SRAMBase && addr-SRAMBase < SRAMSize:
		w := m.sram[(addr-SRAMBase)/4]
		return uint16(w >> ((addr & 2) * 8))
	default:
		return 0
	}
}

func (m *hostMemory) Bytes(addr, n uint32) ([]byte, bool) {
	if addr < SRAMBase {
		return nil, false
	}
	off := addr - SRAMBase
	if off > SRAMSize || n > SRAMSize-off {
		return nil, false
	}
	all := unsafe.Slice((*byte)(unsafe.Pointer(&m.sram[0])), SRAMSize)
	return all[off : off+n : off+n], true
}

// frameAt overlays an exception frame on SRAM at sp.
func (m *hostMemory) frameAt(sp uint32) *trap.Frame {
	i := (sp - SRAMBase) / 4
	return trap.FrameOf(m.sram[i : i+trap.FrameWords])
}

func (m *hostMemory) clear() {
	clear(m.sram)
}
