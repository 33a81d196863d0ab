package hal

import (
	"errors"

	"cm4kern/kernel/trap"
)

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var (
	ErrNotImplemented = errors.New("not implemented")

	// ErrReset is returned by a runner step when the system requested a reset.
	ErrReset = errors.New("system reset requested")
)

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Clock reports the core clock the tick source divides.
type Clock interface {
	CoreClockHz() uint32
}

// SysTick is the core timer register block.
type SysTick interface {
	SetLoad(v uint32)
	ClearCurrent()
	// Start selects the core clock, enables the interrupt and the counter.
	Start()
	SetInterrupt(on bool)
	SetEnabled(on bool)

	Load() uint32
	Current() uint32
	Control() uint32
}

// SysTick CTRL bits.
const (
	SysTickEnable    = 1 << 0
	SysTickTickInt   = 1 << 1
	SysTickClkSource = 1 << 2
	SysTickCountFlag = 1 << 16
)

// SCB is the subset of the system control block the kernel touches.
type SCB interface {
	// PendSV sets ICSR.PENDSVSET. The write is visible when PendSV returns.
	PendSV()
	PendSVPending() bool
	// SystemReset requests a reset through AIRCR.SYSRESETREQ.
	SystemReset()
}

// Memory is the physical address space as seen by the kernel.
type Memory interface {
	// Halfword reads instruction memory.
	Halfword(addr uint32) uint16
	// Bytes returns n bytes of RAM at addr, or false if the range is not
	// mapped.
	Bytes(addr, n uint32) ([]byte, bool)
}

// Handlers are the exception bodies installed on the CPU.
type Handlers struct {
	SVCall  func(f *trap.Frame)
	PendSV  func()
	SysTick func()
	// Return runs after the SVCall frame is popped, with a copy of it, and
	// before a pended PendSV is taken.
	Return func(f *trap.Frame)
}

// CPU is the exception controller and the thread-mode side of the trap.
type CPU interface {
	Install(h Handlers)
	// Trap executes "svc #id" with R0..R2 loaded and returns R0.
	Trap(id uint8, a0, a1, a2 uint32) uint32
	// TrapBuffer executes "svc #id" with R1/R2 describing buf.
	TrapBuffer(id uint8, a0 uint32, buf []byte) uint32
}

// Serial is the console port.
type Serial interface {
	Write(p []byte) (int, error)
	// TryRead copies buffered input into p without blocking.
	TryRead(p []byte) int
}

// Sleeper is a delay source that does not depend on the tick counter.
type Sleeper interface {
	SleepMillis(ms uint32)
}

// HAL provides the only contact point between the kernel and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	Clock() Clock
	SysTick() SysTick
	SCB() SCB
	Memory() Memory
	CPU() CPU
	Serial() Serial
	Display() Display
	Sleeper() Sleeper
}
