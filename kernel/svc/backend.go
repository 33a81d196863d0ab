package svc

import (
	"math"
	"sync/atomic"
)

// Backend is the privileged side of every known request. Implementations run
// in trap context: they must not block and must not loop without bound.
type Backend interface {
	// Exit records status for the calling context and hands off to the
	// reschedule trigger.
	Exit(status int32)
	GetID() uint32
	Read(fd int32, addr, count uint32) int32
	Write(fd int32, addr, count uint32) int32
	Time() uint32
	Reboot()
	Yield()
}

// Rescheduler pends a context switch.
type Rescheduler interface {
	RequestReschedule()
}

// DefaultID is the context identifier reported while no scheduler exists.
const DefaultID = 1000

// lifecycle is the exit/yield behaviour shared by every backend.
type lifecycle struct {
	resched Rescheduler

	exits  atomic.Uint32
	status atomic.Int32
}

func (l *lifecycle) Exit(status int32) {
	l.status.Store(status)
	l.exits.Add(1)
	l.Yield()
}

func (l *lifecycle) Yield() {
	if l.resched != nil {
		l.resched.RequestReschedule()
	}
}

// ExitStatus returns the status of the most recent exit request.
func (l *lifecycle) ExitStatus() (int32, bool) {
	if l.exits.Load() == 0 {
		return 0, false
	}
	return l.status.Load(), true
}

// MockBackend answers every request without real I/O.
type MockBackend struct {
	lifecycle

	id      uint32
	clock   atomic.Uint32
	reboots atomic.Uint32
}

func NewMockBackend(r Rescheduler) *MockBackend {
	return &MockBackend{lifecycle: lifecycle{resched: r}, id: DefaultID}
}

func (m *MockBackend) GetID() uint32 { return m.id }

func (m *MockBackend) Read(fd int32, addr, count uint32) int32 {
	_, _, _ = fd, addr, count
	return 0
}

func (m *MockBackend) Write(fd int32, addr, count uint32) int32 {
	_, _ = fd, addr
	if count > math.MaxInt32 {
		return EINVAL.Neg()
	}
	return int32(count)
}

// Time returns a counter that advances on every query.
func (m *MockBackend) Time() uint32 {
	return m.clock.Add(1) - 1
}

func (m *MockBackend) Reboot() { m.reboots.Add(1) }

// Reboots returns how many reboot requests were made.
func (m *MockBackend) Reboots() uint32 { return m.reboots.Load() }

// Memory resolves caller addresses to kernel-visible bytes.
type Memory interface {
	Bytes(addr, n uint32) ([]byte, bool)
}

// Port is the console behind descriptors 0, 1 and 2.
type Port interface {
	Write(p []byte) (int, error)
	// TryRead copies buffered input into p without blocking.
	TryRead(p []byte) int
}

// Clock supplies the elapsed-time value for the time request.
type Clock interface {
	Now() uint32
}

// Resetter requests a system reset.
type Resetter interface {
	SystemReset()
}

// BoardConfig wires a BoardBackend to its collaborators. Nil collaborators
// degrade to the mock behaviour for that request.
type BoardConfig struct {
	ID          uint32
	Memory      Memory
	Port        Port
	Clock       Clock
	Resetter    Resetter
	Rescheduler Rescheduler
}

// BoardBackend serves requests from real collaborators.
type BoardBackend struct {
	lifecycle

	id    uint32
	mem   Memory
	port  Port
	clock Clock
	reset Resetter
}

func NewBoardBackend(cfg BoardConfig) *BoardBackend {
	id := cfg.ID
	if id == 0 {
		id = DefaultID
	}
	return &BoardBackend{
		lifecycle: lifecycle{resched: cfg.Rescheduler},
		id:        id,
		mem:       cfg.Memory,
		port:      cfg.Port,
		clock:     cfg.Clock,
		reset:     cfg.Resetter,
	}
}

const (
	fdStdin  = 0
	fdStdout = 1
	fdStderr = 2
)

func (b *BoardBackend) GetID() uint32 { return b.id }

func (b *BoardBackend) Read(fd int32, addr, count uint32) int32 {
	if fd != fdStdin {
		return EBADF.Neg()
	}
	if count > math.MaxInt32 {
		return EINVAL.Neg()
	}
	if count == 0 || b.port == nil {
		return 0
	}
	buf, ok := b.buffer(addr, count)
	if !ok {
		return EFAULT.Neg()
	}
	return int32(b.port.TryRead(buf))
}

func (b *BoardBackend) Write(fd int32, addr, count uint32) int32 {
	if fd != fdStdout && fd != fdStderr {
		return EBADF.Neg()
	}
	if count > math.MaxInt32 {
		return EINVAL.Neg()
	}
	if count == 0 || b.port == nil {
		return int32(count)
	}
	buf, ok := b.buffer(addr, count)
	if !ok {
		return EFAULT.Neg()
	}
	n, err := b.port.Write(buf)
	if err != nil && n == 0 {
		return EIO.Neg()
	}
	return int32(n)
}

func (b *BoardBackend) buffer(addr, count uint32) ([]byte, bool) {
	if b.mem == nil {
		return nil, false
	}
	return b.mem.Bytes(addr, count)
}

func (b *BoardBackend) Time() uint32 {
	if b.clock == nil {
		return 0
	}
	return b.clock.Now()
}

func (b *BoardBackend) Reboot() {
	if b.reset != nil {
		b.reset.SystemReset()
	}
}

var (
	_ Backend = (*MockBackend)(nil)
	_ Backend = (*BoardBackend)(nil)
)
