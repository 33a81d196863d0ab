// Package usr is the unprivileged side of the supervisor-call ABI. Every call
// traps into the kernel and returns the signed R0 result.
package usr

import "cm4kern/kernel/svc"

// Trapper executes the SVC instruction.
type Trapper interface {
	Trap(id uint8, a0, a1, a2 uint32) uint32
	TrapBuffer(id uint8, a0 uint32, buf []byte) uint32
}

// Fds of the console.
const (
	Stdin  = 0
	Stdout = 1
	Stderr = 2
)

// Calls binds the request wrappers to a Trapper.
type Calls struct {
	t Trapper
}

func New(t Trapper) Calls { return Calls{t: t} }

// Raw issues request id with three argument words and returns R0.
func (c Calls) Raw(id uint8, a0, a1, a2 uint32) int32 {
	return int32(c.t.Trap(id, a0, a1, a2))
}

func (c Calls) call(r svc.Request, a0, a1, a2 uint32) int32 {
	return c.Raw(uint8(r), a0, a1, a2)
}

// Exit terminates the calling context with status and yields.
func (c Calls) Exit(status int32) {
	c.call(svc.ReqExit, uint32(status), 0, 0)
}

func (c Calls) GetPID() uint32 {
	return uint32(c.call(svc.ReqGetID, 0, 0, 0))
}

// Time returns the kernel time counter.
func (c Calls) Time() uint32 {
	return uint32(c.call(svc.ReqTime, 0, 0, 0))
}

func (c Calls) Reboot() {
	c.call(svc.ReqReboot, 0, 0, 0)
}

// Yield gives up the processor. It returns after the reschedule has run.
func (c Calls) Yield() {
	c.call(svc.ReqYield, 0, 0, 0)
}

// Write sends p to fd.
func (c Calls) Write(fd int32, p []byte) (int, error) {
	return count(c.t.TrapBuffer(uint8(svc.ReqWrite), uint32(fd), p))
}

// Read fills p from fd without blocking; it may return 0.
func (c Calls) Read(fd int32, p []byte) (int, error) {
	return count(c.t.TrapBuffer(uint8(svc.ReqRead), uint32(fd), p))
}

func count(r0 uint32) (int, error) {
	v, err := svc.Result(r0)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Stdout returns an io.Writer over fd 1.
func (c Calls) Stdout() Writer { return Writer{c: c, fd: Stdout} }

// Writer writes to a console fd through the trap.
type Writer struct {
	c  Calls
	fd int32
}

func (w Writer) Write(p []byte) (int, error) { return w.c.Write(w.fd, p) }
