package app

import (
	"fmt"

	"cm4kern/kernel/svc"
	"cm4kern/usr"
)

// selfTestReport is what the boot-time request round observed.
type selfTestReport struct {
	PID      uint32
	T1, T2   uint32
	Wrote    int
	WriteErr error
	Read     int
	ReadErr  error
	Switches uint32
	Invalid  int32
}

const selfTestDelay = 100

var selfTestBanner = []byte("Hello from unprivileged code\r\n")

// selfTest issues each request once through the trap path and logs what came
// back. An unknown id goes last and must not disturb anything before it.
func (s *system) selfTest() selfTestReport {
	log := s.log.Named("selftest")
	var r selfTestReport

	r.PID = s.calls.GetPID()
	log.Info("getpid", "pid", r.PID)

	r.T1 = s.calls.Time()
	s.delay(selfTestDelay)
	r.T2 = s.calls.Time()
	log.Info("time", "before", r.T1, "after", r.T2, "delta", r.T2-r.T1)

	r.Wrote, r.WriteErr = s.calls.Write(usr.Stdout, selfTestBanner)
	log.Info("write", "n", r.Wrote, "error", r.WriteErr)

	var buf [16]byte
	r.Read, r.ReadErr = s.calls.Read(usr.Stdin, buf[:])
	log.Info("read", "n", r.Read, "error", r.ReadErr)

	before := s.trig.Delivered()
	s.calls.Yield()
	r.Switches = s.trig.Delivered() - before
	log.Info("yield", "reschedules", r.Switches)

	r.Invalid = s.calls.Raw(255, 0, 0, 0)
	_, err := svc.Result(uint32(r.Invalid))
	log.Info("invalid request", "id", 255, "r0", fmt.Sprintf("%#x", uint32(r.Invalid)), "error", err)
	return r
}
