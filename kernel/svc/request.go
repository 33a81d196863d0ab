// Package svc maps supervisor-call request numbers to kernel services.
package svc

// Request is the 8-bit immediate carried by an SVC instruction.
//
// The numbers are a wire contract with compiled callers and must not change.
type Request uint8

const (
	ReqExit   Request = 3
	ReqGetID  Request = 5
	ReqRead   Request = 50
	ReqWrite  Request = 55
	ReqTime   Request = 113
	ReqReboot Request = 119
	ReqYield  Request = 120
)

// Requests lists every known request in ascending order.
var Requests = [...]Request{ReqExit, ReqGetID, ReqRead, ReqWrite, ReqTime, ReqReboot, ReqYield}

// Known reports whether r has a handler.
func (r Request) Known() bool {
	return table[r] != nil
}

func (r Request) String() string {
	switch r {
	case ReqExit:
		return "exit"
	case ReqGetID:
		return "getpid"
	case ReqRead:
		return "read"
	case ReqWrite:
		return "write"
	case ReqTime:
		return "time"
	case ReqReboot:
		return "reboot"
	case ReqYield:
		return "yield"
	default:
		return "unknown"
	}
}

// ParseRequest returns the request with the given name.
func ParseRequest(name string) (Request, bool) {
	for _, r := range Requests {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

// Args are the three argument slots of a trap (R0, R1, R2).
type Args struct {
	A0 uint32
	A1 uint32
	A2 uint32
}
