package svc

type handler func(b Backend, a Args) int32

// table is the fixed request → handler mapping. A nil entry is an unknown
// request.
var table = [256]handler{
	ReqExit: func(b Backend, a Args) int32 {
		b.Exit(int32(a.A0))
		return 0
	},
	ReqGetID: func(b Backend, _ Args) int32 {
		return int32(b.GetID())
	},
	ReqRead: func(b Backend, a Args) int32 {
		return b.Read(int32(a.A0), a.A1, a.A2)
	},
	ReqWrite: func(b Backend, a Args) int32 {
		return b.Write(int32(a.A0), a.A1, a.A2)
	},
	ReqTime: func(b Backend, _ Args) int32 {
		return int32(b.Time())
	},
	ReqReboot: func(b Backend, _ Args) int32 {
		b.Reboot()
		return 0
	},
	ReqYield: func(b Backend, _ Args) int32 {
		b.Yield()
		return 0
	},
}

// Dispatcher selects and runs one handler per request.
type Dispatcher struct {
	b Backend
}

func NewDispatcher(b Backend) *Dispatcher {
	return &Dispatcher{b: b}
}

// Backend returns the service backend handlers run against.
func (d *Dispatcher) Backend() Backend { return d.b }

// Dispatch runs the handler for r and returns the value for the result slot.
// Unknown requests return -ENOSYS without touching the backend.
func (d *Dispatcher) Dispatch(r Request, a Args) int32 {
	h := table[r]
	if h == nil {
		return ENOSYS.Neg()
	}
	return h(d.b, a)
}
