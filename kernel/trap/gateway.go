package trap

import (
	"sync/atomic"

	"cm4kern/kernel/svc"

	hclog "github.com/hashicorp/go-hclog"
)

// Phase is a step in the life of one trap.
type Phase uint8

const (
	PhaseIssued Phase = iota
	PhaseIdentified
	PhaseDispatched
	PhaseCompleted
	PhaseResumed
)

func (p Phase) String() string {
	switch p {
	case PhaseIssued:
		return "issued"
	case PhaseIdentified:
		return "identified"
	case PhaseDispatched:
		return "dispatched"
	case PhaseCompleted:
		return "completed"
	case PhaseResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

// Observer is told about each phase the gateway drives. It runs in trap
// context and must not block. PhaseResumed is reported through Resume, which
// the exception controller calls after unstacking.
type Observer func(p Phase, req svc.Request, f *Frame)

// Stats is a snapshot of gateway counters.
type Stats struct {
	Total   uint32
	Unknown uint32
	Last    svc.Request
	LastR0  int32
	PerReq  [256]uint32
}

// Gateway is the SVCall exception body.
type Gateway struct {
	_ [0]func() // prevent accidental copying.

	fetch Fetcher
	disp  *svc.Dispatcher
	log   hclog.Logger
	obs   Observer

	total   atomic.Uint32
	unknown atomic.Uint32
	last    atomic.Uint32
	lastR0  atomic.Int32
	perReq  [256]atomic.Uint32
}

func New(fetch Fetcher, disp *svc.Dispatcher, log hclog.Logger) *Gateway {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Gateway{fetch: fetch, disp: disp, log: log}
}

// Observe installs an observer. It must be called before traps are taken.
func (g *Gateway) Observe(obs Observer) { g.obs = obs }

// Handle services the trap whose frame is f. Only f.R0 is written.
func (g *Gateway) Handle(f *Frame) {
	g.notify(PhaseIssued, 0, f)

	req := svc.Request(RequestID(g.fetch, f.PC))
	args := svc.Args{A0: f.R0, A1: f.R1, A2: f.R2}
	g.notify(PhaseIdentified, req, f)

	g.notify(PhaseDispatched, req, f)
	res := g.disp.Dispatch(req, args)

	f.SetResult(res)
	g.notify(PhaseCompleted, req, f)

	g.total.Add(1)
	g.perReq[req].Add(1)
	g.last.Store(uint32(req))
	g.lastR0.Store(res)
	if !req.Known() {
		g.unknown.Add(1)
		if g.log.IsDebug() {
			g.log.Debug("unknown request", "id", uint8(req), "pc", f.PC)
		}
	}
}

// Resume reports PhaseResumed for a frame the exception controller has
// unstacked.
func (g *Gateway) Resume(f *Frame) {
	g.notify(PhaseResumed, svc.Request(RequestID(g.fetch, f.PC)), f)
}

func (g *Gateway) notify(p Phase, req svc.Request, f *Frame) {
	if g.obs != nil {
		g.obs(p, req, f)
	}
}

// Stats returns a snapshot of the gateway counters.
func (g *Gateway) Stats() Stats {
	st := Stats{
		Total:   g.total.Load(),
		Unknown: g.unknown.Load(),
		Last:    svc.Request(g.last.Load()),
		LastR0:  g.lastR0.Load(),
	}
	for i := range g.perReq {
		st.PerReq[i] = g.perReq[i].Load()
	}
	return st
}
