package svc

import (
	"errors"
	"testing"
)

// recorder counts backend calls so dispatch side effects are observable.
type recorder struct {
	calls int
	last  string
}

func (r *recorder) hit(name string)                         { r.calls++; r.last = name }
func (r *recorder) Exit(int32)                              { r.hit("exit") }
func (r *recorder) GetID() uint32                           { r.hit("getpid"); return 7 }
func (r *recorder) Read(int32, uint32, uint32) int32        { r.hit("read"); return 0 }
func (r *recorder) Write(_ int32, _ uint32, n uint32) int32 { r.hit("write"); return int32(n) }
func (r *recorder) Time() uint32                            { r.hit("time"); return 99 }
func (r *recorder) Reboot()                                 { r.hit("reboot") }
func (r *recorder) Yield()                                  { r.hit("yield") }

type countingResched struct{ n int }

func (c *countingResched) RequestReschedule() { c.n++ }

func TestDispatchKnownRequests(t *testing.T) {
	for _, req := range Requests {
		rec := &recorder{}
		d := NewDispatcher(rec)

		got := d.Dispatch(req, Args{A0: 1, A1: 0x2000_0000, A2: 4})
		if got < 0 {
			t.Fatalf("Dispatch(%s) = %d, want >= 0", req, got)
		}
		if rec.calls != 1 {
			t.Fatalf("Dispatch(%s) handler calls = %d, want 1", req, rec.calls)
		}
		if rec.last != req.String() {
			t.Fatalf("Dispatch(%s) ran %q", req, rec.last)
		}
	}
}

func TestDispatchUnknownRequests(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec)

	for i := 0; i < 256; i++ {
		req := Request(i)
		if req.Known() {
			continue
		}
		if got := d.Dispatch(req, Args{A0: 1, A1: 2, A2: 3}); got != -38 {
			t.Fatalf("Dispatch(%d) = %d, want -38", i, got)
		}
	}
	if rec.calls != 0 {
		t.Fatalf("unknown requests invoked %d handlers (last %q)", rec.calls, rec.last)
	}
}

func TestDispatch255(t *testing.T) {
	d := NewDispatcher(NewMockBackend(nil))
	got := uint32(d.Dispatch(255, Args{}))
	if got != 0xFFFF_FFDA {
		t.Fatalf("Dispatch(255) slot = %#x, want %#x", got, uint32(0xFFFF_FFDA))
	}
}

func TestKnownMatchesRequests(t *testing.T) {
	n := 0
	for i := 0; i < 256; i++ {
		if Request(i).Known() {
			n++
		}
	}
	if n != len(Requests) {
		t.Fatalf("known requests = %d, want %d", n, len(Requests))
	}
}

func TestRequestNumbersStable(t *testing.T) {
	want := map[Request]uint8{
		ReqExit: 3, ReqGetID: 5, ReqRead: 50, ReqWrite: 55,
		ReqTime: 113, ReqReboot: 119, ReqYield: 120,
	}
	for r, n := range want {
		if uint8(r) != n {
			t.Fatalf("%s = %d, want %d", r, uint8(r), n)
		}
	}
}

func TestParseRequest(t *testing.T) {
	r, ok := ParseRequest("write")
	if !ok || r != ReqWrite {
		t.Fatalf("ParseRequest(write) = %d, %v", r, ok)
	}
	if _, ok := ParseRequest("fork"); ok {
		t.Fatal("ParseRequest(fork) ok = true, want false")
	}
}

func TestResult(t *testing.T) {
	v, err := Result(uint32(ENOSYS.Neg()))
	if v != -38 || !errors.Is(err, ENOSYS) {
		t.Fatalf("Result(-ENOSYS) = %d, %v", v, err)
	}
	v, err = Result(10)
	if v != 10 || err != nil {
		t.Fatalf("Result(10) = %d, %v", v, err)
	}
}

func TestMockWriteAcceptsAll(t *testing.T) {
	d := NewDispatcher(NewMockBackend(nil))
	if got := d.Dispatch(ReqWrite, Args{A0: 1, A1: 0x2000_0000, A2: 10}); got != 10 {
		t.Fatalf("write(count=10) = %d, want 10", got)
	}
	if got := d.Dispatch(ReqRead, Args{A0: 0, A1: 0x2000_0000, A2: 10}); got != 0 {
		t.Fatalf("read(count=10) = %d, want 0", got)
	}
}

func TestMockTimeAdvances(t *testing.T) {
	d := NewDispatcher(NewMockBackend(nil))
	a := d.Dispatch(ReqTime, Args{})
	b := d.Dispatch(ReqTime, Args{})
	if b != a+1 {
		t.Fatalf("time = %d then %d, want consecutive", a, b)
	}
}

func TestMockGetID(t *testing.T) {
	d := NewDispatcher(NewMockBackend(nil))
	if got := d.Dispatch(ReqGetID, Args{}); got != DefaultID {
		t.Fatalf("getpid = %d, want %d", got, DefaultID)
	}
}

func TestExitRecordsStatusAndYields(t *testing.T) {
	rs := &countingResched{}
	m := NewMockBackend(rs)
	d := NewDispatcher(m)

	if _, ok := m.ExitStatus(); ok {
		t.Fatal("ExitStatus() ok before exit")
	}
	if got := d.Dispatch(ReqExit, Args{A0: uint32(0xFFFF_FFFE)}); got != 0 {
		t.Fatalf("exit = %d, want 0", got)
	}
	status, ok := m.ExitStatus()
	if !ok || status != -2 {
		t.Fatalf("ExitStatus() = %d, %v, want -2, true", status, ok)
	}
	if rs.n != 1 {
		t.Fatalf("reschedule requests = %d, want 1", rs.n)
	}
}

func TestYieldRequestsReschedule(t *testing.T) {
	rs := &countingResched{}
	d := NewDispatcher(NewMockBackend(rs))
	if got := d.Dispatch(ReqYield, Args{}); got != 0 {
		t.Fatalf("yield = %d, want 0", got)
	}
	if rs.n != 1 {
		t.Fatalf("reschedule requests = %d, want 1", rs.n)
	}
}

func TestMockReboot(t *testing.T) {
	m := NewMockBackend(nil)
	NewDispatcher(m).Dispatch(ReqReboot, Args{})
	if m.Reboots() != 1 {
		t.Fatalf("Reboots() = %d, want 1", m.Reboots())
	}
}
