package app

import (
	"strings"
	"testing"

	"cm4kern/kernel/svc"
)

func TestConsoleCommands(t *testing.T) {
	s, out := newTestSystem(t, Config{Mock: true, SkipSelfTest: true})

	tests := []struct {
		line string
		want string
	}{
		{"help", "svc <name|id> [a0 a1 a2]"},
		{"ticks", "hz 1000  load 15999"},
		{"svc getpid", "svc getpid(5) = 1000\n"},
		{"svc 255", "svc unknown(255) = -38 (function not implemented)\n"},
		{"svc write 1 0 4", "svc write(55) = 4\n"},
		{"svc bogus", "error: bad request \"bogus\"\n"},
		{"svc", "usage: svc <name|id> [a0 a1 a2]\n"},
		{"write 'hello there'", "wrote 12 bytes\n"},
		{"tickhz 100", "tick 100 Hz, reload 160000"},
		{"tickhz", "usage: tickhz <hz>\n"},
		{"stats", "  getpid  1\n"},
		{"version", "cm4kern dev ("},
		{"frobnicate", "unknown command \"frobnicate\" (try help)\n"},
		{"svc 'unterminated", "parse error:"},
	}
	for _, tt := range tests {
		before := len(out.String())
		s.con.exec(tt.line)
		got := out.String()[before:]
		if !strings.Contains(got, tt.want) {
			t.Fatalf("exec(%q) wrote %q, want it to contain %q", tt.line, got, tt.want)
		}
	}

	if got := s.h.SysTick().Load(); got != 159999 {
		t.Fatalf("LOAD after tickhz = %d, want 159999", got)
	}

	s.con.exec("reboot")
	if n := s.be.(*svc.MockBackend).Reboots(); n != 1 {
		t.Fatalf("Reboots() = %d, want 1", n)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		in      string
		want    uint8
		wantErr bool
	}{
		{"yield", 120, false},
		{"time", 113, false},
		{"7", 7, false},
		{"0xff", 255, false},
		{"256", 0, true},
		{"nope", 0, true},
	}
	for _, tt := range tests {
		got, err := parseRequest(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("parseRequest(%q) = %d, %v, want %d (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
