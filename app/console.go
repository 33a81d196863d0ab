package app

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cm4kern/internal/buildinfo"
	"cm4kern/kernel/svc"
	"cm4kern/usr"

	"github.com/google/shlex"
)

const consoleMaxLine = 128

var errUsage = errors.New("usage")

type consoleCmd struct {
	name  string
	usage string
	help  string
}

var consoleCmds = []consoleCmd{
	{"help", "help", "list commands"},
	{"ticks", "ticks", "show the tick counter and rate"},
	{"svc", "svc <name|id> [a0 a1 a2]", "issue a raw supervisor call"},
	{"write", "write <text>", "write text to stdout through the trap"},
	{"tickhz", "tickhz <hz>", "change the tick rate without resetting the counter"},
	{"stats", "stats", "show trap and reschedule counters"},
	{"version", "version", "show the build"},
	{"reboot", "reboot", "request a system reset"},
}

// console is a line protocol over the serial port. On the board backend input
// and output go through the read and write requests; on the mock backend they
// use the port directly.
type console struct {
	s    *system
	line []byte
	rx   [64]byte
}

func newConsole(s *system) *console {
	return &console{s: s}
}

func (c *console) read(p []byte) int {
	if c.s.cfg.Mock {
		return c.s.h.Serial().TryRead(p)
	}
	n, err := c.s.calls.Read(usr.Stdin, p)
	if err != nil {
		return 0
	}
	return n
}

func (c *console) out() io.Writer {
	if c.s.cfg.Mock {
		return c.s.h.Serial()
	}
	return c.s.calls.Stdout()
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out(), format, args...)
}

// poll consumes pending input and runs complete lines.
func (c *console) poll() {
	n := c.read(c.rx[:])
	for _, b := range c.rx[:n] {
		switch b {
		case '\n', '\r':
			if len(c.line) > 0 {
				c.exec(string(c.line))
			}
			c.line = c.line[:0]
		case 8, 127:
			if len(c.line) > 0 {
				c.line = c.line[:len(c.line)-1]
			}
		default:
			if len(c.line) < consoleMaxLine {
				c.line = append(c.line, b)
			}
		}
	}
}

func (c *console) exec(line string) {
	args, err := shlex.Split(line)
	if err != nil {
		c.printf("parse error: %v\n", err)
		return
	}
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "help":
		err = c.help()
	case "ticks":
		err = c.ticks()
	case "svc":
		err = c.svc(args[1:])
	case "write":
		err = c.write(args[1:])
	case "tickhz":
		err = c.tickHz(args[1:])
	case "stats":
		err = c.stats()
	case "version":
		c.printf("cm4kern %s\n", buildinfo.String())
	case "reboot":
		err = c.reboot()
	default:
		c.printf("unknown command %q (try help)\n", args[0])
		return
	}
	if errors.Is(err, errUsage) {
		c.printf("usage: %s\n", usageOf(args[0]))
	} else if err != nil {
		c.printf("error: %v\n", err)
	}
}

func usageOf(name string) string {
	for _, cmd := range consoleCmds {
		if cmd.name == name {
			return cmd.usage
		}
	}
	return name
}

func (c *console) help() error {
	for _, cmd := range consoleCmds {
		c.printf("  %-26s %s\n", cmd.usage, cmd.help)
	}
	return nil
}

func (c *console) ticks() error {
	t := c.s.tick
	c.printf("ticks %d  hz %d  load %d  up %02d:%02d:%02d\n",
		t.Now(), t.Hz(), t.Load(), t.Hours(), t.Minutes()%60, t.Seconds()%60)
	return nil
}

func parseRequest(s string) (uint8, error) {
	if r, ok := svc.ParseRequest(s); ok {
		return uint8(r), nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("bad request %q", s)
	}
	return uint8(v), nil
}

func (c *console) svc(args []string) error {
	if len(args) < 1 || len(args) > 4 {
		return errUsage
	}
	id, err := parseRequest(args[0])
	if err != nil {
		return err
	}
	var a [3]uint32
	for i, s := range args[1:] {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return fmt.Errorf("bad argument %q", s)
		}
		a[i] = uint32(v)
	}

	r0 := c.s.calls.Raw(id, a[0], a[1], a[2])
	if _, err := svc.Result(uint32(r0)); err != nil {
		c.printf("svc %s(%d) = %d (%v)\n", svc.Request(id), id, r0, err)
		return nil
	}
	c.printf("svc %s(%d) = %d\n", svc.Request(id), id, r0)
	return nil
}

func (c *console) write(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	text := strings.Join(args, " ") + "\n"
	n, err := c.s.calls.Write(usr.Stdout, []byte(text))
	if err != nil {
		return err
	}
	c.printf("wrote %d bytes\n", n)
	return nil
}

func (c *console) tickHz(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	hz, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("bad rate %q", args[0])
	}
	reload := c.s.tick.Reinit(uint32(hz))
	c.printf("tick %d Hz, reload %d, now %d\n", c.s.tick.Hz(), reload, c.s.tick.Now())
	return nil
}

func (c *console) stats() error {
	st := c.s.gw.Stats()
	c.printf("traps %d  unknown %d  last %s -> %d\n", st.Total, st.Unknown, st.Last, st.LastR0)
	for _, r := range svc.Requests {
		c.printf("  %-7s %d\n", r, st.PerReq[r])
	}
	c.printf("reschedules requested %d  delivered %d  switches %d\n",
		c.s.trig.Requested(), c.s.trig.Delivered(), c.s.sw.Count())
	return nil
}

func (c *console) reboot() error {
	c.printf("rebooting\n")
	c.s.calls.Reboot()
	return nil
}
