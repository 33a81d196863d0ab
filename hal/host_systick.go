//go:build !tinygo

package hal

import "sync"

const sysTickMask = 0x00FF_FFFF

// hostSysTick models the 24-bit down counter. It only moves when the clock
// driver hands it core cycles.
type hostSysTick struct {
	mu   sync.Mutex
	load uint32
	val  uint32
	ctrl uint32
}

func (s *hostSysTick) SetLoad(v uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load = v & sysTickMask
}

func (s *hostSysTick) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.val = 0
	s.ctrl &^= SysTickCountFlag
}

func (s *hostSysTick) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl |= SysTickClkSource | SysTickTickInt | SysTickEnable
}

func (s *hostSysTick) SetInterrupt(on bool) { s.setCtrl(SysTickTickInt, on) }
func (s *hostSysTick) SetEnabled(on bool)   { s.setCtrl(SysTickEnable, on) }

func (s *hostSysTick) setCtrl(bit uint32, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.ctrl |= bit
	} else {
		s.ctrl &^= bit
	}
}

func (s *hostSysTick) Load() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load
}

func (s *hostSysTick) Current() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val
}

// Control returns CTRL. Reading it clears COUNTFLAG, as on hardware.
func (s *hostSysTick) Control() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ctrl
	s.ctrl &^= SysTickCountFlag
	return c
}

// advance runs the counter for the given number of core cycles and returns
// how many SysTick exceptions it raised. From VAL=0 the first cycle reloads,
// so one period is LOAD+1 cycles.
func (s *hostSysTick) advance(cycles uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctrl&SysTickEnable == 0 || s.load == 0 {
		return 0
	}
	wraps := 0
	v := uint64(s.val)
	for cycles > 0 {
		if v == 0 {
			v = uint64(s.load)
			cycles--
			continue
		}
		step := min(cycles, v)
		v -= step
		cycles -= step
		if v == 0 {
			s.ctrl |= SysTickCountFlag
			wraps++
		}
	}
	s.val = uint32(v)
	if s.ctrl&SysTickTickInt == 0 {
		return 0
	}
	return wraps
}

func (s *hostSysTick) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load, s.val, s.ctrl = 0, 0, 0
}
