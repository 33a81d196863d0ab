//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	Enabled bool
	// Hz is the application step rate.
	Hz int
	// Ticks stops the runner after that many steps (0 = run forever).
	Ticks uint64
	// ClockPeriod is how often wall time is converted into core cycles.
	ClockPeriod time.Duration
}

// RunHeadless runs the kernel without opening a window. The core clock, the
// console reader and the step loop run as one errgroup; a reset request
// rebuilds the application on the same board.
func RunHeadless(ctx context.Context, hc HostConfig, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	hh, err := New(hc)
	if err != nil {
		return err
	}
	h := hh.(*hostHAL)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return h.t.run(ctx, cfg.ClockPeriod) })
	g.Go(func() error { return h.serial.pump(ctx) })
	g.Go(func() error {
		defer cancel()

		step := newApp(h)
		t := time.NewTicker(d)
		defer t.Stop()

		var tick uint64
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				err := h.step(step)
				if errors.Is(err, ErrReset) {
					h.logger.WriteLineString("hal: system reset")
					h.reset()
					step = newApp(h)
					continue
				}
				if err != nil {
					return err
				}
				tick++
				if cfg.Ticks > 0 && tick >= cfg.Ticks {
					return nil
				}
			}
		}
	})
	return g.Wait()
}
