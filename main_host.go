//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"cm4kern/app"
	"cm4kern/hal"
)

func main() {
	var cfg hal.HeadlessConfig
	var hc hal.HostConfig
	var ac app.Config
	var usePLL bool
	var console string
	pll := hal.DefaultClockConfig()

	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window.")
	flag.IntVar(&cfg.Hz, "hz", 1000, "Step rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "ticks", 0, "Stop after N steps in headless mode (0 = run forever).")
	uint32Var(&hc.CoreClockHz, "core-clock", "Core clock in Hz (0 = PLL or 16000000).")
	flag.BoolVar(&usePLL, "pll", false, "Derive the core clock from the PLL settings.")
	uint32Var(&pll.PLLM, "pll-m", "PLL input divider (default 4).")
	uint32Var(&pll.PLLN, "pll-n", "PLL multiplier (default 180).")
	uint32Var(&pll.PLLP, "pll-p", "PLL output divider (default 2).")
	flag.StringVar(&console, "console", "tty", "Console input: none, stdin or tty.")
	uint32Var(&ac.TickHz, "tick-hz", "SysTick rate in Hz (0 = 1000).")
	uint32Var(&ac.BlinkTicks, "blink", "LED period in ticks (0 = 500).")
	flag.BoolVar(&ac.Mock, "mock", false, "Serve requests from the mock backend.")
	flag.StringVar(&ac.LogLevel, "log-level", "info", "Log level: trace, debug, info, warn or error.")
	flag.BoolVar(&ac.SkipSelfTest, "skip-selftest", false, "Skip the boot-time request round.")
	flag.Parse()

	mode, ok := hal.ParseConsoleMode(console)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown console mode %q\n", console)
		os.Exit(2)
	}
	hc.Console = mode
	if usePLL {
		hc.PLL = &pll
	}

	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, ac)
	}

	if cfg.Enabled {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := hal.RunHeadless(ctx, hc, newApp, cfg); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(hc, newApp); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func uint32Var(p *uint32, name, usage string) {
	flag.Func(name, usage, func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return err
		}
		*p = uint32(v)
		return nil
	})
}
