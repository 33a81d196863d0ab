package hal

import "fmt"

// ClockConfig describes the PLL path from the external oscillator to HCLK:
// SYSCLK = HSE / PLLM * PLLN / PLLP, HCLK = SYSCLK / AHBDiv.
type ClockConfig struct {
	HSEHz  uint32
	PLLM   uint32
	PLLN   uint32
	PLLP   uint32
	AHBDiv uint32
}

// DefaultClockConfig is the 180 MHz configuration from an 8 MHz crystal.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		HSEHz:  8_000_000,
		PLLM:   4,
		PLLN:   180,
		PLLP:   2,
		AHBDiv: 1,
	}
}

const (
	pllInMinHz  = 1_000_000
	pllInMaxHz  = 2_000_000
	vcoMinHz    = 100_000_000
	vcoMaxHz    = 432_000_000
	sysclkMaxHz = 180_000_000
)

// Validate checks the divider ranges and the VCO limits.
func (c ClockConfig) Validate() error {
	if c.HSEHz == 0 {
		return fmt.Errorf("clock: HSE frequency is zero")
	}
	if c.PLLM < 2 || c.PLLM > 63 {
		return fmt.Errorf("clock: PLLM %d out of range [2, 63]", c.PLLM)
	}
	if c.PLLN < 50 || c.PLLN > 432 {
		return fmt.Errorf("clock: PLLN %d out of range [50, 432]", c.PLLN)
	}
	switch c.PLLP {
	case 2, 4, 6, 8:
	default:
		return fmt.Errorf("clock: PLLP %d not one of 2, 4, 6, 8", c.PLLP)
	}
	switch c.AHBDiv {
	case 1, 2, 4, 8, 16, 64, 128, 256, 512:
	default:
		return fmt.Errorf("clock: AHB prescaler %d invalid", c.AHBDiv)
	}

	in := c.HSEHz / c.PLLM
	if in < pllInMinHz || in > pllInMaxHz {
		return fmt.Errorf("clock: PLL input %d Hz out of range", in)
	}
	vco := uint64(in) * uint64(c.PLLN)
	if vco < vcoMinHz || vco > vcoMaxHz {
		return fmt.Errorf("clock: VCO %d Hz out of range", vco)
	}
	if s := vco / uint64(c.PLLP); s > sysclkMaxHz {
		return fmt.Errorf("clock: SYSCLK %d Hz above %d", s, sysclkMaxHz)
	}
	return nil
}

// SysclkHz returns the PLL output frequency.
func (c ClockConfig) SysclkHz() uint32 {
	if c.PLLM == 0 || c.PLLP == 0 {
		return c.HSEHz
	}
	vco := uint64(c.HSEHz) / uint64(c.PLLM) * uint64(c.PLLN)
	return uint32(vco / uint64(c.PLLP))
}

// HCLKHz returns the core clock.
func (c ClockConfig) HCLKHz() uint32 {
	div := c.AHBDiv
	if div == 0 {
		div = 1
	}
	return c.SysclkHz() / div
}

func (c ClockConfig) String() string {
	return fmt.Sprintf("HSE %d Hz, M=%d N=%d P=%d, AHB/%d -> %d Hz",
		c.HSEHz, c.PLLM, c.PLLN, c.PLLP, c.AHBDiv, c.HCLKHz())
}
