//go:build tinygo && stm32f4

package hal

import "machine"

type tinyGoHAL struct {
	logger *uartLogger
	led    *pinLED
	mem    flatMemory
	serial *uartSerial
	fb     Framebuffer
}

// New returns an STM32F4 HAL implementation.
//
// Console: the board's default UART, 115200 8N1. The core clock is whatever
// the runtime configured the PLL to; ClockConfig documents the expected tree.
func New() HAL {
	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	return &tinyGoHAL{
		logger: &uartLogger{uart: uart},
		led:    &pinLED{pin: ledPin},
		mem:    flatMemory{ramBase: 0x2000_0000, ramSize: 128 * 1024},
		serial: &uartSerial{uart: uart},
		fb:     &stubFramebuffer{w: 320, h: 240, format: PixelFormatRGB565},
	}
}

func (h *tinyGoHAL) Logger() Logger   { return h.logger }
func (h *tinyGoHAL) LED() LED         { return h.led }
func (h *tinyGoHAL) Clock() Clock     { return tinyGoClock{} }
func (h *tinyGoHAL) SysTick() SysTick { return sysTickRegs{} }
func (h *tinyGoHAL) SCB() SCB         { return scbRegs{} }
func (h *tinyGoHAL) Memory() Memory   { return h.mem }
func (h *tinyGoHAL) CPU() CPU         { return cortexCPU{} }
func (h *tinyGoHAL) Serial() Serial   { return h.serial }
func (h *tinyGoHAL) Display() Display { return tinyGoDisplay{fb: h.fb} }
func (h *tinyGoHAL) Sleeper() Sleeper { return tinyGoSleeper{} }
