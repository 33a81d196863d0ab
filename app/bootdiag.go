//go:build !(tinygo && bootdebug)

package app

import "cm4kern/hal"

func bootDiagSetStep(string) {}
func bootDiagStart(hal.HAL)  {}
