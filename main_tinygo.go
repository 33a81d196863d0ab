//go:build tinygo

package main

import (
	"cm4kern/app"
	"cm4kern/hal"
)

func main() {
	app.Run(hal.New())
}

