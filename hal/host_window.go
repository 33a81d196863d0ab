//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"

	"cm4kern/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
)

// RunWindow starts a desktop window that presents the framebuffer. The core
// clock and console run in the background. It blocks until the window closes.
func RunWindow(hc HostConfig, newApp func(HAL) func() error) error {
	hh, err := New(hc)
	if err != nil {
		return err
	}
	h := hh.(*hostHAL)

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.t.run(ctx, 0) })
	g.Go(func() error { return h.serial.pump(ctx) })

	game := &hostGame{h: h, newApp: newApp}
	game.step = newApp(h)

	ebiten.SetWindowTitle("cm4kern (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*2, h.fb.height*2)
	ebiten.SetTPS(60)
	runErr := ebiten.RunGame(game)

	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return runErr
}

type hostGame struct {
	h       *hostHAL
	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
	newApp  func(HAL) func() error
	step    func() error
}

func (g *hostGame) Update() error {
	err := g.h.step(g.step)
	if errors.Is(err, ErrReset) {
		g.h.logger.WriteLineString("hal: system reset")
		g.h.reset()
		g.step = g.newApp(g.h)
		return nil
	}
	return err
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshotRGB565(g.scratch)
	rgb565ToRGBA(g.img.Pix, g.scratch)

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
