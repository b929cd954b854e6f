package grove

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title         string
	Width, Height int
	// ShowFPS overlays the current FPS and TPS in the top-left corner.
	ShowFPS bool
}

// Run opens a window and drives world with an Ebitengine game loop. It
// blocks until the window is closed or the update function returns an
// error.
func Run(world *World, cfg RunConfig) error {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if world.Camera != nil && world.Camera.Viewport == (Rect{}) {
		world.Camera.Viewport = Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)}
	}

	g := &game{world: world, cfg: cfg}
	if cfg.ShowFPS {
		g.fps = newFPSOverlay()
	}
	Logger().Info("grove: run", "title", cfg.Title, "width", cfg.Width, "height", cfg.Height)
	return ebiten.RunGame(g)
}

// game adapts a World to ebiten.Game.
type game struct {
	world *World
	cfg   RunConfig
	fps   *fpsOverlay
}

func (g *game) Update() error {
	dt := float32(1.0 / float64(ebiten.TPS()))
	if fn := g.world.updateFunc; fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	g.world.Update(dt)
	if g.fps != nil {
		g.fps.update(dt)
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.world.Draw(screen)
	if g.fps != nil {
		screen.DrawImage(g.fps.img, nil)
	}
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}

// fpsOverlay is a small image showing the current FPS and TPS, redrawn
// every half second.
type fpsOverlay struct {
	img     *ebiten.Image
	elapsed float32
}

func newFPSOverlay() *fpsOverlay {
	// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
	return &fpsOverlay{img: ebiten.NewImage(100, 32), elapsed: 0.5}
}

func (f *fpsOverlay) update(dt float32) {
	f.elapsed += dt
	if f.elapsed < 0.5 {
		return
	}
	f.elapsed = 0
	f.img.Clear()
	f.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(f.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
}
