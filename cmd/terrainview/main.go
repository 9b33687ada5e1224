// terrainview draws a terrain map, streaming baked regions around the
// camera or editing an editable map in place.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/engine/debug"
	"github.com/Faultbox/midgard-terrain/internal/engine/gldevice"
	"github.com/Faultbox/midgard-terrain/internal/engine/input"
	"github.com/Faultbox/midgard-terrain/internal/engine/lighting"
	"github.com/Faultbox/midgard-terrain/internal/engine/picking"
	"github.com/Faultbox/midgard-terrain/internal/engine/renderer"
	"github.com/Faultbox/midgard-terrain/internal/engine/window"
	"github.com/Faultbox/midgard-terrain/internal/logger"
	"github.com/Faultbox/midgard-terrain/internal/storage"
	"github.com/Faultbox/midgard-terrain/internal/terrain"
	"github.com/Faultbox/midgard-terrain/pkg/formats"
	"github.com/Faultbox/midgard-terrain/pkg/math"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitFromConfig(cfg.Logging.Logger()); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== Terrain Viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("viewer error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

type viewer struct {
	cfg    *config.Config
	win    *window.Window
	device *gldevice.Device
	rend   *renderer.TerrainRenderer
	scene  *scene
	cam    *camera.OrbitCamera
	in     *input.Input
	ranges []float32
	shots  *debug.Screenshots

	width, height int
	lowering      bool
}

func run(ctx context.Context, cfg *config.Config) error {
	win, err := window.New(window.Config{
		Title:      "terrainview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		return err
	}
	defer win.Close()

	archive, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return err
	}
	baked := archive.Exists(formats.MapHeaderName)
	params, err := peekParameters(archive, baked)
	if err == nil && baked {
		// The asset manager opens its own handle.
		err = archive.Close()
	}
	if err != nil {
		return err
	}

	v := &viewer{
		cfg:   cfg,
		win:   win,
		cam:   camera.NewOrbitCamera(),
		in:    input.New(),
		shots: debug.NewScreenshots("screenshots", "terrain"),
	}
	v.device, err = gldevice.New(params.SectionWorldSize())
	if err != nil {
		return err
	}
	defer v.device.Close()
	v.device.SetSunDirection(lighting.SunDirection(cfg.Render.SunAzimuth, cfg.Render.SunElevation))

	v.rend = renderer.New(v.device)
	defer v.rend.Close()

	sc := newScene(v.rend)
	if baked {
		err = sc.openStreamed(cfg.Storage.Backend, cfg.Storage.Path, cfg.Streaming.LoadRadius)
	} else {
		err = sc.openEditable(ctx, archive)
	}
	if err != nil {
		return err
	}
	v.scene = sc
	defer func() {
		if err := sc.close(context.Background()); err != nil {
			logger.Error("closing scene failed", zap.Error(err))
		}
	}()

	v.ranges = cfg.Render.Ranges(params)
	v.width, v.height = win.Size()
	v.device.Viewport(v.width, v.height)
	v.cam.SetViewport(v.width, v.height)
	v.cam.FitToBounds(sc.bounds())

	return v.loop(ctx)
}

// peekParameters reads the terrain parameters from the map or terrain
// header.
func peekParameters(archive storage.Archive, baked bool) (terrain.Parameters, error) {
	if baked {
		data, err := archive.Read(formats.MapHeaderName)
		if err != nil {
			return terrain.Parameters{}, err
		}
		h, err := formats.ParseMapHeader(data)
		if err != nil {
			return terrain.Parameters{}, err
		}
		return terrain.ParametersFromHeader(&h.Terrain)
	}
	data, err := archive.Read(formats.TerrainHeaderName)
	if err != nil {
		return terrain.Parameters{}, err
	}
	h, err := formats.ParseTerrainHeader(data)
	if err != nil {
		return terrain.Parameters{}, err
	}
	return terrain.ParametersFromHeader(h)
}

func (v *viewer) loop(ctx context.Context) error {
	logger.Info("starting viewer loop")
	last := time.Now()
	frames := 0
	fpsTimer := time.Now()

	var minFrame time.Duration
	if v.cfg.Graphics.FPSLimit > 0 {
		minFrame = time.Second / time.Duration(v.cfg.Graphics.FPSLimit)
	}

	for ctx.Err() == nil {
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		f := v.in.Poll()
		if f.Quit || f.WasPressed(sdl.SCANCODE_ESCAPE) {
			break
		}
		v.handleInput(f, dt)

		if err := v.scene.update(ctx, v.cam.Center); err != nil {
			// Failed regions are logged by the map and retried when the
			// camera moves on.
			logger.Debug("streaming incomplete", zap.Error(err))
		}
		if h, ok := v.scene.groundHeight(v.cam.Center); ok {
			v.cam.Center.Z = h
		}

		v.rend.Update()
		var frustum *math.Frustum
		if v.cfg.Render.FrustumCulling {
			fr := v.cam.Frustum()
			frustum = &fr
		}
		entries := v.rend.Select(v.cam.Position(), frustum, v.ranges)

		v.device.Clear()
		v.rend.Draw(entries, v.cam.ViewProjection(), v.cam.Position())
		if f.WasPressed(sdl.SCANCODE_F12) {
			v.screenshot()
		}
		v.win.SwapBuffers()

		frames++
		if time.Since(fpsTimer) >= time.Second {
			st := v.rend.Stats()
			v.win.SetTitle(fmt.Sprintf("terrainview - %d fps, %d draws, %d tris, %s",
				frames, st.DrawCalls, st.Triangles, v.scene.status()))
			frames = 0
			fpsTimer = time.Now()
		}
		if minFrame > 0 {
			if spent := time.Since(now); spent < minFrame {
				time.Sleep(minFrame - spent)
			}
		}
	}
	return nil
}

func (v *viewer) screenshot() {
	path, err := v.shots.Capture(v.device.ReadPixels(v.width, v.height), v.width, v.height)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

func (v *viewer) handleInput(f *input.Frame, dt float32) {
	if f.Resized {
		v.width, v.height = f.Width, f.Height
		v.device.Viewport(f.Width, f.Height)
		v.cam.SetViewport(f.Width, f.Height)
	}
	if f.DragX != 0 || f.DragY != 0 {
		v.cam.HandleDrag(f.DragX, f.DragY)
	}
	if f.Wheel != 0 {
		v.cam.HandleZoom(f.Wheel)
	}
	if f.WasPressed(sdl.SCANCODE_L) {
		v.lowering = !v.lowering
	}

	forward := v.in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S)
	right := v.in.Axis(sdl.SCANCODE_D, sdl.SCANCODE_A)
	if forward != 0 || right != 0 {
		v.cam.HandleMovement(forward*dt*60, right*dt*60, 0)
	}

	if f.Clicked {
		hit, ok := picking.Pick(v.scene.rayCaster(),
			float32(f.MouseX), float32(f.MouseY), float32(v.width), float32(v.height),
			v.cam.ViewProjection())
		if !ok {
			return
		}
		strength := float32(4)
		if v.lowering {
			strength = -strength
		}
		changed := v.scene.brush(hit.Position, v.scene.parameters().SectionWorldSize()/8, strength)
		logger.Debug("picked",
			zap.Int32("sectionX", hit.SectionX),
			zap.Int32("sectionY", hit.SectionY),
			zap.Float32("x", hit.Position.X),
			zap.Float32("y", hit.Position.Y),
			zap.Float32("z", hit.Position.Z),
			zap.Int("changed", changed))
	}
}
