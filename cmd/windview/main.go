// Command windview animates surface wind in a desktop window. Forecasts are
// requested from the wind API; sliders pick the forecast hour and particle
// density.
//
// Usage:
//
//	go run ./cmd/windview -config viewer.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	raysurface "github.com/couchcryptid/wind-stream-service/internal/adapter/raylib"
	"github.com/couchcryptid/wind-stream-service/internal/adapter/windclient"
	"github.com/couchcryptid/wind-stream-service/internal/config"
	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/field"
	"github.com/couchcryptid/wind-stream-service/internal/observability"
	"github.com/couchcryptid/wind-stream-service/internal/projection"
	"github.com/couchcryptid/wind-stream-service/internal/stream"
)

const panelHeight = 70

// loadResult is a finished forecast request.
type loadResult struct {
	forecastTime int
	stats        domain.SpeedStats
	err          error
}

func main() {
	configPath := flag.String("config", "", "viewer YAML config (embedded defaults when empty)")
	flag.Parse()

	cfg, err := config.LoadViewer(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := observability.NewConsoleLogger(os.Stderr, "info", "text")

	width, height := cfg.Window.Width, cfg.Window.Height
	rl.InitWindow(int32(width), int32(height+panelHeight), cfg.Window.Title)
	defer rl.CloseWindow()
	rl.SetTargetFPS(int32(cfg.Window.TargetFPS))

	surface := raysurface.NewSurface(width, height)
	defer surface.Unload()

	b := cfg.QueryBounds()
	proj, err := projection.ForBounds(b.LatN, b.LngW, b.LatS, b.LngE, float64(width), float64(height))
	if err != nil {
		log.Fatal(err)
	}

	queue := stream.NewFrameQueue(nil)
	ctrl := stream.NewController(stream.Bounds{X1: width, Y1: height}, cfg.StreamOptions(), queue, nil, logger, observability.NewMetrics())
	client := windclient.NewClient(cfg.API.URL, cfg.API.Timeout, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan loadResult, 1)
	load := func(forecastTime int) {
		go func() {
			results <- fetchField(ctx, client, ctrl, proj, cfg, forecastTime, logger)
		}()
	}

	forecastTime := cfg.View.ForecastTime
	density := cfg.View.Density
	hourSlider := float32(forecastTime)
	densitySlider := float32(density)
	status := "loading forecast..."
	loading := true
	restart := false
	load(forecastTime)

	for !rl.WindowShouldClose() {
		select {
		case res := <-results:
			loading = false
			if res.err != nil {
				status = fmt.Sprintf("forecast %d: %v", res.forecastTime, res.err)
				ctrl.Stop()
				break
			}
			status = fmt.Sprintf("forecast +%dh  mean %.1f m/s  max %.1f m/s", res.forecastTime, res.stats.Mean, res.stats.Max)
			// SetField has already resumed a running animation.
			restart = restart || !ctrl.Running()
		default:
		}

		if restart {
			surface.Clear()
		}
		surface.Begin()
		if restart {
			ctrl.Start(surface, density)
			restart = false
		}
		queue.RunDue()
		surface.End()

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		surface.Present(0, 0)

		panelY := float32(height + 10)
		rl.DrawRectangle(0, int32(height), int32(width), panelHeight, rl.Color{R: 30, G: 30, B: 30, A: 255})

		hourSlider = gui.SliderBar(
			rl.Rectangle{X: 80, Y: panelY, Width: 200, Height: 20},
			"hour", fmt.Sprintf("+%dh", int(math.Round(float64(hourSlider)))),
			hourSlider, domain.MinForecastTime, domain.MaxForecastTime,
		)
		densitySlider = gui.SliderBar(
			rl.Rectangle{X: 400, Y: panelY, Width: 200, Height: 20},
			"density", fmt.Sprintf("%.2f", densitySlider),
			densitySlider, 0.1, 3,
		)

		released := rl.IsMouseButtonReleased(rl.MouseLeftButton)
		if h := int(math.Round(float64(hourSlider))); released && h != forecastTime && !loading {
			forecastTime = h
			loading = true
			status = fmt.Sprintf("loading forecast +%dh...", h)
			load(forecastTime)
		}
		if d := float64(densitySlider); released && math.Abs(d-density) > 1e-3 {
			density = d
			restart = ctrl.Running()
		}
		if gui.Button(rl.Rectangle{X: float32(width - 130), Y: panelY, Width: 120, Height: 24}, "Reload") && !loading {
			loading = true
			status = "reloading..."
			load(forecastTime)
		}

		rl.DrawText(status, 10, int32(height+45), 16, rl.LightGray)
		rl.DrawText(fmt.Sprintf("frames %d  fps %d", ctrl.Frames(), rl.GetFPS()), int32(width-190), int32(height+45), 16, rl.Gray)
		rl.EndDrawing()
	}

	ctrl.Stop()
}

// fetchField requests one forecast window and installs it in the controller.
// It runs off the render goroutine: building the lattice never draws.
func fetchField(ctx context.Context, client *windclient.Client, ctrl *stream.Controller, proj *projection.Projection, cfg *config.Viewer, forecastTime int, logger *slog.Logger) loadResult {
	snap, err := client.Wind(ctx, cfg.QueryBounds(), forecastTime, cfg.View.Zoom)
	if err != nil {
		return loadResult{forecastTime: forecastTime, err: err}
	}
	f, err := field.FromSnapshot(snap)
	if err != nil {
		return loadResult{forecastTime: forecastTime, err: err}
	}
	ctrl.SetField(f, proj, cfg.View.Scale)
	logger.Info("forecast loaded", "forecast_time", forecastTime, "grid", fmt.Sprintf("%dx%d", snap.Header.Nx, snap.Header.Ny))
	return loadResult{forecastTime: forecastTime, stats: snap.Stats()}
}
