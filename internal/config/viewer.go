package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/wind-stream-service/internal/domain"
	"github.com/couchcryptid/wind-stream-service/internal/stream"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Viewer configures the desktop viewer and the headless renderer.
type Viewer struct {
	Window    WindowConfig    `yaml:"window"`
	API       APIConfig       `yaml:"api"`
	View      ViewConfig      `yaml:"view"`
	Animation AnimationConfig `yaml:"animation"`
}

type WindowConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ViewConfig selects what is fetched and how densely it is animated.
type ViewConfig struct {
	Bounds       string  `yaml:"bounds"` // latN,lngW,latS,lngE
	ForecastTime int     `yaml:"forecast_time"`
	Zoom         int     `yaml:"zoom"`
	Density      float64 `yaml:"density"`
	Scale        float64 `yaml:"scale"` // velocity multiplier, pixels per frame per grid unit
}

type AnimationConfig struct {
	ParticleMultiplier float64       `yaml:"particle_multiplier"`
	MaxAge             int           `yaml:"max_age"`
	FramePeriod        time.Duration `yaml:"frame_period"`
	MaxSpeed           float64       `yaml:"max_speed"`
	ColorStep          int           `yaml:"color_step"`
	FadeAlpha          float64       `yaml:"fade_alpha"`
	LineWidth          float64       `yaml:"line_width"`
	SpawnAttempts      int           `yaml:"spawn_attempts"`
}

// LoadViewer loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func LoadViewer(path string) (*Viewer, error) {
	cfg := &Viewer{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only fields present in the file are overwritten.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the view parameters the API would reject and the
// animation settings the controller cannot run with.
func (c *Viewer) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if _, err := domain.ParseBounds(c.View.Bounds); err != nil {
		return err
	}
	if err := domain.ValidateForecastTime(c.View.ForecastTime); err != nil {
		return err
	}
	if err := domain.ValidateZoom(c.View.Zoom); err != nil {
		return err
	}
	a := c.Animation
	if a.MaxAge < 1 || a.FramePeriod <= 0 || a.MaxSpeed <= 0 || a.ColorStep < 1 {
		return errors.New("invalid animation: max_age, frame_period, max_speed and color_step must be positive")
	}
	if a.FadeAlpha < 0 || a.FadeAlpha > 1 {
		return fmt.Errorf("invalid animation: fade_alpha %g outside [0,1]", a.FadeAlpha)
	}
	return nil
}

// QueryBounds returns the parsed view bounds.
func (c *Viewer) QueryBounds() domain.BoundsQuery {
	b, _ := domain.ParseBounds(c.View.Bounds)
	return b
}

// StreamOptions converts the animation settings for the controller.
func (c *Viewer) StreamOptions() stream.Options {
	a := c.Animation
	return stream.Options{
		ParticleMultiplier: a.ParticleMultiplier,
		MaxAge:             a.MaxAge,
		FramePeriod:        a.FramePeriod,
		MaxSpeed:           a.MaxSpeed,
		ColorStep:          a.ColorStep,
		FadeAlpha:          a.FadeAlpha,
		LineWidth:          a.LineWidth,
		SpawnAttempts:      a.SpawnAttempts,
	}
}
