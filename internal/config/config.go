package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"mapviewer/internal/bounds"
	"mapviewer/internal/camera"
	"mapviewer/pkg/mercator"
	"mapviewer/pkg/tiles"
)

// Config holds the map, gesture and host configuration
type Config struct {
	Map      MapConfig     `mapstructure:"map"`
	Gestures GestureConfig `mapstructure:"gestures"`
	Timing   TimingConfig  `mapstructure:"timing"`
	Tiles    TilesConfig   `mapstructure:"tiles"`
	Logging  LoggingConfig `mapstructure:"logging"`
}

// MapConfig contains the viewport parameters
type MapConfig struct {
	MinZoom float64 `mapstructure:"min_zoom"`
	MaxZoom float64 `mapstructure:"max_zoom"`

	// LimitBounds is "center" or "edge"
	LimitBounds string `mapstructure:"limit_bounds"`

	Animate           bool    `mapstructure:"animate"`
	AnimateMaxScreens float64 `mapstructure:"animate_max_screens"`
	ZoomSnap          bool    `mapstructure:"zoom_snap"`

	// Center is decoded from its lat and lng keys
	Center mercator.GeoPoint `mapstructure:"center"`
	Zoom   float64           `mapstructure:"zoom"`
	Width  float64           `mapstructure:"width"`
	Height float64           `mapstructure:"height"`
}

// GestureConfig enables input channels and modes
type GestureConfig struct {
	MouseEvents   bool `mapstructure:"mouse_events"`
	TouchEvents   bool `mapstructure:"touch_events"`
	TwoFingerDrag bool `mapstructure:"two_finger_drag"`
	MetaWheelZoom bool `mapstructure:"meta_wheel_zoom"`
}

// TimingConfig holds the animation, debounce and warning durations
type TimingConfig struct {
	AnimationTime          time.Duration `mapstructure:"animation_time"`
	DebounceDelay          time.Duration `mapstructure:"debounce_delay"`
	WarningTimeout         time.Duration `mapstructure:"warning_timeout"`
	PinchReleaseThrowDelay time.Duration `mapstructure:"pinch_release_throw_delay"`
}

// TilesConfig selects the tile provider and the pixel ratios of srcsets
type TilesConfig struct {
	Provider string    `mapstructure:"provider"`
	DPRs     []float64 `mapstructure:"dprs"`
}

// LoggingConfig selects the slog level and handler format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Map: MapConfig{
			MinZoom:           camera.MinZoom,
			MaxZoom:           camera.MaxZoom,
			LimitBounds:       string(bounds.PolicyCenter),
			Animate:           true,
			AnimateMaxScreens: 5,
			ZoomSnap:          true,
			Center:            mercator.GeoPoint{Lat: 50.879, Lng: 4.6997},
			Zoom:              12,
			Width:             600,
			Height:            400,
		},
		Gestures: GestureConfig{
			MouseEvents: true,
			TouchEvents: true,
		},
		Timing: TimingConfig{
			AnimationTime:          300 * time.Millisecond,
			DebounceDelay:          60 * time.Millisecond,
			WarningTimeout:         300 * time.Millisecond,
			PinchReleaseThrowDelay: 300 * time.Millisecond,
		},
		Tiles: TilesConfig{
			Provider: "osm",
			DPRs:     []float64{1, 2},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// settings flattens c into viper keys
func (c *Config) settings() map[string]any {
	return map[string]any{
		"map.min_zoom":            c.Map.MinZoom,
		"map.max_zoom":            c.Map.MaxZoom,
		"map.limit_bounds":        c.Map.LimitBounds,
		"map.animate":             c.Map.Animate,
		"map.animate_max_screens": c.Map.AnimateMaxScreens,
		"map.zoom_snap":           c.Map.ZoomSnap,
		"map.center.lat":          c.Map.Center.Lat,
		"map.center.lng":          c.Map.Center.Lng,
		"map.zoom":                c.Map.Zoom,
		"map.width":               c.Map.Width,
		"map.height":              c.Map.Height,

		"gestures.mouse_events":    c.Gestures.MouseEvents,
		"gestures.touch_events":    c.Gestures.TouchEvents,
		"gestures.two_finger_drag": c.Gestures.TwoFingerDrag,
		"gestures.meta_wheel_zoom": c.Gestures.MetaWheelZoom,

		"timing.animation_time":            c.Timing.AnimationTime.String(),
		"timing.debounce_delay":            c.Timing.DebounceDelay.String(),
		"timing.warning_timeout":           c.Timing.WarningTimeout.String(),
		"timing.pinch_release_throw_delay": c.Timing.PinchReleaseThrowDelay.String(),

		"tiles.provider": c.Tiles.Provider,
		"tiles.dprs":     c.Tiles.DPRs,

		"logging.level":  c.Logging.Level,
		"logging.format": c.Logging.Format,
	}
}

// Load reads the configuration from path, or from mapviewer.yaml in . or
// ./configs when path is empty, then applies MAPVIEWER_* environment
// variables. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range DefaultConfig().settings() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("mapviewer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// MAPVIEWER_MAP_MAX_ZOOM -> map.max_zoom
	v.SetEnvPrefix("MAPVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to path. The format follows the extension.
func (c *Config) Save(path string) error {
	v := viper.New()
	for key, value := range c.settings() {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	var errs []string

	m := c.Map
	if m.MinZoom < 0 {
		errs = append(errs, fmt.Sprintf("map.min_zoom must be >= 0, got %v", m.MinZoom))
	}
	if m.MaxZoom < m.MinZoom {
		errs = append(errs, fmt.Sprintf("map.max_zoom (%v) must be >= map.min_zoom (%v)", m.MaxZoom, m.MinZoom))
	}
	if _, err := bounds.ParsePolicy(m.LimitBounds); err != nil {
		errs = append(errs, fmt.Sprintf("map.limit_bounds: %v", err))
	}
	if m.AnimateMaxScreens < 0 {
		errs = append(errs, "map.animate_max_screens must not be negative")
	}
	if m.Width <= 0 || m.Height <= 0 {
		errs = append(errs, fmt.Sprintf("map.width and map.height must be positive, got %vx%v", m.Width, m.Height))
	}
	if m.Center.Lat < -mercator.MaxLatitude || m.Center.Lat > mercator.MaxLatitude {
		errs = append(errs, fmt.Sprintf("map.center.lat must be within ±%v, got %v", mercator.MaxLatitude, m.Center.Lat))
	}

	t := c.Timing
	if t.AnimationTime < 0 || t.DebounceDelay < 0 || t.WarningTimeout < 0 || t.PinchReleaseThrowDelay < 0 {
		errs = append(errs, "timing values must not be negative")
	}

	if _, err := tiles.ProviderByName(c.Tiles.Provider); err != nil {
		errs = append(errs, fmt.Sprintf("tiles.provider: %v", err))
	}
	for _, dpr := range c.Tiles.DPRs {
		if dpr <= 0 {
			errs = append(errs, fmt.Sprintf("tiles.dprs must be positive, got %v", dpr))
			break
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CameraOptions converts the configuration into camera options. Callbacks
// and the logger are left for the caller.
func (c *Config) CameraOptions() camera.Options {
	policy, err := bounds.ParsePolicy(c.Map.LimitBounds)
	if err != nil {
		policy = bounds.PolicyCenter
	}

	return camera.Options{
		MinZoom:                c.Map.MinZoom,
		MaxZoom:                c.Map.MaxZoom,
		Bounds:                 policy,
		Animate:                c.Map.Animate,
		AnimateMaxScreens:      c.Map.AnimateMaxScreens,
		ZoomSnap:               c.Map.ZoomSnap,
		MouseEvents:            c.Gestures.MouseEvents,
		TouchEvents:            c.Gestures.TouchEvents,
		TwoFingerDrag:          c.Gestures.TwoFingerDrag,
		MetaWheelZoom:          c.Gestures.MetaWheelZoom,
		AnimationTime:          c.Timing.AnimationTime,
		DebounceDelay:          c.Timing.DebounceDelay,
		WarningTimeout:         c.Timing.WarningTimeout,
		PinchReleaseThrowDelay: c.Timing.PinchReleaseThrowDelay,
		Center:                 c.Map.Center,
		Zoom:                   c.Map.Zoom,
		Width:                  c.Map.Width,
		Height:                 c.Map.Height,
	}
}

// Provider returns the configured tile provider
func (c *Config) Provider() (tiles.Provider, error) {
	return tiles.ProviderByName(c.Tiles.Provider)
}
