// Package app is a headless host for the camera: it owns a simulated frame
// clock, feeds scripted input, pretends to load tiles and records what the
// camera reports.
package app

import (
	"log/slog"
	"time"

	"mapviewer/internal/camera"
	"mapviewer/internal/config"
	"mapviewer/internal/gesture"
	"mapviewer/internal/layout"
	"mapviewer/pkg/mercator"
	"mapviewer/pkg/tiles"
)

const (
	// FrameInterval is the simulated display refresh
	FrameInterval = time.Second / 60

	// DefaultTileDelay is how many frames a requested tile takes to load
	DefaultTileDelay = 6
)

// Record is one observation made during a replay
type Record struct {
	At   time.Duration `json:"at"`
	Kind string        `json:"kind"`
	Data any           `json:"data,omitempty"`
}

// Result is the outcome of a replay
type Result struct {
	Records []Record          `json:"records"`
	State   camera.State      `json:"state"`
	Bounds  camera.Bounds     `json:"bounds"`
	Tiles   []layout.Resolved `json:"tiles"`
	Frames  int               `json:"frames"`
}

// App drives one camera
type App struct {
	cfg      *config.Config
	log      *slog.Logger
	provider tiles.Provider

	camera *camera.Camera

	start   time.Time
	now     time.Time
	frame   int
	records []Record

	// TileDelay is the simulated tile latency in frames
	TileDelay int
	requested map[string]int
	loaded    map[string]bool
}

// New creates a host whose clock starts at start
func New(cfg *config.Config, log *slog.Logger, start time.Time) (*App, error) {
	provider, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	a := &App{
		cfg:       cfg,
		log:       log,
		provider:  provider,
		start:     start,
		now:       start,
		TileDelay: DefaultTileDelay,
		requested: make(map[string]int),
		loaded:    make(map[string]bool),
	}

	opts := cfg.CameraOptions()
	opts.Logger = log
	opts.OnBoundsChanged = func(ev camera.BoundsEvent) {
		a.record("bounds", ev.Feature())
	}
	opts.OnAnimationStart = func() {
		a.record("animation_start", nil)
	}
	opts.OnAnimationStop = func() {
		a.record("animation_stop", nil)
	}
	opts.OnClick = func(ev gesture.ClickEvent) {
		a.record("click", map[string]any{
			"lat":    ev.LatLng.Lat,
			"lng":    ev.LatLng.Lng,
			"x":      ev.Pixel.X,
			"y":      ev.Pixel.Y,
			"source": ev.Source,
		})
	}
	opts.OnWarning = func(w gesture.Warning, shown bool) {
		a.record("warning", map[string]any{"kind": w, "shown": shown})
	}

	a.camera = camera.NewCamera(opts, start)
	return a, nil
}

// Camera returns the driven camera
func (a *App) Camera() *camera.Camera {
	return a.camera
}

func (a *App) record(kind string, data any) {
	a.records = append(a.records, Record{At: a.now.Sub(a.start), Kind: kind, Data: data})
}

// Dispatch delivers one scripted event at its own time
func (a *App) Dispatch(ev Event) {
	at := a.start.Add(ev.At)
	a.now = at
	c := a.camera

	mouse := gesture.MouseEvent{
		Time:       at,
		Pos:        ev.pos(),
		Button:     ev.Button,
		Meta:       ev.Meta,
		DragBlock:  ev.DragBlock,
		ClickBlock: ev.ClickBlock,
	}
	touch := gesture.TouchEvent{
		Time:      at,
		Touches:   points(ev.Touches),
		Changed:   points(ev.Changed),
		DragBlock: ev.DragBlock,
	}

	switch ev.Type {
	case EventMouseDown:
		c.MouseDown(mouse)
	case EventMouseMove:
		c.MouseMove(mouse)
	case EventMouseUp:
		c.MouseUp(mouse)
	case EventDoubleClick:
		c.DoubleClick(mouse)
	case EventDoubleTap:
		c.DoubleTap(touch)
	case EventTouchStart:
		c.TouchStart(touch)
	case EventTouchMove:
		c.TouchMove(touch)
	case EventTouchEnd:
		c.TouchEnd(touch)
	case EventWheel:
		c.Wheel(gesture.WheelEvent{Time: at, Pos: ev.pos(), DeltaY: ev.DeltaY, Meta: ev.Meta})
	case EventResize:
		c.SetSize(ev.Width, ev.Height, at)
	case EventGoto:
		c.SetCenterZoom(mercator.GeoPoint{Lat: ev.Lat, Lng: ev.Lng}, ev.Zoom, at)
	case EventPan:
		c.Pan(ev.DX, ev.DY, at)
	case EventZoomIn:
		c.ZoomIn(at)
	case EventZoomOut:
		c.ZoomOut(at)
	}

	a.log.Debug("event", "type", ev.Type, "at", ev.At)
}

// Step advances the clock by one frame: ticks the camera and progresses the
// simulated tile loads.
func (a *App) Step() {
	a.frame++
	a.now = a.start.Add(time.Duration(a.frame) * FrameInterval)
	a.camera.Tick(a.now)
	a.loadTiles()
}

// loadTiles requests every tile of the current layout and reports the ones
// that have waited TileDelay frames as loaded.
func (a *App) loadTiles() {
	for _, d := range a.camera.Tiles().Tiles {
		if d.Stale {
			continue
		}
		key := d.Index.Key()
		if a.loaded[key] {
			// cached tiles load again as soon as they are drawn
			a.tileLoaded(key)
			continue
		}

		requested, ok := a.requested[key]
		if !ok {
			a.requested[key] = a.frame
			continue
		}
		if a.frame-requested < a.TileDelay {
			continue
		}

		a.loaded[key] = true
		a.tileLoaded(key)
	}
}

func (a *App) tileLoaded(key string) {
	if a.camera.TileLoaded(key) {
		a.record("tiles_settled", map[string]any{"zoom": a.camera.State().Zoom})
	}
}

// Run replays script frame by frame and closes the camera at the end
func (a *App) Run(script *Script) Result {
	end := script.Duration()
	next := 0

	for {
		tick := time.Duration(a.frame+1) * FrameInterval
		for next < len(script.Events) && script.Events[next].At <= tick {
			a.Dispatch(script.Events[next])
			next++
		}
		a.Step()
		if tick >= end {
			break
		}
	}

	res := Result{
		Records: a.records,
		State:   a.camera.State(),
		Bounds:  a.camera.Bounds(),
		Tiles:   a.camera.Tiles().Resolve(a.provider, a.cfg.Tiles.DPRs),
		Frames:  a.frame,
	}
	a.camera.Close()

	a.log.Info("replay finished",
		"frames", a.frame,
		"records", len(a.records),
		"zoom", res.State.Zoom,
	)
	return res
}
