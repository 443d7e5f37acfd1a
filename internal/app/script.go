package app

import (
	"fmt"
	"io"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"mapviewer/pkg/mercator"
)

// Event types understood by a replay script
const (
	EventMouseDown   = "mousedown"
	EventMouseMove   = "mousemove"
	EventMouseUp     = "mouseup"
	EventTouchStart  = "touchstart"
	EventTouchMove   = "touchmove"
	EventTouchEnd    = "touchend"
	EventWheel       = "wheel"
	EventDoubleClick = "dblclick"
	EventDoubleTap   = "dbltap"
	EventResize      = "resize"
	EventGoto        = "goto"
	EventPan         = "pan"
	EventZoomIn      = "zoomin"
	EventZoomOut     = "zoomout"
)

// Script is a timed list of input events
type Script struct {
	// Tail is how long the replay keeps ticking after the last event
	Tail   time.Duration `yaml:"tail"`
	Events []Event       `yaml:"events"`
}

// Event is one scripted input. Only the fields of its type are read.
type Event struct {
	At   time.Duration `yaml:"at"`
	Type string        `yaml:"type"`

	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Button int     `yaml:"button"`
	Meta   bool    `yaml:"meta"`
	DeltaY float64 `yaml:"delta_y"`

	DragBlock  bool `yaml:"drag_block"`
	ClickBlock bool `yaml:"click_block"`

	Touches [][2]float64 `yaml:"touches"`
	Changed [][2]float64 `yaml:"changed"`

	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
	Zoom float64 `yaml:"zoom"`

	DX float64 `yaml:"dx"`
	DY float64 `yaml:"dy"`
}

func (e Event) pos() mercator.PixelPoint {
	return mercator.PixelPoint{X: e.X, Y: e.Y}
}

func points(in [][2]float64) []mercator.PixelPoint {
	out := make([]mercator.PixelPoint, 0, len(in))
	for _, p := range in {
		out = append(out, mercator.PixelPoint{X: p[0], Y: p[1]})
	}
	return out
}

// ParseScript reads a YAML script and orders its events by time
func ParseScript(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}

	for i, ev := range s.Events {
		if err := ev.validate(); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	if s.Tail <= 0 {
		s.Tail = time.Second
	}

	slices.SortStableFunc(s.Events, func(a, b Event) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		}
		return 0
	})
	return &s, nil
}

func (e Event) validate() error {
	if e.At < 0 {
		return fmt.Errorf("negative time %v", e.At)
	}

	switch e.Type {
	case EventMouseDown, EventMouseMove, EventMouseUp, EventWheel, EventDoubleClick,
		EventGoto, EventPan, EventZoomIn, EventZoomOut, EventTouchEnd:
	case EventTouchStart, EventTouchMove:
		if len(e.Touches) == 0 {
			return fmt.Errorf("%s without touches", e.Type)
		}
	case EventDoubleTap:
		if len(e.Touches) == 0 && len(e.Changed) == 0 {
			return fmt.Errorf("%s without touches", e.Type)
		}
	case EventResize:
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("resize to %vx%v", e.Width, e.Height)
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// Duration is the time from the start to the end of the replay
func (s *Script) Duration() time.Duration {
	var last time.Duration
	if n := len(s.Events); n > 0 {
		last = s.Events[n-1].At
	}
	return last + s.Tail
}
