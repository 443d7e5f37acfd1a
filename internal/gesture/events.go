package gesture

import (
	"time"

	"mapviewer/pkg/mercator"
)

// ButtonPrimary is the main mouse button
const ButtonPrimary = 0

// MouseEvent is a pointer event in viewport pixels
type MouseEvent struct {
	Time   time.Time
	Pos    mercator.PixelPoint
	Button int
	Meta   bool

	// DragBlock and ClickBlock mark events over regions that must not start
	// a drag or produce a click (markers, overlays).
	DragBlock  bool
	ClickBlock bool
}

// TouchEvent carries the touches still down and the ones that changed
type TouchEvent struct {
	Time      time.Time
	Touches   []mercator.PixelPoint
	Changed   []mercator.PixelPoint
	DragBlock bool
}

// WheelEvent is a scroll event; negative DeltaY scrolls up (zoom in)
type WheelEvent struct {
	Time   time.Time
	Pos    mercator.PixelPoint
	DeltaY float64
	Meta   bool
}

// Source tells which input channel produced a click
type Source string

const (
	SourceMouse Source = "mouse"
	SourceTouch Source = "touch"
)

// ClickEvent is a press and release that did not move the map
type ClickEvent struct {
	Time   time.Time
	LatLng mercator.GeoPoint
	Pixel  mercator.PixelPoint
	Source Source
}

// Warning is a hint the host may show when an input was refused
type Warning string

const (
	// WarningWheel asks for the modifier key while scrolling
	WarningWheel Warning = "wheel"
	// WarningFingers asks for two fingers to move the map
	WarningFingers Warning = "fingers"
)
