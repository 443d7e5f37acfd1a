// Package gesture turns raw pointer, touch and wheel events into viewport
// changes: drags, throws, pinches, wheel zoom and clicks.
package gesture

import (
	"math"
	"time"

	"mapviewer/pkg/mercator"
)

// Viewport is the camera state a gesture acts on
type Viewport interface {
	// Zoom is the committed zoom level
	Zoom() float64
	Size() (width, height float64)

	// Delta is the uncommitted pixel and zoom offset of the gesture in progress
	Delta() (pixel mercator.PixelPoint, zoom float64)
	SetDelta(pixel mercator.PixelPoint, zoom float64)
	// CommitDelta folds the offset into the committed center and zoom
	CommitDelta(now time.Time) (center mercator.GeoPoint, zoom float64)

	// PixelToLatLng maps a viewport pixel, offset included
	PixelToLatLng(p mercator.PixelPoint) mercator.GeoPoint

	StopAnimating(now time.Time)
	// AnimateTo moves the center to target at zoom over d
	AnimateTo(now time.Time, target mercator.GeoPoint, zoom float64, d time.Duration)
	// ZoomAround animates to zoom keeping anchor under the same pixel
	ZoomAround(now time.Time, anchor mercator.GeoPoint, zoom float64, d time.Duration)
	// ZoomTarget is the zoom the in-flight animation heads to
	ZoomTarget() (float64, bool)

	// Clickable reports whether anyone listens for clicks
	Clickable() bool
	Click(ev ClickEvent)

	Warn(now time.Time, w Warning)
	ClearWarning()
}

// Settings are the gesture options of a map
type Settings struct {
	MinZoom float64
	MaxZoom float64

	Animate  bool
	ZoomSnap bool

	MouseEvents   bool
	TouchEvents   bool
	TwoFingerDrag bool
	MetaWheelZoom bool

	AnimationTime          time.Duration
	PinchReleaseThrowDelay time.Duration
}

// Interpreter keeps the state of the gesture in progress
type Interpreter struct {
	settings Settings

	mouseDown bool
	dragStart mercator.PixelPoint
	moves     MoveTracker

	// touchStart holds one point for a single-finger drag, two for a pinch
	touchStart     []mercator.PixelPoint
	pinch          Pinch
	pinching       bool
	secondTouchEnd time.Time

	lastWheel time.Time
}

// NewInterpreter creates an idle interpreter
func NewInterpreter(s Settings) *Interpreter {
	return &Interpreter{settings: s}
}

// Settings returns the current settings
func (in *Interpreter) Settings() Settings {
	return in.settings
}

// SetSettings replaces the settings. A gesture on a channel that got disabled
// is abandoned.
func (in *Interpreter) SetSettings(s Settings) {
	if !s.MouseEvents {
		in.mouseDown = false
	}
	if !s.TouchEvents {
		in.resetTouch()
	}
	in.settings = s
}

// Cancel abandons any gesture in progress without touching the viewport
func (in *Interpreter) Cancel() {
	in.mouseDown = false
	in.resetTouch()
	in.moves.Reset()
}

// Dragging reports whether a mouse drag or touch gesture is in progress
func (in *Interpreter) Dragging() bool {
	return in.mouseDown || in.touchStart != nil
}

// Pinching reports whether a two-finger gesture is in progress
func (in *Interpreter) Pinching() bool {
	return in.pinching
}

// MoveSamples exposes the tracked move samples
func (in *Interpreter) MoveSamples() []MoveSample {
	return in.moves.Samples()
}

func (in *Interpreter) resetTouch() {
	in.touchStart = nil
	in.pinching = false
	in.secondTouchEnd = time.Time{}
}

func inside(v Viewport, p mercator.PixelPoint) bool {
	w, h := v.Size()
	return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h
}

func (in *Interpreter) clampZoom(z float64) float64 {
	return math.Max(in.settings.MinZoom, math.Min(z, in.settings.MaxZoom))
}

// MouseDown starts a drag with the primary button
func (in *Interpreter) MouseDown(v Viewport, ev MouseEvent) {
	if !in.settings.MouseEvents || ev.Button != ButtonPrimary || ev.DragBlock {
		return
	}
	if !inside(v, ev.Pos) {
		return
	}

	v.StopAnimating(ev.Time)
	in.mouseDown = true
	in.dragStart = ev.Pos
	in.moves.Reset()
	in.moves.Track(ev.Time, ev.Pos)
}

// MouseMove follows the pointer while dragging
func (in *Interpreter) MouseMove(v Viewport, ev MouseEvent) {
	if !in.mouseDown {
		return
	}
	in.moves.Track(ev.Time, ev.Pos)

	_, zoomDelta := v.Delta()
	v.SetDelta(ev.Pos.Sub(in.dragStart), zoomDelta)
}

// MouseUp ends a drag. A release within ClickTolerance of the press is a
// click; anything else is committed and may be thrown.
func (in *Interpreter) MouseUp(v Viewport, ev MouseEvent) {
	if !in.mouseDown {
		return
	}
	in.mouseDown = false

	pixel, zoomDelta := v.Delta()
	if v.Clickable() && !ev.ClickBlock && math.Abs(pixel.X)+math.Abs(pixel.Y) <= ClickTolerance {
		v.Click(ClickEvent{
			Time:   ev.Time,
			LatLng: v.PixelToLatLng(ev.Pos),
			Pixel:  ev.Pos,
			Source: SourceMouse,
		})
		v.SetDelta(mercator.PixelPoint{}, zoomDelta)
		in.moves.Reset()
		return
	}

	center, zoom := v.CommitDelta(ev.Time)
	in.throw(v, ev.Time, ev.Pos, center, zoom)
}

func (in *Interpreter) throw(v Viewport, now time.Time, pos mercator.PixelPoint, center mercator.GeoPoint, zoom float64) {
	defer in.moves.Reset()
	if !in.settings.Animate {
		return
	}

	velocity, ok := in.moves.Velocity(now, pos)
	if !ok {
		return
	}
	w, h := v.Size()
	target, d, ok := Throw(center, zoom, velocity, w, h)
	if !ok {
		return
	}
	v.AnimateTo(now, target, zoom, d)
}

// TouchStart begins a one-finger drag or, with a second finger, a pinch
func (in *Interpreter) TouchStart(v Viewport, ev TouchEvent) {
	if !in.settings.TouchEvents || ev.DragBlock {
		return
	}

	switch len(ev.Touches) {
	case 1:
		p := ev.Touches[0]
		if !inside(v, p) {
			return
		}
		in.touchStart = []mercator.PixelPoint{p}
		in.pinching = false
		if !in.settings.TwoFingerDrag {
			v.StopAnimating(ev.Time)
			in.moves.Reset()
			in.moves.Track(ev.Time, p)
		}

	case 2:
		if in.touchStart == nil && !inside(v, midpoint(ev.Touches[0], ev.Touches[1])) {
			return
		}
		in.startPinch(v, ev.Time, ev.Touches[0], ev.Touches[1])
	}
}

func (in *Interpreter) startPinch(v Viewport, now time.Time, t1, t2 mercator.PixelPoint) {
	v.StopAnimating(now)
	in.moves.Reset()

	if pixel, zoomDelta := v.Delta(); !pixel.IsZero() || zoomDelta != 0 {
		v.CommitDelta(now)
	}

	in.touchStart = []mercator.PixelPoint{t1, t2}
	in.pinch = NewPinch(t1, t2)
	in.pinching = true
}

// TouchMove drags with one finger or pinches with two
func (in *Interpreter) TouchMove(v Viewport, ev TouchEvent) {
	if in.touchStart == nil {
		return
	}

	switch {
	case len(ev.Touches) == 1 && !in.pinching:
		p := ev.Touches[0]
		if in.settings.TwoFingerDrag {
			if inside(v, p) {
				v.Warn(ev.Time, WarningFingers)
			}
			return
		}
		in.moves.Track(ev.Time, p)
		_, zoomDelta := v.Delta()
		v.SetDelta(p.Sub(in.touchStart[0]), zoomDelta)

	case len(ev.Touches) == 2 && in.pinching:
		w, h := v.Size()
		pixel, zoomDelta := in.pinch.Delta(ev.Touches[0], ev.Touches[1], v.Zoom(), in.settings.MinZoom, in.settings.MaxZoom, w, h)
		v.SetDelta(pixel, zoomDelta)
	}
}

// TouchEnd commits the gesture. Lifting the last finger of a drag may throw
// or tap; lifting out of a pinch snaps to a whole zoom level when ZoomSnap
// is on.
func (in *Interpreter) TouchEnd(v Viewport, ev TouchEvent) {
	if in.touchStart == nil {
		return
	}

	zoomBefore := v.Zoom()
	_, zoomDelta := v.Delta()
	center, zoom := v.CommitDelta(ev.Time)
	wasPinch := in.pinching

	switch len(ev.Touches) {
	case 0:
		switch {
		case wasPinch:
			if in.settings.ZoomSnap {
				in.snap(v, ev.Time, zoomBefore, zoomDelta)
			}
		case in.settings.TwoFingerDrag:
		default:
			in.releaseSingle(v, ev, center, zoom)
		}
		if in.settings.TwoFingerDrag {
			v.ClearWarning()
		}
		in.resetTouch()
		in.moves.Reset()

	case 1:
		if wasPinch && in.settings.ZoomSnap {
			in.snap(v, ev.Time, zoomBefore, zoomDelta)
		}
		p := ev.Touches[0]
		in.secondTouchEnd = ev.Time
		in.touchStart = []mercator.PixelPoint{p}
		in.pinching = false
		in.moves.Reset()
		in.moves.Track(ev.Time, p)

	case 2:
		in.startPinch(v, ev.Time, ev.Touches[0], ev.Touches[1])
	}
}

func (in *Interpreter) releaseSingle(v Viewport, ev TouchEvent, center mercator.GeoPoint, zoom float64) {
	start := in.touchStart[0]
	end := start
	if len(ev.Changed) > 0 {
		end = ev.Changed[0]
	}

	moved := math.Abs(end.X-start.X) > ClickTolerance || math.Abs(end.Y-start.Y) > ClickTolerance
	if !moved {
		if v.Clickable() {
			v.Click(ClickEvent{
				Time:   ev.Time,
				LatLng: v.PixelToLatLng(end),
				Pixel:  end,
				Source: SourceTouch,
			})
		}
		return
	}

	// a finger left over from a pinch must not fling the map
	if !in.secondTouchEnd.IsZero() && ev.Time.Sub(in.secondTouchEnd) <= in.settings.PinchReleaseThrowDelay {
		return
	}
	in.throw(v, ev.Time, end, center, zoom)
}

// snap settles a released pinch on a whole zoom level around the point the
// pinch started on. In two-finger-drag mode a pinch that never crossed a
// level boundary returns to the level it started from.
func (in *Interpreter) snap(v Viewport, now time.Time, zoomBefore, zoomDelta float64) {
	anchor := v.PixelToLatLng(in.pinch.StartMid)
	current := v.Zoom()

	var target float64
	switch {
	case in.settings.TwoFingerDrag && math.Round(zoomBefore) == math.Round(zoomBefore+zoomDelta):
		target = math.Round(zoomBefore)
	case zoomDelta > 0:
		target = math.Ceil(current)
	default:
		target = math.Floor(current)
	}

	v.ZoomAround(now, anchor, in.clampZoom(target), in.settings.AnimationTime)
}

// Wheel zooms around the cursor by one step per ScrollPixelsForZoomLevel.
// Without ZoomSnap, steps accumulate onto the in-flight zoom target; without
// Animate, steps closer than AnimationTime are dropped.
func (in *Interpreter) Wheel(v Viewport, ev WheelEvent) {
	if !in.settings.MouseEvents {
		return
	}
	if in.settings.MetaWheelZoom && !ev.Meta {
		v.Warn(ev.Time, WarningWheel)
		return
	}

	add := -ev.DeltaY / ScrollPixelsForZoomLevel

	if !in.settings.ZoomSnap {
		if target, ok := v.ZoomTarget(); ok {
			add += target - v.Zoom()
		}
		in.zoomAround(v, ev.Time, ev.Pos, add)
		return
	}

	if in.settings.Animate {
		in.zoomAround(v, ev.Time, ev.Pos, add)
		return
	}
	if in.lastWheel.IsZero() || ev.Time.Sub(in.lastWheel) > in.settings.AnimationTime {
		in.lastWheel = ev.Time
		in.zoomAround(v, ev.Time, ev.Pos, add)
	}
}

func (in *Interpreter) zoomAround(v Viewport, now time.Time, pos mercator.PixelPoint, add float64) {
	zoom := v.Zoom()
	if (zoom <= in.settings.MinZoom && add < 0) || (zoom >= in.settings.MaxZoom && add > 0) {
		return
	}

	anchor := v.PixelToLatLng(pos)
	target := WheelZoom(zoom, add, in.settings.MinZoom, in.settings.MaxZoom, in.settings.ZoomSnap)
	v.ZoomAround(now, anchor, target, in.settings.AnimationTime)
}

// DoubleClick zooms in two levels around the clicked point
func (in *Interpreter) DoubleClick(v Viewport, ev MouseEvent) {
	if !in.settings.MouseEvents {
		return
	}
	in.zoomTwice(v, ev.Time, ev.Pos)
}

// DoubleTap zooms in two levels around the tapped point, the first changed
// touch. Hosts detect the double tap themselves.
func (in *Interpreter) DoubleTap(v Viewport, ev TouchEvent) {
	if !in.settings.TouchEvents {
		return
	}
	points := ev.Changed
	if len(points) == 0 {
		points = ev.Touches
	}
	if len(points) == 0 {
		return
	}
	in.zoomTwice(v, ev.Time, points[0])
}

func (in *Interpreter) zoomTwice(v Viewport, now time.Time, pos mercator.PixelPoint) {
	anchor := v.PixelToLatLng(pos)
	v.ZoomAround(now, anchor, in.clampZoom(v.Zoom()+2), in.settings.AnimationTime)
}
