package gesture

import (
	"math"
	"time"

	"mapviewer/pkg/mercator"
)

const (
	// ClickTolerance is the movement in pixels still treated as a click
	ClickTolerance = 2.0
	// MinDragForThrow is the minimum speed (pixels per VelocityWindow) that starts a throw
	MinDragForThrow = 40.0
	// DiagonalThrowTime is the throw duration for a distance of one viewport diagonal
	DiagonalThrowTime = 1500 * time.Millisecond
	// VelocityWindow normalizes throw speed
	VelocityWindow = 120 * time.Millisecond
	// ScrollPixelsForZoomLevel is the wheel delta of one zoom level
	ScrollPixelsForZoomLevel = 150.0

	sampleInterval = 40 * time.Millisecond
	maxSamples     = 2
)

// MoveSample is one tracked pointer position
type MoveSample struct {
	Time time.Time
	Pos  mercator.PixelPoint
}

// MoveTracker keeps the latest samples taken at least 40ms apart
type MoveTracker struct {
	samples []MoveSample
}

// Track records pos unless the previous sample is too recent
func (m *MoveTracker) Track(now time.Time, pos mercator.PixelPoint) {
	if n := len(m.samples); n > 0 && now.Sub(m.samples[n-1].Time) <= sampleInterval {
		return
	}
	m.samples = append(m.samples, MoveSample{Time: now, Pos: pos})
	if len(m.samples) > maxSamples {
		m.samples = m.samples[1:]
	}
}

// Samples returns the tracked samples, oldest first
func (m *MoveTracker) Samples() []MoveSample {
	return m.samples
}

// Reset forgets every sample
func (m *MoveTracker) Reset() {
	m.samples = m.samples[:0]
}

// Velocity returns the displacement from the oldest sample to pos, in pixels
// per VelocityWindow. ok is false without samples.
func (m *MoveTracker) Velocity(now time.Time, pos mercator.PixelPoint) (v mercator.PixelPoint, ok bool) {
	if len(m.samples) == 0 {
		return mercator.PixelPoint{}, false
	}
	oldest := m.samples[0]

	ms := math.Max(float64(now.Sub(oldest.Time))/float64(time.Millisecond), 1)
	window := float64(VelocityWindow) / float64(time.Millisecond)

	return pos.Sub(oldest.Pos).Scale(window / ms), true
}

// Throw computes where an inertial throw with velocity v ends and how long
// it takes. ok is false when v is too slow.
func Throw(center mercator.GeoPoint, zoom float64, v mercator.PixelPoint, width, height float64) (target mercator.GeoPoint, d time.Duration, ok bool) {
	distance := v.Len()
	if distance <= MinDragForThrow {
		return mercator.GeoPoint{}, 0, false
	}

	diagonal := math.Hypot(width, height)
	if diagonal == 0 {
		return mercator.GeoPoint{}, 0, false
	}
	d = time.Duration(float64(DiagonalThrowTime) * distance / diagonal)

	target = mercator.GeoPoint{
		Lat: mercator.TileYToLat(mercator.LatToTileY(center.Lat, zoom)-v.Y/mercator.TileSize, zoom),
		Lng: mercator.TileXToLng(mercator.LngToTileX(center.Lng, zoom)-v.X/mercator.TileSize, zoom),
	}
	return target, d, true
}

// Pinch is the start of a two-finger gesture
type Pinch struct {
	StartMid      mercator.PixelPoint
	StartDistance float64
}

// NewPinch records two touch points
func NewPinch(t1, t2 mercator.PixelPoint) Pinch {
	return Pinch{
		StartMid:      midpoint(t1, t2),
		StartDistance: t1.Sub(t2).Len(),
	}
}

func midpoint(a, b mercator.PixelPoint) mercator.PixelPoint {
	return a.Add(b).Scale(0.5)
}

// Delta returns the uncommitted zoom and pixel offset for the current touch
// points. The zoom follows the change in finger distance, clamped to
// [minZoom, maxZoom]; the pixel offset keeps the point under the starting
// midpoint under the current midpoint.
func (p Pinch) Delta(t1, t2 mercator.PixelPoint, zoom, minZoom, maxZoom, width, height float64) (pixel mercator.PixelPoint, zoomDelta float64) {
	mid := midpoint(t1, t2)
	midDiff := mid.Sub(p.StartMid)

	distance := t1.Sub(t2).Len()
	if p.StartDistance > 0 && distance > 0 {
		zoomDelta = math.Max(minZoom, math.Min(maxZoom, zoom+math.Log2(distance/p.StartDistance))) - zoom
	}
	scale := math.Exp2(zoomDelta)

	return mercator.PixelPoint{
		X: (width/2-mid.X)*(scale-1) + midDiff.X*scale,
		Y: (height/2-mid.Y)*(scale-1) + midDiff.Y*scale,
	}, zoomDelta
}

// WheelZoom returns the target zoom of one wheel step of add levels. With snap
// the target is rounded away from the current level in the scroll direction.
func WheelZoom(zoom, add, minZoom, maxZoom float64, snap bool) float64 {
	target := zoom + add
	if snap {
		if add < 0 {
			target = math.Floor(target)
		} else {
			target = math.Ceil(target)
		}
	}
	return math.Max(minZoom, math.Min(target, maxZoom))
}
