// Package animation interpolates the camera between two center/zoom frames.
// The controller never reads a clock: every call takes the current time.
package animation

import (
	"time"

	"mapviewer/pkg/mercator"
)

// Frame is a center/zoom pair
type Frame struct {
	Center mercator.GeoPoint
	Zoom   float64
}

// ZoomCenterFunc returns the center that keeps anchor fixed on screen when the
// zoom goes from fromZoom to toZoom starting at center.
type ZoomCenterFunc func(center, anchor mercator.GeoPoint, fromZoom, toZoom float64) mercator.GeoPoint

// EaseOutQuad is the easing curve of every animation
func EaseOutQuad(p float64) float64 {
	return p * (2 - p)
}

// Controller is idle until Start and idle again once a Step reaches the end
// or Stop is called.
type Controller struct {
	active bool

	start time.Time
	end   time.Time

	from Frame
	to   Frame

	anchor     mercator.GeoPoint
	hasAnchor  bool
	zoomCenter ZoomCenterFunc
}

// Active reports whether an animation is in flight
func (c *Controller) Active() bool {
	return c.active
}

// Target returns the destination of the animation in flight
func (c *Controller) Target() (Frame, bool) {
	return c.to, c.active
}

// Start begins an animation towards to. When one is already in flight the
// interpolated frame at now replaces from, so the motion continues without a
// jump. anchor may be nil; when set, zoomCenter must not be nil. Start returns
// true when the controller went from idle to animating.
func (c *Controller) Start(now time.Time, from, to Frame, d time.Duration, anchor *mercator.GeoPoint, zoomCenter ZoomCenterFunc) bool {
	fresh := !c.active
	if c.active {
		from = c.Sample(now)
	}

	c.active = true
	c.start = now
	c.end = now.Add(d)
	c.from = from
	c.to = to
	c.zoomCenter = zoomCenter

	c.hasAnchor = anchor != nil
	if c.hasAnchor {
		c.anchor = *anchor
	}
	return fresh
}

// Progress returns the linear progress in [0, 1]
func (c *Controller) Progress(now time.Time) float64 {
	length := c.end.Sub(c.start)
	if length <= 0 {
		return 1
	}
	p := float64(now.Sub(c.start)) / float64(length)
	return max(0, min(1, p))
}

// Sample returns the interpolated frame at now without advancing anything
func (c *Controller) Sample(now time.Time) Frame {
	e := EaseOutQuad(c.Progress(now))
	zoom := c.from.Zoom + (c.to.Zoom-c.from.Zoom)*e

	if c.hasAnchor && c.zoomCenter != nil {
		return Frame{
			Center: c.zoomCenter(c.from.Center, c.anchor, c.from.Zoom, zoom),
			Zoom:   zoom,
		}
	}

	return Frame{
		Center: mercator.GeoPoint{
			Lat: c.from.Center.Lat + (c.to.Center.Lat-c.from.Center.Lat)*e,
			Lng: c.from.Center.Lng + (c.to.Center.Lng-c.from.Center.Lng)*e,
		},
		Zoom: zoom,
	}
}

// Step advances to now. Once now reaches the end time it returns the exact
// target, done=true, and the controller is idle.
func (c *Controller) Step(now time.Time) (f Frame, done bool) {
	if !c.active {
		return c.to, true
	}
	if !now.Before(c.end) {
		c.active = false
		return c.to, true
	}
	return c.Sample(now), false
}

// Shift moves the whole path of the animation in flight: its start, its
// target and its anchor all go through move. The easing and timing are kept.
func (c *Controller) Shift(move func(mercator.GeoPoint) mercator.GeoPoint) {
	if !c.active {
		return
	}
	c.from.Center = move(c.from.Center)
	c.to.Center = move(c.to.Center)
	if c.hasAnchor {
		c.anchor = move(c.anchor)
	}
}

// Stop cancels the animation in flight. It returns false when idle.
func (c *Controller) Stop() bool {
	if !c.active {
		return false
	}
	c.active = false
	return true
}
