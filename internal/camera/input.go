package camera

import (
	"time"

	"mapviewer/internal/gesture"
	"mapviewer/pkg/mercator"
)

// MouseDown handles a button press
func (c *Camera) MouseDown(ev gesture.MouseEvent) {
	if c.closed {
		return
	}
	c.input.MouseDown(driver{c}, ev)
}

// MouseMove handles pointer movement
func (c *Camera) MouseMove(ev gesture.MouseEvent) {
	if c.closed {
		return
	}
	c.input.MouseMove(driver{c}, ev)
}

// MouseUp handles a button release
func (c *Camera) MouseUp(ev gesture.MouseEvent) {
	if c.closed {
		return
	}
	c.input.MouseUp(driver{c}, ev)
}

// TouchStart handles fingers touching down
func (c *Camera) TouchStart(ev gesture.TouchEvent) {
	if c.closed {
		return
	}
	c.input.TouchStart(driver{c}, ev)
}

// TouchMove handles finger movement
func (c *Camera) TouchMove(ev gesture.TouchEvent) {
	if c.closed {
		return
	}
	c.input.TouchMove(driver{c}, ev)
}

// TouchEnd handles fingers lifting
func (c *Camera) TouchEnd(ev gesture.TouchEvent) {
	if c.closed {
		return
	}
	c.input.TouchEnd(driver{c}, ev)
}

// Wheel handles a scroll step
func (c *Camera) Wheel(ev gesture.WheelEvent) {
	if c.closed {
		return
	}
	c.input.Wheel(driver{c}, ev)
}

// DoubleClick handles a double click
func (c *Camera) DoubleClick(ev gesture.MouseEvent) {
	if c.closed {
		return
	}
	c.input.DoubleClick(driver{c}, ev)
}

// DoubleTap handles a double tap
func (c *Camera) DoubleTap(ev gesture.TouchEvent) {
	if c.closed {
		return
	}
	c.input.DoubleTap(driver{c}, ev)
}

// driver exposes the camera transitions to the gesture interpreter
type driver struct {
	c *Camera
}

func (d driver) Zoom() float64 {
	return d.c.state.Zoom
}

func (d driver) Size() (float64, float64) {
	return d.c.state.Width, d.c.state.Height
}

func (d driver) Delta() (mercator.PixelPoint, float64) {
	return d.c.state.PixelDelta, d.c.state.ZoomDelta
}

func (d driver) SetDelta(pixel mercator.PixelPoint, zoom float64) {
	d.c.setDelta(pixel, zoom)
}

func (d driver) CommitDelta(now time.Time) (mercator.GeoPoint, float64) {
	return d.c.CommitDelta(now)
}

func (d driver) PixelToLatLng(p mercator.PixelPoint) mercator.GeoPoint {
	return d.c.PixelToLatLng(p)
}

func (d driver) StopAnimating(time.Time) {
	d.c.stopAnimating()
}

func (d driver) AnimateTo(now time.Time, target mercator.GeoPoint, zoom float64, dur time.Duration) {
	d.c.log.Debug("throw", "lat", target.Lat, "lng", target.Lng, "duration", dur)
	d.c.animateTo(now, target, zoom, nil, dur)
}

func (d driver) ZoomAround(now time.Time, anchor mercator.GeoPoint, zoom float64, dur time.Duration) {
	d.c.zoomAround(now, anchor, zoom, dur)
}

func (d driver) ZoomTarget() (float64, bool) {
	target, ok := d.c.anim.Target()
	return target.Zoom, ok
}

func (d driver) Clickable() bool {
	return d.c.opts.OnClick != nil
}

func (d driver) Click(ev gesture.ClickEvent) {
	d.c.log.Debug("click", "lat", ev.LatLng.Lat, "lng", ev.LatLng.Lng, "source", ev.Source)
	d.c.opts.OnClick(ev)
}

func (d driver) Warn(now time.Time, w gesture.Warning) {
	d.c.warn(now, w)
}

func (d driver) ClearWarning() {
	d.c.clearWarning()
}
