// Package camera owns the viewport state of a slippy map and is the only
// place it changes. Input handlers, programmatic navigation and animation
// ticks all go through it.
package camera

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"mapviewer/internal/animation"
	"mapviewer/internal/bounds"
	"mapviewer/internal/gesture"
	"mapviewer/internal/layout"
	"mapviewer/pkg/mercator"
)

const (
	MinZoom = 1
	MaxZoom = 18

	// programmatic targets closer than this are ignored
	zoomEpsilon   = 0.001
	centerEpsilon = 0.0001
)

// Options configures a camera
type Options struct {
	MinZoom float64
	MaxZoom float64
	Bounds  bounds.Policy

	// Animate enables animated transitions. Programmatic jumps further than
	// AnimateMaxScreens viewports are applied instantly.
	Animate           bool
	AnimateMaxScreens float64
	ZoomSnap          bool

	MouseEvents   bool
	TouchEvents   bool
	TwoFingerDrag bool
	MetaWheelZoom bool

	AnimationTime          time.Duration
	DebounceDelay          time.Duration
	WarningTimeout         time.Duration
	PinchReleaseThrowDelay time.Duration

	Center mercator.GeoPoint
	Zoom   float64
	Width  float64
	Height float64

	Logger *slog.Logger

	OnBoundsChanged  func(BoundsEvent)
	OnAnimationStart func()
	OnAnimationStop  func()
	OnClick          func(gesture.ClickEvent)
	OnWarning        func(w gesture.Warning, shown bool)
}

// DefaultOptions returns the options of a plain interactive map
func DefaultOptions() Options {
	return Options{
		MinZoom:                MinZoom,
		MaxZoom:                MaxZoom,
		Bounds:                 bounds.PolicyCenter,
		Animate:                true,
		AnimateMaxScreens:      5,
		ZoomSnap:               true,
		MouseEvents:            true,
		TouchEvents:            true,
		AnimationTime:          300 * time.Millisecond,
		DebounceDelay:          60 * time.Millisecond,
		WarningTimeout:         300 * time.Millisecond,
		PinchReleaseThrowDelay: 300 * time.Millisecond,
		Zoom:                   MinZoom,
		Width:                  600,
		Height:                 400,
	}
}

// State is a snapshot of the viewport
type State struct {
	Center mercator.GeoPoint
	Zoom   float64
	Width  float64
	Height float64

	// uncommitted gesture offset
	PixelDelta mercator.PixelPoint
	ZoomDelta  float64
}

// View returns the projection of the state, uncommitted offset included
func (s State) View() mercator.View {
	return mercator.View{
		Center:     s.Center,
		Zoom:       s.Zoom + s.ZoomDelta,
		Width:      s.Width,
		Height:     s.Height,
		PixelDelta: s.PixelDelta,
	}
}

// committed returns the projection without the uncommitted offset
func (s State) committed() mercator.View {
	return mercator.View{Center: s.Center, Zoom: s.Zoom, Width: s.Width, Height: s.Height}
}

func (s State) layoutInput() layout.Input {
	return layout.Input{
		Center:     s.Center,
		Zoom:       s.Zoom,
		ZoomDelta:  s.ZoomDelta,
		Width:      s.Width,
		Height:     s.Height,
		PixelDelta: s.PixelDelta,
	}
}

// BoundsEvent is the settled viewport reported after a burst of changes
type BoundsEvent struct {
	Center  mercator.GeoPoint
	Zoom    float64
	Bounds  Bounds
	Initial bool
}

// Camera is the viewport state machine. It never reads a clock: the host
// passes the time with every event and calls Tick once per frame.
// It is not safe for concurrent use.
type Camera struct {
	opts Options
	log  *slog.Logger

	state   State
	limiter *bounds.Limiter
	anim    animation.Controller
	input   *gesture.Interpreter
	tiles   *layout.Engine

	// debounced bounds notification
	boundsPending bool
	boundsDue     time.Time
	boundsSynced  bool

	warning      gesture.Warning
	warningUntil time.Time

	closed bool
}

// NewCamera creates a camera at opts.Center and opts.Zoom. The first bounds
// notification is due one debounce delay after now.
func NewCamera(opts Options, now time.Time) *Camera {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxZoom < opts.MinZoom {
		opts.MaxZoom = opts.MinZoom
	}
	if opts.Bounds == "" {
		opts.Bounds = bounds.PolicyCenter
	}

	c := &Camera{
		opts:    opts,
		log:     opts.Logger.With("component", "camera"),
		limiter: bounds.New(opts.Bounds),
		tiles:   layout.NewEngine(),
	}
	c.input = gesture.NewInterpreter(c.gestureSettings())

	zoom := c.clampZoom(opts.Zoom)
	c.state = State{
		Zoom:   zoom,
		Width:  opts.Width,
		Height: opts.Height,
	}
	c.state.Center = c.limit(opts.Center, zoom)
	c.scheduleBounds(now)

	c.log.Debug("camera created",
		"lat", c.state.Center.Lat,
		"lng", c.state.Center.Lng,
		"zoom", zoom,
		"bounds", c.limiter.Policy(),
	)
	return c
}

func (c *Camera) gestureSettings() gesture.Settings {
	return gesture.Settings{
		MinZoom:                c.opts.MinZoom,
		MaxZoom:                c.opts.MaxZoom,
		Animate:                c.opts.Animate,
		ZoomSnap:               c.opts.ZoomSnap,
		MouseEvents:            c.opts.MouseEvents,
		TouchEvents:            c.opts.TouchEvents,
		TwoFingerDrag:          c.opts.TwoFingerDrag,
		MetaWheelZoom:          c.opts.MetaWheelZoom,
		AnimationTime:          c.opts.AnimationTime,
		PinchReleaseThrowDelay: c.opts.PinchReleaseThrowDelay,
	}
}

// State returns a snapshot of the viewport
func (c *Camera) State() State {
	return c.state
}

// Options returns the options the camera runs with
func (c *Camera) Options() Options {
	return c.opts
}

// Animating reports whether an animation is in flight
func (c *Camera) Animating() bool {
	return c.anim.Active()
}

// Dragging reports whether a gesture is in progress
func (c *Camera) Dragging() bool {
	return c.input.Dragging()
}

// Warning returns the warning currently shown, if any
func (c *Camera) Warning() gesture.Warning {
	return c.warning
}

// LatLngToPixel returns the screen position of p, uncommitted offset included
func (c *Camera) LatLngToPixel(p mercator.GeoPoint) mercator.PixelPoint {
	return c.state.View().LatLngToPixel(p)
}

// PixelToLatLng returns the geographic point under a screen position
func (c *Camera) PixelToLatLng(p mercator.PixelPoint) mercator.GeoPoint {
	return c.state.View().PixelToLatLng(p)
}

// Bounds returns the corners of the committed viewport
func (c *Camera) Bounds() Bounds {
	return boundsOf(c.state.committed())
}

// Tiles lays out the tiles for the current state, stale layers first
func (c *Camera) Tiles() layout.Result {
	return c.tiles.Layout(c.state.layoutInput())
}

// TileLoaded marks a tile as loaded by its key. It returns true when this
// was the last pending tile and the stale layers were dropped.
func (c *Camera) TileLoaded(key string) bool {
	dropped := c.tiles.TileLoaded(key)
	if dropped {
		c.log.Debug("stale tiles dropped", "zoom", c.state.Zoom)
	}
	return dropped
}

func (c *Camera) clampZoom(z float64) float64 {
	return math.Max(c.opts.MinZoom, math.Min(z, c.opts.MaxZoom))
}

func (c *Camera) limit(center mercator.GeoPoint, zoom float64) mercator.GeoPoint {
	return c.limiter.Limit(center, c.state.Center, zoom, c.state.Width, c.state.Height)
}

// setCenterZoom commits a new center and zoom. Every committed change goes
// through here. The uncommitted offset of a gesture in progress is kept; only
// CommitDelta folds it in.
func (c *Camera) setCenterZoom(now time.Time, center mercator.GeoPoint, zoom float64, animationEnded bool) {
	c.commit(now, c.state.layoutInput(), center, zoom, animationEnded)
}

// commit applies center and zoom; prev is the layout the screen showed before
func (c *Camera) commit(now time.Time, prev layout.Input, center mercator.GeoPoint, zoom float64, animationEnded bool) {
	zoom = c.clampZoom(zoom)

	c.state.Center = c.limit(center, zoom)
	c.state.Zoom = zoom

	if c.tiles.Transition(prev, c.state.layoutInput()) {
		c.log.Debug("zoom level changed", "from", math.Round(prev.Zoom+prev.ZoomDelta), "to", math.Round(zoom), "pending_tiles", c.tiles.Pending())
	} else if c.tiles.Retain(c.state.layoutInput()) {
		c.log.Debug("stale tiles dropped", "zoom", zoom)
	}

	if animationEnded {
		c.notifyAnimationStop()
	}
	c.scheduleBounds(now)
}

// CommitDelta folds the uncommitted pixel and zoom offset into the center
// and zoom. A zero offset leaves the state untouched.
func (c *Camera) CommitDelta(now time.Time) (mercator.GeoPoint, float64) {
	if c.state.PixelDelta.IsZero() && c.state.ZoomDelta == 0 {
		return c.state.Center, c.state.Zoom
	}

	v := c.state.View()
	center := v.PixelToLatLng(mercator.PixelPoint{X: v.Width / 2, Y: v.Height / 2})
	if c.anim.Active() && !v.PixelDelta.IsZero() {
		// later frames carry the offset too
		c.anim.Shift(worldShift(v.PixelDelta, v.Zoom))
	}

	prev := c.state.layoutInput()
	c.state.PixelDelta = mercator.PixelPoint{}
	c.state.ZoomDelta = 0
	c.commit(now, prev, center, v.Zoom, false)
	return c.state.Center, c.state.Zoom
}

// worldShift returns a move that drags geographic points by the screen
// offset d measured at zoom, the same way at every zoom level.
func worldShift(d mercator.PixelPoint, zoom float64) func(mercator.GeoPoint) mercator.GeoPoint {
	dx := d.X / mercator.WorldSize(zoom)
	dy := d.Y / mercator.WorldSize(zoom)
	return func(p mercator.GeoPoint) mercator.GeoPoint {
		return mercator.GeoPoint{
			Lat: mercator.TileYToLat(mercator.LatToTileY(p.Lat, 0)-dy, 0),
			Lng: mercator.TileXToLng(mercator.LngToTileX(p.Lng, 0)-dx, 0),
		}
	}
}

func (c *Camera) setDelta(pixel mercator.PixelPoint, zoom float64) {
	prev := c.state.layoutInput()
	c.state.PixelDelta = pixel
	c.state.ZoomDelta = zoom
	c.tiles.Transition(prev, c.state.layoutInput())
}

// SetSize resizes the viewport. The center is limited again since the edge
// policy depends on the size.
func (c *Camera) SetSize(width, height float64, now time.Time) {
	if c.closed || (width == c.state.Width && height == c.state.Height) {
		return
	}
	c.state.Width = width
	c.state.Height = height
	c.state.Center = c.limit(c.state.Center, c.state.Zoom)
	if c.tiles.Retain(c.state.layoutInput()) {
		c.log.Debug("stale tiles dropped", "zoom", c.state.Zoom)
	}
	c.scheduleBounds(now)
}

// Tick advances the animation in flight, the debounced bounds notification
// and the warning timeout to now. The host calls it once per frame.
func (c *Camera) Tick(now time.Time) {
	if c.closed {
		return
	}

	if c.anim.Active() {
		f, done := c.anim.Step(now)
		c.setCenterZoom(now, f.Center, f.Zoom, done)
	}

	if c.boundsPending && !now.Before(c.boundsDue) {
		c.boundsPending = false
		c.syncBounds()
	}

	if c.warning != "" && !now.Before(c.warningUntil) {
		c.clearWarning()
	}
}

func (c *Camera) scheduleBounds(now time.Time) {
	c.boundsPending = true
	c.boundsDue = now.Add(c.opts.DebounceDelay)
}

func (c *Camera) syncBounds() {
	ev := BoundsEvent{
		Center:  c.state.Center,
		Zoom:    c.state.Zoom,
		Bounds:  c.Bounds(),
		Initial: !c.boundsSynced,
	}
	c.boundsSynced = true

	c.log.Debug("bounds changed",
		"lat", ev.Center.Lat,
		"lng", ev.Center.Lng,
		"zoom", ev.Zoom,
		"initial", ev.Initial,
	)
	if c.opts.OnBoundsChanged != nil {
		c.opts.OnBoundsChanged(ev)
	}
}

// animateTo starts or retargets an animation. With an anchor the target
// center is the one that keeps the anchor on the same pixel.
func (c *Camera) animateTo(now time.Time, center mercator.GeoPoint, zoom float64, anchor *mercator.GeoPoint, d time.Duration) {
	from := animation.Frame{Center: c.state.Center, Zoom: c.state.Zoom}
	if c.anim.Active() {
		from = c.anim.Sample(now)
	}

	zoom = c.clampZoom(zoom)
	if anchor != nil {
		v := mercator.View{Center: from.Center, Zoom: from.Zoom, Width: c.state.Width, Height: c.state.Height}
		center = v.ZoomCenter(*anchor, zoom)
	}
	to := animation.Frame{Center: c.limit(center, zoom), Zoom: zoom}

	if c.anim.Start(now, from, to, d, anchor, c.zoomCenter) {
		c.log.Debug("animation started", "zoom", to.Zoom, "lat", to.Center.Lat, "lng", to.Center.Lng, "duration", d)
		if c.opts.OnAnimationStart != nil {
			c.opts.OnAnimationStart()
		}
	}
}

func (c *Camera) zoomCenter(center, anchor mercator.GeoPoint, fromZoom, toZoom float64) mercator.GeoPoint {
	v := mercator.View{Center: center, Zoom: fromZoom, Width: c.state.Width, Height: c.state.Height}
	return v.ZoomCenter(anchor, toZoom)
}

// zoomAround zooms keeping anchor under the same pixel, animated or not
func (c *Camera) zoomAround(now time.Time, anchor mercator.GeoPoint, zoom float64, d time.Duration) {
	if c.opts.Animate {
		c.animateTo(now, c.state.Center, zoom, &anchor, d)
		return
	}

	c.stopAnimating()
	zoom = c.clampZoom(zoom)
	center := c.state.committed().ZoomCenter(anchor, zoom)
	c.setCenterZoom(now, center, zoom, false)
}

func (c *Camera) stopAnimating() {
	if c.anim.Stop() {
		c.notifyAnimationStop()
	}
}

func (c *Camera) notifyAnimationStop() {
	c.log.Debug("animation stopped", "zoom", c.state.Zoom)
	if c.opts.OnAnimationStop != nil {
		c.opts.OnAnimationStop()
	}
}

// SetCenterZoom navigates programmatically. The move is animated when
// animation is on and the target is within AnimateMaxScreens viewports,
// otherwise it is applied at once. Targets closer than a thousandth of a
// zoom level and a ten-thousandth of a degree to the current one are
// ignored; it returns false for those.
func (c *Camera) SetCenterZoom(center mercator.GeoPoint, zoom float64, now time.Time) bool {
	if c.closed || center.IsNaN() || math.IsNaN(zoom) {
		return false
	}
	zoom = c.clampZoom(zoom)

	current := animation.Frame{Center: c.state.Center, Zoom: c.state.Zoom}
	if target, ok := c.anim.Target(); ok {
		current = target
	}
	if math.Abs(current.Zoom-zoom) <= zoomEpsilon &&
		math.Abs(current.Center.Lat-center.Lat) <= centerEpsilon &&
		math.Abs(current.Center.Lng-center.Lng) <= centerEpsilon {
		return false
	}

	if c.opts.Animate && c.distanceInScreens(center, zoom) <= c.opts.AnimateMaxScreens {
		c.animateTo(now, center, zoom, nil, c.opts.AnimationTime)
		return true
	}

	c.stopAnimating()
	c.setCenterZoom(now, center, zoom, false)
	return true
}

// distanceInScreens measures a jump in viewports, averaging the pixel
// distance at the current and the target zoom.
func (c *Camera) distanceInScreens(target mercator.GeoPoint, zoom float64) float64 {
	w, h := c.state.Width, c.state.Height
	if w <= 0 || h <= 0 {
		return math.Inf(1)
	}

	here := c.state.committed()
	there := here
	there.Zoom = zoom

	l1, l2 := here.LatLngToPixel(here.Center), here.LatLngToPixel(target)
	z1, z2 := there.LatLngToPixel(here.Center), there.LatLngToPixel(target)

	dw := (math.Abs(l1.X-l2.X) + math.Abs(z1.X-z2.X)) / 2 / w
	dh := (math.Abs(l1.Y-l2.Y) + math.Abs(z1.Y-z2.Y)) / 2 / h
	return math.Sqrt(dw*dw + dh*dh)
}

// Pan moves the map content by (dx, dy) pixels and commits at once. The
// offset of a gesture in progress is left alone.
func (c *Camera) Pan(dx, dy float64, now time.Time) {
	if c.closed {
		return
	}
	c.stopAnimating()
	v := c.state.committed()
	v.PixelDelta = mercator.PixelPoint{X: dx, Y: dy}
	center := v.PixelToLatLng(mercator.PixelPoint{X: v.Width / 2, Y: v.Height / 2})
	c.setCenterZoom(now, center, c.state.Zoom, false)
}

// ZoomIn zooms one level in around the center
func (c *Camera) ZoomIn(now time.Time) {
	c.zoomStep(now, 1)
}

// ZoomOut zooms one level out around the center
func (c *Camera) ZoomOut(now time.Time) {
	c.zoomStep(now, -1)
}

func (c *Camera) zoomStep(now time.Time, add float64) {
	if c.closed {
		return
	}
	zoom := c.state.Zoom
	if target, ok := c.anim.Target(); ok {
		zoom = target.Zoom
	}
	target := gesture.WheelZoom(zoom, add, c.opts.MinZoom, c.opts.MaxZoom, c.opts.ZoomSnap)
	if target == zoom {
		return
	}
	c.zoomAround(now, c.state.Center, target, c.opts.AnimationTime)
}

func (c *Camera) warn(now time.Time, w gesture.Warning) {
	if c.warning != w {
		c.log.Debug("warning shown", "kind", w)
		if c.opts.OnWarning != nil {
			c.opts.OnWarning(w, true)
		}
	}
	c.warning = w
	c.warningUntil = now.Add(c.opts.WarningTimeout)
}

func (c *Camera) clearWarning() {
	if c.warning == "" {
		return
	}
	w := c.warning
	c.warning = ""
	if c.opts.OnWarning != nil {
		c.opts.OnWarning(w, false)
	}
}

// SetMouseEvents toggles mouse and wheel handling. Disabling it abandons a
// drag in progress.
func (c *Camera) SetMouseEvents(on bool) {
	c.opts.MouseEvents = on
	c.applySettings()
}

// SetTouchEvents toggles touch handling. Disabling it abandons a touch
// gesture in progress.
func (c *Camera) SetTouchEvents(on bool) {
	c.opts.TouchEvents = on
	c.applySettings()
}

func (c *Camera) applySettings() {
	active := c.input.Dragging() || c.input.Pinching()
	c.input.SetSettings(c.gestureSettings())
	if active && !c.input.Dragging() && !c.input.Pinching() {
		c.setDelta(mercator.PixelPoint{}, 0)
	}
}

// Close detaches the camera: the animation and pending notifications are
// dropped and later events are ignored.
func (c *Camera) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.anim.Stop()
	c.input.Cancel()
	c.boundsPending = false
	c.warning = ""
	c.log.Debug("camera closed")
}

// CheckInvariants reports a zoom outside the configured range, a NaN center
// or a center the bounds policy would move.
func (c *Camera) CheckInvariants() error {
	s := c.state
	if math.IsNaN(s.Zoom) || s.Zoom < c.opts.MinZoom || s.Zoom > c.opts.MaxZoom {
		return fmt.Errorf("zoom %v outside [%v, %v]", s.Zoom, c.opts.MinZoom, c.opts.MaxZoom)
	}
	if s.Center.IsNaN() {
		return fmt.Errorf("center is NaN: %+v", s.Center)
	}
	if limited := c.limit(s.Center, s.Zoom); limited != s.Center {
		return fmt.Errorf("center %+v outside %s bounds, limited to %+v", s.Center, c.limiter.Policy(), limited)
	}
	return nil
}
