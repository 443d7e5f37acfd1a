package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapviewer/pkg/mercator"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return t0.Add(time.Duration(ms) * time.Millisecond)
}

func px(x, y float64) mercator.PixelPoint {
	return mercator.PixelPoint{X: x, Y: y}
}

type animateCall struct {
	target mercator.GeoPoint
	anchor *mercator.GeoPoint
	zoom   float64
	d      time.Duration
}

// fakeViewport commits deltas the same way the camera does, without bounds
type fakeViewport struct {
	view       mercator.View
	zoomDelta  float64
	zoomTarget float64
	animating  bool

	clickable bool
	clicks    []ClickEvent
	warnings  []Warning
	cleared   int
	stops     int
	commits   int
	animates  []animateCall
}

func newFake() *fakeViewport {
	return &fakeViewport{
		view: mercator.View{
			Center: mercator.GeoPoint{Lat: 50.879, Lng: 4.6997},
			Zoom:   12,
			Width:  600,
			Height: 400,
		},
		clickable: true,
	}
}

func (f *fakeViewport) Zoom() float64 { return f.view.Zoom }
func (f *fakeViewport) Size() (float64, float64) { return f.view.Width, f.view.Height }
func (f *fakeViewport) Clickable() bool { return f.clickable }
func (f *fakeViewport) Click(ev ClickEvent) { f.clicks = append(f.clicks, ev) }
func (f *fakeViewport) Warn(_ time.Time, w Warning) { f.warnings = append(f.warnings, w) }
func (f *fakeViewport) ClearWarning() { f.cleared++ }
func (f *fakeViewport) ZoomTarget() (float64, bool) { return f.zoomTarget, f.animating }
func (f *fakeViewport) StopAnimating(time.Time) { f.stops++; f.animating = false }
func (f *fakeViewport) Delta() (mercator.PixelPoint, float64) {
	return f.view.PixelDelta, f.zoomDelta
}

func (f *fakeViewport) SetDelta(p mercator.PixelPoint, z float64) {
	f.view.PixelDelta = p
	f.zoomDelta = z
}

func (f *fakeViewport) current() mercator.View {
	v := f.view
	v.Zoom += f.zoomDelta
	return v
}

func (f *fakeViewport) PixelToLatLng(p mercator.PixelPoint) mercator.GeoPoint {
	return f.current().PixelToLatLng(p)
}

func (f *fakeViewport) CommitDelta(time.Time) (mercator.GeoPoint, float64) {
	f.commits++
	v := f.current()
	center := v.PixelToLatLng(px(v.Width/2, v.Height/2))
	f.view.Center = center
	f.view.Zoom = v.Zoom
	f.view.PixelDelta = mercator.PixelPoint{}
	f.zoomDelta = 0
	return center, f.view.Zoom
}

func (f *fakeViewport) AnimateTo(_ time.Time, target mercator.GeoPoint, zoom float64, d time.Duration) {
	f.animates = append(f.animates, animateCall{target: target, zoom: zoom, d: d})
	f.zoomTarget, f.animating = zoom, true
}

func (f *fakeViewport) ZoomAround(_ time.Time, anchor mercator.GeoPoint, zoom float64, d time.Duration) {
	a := anchor
	f.animates = append(f.animates, animateCall{anchor: &a, zoom: zoom, d: d})
	f.zoomTarget, f.animating = zoom, true
}

func defaultSettings() Settings {
	return Settings{
		MinZoom:                1,
		MaxZoom:                18,
		Animate:                true,
		ZoomSnap:               true,
		MouseEvents:            true,
		TouchEvents:            true,
		AnimationTime:          300 * time.Millisecond,
		PinchReleaseThrowDelay: 300 * time.Millisecond,
	}
}

func TestMoveTrackerKeepsTwoSpacedSamples(t *testing.T) {
	var m MoveTracker
	m.Track(at(0), px(0, 0))
	m.Track(at(20), px(5, 0))
	require.Len(t, m.Samples(), 1, "samples closer than 40ms are skipped")

	m.Track(at(50), px(10, 0))
	m.Track(at(100), px(20, 0))
	require.Len(t, m.Samples(), 2)
	assert.Equal(t, px(10, 0), m.Samples()[0].Pos)

	v, ok := m.Velocity(at(110), px(70, 0))
	require.True(t, ok)
	assert.InDelta(t, 60.0/60*120, v.X, 1e-9)

	m.Reset()
	_, ok = m.Velocity(at(200), px(0, 0))
	assert.False(t, ok)
}

func TestThrow(t *testing.T) {
	center := mercator.GeoPoint{Lat: 50, Lng: 4}

	_, _, ok := Throw(center, 12, px(30, 20), 600, 400)
	assert.False(t, ok, "too slow")

	target, d, ok := Throw(center, 12, px(100, 0), 600, 400)
	require.True(t, ok)
	assert.Less(t, target.Lng, center.Lng, "dragging right moves the center west")
	assert.InDelta(t, center.Lat, target.Lat, 1e-9)
	assert.Equal(t, time.Duration(float64(DiagonalThrowTime)*100/math.Hypot(600, 400)), d)

	shift := (mercator.LngToTileX(center.Lng, 12) - mercator.LngToTileX(target.Lng, 12)) * mercator.TileSize
	assert.InDelta(t, 100, shift, 1e-6)
}

func TestPinchDelta(t *testing.T) {
	p := NewPinch(px(250, 200), px(350, 200))
	assert.Equal(t, px(300, 200), p.StartMid)
	assert.Equal(t, 100.0, p.StartDistance)

	pixel, zd := p.Delta(px(200, 200), px(400, 200), 12, 1, 18, 600, 400)
	assert.InDelta(t, 1, zd, 1e-12)
	assert.InDelta(t, 0, pixel.X, 1e-9, "midpoint at the center stays put")
	assert.InDelta(t, 0, pixel.Y, 1e-9)

	_, zd = p.Delta(px(0, 200), px(1600, 200), 17.5, 1, 18, 600, 400)
	assert.InDelta(t, 0.5, zd, 1e-12, "clamped at max zoom")
}

func TestPinchKeepsStartPointUnderMidpoint(t *testing.T) {
	view := mercator.View{Center: mercator.GeoPoint{Lat: 50.879, Lng: 4.6997}, Zoom: 12, Width: 600, Height: 400}
	p := NewPinch(px(100, 100), px(200, 150))
	under := view.PixelToLatLng(p.StartMid)

	t1, t2 := px(60, 90), px(300, 210)
	pixel, zd := p.Delta(t1, t2, view.Zoom, 1, 18, view.Width, view.Height)

	moved := view
	moved.Zoom += zd
	moved.PixelDelta = pixel
	got := moved.LatLngToPixel(under)
	mid := midpoint(t1, t2)
	assert.InDelta(t, mid.X, got.X, 1e-6)
	assert.InDelta(t, mid.Y, got.Y, 1e-6)
}

func TestWheelZoom(t *testing.T) {
	assert.Equal(t, 13.0, WheelZoom(12, 1, 1, 18, true))
	assert.Equal(t, 12.0, WheelZoom(12.4, -0.2, 1, 18, true))
	assert.Equal(t, 13.0, WheelZoom(12.4, 0.2, 1, 18, true))
	assert.InDelta(t, 12.6, WheelZoom(12.4, 0.2, 1, 18, false), 1e-12)
	assert.Equal(t, 18.0, WheelZoom(17.5, 3, 1, 18, false))
	assert.Equal(t, 1.0, WheelZoom(1.5, -3, 1, 18, true))
}

func TestMouseDragCommitsWithoutZoomChange(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())
	before := v.view.Center

	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100)})
	require.True(t, in.Dragging())
	in.MouseMove(v, MouseEvent{Time: at(50), Pos: px(150, 100)})
	assert.Equal(t, px(50, 0), v.view.PixelDelta)

	in.MouseUp(v, MouseEvent{Time: at(1000), Pos: px(150, 100)})
	assert.False(t, in.Dragging())
	assert.Equal(t, 1, v.commits)
	assert.Less(t, v.view.Center.Lng, before.Lng)
	assert.Equal(t, 12.0, v.view.Zoom)
	assert.Empty(t, v.animates, "a slow release does not throw")
	assert.Empty(t, v.clicks)
}

func TestMouseThrow(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())

	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100)})
	in.MouseMove(v, MouseEvent{Time: at(50), Pos: px(150, 100)})
	in.MouseMove(v, MouseEvent{Time: at(100), Pos: px(250, 100)})
	in.MouseUp(v, MouseEvent{Time: at(110), Pos: px(260, 100)})

	require.Len(t, v.animates, 1)
	call := v.animates[0]
	assert.Nil(t, call.anchor)
	assert.Equal(t, 12.0, call.zoom)
	assert.Less(t, call.target.Lng, v.view.Center.Lng)
	assert.Empty(t, in.MoveSamples())
}

func TestMouseClick(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())

	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(300, 200)})
	in.MouseMove(v, MouseEvent{Time: at(10), Pos: px(301, 201)})
	in.MouseUp(v, MouseEvent{Time: at(20), Pos: px(301, 201)})

	require.Len(t, v.clicks, 1)
	assert.Equal(t, SourceMouse, v.clicks[0].Source)
	assert.Zero(t, v.commits)
	assert.True(t, v.view.PixelDelta.IsZero())

	in.MouseDown(v, MouseEvent{Time: at(100), Pos: px(300, 200)})
	in.MouseUp(v, MouseEvent{Time: at(110), Pos: px(300, 200), ClickBlock: true})
	assert.Len(t, v.clicks, 1, "click blocked")
}

func TestMouseIgnored(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	in := NewInterpreter(s)

	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100), Button: 2})
	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100), DragBlock: true})
	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(-5, 100)})
	assert.False(t, in.Dragging())

	s.MouseEvents = false
	in.SetSettings(s)
	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100)})
	in.Wheel(v, WheelEvent{Time: at(0), Pos: px(100, 100), DeltaY: -150})
	assert.False(t, in.Dragging())
	assert.Empty(t, v.animates)
}

func TestMouseDownStopsAnimation(t *testing.T) {
	v := newFake()
	v.animating = true
	in := NewInterpreter(defaultSettings())
	in.MouseDown(v, MouseEvent{Time: at(0), Pos: px(100, 100)})
	assert.Equal(t, 1, v.stops)
	assert.False(t, v.animating)
}

func TestPinchSnapsOnRelease(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())

	in.TouchStart(v, TouchEvent{Time: at(0), Touches: []mercator.PixelPoint{px(250, 200)}})
	in.TouchStart(v, TouchEvent{Time: at(10), Touches: []mercator.PixelPoint{px(250, 200), px(350, 200)}})
	require.True(t, in.Pinching())

	in.TouchMove(v, TouchEvent{Time: at(50), Touches: []mercator.PixelPoint{px(200, 200), px(400, 200)}})
	_, zd := v.Delta()
	assert.InDelta(t, 1, zd, 1e-12)

	in.TouchEnd(v, TouchEvent{Time: at(100), Changed: []mercator.PixelPoint{px(200, 200), px(400, 200)}})
	assert.False(t, in.Dragging())
	assert.Equal(t, 13.0, v.view.Zoom)

	require.Len(t, v.animates, 1)
	assert.Equal(t, 13.0, v.animates[0].zoom)
	require.NotNil(t, v.animates[0].anchor)
}

func TestPinchReleaseToOneFinger(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())

	in.TouchStart(v, TouchEvent{Time: at(0), Touches: []mercator.PixelPoint{px(250, 200), px(350, 200)}})
	in.TouchMove(v, TouchEvent{Time: at(50), Touches: []mercator.PixelPoint{px(275, 200), px(325, 200)}})
	in.TouchEnd(v, TouchEvent{Time: at(100), Touches: []mercator.PixelPoint{px(325, 200)}, Changed: []mercator.PixelPoint{px(275, 200)}})

	assert.InDelta(t, 11, v.view.Zoom, 1e-12)
	require.Len(t, v.animates, 1)
	assert.Equal(t, 11.0, v.animates[0].zoom)
	assert.False(t, in.Pinching())
	assert.True(t, in.Dragging())

	// the remaining finger flicks right after the pinch: no throw
	in.TouchMove(v, TouchEvent{Time: at(150), Touches: []mercator.PixelPoint{px(400, 200)}})
	in.TouchEnd(v, TouchEvent{Time: at(200), Changed: []mercator.PixelPoint{px(500, 200)}})
	assert.Len(t, v.animates, 1)
	assert.False(t, in.Dragging())
}

func TestTwoFingerDragNoLevelChange(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.TwoFingerDrag = true
	in := NewInterpreter(s)

	in.TouchStart(v, TouchEvent{Time: at(0), Touches: []mercator.PixelPoint{px(250, 200), px(350, 200)}})
	in.TouchMove(v, TouchEvent{Time: at(50), Touches: []mercator.PixelPoint{px(240, 220), px(350, 220)}})
	in.TouchEnd(v, TouchEvent{Time: at(100)})

	require.Len(t, v.animates, 1)
	assert.Equal(t, 12.0, v.animates[0].zoom)
}

func TestTwoFingerDragWarnsOnOneFinger(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.TwoFingerDrag = true
	in := NewInterpreter(s)

	in.TouchStart(v, TouchEvent{Time: at(0), Touches: []mercator.PixelPoint{px(100, 100)}})
	in.TouchMove(v, TouchEvent{Time: at(50), Touches: []mercator.PixelPoint{px(200, 100)}})
	assert.Equal(t, []Warning{WarningFingers}, v.warnings)
	assert.True(t, v.view.PixelDelta.IsZero())

	in.TouchEnd(v, TouchEvent{Time: at(100), Changed: []mercator.PixelPoint{px(200, 100)}})
	assert.Equal(t, 1, v.cleared)
	assert.Empty(t, v.animates)
}

func TestTouchTapAndThrow(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())

	in.TouchStart(v, TouchEvent{Time: at(0), Touches: []mercator.PixelPoint{px(100, 100)}})
	in.TouchEnd(v, TouchEvent{Time: at(50), Changed: []mercator.PixelPoint{px(101, 99)}})
	require.Len(t, v.clicks, 1)
	assert.Equal(t, SourceTouch, v.clicks[0].Source)

	in.TouchStart(v, TouchEvent{Time: at(1000), Touches: []mercator.PixelPoint{px(100, 100)}})
	in.TouchMove(v, TouchEvent{Time: at(1050), Touches: []mercator.PixelPoint{px(200, 100)}})
	in.TouchEnd(v, TouchEvent{Time: at(1060), Changed: []mercator.PixelPoint{px(210, 100)}})
	assert.Len(t, v.clicks, 1)
	require.Len(t, v.animates, 1)
	assert.Nil(t, v.animates[0].anchor)
}

func TestWheelSnapsAroundCursor(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())
	cursor := px(450, 120)
	anchor := v.PixelToLatLng(cursor)

	in.Wheel(v, WheelEvent{Time: at(0), Pos: cursor, DeltaY: -150})
	require.Len(t, v.animates, 1)
	assert.Equal(t, 13.0, v.animates[0].zoom)
	require.NotNil(t, v.animates[0].anchor)
	assert.Equal(t, anchor, *v.animates[0].anchor)
}

func TestWheelAccumulatesWithoutSnap(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.ZoomSnap = false
	in := NewInterpreter(s)

	in.Wheel(v, WheelEvent{Time: at(0), Pos: px(300, 200), DeltaY: -75})
	in.Wheel(v, WheelEvent{Time: at(10), Pos: px(300, 200), DeltaY: -75})
	require.Len(t, v.animates, 2)
	assert.InDelta(t, 12.5, v.animates[0].zoom, 1e-12)
	assert.InDelta(t, 13, v.animates[1].zoom, 1e-12)
}

func TestWheelThrottledWithoutAnimation(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.Animate = false
	in := NewInterpreter(s)

	in.Wheel(v, WheelEvent{Time: at(0), Pos: px(300, 200), DeltaY: -150})
	in.Wheel(v, WheelEvent{Time: at(100), Pos: px(300, 200), DeltaY: -150})
	in.Wheel(v, WheelEvent{Time: at(400), Pos: px(300, 200), DeltaY: -150})
	assert.Len(t, v.animates, 2)
}

func TestWheelAtZoomLimit(t *testing.T) {
	v := newFake()
	v.view.Zoom = 18
	in := NewInterpreter(defaultSettings())
	in.Wheel(v, WheelEvent{Time: at(0), Pos: px(300, 200), DeltaY: -150})
	assert.Empty(t, v.animates)
}

func TestMetaWheelZoom(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.MetaWheelZoom = true
	in := NewInterpreter(s)

	in.Wheel(v, WheelEvent{Time: at(0), Pos: px(300, 200), DeltaY: -150})
	assert.Equal(t, []Warning{WarningWheel}, v.warnings)
	assert.Empty(t, v.animates)

	in.Wheel(v, WheelEvent{Time: at(10), Pos: px(300, 200), DeltaY: -150, Meta: true})
	assert.Len(t, v.animates, 1)
}

func TestDoubleClick(t *testing.T) {
	v := newFake()
	in := NewInterpreter(defaultSettings())
	in.DoubleClick(v, MouseEvent{Time: at(0), Pos: px(10, 10)})
	require.Len(t, v.animates, 1)
	assert.Equal(t, 14.0, v.animates[0].zoom)

	v.view.Zoom = 17.5
	in.DoubleClick(v, MouseEvent{Time: at(0), Pos: px(10, 10)})
	assert.Equal(t, 18.0, v.animates[1].zoom)
}

func TestDoubleClickAndTapFollowTheirChannel(t *testing.T) {
	v := newFake()
	s := defaultSettings()
	s.MouseEvents = false
	in := NewInterpreter(s)

	in.DoubleClick(v, MouseEvent{Time: at(0), Pos: px(10, 10)})
	assert.Empty(t, v.animates, "mouse channel off")

	in.DoubleTap(v, TouchEvent{Time: at(0), Changed: []mercator.PixelPoint{px(10, 10)}})
	require.Len(t, v.animates, 1)
	assert.Equal(t, 14.0, v.animates[0].zoom)

	s.TouchEvents = false
	in.SetSettings(s)
	in.DoubleTap(v, TouchEvent{Time: at(10), Changed: []mercator.PixelPoint{px(10, 10)}})
	in.DoubleTap(v, TouchEvent{Time: at(20)})
	assert.Len(t, v.animates, 1)
}
