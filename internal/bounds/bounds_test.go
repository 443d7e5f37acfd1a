package bounds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapviewer/pkg/mercator"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("EDGE")
	require.NoError(t, err)
	assert.Equal(t, PolicyEdge, p)

	p, err = ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyCenter, p)

	_, err = ParsePolicy("corner")
	assert.Error(t, err)
}

func TestCenterPolicyNeverLeavesWorld(t *testing.T) {
	l := New(PolicyCenter)
	fallback := mercator.GeoPoint{Lat: 10, Lng: 20}

	candidates := []mercator.GeoPoint{
		{Lat: 90, Lng: 190},
		{Lat: -90, Lng: -540},
		{Lat: 1e9, Lng: -1e9},
		{Lat: 45, Lng: 45},
		{Lat: math.Inf(1), Lng: math.Inf(-1)},
	}
	for _, c := range candidates {
		got := l.Limit(c, fallback, 3, 600, 400)
		assert.LessOrEqual(t, got.Lat, mercator.MaxLatitude+1e-9)
		assert.GreaterOrEqual(t, got.Lat, -mercator.MaxLatitude-1e-9)
		assert.LessOrEqual(t, got.Lng, 180.0)
		assert.GreaterOrEqual(t, got.Lng, -180.0)
	}

	inside := mercator.GeoPoint{Lat: 45, Lng: 45}
	assert.Equal(t, inside, l.Limit(inside, fallback, 3, 600, 400))
}

func TestNaNFallsBackPerAxis(t *testing.T) {
	l := New(PolicyCenter)
	fallback := mercator.GeoPoint{Lat: 10, Lng: 20}

	got := l.Limit(mercator.GeoPoint{Lat: math.NaN(), Lng: 5}, fallback, 3, 600, 400)
	assert.Equal(t, mercator.GeoPoint{Lat: 10, Lng: 5}, got)

	got = l.Limit(mercator.GeoPoint{Lat: 7, Lng: math.NaN()}, fallback, 3, 600, 400)
	assert.Equal(t, mercator.GeoPoint{Lat: 7, Lng: 20}, got)
}

func TestEdgePolicyKeepsViewportInside(t *testing.T) {
	l := New(PolicyEdge)
	const zoom, width, height = 4.0, 600.0, 400.0

	got := l.Limit(mercator.GeoPoint{Lat: 85, Lng: -180}, mercator.GeoPoint{}, zoom, width, height)

	v := mercator.View{Center: got, Zoom: zoom, Width: width, Height: height}
	topLeft := v.LatLngToPixel(mercator.GeoPoint{Lat: mercator.MaxLatitude, Lng: -180})
	assert.InDelta(t, 0, topLeft.X, 1e-6)
	assert.InDelta(t, 0, topLeft.Y, 1e-6)
}

func TestEdgePolicyFreeAxisWhenViewportLargerThanWorld(t *testing.T) {
	l := New(PolicyEdge)

	r := l.Extent(1, 1000, 300)
	assert.True(t, r.FreeLng)
	assert.False(t, r.FreeLat)
	assert.NotZero(t, r.MaxLat)

	got := l.Limit(mercator.GeoPoint{Lat: 0, Lng: 120}, mercator.GeoPoint{}, 1, 1000, 300)
	assert.Equal(t, 120.0, got.Lng)

	got = l.Limit(mercator.GeoPoint{Lat: 0, Lng: 500}, mercator.GeoPoint{}, 1, 1000, 300)
	assert.Equal(t, mercator.AbsoluteExtent.MaxLng, got.Lng)
}

func TestEdgePolicyViewportExactlyWorldSize(t *testing.T) {
	l := New(PolicyEdge)

	r := l.Extent(2, 1024, 400)
	assert.False(t, r.FreeLng)
	assert.InDelta(t, 0, r.MinLng, 1e-9)
	assert.InDelta(t, 0, r.MaxLng, 1e-9)

	got := l.Limit(mercator.GeoPoint{Lat: 0, Lng: 120}, mercator.GeoPoint{}, 2, 1024, 400)
	assert.InDelta(t, 0, got.Lng, 1e-9)

	v := mercator.View{Center: got, Zoom: 2, Width: 1024, Height: 400}
	assert.InDelta(t, 0, v.LatLngToPixel(mercator.GeoPoint{Lng: -180}).X, 1e-6)
}

func TestEdgeExtentIsCached(t *testing.T) {
	l := New(PolicyEdge)
	first := l.Extent(5, 800, 600)
	assert.Equal(t, first, l.Extent(5, 800, 600))
	assert.Equal(t, 1, l.cache.Len())

	l.Extent(5, 801, 600)
	assert.Equal(t, 2, l.cache.Len())
}
