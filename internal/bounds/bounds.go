// Package bounds limits the map center to the range allowed at a zoom level.
package bounds

import (
	"fmt"
	"math"
	"strings"

	"github.com/jellydator/ttlcache/v3"

	"mapviewer/pkg/mercator"
)

// Policy selects how far the camera may travel
type Policy string

const (
	// PolicyCenter lets the center roam the whole world
	PolicyCenter Policy = "center"
	// PolicyEdge keeps the viewport edges inside the world
	PolicyEdge Policy = "edge"
)

// extents cached per limiter; one entry is enough while dragging, the rest
// covers zoom animations passing through fractional levels.
const cacheCapacity = 64

// ParsePolicy parses "center" or "edge"
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(s)) {
	case PolicyCenter, "":
		return PolicyCenter, nil
	case PolicyEdge:
		return PolicyEdge, nil
	}
	return "", fmt.Errorf("unknown bounds policy %q", s)
}

type extentKey struct {
	zoom, width, height float64
}

// Range is the allowed center range. An axis marked free has no range of its
// own: the viewport is larger than the world along it, and the center only
// has to stay inside the absolute extent.
type Range struct {
	mercator.Extent
	FreeLat bool
	FreeLng bool
}

// Clamp restricts p to the range, axis by axis
func (r Range) Clamp(p mercator.GeoPoint) mercator.GeoPoint {
	e := r.Extent
	if r.FreeLat {
		e.MinLat, e.MaxLat = mercator.AbsoluteExtent.MinLat, mercator.AbsoluteExtent.MaxLat
	}
	if r.FreeLng {
		e.MinLng, e.MaxLng = mercator.AbsoluteExtent.MinLng, mercator.AbsoluteExtent.MaxLng
	}
	return e.Clamp(p)
}

// Limiter clamps candidate centers under a fixed policy
type Limiter struct {
	policy Policy
	cache  *ttlcache.Cache[extentKey, Range]
}

// New creates a limiter for the policy
func New(policy Policy) *Limiter {
	l := &Limiter{policy: policy}
	if policy == PolicyEdge {
		l.cache = ttlcache.New(
			ttlcache.WithCapacity[extentKey, Range](cacheCapacity),
			ttlcache.WithTTL[extentKey, Range](ttlcache.NoTTL),
		)
	}
	return l
}

// Policy returns the configured policy
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Extent returns the allowed center range at zoom for a viewport of the
// given size. Under the edge policy an axis along which the viewport is
// larger than the world is free.
func (l *Limiter) Extent(zoom, width, height float64) Range {
	if l.policy != PolicyEdge {
		return Range{Extent: mercator.AbsoluteExtent}
	}

	key := extentKey{zoom: zoom, width: width, height: height}
	if item := l.cache.Get(key); item != nil {
		return item.Value()
	}

	r := edgeRange(zoom, width, height)
	l.cache.Set(key, r, ttlcache.NoTTL)
	return r
}

func edgeRange(zoom, width, height float64) Range {
	var r Range
	n := math.Exp2(zoom)
	pixelsAtZoom := n * mercator.TileSize

	if width <= pixelsAtZoom {
		r.MinLng = mercator.TileXToLng(width/512, zoom)
		r.MaxLng = mercator.TileXToLng(n-width/512, zoom)
	} else {
		r.FreeLng = true
	}
	if height <= pixelsAtZoom {
		r.MinLat = mercator.TileYToLat(n-height/512, zoom)
		r.MaxLat = mercator.TileYToLat(height/512, zoom)
	} else {
		r.FreeLat = true
	}
	return r
}

// Limit clamps candidate to the range at zoom, axis by axis. A NaN axis
// falls back to the same axis of fallback.
func (l *Limiter) Limit(candidate, fallback mercator.GeoPoint, zoom, width, height float64) mercator.GeoPoint {
	if math.IsNaN(candidate.Lat) {
		candidate.Lat = fallback.Lat
	}
	if math.IsNaN(candidate.Lng) {
		candidate.Lng = fallback.Lng
	}
	return l.Extent(zoom, width, height).Clamp(candidate)
}
