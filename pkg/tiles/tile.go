package tiles

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"mapviewer/pkg/mercator"
)

// TileIndex represents a tile coordinate in the slippy map format
type TileIndex struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (t TileIndex) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Key identifies the tile for load tracking ("x-y-z")
func (t TileIndex) Key() string {
	return fmt.Sprintf("%d-%d-%d", t.X, t.Y, t.Z)
}

// MaxIndex returns the largest valid x or y at zoom z
func MaxIndex(z int) int {
	return int(math.Exp2(float64(z))) - 1
}

// Valid reports whether x and y are inside [0, 2^z - 1]
func (t TileIndex) Valid() bool {
	if t.Z < 0 {
		return false
	}
	last := MaxIndex(t.Z)
	return t.X >= 0 && t.Y >= 0 && t.X <= last && t.Y <= last
}

// MapTile converts to the orb maptile representation. The index must be valid.
func (t TileIndex) MapTile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z))
}

// Bound returns the geographic bound covered by the tile
func (t TileIndex) Bound() orb.Bound {
	return t.MapTile().Bound()
}

// FromLatLng returns the tile containing p at zoom z, clamped to the valid range
func FromLatLng(p mercator.GeoPoint, z int) TileIndex {
	last := MaxIndex(z)
	x := int(math.Floor(mercator.LngToTileX(p.Lng, float64(z))))
	y := int(math.Floor(mercator.LatToTileY(p.Lat, float64(z))))
	return TileIndex{X: clamp(x, 0, last), Y: clamp(y, 0, last), Z: z}
}

// NorthWest returns the top-left corner of the tile
func (t TileIndex) NorthWest() mercator.GeoPoint {
	return mercator.GeoPoint{
		Lat: mercator.TileYToLat(float64(t.Y), float64(t.Z)),
		Lng: mercator.TileXToLng(float64(t.X), float64(t.Z)),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
