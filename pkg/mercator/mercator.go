// Package mercator converts between geographic coordinates, world pixels and
// slippy-map tile space using the spherical (web) Mercator projection.
package mercator

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

const (
	// TileSize is the edge length of one tile in pixels at every zoom level
	TileSize = 256.0

	// EarthRadius is the sphere radius of EPSG:3857 in meters
	EarthRadius = 6378137.0

	// MaxLatitude is the latitude where the Mercator world becomes square
	MaxLatitude = 85.0511287798
)

// GeoPoint is a latitude/longitude pair in degrees
type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Point returns the orb representation (lon, lat)
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

// FromPoint converts an orb point (lon, lat) into a GeoPoint
func FromPoint(p orb.Point) GeoPoint {
	return GeoPoint{Lat: p.Lat(), Lng: p.Lon()}
}

// IsNaN reports whether either coordinate is not a number
func (p GeoPoint) IsNaN() bool {
	return math.IsNaN(p.Lat) || math.IsNaN(p.Lng)
}

// PixelPoint is a floating point pixel offset
type PixelPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Add returns p+q
func (p PixelPoint) Add(q PixelPoint) PixelPoint {
	return PixelPoint{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q
func (p PixelPoint) Sub(q PixelPoint) PixelPoint {
	return PixelPoint{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale multiplies both axes by s
func (p PixelPoint) Scale(s float64) PixelPoint {
	return PixelPoint{X: p.X * s, Y: p.Y * s}
}

// Len returns the euclidean length of p
func (p PixelPoint) Len() float64 {
	return math.Hypot(p.X, p.Y)
}

// IsZero reports whether p is the origin
func (p PixelPoint) IsZero() bool {
	return p.X == 0 && p.Y == 0
}

// WorldSize returns the width of the whole world in pixels at zoom
func WorldSize(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// Project converts a geographic point to world pixels at the given zoom.
// Latitudes beyond MaxLatitude are clamped.
func Project(p GeoPoint, zoom float64) PixelPoint {
	const d = math.Pi / 180
	lat := math.Max(math.Min(MaxLatitude, p.Lat), -MaxLatitude)
	sin := math.Sin(lat * d)

	x := EarthRadius * p.Lng * d
	y := EarthRadius * math.Log((1+sin)/(1-sin)) / 2

	s := 0.5 / (math.Pi * EarthRadius)
	scale := WorldSize(zoom)
	return PixelPoint{
		X: scale * (s*x + 0.5),
		Y: scale * (-s*y + 0.5),
	}
}

// Unproject converts world pixels at the given zoom back to a geographic point
func Unproject(px PixelPoint, zoom float64) GeoPoint {
	const d = 180 / math.Pi
	s := 0.5 / (math.Pi * EarthRadius)
	scale := WorldSize(zoom)

	x := (px.X/scale - 0.5) / s
	y := (px.Y/scale - 0.5) / -s

	return GeoPoint{
		Lat: (2*math.Atan(math.Exp(y/EarthRadius)) - math.Pi/2) * d,
		Lng: x * d / EarthRadius,
	}
}

// LngToTileX returns the fractional tile column of a longitude
func LngToTileX(lng, zoom float64) float64 {
	return (lng + 180) / 360 * math.Exp2(zoom)
}

// LatToTileY returns the fractional tile row of a latitude
func LatToTileY(lat, zoom float64) float64 {
	latRad := lat * math.Pi / 180
	return (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * math.Exp2(zoom)
}

// TileXToLng returns the longitude of a fractional tile column
func TileXToLng(x, zoom float64) float64 {
	return x/math.Exp2(zoom)*360 - 180
}

// TileYToLat returns the latitude of a fractional tile row
func TileYToLat(y, zoom float64) float64 {
	n := math.Pi - 2*math.Pi*y/math.Exp2(zoom)
	return 180 / math.Pi * math.Atan(0.5*(math.Exp(n)-math.Exp(-n)))
}

// ToMeters converts a geographic point to EPSG:3857 easting/northing
func ToMeters(p GeoPoint) (east, north float64) {
	east, north, _ = wgs84.LonLat().To(wgs84.WebMercator())(p.Lng, p.Lat, 0)
	return east, north
}

// FromMeters converts EPSG:3857 easting/northing to a geographic point
func FromMeters(east, north float64) GeoPoint {
	lng, lat, _ := wgs84.Transform(wgs84.WebMercator(), wgs84.LonLat())(east, north, 0)
	return GeoPoint{Lat: lat, Lng: lng}
}
