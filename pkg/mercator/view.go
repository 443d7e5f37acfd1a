package mercator

import "math"

// Extent is a lat/lng rectangle used for clamping
type Extent struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// AbsoluteExtent is the whole Mercator world
var AbsoluteExtent = Extent{
	MinLat: TileYToLat(1024, 10),
	MaxLat: TileYToLat(0, 10),
	MinLng: TileXToLng(0, 10),
	MaxLng: TileXToLng(1024, 10),
}

// Clamp restricts p to the extent, axis by axis
func (e Extent) Clamp(p GeoPoint) GeoPoint {
	return GeoPoint{
		Lat: math.Max(e.MinLat, math.Min(e.MaxLat, p.Lat)),
		Lng: math.Max(e.MinLng, math.Min(e.MaxLng, p.Lng)),
	}
}

// Contains reports whether p lies inside the extent, borders included
func (e Extent) Contains(p GeoPoint) bool {
	return p.Lat >= e.MinLat && p.Lat <= e.MaxLat && p.Lng >= e.MinLng && p.Lng <= e.MaxLng
}

// View places Center at the middle of a Width x Height screen, shifted by an
// uncommitted PixelDelta.
type View struct {
	Center     GeoPoint
	Zoom       float64
	Width      float64
	Height     float64
	PixelDelta PixelPoint
}

// LatLngToPixel returns the screen position of p
func (v View) LatLngToPixel(p GeoPoint) PixelPoint {
	tileCenterX := LngToTileX(v.Center.Lng, v.Zoom)
	tileCenterY := LatToTileY(v.Center.Lat, v.Zoom)

	tileX := LngToTileX(p.Lng, v.Zoom)
	tileY := LatToTileY(p.Lat, v.Zoom)

	return PixelPoint{
		X: (tileX-tileCenterX)*TileSize + v.Width/2 + v.PixelDelta.X,
		Y: (tileY-tileCenterY)*TileSize + v.Height/2 + v.PixelDelta.Y,
	}
}

// PixelToLatLng returns the geographic point under a screen position,
// clamped to AbsoluteExtent.
func (v View) PixelToLatLng(px PixelPoint) GeoPoint {
	dx := (px.X - v.Width/2 - v.PixelDelta.X) / TileSize
	dy := (px.Y - v.Height/2 - v.PixelDelta.Y) / TileSize

	tileX := LngToTileX(v.Center.Lng, v.Zoom) + dx
	tileY := LatToTileY(v.Center.Lat, v.Zoom) + dy

	return AbsoluteExtent.Clamp(GeoPoint{
		Lat: TileYToLat(tileY, v.Zoom),
		Lng: TileXToLng(tileX, v.Zoom),
	})
}

// ZoomCenter returns the center that keeps anchor at the same screen position
// when the view zooms from v.Zoom to newZoom. The result is not bounds-limited.
func (v View) ZoomCenter(anchor GeoPoint, newZoom float64) GeoPoint {
	after := v
	after.Zoom = newZoom

	before := v.LatLngToPixel(anchor)
	moved := after.LatLngToPixel(anchor)

	return after.PixelToLatLng(PixelPoint{
		X: v.Width/2 + moved.X - before.X,
		Y: v.Height/2 + moved.Y - before.Y,
	})
}
