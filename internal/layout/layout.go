// Package layout computes which tiles cover a viewport and where to draw them.
//
// Tiles are positioned inside a covering box; the box itself is moved and
// scaled by a single Transform so a pan or a fractional zoom changes one
// container instead of every tile. During a change of rounded zoom the tiles
// of the previous levels stay visible (stale) until every new tile reports
// loaded.
package layout

import (
	"math"

	"mapviewer/pkg/mercator"
	"mapviewer/pkg/tiles"
)

// maxStaleLevels is how many zoom levels away a stale layer may be to still be drawn
const maxStaleLevels = 4

// Input is the viewport state a layout is computed from
type Input struct {
	Center     mercator.GeoPoint
	Zoom       float64
	ZoomDelta  float64
	Width      float64
	Height     float64
	PixelDelta mercator.PixelPoint
}

// Values is the covering tile range for an Input. The range is not clipped to
// the valid tile indices.
type Values struct {
	TileMinX, TileMaxX int
	TileMinY, TileMaxY int

	TileCenterX, TileCenterY float64

	RoundedZoom int
	ZoomDelta   float64

	ScaleWidth  float64
	ScaleHeight float64
	Scale       float64
}

// Compute returns the covering tile range for in
func Compute(in Input) Values {
	zoom := in.Zoom + in.ZoomDelta
	roundedZoom := math.Round(zoom)
	scale := math.Exp2(zoom - roundedZoom)

	scaleWidth := in.Width / scale
	scaleHeight := in.Height / scale

	tileCenterX := mercator.LngToTileX(in.Center.Lng, roundedZoom) - in.PixelDelta.X/mercator.TileSize/scale
	tileCenterY := mercator.LatToTileY(in.Center.Lat, roundedZoom) - in.PixelDelta.Y/mercator.TileSize/scale

	halfWidth := scaleWidth / 2 / mercator.TileSize
	halfHeight := scaleHeight / 2 / mercator.TileSize

	return Values{
		TileMinX:    int(math.Floor(tileCenterX - halfWidth)),
		TileMaxX:    int(math.Floor(tileCenterX + halfWidth)),
		TileMinY:    int(math.Floor(tileCenterY - halfHeight)),
		TileMaxY:    int(math.Floor(tileCenterY + halfHeight)),
		TileCenterX: tileCenterX,
		TileCenterY: tileCenterY,
		RoundedZoom: int(roundedZoom),
		ZoomDelta:   in.ZoomDelta,
		ScaleWidth:  scaleWidth,
		ScaleHeight: scaleHeight,
		Scale:       scale,
	}
}

// clipped returns the range restricted to valid tile indices
func (v Values) clipped() (minX, minY, maxX, maxY int) {
	last := tiles.MaxIndex(v.RoundedZoom)
	return max(v.TileMinX, 0), max(v.TileMinY, 0), min(v.TileMaxX, last), min(v.TileMaxY, last)
}

// Visible returns the valid tile indices of the range, column by column
func (v Values) Visible() []tiles.TileIndex {
	minX, minY, maxX, maxY := v.clipped()
	if maxX < minX || maxY < minY {
		return nil
	}

	out := make([]tiles.TileIndex, 0, (maxX-minX+1)*(maxY-minY+1))
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			out = append(out, tiles.TileIndex{X: x, Y: y, Z: v.RoundedZoom})
		}
	}
	return out
}

// Contains reports whether idx is part of the visible set
func (v Values) Contains(idx tiles.TileIndex) bool {
	if idx.Z != v.RoundedZoom || !idx.Valid() {
		return false
	}
	return idx.X >= v.TileMinX && idx.X <= v.TileMaxX && idx.Y >= v.TileMinY && idx.Y <= v.TileMaxY
}

// Rect is a rectangle in covering-box pixels
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Descriptor is one tile to draw
type Descriptor struct {
	Index tiles.TileIndex `json:"index"`
	Rect  Rect            `json:"rect"`
	// Scale is the tile size relative to a tile of the current rounded zoom
	Scale float64 `json:"scale"`
	Stale bool    `json:"stale"`
}

// Key identifies the tile for TileLoaded
func (d Descriptor) Key() string {
	return d.Index.Key()
}

// Transform places the covering box on screen: the box (BoxWidth x BoxHeight,
// top-left at the viewport origin) is scaled by Scale, and the tiles container
// inside it is translated by (TranslateX, TranslateY).
type Transform struct {
	BoxWidth    float64 `json:"box_width"`
	BoxHeight   float64 `json:"box_height"`
	Scale       float64 `json:"scale"`
	TranslateX  float64 `json:"translate_x"`
	TranslateY  float64 `json:"translate_y"`
	TilesWidth  float64 `json:"tiles_width"`
	TilesHeight float64 `json:"tiles_height"`
}

// ToScreen maps a covering-box rectangle to viewport pixels
func (t Transform) ToScreen(r Rect) Rect {
	return Rect{
		Left:   (r.Left + t.TranslateX) * t.Scale,
		Top:    (r.Top + t.TranslateY) * t.Scale,
		Width:  r.Width * t.Scale,
		Height: r.Height * t.Scale,
	}
}

// Result is a complete layout. Stale tiles come first so current tiles are drawn on top.
type Result struct {
	RoundedZoom int          `json:"rounded_zoom"`
	Tiles       []Descriptor `json:"tiles"`
	Transform   Transform    `json:"transform"`
}

func transformFor(v Values) Transform {
	return Transform{
		BoxWidth:    v.ScaleWidth,
		BoxHeight:   v.ScaleHeight,
		Scale:       v.Scale,
		TranslateX:  -((v.TileCenterX-float64(v.TileMinX))*mercator.TileSize - v.ScaleWidth/2),
		TranslateY:  -((v.TileCenterY-float64(v.TileMinY))*mercator.TileSize - v.ScaleHeight/2),
		TilesWidth:  float64(v.TileMaxX-v.TileMinX+1) * mercator.TileSize,
		TilesHeight: float64(v.TileMaxY-v.TileMinY+1) * mercator.TileSize,
	}
}

// current returns the descriptors of the up-to-date tiles
func current(v Values) []Descriptor {
	visible := v.Visible()
	out := make([]Descriptor, 0, len(visible))
	for _, idx := range visible {
		out = append(out, Descriptor{
			Index: idx,
			Rect: Rect{
				Left:   float64(idx.X-v.TileMinX) * mercator.TileSize,
				Top:    float64(idx.Y-v.TileMinY) * mercator.TileSize,
				Width:  mercator.TileSize,
				Height: mercator.TileSize,
			},
			Scale: 1,
		})
	}
	return out
}

// stale maps an older layer into the covering box of v
func stale(old, v Values) []Descriptor {
	zoomDiff := old.RoundedZoom - v.RoundedZoom
	if zoomDiff == 0 || zoomDiff > maxStaleLevels || zoomDiff < -maxStaleLevels {
		return nil
	}

	pow := 1 / math.Exp2(float64(zoomDiff))
	xDiff := -(float64(v.TileMinX) - float64(old.TileMinX)*pow) * mercator.TileSize
	yDiff := -(float64(v.TileMinY) - float64(old.TileMinY)*pow) * mercator.TileSize
	size := mercator.TileSize * pow

	visible := old.Visible()
	out := make([]Descriptor, 0, len(visible))
	for _, idx := range visible {
		out = append(out, Descriptor{
			Index: idx,
			Rect: Rect{
				Left:   xDiff + float64(idx.X-old.TileMinX)*size,
				Top:    yDiff + float64(idx.Y-old.TileMinY)*size,
				Width:  size,
				Height: size,
			},
			Scale: pow,
			Stale: true,
		})
	}
	return out
}
