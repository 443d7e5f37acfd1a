package camera

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"mapviewer/pkg/mercator"
)

// Bounds are the geographic corners of the viewport
type Bounds struct {
	NE mercator.GeoPoint `json:"ne"`
	SW mercator.GeoPoint `json:"sw"`
}

// boundsOf takes the corners from the outermost pixels of v
func boundsOf(v mercator.View) Bounds {
	return Bounds{
		NE: v.PixelToLatLng(mercator.PixelPoint{X: v.Width - 1, Y: 0}),
		SW: v.PixelToLatLng(mercator.PixelPoint{X: 0, Y: v.Height - 1}),
	}
}

// Bound returns the bounds as lon/lat
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{Min: b.SW.Point(), Max: b.NE.Point()}
}

// Center is the geographic midpoint of the corners
func (b Bounds) Center() mercator.GeoPoint {
	return mercator.GeoPoint{
		Lat: (b.NE.Lat + b.SW.Lat) / 2,
		Lng: (b.NE.Lng + b.SW.Lng) / 2,
	}
}

// Meters returns the bounds in EPSG:3857 meters
func (b Bounds) Meters() orb.Bound {
	minE, minN := mercator.ToMeters(b.SW)
	maxE, maxN := mercator.ToMeters(b.NE)
	return orb.Bound{Min: orb.Point{minE, minN}, Max: orb.Point{maxE, maxN}}
}

// Feature returns the bounds as a GeoJSON polygon
func (b Bounds) Feature() *geojson.Feature {
	return geojson.NewFeature(b.Bound().ToPolygon())
}

// Feature returns the bounds as a GeoJSON polygon carrying center and zoom
func (e BoundsEvent) Feature() *geojson.Feature {
	f := e.Bounds.Feature()
	f.Properties["center"] = []float64{e.Center.Lng, e.Center.Lat}
	f.Properties["zoom"] = e.Zoom
	f.Properties["initial"] = e.Initial
	return f
}
