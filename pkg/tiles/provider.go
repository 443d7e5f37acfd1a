package tiles

import (
	"fmt"
	"strings"
)

// Provider resolves a tile address. dpr is the device pixel ratio the image
// is requested for, 0 meaning "unspecified".
type Provider func(x, y, z int, dpr float64) string

// Wikimedia serves the osm-intl style, with @2x images for dpr >= 2
func Wikimedia(x, y, z int, dpr float64) string {
	retina := ""
	if dpr >= 2 {
		retina = "@2x"
	}
	return fmt.Sprintf("https://maps.wikimedia.org/osm-intl/%d/%d/%d%s.png", z, x, y, retina)
}

// OSM is the OpenStreetMap standard tile layer
func OSM(x, y, z int, _ float64) string {
	return fmt.Sprintf("https://tile.openstreetmap.org/%d/%d/%d.png", z, x, y)
}

// Carto is Carto's voyager basemap without labels
func Carto(x, y, z int, dpr float64) string {
	retina := ""
	if dpr >= 2 {
		retina = "@2x"
	}
	return fmt.Sprintf("https://basemaps.cartocdn.com/rastertiles/voyager_nolabels/%d/%d/%d%s.png", z, x, y, retina)
}

// ProviderByName returns a built-in provider
func ProviderByName(name string) (Provider, error) {
	switch strings.ToLower(name) {
	case "", "wikimedia":
		return Wikimedia, nil
	case "osm":
		return OSM, nil
	case "carto":
		return Carto, nil
	}
	return nil, fmt.Errorf("unknown tile provider %q", name)
}

// URL resolves the tile with the given provider
func (t TileIndex) URL(p Provider) string {
	return p(t.X, t.Y, t.Z, 0)
}

// SrcSet builds an HTML srcset value with one candidate per dpr
func (t TileIndex) SrcSet(p Provider, dprs []float64) string {
	if len(dprs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(dprs))
	for _, dpr := range dprs {
		u := p(t.X, t.Y, t.Z, dpr)
		if dpr != 1 {
			u += fmt.Sprintf(" %gx", dpr)
		}
		parts = append(parts, u)
	}
	return strings.Join(parts, ", ")
}
