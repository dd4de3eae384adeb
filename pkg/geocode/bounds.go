package geocode

import (
	"github.com/twpayne/go-geom"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// countryBounds holds a rough lon/lat bounding box per market, generous
// enough to include all territory but tight enough to reject a geocoder
// hallucination on another continent.
var countryBounds = map[model.Country]*geom.Bounds{
	model.CountryNorway:  geom.NewBounds(geom.XY).Set(4.0, 57.7, 31.5, 71.4),
	model.CountrySweden:  geom.NewBounds(geom.XY).Set(10.5, 55.0, 24.2, 69.1),
	model.CountryDenmark: geom.NewBounds(geom.XY).Set(7.5, 54.4, 15.6, 57.9),
	model.CountryFinland: geom.NewBounds(geom.XY).Set(19.0, 59.5, 31.6, 70.1),
}

// withinCountry reports whether a coordinate pair plausibly lies inside the
// given country. Unknown countries are not checked.
func withinCountry(country model.Country, lon, lat float64) bool {
	bounds, ok := countryBounds[country]
	if !ok {
		return true
	}
	return bounds.OverlapsPoint(geom.XY, geom.Coord{lon, lat})
}
