package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCountry(t *testing.T) {
	c, err := ParseCountry("no")
	require.NoError(t, err)
	assert.Equal(t, CountryNorway, c)

	c, err = ParseCountry(" SE ")
	require.NoError(t, err)
	assert.Equal(t, CountrySweden, c)

	c, err = ParseCountry("")
	require.NoError(t, err)
	assert.Equal(t, Country(""), c)

	_, err = ParseCountry("DE")
	assert.Error(t, err)
}

func TestFacilityValidate(t *testing.T) {
	lat, lon := 59.911, 10.757

	f := Facility{ID: "f1", GeocodeStatus: GeocodeSuccess, Latitude: &lat, Longitude: &lon}
	assert.NoError(t, f.Validate())

	f = Facility{ID: "f2", GeocodeStatus: GeocodeManual, Latitude: &lat, Longitude: &lon}
	assert.NoError(t, f.Validate())

	f = Facility{ID: "f3", GeocodeStatus: GeocodeSuccess}
	assert.Error(t, f.Validate(), "success without coordinates")

	f = Facility{ID: "f4", GeocodeStatus: GeocodeFailed, Latitude: &lat, Longitude: &lon}
	assert.Error(t, f.Validate(), "failed must not carry coordinates")

	f = Facility{ID: "f5", GeocodeStatus: GeocodePending}
	assert.NoError(t, f.Validate())
}

func TestFacilityHasAddress(t *testing.T) {
	f := Facility{Street: "  "}
	assert.False(t, f.HasAddress())
	f.Street = "Storgata 5"
	assert.True(t, f.HasAddress())
}
