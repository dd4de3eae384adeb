package geocode

import (
	"context"

	"go.uber.org/zap"

	"github.com/nordcharge/resolve-cli/internal/model"
)

// Router dispatches each facility to exactly one provider by country:
// Norway to the national registry, every other market to the commercial
// service. There is no cross-provider fallback; the registry is
// authoritative for Norway and Mapbox has no better Norwegian data.
type Router struct {
	registry   Provider
	commercial Provider
}

// NewRouter creates a Router over the two providers.
func NewRouter(registry, commercial Provider) *Router {
	return &Router{registry: registry, commercial: commercial}
}

// Resolve geocodes one address through the provider responsible for its
// country. An unavailable provider (missing credential) yields an
// unmatched result without any network call. Coordinates outside the
// country's bounding box are rejected as unmatched.
func (r *Router) Resolve(ctx context.Context, addr AddressInput) (*Result, error) {
	p := r.providerFor(addr)

	if !p.Available() {
		zap.L().Warn("geocode: provider unavailable, skipping lookup",
			zap.String("provider", p.Name()),
		)
		return &Result{Matched: false, Provider: p.Name()}, nil
	}

	result, err := p.Geocode(ctx, addr)
	if err != nil {
		return nil, err
	}

	if result.Matched && !withinCountry(addr.Country, result.Longitude, result.Latitude) {
		zap.L().Warn("geocode: coordinates outside country bounds, rejecting",
			zap.String("provider", p.Name()),
			zap.String("country", string(addr.Country)),
			zap.Float64("lat", result.Latitude),
			zap.Float64("lon", result.Longitude),
		)
		return &Result{Matched: false, Provider: p.Name()}, nil
	}

	return result, nil
}

func (r *Router) providerFor(addr AddressInput) Provider {
	if addr.Country == model.CountryNorway {
		return r.registry
	}
	return r.commercial
}
