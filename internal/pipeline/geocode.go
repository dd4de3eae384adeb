package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/internal/store"
	"github.com/nordcharge/resolve-cli/pkg/geocode"
)

// AddressResolver turns one address into coordinates.
type AddressResolver interface {
	Resolve(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error)
}

// GeocodeRunner drives the geocoding stage over the ungeocoded backlog.
type GeocodeRunner struct {
	store    store.Store
	resolver AddressResolver
}

// NewGeocodeRunner creates a GeocodeRunner.
func NewGeocodeRunner(st store.Store, r AddressResolver) *GeocodeRunner {
	return &GeocodeRunner{store: st, resolver: r}
}

// Run fetches the ungeocoded backlog and processes it sequentially.
func (r *GeocodeRunner) Run(ctx context.Context, opts Options) (*RunStats, error) {
	stats := newRunStats("geocode", opts.DryRun)
	log := zap.L().With(zap.String("run_id", stats.RunID), zap.String("stage", stats.Stage))

	facilities, err := r.store.UngeocodedFacilities(ctx, opts.Country, opts.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch geocode backlog")
	}
	log.Info("starting geocode run",
		zap.Int("backlog", len(facilities)),
		zap.String("country", string(opts.Country)),
		zap.Bool("dry_run", opts.DryRun),
	)

	for i := range facilities {
		r.processOne(ctx, facilities[i], i+1, len(facilities), stats)
	}

	stats.Duration = time.Since(stats.StartedAt)
	log.Info("geocode run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (r *GeocodeRunner) processOne(ctx context.Context, f model.Facility, idx, total int, stats *RunStats) {
	defer func() {
		if rec := recover(); rec != nil {
			stats.Failed++
			zap.L().Error("geocode: panic processing facility",
				zap.String("facility_id", f.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	stats.Processed++
	stats.ByCountry[f.Country]++

	result, err := r.resolver.Resolve(ctx, geocode.AddressInput{
		Street:     f.Street,
		City:       f.City,
		PostalCode: f.PostalCode,
		Country:    f.Country,
	})
	if err != nil {
		// Transient provider errors count as "no result for this record".
		zap.L().Warn("geocode: provider error",
			zap.String("facility_id", f.ID),
			zap.Error(err),
		)
		result = &geocode.Result{Matched: false}
	}

	if !result.Matched {
		fmt.Printf("[%d/%d] %s (%s): no result\n", idx, total, f.Name, f.Country)
		if stats.DryRun {
			stats.Failed++
			return
		}
		if err := r.store.RecordGeocodeFailure(ctx, f.ID); err != nil {
			zap.L().Error("geocode: persist failure marker, record stays pending",
				zap.String("facility_id", f.ID),
				zap.Error(err),
			)
		}
		stats.Failed++
		return
	}

	fmt.Printf("[%d/%d] %s (%s): %.5f, %.5f via %s (%.2f)\n",
		idx, total, f.Name, f.Country,
		result.Latitude, result.Longitude, result.Provider, result.Confidence)

	stats.ByProvider[result.Provider]++
	if stats.DryRun {
		stats.Succeeded++
		return
	}

	err = r.store.RecordGeocode(ctx, f.ID, result.Latitude, result.Longitude, result.Provider, result.Confidence)
	if err != nil {
		zap.L().Error("geocode: persist coordinates, record stays pending",
			zap.String("facility_id", f.ID),
			zap.Error(err),
		)
		stats.Failed++
		return
	}
	stats.Succeeded++
	stats.Updated++
}
