package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nordcharge/resolve-cli/internal/matcher"
	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/internal/store"
)

// FacilityMatcher links one facility to a CRM account.
type FacilityMatcher interface {
	Match(ctx context.Context, f model.Facility) *matcher.Result
}

// MatchRunner drives the CRM matching stage over the unmatched backlog.
type MatchRunner struct {
	store   store.Store
	matcher FacilityMatcher
}

// NewMatchRunner creates a MatchRunner.
func NewMatchRunner(st store.Store, m FacilityMatcher) *MatchRunner {
	return &MatchRunner{store: st, matcher: m}
}

// Run fetches the unmatched backlog and processes it sequentially. A
// single record's failure never stops the batch; only fetching the
// backlog itself can abort the run.
func (r *MatchRunner) Run(ctx context.Context, opts Options) (*RunStats, error) {
	stats := newRunStats("match", opts.DryRun)
	log := zap.L().With(zap.String("run_id", stats.RunID), zap.String("stage", stats.Stage))

	facilities, err := r.store.UnmatchedFacilities(ctx, opts.Country, opts.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch match backlog")
	}
	log.Info("starting match run",
		zap.Int("backlog", len(facilities)),
		zap.String("country", string(opts.Country)),
		zap.Bool("dry_run", opts.DryRun),
	)

	for i := range facilities {
		r.processOne(ctx, facilities[i], i+1, len(facilities), stats)
	}

	stats.Duration = time.Since(stats.StartedAt)
	log.Info("match run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (r *MatchRunner) processOne(ctx context.Context, f model.Facility, idx, total int, stats *RunStats) {
	defer func() {
		if rec := recover(); rec != nil {
			stats.Failed++
			zap.L().Error("match: panic processing facility",
				zap.String("facility_id", f.ID),
				zap.Any("panic", rec),
			)
		}
	}()

	stats.Processed++
	stats.ByCountry[f.Country]++

	result := r.matcher.Match(ctx, f)
	if result.Account == nil {
		fmt.Printf("[%d/%d] %s (%s): no match\n", idx, total, f.Name, f.Country)
		if stats.DryRun {
			stats.Failed++
			return
		}
		if err := r.store.RecordMatchFailure(ctx, f.ID); err != nil {
			zap.L().Error("match: persist failure marker, record stays pending",
				zap.String("facility_id", f.ID),
				zap.Error(err),
			)
		}
		stats.Failed++
		return
	}

	acc := result.Account
	fmt.Printf("[%d/%d] %s (%s): matched %q via %s tier (%.2f)\n",
		idx, total, f.Name, f.Country, acc.Name, result.Tier, result.Confidence)

	stats.ByTier[string(result.Tier)]++
	if stats.DryRun {
		stats.Succeeded++
		return
	}

	err := r.store.RecordMatch(ctx, f.ID, acc.ID,
		acc.BillingStreet, acc.BillingCity, acc.BillingPostalCode,
		string(result.Tier), result.Confidence)
	if err != nil {
		zap.L().Error("match: persist match, record stays pending",
			zap.String("facility_id", f.ID),
			zap.Error(err),
		)
		stats.Failed++
		return
	}
	stats.Succeeded++
	stats.Updated++
}
