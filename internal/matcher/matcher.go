// Package matcher resolves a facility to at most one CRM account using a
// tiered fallback strategy: exact name, normalized name, then token search.
package matcher

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/internal/normalize"
	"github.com/nordcharge/resolve-cli/internal/similarity"
	"github.com/nordcharge/resolve-cli/pkg/crm"
)

// Tier identifies which fallback level produced a match.
type Tier string

const (
	TierExact      Tier = "exact"
	TierNormalized Tier = "normalized"
	TierToken      Tier = "token"
	TierNone       Tier = "none"
)

// Combined-score weights for the token tier.
const (
	tokenOverlapWeight   = 0.4
	nameSimilarityWeight = 0.6

	exactSearchLimit = 5
)

// Result is the outcome of matching one facility. Account is nil when no
// tier produced a qualifying candidate.
type Result struct {
	Account    *crm.Account
	Tier       Tier
	Confidence float64

	// ProviderErrors counts transient CRM failures swallowed while trying
	// tiers; they are reported in run statistics, never fatal.
	ProviderErrors int
}

// Searcher is the CRM search capability the matcher depends on.
type Searcher interface {
	ExactName(ctx context.Context, name string, limit int) ([]crm.Account, error)
	NameContains(ctx context.Context, fragment string, limit int) ([]crm.Account, error)
}

// Config holds the matcher thresholds. Zero values fall back to the
// empirically chosen defaults.
type Config struct {
	NormalizedThreshold   float64
	TokenThreshold        float64
	TokenResultCutoff     int
	NormalizedSearchLimit int
	TokenSearchRPS        float64
}

func (c Config) withDefaults() Config {
	if c.NormalizedThreshold <= 0 {
		c.NormalizedThreshold = 0.65
	}
	if c.TokenThreshold <= 0 {
		c.TokenThreshold = 0.55
	}
	if c.TokenResultCutoff <= 0 {
		c.TokenResultCutoff = 100
	}
	if c.NormalizedSearchLimit <= 0 {
		c.NormalizedSearchLimit = 25
	}
	if c.TokenSearchRPS <= 0 {
		c.TokenSearchRPS = 5
	}
	return c
}

// Matcher tries each tier in order and stops at the first acceptance.
type Matcher struct {
	search     Searcher
	cfg        Config
	limiter    *rate.Limiter
	strategies []strategy
}

type strategy interface {
	tier() Tier
	attempt(ctx context.Context, f model.Facility, canonical string, tokens []string) (*Result, error)
}

// New creates a Matcher over the given CRM search capability.
func New(search Searcher, cfg Config) *Matcher {
	cfg = cfg.withDefaults()
	m := &Matcher{
		search:  search,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.TokenSearchRPS), 1),
	}
	m.strategies = []strategy{
		&exactStrategy{m},
		&normalizedStrategy{m},
		&tokenStrategy{m},
	}
	return m
}

// Match resolves one facility. A transient failure inside a tier is logged
// and treated as "this tier found nothing"; the remaining tiers still run.
func (m *Matcher) Match(ctx context.Context, f model.Facility) *Result {
	canonical := normalize.Normalize(f.Name, f.Country)
	tokens := normalize.Tokens(canonical, f.Country)

	none := &Result{Tier: TierNone}
	for _, s := range m.strategies {
		if ctx.Err() != nil {
			break
		}
		r, err := s.attempt(ctx, f, canonical, tokens)
		if err != nil {
			zap.L().Warn("matcher: tier failed",
				zap.String("tier", string(s.tier())),
				zap.String("facility_id", f.ID),
				zap.Error(err),
			)
			none.ProviderErrors++
			continue
		}
		if r != nil {
			r.ProviderErrors = none.ProviderErrors
			return r
		}
	}
	return none
}

// exactStrategy accepts the first exact-name hit that has an address.
type exactStrategy struct{ m *Matcher }

func (s *exactStrategy) tier() Tier { return TierExact }

func (s *exactStrategy) attempt(ctx context.Context, f model.Facility, _ string, _ []string) (*Result, error) {
	accounts, err := s.m.search.ExactName(ctx, f.Name, exactSearchLimit)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].HasAddress() {
			return &Result{Account: &accounts[i], Tier: TierExact, Confidence: 1.0}, nil
		}
	}
	return nil, nil
}

// normalizedStrategy searches on the first canonical token and accepts the
// first candidate whose normalized name is similar enough to the canonical
// facility name. Skipped when normalization changed nothing, the exact tier
// already covered that case.
type normalizedStrategy struct{ m *Matcher }

func (s *normalizedStrategy) tier() Tier { return TierNormalized }

func (s *normalizedStrategy) attempt(ctx context.Context, f model.Facility, canonical string, _ []string) (*Result, error) {
	if canonical == f.Name || canonical == "" {
		return nil, nil
	}

	fields := strings.Fields(canonical)
	if len(fields) == 0 {
		return nil, nil
	}

	candidates, err := s.m.search.NameContains(ctx, fields[0], s.m.cfg.NormalizedSearchLimit)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		if !candidates[i].HasAddress() {
			continue
		}
		candCanonical := normalize.Normalize(candidates[i].Name, f.Country)
		sim := similarity.Ratio(candCanonical, canonical)
		if sim > s.m.cfg.NormalizedThreshold {
			return &Result{Account: &candidates[i], Tier: TierNormalized, Confidence: sim}, nil
		}
	}
	return nil, nil
}

// tokenStrategy searches token by token until a result set comes in under
// the cutoff, then picks the best combined overlap/similarity score.
type tokenStrategy struct{ m *Matcher }

func (s *tokenStrategy) tier() Tier { return TierToken }

func (s *tokenStrategy) attempt(ctx context.Context, f model.Facility, canonical string, tokens []string) (*Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var candidates []crm.Account
	for _, tok := range tokens {
		if err := s.m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		found, err := s.m.search.NameContains(ctx, tok, s.m.cfg.TokenResultCutoff)
		if err != nil {
			return nil, err
		}
		candidates = found
		if len(found) < s.m.cfg.TokenResultCutoff {
			break
		}
	}

	var best *crm.Account
	var bestScore float64
	for i := range candidates {
		if !candidates[i].HasAddress() {
			continue
		}
		candCanonical := normalize.Normalize(candidates[i].Name, f.Country)
		candTokens := normalize.Tokens(candCanonical, f.Country)

		overlap := similarity.TokenOverlap(tokens, candTokens)
		nameSim := similarity.Ratio(candCanonical, canonical)
		score := tokenOverlapWeight*overlap + nameSimilarityWeight*nameSim

		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil || bestScore <= s.m.cfg.TokenThreshold {
		return nil, nil
	}
	return &Result{Account: best, Tier: TierToken, Confidence: bestScore}, nil
}
