package matcher

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordcharge/resolve-cli/internal/model"
	"github.com/nordcharge/resolve-cli/pkg/crm"
)

// fakeSearcher serves canned accounts keyed by lowercased query, mimicking
// SOQL's case-insensitive matching.
type fakeSearcher struct {
	exact       map[string][]crm.Account
	contains    map[string][]crm.Account
	exactErr    error
	containsErr error

	exactCalls    []string
	containsCalls []string
}

func (s *fakeSearcher) ExactName(_ context.Context, name string, _ int) ([]crm.Account, error) {
	s.exactCalls = append(s.exactCalls, name)
	if s.exactErr != nil {
		return nil, s.exactErr
	}
	return s.exact[strings.ToLower(name)], nil
}

func (s *fakeSearcher) NameContains(_ context.Context, fragment string, limit int) ([]crm.Account, error) {
	s.containsCalls = append(s.containsCalls, fragment)
	if s.containsErr != nil {
		return nil, s.containsErr
	}
	found := s.contains[strings.ToLower(fragment)]
	if len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func fastConfig() Config {
	return Config{TokenSearchRPS: 1000}
}

func TestMatch_ExactTierWins(t *testing.T) {
	search := &fakeSearcher{
		exact: map[string][]crm.Account{
			"sameiet solsiden borettslag": {
				{ID: "001", Name: "Sameiet Solsiden Borettslag", BillingStreet: "Storgata 5", BillingCity: "Oslo"},
			},
		},
		// Near-duplicates present in contains searches must not matter.
		contains: map[string][]crm.Account{
			"solsiden": {
				{ID: "002", Name: "Solsiden Terrasse", BillingStreet: "Annen gate 1"},
			},
		},
	}
	m := New(search, fastConfig())

	f := model.Facility{ID: "f1", Name: "Sameiet Solsiden Borettslag", Country: model.CountryNorway}
	res := m.Match(context.Background(), f)

	require.NotNil(t, res.Account)
	assert.Equal(t, TierExact, res.Tier)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, "Storgata 5", res.Account.BillingStreet)
	assert.Empty(t, search.containsCalls, "exact hit must short-circuit later tiers")
}

func TestMatch_ExactSkipsAddresslessCandidates(t *testing.T) {
	search := &fakeSearcher{
		exact: map[string][]crm.Account{
			"alvim borettslag": {
				{ID: "001", Name: "Alvim Borettslag"},
				{ID: "002", Name: "Alvim Borettslag", BillingStreet: "Alvimveien 2"},
			},
		},
	}
	m := New(search, fastConfig())

	res := m.Match(context.Background(), model.Facility{Name: "Alvim Borettslag", Country: model.CountryNorway})
	require.NotNil(t, res.Account)
	assert.Equal(t, "002", res.Account.ID)
}

func TestMatch_NormalizedTier(t *testing.T) {
	search := &fakeSearcher{
		contains: map[string][]crm.Account{
			"alvim": {
				{ID: "003", Name: "Alvim Borettslag", BillingStreet: "Alvimveien 2", BillingPostalCode: "1722"},
			},
		},
	}
	m := New(search, fastConfig())

	f := model.Facility{ID: "f2", Name: "Alvim Borettslag - all", Country: model.CountryNorway}
	res := m.Match(context.Background(), f)

	require.NotNil(t, res.Account)
	assert.Equal(t, TierNormalized, res.Tier)
	assert.Equal(t, "003", res.Account.ID)
	assert.Greater(t, res.Confidence, 0.65)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestMatch_TokenTierStopsAtSmallResultSet(t *testing.T) {
	bulk := make([]crm.Account, 3)
	for i := range bulk {
		bulk[i] = crm.Account{ID: "bulk", Name: "Solsiden Noe Annet", BillingStreet: "Gate 1"}
	}
	search := &fakeSearcher{
		contains: map[string][]crm.Account{
			"solsiden": bulk,
			"hageby": {
				{ID: "004", Name: "Solsiden Hageby Borettslag", BillingStreet: "Hagebyveien 10"},
			},
		},
	}
	cfg := fastConfig()
	cfg.TokenResultCutoff = 3
	m := New(search, cfg)

	f := model.Facility{ID: "f3", Name: "Solsiden Hageby Vest", Country: model.CountryNorway}
	res := m.Match(context.Background(), f)

	require.NotNil(t, res.Account)
	assert.Equal(t, TierToken, res.Tier)
	assert.Equal(t, "004", res.Account.ID)
	assert.Greater(t, res.Confidence, 0.55)

	// "solsiden" returned a full page, so the next token was tried and its
	// smaller result set used.
	assert.Equal(t, []string{"solsiden", "hageby"}, search.containsCalls)
}

func TestMatch_TierErrorIsNotFatal(t *testing.T) {
	search := &fakeSearcher{
		exactErr: eris.New("crm: query: 503"),
		contains: map[string][]crm.Account{
			"alvim": {
				{ID: "005", Name: "Alvim Borettslag", BillingStreet: "Alvimveien 2"},
			},
		},
	}
	m := New(search, fastConfig())

	f := model.Facility{ID: "f4", Name: "Alvim Borettslag - all", Country: model.CountryNorway}
	res := m.Match(context.Background(), f)

	require.NotNil(t, res.Account, "later tiers must still run after a tier error")
	assert.Equal(t, TierNormalized, res.Tier)
	assert.Equal(t, 1, res.ProviderErrors)
}

func TestMatch_NoMatch(t *testing.T) {
	m := New(&fakeSearcher{}, fastConfig())

	res := m.Match(context.Background(), model.Facility{Name: "Helt Ukjent Navn", Country: model.CountryNorway})
	assert.Nil(t, res.Account)
	assert.Equal(t, TierNone, res.Tier)
	assert.Equal(t, 0.0, res.Confidence)
}
