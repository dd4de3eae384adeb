package crm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account represents a Salesforce Account holding a housing association's
// registered billing address.
type Account struct {
	ID                string `json:"Id" salesforce:"Id"`
	Name              string `json:"Name" salesforce:"Name"`
	BillingStreet     string `json:"BillingStreet" salesforce:"BillingStreet"`
	BillingCity       string `json:"BillingCity" salesforce:"BillingCity"`
	BillingPostalCode string `json:"BillingPostalCode" salesforce:"BillingPostalCode"`
	BillingCountry    string `json:"BillingCountry" salesforce:"BillingCountry"`
}

// HasAddress reports whether the account carries a usable street address.
func (a *Account) HasAddress() bool {
	return strings.TrimSpace(a.BillingStreet) != ""
}

// accountFields are the SOQL fields selected for Account queries.
var accountFields = []string{
	"Id", "Name", "BillingStreet", "BillingCity", "BillingPostalCode", "BillingCountry",
}

// FindAccountsByName queries for Accounts whose name matches exactly.
func FindAccountsByName(ctx context.Context, c Client, name string, limit int) ([]Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Name = '%s' LIMIT %d",
		strings.Join(accountFields, ", "),
		escapeSoql(name),
		limit,
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("crm: find accounts by name %s", name))
	}
	return accounts, nil
}

// SearchAccountsByNameContains queries for Accounts whose name contains the
// given fragment, bounded by limit.
func SearchAccountsByNameContains(ctx context.Context, c Client, fragment string, limit int) ([]Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Name LIKE '%%%s%%' LIMIT %d",
		strings.Join(accountFields, ", "),
		escapeSoql(fragment),
		limit,
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("crm: search accounts containing %s", fragment))
	}
	return accounts, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}

// Searcher adapts the Client to the matcher's search capability.
type Searcher struct {
	client Client
}

// NewSearcher creates a Searcher over a Client.
func NewSearcher(c Client) *Searcher {
	return &Searcher{client: c}
}

// ExactName returns accounts whose name matches exactly.
func (s *Searcher) ExactName(ctx context.Context, name string, limit int) ([]Account, error) {
	return FindAccountsByName(ctx, s.client, name, limit)
}

// NameContains returns accounts whose name contains the fragment.
func (s *Searcher) NameContains(ctx context.Context, fragment string, limit int) ([]Account, error) {
	return SearchAccountsByNameContains(ctx, s.client, fragment, limit)
}
