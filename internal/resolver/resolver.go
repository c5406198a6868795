// Package resolver matches claim values to table cells through an
// external model. It runs before deterministic search: confident
// verdicts are taken as-is, NOT_FOUND verdicts fall through to the
// keyword-based search so a flaky model never loses a claim.
package resolver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mapicassistant-coder/factmesh/internal/cache"
	"github.com/mapicassistant-coder/factmesh/internal/model"
)

// MatchStatus is the resolver's verdict on one value mention
type MatchStatus string

const (
	StatusMatch    MatchStatus = "MATCH"
	StatusMismatch MatchStatus = "MISMATCH"
	StatusNotFound MatchStatus = "NOT_FOUND"
)

// CellMatch is the resolver's answer for a single value mention. Table
// fields are empty for NOT_FOUND verdicts.
type CellMatch struct {
	Variable   string      `json:"variable"`
	ClaimValue string      `json:"claim_value"`
	Year       string      `json:"year"`
	TableID    string      `json:"table_id"`
	RowLabel   string      `json:"row_label"`
	ColLabel   string      `json:"col_label"`
	TableValue string      `json:"table_value"`
	Status     MatchStatus `json:"match_status"`
	Rationale  string      `json:"rationale"`
}

// ClaimResolution collects the resolver's matches for one claim
type ClaimResolution struct {
	ClaimID string      `json:"claim_id"`
	Matches []CellMatch `json:"matches"`
}

// Resolver resolves claim values against the table set. Resolutions
// may be partial when the context is cancelled mid-run; the returned
// slice is valid either way.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, claims []model.Claim, tables *model.TableSet) ([]ClaimResolution, error)
}

// New builds the resolver named by the configuration. An empty
// provider selects deterministic-only operation and returns nil
// without error.
func New(cfg *model.Config, store cache.Cache, log zerolog.Logger) (Resolver, error) {
	switch cfg.Resolver.Provider {
	case "":
		return nil, nil
	case "openai":
		return NewOpenAIResolver(cfg, store, log)
	default:
		return nil, fmt.Errorf("unknown resolver provider: %s (supported: openai)", cfg.Resolver.Provider)
	}
}

// ForClaim returns the resolution recorded for the given claim id.
func ForClaim(resolutions []ClaimResolution, claimID string) (ClaimResolution, bool) {
	for _, r := range resolutions {
		if r.ClaimID == claimID {
			return r, true
		}
	}
	return ClaimResolution{}, false
}

// FindMatch picks the resolver's answer for one value mention: an
// exact (variable, value) pair first, then a value-only fallback for
// responses that renamed the variable.
func FindMatch(r ClaimResolution, variable, value string) (CellMatch, bool) {
	for _, m := range r.Matches {
		if m.Variable == variable && m.ClaimValue == value {
			return m, true
		}
	}
	for _, m := range r.Matches {
		if m.ClaimValue == value {
			return m, true
		}
	}
	return CellMatch{}, false
}
