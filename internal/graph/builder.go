// Package graph assembles the verification graph: claims, tables,
// variables and cells as nodes, typed edges between them, and the
// verification verdicts that connect narrative to data.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mapicassistant-coder/factmesh/internal/consistency"
	"github.com/mapicassistant-coder/factmesh/internal/match"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/numeric"
	"github.com/mapicassistant-coder/factmesh/internal/resolver"
)

const (
	maxClaimLabel = 120
	maxCellID     = 80
)

// Builder runs verification for a loaded report and produces the
// graph artifact. The build is single-writer: one goroutine owns the
// graph until Build returns, after which the artifact is read-only.
type Builder struct {
	cells     *match.CellResolver
	checker   *consistency.Checker
	alternate resolver.Resolver // nil means deterministic-only
	tolerance float64
	log       zerolog.Logger
}

// NewBuilder wires a builder from the configuration. alternate may be
// nil to run purely deterministic verification.
func NewBuilder(cfg *model.Config, keywords *match.Index, alternate resolver.Resolver, log zerolog.Logger) *Builder {
	return &Builder{
		cells:     match.NewCellResolver(keywords, cfg.Tolerance),
		checker:   consistency.NewChecker(cfg.Tolerance),
		alternate: alternate,
		tolerance: cfg.Tolerance,
		log:       log.With().Str("component", "graph").Logger(),
	}
}

// Build verifies every claim against the tables and returns the
// finished graph. The alternate resolver, when configured, is
// consulted first for each value; NOT_FOUND verdicts and resolver
// failures fall through to deterministic search, so a broken resolver
// degrades accuracy, never availability.
func (b *Builder) Build(ctx context.Context, claims []model.Claim, tables *model.TableSet) *model.Graph {
	g := model.NewGraph()
	g.TotalClaims = len(claims)
	g.TotalTables = tables.Len()

	for _, t := range tables.All() {
		label := t.Title
		if label == "" {
			label = t.ID
		}
		g.AddNode(model.Node{
			ID:    t.ID,
			Type:  model.NodeTable,
			Label: label,
			Metadata: map[string]any{
				"page":    t.Page,
				"columns": t.Columns,
				"units":   t.Units,
			},
		})
	}

	var resolutions []resolver.ClaimResolution
	if b.alternate != nil {
		var err error
		resolutions, err = b.alternate.Resolve(ctx, claims, tables)
		if err != nil {
			b.log.Warn().Err(err).Msg("alternate resolution incomplete, deterministic search continues")
		}
	}

	for _, claim := range claims {
		b.processClaim(g, claim, tables, resolutions)
	}

	g.CrossTableChecks = b.checker.Check(tables)
	inconsistent := 0
	for _, c := range g.CrossTableChecks {
		if c.Status == model.StatusInconsistent {
			inconsistent++
		}
	}
	b.log.Info().
		Int("checks", len(g.CrossTableChecks)).
		Int("inconsistent", inconsistent).
		Msg("cross-table consistency checked")

	return g
}

func (b *Builder) processClaim(g *model.Graph, claim model.Claim, tables *model.TableSet, resolutions []resolver.ClaimResolution) {
	g.AddNode(model.Node{
		ID:    claim.ID,
		Type:  model.NodeClaim,
		Label: truncate(claim.Text, maxClaimLabel),
		Metadata: map[string]any{
			"full_text":    claim.Text,
			"page":         claim.Page,
			"likely_table": claim.Table,
			"variables":    claim.Variables,
		},
	})

	if hint := claim.TableHint(); hint != "" {
		if _, ok := tables.Get(hint); ok {
			g.AddEdge(model.Edge{Source: claim.ID, Target: hint, Type: model.EdgeReferences})
		}
	}

	if len(claim.Values) == 0 {
		g.AddVerification(model.VerificationResult{
			ClaimID: claim.ID,
			Status:  model.StatusQualitative,
			Detail:  "No numeric values to verify",
			Method:  model.MethodDeterministic,
		})
		return
	}

	resolution, resolved := resolver.ForClaim(resolutions, claim.ID)

	for _, mention := range claim.Values {
		if !mention.Numeric() {
			continue
		}

		varID := "var_" + mention.Variable
		g.AddNode(model.Node{ID: varID, Type: model.NodeVariable, Label: mention.Variable})
		g.AddEdge(model.Edge{
			Source:   claim.ID,
			Target:   varID,
			Type:     model.EdgeMentionsVariable,
			Metadata: map[string]any{"value": mention.Value, "year": mention.Year},
		})

		if resolved {
			if m, ok := resolver.FindMatch(resolution, mention.Variable, mention.Value); ok && m.Status != resolver.StatusNotFound {
				b.recordResolved(g, claim.ID, m, tables)
				continue
			}
		}

		if b.recordDeterministic(g, claim, mention, tables) {
			continue
		}

		g.AddVerification(model.VerificationResult{
			ClaimID:    claim.ID,
			Status:     model.StatusUnverifiable,
			ClaimValue: mention.Value,
			Variable:   mention.Variable,
			Year:       mention.Year,
			Detail:     fmt.Sprintf("Value %s for %s (%s) not found in any table", mention.Value, mention.Variable, mention.Year),
			Method:     model.MethodDeterministic,
		})
	}
}

// recordResolved turns an alternate resolver verdict into graph state.
// The verification is recorded even when the resolver names a table we
// do not have; cell node and edges require a real table.
func (b *Builder) recordResolved(g *model.Graph, claimID string, m resolver.CellMatch, tables *model.TableSet) {
	if m.TableID != "" {
		if _, ok := tables.Get(m.TableID); ok {
			cellID := cellNodeID(m.TableID, m.RowLabel, m.ColLabel)
			g.AddNode(model.Node{
				ID:    cellID,
				Type:  model.NodeCell,
				Label: fmt.Sprintf("%s / %s = %s", m.RowLabel, m.ColLabel, m.TableValue),
				Metadata: map[string]any{
					"table_id": m.TableID,
					"row":      m.RowLabel,
					"col":      m.ColLabel,
					"value":    m.TableValue,
				},
			})
			g.AddEdge(model.Edge{Source: m.TableID, Target: cellID, Type: model.EdgeContainsCell})
			g.AddEdge(model.Edge{
				Source:   claimID,
				Target:   cellID,
				Type:     model.EdgeVerifiedBy,
				Metadata: map[string]any{"status": string(m.Status), "method": string(model.MethodLLM)},
			})
		}
	}

	status := model.StatusMismatch
	if m.Status == resolver.StatusMatch {
		status = model.StatusMatch
	}
	g.AddVerification(model.VerificationResult{
		ClaimID:    claimID,
		Status:     status,
		ClaimValue: m.ClaimValue,
		TableValue: m.TableValue,
		TableID:    m.TableID,
		Variable:   m.Variable,
		Year:       m.Year,
		Detail:     "LLM: " + m.Rationale,
		Method:     model.MethodLLM,
	})
}

// recordDeterministic searches the tables, likely table first, and
// records the first cell hit. It reports whether anything was found.
func (b *Builder) recordDeterministic(g *model.Graph, claim model.Claim, mention model.ValueMention, tables *model.TableSet) bool {
	for _, t := range tables.OrderedFrom(claim.TableHint()) {
		ref, ok := b.cells.Resolve(t, mention.Variable, mention.YearHint(), mention.Value)
		if !ok {
			continue
		}

		cellID := cellNodeID(t.ID, ref.Row, ref.Column)
		g.AddNode(model.Node{
			ID:    cellID,
			Type:  model.NodeCell,
			Label: fmt.Sprintf("%s / %s = %s", ref.Row, ref.Column, ref.Value),
			Metadata: map[string]any{
				"table_id": t.ID,
				"row":      ref.Row,
				"col":      ref.Column,
				"value":    ref.Value,
			},
		})
		g.AddEdge(model.Edge{Source: t.ID, Target: cellID, Type: model.EdgeContainsCell})

		status := model.StatusMismatch
		if numeric.Match(mention.Value, ref.Value, b.tolerance) {
			status = model.StatusMatch
		}
		g.AddEdge(model.Edge{
			Source:   claim.ID,
			Target:   cellID,
			Type:     model.EdgeVerifiedBy,
			Metadata: map[string]any{"status": string(status)},
		})
		g.AddVerification(model.VerificationResult{
			ClaimID:    claim.ID,
			Status:     status,
			ClaimValue: mention.Value,
			TableValue: ref.Value,
			TableID:    t.ID,
			Variable:   mention.Variable,
			Year:       mention.Year,
			Detail:     fmt.Sprintf("Claim: %s | Table: %s (%s / %s)", mention.Value, ref.Value, ref.Row, ref.Column),
			Method:     model.MethodDeterministic,
		})
		return true
	}
	return false
}

// cellNodeID derives a stable node id for a table cell. Spaces become
// underscores and the id is capped; two claims resolving to the same
// cell share the node.
func cellNodeID(tableID, row, col string) string {
	id := strings.ReplaceAll(fmt.Sprintf("cell_%s_%s_%s", tableID, row, col), " ", "_")
	return truncate(id, maxCellID)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
