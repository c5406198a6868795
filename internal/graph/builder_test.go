package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mapicassistant-coder/factmesh/internal/match"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/resolver"
)

// stubResolver returns canned resolutions for alternate-path tests
type stubResolver struct {
	resolutions []resolver.ClaimResolution
	err         error
	calls       int
}

func (s *stubResolver) Name() string { return "stub" }

func (s *stubResolver) Resolve(ctx context.Context, claims []model.Claim, tables *model.TableSet) ([]resolver.ClaimResolution, error) {
	s.calls++
	return s.resolutions, s.err
}

func testTables() *model.TableSet {
	s := model.NewTableSet()
	s.Add(&model.Table{
		ID:    "Table_1_p15",
		Title: "Selected Economic Indicators",
		Page:  15,
		Rows: []model.Row{
			{Label: "Real GDP growth", Cells: []model.Cell{
				{Column: "2022", Value: "4.1"},
				{Column: "2023", Value: "3.15"},
			}},
			{Label: "Inflation (average)", Cells: []model.Cell{
				{Column: "2023", Value: "6.1"},
			}},
		},
	})
	s.Add(&model.Table{
		ID:    "Table_2_p18",
		Title: "National Accounts",
		Page:  18,
		Rows: []model.Row{
			{Label: "Real GDP growth", Cells: []model.Cell{
				{Column: "2023", Value: "3.2"},
			}},
		},
	})
	return s
}

func newTestBuilder(alt resolver.Resolver) *Builder {
	return NewBuilder(model.DefaultConfig(), match.NewIndex(), alt, zerolog.Nop())
}

func edgesOfType(g *model.Graph, t model.EdgeType) []model.Edge {
	var out []model.Edge
	for _, e := range g.Edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func nodesOfType(g *model.Graph, t model.NodeType) []model.Node {
	var out []model.Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func TestBuilder_DeterministicMatch(t *testing.T) {
	b := newTestBuilder(nil)
	claims := []model.Claim{{
		ID:    "claim_0",
		Text:  "Real GDP grew by 3.2 percent in 2023.",
		Table: "Table_1_p15",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	if len(g.Verifications) != 1 {
		t.Fatalf("expected 1 verification, got %d", len(g.Verifications))
	}
	v := g.Verifications[0]
	if v.Status != model.StatusMatch {
		t.Errorf("expected MATCH, got %s (%s)", v.Status, v.Detail)
	}
	if v.TableValue != "3.15" || v.TableID != "Table_1_p15" {
		t.Errorf("expected 3.15 from likely table, got %q in %q", v.TableValue, v.TableID)
	}
	if v.Method != model.MethodDeterministic {
		t.Errorf("expected deterministic method, got %s", v.Method)
	}

	if refs := edgesOfType(g, model.EdgeReferences); len(refs) != 1 || refs[0].Target != "Table_1_p15" {
		t.Errorf("expected one references edge to the likely table, got %+v", refs)
	}
	if cells := nodesOfType(g, model.NodeCell); len(cells) != 1 {
		t.Errorf("expected one cell node, got %d", len(cells))
	}
	if mv := edgesOfType(g, model.EdgeMentionsVariable); len(mv) != 1 || mv[0].Target != "var_real_gdp_growth" {
		t.Errorf("expected mentions_variable edge, got %+v", mv)
	}
}

func TestBuilder_LikelyTableSearchedFirst(t *testing.T) {
	b := newTestBuilder(nil)
	// Both tables hold a matching value; the hint decides which wins.
	claims := []model.Claim{{
		ID:    "claim_0",
		Text:  "Growth was 3.2 percent.",
		Table: "Table_2_p18",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())
	if g.Verifications[0].TableID != "Table_2_p18" {
		t.Errorf("expected likely table to win, got %s", g.Verifications[0].TableID)
	}
}

func TestBuilder_QualitativeClaim(t *testing.T) {
	b := newTestBuilder(nil)
	claims := []model.Claim{{
		ID:   "claim_0",
		Text: "The authorities remain committed to reform.",
	}}

	g := b.Build(context.Background(), claims, testTables())

	if len(g.Verifications) != 1 {
		t.Fatalf("expected exactly 1 verification, got %d", len(g.Verifications))
	}
	v := g.Verifications[0]
	if v.Status != model.StatusQualitative {
		t.Errorf("expected QUALITATIVE, got %s", v.Status)
	}
	if v.Detail != "No numeric values to verify" {
		t.Errorf("unexpected detail %q", v.Detail)
	}
	if vars := nodesOfType(g, model.NodeVariable); len(vars) != 0 {
		t.Errorf("qualitative claims add no variable nodes, got %d", len(vars))
	}
	if cells := nodesOfType(g, model.NodeCell); len(cells) != 0 {
		t.Errorf("qualitative claims add no cell nodes, got %d", len(cells))
	}
}

func TestBuilder_UnknownValueMentionSkipped(t *testing.T) {
	b := newTestBuilder(nil)
	claims := []model.Claim{{
		ID:   "claim_0",
		Text: "Growth reached 3.2 percent while inflation eased.",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
			{Variable: "inflation_average", Value: model.Unknown, Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	// The unknown-value mention yields neither a verification nor a
	// variable node.
	if len(g.Verifications) != 1 {
		t.Fatalf("expected 1 verification, got %d", len(g.Verifications))
	}
	if _, ok := g.Node("var_inflation_average"); ok {
		t.Error("unknown-value mention should not add a variable node")
	}
}

func TestBuilder_Unverifiable(t *testing.T) {
	b := newTestBuilder(nil)
	claims := []model.Claim{{
		ID:   "claim_0",
		Text: "Remittances rose to 9.9 percent of GDP.",
		Values: []model.ValueMention{
			{Variable: "remittances", Value: "9.9", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	v := g.Verifications[0]
	if v.Status != model.StatusUnverifiable {
		t.Fatalf("expected UNVERIFIABLE, got %s", v.Status)
	}
	if !strings.Contains(v.Detail, "9.9 for remittances (2023)") {
		t.Errorf("unexpected detail %q", v.Detail)
	}
	if cells := nodesOfType(g, model.NodeCell); len(cells) != 0 {
		t.Errorf("unverifiable mention should add no cell nodes, got %d", len(cells))
	}
}

func TestBuilder_SharedCellSingleNode(t *testing.T) {
	b := newTestBuilder(nil)
	mention := model.ValueMention{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"}
	claims := []model.Claim{
		{ID: "claim_0", Text: "Growth was 3.2 percent.", Table: "Table_1_p15", Values: []model.ValueMention{mention}},
		{ID: "claim_1", Text: "GDP expanded by 3.2 percent.", Table: "Table_1_p15", Values: []model.ValueMention{mention}},
	}

	g := b.Build(context.Background(), claims, testTables())

	if cells := nodesOfType(g, model.NodeCell); len(cells) != 1 {
		t.Errorf("two claims on one cell should share the node, got %d", len(cells))
	}
	if verified := edgesOfType(g, model.EdgeVerifiedBy); len(verified) != 2 {
		t.Errorf("each claim keeps its own verified_by edge, got %d", len(verified))
	}
	if vars := nodesOfType(g, model.NodeVariable); len(vars) != 1 {
		t.Errorf("shared variable should have one node, got %d", len(vars))
	}
}

func TestBuilder_AlternateResolverWins(t *testing.T) {
	alt := &stubResolver{resolutions: []resolver.ClaimResolution{{
		ClaimID: "claim_0",
		Matches: []resolver.CellMatch{{
			Variable:   "real_gdp_growth",
			ClaimValue: "3.2",
			Year:       "2023",
			TableID:    "Table_2_p18",
			RowLabel:   "Real GDP growth",
			ColLabel:   "2023",
			TableValue: "3.2",
			Status:     resolver.StatusMatch,
			Rationale:  "exact cell in national accounts",
		}},
	}}}
	b := newTestBuilder(alt)

	claims := []model.Claim{{
		ID:    "claim_0",
		Text:  "Growth was 3.2 percent.",
		Table: "Table_1_p15", // deterministic search would hit this one
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	if alt.calls != 1 {
		t.Fatalf("alternate resolver should be consulted once, got %d", alt.calls)
	}
	v := g.Verifications[0]
	if v.Method != model.MethodLLM {
		t.Errorf("expected llm method, got %s", v.Method)
	}
	if v.TableID != "Table_2_p18" {
		t.Errorf("alternate verdict should win over deterministic, got %s", v.TableID)
	}
	if !strings.HasPrefix(v.Detail, "LLM: ") {
		t.Errorf("detail should carry the rationale, got %q", v.Detail)
	}
	if _, ok := g.Node("cell_Table_2_p18_Real_GDP_growth_2023"); !ok {
		t.Error("expected cell node from alternate resolution")
	}
}

func TestBuilder_NotFoundFallsThrough(t *testing.T) {
	alt := &stubResolver{resolutions: []resolver.ClaimResolution{{
		ClaimID: "claim_0",
		Matches: []resolver.CellMatch{{
			Variable:   "real_gdp_growth",
			ClaimValue: "3.2",
			Year:       "2023",
			Status:     resolver.StatusNotFound,
			Rationale:  "not in context",
		}},
	}}}
	b := newTestBuilder(alt)

	claims := []model.Claim{{
		ID:    "claim_0",
		Text:  "Growth was 3.2 percent.",
		Table: "Table_1_p15",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	v := g.Verifications[0]
	if v.Method != model.MethodDeterministic {
		t.Errorf("NOT_FOUND should fall through to deterministic search, got %s", v.Method)
	}
	if v.Status != model.StatusMatch {
		t.Errorf("deterministic search should still find the value, got %s", v.Status)
	}
}

func TestBuilder_ResolverErrorDegradesGracefully(t *testing.T) {
	alt := &stubResolver{err: errors.New("api unreachable")}
	b := newTestBuilder(alt)

	claims := []model.Claim{{
		ID:   "claim_0",
		Text: "Growth was 3.2 percent.",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	if len(g.Verifications) != 1 || g.Verifications[0].Status != model.StatusMatch {
		t.Errorf("resolver failure must not lose claims: %+v", g.Verifications)
	}
}

func TestBuilder_AlternateUnknownTableRecordsVerdictOnly(t *testing.T) {
	alt := &stubResolver{resolutions: []resolver.ClaimResolution{{
		ClaimID: "claim_0",
		Matches: []resolver.CellMatch{{
			Variable:   "real_gdp_growth",
			ClaimValue: "3.2",
			Year:       "2023",
			TableID:    "Table_99_p99", // not in the set
			RowLabel:   "Real GDP growth",
			ColLabel:   "2023",
			TableValue: "3.2",
			Status:     resolver.StatusMatch,
			Rationale:  "imagined",
		}},
	}}}
	b := newTestBuilder(alt)

	claims := []model.Claim{{
		ID:   "claim_0",
		Text: "Growth was 3.2 percent.",
		Values: []model.ValueMention{
			{Variable: "real_gdp_growth", Value: "3.2", Year: "2023"},
		},
	}}

	g := b.Build(context.Background(), claims, testTables())

	if len(g.Verifications) != 1 || g.Verifications[0].TableID != "Table_99_p99" {
		t.Fatalf("verdict should be recorded as given: %+v", g.Verifications)
	}
	if cells := nodesOfType(g, model.NodeCell); len(cells) != 0 {
		t.Errorf("no cell node for a table we do not have, got %d", len(cells))
	}
	if contains := edgesOfType(g, model.EdgeContainsCell); len(contains) != 0 {
		t.Errorf("no contains_cell edge for a table we do not have, got %d", len(contains))
	}
}

func TestBuilder_CrossTableChecksAttached(t *testing.T) {
	b := newTestBuilder(nil)

	g := b.Build(context.Background(), nil, testTables())

	// "Real GDP growth" appears in both tables for 2023: 3.15 vs 3.2.
	if len(g.CrossTableChecks) != 1 {
		t.Fatalf("expected 1 cross-table check, got %d", len(g.CrossTableChecks))
	}
	if g.CrossTableChecks[0].Status != model.StatusConsistent {
		t.Errorf("3.15 vs 3.2 should be consistent, got %s", g.CrossTableChecks[0].Status)
	}
	if g.TotalTables != 2 || g.TotalClaims != 0 {
		t.Errorf("unexpected totals: claims=%d tables=%d", g.TotalClaims, g.TotalTables)
	}
}

func TestCellNodeID(t *testing.T) {
	id := cellNodeID("Table_1_p15", "Real GDP growth", "2023")
	if id != "cell_Table_1_p15_Real_GDP_growth_2023" {
		t.Errorf("unexpected id %q", id)
	}

	long := cellNodeID("Table_1_p15", strings.Repeat("very long row label ", 10), "2023")
	if len([]rune(long)) != 80 {
		t.Errorf("expected id capped at 80 runes, got %d", len([]rune(long)))
	}
}
