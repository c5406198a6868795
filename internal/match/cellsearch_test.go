package match

import (
	"testing"

	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/numeric"
)

func indicatorTable() *model.Table {
	return &model.Table{
		ID:      "Table_1_p15",
		Title:   "Selected Economic Indicators",
		Columns: []string{"2022", "2023", "2024_Proj."},
		Rows: []model.Row{
			{Label: "Real GDP growth", Cells: []model.Cell{
				{Column: "2022", Value: "4.1"},
				{Column: "2023", Value: "3.2"},
				{Column: "2024_Proj.", Value: "3.0"},
			}},
			{Label: "Inflation (average)", Cells: []model.Cell{
				{Column: "2022", Value: "8.5"},
				{Column: "2023", Value: "6.1"},
			}},
			{Label: "Memorandum item: nominal GDP", Cells: []model.Cell{
				{Column: "2022", Value: "1,204.0"},
				{Column: "2023", Value: "1,310.5"},
			}},
		},
	}
}

func TestCellResolver_YearScopedKeywordRow(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	ref, ok := r.Resolve(indicatorTable(), "real_gdp_growth", "2023", "3.2")
	if !ok {
		t.Fatal("expected a match")
	}
	if ref.Row != "Real GDP growth" || ref.Column != "2023" || ref.Value != "3.2" {
		t.Errorf("unexpected ref: %+v", ref)
	}
}

func TestCellResolver_ToleranceAppliesInSearch(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	// Claimed 3.3 against table 3.2: within 0.15
	ref, ok := r.Resolve(indicatorTable(), "real_gdp_growth", "2023", "3.3")
	if !ok || ref.Value != "3.2" {
		t.Fatalf("expected tolerance match on 3.2, got %+v ok=%v", ref, ok)
	}
}

func TestCellResolver_FallsBackToOtherColumns(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	// 4.1 sits under 2022; the claim says 2023. The year scan misses,
	// the same row's remaining columns are tried before any other row.
	ref, ok := r.Resolve(indicatorTable(), "real_gdp_growth", "2023", "4.1")
	if !ok {
		t.Fatal("expected fallback match")
	}
	if ref.Column != "2022" {
		t.Errorf("expected match in 2022 column, got %q", ref.Column)
	}
}

func TestCellResolver_RowOrderBeatsYearScope(t *testing.T) {
	// The value appears in an early keyword row under the wrong year
	// and in a later keyword row under the right year. Rows are
	// exhausted in source order, so the early row wins even though
	// only its off-year column matches.
	tbl := &model.Table{
		ID: "t",
		Rows: []model.Row{
			{Label: "Gross debt of the central government", Cells: []model.Cell{
				{Column: "2022", Value: "55.0"},
			}},
			{Label: "Public debt", Cells: []model.Cell{
				{Column: "2023", Value: "55.0"},
			}},
		},
	}
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	ref, ok := r.Resolve(tbl, "public_debt", "2023", "55.0")
	if !ok {
		t.Fatal("expected a match")
	}
	if ref.Row != "Gross debt of the central government" || ref.Column != "2022" {
		t.Errorf("expected first keyword row to win, got %+v", ref)
	}
}

func TestCellResolver_WidensToAnyRowUnderYear(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	// "nominal_gdp" maps to the gdp family but no row label carries a
	// gdp phrase except the memorandum row; use a variable whose
	// keywords miss every label so only pass 2 can find the value.
	ref, ok := r.Resolve(indicatorTable(), "tourism_receipts", "2023", "1310.5")
	if !ok {
		t.Fatal("expected pass 2 match")
	}
	if ref.Row != "Memorandum item: nominal GDP" || ref.Column != "2023" {
		t.Errorf("unexpected ref: %+v", ref)
	}
}

func TestCellResolver_NoYearSkipsUnscopedWiderPass(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	// Without a year the memorandum row is only reachable through the
	// year-scoped pass, which cannot run.
	if _, ok := r.Resolve(indicatorTable(), "tourism_receipts", "", "1310.5"); ok {
		t.Error("expected no match without a year hint")
	}
}

func TestCellResolver_NoMatch(t *testing.T) {
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	if _, ok := r.Resolve(indicatorTable(), "real_gdp_growth", "2023", "9.9"); ok {
		t.Error("expected no match for a value absent from the table")
	}
}

func TestCellResolver_BareYearColumnPreferred(t *testing.T) {
	tbl := &model.Table{
		ID: "t",
		Rows: []model.Row{
			{Label: "Real GDP growth", Cells: []model.Cell{
				{Column: "2023_Proj.", Value: "3.1"},
				{Column: "2023", Value: "3.2"},
			}},
		},
	}
	r := NewCellResolver(NewIndex(), numeric.DefaultTolerance)

	// Both columns are within tolerance of 3.2; the bare column is
	// authoritative.
	ref, ok := r.Resolve(tbl, "real_gdp_growth", "2023", "3.2")
	if !ok {
		t.Fatal("expected a match")
	}
	if ref.Column != "2023" {
		t.Errorf("expected bare 2023 column, got %q", ref.Column)
	}
}
