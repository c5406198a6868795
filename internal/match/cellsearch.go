package match

import (
	"strings"

	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/numeric"
)

// CellRef locates a table cell that matched a claimed value
type CellRef struct {
	Value  string // Raw cell value as extracted
	Row    string // Row label
	Column string // Column label
}

// CellResolver finds the cell backing a claimed value inside one
// table. The search is layered: rows whose labels look like the
// variable are tried first, each row's year-scoped columns before its
// other columns, and only then does it widen to every row under the
// claimed year. Scans follow source order, so the first hit is the
// topmost, leftmost candidate.
type CellResolver struct {
	keywords  *Index
	tolerance float64
}

// NewCellResolver returns a resolver using the given keyword index and
// absolute value tolerance.
func NewCellResolver(keywords *Index, tolerance float64) *CellResolver {
	return &CellResolver{keywords: keywords, tolerance: tolerance}
}

// Resolve searches the table for a cell whose value matches the target
// within tolerance. year may be empty when the claim gave none; then
// only unscoped passes run. A false result means nothing in this
// table matched.
func (r *CellResolver) Resolve(t *model.Table, variable, year, target string) (CellRef, bool) {
	keywords := r.keywords.KeywordsFor(variable)

	// Pass 1: keyword-relevant rows. Each row is exhausted before the
	// next: the claimed year's columns first, then every column, so a
	// claim carrying the wrong year still resolves against its row.
	for _, row := range t.Rows {
		if !rowRelevant(row.Label, keywords) {
			continue
		}
		for _, c := range CellsForYear(row, year) {
			if numeric.Match(target, c.Value, r.tolerance) {
				return CellRef{Value: c.Value, Row: row.Label, Column: c.Column}, true
			}
		}
		for _, c := range row.Cells {
			if numeric.Match(target, c.Value, r.tolerance) {
				return CellRef{Value: c.Value, Row: row.Label, Column: c.Column}, true
			}
		}
	}

	// Pass 2: any row, columns under the claimed year only. Without a
	// year this would match any numerically close cell anywhere, which
	// is noise, so the pass is skipped.
	if year != "" {
		for _, row := range t.Rows {
			for _, c := range CellsForYear(row, year) {
				if numeric.Match(target, c.Value, r.tolerance) {
					return CellRef{Value: c.Value, Row: row.Label, Column: c.Column}, true
				}
			}
		}
	}

	return CellRef{}, false
}

// rowRelevant reports whether the row label contains any keyword. No
// keywords means no relevant rows.
func rowRelevant(label string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(label)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
