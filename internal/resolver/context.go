package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mapicassistant-coder/factmesh/internal/model"
)

const (
	maxContextCols    = 15 // column labels listed per table header
	maxColsPerRow     = 10 // cells rendered per row
	defaultContextRows = 30
	defaultCoreTables  = 6
)

// contextTables picks the tables a batch gets to see: the set's
// leading tables, which hold the headline series most claims cite,
// plus each batch claim's likely table. Order follows the set so
// prompts are deterministic.
func contextTables(batch []model.Claim, tables *model.TableSet, core int) []*model.Table {
	if core <= 0 {
		core = defaultCoreTables
	}
	include := make(map[string]bool)
	for i, t := range tables.All() {
		if i >= core {
			break
		}
		include[t.ID] = true
	}
	for _, c := range batch {
		if id := c.TableHint(); id != "" {
			if _, ok := tables.Get(id); ok {
				include[id] = true
			}
		}
	}

	var out []*model.Table
	for _, t := range tables.All() {
		if include[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// buildPrompt assembles the user message for one batch.
func buildPrompt(batch []model.Claim, tables []*model.Table, maxRows int) string {
	var b strings.Builder
	b.WriteString("Resolve these claims against the tables below.\n\nCLAIMS:\n")
	b.WriteString(buildClaimsBlock(batch))
	b.WriteString("\nTABLES:\n")
	b.WriteString(buildTableContext(tables, maxRows))
	b.WriteString("\n\nFor each claim, find the exact table cell for each value. Return one resolution per claim.")
	return b.String()
}

func buildClaimsBlock(batch []model.Claim) string {
	var b strings.Builder
	for i, c := range batch {
		if i > 0 {
			b.WriteByte('\n')
		}
		page := c.Page
		if page == "" {
			page = "?"
		}
		likely := c.Table
		if likely == "" {
			likely = model.Unknown
		}
		values, err := json.MarshalIndent(c.Values, "  ", "  ")
		if err != nil {
			values = []byte("[]")
		}
		fmt.Fprintf(&b, "CLAIM %s (page %s, likely_table=%s):\n  Text: %q\n  Values: %s", c.ID, page, likely, c.Text, values)
	}
	return b.String()
}

// buildTableContext renders tables compactly: header with id, page and
// title, the leading column labels, then rows as "col=val" pairs.
// Large tables are truncated with a marker so prompts stay bounded.
func buildTableContext(tables []*model.Table, maxRows int) string {
	if maxRows <= 0 {
		maxRows = defaultContextRows
	}
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		title := t.Title
		if title == "" {
			title = "Untitled"
		}
		page := "?"
		if t.Page > 0 {
			page = fmt.Sprintf("%d", t.Page)
		}
		lines := []string{fmt.Sprintf("### %s (page %s): %s", t.ID, page, title)}

		cols := cellColumns(t)
		if len(cols) == 0 {
			lines = append(lines, "  (empty table)")
			parts = append(parts, strings.Join(lines, "\n"))
			continue
		}

		header := cols
		if len(header) > maxContextCols {
			header = header[:maxContextCols]
		}
		lines = append(lines, "  Columns: "+strings.Join(header, ", "))

		rowCols := cols
		if len(rowCols) > maxColsPerRow {
			rowCols = rowCols[:maxColsPerRow]
		}
		for i, row := range t.Rows {
			if i >= maxRows {
				break
			}
			if len(row.Cells) == 0 {
				continue
			}
			var vals []string
			for _, col := range rowCols {
				if v, ok := row.Cell(col); ok {
					vals = append(vals, fmt.Sprintf("%s=%s", col, v))
				}
			}
			lines = append(lines, fmt.Sprintf("  %s: %s", row.Label, strings.Join(vals, ", ")))
		}
		if len(t.Rows) > maxRows {
			lines = append(lines, fmt.Sprintf("  ... (%d more rows)", len(t.Rows)-maxRows))
		}

		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// cellColumns returns the union of column labels across rows in
// first-appearance order.
func cellColumns(t *model.Table) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range t.Rows {
		for _, c := range row.Cells {
			if !seen[c.Column] {
				seen[c.Column] = true
				cols = append(cols, c.Column)
			}
		}
	}
	return cols
}
