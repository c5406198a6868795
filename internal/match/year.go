package match

import (
	"regexp"

	"github.com/mapicassistant-coder/factmesh/internal/model"
)

// Column labels carry year qualifiers as suffixes: "2023_Proj.",
// "2024 Est.", "2023Q4". The leading four digits are the year.
var leadingYear = regexp.MustCompile(`^\d{4}`)

// Year returns the four-digit year a column label starts with.
func Year(column string) (string, bool) {
	y := leadingYear.FindString(column)
	return y, y != ""
}

// CellsForYear returns the row's cells under columns resolving to the
// given year. A column labeled with the bare year is authoritative and
// comes first; qualified variants follow in source order. An empty
// year yields nothing.
func CellsForYear(row model.Row, year string) []model.Cell {
	if year == "" {
		return nil
	}
	var out []model.Cell
	for _, c := range row.Cells {
		if c.Column == year {
			out = append(out, c)
		}
	}
	for _, c := range row.Cells {
		if c.Column == year {
			continue
		}
		if y, ok := Year(c.Column); ok && y == year {
			out = append(out, c)
		}
	}
	return out
}
