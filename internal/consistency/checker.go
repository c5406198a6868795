// Package consistency cross-checks values that appear in more than one
// table. Statistical annexes repeat headline series across tables, and
// revisions that touch one table but not another leave contradictions
// this check surfaces.
package consistency

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/mapicassistant-coder/factmesh/internal/match"
	"github.com/mapicassistant-coder/factmesh/internal/model"
	"github.com/mapicassistant-coder/factmesh/internal/numeric"
)

// Checker compares same-named rows across tables year by year
type Checker struct {
	tolerance float64
}

// NewChecker returns a checker using the given absolute tolerance.
func NewChecker(tolerance float64) *Checker {
	return &Checker{tolerance: tolerance}
}

type rowEntry struct {
	tableID string
	row     model.Row
}

// Check groups rows by normalized label across all tables and compares
// one value per table for every year the group covers. A group is
// consistent for a year when every pairwise difference stays within
// tolerance. Results follow first-appearance order of the row name,
// years ascending, so output is deterministic.
func (c *Checker) Check(tables *model.TableSet) []model.CrossTableResult {
	index := make(map[string][]rowEntry)
	var order []string
	for _, t := range tables.All() {
		for _, row := range t.Rows {
			if len(row.Cells) == 0 {
				continue
			}
			norm := normalizeRowName(row.Label)
			if norm == "" {
				continue
			}
			if _, ok := index[norm]; !ok {
				order = append(order, norm)
			}
			index[norm] = append(index[norm], rowEntry{tableID: t.ID, row: row})
		}
	}

	var results []model.CrossTableResult
	for _, norm := range order {
		entries := index[norm]
		if distinctTables(entries) < 2 {
			continue
		}

		for _, year := range entryYears(entries) {
			values := valuesForYear(entries, year)
			if len(values) < 2 {
				continue
			}

			var nums []float64
			for _, v := range values {
				if n, ok := numeric.Parse(v.Value); ok {
					nums = append(nums, n)
				}
			}
			if len(nums) < 2 {
				continue
			}

			minV, maxV := nums[0], nums[0]
			for _, n := range nums[1:] {
				if n < minV {
					minV = n
				}
				if n > maxV {
					maxV = n
				}
			}

			status := model.StatusConsistent
			var detail string
			if maxV-minV > c.tolerance {
				status = model.StatusInconsistent
				parts := make([]string, len(values))
				for i, v := range values {
					parts[i] = fmt.Sprintf("%s (%s)", v.Value, v.TableID)
				}
				detail = fmt.Sprintf("%s (%s): %s", norm, year, strings.Join(parts, " vs "))
			} else {
				detail = fmt.Sprintf("%s (%s): %s across %d tables", norm, year, values[0].Value, len(values))
			}

			results = append(results, model.CrossTableResult{
				Variable: norm,
				Year:     year,
				Entries:  values,
				Status:   status,
				Detail:   detail,
			})
		}
	}
	return results
}

// valuesForYear takes exactly one value per table: the first row
// listed for that table whose cells cover the year, reading the year
// column the way claim verification does (bare year column first).
func valuesForYear(entries []rowEntry, year string) []model.CrossTableEntry {
	seen := make(map[string]bool)
	var values []model.CrossTableEntry
	for _, e := range entries {
		if seen[e.tableID] {
			continue
		}
		cells := match.CellsForYear(e.row, year)
		if len(cells) == 0 {
			continue
		}
		seen[e.tableID] = true
		values = append(values, model.CrossTableEntry{
			TableID: e.tableID,
			Row:     e.row.Label,
			Column:  cells[0].Column,
			Value:   cells[0].Value,
		})
	}
	return values
}

func distinctTables(entries []rowEntry) int {
	seen := make(map[string]bool)
	for _, e := range entries {
		seen[e.tableID] = true
	}
	return len(seen)
}

// entryYears returns every year any entry's columns resolve to, in
// ascending order.
func entryYears(entries []rowEntry) []string {
	set := make(map[string]bool)
	for _, e := range entries {
		for _, cell := range e.row.Cells {
			if y, ok := match.Year(cell.Column); ok {
				set[y] = true
			}
		}
	}
	years := make([]string, 0, len(set))
	for y := range set {
		years = append(years, y)
	}
	sort.Strings(years)
	return years
}

var (
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// normalizeRowName reduces a row label to a comparable form: lowercase,
// footnote markers and parentheticals removed, whitespace collapsed.
// Names shorter than three characters are too generic to compare and
// normalize to "".
func normalizeRowName(label string) string {
	s := strings.TrimSpace(strings.ToLower(label))
	for _, suffix := range []string{" 1/", " 2/", " 3/", " 4/", " 5/"} {
		s = strings.ReplaceAll(s, suffix, "")
	}
	s = strings.TrimSpace(parenthetical.ReplaceAllString(s, ""))
	s = whitespaceRun.ReplaceAllString(s, " ")
	if len(s) < 3 {
		return ""
	}
	return s
}
