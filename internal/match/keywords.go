// Package match locates the table cells that back claimed values:
// keyword families connect variable identifiers to row labels, year
// extraction connects mention years to column labels, and the cell
// resolver runs the layered search over both.
package match

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Family groups the row-label phrases for one economic variable family
type Family struct {
	Family  string   `yaml:"family"`
	Phrases []string `yaml:"phrases"`
}

type keywordFile struct {
	Families []Family `yaml:"families"`
}

// Index resolves variable identifiers to row-label search phrases.
// Families are consulted in file order and the first hit wins, so
// curation order is part of the data.
type Index struct {
	families []Family
}

var tokenSplit = regexp.MustCompile(`[_\s]+`)

// NewIndex returns the index built from the embedded keyword table.
func NewIndex() *Index {
	ix, err := ParseIndex(defaultKeywords)
	if err != nil {
		// The embedded table ships with the binary; failing to parse
		// it is a build defect, not a runtime condition.
		panic(fmt.Sprintf("match: embedded keyword table invalid: %v", err))
	}
	return ix
}

// ParseIndex builds an index from YAML keyword data.
func ParseIndex(data []byte) (*Index, error) {
	var f keywordFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}
	if len(f.Families) == 0 {
		return nil, fmt.Errorf("keyword table defines no families")
	}
	return &Index{families: f.Families}, nil
}

// LoadIndex reads a keyword table from a YAML file, letting deployments
// swap the curated families without rebuilding.
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyword table: %w", err)
	}
	ix, err := ParseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("keyword table %s: %w", path, err)
	}
	return ix, nil
}

// KeywordsFor returns the search phrases for a variable identifier.
// The identifier is lowercased with underscores treated as spaces; the
// first family whose name or phrases occur in it supplies the phrases.
// Unknown variables fall back to their own tokens longer than two
// characters, which keeps noise words like "of" and "in" out of row
// matching. The result may be empty.
func (ix *Index) KeywordsFor(variable string) []string {
	norm := strings.ToLower(strings.ReplaceAll(variable, "_", " "))
	for _, f := range ix.families {
		if strings.Contains(norm, strings.ReplaceAll(f.Family, "_", " ")) {
			return f.Phrases
		}
		for _, p := range f.Phrases {
			if strings.Contains(norm, p) {
				return f.Phrases
			}
		}
	}

	var out []string
	for _, w := range tokenSplit.Split(norm, -1) {
		if len(w) > 2 {
			out = append(out, w)
		}
	}
	return out
}

// Families returns the number of curated families, mostly for
// diagnostics.
func (ix *Index) Families() int {
	return len(ix.families)
}
