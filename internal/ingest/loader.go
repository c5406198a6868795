// Package ingest loads upstream extraction output: the claims file
// and the table directory produced by the PDF extraction stage.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mapicassistant-coder/factmesh/internal/model"
)

const (
	// ClaimsFile is the claims filename expected inside an input dir.
	ClaimsFile = "narrative_claims.json"
	// TablesDir is the table directory name inside an input dir.
	TablesDir = "tables"
)

// Input bundles everything loaded from one extraction directory
type Input struct {
	Claims []model.Claim
	Tables *model.TableSet
}

// LoadInput reads <dir>/narrative_claims.json and <dir>/tables/*.json.
// Both are primary inputs: a missing or malformed claims file and a
// missing tables directory are errors. An existing but empty tables
// directory is fine; it just makes every numeric claim unverifiable.
func LoadInput(dir string) (*Input, error) {
	claims, err := LoadClaims(filepath.Join(dir, ClaimsFile))
	if err != nil {
		return nil, err
	}
	tables, err := LoadTables(filepath.Join(dir, TablesDir))
	if err != nil {
		return nil, err
	}
	return &Input{Claims: claims, Tables: tables}, nil
}

// LoadClaims reads the claims array and assigns each claim its
// positional id ("claim_0", "claim_1", ...), the ids the rest of the
// pipeline and the graph artifact use.
func LoadClaims(path string) ([]model.Claim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	var claims []model.Claim
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("parse claims %s: %w", path, err)
	}
	for i := range claims {
		claims[i].ID = fmt.Sprintf("claim_%d", i)
	}
	return claims, nil
}

// LoadTables reads every *.json file under dir in lexicographic
// order, which fixes table order for search and reporting. The
// directory must exist. A table payload without a table_id gets the
// file stem.
func LoadTables(dir string) (*model.TableSet, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("tables directory: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}
	sort.Strings(files)

	set := model.NewTableSet()
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read table %s: %w", f, err)
		}
		var t model.Table
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parse table %s: %w", f, err)
		}
		if t.ID == "" {
			t.ID = strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		}
		set.Add(&t)
	}
	return set, nil
}
