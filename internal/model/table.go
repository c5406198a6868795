package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Table is one extracted statistical table. Row and cell order follow
// the source document, not lexical order: downstream search scans rows
// top to bottom and columns left to right, and ties are broken by
// position.
type Table struct {
	ID      string   // table_id, or the file stem when the payload omits it
	Title   string   // Human-readable caption
	Page    int      // Page number in the source document, 0 when absent
	Columns []string // Declared column labels
	Units   string   // Units note as printed in the source
	Rows    []Row    // Data rows in source order
}

// Row is a labeled table row with its cells in source column order
type Row struct {
	Label string
	Cells []Cell
}

// Cell is a single (column, value) pair. Values stay raw strings; the
// numeric package decides what parses.
type Cell struct {
	Column string
	Value  string
}

// Cell returns the raw value under the given column label.
func (r Row) Cell(column string) (string, bool) {
	for _, c := range r.Cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return "", false
}

// tableEnvelope carries the scalar fields; the data object needs a
// hand-rolled decode to keep key order.
type tableEnvelope struct {
	ID      string          `json:"table_id"`
	Title   string          `json:"table_title"`
	Page    json.Number     `json:"page_num"`
	Columns []string        `json:"columns"`
	Units   string          `json:"units"`
	Data    json.RawMessage `json:"data"`
}

// UnmarshalJSON decodes a table payload preserving the order in which
// rows and columns appear in the JSON text.
func (t *Table) UnmarshalJSON(b []byte) error {
	var env tableEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	t.ID = env.ID
	t.Title = env.Title
	t.Columns = env.Columns
	t.Units = env.Units
	if env.Page != "" {
		if p, err := strconv.Atoi(env.Page.String()); err == nil {
			t.Page = p
		}
	}
	rows, err := decodeRows(env.Data)
	if err != nil {
		return fmt.Errorf("table %q: %w", t.ID, err)
	}
	t.Rows = rows
	return nil
}

// decodeRows walks the data object token by token. encoding/json maps
// would shuffle keys, so this is the one place we drop to the decoder.
func decodeRows(raw json.RawMessage) ([]Row, error) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("data is not a JSON object")
	}

	var rows []Row
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		label, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected row key token %v", keyTok)
		}
		cells, err := decodeCells(dec)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", label, err)
		}
		rows = append(rows, Row{Label: label, Cells: cells})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rows, nil
}

// decodeCells reads one row value. Non-object values (stray scalars or
// arrays in sloppy extractions) yield a row with no cells rather than
// an error.
func decodeCells(dec *json.Decoder) ([]Cell, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil, nil // scalar row value, already consumed
	}
	if d != '{' {
		return nil, skipValue(dec, d)
	}

	var cells []Cell
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		column, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected column key token %v", keyTok)
		}
		valTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		if d, ok := valTok.(json.Delim); ok {
			// Nested structure where a scalar belongs; skip it.
			if err := skipValue(dec, d); err != nil {
				return nil, err
			}
			continue
		}
		cells = append(cells, Cell{Column: column, Value: cellString(valTok)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return cells, nil
}

// skipValue consumes the remainder of a composite value whose opening
// delimiter has already been read.
func skipValue(dec *json.Decoder, open json.Delim) error {
	if open != '{' && open != '[' {
		return nil
	}
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// cellString renders a decoded scalar the way it appeared in the
// source: numbers keep their literal form via json.Number.
func cellString(tok json.Token) string {
	switch v := tok.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TableSet is an ordered collection of tables with id lookup. Order is
// insertion order, which the loader makes lexicographic by filename.
type TableSet struct {
	tables []*Table
	byID   map[string]int
}

// NewTableSet returns an empty set.
func NewTableSet() *TableSet {
	return &TableSet{byID: make(map[string]int)}
}

// Add inserts a table, replacing any previous table with the same id
// in place.
func (s *TableSet) Add(t *Table) {
	if i, ok := s.byID[t.ID]; ok {
		s.tables[i] = t
		return
	}
	s.byID[t.ID] = len(s.tables)
	s.tables = append(s.tables, t)
}

// Get returns the table with the given id.
func (s *TableSet) Get(id string) (*Table, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.tables[i], true
}

// All returns the tables in insertion order. Callers must not mutate
// the returned slice.
func (s *TableSet) All() []*Table {
	return s.tables
}

// Len returns the number of tables in the set.
func (s *TableSet) Len() int {
	return len(s.tables)
}

// OrderedFrom returns the tables with the named table first (when
// present) and the rest in set order. Used to honor a claim's likely
// table hint during search.
func (s *TableSet) OrderedFrom(first string) []*Table {
	i, ok := s.byID[first]
	if !ok {
		return s.tables
	}
	out := make([]*Table, 0, len(s.tables))
	out = append(out, s.tables[i])
	for j, t := range s.tables {
		if j != i {
			out = append(out, t)
		}
	}
	return out
}
