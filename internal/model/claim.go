package model

// Unknown is the sentinel used by upstream extraction for fields it
// could not determine (likely table, value, year).
const Unknown = "unknown"

// Claim represents a narrative assertion extracted from a report
type Claim struct {
	ID        string         `json:"id"`                             // Assigned at load time ("claim_0", "claim_1", ...)
	Text      string         `json:"claim_text"`                     // The claim sentence itself
	Page      string         `json:"page_or_section,omitempty"`      // Where the claim appears in the source
	Table     string         `json:"likely_table,omitempty"`         // Table id hint from extraction, or "unknown"
	Variables []string       `json:"variables_referenced,omitempty"` // Variable identifiers the claim touches
	Values    []ValueMention `json:"values_mentioned,omitempty"`     // Numeric values stated in the claim
}

// ValueMention is a single (variable, value, year) triple stated in a claim
type ValueMention struct {
	Variable string `json:"variable"` // Variable identifier (e.g. "real_gdp_growth")
	Value    string `json:"value"`    // Value as written, or "unknown"
	Year     string `json:"year"`     // 4-digit year string, or "unknown"
}

// Numeric reports whether the mention carries a value worth verifying.
func (v ValueMention) Numeric() bool {
	return v.Value != "" && v.Value != Unknown
}

// YearHint returns the mention's year, or "" when the year is unknown.
func (v ValueMention) YearHint() string {
	if v.Year == Unknown {
		return ""
	}
	return v.Year
}

// TableHint returns the claim's likely table id, or "" when unknown.
func (c *Claim) TableHint() string {
	if c.Table == Unknown {
		return ""
	}
	return c.Table
}
