// Package numeric parses the messy value literals found in extracted
// statistical tables and compares them under an absolute tolerance.
package numeric

import (
	"math"
	"strconv"
	"strings"
)

// DefaultTolerance is the absolute tolerance used when comparing a
// claimed value against a table value. Published figures get rounded
// and revised between text and annex, so exact equality is the wrong
// test.
const DefaultTolerance = 0.15

// missingTokens are the placeholders table extractions use for absent
// data. They parse to nothing rather than zero.
var missingTokens = map[string]struct{}{
	"":     {},
	"...":  {},
	"—":    {},
	"n.a.": {},
	"n/a":  {},
}

// Parse interprets a raw table or claim literal as a float. It strips
// thousands separators, percent signs and internal spaces, and reads
// accounting-style parentheses as negation: "(3.2)" parses to -3.2.
// Missing-data placeholders and anything else non-numeric report ok
// as false.
func Parse(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if _, missing := missingTokens[s]; missing {
		return 0, false
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "%", "")
	s = strings.ReplaceAll(s, " ", "")

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Match reports whether both literals parse and agree within the
// absolute tolerance. Either side failing to parse means no match;
// Match never errors on junk input.
func Match(a, b string, tolerance float64) bool {
	x, ok := Parse(a)
	if !ok {
		return false
	}
	y, ok := Parse(b)
	if !ok {
		return false
	}
	return math.Abs(x-y) <= tolerance
}

// Format renders a parsed value back to its canonical string form.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
