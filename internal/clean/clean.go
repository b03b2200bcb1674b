// Package clean normalizes raw export values before persistence: it strips
// characters the database layer must never see, caps over-length fields, and
// coerces amounts, dates and ids with parse failures becoming nulls instead
// of errors.
package clean

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crivera/joistsync/internal/batch"
)

// scrubber maps each disallowed character (null byte, newline, carriage
// return, tab, both quote characters, backslash, percent, underscore,
// semicolon) to a single space.
var scrubber = strings.NewReplacer(
	"\x00", " ",
	"\n", " ",
	"\r", " ",
	"\t", " ",
	"'", " ",
	"\"", " ",
	"\\", " ",
	"%", " ",
	"_", " ",
	";", " ",
)

// Scrub replaces every disallowed character with a single space and trims
// leading and trailing whitespace. Applying it twice changes nothing.
func Scrub(s string) string {
	return strings.TrimSpace(scrubber.Replace(s))
}

// Truncate caps s at max runes. Oversized values are cut, not rejected.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Strings scrubs and trims the named string columns of a batch in place.
// Columns the batch does not carry are skipped.
func Strings(b *batch.Batch, columns ...string) {
	for _, col := range columns {
		if !b.HasColumn(col) {
			continue
		}
		for i, row := range b.Rows {
			b.SetValue(i, col, Scrub(b.Value(row, col)))
		}
	}
}

// Amount coerces a money field to a decimal. Currency symbols and grouping
// commas are tolerated; anything unparseable becomes null.
func Amount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// dateLayouts covers the formats seen across Joist export generations.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Date coerces a date field; nil on failure.
func Date(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Integer coerces an identifier or zip code; nil on failure. Joist writes
// some numeric ids with a trailing ".0", which is tolerated.
func Integer(s string) *int64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Blank reports whether a name field is null, empty, or whitespace-only
// after scrubbing.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
