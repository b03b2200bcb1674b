package clean

import (
	"testing"
	"time"

	"github.com/crivera/joistsync/internal/batch"
)

func TestScrub(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain value untouched", input: "Jane Doe", want: "Jane Doe"},
		{name: "quotes become spaces", input: `O'Brien "Builders"`, want: "O Brien  Builders"},
		{name: "sql noise removed", input: "a;b%c_d", want: "a b c d"},
		{name: "control characters removed", input: "line1\nline2\tend\r", want: "line1 line2 end"},
		{name: "null byte removed", input: "a\x00b", want: "a b"},
		{name: "backslash removed", input: `C:\path`, want: "C: path"},
		{name: "surrounding whitespace trimmed", input: "  padded  ", want: "padded"},
		{name: "whitespace only collapses to empty", input: " \t\n ", want: ""},
		{name: "empty stays empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Scrub(tt.input)
			if got != tt.want {
				t.Errorf("Scrub(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// Scrubbing is idempotent.
			if again := Scrub(got); again != got {
				t.Errorf("Scrub not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		max   int
	}{
		{name: "under cap unchanged", input: "short", max: 10, want: "short"},
		{name: "exactly at cap unchanged", input: "1234567890", max: 10, want: "1234567890"},
		{name: "over cap cut", input: "12345678901", max: 10, want: "1234567890"},
		{name: "multibyte runes counted as one", input: "héllo wörld", max: 5, want: "héllo"},
		{name: "non-positive cap disables", input: "anything", max: 0, want: "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.input, tt.max); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}

func TestStrings(t *testing.T) {
	b := batch.New(
		[]string{"full_name", "city", "total"},
		[][]string{
			{" Jane'Doe ", "Spring_field", "$1,200.00"},
			{"Bob;", "", "50"},
		},
	)

	Strings(b, "full_name", "city", "missing_column")

	if got := b.Value(b.Rows[0], "full_name"); got != "Jane Doe" {
		t.Errorf("full_name = %q, want %q", got, "Jane Doe")
	}
	if got := b.Value(b.Rows[0], "city"); got != "Spring field" {
		t.Errorf("city = %q, want %q", got, "Spring field")
	}
	if got := b.Value(b.Rows[1], "full_name"); got != "Bob" {
		t.Errorf("full_name = %q, want %q", got, "Bob")
	}
	// Columns not named stay raw.
	if got := b.Value(b.Rows[0], "total"); got != "$1,200.00" {
		t.Errorf("total = %q, want raw value", got)
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{name: "plain number", input: "150.00", want: "150", valid: true},
		{name: "currency symbol stripped", input: "$99.50", want: "99.5", valid: true},
		{name: "grouping commas stripped", input: "$1,234,567.89", want: "1234567.89", valid: true},
		{name: "negative amount", input: "-42.10", want: "-42.1", valid: true},
		{name: "empty is null", input: "", valid: false},
		{name: "whitespace is null", input: "   ", valid: false},
		{name: "garbage is null", input: "n/a", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Amount(tt.input)
			if got.Valid != tt.valid {
				t.Fatalf("Amount(%q).Valid = %v, want %v", tt.input, got.Valid, tt.valid)
			}
			if tt.valid && got.Decimal.String() != tt.want {
				t.Errorf("Amount(%q) = %s, want %s", tt.input, got.Decimal.String(), tt.want)
			}
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		want  *time.Time
		name  string
		input string
	}{
		{name: "iso date", input: "2024-03-15", want: datePtr(2024, 3, 15)},
		{name: "iso datetime", input: "2024-03-15 10:30:00", want: datePtr(2024, 3, 15)},
		{name: "us slashes", input: "03/15/2024", want: datePtr(2024, 3, 15)},
		{name: "us slashes no padding", input: "3/5/2024", want: datePtr(2024, 3, 5)},
		{name: "short month name", input: "Mar 15, 2024", want: datePtr(2024, 3, 15)},
		{name: "long month name", input: "March 15, 2024", want: datePtr(2024, 3, 15)},
		{name: "empty is nil", input: "", want: nil},
		{name: "garbage is nil", input: "someday", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Date(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Date(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil {
				y, m, d := got.Date()
				wy, wm, wd := tt.want.Date()
				if y != wy || m != wm || d != wd {
					t.Errorf("Date(%q) = %v, want %v", tt.input, got, tt.want)
				}
			}
		})
	}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestInteger(t *testing.T) {
	tests := []struct {
		want  *int64
		name  string
		input string
	}{
		{name: "plain id", input: "12345", want: int64Ptr(12345)},
		{name: "trailing point zero tolerated", input: "12345.0", want: int64Ptr(12345)},
		{name: "negative", input: "-7", want: int64Ptr(-7)},
		{name: "empty is nil", input: "", want: nil},
		{name: "fractional is nil", input: "12.5", want: nil},
		{name: "letters are nil", want: nil, input: "abc"},
		{name: "lone minus is nil", input: "-", want: nil},
		{name: "overflowing digits are nil", input: "92233720368547758070", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Integer(tt.input)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("Integer(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("Integer(%q) = %d, want %d", tt.input, *got, *tt.want)
			}
		})
	}
}

func int64Ptr(n int64) *int64 {
	return &n
}
