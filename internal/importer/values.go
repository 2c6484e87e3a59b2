package importer

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidValue marks a non-empty cell that could not be converted.
var ErrInvalidValue = errors.New("invalid value")

// Cell is one raw spreadsheet value. Time is set when the source already
// carried a native date.
type Cell struct {
	Text string
	Time *time.Time
}

// IsEmpty reports whether the cell carries nothing.
func (c Cell) IsEmpty() bool {
	return c.Time == nil && strings.TrimSpace(c.Text) == ""
}

// String returns the trimmed text of the cell.
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// dateLayouts are tried after '.' and '-' have been rewritten to '/'.
var dateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2006/1/2",
}

// ParseDate converts a date cell. An empty cell yields (nil, nil). Text is
// only read through the textual formats; numeric cells arrive with Time set.
func ParseDate(c Cell) (*time.Time, error) {
	if c.Time != nil {
		d := dateOnly(*c.Time)
		return &d, nil
	}

	s := c.String()
	if s == "" {
		return nil, nil
	}

	t, err := ParseDateString(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseDateString accepts DD/MM/YYYY, DD/MM/YY and YYYY/MM/DD with '/', '-'
// or '.' separators, optionally quoted and optionally followed by a time.
func ParseDateString(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	if idx := strings.IndexAny(s, " T"); idx > 0 {
		s = s[:idx]
	}
	s = strings.NewReplacer(".", "/", "-", "/").Replace(s)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), nil
		}
	}
	return time.Time{}, ErrInvalidValue
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseMeasure converts a numeric cell that may use a decimal comma and carry
// one of the given unit suffixes. Values are rounded to two decimals.
func ParseMeasure(c Cell, units ...string) (decimal.NullDecimal, error) {
	s := strings.ToLower(c.String())
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	for _, unit := range units {
		s = strings.TrimSpace(strings.TrimSuffix(s, strings.ToLower(unit)))
	}
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.NullDecimal{}, ErrInvalidValue
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, ErrInvalidValue
	}
	return decimal.NewNullDecimal(d.Round(2)), nil
}

// ParseYear returns a positive whole year, or nil when the cell holds none.
func ParseYear(c Cell) *int {
	s := c.String()
	if s == "" {
		return nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return nil
		}
		return &n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

// SplitVaccines splits a ';' or ',' separated list and drops blanks.
func SplitVaccines(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})

	names := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.Join(strings.Fields(p), " ")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// JoinVaccines renders the canonical vaccine_name value.
func JoinVaccines(names []string) string {
	return strings.Join(names, "; ")
}

var truthy = map[string]bool{
	"x": true, "1": true, "true": true, "yes": true, "y": true,
	"có": true, "co": true, "đã": true, "da": true,
}

// IsTruthy interprets checkbox-like cells such as "x", "có" or "TRUE".
func IsTruthy(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

var falsy = map[string]bool{
	"0": true, "false": true, "no": true, "n": true,
	"chưa": true, "chua": true, "không": true, "khong": true,
}

// IsFalsy is the negative counterpart of IsTruthy. A blank value is neither.
func IsFalsy(s string) bool {
	return falsy[strings.ToLower(strings.TrimSpace(s))]
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
