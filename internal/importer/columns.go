package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Field is the canonical name of a spreadsheet column.
type Field string

// ColumnSpec lists the header aliases accepted for one field, most preferred first.
type ColumnSpec struct {
	Field   Field
	Aliases []string
	// Example is written to the sample template; legacy columns are never templated.
	Example string
	Legacy  bool
}

// ColumnMap maps a field to its zero-based column index.
type ColumnMap map[Field]int

// Index returns the column of f, or false when f is unmapped.
func (m ColumnMap) Index(f Field) (int, bool) {
	idx, ok := m[f]
	return idx, ok
}

// ResolveColumns maps every column spec to a header column. For each field the
// passes run in order: exact alias, case-insensitive alias, then folded
// substring match in either direction. Inside a pass the first alias that
// matches any column wins.
func ResolveColumns(headers []string, specs []ColumnSpec) ColumnMap {
	trimmed := make([]string, len(headers))
	folded := make([]string, len(headers))
	for i, h := range headers {
		trimmed[i] = strings.ToLower(strings.TrimSpace(h))
		folded[i] = foldKey(h)
	}

	columns := make(ColumnMap, len(specs))
	for _, spec := range specs {
		if idx, ok := matchExact(headers, spec.Aliases); ok {
			columns[spec.Field] = idx
			continue
		}
		if idx, ok := matchCaseInsensitive(trimmed, spec.Aliases); ok {
			columns[spec.Field] = idx
			continue
		}
		if idx, ok := matchSubstring(folded, spec.Aliases); ok {
			columns[spec.Field] = idx
		}
	}
	return columns
}

func matchExact(headers []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		for i, h := range headers {
			if h == alias {
				return i, true
			}
		}
	}
	return 0, false
}

func matchCaseInsensitive(trimmed []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		key := strings.ToLower(strings.TrimSpace(alias))
		if key == "" {
			continue
		}
		for i, h := range trimmed {
			if h == key {
				return i, true
			}
		}
	}
	return 0, false
}

func matchSubstring(folded []string, aliases []string) (int, bool) {
	for _, alias := range aliases {
		key := foldKey(alias)
		if key == "" {
			continue
		}
		for i, h := range folded {
			if h == "" {
				continue
			}
			if strings.Contains(h, key) || strings.Contains(key, h) {
				return i, true
			}
		}
	}
	return 0, false
}

var dStroke = strings.NewReplacer("đ", "d", "Đ", "D")

// foldKey lower-cases s, strips Vietnamese diacritics and drops all whitespace,
// so "Mã  nhân viên" and "ma nhan vien" share the key "manhanvien".
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(dStroke.Replace(out))

	var b strings.Builder
	b.Grow(len(out))
	for _, r := range out {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
