package listview

import (
	"strings"

	"golang.org/x/text/cases"
)

// FieldsFunc returns the searchable string fields of a record.
type FieldsFunc[T any] func(T) []string

// Filter returns the records whose searchable fields contain term, compared
// with Unicode case folding. Order is preserved. An empty term matches every
// record. The result never aliases records.
func Filter[T any](records []T, term string, fields FieldsFunc[T]) []T {
	out := make([]T, 0, len(records))
	if term == "" || fields == nil {
		return append(out, records...)
	}

	// A Caser keeps internal state and must not be shared across goroutines.
	fold := cases.Fold()
	needle := fold.String(term)
	for _, r := range records {
		if matchesAny(fields(r), needle, fold) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether any of fields contains term, ignoring case.
func Matches(fields []string, term string) bool {
	if term == "" {
		return true
	}
	fold := cases.Fold()
	return matchesAny(fields, fold.String(term), fold)
}

func matchesAny(fields []string, needle string, fold cases.Caser) bool {
	for _, f := range fields {
		if f == "" {
			continue
		}
		if strings.Contains(fold.String(f), needle) {
			return true
		}
	}
	return false
}
