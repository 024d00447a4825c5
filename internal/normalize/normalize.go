// Package normalize canonicalizes human-entered names so that view and document
// titles typed by users can be matched against what a host reports.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Name applies compatibility folding, width folding and lower-casing, then strips
// every whitespace rune. The ideographic space (U+3000) folds to a regular space
// first and is removed with the rest.
func Name(s string) string {
	s = norm.NFKC.String(s)
	s = width.Fold.String(s)
	s = cases.Lower(language.Und).String(s)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Match returns the index of the candidate that best matches query: the first
// exact normalized match, else the first candidate whose normalized form contains
// the normalized query. It returns -1 when nothing matches or the query is blank.
func Match(query string, candidates []string) int {
	q := Name(query)
	if q == "" {
		return -1
	}

	normalized := make([]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = Name(c)
		if normalized[i] == q {
			return i
		}
	}
	for i, c := range normalized {
		if strings.Contains(c, q) {
			return i
		}
	}
	return -1
}
