package resolver

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize maps an artist name to the key used for cross-source identity
// and deduplication. It strips diacritics from Latin letters, folds case,
// maps Unicode hyphens to ASCII and collapses whitespace. Combining marks on
// other scripts are kept, so katakana ガ and カ stay distinct. Normalize
// never fails.
func Normalize(name string) string {
	s := strings.Join(strings.Fields(name), " ")
	if s == "" {
		return ""
	}

	// The transformer is stateful, so one is built per call.
	t := transform.Chain(
		runes.Map(mapHyphen),
		cases.Fold(),
		norm.NFC,
	)
	out, _, err := transform.String(t, stripLatinMarks(norm.NFKD.String(s)))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// stripLatinMarks drops nonspacing marks that follow a Latin base letter.
// The input must already be decomposed.
func stripLatinMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	latinBase := false
	for _, r := range s {
		if unicode.Is(unicode.Mn, r) {
			if latinBase {
				continue
			}
		} else {
			latinBase = unicode.Is(unicode.Latin, r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// mapHyphen folds the Unicode hyphen family into ASCII hyphen-minus.
func mapHyphen(r rune) rune {
	switch r {
	case '\u2010', '\u2011', '\u2012', '\u2212', '\ufe63', '\uff0d':
		return '-'
	}
	return r
}
