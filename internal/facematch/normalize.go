package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks drops combining marks so a label typed as "Jiri" finds the
// record registered as "Jiří".
func stripMarks(label string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), label)
	if err != nil {
		return label
	}
	return folded
}

// NormalizePersonName folds a label for lookups: no diacritics, lowercase,
// dashes and underscores read as spaces, runs of whitespace collapsed.
func NormalizePersonName(name string) string {
	name = stripMarks(name)
	name = strings.ToLower(name)
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return strings.Join(strings.Fields(name), " ")
}
