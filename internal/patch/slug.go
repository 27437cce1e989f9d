package patch

import (
	"strings"
	"unicode"
)

// Slug lowercases s and replaces every non-alphanumeric character with
// '_'. Determinism law: slug(s1) == slug(s2) iff the character classes at
// every position agree and the lowercased alphanumeric characters are
// pointwise equal.
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// GenerateRRBranchName builds "ps/rr/<slug>" from a patch summary.
func GenerateRRBranchName(summary string) string {
	return "ps/rr/" + Slug(summary)
}
