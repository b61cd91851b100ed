package normalize

import (
	"strings"
)

// basementPrefixes are the spellings of "underground" seen in uploaded
// sheets. They are unified to a single "B" prefix so "지하1" and "b1" compare
// equal.
var basementPrefixes = []string{"지하", "B"}

// Designator canonicalizes a free-text dong/ho designator for comparison:
// trailing administrative suffixes ("동", "호", "층") are stripped, basement
// markers are unified to a "B" prefix, and the result is trimmed and
// uppercased. Hyphenated compound designators ("101-A") are preserved as-is.
//
// The function is total and idempotent: unparseable input comes back trimmed
// and uppercased, and a canonical value maps to itself. Blank input maps to
// nil so downstream matching treats dong/ho as independently optional.
func Designator(s string) *string {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return nil
	}

	// Strip to fixpoint so stuttered suffixes ("101동동") canonicalize the
	// same as the clean form.
	for {
		stripped := v
		for _, suffix := range []string{"동", "호", "층"} {
			stripped = strings.TrimSuffix(stripped, suffix)
		}
		stripped = strings.TrimSpace(stripped)
		if stripped == v {
			break
		}
		v = stripped
	}
	if v == "" {
		return nil
	}

	for _, prefix := range basementPrefixes {
		rest, ok := strings.CutPrefix(v, prefix)
		if !ok {
			continue
		}
		if digits(rest) {
			v = "B" + rest
		}
		break
	}

	return &v
}

// digits reports whether s is non-empty and all ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Address canonicalizes a property address into its comparison key: trimmed,
// inner whitespace collapsed to single spaces, uppercased. Idempotent and
// total.
func Address(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
