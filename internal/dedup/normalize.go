package dedup

import "strings"

// Normalize lowercases s, strips everything that is not a Latin letter,
// Arabic-range letter, or digit, and collapses whitespace. Idempotent, so
// the same posting republished with different punctuation or casing maps to
// the same key.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x0600 && r <= 0x06FF: // Arabic block
			b.WriteRune(r)
		case r >= 0x0750 && r <= 0x077F: // Arabic supplement
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// FuzzyKey is the cross-source identity of a posting: the same real-world
// job republished by two boards yields the same key.
func FuzzyKey(title, employer string) string {
	return Normalize(title) + ":" + Normalize(employer)
}
