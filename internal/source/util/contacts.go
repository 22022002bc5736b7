package util

import (
	"regexp"
	"strings"
)

var (
	urlRe   = regexp.MustCompile(`https?://[^\s<>"']+`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
)

// ExtractContacts pulls application urls, emails and phone numbers out of a
// block of text, deduplicated, urls first.
func ExtractContacts(text string) []string {
	seen := map[string]bool{}
	var out []string

	add := func(v string) {
		v = strings.TrimSpace(strings.TrimRight(v, ".,;:)"))
		if v == "" {
			return
		}
		k := strings.ToLower(v)
		if seen[k] {
			return
		}
		seen[k] = true
		out = append(out, v)
	}

	for _, m := range urlRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range phoneRe.FindAllString(text, -1) {
		// urls and emails often contain digit runs; skip anything already captured
		if strings.Contains(m, "@") || strings.Contains(m, "/") {
			continue
		}
		add(m)
	}
	return out
}
