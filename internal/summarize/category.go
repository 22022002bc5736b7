package summarize

import (
	"strings"

	"jobcast-engine/internal/config"
)

// OtherCategory is the bucket of last resort.
const OtherCategory = "Other"

// resolveCategory validates the model's category line against the source's
// closed vocabulary: exact match first, then substring fuzzy match, then the
// ordered keyword rules over title+body, then "Other". A posting that
// already carries a category never reaches this path.
func resolveCategory(modelValue string, vocab []string, rules []config.KeywordRule, titleAndBody string) string {
	v := strings.TrimSpace(modelValue)

	if v != "" && len(vocab) > 0 {
		for _, c := range vocab {
			if strings.EqualFold(strings.TrimSpace(c), v) {
				return c
			}
		}
		lower := strings.ToLower(v)
		for _, c := range vocab {
			cl := strings.ToLower(strings.TrimSpace(c))
			if cl == "" {
				continue
			}
			if strings.Contains(lower, cl) || strings.Contains(cl, lower) {
				return c
			}
		}
	}

	if c := keywordCategory(rules, titleAndBody); c != "" {
		return c
	}
	return OtherCategory
}

// keywordCategory walks the configured rules in order and returns the first
// category whose keywords hit. Ordering encodes precedence: specific trades
// are listed before broad catch-alls.
func keywordCategory(rules []config.KeywordRule, titleAndBody string) string {
	text := strings.ToLower(titleAndBody)
	for _, r := range rules {
		for _, needle := range r.Any {
			n := strings.ToLower(strings.TrimSpace(needle))
			if n == "" {
				continue
			}
			if strings.Contains(text, n) {
				return r.Category
			}
		}
	}
	return ""
}
