package summarize

import (
	"strings"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/source/util"
)

// fallbackMessage builds the deterministic non-AI summary from the
// posting's own fields: header, truncated body, truncated contact block.
// Used whenever the inference service is exhausted or unparseable; a
// posting is never failed just because the model was.
func fallbackMessage(ep domain.EnrichedPosting, p config.Prompt) string {
	var b strings.Builder
	b.WriteString(BuildHeader(ep))

	if body := strings.TrimSpace(ep.BodyText); body != "" {
		b.WriteString("\n\n")
		b.WriteString(util.Truncate(body, 500))
	}

	if p.IncludeContacts && len(ep.Contacts) > 0 {
		block := strings.Join(ep.Contacts, "\n")
		b.WriteString("\n\n📬 How to apply:\n")
		b.WriteString(util.Truncate(block, 200))
	} else if apply := strings.TrimSpace(ep.HowToApply); apply != "" {
		b.WriteString("\n\n📬 How to apply:\n")
		b.WriteString(util.Truncate(apply, 200))
	}

	return b.String()
}
