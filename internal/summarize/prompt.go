package summarize

import (
	"strconv"
	"strings"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
)

// The model only ever writes the descriptive/contact prose. The structured
// header is pre-built from the posting's own fields, so titles, employers
// and dates are accurate no matter what the model does.

const summaryMarker = "SUMMARY:"
const categoryMarker = "CATEGORY:"

// Character budgets keep header + prose under the channel's caption limit.
// Tighter when a contact block must also fit.
const (
	budgetPlain        = 950
	budgetWithContacts = 850
)

const promptTemplate = `You are writing a concise {language} social-channel post about one job posting.

{hint}Job posting text:
---
{body}
---
{contacts}Write only the descriptive summary of the role and requirements, in {language}, at most {budget} characters. Do not repeat the job title or employer name as a heading. Do not invent any contact details.
{category}Begin your answer with the line "` + summaryMarker + `" followed by the summary.`

// BuildPrompt substitutes the named placeholders for one call. The contact
// block is included only for sources known to supply real contact data.
func BuildPrompt(ep domain.EnrichedPosting, p config.Prompt) string {
	hint := ""
	if strings.TrimSpace(p.Hint) != "" {
		hint = "Context about this source: " + strings.TrimSpace(p.Hint) + "\n\n"
	}

	contacts := ""
	budget := budgetPlain
	if p.IncludeContacts && len(ep.Contacts) > 0 {
		budget = budgetWithContacts
		contacts = "Application contacts found in the posting (reproduce them exactly, never invent new ones):\n" +
			strings.Join(ep.Contacts, "\n") + "\n\n"
	}

	category := ""
	if ep.Category == "" && len(p.Categories) > 0 {
		category = "Then add one final line \"" + categoryMarker + `" followed by exactly one of: ` +
			strings.Join(p.Categories, ", ") + ".\n"
	}

	lang := p.Language
	if lang == "" {
		lang = "English"
	}

	r := strings.NewReplacer(
		"{language}", lang,
		"{hint}", hint,
		"{body}", ep.BodyText,
		"{contacts}", contacts,
		"{budget}", strconv.Itoa(budget),
		"{category}", category,
	)
	return r.Replace(promptTemplate)
}

// BuildHeader assembles the structured block that precedes the model prose.
func BuildHeader(ep domain.EnrichedPosting) string {
	var b strings.Builder
	b.WriteString("📌 " + ep.Title)
	if ep.Employer != "" {
		b.WriteString("\n🏢 " + ep.Employer)
	}
	if ep.Location != "" {
		b.WriteString("\n📍 " + ep.Location)
	}
	if ep.PostedLabel != "" {
		b.WriteString("\n🗓 Posted: " + ep.PostedLabel)
	}
	if ep.DeadlineLabel != "" {
		b.WriteString("\n⏳ Deadline: " + ep.DeadlineLabel)
	}
	if ep.CanonicalURL != "" {
		b.WriteString("\n🔗 " + ep.CanonicalURL)
	}
	return b.String()
}
