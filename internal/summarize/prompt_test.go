package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	ep := domain.EnrichedPosting{
		Title:    "Backend Engineer",
		BodyText: "We need someone who knows queues.",
		Contacts: []string{"jobs@acme.test", "+1 555 0100"},
	}

	t.Run("plain prompt", func(t *testing.T) {
		got := BuildPrompt(ep, config.Prompt{Language: "English"})
		assert.Contains(t, got, "We need someone who knows queues.")
		assert.Contains(t, got, "at most 950 characters")
		assert.NotContains(t, got, "jobs@acme.test")
		assert.NotContains(t, got, categoryMarker)
	})

	t.Run("contacts shrink the budget", func(t *testing.T) {
		got := BuildPrompt(ep, config.Prompt{Language: "English", IncludeContacts: true})
		assert.Contains(t, got, "at most 850 characters")
		assert.Contains(t, got, "jobs@acme.test")
		assert.Contains(t, got, "+1 555 0100")
	})

	t.Run("contacts flag without contacts keeps plain budget", func(t *testing.T) {
		bare := ep
		bare.Contacts = nil
		got := BuildPrompt(bare, config.Prompt{Language: "English", IncludeContacts: true})
		assert.Contains(t, got, "at most 950 characters")
	})

	t.Run("category instruction only when posting has none", func(t *testing.T) {
		p := config.Prompt{Language: "English", Categories: []string{"Health", "Other"}}

		got := BuildPrompt(ep, p)
		assert.Contains(t, got, categoryMarker)
		assert.Contains(t, got, "Health, Other")

		pre := ep
		pre.Category = "Programming"
		got = BuildPrompt(pre, p)
		assert.NotContains(t, got, categoryMarker)
	})

	t.Run("hint and language", func(t *testing.T) {
		got := BuildPrompt(ep, config.Prompt{Language: "Arabic", Hint: "Posts are in mixed Arabic/English."})
		assert.Contains(t, got, "Posts are in mixed Arabic/English.")
		assert.Contains(t, got, "concise Arabic social-channel post")
	})
}

func TestBuildHeader(t *testing.T) {
	ep := domain.EnrichedPosting{
		Title:         "Nurse",
		Employer:      "City Clinic",
		Location:      "Berlin",
		PostedLabel:   "2026-08-20",
		DeadlineLabel: "2026-09-01",
		CanonicalURL:  "https://example.test/jobs/1",
	}

	h := BuildHeader(ep)
	lines := strings.Split(h, "\n")
	assert.Equal(t, "📌 Nurse", lines[0])
	assert.Contains(t, h, "🏢 City Clinic")
	assert.Contains(t, h, "📍 Berlin")
	assert.Contains(t, h, "🗓 Posted: 2026-08-20")
	assert.Contains(t, h, "⏳ Deadline: 2026-09-01")
	assert.Contains(t, h, "🔗 https://example.test/jobs/1")

	// Empty fields drop their lines entirely.
	minimal := BuildHeader(domain.EnrichedPosting{Title: "Nurse"})
	assert.Equal(t, "📌 Nurse", minimal)
}
