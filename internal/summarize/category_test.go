package summarize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobcast-engine/internal/config"
)

func TestResolveCategory(t *testing.T) {
	vocab := []string{"Health", "Programming", "Skilled Trades"}
	rules := []config.KeywordRule{
		{Category: "Programming", Any: []string{"golang", "developer"}},
		{Category: "Health", Any: []string{"nurse", "clinic"}},
		{Category: "Administration", Any: []string{"office", "assistant"}},
	}

	tests := []struct {
		name  string
		model string
		text  string
		want  string
	}{
		{"exact match", "Health", "", "Health"},
		{"case-insensitive exact", "programming", "", "Programming"},
		{"model value contains vocab entry", "probably Skilled Trades I think", "", "Skilled Trades"},
		{"vocab entry contains model value", "Trades", "", "Skilled Trades"},
		{"unknown model value falls to keywords", "Gibberish", "senior golang engineer", "Programming"},
		{"empty model value uses keywords", "", "night shift nurse wanted", "Health"},
		{"rule order wins on overlap", "", "developer at a clinic", "Programming"},
		{"nothing matches", "Gibberish", "unclassifiable text", "Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCategory(tt.model, vocab, rules, tt.text))
		})
	}
}

func TestResolveCategoryEmptyVocab(t *testing.T) {
	rules := []config.KeywordRule{{Category: "Health", Any: []string{"nurse"}}}

	// With no vocabulary the model value is ignored entirely.
	assert.Equal(t, "Health", resolveCategory("Health", nil, rules, "nurse needed"))
	assert.Equal(t, "Other", resolveCategory("Health", nil, rules, "no keywords"))
}
