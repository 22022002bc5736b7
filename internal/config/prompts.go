package config

import "strings"

// Prompt is the fully-resolved per-source prompt configuration handed to the
// summarizer. Resolution is two-layer: compiled defaults below, then the
// operator's prompts.overrides from config.yml. Nothing reads this from a
// global; callers resolve and pass it explicitly.
type Prompt struct {
	Hint            string
	IncludeContacts bool
	Categories      []string
	Language        string
}

// promptDefaults is the immutable compiled layer. Sources absent from this
// table get fallbackPrompt.
var promptDefaults = map[string]Prompt{}

var fallbackPrompt = Prompt{
	IncludeContacts: false,
	Language:        "English",
}

// ResolvePrompt merges the compiled default for a source with the config
// override, field by field. Override wins wherever it is set.
func ResolvePrompt(cfg Config, source string) Prompt {
	p, ok := promptDefaults[source]
	if !ok {
		p = fallbackPrompt
	}

	ov, ok := cfg.Prompts.Overrides[source]
	if !ok {
		return p
	}
	if strings.TrimSpace(ov.Hint) != "" {
		p.Hint = ov.Hint
	}
	if ov.IncludeContacts != nil {
		p.IncludeContacts = *ov.IncludeContacts
	}
	if len(ov.Categories) > 0 {
		p.Categories = ov.Categories
	}
	if strings.TrimSpace(ov.Language) != "" {
		p.Language = ov.Language
	}
	return p
}
