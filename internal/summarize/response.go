package summarize

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var errNoText = errors.New("no extractable text in inference response")

// The service replies in one of (at least) three shapes. They are tried in
// fixed priority order; first non-empty match wins.
//
//  1. single top-level text field:      {"text": "..."}
//  2. chat-style choice list:           {"choices":[{"message":{"content":"..."}}]}
//  3. structured output-block list:     {"candidates":[{"content":{"parts":[{"text":"..."}]}}]}
//     (also accepted as                 {"output":[{"content":[{"text":"..."}]}]})
func extractText(raw []byte) (string, error) {
	var flat struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &flat); err == nil && strings.TrimSpace(flat.Text) != "" {
		return flat.Text, nil
	}

	var chat struct {
		Choices []struct {
			Text    string `json:"text"`
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &chat); err == nil {
		for _, c := range chat.Choices {
			if v := strings.TrimSpace(c.Message.Content); v != "" {
				return v, nil
			}
			if v := strings.TrimSpace(c.Text); v != "" {
				return v, nil
			}
		}
	}

	var blocks struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Output []struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var b strings.Builder
		for _, c := range blocks.Candidates {
			for _, p := range c.Content.Parts {
				b.WriteString(p.Text)
			}
		}
		for _, o := range blocks.Output {
			for _, c := range o.Content {
				b.WriteString(c.Text)
			}
		}
		if v := strings.TrimSpace(b.String()); v != "" {
			return v, nil
		}
	}

	return "", errNoText
}

// Markdown residue is stripped conservatively: paired emphasis markers and
// line-leading heading prefixes only, so literal text like "C#" and
// snake_case identifiers survive.
var markupStrips = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile("```[a-zA-Z]*"), ""},
	{regexp.MustCompile(`\*\*([^*]+)\*\*`), "$1"},
	{regexp.MustCompile(`__([^_]+)__`), "$1"},
	{regexp.MustCompile(`~~([^~]+)~~`), "$1"},
	{regexp.MustCompile(`(^|[\s(])\*([^*\s][^*\n]*)\*`), "$1$2"},
	{regexp.MustCompile(`(^|[\s(])_([^_\s][^_\n]*)_([\s).,;:!?]|$)`), "$1$2$3"},
	{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
}

// sanitize strips residual markdown emphasis and discards any preamble the
// model wrote before the expected content marker.
func sanitize(text string) string {
	text = strings.TrimSpace(text)

	if i := strings.Index(text, summaryMarker); i >= 0 {
		text = text[i+len(summaryMarker):]
	}
	for _, s := range markupStrips {
		text = s.re.ReplaceAllString(text, s.repl)
	}
	return strings.TrimSpace(text)
}

// splitCategoryLine pulls the trailing "CATEGORY: x" line (if any) out of
// the prose, returning the prose without it and the raw category value.
func splitCategoryLine(text string) (prose, category string) {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		if category == "" && strings.HasPrefix(upper, categoryMarker) {
			category = strings.TrimSpace(trimmed[len(categoryMarker):])
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), category
}
