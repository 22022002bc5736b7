// Package summarize wraps the external inference service: per-source prompt
// assembly, retry with exponential backoff, multi-shape response parsing,
// and a deterministic fallback when the service is down or unparseable.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
)

type Adapter struct {
	endpoint    string
	model       string
	apiKey      string
	maxAttempts int
	backoffBase time.Duration
	rules       []config.KeywordRule
	hc          *http.Client
}

type Options struct {
	Endpoint     string
	Model        string
	APIKey       string
	MaxAttempts  int
	BackoffBase  time.Duration
	KeywordRules []config.KeywordRule
	Client       *http.Client
}

// Result is what the pipeline delivers. UsedFallback is informational; a
// fallback delivery still counts as success.
type Result struct {
	Summary      string
	Category     string
	UsedFallback bool
}

func New(opts Options) *Adapter {
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &Adapter{
		endpoint:    strings.TrimRight(opts.Endpoint, "/"),
		model:       opts.Model,
		apiKey:      opts.APIKey,
		maxAttempts: attempts,
		backoffBase: backoff,
		rules:       opts.KeywordRules,
		hc:          hc,
	}
}

// Summarize produces the channel message for one posting. It never returns
// an error: retry exhaustion and unparseable replies degrade to the
// deterministic fallback built from the posting's own fields.
func (a *Adapter) Summarize(ctx context.Context, ep domain.EnrichedPosting, p config.Prompt) Result {
	header := BuildHeader(ep)
	titleAndBody := ep.Title + " " + ep.BodyText

	if a.endpoint == "" {
		return a.fallback(ep, p, titleAndBody)
	}

	prompt := BuildPrompt(ep, p)

	text, err := a.callWithRetry(ctx, prompt)
	if err != nil {
		log.Printf("[summarize:%s] giving up after %d attempts: %v", ep.SourceName, a.maxAttempts, err)
		return a.fallback(ep, p, titleAndBody)
	}

	prose, rawCategory := splitCategoryLine(sanitize(text))
	if prose == "" {
		log.Printf("[summarize:%s] response sanitized to nothing, using fallback", ep.SourceName)
		return a.fallback(ep, p, titleAndBody)
	}

	category := ep.Category
	if category == "" {
		category = resolveCategory(rawCategory, p.Categories, a.rules, titleAndBody)
	}

	summary := header + "\n\n" + prose
	if p.IncludeContacts && len(ep.Contacts) > 0 && !containsAny(prose, ep.Contacts) {
		summary += "\n\n📬 " + strings.Join(ep.Contacts, "\n")
	}

	return Result{Summary: summary, Category: category}
}

func (a *Adapter) fallback(ep domain.EnrichedPosting, p config.Prompt, titleAndBody string) Result {
	category := ep.Category
	if category == "" {
		category = resolveCategory("", nil, a.rules, titleAndBody)
	}
	return Result{
		Summary:      fallbackMessage(ep, p),
		Category:     category,
		UsedFallback: true,
	}
}

// callWithRetry makes up to maxAttempts calls, doubling the backoff after
// each failure. A reply with no extractable text counts as a failure.
func (a *Adapter) callWithRetry(ctx context.Context, prompt string) (string, error) {
	delay := a.backoffBase
	var lastErr error

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return "", ctx.Err()
			case <-timer.C:
			}
			delay *= 2
		}

		raw, err := a.call(ctx, prompt)
		if err != nil {
			lastErr = err
			log.Printf("[summarize] attempt %d/%d failed: %v", attempt+1, a.maxAttempts, err)
			continue
		}

		text, err := extractText(raw)
		if err != nil {
			lastErr = err
			log.Printf("[summarize] attempt %d/%d: %v", attempt+1, a.maxAttempts, err)
			continue
		}
		return text, nil
	}
	return "", lastErr
}

// call posts one request. The request shape is keyed off the model id:
// gemini-family models use the instruction-style contents body, everything
// else the chat-style messages body.
func (a *Adapter) call(ctx context.Context, prompt string) ([]byte, error) {
	var (
		url  string
		body any
	)

	if strings.HasPrefix(a.model, "gemini") {
		url = fmt.Sprintf("%s/%s:generateContent", a.endpoint, a.model)
		body = map[string]any{
			"contents": []map[string]any{
				{"parts": []map[string]string{{"text": prompt}}},
			},
		}
	} else {
		url = a.endpoint
		body = map[string]any{
			"model": a.model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		if strings.HasPrefix(a.model, "gemini") {
			req.Header.Set("x-goog-api-key", a.apiKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+a.apiKey)
		}
	}

	res, err := a.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference post: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("inference read: %w", err)
	}
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("inference status %d: %s", res.StatusCode, truncateErrBody(raw))
	}
	return raw, nil
}

func truncateErrBody(raw []byte) string {
	s := string(raw)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func containsAny(text string, values []string) bool {
	for _, v := range values {
		if v != "" && strings.Contains(text, v) {
			return true
		}
	}
	return false
}
