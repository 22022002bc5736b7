package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
)

func testPosting() domain.EnrichedPosting {
	return domain.EnrichedPosting{
		Title:        "Backend Engineer",
		Employer:     "Acme",
		CanonicalURL: "https://example.test/jobs/1",
		BodyText:     "Build and run the ingestion services. Golang required.",
		Contacts:     []string{"jobs@acme.test"},
		SourceName:   "acmeboard",
	}
}

func newTestAdapter(endpoint string) *Adapter {
	return New(Options{
		Endpoint:    endpoint,
		Model:       "test-model",
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		KeywordRules: []config.KeywordRule{
			{Category: "Programming", Any: []string{"golang"}},
		},
	})
}

func TestSummarizeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Contains(t, req.Messages[0].Content, "Golang required.")

		_ = json.NewEncoder(w).Encode(map[string]string{
			"text": "SUMMARY: A hands-on backend role.\nCATEGORY: Programming",
		})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{
		Language:   "English",
		Categories: []string{"Programming", "Other"},
	})

	assert.False(t, res.UsedFallback)
	assert.Equal(t, "Programming", res.Category)
	assert.Contains(t, res.Summary, "📌 Backend Engineer")
	assert.Contains(t, res.Summary, "A hands-on backend role.")
	assert.NotContains(t, res.Summary, "CATEGORY:")
}

func TestSummarizeRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "SUMMARY: Third time lucky."})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{Language: "English"})

	assert.EqualValues(t, 3, calls.Load())
	assert.False(t, res.UsedFallback)
	assert.Contains(t, res.Summary, "Third time lucky.")
}

func TestSummarizeExhaustedFallsBack(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{Language: "English"})

	assert.EqualValues(t, 3, calls.Load(), "one call per attempt")
	assert.True(t, res.UsedFallback)
	assert.NotEmpty(t, res.Summary, "fallback message is never empty")
	assert.Contains(t, res.Summary, "📌 Backend Engineer")
	assert.Contains(t, res.Summary, "Build and run the ingestion services.")
	assert.Equal(t, "Programming", res.Category, "keyword rules still classify on fallback")
}

func TestSummarizeUnparseableReplyCountsAsFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{Language: "English"})

	assert.EqualValues(t, 3, calls.Load())
	assert.True(t, res.UsedFallback)
}

func TestSummarizeNoEndpointUsesFallback(t *testing.T) {
	a := newTestAdapter("")
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{
		Language:        "English",
		IncludeContacts: true,
	})

	assert.True(t, res.UsedFallback)
	assert.Contains(t, res.Summary, "📬 How to apply:")
	assert.Contains(t, res.Summary, "jobs@acme.test")
}

func TestSummarizeAppendsMissingContacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "SUMMARY: Prose without any contact info."})
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{
		Language:        "English",
		IncludeContacts: true,
	})

	assert.Contains(t, res.Summary, "📬 jobs@acme.test")
}

func TestSummarizePreexistingCategoryWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"text": "SUMMARY: Prose.\nCATEGORY: Other",
		})
	}))
	defer srv.Close()

	ep := testPosting()
	ep.Category = "Health"

	a := newTestAdapter(srv.URL)
	res := a.Summarize(context.Background(), ep, config.Prompt{Language: "English"})

	assert.Equal(t, "Health", res.Category)
}

func TestSummarizeGeminiRequestShape(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NotEmpty(t, r.Header.Get("x-goog-api-key"))

		var req struct {
			Contents []struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"contents"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "SUMMARY: From the structured shape."}}}},
			},
		})
	}))
	defer srv.Close()

	a := New(Options{
		Endpoint:    srv.URL,
		Model:       "gemini-2.0-flash",
		APIKey:      "k",
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	})
	res := a.Summarize(context.Background(), testPosting(), config.Prompt{Language: "English"})

	assert.Equal(t, "/gemini-2.0-flash:generateContent", gotPath)
	assert.False(t, res.UsedFallback)
	assert.Contains(t, res.Summary, "From the structured shape.")
}
