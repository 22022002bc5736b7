// Package feed is the generic syndication-backed source executor. One Feed
// handles both wire dialects (item-based RSS and entry-based Atom), detected
// from the document's root element, so individual sources are configuration
// rather than code.
package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/source/util"
)

const userAgent = "jobcast-engine/1.0 (+https://jobcast.local)"

// ProcessFunc lets a source override the default Process step when its feed
// bodies need bespoke handling.
type ProcessFunc func(ctx context.Context, raw domain.RawPosting) (domain.EnrichedPosting, error)

type Feed struct {
	cfg       config.FeedSource
	hc        *http.Client
	limiter   *util.HostLimiter
	processFn ProcessFunc
}

func New(cfg config.FeedSource, limiter *util.HostLimiter) *Feed {
	return &Feed{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

// WithProcessor installs a bespoke Process implementation.
func (f *Feed) WithProcessor(fn ProcessFunc) *Feed {
	f.processFn = fn
	return f
}

func (f *Feed) Name() string { return f.cfg.Name }

func (f *Feed) Fetch(ctx context.Context) ([]domain.RawPosting, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, f.cfg.URL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	req.Header.Set("User-Agent", userAgent)

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("feed status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("feed read: %w", err)
	}

	return f.parse(body)
}

// parse sniffs the root element and decodes whichever dialect the document
// actually is. An unknown root is a parse failure, not an empty feed.
func (f *Feed) parse(body []byte) ([]domain.RawPosting, error) {
	root, err := rootElement(body)
	if err != nil {
		return nil, fmt.Errorf("feed parse: %w", err)
	}

	switch root {
	case "rss", "RDF":
		var doc rssDoc
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("rss decode: %w", err)
		}
		return f.fromRSS(doc), nil
	case "feed":
		var doc atomDoc
		if err := xml.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("atom decode: %w", err)
		}
		return f.fromAtom(doc), nil
	default:
		return nil, fmt.Errorf("unrecognized feed root element %q", root)
	}
}

func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(string(body)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

func (f *Feed) fromRSS(doc rssDoc) []domain.RawPosting {
	items := doc.allItems()
	out := make([]domain.RawPosting, 0, len(items))
	for _, it := range items {
		link := util.CanonicalizeURL(it.Link)
		id := strings.TrimSpace(it.GUID)
		if f.cfg.IDFrom == "link" || id == "" {
			id = link
		}
		if id == "" || strings.TrimSpace(it.Title) == "" {
			continue
		}

		img := it.Enclosure.URL
		if img == "" {
			img = it.Media.URL
		}

		title, employer := splitEmployer(util.CleanText(it.Title), f.cfg.Employer)

		when := it.PubDate
		if strings.TrimSpace(when) == "" {
			when = it.Date
		}

		out = append(out, domain.RawPosting{
			SourceLocalID: f.cfg.Name + ":" + id,
			Title:         title,
			Employer:      employer,
			CanonicalURL:  link,
			PublishedAt:   parseFeedTime(when),
			ImageURL:      strings.TrimSpace(img),
			RawBody:       it.Description,
			SourceName:    f.cfg.Name,
			Categories:    cleanList(it.Categories),
		})
	}
	return out
}

func (f *Feed) fromAtom(doc atomDoc) []domain.RawPosting {
	out := make([]domain.RawPosting, 0, len(doc.Entries))
	for _, en := range doc.Entries {
		link := util.CanonicalizeURL(en.alternateLink())
		id := strings.TrimSpace(en.ID)
		if f.cfg.IDFrom == "link" || id == "" {
			id = link
		}
		if id == "" || strings.TrimSpace(en.Title) == "" {
			continue
		}

		body := en.Content
		if strings.TrimSpace(body) == "" {
			body = en.Summary
		}
		when := en.Published
		if strings.TrimSpace(when) == "" {
			when = en.Updated
		}

		title, employer := splitEmployer(util.CleanText(en.Title), f.cfg.Employer)

		var cats []string
		for _, c := range en.Categories {
			cats = append(cats, c.Term)
		}

		out = append(out, domain.RawPosting{
			SourceLocalID: f.cfg.Name + ":" + id,
			Title:         title,
			Employer:      employer,
			CanonicalURL:  link,
			PublishedAt:   parseFeedTime(when),
			RawBody:       body,
			SourceName:    f.cfg.Name,
			Categories:    cleanList(cats),
		})
	}
	return out
}

// Process for feeds is pure cleanup: the feed already carried the body, so
// no second network call is made.
func (f *Feed) Process(ctx context.Context, raw domain.RawPosting) (domain.EnrichedPosting, error) {
	if f.processFn != nil {
		return f.processFn(ctx, raw)
	}

	body := util.HTMLToText(raw.RawBody)
	ep := domain.EnrichedPosting{
		Title:        raw.Title,
		Employer:     raw.Employer,
		CanonicalURL: raw.CanonicalURL,
		BodyText:     body,
		ImageURL:     raw.ImageURL,
		Contacts:     util.ExtractContacts(body),
		SourceName:   raw.SourceName,
	}
	if !raw.PublishedAt.IsZero() {
		ep.PostedLabel = raw.PublishedAt.Format("2006-01-02")
	}
	if len(raw.Categories) > 0 {
		ep.Category = raw.Categories[0]
	}
	return ep, nil
}

// splitEmployer handles the common "Employer: Job Title" feed convention.
func splitEmployer(title, fixed string) (string, string) {
	if fixed != "" {
		return title, fixed
	}
	if i := strings.Index(title, ": "); i > 0 {
		return util.CleanText(title[i+2:]), util.CleanText(title[:i])
	}
	return title, ""
}

func cleanList(in []string) []string {
	var out []string
	for _, v := range in {
		if v = util.CleanText(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

var feedTimeLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
