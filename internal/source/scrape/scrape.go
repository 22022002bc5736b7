// Package scrape is the HTML-listing source executor. Like the feed
// executor it is configuration-driven: the listing and detail selectors for
// each board live in config.yml, so a new board is data, not a new type.
package scrape

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/source/util"
)

const userAgent = "jobcast-engine/1.0 (+https://jobcast.local)"

// detailTimeout bounds every detail-page fetch; enrichment must never stall
// a run.
const detailTimeout = 5 * time.Second

type Scraper struct {
	cfg     config.ScrapeSource
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg config.ScrapeSource, limiter *util.HostLimiter) *Scraper {
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return s.cfg.Name }

func (s *Scraper) Fetch(ctx context.Context) ([]domain.RawPosting, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, s.cfg.ListingURL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ListingURL, nil)
	req.Header.Set("User-Agent", userAgent)

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape get listing: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("scrape listing status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape parse listing: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.RawPosting

	doc.Find(s.cfg.Listing.Item).Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find(s.cfg.Listing.Link).First().Attr("href")
		href = util.CanonicalizeURL(util.ResolveURL(s.cfg.ListingURL, href))
		if href == "" {
			return
		}

		title := util.CleanText(item.Find(s.cfg.Listing.Title).First().Text())
		if title == "" {
			title = util.CleanText(item.Find(s.cfg.Listing.Link).First().Text())
		}
		if title == "" {
			return
		}

		id := s.cfg.Name + ":" + util.HashString("url:"+href)
		if seen[id] {
			return
		}
		seen[id] = true

		raw := domain.RawPosting{
			SourceLocalID: id,
			Title:         title,
			CanonicalURL:  href,
			SourceName:    s.cfg.Name,
		}
		if sel := s.cfg.Listing.Employer; sel != "" {
			raw.Employer = util.CleanText(item.Find(sel).First().Text())
		}
		if sel := s.cfg.Listing.Date; sel != "" {
			raw.PublishedAt = s.parseDate(util.CleanText(item.Find(sel).First().Text()))
		}
		if sel := s.cfg.Listing.Image; sel != "" {
			if src, ok := item.Find(sel).First().Attr("src"); ok {
				raw.ImageURL = util.ResolveURL(s.cfg.ListingURL, src)
			}
		}
		out = append(out, raw)
	})

	return out, nil
}

// Process enriches a listing hit from its detail page. Any detail failure
// (transport, parse, or an expired/removed posting) degrades to the listing
// metadata instead of erroring; a posting we saw on the listing is always
// deliverable in some form.
func (s *Scraper) Process(ctx context.Context, raw domain.RawPosting) (domain.EnrichedPosting, error) {
	ep := s.fromRaw(raw)

	if !s.cfg.Detail.Enabled || raw.CanonicalURL == "" {
		return ep, nil
	}

	doc, err := s.fetchDetail(ctx, raw.CanonicalURL)
	if err != nil {
		log.Printf("[scrape:%s] detail fetch failed url=%s err=%v", s.cfg.Name, raw.CanonicalURL, err)
		return ep, nil
	}

	if s.looksExpired(doc) {
		log.Printf("[scrape:%s] detail reports posting gone url=%s", s.cfg.Name, raw.CanonicalURL)
		return ep, nil
	}

	if sel := s.cfg.Detail.Body; sel != "" {
		if h, err := doc.Find(sel).First().Html(); err == nil {
			if body := util.HTMLToText(h); body != "" {
				ep.BodyText = body
			}
		}
	}
	if sel := s.cfg.Detail.Location; sel != "" {
		if v := util.CleanText(doc.Find(sel).First().Text()); v != "" {
			ep.Location = v
		}
	}
	if sel := s.cfg.Detail.Deadline; sel != "" {
		if v := util.CleanText(doc.Find(sel).First().Text()); v != "" {
			ep.DeadlineLabel = v
		}
	}
	if sel := s.cfg.Detail.HowToApply; sel != "" {
		if h, err := doc.Find(sel).First().Html(); err == nil {
			if v := util.HTMLToText(h); v != "" {
				ep.HowToApply = v
			}
		}
	}

	ep.Contacts = util.ExtractContacts(ep.BodyText + "\n" + ep.HowToApply)
	return ep, nil
}

func (s *Scraper) fromRaw(raw domain.RawPosting) domain.EnrichedPosting {
	ep := domain.EnrichedPosting{
		Title:        raw.Title,
		Employer:     raw.Employer,
		CanonicalURL: raw.CanonicalURL,
		BodyText:     util.HTMLToText(raw.RawBody),
		ImageURL:     raw.ImageURL,
		SourceName:   raw.SourceName,
	}
	// Listing-carried contacts must survive even when the detail fetch
	// later degrades.
	ep.Contacts = util.ExtractContacts(ep.BodyText)
	if !raw.PublishedAt.IsZero() {
		ep.PostedLabel = raw.PublishedAt.Format("2006-01-02")
	}
	if len(raw.Categories) > 0 {
		ep.Category = raw.Categories[0]
	}
	return ep
}

func (s *Scraper) fetchDetail(ctx context.Context, pageURL string) (*goquery.Document, error) {
	dctx, cancel := context.WithTimeout(ctx, detailTimeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.WaitURL(dctx, pageURL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(dctx, http.MethodGet, pageURL, nil)
	req.Header.Set("User-Agent", userAgent)

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detail get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("detail status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("detail parse: %w", err)
	}
	return doc, nil
}

func (s *Scraper) looksExpired(doc *goquery.Document) bool {
	if len(s.cfg.Detail.ExpiredMarkers) == 0 {
		return false
	}
	text := strings.ToLower(doc.Text())
	for _, m := range s.cfg.Detail.ExpiredMarkers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func (s *Scraper) parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	layouts := s.cfg.DateLayouts
	if len(layouts) == 0 {
		layouts = []string{"2006-01-02", "02/01/2006", "Jan 2, 2006"}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
