// Package domain holds the types shared across the ingestion pipeline.
package domain

import "time"

// RawPosting is what a source fetch yields: just enough to decide whether
// the posting is new, plus whatever the source already knows about it.
type RawPosting struct {
	// SourceLocalID is stable per source ("<source>:<native id>") and is
	// the dedup key for the exact-match layer.
	SourceLocalID string `json:"source_local_id"`

	Title        string    `json:"title"`
	Employer     string    `json:"employer"`
	CanonicalURL string    `json:"canonical_url"`
	PublishedAt  time.Time `json:"published_at"`
	ImageURL     string    `json:"image_url,omitempty"`

	// RawBody is the unprocessed description (HTML for feeds, empty for
	// listing-only scrapes until the detail page is fetched).
	RawBody string `json:"raw_body,omitempty"`

	SourceName string   `json:"source_name"`
	Categories []string `json:"categories,omitempty"`
}

// EnrichedPosting is a RawPosting after source-specific processing:
// cleaned text, detail-page fields, extracted contacts.
type EnrichedPosting struct {
	Title         string   `json:"title"`
	Employer      string   `json:"employer"`
	CanonicalURL  string   `json:"canonical_url"`
	BodyText      string   `json:"body_text"`
	ImageURL      string   `json:"image_url,omitempty"`
	Location      string   `json:"location,omitempty"`
	PostedLabel   string   `json:"posted_label,omitempty"`
	DeadlineLabel string   `json:"deadline_label,omitempty"`
	HowToApply    string   `json:"how_to_apply,omitempty"`
	Contacts      []string `json:"contacts,omitempty"`
	SourceName    string   `json:"source_name"`
	Category      string   `json:"category,omitempty"`
}

// DeliveryRecord is the value stored against a dedup key once a posting
// has been delivered.
type DeliveryRecord struct {
	DeliveredAt time.Time `json:"delivered_at"`
	Title       string    `json:"title"`
	Employer    string    `json:"employer"`
}
