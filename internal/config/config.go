// engine/internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource configures one syndication-backed source.
type FeedSource struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Enabled  bool   `yaml:"enabled"`
	IDFrom   string `yaml:"id_from"`  // guid | link (default guid, falls back to link)
	Employer string `yaml:"employer"` // fixed employer when the feed carries none
}

// ScrapeSource configures one HTML-listing source. Selectors are goquery
// expressions; Detail selectors are applied to the posting page.
type ScrapeSource struct {
	Name       string `yaml:"name"`
	ListingURL string `yaml:"listing_url"`
	Enabled    bool   `yaml:"enabled"`

	Listing struct {
		Item     string `yaml:"item"`
		Title    string `yaml:"title"`
		Link     string `yaml:"link"` // anchor selector; href becomes the canonical url
		Employer string `yaml:"employer"`
		Date     string `yaml:"date"`
		Image    string `yaml:"image"` // src attr
	} `yaml:"listing"`

	Detail struct {
		Enabled        bool     `yaml:"enabled"`
		Body           string   `yaml:"body"`
		Location       string   `yaml:"location"`
		Deadline       string   `yaml:"deadline"`
		HowToApply     string   `yaml:"how_to_apply"`
		ExpiredMarkers []string `yaml:"expired_markers"` // substrings meaning the posting is gone
	} `yaml:"detail"`

	DateLayouts []string `yaml:"date_layouts"`
}

// PromptOverride layers per-source prompt settings over the compiled defaults.
type PromptOverride struct {
	Hint            string   `yaml:"hint"`
	IncludeContacts *bool    `yaml:"include_contacts"`
	Categories      []string `yaml:"categories"`
	Language        string   `yaml:"language"`
}

// KeywordRule maps title/body keywords to a category. Rules are checked in
// order; the first hit wins, so specific categories go before catch-alls.
type KeywordRule struct {
	Category string   `yaml:"category"`
	Any      []string `yaml:"any"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Schedule struct {
		RunMinutes int `yaml:"run_minutes"`
	} `yaml:"schedule"`

	Pipeline struct {
		MaxPostingsPerRun int `yaml:"max_postings_per_run"`
		DeliveryDelayMS   int `yaml:"delivery_delay_ms"`
		DedupTTLDays      int `yaml:"dedup_ttl_days"`
		FetchTimeoutSecs  int `yaml:"fetch_timeout_seconds"`
	} `yaml:"pipeline"`

	Redis struct {
		Addr string `yaml:"addr"`
		DB   int    `yaml:"db"`
	} `yaml:"redis"`

	Telegram struct {
		ChannelID   string `yaml:"channel_id"`
		AdminChatID string `yaml:"admin_chat_id"`
	} `yaml:"telegram"`

	Inference struct {
		Endpoint    string `yaml:"endpoint"`
		Model       string `yaml:"model"`
		MaxAttempts int    `yaml:"max_attempts"`
		BackoffMS   int    `yaml:"backoff_ms"`
	} `yaml:"inference"`

	Sources struct {
		Feeds   []FeedSource   `yaml:"feeds"`
		Scrapes []ScrapeSource `yaml:"scrapes"`
	} `yaml:"sources"`

	Prompts struct {
		Overrides map[string]PromptOverride `yaml:"overrides"`
	} `yaml:"prompts"`

	Categories struct {
		KeywordRules []KeywordRule `yaml:"keyword_rules"`
	} `yaml:"categories"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
