package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything worth
// telling the operator about before a run is allowed to start.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	// ---- Defaults ----

	if out.Schedule.RunMinutes <= 0 {
		out.Schedule.RunMinutes = 30
	}
	if out.Pipeline.MaxPostingsPerRun <= 0 {
		out.Pipeline.MaxPostingsPerRun = 10
	}
	if out.Pipeline.DeliveryDelayMS <= 0 {
		out.Pipeline.DeliveryDelayMS = 1000
	}
	if out.Pipeline.DedupTTLDays <= 0 {
		out.Pipeline.DedupTTLDays = 30
	}
	if out.Pipeline.FetchTimeoutSecs <= 0 {
		out.Pipeline.FetchTimeoutSecs = 120
	}
	if out.Inference.MaxAttempts <= 0 {
		out.Inference.MaxAttempts = 3
	}
	if out.Inference.BackoffMS <= 0 {
		out.Inference.BackoffMS = 2000
	}

	// ---- Validation rules ----

	enabled := 0
	seenNames := map[string]bool{}
	for i, f := range out.Sources.Feeds {
		name := strings.TrimSpace(f.Name)
		out.Sources.Feeds[i].Name = name
		if name == "" {
			res.addErr("sources.feeds[%d]: name is required", i)
			continue
		}
		if seenNames[name] {
			res.addErr("duplicate source name %q", name)
		}
		seenNames[name] = true
		if f.Enabled {
			enabled++
			if strings.TrimSpace(f.URL) == "" {
				res.addErr("sources.feeds[%q]: url is required when enabled", name)
			}
		}
	}
	for i, s := range out.Sources.Scrapes {
		name := strings.TrimSpace(s.Name)
		out.Sources.Scrapes[i].Name = name
		if name == "" {
			res.addErr("sources.scrapes[%d]: name is required", i)
			continue
		}
		if seenNames[name] {
			res.addErr("duplicate source name %q", name)
		}
		seenNames[name] = true
		if s.Enabled {
			enabled++
			if strings.TrimSpace(s.ListingURL) == "" {
				res.addErr("sources.scrapes[%q]: listing_url is required when enabled", name)
			}
			if strings.TrimSpace(s.Listing.Item) == "" || strings.TrimSpace(s.Listing.Link) == "" {
				res.addErr("sources.scrapes[%q]: listing.item and listing.link selectors are required", name)
			}
		}
	}
	if enabled == 0 {
		res.addWarn("no sources enabled; runs will fetch nothing")
	}

	if strings.TrimSpace(out.Telegram.ChannelID) == "" {
		res.addErr("telegram.channel_id is required")
	}
	if strings.TrimSpace(out.Inference.Endpoint) == "" {
		res.addWarn("inference.endpoint is empty; every posting will use the non-AI fallback summary")
	}

	if out.Pipeline.DeliveryDelayMS < 500 {
		res.addWarn("pipeline.delivery_delay_ms is very low (%d) and may trip channel rate limits.", out.Pipeline.DeliveryDelayMS)
	}

	// overrides must point at a configured source
	for name := range out.Prompts.Overrides {
		if !seenNames[name] {
			res.addWarn("prompts.overrides has entry for unknown source %q", name)
		}
	}

	for i, r := range out.Categories.KeywordRules {
		if strings.TrimSpace(r.Category) == "" || len(r.Any) == 0 {
			res.addErr("categories.keyword_rules[%d]: category and any[] are required", i)
		}
	}

	return out, res
}
