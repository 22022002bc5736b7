package source

import (
	"context"
	"fmt"

	"jobcast-engine/internal/domain"
)

// Source is the capability contract every plugin satisfies.
//
// Fetch returns every posting currently visible at the source. Partial or
// empty results are not an error; Fetch fails only on transport or parse
// failure, which the pipeline treats as "zero postings this run" for that
// source. Process normalizes one raw posting, optionally fetching a detail
// page, and must degrade to the raw metadata rather than error when the
// detail page is missing or expired.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawPosting, error)
	Process(ctx context.Context, raw domain.RawPosting) (domain.EnrichedPosting, error)
}

// Registry resolves a posting back to the plugin that produced it.
type Registry struct {
	byName map[string]Source
	order  []Source
}

func NewRegistry(sources ...Source) *Registry {
	r := &Registry{byName: make(map[string]Source, len(sources))}
	for _, s := range sources {
		if _, dup := r.byName[s.Name()]; dup {
			continue
		}
		r.byName[s.Name()] = s
		r.order = append(r.order, s)
	}
	return r
}

// All returns sources in registration order.
func (r *Registry) All() []Source { return r.order }

func (r *Registry) Lookup(name string) (Source, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("no source registered for %q", name)
	}
	return s, nil
}
