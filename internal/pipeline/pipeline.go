// Package pipeline is the orchestrator: one Run fans out fetches, filters
// through the two dedup checks, processes and summarizes each new posting,
// delivers it, and records everything in the run ledger.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/dedup"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/events"
	"jobcast-engine/internal/ledger"
	"jobcast-engine/internal/source"
	"jobcast-engine/internal/summarize"
	"jobcast-engine/internal/telegram"
)

// ErrAlreadyRunning is returned when a trigger races an in-flight run.
var ErrAlreadyRunning = errors.New("a run is already in progress")

// Summarizer produces the channel message for one posting. It never fails;
// inference trouble degrades to the deterministic fallback inside.
type Summarizer interface {
	Summarize(ctx context.Context, ep domain.EnrichedPosting, p config.Prompt) summarize.Result
}

// Deliverer is the messaging channel surface the pipeline needs.
type Deliverer interface {
	Deliver(ctx context.Context, text, imageURL string) (telegram.DeliveryResult, error)
	Broadcast(ctx context.Context, text string) error
}

// Locker serializes runs.
type Locker interface {
	TryAcquire() (bool, error)
	Release() error
}

type Orchestrator struct {
	// CfgVal holds the current config.Config; a config reload swaps it and
	// the next run picks it up.
	CfgVal *atomic.Value

	// BuildSources and BuildSummarizer derive the per-run components from
	// the config snapshot, so reloaded source definitions, prompt overrides,
	// and keyword rules take effect without a restart.
	BuildSources    func(config.Config) *source.Registry
	BuildSummarizer func(config.Config) Summarizer

	Guard     *dedup.Guard
	DB        *sql.DB
	Deliverer Deliverer
	Lock      Locker      // optional
	Hub       *events.Hub // optional

	// Sleep is swappable in tests; defaults to ctx-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration)
}

// snapshot pins the config and its derived components for the duration of
// one run; a reload mid-run waits for the next run.
type snapshot struct {
	cfg        config.Config
	sources    *source.Registry
	summarizer Summarizer
}

func (o *Orchestrator) snapshot() snapshot {
	cfg := o.CfgVal.Load().(config.Config)
	return snapshot{
		cfg:        cfg,
		sources:    o.BuildSources(cfg),
		summarizer: o.BuildSummarizer(cfg),
	}
}

type fetchResult struct {
	name     string
	postings []domain.RawPosting
	err      error
}

// Run executes one full fetch→dedup→process→summarize→deliver cycle.
// Individual source failures and individual posting failures never abort the
// run; only run-level bookkeeping errors do.
func (o *Orchestrator) Run(ctx context.Context, trigger domain.TriggerKind) (domain.RunSummary, error) {
	started := time.Now()

	if o.Lock != nil {
		ok, err := o.Lock.TryAcquire()
		if err != nil {
			return domain.RunSummary{}, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return domain.RunSummary{}, ErrAlreadyRunning
		}
		defer func() { _ = o.Lock.Release() }()
	}

	run, err := ledger.CreateRun(ctx, o.DB, trigger)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("create run record: %w", err)
	}
	o.publish(run.ID, events.TypeRunStarted, map[string]string{"trigger": string(trigger)})
	log.Printf("[pipeline] run %s started trigger=%s", run.ID, trigger)

	summary, runErr := o.execute(ctx, &run, o.snapshot())

	now := time.Now().UTC()
	run.CompletedAt = &now
	if runErr != nil {
		run.Status = domain.RunFailed
		run.Error = runErr.Error()
	} else {
		run.Status = domain.RunCompleted
	}
	if err := ledger.FinalizeRun(ctx, o.DB, run); err != nil {
		log.Printf("[pipeline] run %s: finalize failed: %v", run.ID, err)
	}

	summary.RunID = run.ID
	summary.Status = run.Status
	summary.Duration = time.Since(started)
	summary.PerSource = run.PerSource

	o.report(ctx, run, runErr)
	return summary, runErr
}

func (o *Orchestrator) execute(ctx context.Context, run *domain.RunRecord, snap snapshot) (domain.RunSummary, error) {
	var summary domain.RunSummary

	batch := o.fetchAll(ctx, run, snap)
	run.Fetched = len(batch)
	summary.Fetched = len(batch)

	// Oldest first, so a backlog drains in arrival order instead of newer
	// sources starving older ones.
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].PublishedAt.Before(batch[j].PublishedAt)
	})

	if max := snap.cfg.Pipeline.MaxPostingsPerRun; max > 0 && len(batch) > max {
		log.Printf("[pipeline] run %s: truncating %d postings to %d", run.ID, len(batch), max)
		batch = batch[:max]
	}

	for i, raw := range batch {
		switch o.processOne(ctx, run, snap, raw) {
		case outcomeDelivered:
			run.Delivered++
			// fixed pause between successful deliveries, never after the last
			if i < len(batch)-1 {
				o.sleep(ctx, time.Duration(snap.cfg.Pipeline.DeliveryDelayMS)*time.Millisecond)
			}
		case outcomeSkipped:
			run.Skipped++
		case outcomeFailed:
			run.Failed++
		}
	}

	summary.Delivered = run.Delivered
	summary.Skipped = run.Skipped
	summary.Failed = run.Failed
	return summary, nil
}

// fetchAll fans out every enabled source concurrently and joins on
// all-settled: a slow or failing source cannot cancel or poison the others.
func (o *Orchestrator) fetchAll(ctx context.Context, run *domain.RunRecord, snap snapshot) []domain.RawPosting {
	sources := snap.sources.All()
	results := make(chan fetchResult, len(sources))

	timeout := time.Duration(snap.cfg.Pipeline.FetchTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	var g errgroup.Group
	for _, s := range sources {
		s := s
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			log.Printf("[%s] fetching...", s.Name())
			postings, err := s.Fetch(fctx)
			if err != nil {
				log.Printf("[%s] fetch error: %v", s.Name(), err)
			}
			results <- fetchResult{name: s.Name(), postings: postings, err: err}
			return nil // best-effort: don't cancel siblings
		})
	}
	_ = g.Wait()
	close(results)

	var all []domain.RawPosting
	for res := range results {
		stats := domain.SourceStats{Fetched: len(res.postings)}
		if res.err != nil {
			stats.Error = res.err.Error()
		}
		run.PerSource[res.name] = stats
		all = append(all, res.postings...)
	}
	return all
}

type outcome int

const (
	outcomeDelivered outcome = iota
	outcomeSkipped
	outcomeFailed
)

// processOne contains every per-posting error path, so one bad posting
// never aborts the run.
func (o *Orchestrator) processOne(ctx context.Context, run *domain.RunRecord, snap snapshot, raw domain.RawPosting) outcome {
	// 1. source-local check
	if o.Guard.SeenID(ctx, raw.SourceLocalID) {
		o.recordLedger(ctx, raw, domain.PostingSkipped)
		return outcomeSkipped
	}

	// 2. fuzzy cross-source check; on a hit the source-local record is
	// written too, so this id is never re-evaluated.
	if o.Guard.SeenFuzzy(ctx, raw.Title, raw.Employer) {
		o.recordLedger(ctx, raw, domain.PostingDuplicate)
		rec := domain.DeliveryRecord{DeliveredAt: time.Now().UTC(), Title: raw.Title, Employer: raw.Employer}
		if err := o.Guard.CommitID(ctx, raw.SourceLocalID, rec); err != nil {
			log.Printf("[pipeline] run %s: duplicate id commit failed id=%s err=%v", run.ID, raw.SourceLocalID, err)
		}
		return outcomeSkipped
	}

	src, err := snap.sources.Lookup(raw.SourceName)
	if err != nil {
		log.Printf("[pipeline] run %s: %v", run.ID, err)
		o.recordLedger(ctx, raw, domain.PostingFailed)
		return outcomeFailed
	}

	ep, err := src.Process(ctx, raw)
	if err != nil {
		log.Printf("[pipeline] run %s: process failed id=%s err=%v", run.ID, raw.SourceLocalID, err)
		o.recordLedger(ctx, raw, domain.PostingFailed)
		return outcomeFailed
	}

	o.recordLedger(ctx, raw, domain.PostingFetched)

	prompt := config.ResolvePrompt(snap.cfg, raw.SourceName)
	result := snap.summarizer.Summarize(ctx, ep, prompt)
	ep.Category = result.Category

	res, err := o.Deliverer.Deliver(ctx, result.Summary, ep.ImageURL)
	if err != nil || !res.Success {
		if err != nil {
			log.Printf("[pipeline] run %s: delivery failed id=%s err=%v", run.ID, raw.SourceLocalID, err)
		}
		// no dedup records on failure: the posting retries next run
		if lerr := ledger.AdvancePosting(ctx, o.DB, raw.SourceLocalID, domain.PostingFailed, "", ""); lerr != nil {
			log.Printf("[pipeline] run %s: ledger advance failed id=%s err=%v", run.ID, raw.SourceLocalID, lerr)
		}
		return outcomeFailed
	}

	// commit window: delivery is confirmed, write dedup records with no
	// intervening I/O
	rec := domain.DeliveryRecord{DeliveredAt: time.Now().UTC(), Title: raw.Title, Employer: raw.Employer}
	if err := o.Guard.CommitDelivery(ctx, raw.SourceLocalID, rec); err != nil {
		log.Printf("[pipeline] run %s: dedup commit failed id=%s err=%v (posting may re-deliver)", run.ID, raw.SourceLocalID, err)
	}

	if err := ledger.AdvancePosting(ctx, o.DB, raw.SourceLocalID, domain.PostingPosted, result.Summary, res.MessageID); err != nil {
		log.Printf("[pipeline] run %s: ledger advance failed id=%s err=%v", run.ID, raw.SourceLocalID, err)
	}

	o.publish(run.ID, events.TypePostingDelivered, map[string]string{
		"id":       raw.SourceLocalID,
		"source":   raw.SourceName,
		"category": result.Category,
	})
	return outcomeDelivered
}

// recordLedger is best-effort: ledger archival never blocks the pipeline.
func (o *Orchestrator) recordLedger(ctx context.Context, raw domain.RawPosting, status domain.PostingStatus) {
	_, err := ledger.InsertPostingIfAbsent(ctx, o.DB, domain.PostingLedgerRow{
		ID:       raw.SourceLocalID,
		Source:   raw.SourceName,
		Title:    raw.Title,
		Employer: raw.Employer,
		Status:   status,
	})
	if err != nil {
		log.Printf("[pipeline] ledger insert failed id=%s err=%v", raw.SourceLocalID, err)
	}
}

// report finalizes the operator-facing side of a run: events plus an admin
// broadcast, the latter only when something actually happened.
func (o *Orchestrator) report(ctx context.Context, run domain.RunRecord, runErr error) {
	if runErr != nil {
		o.publish(run.ID, events.TypeRunFailed, map[string]string{"error": runErr.Error()})
		msg := fmt.Sprintf("⚠️ Run %s failed: %v", run.ID, runErr)
		if err := o.Deliverer.Broadcast(ctx, msg); err != nil {
			log.Printf("[pipeline] admin alert failed: %v", err)
		}
		return
	}

	o.publish(run.ID, events.TypeRunCompleted, map[string]int{
		"fetched":   run.Fetched,
		"delivered": run.Delivered,
		"skipped":   run.Skipped,
		"failed":    run.Failed,
	})
	log.Printf("[pipeline] run %s completed fetched=%d delivered=%d skipped=%d failed=%d",
		run.ID, run.Fetched, run.Delivered, run.Skipped, run.Failed)

	// quiet runs stay quiet
	if run.Delivered == 0 && run.Failed == 0 {
		return
	}
	msg := fmt.Sprintf("Run %s: %d fetched, %d delivered, %d skipped, %d failed",
		run.ID, run.Fetched, run.Delivered, run.Skipped, run.Failed)
	if err := o.Deliverer.Broadcast(ctx, msg); err != nil {
		log.Printf("[pipeline] run summary broadcast failed: %v", err)
	}
}

func (o *Orchestrator) publish(runID, typ string, data any) {
	if o.Hub == nil {
		return
	}
	o.Hub.Publish(events.Make(runID, typ, data))
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	if o.Sleep != nil {
		o.Sleep(ctx, d)
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
