package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/dedup"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/events"
	"jobcast-engine/internal/httpapi"
	"jobcast-engine/internal/ledger"
	"jobcast-engine/internal/pipeline"
	"jobcast-engine/internal/runlock"
	"jobcast-engine/internal/scheduler"
	"jobcast-engine/internal/secrets"
	"jobcast-engine/internal/source"
	"jobcast-engine/internal/source/feed"
	"jobcast-engine/internal/source/scrape"
	"jobcast-engine/internal/source/util"
	"jobcast-engine/internal/summarize"
	"jobcast-engine/internal/telegram"
)

func main() {
	// Engine data dir: use env if provided, else local folder.
	dataDir := os.Getenv("JOBCAST_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	var cfgVal atomic.Value // stores config.Config
	loadCfg := func() (config.Config, error) {
		return config.Load(userCfgPath)
	}
	raw, err := loadCfg()
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(raw)
	for _, w := range vr.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !vr.OK() {
		for _, e := range vr.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s): %d error(s)", userCfgPath, len(vr.Errors))
	}
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "jobcast.db")
	db, err := ledger.Open(dbPath)
	if err != nil {
		log.Fatalf("ledger open failed (%s): %v", dbPath, err)
	}
	defer db.Close()
	if err := ledger.Migrate(db.Pool); err != nil {
		log.Fatalf("ledger migrate failed: %v", err)
	}

	// Dedup store: redis when configured, in-memory otherwise (single
	// process deployments lose dedup state on restart, which the ledger
	// partially compensates for).
	var store dedup.Store = dedup.NewMemoryStore()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		rs := dedup.NewRedisStore(rdb)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rs.Health(pingCtx)
		cancel()
		if err != nil {
			log.Printf("[main] redis unreachable (%s), dedup state will not survive restarts: %v", cfg.Redis.Addr, err)
		} else {
			store = rs
		}
	} else {
		log.Printf("[main] redis.addr empty, using in-memory dedup store")
	}
	guard := dedup.NewGuard(store, time.Duration(cfg.Pipeline.DedupTTLDays)*24*time.Hour)

	botToken, err := secrets.Get(secrets.AccountBotToken)
	if err != nil {
		log.Fatalf("telegram bot token: %v", err)
	}
	tg, err := telegram.New(telegram.Options{
		Token:       botToken,
		ChannelID:   cfg.Telegram.ChannelID,
		AdminChatID: cfg.Telegram.AdminChatID,
	})
	if err != nil {
		log.Fatalf("telegram client: %v", err)
	}

	// Inference key is optional: without it the adapter serves the
	// deterministic fallback for every posting. The builder re-reads the
	// keyring per run, so a key set over the admin API needs no restart.
	if _, err := secrets.Get(secrets.AccountInferenceKey); err != nil {
		log.Printf("[main] inference key not set, summaries fall back to extracts: %v", err)
	}
	infClient := &http.Client{Timeout: 60 * time.Second}
	buildSummarizer := func(cfg config.Config) pipeline.Summarizer {
		apiKey, _ := secrets.Get(secrets.AccountInferenceKey)
		return summarize.New(summarize.Options{
			Endpoint:     cfg.Inference.Endpoint,
			Model:        cfg.Inference.Model,
			APIKey:       apiKey,
			MaxAttempts:  cfg.Inference.MaxAttempts,
			BackoffBase:  time.Duration(cfg.Inference.BackoffMS) * time.Millisecond,
			KeywordRules: cfg.Categories.KeywordRules,
			Client:       infClient,
		})
	}

	if len(buildSources(cfg).All()) == 0 {
		log.Printf("[main] no sources enabled, runs will deliver nothing")
	}

	hub := events.NewHub()

	// Sources and summarizer are rebuilt from the current config at the
	// start of every run, so /config/reload takes effect without a restart.
	orch := &pipeline.Orchestrator{
		CfgVal:          &cfgVal,
		BuildSources:    buildSources,
		BuildSummarizer: buildSummarizer,
		Guard:           guard,
		DB:              db.Pool,
		Deliverer:       tg,
		Lock:            runlock.New(dataDir),
		Hub:             hub,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.Every(rootCtx, time.Duration(cfg.Schedule.RunMinutes)*time.Minute, "pipeline", func(ctx context.Context) error {
		_, err := orch.Run(ctx, domain.TriggerScheduled)
		if err == pipeline.ErrAlreadyRunning {
			return nil
		}
		return err
	})

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db.Pool,
		Hub:         hub,
		Guard:       guard,
		CfgVal:      &cfgVal,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		TriggerRun:  orch.Run,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("engine listening on http://%s (db=%s)", addr, dbPath)

	srv := &http.Server{
		Handler:           httpapi.Chain(mux, httpapi.Recover, httpapi.RequestID, httpapi.AccessLog, httpapi.Cors),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-rootCtx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Printf("engine stopped")
}

// buildSources turns config into the fetchable source set. One shared
// limiter keeps the engine polite across sources hitting the same host.
func buildSources(cfg config.Config) *source.Registry {
	limiter := util.NewHostLimiter(1, 2)

	var srcs []source.Source
	for _, fc := range cfg.Sources.Feeds {
		if !fc.Enabled {
			continue
		}
		srcs = append(srcs, feed.New(fc, limiter))
	}
	for _, sc := range cfg.Sources.Scrapes {
		if !sc.Enabled {
			continue
		}
		srcs = append(srcs, scrape.New(sc, limiter))
	}
	return source.NewRegistry(srcs...)
}
