package httpapi

import (
	"context"
	"database/sql"
	"sync/atomic"

	"jobcast-engine/internal/config"
	"jobcast-engine/internal/dedup"
	"jobcast-engine/internal/domain"
	"jobcast-engine/internal/events"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	Guard *dedup.Guard

	// Atomic store, holds config.Config
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// Pipeline entrypoint (inject for testability)
	TriggerRun func(ctx context.Context, trigger domain.TriggerKind) (domain.RunSummary, error)
}
