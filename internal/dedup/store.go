package dedup

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"jobcast-engine/internal/domain"
)

// Store is the durable key-value surface the dedup layer sits on. Get
// returns nil for an absent (or expired) key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

const (
	postingPrefix = "posting:"
	fuzzyPrefix   = "fuzzy:"
)

// Guard runs the two idempotency checks and the post-delivery commit. Reads
// that fail are treated as "not seen": an occasional re-delivery beats
// silently dropping postings when the store is down.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Guard{store: store, ttl: ttl}
}

// SeenID reports whether a DeliveryRecord exists for this source-local id.
func (g *Guard) SeenID(ctx context.Context, id string) bool {
	v, err := g.store.Get(ctx, postingPrefix+id)
	if err != nil {
		log.Printf("[dedup] id read failed key=%q err=%v (treating as not seen)", id, err)
		return false
	}
	return v != nil
}

// SeenFuzzy reports whether any source already delivered a posting with this
// normalized (title, employer) identity.
func (g *Guard) SeenFuzzy(ctx context.Context, title, employer string) bool {
	key := FuzzyKey(title, employer)
	v, err := g.store.Get(ctx, fuzzyPrefix+key)
	if err != nil {
		log.Printf("[dedup] fuzzy read failed key=%q err=%v (treating as not seen)", key, err)
		return false
	}
	return v != nil
}

// CommitDelivery writes both records after a confirmed delivery: the
// source-local DeliveryRecord first, then the fuzzy identity. The two puts
// are not atomic; a crash in between is an accepted narrow window.
func (g *Guard) CommitDelivery(ctx context.Context, id string, rec domain.DeliveryRecord) error {
	if err := g.CommitID(ctx, id, rec); err != nil {
		return err
	}
	stamp := []byte(rec.DeliveredAt.UTC().Format(time.RFC3339))
	return g.store.Put(ctx, fuzzyPrefix+FuzzyKey(rec.Title, rec.Employer), stamp, g.ttl)
}

// CommitID writes only the source-local record. Used for fuzzy duplicates,
// so the same source-local posting is not re-evaluated on later runs.
func (g *Guard) CommitID(ctx context.Context, id string, rec domain.DeliveryRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return g.store.Put(ctx, postingPrefix+id, b, g.ttl)
}

// Clear removes the source-local record for id; the operator's manual
// re-delivery lever.
func (g *Guard) Clear(ctx context.Context, id string) (bool, error) {
	return g.store.Delete(ctx, postingPrefix+id)
}
