package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobcast-engine/internal/domain"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("store down")
}
func (failingStore) Put(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}
func (failingStore) Delete(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 20*time.Millisecond))

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	time.Sleep(30 * time.Millisecond)

	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v, "expired key should read as absent")
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "k", []byte("v"), 0))

	ok, err := s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "second delete finds nothing")
}

func TestGuardCommitAndSeen(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(NewMemoryStore(), time.Hour)

	assert.False(t, g.SeenID(ctx, "board:1"))
	assert.False(t, g.SeenFuzzy(ctx, "Nurse", "Clinic"))

	rec := domain.DeliveryRecord{
		DeliveredAt: time.Now().UTC(),
		Title:       "Nurse",
		Employer:    "Clinic",
	}
	require.NoError(t, g.CommitDelivery(ctx, "board:1", rec))

	assert.True(t, g.SeenID(ctx, "board:1"))
	assert.True(t, g.SeenFuzzy(ctx, "Nurse", "Clinic"))
	assert.True(t, g.SeenFuzzy(ctx, "NURSE!", "clinic"), "fuzzy match ignores casing and punctuation")
	assert.False(t, g.SeenID(ctx, "otherboard:9"), "other source ids stay unseen")
}

func TestGuardCommitIDOnly(t *testing.T) {
	// A fuzzy duplicate gets its own source-local record but must not
	// create a fuzzy entry of its own.
	ctx := context.Background()
	store := NewMemoryStore()
	g := NewGuard(store, time.Hour)

	rec := domain.DeliveryRecord{DeliveredAt: time.Now().UTC(), Title: "Teacher", Employer: "School"}
	require.NoError(t, g.CommitID(ctx, "board:7", rec))

	assert.True(t, g.SeenID(ctx, "board:7"))
	assert.False(t, g.SeenFuzzy(ctx, "Teacher", "School"))

	// The stored value is a full DeliveryRecord.
	v, err := store.Get(ctx, "posting:board:7")
	require.NoError(t, err)
	var got domain.DeliveryRecord
	require.NoError(t, json.Unmarshal(v, &got))
	assert.Equal(t, "Teacher", got.Title)
	assert.Equal(t, "School", got.Employer)
}

func TestGuardClear(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(NewMemoryStore(), time.Hour)

	rec := domain.DeliveryRecord{DeliveredAt: time.Now().UTC(), Title: "Clerk", Employer: "Shop"}
	require.NoError(t, g.CommitDelivery(ctx, "board:3", rec))
	require.True(t, g.SeenID(ctx, "board:3"))

	removed, err := g.Clear(ctx, "board:3")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, g.SeenID(ctx, "board:3"))

	// Clear only touches the source-local record.
	assert.True(t, g.SeenFuzzy(ctx, "Clerk", "Shop"))
}

func TestGuardFailedReadsMeanNotSeen(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(failingStore{}, time.Hour)

	assert.False(t, g.SeenID(ctx, "board:1"))
	assert.False(t, g.SeenFuzzy(ctx, "Nurse", "Clinic"))
}
