package session

import (
	"bitwise74/trackbook/repository"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	got, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, got.SelectedIDs)
	assert.Empty(t, got.Filter.Labels)

	got.Select(3, 1, 3)
	got.Filter = repository.Filter{DateFrom: "2024-01-01", Labels: []string{"hike"}}
	require.NoError(t, s.Save(ctx, "abc", got))

	again, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, again.SelectedIDs)
	assert.Equal(t, "2024-01-01", again.Filter.DateFrom)
	assert.Equal(t, []string{"hike"}, again.Filter.Labels)

	other, err := s.Get(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, other.SelectedIDs)

	require.NoError(t, s.Delete(ctx, "abc"))
	gone, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Empty(t, gone.SelectedIDs)

	_, err = s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestMemory_Store(t *testing.T) {
	exerciseStore(t, NewMemory(time.Hour))
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Save(ctx, "s", &State{SelectedIDs: []int64{7}}))

	now = now.Add(30 * time.Second)
	got, err := m.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, got.SelectedIDs)

	now = now.Add(2 * time.Minute)
	got, err = m.Get(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, got.SelectedIDs)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory(0)
	require.NoError(t, m.Save(ctx, "s", &State{SelectedIDs: []int64{1, 2}}))

	got, err := m.Get(ctx, "s")
	require.NoError(t, err)
	got.SelectedIDs[0] = 99

	again, err := m.Get(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, again.SelectedIDs)
}

func TestRedis_Store(t *testing.T) {
	mr := miniredis.RunT(t)

	r := &Redis{
		C:   redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		TTL: time.Hour,
	}
	exerciseStore(t, r)

	require.NoError(t, r.Save(ctx, "ttl", &State{SelectedIDs: []int64{1}}))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"ttl"))

	mr.FastForward(2 * time.Hour)
	got, err := r.Get(ctx, "ttl")
	require.NoError(t, err)
	assert.Empty(t, got.SelectedIDs)
}

func TestRedis_UndecodableValue(t *testing.T) {
	mr := miniredis.RunT(t)

	r := &Redis{
		C:   redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		TTL: time.Hour,
	}

	require.NoError(t, mr.Set(keyPrefix+"broken", "{not json"))

	got, err := r.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, emptyState(), got)

	got.Select(4)
	require.NoError(t, r.Save(ctx, "broken", got))

	got, err = r.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, got.SelectedIDs)
}

func TestState_Pruning(t *testing.T) {
	s := &State{SelectedIDs: []int64{1, 2, 3}, Filter: repository.Filter{Labels: []string{"a", "gone"}}}

	assert.True(t, s.PruneSelection([]int64{3, 1, 9}))
	assert.Equal(t, []int64{1, 3}, s.SelectedIDs)
	assert.False(t, s.PruneSelection([]int64{1, 3}))

	s.Deselect(1)
	assert.Equal(t, []int64{3}, s.SelectedIDs)

	assert.True(t, s.PruneLabels([]string{"a", "b"}))
	assert.Equal(t, []string{"a"}, s.Filter.Labels)
}
