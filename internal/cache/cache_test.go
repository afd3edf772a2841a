package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAsideMissThenHit(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *[]string) func() error {
		return func() error {
			calls++
			*dest = []string{"golang", "testing"}
			return nil
		}
	}

	var got []string
	err := Aside(ctx, TrendingHashtagsKey(10, 24), &got, TrendingTTL, fetch(&got))
	require.NoError(t, err)
	assert.Equal(t, []string{"golang", "testing"}, got)
	assert.Equal(t, 1, calls)

	// Second read must come from the cache.
	var again []string
	err = Aside(ctx, TrendingHashtagsKey(10, 24), &again, TrendingTTL, fetch(&again))
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, calls)
}

func TestAsideFetchError(t *testing.T) {
	setupMiniredis(t)

	var dest int
	wantErr := errors.New("db down")
	err := Aside(context.Background(), "some:key", &dest, time.Minute, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestAsideCorruptEntryTreatedAsMiss(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("k", "{not json"))

	var dest string
	err := Aside(ctx, "k", &dest, time.Minute, func() error {
		dest = "fetched"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fetched", dest)

	// The bad entry was replaced, so the next read is a clean hit.
	var again string
	found, err := GetJSON(ctx, "k", &again)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fetched", again)
}

func TestAsideExpiry(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	var dest string
	fetch := func() error {
		calls++
		dest = "v"
		return nil
	}

	require.NoError(t, Aside(ctx, "k", &dest, time.Minute, fetch))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, Aside(ctx, "k", &dest, time.Minute, fetch))
	assert.Equal(t, 2, calls)
}

func TestInvalidate(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, UserKey(7), map[string]int{"id": 7}, UserTTL))
	InvalidateUser(ctx, 7)

	var dest map[string]int
	found, err := GetJSON(ctx, UserKey(7), &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNilClientIsNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	var dest string
	found, err := GetJSON(ctx, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)

	// Aside degrades to a plain fetch.
	err = Aside(ctx, "k", &dest, time.Minute, func() error {
		dest = "fetched"
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "fetched", dest)
}
