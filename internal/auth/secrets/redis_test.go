package secrets_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/gatehouse/internal/auth/secrets"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniStore(t *testing.T) (*secrets.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := secrets.NewRedis(rdb, "test")
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr
}

func TestRedisGetSetExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniStore(t)

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, secrets.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1"), time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v1", string(got))
	require.True(t, mr.Exists("test:k"), "keys are prefixed")

	mr.FastForward(61 * time.Second)
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestRedisSetOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newMiniStore(t)

	require.NoError(t, s.Set(ctx, "k", []byte("first"), time.Minute))
	require.NoError(t, s.Set(ctx, "k", []byte("second"), time.Minute))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "second", string(got))
}

func TestRedisSetNX(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniStore(t)

	ok, err := s.SetNX(ctx, "k", []byte("a"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, "k", []byte("b"), time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "a", string(got))

	mr.FastForward(2 * time.Minute)
	ok, err = s.SetNX(ctx, "k", []byte("c"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "an expired key can be claimed again")
}

func TestRedisSetNXConcurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := newMiniStore(t)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.SetNX(ctx, "race", []byte("x"), time.Minute)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestRedisTake(t *testing.T) {
	ctx := context.Background()
	s, _ := newMiniStore(t)

	require.NoError(t, s.Set(ctx, "once", []byte("state"), time.Minute))

	got, err := s.Take(ctx, "once")
	require.NoError(t, err)
	require.Equal(t, "state", string(got))

	_, err = s.Take(ctx, "once")
	require.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestRedisIncr(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniStore(t)

	for want := int64(1); want <= 3; want++ {
		n, err := s.Incr(ctx, "attempts", time.Minute)
		require.NoError(t, err)
		require.Equal(t, want, n)
	}

	// TTL is set on creation only, so it is not extended by later increments.
	mr.FastForward(30 * time.Second)
	_, err := s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	n, err := s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, time.Minute, mr.TTL("test:attempts"))
}

func TestRedisIncrHealsCounterWithoutTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniStore(t)

	// A counter left behind without an expiry picks one up on the next bump.
	require.NoError(t, mr.Set("test:attempts", "4"))
	require.Zero(t, mr.TTL("test:attempts"))

	n, err := s.Incr(ctx, "attempts", time.Minute)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
	require.Equal(t, time.Minute, mr.TTL("test:attempts"))

	mr.FastForward(time.Minute)
	require.False(t, mr.Exists("test:attempts"))
}

func TestRedisDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newMiniStore(t)

	require.NoError(t, s.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, s.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))
	require.NoError(t, s.Delete(ctx))

	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, secrets.ErrNotFound)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, secrets.ErrNotFound)
}

func TestRedisBackendFailure(t *testing.T) {
	ctx := context.Background()
	s, mr := newMiniStore(t)

	mr.Close()

	err := s.Ping(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, secrets.ErrBackend))
	require.False(t, errors.Is(err, secrets.ErrNotFound))
}

func TestNewRedisFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := secrets.NewRedisFromURL("redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Set(context.Background(), "raw", []byte("1"), time.Minute))
	require.True(t, mr.Exists("raw"))

	_, err = secrets.NewRedisFromURL("://bad", "")
	require.Error(t, err)
}
