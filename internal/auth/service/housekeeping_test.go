package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t)
	u := h.seedUser("ada@example.com")

	codes := h.store.BackupCodes()
	require.NoError(t, codes.CreateBackupCodes(ctx, u.ID, []string{"old", "recent", "unused"}))

	now := h.clock.Now()
	ok, err := codes.ConsumeBackupCode(ctx, u.ID, "old", now.Add(-40*24*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = codes.ConsumeBackupCode(ctx, u.ID, "recent", now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	hk := NewHousekeepingService(h.store, slog.New(slog.NewTextHandler(io.Discard, nil)), time.Minute)
	hk.Now = h.clock.Now

	require.Equal(t, int64(1), hk.Cleanup(ctx))
	require.Equal(t, int64(0), hk.Cleanup(ctx))

	left, err := codes.CountUnusedBackupCodes(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, 1, left)
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	hk := NewHousekeepingService(h.store, slog.New(slog.NewTextHandler(io.Discard, nil)), 0)
	require.Equal(t, time.Hour, hk.Interval)

	hk.Start()
	hk.Stop()
}
