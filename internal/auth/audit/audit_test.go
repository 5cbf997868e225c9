package audit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/aussiebroadwan/gatehouse/internal/auth/audit"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestEmitFillsTimestampAndSource(t *testing.T) {
	sink := audit.NewChannelSink(4)
	ctx := audit.WithSource(context.Background(), "203.0.113.7", "curl/8")

	audit.Emit(ctx, sink, audit.Event{Type: audit.EventLogin, UserID: "u1", Success: true})

	events := sink.Drain()
	require.Len(t, events, 1)
	e := events[0]
	require.Equal(t, audit.EventLogin, e.Type)
	require.False(t, e.Timestamp.IsZero())
	require.Equal(t, "203.0.113.7", e.IP)
	require.Equal(t, "curl/8", e.UserAgent)
}

func TestEmitNilSink(t *testing.T) {
	require.NotPanics(t, func() {
		audit.Emit(context.Background(), nil, audit.Event{Type: audit.EventLogout})
	})
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	sink := audit.NewChannelSink(1)
	sink.Emit(context.Background(), audit.Event{Type: "a"})
	sink.Emit(context.Background(), audit.Event{Type: "b"})

	events := sink.Drain()
	require.Len(t, events, 1)
	require.Equal(t, "a", events[0].Type)
	require.Empty(t, sink.Drain())
}

func TestLogSinkWritesAuditGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := slogx.WithContext(context.Background(), logger)

	audit.Emit(ctx, audit.LogSink{}, audit.Event{
		Type:    audit.EventLogin,
		UserID:  "u1",
		Success: false,
		Reason:  "bad_password",
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "WARN", line["level"])

	group, ok := line["audit"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, audit.EventLogin, group["type"])
	require.Equal(t, "u1", group["user_id"])
	require.Equal(t, "bad_password", group["reason"])
}

func TestMultiSink(t *testing.T) {
	a, b := audit.NewChannelSink(1), audit.NewChannelSink(1)
	audit.MultiSink{a, nil, b}.Emit(context.Background(), audit.Event{Type: audit.EventRefresh})

	require.Len(t, a.Drain(), 1)
	require.Len(t, b.Drain(), 1)
}
