// Package audit defines the security events emitted by the authentication
// core and the sinks that receive them. The core only produces events;
// durability and shipping are a sink concern.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// Event types.
const (
	EventLogin             = "auth.login"
	EventMFAVerify         = "auth.mfa.verify"
	EventSSO               = "auth.sso"
	EventRefresh           = "auth.refresh"
	EventLogout            = "auth.logout"
	EventEnrollmentStarted = "mfa.enrollment.started"
	EventMFAEnabled        = "mfa.enabled"
	EventMFADisabled       = "mfa.disabled"
)

type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	UserID    string            `json:"userId,omitempty"`
	TenantID  string            `json:"tenantId,omitempty"`
	Method    string            `json:"method,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives audit events. Emit must not block the caller for long and
// must be safe for concurrent use.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// Emit fills in timestamp and request source from ctx, then forwards the event.
func Emit(ctx context.Context, sink Sink, event Event) {
	if sink == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if src, ok := sourceFromContext(ctx); ok {
		if event.IP == "" {
			event.IP = src.ip
		}
		if event.UserAgent == "" {
			event.UserAgent = src.userAgent
		}
	}
	sink.Emit(ctx, event)
}

type NoopSink struct{}

func (NoopSink) Emit(context.Context, Event) {}

// LogSink writes events through the request logger under the "audit" group.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, e Event) {
	logger := slogx.FromContext(ctx)

	attrs := []any{
		slog.String("type", e.Type),
		slog.Bool("success", e.Success),
		slog.Time("at", e.Timestamp),
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.TenantID != "" {
		attrs = append(attrs, slog.String("tenant_id", e.TenantID))
	}
	if e.Method != "" {
		attrs = append(attrs, slog.String("method", e.Method))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if e.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", e.UserAgent))
	}
	if e.Reason != "" {
		attrs = append(attrs, slog.String("reason", e.Reason))
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}

	level := slog.LevelInfo
	if !e.Success {
		level = slog.LevelWarn
	}
	logger.Log(ctx, level, "audit event", slog.Group("audit", attrs...))
}

// ChannelSink buffers events on a channel. Used by tests and by callers that
// ship events asynchronously.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Emit drops the event when the buffer is full.
func (s *ChannelSink) Emit(_ context.Context, e Event) {
	select {
	case s.events <- e:
	default:
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// Drain returns the buffered events without blocking.
func (s *ChannelSink) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-s.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

// MultiSink fans an event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, e)
		}
	}
}
