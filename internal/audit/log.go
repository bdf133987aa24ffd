// Package audit emits an append-only log of security-relevant actions:
// logins, logouts, registrations, role changes and deactivations.
package audit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"askhub.org/internal/auth"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

var (
	mu     sync.RWMutex
	logger = zap.NewNop()
)

// Init sets the logger audit entries are written to.
func Init(l *zap.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// WithRequestID attaches the request identifier to the context for audit
// logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit entry enriched with request and actor context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
		zap.Time("occurred_at", time.Now().UTC()),
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry = append(entry, zap.String("request_id", rid))
	}
	if principal, ok := auth.PrincipalFromContext(ctx); ok {
		entry = append(entry, zap.String("actor", principal.Subject), zap.String("actor_role", principal.Role.String()))
	}
	if len(fields) > 0 {
		entry = append(entry, zap.Any("fields", fields))
	}

	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Info(event, entry...)
	return nil
}
