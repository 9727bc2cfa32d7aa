package services

import (
	"context"

	"github.com/you/backoffice/domain"
	"go.uber.org/zap"
)

// ZapAuditLogger writes audit events as structured log lines on a dedicated logger.
type ZapAuditLogger struct {
	logger *zap.Logger
}

func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: logger.Named("audit")}
}

// LogEvent implements domain.AuditLogger
func (a *ZapAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) {
	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Uint("user_id", event.UserID),
		zap.Time("timestamp", event.Timestamp),
		zap.Bool("success", event.Success),
	}
	if event.Feature != "" {
		fields = append(fields, zap.String("feature", event.Feature))
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	if event.ErrorMsg != "" {
		fields = append(fields, zap.String("error", event.ErrorMsg))
		a.logger.Warn("audit", fields...)
		return
	}
	a.logger.Info("audit", fields...)
}

var _ domain.AuditLogger = (*ZapAuditLogger)(nil)
