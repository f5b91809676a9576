package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vendora/vendora-edge/internal/models"
)

var redactKeys = map[string]struct{}{
	"password": {},
	"token":    {},
	"access":   {},
	"refresh":  {},
	"card":     {},
	"cvv":      {},
	"pin":      {},
}

type AuditStore interface {
	Store(ctx context.Context, event models.AuditEvent) error
}

// AuditService records session lifecycle events. A nil *AuditService is a
// valid no-op recorder.
type AuditService struct {
	store     AuditStore
	retention time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

func NewAuditService(store AuditStore, retention time.Duration, logger *logrus.Logger) *AuditService {
	return &AuditService{
		store:     store,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

// Record persists the event. Failures are logged and never reach the caller.
func (s *AuditService) Record(ctx context.Context, event models.AuditEvent) {
	if s == nil || s.store == nil {
		return
	}

	now := s.now().UTC()
	event.ID = uuid.New().String()
	event.CreatedAt = now
	event.ExpiresAt = now.Add(s.retention)
	event.Meta = SanitizeMeta(event.Meta)

	if err := s.store.Store(ctx, event); err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Error("Failed to record audit event")
	}
}

func SanitizeMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if _, ok := redactKeys[strings.ToLower(k)]; ok {
			out[k] = "***"
			continue
		}
		out[k] = v
	}
	return out
}
