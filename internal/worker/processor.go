// Package worker consumes the side-effect queue: in-app notification rows
// and transactional emails enqueued by request handlers.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/queue"
)

// NotificationStore inserts notification rows.
type NotificationStore interface {
	Create(ctx context.Context, userID uuid.UUID, kind, title, body string) (*models.Notification, error)
}

// Mailer delivers one transactional email.
type Mailer interface {
	Send(ctx context.Context, payload queue.EmailPayload) error
}

// LogMailer logs emails instead of sending them. Used when no delivery
// provider is configured, so reset links still reach operators in dev.
type LogMailer struct {
	Logger *zap.Logger
}

// Send logs the email.
func (m *LogMailer) Send(_ context.Context, payload queue.EmailPayload) error {
	m.Logger.Info("email (log delivery)",
		zap.String("type", payload.EmailType),
		zap.String("recipient", payload.Recipient),
		zap.String("subject", payload.Subject),
		zap.String("body", payload.BodyText))
	return nil
}

// SideEffectProcessor processes queued side-effect jobs.
type SideEffectProcessor struct {
	notifications NotificationStore
	mailer        Mailer
	queue         *queue.Queue
	logger        *zap.Logger
}

// NewSideEffectProcessor creates a side-effect job processor.
func NewSideEffectProcessor(notifications NotificationStore, mailer Mailer, q *queue.Queue, logger *zap.Logger) *SideEffectProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SideEffectProcessor{notifications: notifications, mailer: mailer, queue: q, logger: logger}
}

// Process executes one job.
func (p *SideEffectProcessor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeNotification:
		var payload queue.NotificationPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if _, err := p.notifications.Create(ctx, payload.UserID, payload.Kind, payload.Title, payload.Body); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
		return nil
	case queue.JobTypeEmail:
		var payload queue.EmailPayload
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}
		if err := p.mailer.Send(ctx, payload); err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SideEffectProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("side-effect worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
		}
	}
}
