package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/models"
	"github.com/nerlude/backend/pkg/queue"
)

type fakeNotificationStore struct {
	created []models.Notification
	err     error
}

func (s *fakeNotificationStore) Create(_ context.Context, userID uuid.UUID, kind, title, body string) (*models.Notification, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := models.Notification{ID: uuid.New(), UserID: userID, Kind: kind, Title: title, Body: body}
	s.created = append(s.created, n)
	return &n, nil
}

type fakeMailer struct {
	sent []queue.EmailPayload
	err  error
}

func (m *fakeMailer) Send(_ context.Context, payload queue.EmailPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, payload)
	return nil
}

func job(t *testing.T, jobType queue.JobType, payload interface{}) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &queue.Job{ID: uuid.New().String(), Type: jobType, Payload: raw}
}

func TestProcessNotificationJob(t *testing.T) {
	store := &fakeNotificationStore{}
	p := NewSideEffectProcessor(store, &fakeMailer{}, nil, zap.NewNop())

	userID := uuid.New()
	err := p.Process(context.Background(), job(t, queue.JobTypeNotification, queue.NotificationPayload{
		UserID: userID,
		Kind:   "workspace_invitation",
		Title:  "You have been invited",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(store.created))
	}
	if store.created[0].UserID != userID || store.created[0].Kind != "workspace_invitation" {
		t.Errorf("notification = %+v", store.created[0])
	}
}

func TestProcessEmailJob(t *testing.T) {
	mailer := &fakeMailer{}
	p := NewSideEffectProcessor(&fakeNotificationStore{}, mailer, nil, zap.NewNop())

	err := p.Process(context.Background(), job(t, queue.JobTypeEmail, queue.EmailPayload{
		EmailType: "password_reset",
		Recipient: "user@example.com",
		Subject:   "Reset your password",
	}))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].Recipient != "user@example.com" {
		t.Errorf("sent = %+v", mailer.sent)
	}
}

func TestProcessUnknownJobType(t *testing.T) {
	p := NewSideEffectProcessor(&fakeNotificationStore{}, &fakeMailer{}, nil, zap.NewNop())
	err := p.Process(context.Background(), &queue.Job{ID: "x", Type: "mystery"})
	if err == nil {
		t.Fatal("want error for unknown job type")
	}
}

func TestProcessStoreErrorPropagates(t *testing.T) {
	store := &fakeNotificationStore{err: errors.New("insert failed")}
	p := NewSideEffectProcessor(store, &fakeMailer{}, nil, zap.NewNop())

	err := p.Process(context.Background(), job(t, queue.JobTypeNotification, queue.NotificationPayload{UserID: uuid.New()}))
	if err == nil {
		t.Fatal("want error so the job is retried")
	}
}
