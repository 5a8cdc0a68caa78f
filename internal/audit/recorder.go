// Package audit records immutable, workspace-scoped entries for every
// state-changing action. Recording is best-effort: it never blocks, fails or
// delays the primary request. Write failures are logged so operators can see
// them.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nerlude/backend/internal/models"
)

const (
	defaultBuffer = 256
	writeTimeout  = 5 * time.Second
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// Publisher fans a written entry out to live subscribers. Optional.
type Publisher interface {
	PublishActivity(workspaceID uuid.UUID, entry *models.AuditLog)
}

// Entry describes one action to record. Old, New and Metadata are marshaled
// to JSON; marshal failures drop the field, not the entry.
type Entry struct {
	WorkspaceID uuid.UUID
	ActorID     uuid.UUID
	Action      string
	EntityType  string
	EntityID    *uuid.UUID
	Old         interface{}
	New         interface{}
	Metadata    map[string]interface{}
}

// Recorder consumes entries from a buffered channel on a single writer
// goroutine. A full buffer drops the entry with a warning rather than
// applying backpressure to request handlers.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	ch        chan *models.AuditLog
	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewRecorder creates and starts a recorder.
func NewRecorder(store Store, publisher Publisher, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		store:     store,
		publisher: publisher,
		logger:    logger,
		ch:        make(chan *models.AuditLog, defaultBuffer),
		done:      make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Record queues an entry for writing. Never blocks.
func (r *Recorder) Record(e Entry) {
	entry := &models.AuditLog{
		WorkspaceID: e.WorkspaceID,
		ActorID:     e.ActorID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		OldData:     marshalField(r.logger, "old_data", e.Old),
		NewData:     marshalField(r.logger, "new_data", e.New),
		Metadata:    marshalField(r.logger, "metadata", e.Metadata),
		CreatedAt:   time.Now(),
	}
	select {
	case r.ch <- entry:
	default:
		r.logger.Warn("audit buffer full, entry dropped",
			zap.String("action", e.Action),
			zap.String("workspace_id", e.WorkspaceID.String()))
	}
}

// Close stops the writer after draining queued entries.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.done) })
	r.wg.Wait()
}

func (r *Recorder) writer() {
	defer r.wg.Done()
	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-r.done:
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *models.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := r.store.Insert(ctx, entry); err != nil {
		r.logger.Error("audit write failed",
			zap.Error(err),
			zap.String("action", entry.Action),
			zap.String("workspace_id", entry.WorkspaceID.String()))
		return
	}
	if r.publisher != nil {
		r.publisher.PublishActivity(entry.WorkspaceID, entry)
	}
}

func marshalField(logger *zap.Logger, name string, v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok && len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("audit field not serializable", zap.String("field", name), zap.Error(err))
		return nil
	}
	return raw
}
