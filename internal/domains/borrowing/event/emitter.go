package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/shared"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Emitter publishes lifecycle events. It satisfies service.Emitter.
type Emitter interface {
	Emit(ctx context.Context, event model.Event) error
}

// =====================================================
// PAYLOAD CODEC
// =====================================================

func Marshal(event model.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal borrowing event: %w", err)
	}
	return data, nil
}

func Unmarshal(data []byte) (model.Event, error) {
	var event model.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return model.Event{}, fmt.Errorf("unmarshal borrowing event: %w", err)
	}
	return event, nil
}

// NewTask wraps an event into the asynq task consumed by the notification worker
func NewTask(event model.Event) (*asynq.Task, error) {
	payload, err := Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(shared.TypeBorrowingEvent, payload), nil
}

// =====================================================
// ASYNQ EMITTER
// =====================================================

// Enqueuer is the part of *asynq.Client the emitter uses
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type AsynqEmitter struct {
	client Enqueuer
}

func NewAsynqEmitter(client Enqueuer) *AsynqEmitter {
	return &AsynqEmitter{client: client}
}

func (e *AsynqEmitter) Emit(ctx context.Context, event model.Event) error {
	task, err := NewTask(event)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueNotifications),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue borrowing event: %w", err)
	}

	log.Debug().
		Str("task_id", info.ID).
		Str("kind", string(event.Kind)).
		Str("borrowing_id", event.BorrowingID.String()).
		Msg("Borrowing event enqueued")

	return nil
}

// =====================================================
// LOG EMITTER
// =====================================================

// LogEmitter writes events to the log. Used when no worker is deployed.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event model.Event) error {
	log.Info().
		Str("kind", string(event.Kind)).
		Str("borrowing_id", event.BorrowingID.String()).
		Str("user_id", event.UserID.String()).
		Str("book_id", event.BookID.String()).
		Msg("Borrowing event")
	return nil
}

// =====================================================
// FAN-OUT
// =====================================================

type multi []Emitter

// Multi calls every emitter in order and joins their errors
func Multi(emitters ...Emitter) Emitter {
	return multi(emitters)
}

func (m multi) Emit(ctx context.Context, event model.Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
