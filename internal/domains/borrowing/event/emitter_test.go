package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/shared"
)

func sampleEvent() model.Event {
	reason := "lost card"
	return model.Event{
		Kind:        model.EventRejected,
		BorrowingID: uuid.New(),
		UserID:      uuid.New(),
		BookID:      uuid.New(),
		Reason:      &reason,
		EndDate:     "2024-03-10",
		OccurredAt:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestNewTask_RoundTrip(t *testing.T) {
	e := sampleEvent()

	task, err := NewTask(e)
	require.NoError(t, err)
	assert.Equal(t, shared.TypeBorrowingEvent, task.Type())

	decoded, err := Unmarshal(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, e, decoded)

	_, err = Unmarshal([]byte("{"))
	assert.Error(t, err)
}

type fakeEnqueuer struct {
	task *asynq.Task
	opts []asynq.Option
	err  error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.task, f.opts = task, opts
	return &asynq.TaskInfo{ID: "task-1", Queue: shared.QueueNotifications}, nil
}

func TestAsynqEmitter(t *testing.T) {
	q := &fakeEnqueuer{}
	require.NoError(t, NewAsynqEmitter(q).Emit(context.Background(), sampleEvent()))

	require.NotNil(t, q.task)
	assert.Equal(t, shared.TypeBorrowingEvent, q.task.Type())

	var queue string
	for _, opt := range q.opts {
		if opt.Type() == asynq.QueueOpt {
			queue, _ = opt.Value().(string)
		}
	}
	assert.Equal(t, shared.QueueNotifications, queue)

	failing := &fakeEnqueuer{err: errors.New("redis down")}
	assert.Error(t, NewAsynqEmitter(failing).Emit(context.Background(), sampleEvent()))
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &Recorder{}
	broken := &Recorder{Err: errors.New("boom")}

	err := Multi(broken, ok, LogEmitter{}).Emit(context.Background(), sampleEvent())

	assert.ErrorIs(t, err, broken.Err)
	assert.Len(t, ok.Events(), 1, "a failing emitter does not stop the others")
	assert.Equal(t, 1, broken.Count(model.EventRejected))
}
