// Package tasks defines the background jobs triggered by payment lifecycle
// events and the queue plumbing around them.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-trainer/internal/common"
	"github.com/noah-isme/backend-trainer/internal/events"
	"github.com/noah-isme/backend-trainer/internal/obs"
)

// Task types handled by the worker.
const (
	TypePaymentCompleted = "payment:completed"
	TypePaymentFailed    = "payment:failed"
	TypePaymentRefunded  = "payment:refunded"
)

// QueueDefault is the asynq queue payment tasks are enqueued on.
const QueueDefault = "default"

// PaymentPayload is the task body for every payment task type.
type PaymentPayload struct {
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	ClientEmail string `json:"client_email,omitempty"`
}

var topicTypes = map[string]string{
	events.TopicPaymentCompleted: TypePaymentCompleted,
	events.TopicPaymentFailed:    TypePaymentFailed,
	events.TopicPaymentRefunded:  TypePaymentRefunded,
}

// NewPaymentTask builds the asynq task for an event topic. The task id is
// derived from the payload so provider redeliveries collapse into a single
// queued job.
func NewPaymentTask(topic string, p PaymentPayload) (*asynq.Task, []asynq.Option, error) {
	taskType, ok := topicTypes[topic]
	if !ok {
		return nil, nil, fmt.Errorf("tasks: no task for topic %q", topic)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("tasks: marshal payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.TaskID(common.Sha256Hex(taskType + ":" + p.OrderID + ":" + p.Status)),
		asynq.MaxRetry(5),
	}
	return asynq.NewTask(taskType, body), opts, nil
}

// Enqueuer bridges the in-process event bus to the asynq queue.
type Enqueuer struct {
	Client *asynq.Client
}

// Notify implements events.Notifier.
func (e Enqueuer) Notify(ctx context.Context, ev events.Event) error {
	task, opts, err := NewPaymentTask(ev.Topic, PaymentPayload{
		OrderID:     ev.OrderID,
		PaymentID:   ev.PaymentID,
		Status:      ev.Status,
		ClientEmail: ev.ClientEmail,
	})
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			countTask(task.Type(), "duplicate")
			return nil
		}
		countTask(task.Type(), "enqueue_error")
		return fmt.Errorf("tasks: enqueue %s: %w", task.Type(), err)
	}
	countTask(task.Type(), "enqueued")
	return nil
}

func countTask(taskType, result string) {
	if obs.PaymentHookTasksTotal != nil {
		obs.PaymentHookTasksTotal.WithLabelValues(taskType, result).Inc()
	}
}
