package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	got []Event
	err error
}

func (n *captureNotifier) Notify(_ context.Context, ev Event) error {
	n.got = append(n.got, ev)
	return n.err
}

func TestBusEmitDeliversToAll(t *testing.T) {
	a := &captureNotifier{}
	b := &captureNotifier{}
	bus := &Bus{Notifiers: []Notifier{a, b}}

	err := bus.Emit(context.Background(), Event{
		Topic:   TopicPaymentCompleted,
		OrderID: "TP_1_abc",
		Status:  "completed",
	})
	require.NoError(t, err)
	require.Len(t, a.got, 1)
	require.Len(t, b.got, 1)
	require.Equal(t, TopicPaymentCompleted, a.got[0].Topic)
	require.False(t, a.got[0].OccurredAt.IsZero())
}

func TestBusEmitContinuesPastFailures(t *testing.T) {
	failing := &captureNotifier{err: errors.New("queue down")}
	healthy := &captureNotifier{}
	bus := &Bus{Notifiers: []Notifier{failing, healthy}}

	err := bus.Emit(context.Background(), Event{Topic: TopicPaymentFailed, OrderID: "TP_2_def"})
	require.Error(t, err)
	require.Len(t, healthy.got, 1)
}

func TestNilBusEmit(t *testing.T) {
	var bus *Bus
	require.NoError(t, bus.Emit(context.Background(), Event{Topic: TopicPaymentRefunded}))
}
