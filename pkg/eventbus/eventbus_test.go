package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/taskgate/pkg/logging"
)

type submitted struct {
	id int64
}

type decided struct {
	id int64
}

func TestPublisher_NoMatchingSubscribersIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.WarnLevel)

	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *submitted) {
		t.Error("should not be called")
	})
	publisher.Publish(&decided{id: 1})

	require.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublisher_DeliversToMatchingHandlers(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got []int64
	publisher.Subscribe(func(e *submitted) { got = append(got, e.id) })
	publisher.Subscribe(func(ctx context.Context, e *submitted) { got = append(got, e.id*10) })

	publisher.Publish(&submitted{id: 3})
	publisher.Publish(context.Background(), &submitted{id: 4})

	require.Equal(t, []int64{3, 40}, got)
}

func TestPublisher_PanicsAreContained(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	publisher := NewEventPublisher(log)
	called := false
	publisher.Subscribe(func(e *submitted) { panic("boom") })
	publisher.Subscribe(func(e *submitted) { called = true })

	require.NotPanics(t, func() { publisher.Publish(&submitted{id: 1}) })
	require.True(t, called)
	require.Contains(t, buf.String(), "boom")
}

func TestPublisher_PublishE(t *testing.T) {
	publisher := NewEventPublisher(nil)
	require.ErrorIs(t, publisher.PublishE(&submitted{}), ErrNoSubscribers)

	sentinel := errors.New("handler failed")
	publisher.Subscribe(func(e *submitted) error { return sentinel })
	publisher.Subscribe(func(e *submitted) error { return nil })
	publisher.Subscribe(func(e *submitted) int { return 1 })

	err := publisher.PublishE(&submitted{id: 1})
	require.ErrorIs(t, err, sentinel)
	require.ErrorIs(t, err, ErrInvalidHandlerReturn)
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	publisher := NewEventPublisher(nil)
	h := func(e *submitted) {}
	publisher.Subscribe(h)
	publisher.Subscribe(func(e *decided) {})
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(h)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	require.Zero(t, publisher.SubscribersCount())
}

func TestMatchSignature(t *testing.T) {
	require.True(t, MatchSignature(func(e *submitted) {}, []any{&submitted{}}))
	require.False(t, MatchSignature(func(e *submitted) {}, []any{&decided{}}))
	require.False(t, MatchSignature(func(e *submitted) {}, []any{}))
	require.False(t, MatchSignature(func(e *submitted) {}, []any{&submitted{}, &submitted{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []any{context.Background()}))
	require.True(t, MatchSignature(func(e *submitted) {}, []any{nil}))
	require.False(t, MatchSignature("not a func", []any{}))
}
