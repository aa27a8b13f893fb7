package authui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiActivitySink(t *testing.T) {
	var first, second []ActivityEvent
	failing := errors.New("store down")

	sink := MultiActivitySink(
		ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
			first = append(first, e)
			return failing
		}),
		nil,
		ActivitySinkFunc(func(_ context.Context, e ActivityEvent) error {
			second = append(second, e)
			return nil
		}),
	)

	err := sink.Record(context.Background(), ActivityEvent{EventType: ActivityEventSignup, Email: "a@example.com"})
	require.ErrorIs(t, err, failing)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, ActivityEventSignup, second[0].EventType)
	assert.False(t, second[0].OccurredAt.IsZero())
}

func TestNormalizeActivitySink(t *testing.T) {
	assert.NoError(t, normalizeActivitySink(nil).Record(context.Background(), ActivityEvent{}))

	var nilFunc ActivitySinkFunc
	assert.NoError(t, nilFunc.Record(context.Background(), ActivityEvent{}))
}
