package queue_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/outreachq/pkg/queue"
)

func TestNewTaskHandler(t *testing.T) {
	t.Parallel()

	t.Run("name derives from payload type", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(ctx context.Context, p testPayload) (any, error) {
			return nil, nil
		})
		assert.Equal(t, "queue_test.testPayload", h.Name())
	})

	t.Run("unmarshals payload and marshals result", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(ctx context.Context, p testPayload) (any, error) {
			return map[string]string{"echo": p.Message}, nil
		})

		result, err := h.Handle(context.Background(), []byte(`{"message":"hi"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"echo":"hi"}`, string(result))
	})

	t.Run("nil result stays nil", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(ctx context.Context, p testPayload) (any, error) {
			return nil, nil
		})

		result, err := h.Handle(context.Background(), []byte(`{"message":"hi"}`))
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("invalid payload", func(t *testing.T) {
		t.Parallel()

		h := queue.NewTaskHandler(func(ctx context.Context, p testPayload) (any, error) {
			return nil, nil
		})

		_, err := h.Handle(context.Background(), []byte(`not json`))
		assert.Error(t, err)
	})

	t.Run("handler error propagates", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		h := queue.NewTaskHandler(func(ctx context.Context, p testPayload) (any, error) {
			return nil, wantErr
		})

		_, err := h.Handle(context.Background(), []byte(`{}`))
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestNewPeriodicTaskHandler(t *testing.T) {
	t.Parallel()

	var ran bool
	h := queue.NewPeriodicTaskHandler("campaign_sweep", func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.Equal(t, "campaign_sweep", h.Name())

	result, err := h.Handle(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.True(t, ran)
}
