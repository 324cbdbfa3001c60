package queue_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/outreachq/pkg/queue"
)

// MockQueryRepository is a mock implementation of QueryRepository
type MockQueryRepository struct {
	mock.Mock
}

func (m *MockQueryRepository) ListTasks(ctx context.Context, filter queue.TaskFilter, limit, offset int) ([]queue.Task, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]queue.Task), args.Error(1)
}

func (m *MockQueryRepository) CountTasks(ctx context.Context, filter queue.TaskFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func TestInspector_NewInspector(t *testing.T) {
	t.Parallel()

	t.Run("successful creation", func(t *testing.T) {
		t.Parallel()

		i, err := queue.NewInspector(new(MockQueryRepository))
		require.NoError(t, err)
		require.NotNil(t, i)
	})

	t.Run("nil repository error", func(t *testing.T) {
		t.Parallel()

		i, err := queue.NewInspector(nil)
		assert.ErrorIs(t, err, queue.ErrRepositoryNil)
		assert.Nil(t, i)
	})
}

func TestInspector_ListTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	filter := queue.TaskFilter{Status: queue.TaskStatusPending, Queue: "emails"}

	t.Run("passes filter and normalized pagination", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockQueryRepository)
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListTasks", ctx, filter, 50, 0).Return([]queue.Task{}, nil).Once()

		i, err := queue.NewInspector(mockRepo)
		require.NoError(t, err)

		_, err = i.ListTasks(ctx, filter, 0, 0)
		require.NoError(t, err)
	})

	t.Run("caps perPage and computes offset", func(t *testing.T) {
		t.Parallel()

		mockRepo := new(MockQueryRepository)
		defer mockRepo.AssertExpectations(t)
		mockRepo.On("ListTasks", ctx, filter, 100, 200).Return([]queue.Task{}, nil).Once()

		i, err := queue.NewInspector(mockRepo)
		require.NoError(t, err)

		_, err = i.ListTasks(ctx, filter, 3, 1000)
		require.NoError(t, err)
	})
}

func TestInspector_CountTasks(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mockRepo := new(MockQueryRepository)
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("CountTasks", ctx, queue.TaskFilter{Status: queue.TaskStatusFailed}).Return(7, nil).Once()

	i, err := queue.NewInspector(mockRepo)
	require.NoError(t, err)

	count, err := i.CountTasks(ctx, queue.TaskFilter{Status: queue.TaskStatusFailed})
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}
