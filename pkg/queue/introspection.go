package queue

import "context"

// QueryRepository defines read-only task introspection operations
type QueryRepository interface {
	// ListTasks returns tasks matching the filter, ordered by creation time
	ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) ([]Task, error)

	// CountTasks returns the number of tasks matching the filter
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)
}

// Inspector exposes read-only queue state for dashboards and operational
// tooling. It never mutates tasks.
type Inspector struct {
	repo QueryRepository
}

// NewInspector creates a new queue inspector
func NewInspector(repo QueryRepository) (*Inspector, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	return &Inspector{repo: repo}, nil
}

// ListTasks returns a page of tasks matching the filter.
// Page starts at 1; perPage is capped at 100.
func (i *Inspector) ListTasks(ctx context.Context, filter TaskFilter, page, perPage int) ([]Task, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 100 {
		perPage = 100
	}

	return i.repo.ListTasks(ctx, filter, perPage, (page-1)*perPage)
}

// CountTasks returns the number of tasks matching the filter
func (i *Inspector) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	return i.repo.CountTasks(ctx, filter)
}
