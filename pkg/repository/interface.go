package repository

import (
	"context"
)

// Repository defines the generic repository interface
type Repository[T Entity] interface {
	// Queries
	FindBy(ctx context.Context, field string, value interface{}, opts Options) (*T, error)
	FindManyBy(ctx context.Context, field string, values []interface{}, opts Options) ([]*T, error)
	FindWhere(ctx context.Context, filters []Filter, opts Options) ([]*T, error)
	List(ctx context.Context, opts Options) ([]*T, error)
	Paginate(ctx context.Context, opts PaginateOptions) (*Pagination[T], error)
	First(ctx context.Context, opts Options) (*T, error)
	Chunk(ctx context.Context, size int, fn func(ctx context.Context, items []*T) error, opts Options) error
	FindAndLock(ctx context.Context, field string, value interface{}, opts Options) (*T, error)

	// Aggregates
	Count(ctx context.Context, opts Options) (int64, error)
	Exists(ctx context.Context, opts Options) (bool, error)
	Sum(ctx context.Context, column string, opts Options) (float64, error)
	Avg(ctx context.Context, column string, opts Options) (float64, error)
	Min(ctx context.Context, column string, opts Options) (float64, error)
	Max(ctx context.Context, column string, opts Options) (float64, error)

	// Commands (clear the model cache on success)
	Create(ctx context.Context, entity *T, opts Options) error
	CreateMany(ctx context.Context, entities []*T, opts Options) error
	CreateInBatches(ctx context.Context, entities []*T, batchSize int, opts Options) (*BatchResult, error)
	FirstOrCreate(ctx context.Context, search, payload Attributes, opts Options) (*T, error)
	UpdateOrCreate(ctx context.Context, search, payload Attributes, opts Options) (*T, error)
	Update(ctx context.Context, field string, value interface{}, payload Attributes, opts Options) (*T, error)
	UpdateMany(ctx context.Context, criteria, payload Attributes, opts Options) (int64, error)
	Destroy(ctx context.Context, field string, value interface{}, opts Options) (int64, error)
	SoftDelete(ctx context.Context, field string, value interface{}, opts Options) (int64, error)
	Restore(ctx context.Context, field string, value interface{}, opts Options) (int64, error)

	// Raw runs a literal query; requires a database handle
	Raw(ctx context.Context, query string, bindings ...interface{}) ([]map[string]interface{}, error)

	// Cache Management
	ClearCache(ctx context.Context) error
}
