package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ammar0144/repokit/pkg/cache"
)

// ============================================================================
// WRITE OPERATIONS
// ============================================================================

// Create inserts entity
func (r *GenericRepository[T]) Create(ctx context.Context, entity *T, opts Options) error {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.session(ctx, opts).Create(entity).Error; err != nil {
		return fmt.Errorf("create %s: %w", r.model.table, err)
	}
	r.clearCache(ctx)
	return nil
}

// CreateMany inserts entities in a single statement
func (r *GenericRepository[T]) CreateMany(ctx context.Context, entities []*T, opts Options) error {
	if len(entities) == 0 {
		return nil
	}

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	if err := r.session(ctx, opts).Create(entities).Error; err != nil {
		return fmt.Errorf("create %s: %w", r.model.table, err)
	}
	r.clearCache(ctx)
	return nil
}

// CreateInBatches inserts entities in slices of batchSize, each slice behind
// its own savepoint. A failing slice is rolled back to its savepoint and
// reported in the result; the remaining slices still run. Errors outside a
// slice abort the whole call and, when the transaction is owned here, roll
// everything back.
func (r *GenericRepository[T]) CreateInBatches(ctx context.Context, entities []*T, batchSize int, opts Options) (*BatchResult, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	result := &BatchResult{Errors: []BatchError{}}
	run := func(tx *gorm.DB) error {
		for start := 0; start < len(entities); start += batchSize {
			if err := ctx.Err(); err != nil {
				return err
			}

			end := start + batchSize
			if end > len(entities) {
				end = len(entities)
			}
			if err := r.createSlice(tx, start, entities[start:end]); err != nil {
				if errors.Is(err, errSavepoint) {
					return err
				}
				result.Failed += end - start
				result.Errors = append(result.Errors, BatchError{Index: start, Message: err.Error()})
				r.log.WithError(err).WithField("index", start).Warn("batch insert failed")
				continue
			}
			result.Success += end - start
		}
		return nil
	}

	var err error
	if opts.Tx != nil {
		err = run(opts.Tx.WithContext(ctx))
	} else {
		err = r.transaction(ctx, run)
	}
	if err != nil {
		return nil, err
	}

	if result.Success > 0 {
		r.clearCache(ctx)
	}
	return result, nil
}

var errSavepoint = errors.New("savepoint failed")

// createSlice inserts one slice behind a savepoint named after its offset
func (r *GenericRepository[T]) createSlice(tx *gorm.DB, start int, slice []*T) error {
	name := "batch_" + strconv.Itoa(start)
	if err := tx.SavePoint(name).Error; err != nil {
		return fmt.Errorf("%w: %v", errSavepoint, err)
	}

	if err := tx.Create(slice).Error; err != nil {
		if rbErr := tx.RollbackTo(name).Error; rbErr != nil {
			return fmt.Errorf("%w: rollback to %s: %v", errSavepoint, name, rbErr)
		}
		return err
	}
	return nil
}

// FirstOrCreate returns the first record matching search, creating it from
// search merged with payload when absent
func (r *GenericRepository[T]) FirstOrCreate(ctx context.Context, search, payload Attributes, opts Options) (*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	searchCols, payloadCols, err := r.upsertColumns(ctx, search, payload)
	if err != nil {
		return nil, err
	}

	var entity *T
	if opts.Tx != nil {
		entity, err = r.firstOrCreateInTx(ctx, searchCols, payloadCols, opts)
	} else {
		entity, err = r.firstOrCreateAtomic(ctx, searchCols, payloadCols)
	}
	if err != nil {
		return nil, err
	}
	r.clearCache(ctx)
	return entity, nil
}

// UpdateOrCreate updates the first record matching search with payload,
// creating it from search merged with payload when absent
func (r *GenericRepository[T]) UpdateOrCreate(ctx context.Context, search, payload Attributes, opts Options) (*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	searchCols, payloadCols, err := r.upsertColumns(ctx, search, payload)
	if err != nil {
		return nil, err
	}

	var entity *T
	if opts.Tx != nil {
		entity, err = r.updateOrCreateInTx(ctx, searchCols, payloadCols, opts)
	} else {
		entity, err = r.updateOrCreateAtomic(ctx, searchCols, payloadCols)
	}
	if err != nil {
		return nil, err
	}
	r.clearCache(ctx)
	return entity, nil
}

func (r *GenericRepository[T]) upsertColumns(ctx context.Context, search, payload Attributes) (map[string]interface{}, map[string]interface{}, error) {
	searchCols, err := r.model.attributes(ctx, search)
	if err != nil {
		return nil, nil, err
	}
	payloadCols, err := r.model.attributes(ctx, payload)
	if err != nil {
		return nil, nil, err
	}
	return searchCols, payloadCols, nil
}

func (r *GenericRepository[T]) firstOrCreateInTx(ctx context.Context, search, payload map[string]interface{}, opts Options) (*T, error) {
	existing, err := r.takeMatching(ctx, search, opts)
	if err != nil || existing != nil {
		return existing, err
	}
	return r.createFrom(ctx, opts.Tx.WithContext(ctx), search, payload)
}

func (r *GenericRepository[T]) updateOrCreateInTx(ctx context.Context, search, payload map[string]interface{}, opts Options) (*T, error) {
	existing, err := r.takeMatching(ctx, search, opts)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return r.createFrom(ctx, opts.Tx.WithContext(ctx), search, payload)
	}

	if len(payload) > 0 {
		if err := opts.Tx.WithContext(ctx).Model(existing).Updates(payload).Error; err != nil {
			return nil, fmt.Errorf("update %s: %w", r.model.table, err)
		}
	}
	return existing, nil
}

func (r *GenericRepository[T]) firstOrCreateAtomic(ctx context.Context, search, payload map[string]interface{}) (*T, error) {
	var entity T
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where(search).Attrs(payload).FirstOrCreate(&entity).Error
	})
	if err != nil {
		return nil, fmt.Errorf("first or create %s: %w", r.model.table, err)
	}
	return &entity, nil
}

func (r *GenericRepository[T]) updateOrCreateAtomic(ctx context.Context, search, payload map[string]interface{}) (*T, error) {
	var entity T
	err := r.transaction(ctx, func(tx *gorm.DB) error {
		return tx.Where(search).Assign(payload).FirstOrCreate(&entity).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update or create %s: %w", r.model.table, err)
	}
	return &entity, nil
}

// takeMatching returns the first record with all search columns equal, or nil
func (r *GenericRepository[T]) takeMatching(ctx context.Context, search map[string]interface{}, opts Options) (*T, error) {
	q, err := r.buildQuery(ctx, rowsQuery, opts, equalities(search)...)
	if err != nil {
		return nil, err
	}

	var entity T
	if err := q.Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s: %w", r.model.table, err)
	}
	return &entity, nil
}

// createFrom builds an entity from column values and inserts it through tx
func (r *GenericRepository[T]) createFrom(ctx context.Context, tx *gorm.DB, columns ...map[string]interface{}) (*T, error) {
	entity := new(T)
	rv := reflect.ValueOf(entity).Elem()
	for _, values := range columns {
		for name, value := range values {
			field := r.model.schema.LookUpField(name)
			if field == nil {
				continue
			}
			if err := field.Set(ctx, rv, value); err != nil {
				return nil, fmt.Errorf("set %s.%s: %w", r.model.table, name, err)
			}
		}
	}

	if err := tx.Create(entity).Error; err != nil {
		return nil, fmt.Errorf("create %s: %w", r.model.table, err)
	}
	return entity, nil
}

// Update merges payload into the first record whose field equals value and
// persists it. Returns nil when no record matches.
func (r *GenericRepository[T]) Update(ctx context.Context, field string, value interface{}, payload Attributes, opts Options) (*T, error) {
	columns, err := r.model.attributes(ctx, payload)
	if err != nil {
		return nil, err
	}

	lookup := opts
	lookup.Cache = nil
	entity, err := r.FindBy(ctx, field, value, lookup)
	if err != nil || entity == nil {
		return nil, err
	}
	if len(columns) == 0 {
		return entity, nil
	}

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	q := r.session(ctx, opts)
	if opts.WithTrashed || opts.OnlyTrashed {
		q = q.Unscoped()
	}
	target := clause.Eq{Column: col(r.model.primaryKey), Value: (*entity).GetPrimaryKeyValue()}
	if err := q.Model(entity).Where(target).Updates(columns).Error; err != nil {
		return nil, fmt.Errorf("update %s: %w", r.model.table, err)
	}

	r.clearCache(ctx)
	return entity, nil
}

// UpdateMany applies payload to every visible record matching criteria and
// returns the number of affected rows
func (r *GenericRepository[T]) UpdateMany(ctx context.Context, criteria, payload Attributes, opts Options) (int64, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	where, err := r.model.attributes(ctx, criteria)
	if err != nil {
		return 0, err
	}
	columns, err := r.model.attributes(ctx, payload)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, nil
	}

	q, err := r.buildQuery(ctx, mutationQuery, opts, equalities(where)...)
	if err != nil {
		return 0, err
	}

	result := q.Updates(columns)
	if result.Error != nil {
		return 0, fmt.Errorf("update %s: %w", r.model.table, result.Error)
	}

	r.clearCache(ctx)
	return result.RowsAffected, nil
}

// Destroy permanently deletes the records whose field equals value and that
// are visible under opts
func (r *GenericRepository[T]) Destroy(ctx context.Context, field string, value interface{}, opts Options) (int64, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	predicate, err := r.fieldPredicate(ctx, field, value)
	if err != nil {
		return 0, err
	}

	q, err := r.buildQuery(ctx, mutationQuery, opts, predicate)
	if err != nil {
		return 0, err
	}
	if r.model.softDelete != "" && !opts.WithTrashed && !opts.OnlyTrashed {
		q = q.Where(clause.Eq{Column: col(r.model.softDelete), Value: nil})
	}

	result := q.Unscoped().Delete(new(T))
	if result.Error != nil {
		return 0, fmt.Errorf("delete %s: %w", r.model.table, result.Error)
	}

	r.clearCache(ctx)
	return result.RowsAffected, nil
}

// SoftDelete stamps the soft-delete column of the first record whose field
// equals value. Returns the number of records changed (0 or 1).
func (r *GenericRepository[T]) SoftDelete(ctx context.Context, field string, value interface{}, opts Options) (int64, error) {
	if r.model.softDelete == "" {
		return 0, ErrSoftDeleteUnsupported
	}
	return r.touchDeletedAt(ctx, field, value, time.Now(), opts)
}

// Restore clears the soft-delete column of the first trashed record whose
// field equals value
func (r *GenericRepository[T]) Restore(ctx context.Context, field string, value interface{}, opts Options) (int64, error) {
	if r.model.softDelete == "" {
		return 0, ErrSoftDeleteUnsupported
	}
	opts.OnlyTrashed = true
	opts.WithTrashed = false
	return r.touchDeletedAt(ctx, field, value, nil, opts)
}

func (r *GenericRepository[T]) touchDeletedAt(ctx context.Context, field string, value, deletedAt interface{}, opts Options) (int64, error) {
	entity, err := r.Update(ctx, field, value, Attributes{r.model.softDelete: deletedAt}, opts)
	if err != nil {
		return 0, err
	}
	if entity == nil {
		return 0, nil
	}
	return 1, nil
}

// ============================================================================
// CACHE
// ============================================================================

// ClearCache removes every cached entry of the model
func (r *GenericRepository[T]) ClearCache(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Clear(ctx)
}

// clearCache invalidates the model namespace after a write.
// The write already succeeded, so failures are only logged.
func (r *GenericRepository[T]) clearCache(ctx context.Context) {
	if err := r.ClearCache(ctx); err != nil {
		r.log.WithError(err).Warn("failed to clear cache")
	}
}

func (r *GenericRepository[T]) cacheGet(ctx context.Context, key string) (*T, bool) {
	var entity T
	err := r.cache.Get(ctx, key, &entity)
	switch {
	case err == nil:
		r.log.WithField("key", key).Debug("cache hit")
		return &entity, true
	case cache.IsKeyNotFound(err):
		r.log.WithField("key", key).Debug("cache miss")
	default:
		r.log.WithError(err).WithField("key", key).Warn("cache read failed")
	}
	return nil, false
}

func (r *GenericRepository[T]) cacheSet(ctx context.Context, opts *CacheOptions, entity *T) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := r.cache.Set(ctx, opts.Key, entity, ttl); err != nil {
		r.log.WithError(err).WithField("key", opts.Key).Warn("cache write failed")
	}
}
