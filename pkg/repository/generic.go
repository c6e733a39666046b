package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ammar0144/repokit/pkg/cache"
	"github.com/ammar0144/repokit/pkg/db"
)

const defaultCachePrefix = "repokit"

// GenericRepository implements Repository[T] over a GORM connection.
// It is stateless apart from the injected cache and is safe for concurrent use.
type GenericRepository[T Entity] struct {
	conn     *gorm.DB
	database *db.Manager
	cache    *cache.Namespace
	model    *modelSchema
	scopes   map[string][]Modifier
	log      logrus.FieldLogger
}

type settings struct {
	database    *db.Manager
	store       cache.Store
	cachePrefix string
	log         logrus.FieldLogger
	scopes      map[string][]Modifier
}

// Option configures a repository at construction
type Option func(*settings)

// WithDatabase supplies the database handle used for owned transactions,
// query timeouts and Raw
func WithDatabase(manager *db.Manager) Option {
	return func(s *settings) {
		s.database = manager
	}
}

// WithCache enables read-through caching on the given store.
// Keys are namespaced per table.
func WithCache(store cache.Store) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithCachePrefix overrides the leading segment of cache keys
func WithCachePrefix(prefix string) Option {
	return func(s *settings) {
		s.cachePrefix = prefix
	}
}

// WithLogger sets the logger; logrus.StandardLogger() by default
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithScope registers a named list of modifiers usable through Options.Scopes
func WithScope(name string, modifiers ...Modifier) Option {
	return func(s *settings) {
		s.scopes[name] = modifiers
	}
}

// NewGenericRepository creates a repository for T. conn may be nil when
// WithDatabase is given.
func NewGenericRepository[T Entity](conn *gorm.DB, opts ...Option) (*GenericRepository[T], error) {
	s := &settings{
		cachePrefix: defaultCachePrefix,
		log:         logrus.StandardLogger(),
		scopes:      map[string][]Modifier{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if conn == nil && s.database != nil {
		conn = s.database.DB()
	}
	if conn == nil {
		return nil, fmt.Errorf("repository requires a database connection")
	}

	var zero T
	if zero.TableName() == "" {
		return nil, fmt.Errorf("entity type %T returned empty TableName()", zero)
	}

	model, err := parseModel(conn, new(T))
	if err != nil {
		return nil, err
	}

	r := &GenericRepository[T]{
		conn:     conn,
		database: s.database,
		model:    model,
		scopes:   s.scopes,
		log:      s.log.WithField("table", model.table),
	}
	if s.store != nil {
		r.cache = cache.NewNamespace(s.store, s.cachePrefix, model.table)
	}
	return r, nil
}

// withQueryTimeout wraps a context with the database's configured query timeout
func (r *GenericRepository[T]) withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.database != nil {
		return r.database.WithTimeout(ctx)
	}
	return ctx, func() {}
}

// session returns a fresh handle on the caller transaction or the connection
func (r *GenericRepository[T]) session(ctx context.Context, opts Options) *gorm.DB {
	if opts.Tx != nil {
		return opts.Tx.WithContext(ctx)
	}
	return r.conn.WithContext(ctx)
}

// transaction runs fn in a transaction owned by the repository
func (r *GenericRepository[T]) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.database != nil {
		return r.database.Transaction(ctx, fn)
	}
	return r.conn.WithContext(ctx).Transaction(fn)
}

// ============================================================================
// QUERY CONSTRUCTION
// ============================================================================

// buildQuery translates options into a GORM query. The order is fixed:
// transaction binding, predicates, soft-delete visibility, projection,
// preloads, locking, sort validation, modifiers, scopes and finally the
// sort ordering, which only breaks ties left by modifier orderings.
func (r *GenericRepository[T]) buildQuery(ctx context.Context, mode queryMode, opts Options, predicates ...clause.Expression) (*gorm.DB, error) {
	q := r.session(ctx, opts).Model(new(T))

	for _, predicate := range predicates {
		q = q.Where(predicate)
	}

	switch {
	case opts.OnlyTrashed:
		if r.model.softDelete == "" {
			return nil, ErrSoftDeleteUnsupported
		}
		q = q.Unscoped().Where(clause.Neq{Column: col(r.model.softDelete), Value: nil})
	case opts.WithTrashed:
		q = q.Unscoped()
	}

	if mode == rowsQuery && len(opts.Select) > 0 {
		columns := make([]string, 0, len(opts.Select))
		for _, name := range opts.Select {
			column, err := r.model.column(ctx, name)
			if err != nil {
				return nil, err
			}
			columns = append(columns, column)
		}
		q = q.Select(columns)
	}

	if mode == rowsQuery {
		for _, p := range opts.Preload {
			var err error
			if q, err = preload(ctx, q, r.model, p); err != nil {
				return nil, err
			}
		}
	}

	if mode == rowsQuery && opts.LockForUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	sortColumn, err := r.model.sortColumn(ctx, opts.SortBy)
	if err != nil {
		return nil, err
	}
	desc, err := descending(ctx, opts.Direction)
	if err != nil {
		return nil, err
	}
	for _, modifier := range opts.Modifiers {
		if q, err = modifier.apply(ctx, q, r.model, mode); err != nil {
			return nil, err
		}
	}

	for _, name := range opts.Scopes {
		modifiers, ok := r.scopes[name]
		if !ok {
			return nil, unknownScope(ctx, name, r.scopeNames())
		}
		for _, modifier := range modifiers {
			if q, err = modifier.apply(ctx, q, r.model, mode); err != nil {
				return nil, err
			}
		}
	}

	if mode == rowsQuery {
		q = q.Order(clause.OrderByColumn{Column: col(sortColumn), Desc: desc})
	}

	return q, nil
}

func (r *GenericRepository[T]) scopeNames() []string {
	names := make([]string, 0, len(r.scopes))
	for name := range r.scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fieldPredicate resolves field and builds field = value
func (r *GenericRepository[T]) fieldPredicate(ctx context.Context, field string, value interface{}) (clause.Expression, error) {
	column, err := r.model.column(ctx, field)
	if err != nil {
		return nil, err
	}
	return clause.Eq{Column: col(column), Value: value}, nil
}

// ============================================================================
// READ OPERATIONS
// ============================================================================

// FindBy returns the first record whose field equals value, or nil.
// With opts.Cache the cache is consulted first and populated on a hit,
// except when locking rows.
func (r *GenericRepository[T]) FindBy(ctx context.Context, field string, value interface{}, opts Options) (*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	predicate, err := r.fieldPredicate(ctx, field, value)
	if err != nil {
		return nil, err
	}

	cacheable := r.cache != nil && opts.Cache != nil && opts.Cache.Key != "" && !opts.LockForUpdate
	if cacheable {
		if entity, ok := r.cacheGet(ctx, opts.Cache.Key); ok {
			return entity, nil
		}
	}

	q, err := r.buildQuery(ctx, rowsQuery, opts, predicate)
	if err != nil {
		return nil, err
	}

	var entity T
	if err := q.Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s by %s: %w", r.model.table, field, err)
	}

	if cacheable {
		r.cacheSet(ctx, opts.Cache, &entity)
	}
	return &entity, nil
}

// FindManyBy returns records whose field is any of values
func (r *GenericRepository[T]) FindManyBy(ctx context.Context, field string, values []interface{}, opts Options) ([]*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	column, err := r.model.column(ctx, field)
	if err != nil {
		return nil, err
	}

	q, err := r.buildQuery(ctx, rowsQuery, opts, clause.IN{Column: col(column), Values: values})
	if err != nil {
		return nil, err
	}
	return r.find(q)
}

// FindWhere returns records satisfying every filter
func (r *GenericRepository[T]) FindWhere(ctx context.Context, filters []Filter, opts Options) ([]*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	exprs, err := filterExpressions(ctx, r.model, filters)
	if err != nil {
		return nil, err
	}

	q, err := r.buildQuery(ctx, rowsQuery, opts, exprs...)
	if err != nil {
		return nil, err
	}
	return r.find(q)
}

// List returns all visible records ordered by opts.SortBy (primary key by default)
func (r *GenericRepository[T]) List(ctx context.Context, opts Options) ([]*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	q, err := r.buildQuery(ctx, rowsQuery, opts)
	if err != nil {
		return nil, err
	}
	return r.find(q)
}

// Paginate returns one 1-indexed page and its metadata
func (r *GenericRepository[T]) Paginate(ctx context.Context, opts PaginateOptions) (*Pagination[T], error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	page, perPage := opts.Page, opts.PerPage
	if page < 1 {
		page = DefaultPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	countQuery, err := r.buildQuery(ctx, aggregateQuery, opts.Options)
	if err != nil {
		return nil, err
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count %s: %w", r.model.table, err)
	}

	q, err := r.buildQuery(ctx, rowsQuery, opts.Options)
	if err != nil {
		return nil, err
	}
	items, err := r.find(q.Offset((page - 1) * perPage).Limit(perPage))
	if err != nil {
		return nil, err
	}

	return &Pagination[T]{
		Data: items,
		Meta: pageMeta(total, page, perPage, opts.BaseURL),
	}, nil
}

// First returns the first record under the current ordering, or nil
func (r *GenericRepository[T]) First(ctx context.Context, opts Options) (*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	q, err := r.buildQuery(ctx, rowsQuery, opts)
	if err != nil {
		return nil, err
	}

	var entity T
	if err := q.Take(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("first %s: %w", r.model.table, err)
	}
	return &entity, nil
}

// Count returns the number of visible records
func (r *GenericRepository[T]) Count(ctx context.Context, opts Options) (int64, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	q, err := r.buildQuery(ctx, aggregateQuery, opts)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", r.model.table, err)
	}
	return total, nil
}

// Exists reports whether any record is visible
func (r *GenericRepository[T]) Exists(ctx context.Context, opts Options) (bool, error) {
	total, err := r.Count(ctx, opts)
	return total > 0, err
}

// Sum returns the sum of column, 0 when no rows match
func (r *GenericRepository[T]) Sum(ctx context.Context, column string, opts Options) (float64, error) {
	return r.aggregate(ctx, "SUM", column, opts)
}

// Avg returns the average of column, 0 when no rows match
func (r *GenericRepository[T]) Avg(ctx context.Context, column string, opts Options) (float64, error) {
	return r.aggregate(ctx, "AVG", column, opts)
}

// Min returns the minimum of column, 0 when no rows match
func (r *GenericRepository[T]) Min(ctx context.Context, column string, opts Options) (float64, error) {
	return r.aggregate(ctx, "MIN", column, opts)
}

// Max returns the maximum of column, 0 when no rows match
func (r *GenericRepository[T]) Max(ctx context.Context, column string, opts Options) (float64, error) {
	return r.aggregate(ctx, "MAX", column, opts)
}

func (r *GenericRepository[T]) aggregate(ctx context.Context, fn, column string, opts Options) (float64, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()

	name, err := r.model.column(ctx, column)
	if err != nil {
		return 0, err
	}

	q, err := r.buildQuery(ctx, aggregateQuery, opts)
	if err != nil {
		return 0, err
	}

	var result float64
	expr := fmt.Sprintf("COALESCE(%s(?), 0)", fn)
	if err := q.Select(expr, col(name)).Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("%s of %s.%s: %w", fn, r.model.table, name, err)
	}
	return result, nil
}

// Chunk walks the visible records in pages of size, calling fn for each
// non-empty page in order. Iteration stops after a short page or when fn fails.
func (r *GenericRepository[T]) Chunk(ctx context.Context, size int, fn func(ctx context.Context, items []*T) error, opts Options) error {
	if size < 1 {
		return fmt.Errorf("%w: chunk size must be positive", ErrValidation)
	}

	q, err := r.buildQuery(ctx, rowsQuery, opts)
	if err != nil {
		return err
	}
	base := q.Session(&gorm.Session{})

	for offset := 0; ; offset += size {
		items, err := r.chunkPage(ctx, base, offset, size)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		if err := fn(ctx, items); err != nil {
			return err
		}
		if len(items) < size {
			return nil
		}
	}
}

func (r *GenericRepository[T]) chunkPage(ctx context.Context, base *gorm.DB, offset, size int) ([]*T, error) {
	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()
	return r.find(base.WithContext(ctx).Offset(offset).Limit(size))
}

// FindAndLock is FindBy with FOR UPDATE; use it inside opts.Tx
func (r *GenericRepository[T]) FindAndLock(ctx context.Context, field string, value interface{}, opts Options) (*T, error) {
	opts.LockForUpdate = true
	return r.FindBy(ctx, field, value, opts)
}

// Raw runs a literal query through the database handle
func (r *GenericRepository[T]) Raw(ctx context.Context, query string, bindings ...interface{}) ([]map[string]interface{}, error) {
	if r.database == nil {
		return nil, ErrNoDatabase
	}

	ctx, cancel := r.withQueryTimeout(ctx)
	defer cancel()
	return r.database.Raw(ctx, query, bindings...)
}

func (r *GenericRepository[T]) find(q *gorm.DB) ([]*T, error) {
	items := []*T{}
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", r.model.table, err)
	}
	return items, nil
}

// pageMeta computes navigation metadata; links carry a page query parameter on baseURL
func pageMeta(total int64, page, perPage int, baseURL string) PageMeta {
	lastPage := int(math.Ceil(float64(total) / float64(perPage)))
	if lastPage < 1 {
		lastPage = 1
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	meta := PageMeta{
		Total:        total,
		PerPage:      perPage,
		CurrentPage:  page,
		LastPage:     lastPage,
		FirstPage:    1,
		FirstPageURL: pageURL(baseURL, 1),
		LastPageURL:  pageURL(baseURL, lastPage),
	}
	if page < lastPage {
		next := pageURL(baseURL, page+1)
		meta.NextPageURL = &next
	}
	if page > 1 {
		prev := pageURL(baseURL, page-1)
		meta.PreviousPageURL = &prev
	}
	return meta
}

func pageURL(baseURL string, page int) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + "?page=" + strconv.Itoa(page)
	}
	query := u.Query()
	query.Set("page", strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}
