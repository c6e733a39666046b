package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ammar0144/repokit/pkg/db"
)

// queryMode selects which structural options a built query receives
type queryMode int

const (
	// rowsQuery loads records: projection, preloads, locking and ordering apply
	rowsQuery queryMode = iota
	// aggregateQuery computes count/sum/avg/min/max over the filtered set
	aggregateQuery
	// mutationQuery targets rows for bulk update or delete
	mutationQuery
)

// Modifier refines a query. The set is closed: build modifiers with Where,
// Search, WhereNull, WhereNotNull, OrderBy, Limit and With.
type Modifier interface {
	apply(ctx context.Context, q *gorm.DB, m *modelSchema, mode queryMode) (*gorm.DB, error)
}

type modifierFunc func(ctx context.Context, q *gorm.DB, m *modelSchema, mode queryMode) (*gorm.DB, error)

func (f modifierFunc) apply(ctx context.Context, q *gorm.DB, m *modelSchema, mode queryMode) (*gorm.DB, error) {
	return f(ctx, q, m, mode)
}

// Where adds the conjunction of filters
func Where(filters ...Filter) Modifier {
	return modifierFunc(func(ctx context.Context, q *gorm.DB, m *modelSchema, _ queryMode) (*gorm.DB, error) {
		exprs, err := filterExpressions(ctx, m, filters)
		if err != nil {
			return nil, err
		}
		for _, expr := range exprs {
			q = q.Where(expr)
		}
		return q, nil
	})
}

// Search matches rows where any of columns contains term. An empty term is a no-op.
func Search(term string, columns ...string) Modifier {
	return modifierFunc(func(ctx context.Context, q *gorm.DB, m *modelSchema, _ queryMode) (*gorm.DB, error) {
		if term == "" || len(columns) == 0 {
			return q, nil
		}
		pattern := "%" + term + "%"
		likes := make([]clause.Expression, 0, len(columns))
		for _, name := range columns {
			column, err := m.column(ctx, name)
			if err != nil {
				return nil, err
			}
			likes = append(likes, clause.Like{Column: col(column), Value: pattern})
		}
		return q.Where(clause.Or(likes...)), nil
	})
}

// WhereNull matches rows where column IS NULL
func WhereNull(column string) Modifier {
	return Where(Filter{Field: column, Operator: db.Equal, Value: nil})
}

// WhereNotNull matches rows where column IS NOT NULL
func WhereNotNull(column string) Modifier {
	return Where(Filter{Field: column, Operator: db.NotEqual, Value: nil})
}

// OrderBy appends an ordering. Ignored outside row queries.
func OrderBy(column string, direction Direction) Modifier {
	return modifierFunc(func(ctx context.Context, q *gorm.DB, m *modelSchema, mode queryMode) (*gorm.DB, error) {
		name, err := m.sortColumn(ctx, column)
		if err != nil {
			return nil, err
		}
		desc, err := descending(ctx, direction)
		if err != nil {
			return nil, err
		}
		if mode != rowsQuery {
			return q, nil
		}
		return q.Order(clause.OrderByColumn{Column: col(name), Desc: desc}), nil
	})
}

// Limit caps the number of loaded rows. Ignored outside row queries.
func Limit(n int) Modifier {
	return modifierFunc(func(_ context.Context, q *gorm.DB, _ *modelSchema, mode queryMode) (*gorm.DB, error) {
		if n < 0 {
			return nil, fmt.Errorf("%w: limit must not be negative", ErrValidation)
		}
		if mode != rowsQuery {
			return q, nil
		}
		return q.Limit(n), nil
	})
}

// With preloads relation, refined by modifiers. Ignored outside row queries.
func With(relation string, modifiers ...Modifier) Modifier {
	return modifierFunc(func(ctx context.Context, q *gorm.DB, m *modelSchema, mode queryMode) (*gorm.DB, error) {
		if mode != rowsQuery {
			return q, nil
		}
		return preload(ctx, q, m, Preload{Relation: relation, Modifiers: modifiers})
	})
}

// preload validates the relation path and applies its modifiers to the relation query
func preload(ctx context.Context, q *gorm.DB, m *modelSchema, p Preload) (*gorm.DB, error) {
	related, err := m.relation(ctx, p.Relation)
	if err != nil {
		return nil, err
	}
	if len(p.Modifiers) == 0 {
		return q.Preload(p.Relation), nil
	}

	return q.Preload(p.Relation, func(pq *gorm.DB) *gorm.DB {
		for _, modifier := range p.Modifiers {
			next, err := modifier.apply(ctx, pq, related, rowsQuery)
			if err != nil {
				_ = pq.AddError(err)
				return pq
			}
			pq = next
		}
		return pq
	}), nil
}

// filterExpressions resolves filter fields and translates each filter
func filterExpressions(ctx context.Context, m *modelSchema, filters []Filter) ([]clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(filters))
	for _, f := range filters {
		column, err := m.column(ctx, f.Field)
		if err != nil {
			return nil, err
		}
		expr, err := f.Expression(column)
		if err != nil {
			return nil, invalidFilter(ctx, f.Field, err)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// descending validates direction; empty means ascending
func descending(ctx context.Context, direction Direction) (bool, error) {
	switch direction {
	case "", Asc:
		return false, nil
	case Desc:
		return true, nil
	default:
		return false, invalidDirection(ctx, direction)
	}
}
