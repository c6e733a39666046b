package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/ammar0144/repokit/pkg/i18n"
)

// Sentinel errors for repository operations
var (
	// ErrValidation matches every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrNoDatabase is returned by Raw when the repository has no database handle
	ErrNoDatabase = errors.New("raw queries require a database handle")

	// ErrSoftDeleteUnsupported is returned for soft-delete operations on models without a gorm.DeletedAt field
	ErrSoftDeleteUnsupported = errors.New("model does not support soft deletes")
)

// ValidationError reports rejected caller input with a localized message
type ValidationError struct {
	// Field is the rejected input (sort key, field name, direction, scope)
	Field string
	// Allowed lists accepted values, when the set is finite
	Allowed []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrValidation) true
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func invalidSortKey(ctx context.Context, key string, allowed []string) error {
	return &ValidationError{
		Field:   key,
		Allowed: allowed,
		Message: i18n.Sprintf(ctx, "errors.invalid_sort_key", key, strings.Join(allowed, ", ")),
	}
}

func invalidDirection(ctx context.Context, direction Direction) error {
	return &ValidationError{
		Field:   string(direction),
		Allowed: []string{string(Asc), string(Desc)},
		Message: i18n.Sprintf(ctx, "errors.invalid_sort_direction"),
	}
}

func invalidField(ctx context.Context, field string, allowed []string) error {
	return &ValidationError{
		Field:   field,
		Allowed: allowed,
		Message: i18n.Sprintf(ctx, "errors.invalid_field", field, strings.Join(allowed, ", ")),
	}
}

func invalidFilter(ctx context.Context, field string, cause error) error {
	return &ValidationError{
		Field:   field,
		Message: i18n.Sprintf(ctx, "errors.invalid_filter", field, cause.Error()),
	}
}

func unknownScope(ctx context.Context, name string, available []string) error {
	return &ValidationError{
		Field:   name,
		Allowed: available,
		Message: i18n.Sprintf(ctx, "errors.unknown_scope", name, strings.Join(available, ", ")),
	}
}
