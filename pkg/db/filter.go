package db

import (
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm/clause"
)

// Filter conditions are translated into GORM clause expressions.
//
// SECURITY WARNING:
// Condition.Field is an identifier, not a value. Callers must resolve it against
// a known column set before calling Expression. Only Condition.Value is bound
// as a query parameter.

// ErrInvalidCondition is returned when a condition cannot be translated
var ErrInvalidCondition = errors.New("invalid filter condition")

// Operator represents a filter comparison operator
type Operator string

const (
	Equal              Operator = "eq"
	NotEqual           Operator = "neq"
	GreaterThan        Operator = "gt"
	GreaterThanOrEqual Operator = "gte"
	LessThan           Operator = "lt"
	LessThanOrEqual    Operator = "lte"
	Like               Operator = "like"
	In                 Operator = "in"
	NotIn              Operator = "nin"
	Between            Operator = "between"
	NotBetween         Operator = "notBetween"
)

// Valid reports whether o is a known operator
func (o Operator) Valid() bool {
	switch o {
	case Equal, NotEqual, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual,
		Like, In, NotIn, Between, NotBetween:
		return true
	}
	return false
}

// Condition represents a single WHERE predicate
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Expression builds the clause for the condition against the given column
// of the current table. A nil value with eq/neq becomes IS NULL / IS NOT NULL.
func (c Condition) Expression(column string) (clause.Expression, error) {
	col := clause.Column{Table: clause.CurrentTable, Name: column}

	switch c.Operator {
	case Equal:
		return clause.Eq{Column: col, Value: c.Value}, nil
	case NotEqual:
		return clause.Neq{Column: col, Value: c.Value}, nil
	case GreaterThan:
		return clause.Gt{Column: col, Value: c.Value}, nil
	case GreaterThanOrEqual:
		return clause.Gte{Column: col, Value: c.Value}, nil
	case LessThan:
		return clause.Lt{Column: col, Value: c.Value}, nil
	case LessThanOrEqual:
		return clause.Lte{Column: col, Value: c.Value}, nil
	case Like:
		return clause.Like{Column: col, Value: c.Value}, nil
	case In, NotIn:
		values, err := toValues(c.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s on %s: %v", ErrInvalidCondition, c.Operator, c.Field, err)
		}
		in := clause.IN{Column: col, Values: values}
		if c.Operator == NotIn {
			return clause.Not(in), nil
		}
		return in, nil
	case Between, NotBetween:
		values, err := toValues(c.Value)
		if err != nil || len(values) != 2 {
			return nil, fmt.Errorf("%w: %s on %s requires exactly two values", ErrInvalidCondition, c.Operator, c.Field)
		}
		sql := "? BETWEEN ? AND ?"
		if c.Operator == NotBetween {
			sql = "? NOT BETWEEN ? AND ?"
		}
		return clause.Expr{SQL: sql, Vars: []interface{}{col, values[0], values[1]}}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, c.Operator)
	}
}

// toValues flattens a slice or array value into its elements
func toValues(value interface{}) ([]interface{}, error) {
	if value == nil {
		return nil, fmt.Errorf("value must be a list")
	}
	if values, ok := value.([]interface{}); ok {
		return values, nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("value must be a list, got %T", value)
	}

	values := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		values[i] = v.Index(i).Interface()
	}
	return values, nil
}
