package repository

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var deletedAtType = reflect.TypeOf(gorm.DeletedAt{})

// modelSchema is the column metadata of one model, derived from its GORM schema
type modelSchema struct {
	schema     *schema.Schema
	table      string
	primaryKey string // column name
	softDelete string // column name, empty when unsupported

	// columns maps both Go field names and column names to column names
	columns map[string]string
	// keys lists accepted names: field names first, then column names
	keys []string
}

// parseModel parses the GORM schema of model using conn's naming strategy and cache
func parseModel(conn *gorm.DB, model interface{}) (*modelSchema, error) {
	stmt := &gorm.Statement{DB: conn}
	if err := stmt.Parse(model); err != nil {
		return nil, fmt.Errorf("failed to parse model schema: %w", err)
	}
	m := newModelSchema(stmt.Schema)
	if m.primaryKey == "" {
		return nil, fmt.Errorf("model %s has no primary key", stmt.Schema.Name)
	}
	return m, nil
}

func newModelSchema(s *schema.Schema) *modelSchema {
	m := &modelSchema{
		schema:  s,
		table:   s.Table,
		columns: make(map[string]string, len(s.Fields)*2),
	}

	var names, dbNames []string
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		m.columns[f.Name] = f.DBName
		m.columns[f.DBName] = f.DBName
		names = append(names, f.Name)
		if f.DBName != f.Name {
			dbNames = append(dbNames, f.DBName)
		}
		if f.FieldType == deletedAtType {
			m.softDelete = f.DBName
		}
	}
	m.keys = append(names, dbNames...)

	if s.PrioritizedPrimaryField != nil {
		m.primaryKey = s.PrioritizedPrimaryField.DBName
	} else if len(s.PrimaryFields) > 0 {
		m.primaryKey = s.PrimaryFields[0].DBName
	}

	return m
}

// column resolves a field or column name to its column name
func (m *modelSchema) column(ctx context.Context, name string) (string, error) {
	if col, ok := m.columns[name]; ok {
		return col, nil
	}
	return "", invalidField(ctx, name, m.keys)
}

// sortColumn resolves a sort key; an empty key selects the primary key
func (m *modelSchema) sortColumn(ctx context.Context, key string) (string, error) {
	if key == "" {
		return m.primaryKey, nil
	}
	if col, ok := m.columns[key]; ok {
		return col, nil
	}
	return "", invalidSortKey(ctx, key, m.keys)
}

// attributes resolves attribute keys to column names
func (m *modelSchema) attributes(ctx context.Context, attrs Attributes) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		col, err := m.column(ctx, key)
		if err != nil {
			return nil, err
		}
		out[col] = value
	}
	return out, nil
}

// relation walks a dotted relation path such as "Roles.Permissions"
func (m *modelSchema) relation(ctx context.Context, path string) (*modelSchema, error) {
	current := m.schema
	for _, name := range strings.Split(path, ".") {
		rel, ok := current.Relationships.Relations[name]
		if !ok {
			available := make([]string, 0, len(current.Relationships.Relations))
			for relName := range current.Relationships.Relations {
				available = append(available, relName)
			}
			sort.Strings(available)
			return nil, invalidField(ctx, path, available)
		}
		current = rel.FieldSchema
	}
	return newModelSchema(current), nil
}

// col qualifies a column with the current table
func col(name string) clause.Column {
	return clause.Column{Table: clause.CurrentTable, Name: name}
}

// equalities builds one equality per column, ordered by column name
func equalities(values map[string]interface{}) []clause.Expression {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	exprs := make([]clause.Expression, 0, len(names))
	for _, name := range names {
		exprs = append(exprs, clause.Eq{Column: col(name), Value: values[name]})
	}
	return exprs
}
