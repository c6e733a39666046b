package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Lifecycle:
//   1. Build one Manager at application startup with NewManager(config)
//   2. Share it across repositories (it owns the connection pool)
//   3. Call Close() at shutdown
//
// Tests and callers holding an existing *sql.DB use NewManagerWithDialector.

// NewManager creates a new database manager instance with full configuration
func NewManager(config *Config, opts ...Option) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dialector, err := config.Dialector()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return open(dialector, config, opts)
}

// NewManagerWithDialector creates a manager over an already prepared dialector.
// Connection settings in config are ignored; pool and logging settings apply.
func NewManagerWithDialector(dialector gorm.Dialector, config *Config, opts ...Option) (*Manager, error) {
	if dialector == nil {
		return nil, fmt.Errorf("dialector cannot be nil")
	}
	if config == nil {
		config = &Config{}
	}
	return open(dialector, config, opts)
}

func open(dialector gorm.Dialector, config *Config, opts []Option) (*Manager, error) {
	m := &Manager{
		config: config,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	gormConfig := &gorm.Config{
		SkipDefaultTransaction:                   config.SkipDefaultTransaction,
		DisableForeignKeyConstraintWhenMigrating: config.DisableForeignKeyConstraintWhenMigrating,
		PrepareStmt:                              config.PrepareStmt,
		Logger:                                   NewGormLogger(m.log, config.Logging),
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	m.db = db
	return m, nil
}

// DB returns the GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// SqlDB returns the underlying sql.DB instance
func (m *Manager) SqlDB() (*sql.DB, error) {
	return m.db.DB()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		sqlDB, err := m.SqlDB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Config returns the manager's configuration
func (m *Manager) Config() *Config {
	return m.config
}

// Ping tests the database connection
func (m *Manager) Ping(ctx context.Context) error {
	sqlDB, err := m.SqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Stats returns database connection statistics
func (m *Manager) Stats() (sql.DBStats, error) {
	sqlDB, err := m.SqlDB()
	if err != nil {
		return sql.DBStats{}, err
	}
	return sqlDB.Stats(), nil
}

// WithTimeout wraps a context with the configured query timeout.
// Without a timeout the context is returned unchanged.
func (m *Manager) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.config != nil && m.config.QueryTimeout > 0 {
		return context.WithTimeout(ctx, m.config.QueryTimeout)
	}
	return ctx, func() {}
}

// Transaction runs fn inside a transaction owned by the manager.
// The transaction commits when fn returns nil and rolls back otherwise.
func (m *Manager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

// Raw executes a literal query and returns every row as a column map
func (m *Manager) Raw(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := m.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return rows, nil
}

// Migrate creates or updates tables for the given models
func (m *Manager) Migrate(ctx context.Context, models ...interface{}) error {
	if err := m.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
