package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockManager(t *testing.T, opts ...Option) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	})
	m, err := NewManagerWithDialector(dialector, &Config{SkipDefaultTransaction: true}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, mock
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)

	_, err = NewManager(&Config{Driver: DriverMySQL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	_, err = NewManagerWithDialector(nil, nil)
	assert.Error(t, err)
}

func TestManagerTransactionCommitsAndRollsBack(t *testing.T) {
	m, mock := newMockManager(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := m.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE accounts SET balance = balance - 1").Error
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()

	err = m.Transaction(ctx, func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerRawWrapsErrors(t *testing.T) {
	m, mock := newMockManager(t)

	mock.ExpectQuery("SELECT name FROM users").WillReturnError(errors.New("connection reset"))

	_, err := m.Raw(context.Background(), "SELECT name FROM users WHERE id = ?", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManagerPingStatsAndClose(t *testing.T) {
	m, err := NewManager(&Config{
		Driver:       DriverSQLite,
		Database:     filepath.Join(t.TempDir(), "ping.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)

	require.NoError(t, m.Ping(context.Background()))

	stats, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)

	sqlDB, err := m.SqlDB()
	require.NoError(t, err)
	require.NoError(t, m.Close())
	assert.Error(t, sqlDB.Ping())
}

func TestManagerRawReturnsRows(t *testing.T) {
	m, err := NewManager(&Config{
		Driver:       DriverSQLite,
		Database:     filepath.Join(t.TempDir(), "raw.db"),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	require.NoError(t, m.Migrate(ctx, &filterRow{}))
	require.NoError(t, m.DB().Create(&[]filterRow{{Name: "ann", Age: 30}, {Name: "bob", Age: 17}}).Error)

	rows, err := m.Raw(ctx, "SELECT name FROM filter_rows WHERE age >= ? ORDER BY id", 18)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ann", rows[0]["name"])

	require.NoError(t, m.Ping(ctx))
	stats, err := m.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.MaxOpenConnections)
}

func TestManagerWithTimeout(t *testing.T) {
	m := &Manager{config: &Config{}}
	ctx, cancel := m.WithTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)

	m.config.QueryTimeout = 1e9
	ctx, cancel = m.WithTimeout(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	assert.True(t, ok)
}

func TestGormLoggerRoutesThroughLogrus(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	m, mock := newMockManager(t, WithLogger(log))
	m.DB().Logger = NewGormLogger(log, LoggingConfig{Level: "info", LogQueries: true})

	mock.ExpectExec("DELETE FROM sessions").WillReturnError(errors.New("lock wait timeout"))
	err := m.DB().Exec("DELETE FROM sessions WHERE expired = ?", true).Error
	require.Error(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "query failed", entry.Message)
	assert.Contains(t, entry.Data["sql"], "DELETE FROM sessions")
	assert.NotContains(t, entry.Data["sql"], "true")
}
