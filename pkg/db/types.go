package db

import (
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Supported database drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds GORM database configuration
type Config struct {
	// Driver selects the GORM dialector: mysql, postgres or sqlite. Default: mysql
	Driver string `json:"driver" yaml:"driver" env:"DB_DRIVER"`

	// Connection Settings
	// For sqlite, Database is the file path (or ":memory:")
	Host     string `json:"host" yaml:"host" env:"DB_HOST"`
	Port     int    `json:"port" yaml:"port" env:"DB_PORT"`
	Database string `json:"database" yaml:"database" env:"DB_DATABASE"`
	Username string `json:"username" yaml:"username" env:"DB_USER"`
	Password string `json:"password" yaml:"password" env:"DB_PASSWORD"`

	// Connection Pool Settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`

	// MySQL Specific Settings
	Charset   string `json:"charset" yaml:"charset"`     // Default: utf8mb4
	Collation string `json:"collation" yaml:"collation"` // Default: utf8mb4_unicode_ci
	TimeZone  string `json:"timezone" yaml:"timezone"`   // Default: UTC

	// GORM Settings
	DisableForeignKeyConstraintWhenMigrating bool          `json:"disable_foreign_key_constraint_when_migrating" yaml:"disable_foreign_key_constraint_when_migrating"`
	SkipDefaultTransaction                   bool          `json:"skip_default_transaction" yaml:"skip_default_transaction"`
	PrepareStmt                              bool          `json:"prepare_stmt" yaml:"prepare_stmt"`
	QueryTimeout                             time.Duration `json:"query_timeout" yaml:"query_timeout" env:"DB_QUERY_TIMEOUT"`

	// SSL Configuration
	SSL SSLConfig `json:"ssl" yaml:"ssl"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SSLConfig holds SSL/TLS configuration for MySQL and PostgreSQL
type SSLConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	CAFile     string `json:"ca_file" yaml:"ca_file"`
	SkipVerify bool   `json:"skip_verify" yaml:"skip_verify"` // Skip certificate verification (not recommended for production)
	ServerName string `json:"server_name" yaml:"server_name"`
}

// LoggingConfig controls database logging behavior
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" env:"DB_LOG_LEVEL"` // silent, error, warn, info

	LogQueries         bool          `json:"log_queries" yaml:"log_queries"`
	LogSlowQueries     bool          `json:"log_slow_queries" yaml:"log_slow_queries"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" yaml:"slow_query_threshold"`
	LogQueryParameters bool          `json:"log_query_parameters" yaml:"log_query_parameters"`
}

// Manager manages database connections
type Manager struct {
	config *Config
	db     *gorm.DB
	log    logrus.FieldLogger
}

// Option customizes a Manager at construction
type Option func(*Manager)

// WithLogger routes GORM logging through the given logrus logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.log = log
	}
}
