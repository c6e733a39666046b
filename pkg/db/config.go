package db

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DefaultConfig returns a MySQL configuration with the pool defaults used in production
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverMySQL,
		Host:            "localhost",
		Port:            3306,
		Charset:         "utf8mb4",
		Collation:       "utf8mb4_unicode_ci",
		TimeZone:        "UTC",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		PrepareStmt:     true,
		QueryTimeout:    30 * time.Second,
		Logging: LoggingConfig{
			Level:              "warn",
			LogSlowQueries:     true,
			SlowQueryThreshold: 200 * time.Millisecond,
		},
	}
}

// driver returns the configured driver name, mysql when unset
func (c *Config) driver() string {
	if c.Driver == "" {
		return DriverMySQL
	}
	return strings.ToLower(c.Driver)
}

// Validate checks if the database configuration is valid
func (c *Config) Validate() error {
	switch c.driver() {
	case DriverMySQL, DriverPostgres:
	case DriverSQLite:
		if c.Database == "" {
			return fmt.Errorf("sqlite database path is required")
		}
		return c.validatePool()
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	if c.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Username == "" {
		return fmt.Errorf("database username is required")
	}
	if err := c.validatePool(); err != nil {
		return err
	}

	if c.SSL.Enabled && !c.SSL.SkipVerify {
		if err := c.validateTLSFiles(); err != nil {
			return fmt.Errorf("TLS configuration error: %w", err)
		}
	}

	return nil
}

func (c *Config) validatePool() error {
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// validateTLSFiles validates that TLS certificate files exist and are readable
func (c *Config) validateTLSFiles() error {
	if c.SSL.CAFile != "" {
		if _, err := os.Stat(c.SSL.CAFile); err != nil {
			return fmt.Errorf("CA file not accessible: %w", err)
		}
	}

	if c.SSL.CertFile != "" || c.SSL.KeyFile != "" {
		if c.SSL.CertFile == "" || c.SSL.KeyFile == "" {
			return fmt.Errorf("both CertFile and KeyFile must be provided together")
		}
		if _, err := os.Stat(c.SSL.CertFile); err != nil {
			return fmt.Errorf("client certificate file not accessible: %w", err)
		}
		if _, err := os.Stat(c.SSL.KeyFile); err != nil {
			return fmt.Errorf("client key file not accessible: %w", err)
		}
	}

	return nil
}

// Dialector returns the GORM dialector for the configured driver
func (c *Config) Dialector() (gorm.Dialector, error) {
	dsn, err := c.GetDSN()
	if err != nil {
		return nil, err
	}

	switch c.driver() {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return gormmysql.Open(dsn), nil
	}
}

// GetDSN returns the Data Source Name for the configured driver
func (c *Config) GetDSN() (string, error) {
	switch c.driver() {
	case DriverPostgres:
		return c.postgresDSN(), nil
	case DriverSQLite:
		return c.Database, nil
	default:
		return c.mysqlDSN()
	}
}

// mysqlDSN builds the DSN with the official MySQL driver config builder
func (c *Config) mysqlDSN() (string, error) {
	cfg := mysql.Config{
		User:                 c.Username,
		Passwd:               c.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%d", c.Host, c.Port),
		DBName:               c.Database,
		Collation:            c.Collation,
		Loc:                  parseLocation(c.TimeZone),
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	if c.Charset != "" {
		cfg.Params = map[string]string{"charset": c.Charset}
	}

	if c.SSL.Enabled {
		if c.SSL.SkipVerify {
			cfg.TLSConfig = "skip-verify"
		} else {
			tlsConfig, err := c.buildTLSConfig()
			if err != nil {
				return "", err
			}
			// Registration under the same name is idempotent for identical configs
			tlsName := c.generateTLSConfigName()
			_ = mysql.RegisterTLSConfig(tlsName, tlsConfig)
			cfg.TLSConfig = tlsName
		}
	}

	return cfg.FormatDSN(), nil
}

// postgresDSN builds a libpq keyword/value DSN understood by pgx
func (c *Config) postgresDSN() string {
	parts := []string{
		fmt.Sprintf("host=%s", c.Host),
		fmt.Sprintf("port=%d", c.Port),
		fmt.Sprintf("user=%s", c.Username),
		fmt.Sprintf("dbname=%s", c.Database),
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}

	switch {
	case !c.SSL.Enabled:
		parts = append(parts, "sslmode=disable")
	case c.SSL.SkipVerify:
		parts = append(parts, "sslmode=require")
	default:
		parts = append(parts, "sslmode=verify-full")
		if c.SSL.CAFile != "" {
			parts = append(parts, fmt.Sprintf("sslrootcert=%s", c.SSL.CAFile))
		}
		if c.SSL.CertFile != "" && c.SSL.KeyFile != "" {
			parts = append(parts, fmt.Sprintf("sslcert=%s", c.SSL.CertFile), fmt.Sprintf("sslkey=%s", c.SSL.KeyFile))
		}
	}

	tz := c.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	parts = append(parts, fmt.Sprintf("TimeZone=%s", tz))

	return strings.Join(parts, " ")
}

// buildTLSConfig loads CA and client certificates for the MySQL driver
func (c *Config) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{ServerName: c.SSL.ServerName}

	if c.SSL.CAFile != "" {
		caCert, err := os.ReadFile(c.SSL.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("invalid CA certificate in %s", c.SSL.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if c.SSL.CertFile != "" && c.SSL.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.SSL.CertFile, c.SSL.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// generateTLSConfigName creates a unique name for TLS config registration
// based on the SSL configuration to prevent collisions between multiple Config instances
func (c *Config) generateTLSConfigName() string {
	h := sha256.New()
	h.Write([]byte(c.SSL.CAFile))
	h.Write([]byte(c.SSL.CertFile))
	h.Write([]byte(c.SSL.KeyFile))
	h.Write([]byte(c.SSL.ServerName))
	hash := hex.EncodeToString(h.Sum(nil))[:16]
	return fmt.Sprintf("repokit_tls_%s", hash)
}

// parseLocation parses timezone string to *time.Location
func parseLocation(tz string) *time.Location {
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
