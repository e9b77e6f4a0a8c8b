package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect returns the gorm dialector for cfg.Type.
func Dialect(cfg Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "mysql":
		return mysql.Open(fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)), nil
	case "postgres", "":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "sqlite":
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			name = "quoteflow.db"
		}
		return sqlite.Open(name), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}
}

// PostgresDSN builds a key/value connection string.
func PostgresDSN(cfg Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.Port,
		sslMode,
	)
}

// PostgresURL builds a URL connection string, the form golang-migrate expects.
func PostgresURL(cfg Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
