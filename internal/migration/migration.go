package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&clientdomain.Client{},
		&profiledomain.Profile{},
		&budgetdomain.Budget{},
		&budgetdomain.LineItem{},
		&auditdomain.AuditLog{},
	}
}

// Apply brings the schema up to date. Postgres runs the versioned SQL files;
// other dialects are created from the gorm models.
func Apply(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch strings.ToLower(strings.TrimSpace(dbType)) {
	case "postgres", "":
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	default:
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
}

// RunMigrations applies the embedded SQL migrations against postgres.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
