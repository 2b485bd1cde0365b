package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const recipeTextIndex = "idx_recipes_text"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the schema up to date. Postgres uses the versioned SQL
// migrations; sqlite and mysql use gorm auto-migration of the models.
func RunMigrations(db *gorm.DB, postgresDSN string) error {
	if db.Dialector.Name() != "postgres" {
		logrus.Infof("Using GORM auto-migration for %s", db.Dialector.Name())
		return AutoMigrate(db)
	}

	m, err := newMigrator(postgresDSN)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logrus.Info("No migrations to run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := m.Version()
	logrus.WithField("version", version).Info("Migrations applied")
	return nil
}

// RollbackMigrations reverts the given number of postgres migrations.
func RollbackMigrations(db *gorm.DB, postgresDSN string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0")
	}
	if db.Dialector.Name() != "postgres" {
		return fmt.Errorf("rollback is only supported on postgres, not %s", db.Dialector.Name())
	}

	m, err := newMigrator(postgresDSN)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Steps(-steps); err != nil {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	logrus.WithField("steps", steps).Info("Rollback completed")
	return nil
}

// AutoMigrate creates or updates the tables for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	if err := createRecipeTextIndex(db); err != nil {
		return fmt.Errorf("failed to create recipe text index: %w", err)
	}
	return nil
}

// createRecipeTextIndex adds the unique index on recipes.text that the
// postgres migration declares as a constraint. MySQL can only index a
// prefix of a TEXT column.
func createRecipeTextIndex(db *gorm.DB) error {
	if db.Migrator().HasIndex(&models.Recipe{}, recipeTextIndex) {
		return nil
	}
	column := "`text`"
	if db.Dialector.Name() == "mysql" {
		column = "`text`(255)"
	}
	return db.Exec("CREATE UNIQUE INDEX " + recipeTextIndex + " ON recipes (" + column + ")").Error
}

// newMigrator opens its own lib/pq connection, since closing the migrator
// closes the database handle it was given.
func newMigrator(dsn string) (*migrate.Migrate, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening migration connection: %w", err)
	}

	driver, err := migratepg.WithInstance(conn, &migratepg.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logrus.WithError(srcErr).Warn("closing migration source")
	}
	if dbErr != nil {
		logrus.WithError(dbErr).Warn("closing migration database")
	}
}
