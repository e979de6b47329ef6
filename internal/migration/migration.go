package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	dbpkg "github.com/smallbiznis/masstrack/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&intentiondomain.MassIntention{},
		&bulkdomain.BulkIntention{},
		&bulkdomain.PauseEvent{},
		&celebrationdomain.MassCelebration{},
		&obligationdomain.MonthlyObligation{},
		&obligationdomain.PersonalMassLink{},
		&notificationdomain.Notification{},
	}
}

// Apply brings the schema up to date. Postgres runs the embedded SQL
// migrations; other dialects are only used for development and get
// AutoMigrate.
func Apply(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !dbpkg.IsPostgres(conn) {
		if err := conn.AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

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
	// migrator.Close would close the shared *sql.DB.
	return nil
}
