package db

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	constant "liyu1981.xyz/roomwatch-service/pkg/common"
	"liyu1981.xyz/roomwatch-service/pkg/models"
)

// DB is the store handle. It is opened once at start-up, passed to whoever
// needs it and closed at teardown.
type DB struct {
	Conn *gorm.DB
}

func Open(dialector gorm.Dialector) (*DB, error) {
	logger := constant.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		// unique violations surface as gorm.ErrDuplicatedKey on every dialector
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	instance := &DB{Conn: conn}

	if dialector.Name() == "sqlite" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// one writer at a time keeps shared-cache sqlite from returning SQLITE_LOCKED
		sqlDB.SetMaxOpenConns(1)

		if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("failed to enable sqlite foreign key support: %w", err)
		}
	}

	if err := instance.Migrate(); err != nil {
		_ = instance.Close()
		return nil, err
	}

	logger.Info("Database migration completed")

	return instance, nil
}

func (d *DB) Migrate() error {
	if err := d.Conn.AutoMigrate(
		&models.Profile{},
		&models.Room{},
		&models.Thresholds{},
		&models.Reading{},
		&models.Alert{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.Conn == nil {
		return nil
	}
	sqlDB, err := d.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(constant.EnvKeyRoomwatchDbPath); !found {
		dbPath = "roomwatch.db"
	}
	return UseSqliteFileDialector(dbPath)
}

func UseSqliteFileDialector(dbPath string) gorm.Dialector {
	return sqlite.Open(dbPath + "?_journal_mode=WAL")
}

// UseMemorySqliteDialector gives every call its own named in-memory database,
// so tests opening several handles do not see each other's rows.
func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func UseDialector(cfg *constant.Config) gorm.Dialector {
	switch cfg.DBType {
	case "memory":
		return UseMemorySqliteDialector()
	case "postgres":
		return UsePostgresDialector(cfg.DBDSN)
	default:
		return UseSqliteFileDialector(cfg.DBPath)
	}
}
