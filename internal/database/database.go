package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pageza/foodgram/backend/config"
)

// DB represents the database connection
type DB struct {
	*gorm.DB
}

// New creates a new database connection for the configured driver
func New(cfg *config.Config) (*DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DBDriver {
	case "sqlite":
		log.Info("opening sqlite database", "path", cfg.SQLitePath)
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath+"?_foreign_keys=on"), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
	default:
		sqlDB, err := openPostgres(cfg)
		if err != nil {
			return nil, err
		}
		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
	}

	log.Info("successfully connected to database", "driver", db.Dialector.Name())
	return &DB{db}, nil
}

func openPostgres(cfg *config.Config) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)

	log.Info("connecting to database", "host", cfg.DBHost, "port", cfg.DBPort, "user", cfg.DBUser)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	return db, nil
}

// HealthCheck checks if the database is accessible
func (db *DB) HealthCheck(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
