package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/liamashdown/linetracker/internal/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps the GORM connection to the fact warehouse
type DB struct {
	conn *gorm.DB
	log  *logrus.Logger
}

// New creates a new database connection with GORM
func New(cfg *config.Config, log *logrus.Logger) (*DB, error) {
	gormLogger := logger.New(
		&gormLogAdapter{log: log},
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	default:
		dialector = mysql.Open(cfg.DatabaseDSN)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DatabaseMaxConns)
	sqlDB.SetMaxIdleConns(cfg.DatabaseMaxConns / 2)
	sqlDB.SetConnMaxIdleTime(cfg.DatabaseMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.WithField("driver", cfg.DatabaseDriver).Info("Database connection established")

	return &DB{conn: conn, log: log}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// AutoMigrate creates the fact table and its lookup index
func (db *DB) AutoMigrate() error {
	return db.conn.AutoMigrate(&OddsFact{})
}

// CountFacts returns the number of rows in the fact table
func (db *DB) CountFacts(ctx context.Context) (int64, error) {
	var count int64
	result := db.conn.WithContext(ctx).Model(&OddsFact{}).Count(&count)
	return count, result.Error
}

// InsertFacts appends rows in a single transaction. Either every row is
// stored or, on error, none is.
func (db *DB) InsertFacts(ctx context.Context, rows []OddsFact, batchSize int) error {
	if len(rows) == 0 {
		return nil
	}
	return db.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("insert facts: %w", err)
		}
		return nil
	})
}

// EventHeaders returns every distinct event with its latest commence time
func (db *DB) EventHeaders(ctx context.Context) ([]EventHeader, error) {
	var headers []EventHeader
	result := db.conn.WithContext(ctx).
		Model(&OddsFact{}).
		Select("event_id, home_team, away_team, MAX(commence_time) AS commence_time").
		Group("event_id, home_team, away_team").
		Scan(&headers)
	return headers, result.Error
}

// Facts returns the rows matching filter ordered by captured_at, then by
// insertion order.
func (db *DB) Facts(ctx context.Context, filter FactFilter) ([]OddsFact, error) {
	if len(filter.Bookmakers) == 0 {
		return nil, nil
	}
	var facts []OddsFact
	result := db.conn.WithContext(ctx).
		Where("event_id = ? AND market_key = ? AND bookmaker_key IN ?",
			filter.EventID, filter.MarketKey, filter.Bookmakers).
		Order("captured_at ASC, id ASC").
		Find(&facts)
	return facts, result.Error
}

// gormLogAdapter adapts logrus to GORM's logger interface
type gormLogAdapter struct {
	log *logrus.Logger
}

func (l *gormLogAdapter) Printf(format string, args ...interface{}) {
	l.log.Debugf(format, args...)
}
