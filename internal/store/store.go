package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aclamission/internal/config"
	"aclamission/internal/ledger"
	"aclamission/models"
)

// Store is the gorm-backed persistence for the ledger services and the
// directory endpoints. Every call is bounded by the configured timeout.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

var (
	_ ledger.LoaderStore = (*Store)(nil)
	_ ledger.DedupStore  = (*Store)(nil)
	_ ledger.LinkStore   = (*Store)(nil)
	_ ledger.ImportStore = (*Store)(nil)
)

func New(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.timeout)
}

// Open connects with the driver named in cfg and pings the database.
func Open(cfg config.Config, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = mysql.Open(cfg.DSN())
	}
	gl := log.With().Str("component", "gorm").Logger()
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(&gl, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

func gormLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "error", "fatal", "panic":
		return gormlogger.Error
	case "disabled", "off":
		return gormlogger.Silent
	}
	return gormlogger.Warn
}

// Migrate creates or updates the tables and the indexes gorm tags can't express.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	err := db.AutoMigrate(
		&models.Individual{},
		&models.Pledge{},
		&models.Outgoing{},
		&models.BankTransaction{},
	)
	if err != nil {
		return err
	}

	indexStmts := []string{
		`CREATE INDEX idx_bank_transactions_ref_balance ON bank_transactions (transaction_reference, balance)`,
		`CREATE INDEX idx_bank_transactions_created_id ON bank_transactions (created_at, id)`,
	}
	for _, stmt := range indexStmts {
		err := db.Exec(stmt).Error
		switch {
		case err == nil:
		case indexExists(err):
			log.Debug().Err(err).Msg("index already present")
		default:
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// indexExists reports whether a CREATE INDEX error only means the index is
// already there.
func indexExists(err error) bool {
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1061 // ER_DUP_KEYNAME
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P07" // duplicate_table, raised for indexes too
	}
	return false
}

// Ping checks the connection within the store timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.ErrNotFound
	}
	return err
}

// orderedPage is the stable order every batched scan relies on.
func orderedPage(db *gorm.DB, offset, limit int) *gorm.DB {
	return db.Order("created_at ASC, id ASC").Offset(offset).Limit(limit)
}

func limitOffset(db *gorm.DB, limit, offset int) *gorm.DB {
	return db.Limit(limit).Offset(offset)
}
