package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"aclamission/internal/ledger"
	"aclamission/models"
)

// dryRun returns a gorm handle that builds SQL without a server.
func dryRun(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "app:secret@tcp(127.0.0.1:3306)/missions?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestOrderedPageSQL(t *testing.T) {
	db := dryRun(t)
	var rows []models.BankTransaction
	stmt := orderedPage(db, 2000, 1000).Find(&rows).Statement
	sql := stmt.SQL.String()
	for _, want := range []string{"FROM `bank_transactions`", "ORDER BY created_at ASC, id ASC", "LIMIT ?", "OFFSET ?"} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}
	if got := fmt.Sprint(stmt.Vars); got != "[1000 2000]" {
		t.Errorf("vars = %s", got)
	}
}

func TestDedupQuerySelectsProjection(t *testing.T) {
	db := dryRun(t)
	var rows []models.BankTransaction
	sql := orderedPage(dedupQuery(db), 0, 1000).Find(&rows).Statement.SQL.String()
	if !strings.HasPrefix(sql, "SELECT `id`,`transaction_reference`,`balance`,`created_at` FROM `bank_transactions`") {
		t.Errorf("sql = %q", sql)
	}
}

func TestLockByIDSQL(t *testing.T) {
	db := dryRun(t)
	var p models.Pledge
	sql := lockByID(db, "p1").Take(&p).Statement.SQL.String()
	if !strings.Contains(sql, "FROM `pledges`") || !strings.HasSuffix(sql, "FOR UPDATE") {
		t.Errorf("sql = %q", sql)
	}
}

func TestDeleteByIDsSQL(t *testing.T) {
	db := dryRun(t)
	stmt := db.Where("id IN ?", []string{"a", "b"}).Delete(&models.BankTransaction{}).Statement
	if sql := stmt.SQL.String(); !strings.Contains(sql, "DELETE FROM `bank_transactions` WHERE id IN (?,?)") {
		t.Errorf("sql = %q", sql)
	}
}

func TestGormLevel(t *testing.T) {
	tests := map[string]gormlogger.LogLevel{
		"debug":    gormlogger.Info,
		"info":     gormlogger.Warn,
		"ERROR":    gormlogger.Error,
		"disabled": gormlogger.Silent,
		"":         gormlogger.Warn,
	}
	for in, want := range tests {
		if got := gormLevel(in); got != want {
			t.Errorf("gormLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNotFoundMapping(t *testing.T) {
	if err := notFound(gorm.ErrRecordNotFound); err != ledger.ErrNotFound {
		t.Errorf("got %v", err)
	}
	if err := notFound(gorm.ErrInvalidData); err != gorm.ErrInvalidData {
		t.Errorf("got %v", err)
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql duplicate key name", &mysqldrv.MySQLError{Number: 1061, Message: "Duplicate key name"}, true},
		{"mysql access denied", &mysqldrv.MySQLError{Number: 1142, Message: "INDEX command denied"}, false},
		{"postgres already exists", &pgconn.PgError{Code: "42P07"}, true},
		{"postgres syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"wrapped", fmt.Errorf("exec: %w", &mysqldrv.MySQLError{Number: 1061}), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := indexExists(tc.err); got != tc.want {
				t.Errorf("indexExists(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
