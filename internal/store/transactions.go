package store

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aclamission/internal/ledger"
	"aclamission/models"
)

func (s *Store) TransactionPage(ctx context.Context, offset, limit int) ([]models.BankTransaction, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var rows []models.BankTransaction
	err := orderedPage(s.db.WithContext(ctx), offset, limit).Find(&rows).Error
	return rows, err
}

func dedupQuery(db *gorm.DB) *gorm.DB {
	return db.Model(&models.BankTransaction{}).
		Select("id", "transaction_reference", "balance", "created_at")
}

func (s *Store) DedupPage(ctx context.Context, offset, limit int) ([]ledger.DedupRow, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var rows []ledger.DedupRow
	err := orderedPage(dedupQuery(s.db.WithContext(ctx)), offset, limit).Scan(&rows).Error
	return rows, err
}

func (s *Store) DeleteTransactions(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	res := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.BankTransaction{})
	return res.RowsAffected, res.Error
}

// CreateTransactions inserts rows and silently skips ids that already exist.
func (s *Store) CreateTransactions(ctx context.Context, rows []models.BankTransaction) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	return res.RowsAffected, res.Error
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var t models.BankTransaction
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// UpdateReceipt sets or clears (empty string) the receipt number.
func (s *Store) UpdateReceipt(ctx context.Context, id, receipt string) (*models.BankTransaction, error) {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	var t models.BankTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&t).Error; err != nil {
			return notFound(err)
		}
		var value *string
		if receipt = strings.TrimSpace(receipt); receipt != "" {
			value = &receipt
		}
		t.ReceiptNumber = value
		return tx.Model(&models.BankTransaction{}).Where("id = ?", id).Update("receipt_number", value).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
