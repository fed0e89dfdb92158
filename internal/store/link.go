package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aclamission/internal/ledger"
	"aclamission/models"
)

// InTx runs fn in one database transaction. Rows read through the LinkTx
// are locked FOR UPDATE until it commits or rolls back.
func (s *Store) InTx(ctx context.Context, fn func(tx ledger.LinkTx) error) error {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&linkTx{db: tx})
	})
}

type linkTx struct{ db *gorm.DB }

func lockByID(db *gorm.DB, id string) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
}

func (t *linkTx) LockTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	var row models.BankTransaction
	if err := lockByID(t.db.WithContext(ctx), id).Take(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (t *linkTx) LockPledge(ctx context.Context, id string) (*models.Pledge, error) {
	var p models.Pledge
	if err := lockByID(t.db.WithContext(ctx), id).Take(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (t *linkTx) LockOutgoing(ctx context.Context, id string) (*models.Outgoing, error) {
	var o models.Outgoing
	if err := lockByID(t.db.WithContext(ctx), id).Take(&o).Error; err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (t *linkTx) SetTransactionLink(ctx context.Context, id string, link ledger.TransactionLink) error {
	return t.db.WithContext(ctx).Model(&models.BankTransaction{}).Where("id = ?", id).
		Updates(map[string]any{
			"pledge_id":   link.PledgeID,
			"outgoing_id": link.OutgoingID,
			"reconciled":  link.Reconciled,
		}).Error
}

func (t *linkTx) SetPledgeFulfillment(ctx context.Context, id string, status int) error {
	return t.db.WithContext(ctx).Model(&models.Pledge{}).Where("id = ?", id).
		Update("fulfillment_status", status).Error
}

func (t *linkTx) SetOutgoingPayment(ctx context.Context, id string, paid float64, status models.PaidStatus) error {
	return t.db.WithContext(ctx).Model(&models.Outgoing{}).Where("id = ?", id).
		Updates(map[string]any{"paid_amount": paid, "paid_status": status}).Error
}
