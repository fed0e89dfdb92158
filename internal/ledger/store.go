package ledger

import (
	"context"
	"time"

	"aclamission/models"
)

// LoaderStore is the read side used by the Loader.
type LoaderStore interface {
	TransactionPage(ctx context.Context, offset, limit int) ([]models.BankTransaction, error)
	PledgesWithIndividuals(ctx context.Context) ([]models.Pledge, error)
	OutgoingsByStatus(ctx context.Context, statuses ...models.OutgoingStatus) ([]models.Outgoing, error)
}

// DedupRow is the projection of a bank transaction the duplicate scan needs.
type DedupRow struct {
	ID                   string
	TransactionReference *string
	Balance              *float64
	CreatedAt            time.Time
}

// DedupStore pages DedupRows ordered by created_at ascending and deletes
// transactions by id.
type DedupStore interface {
	DedupPage(ctx context.Context, offset, limit int) ([]DedupRow, error)
	DeleteTransactions(ctx context.Context, ids []string) (int64, error)
}

// TransactionLink is the full link state written onto a transaction.
type TransactionLink struct {
	PledgeID   *string
	OutgoingID *string
	Reconciled bool
}

// LinkTx is the unit of work a link runs in. Reads lock the row until the
// surrounding transaction ends.
type LinkTx interface {
	LockTransaction(ctx context.Context, id string) (*models.BankTransaction, error)
	LockPledge(ctx context.Context, id string) (*models.Pledge, error)
	LockOutgoing(ctx context.Context, id string) (*models.Outgoing, error)
	SetTransactionLink(ctx context.Context, id string, link TransactionLink) error
	SetPledgeFulfillment(ctx context.Context, id string, status int) error
	SetOutgoingPayment(ctx context.Context, id string, paid float64, status models.PaidStatus) error
}

// LinkStore runs fn atomically: if fn returns an error nothing it wrote is kept.
type LinkStore interface {
	InTx(ctx context.Context, fn func(tx LinkTx) error) error
}

// ImportStore inserts transactions, ignoring rows whose id already exists.
type ImportStore interface {
	CreateTransactions(ctx context.Context, rows []models.BankTransaction) (int64, error)
}
