package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"aclamission/models"
)

// LoadedTransaction is a bank transaction with its link targets resolved
// to display names.
type LoadedTransaction struct {
	models.BankTransaction
	PledgeName    string `json:"pledgeName,omitempty"`
	OutgoingTitle string `json:"outgoingTitle,omitempty"`
}

type Totals struct {
	TotalDebit  float64 `json:"totalDebit"`
	TotalCredit float64 `json:"totalCredit"`
	Count       int     `json:"count"`
}

type LoadResult struct {
	Rows      []LoadedTransaction `json:"rows"`
	Totals    Totals              `json:"totals"`
	Pledges   map[string]string   `json:"-"`
	Outgoings map[string]string   `json:"-"`
	Pages     int                 `json:"-"`
}

type Loader struct {
	store     LoaderStore
	batchSize int
	log       zerolog.Logger
}

func NewLoader(store LoaderStore, batchSize int, log zerolog.Logger) *Loader {
	return &Loader{store: store, batchSize: batchSize, log: log}
}

// Load reads every bank transaction plus the pledge and outgoing lookups.
// It is all-or-nothing: on any error the partial data is dropped.
func (l *Loader) Load(ctx context.Context) (*LoadResult, error) {
	rows, pages, err := FetchAll(ctx, l.batchSize, l.store.TransactionPage)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	pledges, err := l.store.PledgesWithIndividuals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pledges: %w", err)
	}
	outgoings, err := l.store.OutgoingsByStatus(ctx, models.OutgoingApproved, models.OutgoingFinalized)
	if err != nil {
		return nil, fmt.Errorf("load outgoings: %w", err)
	}

	res := &LoadResult{
		Rows:      make([]LoadedTransaction, 0, len(rows)),
		Pledges:   make(map[string]string, len(pledges)),
		Outgoings: make(map[string]string, len(outgoings)),
		Pages:     pages,
	}
	for _, p := range pledges {
		res.Pledges[p.ID] = p.DisplayName()
	}
	for _, o := range outgoings {
		res.Outgoings[o.ID] = o.Title
	}

	debit, credit := decimal.Zero, decimal.Zero
	for _, t := range rows {
		debit = debit.Add(decimal.NewFromFloat(t.DebitAmount))
		credit = credit.Add(decimal.NewFromFloat(t.CreditAmount))
		lt := LoadedTransaction{BankTransaction: t}
		if t.PledgeID != nil {
			lt.PledgeName = res.Pledges[*t.PledgeID]
		}
		if t.OutgoingID != nil {
			lt.OutgoingTitle = res.Outgoings[*t.OutgoingID]
		}
		res.Rows = append(res.Rows, lt)
	}
	res.Totals = Totals{
		TotalDebit:  debit.InexactFloat64(),
		TotalCredit: credit.InexactFloat64(),
		Count:       len(rows),
	}

	l.log.Debug().
		Int("rows", len(rows)).
		Int("pages", pages).
		Int("pledges", len(pledges)).
		Int("outgoings", len(outgoings)).
		Msg("transactions loaded")
	return res, nil
}
