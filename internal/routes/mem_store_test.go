package routes

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"aclamission/internal/ledger"
	"aclamission/models"
)

// memStore keeps every table in memory for end-to-end API tests.
type memStore struct {
	mu          sync.Mutex
	seq         int
	txs         []models.BankTransaction
	individuals []models.Individual
	pledges     []models.Pledge
	outgoings   []models.Outgoing
	pingErr     error
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) stamp() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

func (s *memStore) ordered() []models.BankTransaction {
	out := slices.Clone(s.txs)
	slices.SortStableFunc(out, func(a, b models.BankTransaction) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return nil
	}
	return rows[offset:min(offset+limit, len(rows))]
}

func (s *memStore) TransactionPage(_ context.Context, offset, limit int) ([]models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return window(s.ordered(), offset, limit), nil
}

func (s *memStore) PledgesWithIndividuals(context.Context) ([]models.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withIndividuals(s.pledges), nil
}

func (s *memStore) withIndividuals(pledges []models.Pledge) []models.Pledge {
	out := make([]models.Pledge, 0, len(pledges))
	for _, p := range pledges {
		for i := range s.individuals {
			if s.individuals[i].ID == p.IndividualID {
				ind := s.individuals[i]
				p.Individual = &ind
			}
		}
		out = append(out, p)
	}
	return out
}

func (s *memStore) OutgoingsByStatus(_ context.Context, statuses ...models.OutgoingStatus) ([]models.Outgoing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Outgoing
	for _, o := range s.outgoings {
		if slices.Contains(statuses, o.Status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) DedupPage(_ context.Context, offset, limit int) ([]ledger.DedupRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.DedupRow
	for _, t := range window(s.ordered(), offset, limit) {
		out = append(out, ledger.DedupRow{ID: t.ID, TransactionReference: t.TransactionReference, Balance: t.Balance, CreatedAt: t.CreatedAt})
	}
	return out, nil
}

func (s *memStore) DeleteTransactions(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.txs)
	s.txs = slices.DeleteFunc(s.txs, func(t models.BankTransaction) bool { return slices.Contains(ids, t.ID) })
	return int64(before - len(s.txs)), nil
}

func (s *memStore) CreateTransactions(_ context.Context, rows []models.BankTransaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range rows {
		if slices.ContainsFunc(s.txs, func(t models.BankTransaction) bool { return t.ID == r.ID }) {
			continue
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = s.stamp()
		}
		s.txs = append(s.txs, r)
		n++
	}
	return n, nil
}

func (s *memStore) txIndex(id string) int {
	return slices.IndexFunc(s.txs, func(t models.BankTransaction) bool { return t.ID == id })
}

func (s *memStore) UpdateReceipt(_ context.Context, id, receipt string) (*models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(id)
	if i < 0 {
		return nil, ledger.ErrNotFound
	}
	s.txs[i].ReceiptNumber = nil
	if receipt = strings.TrimSpace(receipt); receipt != "" {
		s.txs[i].ReceiptNumber = &receipt
	}
	t := s.txs[i]
	return &t, nil
}

func (s *memStore) InTx(_ context.Context, fn func(tx ledger.LinkTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, pledges, outgoings := slices.Clone(s.txs), slices.Clone(s.pledges), slices.Clone(s.outgoings)
	if err := fn(memTx{s}); err != nil {
		s.txs, s.pledges, s.outgoings = txs, pledges, outgoings
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (m memTx) pledge(id string) int {
	return slices.IndexFunc(m.s.pledges, func(p models.Pledge) bool { return p.ID == id })
}

func (m memTx) outgoing(id string) int {
	return slices.IndexFunc(m.s.outgoings, func(o models.Outgoing) bool { return o.ID == id })
}

func (m memTx) LockTransaction(_ context.Context, id string) (*models.BankTransaction, error) {
	i := m.s.txIndex(id)
	if i < 0 {
		return nil, ledger.ErrNotFound
	}
	t := m.s.txs[i]
	return &t, nil
}

func (m memTx) LockPledge(_ context.Context, id string) (*models.Pledge, error) {
	i := m.pledge(id)
	if i < 0 {
		return nil, ledger.ErrNotFound
	}
	p := m.s.pledges[i]
	return &p, nil
}

func (m memTx) LockOutgoing(_ context.Context, id string) (*models.Outgoing, error) {
	i := m.outgoing(id)
	if i < 0 {
		return nil, ledger.ErrNotFound
	}
	o := m.s.outgoings[i]
	return &o, nil
}

func (m memTx) SetTransactionLink(_ context.Context, id string, link ledger.TransactionLink) error {
	i := m.s.txIndex(id)
	if i < 0 {
		return ledger.ErrNotFound
	}
	m.s.txs[i].PledgeID, m.s.txs[i].OutgoingID, m.s.txs[i].Reconciled = link.PledgeID, link.OutgoingID, link.Reconciled
	return nil
}

func (m memTx) SetPledgeFulfillment(_ context.Context, id string, status int) error {
	m.s.pledges[m.pledge(id)].FulfillmentStatus = status
	return nil
}

func (m memTx) SetOutgoingPayment(_ context.Context, id string, paid float64, status models.PaidStatus) error {
	i := m.outgoing(id)
	m.s.outgoings[i].PaidAmount, m.s.outgoings[i].PaidStatus = paid, status
	return nil
}

func (s *memStore) ListIndividuals(_ context.Context, limit, offset int) ([]models.Individual, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(window(s.individuals, offset, limit)), int64(len(s.individuals)), nil
}

func (s *memStore) CreateIndividual(_ context.Context, ind *models.Individual) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ind.CreatedAt = s.stamp()
	s.individuals = append(s.individuals, *ind)
	return nil
}

func (s *memStore) ListPledges(_ context.Context, limit, offset int) ([]models.Pledge, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withIndividuals(window(s.pledges, offset, limit)), int64(len(s.pledges)), nil
}

func (s *memStore) GetPledge(_ context.Context, id string) (*models.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.withIndividuals(s.pledges) {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (s *memStore) CreatePledge(_ context.Context, p *models.Pledge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.ContainsFunc(s.individuals, func(i models.Individual) bool { return i.ID == p.IndividualID }) {
		return fmt.Errorf("individual %s: %w", p.IndividualID, ledger.ErrNotFound)
	}
	p.CreatedAt = s.stamp()
	s.pledges = append(s.pledges, *p)
	return nil
}

func (s *memStore) ListOutgoings(_ context.Context, status models.OutgoingStatus, limit, offset int) ([]models.Outgoing, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Outgoing
	for _, o := range s.outgoings {
		if status == "" || o.Status == status {
			matched = append(matched, o)
		}
	}
	return slices.Clone(window(matched, offset, limit)), int64(len(matched)), nil
}

func (s *memStore) CreateOutgoing(_ context.Context, o *models.Outgoing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.CreatedAt = s.stamp()
	s.outgoings = append(s.outgoings, *o)
	return nil
}

func (s *memStore) UpdateOutgoingStatus(_ context.Context, id string, next models.OutgoingStatus) (*models.Outgoing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := memTx{s}.outgoing(id)
	if i < 0 {
		return nil, ledger.ErrNotFound
	}
	if !s.outgoings[i].Status.CanMoveTo(next) {
		return nil, fmt.Errorf("%w: cannot move outgoing from %s to %s", ledger.ErrValidation, s.outgoings[i].Status, next)
	}
	s.outgoings[i].Status = next
	o := s.outgoings[i]
	return &o, nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }
