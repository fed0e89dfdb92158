package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"aclamission/models"
)

var errBoom = errors.New("boom")

// fakeStore is an in-memory implementation of every store interface the
// ledger services use.
type fakeStore struct {
	mu        sync.Mutex
	txs       []models.BankTransaction
	pledges   map[string]models.Pledge
	outgoings map[string]models.Outgoing

	pageSizes       []int
	failPage        int
	failDeleteBatch int
	deleteCalls     int
	failPledgeWrite bool
	insertCalls     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{pledges: map[string]models.Pledge{}, outgoings: map[string]models.Outgoing{}}
}

func (s *fakeStore) ordered() []models.BankTransaction {
	out := slices.Clone(s.txs)
	slices.SortStableFunc(out, func(a, b models.BankTransaction) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

func (s *fakeStore) page(offset, limit int) ([]models.BankTransaction, error) {
	s.pageSizes = append(s.pageSizes, 0)
	if s.failPage == len(s.pageSizes) {
		return nil, errBoom
	}
	all := s.ordered()
	if offset >= len(all) {
		return nil, nil
	}
	rows := all[offset:min(offset+limit, len(all))]
	s.pageSizes[len(s.pageSizes)-1] = len(rows)
	return rows, nil
}

func (s *fakeStore) TransactionPage(_ context.Context, offset, limit int) ([]models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(offset, limit)
}

func (s *fakeStore) PledgesWithIndividuals(context.Context) ([]models.Pledge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pledge
	for _, p := range s.pledges {
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) OutgoingsByStatus(_ context.Context, statuses ...models.OutgoingStatus) ([]models.Outgoing, error) {
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

func (s *fakeStore) DedupPage(_ context.Context, offset, limit int) ([]DedupRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.page(offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]DedupRow, 0, len(rows))
	for _, t := range rows {
		out = append(out, DedupRow{ID: t.ID, TransactionReference: t.TransactionReference, Balance: t.Balance, CreatedAt: t.CreatedAt})
	}
	return out, nil
}

func (s *fakeStore) DeleteTransactions(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if s.deleteCalls == s.failDeleteBatch {
		return 0, errBoom
	}
	var n int64
	s.txs = slices.DeleteFunc(s.txs, func(t models.BankTransaction) bool {
		if slices.Contains(ids, t.ID) {
			n++
			return true
		}
		return false
	})
	return n, nil
}

func (s *fakeStore) CreateTransactions(_ context.Context, rows []models.BankTransaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	var n int64
	for _, r := range rows {
		if slices.ContainsFunc(s.txs, func(t models.BankTransaction) bool { return t.ID == r.ID }) {
			continue
		}
		s.txs = append(s.txs, r)
		n++
	}
	return n, nil
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx LinkTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := slices.Clone(s.txs)
	pledges := cloneMap(s.pledges)
	outgoings := cloneMap(s.outgoings)
	if err := fn(&fakeTx{s: s}); err != nil {
		s.txs, s.pledges, s.outgoings = txs, pledges, outgoings
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type fakeTx struct{ s *fakeStore }

func (f *fakeTx) index(id string) int {
	return slices.IndexFunc(f.s.txs, func(t models.BankTransaction) bool { return t.ID == id })
}

func (f *fakeTx) LockTransaction(_ context.Context, id string) (*models.BankTransaction, error) {
	i := f.index(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	t := f.s.txs[i]
	return &t, nil
}

func (f *fakeTx) LockPledge(_ context.Context, id string) (*models.Pledge, error) {
	p, ok := f.s.pledges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeTx) LockOutgoing(_ context.Context, id string) (*models.Outgoing, error) {
	o, ok := f.s.outgoings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (f *fakeTx) SetTransactionLink(_ context.Context, id string, link TransactionLink) error {
	i := f.index(id)
	if i < 0 {
		return ErrNotFound
	}
	f.s.txs[i].PledgeID = link.PledgeID
	f.s.txs[i].OutgoingID = link.OutgoingID
	f.s.txs[i].Reconciled = link.Reconciled
	return nil
}

func (f *fakeTx) SetPledgeFulfillment(_ context.Context, id string, status int) error {
	if f.s.failPledgeWrite {
		return errBoom
	}
	p := f.s.pledges[id]
	p.FulfillmentStatus = status
	f.s.pledges[id] = p
	return nil
}

func (f *fakeTx) SetOutgoingPayment(_ context.Context, id string, paid float64, status models.PaidStatus) error {
	o := f.s.outgoings[id]
	o.PaidAmount = paid
	o.PaidStatus = status
	f.s.outgoings[id] = o
	return nil
}

func (s *fakeStore) tx(id string) models.BankTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t
		}
	}
	panic("no transaction " + id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func at(minutes int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func day(s string) *time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &d
}

func txn(id string, minute int) models.BankTransaction {
	return models.BankTransaction{ID: id, CreatedAt: at(minute)}
}

func manyTransactions(n int) []models.BankTransaction {
	out := make([]models.BankTransaction, 0, n)
	for i := 0; i < n; i++ {
		t := txn(fmt.Sprintf("tx-%04d", i), i)
		if i%2 == 0 {
			t.CreditAmount = 10.25
		} else {
			t.DebitAmount = 4.5
		}
		out = append(out, t)
	}
	return out
}
