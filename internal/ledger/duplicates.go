package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultDeleteBatchSize = 100

// DuplicateGroup is one composite key that occurs more than once.
type DuplicateGroup struct {
	Key          string   `json:"key"`
	KeptID       string   `json:"keptId"`
	DuplicateIDs []string `json:"duplicateIds"`
}

type DuplicateReport struct {
	TotalScanned   int              `json:"totalScanned"`
	Eligible       int              `json:"eligible"`
	UniqueKeys     int              `json:"uniqueKeys"`
	DuplicateCount int              `json:"duplicateCount"`
	DuplicateIDs   []string         `json:"duplicateIds"`
	Groups         []DuplicateGroup `json:"groups"`
}

type DeletionResult struct {
	Requested        int      `json:"requested"`
	Deleted          int64    `json:"deleted"`
	Batches          int      `json:"batches"`
	CompletedBatches int      `json:"completedBatches"`
	Rejected         []string `json:"rejected"`
	Error            string   `json:"error,omitempty"`
}

// CompositeKey identifies the real-world transaction behind a row. ok is
// false for rows that never take part in duplicate detection: a missing or
// placeholder reference, or a missing balance.
func CompositeKey(reference *string, balance *float64) (key string, ok bool) {
	if reference == nil || balance == nil {
		return "", false
	}
	ref := strings.Join(strings.Fields(strings.ToLower(*reference)), " ")
	switch ref {
	case "", "null", "undefined":
		return "", false
	}
	return ref + "|" + decimal.NewFromFloat(*balance).StringFixed(2), true
}

// DetectDuplicates keeps the earliest created row per composite key and
// reports every later one. Rows are ordered by created_at before the walk;
// rows created at the same instant keep their input order.
func DetectDuplicates(rows []DedupRow) *DuplicateReport {
	ordered := slices.Clone(rows)
	slices.SortStableFunc(ordered, func(a, b DedupRow) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	rep := &DuplicateReport{TotalScanned: len(rows), DuplicateIDs: []string{}, Groups: []DuplicateGroup{}}
	groups := make(map[string]int)
	kept := make(map[string]string)
	for _, r := range ordered {
		key, ok := CompositeKey(r.TransactionReference, r.Balance)
		if !ok {
			continue
		}
		rep.Eligible++
		first, seen := kept[key]
		if !seen {
			kept[key] = r.ID
			continue
		}
		idx, grouped := groups[key]
		if !grouped {
			idx = len(rep.Groups)
			groups[key] = idx
			rep.Groups = append(rep.Groups, DuplicateGroup{Key: key, KeptID: first})
		}
		rep.Groups[idx].DuplicateIDs = append(rep.Groups[idx].DuplicateIDs, r.ID)
		rep.DuplicateIDs = append(rep.DuplicateIDs, r.ID)
	}
	rep.UniqueKeys = len(kept)
	rep.DuplicateCount = len(rep.DuplicateIDs)
	return rep
}

type Deduper struct {
	store       DedupStore
	batchSize   int
	deleteBatch int
	pub         Publisher
	log         zerolog.Logger
}

func NewDeduper(store DedupStore, batchSize, deleteBatch int, pub Publisher, log zerolog.Logger) *Deduper {
	if deleteBatch <= 0 {
		deleteBatch = DefaultDeleteBatchSize
	}
	return &Deduper{store: store, batchSize: batchSize, deleteBatch: deleteBatch, pub: pub, log: log}
}

// Find scans every transaction and reports duplicates. It never writes.
func (d *Deduper) Find(ctx context.Context) (*DuplicateReport, error) {
	rows, pages, err := FetchAll(ctx, d.batchSize, d.store.DedupPage)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	rep := DetectDuplicates(rows)
	d.log.Info().
		Int("scanned", rep.TotalScanned).
		Int("pages", pages).
		Int("unique_keys", rep.UniqueKeys).
		Int("duplicates", rep.DuplicateCount).
		Msg("duplicate scan finished")
	return rep, nil
}

// Remove deletes ids in sequential batches once confirmed. Only ids that a
// fresh scan still reports as duplicates are deleted; kept first occurrences,
// non-duplicates and unknown ids come back in Rejected. The first failing
// batch stops the run; earlier batches stay deleted and the result says how
// far it got.
func (d *Deduper) Remove(ctx context.Context, ids []string, confirmed bool) (*DeletionResult, error) {
	if !confirmed {
		return nil, ErrNotConfirmed
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, ErrNoIDs
	}
	rows, _, err := FetchAll(ctx, d.batchSize, d.store.DedupPage)
	if err != nil {
		return nil, fmt.Errorf("scan transactions: %w", err)
	}
	current := make(map[string]struct{})
	for _, id := range DetectDuplicates(rows).DuplicateIDs {
		current[id] = struct{}{}
	}
	res := &DeletionResult{Requested: len(ids), Rejected: []string{}}
	accepted := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := current[id]; ok {
			accepted = append(accepted, id)
		} else {
			res.Rejected = append(res.Rejected, id)
		}
	}
	if len(res.Rejected) > 0 {
		d.log.Warn().Strs("ids", res.Rejected).Msg("ignoring ids that are not current duplicates")
	}
	res.Batches = (len(accepted) + d.deleteBatch - 1) / d.deleteBatch

	var deleted []string
	defer func() {
		if len(deleted) > 0 && d.pub != nil {
			d.pub.Publish(NewEvent(EventTransactionsDeleted, deleted...))
		}
	}()
	for start := 0; start < len(accepted); start += d.deleteBatch {
		batch := accepted[start:min(start+d.deleteBatch, len(accepted))]
		n, err := d.store.DeleteTransactions(ctx, batch)
		if err != nil {
			res.Error = err.Error()
			d.log.Error().Err(err).
				Int("batch", res.CompletedBatches+1).
				Int64("deleted", res.Deleted).
				Msg("duplicate removal stopped")
			return res, fmt.Errorf("delete batch %d of %d: %w", res.CompletedBatches+1, res.Batches, err)
		}
		res.Deleted += n
		res.CompletedBatches++
		deleted = append(deleted, batch...)
	}
	d.log.Info().
		Int64("deleted", res.Deleted).
		Int("batches", res.Batches).
		Int("rejected", len(res.Rejected)).
		Msg("duplicates removed")
	return res, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
