package ledger

import (
	"context"
	"fmt"
)

// DefaultBatchSize matches the row limit of the hosted query API.
const DefaultBatchSize = 1000

// PageFunc returns at most limit rows starting at offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// FetchAll range-fetches pages of batchSize rows until a short page signals
// the end of the data. It returns the rows and the number of page requests
// issued. Any page error discards everything fetched so far.
func FetchAll[T any](ctx context.Context, batchSize int, fetch PageFunc[T]) ([]T, int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var (
		all   []T
		pages int
	)
	for offset := 0; ; offset += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, pages, err
		}
		page, err := fetch(ctx, offset, batchSize)
		pages++
		if err != nil {
			return nil, pages, fmt.Errorf("fetch rows %d-%d: %w", offset, offset+batchSize-1, err)
		}
		all = append(all, page...)
		if len(page) < batchSize {
			return all, pages, nil
		}
	}
}
