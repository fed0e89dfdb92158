package ledger

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

type SortField string

const (
	SortValueDate       SortField = "value_date"
	SortDebitAmount     SortField = "debit_amount"
	SortCreditAmount    SortField = "credit_amount"
	SortBalance         SortField = "balance"
	SortTransactionDate SortField = "transaction_date"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 500
)

func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortValueDate, nil
	case SortValueDate, SortDebitAmount, SortCreditAmount, SortBalance, SortTransactionDate:
		return f, nil
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrValidation, s)
}

// ViewQuery narrows, orders and pages a loaded transaction list. From and To
// bound value_date inclusively; To covers its whole day.
type ViewQuery struct {
	From               *time.Time
	To                 *time.Time
	Reference          string
	Narrative          string
	BeneficiaryAccount string
	BeneficiaryName    string
	ReceiptNumber      string
	SortBy             SortField
	Desc               bool
	Page               int
	PageSize           int
}

type ViewPage struct {
	Items      []LoadedTransaction `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// ApplyView filters, sorts and pages rows. The input slice is not modified.
func ApplyView(rows []LoadedTransaction, q ViewQuery) ViewPage {
	filtered := Filter(rows, q)
	SortRows(filtered, q.SortBy, q.Desc)
	return Paginate(filtered, q.Page, q.PageSize)
}

// Filter returns the rows matching every active filter in q.
func Filter(rows []LoadedTransaction, q ViewQuery) []LoadedTransaction {
	var end time.Time
	if q.To != nil {
		y, m, d := q.To.Date()
		end = time.Date(y, m, d+1, 0, 0, 0, 0, q.To.Location())
	}
	out := make([]LoadedTransaction, 0, len(rows))
	for _, r := range rows {
		if q.From != nil || q.To != nil {
			if r.ValueDate == nil {
				continue
			}
			if q.From != nil && r.ValueDate.Before(*q.From) {
				continue
			}
			if q.To != nil && !r.ValueDate.Before(end) {
				continue
			}
		}
		if !containsFold(deref(r.TransactionReference), q.Reference) ||
			!containsFold(r.Description, q.Narrative) ||
			!containsFold(r.BeneficiaryAccount, q.BeneficiaryAccount) ||
			!containsFold(r.BeneficiaryName, q.BeneficiaryName) ||
			!containsFold(deref(r.ReceiptNumber), q.ReceiptNumber) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortRows orders rows in place. Missing numbers sort as 0 and missing
// dates as the Unix epoch.
func SortRows(rows []LoadedTransaction, field SortField, desc bool) {
	if field == "" {
		field = SortValueDate
	}
	slices.SortStableFunc(rows, func(a, b LoadedTransaction) int {
		var c int
		switch field {
		case SortDebitAmount:
			c = cmp.Compare(a.DebitAmount, b.DebitAmount)
		case SortCreditAmount:
			c = cmp.Compare(a.CreditAmount, b.CreditAmount)
		case SortBalance:
			c = cmp.Compare(derefFloat(a.Balance), derefFloat(b.Balance))
		case SortTransactionDate:
			c = dateKey(a.TransactionDate).Compare(dateKey(b.TransactionDate))
		default:
			c = dateKey(a.ValueDate).Compare(dateKey(b.ValueDate))
		}
		if desc {
			return -c
		}
		return c
	})
}

// Paginate slices rows into 1-based pages.
func Paginate(rows []LoadedTransaction, page, size int) ViewPage {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	total := len(rows)
	vp := ViewPage{Total: total, Page: page, PageSize: size, TotalPages: (total + size - 1) / size}
	start := (page - 1) * size
	if start >= total {
		vp.Items = []LoadedTransaction{}
		return vp
	}
	vp.Items = rows[start:min(start+size, total)]
	return vp
}

func containsFold(s, sub string) bool {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func dateKey(t *time.Time) time.Time {
	if t == nil {
		return time.Unix(0, 0).UTC()
	}
	return *t
}
