package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aclamission/models"
)

// ImportBatchSize bounds the rows per insert statement.
const ImportBatchSize = 200

type ImportResult struct {
	Inserted int64      `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Total    int        `json:"total"`
	Errors   []RowError `json:"errors,omitempty"`
}

type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type Importer struct {
	store ImportStore
	pub   Publisher
	log   zerolog.Logger
}

func NewImporter(store ImportStore, pub Publisher, log zerolog.Logger) *Importer {
	return &Importer{store: store, pub: pub, log: log}
}

// ValidateTransaction checks a row before it is written.
func ValidateTransaction(t models.BankTransaction) error {
	switch {
	case t.ValueDate == nil && t.TransactionDate == nil:
		return fmt.Errorf("%w: valueDate or transactionDate is required", ErrValidation)
	case t.DebitAmount < 0 || t.CreditAmount < 0:
		return fmt.Errorf("%w: amounts must not be negative", ErrValidation)
	case t.DebitAmount == 0 && t.CreditAmount == 0:
		return fmt.Errorf("%w: debitAmount or creditAmount is required", ErrValidation)
	case t.DebitAmount > 0 && t.CreditAmount > 0:
		return fmt.Errorf("%w: a row is either a debit or a credit", ErrValidation)
	}
	return nil
}

// Import validates rows, assigns ids and inserts the valid ones in batches.
// Invalid rows are skipped and reported, not fatal.
func (im *Importer) Import(ctx context.Context, rows []models.BankTransaction) (*ImportResult, error) {
	res := &ImportResult{Total: len(rows)}
	valid := make([]models.BankTransaction, 0, len(rows))
	for i, t := range rows {
		if err := ValidateTransaction(t); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, RowError{Row: i + 1, Message: err.Error()})
			continue
		}
		if strings.TrimSpace(t.ID) == "" {
			t.ID = uuid.NewString()
		}
		// link state is only ever set by the linker
		t.PledgeID, t.OutgoingID, t.Reconciled = nil, nil, false
		valid = append(valid, t)
	}

	ids := make([]string, 0, len(valid))
	for start := 0; start < len(valid); start += ImportBatchSize {
		batch := valid[start:min(start+ImportBatchSize, len(valid))]
		n, err := im.store.CreateTransactions(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("insert rows %d-%d: %w", start+1, start+len(batch), err)
		}
		res.Inserted += n
		// rows whose id already exists are dropped by the insert
		res.Skipped += len(batch) - int(n)
		for _, t := range batch {
			ids = append(ids, t.ID)
		}
	}
	if res.Inserted > 0 && im.pub != nil {
		im.pub.Publish(NewEvent(EventTransactionsImported, ids...))
	}
	im.log.Info().Int64("inserted", res.Inserted).Int("skipped", res.Skipped).Int("total", res.Total).Msg("transactions imported")
	return res, nil
}

var csvHeaderAliases = map[string]string{
	"value date":            "value_date",
	"value_date":            "value_date",
	"posting date":          "posting_date",
	"posting_date":          "posting_date",
	"transaction date":      "transaction_date",
	"transaction_date":      "transaction_date",
	"date":                  "transaction_date",
	"type":                  "transaction_type",
	"transaction type":      "transaction_type",
	"transaction_type":      "transaction_type",
	"reference":             "transaction_reference",
	"ref":                   "transaction_reference",
	"transaction reference": "transaction_reference",
	"transaction_reference": "transaction_reference",
	"debit":                 "debit_amount",
	"debit amount":          "debit_amount",
	"debit_amount":          "debit_amount",
	"credit":                "credit_amount",
	"credit amount":         "credit_amount",
	"credit_amount":         "credit_amount",
	"balance":               "balance",
	"description":           "description",
	"narrative":             "description",
	"beneficiary account":   "beneficiary_account",
	"beneficiary_account":   "beneficiary_account",
	"beneficiary name":      "beneficiary_name",
	"beneficiary_name":      "beneficiary_name",
	"receipt number":        "receipt_number",
	"receipt_number":        "receipt_number",
}

// ParseCSV maps a bank statement export onto transactions using its header
// row. Unknown columns are ignored. Rows that cannot be parsed are reported
// in the returned RowErrors and left out.
func ParseCSV(r io.Reader) ([]models.BankTransaction, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: empty file", ErrValidation)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := csvHeaderAliases[name]; ok {
			cols[field] = i
		}
	}
	if _, ok := cols["value_date"]; !ok {
		if _, ok := cols["transaction_date"]; !ok {
			return nil, nil, fmt.Errorf("%w: header needs a value date or transaction date column", ErrValidation)
		}
	}

	var (
		rows    []models.BankTransaction
		rowErrs []RowError
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: err.Error()})
			continue
		}
		get := func(field string) string {
			if i, ok := cols[field]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		t, err := recordToTransaction(get)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Row: line, Message: err.Error()})
			continue
		}
		rows = append(rows, t)
	}
	return rows, rowErrs, nil
}

func recordToTransaction(get func(string) string) (models.BankTransaction, error) {
	var (
		t   models.BankTransaction
		err error
	)
	if t.ValueDate, err = models.ParseStatementDate(get("value_date")); err != nil {
		return t, fmt.Errorf("value date: %w", err)
	}
	if t.PostingDate, err = models.ParseStatementDate(get("posting_date")); err != nil {
		return t, fmt.Errorf("posting date: %w", err)
	}
	if t.TransactionDate, err = models.ParseStatementDate(get("transaction_date")); err != nil {
		return t, fmt.Errorf("transaction date: %w", err)
	}
	if t.DebitAmount, err = parseAmount(get("debit_amount")); err != nil {
		return t, fmt.Errorf("debit: %w", err)
	}
	if t.CreditAmount, err = parseAmount(get("credit_amount")); err != nil {
		return t, fmt.Errorf("credit: %w", err)
	}
	if b := get("balance"); b != "" {
		v, err := parseAmount(b)
		if err != nil {
			return t, fmt.Errorf("balance: %w", err)
		}
		t.Balance = &v
	}
	t.TransactionType = get("transaction_type")
	t.TransactionReference = optional(get("transaction_reference"))
	t.Description = get("description")
	t.BeneficiaryAccount = get("beneficiary_account")
	t.BeneficiaryName = get("beneficiary_name")
	t.ReceiptNumber = optional(get("receipt_number"))
	return t, nil
}

// parseAmount accepts thousands separators and an empty cell as zero.
func parseAmount(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
