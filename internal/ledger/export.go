package ledger

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// ExportHeader is the fixed column list of the CSV download.
var ExportHeader = []string{
	"Value Date", "Posting Date", "Transaction Date", "Type", "Reference", "Description",
	"Beneficiary Account", "Beneficiary Name", "Debit", "Credit", "Balance",
	"Receipt Number", "Reconciled", "Linked To",
}

// WriteCSV writes rows as a flat CSV table under ExportHeader.
func WriteCSV(w io.Writer, rows []LoadedTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		balance := ""
		if r.Balance != nil {
			balance = money(*r.Balance)
		}
		linked := r.PledgeName
		if linked == "" {
			linked = r.OutgoingTitle
		}
		if linked == "" {
			linked = r.LinkedTo()
		}
		rec := []string{
			csvDate(r.ValueDate), csvDate(r.PostingDate), csvDate(r.TransactionDate),
			r.TransactionType, deref(r.TransactionReference), r.Description,
			r.BeneficiaryAccount, r.BeneficiaryName,
			money(r.DebitAmount), money(r.CreditAmount), balance,
			deref(r.ReceiptNumber), strconv.FormatBool(r.Reconciled), linked,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func money(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
