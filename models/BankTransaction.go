package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type BankTransaction struct {
	ID                   string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ValueDate            *time.Time `json:"valueDate" gorm:"type:date;index"`
	PostingDate          *time.Time `json:"postingDate" gorm:"type:date"`
	TransactionDate      *time.Time `json:"transactionDate" gorm:"type:date"`
	TransactionType      string     `json:"transactionType" gorm:"type:varchar(64)"`
	TransactionReference *string    `json:"transactionReference" gorm:"type:varchar(255);index"`
	DebitAmount          float64    `json:"debitAmount" gorm:"type:decimal(15,2);not null;default:0"`
	CreditAmount         float64    `json:"creditAmount" gorm:"type:decimal(15,2);not null;default:0"`
	Balance              *float64   `json:"balance" gorm:"type:decimal(15,2)"`
	Description          string     `json:"description" gorm:"type:text"`
	BeneficiaryAccount   string     `json:"beneficiaryAccount" gorm:"type:varchar(128)"`
	BeneficiaryName      string     `json:"beneficiaryName" gorm:"type:varchar(255)"`
	ReceiptNumber        *string    `json:"receiptNumber" gorm:"type:varchar(128)"`
	Reconciled           bool       `json:"reconciled" gorm:"not null;default:false"`
	PledgeID             *string    `json:"pledgeId" gorm:"type:varchar(36);index"`
	OutgoingID           *string    `json:"outgoingId" gorm:"type:varchar(36);index"`
	CreatedAt            time.Time  `json:"createdAt" gorm:"autoCreateTime;index"`
}

// UnmarshalJSON accepts statement dates as YYYY-MM-DD, DD/MM/YYYY or RFC3339.
func (t *BankTransaction) UnmarshalJSON(data []byte) error {
	type Alias BankTransaction
	aux := &struct {
		ValueDate       string `json:"valueDate"`
		PostingDate     string `json:"postingDate"`
		TransactionDate string `json:"transactionDate"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var err error
	if t.ValueDate, err = ParseStatementDate(aux.ValueDate); err != nil {
		return fmt.Errorf("valueDate: %w", err)
	}
	if t.PostingDate, err = ParseStatementDate(aux.PostingDate); err != nil {
		return fmt.Errorf("postingDate: %w", err)
	}
	if t.TransactionDate, err = ParseStatementDate(aux.TransactionDate); err != nil {
		return fmt.Errorf("transactionDate: %w", err)
	}
	return nil
}

// LinkedTo names the record a transaction is reconciled against, if any.
func (t BankTransaction) LinkedTo() string {
	switch {
	case t.PledgeID != nil && *t.PledgeID != "":
		return "pledge:" + *t.PledgeID
	case t.OutgoingID != nil && *t.OutgoingID != "":
		return "outgoing:" + *t.OutgoingID
	}
	return ""
}

// ParseStatementDate returns nil for an empty string.
func ParseStatementDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil, nil
	}
	layouts := []string{"2006-01-02", time.RFC3339, "02/01/2006", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if d, err := time.Parse(layout, s); err == nil {
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unsupported date format %q", s)
}

