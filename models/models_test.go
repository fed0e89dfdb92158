package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestPledgeYearlyTotal(t *testing.T) {
	tests := []struct {
		name string
		p    Pledge
		want string
	}{
		{"explicit yearly columns", Pledge{Amount: 50, Frequency: FrequencyMonthly, YearlyMissionarySupport: 1000, YearlySpecialSupport: 200}, "1200"},
		{"monthly", Pledge{Amount: 100, Frequency: FrequencyMonthly}, "1200"},
		{"quarterly", Pledge{Amount: 250, Frequency: FrequencyQuarterly}, "1000"},
		{"yearly", Pledge{Amount: 900, Frequency: FrequencyYearly}, "900"},
		{"one time", Pledge{Amount: 75.5, Frequency: FrequencyOneTime}, "75.5"},
		{"unknown frequency", Pledge{Amount: 10, Frequency: "weekly"}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.YearlyTotal().String(); got != tt.want {
				t.Errorf("YearlyTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDerivePaidStatus(t *testing.T) {
	amount := decimal.NewFromInt(1000)
	tests := []struct {
		paid float64
		want PaidStatus
	}{
		{0, PaidStatusUnpaid},
		{-5, PaidStatusUnpaid},
		{400, PaidStatusPartial},
		{999.99, PaidStatusPartial},
		{1000, PaidStatusPaid},
		{1200, PaidStatusPaid},
	}
	for _, tt := range tests {
		if got := DerivePaidStatus(decimal.NewFromFloat(tt.paid), amount); got != tt.want {
			t.Errorf("DerivePaidStatus(%v) = %s, want %s", tt.paid, got, tt.want)
		}
	}
}

func TestOutgoingStatusCanMoveTo(t *testing.T) {
	tests := []struct {
		from, to OutgoingStatus
		want     bool
	}{
		{OutgoingRequested, OutgoingApproved, true},
		{OutgoingRequested, OutgoingFinalized, true},
		{OutgoingApproved, OutgoingFinalized, true},
		{OutgoingApproved, OutgoingRequested, false},
		{OutgoingFinalized, OutgoingFinalized, false},
		{OutgoingRequested, "paid", false},
	}
	for _, tt := range tests {
		if got := tt.from.CanMoveTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestBankTransactionUnmarshalDates(t *testing.T) {
	var tx BankTransaction
	err := json.Unmarshal([]byte(`{
		"id": "t1",
		"valueDate": "05/01/2024",
		"postingDate": "2024-01-06",
		"transactionDate": null,
		"creditAmount": 12.5,
		"transactionReference": "FT1"
	}`), &tx)
	if err != nil {
		t.Fatal(err)
	}
	if tx.ValueDate == nil || tx.ValueDate.Format("2006-01-02") != "2024-01-05" {
		t.Errorf("valueDate = %v", tx.ValueDate)
	}
	if tx.PostingDate == nil || tx.PostingDate.Format("2006-01-02") != "2024-01-06" {
		t.Errorf("postingDate = %v", tx.PostingDate)
	}
	if tx.TransactionDate != nil {
		t.Errorf("transactionDate = %v, want nil", tx.TransactionDate)
	}
	if tx.ID != "t1" || tx.CreditAmount != 12.5 || tx.TransactionReference == nil {
		t.Errorf("fields = %+v", tx)
	}

	if err := json.Unmarshal([]byte(`{"valueDate":"Jan 5"}`), &tx); err == nil {
		t.Error("expected error for unsupported date")
	}
}

func TestLinkedTo(t *testing.T) {
	p, o, empty := "p1", "o1", ""
	tests := []struct {
		tx   BankTransaction
		want string
	}{
		{BankTransaction{PledgeID: &p}, "pledge:p1"},
		{BankTransaction{OutgoingID: &o}, "outgoing:o1"},
		{BankTransaction{PledgeID: &empty}, ""},
		{BankTransaction{}, ""},
	}
	for _, tt := range tests {
		if got := tt.tx.LinkedTo(); got != tt.want {
			t.Errorf("LinkedTo() = %q, want %q", got, tt.want)
		}
	}
}
