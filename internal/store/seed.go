package store

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aclamission/models"
)

// SeedDev fills empty tables with sample supporters, outgoings and a bank
// statement that contains a few re-imported rows.
func SeedDev(db *gorm.DB) error {
	var cnt int64
	if err := db.Model(&models.Individual{}).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		people := []models.Individual{
			{ID: "IND-001", Name: "Grace Fellowship", Email: "office@gracefellowship.example"},
			{ID: "IND-002", Name: "John Okafor", Email: "john.okafor@example.com"},
			{ID: "IND-003", Name: "Mary Hughes", Phone: "+44 20 7946 0000"},
		}
		if err := db.Create(&people).Error; err != nil {
			return err
		}
		start := parseDate("2025-01-01")
		pledges := []models.Pledge{
			{ID: "PLG-001", IndividualID: "IND-001", Frequency: models.FrequencyYearly, YearlyMissionarySupport: 12000, YearlySpecialSupport: 3000, StartDate: &start},
			{ID: "PLG-002", IndividualID: "IND-002", Amount: 150, Frequency: models.FrequencyMonthly, StartDate: &start},
			{ID: "PLG-003", IndividualID: "IND-003", Amount: 400, Frequency: models.FrequencyQuarterly, StartDate: &start},
		}
		if err := db.Omit("Individual").Create(&pledges).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&models.Outgoing{}).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt == 0 {
		outs := []models.Outgoing{
			{ID: "OUT-001", Title: "Field allowance Q1", Amount: 4500, PaidStatus: models.PaidStatusUnpaid, Status: models.OutgoingApproved},
			{ID: "OUT-002", Title: "Vehicle repair", Amount: 800, PaidStatus: models.PaidStatusUnpaid, Status: models.OutgoingRequested},
			{ID: "OUT-003", Title: "Conference travel", Amount: 1200, PaidStatus: models.PaidStatusUnpaid, Status: models.OutgoingFinalized},
		}
		if err := db.Create(&outs).Error; err != nil {
			return err
		}
	}

	if err := db.Model(&models.BankTransaction{}).Count(&cnt).Error; err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(42))
	names := []string{"Grace Fellowship", "John Okafor", "Mary Hughes", "St Andrew's", "Anonymous"}
	balance := 25000.0
	created := time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC)
	var txs []models.BankTransaction
	for i := 0; i < 60; i++ {
		d := created.AddDate(0, 0, i*3)
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		ref := fmt.Sprintf("FT25%03d%04d", i+1, rng.Intn(10000))
		t := models.BankTransaction{
			ID:                   fmt.Sprintf("BT-%03d", i+1),
			ValueDate:            &day,
			PostingDate:          &day,
			TransactionDate:      &day,
			TransactionReference: &ref,
			CreatedAt:            created.Add(time.Duration(i) * time.Minute),
		}
		if i%4 == 3 {
			t.TransactionType = "DR"
			t.DebitAmount = float64((rng.Intn(40) + 1) * 25)
			t.Description = "Transfer to field account"
			t.BeneficiaryAccount = "0012345678"
			t.BeneficiaryName = "Field Office"
			balance -= t.DebitAmount
		} else {
			t.TransactionType = "CR"
			t.CreditAmount = float64((rng.Intn(60) + 1) * 10)
			t.BeneficiaryName = names[rng.Intn(len(names))]
			t.Description = "Support from " + t.BeneficiaryName
			balance += t.CreditAmount
		}
		b := balance
		t.Balance = &b
		txs = append(txs, t)
	}
	// the same statement lines imported a second time
	for i, src := range txs[:5] {
		dup := src
		dup.ID = fmt.Sprintf("BT-DUP-%03d", i+1)
		dup.CreatedAt = src.CreatedAt.Add(30 * 24 * time.Hour)
		txs = append(txs, dup)
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&txs, 200).Error
}

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}
