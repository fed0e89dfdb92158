package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PledgeFrequency string

const (
	FrequencyMonthly   PledgeFrequency = "monthly"
	FrequencyQuarterly PledgeFrequency = "quarterly"
	FrequencyYearly    PledgeFrequency = "yearly"
	FrequencyOneTime   PledgeFrequency = "one_time"
)

// Periods is the number of payments per year.
func (f PledgeFrequency) Periods() int64 {
	switch f {
	case FrequencyMonthly:
		return 12
	case FrequencyQuarterly:
		return 4
	case FrequencyYearly, FrequencyOneTime:
		return 1
	}
	return 0
}

func (f PledgeFrequency) Valid() bool { return f.Periods() > 0 }

type Pledge struct {
	ID                      string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	IndividualID            string          `json:"individualId" gorm:"type:varchar(36);not null;index" binding:"required"`
	Individual              *Individual     `json:"individual,omitempty" gorm:"foreignKey:IndividualID;references:ID"`
	Amount                  float64         `json:"amount" gorm:"type:decimal(15,2);not null;default:0" binding:"gte=0"`
	Frequency               PledgeFrequency `json:"frequency" gorm:"type:varchar(16);not null;default:'monthly'"`
	YearlyMissionarySupport float64         `json:"yearlyMissionarySupport" gorm:"type:decimal(15,2);not null;default:0" binding:"gte=0"`
	YearlySpecialSupport    float64         `json:"yearlySpecialSupport" gorm:"type:decimal(15,2);not null;default:0" binding:"gte=0"`
	FulfillmentStatus       int             `json:"fulfillmentStatus" gorm:"not null;default:0"`
	StartDate               *time.Time      `json:"startDate" gorm:"type:date"`
	CreatedAt               time.Time       `json:"createdAt" gorm:"autoCreateTime"`
}

// YearlyTotal is the yearly support committed by the pledge. The explicit
// yearly columns win; otherwise amount is annualised by its frequency.
func (p Pledge) YearlyTotal() decimal.Decimal {
	yearly := decimal.NewFromFloat(p.YearlyMissionarySupport).Add(decimal.NewFromFloat(p.YearlySpecialSupport))
	if yearly.IsPositive() {
		return yearly
	}
	return decimal.NewFromFloat(p.Amount).Mul(decimal.NewFromInt(p.Frequency.Periods()))
}

// DisplayName is the individual's name, or the pledge id when not joined.
func (p Pledge) DisplayName() string {
	if p.Individual != nil && p.Individual.Name != "" {
		return p.Individual.Name
	}
	return p.ID
}
