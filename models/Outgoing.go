package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaidStatus string

const (
	PaidStatusUnpaid  PaidStatus = "unpaid"
	PaidStatusPartial PaidStatus = "partial"
	PaidStatusPaid    PaidStatus = "paid"
)

type OutgoingStatus string

const (
	OutgoingRequested OutgoingStatus = "requested"
	OutgoingApproved  OutgoingStatus = "approved"
	OutgoingFinalized OutgoingStatus = "finalized"
)

func (s OutgoingStatus) rank() int {
	switch s {
	case OutgoingRequested:
		return 1
	case OutgoingApproved:
		return 2
	case OutgoingFinalized:
		return 3
	}
	return 0
}

func (s OutgoingStatus) Valid() bool { return s.rank() > 0 }

// CanMoveTo reports whether the status only moves forward.
func (s OutgoingStatus) CanMoveTo(next OutgoingStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

type Outgoing struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title      string         `json:"title" gorm:"type:varchar(255);not null" binding:"required"`
	Amount     float64        `json:"amount" gorm:"type:decimal(15,2);not null" binding:"gt=0"`
	PaidAmount float64        `json:"paidAmount" gorm:"type:decimal(15,2);not null;default:0"`
	PaidStatus PaidStatus     `json:"paidStatus" gorm:"type:varchar(16);not null;default:'unpaid'"`
	Status     OutgoingStatus `json:"status" gorm:"type:varchar(16);not null;default:'requested';index"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"autoCreateTime"`
}

// DerivePaidStatus maps an accumulated paid amount onto unpaid/partial/paid.
func DerivePaidStatus(paid, amount decimal.Decimal) PaidStatus {
	switch {
	case !paid.IsPositive():
		return PaidStatusUnpaid
	case paid.GreaterThanOrEqual(amount):
		return PaidStatusPaid
	}
	return PaidStatusPartial
}
