package models

import "time"

type Individual struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null" binding:"required"`
	Email     string    `json:"email" gorm:"type:varchar(255)" binding:"omitempty,email"`
	Phone     string    `json:"phone" gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
