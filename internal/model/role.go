package model

import (
	"time"
)

// Role is an approval stage. Sequence defines the order in which stages sign off.
type Role struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Sequence  int       `gorm:"not null;uniqueIndex" json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
