package models

import "time"

type Team struct {
	ID           uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string  `gorm:"type:varchar(120);not null" json:"name"`
	Abbreviation string  `gorm:"type:varchar(10)" json:"abbreviation"`
	UserID       *uint64 `gorm:"index" json:"user_id,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Team) TableName() string {
	return "teams"
}
