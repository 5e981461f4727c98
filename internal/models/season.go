package models

import "time"

// Season ids are sequential; seasons pair as (1,2), (3,4), ... for the trade limit window.
type Season struct {
	ID       int    `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"type:varchar(60)" json:"name"`
	IsActive bool   `gorm:"not null;default:false;index" json:"is_active"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Season) TableName() string {
	return "seasons"
}
