package models

import "time"

// Pick is a draft pick. CurrentTeamID is the live owner; OriginalTeamID never changes.
type Pick struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SeasonID       int    `gorm:"not null;index" json:"season_id"`
	Round          int    `gorm:"not null" json:"round"`
	PickNumber     *int   `json:"pick_number,omitempty"`
	OriginalTeamID uint64 `gorm:"not null;index" json:"original_team_id"`
	CurrentTeamID  uint64 `gorm:"not null;index" json:"current_team_id"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Pick) TableName() string {
	return "picks"
}
