package models

import "time"

// Player is owned by the roster service; TeamID is the live owner the trade engine moves.
type Player struct {
	ID       uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string  `gorm:"type:varchar(120);not null" json:"name"`
	Position string  `gorm:"type:varchar(10)" json:"position,omitempty"`
	TeamID   *uint64 `gorm:"index" json:"team_id,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}
