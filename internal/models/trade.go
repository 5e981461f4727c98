package models

import "time"

const (
	TradeStatusProposed  = "proposed"
	TradeStatusPending   = "pending"
	TradeStatusExecuted  = "executed"
	TradeStatusReverted  = "reverted"
	TradeStatusCancelled = "cancelled"
)

// Trade is a multi-party proposal to exchange players and picks between teams.
//
// Status only moves forward: proposed -> pending -> executed -> reverted, with
// proposed/pending -> cancelled as the side exit.
type Trade struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SeasonID      int    `gorm:"not null;index" json:"season_id"`
	Status        string `gorm:"type:varchar(20);not null;default:'proposed';index" json:"status"`
	CreatedByTeam uint64 `gorm:"not null;index" json:"created_by_team"`
	Made          bool   `gorm:"not null;default:false" json:"made"`

	CancelReason *string `gorm:"type:text" json:"cancel_reason,omitempty"`

	ExecutedAt     *time.Time `gorm:"type:timestamptz;index" json:"executed_at,omitempty"`
	RevertedAt     *time.Time `gorm:"type:timestamptz" json:"reverted_at,omitempty"`
	RevertedByUser *uint64    `json:"reverted_by_user,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`

	Participants []TradeParticipant `gorm:"foreignKey:TradeID" json:"participants,omitempty"`
	Movements    []TradeMovement    `gorm:"foreignKey:TradeID" json:"movements,omitempty"`
}

func (Trade) TableName() string {
	return "trades"
}

// IsOpen reports whether the trade can still be responded to, cancelled or swept.
func (t Trade) IsOpen() bool {
	return t.Status == TradeStatusProposed || t.Status == TradeStatusPending
}
