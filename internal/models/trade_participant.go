package models

import "time"

const (
	ResponsePending  = "pending"
	ResponseAccepted = "accepted"
	ResponseRejected = "rejected"
)

// TradeParticipant is one team's seat in a trade. A team appears at most once per trade.
type TradeParticipant struct {
	ID             uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeID        uint64     `gorm:"not null;uniqueIndex:idx_trade_participants_trade_team,priority:1" json:"trade_id"`
	TeamID         uint64     `gorm:"not null;uniqueIndex:idx_trade_participants_trade_team,priority:2;index" json:"team_id"`
	IsInitiator    bool       `gorm:"not null;default:false" json:"is_initiator"`
	ResponseStatus string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"response_status"`
	RespondedAt    *time.Time `gorm:"type:timestamptz" json:"responded_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`

	Team   *Team        `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Assets []TradeAsset `gorm:"foreignKey:ParticipantID" json:"assets,omitempty"`
}

func (TradeParticipant) TableName() string {
	return "trade_participants"
}
