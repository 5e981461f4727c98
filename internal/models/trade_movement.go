package models

import "time"

// TradeMovement is an append-only ledger row written once per asset when a trade executes.
type TradeMovement struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeID    uint64    `gorm:"not null;index" json:"trade_id"`
	AssetType  string    `gorm:"type:varchar(10);not null" json:"asset_type"`
	AssetID    uint64    `gorm:"not null;index" json:"asset_id"`
	FromTeamID uint64    `gorm:"not null" json:"from_team_id"`
	ToTeamID   uint64    `gorm:"not null" json:"to_team_id"`
	MovedAt    time.Time `gorm:"type:timestamptz;not null;index" json:"moved_at"`
}

func (TradeMovement) TableName() string {
	return "trade_movements"
}
