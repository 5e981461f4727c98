package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	TradeEventProposed    = "proposed"
	TradeEventResponded   = "responded"
	TradeEventPending     = "pending"
	TradeEventExecuted    = "executed"
	TradeEventReverted    = "reverted"
	TradeEventCancelled   = "cancelled"
	TradeEventWithdrawn   = "withdrawn"
	TradeEventDeleted     = "deleted"
	TradeEventMadeUpdated = "made_updated"
)

// TradeEvent is the audit trail of a trade. It has no foreign key to trades so
// it outlives hard deletion.
type TradeEvent struct {
	ID      uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	TradeID uint64         `gorm:"not null;index" json:"trade_id"`
	Action  string         `gorm:"type:varchar(30);not null;index" json:"action"`
	TeamID  *uint64        `json:"team_id,omitempty"`
	UserID  *uint64        `json:"user_id,omitempty"`
	Details datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (TradeEvent) TableName() string {
	return "trade_events"
}
