package models

import "time"

const (
	AssetTypePlayer = "player"
	AssetTypePick   = "pick"
	// AssetTypePickSwap is accepted by the proposal UI but has no execution path.
	AssetTypePickSwap = "pick_swap"
)

// TradeAsset is a player or pick sent by ParticipantID. ToParticipantID is nil
// only for two-party trades, where the receiver is implied.
type TradeAsset struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ParticipantID   uint64  `gorm:"not null;index" json:"participant_id"`
	ToParticipantID *uint64 `gorm:"index" json:"to_participant_id,omitempty"`
	AssetType       string  `gorm:"type:varchar(10);not null" json:"asset_type"`
	PlayerID        *uint64 `gorm:"index" json:"player_id,omitempty"`
	PickID          *uint64 `gorm:"index" json:"pick_id,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (TradeAsset) TableName() string {
	return "trade_assets"
}

// EntityID returns the player or pick id the asset points at.
func (a TradeAsset) EntityID() uint64 {
	switch a.AssetType {
	case AssetTypePlayer:
		if a.PlayerID != nil {
			return *a.PlayerID
		}
	case AssetTypePick:
		if a.PickID != nil {
			return *a.PickID
		}
	}
	return 0
}
