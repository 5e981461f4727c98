package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"leaguetrades/internal/models"
)

// Repository is the trade ledger store.
//
// Methods with a tx parameter run on that transaction; a nil tx runs on the
// base connection. Get* methods return (nil, nil) when the row is missing.
// Get*Tx methods lock the returned row (SELECT ... FOR UPDATE) when tx is set.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Trades
	CreateTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error
	GetTradeTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Trade, error)
	UpdateTradeTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error
	DeleteTradeTx(ctx context.Context, tx *gorm.DB, id uint64) error
	ListTradeIDsByStatusesTx(ctx context.Context, tx *gorm.DB, statuses []string) ([]uint64, error)
	BulkUpdateTradeStatusTx(ctx context.Context, tx *gorm.DB, ids []uint64, status string, reason string) (int64, error)

	// Participants
	CreateParticipantsTx(ctx context.Context, tx *gorm.DB, items []models.TradeParticipant) error
	GetParticipantTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.TradeParticipant, error)
	ListParticipantsTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeParticipant, error)
	UpdateParticipantResponseTx(ctx context.Context, tx *gorm.DB, id uint64, status string, at time.Time) error
	RejectParticipantsByTradeIDsTx(ctx context.Context, tx *gorm.DB, tradeIDs []uint64, at time.Time) (int64, error)

	// Assets
	CreateAssetsTx(ctx context.Context, tx *gorm.DB, items []models.TradeAsset) error
	ListAssetsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeAsset, error)

	// Ledger
	InsertMovementTx(ctx context.Context, tx *gorm.DB, item *models.TradeMovement) error
	// ListMovementsByTradeTx returns movements newest first (moved_at desc, id desc).
	ListMovementsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeMovement, error)
	InsertTradeEventsTx(ctx context.Context, tx *gorm.DB, items []models.TradeEvent) error
	ListTradeEvents(ctx context.Context, tradeID uint64) ([]models.TradeEvent, error)

	// Live ownership. A nil owner means the entity row is missing (or a free agent).
	GetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64) (*uint64, error)
	SetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64, teamID uint64) error

	// Limits
	LockTeamsTx(ctx context.Context, tx *gorm.DB, teamIDs []uint64) error
	CountExecutedTradesTx(ctx context.Context, tx *gorm.DB, teamID uint64, fromSeason, toSeason int) (int64, error)

	// Read side
	GetTradeDetail(ctx context.Context, id uint64) (*models.Trade, error)
	ListTrades(ctx context.Context, params ListTradesParams) ([]models.Trade, error)
	CountTrades(ctx context.Context, params ListTradesParams) (int64, error)

	// Collaborators
	GetActiveSeason(ctx context.Context) (*models.Season, error)
	ListTeams(ctx context.Context) ([]models.Team, error)
	ListTeamsByUserID(ctx context.Context, userID uint64) ([]models.Team, error)
}

type ListTradesParams struct {
	Limit    int
	Offset   int
	Status   *string
	SeasonID *int
	// TeamIDs restricts to trades where any of the teams participates.
	TeamIDs []uint64
	OrderBy string
	Asc     *bool
}
