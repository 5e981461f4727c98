package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// ExecutionEngine moves every asset of a pending trade and appends one ledger
// movement per asset, all inside one transaction.
type ExecutionEngine struct {
	Repo   repository.Repository
	Limits *LimitEnforcer
	// EnforceLimit re-checks every participant team before assets move.
	EnforceLimit bool
	Logger       *zap.Logger
	Events       Publisher
}

// Execute runs a trade that is waiting in pending.
func (e *ExecutionEngine) Execute(ctx context.Context, tradeID uint64, userID uint64) (*models.Trade, error) {
	var (
		batch        eventBatch
		trade        *models.Trade
		participants []models.TradeParticipant
	)
	err := e.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := e.Repo.GetTradeTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", tradeID)
		}
		if t.Status != models.TradeStatusPending {
			return transition("trade %d is %s; only pending trades can be executed", t.ID, t.Status)
		}
		participants, err = e.Repo.ListParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		if err := e.executeTx(ctx, tx, t, participants, &batch, u64Ptr(userID)); err != nil {
			return err
		}
		trade = t
		return batch.writeTx(ctx, e.Repo, tx)
	})
	if err != nil {
		return nil, err
	}
	e.afterCommit(ctx, trade, participants, &batch)
	return detailOr(ctx, e.Repo, trade), nil
}

// executeTx is shared by Execute and the response coordinator's auto-execution.
// It assumes the trade row is already locked by tx.
func (e *ExecutionEngine) executeTx(ctx context.Context, tx *gorm.DB, trade *models.Trade, participants []models.TradeParticipant, batch *eventBatch, userID *uint64) error {
	if len(participants) < 2 {
		return conflict("trade %d has %d participants; at least two are required", trade.ID, len(participants))
	}
	byID := make(map[uint64]models.TradeParticipant, len(participants))
	teamIDs := make([]uint64, 0, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
		teamIDs = append(teamIDs, p.TeamID)
	}

	if e.EnforceLimit && e.Limits != nil {
		if err := e.Repo.LockTeamsTx(ctx, tx, teamIDs); err != nil {
			return err
		}
		for _, p := range participants {
			st, err := e.Limits.checkTx(ctx, tx, p.TeamID, trade.SeasonID)
			if err != nil {
				return err
			}
			if !st.CanTrade {
				e.logger().Warn("trade execution blocked by limit",
					zap.Uint64("trade_id", trade.ID),
					zap.Uint64("team_id", p.TeamID),
					zap.Int64("used", st.Used),
				)
				return limitExceeded(p.TeamID, st)
			}
		}
	}

	assets, err := e.Repo.ListAssetsByTradeTx(ctx, tx, trade.ID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, asset := range assets {
		sender, ok := byID[asset.ParticipantID]
		if !ok {
			return conflict("asset %d belongs to a participant outside trade %d", asset.ID, trade.ID)
		}
		receiver, err := resolveDestination(asset, sender, participants, byID)
		if err != nil {
			return err
		}
		entityID := asset.EntityID()
		if entityID == 0 {
			return conflict("asset %d has no %s id", asset.ID, asset.AssetType)
		}
		owner, err := e.Repo.GetAssetOwnerTx(ctx, tx, asset.AssetType, entityID)
		if err != nil {
			return err
		}
		if owner == nil || *owner != sender.TeamID {
			return conflict("%s %d is no longer owned by team %d", asset.AssetType, entityID, sender.TeamID)
		}
		if err := e.Repo.InsertMovementTx(ctx, tx, &models.TradeMovement{
			TradeID:    trade.ID,
			AssetType:  asset.AssetType,
			AssetID:    entityID,
			FromTeamID: sender.TeamID,
			ToTeamID:   receiver.TeamID,
			MovedAt:    now,
		}); err != nil {
			return err
		}
		if err := e.Repo.SetAssetOwnerTx(ctx, tx, asset.AssetType, entityID, receiver.TeamID); err != nil {
			return err
		}
	}

	if err := e.Repo.UpdateTradeTx(ctx, tx, trade.ID, map[string]any{
		"status":      models.TradeStatusExecuted,
		"executed_at": now,
		"made":        true,
		"updated_at":  now,
	}); err != nil {
		return err
	}
	trade.Status = models.TradeStatusExecuted
	trade.ExecutedAt = &now
	trade.Made = true
	batch.add(trade.ID, models.TradeEventExecuted, nil, userID, map[string]any{
		"assets": len(assets),
	})
	return nil
}

// resolveDestination picks the receiving participant of an asset. Two-party
// trades imply the other side; larger trades need an explicit destination.
func resolveDestination(asset models.TradeAsset, sender models.TradeParticipant, participants []models.TradeParticipant, byID map[uint64]models.TradeParticipant) (models.TradeParticipant, error) {
	if asset.ToParticipantID != nil {
		to, ok := byID[*asset.ToParticipantID]
		if !ok {
			return models.TradeParticipant{}, conflict("asset %d points at participant %d outside the trade", asset.ID, *asset.ToParticipantID)
		}
		if to.ID == sender.ID {
			return models.TradeParticipant{}, conflict("asset %d is sent to its own participant", asset.ID)
		}
		return to, nil
	}
	if len(participants) == 2 {
		for _, p := range participants {
			if p.ID != sender.ID {
				return p, nil
			}
		}
	}
	return models.TradeParticipant{}, conflict("asset %d has no destination in a %d-party trade", asset.ID, len(participants))
}

func (e *ExecutionEngine) afterCommit(ctx context.Context, trade *models.Trade, participants []models.TradeParticipant, batch *eventBatch) {
	if trade == nil {
		return
	}
	e.Limits.Invalidate(ctx, trade.SeasonID, participants)
	batch.publish(e.Events)
	e.logger().Info("trade executed",
		zap.Uint64("trade_id", trade.ID),
		zap.Int("season_id", trade.SeasonID),
		zap.Int("participants", len(participants)),
	)
}

func (e *ExecutionEngine) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func detailOr(ctx context.Context, repo repository.Repository, fallback *models.Trade) *models.Trade {
	if fallback == nil {
		return nil
	}
	detail, err := repo.GetTradeDetail(ctx, fallback.ID)
	if err != nil || detail == nil {
		return fallback
	}
	return detail
}
