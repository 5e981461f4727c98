package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// ReversalEngine undoes an executed trade by replaying its ledger newest first.
// It writes no inverse movements; the original ledger stays the audit trail.
type ReversalEngine struct {
	Repo   repository.Repository
	Limits *LimitEnforcer
	// Strict refuses to revert when an asset has changed hands since the trade executed.
	Strict bool
	Logger *zap.Logger
	Events Publisher
}

func (r *ReversalEngine) Revert(ctx context.Context, tradeID uint64, actingUserID uint64) (*models.Trade, error) {
	var (
		batch        eventBatch
		trade        *models.Trade
		participants []models.TradeParticipant
		restored     int
	)
	err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := r.Repo.GetTradeTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", tradeID)
		}
		if t.Status != models.TradeStatusExecuted {
			return transition("trade %d is %s; only executed trades can be reverted", t.ID, t.Status)
		}
		movements, err := r.Repo.ListMovementsByTradeTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		stale := 0
		for _, m := range movements {
			owner, err := r.Repo.GetAssetOwnerTx(ctx, tx, m.AssetType, m.AssetID)
			if err != nil {
				return err
			}
			if owner == nil || *owner != m.ToTeamID {
				if r.Strict {
					return conflict("%s %d has moved since trade %d executed", m.AssetType, m.AssetID, t.ID)
				}
				stale++
				r.logger().Warn("reverting asset whose owner changed after execution",
					zap.Uint64("trade_id", t.ID),
					zap.String("asset_type", m.AssetType),
					zap.Uint64("asset_id", m.AssetID),
					zap.Uint64("expected_owner", m.ToTeamID),
				)
			}
			if err := r.Repo.SetAssetOwnerTx(ctx, tx, m.AssetType, m.AssetID, m.FromTeamID); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"status":      models.TradeStatusReverted,
			"reverted_at": now,
			"made":        false,
			"updated_at":  now,
		}
		if actingUserID != 0 {
			updates["reverted_by_user"] = actingUserID
		}
		if err := r.Repo.UpdateTradeTx(ctx, tx, t.ID, updates); err != nil {
			return err
		}
		t.Status = models.TradeStatusReverted
		t.RevertedAt = &now
		t.RevertedByUser = u64Ptr(actingUserID)
		t.Made = false

		participants, err = r.Repo.ListParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		batch.add(t.ID, models.TradeEventReverted, nil, u64Ptr(actingUserID), map[string]any{
			"movements": len(movements),
			"stale":     stale,
		})
		trade = t
		restored = len(movements)
		return batch.writeTx(ctx, r.Repo, tx)
	})
	if err != nil {
		return nil, err
	}

	r.Limits.Invalidate(ctx, trade.SeasonID, participants)
	batch.publish(r.Events)
	r.logger().Info("trade reverted",
		zap.Uint64("trade_id", trade.ID),
		zap.Uint64("user_id", actingUserID),
		zap.Int("movements", restored),
	)
	return detailOr(ctx, r.Repo, trade), nil
}

func (r *ReversalEngine) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
