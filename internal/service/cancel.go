package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// TradeCanceller handles the admin-side lifecycle edits of a trade.
type TradeCanceller struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Events Publisher
}

// Cancel hard-deletes an unresolved trade with its participants and assets.
// A "deleted" audit event is kept so the removal stays traceable.
func (c *TradeCanceller) Cancel(ctx context.Context, tradeID uint64, userID uint64, reason string) error {
	var batch eventBatch
	err := c.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := c.Repo.GetTradeTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", tradeID)
		}
		if !t.IsOpen() {
			return transition("trade %d is %s; only proposed or pending trades can be cancelled", t.ID, t.Status)
		}
		batch.add(t.ID, models.TradeEventDeleted, u64Ptr(t.CreatedByTeam), u64Ptr(userID), map[string]any{
			"status": t.Status,
			"reason": strings.TrimSpace(reason),
		})
		if err := batch.writeTx(ctx, c.Repo, tx); err != nil {
			return err
		}
		return c.Repo.DeleteTradeTx(ctx, tx, t.ID)
	})
	if err != nil {
		return err
	}
	batch.publish(c.Events)
	c.logger().Info("trade deleted", zap.Uint64("trade_id", tradeID), zap.Uint64("user_id", userID))
	return nil
}

// Withdraw soft-cancels an unresolved trade and records why.
func (c *TradeCanceller) Withdraw(ctx context.Context, tradeID uint64, userID uint64, reason string) (*models.Trade, error) {
	reason = strings.TrimSpace(reason)
	cancelReason := "withdrawn"
	if reason != "" {
		cancelReason += ": " + reason
	}
	var (
		batch eventBatch
		trade *models.Trade
	)
	err := c.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := c.Repo.GetTradeTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", tradeID)
		}
		if !t.IsOpen() {
			return transition("trade %d is %s; only proposed or pending trades can be withdrawn", t.ID, t.Status)
		}
		if err := c.Repo.UpdateTradeTx(ctx, tx, t.ID, map[string]any{
			"status":        models.TradeStatusCancelled,
			"cancel_reason": cancelReason,
			"updated_at":    time.Now().UTC(),
		}); err != nil {
			return err
		}
		t.Status = models.TradeStatusCancelled
		t.CancelReason = &cancelReason
		batch.add(t.ID, models.TradeEventWithdrawn, nil, u64Ptr(userID), map[string]any{"reason": cancelReason})
		trade = t
		return batch.writeTx(ctx, c.Repo, tx)
	})
	if err != nil {
		return nil, err
	}
	batch.publish(c.Events)
	c.logger().Info("trade withdrawn", zap.Uint64("trade_id", tradeID), zap.String("reason", cancelReason))
	return detailOr(ctx, c.Repo, trade), nil
}

// SetMade flags whether an executed trade has been carried out in the league platform.
func (c *TradeCanceller) SetMade(ctx context.Context, tradeID uint64, made bool, userID uint64) (*models.Trade, error) {
	var (
		batch eventBatch
		trade *models.Trade
	)
	err := c.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := c.Repo.GetTradeTx(ctx, tx, tradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", tradeID)
		}
		if t.Status != models.TradeStatusExecuted {
			return transition("trade %d is %s; only executed trades can be marked made", t.ID, t.Status)
		}
		if err := c.Repo.UpdateTradeTx(ctx, tx, t.ID, map[string]any{
			"made":       made,
			"updated_at": time.Now().UTC(),
		}); err != nil {
			return err
		}
		t.Made = made
		batch.add(t.ID, models.TradeEventMadeUpdated, nil, u64Ptr(userID), map[string]any{"made": made})
		trade = t
		return batch.writeTx(ctx, c.Repo, tx)
	})
	if err != nil {
		return nil, err
	}
	batch.publish(c.Events)
	return detailOr(ctx, c.Repo, trade), nil
}

func (c *TradeCanceller) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
