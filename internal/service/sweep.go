package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

const cancelReasonDeadline = "deadline"

type SweepResult struct {
	Trades       int   `json:"trades"`
	Participants int64 `json:"participants"`
}

// DeadlineSweeper cancels every unresolved trade once the trade deadline has passed.
type DeadlineSweeper struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Events Publisher
}

// SweepExpired cancels all proposed and pending trades and rejects all of their
// participants in one transaction. Running it again is a no-op.
func (s *DeadlineSweeper) SweepExpired(ctx context.Context) (SweepResult, error) {
	var (
		batch  eventBatch
		result SweepResult
	)
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		ids, err := s.Repo.ListTradeIDsByStatusesTx(ctx, tx, []string{
			models.TradeStatusProposed,
			models.TradeStatusPending,
		})
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := s.Repo.BulkUpdateTradeStatusTx(ctx, tx, ids, models.TradeStatusCancelled, cancelReasonDeadline); err != nil {
			return err
		}
		n, err := s.Repo.RejectParticipantsByTradeIDsTx(ctx, tx, ids, time.Now().UTC())
		if err != nil {
			return err
		}
		for _, id := range ids {
			batch.add(id, models.TradeEventCancelled, nil, nil, map[string]any{"reason": cancelReasonDeadline})
		}
		result = SweepResult{Trades: len(ids), Participants: n}
		return batch.writeTx(ctx, s.Repo, tx)
	})
	if err != nil {
		return SweepResult{}, err
	}
	batch.publish(s.Events)
	if s.Logger != nil {
		s.Logger.Info("deadline sweep finished",
			zap.Int("trades", result.Trades),
			zap.Int64("participants", result.Participants),
		)
	}
	return result, nil
}
