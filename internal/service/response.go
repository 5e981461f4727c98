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

// ResponseCoordinator records participant decisions and drives a trade to
// cancellation or execution.
type ResponseCoordinator struct {
	Repo   repository.Repository
	Limits *LimitEnforcer
	Engine *ExecutionEngine
	// AutoExecute runs the execution engine in the same transaction once every
	// participant has accepted. When false the trade waits in pending.
	AutoExecute bool
	Logger      *zap.Logger
	Events      Publisher
}

type RespondResult struct {
	Participant models.TradeParticipant `json:"participant"`
	Trade       *models.Trade           `json:"trade"`
	Executed    bool                    `json:"executed"`
}

func (r *ResponseCoordinator) Respond(ctx context.Context, participantID uint64, decision string, userID uint64) (*RespondResult, error) {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != models.ResponseAccepted && decision != models.ResponseRejected {
		return nil, invalid("response_status must be accepted or rejected")
	}
	if participantID == 0 {
		return nil, invalid("participant id is required")
	}

	var (
		batch        eventBatch
		result       RespondResult
		trade        *models.Trade
		participants []models.TradeParticipant
	)
	// Lock order is trade row, then participant rows, matching sweep and cancel.
	// The unlocked read only finds the trade id.
	seat, err := r.Repo.GetParticipantTx(ctx, nil, participantID)
	if err != nil {
		return nil, err
	}
	if seat == nil {
		return nil, notFound("participant %d not found", participantID)
	}

	err = r.Repo.InTx(ctx, func(tx *gorm.DB) error {
		t, err := r.Repo.GetTradeTx(ctx, tx, seat.TradeID)
		if err != nil {
			return err
		}
		if t == nil {
			return notFound("trade %d not found", seat.TradeID)
		}
		p, err := r.Repo.GetParticipantTx(ctx, tx, participantID)
		if err != nil {
			return err
		}
		if p == nil || p.TradeID != t.ID {
			return notFound("participant %d not found", participantID)
		}
		if t.Status != models.TradeStatusProposed {
			return transition("trade %d is %s and no longer accepts responses", t.ID, t.Status)
		}
		if p.ResponseStatus != models.ResponsePending {
			return transition("participant %d already %s", p.ID, p.ResponseStatus)
		}
		participants, err = r.Repo.ListParticipantsTx(ctx, tx, t.ID)
		if err != nil {
			return err
		}

		if decision == models.ResponseAccepted {
			if err := r.lockForAcceptance(ctx, tx, participants); err != nil {
				return err
			}
			st, err := r.limits().checkTx(ctx, tx, p.TeamID, t.SeasonID)
			if err != nil {
				return err
			}
			if !st.CanTrade {
				r.logger().Warn("trade acceptance blocked by limit",
					zap.Uint64("trade_id", t.ID),
					zap.Uint64("team_id", p.TeamID),
					zap.Int64("used", st.Used),
				)
				return limitExceeded(p.TeamID, st)
			}
		}

		now := time.Now().UTC()
		if err := r.Repo.UpdateParticipantResponseTx(ctx, tx, p.ID, decision, now); err != nil {
			return err
		}
		p.ResponseStatus = decision
		p.RespondedAt = &now
		for i := range participants {
			if participants[i].ID == p.ID {
				participants[i] = *p
			}
		}
		batch.add(t.ID, models.TradeEventResponded, u64Ptr(p.TeamID), u64Ptr(userID), map[string]any{
			"participant_id":  p.ID,
			"response_status": decision,
		})
		result.Participant = *p
		trade = t

		if decision == models.ResponseRejected {
			if err := r.cancelTx(ctx, tx, t, "rejected", &batch); err != nil {
				return err
			}
			return batch.writeTx(ctx, r.Repo, tx)
		}

		switch responseOutcome(participants) {
		case outcomeWaiting:
			return batch.writeTx(ctx, r.Repo, tx)
		case outcomeRejected:
			if err := r.cancelTx(ctx, tx, t, "rejected", &batch); err != nil {
				return err
			}
			return batch.writeTx(ctx, r.Repo, tx)
		}

		if err := r.markPendingTx(ctx, tx, t, &batch); err != nil {
			return err
		}
		if r.AutoExecute && r.Engine != nil {
			if err := r.Engine.executeTx(ctx, tx, t, participants, &batch, u64Ptr(userID)); err != nil {
				return err
			}
			result.Executed = true
		}
		return batch.writeTx(ctx, r.Repo, tx)
	})
	if err != nil {
		return nil, err
	}

	if result.Executed {
		r.Engine.afterCommit(ctx, trade, participants, &batch)
	} else {
		batch.publish(r.Events)
	}
	r.logger().Info("trade response recorded",
		zap.Uint64("trade_id", trade.ID),
		zap.Uint64("participant_id", participantID),
		zap.String("response", decision),
		zap.String("trade_status", trade.Status),
	)
	result.Trade = detailOr(ctx, r.Repo, trade)
	return &result, nil
}

// lockForAcceptance serialises acceptances touching the same teams. All teams
// of the trade are locked in ascending order, after the trade row, so the
// follow-up execution check takes team locks in the same order as any other
// acceptance.
func (r *ResponseCoordinator) lockForAcceptance(ctx context.Context, tx *gorm.DB, participants []models.TradeParticipant) error {
	teamIDs := make([]uint64, 0, len(participants))
	for _, p := range participants {
		teamIDs = append(teamIDs, p.TeamID)
	}
	return r.Repo.LockTeamsTx(ctx, tx, teamIDs)
}

// markPendingTx records that every participant accepted. The trade stays in
// pending until the execution engine runs.
func (r *ResponseCoordinator) markPendingTx(ctx context.Context, tx *gorm.DB, trade *models.Trade, batch *eventBatch) error {
	if err := r.Repo.UpdateTradeTx(ctx, tx, trade.ID, map[string]any{
		"status":     models.TradeStatusPending,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return err
	}
	trade.Status = models.TradeStatusPending
	batch.add(trade.ID, models.TradeEventPending, nil, nil, nil)
	return nil
}

func (r *ResponseCoordinator) cancelTx(ctx context.Context, tx *gorm.DB, trade *models.Trade, reason string, batch *eventBatch) error {
	if err := r.Repo.UpdateTradeTx(ctx, tx, trade.ID, map[string]any{
		"status":        models.TradeStatusCancelled,
		"cancel_reason": reason,
		"updated_at":    time.Now().UTC(),
	}); err != nil {
		return err
	}
	trade.Status = models.TradeStatusCancelled
	trade.CancelReason = strPtr(reason)
	batch.add(trade.ID, models.TradeEventCancelled, nil, nil, map[string]any{"reason": reason})
	return nil
}

type outcome int

const (
	outcomeWaiting outcome = iota
	outcomeRejected
	outcomeAccepted
)

func responseOutcome(participants []models.TradeParticipant) outcome {
	rejected := false
	for _, p := range participants {
		switch p.ResponseStatus {
		case models.ResponsePending:
			return outcomeWaiting
		case models.ResponseRejected:
			rejected = true
		}
	}
	if rejected {
		return outcomeRejected
	}
	return outcomeAccepted
}

func (r *ResponseCoordinator) limits() *LimitEnforcer {
	if r.Limits == nil {
		return &LimitEnforcer{Repo: r.Repo}
	}
	return r.Limits
}

func (r *ResponseCoordinator) logger() *zap.Logger {
	if r == nil || r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
