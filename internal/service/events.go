package service

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// Publisher receives trade events after the transaction that produced them commits.
type Publisher interface {
	Publish(evt models.TradeEvent)
}

// eventBatch collects audit rows inside a transaction. Rows are written with
// the transaction and only published once it has committed.
type eventBatch struct {
	items []models.TradeEvent
}

func (b *eventBatch) add(tradeID uint64, action string, teamID, userID *uint64, details map[string]any) {
	var raw datatypes.JSON
	if len(details) > 0 {
		if encoded, err := json.Marshal(details); err == nil {
			raw = datatypes.JSON(encoded)
		}
	}
	b.items = append(b.items, models.TradeEvent{
		TradeID:   tradeID,
		Action:    action,
		TeamID:    teamID,
		UserID:    userID,
		Details:   raw,
		CreatedAt: time.Now().UTC(),
	})
}

func (b *eventBatch) writeTx(ctx context.Context, repo repository.Repository, tx *gorm.DB) error {
	if b == nil || len(b.items) == 0 {
		return nil
	}
	return repo.InsertTradeEventsTx(ctx, tx, b.items)
}

func (b *eventBatch) publish(p Publisher) {
	if b == nil || p == nil {
		return
	}
	for _, evt := range b.items {
		p.Publish(evt)
	}
}

func u64Ptr(v uint64) *uint64 {
	if v == 0 {
		return nil
	}
	return &v
}

func strPtr(v string) *string { return &v }
