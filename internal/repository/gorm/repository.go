package gormrepository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// teamLockNamespace keeps the advisory keys used for team limit checks apart
// from any other advisory locks in the same database.
const teamLockNamespace int64 = 0x5452 << 32

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialised")
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func forUpdate(query *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return query
	}
	return query.Clauses(clause.Locking{Strength: "UPDATE"})
}

// --- trades -------------------------------------------------------------------

func (s *Store) CreateTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	if item == nil {
		return nil
	}
	return s.conn(ctx, tx).Omit(clause.Associations).Create(item).Error
}

func (s *Store) GetTradeTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Trade, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := forUpdate(s.conn(ctx, tx).Model(&models.Trade{}), tx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateTradeTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error {
	if id == 0 || len(updates) == 0 {
		return nil
	}
	res := s.conn(ctx, tx).Model(&models.Trade{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("trade %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// DeleteTradeTx removes assets, then participants, then the trade row.
func (s *Store) DeleteTradeTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if id == 0 {
		return nil
	}
	participantIDs := s.conn(ctx, tx).Model(&models.TradeParticipant{}).Select("id").Where("trade_id = ?", id)
	if err := s.conn(ctx, tx).Where("participant_id IN (?)", participantIDs).Delete(&models.TradeAsset{}).Error; err != nil {
		return err
	}
	if err := s.conn(ctx, tx).Where("trade_id = ?", id).Delete(&models.TradeParticipant{}).Error; err != nil {
		return err
	}
	return s.conn(ctx, tx).Where("id = ?", id).Delete(&models.Trade{}).Error
}

func (s *Store) ListTradeIDsByStatusesTx(ctx context.Context, tx *gorm.DB, statuses []string) ([]uint64, error) {
	statuses = cleanStrings(statuses)
	if len(statuses) == 0 {
		return nil, nil
	}
	var ids []uint64
	query := s.conn(ctx, tx).Model(&models.Trade{}).Where("status IN ?", statuses).Order("id asc")
	if err := forUpdate(query, tx).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) BulkUpdateTradeStatusTx(ctx context.Context, tx *gorm.DB, ids []uint64, status string, reason string) (int64, error) {
	if len(ids) == 0 || strings.TrimSpace(status) == "" {
		return 0, nil
	}
	updates := map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		updates["cancel_reason"] = reason
	}
	res := s.conn(ctx, tx).Model(&models.Trade{}).Where("id IN ?", ids).Updates(updates)
	return res.RowsAffected, res.Error
}

// --- participants ---------------------------------------------------------------

func (s *Store) CreateParticipantsTx(ctx context.Context, tx *gorm.DB, items []models.TradeParticipant) error {
	if len(items) == 0 {
		return nil
	}
	return s.conn(ctx, tx).Omit(clause.Associations).Create(&items).Error
}

func (s *Store) GetParticipantTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.TradeParticipant, error) {
	if id == 0 {
		return nil, nil
	}
	var item models.TradeParticipant
	err := forUpdate(s.conn(ctx, tx).Model(&models.TradeParticipant{}), tx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListParticipantsTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeParticipant, error) {
	var items []models.TradeParticipant
	if err := s.conn(ctx, tx).
		Model(&models.TradeParticipant{}).
		Where("trade_id = ?", tradeID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateParticipantResponseTx(ctx context.Context, tx *gorm.DB, id uint64, status string, at time.Time) error {
	res := s.conn(ctx, tx).
		Model(&models.TradeParticipant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"response_status": status,
			"responded_at":    at,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("participant %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

func (s *Store) RejectParticipantsByTradeIDsTx(ctx context.Context, tx *gorm.DB, tradeIDs []uint64, at time.Time) (int64, error) {
	if len(tradeIDs) == 0 {
		return 0, nil
	}
	res := s.conn(ctx, tx).
		Model(&models.TradeParticipant{}).
		Where("trade_id IN ?", tradeIDs).
		Updates(map[string]any{
			"response_status": models.ResponseRejected,
			"responded_at":    at,
			"updated_at":      time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// --- assets ---------------------------------------------------------------------

func (s *Store) CreateAssetsTx(ctx context.Context, tx *gorm.DB, items []models.TradeAsset) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(s.conn(ctx, tx), items, 200)
}

func (s *Store) ListAssetsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeAsset, error) {
	var items []models.TradeAsset
	if err := s.conn(ctx, tx).
		Model(&models.TradeAsset{}).
		Joins("JOIN trade_participants tp ON tp.id = trade_assets.participant_id").
		Where("tp.trade_id = ?", tradeID).
		Order("trade_assets.id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- ledger -----------------------------------------------------------------------

func (s *Store) InsertMovementTx(ctx context.Context, tx *gorm.DB, item *models.TradeMovement) error {
	if item == nil {
		return nil
	}
	return s.conn(ctx, tx).Create(item).Error
}

func (s *Store) ListMovementsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeMovement, error) {
	var items []models.TradeMovement
	if err := s.conn(ctx, tx).
		Model(&models.TradeMovement{}).
		Where("trade_id = ?", tradeID).
		Order("moved_at desc").
		Order("id desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertTradeEventsTx(ctx context.Context, tx *gorm.DB, items []models.TradeEvent) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(s.conn(ctx, tx), items, 200)
}

func (s *Store) ListTradeEvents(ctx context.Context, tradeID uint64) ([]models.TradeEvent, error) {
	var items []models.TradeEvent
	if err := s.conn(ctx, nil).
		Model(&models.TradeEvent{}).
		Where("trade_id = ?", tradeID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- ownership ----------------------------------------------------------------------

func (s *Store) GetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64) (*uint64, error) {
	switch assetType {
	case models.AssetTypePlayer:
		var item models.Player
		err := forUpdate(s.conn(ctx, tx).Model(&models.Player{}), tx).
			Select("id", "team_id").
			Where("id = ?", assetID).
			Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return item.TeamID, nil
	case models.AssetTypePick:
		var item models.Pick
		err := forUpdate(s.conn(ctx, tx).Model(&models.Pick{}), tx).
			Select("id", "current_team_id").
			Where("id = ?", assetID).
			Take(&item).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		owner := item.CurrentTeamID
		return &owner, nil
	default:
		return nil, fmt.Errorf("unsupported asset type %q", assetType)
	}
}

func (s *Store) SetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64, teamID uint64) error {
	var res *gorm.DB
	switch assetType {
	case models.AssetTypePlayer:
		res = s.conn(ctx, tx).Model(&models.Player{}).Where("id = ?", assetID).
			Updates(map[string]any{"team_id": teamID, "updated_at": time.Now().UTC()})
	case models.AssetTypePick:
		res = s.conn(ctx, tx).Model(&models.Pick{}).Where("id = ?", assetID).
			Updates(map[string]any{"current_team_id": teamID, "updated_at": time.Now().UTC()})
	default:
		return fmt.Errorf("unsupported asset type %q", assetType)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", assetType, assetID, gorm.ErrRecordNotFound)
	}
	return nil
}

// --- limits -------------------------------------------------------------------------

// LockTeamsTx takes transaction-scoped advisory locks in ascending team order,
// so two transactions locking overlapping team sets cannot deadlock.
func (s *Store) LockTeamsTx(ctx context.Context, tx *gorm.DB, teamIDs []uint64) error {
	if tx == nil || len(teamIDs) == 0 {
		return nil
	}
	ids := uniqueSorted(teamIDs)
	for _, id := range ids {
		key := teamLockNamespace | int64(id&0xffffffff)
		if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", key).Error; err != nil {
			return fmt.Errorf("lock team %d: %w", id, err)
		}
	}
	return nil
}

func (s *Store) CountExecutedTradesTx(ctx context.Context, tx *gorm.DB, teamID uint64, fromSeason, toSeason int) (int64, error) {
	var n int64
	err := s.conn(ctx, tx).
		Model(&models.Trade{}).
		Joins("JOIN trade_participants tp ON tp.trade_id = trades.id").
		Where("tp.team_id = ?", teamID).
		Where("trades.status = ?", models.TradeStatusExecuted).
		Where("trades.season_id BETWEEN ? AND ?", fromSeason, toSeason).
		Distinct("trades.id").
		Count(&n).Error
	return n, err
}

// --- read side ----------------------------------------------------------------------

func preloadTradeGraph(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("trade_participants.id asc")
		}).
		Preload("Participants.Team").
		Preload("Participants.Assets", func(db *gorm.DB) *gorm.DB {
			return db.Order("trade_assets.id asc")
		})
}

func (s *Store) GetTradeDetail(ctx context.Context, id uint64) (*models.Trade, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Trade
	err := preloadTradeGraph(s.db.WithContext(ctx).Model(&models.Trade{})).
		Preload("Movements", func(db *gorm.DB) *gorm.DB {
			return db.Order("trade_movements.id asc")
		}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) filterTrades(query *gorm.DB, params repository.ListTradesParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("trades.status = ?", strings.TrimSpace(*params.Status))
	}
	if params.SeasonID != nil && *params.SeasonID > 0 {
		query = query.Where("trades.season_id = ?", *params.SeasonID)
	}
	if len(params.TeamIDs) > 0 {
		sub := s.db.Model(&models.TradeParticipant{}).Select("trade_id").Where("team_id IN ?", params.TeamIDs)
		query = query.Where("trades.id IN (?)", sub)
	}
	return query
}

func (s *Store) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.filterTrades(s.db.WithContext(ctx).Model(&models.Trade{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Trade
	if err := preloadTradeGraph(query).Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.filterTrades(s.db.WithContext(ctx).Model(&models.Trade{}), params).Count(&n).Error
	return n, err
}

func (s *Store) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Season
	err := s.db.WithContext(ctx).
		Model(&models.Season{}).
		Where("is_active = ?", true).
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]models.Team, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Team
	if err := s.db.WithContext(ctx).Model(&models.Team{}).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTeamsByUserID(ctx context.Context, userID uint64) ([]models.Team, error) {
	if s == nil || s.db == nil || userID == 0 {
		return nil, nil
	}
	var items []models.Team
	if err := s.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers --------------------------------------------------------------------------

var orderColumns = map[string]string{
	"created_at":  "trades.created_at",
	"updated_at":  "trades.updated_at",
	"executed_at": "trades.executed_at",
	"season_id":   "trades.season_id",
	"id":          "trades.id",
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column, ok := orderColumns[strings.TrimSpace(orderBy)]
	if !ok {
		column = orderColumns[fallback]
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction).Order("trades.id " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[i:end]
		if err := db.Create(&batch).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

func uniqueSorted(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
