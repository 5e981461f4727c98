package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

// memRepo is a test-only in-memory implementation of repository.Repository.
// InTx snapshots the whole state and restores it when fn fails, so tests can
// observe rollback.
type memRepo struct {
	trades       map[uint64]models.Trade
	participants map[uint64]models.TradeParticipant
	assets       map[uint64]models.TradeAsset
	movements    []models.TradeMovement
	events       []models.TradeEvent
	players      map[uint64]models.Player
	picks        map[uint64]models.Pick
	teams        map[uint64]models.Team
	seasons      []models.Season

	nextID uint64

	// failSetOwner makes SetAssetOwnerTx fail for the given "type:id" key.
	failSetOwner map[string]error
	lockedTeams  [][]uint64

	// rowLocks lists trade and participant reads made inside InTx, the reads
	// the gorm store takes FOR UPDATE.
	inTx     bool
	rowLocks []string

	// afterCount runs once after CountExecutedTradesTx has computed its result.
	afterCount func()
}

var _ repository.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		trades:       map[uint64]models.Trade{},
		participants: map[uint64]models.TradeParticipant{},
		assets:       map[uint64]models.TradeAsset{},
		players:      map[uint64]models.Player{},
		picks:        map[uint64]models.Pick{},
		teams:        map[uint64]models.Team{},
		failSetOwner: map[string]error{},
	}
}

func (m *memRepo) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) addTeam(id uint64, name string, userID uint64) {
	t := models.Team{ID: id, Name: name, Abbreviation: name}
	if userID != 0 {
		t.UserID = &userID
	}
	m.teams[id] = t
}

func (m *memRepo) addPlayer(id, teamID uint64) {
	owner := teamID
	m.players[id] = models.Player{ID: id, Name: "player", TeamID: &owner}
}

func (m *memRepo) addPick(id uint64, seasonID int, teamID uint64) {
	m.picks[id] = models.Pick{ID: id, SeasonID: seasonID, Round: 1, OriginalTeamID: teamID, CurrentTeamID: teamID}
}

func (m *memRepo) playerOwner(id uint64) uint64 {
	p := m.players[id]
	if p.TeamID == nil {
		return 0
	}
	return *p.TeamID
}

func (m *memRepo) eventActions(tradeID uint64) []string {
	var out []string
	for _, e := range m.events {
		if e.TradeID == tradeID {
			out = append(out, e.Action)
		}
	}
	return out
}

func (m *memRepo) noteLock(table string, id uint64) {
	if m.inTx {
		m.rowLocks = append(m.rowLocks, fmt.Sprintf("%s:%d", table, id))
	}
}

type memSnapshot struct {
	trades       map[uint64]models.Trade
	participants map[uint64]models.TradeParticipant
	assets       map[uint64]models.TradeAsset
	movements    []models.TradeMovement
	events       []models.TradeEvent
	players      map[uint64]models.Player
	picks        map[uint64]models.Pick
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memRepo) snapshot() memSnapshot {
	return memSnapshot{
		trades:       copyMap(m.trades),
		participants: copyMap(m.participants),
		assets:       copyMap(m.assets),
		movements:    append([]models.TradeMovement(nil), m.movements...),
		events:       append([]models.TradeEvent(nil), m.events...),
		players:      copyMap(m.players),
		picks:        copyMap(m.picks),
	}
}

func (m *memRepo) restore(s memSnapshot) {
	m.trades = s.trades
	m.participants = s.participants
	m.assets = s.assets
	m.movements = s.movements
	m.events = s.events
	m.players = s.players
	m.picks = s.picks
}

func (m *memRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snap := m.snapshot()
	m.inTx = true
	defer func() { m.inTx = false }()
	if err := fn(nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memRepo) CreateTradeTx(ctx context.Context, tx *gorm.DB, item *models.Trade) error {
	item.ID = m.id()
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	stored.Participants = nil
	stored.Movements = nil
	m.trades[item.ID] = stored
	return nil
}

func (m *memRepo) GetTradeTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Trade, error) {
	m.noteLock("trade", id)
	t, ok := m.trades[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *memRepo) UpdateTradeTx(ctx context.Context, tx *gorm.DB, id uint64, updates map[string]any) error {
	t, ok := m.trades[id]
	if !ok {
		return errors.New("trade missing")
	}
	for k, v := range updates {
		switch k {
		case "status":
			t.Status = v.(string)
		case "cancel_reason":
			s := v.(string)
			t.CancelReason = &s
		case "made":
			t.Made = v.(bool)
		case "executed_at":
			at := v.(time.Time)
			t.ExecutedAt = &at
		case "reverted_at":
			at := v.(time.Time)
			t.RevertedAt = &at
		case "reverted_by_user":
			u := v.(uint64)
			t.RevertedByUser = &u
		case "updated_at":
			t.UpdatedAt = v.(time.Time)
		default:
			return errors.New("unexpected column " + k)
		}
	}
	m.trades[id] = t
	return nil
}

func (m *memRepo) DeleteTradeTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	for pid, p := range m.participants {
		if p.TradeID != id {
			continue
		}
		for aid, a := range m.assets {
			if a.ParticipantID == pid {
				delete(m.assets, aid)
			}
		}
		delete(m.participants, pid)
	}
	delete(m.trades, id)
	return nil
}

func (m *memRepo) ListTradeIDsByStatusesTx(ctx context.Context, tx *gorm.DB, statuses []string) ([]uint64, error) {
	want := map[string]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []uint64
	for id, t := range m.trades {
		if want[t.Status] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memRepo) BulkUpdateTradeStatusTx(ctx context.Context, tx *gorm.DB, ids []uint64, status string, reason string) (int64, error) {
	var n int64
	for _, id := range ids {
		t, ok := m.trades[id]
		if !ok {
			continue
		}
		t.Status = status
		if reason != "" {
			r := reason
			t.CancelReason = &r
		}
		m.trades[id] = t
		n++
	}
	return n, nil
}

func (m *memRepo) CreateParticipantsTx(ctx context.Context, tx *gorm.DB, items []models.TradeParticipant) error {
	for i := range items {
		for _, p := range m.participants {
			if p.TradeID == items[i].TradeID && p.TeamID == items[i].TeamID {
				return errors.New("duplicate key idx_trade_participants_trade_team")
			}
		}
		items[i].ID = m.id()
		m.participants[items[i].ID] = items[i]
	}
	return nil
}

func (m *memRepo) GetParticipantTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.TradeParticipant, error) {
	m.noteLock("participant", id)
	p, ok := m.participants[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memRepo) ListParticipantsTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeParticipant, error) {
	var out []models.TradeParticipant
	for _, p := range m.participants {
		if p.TradeID == tradeID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) UpdateParticipantResponseTx(ctx context.Context, tx *gorm.DB, id uint64, status string, at time.Time) error {
	p, ok := m.participants[id]
	if !ok {
		return errors.New("participant missing")
	}
	p.ResponseStatus = status
	p.RespondedAt = &at
	m.participants[id] = p
	return nil
}

func (m *memRepo) RejectParticipantsByTradeIDsTx(ctx context.Context, tx *gorm.DB, tradeIDs []uint64, at time.Time) (int64, error) {
	want := map[uint64]bool{}
	for _, id := range tradeIDs {
		want[id] = true
	}
	var n int64
	for id, p := range m.participants {
		if !want[p.TradeID] {
			continue
		}
		p.ResponseStatus = models.ResponseRejected
		p.RespondedAt = &at
		m.participants[id] = p
		n++
	}
	return n, nil
}

func (m *memRepo) CreateAssetsTx(ctx context.Context, tx *gorm.DB, items []models.TradeAsset) error {
	for i := range items {
		items[i].ID = m.id()
		m.assets[items[i].ID] = items[i]
	}
	return nil
}

func (m *memRepo) ListAssetsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeAsset, error) {
	var out []models.TradeAsset
	for _, a := range m.assets {
		if p, ok := m.participants[a.ParticipantID]; ok && p.TradeID == tradeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) InsertMovementTx(ctx context.Context, tx *gorm.DB, item *models.TradeMovement) error {
	item.ID = m.id()
	m.movements = append(m.movements, *item)
	return nil
}

func (m *memRepo) ListMovementsByTradeTx(ctx context.Context, tx *gorm.DB, tradeID uint64) ([]models.TradeMovement, error) {
	var out []models.TradeMovement
	for _, mv := range m.movements {
		if mv.TradeID == tradeID {
			out = append(out, mv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MovedAt.Equal(out[j].MovedAt) {
			return out[i].MovedAt.After(out[j].MovedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memRepo) InsertTradeEventsTx(ctx context.Context, tx *gorm.DB, items []models.TradeEvent) error {
	for i := range items {
		items[i].ID = m.id()
		m.events = append(m.events, items[i])
	}
	return nil
}

func (m *memRepo) ListTradeEvents(ctx context.Context, tradeID uint64) ([]models.TradeEvent, error) {
	var out []models.TradeEvent
	for _, e := range m.events {
		if e.TradeID == tradeID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) GetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64) (*uint64, error) {
	switch assetType {
	case models.AssetTypePlayer:
		p, ok := m.players[assetID]
		if !ok || p.TeamID == nil {
			return nil, nil
		}
		owner := *p.TeamID
		return &owner, nil
	case models.AssetTypePick:
		p, ok := m.picks[assetID]
		if !ok {
			return nil, nil
		}
		owner := p.CurrentTeamID
		return &owner, nil
	}
	return nil, errors.New("unknown asset type " + assetType)
}

func (m *memRepo) SetAssetOwnerTx(ctx context.Context, tx *gorm.DB, assetType string, assetID uint64, teamID uint64) error {
	if err := m.failSetOwner[assetKey(assetType, assetID)]; err != nil {
		return err
	}
	switch assetType {
	case models.AssetTypePlayer:
		p, ok := m.players[assetID]
		if !ok {
			return errors.New("player missing")
		}
		owner := teamID
		p.TeamID = &owner
		m.players[assetID] = p
	case models.AssetTypePick:
		p, ok := m.picks[assetID]
		if !ok {
			return errors.New("pick missing")
		}
		p.CurrentTeamID = teamID
		m.picks[assetID] = p
	default:
		return errors.New("unknown asset type " + assetType)
	}
	return nil
}

func assetKey(assetType string, id uint64) string {
	return fmt.Sprintf("%s:%d", assetType, id)
}

func (m *memRepo) LockTeamsTx(ctx context.Context, tx *gorm.DB, teamIDs []uint64) error {
	m.lockedTeams = append(m.lockedTeams, append([]uint64(nil), teamIDs...))
	return nil
}

func (m *memRepo) CountExecutedTradesTx(ctx context.Context, tx *gorm.DB, teamID uint64, fromSeason, toSeason int) (int64, error) {
	var n int64
	for _, t := range m.trades {
		if t.Status != models.TradeStatusExecuted || t.SeasonID < fromSeason || t.SeasonID > toSeason {
			continue
		}
		for _, p := range m.participants {
			if p.TradeID == t.ID && p.TeamID == teamID {
				n++
				break
			}
		}
	}
	if hook := m.afterCount; hook != nil {
		m.afterCount = nil
		hook()
	}
	return n, nil
}

func (m *memRepo) GetTradeDetail(ctx context.Context, id uint64) (*models.Trade, error) {
	t, ok := m.trades[id]
	if !ok {
		return nil, nil
	}
	parts, _ := m.ListParticipantsTx(ctx, nil, id)
	for i := range parts {
		for _, a := range m.assets {
			if a.ParticipantID == parts[i].ID {
				parts[i].Assets = append(parts[i].Assets, a)
			}
		}
		if team, ok := m.teams[parts[i].TeamID]; ok {
			team := team
			parts[i].Team = &team
		}
	}
	t.Participants = parts
	t.Movements, _ = m.ListMovementsByTradeTx(ctx, nil, id)
	return &t, nil
}

func (m *memRepo) ListTrades(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, error) {
	var out []models.Trade
	for _, t := range m.trades {
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.SeasonID != nil && t.SeasonID != *params.SeasonID {
			continue
		}
		if len(params.TeamIDs) > 0 && !m.involves(t.ID, params.TeamIDs) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) involves(tradeID uint64, teamIDs []uint64) bool {
	for _, p := range m.participants {
		if p.TradeID != tradeID {
			continue
		}
		for _, id := range teamIDs {
			if p.TeamID == id {
				return true
			}
		}
	}
	return false
}

func (m *memRepo) CountTrades(ctx context.Context, params repository.ListTradesParams) (int64, error) {
	items, err := m.ListTrades(ctx, params)
	return int64(len(items)), err
}

func (m *memRepo) GetActiveSeason(ctx context.Context) (*models.Season, error) {
	for _, s := range m.seasons {
		if s.IsActive {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListTeams(ctx context.Context) ([]models.Team, error) {
	out := make([]models.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) ListTeamsByUserID(ctx context.Context, userID uint64) ([]models.Team, error) {
	var out []models.Team
	for _, t := range m.teams {
		if t.UserID != nil && *t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// recordingPublisher captures events published after commit.
type recordingPublisher struct {
	events []models.TradeEvent
}

func (p *recordingPublisher) Publish(evt models.TradeEvent) {
	p.events = append(p.events, evt)
}
