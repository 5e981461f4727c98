package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/cache"
	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

const DefaultMaxTradesPerWindow = 10

type LimitStatus struct {
	TeamID      uint64 `json:"team_id"`
	CanTrade    bool   `json:"can_trade"`
	Used        int64  `json:"used"`
	Limit       int64  `json:"limit"`
	WindowStart int    `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
}

type ParticipantLimit struct {
	ParticipantID  uint64 `json:"participant_id"`
	ResponseStatus string `json:"response_status"`
	LimitStatus
}

// TradeLimitPreview is advisory. The binding check happens per participant on acceptance.
type TradeLimitPreview struct {
	TradeID      uint64             `json:"trade_id"`
	SeasonID     int                `json:"season_id"`
	CanAccept    bool               `json:"can_accept"`
	Participants []ParticipantLimit `json:"participants"`
}

type TeamLimit struct {
	TeamName     string `json:"team_name"`
	Abbreviation string `json:"abbreviation"`
	LimitStatus
}

// LimitEnforcer counts executed trades per team inside a two-season window.
type LimitEnforcer struct {
	Repo         repository.Repository
	Cache        cache.Store
	CacheTTL     time.Duration
	MaxPerWindow int
	Logger       *zap.Logger

	// gens counts invalidations per cache key. A count read from the store is
	// only cached when no invalidation happened since the read started.
	mu   sync.Mutex
	gens map[string]uint64
}

// SeasonWindow returns the season pair containing seasonID: (1,2), (3,4), ...
func SeasonWindow(seasonID int) (start, end int, err error) {
	if seasonID < 1 {
		return 0, 0, invalid("invalid season id %d", seasonID)
	}
	start = ((seasonID-1)/2)*2 + 1
	return start, start + 1, nil
}

func (l *LimitEnforcer) limit() int64 {
	if l == nil || l.MaxPerWindow <= 0 {
		return DefaultMaxTradesPerWindow
	}
	return int64(l.MaxPerWindow)
}

func (l *LimitEnforcer) status(teamID uint64, used int64, start, end int) LimitStatus {
	limit := l.limit()
	return LimitStatus{
		TeamID:      teamID,
		CanTrade:    used < limit,
		Used:        used,
		Limit:       limit,
		WindowStart: start,
		WindowEnd:   end,
	}
}

// checkTx counts on the caller's transaction, bypassing the cache. Callers
// that act on the result hold the team's advisory lock first.
func (l *LimitEnforcer) checkTx(ctx context.Context, tx *gorm.DB, teamID uint64, seasonID int) (LimitStatus, error) {
	start, end, err := SeasonWindow(seasonID)
	if err != nil {
		return LimitStatus{}, err
	}
	used, err := l.Repo.CountExecutedTradesTx(ctx, tx, teamID, start, end)
	if err != nil {
		return LimitStatus{}, fmt.Errorf("count executed trades: %w", err)
	}
	return l.status(teamID, used, start, end), nil
}

// CheckLimit is the read-side check used by previews; it may be served from cache.
func (l *LimitEnforcer) CheckLimit(ctx context.Context, teamID uint64, seasonID int) (LimitStatus, error) {
	if teamID == 0 {
		return LimitStatus{}, invalid("team id is required")
	}
	start, end, err := SeasonWindow(seasonID)
	if err != nil {
		return LimitStatus{}, err
	}
	used, err := l.countExecuted(ctx, teamID, start, end)
	if err != nil {
		return LimitStatus{}, err
	}
	return l.status(teamID, used, start, end), nil
}

func (l *LimitEnforcer) countExecuted(ctx context.Context, teamID uint64, start, end int) (int64, error) {
	key := limitCacheKey(teamID, start, end)
	if l.Cache != nil {
		if raw, ok, err := l.Cache.Get(ctx, key); err == nil && ok {
			if n, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
				return n, nil
			}
		} else if err != nil && l.Logger != nil {
			l.Logger.Debug("limit cache get failed", zap.String("key", key), zap.Error(err))
		}
	}
	gen := l.generation(key)
	used, err := l.Repo.CountExecutedTradesTx(ctx, nil, teamID, start, end)
	if err != nil {
		return 0, fmt.Errorf("count executed trades: %w", err)
	}
	if l.Cache != nil {
		l.mu.Lock()
		stale := l.gens[key] != gen
		if !stale {
			if err := l.Cache.Set(ctx, key, []byte(strconv.FormatInt(used, 10)), l.CacheTTL); err != nil && l.Logger != nil {
				l.Logger.Debug("limit cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
		l.mu.Unlock()
		if stale && l.Logger != nil {
			l.Logger.Debug("limit count invalidated during read; not cached", zap.String("key", key))
		}
	}
	return used, nil
}

func (l *LimitEnforcer) generation(key string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gens[key]
}

// CheckAllParticipants previews every participant's limit for a trade.
func (l *LimitEnforcer) CheckAllParticipants(ctx context.Context, tradeID uint64) (*TradeLimitPreview, error) {
	trade, err := l.Repo.GetTradeTx(ctx, nil, tradeID)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, notFound("trade %d not found", tradeID)
	}
	participants, err := l.Repo.ListParticipantsTx(ctx, nil, tradeID)
	if err != nil {
		return nil, err
	}
	out := &TradeLimitPreview{
		TradeID:      trade.ID,
		SeasonID:     trade.SeasonID,
		CanAccept:    true,
		Participants: make([]ParticipantLimit, 0, len(participants)),
	}
	for _, p := range participants {
		st, err := l.CheckLimit(ctx, p.TeamID, trade.SeasonID)
		if err != nil {
			return nil, err
		}
		if !st.CanTrade {
			out.CanAccept = false
		}
		out.Participants = append(out.Participants, ParticipantLimit{
			ParticipantID:  p.ID,
			ResponseStatus: p.ResponseStatus,
			LimitStatus:    st,
		})
	}
	return out, nil
}

// TeamCounts returns the limit status of every team for the window containing seasonID.
func (l *LimitEnforcer) TeamCounts(ctx context.Context, seasonID int) ([]TeamLimit, error) {
	if _, _, err := SeasonWindow(seasonID); err != nil {
		return nil, err
	}
	teams, err := l.Repo.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TeamLimit, 0, len(teams))
	for _, team := range teams {
		st, err := l.CheckLimit(ctx, team.ID, seasonID)
		if err != nil {
			return nil, err
		}
		out = append(out, TeamLimit{
			TeamName:     team.Name,
			Abbreviation: team.Abbreviation,
			LimitStatus:  st,
		})
	}
	return out, nil
}

// Invalidate drops cached counts for the teams of a trade whose executed state changed.
func (l *LimitEnforcer) Invalidate(ctx context.Context, seasonID int, participants []models.TradeParticipant) {
	if l == nil || l.Cache == nil || len(participants) == 0 {
		return
	}
	start, end, err := SeasonWindow(seasonID)
	if err != nil {
		return
	}
	keys := make([]string, 0, len(participants))
	for _, p := range participants {
		keys = append(keys, limitCacheKey(p.TeamID, start, end))
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gens == nil {
		l.gens = make(map[string]uint64, len(keys))
	}
	for _, k := range keys {
		l.gens[k]++
	}
	if err := l.Cache.Delete(ctx, keys...); err != nil && l.Logger != nil {
		l.Logger.Warn("limit cache invalidate failed", zap.Int("season_id", seasonID), zap.Error(err))
	}
}

func limitCacheKey(teamID uint64, start, end int) string {
	return fmt.Sprintf("trade_limit:%d:%d-%d", teamID, start, end)
}
