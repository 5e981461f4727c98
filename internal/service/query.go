package service

import (
	"context"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

type TradeQueryService struct {
	Repo repository.Repository
}

func (s *TradeQueryService) Get(ctx context.Context, id uint64) (*models.Trade, error) {
	item, err := s.Repo.GetTradeDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFound("trade %d not found", id)
	}
	return item, nil
}

func (s *TradeQueryService) List(ctx context.Context, params repository.ListTradesParams) ([]models.Trade, int64, error) {
	items, err := s.Repo.ListTrades(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountTrades(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListForUser returns trades involving any team owned by the user.
func (s *TradeQueryService) ListForUser(ctx context.Context, userID uint64, params repository.ListTradesParams) ([]models.Trade, int64, error) {
	if userID == 0 {
		return nil, 0, invalid("user id is required")
	}
	teams, err := s.Repo.ListTeamsByUserID(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if len(teams) == 0 {
		return []models.Trade{}, 0, nil
	}
	params.TeamIDs = make([]uint64, 0, len(teams))
	for _, t := range teams {
		params.TeamIDs = append(params.TeamIDs, t.ID)
	}
	return s.List(ctx, params)
}

// UserOwnsTeam reports whether the user manages the team.
func (s *TradeQueryService) UserOwnsTeam(ctx context.Context, userID, teamID uint64) (bool, error) {
	if userID == 0 || teamID == 0 {
		return false, nil
	}
	teams, err := s.Repo.ListTeamsByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, t := range teams {
		if t.ID == teamID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TradeQueryService) Events(ctx context.Context, tradeID uint64) ([]models.TradeEvent, error) {
	return s.Repo.ListTradeEvents(ctx, tradeID)
}

// ActiveSeasonID falls back to the active season when the caller gave none.
func (s *TradeQueryService) ActiveSeasonID(ctx context.Context, requested int) (int, error) {
	if requested > 0 {
		return requested, nil
	}
	season, err := s.Repo.GetActiveSeason(ctx)
	if err != nil {
		return 0, err
	}
	if season == nil {
		return 0, invalid("season_id is required: no active season")
	}
	return season.ID, nil
}

func (s *TradeQueryService) Participant(ctx context.Context, id uint64) (*models.TradeParticipant, error) {
	p, err := s.Repo.GetParticipantTx(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("participant %d not found", id)
	}
	return p, nil
}
