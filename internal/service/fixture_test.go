package service

import (
	"context"
	"errors"
	"testing"

	"leaguetrades/internal/cache"
	"leaguetrades/internal/models"
)

const (
	teamA uint64 = 1
	teamB uint64 = 2
	teamC uint64 = 3

	adminUser uint64 = 900
)

type fixture struct {
	repo      *memRepo
	pub       *recordingPublisher
	limits    *LimitEnforcer
	engine    *ExecutionEngine
	responses *ResponseCoordinator
	reversal  *ReversalEngine
	proposals *ProposalBuilder
	canceller *TradeCanceller
	sweeper   *DeadlineSweeper
	queries   *TradeQueryService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	repo.addTeam(teamA, "AAA", 11)
	repo.addTeam(teamB, "BBB", 12)
	repo.addTeam(teamC, "CCC", 13)
	repo.addPlayer(101, teamA)
	repo.addPlayer(102, teamA)
	repo.addPlayer(201, teamB)
	repo.addPlayer(301, teamC)
	repo.addPick(501, 1, teamA)
	repo.addPick(502, 1, teamB)
	repo.seasons = []models.Season{{ID: 1, Name: "2025"}, {ID: 2, Name: "2026", IsActive: true}}

	pub := &recordingPublisher{}
	limits := &LimitEnforcer{Repo: repo, Cache: cache.NewMemoryStore(), MaxPerWindow: DefaultMaxTradesPerWindow}
	engine := &ExecutionEngine{Repo: repo, Limits: limits, EnforceLimit: true, Events: pub}
	return &fixture{
		repo:      repo,
		pub:       pub,
		limits:    limits,
		engine:    engine,
		responses: &ResponseCoordinator{Repo: repo, Limits: limits, Engine: engine, AutoExecute: true, Events: pub},
		reversal:  &ReversalEngine{Repo: repo, Limits: limits, Events: pub},
		proposals: &ProposalBuilder{Repo: repo, Events: pub},
		canceller: &TradeCanceller{Repo: repo, Events: pub},
		sweeper:   &DeadlineSweeper{Repo: repo, Events: pub},
		queries:   &TradeQueryService{Repo: repo},
	}
}

func u64(v uint64) *uint64 { return &v }
func pos(v int) *int       { return &v }

func player(id uint64) ProposalAsset {
	return ProposalAsset{AssetType: models.AssetTypePlayer, PlayerID: u64(id)}
}

func pick(id uint64) ProposalAsset {
	return ProposalAsset{AssetType: models.AssetTypePick, PickID: u64(id)}
}

func to(a ProposalAsset, participant int) ProposalAsset {
	a.ToParticipant = pos(participant)
	return a
}

// proposeTwoParty has team A send player 101 to team B for player 201.
func (f *fixture) proposeTwoParty(t *testing.T, seasonID int) *models.Trade {
	t.Helper()
	trade, err := f.proposals.Propose(context.Background(), Proposal{
		SeasonID: seasonID,
		Participants: []ProposalParticipant{
			{TeamID: teamA, IsInitiator: true, Assets: []ProposalAsset{player(101)}},
			{TeamID: teamB, Assets: []ProposalAsset{player(201)}},
		},
	}, 11)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	return trade
}

func (f *fixture) participantOf(t *testing.T, tradeID, teamID uint64) models.TradeParticipant {
	t.Helper()
	parts, _ := f.repo.ListParticipantsTx(context.Background(), nil, tradeID)
	for _, p := range parts {
		if p.TeamID == teamID {
			return p
		}
	}
	t.Fatalf("team %d is not in trade %d", teamID, tradeID)
	return models.TradeParticipant{}
}

func (f *fixture) status(t *testing.T, tradeID uint64) string {
	t.Helper()
	tr, ok := f.repo.trades[tradeID]
	if !ok {
		t.Fatalf("trade %d missing", tradeID)
	}
	return tr.Status
}

// seedExecuted stores n executed trades between the given teams without touching ownership.
func (f *fixture) seedExecuted(n int, seasonID int, teams ...uint64) {
	for i := 0; i < n; i++ {
		tr := &models.Trade{SeasonID: seasonID, Status: models.TradeStatusExecuted, CreatedByTeam: teams[0]}
		_ = f.repo.CreateTradeTx(context.Background(), nil, tr)
		parts := make([]models.TradeParticipant, 0, len(teams))
		for _, team := range teams {
			parts = append(parts, models.TradeParticipant{TradeID: tr.ID, TeamID: team, ResponseStatus: models.ResponseAccepted})
		}
		_ = f.repo.CreateParticipantsTx(context.Background(), nil, parts)
	}
}

func wantKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("err=%v want kind %v", err, kind)
	}
}
