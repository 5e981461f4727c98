package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
)

type ProposalAsset struct {
	AssetType string  `json:"asset_type"`
	PlayerID  *uint64 `json:"player_id,omitempty"`
	PickID    *uint64 `json:"pick_id,omitempty"`
	// ToParticipant is the position of the receiving participant in Proposal.Participants.
	ToParticipant *int `json:"to_participant_id,omitempty"`
}

type ProposalParticipant struct {
	TeamID      uint64          `json:"team_id"`
	IsInitiator bool            `json:"is_initiator"`
	Assets      []ProposalAsset `json:"assets"`
}

type Proposal struct {
	SeasonID      int                   `json:"season_id"`
	CreatedByTeam uint64                `json:"created_by_team"`
	Participants  []ProposalParticipant `json:"participants"`
}

// proposalShape decides how an asset's destination is given. Two-party trades
// may leave it implicit; trades with three or more sides must name it.
type proposalShape interface {
	destination(sender int, to *int) (*int, error)
}

type twoPartyTrade struct{}

func (twoPartyTrade) destination(sender int, to *int) (*int, error) {
	if to == nil {
		return nil, nil
	}
	if *to < 0 || *to > 1 || *to == sender {
		return nil, conflict("destination %d is not the other participant", *to)
	}
	return to, nil
}

type multiPartyTrade struct {
	size int
}

func (m multiPartyTrade) destination(sender int, to *int) (*int, error) {
	if to == nil {
		return nil, conflict("trades with %d participants need an explicit destination on every asset", m.size)
	}
	if *to < 0 || *to >= m.size {
		return nil, conflict("destination %d does not refer to a participant", *to)
	}
	if *to == sender {
		return nil, conflict("an asset cannot be sent to its own participant")
	}
	return to, nil
}

func shapeOf(participants int) proposalShape {
	if participants == 2 {
		return twoPartyTrade{}
	}
	return multiPartyTrade{size: participants}
}

type plannedAsset struct {
	sender    int
	to        *int
	assetType string
	entityID  uint64
}

type proposalPlan struct {
	initiator int
	assets    []plannedAsset
}

// ProposalBuilder persists a trade, its participants and their assets in one transaction.
type ProposalBuilder struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Events Publisher
}

func (b *ProposalBuilder) Propose(ctx context.Context, req Proposal, userID uint64) (*models.Trade, error) {
	plan, err := planProposal(&req)
	if err != nil {
		return nil, err
	}

	var (
		batch eventBatch
		trade *models.Trade
	)
	err = b.Repo.InTx(ctx, func(tx *gorm.DB) error {
		for _, a := range plan.assets {
			sender := req.Participants[a.sender].TeamID
			owner, err := b.Repo.GetAssetOwnerTx(ctx, tx, a.assetType, a.entityID)
			if err != nil {
				return err
			}
			if owner == nil || *owner != sender {
				return invalid("team %d does not own %s %d", sender, a.assetType, a.entityID)
			}
		}

		now := time.Now().UTC()
		t := &models.Trade{
			SeasonID:      req.SeasonID,
			Status:        models.TradeStatusProposed,
			CreatedByTeam: req.CreatedByTeam,
		}
		if err := b.Repo.CreateTradeTx(ctx, tx, t); err != nil {
			return fmt.Errorf("create trade: %w", err)
		}

		participants := make([]models.TradeParticipant, len(req.Participants))
		for i, p := range req.Participants {
			participants[i] = models.TradeParticipant{
				TradeID:        t.ID,
				TeamID:         p.TeamID,
				IsInitiator:    i == plan.initiator,
				ResponseStatus: models.ResponsePending,
			}
			if i == plan.initiator {
				participants[i].ResponseStatus = models.ResponseAccepted
				participants[i].RespondedAt = &now
			}
		}
		if err := b.Repo.CreateParticipantsTx(ctx, tx, participants); err != nil {
			return fmt.Errorf("create participants: %w", err)
		}

		// Positions become real ids only after every participant row exists.
		ids := make([]uint64, len(participants))
		for i, p := range participants {
			if p.ID == 0 {
				return fmt.Errorf("participant %d was not assigned an id", i)
			}
			ids[i] = p.ID
		}
		assets := make([]models.TradeAsset, 0, len(plan.assets))
		for _, a := range plan.assets {
			asset := models.TradeAsset{
				ParticipantID: ids[a.sender],
				AssetType:     a.assetType,
			}
			if a.to != nil {
				asset.ToParticipantID = u64Ptr(ids[*a.to])
			}
			entityID := a.entityID
			if a.assetType == models.AssetTypePlayer {
				asset.PlayerID = &entityID
			} else {
				asset.PickID = &entityID
			}
			assets = append(assets, asset)
		}
		if err := b.Repo.CreateAssetsTx(ctx, tx, assets); err != nil {
			return fmt.Errorf("create assets: %w", err)
		}

		teamIDs := make([]uint64, 0, len(participants))
		for _, p := range participants {
			teamIDs = append(teamIDs, p.TeamID)
		}
		batch.add(t.ID, models.TradeEventProposed, u64Ptr(req.CreatedByTeam), u64Ptr(userID), map[string]any{
			"season_id": req.SeasonID,
			"teams":     teamIDs,
			"assets":    len(assets),
		})
		trade = t
		return batch.writeTx(ctx, b.Repo, tx)
	})
	if err != nil {
		return nil, err
	}

	batch.publish(b.Events)
	if b.Logger != nil {
		b.Logger.Info("trade proposed",
			zap.Uint64("trade_id", trade.ID),
			zap.Int("season_id", trade.SeasonID),
			zap.Uint64("created_by_team", trade.CreatedByTeam),
			zap.Int("participants", len(req.Participants)),
			zap.Int("assets", len(plan.assets)),
		)
	}
	return detailOr(ctx, b.Repo, trade), nil
}

// planProposal validates the request without touching the store. It fills in
// CreatedByTeam from the initiator when it is missing.
func planProposal(req *Proposal) (*proposalPlan, error) {
	if req.SeasonID < 1 {
		return nil, invalid("season_id is required")
	}
	if len(req.Participants) < 2 {
		return nil, invalid("a trade needs at least two participants")
	}

	plan := &proposalPlan{initiator: -1}
	teams := make(map[uint64]struct{}, len(req.Participants))
	for i, p := range req.Participants {
		if p.TeamID == 0 {
			return nil, invalid("participant %d is missing team_id", i)
		}
		if _, dup := teams[p.TeamID]; dup {
			return nil, conflict("team %d appears more than once", p.TeamID)
		}
		teams[p.TeamID] = struct{}{}
		if p.IsInitiator {
			if plan.initiator >= 0 {
				return nil, invalid("only one participant can be the initiator")
			}
			plan.initiator = i
		}
	}
	if plan.initiator < 0 {
		return nil, invalid("missing initiator")
	}
	initiatorTeam := req.Participants[plan.initiator].TeamID
	if req.CreatedByTeam == 0 {
		req.CreatedByTeam = initiatorTeam
	} else if req.CreatedByTeam != initiatorTeam {
		return nil, invalid("created_by_team %d is not the initiator's team %d", req.CreatedByTeam, initiatorTeam)
	}

	shape := shapeOf(len(req.Participants))
	seen := map[string]struct{}{}
	for i, p := range req.Participants {
		for j, a := range p.Assets {
			assetType, entityID, err := assetRef(a)
			if err != nil {
				return nil, withPosition(err, i, j)
			}
			key := fmt.Sprintf("%s:%d", assetType, entityID)
			if _, dup := seen[key]; dup {
				return nil, conflict("%s %d is offered more than once", assetType, entityID)
			}
			seen[key] = struct{}{}
			to, err := shape.destination(i, a.ToParticipant)
			if err != nil {
				return nil, withPosition(err, i, j)
			}
			plan.assets = append(plan.assets, plannedAsset{
				sender:    i,
				to:        to,
				assetType: assetType,
				entityID:  entityID,
			})
		}
	}
	if len(plan.assets) == 0 {
		return nil, invalid("a trade needs at least one asset")
	}
	return plan, nil
}

func assetRef(a ProposalAsset) (string, uint64, error) {
	assetType := strings.ToLower(strings.TrimSpace(a.AssetType))
	switch assetType {
	case models.AssetTypePlayer:
		if a.PlayerID == nil || *a.PlayerID == 0 || a.PickID != nil {
			return "", 0, invalid("player assets need player_id only")
		}
		return assetType, *a.PlayerID, nil
	case models.AssetTypePick:
		if a.PickID == nil || *a.PickID == 0 || a.PlayerID != nil {
			return "", 0, invalid("pick assets need pick_id only")
		}
		return assetType, *a.PickID, nil
	case models.AssetTypePickSwap:
		return "", 0, invalid("pick swaps are not supported")
	default:
		return "", 0, invalid("unknown asset_type %q", a.AssetType)
	}
}

func withPosition(err error, participant, asset int) error {
	var se *Error
	if !errors.As(err, &se) {
		return err
	}
	return &Error{
		Kind:    se.Kind,
		Message: fmt.Sprintf("participants[%d].assets[%d]: %s", participant, asset, se.Message),
	}
}
