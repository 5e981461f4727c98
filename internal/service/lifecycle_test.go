package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"leaguetrades/internal/models"
)

func TestTwoPartyTrade_AcceptExecutesAndMovesAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.proposeTwoParty(t, 1)

	if trade.Status != models.TradeStatusProposed {
		t.Fatalf("status=%s want proposed", trade.Status)
	}
	initiator := f.participantOf(t, trade.ID, teamA)
	if initiator.ResponseStatus != models.ResponseAccepted || !initiator.IsInitiator {
		t.Fatalf("initiator=%+v want accepted initiator", initiator)
	}
	for _, p := range trade.Participants {
		for _, a := range p.Assets {
			if a.ToParticipantID != nil {
				t.Fatalf("two-party asset %d has explicit destination", a.ID)
			}
		}
	}

	res, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if !res.Executed || res.Trade.Status != models.TradeStatusExecuted {
		t.Fatalf("executed=%v status=%s want executed", res.Executed, res.Trade.Status)
	}
	if !res.Trade.Made || res.Trade.ExecutedAt == nil {
		t.Fatalf("made=%v executed_at=%v want made with timestamp", res.Trade.Made, res.Trade.ExecutedAt)
	}
	if got := f.repo.playerOwner(101); got != teamB {
		t.Fatalf("player 101 owner=%d want %d", got, teamB)
	}
	if got := f.repo.playerOwner(201); got != teamA {
		t.Fatalf("player 201 owner=%d want %d", got, teamA)
	}
	movements, _ := f.repo.ListMovementsByTradeTx(ctx, nil, trade.ID)
	if len(movements) != 2 {
		t.Fatalf("movements=%d want 2", len(movements))
	}
	for _, m := range movements {
		if m.FromTeamID == m.ToTeamID {
			t.Fatalf("movement %+v moves to its own team", m)
		}
	}

	wantActions := []string{
		models.TradeEventProposed,
		models.TradeEventResponded,
		models.TradeEventPending,
		models.TradeEventExecuted,
	}
	if got := f.repo.eventActions(trade.ID); !reflect.DeepEqual(got, wantActions) {
		t.Fatalf("events=%v want %v", got, wantActions)
	}
	if len(f.pub.events) != len(wantActions) {
		t.Fatalf("published=%d want %d", len(f.pub.events), len(wantActions))
	}

	for _, team := range []uint64{teamA, teamB} {
		st, err := f.limits.CheckLimit(ctx, team, 2)
		if err != nil {
			t.Fatalf("check limit: %v", err)
		}
		if st.Used != 1 || !st.CanTrade || st.WindowStart != 1 || st.WindowEnd != 2 {
			t.Fatalf("team %d limit=%+v want used=1 window 1-2", team, st)
		}
	}
}

func TestRespond_RejectCancelsImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade, err := f.proposals.Propose(ctx, Proposal{
		SeasonID: 1,
		Participants: []ProposalParticipant{
			{TeamID: teamA, IsInitiator: true, Assets: []ProposalAsset{to(player(101), 1)}},
			{TeamID: teamB, Assets: []ProposalAsset{to(player(201), 2)}},
			{TeamID: teamC, Assets: []ProposalAsset{to(player(301), 0)}},
		},
	}, 11)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	if _, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "rejected", 12); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if got := f.status(t, trade.ID); got != models.TradeStatusCancelled {
		t.Fatalf("status=%s want cancelled", got)
	}
	if r := f.repo.trades[trade.ID].CancelReason; r == nil || *r != "rejected" {
		t.Fatalf("cancel_reason=%v want rejected", r)
	}
	if len(f.repo.movements) != 0 {
		t.Fatalf("movements=%d want 0", len(f.repo.movements))
	}

	_, err = f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamC).ID, "accepted", 13)
	wantKind(t, err, ErrInvalidTransition)
}

func TestRespond_ThreePartyWaitsForEveryone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade, err := f.proposals.Propose(ctx, Proposal{
		SeasonID: 1,
		Participants: []ProposalParticipant{
			{TeamID: teamA, IsInitiator: true, Assets: []ProposalAsset{to(player(101), 1)}},
			{TeamID: teamB, Assets: []ProposalAsset{to(player(201), 2)}},
			{TeamID: teamC, Assets: []ProposalAsset{to(player(301), 0)}},
		},
	}, 11)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}

	res, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12)
	if err != nil {
		t.Fatalf("respond B: %v", err)
	}
	if res.Executed || f.status(t, trade.ID) != models.TradeStatusProposed {
		t.Fatalf("trade moved before every participant accepted")
	}
	res, err = f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamC).ID, "accepted", 13)
	if err != nil {
		t.Fatalf("respond C: %v", err)
	}
	if !res.Executed {
		t.Fatalf("trade not executed after final acceptance")
	}
	if f.repo.playerOwner(101) != teamB || f.repo.playerOwner(201) != teamC || f.repo.playerOwner(301) != teamA {
		t.Fatalf("owners=%d,%d,%d want rotated", f.repo.playerOwner(101), f.repo.playerOwner(201), f.repo.playerOwner(301))
	}
	if got := len(f.repo.lockedTeams[0]); got != 3 {
		t.Fatalf("acceptance locked %d teams want 3", got)
	}

	_, err = f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamC).ID, "accepted", 13)
	wantKind(t, err, ErrInvalidTransition)
}

func TestRespond_LocksTradeBeforeParticipant(t *testing.T) {
	for _, decision := range []string{"accepted", "rejected"} {
		t.Run(decision, func(t *testing.T) {
			f := newFixture(t)
			trade := f.proposeTwoParty(t, 1)
			seat := f.participantOf(t, trade.ID, teamB)
			f.repo.rowLocks = nil

			if _, err := f.responses.Respond(context.Background(), seat.ID, decision, 12); err != nil {
				t.Fatalf("respond: %v", err)
			}
			if len(f.repo.rowLocks) < 2 {
				t.Fatalf("row locks=%v want trade then participant", f.repo.rowLocks)
			}
			wantTrade := fmt.Sprintf("trade:%d", trade.ID)
			wantSeat := fmt.Sprintf("participant:%d", seat.ID)
			if f.repo.rowLocks[0] != wantTrade || f.repo.rowLocks[1] != wantSeat {
				t.Fatalf("row locks=%v want [%s %s ...]", f.repo.rowLocks, wantTrade, wantSeat)
			}
		})
	}
}

func TestRespond_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.responses.Respond(ctx, 1, "maybe", 0)
	wantKind(t, err, ErrValidation)
	_, err = f.responses.Respond(ctx, 9999, "accepted", 0)
	wantKind(t, err, ErrNotFound)
}

func TestRespond_AutoExecuteDisabledLeavesPending(t *testing.T) {
	f := newFixture(t)
	f.responses.AutoExecute = false
	ctx := context.Background()
	trade := f.proposeTwoParty(t, 1)

	res, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if res.Executed || res.Trade.Status != models.TradeStatusPending {
		t.Fatalf("status=%s executed=%v want pending", res.Trade.Status, res.Executed)
	}
	if f.repo.playerOwner(101) != teamA {
		t.Fatalf("assets moved while pending")
	}

	executed, err := f.engine.Execute(ctx, trade.ID, adminUser)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if executed.Status != models.TradeStatusExecuted || f.repo.playerOwner(101) != teamB {
		t.Fatalf("status=%s owner=%d want executed and moved", executed.Status, f.repo.playerOwner(101))
	}

	_, err = f.engine.Execute(ctx, trade.ID, adminUser)
	wantKind(t, err, ErrInvalidTransition)
}

func TestExecute_RequiresPending(t *testing.T) {
	f := newFixture(t)
	trade := f.proposeTwoParty(t, 1)
	_, err := f.engine.Execute(context.Background(), trade.ID, adminUser)
	wantKind(t, err, ErrInvalidTransition)
	_, err = f.engine.Execute(context.Background(), 4242, adminUser)
	wantKind(t, err, ErrNotFound)
}

func TestExecute_OwnershipChangedWhilePending(t *testing.T) {
	f := newFixture(t)
	f.responses.AutoExecute = false
	ctx := context.Background()
	trade := f.proposeTwoParty(t, 1)
	if _, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := f.repo.SetAssetOwnerTx(ctx, nil, models.AssetTypePlayer, 201, teamC); err != nil {
		t.Fatalf("move player: %v", err)
	}

	_, err := f.engine.Execute(ctx, trade.ID, adminUser)
	wantKind(t, err, ErrConflict)
	if f.status(t, trade.ID) != models.TradeStatusPending {
		t.Fatalf("status=%s want pending after failed execution", f.status(t, trade.ID))
	}
	if f.repo.playerOwner(101) != teamA || len(f.repo.movements) != 0 {
		t.Fatalf("failed execution left partial effects")
	}
}

func TestExecute_FailureRollsBackWholeResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trade := f.proposeTwoParty(t, 1)
	published := len(f.pub.events)
	f.repo.failSetOwner[assetKey(models.AssetTypePlayer, 201)] = errors.New("disk full")

	_, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12)
	if err == nil {
		t.Fatalf("expected execution failure")
	}
	if f.status(t, trade.ID) != models.TradeStatusProposed {
		t.Fatalf("status=%s want proposed", f.status(t, trade.ID))
	}
	if p := f.participantOf(t, trade.ID, teamB); p.ResponseStatus != models.ResponsePending {
		t.Fatalf("response=%s want pending after rollback", p.ResponseStatus)
	}
	if f.repo.playerOwner(101) != teamA || f.repo.playerOwner(201) != teamB {
		t.Fatalf("ownership changed despite rollback")
	}
	if len(f.repo.movements) != 0 {
		t.Fatalf("movements=%d want 0", len(f.repo.movements))
	}
	if len(f.pub.events) != published {
		t.Fatalf("events were published for a rolled back transaction")
	}
}

func TestLimit_AcceptanceBlockedAtMax(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedExecuted(10, 2, teamB, teamC)
	// Outside the 1-2 window.
	f.seedExecuted(3, 3, teamA, teamB)
	trade := f.proposeTwoParty(t, 1)

	preview, err := f.limits.CheckAllParticipants(ctx, trade.ID)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.CanAccept {
		t.Fatalf("preview allows acceptance with team B at the limit")
	}

	_, err = f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12)
	wantKind(t, err, ErrLimitExceeded)
	if p := f.participantOf(t, trade.ID, teamB); p.ResponseStatus != models.ResponsePending {
		t.Fatalf("response=%s want pending", p.ResponseStatus)
	}
	if f.status(t, trade.ID) != models.TradeStatusProposed {
		t.Fatalf("status=%s want proposed", f.status(t, trade.ID))
	}

	// Rejecting is always allowed.
	if _, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "rejected", 12); err != nil {
		t.Fatalf("reject: %v", err)
	}
}

func TestLimit_TenthTradeAllowedEleventhBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedExecuted(9, 1, teamB, teamC)
	trade := f.proposeTwoParty(t, 2)

	if _, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12); err != nil {
		t.Fatalf("respond: %v", err)
	}
	n, _ := f.repo.CountExecutedTradesTx(ctx, nil, teamB, 1, 2)
	if n != 10 {
		t.Fatalf("executed=%d want 10", n)
	}

	// Team B is now at the limit; a new trade from team C cannot be accepted by it.
	next, err := f.proposals.Propose(ctx, Proposal{
		SeasonID: 2,
		Participants: []ProposalParticipant{
			{TeamID: teamC, IsInitiator: true, Assets: []ProposalAsset{player(301)}},
			{TeamID: teamB, Assets: []ProposalAsset{player(101)}},
		},
	}, 13)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	_, err = f.responses.Respond(ctx, f.participantOf(t, next.ID, teamB).ID, "accepted", 12)
	wantKind(t, err, ErrLimitExceeded)
}

func TestLimit_CacheInvalidatedOnExecute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	st, err := f.limits.CheckLimit(ctx, teamA, 1)
	if err != nil || st.Used != 0 {
		t.Fatalf("initial limit=%+v err=%v", st, err)
	}
	trade := f.proposeTwoParty(t, 1)
	if _, err := f.responses.Respond(ctx, f.participantOf(t, trade.ID, teamB).ID, "accepted", 12); err != nil {
		t.Fatalf("respond: %v", err)
	}
	st, err = f.limits.CheckLimit(ctx, teamA, 1)
	if err != nil || st.Used != 1 {
		t.Fatalf("limit after execute=%+v err=%v want used=1", st, err)
	}
}

func TestSeasonWindow(t *testing.T) {
	cases := []struct {
		season     int
		start, end int
	}{
		{1, 1, 2},
		{2, 1, 2},
		{3, 3, 4},
		{4, 3, 4},
		{7, 7, 8},
		{10, 9, 10},
	}
	for _, c := range cases {
		start, end, err := SeasonWindow(c.season)
		if err != nil {
			t.Fatalf("season %d: %v", c.season, err)
		}
		if start != c.start || end != c.end {
			t.Fatalf("season %d window=%d-%d want %d-%d", c.season, start, end, c.start, c.end)
		}
	}
	for _, bad := range []int{0, -1} {
		_, _, err := SeasonWindow(bad)
		wantKind(t, err, ErrValidation)
	}
}

func TestTeamCounts(t *testing.T) {
	f := newFixture(t)
	f.seedExecuted(4, 1, teamA, teamC)
	counts, err := f.limits.TeamCounts(context.Background(), 2)
	if err != nil {
		t.Fatalf("team counts: %v", err)
	}
	if len(counts) != 3 {
		t.Fatalf("teams=%d want 3", len(counts))
	}
	got := map[uint64]int64{}
	for _, c := range counts {
		got[c.TeamID] = c.Used
	}
	if got[teamA] != 4 || got[teamB] != 0 || got[teamC] != 4 {
		t.Fatalf("counts=%v", got)
	}
}

func TestLimit_CountInvalidatedDuringReadIsNotCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedExecuted(2, 1, teamA, teamB)

	f.repo.afterCount = func() {
		f.seedExecuted(1, 1, teamA, teamB)
		f.limits.Invalidate(ctx, 1, []models.TradeParticipant{{TeamID: teamA}, {TeamID: teamB}})
	}
	st, err := f.limits.CheckLimit(ctx, teamA, 1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if st.Used != 2 {
		t.Fatalf("used=%d want 2 from the read that raced the invalidation", st.Used)
	}

	st, err = f.limits.CheckLimit(ctx, teamA, 1)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if st.Used != 3 {
		t.Fatalf("used=%d want 3; the raced count must not be served from cache", st.Used)
	}
}
