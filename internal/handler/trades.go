package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leaguetrades/internal/auth"
	"leaguetrades/internal/models"
	"leaguetrades/internal/repository"
	"leaguetrades/internal/service"
	"leaguetrades/internal/stream"
)

// TradeHandler exposes the trade engine over HTTP.
//
// When AuthEnabled is false, requests without an identity are allowed through;
// requests that carry one (via X-User-ID) are still checked.
type TradeHandler struct {
	Queries   *service.TradeQueryService
	Proposals *service.ProposalBuilder
	Responses *service.ResponseCoordinator
	Engine    *service.ExecutionEngine
	Reversal  *service.ReversalEngine
	Canceller *service.TradeCanceller
	Sweeper   *service.DeadlineSweeper
	Limits    *service.LimitEnforcer

	Stream             *stream.Hub
	StreamWriteTimeout time.Duration

	AuthEnabled bool
	Logger      *zap.Logger
}

func (h *TradeHandler) Register(r *gin.Engine) {
	g := r.Group("/trades")
	g.GET("", h.list)
	g.POST("", h.propose)
	g.GET("/counts", h.counts)
	g.GET("/my-trades", h.myTrades)
	g.GET("/stream", h.stream)
	g.POST("/reject-pending-after-deadline", h.sweep)
	g.PATCH("/participants/:id", h.respond)
	g.GET("/team/:teamId", h.listByTeam)
	g.GET("/team/:teamId/executed-count", h.executedCount)
	g.GET("/:id", h.get)
	g.GET("/:id/events", h.events)
	g.GET("/:id/trade-limits", h.tradeLimits)
	g.POST("/:id/execute", h.execute)
	g.POST("/:id/revert", h.revert)
	g.POST("/:id/cancel", h.cancel)
	g.POST("/:id/withdraw", h.withdraw)
	g.PATCH("/:id/made", h.setMade)
}

type respondRequest struct {
	ResponseStatus string `json:"response_status"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

type madeRequest struct {
	Made *bool `json:"made"`
}

// @Summary List trades
// @Tags trades
// @Param status query string false "proposed|pending|executed|reverted|cancelled"
// @Param season_id query int false "season id"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /trades [get]
func (h *TradeHandler) list(c *gin.Context) {
	params := h.listParams(c)
	items, total, err := h.Queries.List(c.Request.Context(), params)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Trades involving a team
// @Tags trades
// @Param teamId path int true "team id"
// @Param status query string false "status filter"
// @Success 200 {object} apiResponse
// @Router /trades/team/{teamId} [get]
func (h *TradeHandler) listByTeam(c *gin.Context) {
	teamID := uint64QueryParam(c, "teamId")
	if teamID == 0 {
		Error(c, http.StatusBadRequest, "invalid team id", nil)
		return
	}
	params := h.listParams(c)
	params.TeamIDs = []uint64{teamID}
	items, total, err := h.Queries.List(c.Request.Context(), params)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Trades of the caller's teams
// @Tags trades
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades/my-trades [get]
func (h *TradeHandler) myTrades(c *gin.Context) {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok {
		Error(c, http.StatusBadRequest, "user id is required", nil)
		return
	}
	params := h.listParams(c)
	items, total, err := h.Queries.ListForUser(c.Request.Context(), claims.UserID, params)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, paginationMeta(params.Limit, params.Offset, total))
}

func (h *TradeHandler) listParams(c *gin.Context) repository.ListTradesParams {
	return repository.ListTradesParams{
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		Status:   strQueryPtr(c, "status"),
		SeasonID: intQueryPtr(c, "season_id"),
		OrderBy:  c.DefaultQuery("order_by", "created_at"),
		Asc:      boolPtr(c.Query("order") == "asc"),
	}
}

// @Summary Trade detail
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /trades/{id} [get]
func (h *TradeHandler) get(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	item, err := h.Queries.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, item, nil)
}

// @Summary Trade audit trail
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Router /trades/{id}/events [get]
func (h *TradeHandler) events(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	items, err := h.Queries.Events(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Propose a trade
// @Tags trades
// @Accept json
// @Param body body service.Proposal true "proposal"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades [post]
func (h *TradeHandler) propose(c *gin.Context) {
	var req service.Proposal
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	ctx := c.Request.Context()
	season, err := h.Queries.ActiveSeasonID(ctx, req.SeasonID)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	req.SeasonID = season
	for _, p := range req.Participants {
		if p.IsInitiator && !h.canActForTeam(c, p.TeamID) {
			return
		}
	}
	trade, err := h.Proposals.Propose(ctx, req, actingUser(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Created(c, trade)
}

// @Summary Accept or reject as a participant
// @Tags trades
// @Accept json
// @Param id path int true "participant id"
// @Param body body respondRequest true "accepted|rejected"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /trades/participants/{id} [patch]
func (h *TradeHandler) respond(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid participant id", nil)
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if _, ok := auth.ClaimsFromGin(c); ok {
		p, err := h.Queries.Participant(c.Request.Context(), id)
		if err != nil {
			fail(c, h.Logger, err)
			return
		}
		if !h.canActForTeam(c, p.TeamID) {
			return
		}
	}
	out, err := h.Responses.Respond(c.Request.Context(), id, req.ResponseStatus, actingUser(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Execute a pending trade
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades/{id}/execute [post]
func (h *TradeHandler) execute(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if !h.requireAdmin(c) {
		return
	}
	out, err := h.Engine.Execute(c.Request.Context(), id, actingUser(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Revert an executed trade
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades/{id}/revert [post]
func (h *TradeHandler) revert(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	if !h.requireAdmin(c) {
		return
	}
	out, err := h.Reversal.Revert(c.Request.Context(), id, actingUser(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Delete an unresolved trade
// @Tags trades
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /trades/{id}/cancel [post]
func (h *TradeHandler) cancel(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !h.canManageTrade(c, id) {
		return
	}
	if err := h.Canceller.Cancel(c.Request.Context(), id, actingUser(c), req.Reason); err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, gin.H{"id": id, "deleted": true}, nil)
}

// @Summary Withdraw an unresolved trade
// @Tags trades
// @Param id path int true "trade id"
// @Param body body reasonRequest false "reason"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades/{id}/withdraw [post]
func (h *TradeHandler) withdraw(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req reasonRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if !h.canManageTrade(c, id) {
		return
	}
	out, err := h.Canceller.Withdraw(c.Request.Context(), id, actingUser(c), req.Reason)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Set the made flag of an executed trade
// @Tags trades
// @Param id path int true "trade id"
// @Param body body madeRequest true "made"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /trades/{id}/made [patch]
func (h *TradeHandler) setMade(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	var req madeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Made == nil {
		Error(c, http.StatusBadRequest, "made is required", nil)
		return
	}
	if !h.requireAdmin(c) {
		return
	}
	out, err := h.Canceller.SetMade(c.Request.Context(), id, *req.Made, actingUser(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Cancel every unresolved trade after the trade deadline
// @Tags trades
// @Success 200 {object} apiResponse
// @Router /trades/reject-pending-after-deadline [post]
func (h *TradeHandler) sweep(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	out, err := h.Sweeper.SweepExpired(c.Request.Context())
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Trade limit status of every team
// @Tags limits
// @Param season_id query int false "season id, defaults to the active season"
// @Success 200 {object} apiResponse
// @Router /trades/counts [get]
func (h *TradeHandler) counts(c *gin.Context) {
	ctx := c.Request.Context()
	season, err := h.Queries.ActiveSeasonID(ctx, intQuery(c, "season_id", 0))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	items, err := h.Limits.TeamCounts(ctx, season)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, items, map[string]any{"season_id": season})
}

// @Summary Trade limit status of one team
// @Tags limits
// @Param teamId path int true "team id"
// @Param season_id query int false "season id, defaults to the active season"
// @Success 200 {object} apiResponse
// @Router /trades/team/{teamId}/executed-count [get]
func (h *TradeHandler) executedCount(c *gin.Context) {
	teamID := uint64QueryParam(c, "teamId")
	if teamID == 0 {
		Error(c, http.StatusBadRequest, "invalid team id", nil)
		return
	}
	ctx := c.Request.Context()
	season, err := h.Queries.ActiveSeasonID(ctx, intQuery(c, "season_id", 0))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	st, err := h.Limits.CheckLimit(ctx, teamID, season)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, st, nil)
}

// @Summary Limit preview for every participant of a trade
// @Tags limits
// @Param id path int true "trade id"
// @Success 200 {object} apiResponse
// @Router /trades/{id}/trade-limits [get]
func (h *TradeHandler) tradeLimits(c *gin.Context) {
	id := uint64QueryParam(c, "id")
	if id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	out, err := h.Limits.CheckAllParticipants(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	Ok(c, out, nil)
}

// @Summary Live trade events over websocket
// @Tags trades
// @Param trade_id query int false "only events of this trade"
// @Router /trades/stream [get]
func (h *TradeHandler) stream(c *gin.Context) {
	if h.Stream == nil {
		Error(c, http.StatusServiceUnavailable, "stream disabled", nil)
		return
	}
	tradeID := parseUint64(c.Query("trade_id"))
	if err := h.Stream.Serve(c.Request.Context(), c.Writer, c.Request, tradeID, h.StreamWriteTimeout); err != nil && h.Logger != nil {
		h.Logger.Debug("trade stream closed", zap.Error(err))
	}
}

// bindOptionalJSON accepts an empty body. A body that is present must be valid JSON.
func bindOptionalJSON(c *gin.Context, out any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// --- authorization -------------------------------------------------------------------

func actingUser(c *gin.Context) uint64 {
	if claims, ok := auth.ClaimsFromGin(c); ok {
		return claims.UserID
	}
	return 0
}

// anonymousAllowed reports whether a request without identity may proceed.
func (h *TradeHandler) anonymousAllowed(c *gin.Context) bool {
	if h.AuthEnabled {
		Error(c, http.StatusUnauthorized, "authentication required", nil)
		return false
	}
	return true
}

func (h *TradeHandler) requireAdmin(c *gin.Context) bool {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok {
		return h.anonymousAllowed(c)
	}
	if !claims.IsAdmin() {
		Error(c, http.StatusForbidden, "admin role required", nil)
		return false
	}
	return true
}

// canActForTeam allows admins and the manager who owns teamID.
func (h *TradeHandler) canActForTeam(c *gin.Context, teamID uint64) bool {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok {
		return h.anonymousAllowed(c)
	}
	if claims.IsAdmin() {
		return true
	}
	owns, err := h.Queries.UserOwnsTeam(c.Request.Context(), claims.UserID, teamID)
	if err != nil {
		fail(c, h.Logger, err)
		return false
	}
	if !owns {
		Error(c, http.StatusForbidden, "you do not manage this team", nil)
		return false
	}
	return true
}

// canManageTrade allows admins and the manager of the trade's initiating team.
func (h *TradeHandler) canManageTrade(c *gin.Context, tradeID uint64) bool {
	claims, ok := auth.ClaimsFromGin(c)
	if !ok {
		return h.anonymousAllowed(c)
	}
	if claims.IsAdmin() {
		return true
	}
	trade, err := h.Queries.Get(c.Request.Context(), tradeID)
	if err != nil {
		fail(c, h.Logger, err)
		return false
	}
	return h.canActForTeam(c, initiatorTeam(trade))
}

func initiatorTeam(t *models.Trade) uint64 {
	for _, p := range t.Participants {
		if p.IsInitiator {
			return p.TeamID
		}
	}
	return t.CreatedByTeam
}
