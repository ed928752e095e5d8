// Package httpapi is the REST surface. Handlers bind and validate request
// shapes, call the dispatcher, and translate domain errors to HTTP; game
// logic never lives here.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

// Handler serves the REST routes on top of the dispatcher.
type Handler struct {
	dispatcher *game.Dispatcher
}

func NewHandler(dispatcher *game.Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// Register mounts every route. The caller decides the prefix, typically
// an /api group carrying the rate-limit middleware.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/session", h.CreateSession)
	r.GET("/rooms", h.ListRooms)
	r.GET("/session/:code", h.GetSession)
	r.POST("/session/:code/join", h.Join)
	r.POST("/session/:code/leave", h.Leave)
	r.POST("/session/:code/destroy", h.Destroy)
	r.POST("/session/:code/share", h.IssueShare)
	r.POST("/session/:code/turn", h.SetTurn)
	r.POST("/share/claim", h.ClaimShare)
	r.POST("/session/:code/question/activate", h.ActivateQuestion)
	r.POST("/session/:code/question/open", h.OpenBuzzers)
	r.POST("/session/:code/question/mark", h.MarkAnswer)
	r.POST("/session/:code/question/cancel", h.CancelQuestion)
}

// --- request shapes ---

type joinRequest struct {
	Name string `json:"name"`
}

type leaveRequest struct {
	PlayerId types.PlayerIdType `json:"playerId"`
}

type hostRequest struct {
	HostSecret string `json:"hostSecret"`
}

type turnRequest struct {
	HostSecret string             `json:"hostSecret"`
	PlayerId   types.PlayerIdType `json:"playerId"`
}

type claimRequest struct {
	ShareCode string `json:"shareCode"`
}

type activateRequest struct {
	HostSecret string `json:"hostSecret"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

type markRequest struct {
	HostSecret  string             `json:"hostSecret"`
	Result      string             `json:"result"`
	PlayerId    types.PlayerIdType `json:"playerId"`
	OpenBuzzers bool               `json:"openBuzzers"`
}

// --- handlers ---

// CreateSession handles POST /session.
func (h *Handler) CreateSession(c *gin.Context) {
	room := h.dispatcher.CreateRoom(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"code":       room.Code,
		"hostSecret": room.HostSecret(),
	})
}

// ListRooms handles GET /rooms, newest room first.
func (h *Handler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.dispatcher.ListRooms())
}

// GetSession handles GET /session/:code. The response is the player
// projection: no answers, no share digits, no matter who asks.
func (h *Handler) GetSession(c *gin.Context) {
	snapshot, err := h.dispatcher.Snapshot(roomCode(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// Join handles POST /session/:code/join.
func (h *Handler) Join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	playerId, err := h.dispatcher.Join(c.Request.Context(), roomCode(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"playerId": playerId})
}

// Leave handles POST /session/:code/leave.
func (h *Handler) Leave(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	if err := h.dispatcher.Leave(c.Request.Context(), roomCode(c), req.PlayerId); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Destroy handles POST /session/:code/destroy.
func (h *Handler) Destroy(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	if err := h.dispatcher.Destroy(c.Request.Context(), roomCode(c), req.HostSecret); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// IssueShare handles POST /session/:code/share.
func (h *Handler) IssueShare(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	info, err := h.dispatcher.IssueShare(c.Request.Context(), roomCode(c), req.HostSecret)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// ClaimShare handles POST /share/claim.
func (h *Handler) ClaimShare(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	claim, err := h.dispatcher.ClaimShare(c.Request.Context(), req.ShareCode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claim)
}

// SetTurn handles POST /session/:code/turn.
func (h *Handler) SetTurn(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	if err := h.dispatcher.SetTurn(c.Request.Context(), roomCode(c), req.HostSecret, req.PlayerId); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c)
}

// ActivateQuestion handles POST /session/:code/question/activate.
func (h *Handler) ActivateQuestion(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	switch req.Difficulty {
	case "", "easy", "medium", "hard":
	default:
		respondError(c, game.NewValidationError("Difficulty must be easy, medium or hard"))
		return
	}

	err := h.dispatcher.Activate(c.Request.Context(), roomCode(c), req.HostSecret, req.Category, req.Difficulty)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c)
}

// OpenBuzzers handles POST /session/:code/question/open.
func (h *Handler) OpenBuzzers(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	if err := h.dispatcher.OpenBuzzers(c.Request.Context(), roomCode(c), req.HostSecret); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c)
}

// MarkAnswer handles POST /session/:code/question/mark.
func (h *Handler) MarkAnswer(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}
	if req.Result != "correct" && req.Result != "incorrect" {
		respondError(c, game.NewValidationError("Result must be correct or incorrect"))
		return
	}

	err := h.dispatcher.Mark(c.Request.Context(), roomCode(c), req.HostSecret,
		req.Result == "correct", req.PlayerId, req.OpenBuzzers)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c)
}

// CancelQuestion handles POST /session/:code/question/cancel.
func (h *Handler) CancelQuestion(c *gin.Context) {
	var req hostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	if err := h.dispatcher.Cancel(c.Request.Context(), roomCode(c), req.HostSecret); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c)
}

// --- plumbing ---

var errInvalidBody = game.NewValidationError("Invalid request body")

func roomCode(c *gin.Context) types.RoomCodeType {
	return types.RoomCodeType(c.Param("code")).Canonical()
}

func respondOK(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondError translates a domain error to its HTTP shape. Anything
// outside the taxonomy is logged and masked as a 500.
func respondError(c *gin.Context, err error) {
	status := game.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.Error(c.Request.Context(), "Unhandled API error",
			zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"message": game.UserMessage(err)})
}
