package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatguard-server/internal/auth"
	"github.com/vovakirdan/chatguard-server/internal/config"
	"github.com/vovakirdan/chatguard-server/internal/pipeline"
	"github.com/vovakirdan/chatguard-server/internal/proto"
	"github.com/vovakirdan/chatguard-server/internal/session"
	"github.com/vovakirdan/chatguard-server/internal/store"
)

const (
	serviceName    = "Real-Time Chat Moderation API"
	serviceVersion = "1.0.0"
	maxHistory     = 500
)

// APIHandlers provides HTTP handlers for REST API endpoints.
type APIHandlers struct {
	analyzer     session.Processor
	store        store.MessageStore
	hub          Connections
	authService  *auth.Service
	components   Components
	room         string
	historyLimit int
	log          *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(deps Deps, cfg *config.Config, logger *zerolog.Logger) *APIHandlers {
	room := cfg.DefaultRoom
	if room == "" {
		room = pipeline.DefaultRoom
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	return &APIHandlers{
		analyzer:     deps.Analyzer,
		store:        deps.Store,
		hub:          deps.Hub,
		authService:  deps.Auth,
		components:   deps.Components,
		room:         room,
		historyLimit: limit,
		log:          logger,
	}
}

// AnalyzeRequest is accepted as a JSON body or as query parameters.
type AnalyzeRequest struct {
	Message  string `json:"message" form:"message"`
	Username string `json:"username" form:"username"`
}

// LoginRequest represents the moderator login body.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents the authentication response body.
type AuthResponse struct {
	Token string `json:"token"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessagesResponse is the body of GET /api/messages.
type MessagesResponse struct {
	Messages []MessageView `json:"messages"`
	Count    int           `json:"count"`
}

// DeleteResponse confirms a moderation delete.
type DeleteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// Root describes the service.
// GET /
func (h *APIHandlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": gin.H{
			"websocket": "/ws/{username}",
			"analyze":   "/api/analyze",
			"messages":  "/api/messages",
			"stats":     "/api/stats",
		},
	})
}

// Health is the liveness probe.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// APIHealth reports which components are available.
// GET /api/health
func (h *APIHandlers) APIHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"models": gin.H{
			"toxicity_detector": h.components.Toxicity,
			"intent_classifier": true,
			"tone_analyzer":     h.components.Advisory,
		},
		"connections": h.connections(),
		"timestamp":   proto.FormatTime(time.Now()),
	})
}

// Analyze runs the pipeline without broadcasting.
// POST /api/analyze
func (h *APIHandlers) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid analyze request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.analyzer.Process(c.Request.Context(), req.Message, req.Username)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is required"})
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("failed to analyze message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Messages returns recent history in chronological order.
// GET /api/messages?limit=50&room_id=general
func (h *APIHandlers) Messages(c *gin.Context) {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = min(n, maxHistory)
	}
	room := c.DefaultQuery("room_id", h.room)

	msgs, err := h.store.List(c.Request.Context(), room, limit)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	views := messageViews(msgs)
	c.JSON(http.StatusOK, MessagesResponse{Messages: views, Count: len(views)})
}

// Stats returns moderation statistics.
// GET /api/stats
func (h *APIHandlers) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load stats")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, statsResponse(stats, h.connections()))
}

// ModeratorLogin exchanges the moderator password for a token.
// POST /api/moderator/login
func (h *APIHandlers) ModeratorLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if h.authService == nil {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "moderator login disabled"})
		return
	}

	token, err := h.authService.Login(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		case errors.Is(err, auth.ErrLoginDisabled):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "moderator login disabled"})
		default:
			h.log.Error().Err(err).Msg("failed to issue moderator token")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Msg("moderator logged in")
	c.JSON(http.StatusOK, AuthResponse{Token: token})
}

// DeleteMessage removes a message (moderation action).
// DELETE /api/messages/:id
func (h *APIHandlers) DeleteMessage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Message not found"})
			return
		}
		h.log.Error().Err(err).Int64("message_id", id).Msg("failed to delete message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("message_id", id).Msg("message deleted by moderator")
	c.JSON(http.StatusOK, DeleteResponse{Message: "Message deleted successfully", ID: id})
}

func (h *APIHandlers) connections() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.Count()
}
