package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"yodabot/internal/chat"
	"yodabot/internal/gate"
	"yodabot/internal/models"
)

const genericFailure = "Something went wrong, try again later."

// Handler exposes the chat session manager to the gateway shell.
type Handler struct {
	controller *chat.Controller
	engine     *chat.Engine
	gate       gate.Gate
	strictStop bool
}

func NewHandler(controller *chat.Controller, engine *chat.Engine, g gate.Gate, strictStop bool) *Handler {
	return &Handler{controller: controller, engine: engine, gate: g, strictStop: strictStop}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.GET("/health", h.Health)

	chatGroup := api.Group("/chat")
	chatGroup.POST("/start", h.StartChat)
	chatGroup.POST("/reply", h.Reply)
	chatGroup.POST("/ask", h.Ask)
	chatGroup.POST("/stop", h.StopChat)
	chatGroup.GET("", h.GetChat)
}

type identityPayload struct {
	UserID      int64  `json:"user_id" binding:"required"`
	ChannelID   int64  `json:"channel_id" binding:"required"`
	GuildID     int64  `json:"guild_id"`
	Username    string `json:"username"`
	GuildName   string `json:"guild_name"`
	ChannelName string `json:"channel_name"`
}

func (p identityPayload) identity() models.Identity {
	return models.Identity{
		UserID:      p.UserID,
		ChannelID:   p.ChannelID,
		GuildID:     p.GuildID,
		Username:    p.Username,
		GuildName:   p.GuildName,
		ChannelName: p.ChannelName,
	}
}

type startRequest struct {
	identityPayload
	Kind string `json:"kind"`
	Role string `json:"role"`
}

type replyRequest struct {
	identityPayload
	Kind        string              `json:"kind"`
	Message     string              `json:"message" binding:"required"`
	Attachments []models.Attachment `json:"attachments"`
}

type askRequest struct {
	replyRequest
	Role string `json:"role"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StartChat seeds a fresh session, replacing any existing one for the identity.
func (h *Handler) StartChat(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.controller.New(c.Request.Context(), req.identity(), kind, req.Role); err != nil {
		log.Printf("start chat user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"kind": string(kind)})
}

// Reply feeds one user message into the session and returns the assistant's
// answer. At most one reply per conversation may be in flight.
func (h *Handler) Reply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	ok, err := h.gate.Acquire(ctx, req.UserID, req.ChannelID)
	if err != nil {
		log.Printf("acquire reply gate user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "a reply is already in progress for this conversation"})
		return
	}
	defer func() {
		if err := h.gate.Release(ctx, req.UserID, req.ChannelID); err != nil {
			log.Printf("release reply gate user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		}
	}()

	answer, err := h.engine.Reply(ctx, req.identity(), kind, req.Message, req.Attachments)
	if err != nil {
		h.replyError(c, req.identityPayload, err)
		return
	}
	if answer == "" {
		// Session lapsed mid-flight; the turn was abandoned.
		c.JSON(http.StatusOK, gin.H{"reply": "", "ended": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": answer})
}

// Ask is the one-shot flow: fresh session, single reply, teardown.
func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	ok, err := h.gate.Acquire(ctx, req.UserID, req.ChannelID)
	if err != nil {
		log.Printf("acquire reply gate user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "a reply is already in progress for this conversation"})
		return
	}
	defer func() {
		if err := h.gate.Release(ctx, req.UserID, req.ChannelID); err != nil {
			log.Printf("release reply gate user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		}
	}()

	answer, err := h.engine.Ask(ctx, req.identity(), kind, req.Role, req.Message)
	if err != nil {
		h.replyError(c, req.identityPayload, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": answer})
}

// StopChat ends the session. Stopping an absent session is fine unless the
// service is configured strict.
func (h *Handler) StopChat(c *gin.Context) {
	var req identityPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.controller.Stop(c.Request.Context(), req.identity())
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, chat.ErrSessionAbsent):
		if h.strictStop {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	default:
		log.Printf("stop chat user=%d channel=%d: %v", req.UserID, req.ChannelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
	}
}

// GetChat returns the live session for the identity, if any.
func (h *Handler) GetChat(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	channelID, err := strconv.ParseInt(c.Query("channel_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}
	session, err := h.controller.Get(c.Request.Context(), models.Identity{UserID: userID, ChannelID: channelID})
	if err != nil {
		log.Printf("get chat user=%d channel=%d: %v", userID, channelID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active chat session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// replyError maps the chat error taxonomy onto status codes and keeps the
// real cause in the log, not the response.
func (h *Handler) replyError(c *gin.Context, id identityPayload, err error) {
	switch {
	case errors.Is(err, chat.ErrNoSession):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrWrongKind):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Printf("chat reply user=%d channel=%d: %v", id.UserID, id.ChannelID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": genericFailure})
	}
}
