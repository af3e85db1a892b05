package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/core"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/store"
)

const defaultHistoryLimit = 50

// Notifier is the slice of the broker the REST layer needs: echoing a
// persisted message to the relevant room. This is the seam between the
// stateless CRUD layer and the stateful realtime layer.
type Notifier interface {
	BroadcastChannelMessage(msg core.Message)
	NotifyDirectMessage(msg core.Message)
}

// MessageHandlers provides HTTP handlers for message persistence and history.
// Messages are saved here first; the broker is only asked to fan the saved
// result out live.
type MessageHandlers struct {
	store    store.Store
	notifier Notifier
	log      *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, notifier Notifier, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{store: st, notifier: notifier, log: logger}
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Channel   string `json:"channel,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Content   string `json:"content"`
	TS        int64  `json:"ts"`
}

func messageResponse(msg *store.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		Sender:    msg.SenderID,
		Channel:   msg.ChannelID,
		Recipient: msg.RecipientID,
		Content:   msg.Content,
		TS:        msg.CreatedAt.Unix(),
	}
}

// SendChannelMessage handles POST /api/channels/:id/messages.
func (h *MessageHandlers) SendChannelMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	channelID := c.Param("id")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "content is required"})
		return
	}

	isMember, err := h.store.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a channel member"})
		return
	}

	msg, err := h.store.SaveChannelMessage(c.Request.Context(), channelID, userID, req.Content)
	if err != nil {
		h.log.Error().Err(err).Msg("save channel message failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Saved first, echoed second: losing the echo loses nothing durable.
	h.notifier.BroadcastChannelMessage(core.Message{
		ID:        msg.ID,
		Channel:   msg.ChannelID,
		Sender:    msg.SenderID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})

	c.JSON(http.StatusCreated, messageResponse(msg))
}

// ChannelHistory handles GET /api/channels/:id/messages.
func (h *MessageHandlers) ChannelHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	channelID := c.Param("id")

	isMember, err := h.store.IsMember(c.Request.Context(), channelID, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a channel member"})
		return
	}

	limit, beforeID := historyParams(c)
	messages, err := h.store.ChannelHistory(c.Request.Context(), channelID, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("channel history failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, messagesResponse(messages))
}

// SendDirectMessage handles POST /api/messages/direct.
func (h *MessageHandlers) SendDirectMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req struct {
		Recipient string `json:"recipient" binding:"required"`
		Content   string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipient and content are required"})
		return
	}
	if req.Recipient == userID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot message yourself"})
		return
	}

	msg, err := h.store.SaveDirectMessage(c.Request.Context(), userID, req.Recipient, req.Content)
	if err != nil {
		h.log.Error().Err(err).Msg("save direct message failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.notifier.NotifyDirectMessage(core.Message{
		ID:        msg.ID,
		Sender:    msg.SenderID,
		Recipient: msg.RecipientID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})

	c.JSON(http.StatusCreated, messageResponse(msg))
}

// DirectHistory handles GET /api/messages/direct/:user.
func (h *MessageHandlers) DirectHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit, beforeID := historyParams(c)
	messages, err := h.store.DirectHistory(c.Request.Context(), userID, c.Param("user"), limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Msg("direct history failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, messagesResponse(messages))
}

func historyParams(c *gin.Context) (int, *int64) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			beforeID = &n
		}
	}
	return limit, beforeID
}

func messagesResponse(messages []*store.Message) []MessageResponse {
	response := make([]MessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, messageResponse(msg))
	}
	return response
}
