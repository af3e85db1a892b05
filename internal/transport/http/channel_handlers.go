package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/store"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/store/sqlite"
)

// ChannelHandlers provides HTTP handlers for channel operations.
type ChannelHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(st store.Store, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{store: st, log: logger}
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

func channelResponse(ch *store.Channel) ChannelResponse {
	return ChannelResponse{ID: ch.ID, Name: ch.Name, OwnerID: ch.OwnerID}
}

// Create handles POST /api/channels.
func (h *ChannelHandlers) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	ch, err := h.store.CreateChannel(c.Request.Context(), req.Name, userID)
	if err != nil {
		h.log.Error().Err(err).Msg("create channel failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, channelResponse(ch))
}

// List handles GET /api/channels.
func (h *ChannelHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	channels, err := h.store.ListChannels(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("list channels failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, channelResponse(ch))
	}
	c.JSON(http.StatusOK, response)
}

// Join handles POST /api/channels/:id/join.
func (h *ChannelHandlers) Join(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	channelID := c.Param("id")

	if _, err := h.store.GetChannelByID(c.Request.Context(), channelID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "channel not found"})
			return
		}
		h.log.Error().Err(err).Msg("get channel failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), channelID, userID); err != nil {
		h.log.Error().Err(err).Msg("add member failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Leave handles POST /api/channels/:id/leave.
func (h *ChannelHandlers) Leave(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.store.RemoveMember(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.log.Error().Err(err).Msg("remove member failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}
