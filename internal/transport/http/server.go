package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/auth"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/config"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/core"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/store"
)

// NewServer builds the HTTP server: the websocket endpoint plus the REST
// collaborator surface.
func NewServer(broker *core.Broker, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/ws", gin.WrapH(NewWSHandler(broker, cfg.AllowedOrigins, logger)))

	authHandlers := NewAuthHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, broker, logger)

	api := router.Group("/api")
	api.POST("/register", authHandlers.Register)
	api.POST("/login", authHandlers.Login)

	authed := api.Group("", AuthMiddleware(authService, logger))
	authed.POST("/channels", channelHandlers.Create)
	authed.GET("/channels", channelHandlers.List)
	authed.POST("/channels/:id/join", channelHandlers.Join)
	authed.POST("/channels/:id/leave", channelHandlers.Leave)
	authed.POST("/channels/:id/messages", messageHandlers.SendChannelMessage)
	authed.GET("/channels/:id/messages", messageHandlers.ChannelHistory)
	authed.POST("/messages/direct", messageHandlers.SendDirectMessage)
	authed.GET("/messages/direct/:user", messageHandlers.DirectHistory)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	fmt.Fprint(c.Writer, "ok")
}
