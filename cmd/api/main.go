package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"couple_compass_go_backend/cmd/api/config"
	"couple_compass_go_backend/internal/api"
	"couple_compass_go_backend/internal/auth"
	"couple_compass_go_backend/internal/database"
	"couple_compass_go_backend/internal/presence"
	"couple_compass_go_backend/internal/provider"
	"couple_compass_go_backend/internal/rag"
	"couple_compass_go_backend/internal/services"
	"couple_compass_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	database.InitDB(cfg)

	aiProvider, err := provider.New(ctx, provider.Config{
		Backend:   cfg.AI.Backend,
		APIKey:    cfg.AI.APIKey(),
		ChatModel: cfg.AI.ChatModel,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AI provider")
	}
	log.Info().Str("backend", aiProvider.Name()).Msg("AI provider ready")

	// Presence is optional; the server runs without Redis.
	var tracker *presence.Tracker
	if cfg.Redis.Addr != "" {
		tracker, err = presence.NewTracker(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, presence tracking disabled")
			tracker = nil
		} else {
			defer tracker.Close()
		}
	}

	sessionStore := services.NewSessionStoreDB(database.DB)
	invitationStore := services.NewInvitationStoreDB(database.DB)
	userService := services.NewUserService(database.DB)
	contextStore := rag.NewStore(database.DB, aiProvider)

	hub := wsocket.NewHub(tracker)

	chatService := services.NewChatService(sessionStore, contextStore, aiProvider, hub)
	invitationService := services.NewInvitationService(invitationStore, sessionStore, userService, hub)

	r := gin.Default()

	allowedOrigins := cfg.Server.AllowedOrigins

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(allowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// TODO: Implement a more secure check in production
			return true
		},
	}
	wsHandler := wsocket.NewHandler(hub, sessionStore, upgrader)

	authMiddleware := auth.AuthMiddleware(userService, cfg.JWT.Secret)
	api.SetupRoutes(r, authMiddleware, chatService, invitationService, tracker)
	auth.SetupRoutes(r, userService, cfg.JWT.Secret)

	r.GET("/ws", authMiddleware, func(c *gin.Context) {
		user, ok := auth.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}
		wsHandler.HandleWebSocket(c.Writer, c.Request, user.ID)
	})

	log.Info().Str("port", cfg.Server.Port).Msg("Server starting")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
