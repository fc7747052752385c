package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Mauryln/testingserver/config"
	"github.com/Mauryln/testingserver/internal/handler"
	customMiddleware "github.com/Mauryln/testingserver/internal/middleware"
	"github.com/Mauryln/testingserver/internal/service"
	"github.com/Mauryln/testingserver/internal/whatsapp"
	"github.com/Mauryln/testingserver/internal/ws"
)

func main() {

	// Load .env (ignore missing file, e.g. in production)
	_ = godotenv.Load()

	cfg := config.Load()

	factory := whatsapp.NewMeowFactory(cfg.AuthDir, cfg.WhatsAppDBURL, cfg.DeviceName)

	// Stale login material from a previous run is worthless without the
	// in-memory session that owned it; start from a clean slate.
	if cfg.Hardened {
		if err := factory.WipeAll(context.Background()); err != nil {
			log.Printf("⚠ startup auth-state wipe failed: %v", err)
		} else {
			log.Println("✓ auth state wiped at startup")
		}
	}

	hub := ws.NewHub()
	go hub.Run()

	registry := service.NewRegistry(factory, hub, cfg.QRTimeout, cfg.CleanupGrace)
	dispatcher := service.NewDispatcher(registry, hub, cfg.DelayAfterLast)
	query := service.NewQuery(registry)

	sessionHandler := handler.NewSessionHandler(registry)
	messageHandler := handler.NewMessageHandler(dispatcher)
	queryHandler := handler.NewQueryHandler(query)

	// Setup Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: []string{
			echo.GET,
			echo.POST,
			echo.PUT,
			echo.PATCH,
			echo.DELETE,
			echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderXRequestedWith,
			echo.HeaderAuthorization,
		},
		AllowCredentials: true,
	}))
	e.OPTIONS("/*", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     cfg.RateBurst,
				ExpiresIn: cfg.RateWindow,
			},
		),
	}))

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := "Internal Server Error"

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			message = fmt.Sprintf("%v", he.Message)
		}
		response := map[string]interface{}{
			"success": false,
			"error":   message,
		}
		switch code {
		case http.StatusUnauthorized:
			response["message"] = "Authentication required"
		case http.StatusMethodNotAllowed:
			response["message"] = "Method not allowed for this endpoint"
		case http.StatusNotFound:
			response["message"] = "Endpoint not found"
		}

		c.JSON(code, response)
	}

	// WebSocket and health check stay open even when auth is enabled.
	e.GET("/ws", handler.WebSocketHandler(hub))
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"success": true,
			"message": "WhatsApp bulk sender is running",
			"version": "1.0.0",
		})
	})

	// With JWT_SECRET unset BearerAuth passes everything through.
	api := e.Group("", customMiddleware.BearerAuth(cfg.JWTSecret))

	// Session lifecycle
	api.POST("/start-session", sessionHandler.StartSession)
	api.GET("/get-qr/:userId", sessionHandler.GetQR)
	api.GET("/session-status/:userId", sessionHandler.SessionStatus)
	api.POST("/close-session", sessionHandler.CloseSession)

	// Bulk sending
	api.POST("/send-messages", messageHandler.SendMessages)

	// Read-only queries
	api.GET("/groups/:userId", queryHandler.Groups)
	api.GET("/groups/:userId/:groupId/participants", queryHandler.GroupParticipants)
	api.GET("/labels/:userId", queryHandler.Labels)
	api.GET("/labels/:userId/:labelId/chats", queryHandler.LabelChats)
	api.GET("/reports/:userId/:labelId/messages", queryHandler.ReportMessages)

	go func() {
		log.Printf("Server starting on port %s (auth dir %s)", cfg.Port, cfg.AuthDir)
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	registry.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("⚠ shutdown: %v", err)
	}
}
