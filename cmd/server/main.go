package main // Entry point package

import (
	"context" // Context for startup-scoped operations
	"log"     // Logging library
	"time"    // Durations for the session sweep

	"github.com/joho/godotenv"          // Loads .env files in development
	"github.com/labstack/echo/v4"       // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"         // Scheduler for the session sweep

	"github.com/iliyamo/gemini-chat-api/internal/auth"       // Authentication gate
	"github.com/iliyamo/gemini-chat-api/internal/chat"       // Chat turn pipeline
	"github.com/iliyamo/gemini-chat-api/internal/config"     // Internal config loader
	"github.com/iliyamo/gemini-chat-api/internal/database"   // MySQL connection and migrations
	"github.com/iliyamo/gemini-chat-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/gemini-chat-api/internal/middleware" // Rate limiting middleware
	"github.com/iliyamo/gemini-chat-api/internal/queue"      // Turn event consumer
	"github.com/iliyamo/gemini-chat-api/internal/repository" // DB repositories
	"github.com/iliyamo/gemini-chat-api/internal/router"     // Internal router setup
	"github.com/iliyamo/gemini-chat-api/internal/token"      // JWT codec
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env wins

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("database: %v", err)
	}
	cancel()

	// Repositories
	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	chats := repository.NewChatRepo(db)
	messages := repository.NewMessageRepo(db)
	settings := repository.NewSettingsRepo(db)

	// Services
	codec := token.NewCodec(cfg.JWTSecret)
	gate := auth.NewService(codec, users, sessions, auth.Config{
		AccessTTL:        time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:       time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		BcryptCost:       cfg.BcryptCost,
		RevokeAllOnReuse: cfg.RevokeAllOnReuse,
	})
	pipeline := chat.NewPipeline(chats, messages)

	// Handlers
	authH := handler.NewAuthHandler(gate)
	chatH := handler.NewChatHandler(cfg, chats, messages, settings, pipeline)
	settingsH := handler.NewSettingsHandler(settings)

	// Redis-backed rate limiter; nil client disables it gracefully.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable; rate limiting disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	// Periodic sweep of expired sessions.
	sched := cron.New()
	if _, err := sched.AddFunc(cfg.SessionSweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := sessions.DeleteExpired(ctx, 24*time.Hour)
		if err != nil {
			log.Printf("session sweep: %v", err)
			return
		}
		if n > 0 {
			log.Printf("session sweep: removed %d expired sessions", n)
		}
	}); err != nil {
		log.Fatalf("session sweep: bad spec %q: %v", cfg.SessionSweepSpec, err)
	}
	sched.Start()
	defer sched.Stop()

	// Background consumer for turn-completed events.
	go func() {
		if err := queue.StartTurnConsumer(); err != nil {
			log.Printf("turn-consumer: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, gate, limiter)
	router.RegisterChat(e, chatH, settingsH, gate)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
