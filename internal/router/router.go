package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/gemini-chat-api/internal/auth"       // authentication gate behind the protected routes
	"github.com/iliyamo/gemini-chat-api/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/gemini-chat-api/internal/middleware" // import middleware for authentication and rate limiting
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  It exposes the liveness and readiness checks.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	// Liveness: the process is up.
	e.GET("/healthz", handler.Health)
	// Readiness: the database answers a ping.
	e.GET("/healthz/db", handler.HealthDB(db))
}

// RegisterAuth registers all authentication-related routes.  Token
// operations live under /v1/auth and take an optional rate limiter;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, gate *auth.Service, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	// register creates the account and returns a token pair right away.
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// refresh rotates the presented refresh token; the old one dies with it.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	authed := e.Group("/v1")
	authed.Use(middleware.Authenticate(gate))
	authed.GET("/me", a.Me)
}

// RegisterChat registers the chat, message and settings endpoints.  All
// of them require a valid access token.
func RegisterChat(e *echo.Echo, ch *handler.ChatHandler, st *handler.SettingsHandler, gate *auth.Service) {
	g := e.Group("/v1")
	g.Use(middleware.Authenticate(gate))

	g.GET("/chats", ch.List)
	g.POST("/chats", ch.Create)
	g.GET("/chats/:id", ch.Get)
	g.DELETE("/chats/:id", ch.Delete)
	// Streaming turn over SSE; the non-streaming variant buffers.
	g.POST("/chats/:id/messages/stream", ch.SendMessageStream)
	g.POST("/chats/:id/messages", ch.SendMessage)

	g.GET("/settings", st.Get)
	g.PUT("/settings", st.Update)
}
