package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gemini-chat-api/internal/chat"
	"github.com/iliyamo/gemini-chat-api/internal/config"
	"github.com/iliyamo/gemini-chat-api/internal/genai"
	"github.com/iliyamo/gemini-chat-api/internal/middleware"
	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/queue"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
	queue_publisher "github.com/iliyamo/gemini-chat-api/internal/service"
	"github.com/iliyamo/gemini-chat-api/internal/stream"
)

// ChatHandler bundles dependencies for chat and message endpoints.
type ChatHandler struct {
	Cfg      config.Config
	Chats    *repository.ChatRepo
	Messages *repository.MessageRepo
	Settings *repository.SettingsRepo
	Pipeline *chat.Pipeline
}

func NewChatHandler(cfg config.Config, chats *repository.ChatRepo, msgs *repository.MessageRepo, settings *repository.SettingsRepo, p *chat.Pipeline) *ChatHandler {
	return &ChatHandler{Cfg: cfg, Chats: chats, Messages: msgs, Settings: settings, Pipeline: p}
}

// ----- DTOs -----

type createChatReq struct {
	Title string `json:"title"`
}
type sendMessageReq struct {
	Content string `json:"content"`
}

type chatPart struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
type messagePart struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
type chatDetailResp struct {
	Chat     chatPart      `json:"chat"`
	Messages []messagePart `json:"messages"`
}

func toChatPart(ch model.Chat) chatPart {
	return chatPart{ID: ch.ID.String(), Title: ch.Title, CreatedAt: ch.CreatedAt, UpdatedAt: ch.UpdatedAt}
}

func toMessagePart(m model.Message) messagePart {
	return messagePart{ID: m.ID.String(), Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
}

// List: return the caller's chats, most recently active first.
func (h *ChatHandler) List(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	chats, err := h.Chats.ListByUser(ctx, u.ID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list chats failed"})
	}
	out := make([]chatPart, 0, len(chats))
	for _, ch := range chats {
		out = append(out, toChatPart(ch))
	}
	return c.JSON(http.StatusOK, echo.Map{"chats": out})
}

// Create: open a new chat for the caller.
func (h *ChatHandler) Create(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createChatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Chats.Create(ctx, u.ID, req.Title)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create chat failed"})
	}
	return c.JSON(http.StatusCreated, toChatPart(ch))
}

// Get: return one chat with its full message history.  A chat owned by
// another account is indistinguishable from a missing one.
func (h *ChatHandler) Get(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ch, err := h.Chats.GetOwned(ctx, chatID, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load chat failed"})
	}
	msgs, err := h.Messages.ListByChat(ctx, chatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load messages failed"})
	}
	out := make([]messagePart, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessagePart(m))
	}
	return c.JSON(http.StatusOK, chatDetailResp{Chat: toChatPart(ch), Messages: out})
}

// Delete: remove one of the caller's chats; messages cascade in the database.
func (h *ChatHandler) Delete(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Chats.DeleteOwned(ctx, chatID, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete chat failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SendMessageStream: run one streaming chat turn over SSE.  Validation
// failures are reported as plain JSON before the stream is opened; once
// streaming starts, failures arrive as terminal error events instead.
func (h *ChatHandler) SendMessageStream(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()

	if _, err := h.Chats.GetOwned(ctx, chatID, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load chat failed"})
	}

	gen, modelName, err := h.generatorFor(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	sink := stream.NewSSE(c, h.Cfg.StreamFlushDelay)
	res, err := h.Pipeline.RunStream(ctx, u.ID, chatID, req.Content, gen, sink)
	if err != nil {
		// The pipeline already emitted the terminal error event (or the
		// client is gone); the SSE response is committed either way.
		return nil
	}

	h.publishTurn(u.ID, chatID, modelName, res)
	return nil
}

// SendMessage: non-streaming variant; buffers the whole response and
// returns both stored messages.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
	}
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()

	gen, modelName, err := h.generatorFor(ctx, u.ID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	res, err := h.Pipeline.Run(ctx, u.ID, chatID, req.Content, gen)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrChatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		case errors.Is(err, chat.ErrEmptyMessage):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "message content is empty"})
		case errors.Is(err, chat.ErrUpstream):
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "generation failed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "send message failed"})
	}

	h.publishTurn(u.ID, chatID, modelName, res)
	return c.JSON(http.StatusCreated, echo.Map{
		"user_message":      toMessagePart(res.UserMessage),
		"assistant_message": toMessagePart(res.AssistantMessage),
	})
}

// generatorFor builds a per-request generation client from the
// account's stored settings, falling back to the server-wide key and
// default model.
func (h *ChatHandler) generatorFor(ctx context.Context, userID uuid.UUID) (chat.Generator, string, error) {
	apiKey := h.Cfg.GeminiAPIKey
	modelName := h.Cfg.GeminiModel
	if modelName == "" {
		modelName = model.DefaultModel
	}

	s, err := h.Settings.GetByUser(ctx, userID)
	if err == nil {
		if s.APIKey != "" {
			apiKey = s.APIKey
		}
		if s.Model != "" {
			modelName = s.Model
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, "", errors.New("load settings failed")
	}

	if apiKey == "" {
		return nil, "", errors.New("no API key configured")
	}
	return genai.New(apiKey, modelName), modelName, nil
}

// publishTurn emits the turn-completed event; failures are logged by
// the publisher and deliberately not surfaced to the client.
func (h *ChatHandler) publishTurn(userID, chatID uuid.UUID, modelName string, res chat.Result) {
	ev := queue.TurnCompletedEvent{
		ChatID:      chatID.String(),
		UserID:      userID.String(),
		MessageID:   res.AssistantMessage.ID.String(),
		Model:       modelName,
		Fragments:   res.Fragments,
		Chars:       len(res.AssistantMessage.Content),
		DurationMS:  res.Duration.Milliseconds(),
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue_publisher.PublishTurnCompleted(ctx, ev); err != nil {
			log.Printf("chat: publish turn event failed: %v", err)
		}
	}()
}
