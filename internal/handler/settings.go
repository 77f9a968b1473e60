package handler

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gemini-chat-api/internal/middleware"
	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
)

// SettingsHandler exposes per-account generation preferences.
type SettingsHandler struct {
	Settings *repository.SettingsRepo
}

func NewSettingsHandler(settings *repository.SettingsRepo) *SettingsHandler {
	return &SettingsHandler{Settings: settings}
}

type updateSettingsReq struct {
	APIKey *string `json:"api_key"`
	Model  *string `json:"model"`
}

// settingsResp never echoes the stored API key back to the client.
type settingsResp struct {
	Model           string   `json:"model"`
	HasAPIKey       bool     `json:"has_api_key"`
	AvailableModels []string `json:"available_models"`
}

// Get: return the caller's settings, or the defaults when nothing is stored.
func (h *SettingsHandler) Get(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Settings.GetByUser(ctx, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusOK, settingsResp{
				Model:           model.DefaultModel,
				HasAPIKey:       false,
				AvailableModels: model.AvailableModels,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load settings failed"})
	}
	return c.JSON(http.StatusOK, settingsResp{
		Model:           s.Model,
		HasAPIKey:       s.APIKey != "",
		AvailableModels: model.AvailableModels,
	})
}

// Update: upsert the caller's settings.  Omitted fields keep their
// stored value; sending an empty api_key clears it.
func (h *SettingsHandler) Update(c echo.Context) error {
	u, ok := middleware.CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateSettingsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	apiKey := ""
	modelName := model.DefaultModel
	if cur, err := h.Settings.GetByUser(ctx, u.ID); err == nil {
		apiKey = cur.APIKey
		modelName = cur.Model
	} else if !errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load settings failed"})
	}

	if req.APIKey != nil {
		apiKey = strings.TrimSpace(*req.APIKey)
	}
	if req.Model != nil {
		m := strings.TrimSpace(*req.Model)
		if m != "" && !slices.Contains(model.AvailableModels, m) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown model"})
		}
		modelName = m
	}

	s, err := h.Settings.Upsert(ctx, u.ID, apiKey, modelName)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save settings failed"})
	}
	return c.JSON(http.StatusOK, settingsResp{
		Model:           s.Model,
		HasAPIKey:       s.APIKey != "",
		AvailableModels: model.AvailableModels,
	})
}
