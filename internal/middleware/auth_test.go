package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gemini-chat-api/internal/auth"
	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
	"github.com/iliyamo/gemini-chat-api/internal/token"
)

type staticUsers struct {
	users map[uuid.UUID]model.User
}

func (s *staticUsers) Create(context.Context, string, string) (model.User, error) {
	return model.User{}, nil
}

func (s *staticUsers) GetByEmail(context.Context, string) (model.User, error) {
	return model.User{}, repository.ErrNotFound
}

func (s *staticUsers) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	u, ok := s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type noopSessions struct{}

func (noopSessions) Create(context.Context, model.Session) error { return nil }
func (noopSessions) FindByHash(context.Context, string) (model.Session, error) {
	return model.Session{}, repository.ErrNotFound
}
func (noopSessions) Rotate(context.Context, string, model.Session) error { return nil }
func (noopSessions) RevokeByHash(context.Context, string) error          { return nil }
func (noopSessions) RevokeAllForUser(context.Context, uuid.UUID) error   { return nil }

func testRequest(t *testing.T, gate *auth.Service, authorization string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	handler := Authenticate(gate)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, reached
}

func TestAuthenticate(t *testing.T) {
	codec := token.NewCodec("test-secret")
	active := model.User{ID: uuid.New(), Email: "a@x.com", IsActive: true}
	disabled := model.User{ID: uuid.New(), Email: "b@x.com", IsActive: false}
	users := &staticUsers{users: map[uuid.UUID]model.User{active.ID: active, disabled.ID: disabled}}
	gate := auth.NewService(codec, users, noopSessions{}, auth.Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: 4})

	issue := func(id uuid.UUID, ttl time.Duration) string {
		issued, err := codec.Issue(id, ttl)
		require.NoError(t, err)
		return issued.Token
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantPass   bool
	}{
		{"valid token", "Bearer " + issue(active.ID, time.Minute), http.StatusOK, true},
		{"missing header", "", http.StatusUnauthorized, false},
		{"not bearer", "Basic abc", http.StatusUnauthorized, false},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized, false},
		{"expired token", "Bearer " + issue(active.ID, -time.Minute), http.StatusUnauthorized, false},
		{"unknown account", "Bearer " + issue(uuid.New(), time.Minute), http.StatusUnauthorized, false},
		{"disabled account", "Bearer " + issue(disabled.ID, time.Minute), http.StatusUnauthorized, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reached := testRequest(t, gate, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantPass, reached)
		})
	}
}

func TestCurrentAccount(t *testing.T) {
	codec := token.NewCodec("test-secret")
	active := model.User{ID: uuid.New(), Email: "a@x.com", IsActive: true}
	users := &staticUsers{users: map[uuid.UUID]model.User{active.ID: active}}
	gate := auth.NewService(codec, users, noopSessions{}, auth.Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, BcryptCost: 4})

	issued, err := codec.Issue(active.ID, time.Minute)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := Authenticate(gate)(func(c echo.Context) error {
		got, ok := CurrentAccount(c)
		require.True(t, ok)
		assert.Equal(t, active.ID, got.ID)
		return nil
	})
	require.NoError(t, handler(c))
}
