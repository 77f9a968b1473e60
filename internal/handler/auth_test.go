package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/gemini-chat-api/internal/auth"
	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
	"github.com/iliyamo/gemini-chat-api/internal/token"
)

type memUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[uuid.UUID]model.User{}} }

func (m *memUsers) Create(_ context.Context, email, passwordHash string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	u := model.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, IsActive: true, CreatedAt: time.Now().UTC()}
	m.users[u.ID] = u
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uuid.UUID) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

type memSessions struct {
	mu   sync.Mutex
	live map[string]model.Session
}

func newMemSessions() *memSessions { return &memSessions{live: map[string]model.Session{}} }

func (m *memSessions) Create(_ context.Context, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live[s.TokenHash] = s
	return nil
}

func (m *memSessions) FindByHash(_ context.Context, hash string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[hash]
	if !ok {
		return model.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) Rotate(_ context.Context, oldHash string, next model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live[oldHash]; !ok {
		return repository.ErrNotFound
	}
	delete(m.live, oldHash)
	m.live[next.TokenHash] = next
	return nil
}

func (m *memSessions) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, hash)
	return nil
}

func (m *memSessions) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, s := range m.live {
		if s.UserID == userID {
			delete(m.live, h)
		}
	}
	return nil
}

func newTestHandler(t *testing.T) (*AuthHandler, *memUsers) {
	t.Helper()
	users := newMemUsers()
	gate := auth.NewService(token.NewCodec("handler-test-secret"), users, newMemSessions(), auth.Config{
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	return NewAuthHandler(gate), users
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	h, _ := newTestHandler(t)

	// Register returns 201 with a usable token pair.
	rec := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", `{"email":"Ada@Example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var reg authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reg))
	assert.Equal(t, "ada@example.com", reg.User.Email)
	assert.NotEmpty(t, reg.Access.Token)
	assert.NotEmpty(t, reg.Refresh.Token)

	// Duplicate email conflicts.
	rec = doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", `{"email":"ada@example.com","password":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login with the registered credentials.
	rec = doJSON(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"ada@example.com","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var lg authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lg))

	// Refresh rotates the pair.
	rec = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+lg.Refresh.Token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated pairResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, lg.Refresh.Token, rotated.Refresh.Token)

	// The rotated-away token is dead.
	rec = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+lg.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout kills the current token; logging out twice is still 204.
	rec = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, h.Logout, http.MethodPost, "/v1/auth/logout", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// And the logged-out token no longer refreshes.
	rec = doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"`+rotated.Refresh.Token+`"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsBadInput(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{}`, http.StatusBadRequest},
		{"unknown account", `{"email":"ghost@example.com","password":"x"}`, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h.Login, http.MethodPost, "/v1/auth/login", tc.body)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	h, users := newTestHandler(t)

	rec := doJSON(t, h.Register, http.MethodPost, "/v1/auth/register", `{"email":"off@example.com","password":"pw"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	users.mu.Lock()
	for id, u := range users.users {
		u.IsActive = false
		users.users[id] = u
	}
	users.mu.Unlock()

	rec = doJSON(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"off@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefreshRequiresToken(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.Refresh, http.MethodPost, "/v1/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
