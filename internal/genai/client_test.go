package genai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/gemini-chat-api/internal/model"
)

func sseChunk(text string) string {
	return fmt.Sprintf(`data: {"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`+"\n\n", text)
}

func TestStreamYieldsFragmentsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-lite:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		assert.Equal(t, "key-123", r.Header.Get("x-goog-api-key"))

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("Hi"))
		io.WriteString(w, sseChunk(" there"))
	}))
	defer srv.Close()

	c := New("key-123", "").WithBaseURL(srv.URL)
	s, err := c.Stream(context.Background(), nil, "hello")
	require.NoError(t, err)
	defer s.Close()

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hi", frag)

	frag, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, " there", frag)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamSendsHistoryAndPrompt(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		io.WriteString(w, sseChunk("ok"))
	}))
	defer srv.Close()

	history := []model.Message{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "first question"},
		{Role: model.RoleAssistant, Content: "first answer"},
	}
	c := New("k", "gemini-2.5-flash").WithBaseURL(srv.URL)
	s, err := c.Stream(context.Background(), history, "second question")
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, gotBody, `"systemInstruction"`)
	assert.Contains(t, gotBody, "be terse")
	assert.Contains(t, gotBody, `"role":"model"`)
	assert.Contains(t, gotBody, "first answer")
	assert.Contains(t, gotBody, "second question")
}

func TestStreamNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New("bad-key", "").WithBaseURL(srv.URL)
	_, err := c.Stream(context.Background(), nil, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestStreamMidStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("Hel"))
		io.WriteString(w, `data: {"error":{"message":"quota exceeded"}}`+"\n\n")
	}))
	defer srv.Close()

	c := New("k", "").WithBaseURL(srv.URL)
	s, err := c.Stream(context.Background(), nil, "hello")
	require.NoError(t, err)
	defer s.Close()

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hel", frag)

	_, err = s.Recv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStreamSkipsKeepaliveLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, ": keepalive\n\n")
		io.WriteString(w, "\n")
		io.WriteString(w, sseChunk("only"))
	}))
	defer srv.Close()

	c := New("k", "").WithBaseURL(srv.URL)
	s, err := c.Stream(context.Background(), nil, "hello")
	require.NoError(t, err)
	defer s.Close()

	frag, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "only", frag)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}
