// Package genai is the client for the Google Generative Language API.
// It exposes generation as a lazy fragment stream consumed by the chat
// pipeline.  A Client is built per invocation from the effective API
// key and model name (server defaults overridden by per-user settings),
// never held as shared mutable state.
package genai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	chatpipe "github.com/iliyamo/gemini-chat-api/internal/chat"
	"github.com/iliyamo/gemini-chat-api/internal/model"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client streams responses from one model with one API key.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// New returns a client for the given key and model.  An empty model
// falls back to the application default.
func New(apiKey, modelName string) *Client {
	if modelName == "" {
		modelName = model.DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   modelName,
		baseURL: defaultBaseURL,
		// No overall timeout: generation streams for as long as the
		// model talks.  Cancellation comes from the request context.
		httpc: &http.Client{},
	}
}

// WithBaseURL points the client at a different endpoint.  Used in tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimRight(u, "/")
	return c
}

// request/response wire shapes for streamGenerateContent.

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateChunk struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Stream opens a streamGenerateContent call carrying the prior
// conversation plus the new prompt and returns the fragment sequence.
// The stream must be closed by the caller; closing it mid-flight tears
// down the underlying connection so no upstream tokens are wasted.
func (c *Client) Stream(ctx context.Context, history []model.Message, prompt string) (chatpipe.Stream, error) {
	req := generateRequest{}
	for _, m := range history {
		switch m.Role {
		case model.RoleUser:
			req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: m.Content}}})
		case model.RoleAssistant:
			req.Contents = append(req.Contents, content{Role: "model", Parts: []part{{Text: m.Content}}})
		case model.RoleSystem:
			// The API takes system text out of band.
			req.SystemInstruction = &content{Parts: []part{{Text: m.Content}}}
		}
	}
	req.Contents = append(req.Contents, content{Role: "user", Parts: []part{{Text: prompt}}})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("generate call failed: %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &sseStream{body: resp.Body, scanner: sc}, nil
}

// sseStream decodes "data: {json}" lines from the response body into
// text fragments, one Recv per non-empty fragment.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *sseStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return "", fmt.Errorf("upstream error: %s", chunk.Error.Message)
		}
		text := chunkText(chunk)
		if text == "" {
			continue
		}
		return text, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	return s.body.Close()
}

func chunkText(c generateChunk) string {
	var b strings.Builder
	for _, cand := range c.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
