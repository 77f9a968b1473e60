// Package chat drives a single chat turn end to end: persist the
// inbound user message, stream generated fragments to the caller, and
// commit the assistant message exactly once.  The core property is that
// a turn leaves either one fully-accumulated assistant message and a
// terminal done event, or no assistant message and a terminal error
// event; a partial or empty assistant row is never committed.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/gemini-chat-api/internal/model"
	"github.com/iliyamo/gemini-chat-api/internal/repository"
)

var (
	// ErrChatNotFound covers both a missing chat and a chat owned by
	// another account; callers cannot tell which.
	ErrChatNotFound = errors.New("chat not found")
	// ErrEmptyMessage is returned when the inbound content is blank.
	ErrEmptyMessage = errors.New("message content is empty")
	// ErrUpstream wraps failures of the generation collaborator.
	ErrUpstream = errors.New("upstream generation failed")
)

// Stream is a lazy, finite-unless-cancelled sequence of text fragments
// from the generation collaborator.  Recv returns io.EOF on normal
// exhaustion.  Close releases the underlying connection and is safe to
// call at any point, including mid-stream.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Generator opens a fragment stream for one prompt given the prior
// conversation.  Implementations are constructed per call (model name
// and API key are invocation parameters, not process state).
type Generator interface {
	Stream(ctx context.Context, history []model.Message, prompt string) (Stream, error)
}

// Sink is the delivery transport the pipeline writes into.  Chunk is
// called once per fragment with a monotonically increasing sequence
// marker; exactly one of Done or Error closes the stream.  A Chunk
// error means the downstream connection is gone and is treated as
// cancellation, not reported as an upstream failure.
type Sink interface {
	Chunk(seq int, content string) error
	Done() error
	Error(msg string) error
}

// ChatStore is the slice of the chat repository the pipeline needs.
type ChatStore interface {
	GetOwned(ctx context.Context, chatID, userID uuid.UUID) (model.Chat, error)
}

// MessageStore is the slice of the message repository the pipeline
// needs.  FinalizeAssistant must be atomic: it is the only way an
// assistant message reaches storage.
type MessageStore interface {
	Create(ctx context.Context, m model.Message) error
	FinalizeAssistant(ctx context.Context, m model.Message) error
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]model.Message, error)
}

// Result summarizes a completed turn for bookkeeping (queue events,
// logs).  It is only meaningful when the turn succeeded.
type Result struct {
	UserMessage      model.Message
	AssistantMessage model.Message
	Fragments        int
	Duration         time.Duration
}

// Pipeline executes chat turns.  It holds no per-turn state; every turn
// operates on its own provisional assistant message, so concurrent
// turns in one chat never contend on the same row.
type Pipeline struct {
	chats    ChatStore
	messages MessageStore
}

func NewPipeline(chats ChatStore, messages MessageStore) *Pipeline {
	return &Pipeline{chats: chats, messages: messages}
}

// RunStream executes one streaming turn.  The user message is committed
// before generation starts, so the user's input survives any later
// failure.  The assistant message exists only in memory until the
// fragment sequence is exhausted; on success it is committed in a
// single short transaction after the last fragment, on any failure or
// cancellation nothing is committed and a terminal error event is
// emitted instead.
func (p *Pipeline) RunStream(ctx context.Context, userID, chatID uuid.UUID, content string, gen Generator, sink Sink) (Result, error) {
	start := time.Now()

	userMsg, history, err := p.begin(ctx, userID, chatID, content)
	if err != nil {
		switch {
		case errors.Is(err, ErrChatNotFound):
			_ = sink.Error("chat not found")
		case errors.Is(err, ErrEmptyMessage):
			_ = sink.Error("message content is empty")
		default:
			_ = sink.Error("failed to store message")
		}
		return Result{}, err
	}

	// Provisional assistant message: identity assigned now, content
	// filled only when the full response is known.
	assistant := model.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Role:      model.RoleAssistant,
		CreatedAt: time.Now().UTC(),
	}

	stream, err := gen.Stream(ctx, history, content)
	if err != nil {
		_ = sink.Error("generation failed")
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = stream.Close() }()

	var acc strings.Builder
	seq := 0
	for {
		if err := ctx.Err(); err != nil {
			// Stop consuming upstream fragments.  The terminal event is
			// best effort: when the cancellation came from the client
			// side the socket is already gone, but a server-side
			// deadline still gets a proper close.
			_ = sink.Error("stream cancelled")
			return Result{}, err
		}
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = sink.Error("generation failed")
			return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		acc.WriteString(frag)
		seq++
		if err := sink.Chunk(seq, frag); err != nil {
			// Downstream connection closed mid-stream: cancellation,
			// not an upstream error.  Nothing is committed.
			return Result{}, err
		}
	}

	if acc.Len() == 0 {
		// Exhausted without producing anything; an empty assistant row
		// must never be committed.
		_ = sink.Error("generation produced no output")
		return Result{}, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	assistant.Content = acc.String()
	if err := p.messages.FinalizeAssistant(ctx, assistant); err != nil {
		_ = sink.Error("failed to store response")
		return Result{}, err
	}
	if err := sink.Done(); err != nil {
		// The response is committed; a failed terminal write only means
		// the client disconnected at the very end.
		return Result{}, err
	}
	return Result{
		UserMessage:      userMsg,
		AssistantMessage: assistant,
		Fragments:        seq,
		Duration:         time.Since(start),
	}, nil
}

// Run is the non-streaming variant: it buffers the entire response
// before persisting, with the same commit discipline, and returns the
// stored assistant message.
func (p *Pipeline) Run(ctx context.Context, userID, chatID uuid.UUID, content string, gen Generator) (Result, error) {
	start := time.Now()

	userMsg, history, err := p.begin(ctx, userID, chatID, content)
	if err != nil {
		return Result{}, err
	}

	assistant := model.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Role:      model.RoleAssistant,
		CreatedAt: time.Now().UTC(),
	}

	stream, err := gen.Stream(ctx, history, content)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = stream.Close() }()

	var acc strings.Builder
	frags := 0
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		frag, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		acc.WriteString(frag)
		frags++
	}
	if acc.Len() == 0 {
		return Result{}, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	assistant.Content = acc.String()
	if err := p.messages.FinalizeAssistant(ctx, assistant); err != nil {
		return Result{}, err
	}
	return Result{
		UserMessage:      userMsg,
		AssistantMessage: assistant,
		Fragments:        frags,
		Duration:         time.Since(start),
	}, nil
}

// begin validates ownership, loads the prior conversation and commits
// the user message.  Generation only starts after the user message is
// durably stored.
func (p *Pipeline) begin(ctx context.Context, userID, chatID uuid.UUID, content string) (model.Message, []model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return model.Message{}, nil, ErrEmptyMessage
	}
	if _, err := p.chats.GetOwned(ctx, chatID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Message{}, nil, ErrChatNotFound
		}
		return model.Message{}, nil, err
	}
	history, err := p.messages.ListByChat(ctx, chatID)
	if err != nil {
		return model.Message{}, nil, err
	}
	userMsg := model.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		Role:      model.RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.messages.Create(ctx, userMsg); err != nil {
		return model.Message{}, nil, err
	}
	return userMsg, history, nil
}
