package token

import (
    "testing"
    "time"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
    c := NewCodec("test-secret")
    subject := uuid.New()

    issued, err := c.Issue(subject, 15*time.Minute)
    require.NoError(t, err)
    require.NotEmpty(t, issued.Token)
    assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), issued.Exp, 2*time.Second)

    got, err := c.Verify(issued.Token)
    require.NoError(t, err)
    assert.Equal(t, subject, got)
}

func TestVerifyExpired(t *testing.T) {
    c := NewCodec("test-secret")

    issued, err := c.Issue(uuid.New(), -time.Minute)
    require.NoError(t, err)

    _, err = c.Verify(issued.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
    c := NewCodec("test-secret")

    tests := []struct {
        name string
        raw  string
    }{
        {"empty", ""},
        {"malformed", "not.a.jwt"},
        {"truncated", "eyJhbGciOiJIUzI1NiJ9"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            _, err := c.Verify(tt.raw)
            assert.ErrorIs(t, err, ErrInvalidToken)
        })
    }
}

func TestVerifyWrongSecret(t *testing.T) {
    issued, err := NewCodec("secret-a").Issue(uuid.New(), time.Hour)
    require.NoError(t, err)

    _, err = NewCodec("secret-b").Verify(issued.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashIsStableAndOpaque(t *testing.T) {
    h1 := Hash("raw-refresh-token")
    h2 := Hash("raw-refresh-token")
    assert.Equal(t, h1, h2)
    assert.Len(t, h1, 64)
    assert.NotEqual(t, h1, Hash("other-token"))
}
