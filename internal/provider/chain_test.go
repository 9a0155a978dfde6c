package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	id    string
	calls int
	fn    func(ctx context.Context, input string) (string, error)
}

func (s *stubProvider) ID() string { return s.id }

func (s *stubProvider) Call(ctx context.Context, input string) (string, error) {
	s.calls++
	return s.fn(ctx, input)
}

func succeeding(id, payload string) *stubProvider {
	return &stubProvider{id: id, fn: func(context.Context, string) (string, error) {
		return payload, nil
	}}
}

func failing(id string, err error) *stubProvider {
	return &stubProvider{id: id, fn: func(context.Context, string) (string, error) {
		return "", err
	}}
}

func TestChainFallsBackToNextCandidate(t *testing.T) {
	first := failing("primary", errors.New("boom"))
	second := succeeding("secondary", "ok")
	third := succeeding("tertiary", "never")

	chain := NewChain[string, string]("text_generation", time.Second, first, second, third)
	result := chain.Execute(context.Background(), "hello")

	require.True(t, result.Success)
	assert.Equal(t, "ok", result.Payload)
	assert.Equal(t, "secondary", result.ProviderID)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, "primary", result.Attempts[0].ProviderID)
	assert.Equal(t, KindUnknown, result.Attempts[0].ErrorKind)
	assert.Equal(t, KindNone, result.Attempts[1].ErrorKind)

	// Later candidates are never touched once one succeeds.
	assert.Zero(t, third.calls)
}

func TestChainAllCandidatesFail(t *testing.T) {
	first := failing("primary", ErrRateLimited)
	second := failing("secondary", fmt.Errorf("parse: %w", ErrMalformed))

	chain := NewChain[string, string]("text_generation", time.Second, first, second)
	result := chain.Execute(context.Background(), "hello")

	require.False(t, result.Success)
	assert.Equal(t, KindMalformed, result.ErrorKind, "terminal kind comes from the last attempt")
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, KindRateLimit, result.Attempts[0].ErrorKind)
}

func TestChainTimeoutClassification(t *testing.T) {
	slow := &stubProvider{id: "slow", fn: func(ctx context.Context, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(2 * time.Second):
			return "late", nil
		}
	}}
	fast := succeeding("fast", "ok")

	chain := NewChain[string, string]("text_generation", 20*time.Millisecond, slow, fast)
	result := chain.Execute(context.Background(), "hello")

	require.True(t, result.Success)
	assert.Equal(t, "fast", result.ProviderID)
	require.Len(t, result.Attempts, 2)
	assert.Equal(t, KindTimeout, result.Attempts[0].ErrorKind)
}

func TestChainStopsWhenCallerLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	first := &stubProvider{id: "primary", fn: func(context.Context, string) (string, error) {
		cancel()
		return "", errors.New("boom")
	}}
	second := succeeding("secondary", "ok")

	chain := NewChain[string, string]("text_generation", time.Second, first, second)
	result := chain.Execute(ctx, "hello")

	require.False(t, result.Success)
	assert.Zero(t, second.calls, "no further candidates once the caller is gone")
}

func TestChainNoCandidates(t *testing.T) {
	chain := NewChain[string, string]("speech_to_text", time.Second)
	result := chain.Execute(context.Background(), "hello")

	require.False(t, result.Success)
	assert.Equal(t, KindUnknown, result.ErrorKind)
	assert.Empty(t, result.Attempts)
}

func TestChainDegradedAfterConsecutiveFailures(t *testing.T) {
	bad := failing("primary", errors.New("boom"))
	chain := NewChain[string, string]("text_generation", time.Second, bad)

	for i := 0; i < degradedThreshold; i++ {
		assert.False(t, chain.Degraded())
		chain.Execute(context.Background(), "hello")
	}
	assert.True(t, chain.Degraded())

	good := succeeding("primary", "ok")
	chain.candidates = []Provider[string, string]{good}
	chain.Execute(context.Background(), "hello")
	assert.False(t, chain.Degraded(), "one success clears the degraded state")
}

func TestClassifySentinels(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, KindAuth, Classify(ctx, fmt.Errorf("call: %w", ErrAuth)))
	assert.Equal(t, KindRateLimit, Classify(ctx, ErrRateLimited))
	assert.Equal(t, KindMalformed, Classify(ctx, ErrMalformed))
	assert.Equal(t, KindTimeout, Classify(ctx, context.DeadlineExceeded))
	assert.Equal(t, KindUnknown, Classify(ctx, errors.New("weird")))
}
