package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zhouzirui/kidwatch/backend/internal/provider"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) ID() string { return "stub-asr" }

func (s *stubTranscriber) Call(_ context.Context, _ provider.AudioInput) (provider.Transcript, error) {
	if s.err != nil {
		return provider.Transcript{}, s.err
	}
	return provider.Transcript{Text: s.text}, nil
}

func TestTranscribe(t *testing.T) {
	chain := provider.NewChain[provider.AudioInput, provider.Transcript](
		provider.CapabilityASR, time.Second, &stubTranscriber{text: "my knee hurts"})
	svc := NewService(chain, nil, nil)

	transcript, err := svc.Transcribe(context.Background(), provider.AudioInput{Data: []byte("audio")})
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if transcript.Text != "my knee hurts" {
		t.Fatalf("unexpected transcript %q", transcript.Text)
	}
}

func TestTranscribeDegraded(t *testing.T) {
	chain := provider.NewChain[provider.AudioInput, provider.Transcript](
		provider.CapabilityASR, time.Second, &stubTranscriber{err: errors.New("vendor down")})
	svc := NewService(chain, nil, nil)

	if _, err := svc.Transcribe(context.Background(), provider.AudioInput{Data: []byte("audio")}); !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded, got %v", err)
	}
}

func TestUnconfiguredCapabilities(t *testing.T) {
	svc := NewService(nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Transcribe(ctx, provider.AudioInput{}); !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded for nil asr chain, got %v", err)
	}
	if _, err := svc.Synthesize(ctx, provider.SpeechInput{Text: "hi"}); !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded for nil tts chain, got %v", err)
	}
	if _, err := svc.Describe(ctx, provider.VisionInput{ImageURL: "http://x/y.png"}); !errors.Is(err, ErrDegraded) {
		t.Fatalf("expected ErrDegraded for nil vision chain, got %v", err)
	}

	var nilSvc *Service
	if _, err := nilSvc.Transcribe(ctx, provider.AudioInput{}); !errors.Is(err, ErrDegraded) {
		t.Fatalf("nil service should degrade, got %v", err)
	}
}
