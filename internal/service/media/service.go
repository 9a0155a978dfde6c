// Package media fronts the non-text capabilities: speech in, speech out and
// image analysis. Every call goes through a provider chain, so a dead vendor
// degrades the capability instead of failing the request.
package media

import (
	"context"
	"errors"

	"github.com/zhouzirui/kidwatch/backend/internal/provider"
)

// ErrDegraded is returned when every candidate for a capability failed. The
// caller decides whether the turn can continue without the capability.
var ErrDegraded = errors.New("capability degraded")

// Service bundles the speech and vision chains.
type Service struct {
	asr    *provider.Chain[provider.AudioInput, provider.Transcript]
	tts    *provider.Chain[provider.SpeechInput, provider.SpeechOutput]
	vision *provider.Chain[provider.VisionInput, provider.VisionOutput]
}

// NewService creates the media service. Any chain may be nil when the vendor
// is unconfigured; the matching capability then reports degraded.
func NewService(
	asr *provider.Chain[provider.AudioInput, provider.Transcript],
	tts *provider.Chain[provider.SpeechInput, provider.SpeechOutput],
	vision *provider.Chain[provider.VisionInput, provider.VisionOutput],
) *Service {
	return &Service{asr: asr, tts: tts, vision: vision}
}

// Transcribe converts child audio to text.
func (s *Service) Transcribe(ctx context.Context, input provider.AudioInput) (provider.Transcript, error) {
	if s == nil || s.asr == nil {
		return provider.Transcript{}, ErrDegraded
	}
	result := s.asr.Execute(ctx, input)
	if !result.Success {
		return provider.Transcript{}, ErrDegraded
	}
	return result.Payload, nil
}

// Synthesize narrates assistant text. A degraded result means "skip the
// narration, keep the text".
func (s *Service) Synthesize(ctx context.Context, input provider.SpeechInput) (provider.SpeechOutput, error) {
	if s == nil || s.tts == nil {
		return provider.SpeechOutput{}, ErrDegraded
	}
	result := s.tts.Execute(ctx, input)
	if !result.Success {
		return provider.SpeechOutput{}, ErrDegraded
	}
	return result.Payload, nil
}

// Describe returns a textual description of an image the child shared, which
// then flows through the same safety pipeline as any other message content.
func (s *Service) Describe(ctx context.Context, input provider.VisionInput) (provider.VisionOutput, error) {
	if s == nil || s.vision == nil {
		return provider.VisionOutput{}, ErrDegraded
	}
	result := s.vision.Execute(ctx, input)
	if !result.Success {
		return provider.VisionOutput{}, ErrDegraded
	}
	return result.Payload, nil
}
