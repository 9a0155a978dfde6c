package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAICompatClient builds a go-openai client against any OpenAI-compatible
// endpoint. The NVIDIA integration endpoint and OpenAI proper both go through
// here; only base URL and key differ.
func NewOpenAICompatClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// wrapVendorErr folds go-openai API errors into the chain's sentinel taxonomy.
func wrapVendorErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return err
}

// TextGenerator runs chat completions against an OpenAI-compatible endpoint.
type TextGenerator struct {
	id     string
	client *openai.Client
	model  string
}

// NewTextGenerator creates a text-generation provider.
func NewTextGenerator(id string, client *openai.Client, model string) *TextGenerator {
	return &TextGenerator{id: id, client: client, model: model}
}

func (g *TextGenerator) ID() string { return g.id }

func (g *TextGenerator) Call(ctx context.Context, input GenInput) (GenOutput, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(input.Messages)+1)
	if input.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: input.System,
		})
	}
	for _, m := range input.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: messages,
	}
	if input.Temperature != nil {
		req.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		req.MaxTokens = *input.MaxTokens
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return GenOutput{}, wrapVendorErr(err)
	}
	if len(resp.Choices) == 0 {
		return GenOutput{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}
	return GenOutput{Text: resp.Choices[0].Message.Content}, nil
}

// VisionAnalyzer describes images through the chat endpoint's image parts.
type VisionAnalyzer struct {
	id     string
	client *openai.Client
	model  string
}

// NewVisionAnalyzer creates an image-analysis provider.
func NewVisionAnalyzer(id string, client *openai.Client, model string) *VisionAnalyzer {
	return &VisionAnalyzer{id: id, client: client, model: model}
}

func (v *VisionAnalyzer) ID() string { return v.id }

func (v *VisionAnalyzer) Call(ctx context.Context, input VisionInput) (VisionOutput, error) {
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: input.Prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: input.ImageURL},
					},
				},
			},
		},
	})
	if err != nil {
		return VisionOutput{}, wrapVendorErr(err)
	}
	if len(resp.Choices) == 0 {
		return VisionOutput{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}
	return VisionOutput{Description: resp.Choices[0].Message.Content}, nil
}

// Transcriber converts audio to text via Whisper.
type Transcriber struct {
	id     string
	client *openai.Client
	model  string
}

// NewTranscriber creates a speech-to-text provider. An empty model defaults to
// whisper-1.
func NewTranscriber(id string, client *openai.Client, model string) *Transcriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &Transcriber{id: id, client: client, model: model}
}

func (t *Transcriber) ID() string { return t.id }

func (t *Transcriber) Call(ctx context.Context, input AudioInput) (Transcript, error) {
	filename := input.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(input.Data),
		Language: input.Language,
	})
	if err != nil {
		return Transcript{}, wrapVendorErr(err)
	}
	return Transcript{Text: resp.Text, Language: input.Language}, nil
}

// Synthesizer converts text to speech.
type Synthesizer struct {
	id     string
	client *openai.Client
	model  string
	voice  string
}

// NewSynthesizer creates a text-to-speech provider.
func NewSynthesizer(id string, client *openai.Client, model, voice string) *Synthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceNova)
	}
	return &Synthesizer{id: id, client: client, model: model, voice: voice}
}

func (s *Synthesizer) ID() string { return s.id }

func (s *Synthesizer) Call(ctx context.Context, input SpeechInput) (SpeechOutput, error) {
	voice := input.Voice
	if voice == "" {
		voice = s.voice
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.SpeechModel(s.model),
		Input: input.Text,
		Voice: openai.SpeechVoice(voice),
	})
	if err != nil {
		return SpeechOutput{}, wrapVendorErr(err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return SpeechOutput{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return SpeechOutput{Audio: audio, Format: "mp3"}, nil
}
