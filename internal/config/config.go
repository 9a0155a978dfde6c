package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every runtime setting of the service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Safety SafetyConfig
	Notify NotifyConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	safety, err := loadSafetyConfig()
	if err != nil {
		return nil, err
	}

	notify, err := loadNotifyConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Safety: safety, Notify: notify}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig holds the external capability providers. The NVIDIA endpoint (an
// OpenAI-compatible API) is the primary text/vision/speech vendor; the Ark
// model is the secondary text-generation candidate in the fallback chain.
type AIConfig struct {
	NvidiaAPIKey  string
	NvidiaBaseURL string
	NvidiaModel   string
	VisionModel   string

	SpeechAPIKey  string
	SpeechBaseURL string
	ASRModel      string
	TTSModel      string
	TTSVoice      string

	ArkAPIKey    string
	ArkAccessKey string
	ArkSecretKey string
	ArkModel     string
	ArkBaseURL   string
	ArkRegion    string

	AttemptTimeout time.Duration
}

// PrimaryEnabled indicates the NVIDIA credentials are present.
func (c AIConfig) PrimaryEnabled() bool {
	return c.NvidiaAPIKey != "" && c.NvidiaModel != ""
}

// ArkEnabled indicates the fallback model credentials are present.
func (c AIConfig) ArkEnabled() bool {
	return c.ArkModel != "" && (c.ArkAPIKey != "" || (c.ArkAccessKey != "" && c.ArkSecretKey != ""))
}

// SpeechEnabled indicates speech credentials are present.
func (c AIConfig) SpeechEnabled() bool {
	return c.SpeechAPIKey != ""
}

// NewArkChatModel builds the fallback chat model from configuration.
func (c AIConfig) NewArkChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("ark credentials or model missing, provide ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:   c.ArkBaseURL,
		Region:    c.ArkRegion,
		APIKey:    c.ArkAPIKey,
		AccessKey: c.ArkAccessKey,
		SecretKey: c.ArkSecretKey,
		Model:     c.ArkModel,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	attemptTimeout := 15
	if override, err := parseOptionalIntEnv("PROVIDER_ATTEMPT_TIMEOUT"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		attemptTimeout = *override
	}

	speechKey := strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	if speechKey == "" {
		speechKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}

	return AIConfig{
		NvidiaAPIKey:  strings.TrimSpace(os.Getenv("NVIDIA_API_KEY")),
		NvidiaBaseURL: getEnvOrDefault("NVIDIA_BASE_URL", "https://integrate.api.nvidia.com/v1"),
		NvidiaModel:   getEnvOrDefault("NVIDIA_MODEL", "nvidia/llama-3.1-nemotron-70b-instruct"),
		VisionModel:   getEnvOrDefault("VISION_MODEL", "nvidia/vila"),

		SpeechAPIKey:  speechKey,
		SpeechBaseURL: getEnvOrDefault("SPEECH_BASE_URL", ""),
		ASRModel:      getEnvOrDefault("SPEECH_ASR_MODEL", ""),
		TTSModel:      getEnvOrDefault("SPEECH_TTS_MODEL", ""),
		TTSVoice:      getEnvOrDefault("SPEECH_TTS_VOICE", ""),

		ArkAPIKey:    strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey: strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey: strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkModel:     strings.TrimSpace(os.Getenv("ARK_MODEL")),
		ArkBaseURL:   getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:    getEnvOrDefault("ARK_REGION", "cn-beijing"),

		AttemptTimeout: time.Duration(attemptTimeout) * time.Second,
	}, nil
}

// SafetyConfig tunes the detection pipeline.
type SafetyConfig struct {
	DedupWindow       time.Duration
	HistoryLimit      int
	RetrievalK        int
	ClassifierTimeout time.Duration
	ActivityLimit     time.Duration
}

func loadSafetyConfig() (SafetyConfig, error) {
	dedupSeconds := 300
	if override, err := parseOptionalIntEnv("SAFETY_DEDUP_WINDOW"); err != nil {
		return SafetyConfig{}, err
	} else if override != nil && *override > 0 {
		dedupSeconds = *override
	}

	historyLimit := 5
	if override, err := parseOptionalIntEnv("SAFETY_HISTORY_LIMIT"); err != nil {
		return SafetyConfig{}, err
	} else if override != nil && *override > 0 {
		historyLimit = *override
	}

	retrievalK := 3
	if override, err := parseOptionalIntEnv("SAFETY_RETRIEVAL_K"); err != nil {
		return SafetyConfig{}, err
	} else if override != nil && *override >= 0 {
		retrievalK = *override
	}

	classifierTimeout := 20
	if override, err := parseOptionalIntEnv("SAFETY_CLASSIFIER_TIMEOUT"); err != nil {
		return SafetyConfig{}, err
	} else if override != nil && *override > 0 {
		classifierTimeout = *override
	}

	activityMinutes := 120
	if override, err := parseOptionalIntEnv("SAFETY_ACTIVITY_LIMIT_MINUTES"); err != nil {
		return SafetyConfig{}, err
	} else if override != nil && *override > 0 {
		activityMinutes = *override
	}

	return SafetyConfig{
		DedupWindow:       time.Duration(dedupSeconds) * time.Second,
		HistoryLimit:      historyLimit,
		RetrievalK:        retrievalK,
		ClassifierTimeout: time.Duration(classifierTimeout) * time.Second,
		ActivityLimit:     time.Duration(activityMinutes) * time.Minute,
	}, nil
}

// NotifyConfig tunes subscriber delivery.
type NotifyConfig struct {
	Retries int
	Backoff time.Duration
}

func loadNotifyConfig() (NotifyConfig, error) {
	retries := 3
	if override, err := parseOptionalIntEnv("NOTIFY_RETRIES"); err != nil {
		return NotifyConfig{}, err
	} else if override != nil && *override > 0 {
		retries = *override
	}

	backoffMs := 200
	if override, err := parseOptionalIntEnv("NOTIFY_BACKOFF_MS"); err != nil {
		return NotifyConfig{}, err
	} else if override != nil && *override > 0 {
		backoffMs = *override
	}

	return NotifyConfig{
		Retries: retries,
		Backoff: time.Duration(backoffMs) * time.Millisecond,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
