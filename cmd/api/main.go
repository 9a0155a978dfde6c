package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zhouzirui/kidwatch/backend/internal/config"
	"github.com/zhouzirui/kidwatch/backend/internal/handler"
	"github.com/zhouzirui/kidwatch/backend/internal/provider"
	"github.com/zhouzirui/kidwatch/backend/internal/service/alert"
	"github.com/zhouzirui/kidwatch/backend/internal/service/chat"
	"github.com/zhouzirui/kidwatch/backend/internal/service/classifier"
	"github.com/zhouzirui/kidwatch/backend/internal/service/media"
	"github.com/zhouzirui/kidwatch/backend/internal/service/notify"
	"github.com/zhouzirui/kidwatch/backend/internal/service/retrieval"
	"github.com/zhouzirui/kidwatch/backend/internal/service/safety"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chatService := chat.NewService()
	alertStore := alert.NewMemoryStore()
	engine := alert.NewEngine(alertStore, alert.Config{
		DedupWindow:   cfg.Safety.DedupWindow,
		ActivityLimit: cfg.Safety.ActivityLimit,
	})
	dispatcher := notify.NewDispatcher(cfg.Notify.Retries, cfg.Notify.Backoff)

	// Persistence failures are survived in-band; surface them for follow-up.
	go func() {
		for opErr := range engine.OperationalErrors() {
			log.Printf("[ops] %v", opErr)
		}
	}()

	textChain := buildTextChain(ctx, cfg.AI)

	var classifierSvc *classifier.Service
	if textChain != nil {
		retriever := retrieval.NewMemoryRetriever()
		seedKnowledge(retriever)
		classifierSvc = classifier.NewService(textChain, retriever, classifier.Config{
			HistoryLimit: cfg.Safety.HistoryLimit,
			RetrievalK:   cfg.Safety.RetrievalK,
			Timeout:      cfg.Safety.ClassifierTimeout,
		})
		log.Println("contextual classifier enabled")
	} else {
		log.Println("no text-generation provider configured, keyword layer governs alone")
	}

	pipeline := safety.NewPipeline(chatService, classifierSvc, engine, dispatcher)
	mediaService := buildMediaService(cfg.AI)

	router := handler.NewRouter(chatService, pipeline, alertStore, engine, dispatcher, mediaService)

	startServer(ctx, cfg.Server, router)
}

// buildTextChain assembles the text-generation fallback order: NVIDIA first,
// Ark second. Either may be absent.
func buildTextChain(ctx context.Context, cfg config.AIConfig) *provider.Chain[provider.GenInput, provider.GenOutput] {
	var candidates []provider.Provider[provider.GenInput, provider.GenOutput]

	if cfg.PrimaryEnabled() {
		client := provider.NewOpenAICompatClient(cfg.NvidiaAPIKey, cfg.NvidiaBaseURL)
		candidates = append(candidates, provider.NewTextGenerator("nvidia", client, cfg.NvidiaModel))
		log.Printf("text provider registered: nvidia model=%s", cfg.NvidiaModel)
	}

	if cfg.ArkEnabled() {
		chatModel, err := cfg.NewArkChatModel(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize ark fallback model: %v", err)
		} else {
			candidates = append(candidates, provider.NewArkGenerator("ark", chatModel))
			log.Printf("text provider registered: ark model=%s", cfg.ArkModel)
		}
	}

	if len(candidates) == 0 {
		return nil
	}
	return provider.NewChain(provider.CapabilityText, cfg.AttemptTimeout, candidates...)
}

// buildMediaService assembles the speech and vision chains where credentials
// allow.
func buildMediaService(cfg config.AIConfig) *media.Service {
	var (
		asrChain    *provider.Chain[provider.AudioInput, provider.Transcript]
		ttsChain    *provider.Chain[provider.SpeechInput, provider.SpeechOutput]
		visionChain *provider.Chain[provider.VisionInput, provider.VisionOutput]
	)

	if cfg.SpeechEnabled() {
		client := provider.NewOpenAICompatClient(cfg.SpeechAPIKey, cfg.SpeechBaseURL)
		asrChain = provider.NewChain[provider.AudioInput, provider.Transcript](
			provider.CapabilityASR, cfg.AttemptTimeout, provider.NewTranscriber("whisper", client, cfg.ASRModel))
		ttsChain = provider.NewChain[provider.SpeechInput, provider.SpeechOutput](
			provider.CapabilityTTS, cfg.AttemptTimeout, provider.NewSynthesizer("openai-tts", client, cfg.TTSModel, cfg.TTSVoice))
		log.Println("speech providers registered")
	}

	if cfg.PrimaryEnabled() {
		client := provider.NewOpenAICompatClient(cfg.NvidiaAPIKey, cfg.NvidiaBaseURL)
		visionChain = provider.NewChain[provider.VisionInput, provider.VisionOutput](
			provider.CapabilityVision, cfg.AttemptTimeout, provider.NewVisionAnalyzer("nvidia-vision", client, cfg.VisionModel))
		log.Println("vision provider registered")
	}

	if asrChain == nil && ttsChain == nil && visionChain == nil {
		return nil
	}
	return media.NewService(asrChain, ttsChain, visionChain)
}

// seedKnowledge loads a few reference notes the classifier can cite until the
// real knowledge subsystem is attached.
func seedKnowledge(r *retrieval.MemoryRetriever) {
	r.Add("Falls are the most common childhood injury; persistent pain, swelling or refusal to move a limb needs adult attention.", "first-aid-basics")
	r.Add("A child mentioning strangers, secrets with adults, or being asked not to tell a parent warrants immediate follow-up.", "stranger-safety")
	r.Add("Difficulty breathing, chest pain, heavy bleeding or loss of consciousness are emergencies requiring immediate help.", "emergency-signs")
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("kidwatch backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
