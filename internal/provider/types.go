package provider

// Capability names used for chain construction, health tracking and metrics.
const (
	CapabilityText   = "text_generation"
	CapabilityVision = "image_analysis"
	CapabilityASR    = "speech_to_text"
	CapabilityTTS    = "text_to_speech"
)

// GenMessage is one turn handed to a text-generation provider.
type GenMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles accepted by GenMessage.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenInput is the vendor-neutral request for text generation.
type GenInput struct {
	System      string
	Messages    []GenMessage
	Temperature *float32
	MaxTokens   *int
}

// GenOutput carries the generated text.
type GenOutput struct {
	Text string
}

// VisionInput asks for a textual description of an image.
type VisionInput struct {
	Prompt   string
	ImageURL string
}

// VisionOutput is the model's description of the image.
type VisionOutput struct {
	Description string
}

// AudioInput is raw audio for transcription.
type AudioInput struct {
	Data     []byte
	Filename string
	Language string
}

// Transcript is the recognized text.
type Transcript struct {
	Text     string
	Language string
}

// SpeechInput is text for synthesis.
type SpeechInput struct {
	Text  string
	Voice string
}

// SpeechOutput is synthesized audio.
type SpeechOutput struct {
	Audio  []byte
	Format string
}
