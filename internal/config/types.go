// Package config resolves, parses, validates, and defaults tellyspelly runtime configuration.
package config

// Config is the fully materialized runtime configuration used by tellyspelly.
type Config struct {
	Backend          string
	OpenAI           OpenAIConfig
	Local            LocalConfig
	RequestTimeoutMS int
	Audio            AudioConfig
	Paste            PasteConfig
	Transcript       TranscriptConfig
	Indicator        IndicatorConfig
	Clipboard        CommandConfig
	PasteCmd         CommandConfig
	Debug            DebugConfig
}

// Transcription backend identifiers.
const (
	BackendOpenAI = "openai"
	BackendLocal  = "local"
)

// Capture driver identifiers.
const (
	DriverPortAudio = "portaudio"
	DriverPulse     = "pulse"
)

// OpenAIConfig points the cloud backend at an API-compatible endpoint.
type OpenAIConfig struct {
	BaseURL string
}

// LocalConfig describes a whisper-compatible model server on the local machine.
type LocalConfig struct {
	URL        string
	HealthPath string
	Model      string
}

// AudioConfig selects the capture driver.
type AudioConfig struct {
	Driver          string
	PulseSampleRate int
}

// PasteConfig controls post-commit paste behavior.
type PasteConfig struct {
	Enable   bool
	Backend  string
	Shortcut string
}

// TranscriptConfig controls transcript normalization.
type TranscriptConfig struct {
	TrailingSpace       bool
	CapitalizeSentences bool
}

// IndicatorConfig controls notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorTimeoutMS int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
