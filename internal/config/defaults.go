package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendOpenAI,
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		Local: LocalConfig{
			URL:        "http://127.0.0.1:8387",
			HealthPath: "/health",
			Model:      "base",
		},
		RequestTimeoutMS: 60000,
		Audio: AudioConfig{
			Driver:          DriverPortAudio,
			PulseSampleRate: 48000,
		},
		Paste: PasteConfig{Enable: false, Backend: "keys", Shortcut: "CTRL,V"},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "notify",
			DesktopAppName: "tellyspelly",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
	}
}
