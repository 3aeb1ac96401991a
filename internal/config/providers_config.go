package config

const (
	openRouterAPIKeyKey  = "openrouter_api_key"
	openRouterModelKey   = "openrouter_model"
	elevenLabsAPIKeyKey  = "elevenlabs_api_key"
	elevenLabsVoiceIDKey = "elevenlabs_voice_id"
	weatherAPIKeyKey     = "weather_api_key"

	DefaultOpenRouterModel   = "openai/gpt-4o-mini"
	DefaultElevenLabsVoiceID = "21m00Tcm4TlvDq8ikWAM"
)

// Providers holds the server side keys of the third party APIs.
type Providers struct {
	OpenRouterAPIKey  string
	OpenRouterModel   string
	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	WeatherAPIKey     string
}

func (p Providers) OpenRouterConfigured() bool {
	return p.OpenRouterAPIKey != ""
}

func (p Providers) ElevenLabsConfigured() bool {
	return p.ElevenLabsAPIKey != ""
}
