// Package speech turns text into spoken audio with the ElevenLabs API.
package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	Model          = "eleven_multilingual_v2"
	AudioMIMEType  = "audio/mpeg"
	Timeout        = 30 * time.Second

	serviceName = "ElevenLabs"
)

// VoiceSettings are fixed for every synthesis.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

var DefaultVoiceSettings = VoiceSettings{
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0.3,
	UseSpeakerBoost: true,
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Audio is a synthesized clip. The caller must close Body.
type Audio struct {
	ContentType string
	Body        io.ReadCloser
}

type Client struct {
	apiKey  string
	voiceID string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func New(apiKey, voiceID string, opts ...Option) *Client {
	if voiceID == "" {
		voiceID = config.DefaultElevenLabsVoiceID
	}
	c := &Client{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Synthesize returns the audio stream for text.
func (c *Client) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if !c.Configured() {
		return nil, apperrors.Configuration("ELEVENLABS_API_KEY no está configurada")
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("el campo 'text' es obligatorio")
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", c.baseURL, url.PathEscape(c.voiceID))
	req, err := upstream.NewJSONRequest(ctx, http.MethodPost, endpoint, synthesisRequest{
		Text:          text,
		ModelID:       Model,
		VoiceSettings: DefaultVoiceSettings,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", AudioMIMEType)

	resp, err := upstream.Do(c.http, req, serviceName)
	if err != nil {
		return nil, err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = AudioMIMEType
	}
	return &Audio{ContentType: contentType, Body: resp.Body}, nil
}
