// Package chat forwards conversations to the OpenRouter chat completion API.
package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-assistant-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/internal/upstream"
)

const (
	DefaultBaseURL = "https://openrouter.ai"
	completionPath = "/api/v1/chat/completions"

	MaxTokens   = 500
	Temperature = 0.7
	Timeout     = 30 * time.Second

	serviceName = "OpenRouter"
)

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	referer string
	title   string
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

// WithAttribution sets the referer and title OpenRouter shows for the app.
func WithAttribution(referer, title string) Option {
	return func(c *Client) {
		c.referer = referer
		c.title = title
	}
}

func New(apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = config.DefaultOpenRouterModel
	}
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends messages to the model and returns the assistant's reply.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.Configured() {
		return "", apperrors.Configuration("OPENROUTER_API_KEY no está configurada")
	}
	if len(messages) == 0 {
		return "", apperrors.Validation("el campo 'messages' es obligatorio")
	}
	for _, m := range messages {
		if m.Role == "" {
			return "", apperrors.Validation("cada mensaje necesita 'role' y 'content'")
		}
	}

	req, err := upstream.NewJSONRequest(ctx, http.MethodPost, c.baseURL+completionPath, completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   MaxTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	var resp completionResponse
	if err := upstream.DoJSON(c.http, req, serviceName, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Downstream("OpenRouter no devolvió ninguna respuesta", http.StatusBadGateway, "")
	}
	return resp.Choices[0].Message.Content, nil
}
