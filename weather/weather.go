// Package weather fetches current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/jrsteele09/go-assistant-gateway/internal/upstream"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org"
	currentPath    = "/data/2.5/weather"
	Timeout        = 10 * time.Second

	serviceName = "OpenWeatherMap"
)

type Client struct {
	apiKey  string
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

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: Timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the provider's JSON body for the given coordinates
// unmodified. lat and lon are passed through as received.
func (c *Client) Current(ctx context.Context, lat, lon string) (json.RawMessage, error) {
	if lat == "" || lon == "" {
		return nil, apperrors.Validation("los parámetros 'lat' y 'lon' son obligatorios")
	}
	if c.apiKey == "" {
		return nil, apperrors.Configuration("WEATHER_API_KEY no está configurada")
	}

	q := url.Values{}
	q.Set("lat", lat)
	q.Set("lon", lon)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "es")

	req, err := upstream.NewJSONRequest(ctx, http.MethodGet, c.baseURL+currentPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := upstream.Do(c.http, req, serviceName)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Classify(err, "no se pudo leer la respuesta del clima")
	}
	if !json.Valid(body) {
		return nil, apperrors.Downstream("respuesta del clima no es JSON", http.StatusBadGateway, string(body))
	}
	return body, nil
}
