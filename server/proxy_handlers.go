package server

import (
	"io"
	"net/http"

	"github.com/jrsteele09/go-assistant-gateway/chat"
	"github.com/rs/zerolog"
)

type chatRequest struct {
	Messages []chat.Message `json:"messages"`
}

type chatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type speakRequest struct {
	Text string `json:"text"`
}

// configResponse tells the browser which proxies are usable. The chat and
// speech keys are reduced to booleans; the weather key is sent verbatim.
type configResponse struct {
	OpenRouterConfigured bool   `json:"openrouter_configured"`
	ElevenLabsConfigured bool   `json:"elevenlabs_configured"`
	WeatherAPIKey        string `json:"weather_api_key"`
	BaseURL              string `json:"base_url"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		reply, err := s.chat.Complete(r.Context(), req.Messages)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Success: true, Message: reply})
	}
}

// SpeakHandler streams synthesized audio back to the caller. Errors are
// still reported as JSON.
func (s *Server) SpeakHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req speakRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		audio, err := s.speech.Synthesize(r.Context(), req.Text)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer audio.Body.Close()

		w.Header().Set("Content-Type", audio.ContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, audio.Body); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("audio stream interrupted")
		}
	}
}

// WeatherHandler relays the provider's JSON body unchanged.
func (s *Server) WeatherHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		body, err := s.weather.Current(r.Context(), q.Get("lat"), q.Get("lon"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func (s *Server) ConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, configResponse{
			OpenRouterConfigured: s.config.OpenRouterConfigured(),
			ElevenLabsConfigured: s.config.ElevenLabsConfigured(),
			WeatherAPIKey:        s.config.WeatherAPIKey,
			BaseURL:              s.config.GetBaseURL(),
		})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

// PreflightHandler answers CORS preflight requests; the headers themselves
// are written by CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
