package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/Masterminds/sprig/v3"
	"github.com/jrsteele09/go-assistant-gateway/session"
	"github.com/rs/zerolog"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem with the sprig
// function map available.
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(sprig.HtmlFuncMap()).Parse(string(content))
}

type indexData struct {
	AppName string
	User    *session.UserProfile
	Routes  map[string]string
}

// IndexHandler renders the landing page with the session's profile, or
// without one for an anonymous visitor.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := indexData{
			AppName: s.config.GetAppName(),
			Routes: map[string]string{
				"login":  RouteLogin,
				"logout": RouteLogout,
			},
		}
		if store, ok := session.FromContext(r.Context()); ok {
			data.User = store.Profile()
		}

		var buf bytes.Buffer
		if err := s.index.Execute(&buf, data); err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("Failed to render index")
			http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
}
