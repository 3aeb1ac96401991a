package config

import "fmt"

const (
	portKey     = "port"
	appNameKey  = "app_name"
	envKey      = "env"
	baseURLKey  = "base_url"
	logLevelKey = "log_level"
)

type EnvVars struct {
	Port     string
	AppName  string
	Env      string
	BaseURL  string
	LogLevel string
}

// GetPort returns the listen address, e.g. ":5000".
func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "5000"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

// GetBaseURL returns the externally visible base URL (e.g. "https://jarvis.example.com").
// It is used to build the OAuth redirect URI.
func (e EnvVars) GetBaseURL() string {
	return e.BaseURL
}
