package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process wide configuration. It is loaded once at start up and
// passed explicitly to every component that needs it.
type Config struct {
	EnvVars
	Cors
	OAuth
	Session
	Providers
}

// Load reads the configuration from v. Environment variables always apply;
// a config file is read when configFile is not empty.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("[config Load] reading %s: %w", configFile, err)
		}
	}

	c := Config{
		EnvVars: EnvVars{
			Port:     v.GetString(portKey),
			AppName:  v.GetString(appNameKey),
			Env:      strings.ToUpper(v.GetString(envKey)),
			BaseURL:  strings.TrimSuffix(v.GetString(baseURLKey), "/"),
			LogLevel: v.GetString(logLevelKey),
		},
		Cors: Cors{
			Origins: parseOrigins(v.GetString(allowedOriginsKey)),
		},
		OAuth: OAuth{
			ClientID:         v.GetString(clientIDKey),
			ClientSecret:     v.GetString(clientSecretKey),
			Issuer:           v.GetString(issuerKey),
			Scope:            v.GetString(scopesKey),
			AuthStateTimeout: v.GetDuration(authStateTimeoutKey),
		},
		Session: Session{
			Secret:       v.GetString(sessionSecretKey),
			MaxAge:       v.GetDuration(sessionMaxAgeKey),
			CookieSecure: v.GetBool(sessionCookieSecureKey),
		},
		Providers: Providers{
			OpenRouterAPIKey:  v.GetString(openRouterAPIKeyKey),
			OpenRouterModel:   v.GetString(openRouterModelKey),
			ElevenLabsAPIKey:  v.GetString(elevenLabsAPIKeyKey),
			ElevenLabsVoiceID: v.GetString(elevenLabsVoiceIDKey),
			WeatherAPIKey:     v.GetString(weatherAPIKeyKey),
		},
	}

	if c.Session.Secret == "" {
		if !c.IsDev() {
			return Config{}, fmt.Errorf("[config Load] %s is required outside DEV", strings.ToUpper(sessionSecretKey))
		}
		c.Session.Secret = randomSecret()
		c.Session.Ephemeral = true
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portKey, "5000")
	v.SetDefault(appNameKey, "JARVIS Gateway")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(baseURLKey, "http://localhost:5000")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(allowedOriginsKey, "")
	v.SetDefault(issuerKey, DefaultIssuer)
	v.SetDefault(scopesKey, DefaultScope)
	v.SetDefault(authStateTimeoutKey, "15m")
	v.SetDefault(sessionMaxAgeKey, "24h")
	v.SetDefault(sessionCookieSecureKey, false)
	v.SetDefault(openRouterModelKey, DefaultOpenRouterModel)
	v.SetDefault(elevenLabsVoiceIDKey, DefaultElevenLabsVoiceID)

	// Keys without a default still need to be known to viper so that
	// AutomaticEnv and config files resolve them the same way.
	for _, k := range []string{clientIDKey, clientSecretKey, sessionSecretKey, openRouterAPIKeyKey, elevenLabsAPIKeyKey, weatherAPIKeyKey} {
		v.SetDefault(k, "")
	}
}

func parseOrigins(raw string) AllowedOrigins {
	origins := AllowedOrigins{}
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = nullValue{}
		}
	}
	return origins
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
