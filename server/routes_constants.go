package server

import "github.com/jrsteele09/go-assistant-gateway/internal/config"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteIndex  = "/"
	RouteHealth = "/healthz"

	// Auth Routes
	RouteLogin    = "/login"
	RouteCallback = config.CallbackPath
	RouteLogout   = "/logout"

	// Google productivity, require a logged in user
	RouteAPICreateEvent    = "/api/create-event"
	RouteAPICreateTask     = "/api/create-task"
	RouteAPIListEvents     = "/api/list-events"
	RouteAPIListTasks      = "/api/list-tasks"
	RouteAPIProcessCommand = "/api/process-command"

	// Third party proxies
	RouteAPIChat    = "/api/openrouter/chat"
	RouteAPISpeak   = "/api/elevenlabs/speak"
	RouteAPIWeather = "/api/weather"
	RouteAPIConfig  = "/api/config"

	// RouteAPIPreflight matches CORS preflight requests for every API route.
	RouteAPIPreflight = "/api/"
)
