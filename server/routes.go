package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex+"{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.LoggingMiddleware))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))

	// Google productivity, acting for the session's user
	s.RegisterRouteHandler("POST "+RouteAPICreateEvent, ChainMiddleware(s.CreateEventHandler(), s.APIMiddleware(s.RequireCredentials)...))
	s.RegisterRouteHandler("POST "+RouteAPICreateTask, ChainMiddleware(s.CreateTaskHandler(), s.APIMiddleware(s.RequireCredentials)...))
	s.RegisterRouteHandler("GET "+RouteAPIListEvents, ChainMiddleware(s.ListEventsHandler(), s.APIMiddleware(s.RequireCredentials)...))
	s.RegisterRouteHandler("GET "+RouteAPIListTasks, ChainMiddleware(s.ListTasksHandler(), s.APIMiddleware(s.RequireCredentials)...))
	s.RegisterRouteHandler("POST "+RouteAPIProcessCommand, ChainMiddleware(s.ProcessCommandHandler(), s.APIMiddleware(s.RequireCredentials)...))

	// Third party proxies
	s.RegisterRouteHandler("POST "+RouteAPIChat, ChainMiddleware(s.ChatHandler(), s.PublicAPIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPISpeak, ChainMiddleware(s.SpeakHandler(), s.PublicAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIWeather, ChainMiddleware(s.WeatherHandler(), s.PublicAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIConfig, ChainMiddleware(s.ConfigHandler(), s.PublicAPIMiddleware()...))

	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(s.PreflightHandler(), s.PublicAPIMiddleware()...))
}
