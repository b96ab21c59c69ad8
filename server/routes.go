package server

import (
	"github.com/rs/zerolog/log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))

	// Dashboard pages
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.DashboardHandler(), s.HTMLMiddleWare(s.RequireSession(false))...))
	s.RegisterRouteHandler("GET "+RouteDashboardDemo, ChainMiddleware(s.DemoDashboardHandler(), s.HTMLMiddleWare()...))

	// Public API routes
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIStats, ChainMiddleware(s.StatsHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIDemoMetrics, ChainMiddleware(s.DemoMetricsHandler(), s.APIMiddleware()...))

	// Protected API routes (require a login session cookie)
	s.RegisterRouteHandler("GET "+RouteAPIProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireSession(true))...))
	s.RegisterRouteHandler("GET "+RouteAPISessions, ChainMiddleware(s.SessionsHandler(), s.APIMiddleware(s.RequireSession(true))...))
	s.RegisterRouteHandler("GET "+RouteAPIMetrics, ChainMiddleware(s.MetricsHandler(), s.APIMiddleware(s.RequireSession(true))...))

	s.RegisterRouteHandler("GET "+RouteStaticCSS, ChainMiddleware(s.StaticFileHandler(), s.StaticMiddleware()...))
}

func logError(method, path, error string) {
	errorString := Red + error + ResetColor
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, errorString)
}
