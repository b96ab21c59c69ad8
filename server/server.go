package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/focusmate"
	"github.com/jrsteele09/fm-metrics/internal/config"
	"github.com/jrsteele09/fm-metrics/members"
	"github.com/jrsteele09/fm-metrics/server/authflowrepo"
	"github.com/jrsteele09/fm-metrics/server/loginsession"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	oauth         *oauth2.Config
	httpClient    *http.Client
	dashboards    *dashboard.Service
	members       members.Repo
	loginSessions loginsession.Repo
	authState     authflowrepo.Repo
	assets        map[string]staticAsset
}

func New(config config.Config, memberRepo members.Repo, loginSessionRepo loginsession.Repo, authStateRepo authflowrepo.Repo) (*Server, error) {
	if memberRepo == nil || loginSessionRepo == nil || authStateRepo == nil {
		return nil, fmt.Errorf("[Server New] member, login session and auth state repos are required")
	}

	s := &Server{
		mux:           http.NewServeMux(),
		config:        config,
		oauth:         focusmate.NewOAuthConfig(config, config.GetBaseURL()+RouteCallback),
		httpClient:    &http.Client{Timeout: config.GetRequestTimeout()},
		dashboards:    dashboard.NewService(),
		members:       memberRepo,
		loginSessions: loginSessionRepo,
		authState:     authStateRepo,
	}
	s.env = config.GetEnv()

	assets, err := loadStaticAssets()
	if err != nil {
		return nil, err
	}
	s.assets = assets

	if s.oauth.ClientID == "" {
		log.Warn().Msg("FOCUSMATE_CLIENT_ID is not set, only the demo dashboard will work")
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
