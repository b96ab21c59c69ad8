package server

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/fm-metrics/dashboard"
	"github.com/jrsteele09/fm-metrics/internal/errors"
	"github.com/rs/zerolog/log"
)

type indexPageData struct {
	AppName    string
	TotalUsers int64
	ShowUsers  bool
	LoginReady bool
}

type dashboardPageData struct {
	AppName string
	*dashboard.Dashboard
}

// IndexHandler renders the landing page, signed in visitors go straight to their dashboard
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if s.isSignedIn(r) {
			http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
			return
		}

		data := indexPageData{
			AppName:    s.config.GetAppName(),
			LoginReady: s.oauth.ClientID != "",
		}
		// The counter is meaningless against a developer's local database
		if s.env != "DEV" {
			if count, err := s.members.Count(r.Context()); err == nil {
				data.TotalUsers = count
				data.ShowUsers = true
			} else {
				log.Err(err).Msg("Failed to count members")
			}
		}
		renderPage(w, tmpl, http.StatusOK, data)
	}
}

// DashboardHandler renders the signed in user's dashboard
func (s *Server) DashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")

	return s.withFetcher(func(w http.ResponseWriter, r *http.Request, f dashboard.Fetcher) {
		d, err := s.dashboards.Build(r.Context(), f, s.dashboardOptions())
		switch {
		case err == nil:
			renderPage(w, tmpl, http.StatusOK, dashboardPageData{AppName: s.config.GetAppName(), Dashboard: d})
		case errors.Is(err, errors.ErrUnauthorized):
			s.endSession(w, r)
			http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
		case errors.Is(err, errors.ErrRateLimited):
			http.Error(w, "Focusmate is rate limiting requests, try again shortly", http.StatusTooManyRequests)
		default:
			log.Err(err).Msg("Failed to build dashboard")
			http.Error(w, "Failed to load your Focusmate history", http.StatusBadGateway)
		}
	})
}

// DemoDashboardHandler renders the dashboard over generated data
func (s *Server) DemoDashboardHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("dashboard.html")

	return func(w http.ResponseWriter, r *http.Request) {
		d, err := s.buildDemo(r.Context())
		if err != nil {
			http.Error(w, "Failed to build demo", http.StatusInternalServerError)
			return
		}
		renderPage(w, tmpl, http.StatusOK, dashboardPageData{AppName: s.config.GetAppName(), Dashboard: d})
	}
}

func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
	}
}
