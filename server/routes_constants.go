package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Pages
	RouteIndex         = "/"
	RouteDashboard     = "/dashboard"
	RouteDashboardDemo = "/dashboard/demo"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteCallback   = "/callback"

	// API Routes
	RouteAPISession     = "/api/session"
	RouteAPIStats       = "/api/stats"
	RouteAPIProfile     = "/api/profile"
	RouteAPISessions    = "/api/sessions"
	RouteAPIMetrics     = "/api/metrics"
	RouteAPIDemoMetrics = "/api/demo/metrics"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
)
