package httptransport

import (
	"expvar"
	"net/http"
	"sort"
	"strings"

	appsession "shot-clock/internal/app/session"
	"shot-clock/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const wsPath = "/ws"

func NewRouter(svc *appsession.Service, wsHandler http.HandlerFunc, corsPolicy *cors.Cors, cfg config.ServerConfig) *chi.Mux {
	sessions := NewSessionHandlers(svc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsPolicy.Handler)

	r.With(APILogMiddleware()).Get("/healthz", Health())
	r.Get(wsPath, wsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/sessions", sessions.Create())
		r.Get("/sessions/{session_id}", sessions.Get())
		r.Post("/sessions/{session_id}/join", sessions.Join())
		r.Delete("/sessions/{session_id}", sessions.Delete())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/sessions", sessions.List())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

// Route is one registered endpoint. Params are the chi URL parameters in
// the pattern and Websocket marks the upgrade endpoint.
type Route struct {
	Method    string
	Path      string
	Params    []string
	Websocket bool
}

// Routes lists the router's endpoints ordered by path then method.
func Routes(r chi.Routes) ([]Route, error) {
	var routes []Route
	err := chi.Walk(r, func(method, pattern string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, Route{
			Method:    method,
			Path:      pattern,
			Params:    routeParams(pattern),
			Websocket: pattern == wsPath,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes, nil
}

func routeParams(pattern string) []string {
	var params []string
	for _, part := range strings.Split(pattern, "/") {
		if name, ok := strings.CutPrefix(part, "{"); ok {
			name, _, _ = strings.Cut(strings.TrimSuffix(name, "}"), ":")
			params = append(params, name)
		}
	}
	return params
}

func LogRoutes(r chi.Routes) {
	routes, err := Routes(r)
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	for _, rt := range routes {
		ev := log.Info().Str("method", rt.Method).Str("path", rt.Path)
		if len(rt.Params) > 0 {
			ev = ev.Strs("params", rt.Params)
		}
		if rt.Websocket {
			ev = ev.Bool("websocket", true)
		}
		ev.Msg("route")
	}
	log.Info().Int("count", len(routes)).Msg("routes registered")
}
