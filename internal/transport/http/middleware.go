package httptransport

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	appsession "shot-clock/internal/app/session"
	"shot-clock/internal/logging"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v3"
	"github.com/rs/cors"
)

func APILogMiddleware() func(http.Handler) http.Handler {
	return httplog.RequestLogger(
		slog.New(slog.NewJSONHandler(logging.Writer(), &slog.HandlerOptions{})),
		&httplog.Options{
			Level:              slog.LevelInfo,
			Schema:             httplog.Schema{ResponseStatus: "status", ResponseDuration: "duration_ms"},
			LogRequestBody:     func(*http.Request) bool { return false },
			LogResponseBody:    func(*http.Request) bool { return false },
			LogRequestHeaders:  []string{},
			LogResponseHeaders: []string{},
			LogExtraAttrs: func(req *http.Request, _ string, _ int) []slog.Attr {
				rc := chi.RouteContext(req.Context())
				route := req.URL.Path
				if rc != nil && rc.RoutePattern() != "" {
					route = rc.RoutePattern()
				}
				return []slog.Attr{
					slog.String("request_id", chimw.GetReqID(req.Context())),
					slog.String("method", req.Method),
					slog.String("route", route),
					slog.String("session_id", chi.URLParam(req, "session_id")),
				}
			},
		},
	)
}

// NewCORS builds the cross-origin policy for the allowed client origins.
// "*" allows any origin.
func NewCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Admin-Key", SessionSecretHeader},
		MaxAge:         300,
	})
}

// WSOriginCheck applies the CORS origin list to websocket upgrades.
// Requests without an Origin header come from non-browser clients and are
// let through.
func WSOriginCheck(c *cors.Cors) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if r.Header.Get("Origin") == "" {
			return true
		}
		return c.OriginAllowed(r)
	}
}

func WriteHTTPError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code})
}

func writeServiceError(w http.ResponseWriter, err error) {
	code := appsession.ErrorCode(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, appsession.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, appsession.ErrUnauthorized):
		metricUnauthorizedTotal.Add(1)
		status = http.StatusUnauthorized
	case code != "internal_error":
		status = http.StatusBadRequest
	}
	WriteHTTPError(w, status, code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// AdminAuthMiddleware guards the listing and debug routes. An empty key
// leaves them open.
func AdminAuthMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey != "" && !adminKeyMatches(r, adminKey) {
				metricUnauthorizedTotal.Add(1)
				WriteHTTPError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminKeyMatches accepts the key from X-Admin-Key or a bearer token.
func adminKeyMatches(r *http.Request, adminKey string) bool {
	given := r.Header.Get("X-Admin-Key")
	if given == "" {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return false
		}
		given = token
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) == 1
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// listPage is the limit/offset window asked for on the session listing.
type listPage struct {
	Limit  int
	Offset int
}

func parseListPage(r *http.Request) listPage {
	q := r.URL.Query()
	p := listPage{Limit: queryInt(q.Get("limit"), defaultListLimit), Offset: queryInt(q.Get("offset"), 0)}
	p.Limit = min(max(p.Limit, 1), maxListLimit)
	p.Offset = max(p.Offset, 0)
	return p
}

// bounds clamps the page to total summaries and returns slice indexes.
func (p listPage) bounds(total int) (int, int) {
	from := min(p.Offset, total)
	return from, min(from+p.Limit, total)
}

func queryInt(v string, fallback int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return fallback
}
