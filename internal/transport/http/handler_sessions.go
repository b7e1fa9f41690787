package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	appsession "shot-clock/internal/app/session"

	"github.com/go-chi/chi/v5"
)

// SessionSecretHeader carries the session secret on privileged HTTP calls.
const SessionSecretHeader = "X-Session-Secret"

type SessionHandlers struct {
	svc *appsession.Service
}

func NewSessionHandlers(svc *appsession.Service) *SessionHandlers {
	return &SessionHandlers{svc: svc}
}

func (h *SessionHandlers) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionCreateTotal.Add(1)
		var req appsession.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricSessionCreateErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := h.svc.Create(req)
		if err != nil {
			metricSessionCreateErrors.Add(1)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func (h *SessionHandlers) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := h.svc.Get(chi.URLParam(r, "session_id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, view)
	}
}

// Join accepts an empty body; the device then gets an issued id.
func (h *SessionHandlers) Join() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionJoinTotal.Add(1)
		var req appsession.JoinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		res, err := h.svc.Join(chi.URLParam(r, "session_id"), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, res)
	}
}

func (h *SessionHandlers) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionDeleteTotal.Add(1)
		id := chi.URLParam(r, "session_id")
		ok, err := h.svc.Authorize(id, r.Header.Get(SessionSecretHeader))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !ok {
			writeServiceError(w, appsession.ErrUnauthorized)
			return
		}
		actor := appsession.Actor{DeviceID: "http:" + strings.TrimSpace(r.RemoteAddr), Privileged: true}
		if err := h.svc.Delete(id, actor); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func (h *SessionHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := parseListPage(r)
		all := h.svc.List()
		total := len(all)
		from, to := page.bounds(total)
		writeJSON(w, map[string]any{
			"items":  all[from:to],
			"total":  total,
			"limit":  page.Limit,
			"offset": from,
		})
	}
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	}
}
