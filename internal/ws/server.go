package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	appsession "shot-clock/internal/app/session"
	"shot-clock/internal/clock"
	"shot-clock/internal/config"
	"shot-clock/internal/store"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Server struct {
	svc      *appsession.Service
	hub      *Hub
	cfg      config.WSConfig
	upgrader websocket.Upgrader
}

// NewServer builds the websocket endpoint. A nil checkOrigin accepts every
// origin.
func NewServer(svc *appsession.Service, hub *Hub, cfg config.WSConfig, checkOrigin func(*http.Request) bool) *Server {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = 4096
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		svc:      svc,
		hub:      hub,
		cfg:      cfg,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	c := newClient(store.NewID(), conn, s.newLimiter())
	metricConnectionsTotal.Add(1)
	metricConnectionsActive.Add(1)
	log.Info().
		Str("conn_id", c.id).
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("remote_addr", r.RemoteAddr).
		Msg("ws_connected")

	go c.writeLoop(s.cfg.PingInterval)
	s.readLoop(c)
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.cfg.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.cfg.MessageBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), burst)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.hub.Leave(c)
		c.close()
		metricConnectionsActive.Add(-1)
		log.Info().
			Str("conn_id", c.id).
			Str("session_id", c.sessionID).
			Str("device_id", c.deviceID).
			Msg("ws_disconnected")
	}()

	c.conn.SetReadLimit(s.cfg.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("ws read failed")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		if !c.limiter.Allow() {
			metricRateLimited.Add(1)
			continue
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *Client, msg []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &base); err != nil {
		metricBadMessages.Add(1)
		return
	}
	switch base.Type {
	case TypeJoinSession:
		var join JoinSessionMessage
		if err := json.Unmarshal(msg, &join); err != nil {
			metricBadMessages.Add(1)
			return
		}
		s.handleJoin(c, join)
	case TypeUpdateSettings:
		var upd UpdateSettingsMessage
		if err := json.Unmarshal(msg, &upd); err != nil {
			metricBadMessages.Add(1)
			return
		}
		s.handleUpdateSettings(c, upd)
	case TypeAction, TypeGameAction:
		var action ActionMessage
		if err := json.Unmarshal(msg, &action); err != nil {
			metricBadMessages.Add(1)
			return
		}
		s.handleAction(c, action)
	case TypeLeave:
		s.hub.Leave(c)
		c.sessionID = ""
		c.privileged = false
	default:
		metricBadMessages.Add(1)
	}
}

func (s *Server) handleJoin(c *Client, join JoinSessionMessage) {
	id := strings.TrimSpace(join.SessionID)
	privileged, err := s.svc.Authorize(id, join.Secret)
	if err != nil {
		return
	}
	mode := clock.ParseMode(join.Role)
	if join.Role == "" && join.IsAdmin {
		mode = clock.ModePrivileged
	}
	if mode == clock.ModePrivileged && !privileged {
		mode = clock.ModeParticipant
	}
	err = s.hub.Join(c, id, mode, func() (clock.State, error) {
		return s.svc.Snapshot(id)
	})
	if err != nil {
		return
	}
	c.sessionID = id
	c.deviceID = strings.TrimSpace(join.DeviceID)
	c.privileged = privileged
	log.Info().
		Str("conn_id", c.id).
		Str("session_id", id).
		Str("device_id", c.deviceID).
		Str("mode", string(mode)).
		Bool("privileged", privileged).
		Msg("ws_joined")
}

func (s *Server) handleUpdateSettings(c *Client, upd UpdateSettingsMessage) {
	id := s.sessionFor(c, upd.SessionID)
	err := s.svc.UpdateSettings(id, s.actor(c, id, upd.DeviceID), upd.Settings)
	if err != nil && !errors.Is(err, appsession.ErrNotFound) {
		log.Debug().Err(err).Str("conn_id", c.id).Str("session_id", id).Msg("update_settings_rejected")
	}
}

func (s *Server) handleAction(c *Client, msg ActionMessage) {
	id := s.sessionFor(c, msg.SessionID)
	if c.deviceID != "" {
		msg.DeviceID = c.deviceID
	}
	a, err := decodeAction(msg)
	if err != nil {
		metricBadMessages.Add(1)
		log.Debug().Err(err).Str("conn_id", c.id).Str("action", msg.Action).Msg("ws action invalid")
		return
	}
	res, err := s.svc.Apply(id, s.actor(c, id, msg.DeviceID), a)
	if _, ok := a.(clock.Claim); ok && !errors.Is(err, appsession.ErrNotFound) {
		s.sendClaimResult(c, res, err)
	}
}

func (s *Server) sendClaimResult(c *Client, res appsession.ActionResult, err error) {
	out := ClaimResult{Type: TypeClaimResult, Success: err == nil}
	if err != nil {
		out.Error = appsession.ErrorCode(err)
	} else if res.Claim != nil {
		out.Position = res.Claim.Position
		out.Name = res.Claim.Name
		out.SeatID = res.Claim.ID
	}
	msg, mErr := json.Marshal(out)
	if mErr != nil {
		return
	}
	s.hub.Send(c, msg)
}

func (s *Server) sessionFor(c *Client, sessionID string) string {
	if id := strings.TrimSpace(sessionID); id != "" {
		return id
	}
	return c.sessionID
}

// actor resolves who is acting on sessionID. Privilege earned by joining
// one session does not carry over to another.
func (s *Server) actor(c *Client, sessionID, deviceID string) appsession.Actor {
	if c.deviceID != "" {
		deviceID = c.deviceID
	}
	privileged := c.privileged && c.sessionID == sessionID
	if !privileged {
		if ok, err := s.svc.Authorize(sessionID, ""); err == nil && ok {
			privileged = true
		}
	}
	return appsession.Actor{DeviceID: deviceID, Privileged: privileged}
}
