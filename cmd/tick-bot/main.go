package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"shot-clock/internal/clock"
	"shot-clock/internal/config"
	"shot-clock/internal/logging"
	"shot-clock/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	logCfg, err := config.LoadLog()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(logCfg); err != nil {
		panic(err)
	}
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal().Err(err).Msg("load bot config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, nil)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.WSURL).Msg("dial failed")
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	join := ws.JoinSessionMessage{
		Type:      ws.TypeJoinSession,
		SessionID: cfg.SessionID,
		DeviceID:  cfg.DeviceID,
		Role:      cfg.Role,
		Secret:    cfg.Secret,
	}
	if err := write(join); err != nil {
		log.Fatal().Err(err).Msg("join failed")
	}

	var running atomic.Bool
	go tickLoop(ctx, cfg, &running, write)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Msg("connection closed")
			}
			return
		}
		var snap ws.StateSnapshot
		if err := json.Unmarshal(data, &snap); err != nil || snap.Type != ws.TypeStateSnapshot {
			continue
		}
		running.Store(snap.State.Running && !snap.State.Paused)
		logSnapshot(snap)
	}
}

// tickLoop emits one TICK per interval while the last snapshot showed a
// running game.
func tickLoop(ctx context.Context, cfg config.BotConfig, running *atomic.Bool, write func(any) error) {
	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !running.Load() {
				continue
			}
			msg := ws.ActionMessage{
				Type:      ws.TypeAction,
				SessionID: cfg.SessionID,
				Action:    string(clock.KindTick),
				DeviceID:  cfg.DeviceID,
			}
			if err := write(msg); err != nil {
				log.Error().Err(err).Msg("tick failed")
				return
			}
		}
	}
}

func logSnapshot(snap ws.StateSnapshot) {
	ev := log.Info().
		Str("session_id", snap.SessionID).
		Bool("running", snap.State.Running).
		Bool("paused", snap.State.Paused).
		Int("claimed", snap.State.ClaimedCount())
	if cur, ok := snap.State.CurrentSeat(); ok {
		ev = ev.Str("current_seat", cur.ID).Str("current_name", cur.Name).Int("remaining", cur.RemainingTime)
	}
	ev.Msg("snapshot")
}
