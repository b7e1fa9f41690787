package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appsession "shot-clock/internal/app/session"
	"shot-clock/internal/config"
	"shot-clock/internal/logging"
	"shot-clock/internal/store"
	httptransport "shot-clock/internal/transport/http"
	"shot-clock/internal/ws"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logging.Close()

	policy, _ := appsession.ParseClaimPolicy(cfg.Server.ClaimReconcile)
	clk := clockwork.NewRealClock()
	registry := store.NewRegistry(clk)
	claims := store.NewClaimIndex()
	hub := ws.NewHub()
	svc := appsession.NewService(registry, claims, hub, clk, appsession.Options{
		Defaults:         cfg.Defaults.Settings,
		ClaimPolicy:      policy,
		ServerClock:      cfg.Server.ServerClock,
		EnforcePrivilege: cfg.Server.EnforcePrivilegedActions,
	})
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := store.NewJanitor(registry, clk, cfg.Server.SessionRetention, cfg.Server.SweepInterval)
	janitor.OnEvict(svc.Evict)
	janitor.Start(ctx)

	corsPolicy := httptransport.NewCORS(cfg.Server.CORSOrigins)
	wsSrv := ws.NewServer(svc, hub, cfg.WS, httptransport.WSOriginCheck(corsPolicy))
	r := httptransport.NewRouter(svc, wsSrv.HandleWS, corsPolicy, cfg.Server)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().
		Str("addr", server.Addr).
		Strs("cors_origins", cfg.Server.CORSOrigins).
		Dur("session_retention", cfg.Server.SessionRetention).
		Dur("sweep_interval", cfg.Server.SweepInterval).
		Bool("server_clock", cfg.Server.ServerClock).
		Str("claim_policy", string(policy)).
		Bool("enforce_privilege", cfg.Server.EnforcePrivilegedActions).
		Msg("http listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server stopped")
}
