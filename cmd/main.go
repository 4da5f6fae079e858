package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mikkqu/rc-auth/internal/config"
	"github.com/mikkqu/rc-auth/internal/handlers"
	"github.com/mikkqu/rc-auth/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	svcs := services.Initialize(cfg)
	defer svcs.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.NewRouter(svcs),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("port", cfg.Port).Msg("RC auth server starting")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("ListenAndServe error")
	}
}
