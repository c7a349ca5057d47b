package main

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/server"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	s, err := server.NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.CleanupVisitors(ctx)

	done := make(chan bool, 1)

	go s.GracefulShutdown(done)

	err = s.Start()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	<-done
	log.Info().Msg("Graceful shutdown complete.")
}
