// cmd/discord/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/keshon/cmdcore/internal/bot"
	"github.com/keshon/cmdcore/internal/config"
	"github.com/keshon/cmdcore/internal/discord"
	"github.com/keshon/cmdcore/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger, closer := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	if err := cfg.RequireToken(); err != nil {
		logger.Fatal().Err(err).Send()
	}

	logger.Info().Strs("prefixes", cfg.Prefixes).Msg("Starting discord bot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := discord.New(cfg.DiscordToken, logger)
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	h, err := bot.NewHandler(cfg, logger, bot.Transport{Permissions: b, SelfID: b.SelfID})
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	defer h.Stop()

	errCh := make(chan error, 1)
	go func() {
		if err := b.Run(ctx, h); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("Received signal, shutting down...")
		cancel()
		if err := <-errCh; err != nil {
			logger.Error().Err(err).Msg("Discord bot error")
		}
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("Discord bot error")
		}
		cancel()
	}

	logger.Info().Msg("Discord bot exited cleanly")
}
