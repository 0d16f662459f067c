package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/srishtiii28/alphascan/internal/config"
	"github.com/srishtiii28/alphascan/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	sourceURL := os.Getenv("MIGRATIONS_URL")
	if sourceURL == "" {
		sourceURL = "file://migrations"
	}

	pg := cfg.Store.Postgres
	log.Info().Str("host", fmt.Sprintf("%s:%d", pg.Host, pg.Port)).Str("database", pg.Database).
		Msg("running migrations")

	if err := postgres.RunMigrations(pg.DSN(), sourceURL); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}
