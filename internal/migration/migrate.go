package migration

import (
	"database/sql"
	"embed"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

// Embed SQL files from the local migrations folder
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// GooseAdapter routes goose output through zerolog.
type GooseAdapter struct {
	logger zerolog.Logger
}

func NewGooseAdapter(logger zerolog.Logger) *GooseAdapter {
	return &GooseAdapter{logger: logger.With().Str("component", "goose").Logger()}
}

func (a *GooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msgf(format, v...)
}

func (a *GooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msgf(format, v...)
}

// RunMigrations applies all pending schema migrations. Uniqueness constraints
// that back the ledger's idempotency guarantees live in these migrations, so
// the server refuses to start if they cannot be applied.
func RunMigrations(dbURL string, logger zerolog.Logger) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()

	goose.SetBaseFS(embeddedMigrations)

	if err := goose.Up(db, "migrations"); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Info().Msg("Migrations completed successfully")
}
