package main

import (
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/snapframe/kiosk-analytics/internal/config"
	"github.com/snapframe/kiosk-analytics/internal/repository/postgres"
	"github.com/snapframe/kiosk-analytics/internal/service"
	"github.com/snapframe/kiosk-analytics/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func connect(c *cli.Context) (*postgres.DB, error) {
	db, err := sqlx.Connect("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return postgres.Wrap(db), nil
}

func runRollup(c *cli.Context) error {
	db, err := connect(c)
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.Load()
	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		batchSize = cfg.Rollup.BatchSize
	}

	svc := service.NewRollupService(
		postgres.NewSessionRepository(db),
		postgres.NewSalesRepository(db),
		postgres.NewTelemetryRepository(db),
		postgres.NewSummaryRepository(db),
		postgres.NewStoreRepository(db),
		batchSize,
	)

	start := time.Now()
	result, err := svc.Aggregate(c.Context, c.String("date"), c.String("kiosk"))
	if err != nil {
		return err
	}

	logger.Log.Info().
		Str("date", result.Date).
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("rollup run complete")

	if result.Failed > 0 {
		return fmt.Errorf("%d kiosk(s) failed to aggregate", result.Failed)
	}
	return nil
}

func applySchema(c *cli.Context) error {
	db, err := connect(c)
	if err != nil {
		return err
	}
	defer db.Close()

	ddl, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(c.Context, string(ddl)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Log.Info().Str("file", c.String("file")).Msg("schema applied")
	return nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "rollup",
		Usage: "Run daily kiosk summary aggregations",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Aggregate daily summaries for one date",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "date",
						Usage: "Day to aggregate in YYYY-MM-DD format",
						Value: time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
					},
					&cli.StringFlag{
						Name:  "kiosk",
						Usage: "Restrict the run to one kiosk id",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of kiosks aggregated concurrently",
					},
				},
				Action: runRollup,
			},
			{
				Name:  "schema",
				Usage: "Apply the database schema",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:  "file",
						Usage: "Path to the schema DDL file",
						Value: "./schema.sql",
					},
				},
				Action: applySchema,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("rollup command failed")
	}
}
