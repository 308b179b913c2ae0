package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/godilite/cafeteria-survey/internal/app"
	"github.com/godilite/cafeteria-survey/internal/config"
	"github.com/godilite/cafeteria-survey/internal/repository"
	"github.com/godilite/cafeteria-survey/internal/seed"
	"github.com/godilite/cafeteria-survey/internal/service"
)

// errNoSessions is returned by offlineSessions; the CLI never opens a session.
var errNoSessions = errors.New("sessions are not available from the command line")

type offlineSessions struct{}

func (offlineSessions) Get(context.Context, string, any) error { return errNoSessions }

func (offlineSessions) Set(context.Context, string, any, time.Duration) error { return errNoSessions }

func (offlineSessions) Delete(context.Context, string) error { return errNoSessions }

// env is what every command works against: the loaded config, a logger and a
// migrated store.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func openEnv(ctx context.Context) (*env, error) {
	_ = godotenv.Load(".env")
	cfg := config.LoadFromEnv()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := app.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close() {
	e.db.Close()
	_ = e.logger.Sync()
}

// withEnv adapts a command body that needs the store into a cobra RunE.
func withEnv(run func(cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd, e)
	}
}

func (e *env) seeder() *seed.Seeder {
	return seed.NewSeeder(repository.NewCatalogRepository(e.db), repository.NewResponseRepository(e.db), e.logger)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "surveyctl",
		Short: "Maintenance tasks for the cafeteria survey store",
		Long: `surveyctl applies the schema, loads demo data and manages staff accounts.

It reads the same environment as the server (DB_DRIVER, DB_PATH, TIMEZONE, ...)
and loads a .env file from the working directory when present.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newSeedDemoCmd(),
		newGenerateDatasetCmd(),
		newCreateStaffCmd(),
		newResetResponsesCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema and ensure the main survey configuration",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			configs := service.NewSurveyConfigService(repository.NewCatalogRepository(e.db), e.logger)
			if err := configs.Ensure(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Esquema actualizado.")
			return nil
		}),
	}
}

func newSeedDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Load the demo venues, cafeterias, shifts and tablets",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			catalog, err := seed.LoadDemoCatalog()
			if err != nil {
				return err
			}
			if err := e.seeder().ApplyCatalog(cmd.Context(), catalog); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Datos de prueba cargados correctamente.")
			return nil
		}),
	}
}

func newGenerateDatasetCmd() *cobra.Command {
	var opts seed.DatasetOptions

	cmd := &cobra.Command{
		Use:   "generate-dataset",
		Short: "Generate a yearly dataset of synthetic responses",
		Long: `Ensures a catalog of 5 venues with 3 cafeterias each and 3 scheduled shifts,
then inserts --total responses dated within --year, in batches of 1000.
The same --seed always produces the same dataset.`,
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			opts.Location = e.cfg.Location
			opts.Progress = func(inserted, total int) {
				fmt.Fprintf(cmd.OutOrStdout(), "  Insertadas %d / %d respuestas...\n", inserted, total)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generando dataset %d con total=%d, seed=%d...\n", opts.Year, opts.Total, opts.Seed)
			result, err := e.seeder().GenerateDataset(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if opts.Reset {
				fmt.Fprintf(cmd.OutOrStdout(), "Respuestas %d eliminadas: %d\n", opts.Year, result.Deleted)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset generado correctamente. Insertadas: %d\n", result.Inserted)
			return nil
		}),
	}

	cmd.Flags().IntVar(&opts.Total, "total", 20000, "Number of responses to generate")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 2026, "Seed for reproducible generation")
	cmd.Flags().IntVar(&opts.Year, "year", 2026, "Calendar year the responses fall in")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "Delete the year's responses before generating")
	return cmd
}

func newCreateStaffCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff user or reset its password",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			auth := service.NewAuthService(repository.NewStaffRepository(e.db), offlineSessions{},
				[]byte(e.cfg.JWTSecret), e.cfg.SessionTTL, e.logger)
			u, err := auth.CreateStaff(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Usuario %q listo.\n", u.Username)
			return nil
		}),
	}

	cmd.Flags().StringVar(&username, "username", "", "Staff username")
	cmd.Flags().StringVar(&password, "password", "", "Staff password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newResetResponsesCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "reset-responses",
		Short: "Delete every response registered during a year",
		RunE: withEnv(func(cmd *cobra.Command, e *env) error {
			catalog := service.NewCatalogService(repository.NewCatalogRepository(e.db),
				repository.NewResponseRepository(e.db), e.cfg.Location, e.logger)
			n, err := catalog.ResetResponses(cmd.Context(), year)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Respuestas %d eliminadas: %d\n", year, n)
			return nil
		}),
	}

	cmd.Flags().IntVar(&year, "year", 0, "Calendar year to delete")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}
