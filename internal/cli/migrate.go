package cli

import (
	"fmt"

	"github.com/Kasha228/forecasting/internal/config"
	"github.com/Kasha228/forecasting/internal/pkg/logger"
	"github.com/Kasha228/forecasting/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Wait for the forecast store and apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			logCfg := logger.DefaultConfig()
			logCfg.Level = cfg.LogLevel
			logCfg.Format = "console"
			log, err := logger.New(logCfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			repo, err := repository.Open(cmd.Context(), cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL,
				cfg.DBWait.MaxRetries, cfg.DBWait.RetryDelay(), log)
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.RunMigrations(cmd.Context()); err != nil {
				return err
			}
			log.Info("database initialized", zap.String("driver", cfg.DatabaseDriver))
			fmt.Fprintln(a.stdout, "migrations applied")
			return nil
		},
	}
}
