package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Daniel-Penner/CampusLink-sub000/internal/config"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/log"
	"github.com/Daniel-Penner/CampusLink-sub000/internal/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := log.New("info")

	cfg, _, err := config.Load(logger, configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("schema applied")
	return nil
}
