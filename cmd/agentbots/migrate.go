package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/agentbots/internal/config"
	"github.com/kitbuilder587/agentbots/internal/repository/postgres"
)

func newMigrateCmd() *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, logCfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			logger, err := config.NewLogger(logCfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			if down > 0 {
				return postgres.MigrateDown(dbCfg.URL, down, logger)
			}
			return postgres.Migrate(dbCfg.URL, logger)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "Roll back this many migrations instead of applying.")
	return cmd
}
