package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/autostack/gateway/pkg/config"
	"github.com/autostack/gateway/pkg/database"
	"github.com/autostack/gateway/pkg/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autostack-admin",
	Short: "Operator tooling for the AutoStack gateway",
	Long: `autostack-admin runs maintenance tasks against the gateway database.

Examples:
  autostack-admin migrate
  autostack-admin set-tier --email dev@example.com --tier pro
  autostack-admin create-api-key --email dev@example.com`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(setTierCmd)
	rootCmd.AddCommand(createAPIKeyCmd)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// openDatabase loads config, initializes logging and connects.
func openDatabase(cmd *cobra.Command) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if _, err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, nil, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		_ = logger.SetLevel("debug")
	}
	db, err := database.Open(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logger.L().Debug("database connected", zap.String("driver", cfg.DatabaseDriver))
	return cfg, db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Sync()
}
