package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/autostack/gateway/internal/models"
	"github.com/autostack/gateway/internal/repository"
	"github.com/autostack/gateway/internal/services"
	"github.com/autostack/gateway/pkg/database"
	"github.com/autostack/gateway/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations completed")
		return nil
	},
}

var (
	setTierEmail string
	setTierName  string
)

var setTierCmd = &cobra.Command{
	Use:   "set-tier",
	Short: "Change a user's subscription tier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tier, err := models.ParseTier(setTierName)
		if err != nil {
			return err
		}
		_, db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		users := repository.NewUserRepository(db)
		user, err := findUser(cmd, users, setTierEmail)
		if err != nil {
			return err
		}
		if err := users.UpdateTier(cmd.Context(), user.ID, tier); err != nil {
			return err
		}
		logger.L().Info("subscription tier changed",
			zap.String("user_id", user.ID.String()),
			zap.String("from", string(user.SubscriptionTier)),
			zap.String("to", string(tier)),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", user.Email, user.SubscriptionTier, tier)
		return nil
	},
}

var createAPIKeyEmail string

var createAPIKeyCmd = &cobra.Command{
	Use:   "create-api-key",
	Short: "Issue a new API key for a user, replacing any previous key",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, err := openDatabase(cmd)
		if err != nil {
			return err
		}
		defer closeDatabase(db)

		users := repository.NewUserRepository(db)
		user, err := findUser(cmd, users, createAPIKeyEmail)
		if err != nil {
			return err
		}
		// Token signing is not used here, so the secret only has to be non-empty.
		auth := services.NewAuthService(users, []byte(cfg.JWTSecret+"admin"), time.Hour)
		key, err := auth.IssueAPIKey(cmd.Context(), user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key)
		return nil
	},
}

func init() {
	setTierCmd.Flags().StringVar(&setTierEmail, "email", "", "user email")
	setTierCmd.Flags().StringVar(&setTierName, "tier", "", "free, starter, pro or enterprise")
	_ = setTierCmd.MarkFlagRequired("email")
	_ = setTierCmd.MarkFlagRequired("tier")

	createAPIKeyCmd.Flags().StringVar(&createAPIKeyEmail, "email", "", "user email")
	_ = createAPIKeyCmd.MarkFlagRequired("email")
}

func findUser(cmd *cobra.Command, users repository.UserRepository, email string) (*models.User, error) {
	var user models.User
	if err := users.GetByEmail(cmd.Context(), email, &user); err != nil {
		return nil, fmt.Errorf("lookup %q: %w", email, err)
	}
	return &user, nil
}
