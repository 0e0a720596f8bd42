package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/alphapredict/internal/auth"
	"github.com/seenimoa/alphapredict/internal/config"
)

// --- User Command (local SQLite accounts) ---

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts in the local SQLite user store",
}

var userSetCmd = &cobra.Command{
	Use:   "set [email]",
	Short: "Create or update a user record",
	Long: `Creates or updates a user in auth.sqlite.path. The password is read from
ALPHAPREDICT_PASSWORD; when unset, an existing user keeps their password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.Provider != config.AuthSQLite {
			return fmt.Errorf("auth.provider is %q; user management needs %q", cfg.Auth.Provider, config.AuthSQLite)
		}
		store, err := auth.OpenSQLiteStore(cfg.Auth.SQLite.Path, log)
		if err != nil {
			return err
		}
		defer store.Close()

		rec := auth.UserRecord{Email: args[0]}
		rec.FirstName, _ = cmd.Flags().GetString("first-name")
		rec.LastName, _ = cmd.Flags().GetString("last-name")
		rec.Tier, _ = cmd.Flags().GetString("tier")
		rec.Paid, _ = cmd.Flags().GetBool("paid")

		resolver, err := loadResolver(cfg)
		if err != nil {
			return err
		}
		if _, err := resolver.Resolve(rec.Tier); err != nil {
			return err
		}

		if err := store.Upsert(context.Background(), rec, os.Getenv("ALPHAPREDICT_PASSWORD")); err != nil {
			return err
		}
		fmt.Printf("✅ %s saved (tier %s, paid %v)\n", rec.Email, rec.Tier, rec.Paid)
		return nil
	},
}

var userShowCmd = &cobra.Command{
	Use:   "show [email]",
	Short: "Print a user record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := auth.OpenSQLiteStore(cfg.Auth.SQLite.Path, log)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Lookup(context.Background(), args[0])
		if errors.Is(err, auth.ErrRecordNotFound) {
			return fmt.Errorf("no user %s", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Printf("Email:  %s\n", rec.Email)
		fmt.Printf("Name:   %s %s\n", rec.FirstName, rec.LastName)
		fmt.Printf("Tier:   %s\n", rec.Tier)
		fmt.Printf("Paid:   %v\n", rec.Paid)
		return nil
	},
}

func init() {
	userSetCmd.Flags().String("first-name", "", "first name")
	userSetCmd.Flags().String("last-name", "", "last name")
	userSetCmd.Flags().String("tier", "Basic", "subscription tier")
	userSetCmd.Flags().Bool("paid", false, "whether the subscription is paid")

	userCmd.AddCommand(userSetCmd)
	userCmd.AddCommand(userShowCmd)
}
