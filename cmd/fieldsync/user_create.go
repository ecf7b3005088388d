package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/harvestguard/fieldsync/internal/config"
	"github.com/harvestguard/fieldsync/internal/store"
	"github.com/harvestguard/fieldsync/internal/types"
)

var (
	createPassword  string
	createEmail     string
	createFirstName string
	createLastName  string
)

var userCreateCmd = &cobra.Command{
	Use:   "create-user <username>",
	Short: "Create a user account",
	Long:  "Create a user account directly in the database, with its profile row, bypassing the HTTP registration endpoint. Useful for bootstrapping a fresh deployment.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&createPassword, "password", "",
		"Password for the new account (required)")
	userCreateCmd.Flags().StringVar(&createEmail, "email", "",
		"Email address")
	userCreateCmd.Flags().StringVar(&createFirstName, "first-name", "",
		"First name")
	userCreateCmd.Flags().StringVar(&createLastName, "last-name", "",
		"Last name")
	userCreateCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	username := args[0]
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(createPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &types.User{
		Username:     username,
		Email:        createEmail,
		FirstName:    createFirstName,
		LastName:     createLastName,
		PasswordHash: string(hash),
	}
	if err := db.CreateUser(ctx, user); err != nil {
		if store.IsConflict(err) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created user %q (id: %d)\n", user.Username, user.ID)
	return nil
}
