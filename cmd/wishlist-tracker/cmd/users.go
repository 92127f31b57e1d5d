package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wishlist-tracker/internal/auth"
	domain "github.com/donaldgifford/wishlist-tracker/pkg/types"
)

func usersCmd() *cobra.Command {
	usersRoot := &cobra.Command{
		Use:   "users",
		Short: "Manage API users",
	}
	usersRoot.AddCommand(usersCreateCmd())
	return usersRoot
}

func usersCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user and print its API key",
		Long: "Create a user with a freshly generated API key. The key is printed once;\n" +
			"send it in the API-Key header of every request.",
		Args:    cobra.ExactArgs(1),
		Example: `  wishlist-tracker users create reader`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			st, closeStore, err := openStore(cmd.Context(), &cfg.Database)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}

			key, err := auth.GenerateAPIKey()
			if err != nil {
				return err
			}

			u := &domain.User{Username: args[0], APIKey: key}
			if err := st.CreateUser(cmd.Context(), u); err != nil {
				return fmt.Errorf("creating user: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "User:    %s\n", u.Username)
			fmt.Fprintf(out, "ID:      %s\n", u.ID)
			fmt.Fprintf(out, "API key: %s\n", key)
			return nil
		},
	}
}
