package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/internal/auth"
	"github.com/restock-systems/stockwatch/pkg/output"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print a user access token",
	Long: `Signs in against the identity service with email and password and prints
the access token, for use with "report --token" or the HTTP functions.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
}

type loginResult struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	if cfg.Auth.URL == "" {
		return fmt.Errorf("auth.url is not configured (set datastore.url or auth.url)")
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	key := cfg.Auth.AnonKey
	if key == "" {
		key = cfg.Datastore.ServiceKey
	}
	client := auth.NewClient(cfg.Auth.URL, key, cfg.Auth.Timeout)

	session, err := client.Login(cmd.Context(), loginEmail, loginPassword)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	res := loginResult{
		UserID:       session.User.ID,
		Email:        session.User.Email,
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt(time.Now()).UTC(),
	}
	if printer.Format() != output.FormatTable {
		return printer.Print(res, nil)
	}
	output.Success(cmd.OutOrStdout(), "Logged in as %s", res.Email)
	table := output.NewTable([]string{"USER", "EXPIRES"})
	table.AddRow([]string{res.UserID, res.ExpiresAt.Format(time.RFC3339)})
	table.Render(cmd.OutOrStdout())
	fmt.Fprintf(cmd.OutOrStdout(), "\nAccess token:\n%s\n", res.AccessToken)
	return nil
}
