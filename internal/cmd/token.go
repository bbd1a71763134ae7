package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/internal/credentials"
	"github.com/restock-systems/stockwatch/pkg/output"
)

var tokenReveal bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the push service account for an access token",
	Long: `Signs an assertion with the configured push service account and exchanges
it for a short-lived access token. The token is masked unless --reveal is set.`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().BoolVar(&tokenReveal, "reveal", false, "print the full token")
}

type tokenResult struct {
	ClientEmail string    `json:"client_email"`
	ProjectID   string    `json:"project_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func runToken(cmd *cobra.Command, args []string) error {
	cred, err := cfg.ServiceCredential()
	if err != nil {
		return err
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	exchanger := credentials.NewExchanger(credentials.WithTokenURL(cfg.Push.TokenURL))
	tok, err := exchanger.AccessToken(cmd.Context(), cred)
	if err != nil {
		return err
	}

	res := tokenResult{
		ClientEmail: cred.ClientEmail,
		ProjectID:   cred.ProjectID,
		AccessToken: maskToken(tok.Value, tokenReveal),
		ExpiresAt:   tok.Expiry.UTC(),
	}
	return printer.Print(res, func() *output.Table {
		table := output.NewTable([]string{"CLIENT", "PROJECT", "TOKEN", "EXPIRES"})
		table.AddRow([]string{res.ClientEmail, res.ProjectID, res.AccessToken, res.ExpiresAt.Format(time.RFC3339)})
		return table
	})
}

func maskToken(token string, reveal bool) string {
	if reveal {
		return token
	}
	if len(token) <= 12 {
		return "********"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
