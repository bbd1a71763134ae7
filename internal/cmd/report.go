package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/internal/app"
	"github.com/restock-systems/stockwatch/internal/models"
	"github.com/restock-systems/stockwatch/pkg/output"
)

var reportToken string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the stock health report for a user",
	Long: `Runs the stock health report for the user the token belongs to, against
the configured data store. The token defaults to $STOCKWATCH_USER_TOKEN.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportToken, "token", "", "user access token (see login)")
}

func runReport(cmd *cobra.Command, args []string) error {
	token := reportToken
	if token == "" {
		token = os.Getenv("STOCKWATCH_USER_TOKEN")
	}
	if token == "" {
		return fmt.Errorf("a user token is required (--token or STOCKWATCH_USER_TOKEN)")
	}
	printer, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Service.HealthReport(cmd.Context(), token)
	if err != nil {
		return err
	}

	if printer.Format() == output.FormatTable {
		output.Info(cmd.OutOrStdout(), "%s  %s", report.Status, report.AgentMessage)
		if len(report.Alerts) == 0 {
			return nil
		}
	}
	return printer.Print(report, func() *output.Table {
		return alertTable(report.Alerts)
	})
}

func alertTable(alerts []models.AlertEntry) *output.Table {
	table := output.NewTable([]string{"NAME", "REMAINING", "DAYS LEFT", "SEVERITY"})
	for _, a := range alerts {
		table.AddRow([]string{
			a.Name,
			models.FormatQuantity(a.RemainingQty),
			strconv.Itoa(a.DaysRemaining),
			a.Severity,
		})
	}
	return table
}
