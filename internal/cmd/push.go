package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/restock-systems/stockwatch/internal/app"
	"github.com/restock-systems/stockwatch/internal/models"
	"github.com/restock-systems/stockwatch/pkg/output"
)

var (
	pushTitle string
	pushBody  string
	pushTopic string
	pushData  []string
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send a push notification to a topic",
	Long: `Delivers a notification through the push gateway with the configured
service account, bypassing the HTTP relay.

Examples:
  stockwatch push --title "Stok Kritis" --body "Gula tinggal 2 kg" --data product_id=42`,
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
	pushCmd.Flags().StringVar(&pushTitle, "title", "", "notification title")
	pushCmd.Flags().StringVar(&pushBody, "body", "", "notification body")
	pushCmd.Flags().StringVar(&pushTopic, "topic", models.DefaultTopic, "destination topic")
	pushCmd.Flags().StringSliceVar(&pushData, "data", nil, "data entries as key=value")
	_ = pushCmd.MarkFlagRequired("title")
	_ = pushCmd.MarkFlagRequired("body")
}

func runPush(cmd *cobra.Command, args []string) error {
	data, err := parseData(pushData)
	if err != nil {
		return err
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
	if a.Dispatcher == nil {
		_, err := cfg.ServiceCredential()
		return err
	}

	res, err := a.Dispatcher.Dispatch(cmd.Context(), &models.NotificationMessage{
		Title: pushTitle,
		Body:  pushBody,
		Topic: pushTopic,
		Data:  data,
	})
	if err != nil {
		return err
	}

	return printer.Print(res, func() *output.Table {
		table := output.NewTable([]string{"MESSAGE", "ATTEMPTS"})
		table.AddRow([]string{res.Name, strconv.Itoa(res.Attempts)})
		return table
	})
}

func parseData(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	data := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid data entry %q (want key=value)", e)
		}
		data[k] = v
	}
	return data, nil
}
