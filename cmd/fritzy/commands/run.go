package commands

import (
	"fritzy-backend/internal/components/telemetry"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [-a <address>] [-u <user>] [-p <password>]",
	Short: "Collects yesterday's traffic stats once.",
	RunE: func(cmd *cobra.Command, args []string) error {
		clock, err := newClock()
		if err != nil {
			return err
		}
		c, err := newCollector(clock, telemetry.SlogAPI{})
		if err != nil {
			return err
		}
		defer c.Close()

		record, err := c.Run(cmd.Context())
		if err != nil {
			return err
		}
		slog.Info(
			"collected traffic stats",
			"date", record.Date.Format("2006-01-02"),
			"connections", record.Connections,
			"online_time", record.OnlineTimeMinutes,
			"megabytes_total", record.MegabytesTotal,
		)
		return nil
	},
}
