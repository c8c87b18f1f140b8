package commands

import (
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/internal/components/telemetry"
	"log/slog"

	"github.com/spf13/cobra"
)

var runNow bool

func init() {
	daemonCmd.Flags().BoolVar(&runNow, "now", false, "Also collect once right after starting.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--now]",
	Short: "Collects traffic stats on the configured schedule until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tel := telemetry.SlogAPI{}

		clock, err := newClock()
		if err != nil {
			return err
		}
		c, err := newCollector(clock, tel)
		if err != nil {
			return err
		}
		defer c.Close()

		// failures are already reported by the collector, the next trigger is the retry
		collect := func() {
			_, err := c.Run(ctx)
			if err != nil {
				slog.Error("collection failed, waiting for the next trigger", "err", err)
			}
		}

		cron := chrono.NewStandardCron(clock, tel)
		err = cron.Cron(config.Schedule, collect)
		if err != nil {
			<-cron.Stop()
			return err
		}
		slog.Info("scheduled collection", "schedule", config.Schedule, "timezone", clock.Now().Location().String())

		// the collector serializes this with any cron trigger firing meanwhile
		if runNow {
			collect()
		}

		<-ctx.Done()
		slog.Info("stopping, waiting for a running collection to finish...")
		<-cron.Stop()
		return nil
	},
}
