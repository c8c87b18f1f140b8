package commands

import (
	"fmt"
	"fritzy-backend/internal/components/chrono"
	"fritzy-backend/lib/platforms/fritzbox/netcnt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	statsFrom string
	statsTo   string
)

func init() {
	statsCmd.Flags().StringVar(&statsFrom, "from", "", "The first day to print (yyyy-mm-dd), defaults to 30 days before --to.")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "The last day to print (yyyy-mm-dd), defaults to yesterday.")
	rootCmd.AddCommand(statsCmd)
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseInLocation(time.DateOnly, value, fallback.Location())
}

func renderStats(out io.Writer, records []netcnt.TrafficStatsRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Date", "Connections", "Online", "Sent (MB)", "Received (MB)", "Total (MB)"})

	var total float64
	for _, r := range records {
		t.AppendRow(table.Row{
			r.Date.Format(time.DateOnly),
			r.Connections,
			fmt.Sprintf("%02d:%02d", r.OnlineTimeMinutes/60, r.OnlineTimeMinutes%60),
			fmt.Sprintf("%.2f", r.MegabytesSent),
			fmt.Sprintf("%.2f", r.MegabytesReceived),
			fmt.Sprintf("%.2f", r.MegabytesTotal),
		})
		total += r.MegabytesTotal
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", fmt.Sprintf("%.2f", total)})
	t.Render()
}

var statsCmd = &cobra.Command{
	Use:   "stats [--from <yyyy-mm-dd>] [--to <yyyy-mm-dd>]",
	Short: "Prints the stored traffic stats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		clock, err := newClock()
		if err != nil {
			return err
		}
		database, store, err := openStore(clock)
		if err != nil {
			return err
		}
		defer database.Close()

		to, err := parseDay(statsTo, chrono.Yesterday(clock.Now()))
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		from, err := parseDay(statsFrom, to.AddDate(0, 0, -30))
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}

		records, err := store.Pull(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		renderStats(os.Stdout, records)
		return nil
	},
}
