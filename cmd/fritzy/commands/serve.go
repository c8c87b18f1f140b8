package commands

import (
	"fritzy-backend/internal/components/telemetry"
	"fritzy-backend/lib/serviceutil"
	"fritzy-backend/services/trafficapi"

	"github.com/spf13/cobra"
)

var servePort int

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "The port to listen on, overrides the config.")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--port <port>]",
	Short: "Serves the stored traffic stats over http.",
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

		port := config.Port
		if servePort != 0 {
			port = servePort
		}
		service := trafficapi.NewService(store, clock, telemetry.SlogAPI{})
		return serviceutil.ServeHttp(cmd.Context(), port, service.Router())
	},
}
