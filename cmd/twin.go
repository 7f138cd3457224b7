package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/twin"
)

var twinCmd = &cobra.Command{
	Use:   "twin",
	Short: "Run a fake booking server for local testing",
	Long: `Serves the selected-calendar endpoint from memory, seeded from twin.seed.
Faults and latency can be injected through /admin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = cfg.Twin.Listen
		}
		latency := cfg.Twin.Latency
		if cmd.Flags().Changed("latency") {
			latency, _ = cmd.Flags().GetDuration("latency")
		}

		seed := make([]twin.Calendar, 0, len(cfg.Twin.Seed))
		for _, s := range cfg.Twin.Seed {
			seed = append(seed, twin.Calendar{
				Integration: s.Integration,
				ExternalID:  s.ExternalID,
				Name:        s.Name,
				Selected:    s.Selected,
				Destination: s.Destination,
			})
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		t := twin.New(twin.NewMemoryStore(seed), latency, logger.Slog())
		logger.Info(fmt.Sprintf("Twin listening on %s with %d calendar(s)", listen, len(seed)))
		return t.Run(ctx, listen)
	},
}

func init() {
	twinCmd.Flags().String("listen", "", "listen address (defaults to twin.listen)")
	twinCmd.Flags().Duration("latency", 0, "delay added to every calendar request")
	rootCmd.AddCommand(twinCmd)
}
