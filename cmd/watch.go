package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/core"
	"github.com/melih-ucgun/calswitch/internal/reconcile"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the local view in sync with the booking server",
	Long:  `Refetches the calendar list on a cron schedule and prints every selection that changed on the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule, _ := cmd.Flags().GetString("schedule")
		if schedule == "" {
			schedule = cfg.Watch.Schedule
		}

		// Runs until interrupted.
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.refresh(ctx, logger)
		rt.syncer.OnChange(func(st core.ToggleState) {
			rt.ui.Info(fmt.Sprintf("%s %s is now %s", st.Toggle.Kind, st.Toggle.DisplayName(), phaseStyle(st.Phase()).Sprint(st.Phase())))
		})

		sched, err := reconcile.New(schedule, rt.invalidator, rt.query, logger)
		if err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("Watching calendars (%s), next run %s", schedule, sched.Next().Format("15:04:05")))

		sched.Start(ctx)

		runs, lastErr := sched.Stats()
		logger.Info("Watch stopped", "runs", runs, "lastError", lastErr)
		return nil
	},
}

func init() {
	watchCmd.Flags().String("schedule", "", `cron schedule (defaults to watch.schedule, e.g. "@every 1m")`)
	rootCmd.AddCommand(watchCmd)
}
