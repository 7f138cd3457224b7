package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/core"
)

const toggleHelp = `The change is shown at once and sent to the booking server. When the
server refuses it, the calendar is rolled back to its last confirmed
value and the failure is reported. Set sync.rollback_on_failure: false
to keep the optimistic value instead.`

var enableCmd = &cobra.Command{
	Use:   "enable <integration> <external-id>",
	Short: "Select a calendar for conflict checking",
	Long:  "Selects a calendar so it is checked for conflicts.\n\n" + toggleHelp,
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runToggle(cmd, args, true) },
}

var disableCmd = &cobra.Command{
	Use:   "disable <integration> <external-id>",
	Short: "Stop checking a calendar for conflicts",
	Long:  "Deselects a calendar so it is no longer checked for conflicts.\n\n" + toggleHelp,
	Args:  cobra.ExactArgs(2),
	RunE:  func(cmd *cobra.Command, args []string) error { return runToggle(cmd, args, false) },
}

func runToggle(cmd *cobra.Command, args []string, enabled bool) error {
	kind, err := core.ParseKind(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	// The list gives us the title and current value; toggling works without it.
	rt.refresh(ctx, logger)

	tg := rt.lookup(kind, args[1])
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		tg.Title = title
	}

	return toggle(ctx, rt, tg, enabled)
}

func toggle(ctx context.Context, rt *runtime, tg core.Toggle, enabled bool) error {
	outcome, err := rt.syncer.Set(ctx, tg, enabled)
	if err != nil {
		return err
	}
	if !outcome.OK() {
		// The notifier has already shown the failure.
		return errReported
	}

	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	rt.ui.Success(fmt.Sprintf("%s %s", verb, tg.DisplayName()))
	return nil
}

func init() {
	for _, c := range []*cobra.Command{enableCmd, disableCmd} {
		c.Flags().String("title", "", "title used in messages when the server list is unavailable")
		rootCmd.AddCommand(c)
	}
}
