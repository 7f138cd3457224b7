package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/config"
	"github.com/melih-ucgun/calswitch/internal/consts"
	"github.com/melih-ucgun/calswitch/internal/core"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show which calendars a desired-state file would toggle",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		where, _ := cmd.Flags().GetString("where")

		desired, err := config.LoadDesired(file)
		if err != nil {
			return err
		}

		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()
		rt.refresh(cmd.Context(), logger)

		plan, err := rt.syncer.Plan(desired, where)
		if err != nil {
			return err
		}
		printPlan(rt.ui, plan)
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Toggle calendars until they match a desired-state file",
	Long: `Reads the desired calendar selection (calendars.yaml by default) and
toggles every calendar that differs. With --atomic, a single failure
reverts the calendars already switched in this run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		where, _ := cmd.Flags().GetString("where")
		atomic, _ := cmd.Flags().GetBool("atomic")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		desired, err := config.LoadDesired(file)
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
		rt.refresh(ctx, logger)

		report, applyErr := rt.syncer.Apply(ctx, desired, core.ApplyOptions{
			Atomic:      atomic,
			DryRun:      dryRun,
			Where:       where,
			Concurrency: concurrency,
		})
		if report == nil {
			return applyErr
		}

		if len(report.Results) == 0 {
			rt.ui.Success("Everything is up to date.")
			return nil
		}

		tableData := [][]string{{"Integration", "External ID", "Name", "Action", "Result"}}
		for _, res := range report.Results {
			status := string(res.Outcome.Status)
			if dryRun {
				status = "planned"
			}
			if res.Reverted {
				status = "reverted"
			}
			tableData = append(tableData, []string{
				res.Change.Toggle.Kind.String(),
				res.Change.Toggle.Identity,
				res.Change.Toggle.DisplayName(),
				res.Change.Action,
				statusStyle(status).Sprint(status),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()

		if applyErr != nil {
			rt.ui.Error(fmt.Sprintf("Apply %s (transaction %s): %v", report.Status, report.TransactionID, applyErr))
			return errReported
		}
		if dryRun {
			rt.ui.Info("Dry run, nothing was changed.")
			return nil
		}
		rt.ui.Success(fmt.Sprintf("Applied %d change(s) (transaction %s)", len(report.Results), report.TransactionID))
		return nil
	},
}

func printPlan(out core.UI, plan *core.PlanResult) {
	for _, t := range plan.Skipped {
		out.Info(fmt.Sprintf("Skipping %s (condition not met)", t.DisplayName()))
	}
	if len(plan.Changes) == 0 {
		out.Success("No changes. Calendars match the desired state.")
		return
	}
	for _, change := range plan.Changes {
		out.Section(fmt.Sprintf("%s %s", change.Action, change.Toggle.DisplayName()))
		out.Printf("%s", change.Diff)
	}
	out.Info(fmt.Sprintf("%d change(s) planned", len(plan.Changes)))
}

func init() {
	for _, c := range []*cobra.Command{planCmd, applyCmd} {
		c.Flags().StringP("file", "f", consts.DesiredFileName, "desired-state file")
		c.Flags().String("where", "", "only consider calendars matching this expression")
		rootCmd.AddCommand(c)
	}
	applyCmd.Flags().Bool("atomic", false, "revert successful toggles when any toggle fails")
	applyCmd.Flags().Bool("dry-run", false, "show the changes without calling the server")
	applyCmd.Flags().Int("concurrency", 4, "maximum parallel toggles")
}
