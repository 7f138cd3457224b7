package cmd

import (
	"encoding/json"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/core"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "status"},
	Short:   "Show connected calendars and whether they are checked for conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		where, _ := cmd.Flags().GetString("where")
		asJSON, _ := cmd.Flags().GetBool("json")

		rt, err := newRuntime(cfg, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		if !rt.refresh(cmd.Context(), logger) {
			rt.ui.Warning("Showing last known values from " + rt.state.FilePath)
		}

		var states []core.ToggleState
		for _, st := range rt.syncer.States() {
			ok, err := core.EvaluateCondition(where, st.Toggle, st.Visible)
			if err != nil {
				return err
			}
			if ok {
				states = append(states, st)
			}
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(states)
		}

		if len(states) == 0 {
			rt.ui.Info("No calendars found.")
			return nil
		}

		tableData := [][]string{{"Integration", "External ID", "Name", "Checked", "State"}}
		for _, st := range states {
			name := st.Toggle.DisplayName()
			if st.Toggle.Destination {
				name += pterm.FgGray.Sprint(" (adding events to)")
			}
			tableData = append(tableData, []string{
				st.Toggle.Kind.String(),
				st.Toggle.Identity,
				name,
				checkbox(st.Visible),
				phaseStyle(st.Phase()).Sprint(st.Phase()),
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(tableData).WithWriter(os.Stdout).Render()
	},
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func phaseStyle(p core.Phase) *pterm.Style {
	switch p {
	case core.PhasePending:
		return pterm.NewStyle(pterm.FgYellow)
	case core.PhaseConfirmedOn:
		return pterm.NewStyle(pterm.FgGreen)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

func statusStyle(status string) *pterm.Style {
	switch status {
	case "failed":
		return pterm.NewStyle(pterm.FgRed)
	case "reverted", "superseded":
		return pterm.NewStyle(pterm.FgYellow)
	case "planned":
		return pterm.NewStyle(pterm.FgCyan)
	default:
		return pterm.NewStyle(pterm.FgGreen)
	}
}

func init() {
	listCmd.Flags().String("where", "", `filter expression, e.g. 'kind == "google_calendar" && enabled'`)
	listCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(listCmd)
}
