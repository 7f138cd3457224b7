package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/melih-ucgun/calswitch/internal/adapters/ui"
	"github.com/melih-ucgun/calswitch/internal/core"
	"github.com/melih-ucgun/calswitch/internal/state"
)

var historyCmd = &cobra.Command{
	Use:     "history [transaction-id]",
	Aliases: []string{"log"},
	Short:   "View the toggle transaction log",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := ui.NewPtermUI().WithWriter(os.Stderr)
		mgr, err := state.NewManager(cfg.State.Path, nil)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}

		if len(args) == 1 {
			tx, err := mgr.GetTransaction(args[0])
			if err != nil {
				return err
			}
			printTransaction(out, tx)
			return nil
		}

		history := mgr.GetTransactions()
		if len(history) == 0 {
			out.Info("No transaction log found.")
			return nil
		}

		out.Title("Transaction Log")

		tableData := [][]string{{"ID", "Date", "Status", "Changes"}}

		// Show latest first (reverse iteration)
		for i := len(history) - 1; i >= 0; i-- {
			tx := history[i]
			tableData = append(tableData, []string{
				tx.ID,
				tx.Timestamp.Format("2006-01-02 15:04:05"),
				statusStyle(tx.Status).Sprint(tx.Status),
				fmt.Sprintf("%d", len(tx.Changes)),
			})
		}

		return pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
	},
}

func printTransaction(out core.UI, tx state.Transaction) {
	out.Section("Transaction " + tx.ID)
	out.Info(fmt.Sprintf("%s, %s", tx.Timestamp.Format("2006-01-02 15:04:05"), statusStyle(tx.Status).Sprint(tx.Status)))

	tableData := [][]string{{"Integration", "External ID", "Name", "Action", "Status", "Reason"}}
	for _, c := range tx.Changes {
		tableData = append(tableData, []string{
			c.Kind,
			c.Identity,
			c.Title,
			c.Action,
			statusStyle(c.Status).Sprint(c.Status),
			c.Reason,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(tableData).Render()
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
