package cmd

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/melih-ucgun/calswitch/internal/adapters/ui"
	"github.com/melih-ucgun/calswitch/internal/core"
)

func TestPrintPlan_WritesThroughUI(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	out := ui.NewPtermUI().WithWriter(&buf)

	printPlan(out, &core.PlanResult{
		Changes: []core.PlanChange{{
			Toggle:  core.Toggle{Kind: core.KindGoogleCalendar, Identity: "cal_123", Title: "Work"},
			Enabled: true,
			Action:  "enable",
			Diff:    "- enabled: false\n+ enabled: true\n",
		}},
		Skipped: []core.Toggle{{Kind: core.KindCalDAVCalendar, Identity: "family", Title: "Family"}},
	})

	got := buf.String()
	assert.Contains(t, got, "Skipping Family (condition not met)")
	assert.Contains(t, got, "enable Work")
	assert.Contains(t, got, "+ enabled: true")
	assert.Contains(t, got, "1 change(s) planned")
}

func TestPrintPlan_NoChanges(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	printPlan(ui.NewPtermUI().WithWriter(&buf), &core.PlanResult{})
	assert.Contains(t, buf.String(), "No changes")
}

func TestToggleHelp_DocumentsRollbackDefault(t *testing.T) {
	for _, c := range []*cobra.Command{enableCmd, disableCmd} {
		assert.Contains(t, c.Long, "rolled back to its last confirmed")
		assert.Contains(t, c.Long, "sync.rollback_on_failure: false")
	}
}
