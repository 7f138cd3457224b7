package ui

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/melih-ucgun/calswitch/internal/core"
)

func TestPtermUI_Notify(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	u := NewPtermUI().WithWriter(&buf).(*PtermUI)

	u.Notify(core.Notification{Level: core.NotifyError, Message: `Something went wrong when toggling "Work"`})
	u.Notify(core.Notification{Level: core.NotifySuccess, Message: "Enabled Family"})

	out := buf.String()
	assert.Contains(t, out, `Something went wrong when toggling "Work"`)
	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "Enabled Family")
}

func TestPtermUI_Printf(t *testing.T) {
	var buf bytes.Buffer
	u := NewPtermUI().WithWriter(&buf)
	u.Printf("%s=%d\n", "a", 1)
	u.Println("b")
	assert.Equal(t, "a=1\nb\n", buf.String())
}
