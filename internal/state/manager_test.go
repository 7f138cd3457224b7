package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_UpdateToggleRoundTrip(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "nested", "state.json")

	mgr, err := NewManager(stateFile, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.UpdateToggle(ToggleEntry{
		Identity: "cal_123",
		Kind:     "google_calendar",
		Title:    "Work",
		Enabled:  true,
		Status:   "success",
	}))

	reloaded, err := NewManager(stateFile, nil)
	require.NoError(t, err)

	entry, ok := reloaded.Toggle("google_calendar:cal_123")
	require.True(t, ok)
	assert.True(t, entry.Enabled)
	assert.Equal(t, "Work", entry.Title)
	assert.False(t, entry.LastApplied.IsZero())
	assert.Len(t, reloaded.Toggles(), 1)
}

func TestManager_MissingFileStartsFresh(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "absent.json"), nil)
	require.NoError(t, err)
	assert.Empty(t, mgr.Toggles())
	assert.Empty(t, mgr.GetTransactions())
}

func TestManager_CorruptFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte("{not json"), 0644))

	_, err := NewManager(stateFile, nil)
	assert.Error(t, err)
}
