package cmd

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/calswitch/internal/consts"
	"github.com/melih-ucgun/calswitch/internal/state"
	"github.com/melih-ucgun/calswitch/internal/twin"
)

type cliEnv struct {
	twin      *twin.Twin
	dir       string
	cfgPath   string
	statePath string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(consts.EnvPrefix+"MASTER_KEY", "")

	tw := twin.New(twin.NewMemoryStore([]twin.Calendar{
		{Integration: "google_calendar", ExternalID: "cal_123", Name: "Work"},
		{Integration: "caldav_calendar", ExternalID: "family", Name: "Family", Selected: true},
	}), 0, nil)
	srv := httptest.NewServer(tw)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &cliEnv{
		twin:      tw,
		dir:       dir,
		cfgPath:   filepath.Join(dir, "calswitch.yaml"),
		statePath: filepath.Join(dir, "state.json"),
	}
	cfgYAML := "api:\n  base_url: " + srv.URL + "\nstate:\n  path: " + env.statePath + "\n"
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfgYAML), 0644))
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append(args, "-c", e.cfgPath, "--env-file", filepath.Join(e.dir, ".env")))
	return rootCmd.ExecuteContext(context.Background())
}

func (e *cliEnv) state(t *testing.T) *state.Manager {
	t.Helper()
	mgr, err := state.NewManager(e.statePath, nil)
	require.NoError(t, err)
	return mgr
}

func TestCLI_EnableDisable(t *testing.T) {
	env := newCLIEnv(t)

	require.NoError(t, env.run(t, "enable", "google_calendar", "cal_123"))
	c, _ := env.twin.Store.Get("google_calendar", "cal_123")
	assert.True(t, c.Selected)

	entry, ok := env.state(t).Toggle("google_calendar:cal_123")
	require.True(t, ok)
	assert.True(t, entry.Enabled)
	assert.Equal(t, "Work", entry.Title)

	require.NoError(t, env.run(t, "disable", "google_calendar", "cal_123"))
	c, _ = env.twin.Store.Get("google_calendar", "cal_123")
	assert.False(t, c.Selected)

	history := env.state(t).GetTransactions()
	require.Len(t, history, 2)
	assert.Equal(t, "disable", history[1].Changes[0].Action)
}

func TestCLI_EnableFailureIsReported(t *testing.T) {
	env := newCLIEnv(t)
	env.twin.Faults.Set(twin.FaultConfig{Method: "POST", StatusCode: 500})

	err := env.run(t, "enable", "google_calendar", "cal_123")
	assert.ErrorIs(t, err, errReported)

	c, _ := env.twin.Store.Get("google_calendar", "cal_123")
	assert.False(t, c.Selected)

	mgr := env.state(t)
	entry, ok := mgr.Toggle("google_calendar:cal_123")
	require.True(t, ok)
	assert.False(t, entry.Enabled, "confirmed value stays off")
	assert.Equal(t, "failed", entry.Status)

	history := mgr.GetTransactions()
	require.Len(t, history, 1)
	assert.Equal(t, "failed", history[0].Status)
}

func TestCLI_UnknownKind(t *testing.T) {
	env := newCLIEnv(t)
	err := env.run(t, "enable", "outlook", "cal_123")
	assert.Error(t, err)
	assert.Empty(t, env.twin.Store.Requests())
}

func TestCLI_Apply(t *testing.T) {
	env := newCLIEnv(t)
	desired := filepath.Join(env.dir, "calendars.yaml")
	require.NoError(t, os.WriteFile(desired, []byte(`toggles:
  - kind: google_calendar
    external_id: cal_123
    enabled: true
  - kind: caldav_calendar
    external_id: family
    enabled: false
`), 0644))

	require.NoError(t, env.run(t, "apply", "-f", desired, "--dry-run"))
	c, _ := env.twin.Store.Get("google_calendar", "cal_123")
	assert.False(t, c.Selected, "dry run changes nothing")

	require.NoError(t, env.run(t, "apply", "-f", desired, "--dry-run=false"))
	c, _ = env.twin.Store.Get("google_calendar", "cal_123")
	assert.True(t, c.Selected)
	c, _ = env.twin.Store.Get("caldav_calendar", "family")
	assert.False(t, c.Selected)

	history := env.state(t).GetTransactions()
	require.Len(t, history, 1)
	assert.Len(t, history[0].Changes, 2)
}

func TestCLI_SecretKeygenSave(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, env.run(t, "secret", "keygen", "--save"))

	keyPath, err := consts.GetMasterKeyPath()
	require.NoError(t, err)
	data, err := os.ReadFile(keyPath)
	require.NoError(t, err)
	assert.Len(t, string(data), 65)
}
