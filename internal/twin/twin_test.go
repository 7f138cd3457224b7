package twin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/calswitch/internal/core"
	"github.com/melih-ucgun/calswitch/internal/remote"
	"github.com/melih-ucgun/calswitch/internal/twin"
)

func newTwin(t *testing.T) (*twin.Twin, *httptest.Server) {
	t.Helper()
	tw := twin.New(twin.NewMemoryStore([]twin.Calendar{
		{Integration: "google_calendar", ExternalID: "cal_123", Name: "Work", Selected: false, Destination: true},
		{Integration: "caldav_calendar", ExternalID: "family", Name: "Family", Selected: true},
	}), 0, nil)
	srv := httptest.NewServer(tw)
	t.Cleanup(srv.Close)
	return tw, srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestTwin_ListAndToggle(t *testing.T) {
	tw, srv := newTwin(t)
	client := remote.NewCalendarClient(remote.Options{BaseURL: srv.URL})
	ctx := context.Background()

	items, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "family", items[0].Toggle.Identity)
	assert.True(t, items[0].Enabled)
	assert.False(t, items[1].Enabled)
	assert.True(t, items[1].Toggle.Destination)

	work := core.Toggle{Identity: "cal_123", Kind: core.KindGoogleCalendar}
	require.NoError(t, client.Enable(ctx, work))
	c, ok := tw.Store.Get("google_calendar", "cal_123")
	require.True(t, ok)
	assert.True(t, c.Selected)

	require.NoError(t, client.Disable(ctx, work))
	c, _ = tw.Store.Get("google_calendar", "cal_123")
	assert.False(t, c.Selected)

	reqs := tw.Store.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, http.StatusOK, reqs[1].Status)
	assert.Equal(t, http.MethodDelete, reqs[2].Method)
	assert.Equal(t, http.StatusNoContent, reqs[2].Status)
}

func TestTwin_DisableUnknownCalendar(t *testing.T) {
	_, srv := newTwin(t)
	client := remote.NewCalendarClient(remote.Options{BaseURL: srv.URL})

	err := client.Disable(context.Background(), core.Toggle{Identity: "ghost", Kind: core.KindLarkCalendar})
	assert.ErrorIs(t, err, remote.ErrRemoteCall)
}

func TestTwin_BadBody(t *testing.T) {
	_, srv := newTwin(t)
	resp := post(t, srv.URL+twin.CalendarPath, `{"integration":"google_calendar"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTwin_FaultInjection(t *testing.T) {
	tw, srv := newTwin(t)
	resp := post(t, srv.URL+"/admin/fault", `{"method":"post","status_code":500,"count":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	registry := core.NewRegistry()
	registry.RegisterAll(remote.NewCalendarClient(remote.Options{BaseURL: srv.URL}))
	var notes []core.Notification
	syncer := core.NewSyncer(registry, core.WithNotifier(core.NotifierFunc(func(n core.Notification) { notes = append(notes, n) })))

	work := core.Toggle{Identity: "cal_123", Kind: core.KindGoogleCalendar, Title: "Work"}
	syncer.Track(work, false)

	outcome, err := syncer.Set(context.Background(), work, true)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailure, outcome.Status)
	require.Len(t, notes, 1)
	assert.Equal(t, `Something went wrong when toggling "Work"`, notes[0].Message)
	c, _ := tw.Store.Get("google_calendar", "cal_123")
	assert.False(t, c.Selected)

	// The fault was single use.
	outcome, err = syncer.Set(context.Background(), work, true)
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	c, _ = tw.Store.Get("google_calendar", "cal_123")
	assert.True(t, c.Selected)
}

func TestTwin_AdminResetAndState(t *testing.T) {
	tw, srv := newTwin(t)
	tw.Faults.Set(twin.FaultConfig{Method: "*"})
	tw.Store.Select("google_calendar", "cal_123", true)

	resp := post(t, srv.URL+"/admin/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, tw.Faults.All())

	stateResp, err := http.Get(srv.URL + "/admin/state")
	require.NoError(t, err)
	defer stateResp.Body.Close()

	var snap struct {
		Calendars []twin.Calendar `json:"calendars"`
	}
	require.NoError(t, json.NewDecoder(stateResp.Body).Decode(&snap))
	require.Len(t, snap.Calendars, 2)
	assert.False(t, snap.Calendars[1].Selected, "reset restores the seed")
}

func TestTwin_Latency(t *testing.T) {
	tw := twin.New(twin.NewMemoryStore(nil), 50*time.Millisecond, nil)
	srv := httptest.NewServer(tw)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := remote.NewCalendarClient(remote.Options{BaseURL: srv.URL}).List(ctx)
	assert.Error(t, err)
}

func TestFaultRegistry(t *testing.T) {
	fr := twin.NewFaultRegistry()
	assert.Nil(t, fr.Take(http.MethodGet))

	fr.Set(twin.FaultConfig{Method: "delete", Count: 2})
	assert.Nil(t, fr.Take(http.MethodPost))
	f := fr.Take(http.MethodDelete)
	require.NotNil(t, f)
	assert.Equal(t, http.StatusInternalServerError, f.StatusCode)
	assert.NotNil(t, fr.Take(http.MethodDelete))
	assert.Nil(t, fr.Take(http.MethodDelete))

	fr.Set(twin.FaultConfig{StatusCode: http.StatusBadGateway})
	assert.Equal(t, http.StatusBadGateway, fr.Take(http.MethodGet).StatusCode)
	assert.True(t, fr.Remove(""))
	assert.False(t, fr.Remove("patch"))
}
