package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/calswitch/internal/core"
)

func TestSyncer_Set_Enable(t *testing.T) {
	f := newFixture()
	tg := work()
	f.syncer.Track(tg, false)

	var seen []core.ToggleState
	f.syncer.OnChange(func(st core.ToggleState) { seen = append(seen, st) })

	outcome, err := f.syncer.Set(context.Background(), tg, true)
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	assert.Equal(t, []string{"enable"}, f.handler.CallsFor(tg.Identity))
	assert.Equal(t, []string{core.IntegrationsQueryKey}, f.invalidator.Keys)
	assert.Zero(t, f.notifier.Count())

	st, ok := f.syncer.State(tg.Key())
	require.True(t, ok)
	assert.True(t, st.Visible)
	assert.True(t, st.Confirmed)
	assert.Equal(t, core.PhaseConfirmedOn, st.Phase())

	// Optimistic value is published before the call settles.
	require.Len(t, seen, 2)
	assert.Equal(t, core.PhasePending, seen[0].Phase())
	assert.True(t, seen[0].Visible)
	assert.Equal(t, core.PhaseConfirmedOn, seen[1].Phase())

	require.Len(t, f.updater.Transactions, 1)
	assert.Equal(t, "success", f.updater.Transactions[0].Status)
	require.Len(t, f.updater.Updates, 1)
	assert.True(t, f.updater.Updates[0].Enabled)
}

func TestSyncer_Set_Disable(t *testing.T) {
	f := newFixture()
	tg := work()
	f.syncer.Track(tg, true)

	outcome, err := f.syncer.Set(context.Background(), tg, false)
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	assert.Equal(t, []string{"disable"}, f.handler.CallsFor(tg.Identity))
	assert.Equal(t, 1, f.invalidator.Count())

	st, _ := f.syncer.State(tg.Key())
	assert.Equal(t, core.PhaseConfirmedOff, st.Phase())
}

func TestSyncer_Set_FailureRollsBack(t *testing.T) {
	f := newFixture()
	tg := work()
	f.handler.Errs[tg.Identity] = errors.New("something went wrong")
	f.syncer.Track(tg, false)

	outcome, err := f.syncer.Set(context.Background(), tg, true)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailure, outcome.Status)
	assert.Error(t, outcome.Err)

	st, _ := f.syncer.State(tg.Key())
	assert.False(t, st.Visible, "visible value should return to the confirmed one")
	assert.False(t, st.Confirmed)
	assert.False(t, st.Pending)
	assert.NotEmpty(t, st.LastError)

	assert.Equal(t, 1, f.invalidator.Count())
	require.Equal(t, 1, f.notifier.Count())
	n := f.notifier.Notifications[0]
	assert.Equal(t, core.NotifyError, n.Level)
	assert.Equal(t, `Something went wrong when toggling "Work"`, n.Message)
	assert.Equal(t, tg.Identity, n.Identity)

	require.Len(t, f.updater.Transactions, 1)
	assert.Equal(t, "failed", f.updater.Transactions[0].Status)
}

func TestSyncer_Set_FailureWithoutRollback(t *testing.T) {
	f := newFixture(core.WithoutRollback())
	tg := work()
	f.handler.Errs[tg.Identity] = errors.New("boom")
	f.syncer.Track(tg, false)

	outcome, err := f.syncer.Set(context.Background(), tg, true)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeFailure, outcome.Status)

	st, _ := f.syncer.State(tg.Key())
	assert.True(t, st.Visible)
	assert.False(t, st.Confirmed)
	assert.Equal(t, 1, f.notifier.Count())
}

func TestSyncer_Set_CustomFailureTemplate(t *testing.T) {
	f := newFixture(core.WithFailureTemplate(`Could not {{ if .Enabled }}enable{{ else }}disable{{ end }} {{ .Title | upper }}`))
	tg := work()
	f.handler.Errs[tg.Identity] = errors.New("boom")

	outcome, err := f.syncer.Set(context.Background(), tg, false)
	require.NoError(t, err)
	assert.Equal(t, "Could not disable WORK", outcome.Reason)
}

func TestSyncer_Set_InvalidToggle(t *testing.T) {
	f := newFixture()

	_, err := f.syncer.Set(context.Background(), core.Toggle{Identity: "x", Kind: "outlook"}, true)
	assert.ErrorIs(t, err, core.ErrUnknownKind)

	_, err = f.syncer.Set(context.Background(), core.Toggle{Kind: core.KindGoogleCalendar}, true)
	assert.ErrorIs(t, err, core.ErrEmptyIdentity)

	assert.Empty(t, f.handler.Calls)
	assert.Zero(t, f.invalidator.Count())
	assert.Zero(t, f.notifier.Count())
}

func TestSyncer_Set_UnregisteredKind(t *testing.T) {
	registry := core.NewRegistry()
	handler := &MockHandler{}
	require.NoError(t, registry.Register(core.KindGoogleCalendar, handler))
	syncer := core.NewSyncer(registry)

	_, err := syncer.Set(context.Background(), core.Toggle{Identity: "a", Kind: core.KindLarkCalendar}, true)
	assert.Error(t, err)
	assert.Empty(t, handler.Calls)
}

func TestSyncer_Set_Supersede(t *testing.T) {
	f := newFixture()
	f.handler.BlockEnable = true
	f.handler.Started = make(chan struct{}, 1)
	tg := work()
	f.syncer.Track(tg, false)

	first := f.syncer.Go(context.Background(), tg, true)
	<-f.handler.Started

	outcome, err := f.syncer.Set(context.Background(), tg, false)
	require.NoError(t, err)
	assert.True(t, outcome.OK())

	firstOutcome := <-first
	assert.Equal(t, core.OutcomeSuperseded, firstOutcome.Status)

	assert.Equal(t, []string{"enable", "disable"}, f.handler.CallsFor(tg.Identity))
	assert.Equal(t, 2, f.invalidator.Count(), "every interaction invalidates once")
	assert.Zero(t, f.notifier.Count(), "superseded interactions do not notify")

	st, _ := f.syncer.State(tg.Key())
	assert.False(t, st.Visible)
	assert.False(t, st.Confirmed)
	assert.False(t, st.Pending)
}

func TestSyncer_Set_CancelledContextNotifies(t *testing.T) {
	f := newFixture()
	f.handler.BlockEnable = true
	f.handler.Started = make(chan struct{}, 1)
	tg := work()

	ctx, cancel := context.WithCancel(context.Background())
	done := f.syncer.Go(ctx, tg, true)
	<-f.handler.Started
	cancel()

	outcome := <-done
	assert.Equal(t, core.OutcomeFailure, outcome.Status)
	assert.ErrorIs(t, outcome.Err, context.Canceled)
	assert.Equal(t, 1, f.invalidator.Count())
	assert.Equal(t, 1, f.notifier.Count())
}

func TestSyncer_Reconcile(t *testing.T) {
	f := newFixture()
	a := core.Toggle{Identity: "a", Kind: core.KindGoogleCalendar}
	b := core.Toggle{Identity: "b", Kind: core.KindCalDAVCalendar}
	f.syncer.Track(a, false)
	f.syncer.Track(b, true)

	f.syncer.Reconcile([]core.Selection{
		{Toggle: core.Toggle{Identity: "a", Kind: core.KindGoogleCalendar, Title: "Alpha"}, Enabled: true},
		{Toggle: core.Toggle{Identity: "c", Kind: core.KindAppleCalendar}, Enabled: true},
	})

	st, _ := f.syncer.State(a.Key())
	assert.True(t, st.Confirmed)
	assert.Equal(t, "Alpha", st.Toggle.Title)

	st, _ = f.syncer.State(b.Key())
	assert.False(t, st.Confirmed, "missing toggles are confirmed off")

	_, ok := f.syncer.State("apple_calendar:c")
	assert.True(t, ok)
	assert.Len(t, f.syncer.States(), 3)
}

func TestSyncer_Reconcile_KeepsPending(t *testing.T) {
	f := newFixture()
	f.handler.BlockEnable = true
	f.handler.Started = make(chan struct{}, 1)
	tg := work()
	f.syncer.Track(tg, false)

	ctx, cancel := context.WithCancel(context.Background())
	done := f.syncer.Go(ctx, tg, true)
	<-f.handler.Started

	f.syncer.Reconcile(nil)
	st, _ := f.syncer.State(tg.Key())
	assert.True(t, st.Pending)
	assert.True(t, st.Visible)

	cancel()
	<-done
}
