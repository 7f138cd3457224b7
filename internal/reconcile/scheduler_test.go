package reconcile

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melih-ucgun/calswitch/internal/cache"
	"github.com/melih-ucgun/calswitch/internal/core"
)

func TestScheduler_RunOnce(t *testing.T) {
	registry := core.NewRegistry()
	syncer := core.NewSyncer(registry)
	c := cache.New()

	selected := true
	query := cache.NewQuery(func(ctx context.Context) ([]core.Selection, error) {
		return []core.Selection{{Toggle: core.Toggle{Identity: "a", Kind: core.KindGoogleCalendar}, Enabled: selected}}, nil
	}, 0)
	query.OnRefetch(syncer.Reconcile)
	c.Register(core.IntegrationsQueryKey, query)

	s, err := New("@every 1h", c, query, core.NewDefaultLogger(io.Discard, core.LevelError))
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	st, ok := syncer.State("google_calendar:a")
	require.True(t, ok)
	assert.True(t, st.Confirmed)

	selected = false
	require.NoError(t, s.RunOnce(context.Background()))
	st, _ = syncer.State("google_calendar:a")
	assert.False(t, st.Confirmed)

	runs, lastErr := s.Stats()
	assert.Equal(t, 2, runs)
	assert.NoError(t, lastErr)
	assert.Equal(t, 2, c.Invalidations(core.IntegrationsQueryKey))
}

type failingRefresher struct{}

func (failingRefresher) Refetch(ctx context.Context) ([]core.Selection, error) {
	return nil, errors.New("unreachable")
}

func TestScheduler_RunOnceError(t *testing.T) {
	s, err := New("*/5 * * * *", nil, failingRefresher{}, core.NewDefaultLogger(io.Discard, core.LevelError))
	require.NoError(t, err)
	assert.Error(t, s.RunOnce(context.Background()))

	_, lastErr := s.Stats()
	assert.Error(t, lastErr)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	_, err := New("every now and then", nil, failingRefresher{}, core.NewDefaultLogger(io.Discard, core.LevelError))
	assert.Error(t, err)
}

func TestScheduler_Start(t *testing.T) {
	s, err := New("@every 1h", nil, failingRefresher{}, core.NewDefaultLogger(io.Discard, core.LevelError))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return !s.Next().IsZero() }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
