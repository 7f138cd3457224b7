package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/melih-ucgun/calswitch/internal/adapters/ui"
	"github.com/melih-ucgun/calswitch/internal/broker"
	"github.com/melih-ucgun/calswitch/internal/cache"
	"github.com/melih-ucgun/calswitch/internal/config"
	"github.com/melih-ucgun/calswitch/internal/core"
	"github.com/melih-ucgun/calswitch/internal/remote"
	"github.com/melih-ucgun/calswitch/internal/state"
)

// runtime holds everything a command needs to toggle calendars.
type runtime struct {
	cfg       *config.Config
	client    *remote.CalendarClient
	state     *state.Manager
	cache     *cache.Cache
	query     *cache.Query[[]core.Selection]
	publisher *broker.Publisher
	syncer    *core.Syncer
	ui        *ui.PtermUI

	// invalidator is the local cache plus the publisher when kafka is configured.
	invalidator core.Invalidator
}

// newRuntime wires the client, cache, state file and Syncer from the config.
// Extra notifiers receive failure notifications next to the terminal.
func newRuntime(c *config.Config, log core.Logger, notifiers ...core.Notifier) (*runtime, error) {
	mgr, err := state.NewManager(c.State.Path, nil)
	if err != nil {
		return nil, err
	}
	mgr.MaxHistory = c.State.MaxHistory

	client := remote.NewCalendarClient(remote.Options{
		BaseURL: c.API.BaseURL,
		Path:    c.API.CalendarPath,
		Timeout: c.API.Timeout,
		Credentials: remote.Credentials{
			Token:  c.API.Token,
			Cookie: c.API.Cookie,
		},
		Logger: log,
	})

	registry := core.NewRegistry()
	registry.RegisterAll(client)

	rt := &runtime{
		cfg:    c,
		client: client,
		state:  mgr,
		cache:  cache.New(),
		query:  cache.NewQuery[[]core.Selection](client.List, c.Cache.TTL),
		ui:     ui.NewPtermUI().WithWriter(os.Stderr).(*ui.PtermUI),
	}
	rt.cache.Register(core.IntegrationsQueryKey, rt.query)

	var invalidator core.Invalidator = rt.cache
	if len(c.Kafka.Brokers) > 0 {
		rt.publisher = broker.NewPublisher(c.Kafka.Brokers, c.Kafka.Topic)
		invalidator = cache.Multi{rt.cache, rt.publisher}
		log.Debug("Publishing invalidations", "brokers", c.Kafka.Brokers, "topic", c.Kafka.Topic)
	}

	rt.invalidator = invalidator

	opts := []core.Option{
		core.WithInvalidator(invalidator),
		core.WithNotifier(append(core.MultiNotifier{rt.ui}, notifiers...)),
		core.WithLogger(log),
		core.WithStateUpdater(mgr),
		core.WithFailureTemplate(c.Notifications.FailureTemplate),
	}
	if !c.Sync.Rollback() {
		opts = append(opts, core.WithoutRollback())
	}
	rt.syncer = core.NewSyncer(registry, opts...)

	// Last confirmed values from disk show up before the first fetch.
	for _, entry := range mgr.Toggles() {
		kind, err := core.ParseKind(entry.Kind)
		if err != nil {
			continue
		}
		rt.syncer.Track(core.Toggle{Identity: entry.Identity, Kind: kind, Title: entry.Title}, entry.Enabled)
	}
	rt.query.OnRefetch(rt.syncer.Reconcile)

	return rt, nil
}

// refresh loads the calendar list, reporting but tolerating failures.
func (rt *runtime) refresh(ctx context.Context, log core.Logger) bool {
	if _, err := rt.query.Get(ctx); err != nil {
		log.Warn(fmt.Sprintf("Could not load calendars: %v", err))
		return false
	}
	return true
}

// lookup returns the tracked toggle for kind and id, with its title when known.
func (rt *runtime) lookup(kind core.Kind, id string) core.Toggle {
	tg := core.Toggle{Identity: id, Kind: kind}
	if st, ok := rt.syncer.State(tg.Key()); ok {
		return st.Toggle
	}
	return tg
}

func (rt *runtime) Close() error {
	if rt.publisher != nil {
		return rt.publisher.Close()
	}
	return nil
}
