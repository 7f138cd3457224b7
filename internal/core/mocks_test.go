package core_test

import (
	"context"
	"sync"

	"github.com/melih-ucgun/calswitch/internal/core"
	"github.com/melih-ucgun/calswitch/internal/state"
)

type call struct {
	Action   string
	Kind     core.Kind
	Identity string
}

// MockHandler records remote calls. Identities listed in Errs fail.
type MockHandler struct {
	mu    sync.Mutex
	Calls []call
	Errs  map[string]error

	// BlockEnable makes Enable wait for cancellation.
	BlockEnable bool
	Started     chan struct{}
}

func (m *MockHandler) record(action string, t core.Toggle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call{Action: action, Kind: t.Kind, Identity: t.Identity})
}

func (m *MockHandler) Enable(ctx context.Context, t core.Toggle) error {
	m.record("enable", t)
	if m.BlockEnable {
		if m.Started != nil {
			m.Started <- struct{}{}
		}
		<-ctx.Done()
		return ctx.Err()
	}
	return m.Errs[t.Identity]
}

func (m *MockHandler) Disable(ctx context.Context, t core.Toggle) error {
	m.record("disable", t)
	return m.Errs[t.Identity]
}

func (m *MockHandler) CallsFor(identity string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.Calls {
		if c.Identity == identity {
			out = append(out, c.Action)
		}
	}
	return out
}

type MockInvalidator struct {
	mu   sync.Mutex
	Keys []string
}

func (m *MockInvalidator) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return nil
}

func (m *MockInvalidator) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Keys)
}

type MockNotifier struct {
	mu            sync.Mutex
	Notifications []core.Notification
}

func (m *MockNotifier) Notify(n core.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Notifications)
}

type MockStateUpdater struct {
	mu           sync.Mutex
	Updates      []state.ToggleEntry
	Transactions []state.Transaction
}

func (m *MockStateUpdater) UpdateToggle(entry state.ToggleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, entry)
	return nil
}

func (m *MockStateUpdater) AddTransaction(tx state.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions = append(m.Transactions, tx)
	return nil
}

type fixture struct {
	handler     *MockHandler
	invalidator *MockInvalidator
	notifier    *MockNotifier
	updater     *MockStateUpdater
	syncer      *core.Syncer
}

func newFixture(opts ...core.Option) *fixture {
	f := &fixture{
		handler:     &MockHandler{Errs: map[string]error{}},
		invalidator: &MockInvalidator{},
		notifier:    &MockNotifier{},
		updater:     &MockStateUpdater{},
	}
	registry := core.NewRegistry()
	registry.RegisterAll(f.handler)

	all := append([]core.Option{
		core.WithInvalidator(f.invalidator),
		core.WithNotifier(f.notifier),
		core.WithStateUpdater(f.updater),
	}, opts...)
	f.syncer = core.NewSyncer(registry, all...)
	return f
}

func work() core.Toggle {
	return core.Toggle{Identity: "work@example.com", Kind: core.KindGoogleCalendar, Title: "Work"}
}
