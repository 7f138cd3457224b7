package core

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/melih-ucgun/calswitch/internal/state"
)

// IntegrationsQueryKey is the cached collection every toggle depends on.
const IntegrationsQueryKey = "viewer.integrations"

// Invalidator marks cached data stale so the next read refetches it.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// StateUpdater allows the Syncer to be independent of the state file format.
type StateUpdater interface {
	UpdateToggle(entry state.ToggleEntry) error
	AddTransaction(tx state.Transaction) error
}

// Selection is a toggle together with its server-side enabled flag.
type Selection struct {
	Toggle  Toggle `json:"toggle"`
	Enabled bool   `json:"enabled"`
}

type interaction struct {
	seq    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Syncer keeps optimistic toggle states in sync with the remote server.
type Syncer struct {
	registry    *Registry
	invalidator Invalidator
	notifier    Notifier
	logger      Logger
	updater     StateUpdater
	template    string
	rollback    bool
	now         func() time.Time

	mu        sync.Mutex
	states    map[string]*ToggleState
	inflight  map[string]*interaction
	seq       uint64
	listeners []func(ToggleState)
}

// Option configures a Syncer.
type Option func(*Syncer)

func WithInvalidator(inv Invalidator) Option { return func(s *Syncer) { s.invalidator = inv } }
func WithNotifier(n Notifier) Option         { return func(s *Syncer) { s.notifier = n } }
func WithLogger(l Logger) Option             { return func(s *Syncer) { s.logger = l } }
func WithStateUpdater(u StateUpdater) Option { return func(s *Syncer) { s.updater = u } }
func WithClock(now func() time.Time) Option  { return func(s *Syncer) { s.now = now } }

// WithFailureTemplate overrides the failure notification message.
func WithFailureTemplate(tmpl string) Option {
	return func(s *Syncer) { s.template = tmpl }
}

// WithoutRollback keeps the optimistic value visible after a failed call.
func WithoutRollback() Option {
	return func(s *Syncer) { s.rollback = false }
}

// NewSyncer creates a Syncer dispatching through registry.
func NewSyncer(registry *Registry, opts ...Option) *Syncer {
	s := &Syncer{
		registry: registry,
		notifier: &NoOpUI{},
		logger:   NewDefaultLogger(io.Discard, LevelError),
		template: DefaultFailureTemplate,
		rollback: true,
		now:      time.Now,
		states:   make(map[string]*ToggleState),
		inflight: make(map[string]*interaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Track registers a toggle with its initial state. Already tracked toggles
// keep their state but pick up title and destination changes.
func (s *Syncer) Track(t Toggle, initial bool) ToggleState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[t.Key()]
	if !ok {
		st = &ToggleState{
			Toggle:    t,
			Visible:   initial,
			Confirmed: initial,
			UpdatedAt: s.now(),
		}
		s.states[t.Key()] = st
		return *st
	}
	if t.Title != "" {
		st.Toggle.Title = t.Title
	}
	st.Toggle.Destination = t.Destination
	return *st
}

// State returns the current state of the toggle with the given key.
func (s *Syncer) State(key string) (ToggleState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	if !ok {
		return ToggleState{}, false
	}
	return *st, true
}

// States returns every tracked toggle sorted by key.
func (s *Syncer) States() []ToggleState {
	s.mu.Lock()
	out := make([]ToggleState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, *st)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Toggle.Key() < out[j].Toggle.Key() })
	return out
}

// OnChange registers a listener called after every visible state change.
func (s *Syncer) OnChange(fn func(ToggleState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Set switches the toggle to next and synchronizes it with the server.
// It blocks until the remote call settles. Validation errors are returned
// as errors; remote failures are reported through the Outcome.
func (s *Syncer) Set(ctx context.Context, t Toggle, next bool) (Outcome, error) {
	outcome, err := s.set(ctx, t, next)
	if err != nil {
		return outcome, err
	}
	s.recordTransaction(outcome.Status, []state.TransactionChange{changeFor(t, next, outcome)})
	return outcome, nil
}

// Go runs Set in the background and delivers the outcome on the returned channel.
func (s *Syncer) Go(ctx context.Context, t Toggle, next bool) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		outcome, err := s.Set(ctx, t, next)
		if err != nil {
			outcome = Failed(err, err.Error())
		}
		ch <- outcome
	}()
	return ch
}

func (s *Syncer) set(ctx context.Context, t Toggle, next bool) (Outcome, error) {
	if err := t.Validate(); err != nil {
		return Outcome{}, err
	}
	handler, err := s.registry.HandlerFor(t.Kind)
	if err != nil {
		return Outcome{}, err
	}

	key := t.Key()
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	st, ok := s.states[key]
	if !ok {
		st = &ToggleState{Toggle: t, Visible: !next, Confirmed: !next}
		s.states[key] = st
	} else if t.Title != "" {
		st.Toggle.Title = t.Title
	}
	st.Visible = next
	st.Pending = true
	st.LastError = ""
	st.UpdatedAt = s.now()
	s.seq++
	current := &interaction{seq: s.seq, cancel: cancel, done: make(chan struct{})}
	prev := s.inflight[key]
	s.inflight[key] = current
	snapshot := *st
	s.mu.Unlock()

	defer close(current.done)
	s.emit(snapshot)

	log := s.logger.With("integration", t.Kind.String(), "externalId", t.Identity, "seq", current.seq)

	// A newer interaction supersedes the older one: cancel it and wait for it
	// to settle so requests for one resource never overlap.
	if prev != nil {
		log.Debug(fmt.Sprintf("[%s] superseding in-flight request #%d", t.DisplayName(), prev.seq))
		prev.cancel()
		select {
		case <-prev.done:
		case <-reqCtx.Done():
		}
	}

	if next {
		err = handler.Enable(reqCtx, t)
	} else {
		err = handler.Disable(reqCtx, t)
	}

	s.mu.Lock()
	superseded := s.inflight[key] != current
	if !superseded {
		delete(s.inflight, key)
	}
	if err == nil {
		st.Confirmed = next
	}
	if !superseded {
		st.Pending = false
		if err == nil {
			st.Visible = next
		} else {
			st.LastError = err.Error()
			if s.rollback {
				st.Visible = st.Confirmed
			}
		}
		st.UpdatedAt = s.now()
	}
	snapshot = *st
	s.mu.Unlock()

	s.invalidate(ctx, log)

	if superseded {
		log.Debug(fmt.Sprintf("[%s] request #%d superseded", t.DisplayName(), current.seq))
		return Superseded(), nil
	}

	s.emit(snapshot)
	s.persist(snapshot, err)

	if err != nil {
		message, renderErr := RenderMessage(s.template, snapshot.Toggle, next, err.Error())
		if renderErr != nil {
			log.Warn("failure template render failed", "error", renderErr)
			message, _ = RenderMessage(DefaultFailureTemplate, snapshot.Toggle, next, err.Error())
		}
		log.Error(fmt.Sprintf("[%s] toggle failed: %v", t.DisplayName(), err))
		s.notifier.Notify(Notification{
			Level:    NotifyError,
			Title:    snapshot.Toggle.DisplayName(),
			Message:  message,
			Kind:     t.Kind,
			Identity: t.Identity,
			At:       s.now(),
		})
		return Failed(err, message), nil
	}

	log.Info(fmt.Sprintf("[%s] %s", t.DisplayName(), actionFor(next)+"d"))
	return Succeeded(), nil
}

// Reconcile applies a refetched server list. Pending toggles keep their
// optimistic value; tracked toggles missing from the list are confirmed off.
func (s *Syncer) Reconcile(items []Selection) {
	seen := make(map[string]struct{}, len(items))
	var changed []ToggleState

	s.mu.Lock()
	for _, item := range items {
		key := item.Toggle.Key()
		seen[key] = struct{}{}
		st, ok := s.states[key]
		if !ok {
			st = &ToggleState{Toggle: item.Toggle, Visible: item.Enabled, Confirmed: item.Enabled, UpdatedAt: s.now()}
			s.states[key] = st
			changed = append(changed, *st)
			continue
		}
		if item.Toggle.Title != "" {
			st.Toggle.Title = item.Toggle.Title
		}
		st.Toggle.Destination = item.Toggle.Destination
		if st.Pending {
			continue
		}
		if st.Visible != item.Enabled || st.Confirmed != item.Enabled {
			st.Visible = item.Enabled
			st.Confirmed = item.Enabled
			st.UpdatedAt = s.now()
			changed = append(changed, *st)
		}
	}
	for key, st := range s.states {
		if _, ok := seen[key]; ok || st.Pending {
			continue
		}
		if st.Visible || st.Confirmed {
			st.Visible = false
			st.Confirmed = false
			st.UpdatedAt = s.now()
			changed = append(changed, *st)
		}
	}
	s.mu.Unlock()

	for _, st := range changed {
		s.emit(st)
	}
}

func (s *Syncer) invalidate(ctx context.Context, log Logger) {
	if s.invalidator == nil {
		return
	}
	// The caller's context may already be cancelled; invalidation must still happen.
	if err := s.invalidator.Invalidate(context.WithoutCancel(ctx), IntegrationsQueryKey); err != nil {
		log.Warn("invalidation failed", "error", err)
	}
}

func (s *Syncer) emit(st ToggleState) {
	s.mu.Lock()
	listeners := append([]func(ToggleState){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
}

func (s *Syncer) persist(st ToggleState, err error) {
	if s.updater == nil {
		return
	}
	status := string(OutcomeSuccess)
	if err != nil {
		status = string(OutcomeFailure)
	}
	entry := state.ToggleEntry{
		ID:          st.Toggle.Key(),
		Identity:    st.Toggle.Identity,
		Kind:        st.Toggle.Kind.String(),
		Title:       st.Toggle.Title,
		Enabled:     st.Confirmed,
		LastApplied: s.now(),
		Status:      status,
		LastError:   st.LastError,
	}
	if saveErr := s.updater.UpdateToggle(entry); saveErr != nil {
		s.logger.Warn(fmt.Sprintf("Failed to save state for %s: %v", st.Toggle.Key(), saveErr))
	}
}

func (s *Syncer) recordTransaction(status OutcomeStatus, changes []state.TransactionChange) string {
	id := uuid.New().String()
	if s.updater == nil {
		return id
	}
	tx := state.Transaction{
		ID:        id,
		Timestamp: s.now(),
		Status:    string(status),
		Changes:   changes,
	}
	if err := s.updater.AddTransaction(tx); err != nil {
		s.logger.Warn(fmt.Sprintf("Failed to save history: %v", err))
	}
	return id
}

func changeFor(t Toggle, next bool, outcome Outcome) state.TransactionChange {
	return state.TransactionChange{
		Kind:     t.Kind.String(),
		Identity: t.Identity,
		Action:   actionFor(next),
		Title:    t.Title,
		Status:   string(outcome.Status),
		Reason:   outcome.Reason,
	}
}

func actionFor(enabled bool) string {
	if enabled {
		return "enable"
	}
	return "disable"
}
