package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEmptyIdentity = errors.New("toggle identity is empty")
	ErrEmptyKind     = errors.New("toggle kind is empty")
	ErrUnknownKind   = errors.New("unknown toggle kind")
)

// Toggle is a binary switch bound to the enabled flag of a remote resource.
type Toggle struct {
	Identity string `yaml:"external_id" json:"externalId"`
	Kind     Kind   `yaml:"kind" json:"integration"`
	Title    string `yaml:"title,omitempty" json:"title,omitempty"`

	// Destination marks the calendar new events are written to.
	Destination bool `yaml:"destination,omitempty" json:"destination,omitempty"`
}

// Key returns the identity used for state, history and in-flight tracking.
func (t Toggle) Key() string {
	return fmt.Sprintf("%s:%s", t.Kind, t.Identity)
}

// DisplayName returns the title, falling back to the identity.
func (t Toggle) DisplayName() string {
	if title := strings.TrimSpace(t.Title); title != "" {
		return title
	}
	return t.Identity
}

// Validate checks that the toggle can be sent to the server.
func (t Toggle) Validate() error {
	if strings.TrimSpace(t.Identity) == "" {
		return ErrEmptyIdentity
	}
	if t.Kind == "" {
		return ErrEmptyKind
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, t.Kind)
	}
	return nil
}

// ToggleState is the locally visible state of a toggle.
type ToggleState struct {
	Toggle    Toggle    `json:"toggle"`
	Visible   bool      `json:"visible"`
	Confirmed bool      `json:"confirmed"`
	Pending   bool      `json:"pending"`
	LastError string    `json:"lastError,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Phase derives the three-valued phase from the state.
func (s ToggleState) Phase() Phase {
	switch {
	case s.Pending:
		return PhasePending
	case s.Confirmed:
		return PhaseConfirmedOn
	default:
		return PhaseConfirmedOff
	}
}
