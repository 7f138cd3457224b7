package core

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the integration a toggle belongs to. The set is closed:
// every kind must have a Handler registered before it can be synced.
type Kind string

const (
	KindGoogleCalendar       Kind = "google_calendar"
	KindOffice365Calendar    Kind = "office365_calendar"
	KindCalDAVCalendar       Kind = "caldav_calendar"
	KindAppleCalendar        Kind = "apple_calendar"
	KindLarkCalendar         Kind = "lark_calendar"
	KindICSFeedCalendar      Kind = "ics-feed_calendar"
	KindExchangeCalendar     Kind = "exchange_calendar"
	KindExchange2013Calendar Kind = "exchange2013_calendar"
	KindExchange2016Calendar Kind = "exchange2016_calendar"
)

var knownKinds = map[Kind]struct{}{
	KindGoogleCalendar:       {},
	KindOffice365Calendar:    {},
	KindCalDAVCalendar:       {},
	KindAppleCalendar:        {},
	KindLarkCalendar:         {},
	KindICSFeedCalendar:      {},
	KindExchangeCalendar:     {},
	KindExchange2013Calendar: {},
	KindExchange2016Calendar: {},
}

// String returns the wire value of the kind.
func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known integration kinds.
func (k Kind) Valid() bool {
	_, ok := knownKinds[k]
	return ok
}

// ParseKind converts user input into a Kind, rejecting unknown values.
func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if k == "" {
		return "", ErrEmptyKind
	}
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownKind, raw, strings.Join(KnownKinds(), ", "))
	}
	return k, nil
}

// KnownKinds returns the sorted list of kind names.
func KnownKinds() []string {
	names := make([]string, 0, len(knownKinds))
	for k := range knownKinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Phase is the sync phase of a single toggle.
type Phase string

const (
	PhaseConfirmedOff Phase = "off"
	PhaseConfirmedOn  Phase = "on"
	PhasePending      Phase = "pending"
)

// String returns the phase label.
func (p Phase) String() string {
	return string(p)
}
