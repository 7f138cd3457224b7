package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/melih-ucgun/calswitch/internal/core"
)

// DefaultCalendarPath is the selected-calendar endpoint of the booking server.
const DefaultCalendarPath = "/api/availability/calendar"

// SelectionPayload is the request body of both POST and DELETE.
type SelectionPayload struct {
	Integration string `json:"integration"`
	ExternalID  string `json:"externalId"`
}

// CalendarItem is one entry of the list response.
type CalendarItem struct {
	Integration string `json:"integration"`
	ExternalID  string `json:"externalId"`
	Name        string `json:"name,omitempty"`
	Selected    *bool  `json:"selected,omitempty"`
	Destination bool   `json:"destination,omitempty"`
}

// CalendarClient talks to the selected-calendar endpoint. It implements
// core.Handler for every calendar kind.
type CalendarClient struct {
	rest   *RESTClient
	path   string
	logger core.Logger
}

// Options configures a CalendarClient.
type Options struct {
	BaseURL     string
	Path        string
	Timeout     time.Duration
	Credentials Credentials
	HTTPClient  *http.Client
	Logger      core.Logger
}

func NewCalendarClient(opts Options) *CalendarClient {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		path = DefaultCalendarPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = core.NewDefaultLogger(io.Discard, core.LevelError)
	}
	return &CalendarClient{
		rest:   NewRESTClient(opts.BaseURL, opts.Timeout, opts.Credentials, opts.HTTPClient),
		path:   path,
		logger: logger,
	}
}

// Enable selects the calendar with a POST.
func (c *CalendarClient) Enable(ctx context.Context, t core.Toggle) error {
	return c.send(ctx, http.MethodPost, t)
}

// Disable deselects the calendar with a DELETE carrying the same body.
func (c *CalendarClient) Disable(ctx context.Context, t core.Toggle) error {
	return c.send(ctx, http.MethodDelete, t)
}

func (c *CalendarClient) send(ctx context.Context, method string, t core.Toggle) error {
	body, err := json.Marshal(SelectionPayload{Integration: t.Kind.String(), ExternalID: t.Identity})
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	req, err := c.rest.NewRequest(ctx, method, c.path, bytes.NewReader(body))
	if err != nil {
		return &RemoteCallError{Method: method, Err: err}
	}

	c.logger.Debug("calendar-client: request", "method", method, "url", req.URL.String(), "externalId", t.Identity)
	res, err := c.rest.Do(req)
	if err != nil {
		c.logger.Debug("calendar-client: request error", "method", method, "error", err)
		return &RemoteCallError{Method: method, Err: err}
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	c.logger.Debug("calendar-client: response", "method", method, "status", res.StatusCode)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &RemoteCallError{Method: method, Status: res.StatusCode}
	}
	return nil
}

// List fetches the currently known calendars with their selected flag.
// Items of unknown kinds are skipped.
func (c *CalendarClient) List(ctx context.Context) ([]core.Selection, error) {
	req, err := c.rest.NewRequest(ctx, http.MethodGet, c.path, nil)
	if err != nil {
		return nil, &RemoteCallError{Method: http.MethodGet, Err: err}
	}

	res, err := c.rest.Do(req)
	if err != nil {
		return nil, &RemoteCallError{Method: http.MethodGet, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		c.logger.Debug("calendar-client: list failed", "status", res.StatusCode, "body", strings.TrimSpace(string(body)))
		return nil, &RemoteCallError{Method: http.MethodGet, Status: res.StatusCode}
	}

	var items []CalendarItem
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	return c.toSelections(items), nil
}

func (c *CalendarClient) toSelections(items []CalendarItem) []core.Selection {
	out := make([]core.Selection, 0, len(items))
	for _, item := range items {
		kind, err := core.ParseKind(item.Integration)
		if err != nil || strings.TrimSpace(item.ExternalID) == "" {
			c.logger.Warn(fmt.Sprintf("Skipping calendar %q: %v", item.ExternalID, err))
			continue
		}
		enabled := true
		if item.Selected != nil {
			enabled = *item.Selected
		}
		out = append(out, core.Selection{
			Toggle: core.Toggle{
				Identity:    item.ExternalID,
				Kind:        kind,
				Title:       item.Name,
				Destination: item.Destination,
			},
			Enabled: enabled,
		})
	}
	return out
}

var _ core.Handler = (*CalendarClient)(nil)
