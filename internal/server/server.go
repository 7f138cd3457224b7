package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/melih-ucgun/calswitch/internal/cache"
	"github.com/melih-ucgun/calswitch/internal/core"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ToggleView is the JSON shape of a toggle returned by the API.
type ToggleView struct {
	Integration string     `json:"integration"`
	ExternalID  string     `json:"externalId"`
	Title       string     `json:"title,omitempty"`
	Destination bool       `json:"destination,omitempty"`
	Enabled     bool       `json:"enabled"`
	Confirmed   bool       `json:"confirmed"`
	Phase       core.Phase `json:"phase"`
	LastError   string     `json:"lastError,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toggleView(st core.ToggleState) ToggleView {
	return ToggleView{
		Integration: st.Toggle.Kind.String(),
		ExternalID:  st.Toggle.Identity,
		Title:       st.Toggle.Title,
		Destination: st.Toggle.Destination,
		Enabled:     st.Visible,
		Confirmed:   st.Confirmed,
		Phase:       st.Phase(),
		LastError:   st.LastError,
		UpdatedAt:   st.UpdatedAt,
	}
}

type toggleRequest struct {
	Enabled *bool  `json:"enabled"`
	Title   string `json:"title"`
}

// Server is the local control API in front of a Syncer.
type Server struct {
	echo        *echo.Echo
	syncer      *core.Syncer
	query       *cache.Query[[]core.Selection]
	invalidator core.Invalidator
	hub         *Hub
	ctx         context.Context
}

type Options struct {
	Syncer      *core.Syncer
	Query       *cache.Query[[]core.Selection]
	Invalidator core.Invalidator
	Hub         *Hub
	// Validator enables bearer authentication when set.
	Validator TokenValidator
	// Context bounds toggle interactions started by PUT requests.
	Context context.Context
}

func New(opts Options) *Server {
	hub := opts.Hub
	if hub == nil {
		hub = NewHub()
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Server{
		echo:        echo.New(),
		syncer:      opts.Syncer,
		query:       opts.Query,
		invalidator: opts.Invalidator,
		hub:         hub,
		ctx:         ctx,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Count()})
	})

	api := s.echo.Group("")
	if opts.Validator != nil {
		api.Use(requireToken(opts.Validator))
	}
	api.GET("/toggles", s.listToggles)
	api.GET("/toggles/:kind/:id", s.getToggle)
	api.PUT("/toggles/:kind/:id", s.putToggle)
	api.POST("/refresh", s.refresh)
	api.GET("/ws", s.websocket)

	return s
}

// Handler exposes the router for tests and custom listeners.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) listToggles(c echo.Context) error {
	if s.query != nil {
		if _, err := s.query.Get(c.Request().Context()); err != nil {
			slog.Warn("calendar list fetch failed", slog.Any("error", err))
			if len(s.syncer.States()) == 0 {
				return echo.NewHTTPError(http.StatusBadGateway, "could not load calendars")
			}
		}
	}
	return c.JSON(http.StatusOK, views(s.syncer.States()))
}

func (s *Server) getToggle(c echo.Context) error {
	t, err := toggleFromPath(c)
	if err != nil {
		return err
	}
	st, ok := s.syncer.State(t.Key())
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "toggle not found")
	}
	return c.JSON(http.StatusOK, toggleView(st))
}

func (s *Server) putToggle(c echo.Context) error {
	t, err := toggleFromPath(c)
	if err != nil {
		return err
	}

	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Enabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "enabled field is required")
	}

	t.Title = strings.TrimSpace(req.Title)
	current, tracked := s.syncer.State(t.Key())
	if tracked {
		if t.Title == "" {
			t.Title = current.Toggle.Title
		}
		t.Destination = current.Toggle.Destination
	} else {
		current = s.syncer.Track(t, !*req.Enabled)
	}

	// The interaction outlives the request; it settles in the background.
	s.syncer.Go(s.ctx, t, *req.Enabled)

	pending := current
	pending.Toggle = t
	pending.Visible = *req.Enabled
	pending.Pending = true
	pending.LastError = ""
	return c.JSON(http.StatusAccepted, toggleView(pending))
}

func (s *Server) refresh(c echo.Context) error {
	ctx := c.Request().Context()
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, core.IntegrationsQueryKey); err != nil {
			slog.Warn("refresh invalidation failed", slog.Any("error", err))
		}
	}
	if s.query != nil {
		if _, err := s.query.Refetch(ctx); err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("refetch failed: %v", err))
		}
	}
	return c.JSON(http.StatusOK, views(s.syncer.States()))
}

func (s *Server) websocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("ws upgrade failed", slog.String("ip", c.RealIP()), slog.Any("error", err))
		return err
	}

	sessionID := uuid.New().String()
	client := NewClient(s.hub, conn, sessionID, 32)
	s.hub.Attach(client)

	go client.WritePump()
	go client.ReadPump()

	client.enqueue(Message{
		Type:      MessageSystem,
		Data:      map[string]any{"action": "connected", "sessionId": sessionID, "toggles": views(s.syncer.States())},
		Timestamp: time.Now().UTC(),
	})
	slog.Info("ws connected", slog.String("sessionId", sessionID), slog.String("ip", c.RealIP()))
	return nil
}

func toggleFromPath(c echo.Context) (core.Toggle, error) {
	kind, err := core.ParseKind(c.Param("kind"))
	if err != nil {
		return core.Toggle{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := core.Toggle{Kind: kind, Identity: strings.TrimSpace(c.Param("id"))}
	if err := t.Validate(); err != nil {
		return core.Toggle{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return t, nil
}

func views(states []core.ToggleState) []ToggleView {
	out := make([]ToggleView, 0, len(states))
	for _, st := range states {
		out = append(out, toggleView(st))
	}
	return out
}
