package twin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// CalendarPath is the endpoint served by the twin.
const CalendarPath = "/api/availability/calendar"

type selectionBody struct {
	Integration string `json:"integration"`
	ExternalID  string `json:"externalId"`
}

// Twin is an in-memory stand-in for the booking server's calendar endpoint.
type Twin struct {
	Store  *MemoryStore
	Faults *FaultRegistry
	Router *chi.Mux
	logger *slog.Logger

	latency atomic.Int64
}

func New(store *MemoryStore, latency time.Duration, logger *slog.Logger) *Twin {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Twin{
		Store:  store,
		Faults: NewFaultRegistry(),
		Router: chi.NewRouter(),
		logger: logger,
	}
	t.latency.Store(int64(latency))

	t.Router.Use(chimw.RequestID)
	t.Router.Use(chimw.RealIP)
	t.Router.Use(t.requestLog)

	t.Router.Route(CalendarPath, func(r chi.Router) {
		r.Use(t.inject)
		r.Get("/", t.handleList)
		r.Post("/", t.handleSelect(true))
		r.Delete("/", t.handleSelect(false))
	})

	t.Router.Route("/admin", func(r chi.Router) {
		r.Post("/reset", t.handleReset)
		r.Get("/state", t.handleState)
		r.Get("/faults", t.handleListFaults)
		r.Post("/fault", t.handleInjectFault)
		r.Delete("/fault/{method}", t.handleRemoveFault)
		r.Post("/latency", t.handleLatency)
	})

	return t
}

func (t *Twin) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.Router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled.
func (t *Twin) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: t, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (t *Twin) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		t.logger.Debug("twin request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}

// inject applies latency and forced faults to calendar requests.
func (t *Twin) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay := time.Duration(t.latency.Load())
		fault := t.Faults.Take(r.Method)
		if fault != nil && fault.Delay > 0 {
			delay += fault.Delay
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault != nil {
			t.Store.Record(RequestEntry{Method: r.Method, Status: fault.StatusCode})
			writeError(w, fault.StatusCode, "injected fault")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (t *Twin) handleList(w http.ResponseWriter, r *http.Request) {
	t.Store.Record(RequestEntry{Method: r.Method, Status: http.StatusOK})
	writeJSON(w, http.StatusOK, t.Store.List())
}

func (t *Twin) handleSelect(selected bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body selectionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Store.Record(RequestEntry{Method: r.Method, Status: http.StatusBadRequest})
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		integration := strings.ToLower(strings.TrimSpace(body.Integration))
		externalID := strings.TrimSpace(body.ExternalID)
		if integration == "" || externalID == "" {
			t.Store.Record(RequestEntry{Method: r.Method, Status: http.StatusBadRequest})
			writeError(w, http.StatusBadRequest, "integration and externalId are required")
			return
		}

		status := http.StatusOK
		if !selected {
			status = http.StatusNoContent
		}
		if !t.Store.Select(integration, externalID, selected) {
			status = http.StatusNotFound
		}
		t.Store.Record(RequestEntry{Method: r.Method, Integration: integration, ExternalID: externalID, Status: status})

		switch status {
		case http.StatusNotFound:
			writeError(w, status, "calendar not found")
		case http.StatusNoContent:
			w.WriteHeader(status)
		default:
			c, _ := t.Store.Get(integration, externalID)
			writeJSON(w, status, c)
		}
	}
}

func (t *Twin) handleReset(w http.ResponseWriter, r *http.Request) {
	t.Store.Reset()
	t.Faults.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (t *Twin) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.Store.Snapshot())
}

func (t *Twin) handleListFaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, t.Faults.All())
}

func (t *Twin) handleInjectFault(w http.ResponseWriter, r *http.Request) {
	var fault FaultConfig
	if err := json.NewDecoder(r.Body).Decode(&fault); err != nil {
		writeError(w, http.StatusBadRequest, "invalid fault config: "+err.Error())
		return
	}
	t.Faults.Set(fault)
	writeJSON(w, http.StatusOK, map[string]any{"status": "injected", "fault": fault})
}

func (t *Twin) handleRemoveFault(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")
	if t.Faults.Remove(method) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "method": strings.ToUpper(method)})
		return
	}
	writeError(w, http.StatusNotFound, "no fault registered for "+method)
}

func (t *Twin) handleLatency(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latency string `json:"latency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	d, err := time.ParseDuration(body.Latency)
	if err != nil || d < 0 {
		writeError(w, http.StatusBadRequest, "invalid latency duration")
		return
	}
	t.latency.Store(int64(d))
	writeJSON(w, http.StatusOK, map[string]string{"latency": d.String()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"message": message, "status": status}})
}
