package twin

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

// FaultConfig forces a response for one HTTP method of the calendar endpoint.
type FaultConfig struct {
	Method     string        `json:"method"`
	StatusCode int           `json:"status_code"`
	Delay      time.Duration `json:"delay_ms,omitempty"`
	// Count limits how many requests fail; 0 means until removed.
	Count int `json:"count,omitempty"`
}

// FaultRegistry manages injected faults keyed by method. "*" matches any method.
type FaultRegistry struct {
	mu     sync.Mutex
	faults map[string]FaultConfig
}

func NewFaultRegistry() *FaultRegistry {
	return &FaultRegistry{faults: make(map[string]FaultConfig)}
}

func (fr *FaultRegistry) Set(fault FaultConfig) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fault.Method = normalizeMethod(fault.Method)
	if fault.StatusCode == 0 {
		fault.StatusCode = http.StatusInternalServerError
	}
	fr.faults[fault.Method] = fault
}

func (fr *FaultRegistry) Remove(method string) bool {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	method = normalizeMethod(method)
	_, existed := fr.faults[method]
	delete(fr.faults, method)
	return existed
}

// Take returns the fault for method and consumes one use of it.
func (fr *FaultRegistry) Take(method string) *FaultConfig {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	for _, key := range []string{normalizeMethod(method), "*"} {
		f, ok := fr.faults[key]
		if !ok {
			continue
		}
		if f.Count > 0 {
			f.Count--
			if f.Count == 0 {
				delete(fr.faults, key)
			} else {
				fr.faults[key] = f
			}
		}
		return &f
	}
	return nil
}

func (fr *FaultRegistry) All() map[string]FaultConfig {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	out := make(map[string]FaultConfig, len(fr.faults))
	for k, v := range fr.faults {
		out[k] = v
	}
	return out
}

func (fr *FaultRegistry) Reset() {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.faults = make(map[string]FaultConfig)
}

func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return "*"
	}
	return m
}
