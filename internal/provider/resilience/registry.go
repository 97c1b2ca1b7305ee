package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth summarizes the calls one client made during the run.
type ProviderHealth struct {
	Name string

	// CircuitState and Counts are read from the client's breaker.
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	// Calls and Failures count every outcome seen by the registry,
	// including calls rejected by an open circuit.
	Calls    int
	Failures int

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// IsHealthy returns true if the circuit is closed.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsUnhealthy returns true if the circuit is open.
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// FailureRate returns Failures/Calls, or 0 before the first call.
func (h *ProviderHealth) FailureRate() float64 {
	if h.Calls == 0 {
		return 0
	}
	return float64(h.Failures) / float64(h.Calls)
}

// Registry collects call outcomes per client for the end-of-run report.
type Registry struct {
	mu      sync.Mutex
	clients map[string]*clientRecord
}

type clientRecord struct {
	client        *Client
	calls         int
	failures      int
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*clientRecord)}
}

// Register adds a client. Registering a name again resets its record.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = &clientRecord{client: client}
}

// RecordSuccess records a successful call.
func (r *Registry) RecordSuccess(name string) {
	r.record(name, func(rec *clientRecord, now time.Time) {
		rec.lastSuccessAt = &now
	})
}

// RecordFailure records a failed call.
func (r *Registry) RecordFailure(name string, err error) {
	r.record(name, func(rec *clientRecord, now time.Time) {
		rec.failures++
		rec.lastFailureAt = &now
		if err != nil {
			rec.lastError = err.Error()
		}
	})
}

func (r *Registry) record(name string, fn func(*clientRecord, time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.clients[name]
	if !ok {
		return
	}
	rec.calls++
	fn(rec, time.Now())
}

// GetAllHealth returns the health of every client, sorted by name.
func (r *Registry) GetAllHealth() []*ProviderHealth {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*ProviderHealth, 0, len(r.clients))
	for name, rec := range r.clients {
		all = append(all, rec.health(name))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}

func (rec *clientRecord) health(name string) *ProviderHealth {
	return &ProviderHealth{
		Name:          name,
		CircuitState:  rec.client.CircuitBreakerState(),
		Counts:        rec.client.CircuitBreakerCounts(),
		Calls:         rec.calls,
		Failures:      rec.failures,
		LastSuccessAt: rec.lastSuccessAt,
		LastFailureAt: rec.lastFailureAt,
		LastError:     rec.lastError,
	}
}
