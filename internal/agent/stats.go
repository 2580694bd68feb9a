package agent

import (
	"context"
	"maps"
	"time"
)

// Stats is a point-in-time view of the agent for the status endpoint.
type Stats struct {
	State               string         `json:"state"`
	Cycles              int            `json:"cycles"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	AuthFailures        int            `json:"auth_failures"`
	SessionsStarted     int            `json:"sessions_started"`
	Outcomes            map[string]int `json:"outcomes"`
	LastCycleID         string         `json:"last_cycle_id,omitempty"`
	LastCycleAt         time.Time      `json:"last_cycle_at,omitzero"`
	LastError           string         `json:"last_error,omitempty"`
	StoreSize           int            `json:"store_size"`
}

// Stats returns a copy of the current statistics.
func (a *Agent) Stats() Stats {
	a.mu.Lock()
	s := a.stats
	s.Outcomes = maps.Clone(a.stats.Outcomes)
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if n, err := a.store.Count(ctx); err == nil {
		s.StoreSize = n
	}
	return s
}

func (a *Agent) updateStats(fn func(*Stats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.stats)
}
