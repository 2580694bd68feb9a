package agent

import "go-outreach-automation/internal/page"

// IsHealthy probes the session with a location read and a trivial script.
// Any failure, including a panic inside the driver, reports unhealthy.
func IsHealthy(s page.Session) (healthy bool) {
	if s == nil {
		return false
	}
	defer func() {
		if recover() != nil {
			healthy = false
		}
	}()

	if _, err := s.CurrentURL(); err != nil {
		return false
	}
	if _, err := s.Execute("1 + 1"); err != nil {
		return false
	}
	return true
}
