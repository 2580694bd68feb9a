package agent

import (
	"errors"
	"fmt"

	"go-outreach-automation/internal/page"
)

var (
	// ErrTransport means the browser session is unusable and must be torn down.
	ErrTransport = errors.New("transport failure")
	// ErrPageLoad means a navigation failed or landed on a challenge page.
	ErrPageLoad = errors.New("page load failure")
	// ErrExtraction means no identifier could be derived from a posting.
	ErrExtraction = errors.New("identifier extraction failure")
	// ErrAuthentication means the login flow did not reach a signed-in page.
	ErrAuthentication = errors.New("authentication failure")
)

// StepError records which processing step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, Err: err}
}

// isTransport reports whether err means the session is gone.
func isTransport(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, page.ErrSessionClosed)
}
