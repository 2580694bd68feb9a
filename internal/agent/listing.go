package agent

import (
	"context"
	"fmt"
	"strings"

	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/retry"
)

// loadListing navigates to the listing page, retrying transient failures.
// An anti-bot interstitial counts as a failed load.
func (a *Agent) loadListing(ctx context.Context, s page.Session) error {
	err := retry.Do(ctx, retry.Policy{
		Attempts:  a.cfg.Retry.PageLoadAttempts,
		Delay:     a.cfg.Retry.PageLoadPause,
		Retryable: func(err error) bool { return !isTransport(err) },
		OnRetry: func(attempt int, err error) {
			a.logger.Warn("listing load failed, retrying", "attempt", attempt, "error", err)
		},
	}, func(ctx context.Context) error {
		if err := a.pacer.Navigation(ctx); err != nil {
			return err
		}
		if err := s.Navigate(a.cfg.Platform.ListingURL); err != nil {
			if isTransport(err) {
				return fmt.Errorf("%w: %w", ErrTransport, err)
			}
			return fmt.Errorf("%w: %w", ErrPageLoad, err)
		}
		if err := a.pacer.Step(ctx, 0); err != nil {
			return err
		}
		return a.checkChallenge(s)
	})
	if err != nil {
		if isTransport(err) {
			return err
		}
		return fmt.Errorf("%w: listing: %w", ErrPageLoad, err)
	}
	return nil
}

func (a *Agent) checkChallenge(s page.Session) error {
	markers := a.cfg.Selectors.ChallengeMarkers
	if len(markers) == 0 {
		return nil
	}

	title, err := s.Title()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageLoad, err)
	}
	if m, ok := firstMarker(title, markers); ok {
		return fmt.Errorf("%w: challenge page %q", ErrPageLoad, m)
	}

	bodies, err := s.FindAll(page.CSS("body"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPageLoad, err)
	}
	for _, b := range bodies {
		text, err := b.Text()
		if err != nil {
			continue
		}
		// a real listing is long; only short pages are inspected
		if len(text) > 2000 {
			continue
		}
		if m, ok := firstMarker(text, markers); ok {
			return fmt.Errorf("%w: challenge page %q", ErrPageLoad, m)
		}
	}
	return nil
}

func firstMarker(text string, markers []string) (string, bool) {
	for _, m := range markers {
		if m != "" && strings.Contains(text, m) {
			return m, true
		}
	}
	return "", false
}
