package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/retry"
	"go-outreach-automation/utils"
)

// Authenticator signs a fresh session in with login and password.
type Authenticator struct {
	platform    config.PlatformConfig
	credentials config.Credentials
	selectors   config.SelectorConfig
	retry       config.RetryConfig
	pacer       *utils.Pacer
	shots       *utils.ScreenshotDebugger
	logger      *slog.Logger
}

func NewAuthenticator(cfg config.Config, pacer *utils.Pacer, shots *utils.ScreenshotDebugger, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		platform:    cfg.Platform,
		credentials: cfg.Credentials,
		selectors:   cfg.Selectors,
		retry:       cfg.Retry,
		pacer:       pacer,
		shots:       shots,
		logger:      logger.With("component", "auth"),
	}
}

// Authenticate runs the login flow, retrying it a bounded number of times.
// It reports success only when the browser left the login page.
func (a *Authenticator) Authenticate(ctx context.Context, s page.Session) bool {
	err := retry.Do(ctx, retry.Policy{
		Attempts:  a.retry.AuthAttempts,
		Delay:     a.retry.AuthPause,
		Retryable: func(err error) bool { return !isTransport(err) },
		OnRetry: func(attempt int, err error) {
			a.logger.Warn("login attempt failed, retrying", "attempt", attempt, "error", err)
		},
	}, func(ctx context.Context) error {
		return a.login(ctx, s)
	})
	if err != nil {
		a.logger.Error("authentication failed", "error", err)
		a.shots.Capture(s, "login")
		return false
	}
	a.logger.Info("authenticated")
	return true
}

func (a *Authenticator) login(ctx context.Context, s page.Session) error {
	if err := a.pacer.Navigation(ctx); err != nil {
		return err
	}
	if err := s.Navigate(a.platform.LoginURL); err != nil {
		return fmt.Errorf("%w: login page: %w", ErrPageLoad, err)
	}
	if err := a.pacer.Step(ctx, 0); err != nil {
		return err
	}

	// the password form hides behind a switch on the short-code page;
	// some layouts show it directly
	if a.selectors.LoginSwitchText != "" {
		sw, err := s.FindOne(page.Text(a.selectors.LoginSwitchText))
		switch {
		case err == nil:
			if err := sw.Click(); err != nil {
				return fmt.Errorf("login switch: %w", err)
			}
		case !errors.Is(err, page.ErrNotFound):
			return fmt.Errorf("login switch: %w", err)
		}
	}

	if err := a.fill(ctx, s, a.selectors.UsernameInput, a.credentials.Login); err != nil {
		return fmt.Errorf("username: %w", err)
	}
	if err := a.fill(ctx, s, a.selectors.PasswordInput, a.credentials.Password); err != nil {
		return fmt.Errorf("password: %w", err)
	}

	submit, err := a.submitControl(s)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := submit.Click(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := a.pacer.Step(ctx, 0); err != nil {
		return err
	}

	location, err := s.CurrentURL()
	if err != nil {
		return err
	}
	if sameLocation(location, a.platform.LoginURL) {
		return fmt.Errorf("%w: still on login page", ErrAuthentication)
	}
	return nil
}

func (a *Authenticator) fill(ctx context.Context, s page.Session, selector, value string) error {
	field, err := s.FindOne(page.CSS(selector))
	if err != nil {
		return err
	}
	if err := field.Clear(); err != nil {
		return err
	}
	return field.Type(value, a.pacer.TypingDelay())
}

// submitControl prefers an element whose text is exactly the submit label,
// since the login switch also contains it.
func (a *Authenticator) submitControl(s page.Session) (page.Node, error) {
	candidates, err := s.FindAll(page.Text(a.selectors.SubmitText))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, page.ErrNotFound
	}
	for _, c := range candidates {
		if text, err := c.Text(); err == nil && strings.TrimSpace(text) == a.selectors.SubmitText {
			return c, nil
		}
	}
	return candidates[0], nil
}

func sameLocation(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}
