// Package agent runs the outreach loop: it owns the browser session,
// scans the listing page, processes new postings one at a time and backs
// off when the remote side misbehaves.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/matcher"
	"go-outreach-automation/internal/notify"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/posting"
	"go-outreach-automation/internal/retry"
	"go-outreach-automation/internal/store"
	"go-outreach-automation/utils"
)

// State of the session state machine.
type State int

const (
	StateNoSession State = iota
	StateHealthy
	StateUnhealthy
)

func (s State) String() string {
	switch s {
	case StateNoSession:
		return "no_session"
	case StateHealthy:
		return "healthy"
	case StateUnhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Agent)

// WithSleep replaces the pause between cycles and after failures.
func WithSleep(fn SleepFunc) Option {
	return func(a *Agent) { a.sleep = fn }
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *Agent) { a.notifier = n }
}

func WithScreenshots(d *utils.ScreenshotDebugger) Option {
	return func(a *Agent) { a.shots = d }
}

// Agent is the session loop. Only Stats may be called from another
// goroutine while Run is active.
type Agent struct {
	cfg       config.Config
	launcher  page.Launcher
	store     store.Store
	matcher   *matcher.Matcher
	auth      *Authenticator
	processor *Processor
	notifier  notify.Notifier
	pacer     *utils.Pacer
	shots     *utils.ScreenshotDebugger
	sleep     SleepFunc
	logger    *slog.Logger

	session      page.Session
	state        State
	cycleBackoff *Backoff
	authBackoff  *Backoff

	mu    sync.Mutex
	stats Stats
}

func New(cfg config.Config, launcher page.Launcher, st store.Store, logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		cfg:      cfg,
		launcher: launcher,
		store:    st,
		notifier: notify.Noop{},
		pacer:    utils.NewPacer(cfg.Pacing),
		sleep:    retry.Sleep,
		logger:   logger.With("component", "agent"),
		cycleBackoff: &Backoff{
			Short:     cfg.Backoff.ShortPause,
			Long:      cfg.Backoff.LongPause,
			Threshold: cfg.Backoff.FailureThreshold,
		},
		authBackoff: &Backoff{
			Short:     cfg.Backoff.AuthPause,
			Long:      cfg.Backoff.AuthLongPause,
			Threshold: cfg.Backoff.AuthFailureThreshold,
		},
		stats: Stats{Outcomes: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.matcher = matcher.New(cfg.Matcher, cfg.Outreach.Categories, logger)
	a.auth = NewAuthenticator(cfg, a.pacer, a.shots, logger)
	a.processor = NewProcessor(cfg, st, a.pacer, a.shots, logger)
	return a
}

// Run drives the state machine until ctx is cancelled. The session, if
// any, is released before Run returns.
func (a *Agent) Run(ctx context.Context) error {
	defer a.release()
	a.logger.Info("agent started",
		"categories", a.cfg.Outreach.Categories,
		"interval", a.cfg.Schedule.CheckInterval,
		"cap", a.cfg.Schedule.MaxPostingsPerCycle,
		"send_enabled", a.cfg.Outreach.SendEnabled)

	for ctx.Err() == nil {
		switch a.state {
		case StateNoSession:
			if a.establish(ctx) {
				a.authBackoff.Success()
				a.setState(StateHealthy)
				continue
			}
			if ctx.Err() != nil {
				break
			}
			pause, long := a.authBackoff.Failure()
			a.updateStats(func(s *Stats) { s.AuthFailures++ })
			if long {
				a.notify(ctx, fmt.Sprintf("Вход не удался несколько раз подряд, пауза %s", pause))
			}
			a.wait(ctx, pause)

		case StateHealthy:
			if !IsHealthy(a.session) {
				a.logger.Warn("session unhealthy")
				a.setState(StateUnhealthy)
				continue
			}
			err := a.runCycle(ctx)
			if ctx.Err() != nil {
				break
			}
			if err == nil {
				a.cycleBackoff.Success()
				a.updateStats(func(s *Stats) { s.ConsecutiveFailures = 0 })
				a.wait(ctx, a.cfg.Schedule.CheckInterval)
				continue
			}

			a.logger.Error("cycle failed", "error", err)
			a.release()
			pause, long := a.cycleBackoff.Failure()
			a.updateStats(func(s *Stats) {
				s.ConsecutiveFailures = a.cycleBackoff.Count()
				s.LastError = err.Error()
			})
			if long {
				a.logger.Warn("too many consecutive failures, long pause", "pause", pause)
				a.notify(ctx, fmt.Sprintf("Агент приостановлен на %s после ошибок: %v", pause, err))
			}
			a.wait(ctx, pause)

		case StateUnhealthy:
			a.release()
		}
	}

	a.logger.Info("agent stopped")
	return nil
}

// establish launches a browser and signs in. On failure the session is
// released.
func (a *Agent) establish(ctx context.Context) bool {
	s, err := a.launcher.Launch(ctx)
	if err != nil {
		a.logger.Error("browser launch failed", "error", err)
		a.updateStats(func(st *Stats) { st.LastError = err.Error() })
		return false
	}
	a.session = s
	a.updateStats(func(st *Stats) { st.SessionsStarted++ })

	if !a.auth.Authenticate(ctx, s) {
		a.updateStats(func(st *Stats) { st.LastError = ErrAuthentication.Error() })
		a.release()
		return false
	}
	return true
}

// release closes the session and moves to StateNoSession.
func (a *Agent) release() {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			a.logger.Warn("failed to close session", "error", err)
		}
		a.session = nil
	}
	a.setState(StateNoSession)
}

func (a *Agent) setState(s State) {
	a.state = s
	a.updateStats(func(st *Stats) { st.State = s.String() })
}

func (a *Agent) wait(ctx context.Context, d time.Duration) {
	if err := a.sleep(ctx, d); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("sleep interrupted", "error", err)
	}
}

// runCycle processes new postings until none is left, the cap is reached
// or the listing cannot be loaded. The listing is reloaded before each
// posting since processing navigates away from it.
func (a *Agent) runCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	log := a.logger.With("cycle", cycleID)
	a.updateStats(func(s *Stats) {
		s.Cycles++
		s.LastCycleID = cycleID
		s.LastCycleAt = time.Now()
	})

	limit := a.cfg.Schedule.MaxPostingsPerCycle
	attempted := make(map[string]bool)
	processed := 0
	for processed < limit {
		if err := a.loadListing(ctx, a.session); err != nil {
			return err
		}

		next, ok, err := a.nextPosting(ctx, a.matcher.Find(a.session), attempted)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		attempted[next.ID] = true
		processed++
		outcome, err := a.processor.Process(ctx, a.session, next)
		a.updateStats(func(s *Stats) { s.Outcomes[outcome.String()]++ })
		if err != nil {
			if isTransport(err) {
				return fmt.Errorf("%w: posting %s: %w", ErrTransport, next.ID, err)
			}
			log.Warn("posting not processed, will retry next cycle", "posting", next.ID, "error", err)
			continue
		}
		if outcome == OutcomeSent {
			a.notify(ctx, fmt.Sprintf("Сообщение отправлено: заявка №%s (%s)", next.ID, next.Category))
		}
	}

	log.Info("cycle finished", "processed", processed, "cap", limit)
	return nil
}

// nextPosting returns the first posting in matcher order that has an
// identifier, was not attempted in this cycle and is not in the store.
func (a *Agent) nextPosting(ctx context.Context, postings []posting.Posting, attempted map[string]bool) (posting.Posting, bool, error) {
	for _, p := range postings {
		if !p.Actionable() {
			a.logger.Debug("posting without identifier skipped", "category", p.Category)
			continue
		}
		if attempted[p.ID] {
			continue
		}
		known, err := a.store.Contains(ctx, p.ID)
		if err != nil {
			return posting.Posting{}, false, fmt.Errorf("store lookup %s: %w", p.ID, err)
		}
		if !known {
			return p, true, nil
		}
	}
	return posting.Posting{}, false, nil
}

func (a *Agent) notify(ctx context.Context, text string) {
	if err := a.notifier.Notify(ctx, text); err != nil {
		a.logger.Warn("notification failed", "error", err)
	}
}
