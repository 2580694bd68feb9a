package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-outreach-automation/internal/logger"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/page/htmlpage"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingNotifier) Notify(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, text)
	return nil
}

func assertAllClosed(t *testing.T, l *htmlpage.Launcher) {
	t.Helper()
	for i, b := range l.Launched() {
		_, err := b.CurrentURL()
		assert.ErrorIs(t, err, page.ErrSessionClosed, "session %d still open", i)
	}
}

func TestAgent_EndToEnd(t *testing.T) {
	cfg := testConfig()
	st := newStore(t)
	launcher := &htmlpage.Launcher{Site: site(map[string]string{"100": "Математика", "200": "История"}, "100", "200")}

	a, sl := runAgent(t, cfg, launcher, st, 2, nil)

	assert.Equal(t, []htmlpage.Submission{{URL: chatURL("100"), Value: message}}, launcher.Submitted())

	ok, err := st.Contains(context.Background(), "100")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Contains(context.Background(), "200")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := a.Stats()
	assert.Equal(t, 2, stats.Cycles)
	assert.Equal(t, map[string]int{"sent": 1}, stats.Outcomes, "second scan processes nothing")
	assert.Equal(t, 1, stats.StoreSize)
	assert.Equal(t, 1, stats.SessionsStarted)
	assert.Equal(t, []time.Duration{cfg.Schedule.CheckInterval, cfg.Schedule.CheckInterval}, sl.Pauses())

	// cancellation released the session
	require.Len(t, launcher.Launched(), 1)
	assertAllClosed(t, launcher)
	assert.Equal(t, StateNoSession.String(), stats.State)
}

func TestAgent_CapPerCycle(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule.MaxPostingsPerCycle = 10
	st := newStore(t)

	cards := make(map[string]string)
	var order []string
	for i := 1; i <= 15; i++ {
		id := strconv.Itoa(1000 + i)
		cards[id] = "Математика"
		order = append(order, id)
	}
	launcher := &htmlpage.Launcher{Site: site(cards, order...)}

	var afterFirst int
	runAgent(t, cfg, launcher, st, 2, func(n int) {
		if n == 1 {
			afterFirst, _ = st.Count(context.Background())
		}
	})

	assert.Equal(t, 10, afterFirst)
	total, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, total)
	assert.Len(t, launcher.Submitted(), 15)

	// postings are handled in listing order
	first := launcher.Submitted()[0]
	assert.Equal(t, chatURL("1001"), first.URL)
}

func TestAgent_BackoffEscalation(t *testing.T) {
	cfg := testConfig()
	s := site(map[string]string{"1": "Математика"}, "1")
	s[listingURL] = challengePage
	launcher := &htmlpage.Launcher{Site: s}
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl := &sleeper{stopAt: 4, cancel: cancel}
	a := New(cfg, launcher, newStore(t), logger.Discard(), WithSleep(sl.Sleep), WithNotifier(notifier))
	require.NoError(t, a.Run(ctx))

	short, long := cfg.Backoff.ShortPause, cfg.Backoff.LongPause
	assert.Equal(t, []time.Duration{short, short, long, short}, sl.Pauses())
	assert.Equal(t, 1, a.Stats().ConsecutiveFailures, "counter restarts after the long pause")
	assert.Contains(t, a.Stats().LastError, ErrPageLoad.Error())

	// every failed cycle tears the session down
	assert.Len(t, launcher.Launched(), 4)
	assertAllClosed(t, launcher)

	// the listing load is retried in place before the cycle fails
	var loads int
	for _, b := range launcher.Launched() {
		loads += b.Navigations[listingURL]
	}
	assert.Equal(t, 4*cfg.Retry.PageLoadAttempts, loads)

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], long.String())
}

func TestAgent_UnhealthySessionIsReplaced(t *testing.T) {
	cfg := testConfig()
	launcher := &htmlpage.Launcher{Site: site(map[string]string{"7": "Математика"}, "7")}

	a, sl := runAgent(t, cfg, launcher, newStore(t), 2, func(n int) {
		if n == 1 {
			launcher.Launched()[0].Kill()
		}
	})

	require.Len(t, launcher.Launched(), 2)
	assert.Equal(t, 2, a.Stats().SessionsStarted)
	assert.Equal(t, 2, a.Stats().Cycles)
	assert.Equal(t, []time.Duration{cfg.Schedule.CheckInterval, cfg.Schedule.CheckInterval}, sl.Pauses())
	assert.Len(t, launcher.Submitted(), 1)
}

func TestAgent_AuthFailureEscalation(t *testing.T) {
	cfg := testConfig()
	cfg.Backoff.AuthFailureThreshold = 2
	launcher := &htmlpage.Launcher{Site: htmlpage.Site{loginURL: brokenLoginPage}}

	a, sl := runAgent(t, cfg, launcher, newStore(t), 3, nil)

	assert.Equal(t, []time.Duration{cfg.Backoff.AuthPause, cfg.Backoff.AuthLongPause, cfg.Backoff.AuthPause}, sl.Pauses())
	assert.Equal(t, 3, a.Stats().AuthFailures)
	assert.Zero(t, a.Stats().Cycles)
	assert.Len(t, launcher.Launched(), 3)
	assertAllClosed(t, launcher)
}

func TestAgent_LaunchFailure(t *testing.T) {
	cfg := testConfig()
	launcher := &htmlpage.Launcher{Fail: errors.New("chromium not installed")}

	a, sl := runAgent(t, cfg, launcher, newStore(t), 2, nil)

	assert.Equal(t, []time.Duration{cfg.Backoff.AuthPause, cfg.Backoff.AuthPause}, sl.Pauses())
	assert.Equal(t, "chromium not installed", a.Stats().LastError)
}

func TestAgent_FailedPostingRetriedNextCycle(t *testing.T) {
	cfg := testConfig()
	st := newStore(t)
	s := site(map[string]string{"5": "Математика", "6": "Математика"}, "5", "6")
	s[chatURL("5")] = chatNoInput
	launcher := &htmlpage.Launcher{Site: s}

	a, _ := runAgent(t, cfg, launcher, st, 2, nil)

	stats := a.Stats()
	// one failure per cycle for 5; 6 is sent once
	assert.Equal(t, map[string]int{"failed": 2, "sent": 1}, stats.Outcomes)
	assert.Zero(t, stats.ConsecutiveFailures, "a posting failure is not a cycle failure")

	ok, err := st.Contains(context.Background(), "5")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAgent_NotifiesSentOutreach(t *testing.T) {
	cfg := testConfig()
	launcher := &htmlpage.Launcher{Site: site(map[string]string{"100": "Математика"}, "100")}
	notifier := &recordingNotifier{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sl := &sleeper{stopAt: 1, cancel: cancel}
	a := New(cfg, launcher, newStore(t), logger.Discard(), WithSleep(sl.Sleep), WithNotifier(notifier))
	require.NoError(t, a.Run(ctx))

	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "№100")
	assert.Contains(t, notifier.sent[0], "Математика")
}

func TestAgent_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	launcher := &htmlpage.Launcher{Site: site(nil)}

	a := New(testConfig(), launcher, newStore(t), logger.Discard())
	require.NoError(t, a.Run(ctx))
	assert.Empty(t, launcher.Launched())
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateNoSession: "no_session",
		StateHealthy:   "healthy",
		StateUnhealthy: "unhealthy",
		State(9):       "unknown",
	} {
		assert.Equal(t, want, s.String(), fmt.Sprint(int(s)))
	}
}
