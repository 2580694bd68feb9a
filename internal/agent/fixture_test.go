package agent

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/logger"
	"go-outreach-automation/internal/page/htmlpage"
	"go-outreach-automation/internal/store"
)

const (
	loginURL   = "https://example.test/login"
	homeURL    = "https://example.test/home"
	listingURL = "https://example.test/orders"
	message    = "Здравствуйте! Готов заниматься с вашим ребёнком."
)

func orderURL(id string) string { return "https://example.test/order/" + id }
func chatURL(id string) string  { return "https://example.test/chat/" + id }

const loginPage = `<html><head><title>Вход</title></head><body>
	<div class="switch">Войти с логином и паролем</div>
	<input placeholder="логин или номер телефона" type="text">
	<input placeholder="пароль" type="password">
	<div class="submit" data-href="` + homeURL + `">Войти</div>
</body></html>`

const brokenLoginPage = `<html><body>
	<input placeholder="логин или номер телефона" type="text">
	<input placeholder="пароль" type="password">
	<div class="submit">Войти</div>
</body></html>`

const homePage = `<html><head><title>Кабинет</title></head><body><p>Добро пожаловать</p></body></html>`

const challengePage = `<html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`

var filler = strings.Repeat("Ученик 8 класса, занятия два раза в неделю онлайн. ", 12)

func card(subject, id string) string {
	return fmt.Sprintf(`<div class="card" data-href="%s"><div class="head"><span>%s</span><span>Заявка № %s</span></div>`+
		`<div class="body"><p>%s</p><b>1500 ₽</b></div></div>`, orderURL(id), subject, id, filler)
}

func listingPage(cards ...string) string {
	return `<html><head><title>Новые заявки</title></head><body><main>` + strings.Join(cards, "") + `</main></body></html>`
}

func orderPage(id string) string {
	return fmt.Sprintf(`<html><body><h1>Заявка %s</h1><div class="btn" data-href="%s">Начать чат с клиентом</div></body></html>`, id, chatURL(id))
}

const orderPageFallbackButton = `<html><body><div class="btn" data-href="%s">Нажмите, чтобы начать чат с клиентом</div></body></html>`

const orderPageNoButton = `<html><body><h1>Заявка закрыта</h1></body></html>`

const emptyChat = `<html><body><div data-testid="empty-chat">Здесь пока нет сообщений</div><textarea></textarea></body></html>`

const chatNoInput = `<html><body><div data-testid="empty-chat">Здесь пока нет сообщений</div></body></html>`

func chatWithBubbles(bubbles ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><div class="messages">`)
	for _, b := range bubbles {
		fmt.Fprintf(&sb, `<div class="css-146c3p1" dir="auto">%s</div>`, b)
	}
	sb.WriteString(`</div><input type="text" class="search"><div contenteditable="true" class="composer"></div></body></html>`)
	return sb.String()
}

// site builds a platform where every listed posting has a chat button and
// an empty conversation.
func site(cards map[string]string, order ...string) htmlpage.Site {
	s := htmlpage.Site{loginURL: loginPage, homeURL: homePage}
	var rendered []string
	for _, id := range order {
		rendered = append(rendered, card(cards[id], id))
		s[orderURL(id)] = orderPage(id)
		s[chatURL(id)] = emptyChat
	}
	s[listingURL] = listingPage(rendered...)
	return s
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Platform = config.PlatformConfig{LoginURL: loginURL, ListingURL: listingURL}
	cfg.Credentials = config.Credentials{Login: "tutor", Password: "secret"}
	cfg.Outreach = config.OutreachConfig{Message: message, Categories: []string{"Математика"}, SendEnabled: true}
	cfg.Pacing = config.PacingConfig{}
	cfg.Retry.PageLoadPause = 0
	cfg.Retry.AuthPause = 0
	cfg.Browser.ScreenshotDir = ""
	return cfg
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFile(filepath.Join(t.TempDir(), "processed.txt"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// sleeper records pauses and cancels the run after a number of them.
type sleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
	stopAt int
	cancel context.CancelFunc
	hook   func(n int)
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.pauses = append(s.pauses, d)
	n := len(s.pauses)
	s.mu.Unlock()
	if s.hook != nil {
		s.hook(n)
	}
	if n >= s.stopAt {
		s.cancel()
	}
	return ctx.Err()
}

func (s *sleeper) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

// runAgent runs the loop until the given number of pauses was taken.
func runAgent(t *testing.T, cfg config.Config, launcher *htmlpage.Launcher, st store.Store, pauses int, hook func(n int)) (*Agent, *sleeper) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sl := &sleeper{stopAt: pauses, cancel: cancel, hook: hook}
	a := New(cfg, launcher, st, logger.Discard(), WithSleep(sl.Sleep))
	require.NoError(t, a.Run(ctx))
	require.NotErrorIs(t, ctx.Err(), context.DeadlineExceeded, "agent did not reach the expected number of pauses")
	return a, sl
}
