// Package browser drives Chromium through Playwright and exposes it as a
// page.Launcher.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/page"
)

// Launcher owns the Playwright driver. Every Launch starts a new browser
// process; the driver itself lives until Shutdown.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *slog.Logger

	mu sync.Mutex
	pw *playwright.Playwright
}

var _ page.Launcher = (*Launcher)(nil)

func NewLauncher(cfg config.BrowserConfig, logger *slog.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger.With("component", "browser")}
}

func (l *Launcher) driver() (*playwright.Playwright, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw != nil {
		return l.pw, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	l.pw = pw
	return pw, nil
}

func (l *Launcher) Launch(ctx context.Context) (page.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := l.driver()
	if err != nil {
		return nil, err
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless:          playwright.Bool(l.cfg.Headless),
		Args:              launchArgs,
		IgnoreDefaultArgs: ignoredDefaultArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}

	opts := playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(l.cfg.UserAgent),
		Viewport: &playwright.Size{
			Width:  l.cfg.ViewportWidth,
			Height: l.cfg.ViewportHeight,
		},
	}
	if l.cfg.Locale != "" {
		opts.Locale = playwright.String(l.cfg.Locale)
	}
	bctx, err := browser.NewContext(opts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	bctx.SetDefaultNavigationTimeout(float64(l.cfg.NavigationTimeout.Milliseconds()))
	bctx.SetDefaultTimeout(float64(l.cfg.ElementWait.Milliseconds()))

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		l.logger.Warn("could not install stealth script", "error", err)
	}
	l.preloadCookies(bctx)

	p, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	l.logger.Info("browser launched", "headless", l.cfg.Headless)
	return &Session{
		browser: browser,
		context: bctx,
		page:    p,
		cfg:     l.cfg,
	}, nil
}

func (l *Launcher) preloadCookies(bctx playwright.BrowserContext) {
	if l.cfg.CookiesPath == "" {
		return
	}
	if _, err := os.Stat(l.cfg.CookiesPath); err != nil {
		return
	}
	cookies, err := LoadCookies(l.cfg.CookiesPath)
	if err != nil {
		l.logger.Warn("could not load cookies", "path", l.cfg.CookiesPath, "error", err)
		return
	}
	if err := bctx.AddCookies(cookies); err != nil {
		l.logger.Warn("could not add cookies", "error", err)
		return
	}
	l.logger.Info("cookies loaded", "count", len(cookies))
}

// Shutdown stops the Playwright driver. Sessions must be closed first.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pw == nil {
		return nil
	}
	err := l.pw.Stop()
	l.pw = nil
	return err
}

// Session is one browser process with a single page.
type Session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	cfg     config.BrowserConfig
}

var (
	_ page.Session       = (*Session)(nil)
	_ page.Screenshotter = (*Session)(nil)
)

// classify maps Playwright failures onto the page error kinds.
func (s *Session) classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTargetClosed) || !s.browser.IsConnected() || s.page.IsClosed() {
		return fmt.Errorf("%w: %v", page.ErrSessionClosed, err)
	}
	msg := err.Error()
	if strings.Contains(msg, "not attached to the DOM") || strings.Contains(msg, "Execution context was destroyed") {
		return fmt.Errorf("%w: %v", page.ErrDetached, err)
	}
	return err
}

func (s *Session) alive() error {
	if !s.browser.IsConnected() || s.page.IsClosed() {
		return page.ErrSessionClosed
	}
	return nil
}

func (s *Session) Navigate(url string) error {
	if err := s.alive(); err != nil {
		return err
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavigationTimeout.Milliseconds())),
	})
	return s.classify(err)
}

func (s *Session) CurrentURL() (string, error) {
	if err := s.alive(); err != nil {
		return "", err
	}
	return s.page.URL(), nil
}

func (s *Session) Execute(script string) (any, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	v, err := s.page.Evaluate(script)
	return v, s.classify(err)
}

func (s *Session) Title() (string, error) {
	if err := s.alive(); err != nil {
		return "", err
	}
	title, err := s.page.Title()
	return title, s.classify(err)
}

func (s *Session) FindOne(loc page.Locator) (page.Node, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	el, err := s.page.WaitForSelector(selector(loc), playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(s.cfg.ElementWait.Milliseconds())),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", loc, page.ErrNotFound)
		}
		return nil, s.classify(err)
	}
	if el == nil {
		return nil, fmt.Errorf("%s: %w", loc, page.ErrNotFound)
	}
	return &node{s: s, el: el}, nil
}

func (s *Session) FindAll(loc page.Locator) ([]page.Node, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	els, err := s.page.QuerySelectorAll(selector(loc))
	if err != nil {
		return nil, s.classify(err)
	}
	nodes := make([]page.Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &node{s: s, el: el})
	}
	return nodes, nil
}

func (s *Session) Back() error {
	if err := s.alive(); err != nil {
		return err
	}
	_, err := s.page.GoBack(playwright.PageGoBackOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return s.classify(err)
}

func (s *Session) Screenshot(path string) error {
	if err := s.alive(); err != nil {
		return err
	}
	_, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	return s.classify(err)
}

// Close releases the context and the browser process. Errors from an
// already-dead browser are ignored.
func (s *Session) Close() error {
	if !s.browser.IsConnected() {
		return nil
	}
	return errors.Join(s.context.Close(), s.browser.Close())
}

func selector(loc page.Locator) string {
	if loc.Kind == page.KindText {
		return textSelector(loc.Tokens)
	}
	return loc.Value
}

// textSelector matches elements whose own text nodes contain every token.
func textSelector(tokens []string) string {
	var sb strings.Builder
	sb.WriteString("xpath=//body//*")
	for _, t := range tokens {
		fmt.Fprintf(&sb, "[text()[contains(., %s)]]", xpathLiteral(t))
	}
	return sb.String()
}

func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = "'" + p + "'"
	}
	return "concat(" + strings.Join(quoted, `, "'", `) + ")"
}

const nodeIDScript = `e => {
	if (!e.__outreachId) {
		window.__outreachSeq = (window.__outreachSeq || 0) + 1;
		e.__outreachId = String(window.__outreachSeq);
	}
	return e.__outreachId;
}`

type node struct {
	s  *Session
	el playwright.ElementHandle
	id string
}

// ID tags the element with a page-unique expando so that two handles to
// the same element compare equal.
func (n *node) ID() string {
	if n.id != "" {
		return n.id
	}
	v, err := n.el.Evaluate(nodeIDScript)
	if id, ok := v.(string); err == nil && ok {
		n.id = id
	} else {
		n.id = fmt.Sprintf("handle:%p", n.el)
	}
	return n.id
}

func (n *node) Text() (string, error) {
	text, err := n.el.InnerText()
	return strings.TrimSpace(text), n.s.classify(err)
}

func (n *node) InnerHTML() (string, error) {
	html, err := n.el.InnerHTML()
	return html, n.s.classify(err)
}

func (n *node) Attribute(name string) (string, error) {
	v, err := n.el.GetAttribute(name)
	return v, n.s.classify(err)
}

func (n *node) Parent() (page.Node, error) {
	h, err := n.el.EvaluateHandle("e => e.parentElement")
	if err != nil {
		return nil, n.s.classify(err)
	}
	parent := h.AsElement()
	if parent == nil {
		h.Dispose()
		return nil, page.ErrNotFound
	}
	return &node{s: n.s, el: parent}, nil
}

// Click falls back to a DOM click when the element is covered or not
// considered visible.
func (n *node) Click() error {
	if err := n.el.Click(); err != nil {
		if cerr := n.s.classify(err); errors.Is(cerr, page.ErrSessionClosed) || errors.Is(cerr, page.ErrDetached) {
			return cerr
		}
		if _, jerr := n.el.Evaluate("e => e.click()"); jerr != nil {
			return n.s.classify(jerr)
		}
	}
	return nil
}

func (n *node) ScrollIntoView() error {
	return n.s.classify(n.el.ScrollIntoViewIfNeeded())
}

func (n *node) Clear() error {
	return n.s.classify(n.el.Fill(""))
}

func (n *node) Type(text string, delay time.Duration) error {
	return n.s.classify(n.el.Type(text, playwright.ElementHandleTypeOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	}))
}

func (n *node) PressEnter() error {
	return n.s.classify(n.el.Press("Enter"))
}
