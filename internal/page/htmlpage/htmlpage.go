// Package htmlpage serves static HTML documents through page.Session.
//
// Each Navigate parses the document afresh, so nodes from an earlier load
// report page.ErrDetached just like a live browser would. Clicking an element
// (or its closest ancestor) carrying href or data-href navigates to that URL.
// It backs the offline matcher tool and the browser-free tests.
package htmlpage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"go-outreach-automation/internal/page"
)

// Site maps URLs to HTML documents.
type Site map[string]string

// Submission is one PressEnter on an input surface.
type Submission struct {
	URL   string
	Value string
}

// Browser is an in-memory page.Session.
type Browser struct {
	site    Site
	doc     *goquery.Document
	url     string
	load    int
	history []string
	closed  bool

	// Submitted lists every PressEnter in order.
	Submitted []Submission
	// Navigations counts successful Navigate calls per URL.
	Navigations map[string]int
}

var _ page.Session = (*Browser)(nil)

// New returns a Browser positioned on about:blank.
func New(site Site) *Browser {
	return &Browser{
		site:        site,
		url:         "about:blank",
		Navigations: make(map[string]int),
	}
}

// Kill makes every further call fail with page.ErrSessionClosed.
func (b *Browser) Kill() {
	b.closed = true
}

func (b *Browser) Navigate(url string) error {
	if b.closed {
		return page.ErrSessionClosed
	}
	if err := b.open(url); err != nil {
		return err
	}
	if b.url != "" && b.url != "about:blank" {
		b.history = append(b.history, b.url)
	}
	b.setCurrent(url)
	return nil
}

func (b *Browser) open(url string) error {
	src, ok := b.site[url]
	if !ok {
		return fmt.Errorf("htmlpage: no document for %s", url)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("htmlpage: parse %s: %w", url, err)
	}
	b.doc = doc
	b.load++
	return nil
}

func (b *Browser) setCurrent(url string) {
	b.url = url
	b.Navigations[url]++
}

func (b *Browser) CurrentURL() (string, error) {
	if b.closed {
		return "", page.ErrSessionClosed
	}
	return b.url, nil
}

func (b *Browser) Execute(script string) (any, error) {
	if b.closed {
		return nil, page.ErrSessionClosed
	}
	return true, nil
}

func (b *Browser) Title() (string, error) {
	if b.closed {
		return "", page.ErrSessionClosed
	}
	if b.doc == nil {
		return "", nil
	}
	return strings.TrimSpace(b.doc.Find("title").First().Text()), nil
}

func (b *Browser) FindOne(loc page.Locator) (page.Node, error) {
	nodes, err := b.FindAll(loc)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s: %w", loc, page.ErrNotFound)
	}
	return nodes[0], nil
}

func (b *Browser) FindAll(loc page.Locator) ([]page.Node, error) {
	if b.closed {
		return nil, page.ErrSessionClosed
	}
	if b.doc == nil {
		return nil, nil
	}

	var sel *goquery.Selection
	switch loc.Kind {
	case page.KindText:
		sel = b.doc.Find("body *").FilterFunction(func(_ int, s *goquery.Selection) bool {
			own := ownText(s.Get(0))
			for _, token := range loc.Tokens {
				if !strings.Contains(own, token) {
					return false
				}
			}
			return true
		})
	default:
		sel = b.doc.Find(loc.Value)
	}

	nodes := make([]page.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &node{b: b, sel: s, load: b.load})
	})
	return nodes, nil
}

func (b *Browser) Back() error {
	if b.closed {
		return page.ErrSessionClosed
	}
	if len(b.history) == 0 {
		return nil
	}
	prev := b.history[len(b.history)-1]
	b.history = b.history[:len(b.history)-1]
	if err := b.open(prev); err != nil {
		return err
	}
	b.setCurrent(prev)
	return nil
}

func (b *Browser) Close() error {
	b.closed = true
	return nil
}

// ownText concatenates the direct text children of n.
func ownText(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

type node struct {
	b    *Browser
	sel  *goquery.Selection
	load int
}

func (n *node) alive() error {
	if n.b.closed {
		return page.ErrSessionClosed
	}
	if n.load != n.b.load {
		return page.ErrDetached
	}
	return nil
}

func (n *node) ID() string {
	return fmt.Sprintf("%d:%p", n.load, n.sel.Get(0))
}

func (n *node) Text() (string, error) {
	if err := n.alive(); err != nil {
		return "", err
	}
	return strings.TrimSpace(n.sel.Text()), nil
}

func (n *node) InnerHTML() (string, error) {
	if err := n.alive(); err != nil {
		return "", err
	}
	return n.sel.Html()
}

func (n *node) Attribute(name string) (string, error) {
	if err := n.alive(); err != nil {
		return "", err
	}
	v, _ := n.sel.Attr(name)
	return v, nil
}

func (n *node) Parent() (page.Node, error) {
	if err := n.alive(); err != nil {
		return nil, err
	}
	p := n.sel.Parent()
	if p.Length() == 0 {
		return nil, page.ErrNotFound
	}
	return &node{b: n.b, sel: p, load: n.load}, nil
}

func (n *node) Click() error {
	if err := n.alive(); err != nil {
		return err
	}
	target := n.sel.Closest("[data-href], [href]")
	if target.Length() == 0 {
		return nil
	}
	href, ok := target.Attr("data-href")
	if !ok {
		href, _ = target.Attr("href")
	}
	return n.b.Navigate(href)
}

func (n *node) ScrollIntoView() error {
	return n.alive()
}

func (n *node) editable() bool {
	if n.sel.Is("textarea") {
		return true
	}
	v, _ := n.sel.Attr("contenteditable")
	return v == "true"
}

func (n *node) value() string {
	if n.editable() {
		return n.sel.Text()
	}
	v, _ := n.sel.Attr("value")
	return v
}

func (n *node) Clear() error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.editable() {
		n.sel.SetText("")
		return nil
	}
	n.sel.SetAttr("value", "")
	return nil
}

func (n *node) Type(text string, delay time.Duration) error {
	if err := n.alive(); err != nil {
		return err
	}
	if n.editable() {
		n.sel.SetText(n.value() + text)
		return nil
	}
	n.sel.SetAttr("value", n.value()+text)
	return nil
}

func (n *node) PressEnter() error {
	if err := n.alive(); err != nil {
		return err
	}
	n.b.Submitted = append(n.b.Submitted, Submission{URL: n.b.url, Value: n.value()})
	return nil
}

// Launcher hands out a fresh Browser over the same Site on every Launch.
type Launcher struct {
	Site Site

	mu       sync.Mutex
	launched []*Browser
	// Fail, when set, is returned by Launch instead of a browser.
	Fail error
}

var _ page.Launcher = (*Launcher)(nil)

func (l *Launcher) Launch(ctx context.Context) (page.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail != nil {
		return nil, l.Fail
	}
	b := New(l.Site)
	l.launched = append(l.launched, b)
	return b, nil
}

// Launched returns every browser handed out so far.
func (l *Launcher) Launched() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.launched...)
}

// Submitted collects submissions across all launched browsers.
func (l *Launcher) Submitted() []Submission {
	var out []Submission
	for _, b := range l.Launched() {
		out = append(out, b.Submitted...)
	}
	return out
}
