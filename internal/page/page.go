// Package page describes the browser capabilities the agent drives.
//
// The core never sees markup-specific selectors or the automation protocol:
// it asks a Session for nodes by Locator and operates on the returned Nodes.
// internal/browser implements these interfaces with Playwright and
// internal/page/htmlpage implements them over static HTML documents.
package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a bounded-wait lookup finds nothing.
	ErrNotFound = errors.New("element not found")
	// ErrDetached is returned by a Node whose document has been replaced.
	ErrDetached = errors.New("element detached from document")
	// ErrSessionClosed marks transport-level failures: the session is unusable.
	ErrSessionClosed = errors.New("browser session closed")
)

// Kind selects how a Locator is resolved.
type Kind int

const (
	// KindCSS matches a CSS selector.
	KindCSS Kind = iota
	// KindText matches elements whose own text contains every token.
	KindText
)

// Locator identifies nodes on the current page.
type Locator struct {
	Kind   Kind
	Value  string
	Tokens []string
}

// CSS returns a locator for a CSS selector.
func CSS(selector string) Locator {
	return Locator{Kind: KindCSS, Value: selector}
}

// Text returns a locator for elements whose own text contains s.
func Text(s string) Locator {
	return Locator{Kind: KindText, Tokens: []string{s}}
}

// TextAll returns a locator for elements whose own text contains all tokens.
func TextAll(tokens ...string) Locator {
	return Locator{Kind: KindText, Tokens: tokens}
}

func (l Locator) String() string {
	switch l.Kind {
	case KindText:
		return fmt.Sprintf("text(%s)", strings.Join(l.Tokens, " & "))
	default:
		return fmt.Sprintf("css(%s)", l.Value)
	}
}

// Node is a handle to one element of the current page load. It becomes
// invalid once the page navigates away.
type Node interface {
	// ID is stable for the same underlying element within one page load.
	ID() string
	Text() (string, error)
	InnerHTML() (string, error)
	Attribute(name string) (string, error)
	// Parent returns ErrNotFound at the document root.
	Parent() (Node, error)
	Click() error
	ScrollIntoView() error
	Clear() error
	Type(text string, delay time.Duration) error
	PressEnter() error
}

// Session is one live browser-automation handle.
type Session interface {
	Navigate(url string) error
	CurrentURL() (string, error)
	Execute(script string) (any, error)
	// FindOne waits up to the implicit element wait and returns ErrNotFound
	// when nothing matched.
	FindOne(loc Locator) (Node, error)
	FindAll(loc Locator) ([]Node, error)
	Title() (string, error)
	Back() error
	Close() error
}

// Screenshotter is implemented by sessions that can capture the viewport.
type Screenshotter interface {
	Screenshot(path string) error
}

// Launcher creates new sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
