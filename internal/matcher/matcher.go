// Package matcher finds listing subtrees that represent postings.
//
// Matching is heuristic: the listing markup has no stable structure, so a
// precise Strategy runs first and a permissive one only when the first finds
// nothing. Nodes that fail on access (detached between discovery and
// inspection) are skipped.
package matcher

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/posting"
)

// Strategy maps a page snapshot and a label set to candidate subtrees.
type Strategy interface {
	Name() string
	Match(s page.Session, labels []string) []page.Node
}

// AncestorClimb starts at every node whose own text contains a label and
// walks up to the first ancestor whose markup holds a currency marker and is
// longer than MinMarkup runes.
type AncestorClimb struct {
	Currency  []string
	MaxLevels int
	MinMarkup int
}

func (a AncestorClimb) Name() string { return "ancestor-climb" }

func (a AncestorClimb) Match(s page.Session, labels []string) []page.Node {
	var out []page.Node
	for _, label := range labels {
		hits, err := s.FindAll(page.Text(label))
		if err != nil {
			continue
		}
		for _, hit := range hits {
			if card, ok := a.climb(hit); ok {
				out = append(out, card)
			}
		}
	}
	return out
}

func (a AncestorClimb) climb(n page.Node) (page.Node, bool) {
	cur := n
	for level := 0; level < a.MaxLevels; level++ {
		parent, err := cur.Parent()
		if err != nil {
			return nil, false
		}
		markup, err := parent.InnerHTML()
		if err != nil {
			return nil, false
		}
		if posting.ContainsAny(markup, a.Currency) && utf8.RuneCountInString(markup) > a.MinMarkup {
			return parent, true
		}
		cur = parent
	}
	return nil, false
}

// FlatScan checks every Container node for a label, a currency marker and
// markup longer than MinMarkup runes.
type FlatScan struct {
	Container page.Locator
	Currency  []string
	MinMarkup int
}

func (f FlatScan) Name() string { return "flat-scan" }

func (f FlatScan) Match(s page.Session, labels []string) []page.Node {
	nodes, err := s.FindAll(f.Container)
	if err != nil {
		return nil
	}
	var out []page.Node
	for _, n := range nodes {
		text, err := n.Text()
		if err != nil {
			continue
		}
		if _, ok := posting.Category(text, labels); !ok || !posting.ContainsAny(text, f.Currency) {
			continue
		}
		markup, err := n.InnerHTML()
		if err != nil {
			continue
		}
		if utf8.RuneCountInString(markup) > f.MinMarkup {
			out = append(out, n)
		}
	}
	return out
}

// Tiered returns Primary's result, or Fallback's when Primary found nothing.
type Tiered struct {
	Primary  Strategy
	Fallback Strategy
}

func (t Tiered) Name() string { return t.Primary.Name() + "+" + t.Fallback.Name() }

func (t Tiered) Match(s page.Session, labels []string) []page.Node {
	if nodes := t.Primary.Match(s, labels); len(nodes) > 0 {
		return nodes
	}
	return t.Fallback.Match(s, labels)
}

// Matcher resolves candidate subtrees into postings.
type Matcher struct {
	strategy Strategy
	labels   []string
	logger   *slog.Logger
}

// New builds the default two-tier matcher.
func New(cfg config.MatcherConfig, labels []string, logger *slog.Logger) *Matcher {
	container := cfg.ContainerSelector
	if container == "" {
		container = "div"
	}
	return NewWithStrategy(Tiered{
		Primary: AncestorClimb{
			Currency:  cfg.CurrencyMarkers,
			MaxLevels: cfg.MaxAncestorLevels,
			MinMarkup: cfg.MinCardMarkup,
		},
		Fallback: FlatScan{
			Container: page.CSS(container),
			Currency:  cfg.CurrencyMarkers,
			MinMarkup: cfg.MinFallbackMarkup,
		},
	}, labels, logger)
}

func NewWithStrategy(strategy Strategy, labels []string, logger *slog.Logger) *Matcher {
	normalized := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(posting.Normalize(l)); l != "" {
			normalized = append(normalized, l)
		}
	}
	return &Matcher{
		strategy: strategy,
		labels:   normalized,
		logger:   logger.With("component", "matcher"),
	}
}

// Find returns the postings on the current page in document order, one per
// distinct node. Postings without an identifier are returned too; callers
// check Actionable.
func (m *Matcher) Find(s page.Session) []posting.Posting {
	nodes := m.strategy.Match(s, m.labels)

	seen := make(map[string]bool, len(nodes))
	postings := make([]posting.Posting, 0, len(nodes))
	for _, n := range nodes {
		if seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true

		text, err := n.Text()
		if err != nil {
			m.logger.Debug("skipping unreadable candidate", "error", err)
			continue
		}
		category, ok := posting.Category(text, m.labels)
		if !ok {
			continue
		}
		p := posting.Posting{Category: category, Node: n}
		p.ID, _ = posting.ExtractID(text)
		postings = append(postings, p)
	}

	m.logger.Debug("matched postings", "strategy", m.strategy.Name(), "candidates", len(nodes), "postings", len(postings))
	return postings
}
