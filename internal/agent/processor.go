package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go-outreach-automation/internal/config"
	"go-outreach-automation/internal/filter"
	"go-outreach-automation/internal/page"
	"go-outreach-automation/internal/posting"
	"go-outreach-automation/internal/store"
	"go-outreach-automation/utils"
)

// Outcome is the terminal state of one posting.
type Outcome int

const (
	OutcomeSkipped      Outcome = iota // no identifier
	OutcomeDuplicate                   // already in the store
	OutcomeNoAffordance                // no chat button; recorded
	OutcomeAlreadySent                 // conversation not empty; recorded
	OutcomeSent                        // message submitted; recorded
	OutcomeComposed                    // message typed, submit disabled; recorded
	OutcomeFailed                      // error in steps 3-5; not recorded
)

var outcomeNames = [...]string{"skipped", "duplicate", "no_affordance", "already_sent", "sent", "composed", "failed"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Recorded reports whether the outcome writes the identifier to the store.
func (o Outcome) Recorded() bool {
	switch o {
	case OutcomeNoAffordance, OutcomeAlreadySent, OutcomeSent, OutcomeComposed:
		return true
	}
	return false
}

// Processor opens one posting, decides whether to write and records it.
type Processor struct {
	outreach  config.OutreachConfig
	selectors config.SelectorConfig
	store     store.Store
	pacer     *utils.Pacer
	shots     *utils.ScreenshotDebugger
	logger    *slog.Logger
}

func NewProcessor(cfg config.Config, st store.Store, pacer *utils.Pacer, shots *utils.ScreenshotDebugger, logger *slog.Logger) *Processor {
	return &Processor{
		outreach:  cfg.Outreach,
		selectors: cfg.Selectors,
		store:     st,
		pacer:     pacer,
		shots:     shots,
		logger:    logger.With("component", "processor"),
	}
}

// Process runs one posting to a terminal state. A non-nil error comes with
// OutcomeSkipped (ErrExtraction) or OutcomeFailed; in both cases nothing was
// recorded.
func (p *Processor) Process(ctx context.Context, s page.Session, post posting.Posting) (Outcome, error) {
	if !post.Actionable() {
		return OutcomeSkipped, ErrExtraction
	}
	log := p.logger.With("posting", post.ID, "category", post.Category)

	known, err := p.store.Contains(ctx, post.ID)
	if err != nil {
		return OutcomeFailed, err
	}
	if known {
		return OutcomeDuplicate, nil
	}

	outcome, err := p.deliver(ctx, s, post)
	if err != nil {
		log.Error("processing failed", "error", err)
		p.shots.Capture(s, "posting_"+post.ID)
		return OutcomeFailed, err
	}

	// the message may already be out; a shutdown must not lose the record
	if err := p.store.Record(context.WithoutCancel(ctx), post.ID); err != nil {
		return OutcomeFailed, fmt.Errorf("record %s after %s: %w", post.ID, outcome, err)
	}
	log.Info("posting processed", "outcome", outcome.String())
	return outcome, nil
}

func (p *Processor) deliver(ctx context.Context, s page.Session, post posting.Posting) (Outcome, error) {
	if err := post.Node.ScrollIntoView(); err != nil {
		return OutcomeFailed, stepErr("open", err)
	}
	if err := p.pacer.Step(ctx, time.Second); err != nil {
		return OutcomeFailed, stepErr("open", err)
	}
	if err := post.Node.Click(); err != nil {
		return OutcomeFailed, stepErr("open", err)
	}
	if err := p.pacer.Step(ctx, 0); err != nil {
		return OutcomeFailed, stepErr("open", err)
	}

	button, err := p.chatButton(s)
	if errors.Is(err, page.ErrNotFound) {
		return OutcomeNoAffordance, nil
	}
	if err != nil {
		return OutcomeFailed, stepErr("chat button", err)
	}
	if err := button.Click(); err != nil {
		return OutcomeFailed, stepErr("chat button", err)
	}
	if err := p.pacer.Step(ctx, 0); err != nil {
		return OutcomeFailed, stepErr("chat button", err)
	}

	empty, err := p.conversationEmpty(s)
	if err != nil {
		return OutcomeFailed, stepErr("chat", err)
	}
	if !empty {
		return OutcomeAlreadySent, nil
	}

	sent, err := p.send(ctx, s)
	if err != nil {
		return OutcomeFailed, stepErr("send", err)
	}
	if !sent {
		return OutcomeComposed, nil
	}
	return OutcomeSent, nil
}

// chatButton tries the exact label, then any element mentioning all tokens
// whose text contains the start word.
func (p *Processor) chatButton(s page.Session) (page.Node, error) {
	button, err := s.FindOne(page.Text(p.selectors.ChatButtonText))
	if err == nil || !errors.Is(err, page.ErrNotFound) {
		return button, err
	}
	if len(p.selectors.ChatButtonTokens) == 0 {
		return nil, err
	}

	candidates, err := s.FindAll(page.TextAll(p.selectors.ChatButtonTokens...))
	if err != nil {
		return nil, err
	}
	start := strings.ToLower(p.selectors.ChatStartWord)
	for _, c := range candidates {
		text, err := c.Text()
		if err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(text), start) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("chat button: %w", page.ErrNotFound)
}

// conversationEmpty trusts the empty-conversation marker when it is there.
// Otherwise the rendered bubbles decide: the outreach text itself, or any
// bubble that is not a bare time or date, means a conversation exists.
func (p *Processor) conversationEmpty(s page.Session) (bool, error) {
	_, err := s.FindOne(page.CSS(p.selectors.EmptyChatMarker))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, page.ErrSessionClosed) {
		return false, err
	}

	bubbles, err := s.FindAll(page.CSS(p.selectors.MessageBubble))
	if err != nil {
		return false, err
	}
	message := strings.TrimSpace(p.outreach.Message)
	for _, b := range bubbles {
		text, err := b.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, message) || filter.IsMessage(text) {
			return false, nil
		}
	}
	return true, nil
}

// send types the outreach message into the input surface and submits it
// when sending is enabled. It reports whether the message was submitted.
func (p *Processor) send(ctx context.Context, s page.Session) (bool, error) {
	input, err := p.input(s)
	if err != nil {
		return false, err
	}
	if err := input.Click(); err != nil {
		return false, err
	}
	if err := input.Clear(); err != nil {
		return false, err
	}
	if err := input.Type(p.outreach.Message, p.pacer.TypingDelay()); err != nil {
		return false, err
	}
	if !p.outreach.SendEnabled {
		p.logger.Info("send disabled, message composed only")
		return false, nil
	}
	if err := p.pacer.Step(ctx, time.Second); err != nil {
		return false, err
	}
	if err := input.PressEnter(); err != nil {
		return false, err
	}
	return true, nil
}

// input returns the multi-line field, else the last pooled candidate.
func (p *Processor) input(s page.Session) (page.Node, error) {
	area, err := s.FindOne(page.CSS(p.selectors.MessageTextarea))
	if err == nil || !errors.Is(err, page.ErrNotFound) {
		return area, err
	}

	var pool []page.Node
	for _, sel := range p.selectors.MessageInputs {
		nodes, err := s.FindAll(page.CSS(sel))
		if err != nil {
			return nil, err
		}
		pool = append(pool, nodes...)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("message input: %w", page.ErrNotFound)
	}
	return pool[len(pool)-1], nil
}
