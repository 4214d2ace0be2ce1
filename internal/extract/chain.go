package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/teemow/inboxplan/internal/logging"
	"github.com/teemow/inboxplan/internal/mail"
)

// heuristicTitleLimit caps heuristic task titles derived from long subjects.
const heuristicTitleLimit = 80

// Result is the outcome of extracting one message: the items produced and
// the method that produced them.
type Result struct {
	Items []Item
	// Method is the name of the provider that succeeded, or
	// MethodHeuristic when every provider failed.
	Method string
	// Attempts counts provider calls made before the method succeeded.
	Attempts []Attempt
}

// Attempt records one provider call for observability.
type Attempt struct {
	Provider string
	Class    FailureClass
	Failed   bool
	Duration time.Duration
}

// Chain tries providers in a fixed priority order and falls back to the
// deterministic heuristic when all of them fail. Each message is extracted
// independently; one message falling back does not affect another.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a fallback chain over the given providers, tried in
// slice order.
func NewChain(providers []Provider, logger *slog.Logger) *Chain {
	return &Chain{providers: providers, logger: logger}
}

// Extract produces items for one message with the least-capable reliable
// result. Providers failing with any failure class advance the chain; a
// provider is never retried by the chain itself. Extract never fails: on
// total provider failure the heuristic produces exactly one item.
func (c *Chain) Extract(ctx context.Context, msg mail.Message) Result {
	var attempts []Attempt

	for _, p := range c.providers {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		items, err := p.Extract(ctx, msg)
		elapsed := time.Since(start)
		if err != nil {
			class := ClassOf(err)
			attempts = append(attempts, Attempt{Provider: p.Name(), Class: class, Failed: true, Duration: elapsed})
			c.logger.Warn("provider failed, advancing chain",
				logging.Operation("extract"),
				logging.Provider(p.Name()),
				logging.MessageID(msg.ID),
				slog.String("class", class.String()),
				logging.Err(err))
			continue
		}

		attempts = append(attempts, Attempt{Provider: p.Name(), Duration: elapsed})
		c.logger.Debug("provider succeeded",
			logging.Operation("extract"),
			logging.Provider(p.Name()),
			logging.MessageID(msg.ID),
			logging.Count(len(items)))
		return Result{Items: items, Method: p.Name(), Attempts: attempts}
	}

	c.logger.Info("all providers failed, using heuristic",
		logging.Operation("extract"),
		logging.MessageID(msg.ID))
	return Result{
		Items:    []Item{heuristicItem(msg)},
		Method:   MethodHeuristic,
		Attempts: attempts,
	}
}

// heuristicItem is the deterministic provider-free fallback: exactly one
// item whose title is the subject line and whose due date is absent. It
// guarantees the pipeline never drops a message silently.
func heuristicItem(msg mail.Message) Item {
	title := msg.Subject
	if title == "" {
		title = "Email from " + mail.SenderName(msg.Sender)
	}
	if r := []rune(title); len(r) > heuristicTitleLimit {
		title = string(r[:heuristicTitleLimit])
	}
	return Item{
		Provider: MethodHeuristic,
		Title:    title,
	}
}
