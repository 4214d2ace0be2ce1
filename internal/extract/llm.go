package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/teemow/inboxplan/internal/mail"
)

// llmProvider adapts a langchaingo model to the Provider capability.
// All three configured backends share this implementation; the chain never
// branches on which one is active.
type llmProvider struct {
	name      string
	model     llms.Model
	timeout   time.Duration
	bodyLimit int
}

// NewAnthropic creates the Anthropic provider adapter.
func NewAnthropic(apiKey, model string, timeout time.Duration, bodyLimit int) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is not set")
	}
	llm, err := anthropic.New(anthropic.WithToken(apiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic client: %w", err)
	}
	return &llmProvider{name: "anthropic", model: llm, timeout: timeout, bodyLimit: bodyLimit}, nil
}

// NewGemini creates the Google Gemini provider adapter.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration, bodyLimit int) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is not set")
	}
	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &llmProvider{name: "gemini", model: llm, timeout: timeout, bodyLimit: bodyLimit}, nil
}

// NewOllama creates the locally-hosted Ollama provider adapter.
func NewOllama(serverURL, model string, timeout time.Duration, bodyLimit int) (Provider, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &llmProvider{name: "ollama", model: llm, timeout: timeout, bodyLimit: bodyLimit}, nil
}

func (p *llmProvider) Name() string {
	return p.name
}

// Extract sends one message to the model and parses the response into raw
// items. The call is bounded by the configured per-call timeout; an elapsed
// deadline classifies as Timeout.
func (p *llmProvider) Extract(ctx context.Context, msg mail.Message) ([]Item, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	prompt := buildPrompt(msg.Subject, msg.Sender, msg.Body, p.bodyLimit)
	out, err := llms.GenerateFromSinglePrompt(callCtx, p.model, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(4096),
	)
	if err != nil {
		return nil, &ProviderError{
			Provider: p.name,
			Class:    classifyLLMErr(callCtx, err),
			Err:      err,
		}
	}

	return parseItems(p.name, out)
}

// classifyLLMErr maps a model call failure to a failure class. Providers
// surface rate limits inconsistently, so quota errors are recognized by
// status code and message.
func classifyLLMErr(ctx context.Context, err error) FailureClass {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "rate_limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") {
		return RateLimited
	}

	return Unavailable
}
