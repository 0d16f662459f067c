package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Client wraps a provider router with bounded retries. A completion that
// still fails after maxRetries attempts is reported as a single error; the
// calling pipeline stage treats that as a stage failure.
type Client struct {
	router     *Router
	maxRetries int
}

// NewClient creates a retrying completion client
func NewClient(router *Router, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		router:     router,
		maxRetries: maxRetries,
	}
}

// Complete runs the prompt through the default provider, retrying on failure.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	provider, err := c.router.GetProvider("")
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		output, err := provider.Complete(ctx, prompt)
		if err == nil {
			return StripReasoning(output), nil
		}

		lastErr = err
		log.Debug().
			Err(err).
			Str("provider", provider.Name()).
			Int("attempt", attempt).
			Msg("completion attempt failed, retrying")
	}

	return "", fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}
