package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// limitedClient waits on a token bucket before every request.
type limitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// RateLimited returns a client that allows at most perMinute requests per
// minute through next, with a burst of one. A non-positive perMinute
// returns next unchanged.
//
// The returned client is safe for concurrent use; batch workers that
// share it share the budget.
func RateLimited(next Client, perMinute int) Client {
	if perMinute <= 0 {
		return next
	}
	return &limitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

// Complete implements Client.
func (c *limitedClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, req)
}

// Model forwards to the wrapped client when it reports a model name.
func (c *limitedClient) Model() string {
	return ModelName(c.next)
}

// ModelName returns the model behind c, or "" when c does not say.
func ModelName(c Client) string {
	if m, ok := c.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
