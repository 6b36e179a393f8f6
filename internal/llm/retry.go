package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryClient wraps a Client with bounded exponential retry and an
// optional rate limiter applied before every attempt.
type RetryClient struct {
	next     Client
	limiter  *Limiter
	attempts int
	delay    time.Duration
}

func NewRetryClient(next Client, limiter *Limiter, attempts int, delay time.Duration) *RetryClient {
	if attempts < 1 {
		attempts = 1
	}
	return &RetryClient{next: next, limiter: limiter, attempts: attempts, delay: delay}
}

func (c *RetryClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	eb := backoff.NewExponentialBackOff()
	if c.delay > 0 {
		eb.InitialInterval = c.delay
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.attempts-1)), ctx)

	var resp Response
	attempt := 0
	op := func() error {
		attempt++
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}
		var err error
		resp, err = c.next.Generate(ctx, messages)
		if err != nil && attempt < c.attempts {
			log.Printf("completion attempt %d/%d failed: %v", attempt, c.attempts, err)
		}
		return err
	}
	if err := backoff.Retry(op, bo); err != nil {
		return Response{}, fmt.Errorf("completion failed after %d attempt(s): %w", attempt, err)
	}
	return resp, nil
}
