// Package retry wraps an llm.Service with admission control, bounded
// retries and usage accounting.
package retry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/signalnine/promptbench/internal/llm"
	"github.com/signalnine/promptbench/internal/ratelimit"
	"github.com/signalnine/promptbench/internal/usage"
)

// Policy decides how many attempts a call gets and how long to pause
// between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second}

// Retriable reports whether kind warrants another attempt.
func (p Policy) Retriable(kind llm.ErrorKind) bool {
	return kind == llm.KindRateLimited || kind == llm.KindTransient
}

// Delay is the pause after failed attempt n (1-based). Rate limits back off
// exponentially, other retriable failures wait BaseDelay.
func (p Policy) Delay(kind llm.ErrorKind, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if kind == llm.KindRateLimited {
		return p.BaseDelay * time.Duration(1<<uint(attempt-1))
	}
	return p.BaseDelay
}

// Admitter gates the start of each attempt.
type Admitter interface {
	Admit(ctx context.Context) error
}

type Client struct {
	svc      llm.Service
	policy   Policy
	limiter  Admitter
	tracker  *usage.Tracker
	usageLog *usage.Log
	label    string
	classify func(error) llm.ErrorKind
	sleep    func(context.Context, time.Duration) error
	now      func() time.Time
	logger   *log.Logger
}

type Option func(*Client)

func WithLimiter(a Admitter) Option      { return func(c *Client) { c.limiter = a } }
func WithTracker(t *usage.Tracker) Option { return func(c *Client) { c.tracker = t } }
func WithUsageLog(l *usage.Log) Option    { return func(c *Client) { c.usageLog = l } }

// WithLabel tags usage records, usually with the strategy name.
func WithLabel(label string) Option { return func(c *Client) { c.label = label } }

func WithClassifier(f func(error) llm.ErrorKind) Option {
	return func(c *Client) { c.classify = f }
}

func WithSleep(f func(context.Context, time.Duration) error) Option {
	return func(c *Client) { c.sleep = f }
}

func WithLogger(l *log.Logger) Option { return func(c *Client) { c.logger = l } }

func New(svc llm.Service, policy Policy, opts ...Option) *Client {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	c := &Client{
		svc:      svc,
		policy:   policy,
		classify: llm.Classify,
		sleep:    ratelimit.Sleep,
		now:      time.Now,
		logger:   log.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate runs the call, retrying retriable failures until the attempt
// budget is spent. The returned error is the last attempt's.
func (c *Client) Generate(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Response, error) {
	resp, _, err := c.Do(ctx, msgs, params)
	return resp, err
}

// Do is Generate that also reports how many attempts were made.
func (c *Client) Do(ctx context.Context, msgs []llm.Message, params llm.SamplingParams) (llm.Response, int, error) {
	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Admit(ctx); err != nil {
				return llm.Response{}, attempt - 1, &llm.ServiceError{Kind: llm.KindCanceled, Message: "waiting for rate limiter", Err: err}
			}
		}

		resp, err := c.svc.Generate(ctx, msgs, params)
		if err == nil {
			c.record(resp, params)
			return resp, attempt, nil
		}
		lastErr = err

		kind := c.classify(err)
		if !c.policy.Retriable(kind) {
			return llm.Response{}, attempt, err
		}
		if attempt == c.policy.MaxAttempts {
			break
		}
		delay := c.policy.Delay(kind, attempt)
		c.logger.Printf("retry: attempt %d/%d failed (%s): %v; sleeping %s", attempt, c.policy.MaxAttempts, kind, err, delay)
		if err := c.sleep(ctx, delay); err != nil {
			return llm.Response{}, attempt, &llm.ServiceError{Kind: llm.KindCanceled, Message: "retry sleep interrupted", Err: err}
		}
	}
	return llm.Response{}, c.policy.MaxAttempts, fmt.Errorf("giving up after %d attempts: %w", c.policy.MaxAttempts, lastErr)
}

func (c *Client) record(resp llm.Response, params llm.SamplingParams) {
	c.tracker.Add(resp.Usage)
	if c.usageLog != nil {
		model := resp.Model
		if model == "" {
			model = params.Model
		}
		c.usageLog.Write(usage.NewRecord(c.label, model, resp.Usage, c.now()))
	}
}
