package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrContextCanceled    = errors.New("context canceled during retry")
)

// Config describes an exponential backoff policy
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor spreads each wait by up to this fraction either way
	JitterFactor float64
	// RetryIf reports whether err is worth another attempt. Nil retries everything
	// except errors marked with Permanent.
	RetryIf func(err error) bool
}

// DefaultConfig waits 1s, 2s, 4s, 8s, 16s
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		JitterFactor:    0.1,
	}
}

// ConnectConfig is for dialing Postgres, Redis and brokers at startup
func ConnectConfig(maxRetries int, interval time.Duration) *Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = maxRetries
	cfg.InitialInterval = interval
	cfg.MaxInterval = interval * 8
	return cfg
}

// QuickConfig is for calls made while a request is waiting, such as a gateway charge
func QuickConfig() *Config {
	return &Config{
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2,
		JitterFactor:    0.2,
	}
}

// Operation is one attempt
type Operation func(ctx context.Context) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent stops the loop and surfaces err unwrapped
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Result summarises a run
type Result struct {
	Err           error
	Attempts      int
	TotalDuration time.Duration
	// LastError is what the final attempt returned
	LastError error
}

// Error returns Err, joined with the last cause when the loop gave up
func (r *Result) Error() error {
	if r.Err == nil {
		return nil
	}
	if r.LastError != nil && (errors.Is(r.Err, ErrMaxRetriesExceeded) || errors.Is(r.Err, ErrContextCanceled)) {
		return errors.Join(r.Err, r.LastError)
	}
	return r.Err
}

// RetryCallback runs before each wait
type RetryCallback func(attempt int, err error, nextInterval time.Duration)

// Retrier applies a Config
type Retrier struct {
	config Config
}

// New copies config and fills zero fields
func New(config *Config) *Retrier {
	if config == nil {
		config = DefaultConfig()
	}
	cfg := *config
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = time.Second
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2
	}
	cfg.JitterFactor = math.Max(0, math.Min(1, cfg.JitterFactor))
	return &Retrier{config: cfg}
}

// Do runs op until it succeeds or the policy gives up
func (r *Retrier) Do(ctx context.Context, op Operation) *Result {
	return r.DoWithCallback(ctx, op, nil)
}

// DoWithCallback is Do with a hook before every wait
func (r *Retrier) DoWithCallback(ctx context.Context, op Operation, callback RetryCallback) *Result {
	start := time.Now()
	res := &Result{}
	done := func(err error) *Result {
		res.Err = err
		res.TotalDuration = time.Since(start)
		return res
	}

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return done(ErrContextCanceled)
		}

		res.Attempts++
		err := op(ctx)
		if err == nil {
			return done(nil)
		}

		var p *permanentError
		if errors.As(err, &p) {
			res.LastError = p.err
			return done(p.err)
		}
		res.LastError = err
		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return done(err)
		}
		if attempt >= r.config.MaxRetries {
			return done(ErrMaxRetriesExceeded)
		}

		wait := r.Backoff(attempt)
		if callback != nil {
			callback(attempt+1, err, wait)
		}
		if !sleep(ctx, wait) {
			return done(ErrContextCanceled)
		}
	}
}

// Backoff returns the wait after the given zero-based attempt
func (r *Retrier) Backoff(attempt int) time.Duration {
	d := float64(r.config.InitialInterval) * math.Pow(r.config.Multiplier, float64(attempt))
	if j := r.config.JitterFactor; j > 0 {
		d += d * j * (rand.Float64()*2 - 1)
	}
	d = math.Min(d, float64(r.config.MaxInterval))
	if d <= 0 {
		return r.config.InitialInterval
	}
	return time.Duration(d)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Do is New(config).Do(ctx, op)
func Do(ctx context.Context, config *Config, op Operation) *Result {
	return New(config).Do(ctx, op)
}
