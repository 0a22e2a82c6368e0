package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/logger"
)

// Default values of the engine configuration.
const (
	DefaultAckTimeout     = 100 * time.Millisecond  // Wait for an ACK per send attempt
	DefaultRequestTimeout = 1000 * time.Millisecond // Total budget of a sync request
	DefaultPollInterval   = 2 * time.Millisecond    // Idle sleep of the receive loop
	DefaultCloseTimeout   = 3 * time.Second
	DefaultCapacity       = frame.DefaultCapacity
)

// Range limits of the engine configuration.
const (
	MinAckTimeout = 10 * time.Millisecond
	MaxAckTimeout = 10 * time.Second

	MaxRequestTimeout = 60 * time.Second

	MinPollInterval = 1 * time.Millisecond
	MaxPollInterval = 100 * time.Millisecond

	MinCapacity = frame.MinCapacity
	MaxCapacity = frame.MaxCapacity
)

// Config holds the configuration of a link engine.
type Config struct {
	ackTimeout     time.Duration
	requestTimeout time.Duration
	pollInterval   time.Duration
	closeTimeout   time.Duration

	// capacity bounds received and sent payloads.
	capacity int

	// rejectMarkers makes sends fail with frame.ErrMarkerInPayload instead of
	// writing a payload holding the end marker, which would cut the frame short
	// on the peer.
	rejectMarkers bool

	// sharedLock makes the receive loop take the write lock while reading.
	sharedLock bool

	logger logger.Logger
}

// NewConfig creates an engine configuration with the defaults overridden by opts.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		ackTimeout:     DefaultAckTimeout,
		requestTimeout: DefaultRequestTimeout,
		pollInterval:   DefaultPollInterval,
		closeTimeout:   DefaultCloseTimeout,
		capacity:       DefaultCapacity,
		rejectMarkers:  true,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.requestTimeout < cfg.ackTimeout {
		return nil, fmt.Errorf("link: request timeout %v shorter than ack timeout %v", cfg.requestTimeout, cfg.ackTimeout)
	}

	return cfg, nil
}

func (cfg *Config) AckTimeout() time.Duration { return cfg.ackTimeout }

func (cfg *Config) RequestTimeout() time.Duration { return cfg.requestTimeout }

func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

func (cfg *Config) CloseTimeout() time.Duration { return cfg.closeTimeout }

func (cfg *Config) Capacity() int { return cfg.capacity }

func (cfg *Config) RejectMarkerBytes() bool { return cfg.rejectMarkers }

func (cfg *Config) SharedLock() bool { return cfg.sharedLock }

func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring an engine.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithAckTimeout sets how long each send attempt of a sync request waits for its ACK.
// Must be in [10ms, 10s].
func WithAckTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinAckTimeout || d > MaxAckTimeout {
			return fmt.Errorf("link: ack timeout %v out of range [%v, %v]", d, MinAckTimeout, MaxAckTimeout)
		}
		cfg.ackTimeout = d

		return nil
	})
}

// WithRequestTimeout sets the total time a sync request may take, resends included.
// Must not be shorter than the ack timeout nor longer than 60s.
func WithRequestTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 || d > MaxRequestTimeout {
			return fmt.Errorf("link: request timeout %v out of range (0, %v]", d, MaxRequestTimeout)
		}
		cfg.requestTimeout = d

		return nil
	})
}

// WithPollInterval sets how long the receive loop sleeps when no input is available.
// Must be in [1ms, 100ms].
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < MinPollInterval || d > MaxPollInterval {
			return fmt.Errorf("link: poll interval %v out of range [%v, %v]", d, MinPollInterval, MaxPollInterval)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithCloseTimeout bounds how long Close waits for the receive loop.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("link: invalid close timeout %v", d)
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithCapacity sets the maximum payload size. Use frame.PeerCapacity when
// talking to firmware with the smaller buffer.
func WithCapacity(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < MinCapacity || n > MaxCapacity {
			return fmt.Errorf("link: capacity %d out of range [%d, %d]", n, MinCapacity, MaxCapacity)
		}
		cfg.capacity = n

		return nil
	})
}

// WithRejectMarkerBytes controls whether sends refuse payloads containing
// the end marker (0x1F). Enabled by default. When enabled, sync requests also
// skip sequence id 0x1F. Start marker bytes are always allowed.
func WithRejectMarkerBytes(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.rejectMarkers = enabled
		return nil
	})
}

// WithSharedLock makes reads and writes share one lock, for transports
// that cannot be read while a write is in progress.
func WithSharedLock() Option {
	return optFunc(func(cfg *Config) error {
		cfg.sharedLock = true
		return nil
	})
}

// WithLogger sets the logger of the engine.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("link: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
