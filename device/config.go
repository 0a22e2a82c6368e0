package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/logger"
)

// Default values of the emulator configuration.
const (
	DefaultCapacity     = frame.PeerCapacity
	DefaultPollInterval = 2 * time.Millisecond
	DefaultCloseTimeout = 3 * time.Second
)

// Config holds the configuration of an emulator.
type Config struct {
	capacity     int
	pollInterval time.Duration
	closeTimeout time.Duration

	// nackUnknown makes requests for devices without handler NACKed.
	nackUnknown bool

	logger logger.Logger
}

// NewConfig creates an emulator configuration with the defaults overridden by opts.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		capacity:     DefaultCapacity,
		pollInterval: DefaultPollInterval,
		closeTimeout: DefaultCloseTimeout,
		nackUnknown:  true,
		logger:       logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (cfg *Config) Capacity() int { return cfg.capacity }

func (cfg *Config) PollInterval() time.Duration { return cfg.pollInterval }

func (cfg *Config) CloseTimeout() time.Duration { return cfg.closeTimeout }

func (cfg *Config) NackUnknown() bool { return cfg.nackUnknown }

// Option is a functional option for configuring an emulator.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithCapacity sets the receive and send buffer size. Defaults to frame.PeerCapacity.
func WithCapacity(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < frame.MinCapacity || n > frame.MaxCapacity {
			return fmt.Errorf("device: capacity %d out of range [%d, %d]", n, frame.MinCapacity, frame.MaxCapacity)
		}
		cfg.capacity = n

		return nil
	})
}

// WithPollInterval sets the idle sleep of the serve loop.
func WithPollInterval(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d < time.Millisecond || d > 100*time.Millisecond {
			return fmt.Errorf("device: poll interval %v out of range [1ms, 100ms]", d)
		}
		cfg.pollInterval = d

		return nil
	})
}

// WithCloseTimeout bounds how long Close waits for the serve loop.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return fmt.Errorf("device: invalid close timeout %v", d)
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithNackUnknown controls whether requests for devices without a handler
// are answered with NACK (the default) or ACK.
func WithNackUnknown(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.nackUnknown = enabled
		return nil
	})
}

// WithLogger sets the logger of the emulator.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("device: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
