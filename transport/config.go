package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-seriallink/logger"
)

// Defaults of the stream based transports.
const (
	DefaultBaudRate         = 115200
	DefaultSerialTimeout    = 50 * time.Millisecond
	DefaultReadChunk        = 256
	DefaultDialTimeout      = 15 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Limits of the stream based transports.
const (
	MinSerialTimeout = 1 * time.Millisecond
	MaxSerialTimeout = 1 * time.Second
	MinReadChunk     = 1
	MaxReadChunk     = 64 * 1024
)

// config holds the settings of the stream based transports. Each
// constructor uses the fields that apply to it.
type config struct {
	baudRate           int
	serialTimeout      time.Duration
	readChunk          int
	dialTimeout        time.Duration
	handshakeTimeout   time.Duration
	username           string
	password           string
	insecureSkipVerify bool
	logger             logger.Logger
}

func newConfig(opts ...Option) (*config, error) {
	cfg := &config{
		baudRate:         DefaultBaudRate,
		serialTimeout:    DefaultSerialTimeout,
		readChunk:        DefaultReadChunk,
		dialTimeout:      DefaultDialTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for the stream based transports.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithBaudRate sets the serial line speed. Defaults to 115200.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *config) error {
		if baud <= 0 {
			return fmt.Errorf("transport: invalid baud rate %d", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithSerialTimeout sets the serial port read timeout, which bounds how
// long closing a serial transport waits for the reader.
func WithSerialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d < MinSerialTimeout || d > MaxSerialTimeout {
			return fmt.Errorf("transport: serial timeout %v out of range [%v, %v]", d, MinSerialTimeout, MaxSerialTimeout)
		}
		cfg.serialTimeout = d

		return nil
	})
}

// WithReadChunk sets the size of the buffer used to read from the underlying stream.
func WithReadChunk(n int) Option {
	return optFunc(func(cfg *config) error {
		if n < MinReadChunk || n > MaxReadChunk {
			return fmt.Errorf("transport: read chunk %d out of range [%d, %d]", n, MinReadChunk, MaxReadChunk)
		}
		cfg.readChunk = n

		return nil
	})
}

// WithDialTimeout bounds TCP and WebSocket connection setup.
func WithDialTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("transport: invalid dial timeout %v", d)
		}
		cfg.dialTimeout = d

		return nil
	})
}

// WithHandshakeTimeout bounds the WebSocket opening handshake.
func WithHandshakeTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return fmt.Errorf("transport: invalid handshake timeout %v", d)
		}
		cfg.handshakeTimeout = d

		return nil
	})
}

// WithBasicAuth sends HTTP Basic credentials in the WebSocket handshake.
func WithBasicAuth(username, password string) Option {
	return optFunc(func(cfg *config) error {
		cfg.username = username
		cfg.password = password

		return nil
	})
}

// WithInsecureSkipVerify disables TLS certificate verification for wss:// URLs.
func WithInsecureSkipVerify(skip bool) Option {
	return optFunc(func(cfg *config) error {
		cfg.insecureSkipVerify = skip
		return nil
	})
}

// WithLogger sets the logger of the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
