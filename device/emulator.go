package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/internal/pool"
	"github.com/arloliu/go-seriallink/internal/task"
	"github.com/arloliu/go-seriallink/logger"
	"github.com/arloliu/go-seriallink/transport"
)

var (
	// ErrClosed is returned by operations on a closed emulator.
	ErrClosed = errors.New("device: emulator closed")
	// ErrNilHandler is returned when registering a nil request handler.
	ErrNilHandler = errors.New("device: handler must not be nil")
)

// RequestHandler processes a request addressed to a device. Returning
// true acknowledges the request, false rejects it with NACK.
//
// Requests with sequence id 0 are never answered, whatever the handler returns.
type RequestHandler func(req *frame.Message) bool

// Metrics contains atomic counters of an emulator.
type Metrics struct {
	RequestCount  atomic.Uint64
	AckSentCount  atomic.Uint64
	NackSentCount atomic.Uint64
	PushCount     atomic.Uint64
	DropCount     atomic.Uint64
}

// Emulator is the device side of a serial link.
type Emulator struct {
	cfg       *Config
	logger    logger.Logger
	transport transport.Transport
	decoder   *frame.Decoder

	mu       sync.RWMutex
	handlers map[uint8]RequestHandler

	taskMgr     *task.Manager
	writeMu     sync.Mutex
	lastFrameID atomic.Uint32
	silent      atomic.Bool
	closed      atomic.Bool

	metrics Metrics
}

// NewEmulator creates an emulator on t and starts serving requests.
func NewEmulator(ctx context.Context, t transport.Transport, opts ...Option) (*Emulator, error) {
	if t == nil || !t.Ready() {
		return nil, errors.New("device: transport unavailable")
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	decoder, err := frame.NewDecoder(cfg.capacity)
	if err != nil {
		return nil, err
	}

	em := &Emulator{
		cfg:       cfg,
		logger:    cfg.logger,
		transport: t,
		decoder:   decoder,
		handlers:  make(map[uint8]RequestHandler),
		taskMgr:   task.NewManager(ctx, cfg.logger),
	}

	if err := em.taskMgr.Start("serveLoop", em.serveIteration); err != nil {
		return nil, err
	}

	return em, nil
}

// Handle sets the request handler of deviceID, replacing any previous one.
func (em *Emulator) Handle(deviceID uint8, fn RequestHandler) error {
	if fn == nil {
		return ErrNilHandler
	}

	em.mu.Lock()
	em.handlers[deviceID] = fn
	em.mu.Unlock()

	return nil
}

// SetSilent stops (true) or resumes (false) answering requests, simulating
// a device that receives but never acknowledges.
func (em *Emulator) SetSilent(silent bool) {
	em.silent.Store(silent)
}

// LastFrameID returns the sequence id of the last received request.
func (em *Emulator) LastFrameID() uint8 {
	return uint8(em.lastFrameID.Load()) //nolint:gosec
}

// Metrics returns the emulator counters.
func (em *Emulator) Metrics() *Metrics {
	return &em.metrics
}

// Push sends an unsolicited DATA frame for deviceID.
func (em *Emulator) Push(deviceID uint8, body []byte) error {
	return em.send(frame.NewMessage(0, frame.TypeData, deviceID, body))
}

// PushList sends the records in one DATA_LIST frame.
func (em *Emulator) PushList(records ...frame.Record) error {
	body, err := frame.BuildList(records...)
	if err != nil {
		return err
	}

	return em.send(frame.NewMessage(0, frame.TypeDataList, 0, body))
}

// StartTelemetry pushes the body returned by fn for deviceID every
// interval until StopTelemetry or Close. A nil body skips the push.
func (em *Emulator) StartTelemetry(deviceID uint8, interval time.Duration, fn func() []byte) error {
	if em.closed.Load() {
		return ErrClosed
	}

	return em.taskMgr.StartInterval(telemetryTaskName(deviceID), func(_ context.Context) bool {
		body := fn()
		if body == nil {
			return true
		}

		if err := em.Push(deviceID, body); err != nil {
			em.logger.Warn("device: telemetry push failed", "deviceID", deviceID, "error", err)
			return !errors.Is(err, ErrClosed)
		}

		return true
	}, interval, false)
}

// StopTelemetry stops the telemetry of deviceID.
func (em *Emulator) StopTelemetry(deviceID uint8) error {
	return em.taskMgr.StopInterval(telemetryTaskName(deviceID))
}

func telemetryTaskName(deviceID uint8) string {
	return fmt.Sprintf("telemetry-%d", deviceID)
}

// Close stops serving and closes the transport. It is safe to call more than once.
func (em *Emulator) Close() error {
	if !em.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	em.taskMgr.Stop()
	if !em.taskMgr.WaitTimeout(em.cfg.closeTimeout) {
		errs = append(errs, errors.New("device: close timeout"))
	}

	if err := em.transport.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (em *Emulator) serveIteration(ctx context.Context) bool {
	if em.transport.Available() == 0 {
		return pool.Sleep(ctx, em.cfg.pollInterval)
	}

	for em.transport.Available() > 0 {
		b, err := em.transport.ReadByteTimeout(em.cfg.pollInterval)
		if err != nil {
			break
		}

		if payload, ok := em.decoder.Feed(b); ok {
			em.handlePayload(payload)
		}
	}

	return true
}

func (em *Emulator) handlePayload(payload []byte) {
	req, err := frame.ParseMessage(payload)
	if err != nil || req.Type != frame.TypeData {
		em.metrics.DropCount.Add(1)
		em.logger.Debug("device: ignore frame", "payload", fmt.Sprintf("% X", payload))

		return
	}

	em.metrics.RequestCount.Add(1)
	em.lastFrameID.Store(uint32(req.SeqID))

	ok := em.handle(req)

	if req.SeqID == 0 || em.silent.Load() {
		return
	}

	code := frame.AckCode
	if !ok {
		code = frame.NackCode
	}

	if err := em.send(frame.NewMessage(req.SeqID, frame.TypeAck, req.DeviceID, []byte{code})); err != nil {
		em.logger.Warn("device: failed to answer request", "deviceID", req.DeviceID, "seqID", req.SeqID, "error", err)
		return
	}

	if ok {
		em.metrics.AckSentCount.Add(1)
	} else {
		em.metrics.NackSentCount.Add(1)
	}
}

func (em *Emulator) handle(req *frame.Message) (ok bool) {
	em.mu.RLock()
	fn, found := em.handlers[req.DeviceID]
	em.mu.RUnlock()

	if !found {
		return !em.cfg.nackUnknown
	}

	defer func() {
		if r := recover(); r != nil {
			em.logger.Error("device: request handler panic", "deviceID", req.DeviceID, "panic", r)
			ok = false
		}
	}()

	return fn(req)
}

func (em *Emulator) send(msg *frame.Message) error {
	if em.closed.Load() {
		return ErrClosed
	}

	payload := msg.Payload()
	if len(payload) > em.cfg.capacity {
		return fmt.Errorf("%w: %d > %d", frame.ErrPayloadTooLarge, len(payload), em.cfg.capacity)
	}

	if err := frame.Validate(payload); err != nil {
		return err
	}

	em.writeMu.Lock()
	err := transport.WriteAll(em.transport, frame.Encode(payload))
	em.writeMu.Unlock()

	if err != nil {
		return err
	}

	if msg.Type != frame.TypeAck {
		em.metrics.PushCount.Add(1)
	}

	return nil
}
