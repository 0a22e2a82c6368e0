package link

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

// Engine is the host side of a serial link.
//
// It owns the transport: a background task is its only reader, and writes
// from concurrent senders are serialized. Close releases every resource,
// the transport included.
type Engine struct {
	cfg       *Config
	logger    logger.Logger
	transport transport.Transport

	decoder     *frame.Decoder
	lastDropped uint64
	tracker     *SequenceTracker
	registry    *HandlerRegistry

	taskMgr *task.Manager
	writeMu sync.Mutex
	closed  atomic.Bool
	lost    atomic.Bool

	metrics Metrics
}

// NewEngine creates an engine on t and starts its receive loop.
//
// It returns ErrTransportUnavailable when t is nil or not ready. Input that
// arrived before the engine started is discarded. The receive loop stops
// when ctx is cancelled or the engine is closed.
func NewEngine(ctx context.Context, t transport.Transport, opts ...Option) (*Engine, error) {
	if t == nil || !t.Ready() {
		return nil, ErrTransportUnavailable
	}

	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	decoder, err := frame.NewDecoder(cfg.capacity)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		logger:    cfg.logger,
		transport: t,
		decoder:   decoder,
		tracker:   NewSequenceTracker(),
		registry:  NewHandlerRegistry(cfg.logger),
		taskMgr:   task.NewManager(ctx, cfg.logger),
	}
	e.registry.onPanic = e.metrics.incHandlerPanicCount

	if cfg.rejectMarkers {
		e.tracker.Reserve(frame.EndMarker)
	}

	if r, ok := t.(transport.InputResetter); ok {
		if err := r.ResetInput(); err != nil {
			e.logger.Warn("link: failed to reset transport input", "error", err)
		}
	}

	if err := e.taskMgr.Start("receiveLoop", e.receiveIteration); err != nil {
		return nil, err
	}

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Metrics returns the engine counters.
func (e *Engine) Metrics() *Metrics {
	return &e.metrics
}

// Tracker returns the sequence tracker used by sync requests.
func (e *Engine) Tracker() *SequenceTracker {
	return e.tracker
}

// IsClosed reports whether Close has been called.
func (e *Engine) IsClosed() bool {
	return e.closed.Load()
}

// AddHandler registers fn for messages from deviceID.
func (e *Engine) AddHandler(deviceID, handlerID uint8, fn Handler) error {
	return e.registry.Add(deviceID, handlerID, fn)
}

// RemoveHandler removes the first handler of deviceID registered with handlerID.
func (e *Engine) RemoveHandler(deviceID, handlerID uint8) {
	e.registry.Remove(deviceID, handlerID)
}

// HasHandler reports whether deviceID has a handler registered with handlerID.
func (e *Engine) HasHandler(deviceID, handlerID uint8) bool {
	return e.registry.Has(deviceID, handlerID)
}

// SendAsync sends a request that the device does not acknowledge.
func (e *Engine) SendAsync(deviceID uint8, p Params) error {
	return e.SendAsyncPayload(deviceID, p.Bytes())
}

// SendAsyncPayload is SendAsync with an arbitrary body.
func (e *Engine) SendAsyncPayload(deviceID uint8, body []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	wire, err := e.encode(frame.NewMessage(0, frame.TypeData, deviceID, body))
	if err != nil {
		return err
	}

	return e.write(wire)
}

// SendSync sends a request and waits until the device acknowledges it.
//
// The frame is resent after every ack timeout with the same sequence id
// until it is acknowledged or the request timeout has passed. An
// unacknowledged request returns false and a nil error. Errors are only
// returned when the engine is closed, ctx ends, the payload is invalid or
// the transport fails.
func (e *Engine) SendSync(ctx context.Context, deviceID uint8, p Params) (bool, error) {
	return e.SendSyncPayload(ctx, deviceID, p.Bytes())
}

// SendSyncPayload is SendSync with an arbitrary body.
func (e *Engine) SendSyncPayload(ctx context.Context, deviceID uint8, body []byte) (bool, error) {
	if e.closed.Load() {
		return false, ErrEngineClosed
	}

	pa, err := e.tracker.acquire()
	if err != nil {
		return false, err
	}
	defer e.tracker.Release(pa.id)

	wire, err := e.encode(frame.NewMessage(pa.id, frame.TypeData, deviceID, body))
	if err != nil {
		return false, err
	}

	deadline := time.Now().Add(e.cfg.requestTimeout)

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			e.metrics.incSyncRetryCount()
			e.logger.Debug("link: resend request", "deviceID", deviceID, "seqID", pa.id, "attempt", attempt)
		}

		if err := e.write(wire); err != nil {
			return false, err
		}

		wait := min(e.cfg.ackTimeout, time.Until(deadline))

		signaled, err := pool.Wait(ctx, pa.done, wait)
		if err != nil {
			return false, err
		}

		if signaled {
			if !pa.acknowledged.Load() {
				return false, ErrEngineClosed
			}
			e.metrics.incSyncSuccessCount()

			return true, nil
		}

		if time.Until(deadline) <= 0 {
			e.metrics.incSyncTimeoutCount()
			e.logger.Warn("link: request not acknowledged",
				"deviceID", deviceID,
				"seqID", pa.id,
				"attempts", attempt+1,
				"timeout", e.cfg.requestTimeout)

			return false, nil
		}
	}
}

// Close stops the receive loop, wakes pending sync requests, removes all
// handlers and closes the transport. It is safe to call more than once.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.logger.Debug("link: start to close engine")

	var errs []error

	e.taskMgr.Stop()
	if !e.taskMgr.WaitTimeout(e.cfg.closeTimeout) {
		errs = append(errs, ErrCloseTimeout)
	}

	e.tracker.releaseAll()
	e.registry.Clear()

	if err := e.transport.Close(); err != nil {
		errs = append(errs, fmt.Errorf("link: failed to close transport: %w", err))
	}

	e.logger.Debug("link: engine closed")

	return errors.Join(errs...)
}

// encode validates msg and returns its wire frame.
func (e *Engine) encode(msg *frame.Message) ([]byte, error) {
	payload := msg.Payload()

	if len(payload) > e.cfg.capacity {
		return nil, fmt.Errorf("%w: %d > %d", frame.ErrPayloadTooLarge, len(payload), e.cfg.capacity)
	}

	if e.cfg.rejectMarkers {
		if err := frame.Validate(payload); err != nil {
			return nil, err
		}
	}

	return frame.Encode(payload), nil
}

func (e *Engine) write(wire []byte) error {
	e.writeMu.Lock()
	err := transport.WriteAll(e.transport, wire)
	e.writeMu.Unlock()

	if err != nil {
		e.logger.Error("link: failed to write frame", "error", err)
		return err
	}

	e.metrics.incFrameSendCount()

	if e.logger.Level() <= logger.DebugLevel {
		e.logger.Debug("link: frame sent", "frame", fmt.Sprintf("% X", wire))
	}

	return nil
}

// receiveIteration performs one pass of the receive loop: it sleeps when
// no input is available, otherwise it decodes the available bytes and
// dispatches the completed frames.
func (e *Engine) receiveIteration(ctx context.Context) bool {
	if e.transport.Available() == 0 {
		if !e.transport.Ready() && e.lost.CompareAndSwap(false, true) {
			e.logger.Warn("link: transport is no longer ready")
		}

		return pool.Sleep(ctx, e.cfg.pollInterval)
	}

	for _, payload := range e.readAvailable() {
		e.handlePayload(payload)
	}

	return true
}

// readAvailable feeds the bytes available now to the decoder and returns
// the completed payloads.
func (e *Engine) readAvailable() [][]byte {
	if e.cfg.sharedLock {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
	}

	var payloads [][]byte
	for e.transport.Available() > 0 {
		b, err := e.transport.ReadByteTimeout(e.cfg.pollInterval)
		if err != nil {
			break
		}

		if payload, ok := e.decoder.Feed(b); ok {
			payloads = append(payloads, payload)
		}
	}

	if dropped := e.decoder.Dropped(); dropped != e.lastDropped {
		e.metrics.addDecoderOverflowCount(dropped - e.lastDropped)
		e.logger.Debug("link: partial frame discarded", "count", dropped-e.lastDropped)
		e.lastDropped = dropped
	}

	return payloads
}

func (e *Engine) handlePayload(payload []byte) {
	msg, err := frame.ParseMessage(payload)
	if err != nil {
		e.metrics.incFrameDropCount()
		e.logger.Debug("link: drop malformed frame", "error", err, "payload", fmt.Sprintf("% X", payload))

		return
	}

	e.metrics.incFrameRecvCount()

	if e.logger.Level() <= logger.DebugLevel {
		e.logger.Debug("link: frame received", "frame", msg.String())
	}

	e.dispatch(msg)
}

func (e *Engine) dispatch(msg *frame.Message) {
	switch msg.Type {
	case frame.TypeAck:
		switch {
		case msg.IsAck():
			e.metrics.incAckRecvCount()
		case msg.IsNack():
			e.metrics.incNackRecvCount()
			e.logger.Debug("link: request rejected", "deviceID", msg.DeviceID, "seqID", msg.SeqID)
		}

		e.tracker.Observe(msg)
		e.registry.Dispatch(msg)

	case frame.TypeDataList:
		for _, sub := range frame.SplitList(msg) {
			e.registry.Dispatch(sub)
		}

	case frame.TypeData:
		e.registry.Dispatch(msg)

	default:
		e.metrics.incFrameDropCount()
		e.logger.Debug("link: drop frame of unknown type", "type", msg.Type.String(), "deviceID", msg.DeviceID)
	}
}
