package device

import (
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/link"
	"github.com/arloliu/go-seriallink/logger"
	"github.com/arloliu/go-seriallink/transport"
)

func TestMain(m *testing.M) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	os.Exit(m.Run())
}

// newPipeLink connects an engine and an emulator with an in-memory pipe.
func newPipeLink(t *testing.T, engineOpts ...link.Option) (*link.Engine, *Emulator) {
	t.Helper()

	hostEnd, deviceEnd := transport.NewPipe()

	return newLink(t, hostEnd, deviceEnd, engineOpts...)
}

func newLink(t *testing.T, hostEnd, deviceEnd transport.Transport, engineOpts ...link.Option) (*link.Engine, *Emulator) {
	t.Helper()

	em, err := NewEmulator(t.Context(), deviceEnd)
	require.NoError(t, err)

	e, err := link.NewEngine(t.Context(), hostEnd, engineOpts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = e.Close()
		_ = em.Close()
	})

	return e, em
}

func collect(t *testing.T, e *link.Engine, deviceID uint8) <-chan *frame.Message {
	t.Helper()

	ch := make(chan *frame.Message, 64)
	require.NoError(t, e.AddHandler(deviceID, 1, func(msg *frame.Message) { ch <- msg }))

	return ch
}

func receive(t *testing.T, ch <-chan *frame.Message) *frame.Message {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		require.FailNow(t, "no message received")
		return nil
	}
}

func TestEmulator_AcknowledgesRequests(t *testing.T) {
	e, em := newPipeLink(t)

	var got atomic.Pointer[frame.Message]
	require.NoError(t, em.Handle(4, func(req *frame.Message) bool {
		got.Store(req)
		return true
	}))

	ok, err := e.SendSync(t.Context(), 4, link.ByteUint16(2, 1500))
	require.NoError(t, err)
	assert.True(t, ok)

	req := got.Load()
	require.NotNil(t, req)
	cmd, err := req.ByteAt(0)
	require.NoError(t, err)
	assert.Equal(t, byte(2), cmd)

	v, err := req.Uint16At(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(1500), v)

	assert.Equal(t, uint8(1), em.LastFrameID())
	assert.Equal(t, uint64(1), em.Metrics().AckSentCount.Load())
}

func TestEmulator_AsyncRequestNotAcknowledged(t *testing.T) {
	e, em := newPipeLink(t)

	var calls atomic.Int32
	require.NoError(t, em.Handle(4, func(*frame.Message) bool {
		calls.Add(1)
		return true
	}))

	require.NoError(t, e.SendAsync(4, link.Byte(1)))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, em.Metrics().AckSentCount.Load())
	assert.Zero(t, em.LastFrameID())
}

func TestEmulator_NackTimesOut(t *testing.T) {
	e, em := newPipeLink(t, link.WithAckTimeout(20*time.Millisecond), link.WithRequestTimeout(100*time.Millisecond))

	require.NoError(t, em.Handle(4, func(*frame.Message) bool { return false }))

	ok, err := e.SendSync(t.Context(), 4, link.NoParams())
	require.NoError(t, err)
	assert.False(t, ok, "a NACKed request is never acknowledged")

	assert.GreaterOrEqual(t, em.Metrics().NackSentCount.Load(), uint64(4))
	assert.GreaterOrEqual(t, e.Metrics().NackRecvCount.Load(), uint64(4))
}

func TestEmulator_UnknownDevice(t *testing.T) {
	e, em := newPipeLink(t, link.WithAckTimeout(20*time.Millisecond), link.WithRequestTimeout(60*time.Millisecond))

	ok, err := e.SendSync(t.Context(), 9, link.NoParams())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Positive(t, em.Metrics().NackSentCount.Load())
}

func TestEmulator_Silent(t *testing.T) {
	e, em := newPipeLink(t, link.WithAckTimeout(20*time.Millisecond), link.WithRequestTimeout(60*time.Millisecond))
	require.NoError(t, em.Handle(4, func(*frame.Message) bool { return true }))

	em.SetSilent(true)
	ok, err := e.SendSync(t.Context(), 4, link.NoParams())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, em.Metrics().RequestCount.Load(), uint64(3), "every resend reaches the device")

	em.SetSilent(false)
	ok, err = e.SendSync(t.Context(), 4, link.NoParams())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmulator_Push(t *testing.T) {
	e, em := newPipeLink(t)
	ch := collect(t, e, 6)

	body := frame.AppendFloat32(nil, 21.5)
	body = frame.AppendInt32(body, -40)
	require.NoError(t, em.Push(6, body))

	msg := receive(t, ch)
	assert.Equal(t, frame.TypeData, msg.Type)

	temp, err := msg.Float32At(0)
	require.NoError(t, err)
	assert.InDelta(t, 21.5, temp, 0)

	offset, err := msg.Int32At(4)
	require.NoError(t, err)
	assert.Equal(t, int32(-40), offset)
}

func TestEmulator_PushList(t *testing.T) {
	e, em := newPipeLink(t)
	dev5 := collect(t, e, 5)
	dev7 := collect(t, e, 7)

	require.NoError(t, em.PushList(
		frame.Record{DeviceID: 5, Payload: []byte{9, 9}},
		frame.Record{DeviceID: 7, Payload: []byte{3}},
	))

	assert.Equal(t, []byte{9, 9}, receive(t, dev5).Body)
	assert.Equal(t, []byte{3}, receive(t, dev7).Body)
}

func TestEmulator_PushTooLarge(t *testing.T) {
	_, em := newPipeLink(t)

	require.ErrorIs(t, em.Push(1, make([]byte, DefaultCapacity)), frame.ErrPayloadTooLarge)
	require.ErrorIs(t, em.Push(1, []byte{frame.EndMarker}), frame.ErrMarkerInPayload)
}

func TestEmulator_StartMarkerInBody(t *testing.T) {
	e, em := newPipeLink(t)

	var got atomic.Value
	require.NoError(t, em.Handle(frame.StartMarker, func(req *frame.Message) bool {
		got.Store(append([]byte(nil), req.Body...))
		return true
	}))

	ok, err := e.SendSync(t.Context(), frame.StartMarker, link.Byte(frame.StartMarker))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte{frame.StartMarker}, got.Load())

	ch := collect(t, e, frame.StartMarker)
	require.NoError(t, em.Push(frame.StartMarker, frame.AppendFloat32(nil, 2.5)))

	msg := receive(t, ch)
	if msg.Type == frame.TypeAck {
		msg = receive(t, ch)
	}
	assert.Equal(t, frame.TypeData, msg.Type)
	assert.Equal(t, []byte{0x00, 0x00, 0x20, 0x40}, msg.Body)
}

func TestEmulator_Telemetry(t *testing.T) {
	e, em := newPipeLink(t)
	ch := collect(t, e, 2)

	var n atomic.Int32
	require.NoError(t, em.StartTelemetry(2, 5*time.Millisecond, func() []byte {
		return []byte{byte(n.Add(1))}
	}))
	require.Error(t, em.StartTelemetry(2, 5*time.Millisecond, func() []byte { return nil }), "one telemetry task per device")

	assert.Equal(t, []byte{1}, receive(t, ch).Body)
	assert.Equal(t, []byte{2}, receive(t, ch).Body)

	require.NoError(t, em.StopTelemetry(2))
	require.Error(t, em.StopTelemetry(2))
}

func TestEmulator_OverStream(t *testing.T) {
	c1, c2 := net.Pipe()

	hostEnd, err := transport.NewStream(c1)
	require.NoError(t, err)
	deviceEnd, err := transport.NewStream(c2)
	require.NoError(t, err)

	e, em := newLink(t, hostEnd, deviceEnd)
	require.NoError(t, em.Handle(3, func(*frame.Message) bool { return true }))
	ch := collect(t, e, 3)

	ok, err := e.SendSync(t.Context(), 3, link.Bytes3(1, 2, 3))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, em.Push(3, []byte{0x55}))
	assert.Equal(t, []byte{0x55}, receive(t, ch).Body)
}

func TestEmulator_Close(t *testing.T) {
	_, deviceEnd := transport.NewPipe()

	em, err := NewEmulator(t.Context(), deviceEnd)
	require.NoError(t, err)

	require.NoError(t, em.Close())
	require.NoError(t, em.Close())
	require.ErrorIs(t, em.Push(1, nil), ErrClosed)
	require.ErrorIs(t, em.StartTelemetry(1, time.Millisecond, func() []byte { return nil }), ErrClosed)
}

func TestNewEmulator_Invalid(t *testing.T) {
	_, err := NewEmulator(t.Context(), nil)
	require.Error(t, err)

	_, deviceEnd := transport.NewPipe()
	_, err = NewEmulator(t.Context(), deviceEnd, WithCapacity(0))
	require.Error(t, err)
	_, err = NewEmulator(t.Context(), deviceEnd, WithPollInterval(time.Second))
	require.Error(t, err)
	_, err = NewEmulator(t.Context(), deviceEnd, WithLogger(nil))
	require.Error(t, err)

	em, err := NewEmulator(t.Context(), deviceEnd)
	require.NoError(t, err)
	t.Cleanup(func() { _ = em.Close() })
	require.ErrorIs(t, em.Handle(1, nil), ErrNilHandler)
}
