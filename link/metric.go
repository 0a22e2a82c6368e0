package link

import "sync/atomic"

// Metrics contains atomic counters of a link engine.
// Metrics can be used as the value of a prometheus CounterFunc.
type Metrics struct {
	// FrameSendCount indicates the number of frames written, retries included.
	FrameSendCount atomic.Uint64
	// FrameRecvCount indicates the number of well-formed frames received.
	FrameRecvCount atomic.Uint64
	// FrameDropCount indicates the number of received frames that were too short or of unknown type.
	FrameDropCount atomic.Uint64
	// DecoderOverflowCount indicates the number of partial frames discarded by the decoder.
	DecoderOverflowCount atomic.Uint64

	// AckRecvCount indicates the number of ACK frames with the ACK code.
	AckRecvCount atomic.Uint64
	// NackRecvCount indicates the number of ACK frames with the NACK code.
	NackRecvCount atomic.Uint64

	// SyncSuccessCount indicates the number of acknowledged sync requests.
	SyncSuccessCount atomic.Uint64
	// SyncRetryCount indicates the number of sync request resends.
	SyncRetryCount atomic.Uint64
	// SyncTimeoutCount indicates the number of sync requests that were never acknowledged.
	SyncTimeoutCount atomic.Uint64

	// HandlerPanicCount indicates the number of recovered handler panics.
	HandlerPanicCount atomic.Uint64
}

func (m *Metrics) incFrameSendCount() {
	m.FrameSendCount.Add(1)
}

func (m *Metrics) incFrameRecvCount() {
	m.FrameRecvCount.Add(1)
}

func (m *Metrics) incFrameDropCount() {
	m.FrameDropCount.Add(1)
}

func (m *Metrics) addDecoderOverflowCount(n uint64) {
	m.DecoderOverflowCount.Add(n)
}

func (m *Metrics) incAckRecvCount() {
	m.AckRecvCount.Add(1)
}

func (m *Metrics) incNackRecvCount() {
	m.NackRecvCount.Add(1)
}

func (m *Metrics) incSyncSuccessCount() {
	m.SyncSuccessCount.Add(1)
}

func (m *Metrics) incSyncRetryCount() {
	m.SyncRetryCount.Add(1)
}

func (m *Metrics) incSyncTimeoutCount() {
	m.SyncTimeoutCount.Add(1)
}

func (m *Metrics) incHandlerPanicCount() {
	m.HandlerPanicCount.Add(1)
}
