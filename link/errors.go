package link

import "errors"

var (
	// ErrTransportUnavailable is returned by NewEngine when the transport is missing or not ready.
	ErrTransportUnavailable = errors.New("link: transport unavailable")
	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("link: engine closed")
	// ErrNoFreeSeqID is returned by SendSync when every sequence id is in use.
	ErrNoFreeSeqID = errors.New("link: no free sequence id")
	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("link: handler must not be nil")
	// ErrCloseTimeout is returned by Close when the receive loop did not stop in time.
	ErrCloseTimeout = errors.New("link: close timeout")
)
