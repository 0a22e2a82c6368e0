package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-seriallink/frame"
	"github.com/arloliu/go-seriallink/logger"
)

func TestHandlerRegistry_DispatchOrder(t *testing.T) {
	r := NewHandlerRegistry(logger.GetLogger())

	var calls []string
	require.NoError(t, r.Add(4, 1, func(*frame.Message) { calls = append(calls, "h1") }))
	require.NoError(t, r.Add(4, 2, func(*frame.Message) { calls = append(calls, "h2") }))
	require.NoError(t, r.Add(5, 1, func(*frame.Message) { calls = append(calls, "other") }))

	n := r.Dispatch(frame.NewMessage(0, frame.TypeData, 4, nil))
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"h1", "h2"}, calls)

	assert.Zero(t, r.Dispatch(frame.NewMessage(0, frame.TypeData, 9, nil)), "unknown device is dropped")
	assert.Equal(t, 3, r.Len())
}

func TestHandlerRegistry_Remove(t *testing.T) {
	r := NewHandlerRegistry(nil)

	var calls []string
	require.NoError(t, r.Add(4, 1, func(*frame.Message) { calls = append(calls, "h1") }))
	require.NoError(t, r.Add(4, 2, func(*frame.Message) { calls = append(calls, "h2") }))
	require.NoError(t, r.Add(4, 1, func(*frame.Message) { calls = append(calls, "h1-dup") }))

	r.Remove(4, 1)
	assert.True(t, r.Has(4, 1), "only the first match is removed")
	assert.True(t, r.Has(4, 2))

	r.Dispatch(frame.NewMessage(0, frame.TypeData, 4, nil))
	assert.Equal(t, []string{"h2", "h1-dup"}, calls)

	// removing what is not there is a no-op
	r.Remove(4, 7)
	r.Remove(8, 1)
	assert.Equal(t, 2, r.Len())

	r.Remove(4, 1)
	r.Remove(4, 2)
	assert.False(t, r.Has(4, 1))
	assert.False(t, r.Has(4, 2))
	assert.Zero(t, r.Len())
}

func TestHandlerRegistry_NilHandler(t *testing.T) {
	r := NewHandlerRegistry(nil)
	require.ErrorIs(t, r.Add(1, 1, nil), ErrNilHandler)
	assert.Zero(t, r.Len())
}

func TestHandlerRegistry_Clear(t *testing.T) {
	r := NewHandlerRegistry(nil)
	require.NoError(t, r.Add(1, 1, func(*frame.Message) {}))
	require.NoError(t, r.Add(2, 1, func(*frame.Message) {}))

	r.Clear()
	assert.Zero(t, r.Len())
	assert.False(t, r.Has(1, 1))
}

func TestHandlerRegistry_PanicIsolated(t *testing.T) {
	l := logger.NewMockLogger()
	l.On("Error", "link: handler panic", mock.Anything).Once()

	r := NewHandlerRegistry(l)

	var panics int
	r.onPanic = func() { panics++ }

	called := false
	require.NoError(t, r.Add(3, 1, func(*frame.Message) { panic("boom") }))
	require.NoError(t, r.Add(3, 2, func(*frame.Message) { called = true }))

	assert.NotPanics(t, func() {
		r.Dispatch(frame.NewMessage(0, frame.TypeData, 3, nil))
	})
	assert.True(t, called, "later handlers still run")
	assert.Equal(t, 1, panics)
	l.AssertExpectations(t)
}

func TestHandlerRegistry_ModifyDuringDispatch(t *testing.T) {
	r := NewHandlerRegistry(nil)

	var calls []string
	require.NoError(t, r.Add(1, 1, func(*frame.Message) {
		calls = append(calls, "self-removing")
		r.Remove(1, 1)
		_ = r.Add(1, 3, func(*frame.Message) { calls = append(calls, "added") })
	}))
	require.NoError(t, r.Add(1, 2, func(*frame.Message) { calls = append(calls, "second") }))

	r.Dispatch(frame.NewMessage(0, frame.TypeData, 1, nil))
	assert.Equal(t, []string{"self-removing", "second"}, calls, "changes apply to the next message")

	calls = nil
	r.Dispatch(frame.NewMessage(0, frame.TypeData, 1, nil))
	assert.Equal(t, []string{"second", "added"}, calls)
}
