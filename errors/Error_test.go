package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test_NewCustomError tests the creation of custom errors.
func Test_NewCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")
	require.NotNil(t, err)
	require.Equal(t, ERR_NOT_FOUND, err.Code())
	require.Equal(t, "resource not found", err.Message())

	secondErr := New(ERR_MESSAGE_INVALID, "[parseMsgHeaders][%s] bad count", "peer-1", err)
	thirdErr := New(ERR_PROTOCOL_VIOLATION, "[handleMessage][%s] failed: ", "peer-1", secondErr)
	anotherErr := New(ERR_PROTOCOL_VIOLATION, "another violation")
	fourthErr := New(ERR_SERVICE_ERROR, "older error: ", thirdErr)

	require.True(t, anotherErr.Is(thirdErr))
	require.True(t, fourthErr.Is(New(ERR_PROTOCOL_VIOLATION, "")))
	require.True(t, fourthErr.Is(ErrProtocolViolation))
	require.True(t, fourthErr.Is(err))

	require.False(t, anotherErr.Is(fourthErr))
	require.False(t, fourthErr.Is(ErrCheckpointMismatch))
}

func Test_FmtErrorCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")

	fmtError := fmt.Errorf("error: %w", err)
	secondErr := New(ERR_INVALID_ARGUMENT, "[%s] wrapped", "test", fmtError)

	// a fmt wrapped error hides the inner code from the chain walk
	require.False(t, secondErr.Is(err))

	altErr := New(ERR_INVALID_ARGUMENT, "invalid argument", err)
	require.True(t, secondErr.Is(altErr))
}

func Test_ErrorIsStandardErrors(t *testing.T) {
	err := NewNetworkError("read failed", io.EOF)

	assert.True(t, errors.Is(err, io.EOF))
	assert.True(t, Is(err, ErrNetwork))
	assert.False(t, Is(err, ErrFrameInvalid))
}

func Test_ErrorAs(t *testing.T) {
	inner := NewChecksumMismatchError("computed %x claimed %x", []byte{1, 2, 3, 4}, []byte{5, 6, 7, 8})
	outer := fmt.Errorf("peer 1.2.3.4:8333: %w", inner)

	var tErr *Error
	require.True(t, As(outer, &tErr))
	assert.Equal(t, ERR_CHECKSUM_MISMATCH, tErr.Code())
	assert.Equal(t, "computed 01020304 claimed 05060708", tErr.Message())
}

func Test_InvalidCode(t *testing.T) {
	err := New(ERR(999), "whatever")
	assert.Equal(t, "invalid error code", err.Message())
	assert.Equal(t, "ERR(999)", err.Code().String())
}

func Test_CodeOf(t *testing.T) {
	assert.Equal(t, ERR_UNKNOWN, CodeOf(nil))
	assert.Equal(t, ERR_UNKNOWN, CodeOf(io.EOF))
	assert.Equal(t, ERR_HANDSHAKE_TIMEOUT, CodeOf(NewHandshakeTimeoutError("no verack after %s", "5s")))
	assert.Equal(t, ERR_SELF_CONNECTION, CodeOf(fmt.Errorf("x: %w", ErrSelfConnection)))
}

func Test_JoinWithMultipleErrs(t *testing.T) {
	err1 := NewFrameInvalidError("bad magic")
	err2 := NewUnknownCommandError("unknown command %q", "foo")

	joined := Join(err1, nil, err2)
	require.Error(t, joined)
	assert.Contains(t, joined.Error(), "bad magic")
	assert.Contains(t, joined.Error(), "unknown command \"foo\"")

	assert.NoError(t, Join(nil, nil))
}

func TestErrorString(t *testing.T) {
	err := NewProtocolViolationError("duplicate version message")
	assert.Equal(t, "Error: PROTOCOL_VIOLATION (error code: 70), Message: duplicate version message", err.Error())

	wrapped := NewNetworkError("write failed", io.ErrClosedPipe)
	assert.Equal(t, "Error: NETWORK_ERROR (error code: 50), Message: write failed, Wrapped err: io: read/write on closed pipe", wrapped.Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
}

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
		fatal    bool
		network  bool
	}{
		{"nil", nil, "none", false, false},
		{"eof", io.EOF, "transport", true, true},
		{"network", NewNetworkError("dial failed"), "transport", true, true},
		{"frame", NewFrameInvalidError("wrong magic"), "frame", true, false},
		{"checksum", NewChecksumMismatchError("flip"), "checksum", true, false},
		{"parse", NewMessageInvalidError("short"), "parse", true, false},
		{"unknown command", NewUnknownCommandError("xyz"), "unknown_command", false, false},
		{"protocol", NewProtocolViolationError("dup verack"), "protocol", true, false},
		{"handshake", NewHandshakeTimeoutError("5s"), "handshake_timeout", true, false},
		{"checkpoint", NewCheckpointMismatchError("hash"), "checkpoint", true, false},
		{"self", NewSelfConnectionError("nonce"), "self_connection", true, false},
		{"shutdown", NewPeerShutdownError("stop"), "shutdown", true, false},
		{"context", context.Canceled, "shutdown", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.err))
			assert.Equal(t, tt.fatal, IsFatalPeerError(tt.err))
			assert.Equal(t, tt.network, IsNetworkError(tt.err))
		})
	}

	assert.True(t, IsWireError(NewUnknownCommandError("x")))
	assert.False(t, IsWireError(NewHandshakeTimeoutError("x")))
	assert.True(t, IsContextError(NewPeerShutdownError("x")))
}

func Test_JoinKeepsChain(t *testing.T) {
	joined := Join(NewNetworkError("dial failed", io.EOF), NewConfigurationError("no params"))

	assert.True(t, Is(joined, ErrNetwork))
	assert.True(t, Is(joined, ErrConfiguration))
	assert.True(t, errors.Is(joined, io.EOF))
	assert.False(t, Is(joined, ErrProtocolViolation))
}
