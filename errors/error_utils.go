// Package errors provides utilities for categorizing and handling errors raised by the legacy P2P engine.
package errors

import (
	"context"
	"io"
	"net"
)

// IsNetworkError determines if an error is transport-related: connect, read or write
// failures and the remote side closing the socket.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_ERROR,
			ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_CONNECTION_CLOSED:
			return true
		}
	}

	if Is(err, io.EOF) || Is(err, io.ErrUnexpectedEOF) || Is(err, net.ErrClosed) {
		return true
	}

	var netErr net.Error

	return As(err, &netErr)
}

// IsWireError determines if an error was raised while framing or parsing a message.
func IsWireError(err error) bool {
	switch CodeOf(err) {
	case ERR_FRAME_INVALID, ERR_CHECKSUM_MISMATCH, ERR_MESSAGE_INVALID, ERR_UNKNOWN_COMMAND:
		return true
	default:
		return false
	}
}

// IsFatalPeerError reports whether err must terminate the connection it was raised on.
// Unknown commands are the only wire error a peer survives.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if the peer has to be disconnected
func IsFatalPeerError(err error) bool {
	if err == nil {
		return false
	}

	return CodeOf(err) != ERR_UNKNOWN_COMMAND
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if err == context.Canceled || err == context.DeadlineExceeded {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED || tErr.Code() == ERR_CONTEXT || tErr.Code() == ERR_PEER_SHUTDOWN {
			return true
		}
	}

	if Is(err, context.Canceled) || Is(err, context.DeadlineExceeded) {
		return true
	}

	return false
}

// GetErrorCategory returns a string representing the category of the error.
// This is used as a label on disconnect metrics and in log lines.
//
// Parameters:
//   - err: Error to categorize
//
// Returns:
//   - string: one of "none", "shutdown", "transport", "frame", "checksum", "parse",
//     "unknown_command", "protocol", "handshake_timeout", "checkpoint", "self_connection", "unknown"
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	switch CodeOf(err) {
	case ERR_PEER_SHUTDOWN, ERR_CONTEXT, ERR_CONTEXT_CANCELED:
		return "shutdown"
	case ERR_NETWORK_ERROR, ERR_NETWORK_TIMEOUT, ERR_NETWORK_CONNECTION_CLOSED:
		return "transport"
	case ERR_FRAME_INVALID:
		return "frame"
	case ERR_CHECKSUM_MISMATCH:
		return "checksum"
	case ERR_MESSAGE_INVALID:
		return "parse"
	case ERR_UNKNOWN_COMMAND:
		return "unknown_command"
	case ERR_PROTOCOL_VIOLATION:
		return "protocol"
	case ERR_HANDSHAKE_TIMEOUT:
		return "handshake_timeout"
	case ERR_CHECKPOINT_MISMATCH:
		return "checkpoint"
	case ERR_SELF_CONNECTION:
		return "self_connection"
	}

	if IsContextError(err) {
		return "shutdown"
	}

	if IsNetworkError(err) {
		return "transport"
	}

	return "unknown"
}
