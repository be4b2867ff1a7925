package errors

var (
	ErrUnknown                 = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument         = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrThresholdExceeded       = New(ERR_THRESHOLD_EXCEEDED, "threshold exceeded")
	ErrNotFound                = New(ERR_NOT_FOUND, "not found")
	ErrProcessing              = New(ERR_PROCESSING, "error processing")
	ErrConfiguration           = New(ERR_CONFIGURATION, "configuration error")
	ErrContext                 = New(ERR_CONTEXT, "context error")
	ErrContextCanceled         = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError                   = New(ERR_ERROR, "generic error")
	ErrServiceError            = New(ERR_SERVICE_ERROR, "service error")
	ErrNetwork                 = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout          = New(ERR_NETWORK_TIMEOUT, "network timeout")
	ErrNetworkConnectionClosed = New(ERR_NETWORK_CONNECTION_CLOSED, "connection closed")
	ErrFrameInvalid            = New(ERR_FRAME_INVALID, "invalid message frame")
	ErrChecksumMismatch        = New(ERR_CHECKSUM_MISMATCH, "checksum mismatch")
	ErrMessageInvalid          = New(ERR_MESSAGE_INVALID, "invalid message payload")
	ErrUnknownCommand          = New(ERR_UNKNOWN_COMMAND, "unknown command")
	ErrProtocolViolation       = New(ERR_PROTOCOL_VIOLATION, "protocol violation")
	ErrHandshakeTimeout        = New(ERR_HANDSHAKE_TIMEOUT, "handshake timeout")
	ErrCheckpointMismatch      = New(ERR_CHECKPOINT_MISMATCH, "checkpoint mismatch")
	ErrSelfConnection          = New(ERR_SELF_CONNECTION, "connected to self")
	ErrPeerShutdown            = New(ERR_PEER_SHUTDOWN, "peer shutdown")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewThresholdExceededError(message string, params ...interface{}) error {
	return New(ERR_THRESHOLD_EXCEEDED, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
func NewNetworkConnectionClosedError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_CONNECTION_CLOSED, message, params...)
}
func NewFrameInvalidError(message string, params ...interface{}) error {
	return New(ERR_FRAME_INVALID, message, params...)
}
func NewChecksumMismatchError(message string, params ...interface{}) error {
	return New(ERR_CHECKSUM_MISMATCH, message, params...)
}
func NewMessageInvalidError(message string, params ...interface{}) error {
	return New(ERR_MESSAGE_INVALID, message, params...)
}
func NewUnknownCommandError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN_COMMAND, message, params...)
}
func NewProtocolViolationError(message string, params ...interface{}) error {
	return New(ERR_PROTOCOL_VIOLATION, message, params...)
}
func NewHandshakeTimeoutError(message string, params ...interface{}) error {
	return New(ERR_HANDSHAKE_TIMEOUT, message, params...)
}
func NewCheckpointMismatchError(message string, params ...interface{}) error {
	return New(ERR_CHECKPOINT_MISMATCH, message, params...)
}
func NewSelfConnectionError(message string, params ...interface{}) error {
	return New(ERR_SELF_CONNECTION, message, params...)
}
func NewPeerShutdownError(message string, params ...interface{}) error {
	return New(ERR_PEER_SHUTDOWN, message, params...)
}
