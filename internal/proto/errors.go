package proto

// Error codes for protocol errors.
const (
	ErrCodeMalformedFrame = "malformed_frame"
	ErrCodeUnknownOpcode  = "unknown_opcode"
	ErrCodeUnknownEvent   = "unknown_event"
)

// ProtocolError reports an inbound frame the client cannot interpret.
// It is fatal for the connection that produced it.
type ProtocolError struct {
	Code    string
	Message string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

func protocolError(code, msg string) *ProtocolError {
	return &ProtocolError{Code: code, Message: msg}
}
