package dispatcher

// Error codes carried in failed replies. The movement and camera loops never
// produce these; they are strictly command-turn failures.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnknownAction        = "UNKNOWN_ACTION"
	CodeInvalidParam         = "INVALID_PARAM"
	CodeFeatureSwitchTimeout = "FEATURE_SWITCH_TIMEOUT"
	CodeFrameUnavailable     = "FRAME_UNAVAILABLE"
	CodeDeviceError          = "DEVICE_ERROR"
)

// Error is a command failure with a machine-readable code.
type Error struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}
