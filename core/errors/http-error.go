package errors

// HTTPError is the JSON error body surfaced at the API boundary.
type HTTPError struct {
	StatusCode int                    `json:"code"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stack_trace,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      string                 `json:"cause,omitempty"`
}

// NewHTTPError builds an HTTPError with status, message and an optional stack trace.
func NewHTTPError(statusCode int, message string, stack ...string) *HTTPError {
	h := &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
	if len(stack) > 0 {
		h.StackTrace = stack[0]
	}
	return h
}

// FromAppError creates a HttpError from an AppError.
func FromAppError(err *AppError) *HTTPError {
	return &HTTPError{
		StatusCode: err.HTTPStatus(),
		Message:    err.Message,
		Context:    err.Fields,
		Cause:      unwrapCause(err.Cause),
	}
}

// ToMap returns a map for structured logging.
func (e *HTTPError) ToMap() map[string]interface{} {
	fields := map[string]interface{}{
		"code":    e.StatusCode,
		"message": e.Message,
	}
	if e.StackTrace != "" {
		fields["stack_trace"] = e.StackTrace
	}
	if e.Context != nil {
		fields["context"] = e.Context
	}
	if e.Cause != "" {
		fields["cause"] = e.Cause
	}
	return fields
}

// unwrapCause extracts the root cause message from an error chain, if any.
func unwrapCause(err error) string {
	if err == nil {
		return ""
	}
	if u, ok := err.(interface{ Unwrap() error }); ok {
		if cause := u.Unwrap(); cause != nil {
			return cause.Error()
		}
	}
	return ""
}
