package resilience

import "fmt"

// CoreError is the structured error type threaded through every layer of
// the core. Category/Severity are human-facing classification; Kind drives
// the propagation policy in §7 of the design (retry, fast-fail, bubble).
type CoreError struct {
	Code     string
	Message  string
	Category Category
	Severity Severity
	Kind     Kind
	Details  map[string]string
	Cause    error
}

func (e *CoreError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Cause
}

func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *CoreError) WithDetail(key, value string) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New builds a CoreError, deriving category/severity/kind from the code.
func New(code, message string, cause error) *CoreError {
	return &CoreError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Kind:     kindFromCode(code),
		Severity: severityFromKind(kindFromCode(code)),
		Cause:    cause,
	}
}

func Wrap(code string, err error) *CoreError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

func ValidationError(message string, cause error) *CoreError {
	return New(ErrCodeInvalidInput, message, cause)
}

func NotFoundError(message string) *CoreError {
	return New(ErrCodeStoreNotFound, message, nil)
}

func InternalError(message string, cause error) *CoreError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether the resilience executor should retry an
// operation that failed with this error.
func IsRetryable(err error) bool {
	ce, ok := err.(*CoreError)
	if !ok {
		return false
	}
	return ce.Kind.Retryable()
}

func IsFatal(err error) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Severity == SeverityFatal
}

func IsNotFound(err error) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Kind == KindNotFound
}

func KindOf(err error) Kind {
	if ce, ok := err.(*CoreError); ok {
		return ce.Kind
	}
	return KindFatal
}

func CodeOf(err error) string {
	if ce, ok := err.(*CoreError); ok {
		return ce.Code
	}
	return ""
}
