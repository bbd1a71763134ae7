package logging

import "log/slog"

// Common field names for consistent logging across components.
const (
	FieldService   = "service"
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldProductID = "product_id"
	FieldProduct   = "product"
	FieldTopic     = "topic"
	FieldKind      = "kind"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldAttempt   = "attempt"
	FieldError     = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// UserID returns a slog attribute for the caller's account ID.
func UserID(id string) slog.Attr {
	return slog.String(FieldUserID, id)
}

// ProductID returns a slog attribute for a stock record ID.
func ProductID(id string) slog.Attr {
	return slog.String(FieldProductID, id)
}

// Product returns a slog attribute for a stock record name.
func Product(name string) slog.Attr {
	return slog.String(FieldProduct, name)
}

// Topic returns a slog attribute for a push topic.
func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// Kind returns a slog attribute for a composition kind.
func Kind(kind string) slog.Attr {
	return slog.String(FieldKind, kind)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Attempt returns a slog attribute for a retry attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(FieldAttempt, n)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
