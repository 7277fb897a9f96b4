package domain

import "errors"

// ValidationError is a malformed search request. Field names the offending
// input so the boundary can return field-level reasons.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// NotFoundError is returned when a partial update targets a document id that
// does not exist in the index.
type NotFoundError struct {
	Collection string
	ID         string
}

func (e *NotFoundError) Error() string {
	return e.Collection + "/" + e.ID + ": not found"
}

// UpstreamError is a transient failure talking to the search engine or the
// broker. Retryable distinguishes connectivity/timeout failures from
// terminal engine rejections.
type UpstreamError struct {
	Op        string
	Err       string
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err
}

// PoisonMessageError marks an event that cannot be parsed or validated. The
// consumer logs and acknowledges it; it is never retried.
type PoisonMessageError struct {
	RoutingKey string
	Reason     string
}

func (e *PoisonMessageError) Error() string {
	return "poison message " + e.RoutingKey + ": " + e.Reason
}

// SearchEngineError represents an error from the search engine layer.
type SearchEngineError struct {
	Op  string
	Err string
}

func (e *SearchEngineError) Error() string {
	return e.Op + ": " + e.Err
}

// RepositoryError represents an error from the repository layer.
type RepositoryError struct {
	Op  string
	Err string
}

func (e *RepositoryError) Error() string {
	return e.Op + ": " + e.Err
}

// IsRetryable reports whether err may succeed on retry. NotFound, validation
// failures and poison messages are terminal; upstream failures are retryable
// unless explicitly marked otherwise.
func IsRetryable(err error) bool {
	var up *UpstreamError
	if errors.As(err, &up) {
		return up.Retryable
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return false
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return false
	}
	var p *PoisonMessageError
	if errors.As(err, &p) {
		return false
	}
	var se *SearchEngineError
	if errors.As(err, &se) {
		return true
	}
	return false
}
