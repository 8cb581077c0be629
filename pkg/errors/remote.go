package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-success response from the Stash server or a source.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("API error from %s: %s", e.Source, e.Message)
	}
	return fmt.Sprintf("API error from %s (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// Is classifies the status code: 429 is ErrRateLimited, 401 and 403 are
// ErrAPIKeyInvalid, 5xx is ErrSourceUnavailable.
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return target == ErrAPIKeyInvalid
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrSourceUnavailable
	}
	return false
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// NewAPIError creates an APIError.
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{Source: source, StatusCode: statusCode, Message: message}
}

// GraphQLError carries the errors member of a GraphQL response.
type GraphQLError struct {
	Endpoint string
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql error from %s: %s", e.Endpoint, strings.Join(e.Messages, "; "))
}

// SourceError is a failed search of one source for one studio. The engine
// turns it into a warning and counts the source as having no match.
type SourceError struct {
	Source string
	Query  string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("source %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("source %s search %q: %v", e.Source, e.Query, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// WrapSource wraps err as a SourceError.
func WrapSource(source, query string, err error) error {
	if err == nil {
		return nil
	}
	return &SourceError{Source: source, Query: query, Err: err}
}
