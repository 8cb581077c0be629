package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	pkgerrors "github.com/agentstation/studiosync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestNotFoundError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := &pkgerrors.NotFoundError{
			Resource: "studio",
			ID:       "42",
		}
		assert.Equal(t, "studio with ID 42 not found", err.Error())
		assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
	})

	t.Run("wrapped error", func(t *testing.T) {
		base := pkgerrors.NewNotFoundError("studio", "7")
		wrapped := fmt.Errorf("loading parent: %w", base)
		assert.True(t, pkgerrors.IsNotFound(wrapped))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("with field", func(t *testing.T) {
		err := pkgerrors.NewValidationError("threshold", 120, "must be between 0 and 100")
		assert.Equal(t, "validation failed for field threshold: must be between 0 and 100", err.Error())
		assert.True(t, pkgerrors.IsValidationError(err))
	})

	t.Run("without field", func(t *testing.T) {
		err := &pkgerrors.ValidationError{Message: "no sources configured"}
		assert.Equal(t, "validation failed: no sources configured", err.Error())
	})
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		target    error
		retryable bool
	}{
		{"rate limited", 429, pkgerrors.ErrRateLimited, true},
		{"unauthorized", 401, pkgerrors.ErrAPIKeyInvalid, false},
		{"forbidden", 403, pkgerrors.ErrAPIKeyInvalid, false},
		{"server error", 502, pkgerrors.ErrSourceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pkgerrors.NewAPIError("stashdb", tt.status, "boom")
			assert.True(t, errors.Is(err, tt.target))
			assert.Equal(t, tt.retryable, err.Retryable())
			assert.Contains(t, err.Error(), "stashdb")
		})
	}

	t.Run("bad request is not classified", func(t *testing.T) {
		err := pkgerrors.NewAPIError("tpdb", 400, "bad query")
		assert.False(t, errors.Is(err, pkgerrors.ErrSourceUnavailable))
		assert.False(t, err.Retryable())
	})
}

func TestSourceError(t *testing.T) {
	err := pkgerrors.WrapSource("https://stashdb.org/graphql", "Alpha Studio", context.DeadlineExceeded)

	assert.Contains(t, err.Error(), `"Alpha Studio"`)
	assert.True(t, pkgerrors.IsTimeout(err))

	var se *pkgerrors.SourceError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &se))
	assert.Equal(t, "https://stashdb.org/graphql", se.Source)
}

func TestHierarchyConflictError(t *testing.T) {
	err := pkgerrors.NewHierarchyConflictError("1", "2", "parent is a descendant")
	assert.Equal(t, "hierarchy conflict linking studio 1 to parent 2: parent is a descendant", err.Error())
	assert.True(t, pkgerrors.IsHierarchyConflict(err))

	noParent := pkgerrors.NewHierarchyConflictError("1", "", "ambiguous parent name")
	assert.Equal(t, "hierarchy conflict for studio 1: ambiguous parent name", noParent.Error())
}

func TestAlreadyRunningError(t *testing.T) {
	err := pkgerrors.NewAlreadyRunningError("pid 4242")
	assert.Contains(t, err.Error(), "pid 4242")
	assert.True(t, pkgerrors.IsAlreadyRunning(err))
	assert.True(t, pkgerrors.IsAlreadyRunning(fmt.Errorf("run: %w", err)))
	assert.Equal(t, "studio sync already running", (&pkgerrors.AlreadyRunningError{}).Error())
}

func TestIsTimeout(t *testing.T) {
	netErr := &url.Error{Op: "Post", URL: "https://api.theporndb.net", Err: timeoutErr{}}
	assert.True(t, pkgerrors.IsTimeout(netErr))
	assert.True(t, pkgerrors.IsTimeout(fmt.Errorf("search: %w", context.DeadlineExceeded)))
	assert.False(t, pkgerrors.IsTimeout(context.Canceled))
	assert.True(t, pkgerrors.IsCanceled(context.Canceled))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestAPIKeyErrors(t *testing.T) {
	assert.True(t, pkgerrors.IsAPIKeyError(fmt.Errorf("tpdb: %w", pkgerrors.ErrAPIKeyRequired)))
	assert.True(t, pkgerrors.IsAPIKeyError(pkgerrors.NewAPIError("tpdb", 401, "unauthenticated")))
	assert.False(t, pkgerrors.IsAPIKeyError(pkgerrors.NewAPIError("tpdb", 500, "oops")))
}

func TestGraphQLError(t *testing.T) {
	err := &pkgerrors.GraphQLError{Endpoint: "http://localhost:9999/graphql", Messages: []string{"a", "b"}}
	assert.Equal(t, "graphql error from http://localhost:9999/graphql: a; b", err.Error())
}

func TestWrapHelpers(t *testing.T) {
	t.Run("WrapValidation", func(t *testing.T) {
		err := pkgerrors.WrapValidation("limit", errors.New("negative"))
		assert.Contains(t, err.Error(), "limit")
		assert.Nil(t, pkgerrors.WrapValidation("field", nil))
	})

	t.Run("WrapIO", func(t *testing.T) {
		err := pkgerrors.WrapIO("write", "/tmp/studiosync.pid", errors.New("disk full"))
		assert.Contains(t, err.Error(), "/tmp/studiosync.pid")
		assert.Nil(t, pkgerrors.WrapIO("read", "file", nil))
	})

	t.Run("WrapResource", func(t *testing.T) {
		err := pkgerrors.WrapResource("update", "studio", "12", pkgerrors.ErrAlreadyExists)
		assert.Contains(t, err.Error(), "update studio 12")
		assert.True(t, pkgerrors.IsAlreadyExists(err))
		assert.Nil(t, pkgerrors.WrapResource("create", "studio", "", nil))
	})

	t.Run("WrapParse", func(t *testing.T) {
		err := pkgerrors.WrapParse("yaml", "catalog.yaml", errors.New("bad indent"))
		assert.Contains(t, err.Error(), "catalog.yaml")
		assert.Nil(t, pkgerrors.WrapParse("yaml", "catalog.yaml", nil))
	})

	t.Run("WrapSource", func(t *testing.T) {
		err := pkgerrors.WrapSource("tpdb", "Beta", pkgerrors.ErrRateLimited)
		assert.True(t, pkgerrors.IsRateLimited(err))
		assert.Nil(t, pkgerrors.WrapSource("tpdb", "Beta", nil))
	})
}

func TestErrorChaining(t *testing.T) {
	baseErr := errors.New("connection refused")
	ioErr := pkgerrors.WrapIO("connect", "stashdb.org", baseErr)
	apiErr := &pkgerrors.APIError{Source: "stashdb", Message: "failed to connect", Err: ioErr}
	srcErr := pkgerrors.WrapSource("stashdb", "Alpha", apiErr)

	assert.Equal(t, apiErr, errors.Unwrap(srcErr))
	assert.Equal(t, ioErr, apiErr.Unwrap())

	var targetIOErr *pkgerrors.IOError
	require.True(t, errors.As(srcErr, &targetIOErr))
	assert.Equal(t, "connect", targetIOErr.Operation)
}
