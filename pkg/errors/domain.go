package errors

import "fmt"

// NotFoundError is a lookup of an id that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError is rejected input: options, flags, plugin arguments.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

// Is matches ErrInvalidInput.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// WrapValidation turns err into a ValidationError for field.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// ConfigError is a configuration problem found at startup. The CLI exits
// with a dedicated code for it.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// HierarchyConflictError is a rejected parent change.
type HierarchyConflictError struct {
	StudioID string `json:"studio_id" yaml:"studio_id"`
	// ParentID is empty when the parent never resolved to a local studio.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Reason   string `json:"reason" yaml:"reason"`
}

func (e *HierarchyConflictError) Error() string {
	if e.ParentID == "" {
		return fmt.Sprintf("hierarchy conflict for studio %s: %s", e.StudioID, e.Reason)
	}
	return fmt.Sprintf("hierarchy conflict linking studio %s to parent %s: %s", e.StudioID, e.ParentID, e.Reason)
}

// Is matches ErrHierarchyConflict.
func (e *HierarchyConflictError) Is(target error) bool { return target == ErrHierarchyConflict }

// NewHierarchyConflictError creates a HierarchyConflictError.
func NewHierarchyConflictError(studioID, parentID, reason string) *HierarchyConflictError {
	return &HierarchyConflictError{StudioID: studioID, ParentID: parentID, Reason: reason}
}

// AlreadyRunningError rejects a mutating run while another holds the lock.
type AlreadyRunningError struct {
	// Holder describes the current holder, e.g. "pid 4242", when known.
	Holder string
}

func (e *AlreadyRunningError) Error() string {
	if e.Holder == "" {
		return "studio sync already running"
	}
	return fmt.Sprintf("studio sync already running (held by %s)", e.Holder)
}

// Is matches ErrAlreadyRunning.
func (e *AlreadyRunningError) Is(target error) bool { return target == ErrAlreadyRunning }

// NewAlreadyRunningError creates an AlreadyRunningError.
func NewAlreadyRunningError(holder string) *AlreadyRunningError {
	return &AlreadyRunningError{Holder: holder}
}
