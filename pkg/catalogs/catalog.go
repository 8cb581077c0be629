// Package catalogs defines the local studio catalog the engine reconciles.
//
// The catalog is an external collaborator: studios live in the host's
// database and are reached through a Catalog implementation. Every method is
// synchronous and individually atomic; a single Update applies all of its
// fields or none of them.
package catalogs

import (
	"context"

	"github.com/agentstation/studiosync/pkg/sources"
)

// Reader provides read-only access to studios.
type Reader interface {
	// List returns every studio in catalog iteration order.
	List(ctx context.Context) ([]Studio, error)

	// Get returns one studio or a NotFoundError.
	Get(ctx context.Context, id string) (Studio, error)

	// FindByExternalID returns the studios linked to externalID at source.
	FindByExternalID(ctx context.Context, source sources.ID, externalID string) ([]Studio, error)

	// FindByName returns the studios whose normalized name equals name.
	FindByName(ctx context.Context, name string) ([]Studio, error)
}

// Writer provides write operations for studios.
type Writer interface {
	// Create adds a studio and returns it with its assigned id.
	Create(ctx context.Context, studio NewStudio) (Studio, error)

	// Update applies u to studio id atomically.
	Update(ctx context.Context, id string, u Update) (Studio, error)

	// Delete removes a studio. The engine only uses it to roll back a
	// parent it created during a failed apply.
	Delete(ctx context.Context, id string) error
}

// Catalog is the complete accessor interface.
type Catalog interface {
	Reader
	Writer
}
