// Package directory provides the customer directories the matcher searches:
// a local sqlite roster, the QuickBooks Online API, and a batch-scoped
// snapshot over either.
package directory

import (
	"context"

	"github.com/jask/donormatch/internal/model"
)

// Directory is the external customer roster.
type Directory interface {
	// Search returns customers whose names contain term. Over-inclusive
	// results are fine; the scorer filters.
	Search(ctx context.Context, term string) ([]model.Customer, error)
	// Get returns model.ErrNotFound (wrapped) for unknown IDs.
	Get(ctx context.Context, id string) (model.Customer, error)
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
}

// Lister can return the whole roster at once.
type Lister interface {
	List(ctx context.Context) ([]model.Customer, error)
}

// Updater applies contact patches to existing customers.
type Updater interface {
	Update(ctx context.Context, c model.Customer, patch model.ContactPatch) (model.Customer, error)
}
