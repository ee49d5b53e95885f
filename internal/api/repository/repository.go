package repository

import (
	"context"

	"github.com/surya9490/wishlist/internal/domain"
)

// WishlistRepository defines the interface for wishlist persistence operations.
type WishlistRepository interface {
	// Create inserts an entry. Returns false when the identity already
	// existed; creation is idempotent either way.
	Create(ctx context.Context, entry *domain.WishlistEntry) (bool, error)

	// Delete removes the entry matching (customer, variant, shop).
	// Returns ErrNotFound when no such entry exists.
	Delete(ctx context.Context, customerID, productVariantID, shop string) error

	// BulkCreate inserts entries, skipping identities that already exist, and
	// returns how many were actually inserted.
	BulkCreate(ctx context.Context, entries []domain.WishlistEntry) (int, error)

	// ListByCustomer returns all entries for a customer in a shop, newest first.
	ListByCustomer(ctx context.Context, customerID, shop string) ([]domain.WishlistEntry, error)

	// Count returns the number of entries for a customer in a shop.
	Count(ctx context.Context, customerID, shop string) (int, error)

	// SearchByTitle returns the customer's entries whose stored product title
	// contains the query, case-insensitively.
	SearchByTitle(ctx context.Context, customerID, shop, query string) ([]domain.WishlistEntry, error)
}
