package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository needs. Declared as an
// interface so tests can substitute a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WishlistRepository implements repository.WishlistRepository using PostgreSQL.
type WishlistRepository struct {
	db DB
}

// NewWishlistRepository creates a new PostgreSQL-backed wishlist repository.
func NewWishlistRepository(db DB) *WishlistRepository {
	return &WishlistRepository{db: db}
}

// Create inserts a wishlist entry.
// Uses ON CONFLICT DO NOTHING so repeated adds of the same identity are idempotent.
func (r *WishlistRepository) Create(ctx context.Context, e *domain.WishlistEntry) (bool, error) {
	query := `
		INSERT INTO wishlist_items (customer_id, product_variant_id, product_handle, product_title, shop)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, product_variant_id, shop) DO NOTHING`

	ct, err := r.db.Exec(ctx, query,
		e.CustomerID,
		e.ProductVariantID,
		e.ProductHandle,
		e.ProductTitle,
		e.Shop,
	)
	if err != nil {
		return false, fmt.Errorf("insert wishlist item: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Delete removes the entry for (customer, variant, shop).
func (r *WishlistRepository) Delete(ctx context.Context, customerID, productVariantID, shop string) error {
	query := `
		DELETE FROM wishlist_items
		WHERE customer_id = $1 AND product_variant_id = $2 AND shop = $3`

	ct, err := r.db.Exec(ctx, query, customerID, productVariantID, shop)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("wishlist item", productVariantID)
	}

	return nil
}

// BulkCreate inserts entries one by one, skipping duplicates, and returns the
// number actually inserted.
func (r *WishlistRepository) BulkCreate(ctx context.Context, entries []domain.WishlistEntry) (int, error) {
	query := `
		INSERT INTO wishlist_items (customer_id, product_variant_id, product_handle, product_title, shop)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (customer_id, product_variant_id, shop) DO NOTHING`

	added := 0
	for i := range entries {
		e := &entries[i]
		ct, err := r.db.Exec(ctx, query,
			e.CustomerID,
			e.ProductVariantID,
			e.ProductHandle,
			e.ProductTitle,
			e.Shop,
		)
		if err != nil {
			return added, fmt.Errorf("bulk insert wishlist item %s: %w", e.ProductVariantID, err)
		}
		if ct.RowsAffected() > 0 {
			added++
		}
	}

	return added, nil
}

// ListByCustomer returns all entries for a customer in a shop, newest first.
func (r *WishlistRepository) ListByCustomer(ctx context.Context, customerID, shop string) ([]domain.WishlistEntry, error) {
	query := `
		SELECT customer_id, product_variant_id, product_handle, product_title, shop
		FROM wishlist_items
		WHERE customer_id = $1 AND shop = $2
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, customerID, shop)
	if err != nil {
		return nil, fmt.Errorf("list wishlist items: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the number of entries for a customer in a shop.
func (r *WishlistRepository) Count(ctx context.Context, customerID, shop string) (int, error) {
	query := `SELECT COUNT(*) FROM wishlist_items WHERE customer_id = $1 AND shop = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, customerID, shop).Scan(&count); err != nil {
		return 0, fmt.Errorf("count wishlist items: %w", err)
	}

	return count, nil
}

// SearchByTitle returns the customer's entries whose product title contains
// the query, case-insensitively.
func (r *WishlistRepository) SearchByTitle(ctx context.Context, customerID, shop, query string) ([]domain.WishlistEntry, error) {
	sql := `
		SELECT customer_id, product_variant_id, product_handle, product_title, shop
		FROM wishlist_items
		WHERE customer_id = $1 AND shop = $2 AND product_title ILIKE $3
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, sql, customerID, shop, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("search wishlist items: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]domain.WishlistEntry, error) {
	entries := []domain.WishlistEntry{}
	for rows.Next() {
		var e domain.WishlistEntry
		if err := rows.Scan(&e.CustomerID, &e.ProductVariantID, &e.ProductHandle, &e.ProductTitle, &e.Shop); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wishlist rows: %w", err)
	}

	return entries, nil
}
