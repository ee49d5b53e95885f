package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/surya9490/wishlist/internal/api/repository"
	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
)

// Catalog fetches product variant enrichment from the storefront platform.
type Catalog interface {
	Variant(ctx context.Context, shop, productVariantID string) (*domain.VariantDetail, error)
	Variants(ctx context.Context, shop string, productVariantIDs []string) ([]domain.VariantDetail, error)
}

// EventPublisher publishes wishlist domain events. Publishing failures never
// fail the operation that triggered them.
type EventPublisher interface {
	PublishItemAdded(ctx context.Context, entry domain.WishlistEntry) error
	PublishItemRemoved(ctx context.Context, entry domain.WishlistEntry) error
	PublishSynced(ctx context.Context, customerID, shop string, merged int) error
}

// WishlistService implements the business logic behind the wishlist API.
type WishlistService struct {
	repo     repository.WishlistRepository
	catalog  Catalog
	producer EventPublisher
	logger   *slog.Logger
}

// NewWishlistService creates a new wishlist service.
func NewWishlistService(repo repository.WishlistRepository, catalog Catalog, producer EventPublisher, logger *slog.Logger) *WishlistService {
	return &WishlistService{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
	}
}

// Fetch returns the customer's full wishlist with enrichment. Enrichment
// failures degrade to membership-only responses rather than failing the fetch.
func (s *WishlistService) Fetch(ctx context.Context, customerID, shop string) (*domain.SyncPayload, error) {
	if customerID == "" || shop == "" {
		return nil, apperrors.InvalidInput("customer and shop are required")
	}

	entries, err := s.repo.ListByCustomer(ctx, customerID, shop)
	if err != nil {
		return nil, fmt.Errorf("fetch wishlist: %w", err)
	}

	details := s.enrich(ctx, shop, variantIDs(entries))

	return &domain.SyncPayload{
		Message:     "Wishlist fetched successfully",
		Wishlisted:  entries,
		VariantData: details,
		Count:       len(entries),
	}, nil
}

// Add creates a wishlist entry for a customer. Adding an identity that
// already exists is a no-op that still reports success.
func (s *WishlistService) Add(ctx context.Context, entry domain.WishlistEntry) (*domain.SyncPayload, error) {
	if entry.CustomerID == "" || entry.ProductVariantID == "" || entry.Shop == "" {
		return nil, apperrors.InvalidInput("customer, productVariantId and shop are required")
	}

	// Resolve the catalog detail first so the stored row carries the product
	// title the search path filters on.
	var details []domain.VariantDetail
	detail, err := s.catalog.Variant(ctx, entry.Shop, entry.ProductVariantID)
	if err != nil {
		s.logger.WarnContext(ctx, "variant enrichment failed on add",
			slog.String("product_variant_id", entry.ProductVariantID),
			slog.String("error", err.Error()),
		)
	} else {
		entry.ProductTitle = detail.Product.Title
		if entry.ProductHandle == "" {
			entry.ProductHandle = detail.Product.Handle
		}
		details = []domain.VariantDetail{*detail}
	}

	inserted, err := s.repo.Create(ctx, &entry)
	if err != nil {
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}

	if inserted {
		if err := s.producer.PublishItemAdded(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish item_added event",
				slog.String("customer_id", entry.CustomerID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "wishlist item added",
		slog.String("customer_id", entry.CustomerID),
		slog.String("product_variant_id", entry.ProductVariantID),
		slog.Bool("inserted", inserted),
	)

	return &domain.SyncPayload{
		Message:     "Product added to wishlist",
		Wishlisted:  []domain.WishlistEntry{entry},
		VariantData: details,
	}, nil
}

// Remove deletes a wishlist entry.
func (s *WishlistService) Remove(ctx context.Context, customerID, productVariantID, shop string) (*domain.SyncPayload, error) {
	if customerID == "" || productVariantID == "" || shop == "" {
		return nil, apperrors.InvalidInput("customer, productVariantId and shop are required")
	}

	if err := s.repo.Delete(ctx, customerID, productVariantID, shop); err != nil {
		return nil, fmt.Errorf("remove wishlist item: %w", err)
	}

	entry := domain.WishlistEntry{
		CustomerID:       customerID,
		ProductVariantID: productVariantID,
		Shop:             shop,
	}
	if err := s.producer.PublishItemRemoved(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish item_removed event",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "wishlist item removed",
		slog.String("customer_id", customerID),
		slog.String("product_variant_id", productVariantID),
	)

	return &domain.SyncPayload{Message: "Product removed from wishlist"}, nil
}

// BulkCreate merges a batch of variant ids into the customer's wishlist,
// skipping identities that already exist. This backs the guest-to-customer
// merge, so the whole call fails if persistence fails; the caller keeps its
// guest copy and retries later.
func (s *WishlistService) BulkCreate(ctx context.Context, customerID, shop string, productVariantIDs []string) (*domain.SyncPayload, error) {
	if customerID == "" || shop == "" {
		return nil, apperrors.InvalidInput("customer and shop are required")
	}
	if len(productVariantIDs) == 0 {
		return nil, apperrors.InvalidInput("no product variant ids to merge")
	}

	details := s.enrich(ctx, shop, productVariantIDs)
	titles := make(map[string]domain.VariantDetail, len(details))
	for _, d := range details {
		titles[d.VariantID()] = d
	}

	entries := make([]domain.WishlistEntry, 0, len(productVariantIDs))
	for _, id := range productVariantIDs {
		e := domain.WishlistEntry{
			CustomerID:       customerID,
			ProductVariantID: id,
			Shop:             shop,
		}
		if d, ok := titles[id]; ok {
			e.ProductTitle = d.Product.Title
			e.ProductHandle = d.Product.Handle
		}
		entries = append(entries, e)
	}

	added, err := s.repo.BulkCreate(ctx, entries)
	if err != nil {
		return nil, fmt.Errorf("merge wishlist items: %w", err)
	}

	if err := s.producer.PublishSynced(ctx, customerID, shop, added); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish synced event",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}

	count, err := s.repo.Count(ctx, customerID, shop)
	if err != nil {
		s.logger.WarnContext(ctx, "wishlist count failed after merge", slog.String("error", err.Error()))
		count = len(entries)
	}

	s.logger.InfoContext(ctx, "guest wishlist merged",
		slog.String("customer_id", customerID),
		slog.Int("requested", len(entries)),
		slog.Int("added", added),
	)

	return &domain.SyncPayload{
		Message:     "Wishlist synced successfully",
		Wishlisted:  entries,
		VariantData: details,
		Count:       count,
	}, nil
}

// FetchVariants returns enrichment only, without touching membership. This
// backs the guest display paths.
func (s *WishlistService) FetchVariants(ctx context.Context, shop string, productVariantIDs []string) (*domain.SyncPayload, error) {
	if shop == "" {
		return nil, apperrors.InvalidInput("shop is required")
	}
	if len(productVariantIDs) == 0 {
		return nil, apperrors.InvalidInput("no product variant ids to fetch")
	}

	details, err := s.catalog.Variants(ctx, shop, productVariantIDs)
	if err != nil {
		return nil, fmt.Errorf("fetch variant data: %w", err)
	}

	return &domain.SyncPayload{
		Message:     "Variant data fetched successfully",
		VariantData: details,
	}, nil
}

// Search returns the customer's wishlist entries whose product title matches
// the query. An empty query behaves like a full fetch.
func (s *WishlistService) Search(ctx context.Context, customerID, shop, query string) (*domain.SyncPayload, error) {
	if customerID == "" || shop == "" {
		return nil, apperrors.InvalidInput("customer and shop are required")
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return s.Fetch(ctx, customerID, shop)
	}

	entries, err := s.repo.SearchByTitle(ctx, customerID, shop, query)
	if err != nil {
		return nil, fmt.Errorf("search wishlist: %w", err)
	}

	details := s.enrich(ctx, shop, variantIDs(entries))

	return &domain.SyncPayload{
		Message:     "Wishlist searched successfully",
		Wishlisted:  entries,
		VariantData: details,
		Count:       len(entries),
	}, nil
}

// enrich fetches variant details, logging and degrading to an empty slice on
// failure.
func (s *WishlistService) enrich(ctx context.Context, shop string, ids []string) []domain.VariantDetail {
	if len(ids) == 0 {
		return []domain.VariantDetail{}
	}
	details, err := s.catalog.Variants(ctx, shop, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "variant enrichment failed",
			slog.Int("ids", len(ids)),
			slog.String("error", err.Error()),
		)
		return []domain.VariantDetail{}
	}
	return details
}

func variantIDs(entries []domain.WishlistEntry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ProductVariantID
	}
	return ids
}
