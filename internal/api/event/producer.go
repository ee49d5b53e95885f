package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surya9490/wishlist/internal/domain"
	pkgkafka "github.com/surya9490/wishlist/pkg/kafka"
)

// Kafka topic constants for wishlist domain events.
const (
	TopicItemAdded   = "storefront.wishlist.item_added"
	TopicItemRemoved = "storefront.wishlist.item_removed"
	TopicSynced      = "storefront.wishlist.synced"
)

// Aggregate type constant.
const AggregateTypeWishlist = "wishlist"

// Source identifier for events originating from the wishlist API.
const SourceWishlistAPI = "wishlist-api"

// ItemAddedData is the payload for a wishlist item_added event.
type ItemAddedData struct {
	CustomerID       string `json:"customer_id"`
	ProductVariantID string `json:"product_variant_id"`
	ProductHandle    string `json:"product_handle,omitempty"`
	Shop             string `json:"shop"`
}

// ItemRemovedData is the payload for a wishlist item_removed event.
type ItemRemovedData struct {
	CustomerID       string `json:"customer_id"`
	ProductVariantID string `json:"product_variant_id"`
	Shop             string `json:"shop"`
}

// SyncedData is the payload for a wishlist synced event, emitted when a guest
// wishlist is merged into a customer account.
type SyncedData struct {
	CustomerID string `json:"customer_id"`
	Shop       string `json:"shop"`
	Merged     int    `json:"merged"`
}

// Producer publishes wishlist domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the wishlist API.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishItemAdded publishes a wishlist item_added event.
func (p *Producer) PublishItemAdded(ctx context.Context, entry domain.WishlistEntry) error {
	data := ItemAddedData{
		CustomerID:       entry.CustomerID,
		ProductVariantID: entry.ProductVariantID,
		ProductHandle:    entry.ProductHandle,
		Shop:             entry.Shop,
	}

	event, err := pkgkafka.NewEvent(TopicItemAdded, entry.CustomerID, AggregateTypeWishlist, SourceWishlistAPI, data)
	if err != nil {
		return fmt.Errorf("create item_added event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicItemAdded, event); err != nil {
		return fmt.Errorf("publish item_added event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wishlist item_added event",
		slog.String("customer_id", entry.CustomerID),
		slog.String("product_variant_id", entry.ProductVariantID),
	)

	return nil
}

// PublishItemRemoved publishes a wishlist item_removed event.
func (p *Producer) PublishItemRemoved(ctx context.Context, entry domain.WishlistEntry) error {
	data := ItemRemovedData{
		CustomerID:       entry.CustomerID,
		ProductVariantID: entry.ProductVariantID,
		Shop:             entry.Shop,
	}

	event, err := pkgkafka.NewEvent(TopicItemRemoved, entry.CustomerID, AggregateTypeWishlist, SourceWishlistAPI, data)
	if err != nil {
		return fmt.Errorf("create item_removed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicItemRemoved, event); err != nil {
		return fmt.Errorf("publish item_removed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wishlist item_removed event",
		slog.String("customer_id", entry.CustomerID),
		slog.String("product_variant_id", entry.ProductVariantID),
	)

	return nil
}

// PublishSynced publishes a wishlist synced event after a guest merge.
func (p *Producer) PublishSynced(ctx context.Context, customerID, shop string, merged int) error {
	data := SyncedData{CustomerID: customerID, Shop: shop, Merged: merged}

	event, err := pkgkafka.NewEvent(TopicSynced, customerID, AggregateTypeWishlist, SourceWishlistAPI, data)
	if err != nil {
		return fmt.Errorf("create synced event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicSynced, event); err != nil {
		return fmt.Errorf("publish synced event: %w", err)
	}

	p.logger.DebugContext(ctx, "published wishlist synced event",
		slog.String("customer_id", customerID),
		slog.Int("merged", merged),
	)

	return nil
}
