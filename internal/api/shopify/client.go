package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/surya9490/wishlist/internal/domain"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
	"github.com/surya9490/wishlist/pkg/httpclient"
)

// variantGIDPrefix is the Admin API global id namespace for product variants.
const variantGIDPrefix = "gid://shopify/ProductVariant/"

// VariantGID returns the Admin API global id for a variant. Ids that are
// already GIDs pass through unchanged.
func VariantGID(id string) string {
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return variantGIDPrefix + id
}

const variantFields = `
	id
	title
	sku
	price
	compareAtPrice
	inventoryQuantity
	image { url }
	product {
		title
		handle
		description
		featuredMedia { preview { image { url } } }
	}`

var (
	singleVariantQuery = fmt.Sprintf(`query getVariant($id: ID!) {
		node(id: $id) { ... on ProductVariant {%s
		} }
	}`, variantFields)

	multiVariantQuery = fmt.Sprintf(`query getVariants($ids: [ID!]!) {
		nodes(ids: $ids) { ... on ProductVariant {%s
		} }
	}`, variantFields)
)

// Doer abstracts the underlying HTTP client.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client fetches product variant details from the Shopify Admin GraphQL API.
// The shop domain is passed per call because one API instance serves every
// storefront install.
type Client struct {
	http        Doer
	accessToken string
	apiVersion  string
	logger      *slog.Logger
}

// NewClient creates an Admin API client.
func NewClient(accessToken, apiVersion string, doer Doer, logger *slog.Logger) *Client {
	return &Client{
		http:        doer,
		accessToken: accessToken,
		apiVersion:  apiVersion,
		logger:      logger,
	}
}

func (c *Client) endpoint(shop string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.apiVersion)
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data struct {
		Node  *domain.VariantDetail  `json:"node"`
		Nodes []*domain.VariantDetail `json:"nodes"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// Variant fetches enrichment for a single variant. Returns ErrNotFound when
// the id resolves to nothing (deleted or unpublished variant).
func (c *Client) Variant(ctx context.Context, shop, productVariantID string) (*domain.VariantDetail, error) {
	resp, err := c.query(ctx, shop, singleVariantQuery, map[string]any{
		"id": VariantGID(productVariantID),
	})
	if err != nil {
		return nil, err
	}
	if resp.Data.Node == nil || resp.Data.Node.ID == "" {
		return nil, apperrors.NotFound("product variant", productVariantID)
	}
	return resp.Data.Node, nil
}

// Variants fetches enrichment for multiple variants in one call. Ids that
// resolve to nothing are silently dropped from the result.
func (c *Client) Variants(ctx context.Context, shop string, productVariantIDs []string) ([]domain.VariantDetail, error) {
	if len(productVariantIDs) == 0 {
		return []domain.VariantDetail{}, nil
	}

	gids := make([]string, len(productVariantIDs))
	for i, id := range productVariantIDs {
		gids[i] = VariantGID(id)
	}

	resp, err := c.query(ctx, shop, multiVariantQuery, map[string]any{"ids": gids})
	if err != nil {
		return nil, err
	}

	details := make([]domain.VariantDetail, 0, len(resp.Data.Nodes))
	for _, n := range resp.Data.Nodes {
		if n == nil || n.ID == "" {
			continue
		}
		details = append(details, *n)
	}
	return details, nil
}

func (c *Client) query(ctx context.Context, shop, query string, variables map[string]any) (*graphqlResponse, error) {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.endpoint(shop), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: shopify admin api: %w", apperrors.ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpclient.ParseResponseError(resp, "shopify-admin")
	}

	var out graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode graphql response: %w", apperrors.ErrMalformedResponse, err)
	}

	if len(out.Errors) > 0 {
		c.logger.WarnContext(ctx, "shopify graphql errors",
			slog.String("shop", shop),
			slog.String("first_error", out.Errors[0].Message),
			slog.Int("count", len(out.Errors)),
		)
		return nil, fmt.Errorf("%w: shopify graphql: %s", apperrors.ErrServerError, out.Errors[0].Message)
	}

	return &out, nil
}
