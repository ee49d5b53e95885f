package shopify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/surya9490/wishlist/pkg/errors"
)

// redirectDoer rewrites every request to the test server so the client's
// per-shop https endpoint resolves to the local listener.
type redirectDoer struct {
	base *httptest.Server
}

func (d *redirectDoer) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	out, err := http.NewRequestWithContext(ctx, req.Method, d.base.URL+req.URL.Path, req.Body)
	if err != nil {
		return nil, err
	}
	out.Header = req.Header
	return d.base.Client().Do(out)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient("test-token", "2024-10", &redirectDoer{base: srv}, logger)
}

func TestVariantGID(t *testing.T) {
	assert.Equal(t, "gid://shopify/ProductVariant/111", VariantGID("111"))
	assert.Equal(t, "gid://shopify/ProductVariant/111", VariantGID("gid://shopify/ProductVariant/111"))
}

func TestClient_Variant_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)

		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "node(id: $id)")
		assert.Equal(t, "gid://shopify/ProductVariant/111", req.Variables["id"])

		_, _ = w.Write([]byte(`{"data":{"node":{
			"id":"gid://shopify/ProductVariant/111",
			"title":"Default",
			"price":"19.99",
			"product":{"title":"Wool Hat","handle":"wool-hat"}
		}}}`))
	})

	detail, err := client.Variant(context.Background(), "demo.myshopify.com", "111")
	require.NoError(t, err)
	assert.Equal(t, "111", detail.VariantID())
	assert.Equal(t, "Wool Hat", detail.Product.Title)
}

func TestClient_Variant_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"node":null}}`))
	})

	_, err := client.Variant(context.Background(), "demo.myshopify.com", "999")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_Variants_DropsUnresolvedIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "nodes(ids: $ids)")

		_, _ = w.Write([]byte(`{"data":{"nodes":[
			{"id":"gid://shopify/ProductVariant/111","title":"Default","price":"19.99","product":{"title":"Wool Hat","handle":"wool-hat"}},
			null
		]}}`))
	})

	details, err := client.Variants(context.Background(), "demo.myshopify.com", []string{"111", "999"})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "111", details[0].VariantID())
}

func TestClient_Variants_EmptyInputSkipsCall(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	details, err := client.Variants(context.Background(), "demo.myshopify.com", nil)
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.False(t, called)
}

func TestClient_Query_GraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Invalid API key or access token"}]}`))
	})

	_, err := client.Variant(context.Background(), "demo.myshopify.com", "111")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServerError)
	assert.True(t, strings.Contains(err.Error(), "Invalid API key"))
}

func TestClient_Query_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	})

	_, err := client.Variant(context.Background(), "demo.myshopify.com", "111")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServerError)
}
