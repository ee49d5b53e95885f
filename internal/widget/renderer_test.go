package widget

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surya9490/wishlist/internal/domain"
	"github.com/surya9490/wishlist/pkg/bus"
)

func snapshot(entries []domain.WishlistEntry, data []domain.VariantDetail) Update {
	st := domain.NewState()
	st.AddEntries(entries...)
	st.AddVariantData(data...)
	return Update{
		Action: ActionLoad,
		State:  *st,
		Panel:  st.FilterVariantData(""),
		Count:  st.Count(),
	}
}

func TestIconRenderer_VariantPolicy(t *testing.T) {
	r := NewIconRenderer(true)
	r.RegisterIcon("icon-1", "111", "hat")
	r.RegisterIcon("icon-2", "999", "gloves")

	r.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, nil))

	assert.True(t, r.Wishlisted("icon-1"))
	assert.False(t, r.Wishlisted("icon-2"))
}

func TestIconRenderer_HandlePolicyLightsAllVariants(t *testing.T) {
	r := NewIconRenderer(false)
	r.RegisterIcon("icon-1", "111", "hat")
	r.RegisterIcon("icon-2", "112", "hat")

	r.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, nil))

	assert.True(t, r.Wishlisted("icon-1"))
	assert.True(t, r.Wishlisted("icon-2"))
}

func TestIconRenderer_RetargetRederivesFromLastSnapshot(t *testing.T) {
	r := NewIconRenderer(true)
	r.RegisterIcon("icon-1", "111", "hat")

	r.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, nil))
	require.True(t, r.Wishlisted("icon-1"))

	// Shopper picks a size that is not wishlisted.
	r.Retarget("icon-1", "112")
	assert.False(t, r.Wishlisted("icon-1"))

	// And back again.
	r.Retarget("icon-1", "111")
	assert.True(t, r.Wishlisted("icon-1"))

	// Unknown icons are ignored.
	r.Retarget("nope", "111")
}

func TestIconRenderer_AttachVariantChanges(t *testing.T) {
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := NewIconRenderer(true)
	r.RegisterIcon("icon-1", "111", "hat")
	r.AttachVariantChanges(b)

	r.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "112", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, nil))
	require.False(t, r.Wishlisted("icon-1"))

	b.Publish(TopicVariantChange, VariantChange{IconID: "icon-1", ProductVariantID: "112"})
	assert.True(t, r.Wishlisted("icon-1"))
}

func TestPanelRenderer_ProjectsCards(t *testing.T) {
	p := NewPanelRenderer()

	d := enrichment("gid://shopify/ProductVariant/111", "Wool Hat")
	d.Image = &domain.Image{URL: "https://cdn/v.jpg"}

	p.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, []domain.VariantDetail{d}))

	cards := p.Cards()
	require.Len(t, cards, 1)
	assert.Equal(t, "111", cards[0].ProductVariantID)
	assert.Equal(t, "Wool Hat", cards[0].Title)
	assert.Equal(t, "https://cdn/v.jpg", cards[0].ImageURL)
	assert.False(t, p.Empty())
}

func TestPanelRenderer_EmptyTracksMembershipNotFilter(t *testing.T) {
	p := NewPanelRenderer()

	u := snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", ProductHandle: "hat", Shop: "demo.myshopify.com"},
	}, []domain.VariantDetail{enrichment("111", "Wool Hat")})
	u.Panel = nil // filter matched nothing
	u.Query = "gloves"
	p.Render(u)

	assert.Empty(t, p.Cards())
	assert.Equal(t, "gloves", p.Query())
	assert.False(t, p.Empty())
}

func TestCounterRenderer(t *testing.T) {
	c := NewCounterRenderer()
	assert.Zero(t, c.Count())

	c.Render(snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", Shop: "demo.myshopify.com"},
		{ProductVariantID: "222", Shop: "demo.myshopify.com"},
	}, nil))
	assert.Equal(t, 2, c.Count())
}

func TestToasterRenderer_ShowAndExpiry(t *testing.T) {
	cfg := ToasterConfig{Enabled: true, Timer: time.Second}
	tr := NewToasterRenderer(cfg)

	now := time.Unix(1000, 0)
	tr.now = func() time.Time { return now }

	_, ok := tr.Current()
	assert.False(t, ok)

	tr.Show(Toast{Kind: "add", Message: "Product added to wishlist"})
	got, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, "add", got.Kind)

	now = now.Add(2 * time.Second)
	_, ok = tr.Current()
	assert.False(t, ok)
}

func TestToasterRenderer_DisabledSwallowsToasts(t *testing.T) {
	tr := NewToasterRenderer(ToasterConfig{Enabled: false})
	tr.Show(Toast{Kind: "add"})

	_, ok := tr.Current()
	assert.False(t, ok)
}

func TestAttach_RoutesUpdates(t *testing.T) {
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	c := NewCounterRenderer()
	sub := Attach(b, c)

	b.Publish(TopicUpdated, snapshot([]domain.WishlistEntry{
		{ProductVariantID: "111", Shop: "demo.myshopify.com"},
	}, nil))
	assert.Equal(t, 1, c.Count())

	b.Unsubscribe(sub)
	b.Publish(TopicUpdated, snapshot(nil, nil))
	assert.Equal(t, 1, c.Count())
}
