package widget

import (
	"sync"
	"time"

	"github.com/surya9490/wishlist/internal/domain"
	"github.com/surya9490/wishlist/pkg/bus"
)

// Bus topics published by the engine.
const (
	// TopicUpdated carries an Update after every confirmed state change.
	TopicUpdated = "wishlist:updated"

	// TopicToast carries a Toast for the notification channel.
	TopicToast = "wishlist:toast"

	// TopicVariantChange carries a VariantChange when a product page switches
	// the displayed variant.
	TopicVariantChange = "wishlist:variantChange"
)

// Update is the snapshot published on TopicUpdated. State and Panel are deep
// copies; subscribers may retain them without racing the engine.
type Update struct {
	// Action tags which operation produced this snapshot.
	Action ActionKind

	// State is the full canonical wishlist at publish time.
	State domain.WishlistState

	// Panel is the display projection: enrichment filtered by the active
	// search query (all of it when no query is active).
	Panel []domain.VariantDetail

	// Query is the active search query, empty when none.
	Query string

	// Count is the membership count, independent of the panel filter.
	Count int
}

// Toast is the payload published on TopicToast.
type Toast struct {
	// Kind classifies the toast: "add", "remove", "login-required", or one of
	// the error kinds ("sync-failed", "action-failed", "network-failure",
	// "malformed-response", "server-error").
	Kind    string
	Message string
}

// VariantChange is the payload published on TopicVariantChange.
type VariantChange struct {
	IconID           string
	ProductVariantID string
}

// Renderer consumes state snapshots. Implementations must not block: they run
// synchronously on the publishing goroutine.
type Renderer interface {
	Render(u Update)
}

// Attach subscribes a renderer to engine updates.
func Attach(b *bus.Bus, r Renderer) bus.Subscription {
	return b.Subscribe(TopicUpdated, func(payload any) {
		if u, ok := payload.(Update); ok {
			r.Render(u)
		}
	})
}

// IconRenderer projects membership onto wishlist icons. Each icon is
// registered with its target variant and product handle; membership is
// re-derived from the last snapshot whenever the snapshot or a target changes.
type IconRenderer struct {
	mu            sync.Mutex
	variantPolicy bool
	targets       map[string]iconTarget
	lit           map[string]bool
	last          *Update
}

type iconTarget struct {
	productVariantID string
	productHandle    string
}

// NewIconRenderer creates an icon projection. variantPolicy selects whether
// membership is derived per variant or per product handle, and must match the
// engine's identity policy.
func NewIconRenderer(variantPolicy bool) *IconRenderer {
	return &IconRenderer{
		variantPolicy: variantPolicy,
		targets:       make(map[string]iconTarget),
		lit:           make(map[string]bool),
	}
}

// RegisterIcon binds an icon to its product target.
func (r *IconRenderer) RegisterIcon(iconID, productVariantID, productHandle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets[iconID] = iconTarget{productVariantID: productVariantID, productHandle: productHandle}
	r.recomputeLocked()
}

// Retarget points an existing icon at a different variant, e.g. after the
// shopper picks another size on a product page, and re-derives its state from
// the last snapshot. Unknown icons are ignored.
func (r *IconRenderer) Retarget(iconID, productVariantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[iconID]
	if !ok {
		return
	}
	t.productVariantID = productVariantID
	r.targets[iconID] = t
	r.recomputeLocked()
}

// AttachVariantChanges subscribes the renderer to variant-change events.
func (r *IconRenderer) AttachVariantChanges(b *bus.Bus) bus.Subscription {
	return b.Subscribe(TopicVariantChange, func(payload any) {
		if vc, ok := payload.(VariantChange); ok {
			r.Retarget(vc.IconID, vc.ProductVariantID)
		}
	})
}

// Render implements Renderer.
func (r *IconRenderer) Render(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last = &u
	r.recomputeLocked()
}

func (r *IconRenderer) recomputeLocked() {
	if r.last == nil {
		return
	}
	for id, t := range r.targets {
		if r.variantPolicy {
			r.lit[id] = r.last.State.ContainsVariant(t.productVariantID)
		} else {
			r.lit[id] = r.last.State.ContainsHandle(t.productHandle)
		}
	}
}

// Wishlisted reports whether the icon is currently lit.
func (r *IconRenderer) Wishlisted(iconID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lit[iconID]
}

// Card is one rendered wishlist panel row.
type Card struct {
	ProductVariantID string
	Title            string
	VariantTitle     string
	Handle           string
	Price            string
	ImageURL         string
}

// PanelRenderer projects the filtered enrichment list into display cards.
type PanelRenderer struct {
	mu    sync.Mutex
	cards []Card
	query string
	empty bool
}

// NewPanelRenderer creates an empty panel projection.
func NewPanelRenderer() *PanelRenderer {
	return &PanelRenderer{empty: true}
}

// Render implements Renderer.
func (p *PanelRenderer) Render(u Update) {
	cards := make([]Card, 0, len(u.Panel))
	for _, d := range u.Panel {
		cards = append(cards, Card{
			ProductVariantID: d.VariantID(),
			Title:            d.Product.Title,
			VariantTitle:     d.Title,
			Handle:           d.Product.Handle,
			Price:            d.Price,
			ImageURL:         d.ImageURL(),
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.cards = cards
	p.query = u.Query
	p.empty = u.Count == 0
}

// Cards returns the current panel rows.
func (p *PanelRenderer) Cards() []Card {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// Query returns the active search query the panel is filtered by.
func (p *PanelRenderer) Query() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.query
}

// Empty reports whether the wishlist itself is empty, regardless of any
// active filter.
func (p *PanelRenderer) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.empty
}

// CounterRenderer projects the membership count, e.g. for a header badge.
type CounterRenderer struct {
	mu    sync.Mutex
	count int
}

// NewCounterRenderer creates a zeroed counter projection.
func NewCounterRenderer() *CounterRenderer {
	return &CounterRenderer{}
}

// Render implements Renderer.
func (c *CounterRenderer) Render(u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = u.Count
}

// Count returns the last rendered membership count.
func (c *CounterRenderer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// ToasterRenderer consumes toast events. A disabled toaster swallows
// everything; an expired toast reads as absent.
type ToasterRenderer struct {
	mu      sync.Mutex
	cfg     ToasterConfig
	current Toast
	shownAt time.Time
	now     func() time.Time
}

// NewToasterRenderer creates a toaster with the given configuration.
func NewToasterRenderer(cfg ToasterConfig) *ToasterRenderer {
	if cfg.Timer <= 0 {
		cfg.Timer = DefaultToasterTimer
	}
	return &ToasterRenderer{cfg: cfg, now: time.Now}
}

// AttachToasts subscribes the toaster to the toast topic.
func (t *ToasterRenderer) AttachToasts(b *bus.Bus) bus.Subscription {
	return b.Subscribe(TopicToast, func(payload any) {
		if toast, ok := payload.(Toast); ok {
			t.Show(toast)
		}
	})
}

// Show displays a toast, replacing any currently visible one.
func (t *ToasterRenderer) Show(toast Toast) {
	if !t.cfg.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = toast
	t.shownAt = t.now()
}

// Current returns the visible toast, if any.
func (t *ToasterRenderer) Current() (Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.shownAt.IsZero() || t.now().Sub(t.shownAt) >= t.cfg.Timer {
		return Toast{}, false
	}
	return t.current, true
}
