package widget

import "time"

// Default tuning values for the widget engine.
const (
	// DefaultDebounceWindow is the quiet period applied to repeated icon
	// clicks and search keystrokes before a network call fires.
	DefaultDebounceWindow = 300 * time.Millisecond

	// DefaultToasterTimer is how long a toast stays visible.
	DefaultToasterTimer = 5 * time.Second
)

// ToasterMessages holds the user-facing toast texts.
type ToasterMessages struct {
	Add    string
	Remove string
	Error  string
}

// ToasterConfig controls the toast notification channel.
type ToasterConfig struct {
	Enabled  bool
	Timer    time.Duration
	Messages ToasterMessages
}

// Options configures a widget engine instance. It replaces the scattered
// per-page globals of older storefront scripts: everything the engine needs is
// passed explicitly at construction and never mutated afterwards.
type Options struct {
	// AppURL is the base URL of the wishlist API.
	AppURL string

	// Shop is the storefront domain, e.g. "demo.myshopify.com".
	Shop string

	// CustomerID identifies the logged-in shopper. Empty means guest session.
	CustomerID string

	// SessionID scopes the guest store slot to one browser session.
	SessionID string

	// GuestWishlist allows anonymous shoppers to build a local wishlist.
	// When false, guest clicks produce a login-required toast instead.
	GuestWishlist bool

	// VariantChange selects the membership identity policy: variant id when
	// true, product handle when false. This changes identity semantics
	// system-wide, so it must match the storefront theme's icon markup.
	VariantChange bool

	// DebounceWindow is the click/keystroke coalescing window.
	// Zero means DefaultDebounceWindow.
	DebounceWindow time.Duration

	Toaster ToasterConfig
}

// DefaultOptions returns the documented defaults for a shop.
func DefaultOptions(shop string) Options {
	return Options{
		Shop:           shop,
		GuestWishlist:  true,
		VariantChange:  true,
		DebounceWindow: DefaultDebounceWindow,
		Toaster: ToasterConfig{
			Enabled: true,
			Timer:   DefaultToasterTimer,
			Messages: ToasterMessages{
				Add:    "Product added to wishlist",
				Remove: "Product removed from wishlist",
				Error:  "Failed to update wishlist",
			},
		},
	}
}

// withDefaults fills zero-valued tuning fields.
func (o Options) withDefaults() Options {
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	if o.Toaster.Timer <= 0 {
		o.Toaster.Timer = DefaultToasterTimer
	}
	if o.Toaster.Messages.Add == "" {
		o.Toaster.Messages.Add = "Product added to wishlist"
	}
	if o.Toaster.Messages.Remove == "" {
		o.Toaster.Messages.Remove = "Product removed from wishlist"
	}
	if o.Toaster.Messages.Error == "" {
		o.Toaster.Messages.Error = "Failed to update wishlist"
	}
	return o
}
