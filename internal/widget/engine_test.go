package widget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/surya9490/wishlist/internal/domain"
	"github.com/surya9490/wishlist/pkg/bus"
	apperrors "github.com/surya9490/wishlist/pkg/errors"
)

const (
	testShop     = "demo.myshopify.com"
	testCustomer = "cust-1"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) FetchAll(ctx context.Context, customerID, shop string) (*domain.SyncPayload, error) {
	args := m.Called(ctx, customerID, shop)
	if p, ok := args.Get(0).(*domain.SyncPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemote) Mutate(ctx context.Context, kind ActionKind, entry domain.WishlistEntry) (*domain.SyncPayload, error) {
	args := m.Called(ctx, kind, entry)
	if p, ok := args.Get(0).(*domain.SyncPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemote) BulkAdd(ctx context.Context, customerID, shop string, ids []string) (*domain.SyncPayload, error) {
	args := m.Called(ctx, customerID, shop, ids)
	if p, ok := args.Get(0).(*domain.SyncPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemote) Search(ctx context.Context, customerID, shop, query string) (*domain.SyncPayload, error) {
	args := m.Called(ctx, customerID, shop, query)
	if p, ok := args.Get(0).(*domain.SyncPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRemote) Enrich(ctx context.Context, shop string, ids []string) (*domain.SyncPayload, error) {
	args := m.Called(ctx, shop, ids)
	if p, ok := args.Get(0).(*domain.SyncPayload); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// recorder captures everything the engine publishes.
type recorder struct {
	mu      sync.Mutex
	updates []Update
	toasts  []Toast
}

func (r *recorder) attach(b *bus.Bus) {
	b.Subscribe(TopicUpdated, func(p any) {
		if u, ok := p.(Update); ok {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
		}
	})
	b.Subscribe(TopicToast, func(p any) {
		if t, ok := p.(Toast); ok {
			r.mu.Lock()
			r.toasts = append(r.toasts, t)
			r.mu.Unlock()
		}
	})
}

func (r *recorder) lastUpdate() (Update, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return Update{}, false
	}
	return r.updates[len(r.updates)-1], true
}

func (r *recorder) toastKinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]string, len(r.toasts))
	for i, t := range r.toasts {
		kinds[i] = t.Kind
	}
	return kinds
}

func (r *recorder) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

type engineFixture struct {
	engine *Engine
	remote *mockRemote
	guest  *MemoryGuestStore
	rec    *recorder
}

// state returns the engine state as a pointer so the pointer-receiver
// helpers on domain.WishlistState can be called on it.
func (f *engineFixture) state() *domain.WishlistState {
	st := f.engine.State()
	return &st
}

func newFixture(t *testing.T, customize func(*Options)) *engineFixture {
	t.Helper()

	opts := DefaultOptions(testShop)
	opts.DebounceWindow = 15 * time.Millisecond
	if customize != nil {
		customize(&opts)
	}

	remote := &mockRemote{}
	guest := NewMemoryGuestStore()
	b := bus.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	rec := &recorder{}
	rec.attach(b)

	e := New(opts, guest, remote, b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(e.Close)

	return &engineFixture{engine: e, remote: remote, guest: guest, rec: rec}
}

func asCustomer(o *Options) { o.CustomerID = testCustomer }

func guestEntry(id, handle string) domain.WishlistEntry {
	return domain.WishlistEntry{ProductVariantID: id, ProductHandle: handle, Shop: testShop}
}

func customerEntry(id, handle string) domain.WishlistEntry {
	e := guestEntry(id, handle)
	e.CustomerID = testCustomer
	return e
}

func enrichment(id, title string) domain.VariantDetail {
	return domain.VariantDetail{
		ID:      id,
		Title:   "Default",
		Price:   "19.99",
		Product: domain.ProductInfo{Title: title, Handle: "p-" + id},
	}
}

func waitActions(t *testing.T, fx *engineFixture, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return fx.rec.updateCount() >= want
	}, time.Second, 5*time.Millisecond)
}

func TestReconcile_CustomerMergesGuestAndClearsStore(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	// One guest entry overlaps the server wishlist, one is new.
	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{
		guestEntry("111", "hat"),
		guestEntry("333", "socks"),
	}))

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).Return(&domain.SyncPayload{
		Wishlisted:  []domain.WishlistEntry{customerEntry("111", "hat")},
		VariantData: []domain.VariantDetail{enrichment("111", "Hat")},
	}, nil).Once()
	fx.remote.On("BulkAdd", mock.Anything, testCustomer, testShop, []string{"333"}).Return(&domain.SyncPayload{
		Wishlisted:  []domain.WishlistEntry{customerEntry("333", "socks")},
		VariantData: []domain.VariantDetail{enrichment("333", "Socks")},
	}, nil).Once()

	state := fx.engine.Reconcile(ctx)

	assert.Equal(t, 2, state.Count())
	assert.True(t, state.ContainsVariant("111"))
	assert.True(t, state.ContainsVariant("333"))

	// Merge succeeded, so the guest slot is gone.
	left, err := fx.guest.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	u, ok := fx.rec.lastUpdate()
	require.True(t, ok)
	assert.Equal(t, ActionLoad, u.Action)
	assert.Equal(t, 2, u.Count)

	fx.remote.AssertExpectations(t)
}

func TestReconcile_SecondCallOnlyRepublishes(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()

	first := fx.engine.Reconcile(ctx)
	second := fx.engine.Reconcile(ctx)

	assert.Equal(t, first.Count(), second.Count())
	assert.Equal(t, 2, fx.rec.updateCount())
	fx.remote.AssertExpectations(t)
	fx.remote.AssertNotCalled(t, "BulkAdd", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_AllGuestEntriesDuplicate_VacuousMergeClearsStore(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{guestEntry("111", "hat")}))

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).Return(&domain.SyncPayload{
		Wishlisted: []domain.WishlistEntry{customerEntry("111", "hat")},
	}, nil).Once()

	state := fx.engine.Reconcile(ctx)

	assert.Equal(t, 1, state.Count())
	left, err := fx.guest.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	fx.remote.AssertNotCalled(t, "BulkAdd", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_BulkAddFailurePreservesGuestStore(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	stored := []domain.WishlistEntry{guestEntry("333", "socks")}
	require.NoError(t, fx.guest.Save(ctx, stored))

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.remote.On("BulkAdd", mock.Anything, testCustomer, testShop, []string{"333"}).
		Return(nil, apperrors.ErrNetworkFailure).Once()

	state := fx.engine.Reconcile(ctx)

	// Server-side state only; the unmerged entries wait for the next session.
	assert.Zero(t, state.Count())
	left, err := fx.guest.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, stored, left)

	assert.Contains(t, fx.rec.toastKinds(), "sync-failed")
	fx.remote.AssertExpectations(t)
}

func TestReconcile_GuestRestoresAndHydrates(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{guestEntry("111", "hat")}))

	fx.remote.On("Enrich", mock.Anything, testShop, []string{"111"}).Return(&domain.SyncPayload{
		VariantData: []domain.VariantDetail{enrichment("111", "Hat")},
	}, nil).Once()

	state := fx.engine.Reconcile(ctx)

	assert.Equal(t, 1, state.Count())
	require.Len(t, state.VariantData, 1)
	assert.Equal(t, "Hat", state.VariantData[0].Product.Title)

	fx.remote.AssertNotCalled(t, "FetchAll", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconcile_GuestEnrichmentFailureKeepsMembership(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{guestEntry("111", "hat")}))

	fx.remote.On("Enrich", mock.Anything, testShop, []string{"111"}).
		Return(nil, apperrors.ErrNetworkFailure).Once()

	state := fx.engine.Reconcile(ctx)

	assert.Equal(t, 1, state.Count())
	assert.Empty(t, state.VariantData)
	assert.Contains(t, fx.rec.toastKinds(), "network-failure")
}

func TestToggle_RapidClicksCoalesceToOneCall(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Mutate", mock.Anything, ActionAdd, customerEntry("111", "hat")).
		Return(&domain.SyncPayload{}, nil).Once()

	for i := 0; i < 5; i++ {
		fx.engine.Toggle(ctx, "111", "hat")
	}

	waitActions(t, fx, 2) // load + one settled add
	time.Sleep(40 * time.Millisecond)

	fx.remote.AssertNumberOfCalls(t, "Mutate", 1)
	assert.True(t, fx.state().ContainsVariant("111"))
}

func TestToggle_AddThenRemoveReturnsToOriginalState(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Mutate", mock.Anything, ActionAdd, customerEntry("111", "hat")).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.remote.On("Mutate", mock.Anything, ActionRemove, customerEntry("111", "hat")).
		Return(&domain.SyncPayload{}, nil).Once()

	fx.engine.Toggle(ctx, "111", "hat")
	waitActions(t, fx, 2)
	require.True(t, fx.state().ContainsVariant("111"))

	fx.engine.Toggle(ctx, "111", "hat")
	waitActions(t, fx, 3)

	assert.False(t, fx.state().ContainsVariant("111"))
	assert.Zero(t, fx.state().Count())
	assert.Equal(t, []string{"add", "remove"}, fx.rec.toastKinds())
	fx.remote.AssertExpectations(t)
}

func TestToggle_GuestAddUsesFetchAndPersists(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.engine.Reconcile(ctx)

	fx.remote.On("Mutate", mock.Anything, ActionFetch, guestEntry("111", "hat")).Return(&domain.SyncPayload{
		VariantData: []domain.VariantDetail{enrichment("111", "Hat")},
	}, nil).Once()

	fx.engine.Toggle(ctx, "111", "hat")
	waitActions(t, fx, 2)

	state := fx.engine.State()
	assert.True(t, state.ContainsVariant("111"))
	require.Len(t, state.VariantData, 1)

	stored, err := fx.guest.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "111", stored[0].ProductVariantID)
}

func TestToggle_GuestRemoveIsPurelyLocal(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{guestEntry("111", "hat")}))
	fx.remote.On("Enrich", mock.Anything, testShop, []string{"111"}).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.engine.Toggle(ctx, "111", "hat")
	waitActions(t, fx, 2)

	assert.Zero(t, fx.state().Count())
	stored, err := fx.guest.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// The removal never left the process.
	fx.remote.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggle_FailedAddLeavesStateUntouched(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Mutate", mock.Anything, ActionAdd, customerEntry("111", "hat")).
		Return(nil, errors.New("downstream exploded")).Once()

	fx.engine.Toggle(ctx, "111", "hat")

	require.Eventually(t, func() bool {
		return len(fx.rec.toastKinds()) > 0
	}, time.Second, 5*time.Millisecond)

	assert.Zero(t, fx.state().Count())
	assert.Contains(t, fx.rec.toastKinds(), "action-failed")
	// No update publish beyond the initial load.
	assert.Equal(t, 1, fx.rec.updateCount())
}

func TestToggle_GuestDisabledAsksForLogin(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.GuestWishlist = false })
	ctx := context.Background()

	fx.engine.Reconcile(ctx)
	fx.engine.Toggle(ctx, "111", "hat")

	time.Sleep(40 * time.Millisecond)
	assert.Contains(t, fx.rec.toastKinds(), "login-required")
	fx.remote.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggle_HandlePolicyRemovesWholeProduct(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.VariantChange = false })
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{
		guestEntry("111", "hat"),
		guestEntry("112", "hat"),
	}))
	fx.remote.On("Enrich", mock.Anything, testShop, []string{"111", "112"}).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	// Toggling any variant of the product removes every variant of it.
	fx.engine.Toggle(ctx, "112", "hat")
	waitActions(t, fx, 2)

	assert.Zero(t, fx.state().Count())
}

func TestSearch_FiltersPanelWithoutTouchingMembership(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).Return(&domain.SyncPayload{
		Wishlisted: []domain.WishlistEntry{
			customerEntry("111", "hat"),
			customerEntry("222", "scarf"),
		},
		VariantData: []domain.VariantDetail{
			enrichment("111", "Wool Hat"),
			enrichment("222", "Silk Scarf"),
		},
	}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Search", mock.Anything, testCustomer, testShop, "wool").
		Return(&domain.SyncPayload{
			VariantData: []domain.VariantDetail{enrichment("111", "Wool Hat")},
		}, nil).Once()

	fx.engine.Search(ctx, "wool")
	waitActions(t, fx, 2)

	u, _ := fx.rec.lastUpdate()
	require.Len(t, u.Panel, 1)
	assert.Equal(t, "Wool Hat", u.Panel[0].Product.Title)
	assert.Equal(t, 2, u.Count)
	assert.Equal(t, 2, fx.state().Count())

	// Clearing the query restores the full panel.
	fx.engine.Search(ctx, "")
	waitActions(t, fx, 3)

	u, _ = fx.rec.lastUpdate()
	assert.Len(t, u.Panel, 2)
	assert.Equal(t, 2, fx.state().Count())
	fx.remote.AssertNotCalled(t, "Mutate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_KeystrokesCoalesce(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Search", mock.Anything, testCustomer, testShop, "wool").
		Return(&domain.SyncPayload{}, nil).Once()

	for _, q := range []string{"w", "wo", "woo", "wool"} {
		fx.engine.Search(ctx, q)
	}
	waitActions(t, fx, 2)
	time.Sleep(40 * time.Millisecond)

	fx.remote.AssertNumberOfCalls(t, "Search", 1)
}

func TestSearch_GuestFiltersLocally(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, fx.guest.Save(ctx, []domain.WishlistEntry{
		guestEntry("111", "hat"),
		guestEntry("222", "scarf"),
	}))
	fx.remote.On("Enrich", mock.Anything, testShop, []string{"111", "222"}).
		Return(&domain.SyncPayload{
			VariantData: []domain.VariantDetail{
				enrichment("111", "Wool Hat"),
				enrichment("222", "Silk Scarf"),
			},
		}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.engine.Search(ctx, "scarf")
	waitActions(t, fx, 2)

	u, _ := fx.rec.lastUpdate()
	require.Len(t, u.Panel, 1)
	assert.Equal(t, "Silk Scarf", u.Panel[0].Product.Title)
	fx.remote.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearch_RemoveWhileFilteredUpdatesPanel(t *testing.T) {
	fx := newFixture(t, asCustomer)
	ctx := context.Background()

	fx.remote.On("FetchAll", mock.Anything, testCustomer, testShop).Return(&domain.SyncPayload{
		Wishlisted: []domain.WishlistEntry{
			customerEntry("111", "hat"),
			customerEntry("333", "socks"),
		},
		VariantData: []domain.VariantDetail{
			enrichment("111", "Wool Hat"),
			enrichment("333", "Woolly Socks"),
		},
	}, nil).Once()
	fx.engine.Reconcile(ctx)

	fx.remote.On("Search", mock.Anything, testCustomer, testShop, "wool").
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Search(ctx, "wool")
	waitActions(t, fx, 2)

	u, _ := fx.rec.lastUpdate()
	require.Len(t, u.Panel, 2)

	fx.remote.On("Mutate", mock.Anything, ActionRemove, customerEntry("111", "hat")).
		Return(&domain.SyncPayload{}, nil).Once()
	fx.engine.Toggle(ctx, "111", "hat")
	waitActions(t, fx, 3)

	// The removed card disappears from the still-filtered view.
	u, _ = fx.rec.lastUpdate()
	assert.Equal(t, "wool", u.Query)
	require.Len(t, u.Panel, 1)
	assert.Equal(t, "Woolly Socks", u.Panel[0].Product.Title)
}

func TestHandleAction_ViewRepublishesWithoutNetwork(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	fx.engine.Reconcile(ctx)
	fx.engine.HandleAction(ctx, Action{Kind: ActionView})

	assert.Equal(t, 2, fx.rec.updateCount())
	u, _ := fx.rec.lastUpdate()
	assert.Equal(t, ActionView, u.Action)
}
