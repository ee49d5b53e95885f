package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/surya9490/wishlist/internal/domain"
	"github.com/surya9490/wishlist/pkg/database"
)

// guestKeyPrefix scopes guest wishlist slots in the shared session store.
const guestKeyPrefix = "wishlistGuest:"

// DefaultGuestTTL bounds how long an abandoned guest wishlist survives.
const DefaultGuestTTL = 14 * 24 * time.Hour

// GuestStore persists the anonymous wishlist for one browser session. Only
// membership entries are stored; display enrichment is refetched per page
// session because catalog data goes stale.
type GuestStore interface {
	// Load returns the stored entries, or an empty slice when nothing is stored.
	Load(ctx context.Context) ([]domain.WishlistEntry, error)

	// Save replaces the stored entries.
	Save(ctx context.Context, entries []domain.WishlistEntry) error

	// Clear removes the stored entries. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error
}

// RedisGuestStore keeps guest wishlists in Redis, keyed by session id with a
// TTL so abandoned sessions expire on their own.
type RedisGuestStore struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration
}

// NewRedisGuestStore creates a guest store bound to one session slot.
// A non-positive ttl falls back to DefaultGuestTTL.
func NewRedisGuestStore(client *redis.Client, sessionID string, ttl time.Duration) *RedisGuestStore {
	if ttl <= 0 {
		ttl = DefaultGuestTTL
	}
	return &RedisGuestStore{client: client, sessionID: sessionID, ttl: ttl}
}

// DialRedisGuestStore connects to Redis and returns a guest store bound to
// the given session slot.
func DialRedisGuestStore(ctx context.Context, cfg database.RedisConfig, sessionID string, ttl time.Duration) (*RedisGuestStore, error) {
	client, err := database.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial guest store: %w", err)
	}
	return NewRedisGuestStore(client, sessionID, ttl), nil
}

func (s *RedisGuestStore) key() string {
	return guestKeyPrefix + s.sessionID
}

// Load implements GuestStore.
func (s *RedisGuestStore) Load(ctx context.Context) ([]domain.WishlistEntry, error) {
	raw, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return []domain.WishlistEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load guest wishlist: %w", err)
	}

	var entries []domain.WishlistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// A corrupt slot is unrecoverable; treat it as empty rather than
		// blocking the session.
		return []domain.WishlistEntry{}, nil
	}
	return entries, nil
}

// Save implements GuestStore.
func (s *RedisGuestStore) Save(ctx context.Context, entries []domain.WishlistEntry) error {
	if entries == nil {
		entries = []domain.WishlistEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal guest wishlist: %w", err)
	}
	if err := s.client.Set(ctx, s.key(), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save guest wishlist: %w", err)
	}
	return nil
}

// Clear implements GuestStore.
func (s *RedisGuestStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("clear guest wishlist: %w", err)
	}
	return nil
}

// MemoryGuestStore is an in-process GuestStore for tests and single-node use.
type MemoryGuestStore struct {
	mu      sync.Mutex
	entries []domain.WishlistEntry
}

// NewMemoryGuestStore returns an empty in-memory guest store.
func NewMemoryGuestStore() *MemoryGuestStore {
	return &MemoryGuestStore{}
}

// Load implements GuestStore.
func (s *MemoryGuestStore) Load(_ context.Context) ([]domain.WishlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Save implements GuestStore.
func (s *MemoryGuestStore) Save(_ context.Context, entries []domain.WishlistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]domain.WishlistEntry, len(entries))
	copy(s.entries, entries)
	return nil
}

// Clear implements GuestStore.
func (s *MemoryGuestStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return nil
}
