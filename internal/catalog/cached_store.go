package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

const defaultSnapshotTTL = 5 * time.Minute

// CachedStore keeps per-org snapshots in Redis in front of another Store.
// Writes go to the underlying store and drop the cached snapshot.
type CachedStore struct {
	next   Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedStore wraps next with a Redis snapshot cache.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if next == nil || client == nil {
		panic("catalog: cached store needs a backing store and redis client")
	}
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{next: next, redis: client, ttl: ttl, logger: logger}
}

func snapshotKey(orgID string) string {
	return fmt.Sprintf("catalog:snapshot:%s", orgID)
}

// Snapshot serves from Redis when possible. Cache failures fall through to the
// backing store.
func (s *CachedStore) Snapshot(ctx context.Context, orgID string) (*Snapshot, error) {
	if orgID == "" {
		return nil, ErrMissingOrgID
	}
	data, err := s.redis.Get(ctx, snapshotKey(orgID)).Bytes()
	switch {
	case err == nil:
		var snap Snapshot
		if jsonErr := json.Unmarshal(data, &snap); jsonErr == nil {
			return &snap, nil
		}
		s.logger.Warn("catalog: discarding corrupt cached snapshot", "org_id", orgID)
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("catalog: snapshot cache read failed", "org_id", orgID, "error", err)
	}

	snap, err := s.next.Snapshot(ctx, orgID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("catalog: snapshot not cacheable", "org_id", orgID, "error", err)
		return snap, nil
	}
	if err := s.redis.Set(ctx, snapshotKey(orgID), payload, s.ttl).Err(); err != nil {
		s.logger.Warn("catalog: snapshot cache write failed", "org_id", orgID, "error", err)
	}
	return snap, nil
}

// CreateItem writes through and invalidates the org snapshot.
func (s *CachedStore) CreateItem(ctx context.Context, draft ItemDraft) (*Item, error) {
	item, err := s.next.CreateItem(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, draft.OrgID)
	return item, nil
}

// CreateCategory writes through and invalidates the org snapshot.
func (s *CachedStore) CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error) {
	cat, err := s.next.CreateCategory(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, draft.OrgID)
	return cat, nil
}

func (s *CachedStore) invalidate(ctx context.Context, orgID string) {
	if err := s.redis.Del(ctx, snapshotKey(orgID)).Err(); err != nil {
		s.logger.Warn("catalog: snapshot cache invalidation failed", "org_id", orgID, "error", err)
	}
}
