package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salesops_backend/platform/apperr"

	"github.com/redis/go-redis/v9"
)

// ScanStore is the scanned-product staging list for one owner (salesman).
type ScanStore interface {
	// Add stages a product unless one with the same code is already staged.
	// Returns false when the code was already present.
	Add(ctx context.Context, owner string, p StagedProduct) (bool, error)
	// List returns the staged products in insertion order.
	List(ctx context.Context, owner string) ([]StagedProduct, error)
	// Remove drops the staged product with the given code, if present.
	Remove(ctx context.Context, owner, code string) error
	// Clear drops the owner's entire staging list.
	Clear(ctx context.Context, owner string) error
}

// HandoffStore stages customer handoffs for one-shot consumption.
type HandoffStore interface {
	// Stage stores a handoff, replacing any previous one from the same source.
	Stage(ctx context.Context, owner string, h Handoff) error
	// Consume returns and clears the highest-priority staged handoff, or nil
	// when nothing is staged. A consumed handoff is never returned again.
	Consume(ctx context.Context, owner string) (*Handoff, error)
}

// RedisStore implements ScanStore and HandoffStore on Redis. Scan lists are
// kept as JSON-encoded list entries; handoffs as per-source string keys
// consumed with GETDEL so each staged value is applied exactly once.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a staging store. Keys expire after ttl so abandoned
// sessions do not accumulate.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func scanKey(owner string) string {
	return "quotation:staging:" + owner
}

func handoffKey(owner string, source HandoffSource) string {
	return fmt.Sprintf("quotation:handoff:%s:%s", owner, source)
}

// Add stages a product, deduplicating by code.
func (s *RedisStore) Add(ctx context.Context, owner string, p StagedProduct) (bool, error) {
	existing, err := s.List(ctx, owner)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Code == p.Code {
			return false, nil
		}
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return false, apperr.Wrap(apperr.KindInternal, "encode staged product", err)
	}

	key := scanKey(owner)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
	}
	return true, nil
}

// List returns all staged products in insertion order.
func (s *RedisStore) List(ctx context.Context, owner string) ([]StagedProduct, error) {
	raws, err := s.client.LRange(ctx, scanKey(owner), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
	}

	products := make([]StagedProduct, 0, len(raws))
	for _, raw := range raws {
		var p StagedProduct
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

// Remove drops the staged entry with the given code.
func (s *RedisStore) Remove(ctx context.Context, owner, code string) error {
	existing, err := s.List(ctx, owner)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Code != code {
			continue
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "encode staged product", err)
		}
		if err := s.client.LRem(ctx, scanKey(owner), 1, raw).Err(); err != nil {
			return apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
		}
		return nil
	}
	return nil
}

// Clear drops the owner's staging list.
func (s *RedisStore) Clear(ctx context.Context, owner string) error {
	if err := s.client.Del(ctx, scanKey(owner)).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
	}
	return nil
}

// Stage stores a handoff under its source key.
func (s *RedisStore) Stage(ctx context.Context, owner string, h Handoff) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "encode handoff", err)
	}
	if err := s.client.Set(ctx, handoffKey(owner, h.Source), raw, s.ttl).Err(); err != nil {
		return apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
	}
	return nil
}

// Consume returns and clears the staged handoff with the highest priority:
// visit-target first, then milestone. GETDEL guarantees the staged value is
// not reapplied on a later session open.
func (s *RedisStore) Consume(ctx context.Context, owner string) (*Handoff, error) {
	for _, source := range handoffPriority {
		raw, err := s.client.GetDel(ctx, handoffKey(owner, source)).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "staging store unavailable", err)
		}

		var h Handoff
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			continue
		}
		return &h, nil
	}
	return nil, nil
}

// Compile-time checks.
var (
	_ ScanStore    = (*RedisStore)(nil)
	_ HandoffStore = (*RedisStore)(nil)
)
