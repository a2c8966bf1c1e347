package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/redis/go-redis/v9"
	"time"
)

// RedisStore keeps drafts in Redis so they survive restarts and are shared between replicas.
// Redis drops a draft once its TTL passes, which surfaces as ErrDraftNotFound; ErrDraftExpired is
// only returned when the stored expiry has passed but the key has not been evicted yet.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	opts   options
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration, opts ...Option) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		opts:   buildOptions(opts),
	}
}

func draftKey(requesterId uint64) string {
	return fmt.Sprintf("draft:%d", requesterId)
}

func submissionRedisKey(requesterId uint64, key string) string {
	return fmt.Sprintf("submission:%d:%s", requesterId, key)
}

func (s *RedisStore) decode(data string) (model.Draft, error) {
	var draft model.Draft
	if err := json.Unmarshal([]byte(data), &draft); err != nil {
		return model.Draft{}, fmt.Errorf("decode draft: %w", err)
	}

	if draft.Expired(s.opts.now()) {
		return model.Draft{}, ErrDraftExpired
	}

	return draft, nil
}

func (s *RedisStore) Get(ctx context.Context, requesterId uint64) (model.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(requesterId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Draft{}, ErrDraftNotFound
		}

		return model.Draft{}, err
	}

	draft, err := s.decode(data)
	if errors.Is(err, ErrDraftExpired) {
		if delErr := s.client.Del(ctx, draftKey(requesterId)).Err(); delErr != nil {
			return model.Draft{}, errors.Join(err, fmt.Errorf("evict expired draft: %w", delErr))
		}
	}

	return draft, err
}

func (s *RedisStore) Put(ctx context.Context, draft model.Draft) (model.Draft, error) {
	draft = stamp(draft, s.opts.now(), s.ttl)

	data, err := json.Marshal(draft)
	if err != nil {
		return model.Draft{}, err
	}

	if err := s.client.Set(ctx, draftKey(draft.RequesterId), data, s.ttl).Err(); err != nil {
		return model.Draft{}, err
	}

	return draft, nil
}

func (s *RedisStore) PutIfAbsent(ctx context.Context, draft model.Draft) (bool, error) {
	draft = stamp(draft, s.opts.now(), s.ttl)

	data, err := json.Marshal(draft)
	if err != nil {
		return false, err
	}

	return s.client.SetNX(ctx, draftKey(draft.RequesterId), data, s.ttl).Result()
}

func (s *RedisStore) Clear(ctx context.Context, requesterId uint64) error {
	return s.client.Del(ctx, draftKey(requesterId)).Err()
}

func (s *RedisStore) Take(ctx context.Context, requesterId uint64) (model.Draft, error) {
	data, err := s.client.GetDel(ctx, draftKey(requesterId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Draft{}, ErrDraftNotFound
		}

		return model.Draft{}, err
	}

	return s.decode(data)
}

func (s *RedisStore) RememberSubmission(ctx context.Context, requesterId uint64, key string, ref model.TicketRef) error {
	data, err := json.Marshal(ref)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, submissionRedisKey(requesterId, key), data, s.opts.submissionTTL).Err()
}

func (s *RedisStore) Submission(ctx context.Context, requesterId uint64, key string) (model.TicketRef, bool, error) {
	data, err := s.client.Get(ctx, submissionRedisKey(requesterId, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.TicketRef{}, false, nil
		}

		return model.TicketRef{}, false, err
	}

	var ref model.TicketRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return model.TicketRef{}, false, err
	}

	return ref, true, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
