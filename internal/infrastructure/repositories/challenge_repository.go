package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/backoffice/domain"
)

// ChallengeRepositoryImpl implements domain.ChallengeStore using Redis.
// Keys are "{feature}:{id}"; expiry is the key TTL.
type ChallengeRepositoryImpl struct {
	client *redis.Client
}

// NewChallengeRepository creates a new challenge repository
func NewChallengeRepository(client *redis.Client) *ChallengeRepositoryImpl {
	return &ChallengeRepositoryImpl{client: client}
}

func challengeKey(feature, id string) string {
	return feature + ":" + id
}

// Create implements domain.ChallengeStore
func (r *ChallengeRepositoryImpl) Create(ctx context.Context, challenge *domain.Challenge, ttl time.Duration) error {
	data, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	ok, err := r.client.SetNX(ctx, challengeKey(challenge.Feature, challenge.ID), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}
	if !ok {
		return fmt.Errorf("challenge %s already exists", challenge.ID)
	}
	return nil
}

// Find implements domain.ChallengeStore
func (r *ChallengeRepositoryImpl) Find(ctx context.Context, feature, id string) (*domain.Challenge, error) {
	data, err := r.client.Get(ctx, challengeKey(feature, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge domain.Challenge
	if err := json.Unmarshal(data, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	return &challenge, nil
}

// MarkUsed implements domain.ChallengeStore. The read, check and write run under
// WATCH so that of two concurrent callers only one sees IsUsed=false and wins.
func (r *ChallengeRepositoryImpl) MarkUsed(ctx context.Context, feature, id string) (bool, error) {
	key := challengeKey(feature, id)
	marked := false

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var challenge domain.Challenge
		if err := json.Unmarshal(data, &challenge); err != nil {
			return fmt.Errorf("failed to unmarshal challenge: %w", err)
		}
		if challenge.IsUsed {
			return nil
		}

		ttl, err := tx.PTTL(ctx, key).Result()
		if err != nil {
			return err
		}
		if ttl <= 0 {
			// expired between GET and PTTL, or has no expiry which we never write
			return nil
		}

		challenge.IsUsed = true
		out, err := json.Marshal(&challenge)
		if err != nil {
			return fmt.Errorf("failed to marshal challenge: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		marked = true
		return nil
	}

	err := r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark challenge used: %w", err)
	}
	return marked, nil
}

// Delete implements domain.ChallengeStore
func (r *ChallengeRepositoryImpl) Delete(ctx context.Context, feature, id string) error {
	return r.client.Del(ctx, challengeKey(feature, id)).Err()
}

var _ domain.ChallengeStore = (*ChallengeRepositoryImpl)(nil)
