package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/you/backoffice/domain"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func newTestChallenge(id string) *domain.Challenge {
	return &domain.Challenge{
		ID:         id,
		Feature:    domain.FeatureDematFreeze,
		UserID:     7,
		Identifier: "trader@example.com",
		Payload:    json.RawMessage(`{"demat_account_id":3,"action":"freeze"}`),
		CreatedAt:  time.Now(),
	}
}

func TestChallengeRepositoryImpl_Create(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewChallengeRepository(client)
	ctx := context.Background()

	challenge := newTestChallenge("c1")
	if err := repo.Create(ctx, challenge, 10*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	key := "demat-freeze:c1"
	if client.Exists(ctx, key).Val() != 1 {
		t.Fatal("expected challenge to exist in Redis")
	}
	ttl := client.TTL(ctx, key).Val()
	if ttl < 10*time.Minute-time.Second || ttl > 10*time.Minute {
		t.Errorf("expected TTL around 10m, got %v", ttl)
	}

	if err := repo.Create(ctx, challenge, time.Minute); err == nil {
		t.Error("expected duplicate id to be rejected")
	}
}

func TestChallengeRepositoryImpl_Find(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, repo *ChallengeRepositoryImpl, mr *miniredis.Miniredis)
		expectedError error
	}{
		{
			name: "existing challenge",
			setup: func(t *testing.T, repo *ChallengeRepositoryImpl, mr *miniredis.Miniredis) {
				if err := repo.Create(context.Background(), newTestChallenge("c1"), time.Minute); err != nil {
					t.Fatal(err)
				}
			},
		},
		{
			name:          "missing challenge",
			setup:         func(t *testing.T, repo *ChallengeRepositoryImpl, mr *miniredis.Miniredis) {},
			expectedError: domain.ErrSessionInvalid,
		},
		{
			name: "expired challenge",
			setup: func(t *testing.T, repo *ChallengeRepositoryImpl, mr *miniredis.Miniredis) {
				if err := repo.Create(context.Background(), newTestChallenge("c1"), time.Minute); err != nil {
					t.Fatal(err)
				}
				mr.FastForward(2 * time.Minute)
			},
			expectedError: domain.ErrSessionInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mr := setupTestRedis(t)
			repo := NewChallengeRepository(client)
			tt.setup(t, repo, mr)

			got, err := repo.Find(context.Background(), domain.FeatureDematFreeze, "c1")
			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.UserID != 7 || got.Identifier != "trader@example.com" || got.IsUsed {
				t.Errorf("unexpected challenge %+v", got)
			}
			if string(got.Payload) != `{"demat_account_id":3,"action":"freeze"}` {
				t.Errorf("payload not preserved: %s", got.Payload)
			}
		})
	}
}

func TestChallengeRepositoryImpl_MarkUsed(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewChallengeRepository(client)
	ctx := context.Background()

	if err := repo.Create(ctx, newTestChallenge("c1"), 10*time.Minute); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(4 * time.Minute)

	marked, err := repo.MarkUsed(ctx, domain.FeatureDematFreeze, "c1")
	if err != nil || !marked {
		t.Fatalf("expected first mark to win, got %v %v", marked, err)
	}

	got, err := repo.Find(ctx, domain.FeatureDematFreeze, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsUsed {
		t.Error("expected IsUsed to be persisted")
	}

	ttl := client.TTL(ctx, "demat-freeze:c1").Val()
	if ttl > 6*time.Minute || ttl < 5*time.Minute {
		t.Errorf("expected remaining TTL to be kept, got %v", ttl)
	}

	marked, err = repo.MarkUsed(ctx, domain.FeatureDematFreeze, "c1")
	if err != nil || marked {
		t.Errorf("expected second mark to lose, got %v %v", marked, err)
	}

	marked, err = repo.MarkUsed(ctx, domain.FeatureDematFreeze, "missing")
	if err != nil || marked {
		t.Errorf("expected missing challenge to not be marked, got %v %v", marked, err)
	}
}

func TestChallengeRepositoryImpl_MarkUsedConcurrent(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewChallengeRepository(client)
	ctx := context.Background()

	if err := repo.Create(ctx, newTestChallenge("c1"), time.Minute); err != nil {
		t.Fatal(err)
	}

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkUsed(ctx, domain.FeatureDematFreeze, "c1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly one winner, got %d", wins)
	}
}

func TestChallengeRepositoryImpl_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewChallengeRepository(client)
	ctx := context.Background()

	if err := repo.Create(ctx, newTestChallenge("c1"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, domain.FeatureDematFreeze, "c1"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Find(ctx, domain.FeatureDematFreeze, "c1"); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid after delete, got %v", err)
	}
}
