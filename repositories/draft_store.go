package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/Dosada05/worldcup-predictor/brackets"
	"github.com/redis/go-redis/v9"
)

var ErrDraftNotFound = errors.New("draft not found")

// DraftStore keeps the in-progress bracket of each user as an opaque
// key-value save.
type DraftStore interface {
	Load(ctx context.Context, userID int) (brackets.Draft, error)
	Save(ctx context.Context, userID int, draft brackets.Draft) error
	Delete(ctx context.Context, userID int) error
}

type memoryDraftStore struct {
	mu     sync.RWMutex
	drafts map[int][]byte
}

// NewMemoryDraftStore is used when Redis is not configured. Drafts are lost on
// restart.
func NewMemoryDraftStore() DraftStore {
	return &memoryDraftStore{drafts: make(map[int][]byte)}
}

func (s *memoryDraftStore) Load(_ context.Context, userID int) (brackets.Draft, error) {
	s.mu.RLock()
	raw, ok := s.drafts[userID]
	s.mu.RUnlock()
	if !ok {
		return brackets.Draft{}, ErrDraftNotFound
	}
	return decodeDraft(raw)
}

func (s *memoryDraftStore) Save(_ context.Context, userID int, draft brackets.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft for user %d: %w", userID, err)
	}
	s.mu.Lock()
	s.drafts[userID] = raw
	s.mu.Unlock()
	return nil
}

func (s *memoryDraftStore) Delete(_ context.Context, userID int) error {
	s.mu.Lock()
	delete(s.drafts, userID)
	s.mu.Unlock()
	return nil
}

const draftKeyPrefix = "wc26:draft:"

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDraftStore stores drafts as JSON strings. A zero ttl keeps drafts
// until they are deleted.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) DraftStore {
	return &redisDraftStore{client: client, ttl: ttl}
}

func draftKey(userID int) string {
	return draftKeyPrefix + strconv.Itoa(userID)
}

func (s *redisDraftStore) Load(ctx context.Context, userID int) (brackets.Draft, error) {
	raw, err := s.client.Get(ctx, draftKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return brackets.Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return brackets.Draft{}, fmt.Errorf("failed to load draft for user %d: %w", userID, err)
	}
	return decodeDraft(raw)
}

func (s *redisDraftStore) Save(ctx context.Context, userID int, draft brackets.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft for user %d: %w", userID, err)
	}
	if err := s.client.Set(ctx, draftKey(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save draft for user %d: %w", userID, err)
	}
	return nil
}

func (s *redisDraftStore) Delete(ctx context.Context, userID int) error {
	if err := s.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete draft for user %d: %w", userID, err)
	}
	return nil
}

func decodeDraft(raw []byte) (brackets.Draft, error) {
	var d brackets.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return brackets.Draft{}, fmt.Errorf("failed to decode draft: %w", err)
	}
	return d, nil
}
