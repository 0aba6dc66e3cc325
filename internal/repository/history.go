package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

const historyKeyPrefix = "history:"

// HistoryRepository is an append-only log of finished games, queried per room in append order.
type HistoryRepository interface {
	Append(ctx context.Context, entry entity.HistoryEntry) error
	ListByRoom(ctx context.Context, code string) ([]entity.HistoryEntry, error)
	Exists(ctx context.Context, code string) (bool, error)
}

type redisHistory struct {
	client *redis.Client
}

func NewRedisHistoryRepository(client *redis.Client) HistoryRepository {
	return &redisHistory{
		client: client,
	}
}

func historyKey(code string) string {
	return historyKeyPrefix + entity.NormalizeCode(code)
}

func (that *redisHistory) Append(ctx context.Context, entry entity.HistoryEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not marshal history entry: %w", err)
	}

	if err = that.client.RPush(ctx, historyKey(entry.RoomCode), entryJSON).Err(); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

func (that *redisHistory) ListByRoom(ctx context.Context, code string) ([]entity.HistoryEntry, error) {
	response, err := that.client.LRange(ctx, historyKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	entries := make([]entity.HistoryEntry, 0, len(response))
	for _, raw := range response {
		var entry entity.HistoryEntry
		if err = json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func (that *redisHistory) Exists(ctx context.Context, code string) (bool, error) {
	count, err := that.client.Exists(ctx, historyKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}

	return count > 0, nil
}
