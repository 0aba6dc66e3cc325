package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

const roomKeyPrefix = "room:"

// RoomRepository keeps the latest snapshot of every live room so a restarted
// process can bring rooms back on first lookup.
type RoomRepository interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
}

type dbRoom struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomRepository - snapshots of rooms without Persist expire after ttl, zero keeps them forever.
func NewRoomRepository(client *redis.Client, ttl time.Duration) RoomRepository {
	return &dbRoom{
		client: client,
		ttl:    ttl,
	}
}

func roomKey(code string) string {
	return roomKeyPrefix + entity.NormalizeCode(code)
}

func (that *dbRoom) CreateOrUpdate(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("could not marshal room: %w", err)
	}

	ttl := that.ttl
	if room.Persist {
		ttl = 0
	}

	if err = that.client.Set(ctx, roomKey(room.Code), roomJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by code: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (that *dbRoom) DeleteByCode(ctx context.Context, code string) error {
	deleted, err := that.client.Del(ctx, roomKey(code)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete room by code: %w", err)
	}

	if deleted == 0 {
		return apperror.ErrRoomNotFound
	}

	return nil
}
