package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

type memoryHistory struct {
	mu      sync.RWMutex
	entries map[string][]entity.HistoryEntry
}

// NewMemoryHistoryRepository - process local log, lost on restart.
func NewMemoryHistoryRepository() HistoryRepository {
	return &memoryHistory{
		entries: make(map[string][]entity.HistoryEntry),
	}
}

func (that *memoryHistory) Append(_ context.Context, entry entity.HistoryEntry) error {
	code := entity.NormalizeCode(entry.RoomCode)

	that.mu.Lock()
	defer that.mu.Unlock()

	that.entries[code] = append(that.entries[code], entry)

	return nil
}

func (that *memoryHistory) ListByRoom(_ context.Context, code string) ([]entity.HistoryEntry, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entries := that.entries[entity.NormalizeCode(code)]

	return append(make([]entity.HistoryEntry, 0, len(entries)), entries...), nil
}

func (that *memoryHistory) Exists(_ context.Context, code string) (bool, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.entries[entity.NormalizeCode(code)]) > 0, nil
}
