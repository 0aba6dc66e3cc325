package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

type HistoryService interface {
	Record(ctx context.Context, code, winner, mark string) (entity.HistoryEntry, error)
	GetHistory(ctx context.Context, code string) ([]entity.HistoryEntry, map[string]int, error)
	HasHistory(ctx context.Context, code string) (bool, error)
}

type historyRepo interface {
	Append(ctx context.Context, entry entity.HistoryEntry) error
	ListByRoom(ctx context.Context, code string) ([]entity.HistoryEntry, error)
	Exists(ctx context.Context, code string) (bool, error)
}

type historyService struct {
	historyRepo historyRepo
	now         func() time.Time
}

func NewHistoryService(historyRepo historyRepo) HistoryService {
	return &historyService{
		historyRepo: historyRepo,
		now:         time.Now,
	}
}

// Record - appends the result of a finished game. winner is a display name or entity.ResultDraw.
func (that *historyService) Record(ctx context.Context, code, winner, mark string) (entity.HistoryEntry, error) {
	entry := entity.HistoryEntry{
		RoomCode:   entity.NormalizeCode(code),
		Winner:     winner,
		WinnerMark: mark,
		Timestamp:  that.now().UTC(),
	}

	if entry.IsDraw() {
		entry.WinnerMark = ""
	}

	if err := that.historyRepo.Append(ctx, entry); err != nil {
		return entity.HistoryEntry{}, fmt.Errorf("failed to record history: %w", err)
	}

	return entry, nil
}

// GetHistory - entries in chronological order and the wins per name.
func (that *historyService) GetHistory(ctx context.Context, code string) ([]entity.HistoryEntry, map[string]int, error) {
	entries, err := that.historyRepo.ListByRoom(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get history: %w", err)
	}

	return entries, entity.WinCounts(entries), nil
}

func (that *historyService) HasHistory(ctx context.Context, code string) (bool, error) {
	exists, err := that.historyRepo.Exists(ctx, code)
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}

	return exists, nil
}
