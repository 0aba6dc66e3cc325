package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

type sqliteHistory struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository - expects the history table created by sqlite.Storage.Init.
func NewSQLiteHistoryRepository(db *sql.DB) HistoryRepository {
	return &sqliteHistory{
		db: db,
	}
}

func (that *sqliteHistory) Append(ctx context.Context, entry entity.HistoryEntry) error {
	query := `INSERT INTO history (room_code, winner, winner_mark, created_at) VALUES (?, ?, ?, ?)`

	_, err := that.db.ExecContext(ctx, query,
		entity.NormalizeCode(entry.RoomCode),
		entry.Winner,
		entry.WinnerMark,
		entry.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}

	return nil
}

func (that *sqliteHistory) ListByRoom(ctx context.Context, code string) ([]entity.HistoryEntry, error) {
	query := `SELECT room_code, winner, winner_mark, created_at FROM history WHERE room_code = ? ORDER BY id`

	rows, err := that.db.QueryContext(ctx, query, entity.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := make([]entity.HistoryEntry, 0)
	for rows.Next() {
		var (
			entry     entity.HistoryEntry
			createdAt int64
		)

		if err = rows.Scan(&entry.RoomCode, &entry.Winner, &entry.WinnerMark, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.Timestamp = time.UnixMilli(createdAt).UTC()
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return entries, nil
}

func (that *sqliteHistory) Exists(ctx context.Context, code string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM history WHERE room_code = ?)`

	var exists bool
	if err := that.db.QueryRowContext(ctx, query, entity.NormalizeCode(code)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}

	return exists, nil
}
