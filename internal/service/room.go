package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
	"github.com/rocketscienceinc/triki-backend/internal/pkg"
)

const maxCodeAttempts = 16

var ErrCodeSpaceExhausted = errors.New("could not generate a free room code")

// Session guards a single room. Every read or write of the room goes through Do.
type Session struct {
	mu     sync.Mutex
	room   *entity.Room
	closed bool
}

func newSession(room *entity.Room) *Session {
	return &Session{room: room}
}

// Do - runs fn with the room locked. A session removed from the registry reports ErrRoomNotFound.
func (that *Session) Do(fn func(room *entity.Room) error) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return apperror.ErrRoomNotFound
	}

	return fn(that.room)
}

// Snapshot - a copy of the room taken under the lock.
func (that *Session) Snapshot() (*entity.Room, error) {
	var room *entity.Room
	err := that.Do(func(r *entity.Room) error {
		room = r.Clone()
		return nil
	})

	return room, err
}

type roomRepo interface {
	CreateOrUpdate(ctx context.Context, room *entity.Room) error
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	DeleteByCode(ctx context.Context, code string) error
}

type historyChecker interface {
	HasHistory(ctx context.Context, code string) (bool, error)
}

type RoomStats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

type RegistryOptions struct {
	CodeLength  int
	IdleTimeout time.Duration
}

// RoomRegistry maps room codes to sessions. Lock order is registry, then session.
type RoomRegistry struct {
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	// roomRepo is optional, nil disables snapshots.
	roomRepo roomRepo
	history  historyChecker

	codeLength  int
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRoomRegistry(logger *slog.Logger, roomRepo roomRepo, history historyChecker, opts RegistryOptions) *RoomRegistry {
	return &RoomRegistry{
		logger:      logger.With("component", "room_registry"),
		sessions:    make(map[string]*Session),
		roomRepo:    roomRepo,
		history:     history,
		codeLength:  opts.CodeLength,
		idleTimeout: opts.IdleTimeout,
		now:         time.Now,
	}
}

// Create - registers an empty room under a fresh code. The turn belongs to starter.
func (that *RoomRegistry) Create(ctx context.Context, starter string, persist bool) (*Session, error) {
	for range maxCodeAttempts {
		code, err := pkg.GenerateRoomCode(that.codeLength)
		if err != nil {
			return nil, fmt.Errorf("error generating room code: %w", err)
		}

		taken, err := that.isCodeTaken(ctx, code)
		if err != nil {
			return nil, err
		}

		if taken {
			continue
		}

		room := entity.NewRoom(code, starter, that.now())
		room.Persist = persist
		session := newSession(room)

		that.mu.Lock()
		if _, ok := that.sessions[room.Code]; ok {
			that.mu.Unlock()
			continue
		}
		that.sessions[room.Code] = session
		that.mu.Unlock()

		return session, nil
	}

	return nil, ErrCodeSpaceExhausted
}

func (that *RoomRegistry) isCodeTaken(ctx context.Context, code string) (bool, error) {
	that.mu.RLock()
	_, ok := that.sessions[code]
	that.mu.RUnlock()

	if ok {
		return true, nil
	}

	if that.history != nil {
		used, err := that.history.HasHistory(ctx, code)
		if err != nil {
			return false, fmt.Errorf("failed to check room code: %w", err)
		}

		if used {
			return true, nil
		}
	}

	if that.roomRepo != nil {
		_, err := that.roomRepo.GetByCode(ctx, code)
		switch {
		case err == nil:
			return true, nil
		case !errors.Is(err, apperror.ErrRoomNotFound):
			return false, fmt.Errorf("failed to check room code: %w", err)
		}
	}

	return false, nil
}

// Get - case-insensitive lookup, falling back to the latest snapshot when the room is not loaded.
func (that *RoomRegistry) Get(ctx context.Context, code string) (*Session, error) {
	code = entity.NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty room code", apperror.ErrInvalidInput)
	}

	that.mu.RLock()
	session, ok := that.sessions[code]
	that.mu.RUnlock()

	if ok {
		return session, nil
	}

	if that.roomRepo == nil {
		return nil, apperror.ErrRoomNotFound
	}

	return that.rehydrate(ctx, code)
}

func (that *RoomRegistry) rehydrate(ctx context.Context, code string) (*Session, error) {
	log := that.logger.With("method", "rehydrate", "room", code)

	room, err := that.roomRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			return nil, apperror.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room snapshot: %w", err)
	}

	for _, participant := range room.Participants {
		participant.Connected = false
		participant.SessionID = ""
	}
	if room.EmptySince.IsZero() {
		room.EmptySince = that.now()
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if session, ok := that.sessions[code]; ok {
		return session, nil
	}

	session := newSession(room)
	that.sessions[code] = session

	log.Info("room restored from snapshot")

	return session, nil
}

// Save - stores a snapshot of room. Called with the session locked.
func (that *RoomRegistry) Save(ctx context.Context, room *entity.Room) {
	if that.roomRepo == nil {
		return
	}

	if err := that.roomRepo.CreateOrUpdate(ctx, room); err != nil {
		that.logger.Error("could not save room snapshot", "method", "Save", "room", room.Code, "error", err)
	}
}

// Reap - removes rooms nobody has been connected to for longer than the idle timeout, except persistent ones.
func (that *RoomRegistry) Reap(ctx context.Context) []string {
	log := that.logger.With("method", "Reap")
	now := that.now()

	var reaped []string

	that.mu.Lock()
	for code, session := range that.sessions {
		session.mu.Lock()
		if that.isIdle(session.room, now) {
			session.closed = true
			delete(that.sessions, code)
			reaped = append(reaped, code)
		}
		session.mu.Unlock()
	}
	that.mu.Unlock()

	for _, code := range reaped {
		log.Info("room reclaimed", "room", code)

		if that.roomRepo == nil {
			continue
		}

		if err := that.roomRepo.DeleteByCode(ctx, code); err != nil && !errors.Is(err, apperror.ErrRoomNotFound) {
			log.Error("could not delete room snapshot", "room", code, "error", err)
		}
	}

	return reaped
}

func (that *RoomRegistry) isIdle(room *entity.Room, now time.Time) bool {
	if room.Persist || room.ConnectedCount() > 0 || room.EmptySince.IsZero() {
		return false
	}

	return now.Sub(room.EmptySince) >= that.idleTimeout
}

// Run - reaps idle rooms every interval until ctx is done.
func (that *RoomRegistry) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			that.Reap(ctx)
		}
	}
}

func (that *RoomRegistry) Stats() RoomStats {
	that.mu.RLock()
	defer that.mu.RUnlock()

	stats := RoomStats{Rooms: len(that.sessions)}
	for _, session := range that.sessions {
		session.mu.Lock()
		stats.Players += session.room.ConnectedCount()
		session.mu.Unlock()
	}

	return stats
}
