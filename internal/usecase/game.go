package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
	"github.com/rocketscienceinc/triki-backend/internal/service"
	"github.com/rocketscienceinc/triki-backend/internal/tictactoe"
)

const (
	maxNameLength = 32
	tracerName    = "github.com/rocketscienceinc/triki-backend/internal/usecase"
)

// Publisher receives room events. Publish is called with the room locked and must not block.
type Publisher interface {
	Publish(event entity.Event)
}

type roomRegistry interface {
	Create(ctx context.Context, starter string, persist bool) (*service.Session, error)
	Get(ctx context.Context, code string) (*service.Session, error)
	Save(ctx context.Context, room *entity.Room)
	Stats() service.RoomStats
}

type Options struct {
	Starter          tictactoe.StarterPolicy
	PersistByDefault bool
}

type GameUseCase struct {
	logger *slog.Logger
	tracer trace.Tracer

	rooms     roomRegistry
	history   service.HistoryService
	publisher Publisher

	starter          tictactoe.StarterPolicy
	persistByDefault bool
	now              func() time.Time
}

func NewGameUseCase(logger *slog.Logger, rooms roomRegistry, history service.HistoryService, publisher Publisher, opts Options) *GameUseCase {
	starter := opts.Starter
	if starter == nil {
		starter = tictactoe.FixedStarter
	}

	return &GameUseCase{
		logger:           logger.With("component", "game_usecase"),
		tracer:           otel.Tracer(tracerName),
		rooms:            rooms,
		history:          history,
		publisher:        publisher,
		starter:          starter,
		persistByDefault: opts.PersistByDefault,
		now:              time.Now,
	}
}

func (that *GameUseCase) startSpan(ctx context.Context, name, code, sessionID string) (context.Context, trace.Span) {
	return that.tracer.Start(ctx, "GameUseCase."+name, trace.WithAttributes(
		attribute.String("room.code", entity.NormalizeCode(code)),
		attribute.String("session.id", sessionID),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperror.Code(err))
	}
	span.End()
}

// validateName - the trimmed display name. An empty name is allowed and replaced by defaultName once the seat is known.
func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", apperror.ErrInvalidInput, maxNameLength)
	}

	if strings.EqualFold(name, entity.ResultDraw) {
		return "", fmt.Errorf("%w: name %q is reserved", apperror.ErrInvalidInput, name)
	}

	return name, nil
}

func defaultName(mark string) string {
	return "Player " + mark
}

// CreateGame - opens a new room with the caller seated as X.
func (that *GameUseCase) CreateGame(ctx context.Context, sessionID, name string, persist bool) (room *entity.Room, err error) {
	log := that.logger.With("method", "CreateGame", "session", sessionID)

	ctx, span := that.startSpan(ctx, "CreateGame", "", sessionID)
	defer func() { endSpan(span, err) }()

	name, err = validateName(name)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = defaultName(entity.PlayerX)
	}

	session, err := that.rooms.Create(ctx, that.starter(), persist || that.persistByDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	err = session.Do(func(r *entity.Room) error {
		r.Participants = []*entity.Participant{{
			Name:      name,
			Mark:      entity.PlayerX,
			SessionID: sessionID,
			Connected: true,
		}}
		r.EmptySince = time.Time{}
		r.RefreshStatus()

		that.rooms.Save(ctx, r)

		that.publisher.Publish(entity.Event{
			Kind:      entity.EventRoomCreated,
			RoomCode:  r.Code,
			SessionID: sessionID,
			Mark:      entity.PlayerX,
			Name:      name,
			Starter:   r.Starter,
			Board:     r.Board,
			Turn:      r.Turn,
			Status:    r.Status,
		})
		that.publishCount(r)

		room = r.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seat host: %w", err)
	}

	span.SetAttributes(attribute.String("room.code", room.Code))
	log.Info("room created", "room", room.Code, "persist", room.Persist)

	return room, nil
}

// JoinGame - seats the caller in the room identified by code and returns the seat.
func (that *GameUseCase) JoinGame(ctx context.Context, sessionID, code, name string) (room *entity.Room, seat *entity.Participant, err error) {
	log := that.logger.With("method", "JoinGame", "session", sessionID, "room", entity.NormalizeCode(code))

	ctx, span := that.startSpan(ctx, "JoinGame", code, sessionID)
	defer func() { endSpan(span, err) }()

	name, err = validateName(name)
	if err != nil {
		return nil, nil, err
	}

	session, err := that.rooms.Get(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get room: %w", err)
	}

	err = session.Do(func(r *entity.Room) error {
		participant, err := takeSeat(r, sessionID, name)
		if err != nil {
			return err
		}

		seatName := name
		if seatName == "" {
			seatName = participant.Name
			if participant.SessionID != sessionID || seatName == "" {
				seatName = defaultName(participant.Mark)
			}
		}

		participant.Name = seatName
		participant.SessionID = sessionID
		participant.Connected = true
		r.EmptySince = time.Time{}
		r.RefreshStatus()

		that.rooms.Save(ctx, r)

		that.publisher.Publish(entity.Event{
			Kind:      entity.EventRoomJoined,
			RoomCode:  r.Code,
			SessionID: sessionID,
			Mark:      participant.Mark,
			Name:      seatName,
			Starter:   r.Starter,
			Board:     r.Board,
			Turn:      r.Turn,
			Status:    r.Status,
			Outcome:   r.Outcome,
		})
		that.publisher.Publish(entity.Event{
			Kind:      entity.EventPlayerJoined,
			RoomCode:  r.Code,
			SessionID: sessionID,
			Exclude:   true,
			Mark:      participant.Mark,
			Name:      seatName,
		})
		that.publishCount(r)

		room = r.Clone()
		seat = room.ParticipantBySession(sessionID)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to join room: %w", err)
	}

	log.Info("player joined", "mark", seat.Mark, "players", len(room.Participants))

	return room, seat, nil
}

// takeSeat - picks the seat for a joining participant:
// their own seat, a disconnected seat under the same name, a free seat, then a seat whose holder is gone.
func takeSeat(room *entity.Room, sessionID, name string) (*entity.Participant, error) {
	if participant := room.ParticipantBySession(sessionID); participant != nil {
		return participant, nil
	}

	if participant := room.ParticipantByName(name); participant != nil && !participant.Connected {
		return participant, nil
	}

	if !room.IsFull() {
		participant := &entity.Participant{Mark: room.FreeMark()}
		room.Participants = append(room.Participants, participant)

		return participant, nil
	}

	for _, participant := range room.Participants {
		if !participant.Connected {
			return participant, nil
		}
	}

	return nil, apperror.ErrRoomFull
}

// Play - applies a move of the caller. A move that ends the game is recorded in the history.
func (that *GameUseCase) Play(ctx context.Context, sessionID, code string, cell int) (room *entity.Room, err error) {
	log := that.logger.With("method", "Play", "session", sessionID, "room", entity.NormalizeCode(code))

	ctx, span := that.startSpan(ctx, "Play", code, sessionID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("cell", cell))

	session, err := that.rooms.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	var recordErr error
	err = session.Do(func(r *entity.Room) error {
		player, err := tictactoe.MakeTurn(r, sessionID, cell)
		if err != nil {
			return err
		}

		that.rooms.Save(ctx, r)

		that.publisher.Publish(entity.Event{
			Kind:     entity.EventBoardUpdated,
			RoomCode: r.Code,
			Board:    r.Board,
			Turn:     r.Turn,
			Status:   r.Status,
			Outcome:  r.Outcome,
		})

		if r.Outcome.IsTerminal() {
			recordErr = that.recordResult(ctx, r, player)
		}

		room = r.Clone()
		return nil
	})
	if err != nil {
		log.Debug("move rejected", "cell", cell, "error", err)
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if room.IsFinished() {
		log.Info("game finished", "winner", room.Outcome.Winner)
	}

	if recordErr != nil {
		return room, recordErr
	}

	return room, nil
}

// recordResult - appends the finished game and broadcasts the room history. Called with the room locked.
func (that *GameUseCase) recordResult(ctx context.Context, room *entity.Room, mover *entity.Participant) error {
	log := that.logger.With("method", "recordResult", "room", room.Code)

	winner, mark := entity.ResultDraw, ""
	if !room.Outcome.IsDraw() {
		winner, mark = mover.Name, mover.Mark
	}

	if _, err := that.history.Record(ctx, room.Code, winner, mark); err != nil {
		log.Error("could not record game result", "error", err)
		return fmt.Errorf("failed to record result: %w", err)
	}

	entries, wins, err := that.history.GetHistory(ctx, room.Code)
	if err != nil {
		log.Error("could not read history", "error", err)
		return fmt.Errorf("failed to read history: %w", err)
	}

	that.publisher.Publish(entity.Event{
		Kind:     entity.EventHistory,
		RoomCode: room.Code,
		History:  entries,
		Wins:     wins,
	})

	return nil
}

// Reset - clears the board for a new game. Any client may reset, in any state.
func (that *GameUseCase) Reset(ctx context.Context, sessionID, code string) (room *entity.Room, err error) {
	log := that.logger.With("method", "Reset", "session", sessionID, "room", entity.NormalizeCode(code))

	ctx, span := that.startSpan(ctx, "Reset", code, sessionID)
	defer func() { endSpan(span, err) }()

	session, err := that.rooms.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	err = session.Do(func(r *entity.Room) error {
		tictactoe.Reset(r, that.starter())

		that.rooms.Save(ctx, r)

		that.publisher.Publish(entity.Event{
			Kind:     entity.EventBoardReset,
			RoomCode: r.Code,
			Board:    r.Board,
			Turn:     r.Turn,
			Starter:  r.Starter,
			Status:   r.Status,
		})

		room = r.Clone()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reset room: %w", err)
	}

	log.Info("board reset", "starter", room.Starter)

	return room, nil
}

// GetHistory - the finished games of a room and the wins per name, also sent to the caller.
// A reclaimed room still answers as long as it has a history.
func (that *GameUseCase) GetHistory(ctx context.Context, sessionID, code string) (entries []entity.HistoryEntry, wins map[string]int, err error) {
	ctx, span := that.startSpan(ctx, "GetHistory", code, sessionID)
	defer func() { endSpan(span, err) }()

	code = entity.NormalizeCode(code)

	read := func() error {
		entries, wins, err = that.history.GetHistory(ctx, code)
		if err != nil {
			return err
		}

		if sessionID != "" {
			that.publisher.Publish(entity.Event{
				Kind:      entity.EventHistory,
				RoomCode:  code,
				SessionID: sessionID,
				History:   entries,
				Wins:      wins,
			})
		}
		return nil
	}

	session, err := that.rooms.Get(ctx, code)
	switch {
	case err == nil:
		err = session.Do(func(*entity.Room) error { return read() })
	case errors.Is(err, apperror.ErrRoomNotFound):
		var has bool
		if has, err = that.history.HasHistory(ctx, code); err == nil {
			if !has {
				return nil, nil, apperror.ErrRoomNotFound
			}
			err = read()
		}
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to get history: %w", err)
	}

	return entries, wins, nil
}

// Leave - marks the caller disconnected. The seat and its symbol are kept for a reconnect.
func (that *GameUseCase) Leave(ctx context.Context, sessionID, code string) (err error) {
	log := that.logger.With("method", "Leave", "session", sessionID, "room", entity.NormalizeCode(code))

	ctx, span := that.startSpan(ctx, "Leave", code, sessionID)
	defer func() { endSpan(span, err) }()

	session, err := that.rooms.Get(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	err = session.Do(func(r *entity.Room) error {
		participant := r.ParticipantBySession(sessionID)
		if participant == nil {
			return apperror.ErrPlayerNotInRoom
		}

		participant.Connected = false
		participant.SessionID = ""
		if r.ConnectedCount() == 0 {
			r.EmptySince = that.now()
		}

		that.rooms.Save(ctx, r)

		that.publisher.Publish(entity.Event{
			Kind:     entity.EventPlayerLeft,
			RoomCode: r.Code,
			Mark:     participant.Mark,
			Name:     participant.Name,
		})
		that.publishCount(r)

		log.Info("player left", "mark", participant.Mark, "connected", r.ConnectedCount())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}

	return nil
}

// GetRoom - a snapshot of the room for read-only callers.
func (that *GameUseCase) GetRoom(ctx context.Context, code string) (*entity.Room, error) {
	session, err := that.rooms.Get(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	room, err := session.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read room: %w", err)
	}

	return room, nil
}

func (that *GameUseCase) Stats() service.RoomStats {
	return that.rooms.Stats()
}

func (that *GameUseCase) publishCount(room *entity.Room) {
	that.publisher.Publish(entity.Event{
		Kind:     entity.EventPlayerCount,
		RoomCode: room.Code,
		Count:    room.ConnectedCount(),
	})
}
