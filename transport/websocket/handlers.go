package websocket

import (
	"context"
	"fmt"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
)

func (that *Server) handleCreateGame(ctx context.Context, conn *Conn, msg *Message) error {
	previous := that.hub.RoomOf(conn.ID())

	room, err := that.uGame.CreateGame(ctx, conn.ID(), msg.Name, msg.Persist)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}

	that.leavePreviousRoom(ctx, conn, previous, room.Code)

	return nil
}

func (that *Server) handleJoinGame(ctx context.Context, conn *Conn, msg *Message) error {
	if err := requireGameID(msg); err != nil {
		return err
	}

	previous := that.hub.RoomOf(conn.ID())

	room, _, err := that.uGame.JoinGame(ctx, conn.ID(), msg.GameID, msg.Name)
	if err != nil {
		return fmt.Errorf("failed to join game: %w", err)
	}

	that.leavePreviousRoom(ctx, conn, previous, room.Code)

	return nil
}

func (that *Server) handlePlay(ctx context.Context, conn *Conn, msg *Message) error {
	if err := requireGameID(msg); err != nil {
		return err
	}

	if msg.Cell == nil {
		return fmt.Errorf("%w: cell is required", apperror.ErrInvalidInput)
	}

	if _, err := that.uGame.Play(ctx, conn.ID(), msg.GameID, *msg.Cell); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

func (that *Server) handleReset(ctx context.Context, conn *Conn, msg *Message) error {
	if err := requireGameID(msg); err != nil {
		return err
	}

	if _, err := that.uGame.Reset(ctx, conn.ID(), msg.GameID); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}

	return nil
}

func (that *Server) handleGetHistory(ctx context.Context, conn *Conn, msg *Message) error {
	if err := requireGameID(msg); err != nil {
		return err
	}

	if _, _, err := that.uGame.GetHistory(ctx, conn.ID(), msg.GameID); err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	return nil
}

func (that *Server) handleUnknown(_ context.Context, _ *Conn, msg *Message) error {
	return fmt.Errorf("%w: unknown action %q", apperror.ErrInvalidInput, msg.Action)
}

// leavePreviousRoom - frees the seat held in previous once the connection sits in next.
// The hub has already moved the binding on the created or joined event.
func (that *Server) leavePreviousRoom(ctx context.Context, conn *Conn, previous, next string) {
	if previous == "" || previous == next {
		return
	}

	if err := that.uGame.Leave(ctx, conn.ID(), previous); err != nil {
		that.logger.Warn("could not leave previous room", "method", "leavePreviousRoom", "session", conn.ID(), "room", previous, "error", err)
	}
}

func requireGameID(msg *Message) error {
	if entity.NormalizeCode(msg.GameID) == "" {
		return fmt.Errorf("%w: gameId is required", apperror.ErrInvalidInput)
	}

	return nil
}
