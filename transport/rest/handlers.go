package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/triki-backend/internal/apperror"
	"github.com/rocketscienceinc/triki-backend/internal/entity"
	"github.com/rocketscienceinc/triki-backend/internal/service"
)

type uGame interface {
	GetRoom(ctx context.Context, code string) (*entity.Room, error)
	GetHistory(ctx context.Context, sessionID, code string) ([]entity.HistoryEntry, map[string]int, error)
	Stats() service.RoomStats
}

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	StatsHandler(w http.ResponseWriter, _ *http.Request)
	RoomHandler(w http.ResponseWriter, r *http.Request)
	HistoryHandler(w http.ResponseWriter, r *http.Request)
}

type handlers struct {
	logger *slog.Logger
	uGame  uGame
}

func NewHandlers(logger *slog.Logger, uGame uGame) Handlers {
	return &handlers{
		logger: logger.With("component", "rest"),
		uGame:  uGame,
	}
}

type playerResponse struct {
	Name      string `json:"name"`
	Mark      string `json:"mark"`
	Connected bool   `json:"connected"`
}

type roomResponse struct {
	Code    string           `json:"gameId"`
	Board   entity.Board     `json:"board"`
	Turn    string           `json:"turn"`
	Starter string           `json:"starter"`
	Status  string           `json:"status"`
	Winner  string           `json:"winner,omitempty"`
	Line    []int            `json:"line,omitempty"`
	Persist bool             `json:"persist"`
	Players []playerResponse `json:"players"`
}

type historyResponse struct {
	GameID  string                `json:"gameId"`
	History []entity.HistoryEntry `json:"history"`
	Wins    map[string]int        `json:"wins"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *handlers) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.uGame.Stats())
}

func (that *handlers) RoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := that.uGame.GetRoom(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		that.writeError(w, err)
		return
	}

	players := make([]playerResponse, 0, len(room.Participants))
	for _, participant := range room.Participants {
		players = append(players, playerResponse{
			Name:      participant.Name,
			Mark:      participant.Mark,
			Connected: participant.Connected,
		})
	}

	that.writeJSON(w, http.StatusOK, roomResponse{
		Code:    room.Code,
		Board:   room.Board,
		Turn:    room.Turn,
		Starter: room.Starter,
		Status:  room.Status,
		Winner:  room.Outcome.Winner,
		Line:    room.Outcome.Line,
		Persist: room.Persist,
		Players: players,
	})
}

func (that *handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	code := entity.NormalizeCode(chi.URLParam(r, "code"))

	entries, wins, err := that.uGame.GetHistory(r.Context(), "", code)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeJSON(w, http.StatusOK, historyResponse{
		GameID:  code,
		History: entries,
		Wins:    wins,
	})
}

func (that *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		that.logger.Error("request failed", "error", err)
	}

	that.writeJSON(w, status, errorResponse{
		Error: apperror.Message(err),
		Code:  apperror.Code(err),
	})
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("could not write response", "error", err)
	}
}
