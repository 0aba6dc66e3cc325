package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/triki-backend/internal/entity"
	"github.com/rocketscienceinc/triki-backend/internal/pkg"
)

type uGame interface {
	CreateGame(ctx context.Context, sessionID, name string, persist bool) (*entity.Room, error)
	JoinGame(ctx context.Context, sessionID, code, name string) (*entity.Room, *entity.Participant, error)
	Play(ctx context.Context, sessionID, code string, cell int) (*entity.Room, error)
	Reset(ctx context.Context, sessionID, code string) (*entity.Room, error)
	GetHistory(ctx context.Context, sessionID, code string) ([]entity.HistoryEntry, map[string]int, error)
	Leave(ctx context.Context, sessionID, code string) error
}

type handlerFunc func(ctx context.Context, conn *Conn, msg *Message) error

type Server struct {
	logger *slog.Logger
	uGame  uGame
	hub    *Hub

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, uGame uGame, hub *Hub) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),
		uGame:  uGame,
		hub:    hub,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionCreateGame] = server.handleCreateGame
	server.handlers[actionJoinGame] = server.handleJoinGame
	server.handlers[actionPlay] = server.handlePlay
	server.handlers[actionReset] = server.handleReset
	server.handlers[actionGetHistory] = server.handleGetHistory

	return server
}

// Handler - upgrades requests to WebSocket connections that live until they close or ctx is done.
func (that *Server) Handler(ctx context.Context) http.HandlerFunc {
	return func(writer http.ResponseWriter, req *http.Request) {
		that.upgradeToWebSocket(ctx, writer, req)
	}
}

func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	ws, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", "error", err)
		return
	}

	conn := NewConn(pkg.GenerateNewSessionID(), ws)
	log = log.With("session", conn.ID())
	log.Info("WebSocket connection established")

	that.hub.Register(conn)
	go conn.writePump()

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	if err = conn.readPump(func(data []byte) {
		that.handleMessage(connCtx, conn, data)
	}); err != nil {
		log.Warn("connection closed unexpectedly", "error", err)
	}

	_ = conn.Close()
	that.disconnect(context.WithoutCancel(ctx), conn)

	log.Info("WebSocket connection closed")
}

// disconnect - unbinds the connection and frees its seat.
func (that *Server) disconnect(ctx context.Context, conn *Conn) {
	code := that.hub.Unregister(conn)
	if code == "" {
		return
	}

	if err := that.uGame.Leave(ctx, conn.ID(), code); err != nil {
		that.logger.Warn("could not leave room", "method", "disconnect", "session", conn.ID(), "room", code, "error", err)
	}
}

func (that *Server) handleMessage(ctx context.Context, conn *Conn, data []byte) {
	log := that.logger.With("method", "handleMessage", "session", conn.ID())

	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		log.Warn("dropping malformed message", "error", err)
		return
	}

	handler, ok := that.handlers[message.Action]
	if !ok {
		handler = that.handleUnknown
	}

	if err := handler(ctx, conn, &message); err != nil {
		log.Debug("request failed", "action", message.Action, "error", err)
		that.hub.SendTo(conn.ID(), encodeError(err))
	}
}
