package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/triki-backend/internal/repository"
	"github.com/rocketscienceinc/triki-backend/internal/service"
	"github.com/rocketscienceinc/triki-backend/internal/usecase"
	"github.com/rocketscienceinc/triki-backend/testing/suite"
)

type frame map[string]any

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func newTestServer(t *testing.T) string {
	t.Helper()

	logger := suite.NewLogger(t)
	history := service.NewHistoryService(repository.NewMemoryHistoryRepository())
	registry := service.NewRoomRegistry(logger, nil, history, service.RegistryOptions{CodeLength: 5, IdleTimeout: time.Minute})
	hub := NewHub(logger)
	gameUseCase := usecase.NewGameUseCase(logger, registry, history, hub, usecase.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(New(logger, gameUseCase, hub).Handler(ctx))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *client {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return &client{t: t, ws: ws}
}

func (that *client) send(msg string) {
	that.t.Helper()

	require.NoError(that.t, that.ws.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func (that *client) sendJSON(msg any) {
	that.t.Helper()

	require.NoError(that.t, that.ws.WriteJSON(msg))
}

// expect - reads frames until one with the given action, or an error frame when action is empty.
func (that *client) expect(action string) frame {
	that.t.Helper()

	frames := that.until(action)

	return frames[len(frames)-1]
}

// until - every frame read up to and including the expected one.
func (that *client) until(action string) []frame {
	that.t.Helper()

	var frames []frame

	_ = that.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := that.ws.ReadMessage()
		require.NoError(that.t, err, "waiting for %q", action)

		var f frame
		require.NoError(that.t, json.Unmarshal(data, &f))
		frames = append(frames, f)

		if action == "" {
			if _, ok := f["error"]; ok {
				return frames
			}
			continue
		}

		if f["action"] == action {
			return frames
		}
	}
}

func actions(frames []frame) []any {
	result := make([]any, 0, len(frames))
	for _, f := range frames {
		result = append(result, f["action"])
	}

	return result
}

func (that *client) expectError() frame {
	that.t.Helper()

	return that.expect("")
}

func startGame(t *testing.T, url string) (*client, *client, string) {
	t.Helper()

	ana := dial(t, url)
	ana.sendJSON(map[string]any{"action": actionCreateGame, "name": "Ana"})
	created := ana.expect(actionGameCreated)
	code, _ := created["gameId"].(string)
	require.NotEmpty(t, code)

	luis := dial(t, url)
	luis.sendJSON(map[string]any{"action": actionJoinGame, "gameId": code, "name": "Luis"})
	luis.expect(actionJoinedGame)
	ana.expect(actionPlayerJoined)

	return ana, luis, code
}

func TestServer_Game(t *testing.T) {
	t.Run("Create and join", func(t *testing.T) {
		url := newTestServer(t)

		// Given: Ana creates a game
		ana := dial(t, url)
		ana.sendJSON(map[string]any{"action": actionCreateGame, "name": "Ana"})
		created := ana.expect(actionGameCreated)

		// Then: she is X and X starts
		assert.Equal(t, "X", created["player"])
		assert.Equal(t, "X", created["starter"])
		code := created["gameId"].(string)

		// When: Luis joins with the lower case code
		luis := dial(t, url)
		luis.sendJSON(map[string]any{"action": actionJoinGame, "gameId": strings.ToLower(code), "name": "Luis"})

		// Then: Luis is O, gets the board, and Ana learns about him
		joined := luis.expect(actionJoinedGame)
		assert.Equal(t, "O", joined["player"])
		assert.Equal(t, code, joined["gameId"])

		board := luis.expect(actionUpdateBoard)
		assert.Len(t, board["board"], 9)

		playerJoined := ana.expect(actionPlayerJoined)
		assert.Equal(t, "O", playerJoined["player"])
		assert.Equal(t, "Luis", playerJoined["name"])

		count := ana.expect(actionPlayerCount)
		assert.EqualValues(t, 2, count["count"])
	})

	t.Run("Moves are broadcast and a win is recorded", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, code := startGame(t, url)

		moves := []struct {
			player *client
			cell   int
		}{{ana, 0}, {luis, 3}, {ana, 1}, {luis, 4}, {ana, 2}}

		var last frame
		for _, move := range moves {
			move.player.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": move.cell, "name": "ignored"})
			last = ana.expect(actionUpdateBoard)
			luis.expect(actionUpdateBoard)
		}

		// Then: both saw X win on the top row
		assert.Equal(t, "X", last["winner"])
		assert.Equal(t, []any{0.0, 1.0, 2.0}, last["line"])
		assert.Equal(t, "finished", last["status"])

		history := luis.expect(actionHistory)
		assert.Equal(t, map[string]any{"Ana": 1.0}, history["wins"])

		// And: a history request returns the same log
		ana.sendJSON(map[string]any{"action": actionGetHistory, "gameId": code})
		history = ana.expect(actionHistory)
		entries := history["history"].([]any)
		require.Len(t, entries, 1)
		assert.Equal(t, "Ana", entries[0].(map[string]any)["winner"])
	})

	t.Run("Errors go to the requester only", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, code := startGame(t, url)

		// When: Luis plays out of turn
		luis.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": 0})

		// Then: he gets NotYourTurn
		failure := luis.expectError()
		assert.Equal(t, "NotYourTurn", failure["code"])

		// And: Ana's next frame is her own move, not an error
		ana.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": 0})
		update := ana.expect(actionUpdateBoard)
		assert.Equal(t, "O", update["turn"])
	})

	t.Run("Invalid requests", func(t *testing.T) {
		url := newTestServer(t)
		eva := dial(t, url)

		// Malformed JSON is dropped, the connection stays usable
		eva.send("{not json")

		eva.sendJSON(map[string]any{"action": "dance"})
		assert.Equal(t, "InvalidInput", eva.expectError()["code"])

		eva.sendJSON(map[string]any{"action": actionJoinGame, "name": "Eva"})
		assert.Equal(t, "InvalidInput", eva.expectError()["code"])

		eva.sendJSON(map[string]any{"action": actionJoinGame, "gameId": "NOPE1", "name": "Eva"})
		assert.Equal(t, "RoomNotFound", eva.expectError()["code"])

		eva.sendJSON(map[string]any{"action": actionCreateGame, "name": strings.Repeat("e", 33)})
		assert.Equal(t, "InvalidInput", eva.expectError()["code"])
	})

	t.Run("Third player gets RoomFull", func(t *testing.T) {
		url := newTestServer(t)
		_, _, code := startGame(t, url)

		eva := dial(t, url)
		eva.sendJSON(map[string]any{"action": actionJoinGame, "gameId": code, "name": "Eva"})

		assert.Equal(t, "RoomFull", eva.expectError()["code"])
	})

	t.Run("Disconnect frees the seat for the same name", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, code := startGame(t, url)

		ana.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": 4})
		luis.expect(actionUpdateBoard)

		// When: Luis drops
		require.NoError(t, luis.ws.Close())

		// Then: Ana is told
		left := ana.expect(actionPlayerLeft)
		assert.Equal(t, "O", left["player"])
		count := ana.expect(actionPlayerCount)
		assert.EqualValues(t, 1, count["count"])

		// When: Luis reconnects under the same name
		back := dial(t, url)
		back.sendJSON(map[string]any{"action": actionJoinGame, "gameId": code, "name": "Luis"})

		// Then: he is O again and sees the board
		assert.Equal(t, "O", back.expect(actionJoinedGame)["player"])
		board := back.expect(actionUpdateBoard)
		assert.Equal(t, "X", board["board"].([]any)[4])
		assert.Equal(t, "O", board["turn"])
	})

	t.Run("Reset from any player", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, code := startGame(t, url)

		luis.sendJSON(map[string]any{"action": actionReset, "gameId": code})

		reset := ana.expect(actionResetBoard)
		assert.Equal(t, "X", reset["turn"])
		luis.expect(actionResetBoard)
	})

	t.Run("Rejected switch keeps the current seat", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, code := startGame(t, url)

		// When: Luis asks for an unknown room and then creates one under a too long name
		luis.sendJSON(map[string]any{"action": actionJoinGame, "gameId": "ZZZZZ", "name": "Luis"})
		assert.Equal(t, "RoomNotFound", luis.expectError()["code"])

		luis.sendJSON(map[string]any{"action": actionCreateGame, "name": strings.Repeat("l", 33)})
		assert.Equal(t, "InvalidInput", luis.expectError()["code"])

		// Then: Ana is not told he left and the game goes on
		ana.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": 0})
		frames := ana.until(actionUpdateBoard)
		assert.NotContains(t, actions(frames), actionPlayerLeft)
		assert.Equal(t, "O", frames[len(frames)-1]["turn"])

		// And: Luis is still bound to the room and can answer
		luis.expect(actionUpdateBoard)
		luis.sendJSON(map[string]any{"action": actionPlay, "gameId": code, "cell": 4})
		update := ana.expect(actionUpdateBoard)
		assert.Equal(t, "O", update["board"].([]any)[4])
	})

	t.Run("Switching rooms leaves the previous one", func(t *testing.T) {
		url := newTestServer(t)
		ana, luis, _ := startGame(t, url)

		// When: Luis opens a room of his own
		luis.sendJSON(map[string]any{"action": actionCreateGame, "name": "Luis"})
		created := luis.expect(actionGameCreated)

		// Then: he hosts the new room and Ana sees him leave
		assert.Equal(t, "X", created["player"])
		left := ana.expect(actionPlayerLeft)
		assert.Equal(t, "O", left["player"])
		assert.Equal(t, "Luis", left["name"])
		assert.EqualValues(t, 1, ana.expect(actionPlayerCount)["count"])
	})

	t.Run("Clients without names can play", func(t *testing.T) {
		url := newTestServer(t)

		// Given: the web client frames, which carry the symbol but no name
		ana := dial(t, url)
		ana.send(`{"action":"createGame","player":"X"}`)
		created := ana.expect(actionGameCreated)
		assert.Equal(t, "X", created["player"])
		code := created["gameId"].(string)

		luis := dial(t, url)
		luis.send(`{"action":"joinGame","gameId":"` + code + `","player":"O"}`)

		// Then: both are seated under default names
		assert.Equal(t, "O", luis.expect(actionJoinedGame)["player"])
		luis.expect(actionUpdateBoard)
		joined := ana.expect(actionPlayerJoined)
		assert.Equal(t, "Player O", joined["name"])

		// And: moves and resets work as usual
		ana.send(`{"action":"play","gameId":"` + code + `","cell":0,"player":"X"}`)
		update := luis.expect(actionUpdateBoard)
		assert.Equal(t, "X", update["board"].([]any)[0])

		luis.send(`{"action":"reset","gameId":"` + code + `"}`)
		assert.Equal(t, "X", ana.expect(actionResetBoard)["turn"])
	})
}
