package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var ErrSendBufferFull = errors.New("send buffer is full")

// Conn is a client connection. Frames queued with Send are written in order by writePump.
type Conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(id string, ws *websocket.Conn) *Conn {
	return &Conn{
		id:   id,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (that *Conn) ID() string { return that.id }

func (that *Conn) Send(data []byte) error {
	select {
	case <-that.done:
		return websocket.ErrCloseSent
	default:
	}

	select {
	case that.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close - stops the write pump and closes the socket, which ends the read loop.
func (that *Conn) Close() error {
	var err error
	that.closeOnce.Do(func() {
		close(that.done)
		err = that.ws.Close()
	})

	return err
}

func (that *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.Close()
	}()

	for {
		select {
		case <-that.done:
			return
		case message := <-that.send:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump - calls handle for every text frame until the connection fails or is closed.
func (that *Conn) readPump(handle func(data []byte)) error {
	that.ws.SetReadLimit(maxMessageSize)
	_ = that.ws.SetReadDeadline(time.Now().Add(pongWait))
	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := that.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				return err
			}
			return nil
		}

		handle(data)
	}
}
