package ws

import (
	"encoding/json"
	"time"

	"confidential_casino/internal/logger"
	"confidential_casino/internal/solana"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
	sendBuffer = 64
)

type Client struct {
	Player solana.PublicKey
	Conn   *websocket.Conn
	Send   chan []byte

	hub  *Hub
	Done chan struct{}
}

func NewClient(player solana.PublicKey, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Player: player,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		hub:    hub,
		Done:   make(chan struct{}),
	}
}

func (c *Client) Run() {
	if !c.hub.Register(c) {
		_ = c.Conn.Close()
		close(c.Done)
		return
	}
	go c.writePump()

	// handshake so clients know events will be delivered
	c.reply(Message{Type: MsgReady})

	c.readPump()
}

//read
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "player", c.Player.String(), "error", err)
			}
			return
		}

		var msg Message
		reply := Message{Type: MsgPong}
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != MsgPing {
			// the socket is push only, wager actions go through the REST API
			reply = Message{Type: MsgError, Error: "unsupported message"}
		}
		c.reply(reply)
	}
}

func (c *Client) reply(m Message) {
	defer func() {
		// Send may be closed by Hub.Close during shutdown
		_ = recover()
	}()
	select {
	case c.Send <- mustMarshal(m):
	default:
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "player", c.Player.String(), "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return b
}
