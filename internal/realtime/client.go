package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// maxMessageSize caps inbound control frames.
const maxMessageSize = 8 * 1024

// Command is a client → server control frame.
type Command struct {
	Action string `json:"action"` // "join", "leave" or "ping"
	ChatID uint   `json:"chatId"`
}

// Client is one websocket connection. It implements Subscriber.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
	done chan struct{}
	once sync.Once

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
	canJoin    func(chatID uint) (bool, error)
}

func newClient(h *Hub, conn *websocket.Conn, opts HandlerOpts) *Client {
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		hub:        h,
		send:       make(chan []byte, opts.SendBuffer),
		done:       make(chan struct{}),
		writeWait:  opts.WriteTimeout,
		pongWait:   opts.PongTimeout,
		pingPeriod: (opts.PongTimeout * 9) / 10,
		canJoin:    opts.RoomExists,
	}
}

// ID implements Subscriber.
func (c *Client) ID() string { return c.id }

// Deliver implements Subscriber.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close leaves every room and tells writePump to send a close frame and
// close the connection. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.hub.LeaveAll(c)
		close(c.done)
	})
}

func (c *Client) reply(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	if !c.Deliver(b) {
		log.Printf("realtime: dropped %s reply on connection %s", f.Event, c.id)
	}
}

func (c *Client) replyError(msg string) {
	c.reply(Frame{Event: "error", Data: map[string]string{"message": msg}})
}

// handle applies one control frame.
func (c *Client) handle(raw []byte) {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.replyError("invalid frame")
		return
	}
	switch cmd.Action {
	case "join":
		if cmd.ChatID == 0 {
			c.replyError("chatId is required")
			return
		}
		if c.canJoin != nil {
			ok, err := c.canJoin(cmd.ChatID)
			if err != nil {
				log.Printf("realtime: room check for chat %d: %v", cmd.ChatID, err)
				c.replyError("room check failed")
				return
			}
			if !ok {
				c.replyError(fmt.Sprintf("chat %d not found", cmd.ChatID))
				return
			}
		}
		c.hub.Join(cmd.ChatID, c)
		c.reply(Frame{Event: "joined", ChatID: cmd.ChatID})
	case "leave":
		c.hub.Leave(cmd.ChatID, c)
		c.reply(Frame{Event: "left", ChatID: cmd.ChatID})
	case "ping":
		c.reply(Frame{Event: "pong"})
	default:
		c.replyError(fmt.Sprintf("unknown action %q", cmd.Action))
	}
}

func (c *Client) readPump() {
	defer c.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
