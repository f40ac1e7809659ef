package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skyloft-tech/AcademiQa/policy"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Conn is one websocket session. Outbound frames flow through a buffered
// channel drained by a single write pump, so per-room publish order is
// preserved per connection.
type Conn struct {
	id    string
	actor policy.Actor
	ws    *websocket.Conn
	send  chan []byte

	rooms map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(ws *websocket.Conn, actor policy.Actor) *Conn {
	return &Conn{
		id:    uuid.NewString(),
		actor: actor,
		ws:    ws,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

// enqueue hands a frame to the write pump without blocking. A false return
// means the buffer is full and the caller should drop the connection.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
