package ws

import (
	"sync"
	"time"

	"shot-clock/internal/clock"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
)

// Client is one live websocket connection.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter

	// guarded by Hub.mu
	room string
	mode clock.Mode

	// owned by the read loop
	sessionID  string
	deviceID   string
	privileged bool
}

func newClient(id string, conn *websocket.Conn, limiter *rate.Limiter) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
		limiter: limiter,
		mode:    clock.ModeParticipant,
	}
}

// enqueue reports false when the send buffer is full or the client is gone.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close signals the write loop to send a close frame and release the
// connection. Safe to call more than once.
func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// writeLoop is the only writer on conn and the one that closes it.
func (c *Client) writeLoop(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("ws write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("conn_id", c.id).Msg("ws ping failed")
				return
			}
		}
	}
}
