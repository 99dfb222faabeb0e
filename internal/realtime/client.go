package realtime

import (
	"Chatter/internal/api/config"
	"Chatter/internal/model"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// Client 一条已鉴权的长连接
type Client struct {
	ID   string
	User *model.User

	conn *websocket.Conn
	cfg  config.WSConfig
	ctx  context.Context

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(ctx context.Context, id string, user *model.User, conn *websocket.Conn, cfg config.WSConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		ID:   id,
		User: user,
		conn: conn,
		cfg:  cfg,
		ctx:  ctx,
		send: make(chan []byte, buffer),
	}
}

func (c *Client) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID.Hex()
}

// enqueue 队列已满时丢弃, 已关闭视为成功
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump 唯一的写协程, 负责推送和心跳
func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WarnContext(c.ctx, "ws write failed", "connID", c.ID, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 顺序处理同一连接的入站事件, 连接断开后返回
func (c *Client) readPump(handle func(c *Client, env *Envelope)) {
	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WarnContext(c.ctx, "ws read failed", "connID", c.ID, "err", err)
			}
			return
		}
		var env Envelope
		if err = json.Unmarshal(data, &env); err != nil || env.Event == "" {
			log.DebugContext(c.ctx, "ws frame ignored", "connID", c.ID, "err", err)
			continue
		}
		handle(c, &env)
	}
}

func (c *Client) pingPeriod() time.Duration {
	period := c.cfg.PongWait * 9 / 10
	if period <= 0 {
		period = 50 * time.Second
	}
	return period
}
