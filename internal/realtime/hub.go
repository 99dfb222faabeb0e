package realtime

import (
	log "log/slog"
	"sync"
)

// Hub 连接与房间的订阅关系, 事件只编码一次再分发
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Remove 退出所有房间并关闭发送队列
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for room, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()

	c.closeSend()
}

func (h *Hub) Join(c *Client, room string) {
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
}

// RoomSize 房间内的连接数
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast 发给房间内除 exceptID 外的所有连接, exceptID 为空则全部发送
func (h *Hub) Broadcast(room, event string, data any, exceptID string) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Error("encode event failed", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for id, c := range h.rooms[room] {
		if id != exceptID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	deliver(targets, event, payload)
}

// BroadcastAll 发给所有连接
func (h *Hub) BroadcastAll(event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Error("encode event failed", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	deliver(targets, event, payload)
}

// Emit 只发给单个连接
func (h *Hub) Emit(c *Client, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Error("encode event failed", "event", event, "err", err)
		return
	}
	deliver([]*Client{c}, event, payload)
}

func deliver(targets []*Client, event string, payload []byte) {
	for _, c := range targets {
		if !c.enqueue(payload) {
			log.Warn("client send buffer full, event dropped", "connID", c.ID, "userID", c.UserID(), "event", event)
		}
	}
}
