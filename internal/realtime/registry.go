package realtime

import (
	"sort"
	"sync"
)

// Presence 一条在线连接对应的用户信息
type Presence struct {
	ConnID   string `json:"socketId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Registry 进程内在线表, 每条存活连接一项
type Registry interface {
	Register(connID string, p Presence)
	// Unregister 返回被移除的项, 不存在时 ok 为 false
	Unregister(connID string) (p Presence, ok bool)
	List() []Presence
	Count() int
	// UserConnections 该用户仍存活的连接数
	UserConnections(userID string) int
}

type memoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]Presence
	byUser  map[string]int
}

func NewRegistry() Registry {
	return &memoryRegistry{
		entries: make(map[string]Presence),
		byUser:  make(map[string]int),
	}
}

func (s *memoryRegistry) Register(connID string, p Presence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ConnID = connID
	if old, ok := s.entries[connID]; ok {
		s.release(old.UserID)
	}
	s.entries[connID] = p
	s.byUser[p.UserID]++
}

func (s *memoryRegistry) Unregister(connID string) (Presence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.entries[connID]
	if !ok {
		return Presence{}, false
	}
	delete(s.entries, connID)
	s.release(p.UserID)
	return p, true
}

func (s *memoryRegistry) release(userID string) {
	if s.byUser[userID] <= 1 {
		delete(s.byUser, userID)
		return
	}
	s.byUser[userID]--
}

func (s *memoryRegistry) List() []Presence {
	s.mu.RLock()
	out := make([]Presence, 0, len(s.entries))
	for _, p := range s.entries {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ConnID < out[j].ConnID
	})
	return out
}

func (s *memoryRegistry) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *memoryRegistry) UserConnections(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byUser[userID]
}
