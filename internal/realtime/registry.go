// Package realtime keeps track of users' live connections so that background
// work can push status updates to them.
package realtime

import (
	"sync"

	"github.com/you/backoffice/domain"
	"go.uber.org/zap"
)

// Registry is a concurrency-safe map of user id to live connection. One
// connection is kept per user; registering a new one closes the previous one.
type Registry struct {
	mu     sync.RWMutex
	conns  map[uint]domain.Conn
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		conns:  make(map[uint]domain.Conn),
		logger: logger,
	}
}

// Get implements domain.ConnectionRegistry
func (r *Registry) Get(userID uint) (domain.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Register implements domain.ConnectionRegistry
func (r *Registry) Register(userID uint, conn domain.Conn) {
	r.mu.Lock()
	prev, ok := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if ok && prev != conn {
		if err := prev.Close(); err != nil {
			r.logger.Debug("closing replaced connection", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
}

// Unregister implements domain.ConnectionRegistry. It is a no-op when conn
// has already been replaced by a newer connection.
func (r *Registry) Unregister(userID uint, conn domain.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
	}
}

// Broadcast implements domain.ConnectionRegistry. Send failures are logged.
func (r *Registry) Broadcast(msg domain.PushMessage) {
	r.mu.RLock()
	targets := make(map[uint]domain.Conn, len(r.conns))
	for id, c := range r.conns {
		targets[id] = c
	}
	r.mu.RUnlock()

	for id, c := range targets {
		if err := c.Send(msg); err != nil {
			r.logger.Warn("broadcast send failed", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

// Len returns the number of connected users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Push sends msg to userID if connected. A missing connection is not an error.
func Push(registry domain.ConnectionRegistry, logger *zap.Logger, userID uint, msg domain.PushMessage) {
	if registry == nil {
		return
	}
	conn, ok := registry.Get(userID)
	if !ok {
		return
	}
	if err := conn.Send(msg); err != nil {
		logger.Warn("push failed", zap.Uint("user_id", userID), zap.String("type", msg.Type), zap.Error(err))
	}
}

var _ domain.ConnectionRegistry = (*Registry)(nil)
