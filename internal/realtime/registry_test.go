package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/backoffice/domain"
	"github.com/you/backoffice/internal/mocks"
	"go.uber.org/zap"
)

func TestRegistry_RegisterGetUnregister(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	first := mocks.NewMockConn()
	second := mocks.NewMockConn()

	_, ok := r.Get(7)
	assert.False(t, ok)

	r.Register(7, first)
	got, ok := r.Get(7)
	require.True(t, ok)
	assert.Same(t, first, got)

	r.Register(7, second)
	assert.True(t, first.Closed(), "replaced connection is closed")
	got, _ = r.Get(7)
	assert.Same(t, second, got)

	// the stale connection's cleanup must not remove the new one
	r.Unregister(7, first)
	_, ok = r.Get(7)
	assert.True(t, ok)

	r.Unregister(7, second)
	_, ok = r.Get(7)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_Broadcast(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	a := mocks.NewMockConn()
	b := mocks.NewMockConn()
	b.SendFunc = func(msg domain.PushMessage) error { return errors.New("gone") }
	r.Register(1, a)
	r.Register(2, b)

	r.Broadcast(domain.PushMessage{Type: "maintenance"})

	require.Len(t, a.Sent(), 1)
	assert.Equal(t, "maintenance", a.Sent()[0].Type)
}

func TestPush(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	conn := mocks.NewMockConn()
	r.Register(7, conn)

	Push(r, zap.NewNop(), 7, domain.PushMessage{Type: "withdrawal_status"})
	Push(r, zap.NewNop(), 8, domain.PushMessage{Type: "withdrawal_status"})
	Push(nil, zap.NewNop(), 7, domain.PushMessage{Type: "ignored"})

	require.Len(t, conn.Sent(), 1)
	assert.Equal(t, "withdrawal_status", conn.Sent()[0].Type)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	var wg sync.WaitGroup
	for i := uint(0); i < 50; i++ {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			c := mocks.NewMockConn()
			r.Register(id%5, c)
			r.Broadcast(domain.PushMessage{Type: "tick"})
			r.Unregister(id%5, c)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 5)
}
