package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	redisc "yodabot/internal/redis"
)

// Gate admits at most one in-flight reply per (user, channel). Without it,
// two concurrent replies race on read-modify-write of the stored history and
// the last writer wins.
type Gate interface {
	Acquire(ctx context.Context, userID, channelID int64) (bool, error)
	Release(ctx context.Context, userID, channelID int64) error
}

type key struct {
	userID    int64
	channelID int64
}

// Memory serializes replies within a single process.
type Memory struct {
	mu    sync.Mutex
	inUse map[key]struct{}
}

func NewMemory() *Memory {
	return &Memory{inUse: make(map[key]struct{})}
}

func (m *Memory) Acquire(_ context.Context, userID, channelID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{userID, channelID}
	if _, busy := m.inUse[k]; busy {
		return false, nil
	}
	m.inUse[k] = struct{}{}
	return true, nil
}

func (m *Memory) Release(_ context.Context, userID, channelID int64) error {
	m.mu.Lock()
	delete(m.inUse, key{userID, channelID})
	m.mu.Unlock()
	return nil
}

// holdTTL bounds how long a crashed holder can wedge a conversation.
const holdTTL = 2 * time.Minute

// Redis serializes replies across processes with SET NX.
type Redis struct {
	client *redisc.Client
}

func NewRedis(client *redisc.Client) *Redis {
	return &Redis{client: client}
}

func gateKey(userID, channelID int64) string {
	return fmt.Sprintf("chatgate:%d:%d", userID, channelID)
}

func (r *Redis) Acquire(ctx context.Context, userID, channelID int64) (bool, error) {
	return r.client.SetNX(ctx, gateKey(userID, channelID), 1, holdTTL)
}

func (r *Redis) Release(ctx context.Context, userID, channelID int64) error {
	return r.client.Del(ctx, gateKey(userID, channelID))
}
