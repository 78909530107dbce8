package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreExpiry(t *testing.T) {
	now := time.Now()
	store := NewSessionStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	store.Put(&Session{UserID: "u1", Stage: StageAwaitingLinks})

	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, StageAwaitingLinks, sess.Stage)

	// Just inside the TTL.
	now = now.Add(29 * time.Minute)
	_, ok = store.Get("u1")
	assert.True(t, ok)

	// Past the TTL: gone, and the lazy expiry removed the entry.
	now = now.Add(2 * time.Minute)
	_, ok = store.Get("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStoreTouchExtendsDeadline(t *testing.T) {
	now := time.Now()
	store := NewSessionStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	store.Put(&Session{UserID: "u1", Stage: StageAwaitingConfirm})

	now = now.Add(8 * time.Minute)
	store.Touch("u1")

	now = now.Add(8 * time.Minute)
	_, ok := store.Get("u1")
	assert.True(t, ok)
}

func TestSessionStorePutReplaces(t *testing.T) {
	store := NewSessionStore(time.Minute)

	store.Put(&Session{UserID: "u1", Stage: StageAwaitingConfirm, Links: []string{"http://a"}})
	store.Put(&Session{UserID: "u1", Stage: StageAwaitingLinks})

	sess, ok := store.Get("u1")
	require.True(t, ok)
	assert.Equal(t, StageAwaitingLinks, sess.Stage)
	assert.Empty(t, sess.Links)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStoreSweep(t *testing.T) {
	now := time.Now()
	store := NewSessionStore(10 * time.Minute)
	store.now = func() time.Time { return now }

	store.Put(&Session{UserID: "old", Stage: StageAwaitingLinks})
	now = now.Add(11 * time.Minute)
	store.Put(&Session{UserID: "fresh", Stage: StageAwaitingLinks})

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("fresh")
	assert.True(t, ok)
}
