package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(timeout time.Duration) (*Store, *time.Time) {
	now := time.Now()
	s := NewStore(timeout)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCreateReplacesPriorSession(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	first := s.Create("u1", "Ana")
	second := s.Create("u1", "Ana")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, s.ActiveCount())
}

func TestHasActiveExpiresLazily(t *testing.T) {
	s, now := newTestStore(time.Minute)
	s.Create("u1", "")
	require.True(t, s.HasActive("u1"))

	*now = now.Add(2 * time.Minute)
	assert.False(t, s.HasActive("u1"))
	// Expired session is gone, not just inactive.
	assert.Equal(t, 0, s.ActiveCount())
}

func TestAddMessageEvictsFIFO(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Create("u1", "")

	for i := 0; i < MaxMessages+10; i++ {
		require.True(t, s.AddMessage("u1", RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	history := s.History("u1", 0)
	require.Len(t, history, MaxMessages)
	assert.Equal(t, "msg-10", history[0].Content)
	assert.Equal(t, fmt.Sprintf("msg-%d", MaxMessages+9), history[len(history)-1].Content)
}

func TestAddMessageWithoutSession(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	assert.False(t, s.AddMessage("ghost", RoleUser, "oi"))
}

func TestHistoryLimit(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Create("u1", "")
	for i := 0; i < 8; i++ {
		s.AddMessage("u1", RoleUser, fmt.Sprintf("msg-%d", i))
	}

	history := s.History("u1", 5)
	require.Len(t, history, 5)
	assert.Equal(t, "msg-3", history[0].Content)
}

func TestTouchKeepsSessionAlive(t *testing.T) {
	s, now := newTestStore(time.Minute)
	s.Create("u1", "")

	*now = now.Add(50 * time.Second)
	require.True(t, s.Touch("u1"))

	*now = now.Add(50 * time.Second)
	assert.True(t, s.HasActive("u1"))
}

func TestCleanupExpired(t *testing.T) {
	s, now := newTestStore(time.Minute)
	s.Create("u1", "")
	s.Create("u2", "")

	*now = now.Add(30 * time.Second)
	s.Create("u3", "")

	*now = now.Add(45 * time.Second)
	removed := s.CleanupExpired()
	assert.Equal(t, 2, removed)
	assert.True(t, s.HasActive("u3"))
}

func TestStats(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Create("u1", "")
	s.Create("u2", "")
	s.AddMessage("u1", RoleUser, "oi")
	s.AddMessage("u1", RoleAssistant, "olá")

	st := s.Stats()
	assert.Equal(t, 2, st.TotalSessions)
	assert.Equal(t, 2, st.ActiveSessions)
	assert.InDelta(t, 1.0, st.AvgMessages, 0.001)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := newTestStore(time.Minute)
	s.Create("u1", "")
	s.AddMessage("u1", RoleUser, "oi")

	sess, ok := s.Get("u1")
	require.True(t, ok)
	sess.Messages[0].Content = "mutated"

	history := s.History("u1", 0)
	assert.Equal(t, "oi", history[0].Content)
}
