package session

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { client.Close() })
	return New(server), client
}

func TestNewSessionStartsInExpectConnect(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Equal(t, ExpectConnect, s.State())
	assert.Equal(t, "", s.ClientID())
}

func TestActivateTransitionsOnce(t *testing.T) {
	s, _ := newTestSession(t)
	require.True(t, s.Activate())
	assert.Equal(t, Active, s.State())

	// a second Activate from Active must fail: not in ExpectConnect anymore.
	assert.False(t, s.Activate())
}

func TestActivateFailsAfterClose(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.Close())
	assert.False(t, s.Activate())
	assert.Equal(t, Closed, s.State())
}

func TestSubscriptionSet(t *testing.T) {
	s, _ := newTestSession(t)
	s.AddSubscription("a/b")
	s.AddSubscription("a/+")

	got := s.Subscriptions()
	assert.ElementsMatch(t, []string{"a/b", "a/+"}, got)

	s.RemoveSubscription("a/b")
	got = s.Subscriptions()
	assert.ElementsMatch(t, []string{"a/+"}, got)
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestSession(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, Closed, s.State())
}

func TestWriteSerializesConcurrentWrites(t *testing.T) {
	s, client := newTestSession(t)

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 3)
		for i := 0; i < 20; i++ {
			if _, err := client.Read(buf); err != nil {
				return
			}
		}
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Write([]byte("abc"))
		}()
	}
	wg.Wait()
	<-done
}

func TestTouchUpdatesLastActivity(t *testing.T) {
	s, _ := newTestSession(t)
	first := s.LastActivity()
	s.Touch()
	second := s.LastActivity()
	assert.False(t, second.Before(first))
}

func TestSetClientID(t *testing.T) {
	s, _ := newTestSession(t)
	s.SetClientID("device-1")
	assert.Equal(t, "device-1", s.ClientID())
}
