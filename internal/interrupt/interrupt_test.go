package interrupt

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestController_CancelEscalatesWithinWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(2 * time.Second)
	c.now = func() time.Time { return now }

	assert.Equal(t, Soft, c.Cancel())
	assert.Error(t, c.Context().Err())
	assert.False(t, isClosed(c.Force()))

	now = now.Add(time.Second)
	assert.Equal(t, Hard, c.Cancel())
	assert.True(t, isClosed(c.Force()))

	// Further requests are harmless.
	assert.Equal(t, Hard, c.Cancel())
}

func TestController_CancelOutsideWindowStaysSoft(t *testing.T) {
	now := time.Unix(1000, 0)
	c := New(2 * time.Second)
	c.now = func() time.Time { return now }

	c.Cancel()
	now = now.Add(5 * time.Second)
	assert.Equal(t, Soft, c.Cancel())
	assert.False(t, isClosed(c.Force()))

	now = now.Add(time.Second)
	assert.Equal(t, Hard, c.Cancel())
}

func TestController_HardImpliesSoft(t *testing.T) {
	c := New(0)
	c.Hard()
	assert.Equal(t, Hard, c.Level())
	assert.ErrorIs(t, c.Context().Err(), context.Canceled)
	assert.True(t, isClosed(c.Force()))

	c.Soft()
	assert.Equal(t, Hard, c.Level())
}

func TestController_Notify(t *testing.T) {
	c := New(time.Minute)
	stop := c.Notify(syscall.SIGUSR1)
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))
	select {
	case <-c.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not cancel the context")
	}
	assert.Equal(t, Soft, c.Level())
}

func TestContextRoundTrip(t *testing.T) {
	c := New(0)
	ctx := NewContext(context.Background(), c)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, c, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
