package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestManagerLifecycle(t *testing.T) {
	m := NewManager(ManagerConfig{
		Backend: &fakeBackend{},
		Logger:  zaptest.NewLogger(t),
		ClickAction: func(sid string) string {
			return "@post('/api/v1/sessions/" + sid + "/layers/' + evt.target.dataset.layer + '/toggle')"
		},
	})

	a, err := m.Create()
	require.NoError(t, err)
	b, err := m.Create()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	_, err = uuid.Parse(a.ID())
	assert.NoError(t, err)
	assert.Equal(t, 2, m.Count())

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, a.Initialize(context.Background()))
	require.NoError(t, a.NotifyLoaded())
	out, err := a.PanelHTML()
	require.NoError(t, err)
	assert.Contains(t, out, "/api/v1/sessions/"+a.ID()+"/layers/")

	m.Dispose(a.ID())
	assert.Equal(t, Disposed, a.State())
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	m.Dispose(a.ID())

	m.Close()
	assert.Zero(t, m.Count())
	assert.Equal(t, Disposed, b.State())
}

func TestSweepDropsUnstartedSessions(t *testing.T) {
	m := NewManager(ManagerConfig{Backend: &fakeBackend{}})

	idle, err := m.Create()
	require.NoError(t, err)
	started, err := m.Create()
	require.NoError(t, err)
	require.NoError(t, started.Initialize(context.Background()))

	assert.Zero(t, m.Sweep(time.Hour))
	assert.Equal(t, 1, m.Sweep(0))

	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, Disposed, idle.State())
	_, err = m.Get(started.ID())
	assert.NoError(t, err)
}

func TestDetachWaitsForReconnect(t *testing.T) {
	m := NewManager(ManagerConfig{Backend: &fakeBackend{}})
	c, err := m.Create()
	require.NoError(t, err)

	_, err = m.Attach(c.ID())
	require.NoError(t, err)
	m.Detach(c.ID(), time.Hour)
	assert.Equal(t, 1, m.Count(), "session survives the grace period")

	got, err := m.Attach(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	// A second stream keeps the session alive when the first one closes.
	_, err = m.Attach(c.ID())
	require.NoError(t, err)
	m.Detach(c.ID(), 0)
	assert.Equal(t, 1, m.Count())

	m.Detach(c.ID(), 10*time.Millisecond)
	require.Eventually(t, func() bool { return m.Count() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Disposed, c.State())

	_, err = m.Attach(c.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	m.Detach(c.ID(), 0)
}

func TestDetachWithoutGraceDisposes(t *testing.T) {
	m := NewManager(ManagerConfig{Backend: &fakeBackend{}})
	c, err := m.Create()
	require.NoError(t, err)

	_, err = m.Attach(c.ID())
	require.NoError(t, err)
	m.Detach(c.ID(), 0)
	assert.Zero(t, m.Count())
	assert.Equal(t, Disposed, c.State())
}
