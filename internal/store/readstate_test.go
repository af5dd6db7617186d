package store_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/worklane/portal-realtime/internal/store"
)

func openStore(t *testing.T, path string) *store.ReadState {
	t.Helper()
	s, err := store.Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMarkAndQuery(t *testing.T) {
	t.Parallel()
	s := openStore(t, filepath.Join(t.TempDir(), "readstate"))

	read, err := s.IsRead("u1@x", store.KindNotification, "n1")
	require.NoError(t, err)
	assert.False(t, read)

	require.NoError(t, s.MarkRead("u1@x", store.KindNotification, "n1", "n2"))

	read, err = s.IsRead("u1@x", store.KindNotification, "n1")
	require.NoError(t, err)
	assert.True(t, read)

	ids, err := s.ReadIDs("u1@x", store.KindNotification)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n2"}, ids)
}

func TestNamespacedByIdentityAndKind(t *testing.T) {
	t.Parallel()
	s := openStore(t, filepath.Join(t.TempDir(), "readstate"))

	require.NoError(t, s.MarkRead("u1@x", store.KindAnnouncement, "a1"))

	read, err := s.IsRead("u2@x", store.KindAnnouncement, "a1")
	require.NoError(t, err)
	assert.False(t, read, "read sets are keyed by identity")

	read, err = s.IsRead("u1@x", store.KindNotification, "a1")
	require.NoError(t, err)
	assert.False(t, read, "read sets are keyed by kind")
}

func TestSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "readstate")

	s, err := store.Open(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.MarkRead("u1@x", store.KindAnnouncement, "a1"))
	require.NoError(t, s.Close())

	s = openStore(t, path)
	read, err := s.IsRead("u1@x", store.KindAnnouncement, "a1")
	require.NoError(t, err)
	assert.True(t, read)
}
