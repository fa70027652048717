package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/foomo/hbkbrowser/client"
	"github.com/foomo/hbkbrowser/client/mock"
	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/pkg/session"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type registryFactory func(storage session.Storage) *session.Registry

func newRegistryFactory(t *testing.T) registryFactory {
	t.Helper()
	backend := mock.NewBackend(t)
	l := zaptest.NewLogger(t)
	c, err := client.NewHTTPClient(backend.URL, client.WithLogger(l))
	require.NoError(t, err)
	resolver := resolve.New(l, c)
	engine := expand.New(l, c)
	return func(storage session.Storage) *session.Registry {
		var opts []session.Option
		if storage != nil {
			opts = append(opts, session.WithHistory(session.NewHistory(l, storage)))
		}
		return session.NewRegistry(l, c, resolver, engine, opts...)
	}
}

func TestRegistryInMemory(t *testing.T) {
	ctx := context.Background()
	r := newRegistryFactory(t)(nil)
	defer func() { require.NoError(t, r.Close()) }()

	s, err := r.Create(ctx, "RU")
	require.NoError(t, err)
	assert.Equal(t, "ru", s.State().Locale)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = r.Get(ctx, uuid.NewString())
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = r.Get(ctx, "nope")
	require.ErrorIs(t, err, session.ErrInvalidID)

	require.NoError(t, r.Delete(ctx, s.ID()))
	assert.Equal(t, 0, r.Len())
	_, err = r.Get(ctx, s.ID())
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRegistryInvalidLocale(t *testing.T) {
	r := newRegistryFactory(t)(nil)
	defer func() { require.NoError(t, r.Close()) }()

	_, err := r.Create(context.Background(), "not a locale")
	require.ErrorIs(t, err, navigation.ErrInvalidLocale)
}

func TestRegistryRestoresSessions(t *testing.T) {
	ctx := context.Background()
	newRegistry := newRegistryFactory(t)
	dir := t.TempDir()
	newStorage := func() session.Storage {
		s, err := session.NewFilesystemStorage(dir)
		require.NoError(t, err)
		return s
	}

	r := newRegistry(newStorage())
	s, err := r.Create(ctx, "ru")
	require.NoError(t, err)
	require.NoError(t, s.FollowLink(ctx, "v8help://Руководство/install/linux.html"))
	assert.Equal(t, 500, s.SetSidebarWidth(500))
	want := s.State()
	id := s.ID()
	require.NoError(t, r.Close())

	r = newRegistry(newStorage())
	defer func() { require.NoError(t, r.Close()) }()
	restored, err := r.Get(ctx, id)
	require.NoError(t, err)
	got := restored.State()
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.URL, got.URL)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Expanded, got.Expanded)
	assert.Equal(t, 500, restored.SidebarWidth())

	// the restored session keeps navigating
	require.NoError(t, restored.Navigate(ctx, navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/start.html"}))
	assert.Equal(t, toc.NewIDSet("guide/start.html-0"), restored.ExpandedNodes())
}

func TestRegistryRemembersLastLocale(t *testing.T) {
	ctx := context.Background()
	storage := newBlobStorage(t, "")
	r := newRegistryFactory(t)(storage)
	defer func() { require.NoError(t, r.Close()) }()

	s, err := r.Create(ctx, "ru")
	require.NoError(t, err)
	require.NoError(t, s.SetLocale("en"))

	require.Eventually(t, func() bool {
		data, err := storage.Read(ctx, session.LastLocaleKey)
		return err == nil && string(data) == "en"
	}, time.Second, 10*time.Millisecond)

	next, err := r.Create(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "en", next.State().Locale)
}

func TestRegistryDeleteRemovesSnapshots(t *testing.T) {
	ctx := context.Background()
	storage := newBlobStorage(t, "")
	r := newRegistryFactory(t)(storage)
	defer func() { require.NoError(t, r.Close()) }()

	s, err := r.Create(ctx, "ru")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		keys, err := storage.List(ctx, session.SnapshotPrefix+s.ID())
		return err == nil && len(keys) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Delete(ctx, s.ID()))
	keys, err := storage.List(ctx, session.SnapshotPrefix+s.ID())
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, err = r.Get(ctx, s.ID())
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestClampSidebarWidth(t *testing.T) {
	assert.Equal(t, session.DefaultSidebarWidth, session.ClampSidebarWidth(0))
	assert.Equal(t, session.MinSidebarWidth, session.ClampSidebarWidth(10))
	assert.Equal(t, session.MaxSidebarWidth, session.ClampSidebarWidth(5000))
	assert.Equal(t, 420, session.ClampSidebarWidth(420))
}
