package navigation_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/foomo/hbkbrowser/client"
	"github.com/foomo/hbkbrowser/client/mock"
	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	linkAbs   = "v8help://Справочник/functions/abs.html"
	linkLinux = "v8help://Руководство/install/linux.html"
)

var locStart = navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/start.html"}

func newOrchestrator(t *testing.T) (*navigation.Orchestrator, *mock.Backend) {
	t.Helper()
	backend := mock.NewBackend(t)
	l := zaptest.NewLogger(t)
	c, err := client.NewHTTPClient(backend.URL, client.WithLogger(l))
	require.NoError(t, err)
	o := navigation.New(l,
		navigation.NewStore("ru"),
		c,
		resolve.New(l, c),
		expand.New(l, c),
		navigation.NewTreeCache(l, c),
	)
	t.Cleanup(o.Close)
	return o, backend
}

func TestFollowSchemeLink(t *testing.T) {
	o, backend := newOrchestrator(t)

	require.NoError(t, o.FollowLink(t.Context(), linkAbs))

	st := o.State()
	assert.Equal(t, navigation.PhaseIdle, st.Phase)
	assert.Equal(t, navigation.Location{Locale: "ru", SectionPath: "ref", PagePath: "ref/functions/abs.html"}, o.Location())
	assert.Equal(t, "/ru/ref/ref/functions/abs.html", st.URL)
	assert.Equal(t, "Справочник", st.SectionTitle)
	assert.Equal(t, "Abs", st.Title)
	assert.Equal(t, toc.NewIDSet("ref/functions-0", "ref/functions/abs.html-1"), o.ExpandedNodes())
	assert.True(t, o.IsNodeExpanded("ref/functions-0"))
	assert.Nil(t, st.Notice)
	assert.Equal(t, 1, backend.Calls("/api/toc/ref"))
	assert.Equal(t, 1, backend.Calls("/api/toc/ref/functions"))
}

func TestFollowRelativeLink(t *testing.T) {
	o, _ := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))

	require.NoError(t, o.FollowLink(t.Context(), "install/linux.html#top"))

	st := o.State()
	assert.Equal(t, "guide/install/linux.html", st.Location.PagePath)
	assert.Equal(t, "Linux", st.Title)
	assert.Equal(t, toc.NewIDSet("guide/install-0", "guide/install/linux.html-1"), st.Expanded)
}

func TestFollowLinkNotNavigable(t *testing.T) {
	o, backend := newOrchestrator(t)

	for _, href := range []string{"https://example.com", "#top", "../../outside.html"} {
		err := o.FollowLink(t.Context(), href)
		assert.ErrorIs(t, err, navigation.ErrNotNavigable, href)
	}
	assert.Equal(t, 0, backend.TotalCalls("/api/"))
	assert.Equal(t, uint64(0), o.State().Generation)
}

func TestFollowLinkNotFoundKeepsLocation(t *testing.T) {
	o, _ := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))
	before := o.State()

	err := o.FollowLink(t.Context(), "v8help://BookA/intro.html")
	require.ErrorIs(t, err, resolve.ErrNotFound)

	st := o.State()
	assert.Equal(t, navigation.PhaseIdle, st.Phase)
	assert.Equal(t, before.URL, st.URL)
	assert.Equal(t, before.Location, st.Location)
	assert.Equal(t, before.Expanded, st.Expanded)
	require.NotNil(t, st.Notice)
	assert.Equal(t, navigation.NoticeLinkNotFound, st.Notice.Kind)
	assert.False(t, st.Notice.Retryable)
}

func TestFollowLinkChildLoadFailure(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.Fail("/api/toc/guide/install", http.StatusInternalServerError)

	require.NoError(t, o.FollowLink(t.Context(), linkLinux))

	st := o.State()
	assert.Equal(t, "guide/install/linux.html", st.Location.PagePath)
	assert.Equal(t, toc.NewIDSet("guide/install-0"), st.Expanded)
	assert.Contains(t, st.NodeErrors, toc.ID("guide/install-0"))
	assert.Len(t, st.NodeErrors, 1)
	assert.Nil(t, st.Notice)
}

func TestFollowLinkResolveFailureIsRetryable(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.Fail("/api/v8help/resolve", http.StatusBadGateway)

	err := o.FollowLink(t.Context(), linkAbs)
	require.Error(t, err)
	assert.True(t, client.IsTransport(err))
	st := o.State()
	require.NotNil(t, st.Notice)
	assert.Equal(t, navigation.NoticeResolveFailed, st.Notice.Kind)
	assert.True(t, st.Notice.Retryable)
	assert.True(t, st.Location.IsZero() || st.Location.PagePath == "")

	backend.Recover("/api/v8help/resolve")
	require.NoError(t, o.Retry(t.Context()))
	st = o.State()
	assert.Nil(t, st.Notice)
	assert.Equal(t, "ref/functions/abs.html", st.Location.PagePath)
}

func TestExpansionIsCommittedAtOnce(t *testing.T) {
	o, _ := newOrchestrator(t)

	var (
		mu        sync.Mutex
		snapshots []navigation.State
	)
	unsubscribe := o.Store().Subscribe(func(st navigation.State) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, st)
	})
	defer unsubscribe()

	require.NoError(t, o.FollowLink(t.Context(), linkLinux))

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snapshots)
	for _, st := range snapshots {
		switch len(st.Expanded) {
		case 0:
			assert.True(t, st.Location.IsZero() || st.Location.PagePath == "")
		case 2:
			assert.Equal(t, "guide/install/linux.html", st.Location.PagePath)
			assert.Equal(t, "Linux", st.Title)
		default:
			t.Errorf("partial expansion observed: %v", st.Expanded.Sorted())
		}
	}
	assert.Equal(t, navigation.PhaseIdle, snapshots[len(snapshots)-1].Phase)
}

func TestNewerNavigationSupersedes(t *testing.T) {
	o, backend := newOrchestrator(t)
	release := backend.Gate("/api/v8help/resolve")
	defer release()

	errs := make(chan error, 1)
	go func() {
		errs <- o.FollowLink(context.Background(), linkAbs)
	}()
	require.Eventually(t, func() bool {
		return backend.Calls("/api/v8help/resolve") == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, o.Navigate(t.Context(), locStart))
	release()

	select {
	case err := <-errs:
		require.Error(t, err)
		assert.True(t, navigation.IsCancellation(err))
		assert.ErrorIs(t, err, navigation.ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("superseded navigation did not return")
	}

	st := o.State()
	assert.Equal(t, locStart, st.Location)
	assert.Equal(t, toc.NewIDSet("guide/start.html-0"), st.Expanded)
	assert.Nil(t, st.Notice)
}

func TestNavigateHistory(t *testing.T) {
	o, backend := newOrchestrator(t)
	linux := navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/install/linux.html"}

	require.NoError(t, o.Navigate(t.Context(), locStart))
	st := o.State()
	assert.Equal(t, "Руководство", st.SectionTitle)
	assert.Equal(t, "Начало работы", st.Title)
	assert.Equal(t, toc.NewIDSet("guide/start.html-0"), st.Expanded)

	require.NoError(t, o.Navigate(t.Context(), linux))
	assert.Equal(t, toc.NewIDSet("guide/install-0", "guide/install/linux.html-1"), o.ExpandedNodes())
	assert.Equal(t, "Linux", o.State().Title)

	// back
	require.NoError(t, o.Navigate(t.Context(), locStart))
	assert.Equal(t, st.Expanded, o.ExpandedNodes())
	assert.Equal(t, st.URL, o.State().URL)

	// forward, the subtree is already loaded
	require.NoError(t, o.Navigate(t.Context(), linux))
	assert.Equal(t, 1, backend.Calls("/api/toc/guide"))
	assert.Equal(t, 1, backend.Calls("/api/toc/guide/install"))
	assert.Equal(t, 0, backend.TotalCalls("/api/v8help/"))
}

func TestNavigateMissingPage(t *testing.T) {
	o, _ := newOrchestrator(t)

	require.NoError(t, o.Navigate(t.Context(), navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/install/macos.html"}))

	st := o.State()
	assert.Equal(t, toc.NewIDSet("guide/install-0"), st.Expanded)
	assert.Equal(t, "Руководство", st.Title)
}

func TestNavigateUnknownSection(t *testing.T) {
	o, _ := newOrchestrator(t)

	err := o.Navigate(t.Context(), navigation.Location{Locale: "ru", SectionPath: "nope", PagePath: "nope/a.html"})
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
	st := o.State()
	require.NotNil(t, st.Notice)
	assert.Equal(t, navigation.NoticeTreeFailed, st.Notice.Kind)
	assert.False(t, st.Notice.Retryable)
}

func TestToggle(t *testing.T) {
	o, backend := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))
	id := toc.ID("guide/install-0")

	expanded, err := o.Toggle(t.Context(), id)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.True(t, o.IsNodeExpanded(id))
	assert.True(t, o.IsNodeExpanded("guide/start.html-0"))
	assert.Equal(t, 1, backend.Calls("/api/toc/guide/install"))

	expanded, err = o.Toggle(t.Context(), id)
	require.NoError(t, err)
	assert.False(t, expanded)
	assert.False(t, o.IsNodeExpanded(id))

	expanded, err = o.Toggle(t.Context(), id)
	require.NoError(t, err)
	assert.True(t, expanded)
	assert.Equal(t, 1, backend.Calls("/api/toc/guide/install"))
	assert.Equal(t, locStart, o.Location())
}

func TestToggleFailureMarksNodeOnly(t *testing.T) {
	o, backend := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))
	backend.Fail("/api/toc/guide/install", http.StatusInternalServerError)
	id := toc.ID("guide/install-0")

	expanded, err := o.Toggle(t.Context(), id)
	require.Error(t, err)
	assert.True(t, expanded)
	st := o.State()
	assert.Contains(t, st.NodeErrors, id)
	assert.Nil(t, st.Notice)
	assert.Equal(t, locStart, st.Location)

	// collapsing and opening again retries the load
	backend.Recover("/api/toc/guide/install")
	_, err = o.Toggle(t.Context(), id)
	require.NoError(t, err)
	_, err = o.Toggle(t.Context(), id)
	require.NoError(t, err)
	assert.NotContains(t, o.State().NodeErrors, id)
	assert.Equal(t, 2, backend.Calls("/api/toc/guide/install"))
}

func TestSetLocale(t *testing.T) {
	o, _ := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))

	require.NoError(t, o.SetLocale("EN"))

	st := o.State()
	assert.Equal(t, "en", st.Locale)
	assert.Empty(t, st.Expanded)
	assert.Equal(t, navigation.Location{Locale: "en"}, st.Location)
	assert.Equal(t, "/en", st.URL)
	assert.Nil(t, st.Content)

	require.NoError(t, o.Navigate(t.Context(), navigation.Location{SectionPath: "guide", PagePath: "guide/start.html"}))
	assert.Equal(t, "Getting started", o.State().Title)

	err := o.SetLocale("not a locale")
	require.ErrorIs(t, err, navigation.ErrInvalidLocale)
	assert.Equal(t, "en", o.State().Locale)
}

func TestNavigateSwitchesLocale(t *testing.T) {
	o, _ := newOrchestrator(t)
	require.NoError(t, o.Navigate(t.Context(), locStart))

	require.NoError(t, o.Navigate(t.Context(), navigation.Location{Locale: "en", SectionPath: "guide", PagePath: "guide/start.html"}))

	st := o.State()
	assert.Equal(t, "en", st.Locale)
	assert.Equal(t, "Getting started", st.Title)
	assert.Equal(t, "Guide", st.SectionTitle)
}

func TestLoadContent(t *testing.T) {
	o, _ := newOrchestrator(t)

	_, err := o.LoadContent(t.Context())
	require.ErrorIs(t, err, navigation.ErrNoPage)

	require.NoError(t, o.Navigate(t.Context(), locStart))
	content, err := o.LoadContent(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "guide/start.html", content.PagePath)
	assert.Contains(t, content.HTML, "Начало работы")
	kinds := make([]resolve.LinkKind, 0, len(content.Links))
	for _, link := range content.Links {
		kinds = append(kinds, link.Kind)
	}
	assert.Equal(t, []resolve.LinkKind{resolve.LinkPage, resolve.LinkScheme, resolve.LinkScheme, resolve.LinkExternal}, kinds)

	st := o.State()
	assert.False(t, st.Loading)
	assert.Equal(t, content, st.Content)
}

func TestLoadContentFailureAndRetry(t *testing.T) {
	o, backend := newOrchestrator(t)
	const contentPath = "/api/content/guide/install/linux.html"
	require.NoError(t, o.Navigate(t.Context(), locStart))
	_, err := o.LoadContent(t.Context())
	require.NoError(t, err)

	backend.Fail(contentPath, http.StatusBadGateway)
	require.NoError(t, o.FollowLink(t.Context(), "install/linux.html"))
	_, err = o.LoadContent(t.Context())
	require.Error(t, err)

	st := o.State()
	assert.False(t, st.Loading)
	assert.Nil(t, st.Content)
	require.NotNil(t, st.Notice)
	assert.Equal(t, navigation.NoticeContentFailed, st.Notice.Kind)
	assert.True(t, st.Notice.Retryable)

	backend.Recover(contentPath)
	require.NoError(t, o.Retry(t.Context()))
	st = o.State()
	assert.Nil(t, st.Notice)
	require.NotNil(t, st.Content)
	assert.Equal(t, "guide/install/linux.html", st.Content.PagePath)
	assert.Equal(t, 2, backend.Calls(contentPath))
}

func TestRetryWithoutNotice(t *testing.T) {
	o, backend := newOrchestrator(t)
	require.NoError(t, o.Retry(t.Context()))
	assert.Equal(t, 0, backend.TotalCalls("/api/"))
}

func TestIsCancellation(t *testing.T) {
	assert.True(t, navigation.IsCancellation(navigation.ErrSuperseded))
	assert.True(t, navigation.IsCancellation(errors.Wrap(context.Canceled, "load")))
	assert.True(t, navigation.IsCancellation(context.DeadlineExceeded))
	assert.False(t, navigation.IsCancellation(resolve.ErrNotFound))
	assert.False(t, navigation.IsCancellation(nil))
}
