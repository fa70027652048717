package navigation_test

import (
	"testing"

	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreCommitRequiresLatestGeneration(t *testing.T) {
	s := navigation.NewStore("ru")
	var notified int
	unsubscribe := s.Subscribe(func(navigation.State) { notified++ })
	defer unsubscribe()

	first := s.Begin(navigation.PhaseResolvingLink)
	second := s.Begin(navigation.PhaseExpandingPath)
	assert.Equal(t, 2, notified)

	err := s.Commit(first, navigation.Commit{Location: locStart, Expanded: toc.NewIDSet("guide/start.html-0")})
	require.ErrorIs(t, err, navigation.ErrSuperseded)
	assert.Equal(t, 2, notified)
	assert.True(t, s.State().Location.IsZero() || s.State().Location.PagePath == "")

	require.NoError(t, s.Commit(second, navigation.Commit{
		Location:   locStart,
		Title:      "Начало работы",
		Expanded:   toc.NewIDSet("guide/start.html-0"),
		NodeErrors: map[toc.ID]error{"guide/x-1": errors.New("boom")},
	}))
	st := s.State()
	assert.Equal(t, 3, notified)
	assert.Equal(t, navigation.PhaseIdle, st.Phase)
	assert.Equal(t, "/ru/guide/guide/start.html", st.URL)
	assert.Equal(t, map[toc.ID]string{"guide/x-1": "boom"}, st.NodeErrors)
	assert.True(t, s.IsNodeExpanded("guide/start.html-0"))
}

func TestStoreStateIsACopy(t *testing.T) {
	s := navigation.NewStore("ru")
	st := s.State()
	st.Expanded.Add("guide-0")
	assert.False(t, s.IsNodeExpanded("guide-0"))

	ids := s.ExpandedNodes()
	ids.Add("guide-0")
	assert.False(t, s.IsNodeExpanded("guide-0"))
}

func TestStoreToggleNodeKeepsGeneration(t *testing.T) {
	s := navigation.NewStore("ru")
	gen := s.Begin(navigation.PhaseExpandingPath)

	assert.True(t, s.ToggleNode("guide-0"))
	assert.True(t, s.IsNodeExpanded("guide-0"))
	assert.False(t, s.ToggleNode("guide-0"))
	assert.Equal(t, gen, s.Generation())
	require.NoError(t, s.ReplaceExpanded(gen, toc.NewIDSet("ref-0")))
	assert.Equal(t, toc.NewIDSet("ref-0"), s.ExpandedNodes())
}

func TestStoreSetLocaleSupersedes(t *testing.T) {
	s := navigation.NewStore("ru")
	require.NoError(t, s.Commit(s.Begin(navigation.PhaseExpandingPath), navigation.Commit{Location: locStart}))
	gen := s.Begin(navigation.PhaseResolvingLink)
	content, _, err := s.BeginContent()
	require.NoError(t, err)
	s.ToggleNode("guide-0")

	s.SetLocale("en")

	require.ErrorIs(t, s.Commit(gen, navigation.Commit{Location: locStart}), navigation.ErrSuperseded)
	require.ErrorIs(t, s.SetContent(content, &navigation.Content{PagePath: "guide/start.html"}, nil), navigation.ErrSuperseded)
	st := s.State()
	assert.Equal(t, "en", st.Locale)
	assert.Empty(t, st.Expanded)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Content)
}

func TestStoreFailKeepsLastGoodState(t *testing.T) {
	s := navigation.NewStore("ru")
	gen := s.Begin(navigation.PhaseExpandingPath)
	require.NoError(t, s.Commit(gen, navigation.Commit{Location: locStart, Expanded: toc.NewIDSet("guide/start.html-0")}))

	gen = s.Begin(navigation.PhaseResolvingLink)
	require.NoError(t, s.Fail(gen, navigation.Notice{Kind: navigation.NoticeLinkNotFound, Message: "link target not found"}))

	st := s.State()
	assert.Equal(t, locStart, st.Location)
	assert.Equal(t, toc.NewIDSet("guide/start.html-0"), st.Expanded)
	require.NotNil(t, st.Notice)
	assert.Equal(t, navigation.NoticeLinkNotFound, st.Notice.Kind)

	s.SetNotice(nil)
	assert.Nil(t, s.State().Notice)
}

func TestStoreRestore(t *testing.T) {
	s := navigation.NewStore("ru")
	s.Restore(navigation.State{
		Locale:   "ru",
		Location: locStart,
		Title:    "Начало работы",
		Expanded: toc.NewIDSet("guide/start.html-0"),
		Phase:    navigation.PhaseResolvingLink,
		Loading:  true,
	})

	st := s.State()
	assert.Equal(t, navigation.PhaseIdle, st.Phase)
	assert.False(t, st.Loading)
	assert.Equal(t, "/ru/guide/guide/start.html", st.URL)
	assert.Equal(t, uint64(1), st.Generation)
	assert.True(t, s.IsNodeExpanded("guide/start.html-0"))
}

func TestStoreCommitRejectsOtherLocale(t *testing.T) {
	s := navigation.NewStore("ru")
	s.SetLocale("en")
	gen := s.Begin(navigation.PhaseExpandingPath)

	err := s.Commit(gen, navigation.Commit{Location: locStart, Expanded: toc.NewIDSet("guide/start.html-0")})
	require.ErrorIs(t, err, navigation.ErrSuperseded)
	st := s.State()
	assert.Equal(t, "en", st.Locale)
	assert.Equal(t, navigation.Location{Locale: "en"}, st.Location)
	assert.Empty(t, st.Expanded)
}

func TestStoreContentFollowsSelection(t *testing.T) {
	s := navigation.NewStore("ru")
	_, _, err := s.BeginContent()
	require.ErrorIs(t, err, navigation.ErrNoPage)

	require.NoError(t, s.Commit(s.Begin(navigation.PhaseExpandingPath), navigation.Commit{Location: locStart}))
	gen, loc, err := s.BeginContent()
	require.NoError(t, err)
	assert.Equal(t, locStart, loc)

	linux := navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/install/linux.html"}
	require.NoError(t, s.Commit(s.Begin(navigation.PhaseExpandingPath), navigation.Commit{Location: linux}))

	err = s.SetContent(gen, &navigation.Content{PagePath: loc.PagePath}, nil)
	require.ErrorIs(t, err, navigation.ErrSuperseded)
	st := s.State()
	assert.Equal(t, linux, st.Location)
	assert.Nil(t, st.Content)
}

func TestStoreSetContentRejectsOtherPage(t *testing.T) {
	s := navigation.NewStore("ru")
	require.NoError(t, s.Commit(s.Begin(navigation.PhaseExpandingPath), navigation.Commit{Location: locStart}))
	gen, _, err := s.BeginContent()
	require.NoError(t, err)

	err = s.SetContent(gen, &navigation.Content{PagePath: "guide/install/linux.html"}, nil)
	require.ErrorIs(t, err, navigation.ErrSuperseded)
	require.NoError(t, s.SetContent(gen, &navigation.Content{PagePath: locStart.PagePath}, nil))
	assert.Equal(t, locStart.PagePath, s.State().Content.PagePath)
}
