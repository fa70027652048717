package navigation_test

import (
	"testing"

	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationString(t *testing.T) {
	tests := []struct {
		name string
		loc  navigation.Location
		want string
	}{
		{name: "empty", loc: navigation.Location{}, want: "/"},
		{name: "locale", loc: navigation.Location{Locale: "ru"}, want: "/ru"},
		{name: "page", loc: locStart, want: "/ru/guide/guide/start.html"},
		{name: "nested section", loc: navigation.Location{Locale: "ru", SectionPath: "a/b", PagePath: "a/b/c d.html"}, want: "/ru/a%2Fb/a/b/c%20d.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.loc.String())
		})
	}
}

func TestParseLocation(t *testing.T) {
	for _, loc := range []navigation.Location{
		{Locale: "ru"},
		locStart,
		{Locale: "ru", SectionPath: "a/b", PagePath: "a/b/c d.html"},
		{Locale: "en", SectionPath: "Справочник", PagePath: "Справочник/Функции.html"},
	} {
		parsed, err := navigation.ParseLocation(loc.String())
		require.NoError(t, err)
		assert.Equal(t, loc, parsed)
	}

	parsed, err := navigation.ParseLocation("http://localhost:8080/ru/guide/guide/start.html?x=1")
	require.NoError(t, err)
	assert.Equal(t, locStart, parsed)

	_, err = navigation.ParseLocation("/")
	require.Error(t, err)
}

func TestLocationSegments(t *testing.T) {
	assert.Nil(t, navigation.Location{Locale: "ru", SectionPath: "guide"}.Segments())
	assert.Equal(t, []string{"guide/start.html"}, locStart.Segments())
	assert.Equal(t,
		[]string{"guide/install", "guide/install/linux.html"},
		navigation.Location{Locale: "ru", SectionPath: "guide", PagePath: "guide/install/linux.html"}.Segments(),
	)
	assert.Equal(t,
		[]string{"a/b/c", "a/b/c/d.html"},
		navigation.Location{Locale: "ru", SectionPath: "a/b", PagePath: "a/b/c/d.html"}.Segments(),
	)
	assert.Equal(t,
		[]string{"guide", "guide/start.html"},
		navigation.Location{Locale: "ru", PagePath: "guide/start.html"}.Segments(),
	)
}
