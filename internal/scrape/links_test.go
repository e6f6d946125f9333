package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkClassifier_IsMenuCandidate(t *testing.T) {
	t.Parallel()
	c := NewLinkClassifier(nil, nil)

	tests := []struct {
		name string
		a    Anchor
		want bool
	}{
		{"menu path", Anchor{Href: "https://bar.example/menu"}, true},
		{"nested drinks path", Anchor{Href: "https://bar.example/en/drinks/spring"}, true},
		{"cocktails path upper case", Anchor{Href: "https://bar.example/COCKTAILS"}, true},
		{"food-and-drink path", Anchor{Href: "https://bar.example/food-and-drink"}, true},
		{"libations path", Anchor{Href: "https://bar.example/libations"}, true},
		{"bar path", Anchor{Href: "https://bar.example/the-bar"}, false},
		{"bar segment", Anchor{Href: "https://bar.example/bar"}, true},
		{"menu text", Anchor{Href: "https://bar.example/p/12", Text: "Our MENU"}, true},
		{"cocktail text", Anchor{Href: "https://bar.example/p/13", Text: "Cocktail list"}, true},
		{"drinks text", Anchor{Href: "https://bar.example/p/14", Text: "Drinks"}, true},
		{"unrelated", Anchor{Href: "https://bar.example/about", Text: "About us"}, false},
		{"host name is not path", Anchor{Href: "https://menu.example/about"}, false},
		{"excluded careers", Anchor{Href: "https://bar.example/careers/bar-manager", Text: "Bar manager"}, false},
		{"excluded press root", Anchor{Href: "https://bar.example/press", Text: "Menu press"}, false},
		{"excluded jobs deep", Anchor{Href: "https://bar.example/jobs/a/b/menu"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, c.IsMenuCandidate(tt.a))
		})
	}
}

func TestLinkClassifier_IsPDF(t *testing.T) {
	t.Parallel()
	c := NewLinkClassifier(nil, nil)

	assert.True(t, c.IsPDF("https://bar.example/menu.pdf"))
	assert.True(t, c.IsPDF("https://bar.example/files/Menu.PDF?v=3"))
	assert.False(t, c.IsPDF("https://bar.example/pdf-menus"))
	assert.False(t, c.IsPDF("https://bar.example/menu"))
}

func TestLinkClassifier_IsExternalMenu(t *testing.T) {
	t.Parallel()
	c := NewLinkClassifier(nil, nil)

	assert.True(t, c.IsExternalMenu("https://www.toasttab.com/canon/v3"))
	assert.True(t, c.IsExternalMenu("https://resy.com/cities/sea/canon"))
	assert.True(t, c.IsExternalMenu("https://canon-bar.square.site/"))
	assert.True(t, c.IsExternalMenu("https://www.exploretock.com/canon"))
	assert.False(t, c.IsExternalMenu("https://notresy.com/x"))
	assert.False(t, c.IsExternalMenu("https://bar.example/?ref=opentable.com"))

	custom := NewLinkClassifier(nil, []string{".bentobox.com"})
	assert.True(t, custom.IsExternalMenu("https://canon.bentobox.com/menus"))
	assert.False(t, custom.IsExternalMenu("https://www.toasttab.com/canon"))
}

func TestLinkClassifier_Candidates(t *testing.T) {
	t.Parallel()
	c := NewLinkClassifier([]string{"/events/*"}, nil)

	anchors := []Anchor{
		{Href: "https://bar.example/", Text: "Home menu"},
		{Href: "https://bar.example/menu"},
		{Href: "https://bar.example/events/menu-launch"},
		{Href: "https://bar.example/menu", Text: "Menu again"},
		{Href: "https://bar.example/drinks"},
		{Href: "https://bar.example/menu/spring.pdf", Text: "Spring menu"},
		{Href: "https://bar.example/about"},
		{Href: "https://bar.example/cocktails"},
	}

	assert.Equal(t, []string{
		"https://bar.example/menu",
		"https://bar.example/drinks",
		"https://bar.example/cocktails",
	}, c.Candidates(anchors, 0, "https://bar.example"))

	assert.Equal(t, []string{"https://bar.example/menu", "https://bar.example/drinks"},
		c.Candidates(anchors, 2, "https://bar.example/"))
}
