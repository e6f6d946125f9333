package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barscout/barscout-cli/internal/model"
)

func TestDefaultCocktailPolicy_Allows(t *testing.T) {
	p := DefaultCocktailPolicy()
	tests := []struct {
		name  string
		drink model.Cocktail
		want  bool
	}{
		{"classic by name", model.Cocktail{Name: "Smoked Old Fashioned", Ingredients: []string{"bourbon"}}, true},
		{"classic beats coffee", model.Cocktail{Name: "Espresso Martini", Ingredients: []string{"vodka", "espresso"}}, true},
		{"beer", model.Cocktail{Name: "Hazy IPA", Ingredients: []string{"hops"}}, false},
		{"wine by the glass", model.Cocktail{Name: "Pinot Noir", Ingredients: []string{"grapes"}}, false},
		{"food", model.Cocktail{Name: "Crispy Brussels", Ingredients: []string{"brussels sprouts"}, SpecialNotes: strPtr("shareable appetizer")}, false},
		{"spirit ingredient", model.Cocktail{Name: "Paper Plane", Ingredients: []string{"Bourbon", "Aperol", "Amaro Nonino", "lemon"}}, true},
		{"unknown is kept", model.Cocktail{Name: "Garden Party", Ingredients: []string{"seedlip", "cucumber"}}, true},
		{"whole words only", model.Cocktail{Name: "Teardrop", Ingredients: []string{"pisco", "ginger"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allows(tt.drink))
		})
	}
}

func TestCocktailPolicy_FirstMatchWins(t *testing.T) {
	p := &CocktailPolicy{Rules: []Rule{
		{Name: "house", Action: Include, Scope: ScopeName, Keywords: []string{"house"}},
		{Name: "no beer", Action: Exclude, Scope: ScopeAll, Keywords: []string{"beer"}},
	}}
	assert.True(t, p.Allows(model.Cocktail{Name: "House Beer Cocktail"}))
	assert.False(t, p.Allows(model.Cocktail{Name: "Shandy", Ingredients: []string{"ginger beer"}}))
}

func TestCocktailPolicy_Filter(t *testing.T) {
	got := DefaultCocktailPolicy().Filter([]model.Cocktail{
		{Name: "Negroni", Ingredients: []string{"gin"}},
		{Name: "Draft Lager", Ingredients: []string{"malt"}},
		{Name: "Daiquiri", Ingredients: []string{"rum"}},
	})
	assert.Len(t, got, 2)
	assert.Equal(t, "Daiquiri", got[1].Name)
	assert.Empty(t, DefaultCocktailPolicy().Filter(nil))
}

func TestWordText(t *testing.T) {
	assert.Equal(t, " gin tonic ", wordText("Gin & Tonic!"))
	assert.Equal(t, "", wordText("  -- "))
}
