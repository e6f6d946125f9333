package pipeline

import (
	"strings"
	"unicode"

	"github.com/barscout/barscout-cli/internal/model"
)

// Action is the verdict of a matching policy rule.
type Action int

const (
	Include Action = iota
	Exclude
)

// Scope selects which cocktail fields a rule inspects.
type Scope int

const (
	ScopeName Scope = iota
	ScopeIngredients
	ScopeAll
)

// Rule matches when any keyword occurs as a whole word or phrase in the
// scoped fields.
type Rule struct {
	Name     string
	Action   Action
	Scope    Scope
	Keywords []string
}

// CocktailPolicy decides which extracted items are cocktails. Rules are
// evaluated in order and the first match wins; items no rule matches are
// included.
type CocktailPolicy struct {
	Rules []Rule
}

// DefaultCocktailPolicy keeps named classics, drops food, beer, wine and
// coffee, and keeps anything else.
func DefaultCocktailPolicy() *CocktailPolicy {
	return &CocktailPolicy{Rules: []Rule{
		{
			Name:   "classic",
			Action: Include,
			Scope:  ScopeName,
			Keywords: []string{
				"martini", "negroni", "manhattan", "margarita", "old fashioned",
				"mojito", "daiquiri", "spritz", "sour", "julep", "sazerac", "cocktail",
			},
		},
		{
			Name:   "food",
			Action: Exclude,
			Scope:  ScopeAll,
			Keywords: []string{
				"appetizer", "appetizers", "entree", "entrees", "pasta", "pizza",
				"burger", "fries", "salad", "sandwich", "dessert", "oysters",
			},
		},
		{
			Name:   "beer-wine-coffee",
			Action: Exclude,
			Scope:  ScopeName,
			Keywords: []string{
				"beer", "beers", "draft", "draught", "ipa", "lager", "pilsner", "stout",
				"wine", "wines", "cabernet", "chardonnay", "pinot", "rosé", "prosecco",
				"champagne", "coffee", "espresso", "tea", "pitcher", "bottle", "bottles",
			},
		},
		{
			Name:   "spirit-ingredient",
			Action: Include,
			Scope:  ScopeIngredients,
			Keywords: []string{
				"vodka", "gin", "rum", "tequila", "mezcal", "whiskey", "whisky", "bourbon",
				"rye", "scotch", "brandy", "cognac", "vermouth", "amaro", "bitters", "liqueur",
			},
		},
	}}
}

// Allows reports whether c passes the policy.
func (p *CocktailPolicy) Allows(c model.Cocktail) bool {
	name := wordText(c.Name)
	ingredients := wordText(strings.Join(c.Ingredients, " "))
	notes := ""
	if c.SpecialNotes != nil {
		notes = wordText(*c.SpecialNotes)
	}

	for _, r := range p.Rules {
		var hay string
		switch r.Scope {
		case ScopeName:
			hay = name
		case ScopeIngredients:
			hay = ingredients
		default:
			hay = name + ingredients + notes
		}
		for _, kw := range r.Keywords {
			if strings.Contains(hay, wordText(kw)) {
				return r.Action == Include
			}
		}
	}
	return true
}

// Filter returns the cocktails the policy allows, in order.
func (p *CocktailPolicy) Filter(in []model.Cocktail) []model.Cocktail {
	out := make([]model.Cocktail, 0, len(in))
	for _, c := range in {
		if p.Allows(c) {
			out = append(out, c)
		}
	}
	return out
}

// wordText lower-cases s and reduces it to space-delimited words with a
// leading and trailing space, so keyword checks match whole words only.
func wordText(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return " " + strings.Join(fields, " ") + " "
}
