package pipeline

import (
	"math/rand/v2"
	"strings"

	"github.com/rotisserie/eris"
)

// QueryTemplates are the search phrasings. {city} is replaced by the city.
var QueryTemplates = []string{
	"best craft cocktail bars in {city}",
	"hidden speakeasy bars {city}",
	"craft cocktail bar {city}",
	"best craft cocktail bars {city} mixology",
	"award winning cocktail bars {city}",
}

// maxExcludedNames bounds the negative terms appended to a query.
const maxExcludedNames = 5

// TemplateStrategy picks the index of the template for the next query.
type TemplateStrategy interface {
	Next(n int) int
}

// Resumer is implemented by strategies that continue from the number of
// research passes already run for a city.
type Resumer interface {
	Resume(passes int)
}

// RotatingStrategy cycles through the templates in order.
type RotatingStrategy struct {
	next int
}

// Resume makes the next pick the template for pass number passes.
func (s *RotatingStrategy) Resume(passes int) {
	if passes < 0 {
		passes = 0
	}
	s.next = passes
}

func (s *RotatingStrategy) Next(n int) int {
	i := s.next % n
	s.next++
	return i
}

// RandomStrategy picks templates from a seeded source.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy creates a RandomStrategy seeded with seed.
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomStrategy) Next(n int) int { return s.rng.IntN(n) }

// FixedStrategy always picks the same template.
type FixedStrategy struct {
	Index int
}

func (s FixedStrategy) Next(n int) int {
	if s.Index < 0 {
		return 0
	}
	return s.Index % n
}

// NewStrategy resolves a strategy by name: rotating, random or fixed. A zero
// seed makes random draw a fresh seed per process.
func NewStrategy(name string, seed uint64, fixed int) (TemplateStrategy, error) {
	switch name {
	case "rotating", "":
		return &RotatingStrategy{}, nil
	case "random":
		if seed == 0 {
			seed = rand.Uint64()
		}
		return NewRandomStrategy(seed), nil
	case "fixed":
		return FixedStrategy{Index: fixed}, nil
	default:
		return nil, eris.Errorf("pipeline: unknown query strategy %q", name)
	}
}

// QueryGenerator builds search queries for bar discovery.
type QueryGenerator struct {
	templates []string
	strategy  TemplateStrategy
}

// NewQueryGenerator creates a generator. A nil strategy rotates.
func NewQueryGenerator(strategy TemplateStrategy) *QueryGenerator {
	if strategy == nil {
		strategy = &RotatingStrategy{}
	}
	return &QueryGenerator{templates: QueryTemplates, strategy: strategy}
}

// Resume forwards the number of earlier passes for a city to the strategy
// when it can use it.
func (g *QueryGenerator) Resume(passes int) {
	if r, ok := g.strategy.(Resumer); ok {
		r.Resume(passes)
	}
}

// Generate returns a query for city. The first five non-empty excluded names
// are appended as -"name" terms.
func (g *QueryGenerator) Generate(city string, excluded []string) string {
	tmpl := g.templates[g.strategy.Next(len(g.templates))]
	q := strings.ReplaceAll(tmpl, "{city}", strings.TrimSpace(city))

	n := 0
	for _, name := range excluded {
		if n == maxExcludedNames {
			break
		}
		name = strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
		if name == "" {
			continue
		}
		q += ` -"` + name + `"`
		n++
	}
	return q
}
