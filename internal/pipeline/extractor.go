package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/structured"
)

const cocktailInstruction = `You are a cocktail menu parser. Parse the raw text below into structured cocktail data.
Focus only on actual cocktail menu items. Ignore navigation, website chrome, opening hours and events.
Exclude food items, wines, beers and other non-cocktail beverages.
Only include items that are clearly cocktails with both a name and ingredients.
Copy the price exactly as printed. If a price or any other field is not explicitly present in the text, use null.`

// ListExtractor is the structured-extraction capability.
type ListExtractor interface {
	ExtractList(ctx context.Context, instruction, source string, schema structured.Schema, out any) error
}

// PDFTextFetcher downloads a PDF menu and returns its text.
type PDFTextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// ExtractorConfig bounds menu extraction.
type ExtractorConfig struct {
	MaxChars    int
	MaxPDFMenus int
}

// MenuExtractor turns a raw crawl result into structured cocktails. It owns
// every semantic decision about what counts as a cocktail.
type MenuExtractor struct {
	llm    ListExtractor
	pdfs   PDFTextFetcher
	policy *CocktailPolicy
	cfg    ExtractorConfig
	now    func() time.Time
}

// NewMenuExtractor creates a MenuExtractor. pdfs may be nil to skip PDF
// menus; a nil policy uses DefaultCocktailPolicy.
func NewMenuExtractor(llm ListExtractor, pdfs PDFTextFetcher, policy *CocktailPolicy, cfg ExtractorConfig) *MenuExtractor {
	if policy == nil {
		policy = DefaultCocktailPolicy()
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 12000
	}
	return &MenuExtractor{llm: llm, pdfs: pdfs, policy: policy, cfg: cfg, now: time.Now}
}

// ProcessMenuData structures raw. It never fails: extraction problems leave
// the URL, PDF and link fields intact with no cocktails and an
// ExtractionError note.
func (e *MenuExtractor) ProcessMenuData(ctx context.Context, raw *model.MenuResult) *model.ProcessedMenu {
	out := &model.ProcessedMenu{
		MenuURLs:          nonNil(raw.MenuPages),
		PDFMenus:          nonNil(raw.PDFMenus),
		ExternalMenuLinks: nonNil(raw.ExternalMenuLinks),
		Cocktails:         []model.Cocktail{},
		ProcessedAt:       e.now().UTC(),
	}
	log := zap.L().With(zap.String("bar", raw.BarID))

	source := e.sourceText(ctx, raw)
	if strings.TrimSpace(source) == "" {
		log.Info("extractor: no menu text to extract")
		return out
	}
	if utf8.RuneCountInString(source) > e.cfg.MaxChars {
		log.Debug("extractor: truncating menu text",
			zap.Int("chars", utf8.RuneCountInString(source)), zap.Int("max_chars", e.cfg.MaxChars))
		source = string([]rune(source)[:e.cfg.MaxChars])
	}

	var items []model.Cocktail
	if err := e.llm.ExtractList(ctx, cocktailInstruction, source, structured.CocktailSchema, &items); err != nil {
		log.Warn("extractor: structured extraction failed", zap.Error(err))
		out.ExtractionError = err.Error()
		return out
	}

	out.Cocktails = e.policy.Filter(groundCocktails(items, source))
	log.Info("extractor: cocktails extracted",
		zap.Int("returned", len(items)), zap.Int("kept", len(out.Cocktails)))
	return out
}

// sourceText joins the page texts and the text of up to MaxPDFMenus PDFs.
func (e *MenuExtractor) sourceText(ctx context.Context, raw *model.MenuResult) string {
	parts := []string{raw.RawText()}
	if e.pdfs == nil {
		return parts[0]
	}
	for i, url := range raw.PDFMenus {
		if i >= e.cfg.MaxPDFMenus {
			break
		}
		text, err := e.pdfs.FetchText(ctx, url)
		if err != nil {
			zap.L().Warn("extractor: pdf menu skipped", zap.String("bar", raw.BarID), zap.String("pdf", url), zap.Error(err))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// groundCocktails normalizes model output against the source text. Items
// without a name or ingredients are dropped and prices that do not appear in
// source as a price-shaped token are nulled.
func groundCocktails(items []model.Cocktail, source string) []model.Cocktail {
	sourcePrices := priceTokensIn(source)
	lowerSource := strings.ToLower(source)

	out := make([]model.Cocktail, 0, len(items))
	for _, c := range items {
		c.Name = strings.TrimSpace(c.Name)
		var ingredients []string
		for _, ing := range c.Ingredients {
			if ing = strings.TrimSpace(ing); ing != "" {
				ingredients = append(ingredients, ing)
			}
		}
		c.Ingredients = ingredients
		if c.Name == "" || len(c.Ingredients) == 0 {
			continue
		}

		c.Price = trimmedOrNil(c.Price)
		if c.Price != nil && !priceGrounded(*c.Price, sourcePrices, lowerSource) {
			c.Price = nil
		}
		c.SpecialNotes = trimmedOrNil(c.SpecialNotes)
		out = append(out, c)
	}
	return out
}

var (
	numberPattern     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	priceTokenPattern = regexp.MustCompile(`\d{1,3}(?:[.,]\d{1,2})?`)
)

// numbersIn returns every number in s.
func numbersIn(s string) map[float64]bool {
	set := make(map[float64]bool)
	for _, m := range numberPattern.FindAllString(s, -1) {
		if f, err := parseAmount(m); err == nil {
			set[f] = true
		}
	}
	return set
}

// priceTokensIn returns the amounts in s that could be menu prices: one to
// three digits with optional decimals, not part of a word, a longer number,
// a time, a date or a phone number. "12am", "2012" and "5:30" yield nothing.
func priceTokensIn(s string) map[float64]bool {
	set := make(map[float64]bool)
	for _, loc := range priceTokenPattern.FindAllStringIndex(s, -1) {
		if !standsAlone(s, loc[0], loc[1]) {
			continue
		}
		if f, err := parseAmount(s[loc[0]:loc[1]]); err == nil {
			set[f] = true
		}
	}
	return set
}

// standsAlone reports whether s[start:end] is not glued to letters, digits
// or a number separator followed by more digits.
func standsAlone(s string, start, end int) bool {
	if start > 0 {
		prev, size := utf8.DecodeLastRuneInString(s[:start])
		if unicode.IsLetter(prev) || unicode.IsDigit(prev) {
			return false
		}
		if isNumberJoiner(prev) && start > size {
			if before, _ := utf8.DecodeLastRuneInString(s[:start-size]); unicode.IsDigit(before) {
				return false
			}
		}
	}
	if end < len(s) {
		next, size := utf8.DecodeRuneInString(s[end:])
		if unicode.IsLetter(next) || unicode.IsDigit(next) {
			return false
		}
		if isNumberJoiner(next) && end+size < len(s) {
			if after, _ := utf8.DecodeRuneInString(s[end+size:]); unicode.IsDigit(after) {
				return false
			}
		}
	}
	return true
}

func isNumberJoiner(r rune) bool {
	return r == '.' || r == ',' || r == ':' || r == '-'
}

func parseAmount(m string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
}

// priceGrounded reports whether every number in price occurs among the price
// tokens of the source. A price without digits must appear verbatim.
func priceGrounded(price string, sourcePrices map[float64]bool, lowerSource string) bool {
	nums := numbersIn(price)
	if len(nums) == 0 {
		return strings.Contains(lowerSource, strings.ToLower(price))
	}
	for n := range nums {
		if !sourcePrices[n] {
			return false
		}
	}
	return true
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func nonNil(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
