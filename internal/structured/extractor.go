package structured

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/barscout/barscout-cli/internal/model"
	"github.com/barscout/barscout-cli/internal/resilience"
)

// ErrMalformedOutput means the model reply was not a JSON array of objects.
var ErrMalformedOutput = eris.New("malformed structured output")

// UsageTracker records LLM calls. *cost.Ledger satisfies it.
type UsageTracker interface {
	TrackLLM(prompt, response string) model.APICall
}

const systemPrompt = "You extract structured data from raw text. Use only facts stated explicitly in the text. " +
	"When a field is not stated, use null. Never invent values."

// Extractor runs schema-constrained extraction over a Completer.
type Extractor struct {
	completer   Completer
	tracker     UsageTracker
	temperature float64
	maxTokens   int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTracker records every completion on t.
func WithTracker(t UsageTracker) Option {
	return func(e *Extractor) { e.tracker = t }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) Option {
	return func(e *Extractor) { e.temperature = temp }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(e *Extractor) { e.maxTokens = n }
}

// NewExtractor creates an Extractor over c.
func NewExtractor(c Completer, opts ...Option) *Extractor {
	e := &Extractor{completer: c, maxTokens: 2048}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExtractList asks the model for a JSON array of schema objects found in
// source and decodes it into out, which must point to a slice. Failures are
// tagged resilience.KindExtraction.
func (e *Extractor) ExtractList(ctx context.Context, instruction, source string, schema Schema, out any) error {
	prompt := instruction + "\n\n" + schema.Describe() + "\n\nSource text:\n" + source

	comp, err := e.completer.Complete(ctx, CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
	})
	if err != nil {
		return resilience.Wrap(resilience.KindExtraction, eris.Wrap(err, "structured: complete"))
	}
	if e.tracker != nil {
		e.tracker.TrackLLM(systemPrompt+"\n"+prompt, comp.Text)
	}

	return decodeItems(cleanJSONArray(comp.Text), out)
}

// decodeItems decodes a JSON array into the slice out points to, one element
// at a time. Elements that do not fit the element type are logged and
// dropped; the reply is malformed only when it is not an array or when no
// element survives.
func decodeItems(body string, out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.Elem().Kind() != reflect.Slice {
		return eris.Errorf("structured: decode target must point to a slice, got %T", out)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal([]byte(body), &raws); err != nil {
		return resilience.Wrap(resilience.KindExtraction,
			eris.Wrapf(ErrMalformedOutput, "structured: decode reply: %v", err))
	}

	sliceType := dst.Elem().Type()
	items := reflect.MakeSlice(sliceType, 0, len(raws))
	var lastErr error
	for i, raw := range raws {
		item := reflect.New(sliceType.Elem())
		if err := json.Unmarshal(raw, item.Interface()); err != nil {
			zap.L().Warn("structured: dropping malformed item", zap.Int("index", i), zap.Error(err))
			lastErr = err
			continue
		}
		items = reflect.Append(items, item.Elem())
	}
	if len(raws) > 0 && items.Len() == 0 {
		return resilience.Wrap(resilience.KindExtraction,
			eris.Wrapf(ErrMalformedOutput, "structured: decode items: %v", lastErr))
	}
	dst.Elem().Set(items)
	return nil
}

// cleanJSONArray strips markdown fences and surrounding prose from a model
// reply. A lone object is wrapped into a one-element array.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	objStart := strings.Index(text, "{")
	if start >= 0 && end > start && (objStart < 0 || start < objStart) {
		return strings.TrimSpace(text[start : end+1])
	}

	objEnd := strings.LastIndex(text, "}")
	if objStart >= 0 && objEnd > objStart {
		obj := text[objStart : objEnd+1]
		// {"cocktails": [...]} style envelopes.
		var envelope map[string]json.RawMessage
		if json.Unmarshal([]byte(obj), &envelope) == nil && len(envelope) == 1 {
			for _, v := range envelope {
				if v = json.RawMessage(strings.TrimSpace(string(v))); len(v) > 0 && v[0] == '[' {
					return string(v)
				}
			}
		}
		return "[" + obj + "]"
	}
	return strings.TrimSpace(text)
}
