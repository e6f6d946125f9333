// Package structured turns free text into schema-conforming JSON objects
// through an LLM completion capability.
package structured

import (
	"fmt"
	"strings"
)

// Field is one named, typed field of a target schema.
type Field struct {
	Name        string
	Type        string
	Description string
}

// Schema is an ordered list of fields describing one extracted object.
type Schema struct {
	Fields []Field
}

// Describe renders the schema as a prompt fragment listing each field and a
// JSON array example.
func (s Schema) Describe() string {
	var b strings.Builder
	b.WriteString("Each object has these fields:\n")
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "- %s (%s)", f.Name, f.Type)
		if f.Description != "" {
			b.WriteString(": " + f.Description)
		}
		b.WriteByte('\n')
	}
	b.WriteString("\nReturn only a valid JSON array of objects in this format:\n[\n  {")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "\n    %q: %s", f.Name, exampleValue(f.Type))
	}
	b.WriteString("\n  }\n]")
	return b.String()
}

func exampleValue(typ string) string {
	switch {
	case strings.HasPrefix(typ, "list"):
		return `["string"]`
	case strings.Contains(typ, "null"):
		return `"string or null"`
	default:
		return `"string"`
	}
}

// CocktailSchema describes a cocktail menu item.
var CocktailSchema = Schema{Fields: []Field{
	{Name: "name", Type: "string", Description: "the cocktail name as printed"},
	{Name: "price", Type: "string or null", Description: "price exactly as printed, null if not shown"},
	{Name: "ingredients", Type: "list of strings", Description: "ingredients in menu order"},
	{Name: "special_notes", Type: "string or null", Description: `indicators like "NON ALCOHOLIC", null if none`},
}}

// BarSchema describes a bar found in search results.
var BarSchema = Schema{Fields: []Field{
	{Name: "name", Type: "string", Description: "the bar name"},
	{Name: "address", Type: "string or null"},
	{Name: "description", Type: "string or null", Description: "one brief sentence"},
	{Name: "notable_features", Type: "list of strings", Description: "two or three key features"},
	{Name: "website", Type: "string or null", Description: "the bar's own website"},
	{Name: "cocktail_menu_url", Type: "string or null"},
	{Name: "source_link", Type: "string", Description: "the search result link the bar came from"},
}}
