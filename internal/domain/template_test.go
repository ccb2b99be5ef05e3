package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	props := map[string]any{
		"User":  "alice",
		"Count": 3,
		"Tags":  []string{"x", "y"},
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{name: "No Holes", template: "plain text", want: "plain text"},
		{name: "String Value", template: "hello {User}", want: "hello alice"},
		{name: "Number Value", template: "{Count} items", want: "3 items"},
		{name: "Structured Value", template: "tags={Tags}", want: `tags=["x","y"]`},
		{name: "Destructuring And Format", template: "{@User} has {Count:000}", want: "alice has 3"},
		{name: "Missing Property Kept", template: "hi {Nobody}", want: "hi {Nobody}"},
		{name: "Escaped Braces", template: "{{literal}} {User}", want: "{literal} alice"},
		{name: "Unclosed Hole", template: "broken {User", want: "broken {User"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RenderTemplate(tt.template, props))
		})
	}
}
