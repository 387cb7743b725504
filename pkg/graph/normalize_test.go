package graph

import "testing"

func TestNormalizeEntity(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Marie Curie", "marie curie"},
		{"trims whitespace", "  Paris  ", "paris"},
		{"collapses inner whitespace", "New\t  York   City", "new york city"},
		{"strips double quotes", `"Paris"`, "paris"},
		{"strips typographic quotes", "“Paris”", "paris"},
		{"strips single quotes", "'Paris'", "paris"},
		{"strips brackets", "[Paris]", "paris"},
		{"strips parens", "(Paris)", "paris"},
		{"strips angle brackets", "<Paris>", "paris"},
		{"strips guillemets", "«Paris»", "paris"},
		{"mixed wrapping", `  "(New York)" `, "new york"},
		{"keeps inner punctuation", "O'Brien & Sons, Ltd.", "o'brien & sons, ltd."},
		{"keeps digits", "Boeing 747", "boeing 747"},
		{"empty", "", ""},
		{"only punctuation", `"" ''`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEntity(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeEntity(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeEntity(got); again != got {
				t.Errorf("NormalizeEntity is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
