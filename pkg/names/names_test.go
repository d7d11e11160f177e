package names

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Emil   Bakiyev ", "emil bakiyev"},
		{"LORI SMITH", "lori smith"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripDeviceSuffix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Lori's iPhone", "Lori"},
		{"Mark (iPad)", "Mark"},
		{"Dana's Galaxy", "Dana"},
		{"Emil Bakiyev", "Emil Bakiyev"},
		{"iPhone", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := StripDeviceSuffix(tt.input)
			if got != tt.want {
				t.Errorf("StripDeviceSuffix(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsDeviceName(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Lori's iPhone", true},
		{"Galaxy S22", true},
		{"Lori Smith", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsDeviceName(tt.input); got != tt.want {
			t.Errorf("IsDeviceName(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAliasResolve(t *testing.T) {
	aliases := AliasMap{
		"emil":     "Emil Bakiyev",
		"em":       "emil",
		"loops a":  "loops b",
		"loops b":  "loops a",
		"self ref": "Self Ref",
		"dead end": "",
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"direct edge", "Emil", "Emil Bakiyev"},
		{"two hop chain", "em", "Emil Bakiyev"},
		{"no edge", "Lori Smith", "Lori Smith"},
		{"cycle terminates", "loops a", "loops a"},
		{"self reference stops", "self ref", "self ref"},
		{"empty target stops", "dead end", "dead end"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := aliases.Resolve(tt.input)
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAliasResolveLongChainBounded(t *testing.T) {
	// A chain longer than the hop bound must still terminate.
	aliases := AliasMap{}
	for i := 0; i < 40; i++ {
		aliases[keyFor(i)] = keyFor(i + 1)
	}

	got := aliases.Resolve(keyFor(0))
	if got == "" {
		t.Fatal("Resolve returned empty string for long chain")
	}
}

func keyFor(i int) string {
	return "name " + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
}

func TestCanonicalize(t *testing.T) {
	c := NewCanonicalizer([]PrefixRule{
		NewPrefixRule(`j-?p\b`, "JP Morales"),
	})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"prefix rule wins", "J-P's phone", "JP Morales"},
		{"prefix rule case insensitive", "jp morales", "JP Morales"},
		{"first and last token", "Emil The Great Bakiyev", "Emil Bakiyev"},
		{"decorated middle token", "Anna The Lindqvist", "Anna Lindqvist"},
		{"two tokens unchanged", "Lori Smith", "Lori Smith"},
		{"short first token falls through", "Al B Sure", "Al B Sure"},
		{"device token falls through", "Zoom Room Three", "Zoom Room Three"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Canonicalize(tt.input, nil)
			if got != tt.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	c := NewCanonicalizer(nil)
	aliases := AliasMap{"emil": "Emil Bakiyev"}

	inputs := []string{"Emil", "Lori's iPhone", "Anna Maria Lindqvist", ""}
	for _, input := range inputs {
		first := c.Canonicalize(input, aliases)
		second := c.Canonicalize(input, aliases)
		if first != second {
			t.Errorf("Canonicalize(%q) not deterministic: %q vs %q", input, first, second)
		}
	}
}

func TestCanonicalizeResolvesAliasFirst(t *testing.T) {
	c := NewCanonicalizer(nil)
	aliases := AliasMap{
		"emil": "Emil Bakiyev",
	}

	got := c.Canonicalize("Emil", aliases)
	if got != "Emil Bakiyev" {
		t.Errorf("Canonicalize with alias = %q, want %q", got, "Emil Bakiyev")
	}
}
