package extract_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yuv-man/habeat-server/internal/errors"
	"github.com/yuv-man/habeat-server/internal/extract"
)

// mustParse decodes JSON text into a generic value for comparison.
func mustParse(t *testing.T, text string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", text, err)
	}
	return v
}

func TestJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain object passes through",
			raw:  `{"day": "Monday", "meals": {}}`,
			want: `{"day": "Monday", "meals": {}}`,
		},
		{
			name: "fenced code block preferred over surrounding prose",
			raw:  "Here is your plan:\n```json\n{\"day\": \"Monday\"}\n```\nEnjoy!",
			want: `{"day": "Monday"}`,
		},
		{
			name: "fenced block with trailing comma and unmatched closing brace",
			raw:  "```json\n{\"day\": \"Tuesday\", \"meals\": {\"breakfast\": {\"calories\": 400,},},}\n}\n```",
			want: `{"day": "Tuesday", "meals": {"breakfast": {"calories": 400}}}`,
		},
		{
			name: "assignment prefix stripped",
			raw:  "plan = {\"day\": \"Wednesday\"}",
			want: `{"day": "Wednesday"}`,
		},
		{
			name: "leading comment lines stripped",
			raw:  "// generated output\n# note\n{\"day\": \"Thursday\"}",
			want: `{"day": "Thursday"}`,
		},
		{
			name: "line and block comments removed",
			raw:  "{\n  \"day\": \"Friday\", // weekday\n  /* macros pending */ \"calories\": 2000\n}",
			want: `{"day": "Friday", "calories": 2000}`,
		},
		{
			name: "comment markers inside strings survive",
			raw:  `{"url": "https://example.com/recipe", "note": "a/b"}`,
			want: `{"url": "https://example.com/recipe", "note": "a/b"}`,
		},
		{
			name: "missing closers appended when imbalance is small",
			raw:  `{"day": "Saturday", "meals": {"lunch": {"calories": 600}`,
			want: `{"day": "Saturday", "meals": {"lunch": {"calories": 600}}}`,
		},
		{
			name: "array fallback when no object present",
			raw:  `[ {"day": "Sunday"}, ]`,
			want: `[{"day": "Sunday"}]`,
		},
		{
			name: "control characters removed",
			raw:  "{\"day\": \"Mon\x00day\"}",
			want: `{"day": "Monday"}`,
		},
		{
			name: "prose around bare object",
			raw:  "Sure! Here you go: {\"day\": \"Monday\"} Let me know if you need changes.",
			want: `{"day": "Monday"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extract.JSON(tt.raw)
			if err != nil {
				t.Fatalf("JSON(%q): %v", tt.raw, err)
			}
			if diff := cmp.Diff(mustParse(t, tt.want), mustParse(t, got)); diff != "" {
				t.Errorf("JSON() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty input", raw: ""},
		{name: "prose without structure", raw: "I could not generate a plan today."},
		{name: "too many missing closers", raw: `{"a": {"b": {"c": {"d": 1`},
		{name: "unterminated string", raw: `{"day": "Mon`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := extract.JSON(tt.raw); err == nil {
				t.Fatalf("JSON(%q): expected error, got nil", tt.raw)
			} else if !errors.Is(err, extract.ErrNoStructure) {
				t.Errorf("JSON(%q): expected ErrNoStructure, got %v", tt.raw, err)
			}
		})
	}
}
