package wordlist

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseScored(t *testing.T) {
	input := `MATT;50
new york;40
ox;50
matt;10
ice-cream;30

ANTIDISESTABLISHMENTARIANISMISTHELONGESTWORD;50
`
	list, err := ParseScored(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]int{
		"MATT":     51, // repeated key bumps the first score
		"NEWYORK":  40,
		"ICECREAM": 30,
	}
	if len(list.Scores) != len(want) {
		t.Fatalf("expected %d words, got %d: %v", len(want), len(list.Scores), list.Scores)
	}
	for w, s := range want {
		if list.Scores[w] != s {
			t.Errorf("score for %s: expected %d, got %d", w, s, list.Scores[w])
		}
	}

	if strings.Join(list.Order, ",") != "MATT,NEWYORK,ICECREAM" {
		t.Errorf("unexpected order: %v", list.Order)
	}
}

func TestParseScored_Errors(t *testing.T) {
	if _, err := ParseScored(strings.NewReader("HOUSE\n")); err == nil {
		t.Error("expected error for missing separator")
	}
	if _, err := ParseScored(strings.NewReader("HOUSE;abc\n")); err == nil {
		t.Error("expected error for invalid score")
	}
}

func TestParsePool_Formats(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantWords []string
		wantPrior map[string]int
	}{
		{
			name:      "json array",
			input:     `["house", "Table", "HOUSE"]`,
			wantWords: []string{"HOUSE", "TABLE"},
		},
		{
			name:      "json object",
			input:     `{"house": 48, "lamp": 30}`,
			wantWords: []string{"HOUSE", "LAMP"},
			wantPrior: map[string]int{"HOUSE": 48, "LAMP": 30},
		},
		{
			name:      "scored lines",
			input:     "HOUSE;50\nLAMP;25\n",
			wantWords: []string{"HOUSE", "LAMP"},
			wantPrior: map[string]int{"HOUSE": 50, "LAMP": 25},
		},
		{
			name:      "plain lines",
			input:     "# comment\nhouse\n\nlamp\n",
			wantWords: []string{"HOUSE", "LAMP"},
		},
		{
			name:  "empty",
			input: "  \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := ParsePool([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := pool.Words()
			if strings.Join(got, ",") != strings.Join(tt.wantWords, ",") {
				t.Errorf("expected words %v, got %v", tt.wantWords, got)
			}
			for w, s := range tt.wantPrior {
				if pool[w] == nil || *pool[w] != s {
					t.Errorf("prior for %s: expected %d, got %v", w, s, pool[w])
				}
			}
		})
	}
}

func TestReadPool_MissingFile(t *testing.T) {
	if _, err := ReadPool(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "approved.json")
	if err := WriteJSON(path, []string{"TABLE", "HOUSE"}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	var got []string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got) != 2 || got[0] != "HOUSE" || got[1] != "TABLE" {
		t.Errorf("unexpected output: %v", got)
	}

	if err := WriteJSON(path, nil); err != nil {
		t.Fatalf("WriteJSON(nil) failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("expected empty array, got %s", data)
	}
}
