// Package wordlist reads and writes candidate word lists.
package wordlist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/wordlist/internal/model"
)

// Length bounds for entries of constructor-format lists
const (
	MinScoredLength = 3
	MaxScoredLength = 39
)

// ScoredList is a parsed WORD;SCORE list. Order holds first-seen order.
type ScoredList struct {
	Scores map[string]int
	Order  []string
}

// Pool converts the list to a candidate pool carrying list scores as priors
func (l *ScoredList) Pool() model.CandidatePool {
	p := make(model.CandidatePool, len(l.Scores))
	for _, w := range l.Order {
		p[w] = model.IntPtr(l.Scores[w])
	}
	return p
}

// ParseScored reads the crossword constructor format (one WORD;SCORE per line).
// Keys keep letters only and must be 3..39 runes long. A repeated key adds
// one to the score already recorded.
func ParseScored(r io.Reader) (*ScoredList, error) {
	list := &ScoredList{Scores: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		text, num, ok := strings.Cut(line, ";")
		if !ok {
			return nil, fmt.Errorf("line %d: missing ';' separator", lineNum)
		}

		key := lettersOnly(model.NormalizeWord(text))
		if n := utf8.RuneCountInString(key); n < MinScoredLength || n > MaxScoredLength {
			continue
		}

		score, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid score %q: %w", lineNum, num, err)
		}

		if _, seen := list.Scores[key]; seen {
			list.Scores[key]++
			continue
		}
		list.Scores[key] = score
		list.Order = append(list.Order, key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wordlist: %w", err)
	}

	return list, nil
}

// ReadPool loads a candidate pool from a JSON array of words, a JSON object
// of word to score, a WORD;SCORE list, or a plain word-per-line file.
func ReadPool(path string) (model.CandidatePool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParsePool(data)
}

// ParsePool detects the format of data and parses it into a pool
func ParsePool(data []byte) (model.CandidatePool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.CandidatePool{}, nil
	}

	switch trimmed[0] {
	case '[':
		var words []string
		if err := json.Unmarshal(trimmed, &words); err != nil {
			return nil, fmt.Errorf("failed to parse JSON list: %w", err)
		}
		pool := make(model.CandidatePool, len(words))
		for _, w := range model.NormalizeWords(words) {
			pool.Add(w, nil)
		}
		return pool, nil

	case '{':
		var scored map[string]float64
		if err := json.Unmarshal(trimmed, &scored); err != nil {
			return nil, fmt.Errorf("failed to parse JSON map: %w", err)
		}
		pool := make(model.CandidatePool, len(scored))
		for raw, s := range scored {
			if w := model.NormalizeWord(raw); w != "" {
				pool.Add(w, model.IntPtr(int(s)))
			}
		}
		return pool, nil
	}

	if bytes.Contains(trimmed, []byte(";")) {
		list, err := ParseScored(bytes.NewReader(trimmed))
		if err != nil {
			return nil, err
		}
		return list.Pool(), nil
	}

	words, err := ReadWords(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	pool := make(model.CandidatePool, len(words))
	for _, w := range words {
		pool.Add(w, nil)
	}
	return pool, nil
}

// ReadWords reads one word per line, skipping blanks and '#' comments.
// Words are normalized and de-duplicated in input order.
func ReadWords(r io.Reader) ([]string, error) {
	var raw []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read words: %w", err)
	}
	return model.NormalizeWords(raw), nil
}

func lettersOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, s)
}
