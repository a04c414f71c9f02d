package wordlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// WriteJSON writes words as an indented JSON array, sorted.
// The file is replaced atomically.
func WriteJSON(path string, words []string) error {
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	if sorted == nil {
		sorted = []string{}
	}

	data, err := json.MarshalIndent(sorted, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal words: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
