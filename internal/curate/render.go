package curate

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is an output rendering of the final list
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "txt", "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %q (supported: txt, json, yaml)", s)
	}
}

// Render writes entries in format, preserving their order
func Render(w io.Writer, entries []Entry, format Format) error {
	switch format {
	case FormatText:
		return RenderText(w, entries)
	case FormatJSON:
		return RenderJSON(w, entries)
	case FormatYAML:
		return RenderYAML(w, entries)
	default:
		return fmt.Errorf("unknown format: %q", format)
	}
}

// RenderText writes one WORD;SCORE line per entry, the constructor-list format
func RenderText(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%s;%s\n", e.Word, e.ScoreText()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// RenderJSON writes a word→score object in list order
func RenderJSON(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	if len(entries) == 0 {
		_, _ = bw.WriteString("{}\n")
		return bw.Flush()
	}

	_, _ = bw.WriteString("{\n")
	for i, e := range entries {
		key, err := json.Marshal(e.Word)
		if err != nil {
			return err
		}
		val := []byte(strconv.Quote(RetainedMarker))
		if e.Score != nil {
			val = []byte(strconv.Itoa(*e.Score))
		}
		sep := ","
		if i == len(entries)-1 {
			sep = ""
		}
		fmt.Fprintf(bw, "    %s: %s%s\n", key, val, sep)
	}
	_, _ = bw.WriteString("}\n")
	return bw.Flush()
}

// RenderYAML writes a word→score mapping in list order
func RenderYAML(w io.Writer, entries []Entry) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, e := range entries {
		val := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: RetainedMarker}
		if e.Score != nil {
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(*e.Score)}
		}
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Word},
			val)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
