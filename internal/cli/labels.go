package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/wordlist"
	"github.com/spf13/cobra"
)

var (
	sourceName string
	sourceURL  string
	labelFile  string
	eventsFile string
	labelAt    string
	exportDir  string
	queueLimit int
	queueModel string
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a candidate word list",
	Long: `Import reads a word list and records it as a source. Every new word
starts unchecked. Accepted formats:
- WORD;SCORE lines (crossword constructor lists)
- JSON array of words or JSON object of word to score
- one word per line

Example:
  wordlist import spreadthewordlist.txt --source stwl --url https://www.spreadthewordlist.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		res, err := p.Import(ctx, args[0], sourceName, sourceURL)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Imported %d words (%d new, %d in source)\n", res.Words, res.Created, res.Linked)
		return nil
	},
}

var labelCmd = &cobra.Command{
	Use:   "label [accept|reject|pass|undo] [word...]",
	Short: "Record review decisions",
	Long: `Label applies review actions to words. Words come from the arguments
and from --file (one per line). --events applies a JSON lines file of
{"word","action","at"} events instead.

Example:
  wordlist label accept HOUSE TABLE
  wordlist label reject --file rejects.txt
  wordlist label --events session.jsonl`,
	RunE: runLabel,
}

var historyCmd = &cobra.Command{
	Use:   "history <word>",
	Short: "Show the status history of a word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		word := model.NormalizeWord(args[0])
		history, err := p.Labels().History(word)
		if err != nil {
			return err
		}
		for _, h := range history {
			fmt.Printf("%s  %s\n", h.At.Format(time.RFC3339Nano), h.Status)
		}
		if rec, ok := p.Labels().Get(word); ok {
			if rec.Skips > 0 {
				fmt.Printf("skipped %d times\n", rec.Skips)
			}
			if rec.Clues != "" {
				fmt.Printf("\n%s\n", rec.Clues)
			}
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write approved.json and rejected.json",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		if err := os.MkdirAll(exportDir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
		a, r, err := p.ExportLabels(exportDir)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Exported %d approved and %d rejected words to %s\n", a, r, exportDir)
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List unchecked words, least likely first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		items, err := p.Queue(ctx, queueModel, queueLimit)
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.Score == nil {
				fmt.Printf("%s\t-\n", it.Word)
				continue
			}
			fmt.Printf("%s\t%d\n", it.Word, *it.Score)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, labelCmd, historyCmd, exportCmd, queueCmd)

	importCmd.Flags().StringVar(&sourceName, "source", "", "source name (default: file name)")
	importCmd.Flags().StringVar(&sourceURL, "url", "", "source URL")

	labelCmd.Flags().StringVar(&labelFile, "file", "", "file with one word per line")
	labelCmd.Flags().StringVar(&eventsFile, "events", "", "JSON lines file of label events")
	labelCmd.Flags().StringVar(&labelAt, "at", "", "event time (RFC 3339, default: now)")

	exportCmd.Flags().StringVar(&exportDir, "output-dir", ".", "output directory")

	queueCmd.Flags().IntVar(&queueLimit, "limit", 50, "maximum words to list (0 = all)")
	queueCmd.Flags().StringVar(&queueModel, "model", "", "model id (default: latest)")
}

func runLabel(cmd *cobra.Command, args []string) error {
	events, err := labelEvents(args)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no words to label")
	}

	ctx := context.Background()
	p, _, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	counts, report, err := p.ApplyLabels(ctx, events)
	if err != nil {
		return fmt.Errorf("label failed: %w", err)
	}

	var parts []string
	for _, o := range []model.Outcome{model.OutcomeApplied, model.OutcomeCoalesced, model.OutcomeSkipped, model.OutcomeStale} {
		if counts[o] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[o], o))
		}
	}
	fmt.Fprintf(os.Stderr, "✓ %s\n", strings.Join(parts, ", "))
	if report.Failed > 0 {
		for w, err := range report.Errors {
			fmt.Fprintf(os.Stderr, "  ✗ %s: %v\n", w, err)
		}
		return fmt.Errorf("%d events rejected", report.Failed)
	}
	return nil
}

func labelEvents(args []string) ([]model.LabelEvent, error) {
	if eventsFile != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--events cannot be combined with an action")
		}
		return readEvents(eventsFile)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("an action is required (accept, reject, pass, undo)")
	}

	action, err := model.ParseAction(args[0])
	if err != nil {
		return nil, err
	}
	var at time.Time
	if labelAt != "" {
		if at, err = time.Parse(time.RFC3339Nano, labelAt); err != nil {
			return nil, fmt.Errorf("invalid --at: %w", err)
		}
	}

	words := args[1:]
	if labelFile != "" {
		f, err := os.Open(labelFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		more, err := wordlist.ReadWords(f)
		if err != nil {
			return nil, err
		}
		words = append(words, more...)
	}

	events := make([]model.LabelEvent, 0, len(words))
	for _, w := range model.NormalizeWords(words) {
		events = append(events, model.LabelEvent{Word: w, Action: action, At: at})
	}
	return events, nil
}

func readEvents(path string) ([]model.LabelEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var events []model.LabelEvent
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ev model.LabelEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		action, err := model.ParseAction(string(ev.Action))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		ev.Action = action
		events = append(events, ev)
	}
	return events, scanner.Err()
}
