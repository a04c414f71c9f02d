package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/wordlist/internal/curate"
	"github.com/ppiankov/wordlist/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	distillPool      string
	distillModel     string
	distillTarget    int
	distillThreshold int
	distillExact     bool
	distillFormat    string
	distillOutput    string
	distillHistogram bool
)

var distillCmd = &cobra.Command{
	Use:   "distill",
	Short: "Produce the final word list",
	Long: `Distill merges the latest scores with the approved words:
- every approved word is kept
- the remaining candidates follow by score until --target or --threshold
- rejected words never appear

Example:
  wordlist distill --target 50000 --output wordlist.txt
  wordlist distill --pool candidates.txt --threshold 30 --format yaml
  wordlist distill --target 1000 --exact --histogram`,
	RunE: runDistill,
}

func init() {
	rootCmd.AddCommand(distillCmd)

	distillCmd.Flags().StringVar(&distillPool, "pool", "", "candidate pool file (default: every stored word)")
	distillCmd.Flags().StringVar(&distillModel, "model", "", "model id (default: latest)")
	distillCmd.Flags().IntVar(&distillTarget, "target", -1, "target list size (default: curation.target_size)")
	distillCmd.Flags().IntVar(&distillThreshold, "threshold", -2, "minimum score, -1 disables (default: curation.threshold)")
	distillCmd.Flags().BoolVar(&distillExact, "exact", false, "fail unless exactly --target words are produced")
	distillCmd.Flags().StringVar(&distillFormat, "format", "", "output format: txt, json, yaml (default: curation.format)")
	distillCmd.Flags().StringVarP(&distillOutput, "output", "o", "", "output file (default: stdout)")
	distillCmd.Flags().BoolVar(&distillHistogram, "histogram", false, "print a score histogram to stderr")
}

func runDistill(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()
	p, cfg, err := openPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	req := pipeline.DistillRequest{
		PoolPath:   distillPool,
		ModelID:    distillModel,
		TargetSize: cfg.Curation.TargetSize,
		Exact:      cfg.Curation.Exact || distillExact,
	}
	if cmd.Flags().Changed("target") {
		req.TargetSize = distillTarget
	}
	threshold := cfg.Curation.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = distillThreshold
	}
	if threshold >= 0 {
		req.Threshold = &threshold
	}

	formatName := cfg.Curation.Format
	if distillFormat != "" {
		formatName = distillFormat
	}
	format, err := curate.ParseFormat(formatName)
	if err != nil {
		return err
	}

	entries, err := p.Distill(ctx, req)
	if err != nil {
		return fmt.Errorf("distill failed: %w", err)
	}

	var out io.Writer = os.Stdout
	if distillOutput != "" {
		f, createErr := os.Create(distillOutput)
		if createErr != nil {
			return fmt.Errorf("error creating output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	w := bufio.NewWriter(out)
	if err := curate.Render(w, entries, format); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}

	if distillOutput != "" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %d words to %s\n", len(entries), distillOutput)
	}
	if distillHistogram {
		fmt.Fprintln(os.Stderr)
		return curate.RenderHistogram(os.Stderr, curate.Histogram(entries), 60)
	}
	return nil
}
