package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v2"
	"github.com/spf13/cobra"
)

var (
	clueLimit    int
	cmdTimeout   time.Duration
	scoreModel   string
	scoreMissing bool
	evalModel    string
)

var cluesCmd = &cobra.Command{
	Use:   "clues",
	Short: "Manage crossword clues shown to reviewers",
}

var cluesUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch clues for words that have none",
	Long: `Update fetches clues for words without clues, least recently tried
first, from the configured clue source (clues.source).

Example:
  wordlist clues update --limit 500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		p, cfg, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		if cfg.Clues.Source == "none" || cfg.Clues.Source == "" {
			fmt.Fprintf(os.Stderr, "Clue source disabled (set clues.source to crosswordtracker)\n")
			return nil
		}

		pending, err := p.Store().WordsMissingClues(ctx, clueLimit)
		if err != nil {
			return err
		}
		bar := progressbar.NewOptions(len(pending), progressbar.OptionSetWriter(os.Stderr))
		report, err := p.UpdateClues(ctx, clueLimit, func() { _ = bar.Add(1) })
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)

		printReport("Clues updated", report)
		return err
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed [word...]",
	Short: "Precompute embeddings (default: every stored word)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		p, cfg, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		if verbose {
			fmt.Fprintf(os.Stderr, "⚙️  Embedding with %s/%s\n", cfg.Embedding.Provider, cfg.Embedding.Model)
		}
		report, err := p.Embed(ctx, args)
		printReport("Embedded", report)
		return err
	},
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit a classifier on the approved and rejected words",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		artifact, report, err := p.Train(ctx)
		printReport("Training vectors", report)
		if err != nil {
			return fmt.Errorf("train failed: %w", err)
		}

		fmt.Printf("%s\n", artifact.ID)
		fmt.Fprintf(os.Stderr, "✓ Trained on %d approved, %d rejected\n", artifact.ApprovedCount, artifact.RejectedCount)
		fmt.Fprintf(os.Stderr, "  Train accuracy: %.3f\n", artifact.TrainAccuracy)
		fmt.Fprintf(os.Stderr, "  Test accuracy:  %.3f\n", artifact.TestAccuracy)
		return nil
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score stored words with a trained model",
	Long: `Score runs a model over the stored words and records 0..50 scores.
Scores are normalized per run, so compare them only within one run.

Example:
  wordlist score
  wordlist score --missing --model 6f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		batch, err := p.Score(ctx, scoreModel, scoreMissing)
		if err != nil {
			return fmt.Errorf("score failed: %w", err)
		}
		printReport("Scored with "+batch.ModelID, batch.Report)
		return nil
	},
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List trained models, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		artifacts, err := p.Store().ListModels(ctx)
		if err != nil {
			return err
		}
		for _, a := range artifacts {
			fmt.Printf("%s  %s  %-24s  +%d/-%d  train=%.3f test=%.3f",
				a.ID, a.CreatedAt.Format(time.RFC3339), a.EmbeddingModelID,
				a.ApprovedCount, a.RejectedCount, a.TrainAccuracy, a.TestAccuracy)
			if verbose {
				fmt.Printf("  %s", formatParams(a.Params))
			}
			fmt.Println()
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure a model against the current labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), cmdTimeout)
		defer cancel()

		p, _, err := openPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		eval, err := p.Evaluate(ctx, evalModel)
		if err != nil {
			return fmt.Errorf("evaluate failed: %w", err)
		}
		printReport("Evaluation vectors", eval.Report)
		fmt.Printf("model:    %s\n", eval.ModelID)
		fmt.Printf("accuracy: %.3f\n", eval.Accuracy)
		fmt.Printf("approved: %.3f\n", eval.ApprovedAccuracy)
		fmt.Printf("rejected: %.3f\n", eval.RejectedAccuracy)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cluesCmd, embedCmd, trainCmd, scoreCmd, modelsCmd, evaluateCmd)
	cluesCmd.AddCommand(cluesUpdateCmd)

	for _, c := range []*cobra.Command{cluesUpdateCmd, embedCmd, trainCmd, scoreCmd, evaluateCmd} {
		c.Flags().DurationVar(&cmdTimeout, "timeout", 2*time.Hour, "overall command timeout")
	}
	cluesUpdateCmd.Flags().IntVar(&clueLimit, "limit", 0, "maximum words to update (0 = all)")
	scoreCmd.Flags().StringVar(&scoreModel, "model", "", "model id (default: latest)")
	scoreCmd.Flags().BoolVar(&scoreMissing, "missing", false, "only score words without a score from this model")
	evaluateCmd.Flags().StringVar(&evalModel, "model", "", "model id (default: latest)")
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, " ")
}

