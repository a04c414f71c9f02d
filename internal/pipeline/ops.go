package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ppiankov/wordlist/internal/curate"
	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/score"
	"github.com/ppiankov/wordlist/internal/wordlist"
	"github.com/ppiankov/wordlist/pkg/logger"
)

// ImportResult summarizes an imported word list
type ImportResult struct {
	SourceID int64
	Words    int
	Created  int
	Linked   int // Words linked to the source across every import
}

// Import loads a word list file, records it as a source and creates an
// unchecked record for every new word
func (p *Pipeline) Import(ctx context.Context, path, sourceName, sourceURL string) (*ImportResult, error) {
	pool, err := wordlist.ReadPool(path)
	if err != nil {
		return nil, err
	}
	if sourceName == "" {
		sourceName = filepath.Base(path)
	}

	id, err := p.store.UpsertSource(ctx, sourceName, sourceURL, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if err := p.store.LinkSourceWords(ctx, id, pool); err != nil {
		return nil, err
	}

	created, err := p.labels.EnsureAll(ctx, pool.Words())
	if err != nil {
		return nil, err
	}
	linked, err := p.store.SourceWordCount(ctx, id)
	if err != nil {
		return nil, err
	}

	p.log.Info(ctx, "word list imported",
		logger.String("source", sourceName),
		logger.Int("words", len(pool)),
		logger.Int("created", created))
	return &ImportResult{SourceID: id, Words: len(pool), Created: created, Linked: linked}, nil
}

// ApplyLabels runs events through the label store in order. Invalid
// transitions are reported per word; persistence failures abort.
func (p *Pipeline) ApplyLabels(ctx context.Context, events []model.LabelEvent) (map[model.Outcome]int, *model.BatchReport, error) {
	counts := make(map[model.Outcome]int)
	report := model.NewBatchReport(len(events))

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return counts, report, err
		}
		outcome, err := p.labels.Apply(ctx, ev)
		if err != nil {
			if errors.Is(err, model.ErrInvalidTransition) {
				report.Fail(model.NormalizeWord(ev.Word), err)
				continue
			}
			return counts, report, err
		}
		counts[outcome]++
		report.Succeeded++
	}
	return counts, report, nil
}

// ExportLabels writes approved.json and rejected.json into dir
func (p *Pipeline) ExportLabels(dir string) (approved, rejected int, err error) {
	a := p.labels.Export(model.StatusApproved)
	r := p.labels.Export(model.StatusRejected)
	if err := wordlist.WriteJSON(filepath.Join(dir, "approved.json"), a); err != nil {
		return 0, 0, err
	}
	if err := wordlist.WriteJSON(filepath.Join(dir, "rejected.json"), r); err != nil {
		return 0, 0, err
	}
	return len(a), len(r), nil
}

// UpdateClues fetches clues for words that have none, least recently tried
// first. Words without clues at the source only get their attempt stamped.
// progress, when set, is called once per word.
func (p *Pipeline) UpdateClues(ctx context.Context, limit int, progress func()) (*model.BatchReport, error) {
	words, err := p.store.WordsMissingClues(ctx, limit)
	if err != nil {
		return nil, err
	}

	fetcher := p.ClueFetcher()
	report := model.NewBatchReport(len(words))
	for _, w := range words {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		text, found, err := fetcher.FetchClues(ctx, w)
		if progress != nil {
			progress()
		}
		if err != nil {
			report.Fail(w, err)
			p.log.Warn(ctx, "clue fetch failed", logger.String("word", w), logger.Error(err))
			continue
		}
		if !found {
			text = ""
		}
		if err := p.labels.SetClues(ctx, w, text); err != nil {
			return report, err
		}
		report.Succeeded++
	}
	return report, nil
}

// Embed resolves vectors for words ("" = every stored word) so later runs hit the cache
func (p *Pipeline) Embed(ctx context.Context, words []string) (*model.BatchReport, error) {
	vectors, err := p.Vectors()
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		if words, err = p.store.ListWords(ctx); err != nil {
			return nil, err
		}
	}
	_, report := vectors.Resolve(ctx, model.NormalizeWords(words), vectors.ModelID())
	return report, ctx.Err()
}

// Train fits a new artifact on the current approved and rejected sets
func (p *Pipeline) Train(ctx context.Context) (*model.ModelArtifact, *model.BatchReport, error) {
	engine, err := p.Engine()
	if err != nil {
		return nil, nil, err
	}
	vectors, _ := p.Vectors()
	return engine.Fit(ctx,
		p.labels.Export(model.StatusApproved),
		p.labels.Export(model.StatusRejected),
		vectors.ModelID())
}

// Artifact returns the artifact with id, or the newest one when id is empty
func (p *Pipeline) Artifact(ctx context.Context, id string) (*model.ModelArtifact, error) {
	if id == "" {
		return p.store.LatestModel(ctx)
	}
	return p.store.GetModel(ctx, id)
}

// Score scores every stored word with the artifact, or only the words that
// have no score from it yet when missingOnly is set
func (p *Pipeline) Score(ctx context.Context, modelID string, missingOnly bool) (*score.ScoreBatch, error) {
	artifact, err := p.Artifact(ctx, modelID)
	if err != nil {
		return nil, err
	}
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}

	var words []string
	if missingOnly {
		words, err = p.store.WordsMissingScores(ctx, artifact.ID)
	} else {
		words, err = p.store.ListWords(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return &score.ScoreBatch{ModelID: artifact.ID, Report: model.NewBatchReport(0)}, nil
	}
	return engine.Score(ctx, artifact, words)
}

// Evaluate measures an artifact against the current labels
func (p *Pipeline) Evaluate(ctx context.Context, modelID string) (*score.Evaluation, error) {
	artifact, err := p.Artifact(ctx, modelID)
	if err != nil {
		return nil, err
	}
	engine, err := p.Engine()
	if err != nil {
		return nil, err
	}
	return engine.Evaluate(ctx, artifact,
		p.labels.Export(model.StatusApproved),
		p.labels.Export(model.StatusRejected))
}

// DistillRequest selects the pool and bounds of a distillation
type DistillRequest struct {
	PoolPath   string // Empty uses every stored word
	ModelID    string // Empty uses the newest artifact
	TargetSize int
	Threshold  *int
	Exact      bool
}

// Distill produces the final list from the latest scores and the labels
func (p *Pipeline) Distill(ctx context.Context, req DistillRequest) ([]curate.Entry, error) {
	pool, err := p.pool(ctx, req.PoolPath)
	if err != nil {
		return nil, err
	}

	modelID := req.ModelID
	if modelID == "" {
		artifact, err := p.store.LatestModel(ctx)
		if err != nil && !errors.Is(err, model.ErrModelNotFound) {
			return nil, err
		}
		if artifact != nil {
			modelID = artifact.ID
		}
	}

	var records []model.ScoreRecord
	if modelID != "" {
		if records, err = p.store.LatestScores(ctx, modelID); err != nil {
			return nil, err
		}
	}

	excluded := make(map[string]bool)
	for _, w := range p.labels.Export(model.StatusRejected) {
		excluded[w] = true
	}

	entries, err := curate.Distill(pool, records, p.labels.Export(model.StatusApproved), curate.Options{
		TargetSize: req.TargetSize,
		Threshold:  req.Threshold,
		Exact:      req.Exact,
		Excluded:   excluded,
		ModelID:    modelID,
	})
	if err != nil {
		return nil, err
	}

	p.metrics.SetDistilledWords(len(entries))
	return entries, nil
}

// Queue lists unchecked words for review, least likely first
func (p *Pipeline) Queue(ctx context.Context, modelID string, limit int) ([]curate.QueueItem, error) {
	var records []model.ScoreRecord
	artifact, err := p.Artifact(ctx, modelID)
	switch {
	case err == nil:
		if records, err = p.store.LatestScores(ctx, artifact.ID); err != nil {
			return nil, err
		}
	case !errors.Is(err, model.ErrModelNotFound):
		return nil, err
	}
	return curate.ReviewQueue(p.labels.Export(model.StatusUnchecked), records, "", limit), nil
}

func (p *Pipeline) pool(ctx context.Context, path string) (model.CandidatePool, error) {
	if path != "" {
		return wordlist.ReadPool(path)
	}
	words, err := p.store.ListWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	pool := make(model.CandidatePool, len(words))
	for _, w := range words {
		pool.Add(w, nil)
	}
	return pool, nil
}
