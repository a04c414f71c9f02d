// Package score fits the word classifier and scores candidate words with it.
package score

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/wordlist/internal/classifier"
	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

// Default training split
const (
	DefaultTestRatio = 0.2
	DefaultSeed      = 42
)

// scoreChunk bounds how many vectors are held in memory while scoring
const scoreChunk = 10000

// Resolver supplies vectors for words under one embedding model
type Resolver interface {
	ModelID() string
	Resolve(ctx context.Context, words []string, embeddingModelID string) (map[string]model.Vector, *model.BatchReport)
}

// Recorder persists artifacts and score records
type Recorder interface {
	SaveModel(ctx context.Context, a *model.ModelArtifact) error
	WriteScores(ctx context.Context, recs []model.ScoreRecord) error
}

// Engine trains artifacts and scores words with them
type Engine struct {
	vectors   Resolver
	trainer   classifier.Trainer
	recorder  Recorder
	testRatio float64
	seed      int64
	now       func() time.Time
	metrics   *metrics.Manager
	log       logger.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithSplit sets the held-out test ratio and the shuffle seed
func WithSplit(testRatio float64, seed int64) Option {
	return func(e *Engine) {
		e.testRatio = testRatio
		e.seed = seed
	}
}

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records training and scoring on m
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a scoring engine
func NewEngine(vectors Resolver, trainer classifier.Trainer, recorder Recorder, opts ...Option) *Engine {
	e := &Engine{
		vectors:   vectors,
		trainer:   trainer,
		recorder:  recorder,
		testRatio: DefaultTestRatio,
		seed:      DefaultSeed,
		now:       func() time.Time { return time.Now().UTC() },
		metrics:   metrics.Default(),
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit trains a classifier on the approved and rejected sets and persists the
// resulting artifact. Words present in both sets are dropped as ambiguous.
// Embedding failures are reported and excluded from training.
func (e *Engine) Fit(ctx context.Context, approved, rejected []string, embeddingModelID string) (*model.ModelArtifact, *model.BatchReport, error) {
	pos, neg, report := splitLabels(approved, rejected)
	if len(pos) == 0 || len(neg) == 0 {
		return nil, report, fmt.Errorf("%w: approved %d, rejected %d", model.ErrInsufficientTrainingData, len(pos), len(neg))
	}
	if embeddingModelID != e.vectors.ModelID() {
		return nil, report, fmt.Errorf("%w: vectors come from %q, asked for %q",
			model.ErrEmbeddingModelMismatch, e.vectors.ModelID(), embeddingModelID)
	}

	all := append(append([]string{}, pos...), neg...)
	vecs, resolved := e.vectors.Resolve(ctx, all, embeddingModelID)
	report.Merge(resolved)
	report.Total -= resolved.Total // Already counted by splitLabels
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	pos = present(pos, vecs)
	neg = present(neg, vecs)
	if len(pos) == 0 || len(neg) == 0 {
		return nil, report, fmt.Errorf("%w: after embedding failures approved %d, rejected %d",
			model.ErrInsufficientTrainingData, len(pos), len(neg))
	}

	rng := rand.New(rand.NewSource(e.seed))
	posTrain, posTest := stratify(pos, e.testRatio, rng)
	negTrain, negTest := stratify(neg, e.testRatio, rng)

	xTrain, yTrain := design(vecs, posTrain, negTrain)
	xTest, yTest := design(vecs, posTest, negTest)

	clf, err := e.trainer.Train(ctx, xTrain, yTrain)
	if err != nil {
		return nil, report, fmt.Errorf("train classifier: %w", err)
	}

	trainAcc, err := classifier.Accuracy(clf, xTrain, yTrain)
	if err != nil {
		return nil, report, err
	}
	testAcc, err := classifier.Accuracy(clf, xTest, yTest)
	if err != nil {
		return nil, report, err
	}

	blob, err := clf.Blob()
	if err != nil {
		return nil, report, fmt.Errorf("serialize classifier: %w", err)
	}

	params := e.trainer.Params()
	params["test_ratio"] = strconv.FormatFloat(e.testRatio, 'g', -1, 64)
	params["split_seed"] = strconv.FormatInt(e.seed, 10)
	params["train_size"] = strconv.Itoa(len(xTrain))
	params["test_size"] = strconv.Itoa(len(xTest))

	artifact := &model.ModelArtifact{
		ID:               uuid.NewString(),
		CreatedAt:        e.now(),
		EmbeddingModelID: embeddingModelID,
		TrainingSetHash:  TrainingSetHash(pos, neg),
		ApprovedCount:    len(pos),
		RejectedCount:    len(neg),
		TrainAccuracy:    trainAcc,
		TestAccuracy:     testAcc,
		Params:           params,
		Blob:             blob,
	}
	if err := e.recorder.SaveModel(ctx, artifact); err != nil {
		return nil, report, fmt.Errorf("save model: %w", err)
	}

	report.Succeeded = len(pos) + len(neg)
	e.metrics.RecordModelTrained()
	e.log.Info(ctx, "model trained",
		logger.String("model_id", artifact.ID),
		logger.Int("approved", len(pos)),
		logger.Int("rejected", len(neg)),
		logger.Float64("train_accuracy", trainAcc),
		logger.Float64("test_accuracy", testAcc))

	return artifact, report, nil
}

// ScoreBatch is one scoring run: every record shares BatchID and its
// normalized scores are comparable only within the batch
type ScoreBatch struct {
	ID      string
	ModelID string
	Records []model.ScoreRecord
	Report  *model.BatchReport
}

// Scores maps word to normalized score
func (b *ScoreBatch) Scores() map[string]int {
	out := make(map[string]int, len(b.Records))
	for _, r := range b.Records {
		out[r.Word] = r.Normalized
	}
	return out
}

// Score scores words with artifact and persists the records.
// A corrupt artifact aborts the run; per-word embedding failures do not.
func (e *Engine) Score(ctx context.Context, artifact *model.ModelArtifact, words []string) (*ScoreBatch, error) {
	clf, err := e.load(artifact)
	if err != nil {
		return nil, err
	}

	words = model.NormalizeWords(words)
	raws, report, err := e.decide(ctx, clf, artifact.EmbeddingModelID, words)
	if err != nil {
		return nil, err
	}

	batch := &ScoreBatch{ID: uuid.NewString(), ModelID: artifact.ID, Report: report}
	at := e.now()
	norm := Normalize(raws)
	for _, w := range words {
		raw, ok := raws[w]
		if !ok {
			continue
		}
		batch.Records = append(batch.Records, model.ScoreRecord{
			Word:       w,
			ModelID:    artifact.ID,
			BatchID:    batch.ID,
			Raw:        raw,
			Normalized: norm[w],
			ScoredAt:   at,
		})
	}

	if err := e.recorder.WriteScores(ctx, batch.Records); err != nil {
		return batch, fmt.Errorf("write scores: %w", err)
	}

	e.metrics.RecordScored(report.Succeeded, report.Failed)
	e.log.Info(ctx, "scoring batch complete",
		logger.String("batch_id", batch.ID),
		logger.String("model_id", artifact.ID),
		logger.Int("scored", report.Succeeded),
		logger.Int("failed", report.Failed))
	return batch, nil
}

// Evaluation is an artifact's accuracy on labeled sets
type Evaluation struct {
	ModelID          string
	Accuracy         float64
	ApprovedAccuracy float64
	RejectedAccuracy float64
	Report           *model.BatchReport
}

// Evaluate measures artifact against approved and rejected words
func (e *Engine) Evaluate(ctx context.Context, artifact *model.ModelArtifact, approved, rejected []string) (*Evaluation, error) {
	clf, err := e.load(artifact)
	if err != nil {
		return nil, err
	}

	pos, neg, report := splitLabels(approved, rejected)
	all := append(append([]string{}, pos...), neg...)
	raws, resolved, err := e.decide(ctx, clf, artifact.EmbeddingModelID, all)
	if err != nil {
		return nil, err
	}
	report.Merge(resolved)
	report.Total -= resolved.Total

	ev := &Evaluation{ModelID: artifact.ID, Report: report}
	posOK, posN := hits(raws, pos, true)
	negOK, negN := hits(raws, neg, false)
	if posN > 0 {
		ev.ApprovedAccuracy = float64(posOK) / float64(posN)
	}
	if negN > 0 {
		ev.RejectedAccuracy = float64(negOK) / float64(negN)
	}
	if posN+negN > 0 {
		ev.Accuracy = float64(posOK+negOK) / float64(posN+negN)
	}
	return ev, nil
}

func (e *Engine) load(artifact *model.ModelArtifact) (classifier.Model, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: nil artifact", model.ErrModelNotFound)
	}
	if artifact.EmbeddingModelID != e.vectors.ModelID() {
		return nil, fmt.Errorf("%w: artifact %s expects %q, vectors come from %q",
			model.ErrEmbeddingModelMismatch, artifact.ID, artifact.EmbeddingModelID, e.vectors.ModelID())
	}
	return classifier.Load(artifact.Blob)
}

// decide returns raw decision values for every word whose vector resolved
func (e *Engine) decide(ctx context.Context, clf classifier.Model, embeddingModelID string, words []string) (map[string]float64, *model.BatchReport, error) {
	raws := make(map[string]float64, len(words))
	report := model.NewBatchReport(0)

	for start := 0; start < len(words); start += scoreChunk {
		end := min(start+scoreChunk, len(words))
		vecs, resolved := e.vectors.Resolve(ctx, words[start:end], embeddingModelID)
		report.Merge(resolved)

		for w, v := range vecs {
			d, err := clf.Decision(v)
			if err != nil {
				if errors.Is(err, model.ErrModelCorrupt) {
					return nil, report, fmt.Errorf("decide %s: %w", w, err)
				}
				return nil, report, fmt.Errorf("%w: decide %s: %v", model.ErrModelCorrupt, w, err)
			}
			raws[w] = d
		}
		if ctx.Err() != nil {
			break
		}
	}
	report.Succeeded = len(raws)
	return raws, report, nil
}

// Normalize maps raw scores onto 0..50 by floor((raw-min)/(max-min)*50).
// When every raw score is equal each word gets 50.
func Normalize(raws map[string]float64) map[string]int {
	out := make(map[string]int, len(raws))
	if len(raws) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range raws {
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}

	for w, r := range raws {
		if hi == lo {
			out[w] = model.MaxNormalizedScore
			continue
		}
		n := int(math.Floor((r - lo) / (hi - lo) * model.MaxNormalizedScore))
		out[w] = max(0, min(model.MaxNormalizedScore, n))
	}
	return out
}

// TrainingSetHash fingerprints the labeled snapshot an artifact was fitted on
func TrainingSetHash(approved, rejected []string) string {
	a := append([]string{}, approved...)
	r := append([]string{}, rejected...)
	sort.Strings(a)
	sort.Strings(r)

	h := sha256.New()
	h.Write([]byte("approved\n" + strings.Join(a, "\n") + "\nrejected\n" + strings.Join(r, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// splitLabels normalizes both sets and drops words labeled both ways
func splitLabels(approved, rejected []string) ([]string, []string, *model.BatchReport) {
	pos := model.NormalizeWords(approved)
	neg := model.NormalizeWords(rejected)

	inNeg := make(map[string]bool, len(neg))
	for _, w := range neg {
		inNeg[w] = true
	}
	ambiguous := make(map[string]bool)
	for _, w := range pos {
		if inNeg[w] {
			ambiguous[w] = true
		}
	}

	report := model.NewBatchReport(len(pos) + len(neg) - len(ambiguous))
	for w := range ambiguous {
		report.Fail(w, fmt.Errorf("%s is both approved and rejected", w))
	}

	keep := func(ws []string) []string {
		out := ws[:0]
		for _, w := range ws {
			if !ambiguous[w] {
				out = append(out, w)
			}
		}
		return out
	}
	return keep(pos), keep(neg), report
}

func present(words []string, vecs map[string]model.Vector) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := vecs[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

// stratify shuffles one class and holds out round(n*ratio) words for testing,
// always leaving at least one for training
func stratify(words []string, ratio float64, rng *rand.Rand) ([]string, []string) {
	shuffled := append([]string{}, words...)
	sort.Strings(shuffled)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	nTest := int(math.Round(float64(len(shuffled)) * ratio))
	nTest = max(0, min(nTest, len(shuffled)-1))
	return shuffled[nTest:], shuffled[:nTest]
}

func design(vecs map[string]model.Vector, pos, neg []string) ([]model.Vector, []int) {
	x := make([]model.Vector, 0, len(pos)+len(neg))
	y := make([]int, 0, len(pos)+len(neg))
	for _, w := range pos {
		x = append(x, vecs[w])
		y = append(y, classifier.Positive)
	}
	for _, w := range neg {
		x = append(x, vecs[w])
		y = append(y, classifier.Negative)
	}
	return x, y
}

func hits(raws map[string]float64, words []string, positive bool) (ok, n int) {
	for _, w := range words {
		r, found := raws[w]
		if !found {
			continue
		}
		n++
		if (r >= 0) == positive {
			ok++
		}
	}
	return ok, n
}
