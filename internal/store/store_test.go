package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureWord(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	created, err := s.EnsureWord(ctx, "HOUSE", "- home", at)
	if err != nil || !created {
		t.Fatalf("first EnsureWord: created=%v err=%v", created, err)
	}
	created, err = s.EnsureWord(ctx, "HOUSE", "", at.Add(time.Hour))
	if err != nil || created {
		t.Fatalf("second EnsureWord: created=%v err=%v", created, err)
	}

	rows, err := s.LoadWords(ctx)
	if err != nil {
		t.Fatalf("LoadWords: %v", err)
	}
	if len(rows) != 1 || rows[0].Clues != "- home" || !rows[0].AddedAt.Equal(at) {
		t.Errorf("unexpected rows: %+v", rows)
	}
	if rows[0].CluesLastUpdated != nil {
		t.Error("clues_last_updated should be unset")
	}

	if _, err := s.EnsureWord(ctx, "", "", at); err == nil {
		t.Error("expected error for empty word")
	}
}

func TestEnsureWords(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	if _, err := s.EnsureWord(ctx, "HOUSE", "", at); err != nil {
		t.Fatalf("EnsureWord: %v", err)
	}
	created, err := s.EnsureWords(ctx, []string{"HOUSE", "TABLE", "LAMP"}, at)
	if err != nil {
		t.Fatalf("EnsureWords: %v", err)
	}
	if len(created) != 2 || created[0] != "TABLE" || created[1] != "LAMP" {
		t.Errorf("unexpected created words: %v", created)
	}
}

func TestCluesBookkeeping(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, w := range []string{"LAMP", "HOUSE", "TABLE"} {
		if _, err := s.EnsureWord(ctx, w, "", base); err != nil {
			t.Fatal(err)
		}
	}

	// HOUSE attempted without result, TABLE resolved
	if err := s.UpdateClues(ctx, "HOUSE", "", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateClues(ctx, "TABLE", "- desk", base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	missing, err := s.WordsMissingClues(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	// Never-attempted words come before previously attempted ones
	if len(missing) != 2 || missing[0] != "LAMP" || missing[1] != "HOUSE" {
		t.Errorf("unexpected missing order: %v", missing)
	}

	limited, _ := s.WordsMissingClues(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %v", limited)
	}
}

func TestLabelEventLog(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	t1 := time.Date(2025, 1, 1, 0, 0, 0, 1, time.UTC)

	events := []LabelEventRow{
		{Word: "HOUSE", Action: model.ActionReject, Status: model.StatusRejected, Outcome: model.OutcomeApplied, At: t1},
		{Word: "HOUSE", Action: model.ActionUndo, Status: model.StatusUnchecked, Outcome: model.OutcomeApplied, At: t1.Add(time.Second)},
	}
	for _, ev := range events {
		if err := s.AppendLabelEvent(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.LoadLabelEvents(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Action != model.ActionReject || got[1].Status != model.StatusUnchecked {
		t.Errorf("unexpected events: %+v", got)
	}
	if !got[0].At.Equal(t1) {
		t.Errorf("timestamp lost nanosecond precision: %v", got[0].At)
	}

	// The word row is created alongside its first event
	words, _ := s.ListWords(ctx)
	if len(words) != 1 || words[0] != "HOUSE" {
		t.Errorf("expected HOUSE in words, got %v", words)
	}
}

func TestVectorsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	vecs := map[string]model.Vector{
		"HOUSE": {0.1, -0.5, float32(math.Pi)},
		"LAMP":  {1, 2, 3},
	}
	if err := s.PutVectors(ctx, "m1", vecs); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.GetVectors(ctx, []string{"HOUSE", "LAMP", "TABLE"}, "m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
	for i, f := range vecs["HOUSE"] {
		if got["HOUSE"][i] != f {
			t.Errorf("component %d: expected %v, got %v", i, f, got["HOUSE"][i])
		}
	}

	other, err := s.GetVectors(ctx, []string{"HOUSE"}, "m2")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != 0 {
		t.Error("vectors must be keyed by embedding model")
	}
}

func TestGetVectors_ManyWords(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	vecs := make(map[string]model.Vector)
	words := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		w := fmt.Sprintf("W%04d", i)
		words = append(words, w)
		vecs[w] = model.Vector{float32(i)}
	}
	if err := s.PutVectors(ctx, "m", vecs); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVectors(ctx, words, "m")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(vecs) {
		t.Errorf("expected %d vectors across chunks, got %d", len(vecs), len(got))
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated blob")
	}
	v, err := DecodeVector(EncodeVector(model.Vector{}))
	if err != nil || len(v) != 0 {
		t.Errorf("empty round trip: %v %v", v, err)
	}
}

func TestModels(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestModel(ctx); !errors.Is(err, model.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a1 := &model.ModelArtifact{ID: "a1", CreatedAt: base, EmbeddingModelID: "e", TrainingSetHash: "h",
		ApprovedCount: 2, RejectedCount: 3, TrainAccuracy: 0.9, TestAccuracy: 0.8,
		Params: map[string]string{"lambda": "0.0001"}, Blob: []byte("blob1")}
	a2 := &model.ModelArtifact{ID: "a2", CreatedAt: base.Add(time.Hour), EmbeddingModelID: "e", Blob: []byte("blob2")}

	for _, a := range []*model.ModelArtifact{a1, a2} {
		if err := s.SaveModel(ctx, a); err != nil {
			t.Fatalf("save %s: %v", a.ID, err)
		}
	}
	if err := s.SaveModel(ctx, a1); err == nil {
		t.Error("artifacts must be immutable")
	}

	got, err := s.GetModel(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Blob) != "blob1" || got.Params["lambda"] != "0.0001" || got.TestAccuracy != 0.8 {
		t.Errorf("unexpected artifact: %+v", got)
	}

	latest, err := s.LatestModel(ctx)
	if err != nil || latest.ID != "a2" {
		t.Errorf("expected latest a2, got %v (%v)", latest, err)
	}

	list, err := s.ListModels(ctx)
	if err != nil || len(list) != 2 || list[0].ID != "a2" || list[0].Blob != nil {
		t.Errorf("unexpected list: %+v (%v)", list, err)
	}

	if _, err := s.GetModel(ctx, "zz"); !errors.Is(err, model.ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound, got %v", err)
	}
}

func TestScores(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, w := range []string{"HOUSE", "LAMP", "TABLE"} {
		if _, err := s.EnsureWord(ctx, w, "", base); err != nil {
			t.Fatal(err)
		}
	}

	recs := []model.ScoreRecord{
		{Word: "HOUSE", ModelID: "m1", BatchID: "b1", Raw: 1.5, Normalized: 40, ScoredAt: base},
		{Word: "HOUSE", ModelID: "m1", BatchID: "b2", Raw: 1.9, Normalized: 48, ScoredAt: base.Add(time.Hour)},
		{Word: "LAMP", ModelID: "m1", BatchID: "b2", Raw: 0.2, Normalized: 30, ScoredAt: base.Add(time.Hour)},
		{Word: "LAMP", ModelID: "m2", BatchID: "b3", Raw: 0.1, Normalized: 10, ScoredAt: base.Add(2 * time.Hour)},
	}
	if err := s.WriteScores(ctx, recs); err != nil {
		t.Fatalf("write scores: %v", err)
	}

	latest, err := s.LatestScores(ctx, "m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 2 || latest[0].Word != "HOUSE" || latest[0].Normalized != 48 || latest[1].Normalized != 30 {
		t.Errorf("unexpected latest for m1: %+v", latest)
	}

	all, _ := s.LatestScores(ctx, "")
	if len(all) != 2 || all[1].ModelID != "m2" {
		t.Errorf("unexpected latest across models: %+v", all)
	}

	missing, err := s.WordsMissingScores(ctx, "m1")
	if err != nil || len(missing) != 1 || missing[0] != "TABLE" {
		t.Errorf("unexpected missing: %v (%v)", missing, err)
	}
}

func TestWriteScores_Cancelled(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.WriteScores(ctx, []model.ScoreRecord{{Word: "HOUSE", ModelID: "m"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSources(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id1, err := s.UpsertSource(ctx, "spread", "https://example.com", "list.txt")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.UpsertSource(ctx, "spread", "https://example.com", "list.txt")
	if err != nil || id1 != id2 {
		t.Fatalf("expected same id, got %d and %d (%v)", id1, id2, err)
	}
	if _, err := s.UpsertSource(ctx, "spread", "https://other.com", "list.txt"); !errors.Is(err, ErrSourceConflict) {
		t.Errorf("expected ErrSourceConflict, got %v", err)
	}

	if err := s.LinkSourceWords(ctx, id1, model.CandidatePool{"HOUSE": model.IntPtr(50), "LAMP": nil}); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkSourceWords(ctx, id1, model.CandidatePool{"HOUSE": model.IntPtr(40)}); err != nil {
		t.Fatal(err)
	}
	n, err := s.SourceWordCount(ctx, id1)
	if err != nil || n != 2 {
		t.Errorf("expected 2 linked words, got %d (%v)", n, err)
	}
}
