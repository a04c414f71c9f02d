// Package label keeps the per-word approval state machine and its
// append-only history, persisted as an event log.
package label

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/wordlist/internal/model"
	"github.com/ppiankov/wordlist/internal/store"
	"github.com/ppiankov/wordlist/pkg/logger"
	"github.com/ppiankov/wordlist/pkg/metrics"
)

// Persister is the durable side of the label store
type Persister interface {
	EnsureWord(ctx context.Context, word, clues string, at time.Time) (bool, error)
	EnsureWords(ctx context.Context, words []string, at time.Time) ([]string, error)
	UpdateClues(ctx context.Context, word, clues string, at time.Time) error
	AppendLabelEvent(ctx context.Context, ev store.LabelEventRow) error
	LoadWords(ctx context.Context) ([]store.WordRow, error)
	LoadLabelEvents(ctx context.Context) ([]store.LabelEventRow, error)
}

type entry struct {
	mu  sync.Mutex
	rec *model.LabelRecord
}

// Store holds every LabelRecord in memory. Writes to one word are serialized
// by that word's mutex and reach the Persister before they become visible.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entry

	persist Persister
	now     func() time.Time
	metrics *metrics.Manager
	log     logger.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock replaces the wall clock used for live events
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records label outcomes on m
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New creates an empty store; call Load to replay persisted events
func New(p Persister, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*entry),
		persist: p,
		now:     func() time.Time { return time.Now().UTC() },
		metrics: metrics.Default(),
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replays the persisted words and event log into memory, replacing
// whatever the store held
func (s *Store) Load(ctx context.Context) error {
	words, err := s.persist.LoadWords(ctx)
	if err != nil {
		return fmt.Errorf("load words: %w", err)
	}
	events, err := s.persist.LoadLabelEvents(ctx)
	if err != nil {
		return fmt.Errorf("load label events: %w", err)
	}

	records := make(map[string]*entry, len(words))
	for _, w := range words {
		records[w.Word] = &entry{rec: newRecord(w.Word, w.Clues, w.AddedAt)}
	}

	for _, ev := range events {
		e, ok := records[ev.Word]
		if !ok {
			e = &entry{rec: newRecord(ev.Word, "", ev.At.Add(-time.Nanosecond))}
			records[ev.Word] = e
		}
		replay(e.rec, ev)
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()

	s.log.Debug(ctx, "label store loaded",
		logger.Int("words", len(words)),
		logger.Int("events", len(events)))
	return nil
}

func replay(rec *model.LabelRecord, ev store.LabelEventRow) {
	switch ev.Outcome {
	case model.OutcomeApplied:
		if len(rec.History) == 1 && !ev.At.After(rec.History[0].At) {
			rec.History[0].At = ev.At.Add(-time.Nanosecond)
		}
		rec.History = append(rec.History, model.StatusEntry{Status: ev.Status, At: ev.At})
		rec.Status = ev.Status
	case model.OutcomeCoalesced:
		tail := &rec.History[len(rec.History)-1]
		if ev.At.After(tail.At) {
			tail.At = ev.At
		}
	case model.OutcomeSkipped:
		rec.Skips++
		at := ev.At
		rec.LastSkipped = &at
	}
}

func newRecord(word, clues string, at time.Time) *model.LabelRecord {
	return &model.LabelRecord{
		Word:    word,
		Status:  model.StatusUnchecked,
		History: []model.StatusEntry{{Status: model.StatusUnchecked, At: at}},
		Clues:   clues,
	}
}

// Ensure creates an unchecked record for word on first encounter.
// Returns true when the record was created.
func (s *Store) Ensure(ctx context.Context, word, clues string) (bool, error) {
	word = model.NormalizeWord(word)
	if word == "" {
		return false, fmt.Errorf("word is empty after normalization")
	}
	_, created, err := s.entryFor(ctx, word, clues, s.now())
	return created, err
}

// EnsureAll creates records for every new word in one persisted batch.
// Returns the number of records created.
func (s *Store) EnsureAll(ctx context.Context, words []string) (int, error) {
	words = model.NormalizeWords(words)
	at := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []string
	for _, w := range words {
		if _, ok := s.records[w]; !ok {
			fresh = append(fresh, w)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// Words already persisted but not loaded keep their stored record
	created, err := s.persist.EnsureWords(ctx, fresh, at)
	if err != nil {
		return 0, fmt.Errorf("ensure words: %w", err)
	}
	for _, w := range created {
		s.records[w] = &entry{rec: newRecord(w, "", at)}
	}
	return len(created), nil
}

// entryFor returns the entry of word, creating and persisting it at createdAt
// when missing
func (s *Store) entryFor(ctx context.Context, word, clues string, createdAt time.Time) (*entry, bool, error) {
	s.mu.RLock()
	e, ok := s.records[word]
	s.mu.RUnlock()
	if ok {
		return e, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.records[word]; ok {
		return e, false, nil
	}

	if _, err := s.persist.EnsureWord(ctx, word, clues, createdAt); err != nil {
		return nil, false, fmt.Errorf("ensure %s: %w", word, err)
	}
	e = &entry{rec: newRecord(word, clues, createdAt)}
	s.records[word] = e
	return e, true, nil
}

// Apply runs one labeling event through the state machine.
//
// Accept and Reject move any status to approved or rejected; Undo moves
// rejected back to unchecked and fails otherwise; Pass only counts a skip.
// Re-applying the current status advances the tail timestamp (Coalesced).
// An event with an explicit time older than the tail is dropped (Stale),
// unless the tail is the creation entry: that entry moves to 1ns before the
// event. A live event, or an explicit one at the tail's time, lands 1ns after
// the tail.
func (s *Store) Apply(ctx context.Context, ev model.LabelEvent) (model.Outcome, error) {
	word := model.NormalizeWord(ev.Word)
	if word == "" {
		return "", fmt.Errorf("word is empty after normalization")
	}

	live := ev.At.IsZero()
	at := ev.At.UTC()
	if live {
		at = s.now()
	}

	e, _, err := s.entryFor(ctx, word, "", at.Add(-time.Nanosecond))
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	outcome, err := s.transition(ctx, e, word, ev.Action, at, live)
	if err != nil {
		return "", err
	}
	s.metrics.RecordLabelEvent(string(ev.Action), string(outcome))
	return outcome, nil
}

// transition runs with e.mu held
func (s *Store) transition(ctx context.Context, e *entry, word string, action model.Action, at time.Time, live bool) (model.Outcome, error) {
	rec := e.rec
	tail := rec.History[len(rec.History)-1]

	var target model.Status
	switch action {
	case model.ActionAccept:
		target = model.StatusApproved
	case model.ActionReject:
		target = model.StatusRejected
	case model.ActionUndo:
		if rec.Status != model.StatusRejected {
			return "", fmt.Errorf("%w: undo on %s word %s", model.ErrInvalidTransition, rec.Status, word)
		}
		target = model.StatusUnchecked
	case model.ActionPass:
		row := store.LabelEventRow{Word: word, Action: action, Status: rec.Status, Outcome: model.OutcomeSkipped, At: at}
		if err := s.persist.AppendLabelEvent(ctx, row); err != nil {
			return "", fmt.Errorf("persist pass on %s: %w", word, err)
		}
		rec.Skips++
		rec.LastSkipped = &at
		return model.OutcomeSkipped, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", model.ErrInvalidTransition, action)
	}

	// Only label transitions can make an event stale
	backdate := len(rec.History) == 1 && !live && !at.After(tail.At)
	if !backdate && !at.After(tail.At) {
		if !live && at.Before(tail.At) {
			s.log.Debug(ctx, "stale label event dropped",
				logger.String("word", word),
				logger.String("action", string(action)))
			return model.OutcomeStale, nil
		}
		at = tail.At.Add(time.Nanosecond)
	}

	outcome := model.OutcomeApplied
	if target == rec.Status {
		outcome = model.OutcomeCoalesced
	}

	row := store.LabelEventRow{Word: word, Action: action, Status: target, Outcome: outcome, At: at}
	if err := s.persist.AppendLabelEvent(ctx, row); err != nil {
		return "", fmt.Errorf("persist %s on %s: %w", action, word, err)
	}

	if backdate {
		rec.History[0].At = at.Add(-time.Nanosecond)
	}
	if outcome == model.OutcomeCoalesced {
		rec.History[len(rec.History)-1].At = at
	} else {
		rec.History = append(rec.History, model.StatusEntry{Status: target, At: at})
		rec.Status = target
	}
	return outcome, nil
}

// SetClues stores clues for word and stamps the attempt
func (s *Store) SetClues(ctx context.Context, word, clues string) error {
	word = model.NormalizeWord(word)
	s.mu.RLock()
	e, ok := s.records[word]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrUnknownWord, word)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.persist.UpdateClues(ctx, word, clues, s.now()); err != nil {
		return err
	}
	if clues != "" {
		e.rec.Clues = clues
	}
	return nil
}

// Get returns a copy of the record of word
func (s *Store) Get(word string) (*model.LabelRecord, bool) {
	s.mu.RLock()
	e, ok := s.records[model.NormalizeWord(word)]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone(), true
}

// History returns the status history of word
func (s *Store) History(word string) ([]model.StatusEntry, error) {
	rec, ok := s.Get(word)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownWord, model.NormalizeWord(word))
	}
	return rec.History, nil
}

// Export returns the words whose current status is status, sorted
func (s *Store) Export(status model.Status) []string {
	var out []string
	s.each(func(rec *model.LabelRecord) {
		if rec.Status == status {
			out = append(out, rec.Word)
		}
	})
	sort.Strings(out)
	return out
}

// Counts returns the number of words per status
func (s *Store) Counts() map[model.Status]int {
	out := map[model.Status]int{
		model.StatusUnchecked: 0,
		model.StatusApproved:  0,
		model.StatusRejected:  0,
	}
	s.each(func(rec *model.LabelRecord) { out[rec.Status]++ })
	return out
}

// Len returns the number of records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) each(fn func(rec *model.LabelRecord)) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.records))
	for _, e := range s.records {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		fn(e.rec)
		e.mu.Unlock()
	}
}
