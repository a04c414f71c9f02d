package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ppiankov/wordlist/internal/model"
)

// AppendLabelEvent writes one transition to the event log.
// The word row is created in the same transaction if missing.
func (s *SQLiteStore) AppendLabelEvent(ctx context.Context, ev LabelEventRow) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := ensureWord(ctx, tx, ev.Word, "", ev.At); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO label_events (word, action, status, outcome, at) VALUES (?, ?, ?, ?, ?)`,
			ev.Word, string(ev.Action), string(ev.Status), string(ev.Outcome), toUnix(ev.At))
		if err != nil {
			return fmt.Errorf("append label event for %s: %w", ev.Word, err)
		}
		return nil
	})
}

// LoadLabelEvents returns the event log in append order
func (s *SQLiteStore) LoadLabelEvents(ctx context.Context) ([]LabelEventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, word, action, status, outcome, at FROM label_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query label events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LabelEventRow
	for rows.Next() {
		var (
			r                       LabelEventRow
			action, status, outcome string
			at                      int64
		)
		if err := rows.Scan(&r.ID, &r.Word, &action, &status, &outcome, &at); err != nil {
			return nil, err
		}
		r.Action = model.Action(action)
		r.Status = model.Status(status)
		r.Outcome = model.Outcome(outcome)
		r.At = fromUnix(at)
		out = append(out, r)
	}
	return out, rows.Err()
}
