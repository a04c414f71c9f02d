package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the approval state of a word
type Status string

const (
	StatusUnchecked Status = "unchecked" // Initial state
	StatusApproved  Status = "approved"  // Hand-approved, retained in the final list
	StatusRejected  Status = "rejected"  // Hand-rejected, reversible via undo
)

// ParseStatus parses a status name (case-insensitive)
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusUnchecked:
		return StatusUnchecked, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", fmt.Errorf("unknown status: %q (supported: unchecked, approved, rejected)", s)
	}
}

// Action is a labeling event emitted by a reviewer
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionPass   Action = "pass"
	ActionUndo   Action = "undo"
)

// ParseAction parses an action name (case-insensitive)
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionAccept:
		return ActionAccept, nil
	case ActionReject:
		return ActionReject, nil
	case ActionPass:
		return ActionPass, nil
	case ActionUndo:
		return ActionUndo, nil
	default:
		return "", fmt.Errorf("unknown action: %q (supported: accept, reject, pass, undo)", s)
	}
}

// StatusEntry is one element of a word's status history
type StatusEntry struct {
	Status Status    `json:"status" yaml:"status"`
	At     time.Time `json:"at" yaml:"at"`
}

// LabelRecord is the ledger entry for one word.
// Status always equals the last History entry.
type LabelRecord struct {
	Word        string        `json:"word"`
	Status      Status        `json:"status"`
	History     []StatusEntry `json:"history"`
	Clues       string        `json:"clues,omitempty"`
	Skips       int           `json:"skips,omitempty"`
	LastSkipped *time.Time    `json:"last_skipped,omitempty"`
}

// Clone returns a deep copy safe to hand to callers
func (r *LabelRecord) Clone() *LabelRecord {
	c := *r
	c.History = append([]StatusEntry(nil), r.History...)
	if r.LastSkipped != nil {
		t := *r.LastSkipped
		c.LastSkipped = &t
	}
	return &c
}

// LabelEvent is a single labeling decision. A zero At means "now".
type LabelEvent struct {
	Word   string    `json:"word"`
	Action Action    `json:"action"`
	At     time.Time `json:"at,omitempty"`
}

// Outcome describes what Apply did with an event
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // New history entry appended
	OutcomeCoalesced Outcome = "coalesced" // Same status re-applied, tail timestamp advanced
	OutcomeSkipped   Outcome = "skipped"   // Pass: counted, history untouched
	OutcomeStale     Outcome = "stale"     // Older than the current tail, dropped
)
