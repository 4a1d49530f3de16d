package persist

import (
	"context"
	"encoding/json"
	"fmt"
)

// JournalEntry is one time-control event worth keeping after a restart.
type JournalEntry struct {
	Kind    string  // "rewind_start", "rewind_end", "bubble_created", ...
	SimTime float64 // clock elapsed seconds when it happened
	Detail  map[string]any
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteBatch atomically writes a batch of journal entries in a single transaction.
func (r *JournalRepo) WriteBatch(ctx context.Context, session string, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		detail := e.Detail
		if detail == nil {
			detail = map[string]any{}
		}
		data, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("journal detail: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tempo_journal (session, kind, sim_time, detail)
			 VALUES ($1, $2, $3, $4)`,
			session, e.Kind, e.SimTime, data,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recent returns the newest entries of a session, newest first.
func (r *JournalRepo) Recent(ctx context.Context, session string, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT kind, sim_time, detail FROM tempo_journal
		 WHERE session = $1 ORDER BY id DESC LIMIT $2`, session, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e   JournalEntry
			raw []byte
		)
		if err := rows.Scan(&e.Kind, &e.SimTime, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
