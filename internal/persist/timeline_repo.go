package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/timeweave/engine/internal/tempo"
)

// Entity ids are only meaningful inside one process, so stored snapshots
// key entities by a stable host name instead.

// NameOf maps a live entity to its stable name. ok=false drops the entity.
type NameOf func(id tempo.EntityID) (string, bool)

// IDOf maps a stable name back to a live entity. ok=false drops the entity.
type IDOf func(name string) (tempo.EntityID, bool)

// NamedSnapshot is the stored form of one timeline snapshot.
type NamedSnapshot struct {
	T        float64                           `json:"t" yaml:"t"`
	Scale    float64                           `json:"scale" yaml:"scale"`
	Energy   float64                           `json:"energy" yaml:"energy"`
	Entities map[string]tempo.PropertySnapshot `json:"entities" yaml:"entities"`
}

// EncodeSnapshots serializes a timeline to JSON, keying entities by name.
func EncodeSnapshots(snaps []*tempo.TimelineSnapshot, nameOf NameOf) ([]byte, error) {
	rows := make([]NamedSnapshot, 0, len(snaps))
	for _, s := range snaps {
		row := NamedSnapshot{
			T:        s.Timestamp,
			Scale:    s.Scale,
			Energy:   s.Energy,
			Entities: make(map[string]tempo.PropertySnapshot, len(s.Entities)),
		}
		for id, ps := range s.Entities {
			if name, ok := nameOf(id); ok {
				row.Entities[name] = ps
			}
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}

// DecodeSnapshots parses a timeline written by EncodeSnapshots. Entities
// that no longer resolve are skipped.
func DecodeSnapshots(raw []byte, idOf IDOf) ([]*tempo.TimelineSnapshot, error) {
	rows, err := DecodeNamed(raw)
	if err != nil {
		return nil, err
	}
	out := make([]*tempo.TimelineSnapshot, 0, len(rows))
	for _, r := range rows {
		s := &tempo.TimelineSnapshot{
			Timestamp: r.T,
			Scale:     r.Scale,
			Energy:    r.Energy,
			Entities:  make(map[tempo.EntityID]tempo.PropertySnapshot, len(r.Entities)),
		}
		for name, ps := range r.Entities {
			if id, ok := idOf(name); ok {
				s.Entities[id] = ps
			}
		}
		out = append(out, s)
	}
	return out, nil
}

// DecodeNamed parses stored snapshots without resolving entity names.
func DecodeNamed(raw []byte) ([]NamedSnapshot, error) {
	var rows []NamedSnapshot
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	return rows, nil
}

// TimelineRow is one saved session.
type TimelineRow struct {
	Session   string
	Clock     tempo.ClockState
	Snapshots []byte // EncodeSnapshots output
	Count     int
	SavedAt   time.Time
}

type TimelineRepo struct {
	db *DB
}

func NewTimelineRepo(db *DB) *TimelineRepo {
	return &TimelineRepo{db: db}
}

// SaveTimeline upserts the clock state and snapshot history of a session.
func (r *TimelineRepo) SaveTimeline(ctx context.Context, session string, clock tempo.ClockState, snaps []*tempo.TimelineSnapshot, nameOf NameOf) error {
	data, err := EncodeSnapshots(snaps, nameOf)
	if err != nil {
		return err
	}
	clk, err := json.Marshal(clock)
	if err != nil {
		return err
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO timelines (session, clock, snapshots, snapshot_ct, saved_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (session) DO UPDATE
		 SET clock = EXCLUDED.clock, snapshots = EXCLUDED.snapshots,
		     snapshot_ct = EXCLUDED.snapshot_ct, saved_at = EXCLUDED.saved_at`,
		session, clk, data, len(snaps),
	)
	if err != nil {
		return fmt.Errorf("save timeline %s: %w", session, err)
	}
	return nil
}

// LoadTimeline returns the saved session, or nil if none exists.
func (r *TimelineRepo) LoadTimeline(ctx context.Context, session string) (*TimelineRow, error) {
	var (
		row TimelineRow
		clk []byte
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT session, clock, snapshots, snapshot_ct, saved_at
		 FROM timelines WHERE session = $1`, session,
	).Scan(&row.Session, &clk, &row.Snapshots, &row.Count, &row.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(clk, &row.Clock); err != nil {
		return nil, fmt.Errorf("decode clock: %w", err)
	}
	return &row, nil
}

// DeleteSession removes a session's timeline and journal.
func (r *TimelineRepo) DeleteSession(ctx context.Context, session string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete session begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tempo_journal WHERE session = $1`, session); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM timelines WHERE session = $1`, session); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
