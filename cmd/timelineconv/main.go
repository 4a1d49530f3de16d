// timelineconv exports a saved session timeline from PostgreSQL to YAML.
//
// Usage:
//
//	go run ./cmd/timelineconv <session> <output.yaml>
//
// The database settings come from TIMEWEAVE_CONFIG (default
// config/timeweave.toml).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/timeweave/engine/internal/config"
	"github.com/timeweave/engine/internal/persist"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type export struct {
	Session   string                  `yaml:"session"`
	SavedAt   time.Time               `yaml:"saved_at"`
	Scale     float64                 `yaml:"scale"`
	Energy    float64                 `yaml:"energy"`
	Elapsed   float64                 `yaml:"elapsed"`
	Snapshots []persist.NamedSnapshot `yaml:"snapshots"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: timelineconv <session> <output.yaml>")
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(session, outPath string) error {
	cfgPath := "config/timeweave.toml"
	if p := os.Getenv("TIMEWEAVE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	row, err := persist.NewTimelineRepo(db).LoadTimeline(ctx, session)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	if row == nil {
		return fmt.Errorf("no saved timeline for session %q", session)
	}
	snaps, err := persist.DecodeNamed(row.Snapshots)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Fprintf(out, "# Timeline %s, exported from the timelines table (%d snapshots)\n", session, len(snaps))
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(export{
		Session:   row.Session,
		SavedAt:   row.SavedAt,
		Scale:     row.Clock.Scale,
		Energy:    row.Clock.Energy,
		Elapsed:   row.Clock.Elapsed,
		Snapshots: snaps,
	}); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	fmt.Printf("Wrote %d snapshots to %s\n", len(snaps), outPath)
	return nil
}
