// Package persistence provides SQLite-based storage of generated crowds so a
// run can be inspected or re-exported later.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crowdmech/internal/agents"
	"github.com/talgya/crowdmech/internal/crowd"
	"github.com/talgya/crowdmech/internal/measures"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// MetaLastRun is the meta key holding the id of the most recent run.
const MetaLastRun = "last_run"

// DB wraps a SQLite connection for run storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		width REAL NOT NULL,
		height REAL NOT NULL,
		state TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		residual_overlaps INTEGER NOT NULL,
		out_of_bounds INTEGER NOT NULL,
		agent_count INTEGER NOT NULL,
		statistics_json TEXT NOT NULL,
		created_unix INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		measures_json TEXT NOT NULL,
		pos_x REAL NOT NULL,
		pos_y REAL NOT NULL,
		orientation REAL NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_unix);
	CREATE INDEX IF NOT EXISTS idx_agents_run ON agents(run_id, seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is the stored summary of one generated crowd.
type Run struct {
	ID               uuid.UUID `db:"id"`
	Seed             int64     `db:"seed"`
	Width            float64   `db:"width"`
	Height           float64   `db:"height"`
	State            string    `db:"state"`
	Iterations       int       `db:"iterations"`
	ResidualOverlaps int       `db:"residual_overlaps"`
	OutOfBounds      int       `db:"out_of_bounds"`
	AgentCount       int       `db:"agent_count"`
	StatisticsJSON   string    `db:"statistics_json"`
	CreatedUnix      int64     `db:"created_unix"`
}

// Created returns the creation time.
func (r Run) Created() time.Time {
	return time.Unix(0, r.CreatedUnix)
}

type agentRow struct {
	RunID        uuid.UUID `db:"run_id"`
	ID           uint64    `db:"id"`
	Seq          int       `db:"seq"`
	Type         string    `db:"type"`
	MeasuresJSON string    `db:"measures_json"`
	PosX         float64   `db:"pos_x"`
	PosY         float64   `db:"pos_y"`
	Orientation  float64   `db:"orientation"`
}

// SaveCrowd stores the crowd with its packing outcome and returns the new
// run id. Agent geometry is not stored; it is rebuilt from measures.
func (db *DB) SaveCrowd(ctx context.Context, c *crowd.Crowd, seed int64, res crowd.PackResult) (uuid.UUID, error) {
	id := uuid.New()
	stats, err := json.Marshal(c.Statistics)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode statistics: %w", err)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `INSERT INTO runs
		(id, seed, width, height, state, iterations, residual_overlaps,
		 out_of_bounds, agent_count, statistics_json, created_unix)
		VALUES (:id, :seed, :width, :height, :state, :iterations, :residual_overlaps,
		 :out_of_bounds, :agent_count, :statistics_json, :created_unix)`,
		Run{
			ID:               id,
			Seed:             seed,
			Width:            c.Boundary.Width,
			Height:           c.Boundary.Height,
			State:            c.State().String(),
			Iterations:       res.Iterations,
			ResidualOverlaps: res.ResidualOverlaps,
			OutOfBounds:      res.OutOfBounds,
			AgentCount:       len(c.Agents),
			StatisticsJSON:   string(stats),
			CreatedUnix:      time.Now().UnixNano(),
		})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO agents
		(run_id, id, seq, type, measures_json, pos_x, pos_y, orientation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return uuid.Nil, err
	}
	defer stmt.Close()

	for i, a := range c.Agents {
		m, err := json.Marshal(a.Measures().Values())
		if err != nil {
			return uuid.Nil, fmt.Errorf("encode agent %d measures: %w", a.ID, err)
		}
		p := a.Position()
		if _, err := stmt.ExecContext(ctx, id, uint64(a.ID), i, a.Type.String(), string(m), p.X, p.Y, a.Orientation()); err != nil {
			return uuid.Nil, fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", MetaLastRun, id.String()); err != nil {
		return uuid.Nil, fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return uuid.Nil, err
	}

	slog.Info("crowd saved", "run", id, "agents", len(c.Agents), "state", c.State().String())
	return id, nil
}

// GetRun returns the summary of one run.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	var r Run
	err := db.conn.GetContext(ctx, &r, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LoadCrowd rebuilds a stored crowd. Each agent is regenerated from its
// measures and moved to its stored pose.
func (db *DB) LoadCrowd(ctx context.Context, id uuid.UUID) (*crowd.Crowd, Run, error) {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, Run{}, err
	}
	var stats measures.Statistics
	if err := json.Unmarshal([]byte(run.StatisticsJSON), &stats); err != nil {
		return nil, Run{}, fmt.Errorf("decode statistics: %w", err)
	}
	c, err := crowd.New(crowd.Boundary{Width: run.Width, Height: run.Height}, stats)
	if err != nil {
		return nil, Run{}, err
	}

	var rows []agentRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT * FROM agents WHERE run_id = ? ORDER BY seq", id); err != nil {
		return nil, Run{}, fmt.Errorf("select agents: %w", err)
	}
	// Restoring draws nothing at random; the spawner only issues stored ids.
	sp := agents.NewSpawner(nil)
	for _, row := range rows {
		sp.SetNextID(agents.AgentID(row.ID))
		a, err := row.agent(sp)
		if err != nil {
			return nil, Run{}, err
		}
		c.Add(a)
	}
	state, err := crowd.ParseState(run.State)
	if err != nil {
		return nil, Run{}, err
	}
	c.SetState(state)
	return c, run, nil
}

func (row agentRow) agent(sp *agents.Spawner) (*agents.Agent, error) {
	t, err := measures.ParseAgentType(row.Type)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", row.ID, err)
	}
	var values map[string]float64
	if err := json.Unmarshal([]byte(row.MeasuresJSON), &values); err != nil {
		return nil, fmt.Errorf("agent %d measures: %w", row.ID, err)
	}
	m, err := measures.New(t, values)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", row.ID, err)
	}
	a, err := sp.FromMeasures(m)
	if err != nil {
		return nil, err
	}
	p := a.Position()
	a.Move(row.PosX-p.X, row.PosY-p.Y, row.Orientation)
	return a, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.SelectContext(ctx, &runs,
		"SELECT * FROM runs ORDER BY created_unix DESC LIMIT ?", limit)
	return runs, err
}

// DeleteRun removes a run and its agents.
func (db *DB) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// LastRun returns the id of the most recently saved run.
func (db *DB) LastRun(ctx context.Context) (uuid.UUID, error) {
	v, err := db.GetMeta(ctx, MetaLastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrRunNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(v)
}
