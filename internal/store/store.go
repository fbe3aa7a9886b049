// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package store keeps the history of finished sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/racket_tracker/internal/gps"
	"github.com/relabs-tech/racket_tracker/internal/session"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

// savedAtLayout is fixed width so saved_at sorts as text.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z"

// QAMeta describes the equipment a session was recorded with.
type QAMeta struct {
	StrapTag string `json:"strapTag" yaml:"strapTag"`
	Racket   string `json:"racket" yaml:"racket"`
	GripSize string `json:"gripSize" yaml:"gripSize"`
	Overgrip bool   `json:"overgrip" yaml:"overgrip"`
	Notes    string `json:"notes" yaml:"notes"`
}

// DefaultQAMeta is the metadata used when the player did not fill any in.
func DefaultQAMeta() QAMeta {
	return QAMeta{StrapTag: "Strap-A", Racket: "Default Racket", GripSize: "M"}
}

// Record is one saved session.
type Record struct {
	ID      string          `json:"id" yaml:"id"`
	SavedAt time.Time       `json:"savedAt" yaml:"savedAt"`
	Summary session.Summary `json:"summary" yaml:"summary"`
	Meta    QAMeta          `json:"meta" yaml:"meta"`
	Venue   *gps.Fix        `json:"venue,omitempty" yaml:"venue,omitempty"`
}

// Store wraps SQLite access for session history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			_ = cerr
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL,
			sport TEXT NOT NULL,
			started_at_ms INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			swings INTEGER NOT NULL,
			max_rally INTEGER NOT NULL,
			avg_speed REAL NOT NULL,
			max_speed REAL NOT NULL,
			strap_tag TEXT NOT NULL,
			racket TEXT NOT NULL,
			grip_size TEXT NOT NULL,
			overgrip INTEGER NOT NULL,
			notes TEXT NOT NULL,
			venue_lat REAL,
			venue_lon REAL,
			venue_time TEXT,
			venue_date TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS session_events (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			t_ms INTEGER NOT NULL,
			speed REAL NOT NULL,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_saved_at ON sessions(saved_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_sport ON sessions(sport);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save stores a finished session and its impacts. An empty rec.ID gets a new
// UUID and a zero SavedAt is set to now. The id is returned.
func (s *Store) Save(ctx context.Context, rec Record, events []session.Event) (id string, err error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				_ = rerr
			}
		}
	}()

	var lat, lon sql.NullFloat64
	var vTime, vDate sql.NullString
	if rec.Venue != nil {
		lat = sql.NullFloat64{Float64: rec.Venue.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: rec.Venue.Longitude, Valid: true}
		vTime = sql.NullString{String: rec.Venue.Time, Valid: true}
		vDate = sql.NullString{String: rec.Venue.Date, Valid: true}
	}

	sum := rec.Summary
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, saved_at, sport, started_at_ms, duration_ms, swings, max_rally, avg_speed, max_speed,
			strap_tag, racket, grip_size, overgrip, notes, venue_lat, venue_lon, venue_time, venue_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.SavedAt.UTC().Format(savedAtLayout),
		sum.Sport,
		sum.StartedAtMs,
		sum.DurationMs,
		sum.Swings,
		sum.MaxRally,
		sum.AvgSpeed,
		sum.MaxSpeed,
		rec.Meta.StrapTag,
		rec.Meta.Racket,
		rec.Meta.GripSize,
		rec.Meta.Overgrip,
		rec.Meta.Notes,
		lat, lon, vTime, vDate,
	)
	if err != nil {
		return "", err
	}

	if len(events) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_events (session_id, seq, t_ms, speed) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				_ = cerr
			}
		}()
		for i, ev := range events {
			if _, err := stmt.ExecContext(ctx, rec.ID, i, ev.TMs, ev.Speed); err != nil {
				return "", err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}
	return rec.ID, nil
}

const selectSessions = `SELECT id, saved_at, sport, started_at_ms, duration_ms, swings, max_rally, avg_speed, max_speed,
	strap_tag, racket, grip_size, overgrip, notes, venue_lat, venue_lon, venue_time, venue_date
	FROM sessions`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec          Record
		savedAt      string
		lat, lon     sql.NullFloat64
		vTime, vDate sql.NullString
	)
	err := row.Scan(&rec.ID, &savedAt, &rec.Summary.Sport, &rec.Summary.StartedAtMs, &rec.Summary.DurationMs,
		&rec.Summary.Swings, &rec.Summary.MaxRally, &rec.Summary.AvgSpeed, &rec.Summary.MaxSpeed,
		&rec.Meta.StrapTag, &rec.Meta.Racket, &rec.Meta.GripSize, &rec.Meta.Overgrip, &rec.Meta.Notes,
		&lat, &lon, &vTime, &vDate)
	if err != nil {
		return Record{}, err
	}
	rec.SavedAt, err = time.Parse(savedAtLayout, savedAt)
	if err != nil {
		return Record{}, fmt.Errorf("session %s: saved_at %q: %w", rec.ID, savedAt, err)
	}
	if lat.Valid && lon.Valid {
		rec.Venue = &gps.Fix{
			Latitude:  lat.Float64,
			Longitude: lon.Float64,
			Time:      vTime.String,
			Date:      vDate.String,
			Validity:  "A",
		}
	}
	return rec, nil
}

// List returns saved sessions newest first. An empty sport matches all sports;
// a non-positive limit returns everything.
func (s *Store) List(ctx context.Context, sport string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		selectSessions+` WHERE (? = '' OR sport = ?) ORDER BY saved_at DESC LIMIT ?`,
		sport, sport, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			_ = cerr
		}
	}()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one session by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectSessions+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// Events returns the impacts of a session in the order they happened.
func (s *Store) Events(ctx context.Context, id string) ([]session.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t_ms, speed FROM session_events WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			_ = cerr
		}
	}()

	var result []session.Event
	for rows.Next() {
		var ev session.Event
		if err := rows.Scan(&ev.TMs, &ev.Speed); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

// Clear deletes every saved session.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM session_events`, `DELETE FROM sessions`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				_ = rerr
			}
			return err
		}
	}
	return tx.Commit()
}
