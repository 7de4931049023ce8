// Package db persists saved display patterns and a log of frames sent to
// the device, backed by a local sqlite database.
package db

import (
	"compress/gzip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/ledgrid/internal/frame"
	"github.com/banshee-data/ledgrid/internal/monitoring"
)

// ErrPatternNotFound is returned when a pattern ID does not exist.
var ErrPatternNotFound = errors.New("pattern not found")

type DB struct {
	*sql.DB
	path string
}

// OpenDB opens the database without touching the schema. Use this when
// migrations will manage the schema (e.g. the migrate subcommand).
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// NewDB opens the database and brings the schema up to date.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// Pattern is a named, saved 8x8 bitmap.
type Pattern struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Rows      frame.Bitmap `json:"rows"`
	CreatedAt time.Time    `json:"created_at"`
}

// SavePattern stores a bitmap under a name and returns its generated ID.
func (db *DB) SavePattern(name string, bm frame.Bitmap) (string, error) {
	if err := bm.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO patterns (pattern_id, name, rows) VALUES (?, ?, ?)",
		id, name, []byte(bm),
	)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Pattern fetches one saved pattern by ID.
func (db *DB) Pattern(id string) (*Pattern, error) {
	var p Pattern
	var rows []byte
	err := db.QueryRow(
		"SELECT pattern_id, name, rows, created_at FROM patterns WHERE pattern_id = ?", id,
	).Scan(&p.ID, &p.Name, &rows, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	p.Rows = frame.Bitmap(rows)
	return &p, nil
}

// Patterns lists saved patterns, newest first.
func (db *DB) Patterns() ([]Pattern, error) {
	rows, err := db.Query(
		"SELECT pattern_id, name, rows, created_at FROM patterns ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []Pattern
	for rows.Next() {
		var p Pattern
		var blob []byte
		if err := rows.Scan(&p.ID, &p.Name, &blob, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Rows = frame.Bitmap(blob)
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// DeletePattern removes a saved pattern.
func (db *DB) DeletePattern(id string) error {
	res, err := db.Exec("DELETE FROM patterns WHERE pattern_id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrPatternNotFound, id)
	}
	return nil
}

// LogFrame records a frame that was sent to the device, tagged with the
// input mode that produced it (text, grid, draw, pattern).
func (db *DB) LogFrame(source string, bm frame.Bitmap) error {
	if err := bm.Validate(); err != nil {
		return err
	}
	_, err := db.Exec(
		"INSERT INTO frame_log (source, rows) VALUES (?, ?)",
		source, []byte(bm),
	)
	return err
}

// SentFrame is one entry of the frame log.
type SentFrame struct {
	ID     int64        `json:"id"`
	Source string       `json:"source"`
	Rows   frame.Bitmap `json:"rows"`
	SentAt time.Time    `json:"sent_at"`
}

// RecentFrames returns the most recently sent frames, newest first.
func (db *DB) RecentFrames(limit int) ([]SentFrame, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(
		"SELECT frame_log_id, source, rows, sent_at FROM frame_log ORDER BY frame_log_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []SentFrame
	for rows.Next() {
		var f SentFrame
		var blob []byte
		if err := rows.Scan(&f.ID, &f.Source, &blob, &f.SentAt); err != nil {
			return nil, err
		}
		f.Rows = frame.Bitmap(blob)
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://"+db.path, db.DB, &tailsql.DBOptions{
		Label: "Ledgrid DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				monitoring.Logf("failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
