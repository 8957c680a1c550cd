package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/santas-scanner/log"
	"github.com/mbolis/santas-scanner/model"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps scan results in a local SQLite3 file. Useful when no
// MongoDB server is around.
type SQLiteStore struct {
	path      string
	opTimeout time.Duration

	mu sync.Mutex
	db *sql.DB
}

func NewSQLiteStore(path string, opTimeout time.Duration) *SQLiteStore {
	return &SQLiteStore{path: path, opTimeout: opTimeout}
}

func (s *SQLiteStore) Connect(ctx context.Context) error {
	_, err := s.ensureConnected(ctx)
	return err
}

func (s *SQLiteStore) ensureConnected(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db, nil
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// db tuning options
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if _, err = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	if _, err = db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s.db = db
	log.Infof("Opened SQLite database %s", s.path)
	return db, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, candidate model.ScanCandidate) (model.ScanResult, error) {
	res, err := Prepare(candidate, time.Now())
	if err != nil {
		return model.ScanResult{}, err
	}

	db, err := s.ensureConnected(ctx)
	if err != nil {
		return model.ScanResult{}, err
	}

	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	res.ID = uuid.NewString()
	country := sql.NullString{String: res.Country, Valid: res.Country != ""}
	_, err = db.ExecContext(ctx, `
		INSERT INTO scan_result (id, name, verdict, message, score, country, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		res.Name,
		string(res.Verdict),
		res.Message,
		res.Score,
		country,
		res.Timestamp,
	)
	if err != nil {
		return model.ScanResult{}, fmt.Errorf("insert scan result: %w", err)
	}
	return res, nil
}

func (s *SQLiteStore) QueryTop(ctx context.Context, limit int) ([]model.ScanResult, error) {
	db, err := s.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.opTimeout)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, name, verdict, message, score, country, timestamp
		FROM scan_result
		ORDER BY score DESC, seq ASC
		LIMIT ?`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query scan results: %w", err)
	}
	defer rows.Close()

	results := []model.ScanResult{}
	for rows.Next() {
		var (
			r       model.ScanResult
			verdict string
			country sql.NullString
		)
		err = rows.Scan(&r.ID, &r.Name, &verdict, &r.Message, &r.Score, &country, &r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan scan result: %w", err)
		}
		r.Verdict = model.Verdict(verdict)
		r.Country = country.String
		r.Timestamp = r.Timestamp.UTC()
		results = append(results, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan results: %w", err)
	}
	return results, nil
}

func (s *SQLiteStore) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
