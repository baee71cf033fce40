package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/medsafe-mcp-server/internal/domain"
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens or creates the audit database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store, err := NewSQLiteStoreFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.dbPath = dbPath
	return store, nil
}

// NewSQLiteStoreFromDB wraps an open database and ensures the schema exists.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		request_id TEXT DEFAULT '',
		drug TEXT NOT NULL,
		normalized_drug TEXT NOT NULL,
		risk_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		safe INTEGER NOT NULL DEFAULT 0,
		rule_tables_version TEXT NOT NULL,
		request_json TEXT NOT NULL,
		patient_json TEXT NOT NULL,
		assessment_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_drug ON assessments(normalized_drug);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const summaryColumns = `id, request_id, drug, normalized_drug, risk_score, risk_level,
	safe, rule_tables_version, request_json, patient_json, created_at`

func scanRecord(s scanner, withAssessment bool) (*Record, error) {
	rec := &Record{}
	var level, reqJSON, patientJSON, assessmentJSON string

	dest := []interface{}{
		&rec.ID, &rec.RequestID, &rec.Drug, &rec.NormalizedDrug, &rec.RiskScore, &level,
		&rec.Safe, &rec.RuleTablesVersion, &reqJSON, &patientJSON, &rec.CreatedAt,
	}
	if withAssessment {
		dest = append(dest, &assessmentJSON)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	rec.RiskLevel = domain.RiskLevel(level)
	if err := json.Unmarshal([]byte(reqJSON), &rec.Request); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := json.Unmarshal([]byte(patientJSON), &rec.Patient); err != nil {
		return nil, fmt.Errorf("failed to decode patient: %w", err)
	}
	if withAssessment && assessmentJSON != "" {
		if err := json.Unmarshal([]byte(assessmentJSON), &rec.Assessment); err != nil {
			return nil, fmt.Errorf("failed to decode assessment: %w", err)
		}
	}
	return rec, nil
}

// Save inserts the record. Records are append-only.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	reqJSON, err := json.Marshal(record.Request)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	patientJSON, err := json.Marshal(record.Patient)
	if err != nil {
		return fmt.Errorf("failed to encode patient: %w", err)
	}
	assessmentJSON, err := json.Marshal(record.Assessment)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, request_id, drug, normalized_drug, risk_score, risk_level,
			safe, rule_tables_version, request_json, patient_json, assessment_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.RequestID,
		record.Drug,
		record.NormalizedDrug,
		record.RiskScore,
		string(record.RiskLevel),
		record.Safe,
		record.RuleTablesVersion,
		string(reqJSON),
		string(patientJSON),
		string(assessmentJSON),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+summaryColumns+", assessment_json FROM assessments WHERE id = ?", id)

	rec, err := scanRecord(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+summaryColumns+" FROM assessments ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ExportJSON(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+summaryColumns+", assessment_json FROM assessments ORDER BY created_at, id")
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, true)
		if err != nil {
			return fmt.Errorf("failed to scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
