package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "audit-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "nested", "audit.db"))
	require.NoError(t, err)
	return store
}

func testRecord(drug string, score float64) *Record {
	weight := 20.0
	req := domain.DrugRequest{Drug: drug, Dosage: "250mg"}
	patient := domain.PatientContext{Age: 8, WeightKg: &weight, Allergies: []string{"sulfa"}}
	a := &domain.Assessment{
		Drug:              drug,
		NormalizedDrug:    drug,
		RiskScore:         score,
		RiskLevel:         domain.RiskLevelForScore(score),
		Safe:              score < 4,
		Warnings:          []string{"Sample warning"},
		RuleTablesVersion: "2024.1",
	}
	return NewRecord("req-1", req, patient, a)
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "audit-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "audit.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	rec := testRecord("amoxicillin", 2.5)
	require.NoError(t, store.Save(ctx, rec))
	assert.Len(t, rec.ID, 36)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "amoxicillin", got.NormalizedDrug)
	assert.Equal(t, 2.5, got.RiskScore)
	assert.Equal(t, domain.RiskLow, got.RiskLevel)
	assert.True(t, got.Safe)
	assert.Equal(t, rec.Request, got.Request)
	assert.Equal(t, rec.Patient, got.Patient)
	require.NotNil(t, got.Assessment)
	assert.Equal(t, []string{"Sample warning"}, got.Assessment.Warnings)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	got, err := store.Get(context.Background(), "does-not-exist")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, drug := range []string{"ibuprofen", "warfarin", "lisinopril"} {
		rec := testRecord(drug, float64(i*3))
		rec.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Save(ctx, rec))
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	records, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "lisinopril", records[0].Drug)
	assert.Equal(t, "warfarin", records[1].Drug)
	assert.Nil(t, records[0].Assessment)

	records, err = store.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ibuprofen", records[0].Drug)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testRecord("warfarin", 7.5)))

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var exported []*Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, domain.RiskHigh, exported[0].RiskLevel)
	require.NotNil(t, exported[0].Assessment)
}

func TestSQLiteStore_InsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS assessments").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewSQLiteStoreFromDB(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO assessments").WillReturnError(errors.New("disk I/O error"))
	err = store.Save(context.Background(), testRecord("warfarin", 7.5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(errors.New("database is locked"))
	_, err = store.Count(context.Background())
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only database"))
	_, err = NewSQLiteStoreFromDB(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create schema")
}
