// Package audit keeps a durable trail of completed medication safety
// assessments.
package audit

import (
	"context"
	"io"
	"time"

	"github.com/medsafe-mcp-server/internal/domain"
)

// Record is one audited assessment.
type Record struct {
	ID                string                `json:"id"`
	RequestID         string                `json:"request_id,omitempty"`
	Drug              string                `json:"drug"`
	NormalizedDrug    string                `json:"normalized_drug"`
	RiskScore         float64               `json:"risk_score"`
	RiskLevel         domain.RiskLevel      `json:"risk_level"`
	Safe              bool                  `json:"safe"`
	RuleTablesVersion string                `json:"rule_tables_version"`
	Request           domain.DrugRequest    `json:"request"`
	Patient           domain.PatientContext `json:"patient"`
	Assessment        *domain.Assessment    `json:"assessment,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
}

// Store defines the audit trail operations.
type Store interface {
	// Save assigns an ID when the record has none and persists it.
	Save(ctx context.Context, record *Record) error

	// Get returns nil, nil when the ID is unknown.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first. Assessment bodies are omitted.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every record, assessment bodies included.
	ExportJSON(ctx context.Context, w io.Writer) error

	Close() error
}

// NewRecord builds a record from a finished assessment.
func NewRecord(requestID string, req domain.DrugRequest, patient domain.PatientContext, a *domain.Assessment) *Record {
	return &Record{
		RequestID:         requestID,
		Drug:              a.Drug,
		NormalizedDrug:    a.NormalizedDrug,
		RiskScore:         a.RiskScore,
		RiskLevel:         a.RiskLevel,
		Safe:              a.Safe,
		RuleTablesVersion: a.RuleTablesVersion,
		Request:           req,
		Patient:           patient,
		Assessment:        a,
	}
}
