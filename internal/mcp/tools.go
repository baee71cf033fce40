package mcp

import (
	"context"
	"fmt"

	"github.com/medsafe-mcp-server/internal/audit"
	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/service"
	"github.com/medsafe-mcp-server/pkg/dosage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBatchItems    = 100
)

// AssessMedicationInput is the input of assess_medication.
type AssessMedicationInput struct {
	Drug           string                `json:"drug" jsonschema:"drug name, brand or generic"`
	Dosage         string                `json:"dosage,omitempty" jsonschema:"prescribed dose such as 500mg or 10 mg/kg/day"`
	Frequency      string                `json:"frequency,omitempty" jsonschema:"dosing frequency such as bid or q8h"`
	AdverseEffects []string              `json:"adverse_effects,omitempty" jsonschema:"observed adverse effects to classify"`
	Patient        domain.PatientContext `json:"patient" jsonschema:"patient context"`
}

// AssessmentOutput wraps an assessment with the request that produced it.
type AssessmentOutput struct {
	RequestID  string             `json:"request_id"`
	AuditID    string             `json:"audit_id,omitempty"`
	Assessment *domain.Assessment `json:"assessment"`
}

// AssessBatchInput is the input of assess_batch.
type AssessBatchInput struct {
	Items   []domain.BatchItem `json:"items" jsonschema:"drug requests with their patient contexts"`
	Compare bool               `json:"compare,omitempty" jsonschema:"rank the results from lowest to highest risk"`
}

// AssessBatchOutput is the result of assess_batch, in input order.
type AssessBatchOutput struct {
	RequestID   string                 `json:"request_id"`
	Assessments []*domain.Assessment   `json:"assessments"`
	Comparison  *domain.RiskComparison `json:"comparison,omitempty"`
}

// ClassifySeverityInput is the input of classify_severity.
type ClassifySeverityInput struct {
	Effects []string               `json:"effects" jsonschema:"adverse effect descriptions"`
	Patient *domain.PatientContext `json:"patient,omitempty" jsonschema:"optional patient context for escalation"`
}

// CheckInteractionsInput is the input of check_interactions.
type CheckInteractionsInput struct {
	Drugs      []string `json:"drugs" jsonschema:"drugs taken together"`
	Conditions []string `json:"conditions,omitempty" jsonschema:"patient medical conditions"`
}

// InteractionDetailInput is the input of interaction_detail.
type InteractionDetailInput struct {
	DrugA string `json:"drug_a" jsonschema:"first drug"`
	DrugB string `json:"drug_b" jsonschema:"second drug"`
}

// RenalAdjustInput is the input of renal_adjust.
type RenalAdjustInput struct {
	Drug                string   `json:"drug" jsonschema:"drug name"`
	CreatinineClearance float64  `json:"creatinine_clearance" jsonschema:"creatinine clearance in mL/min"`
	Dose                *float64 `json:"dose,omitempty" jsonschema:"baseline dose in mg to adjust"`
}

// ParseDosageInput is the input of parse_dosage.
type ParseDosageInput struct {
	Dosage    string `json:"dosage" jsonschema:"dose text such as 1 g or 15 mg/kg/day"`
	Frequency string `json:"frequency,omitempty" jsonschema:"dosing frequency used to compute the daily amount"`
}

// ParseDosageOutput describes a parsed dose.
type ParseDosageOutput struct {
	Dosage          dosage.Dosage   `json:"dosage"`
	Normalized      string          `json:"normalized"`
	Milligrams      *float64        `json:"milligrams,omitempty"`
	Schedule        dosage.Schedule `json:"schedule"`
	DailyMultiplier float64         `json:"daily_multiplier"`
	DailyMilligrams *float64        `json:"daily_milligrams,omitempty"`
}

// RuleTablesInput is the empty input of rule_tables_info.
type RuleTablesInput struct{}

// RecentAssessmentsInput is the input of recent_assessments.
type RecentAssessmentsInput struct {
	ID     string `json:"id,omitempty" jsonschema:"audit record ID to fetch in full"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum records to list"`
	Offset int    `json:"offset,omitempty" jsonschema:"records to skip"`
}

// RecentAssessmentsOutput is a page of the audit trail.
type RecentAssessmentsOutput struct {
	Total   int64           `json:"total"`
	Records []*audit.Record `json:"records"`
}

func (s *Server) registerTools() {
	addTool(s, "assess_medication",
		"Assess the safety of one medication for a patient: age appropriateness, dosage, interactions and adverse effects, combined into a 0-10 risk score.",
		s.assessMedication)
	addTool(s, "assess_batch",
		"Assess several medication requests concurrently and optionally rank them by risk.",
		s.assessBatch)
	addTool(s, "classify_severity",
		"Classify adverse effect descriptions into mild, moderate, severe or life_threatening.",
		s.classifySeverity)
	addTool(s, "check_interactions",
		"Check a list of drugs for drug-drug and drug-disease interactions.",
		s.checkInteractions)
	addTool(s, "interaction_detail",
		"Look up the interaction between two drugs with mechanism, management and alternatives.",
		s.interactionDetail)
	addTool(s, "renal_adjust",
		"Compute the renal dose adjustment for a drug at a creatinine clearance.",
		s.renalAdjust)
	addTool(s, "parse_dosage",
		"Parse a dose expression and compute the daily amount for a frequency.",
		s.parseDosage)
	addTool(s, "rule_tables_info",
		"Report the version and size of the active rule tables.",
		s.ruleTablesInfo)
	if s.audit != nil {
		addTool(s, "recent_assessments",
			"List audited assessments newest first, or fetch one by ID.",
			s.recentAssessments)
	}
}

func (s *Server) assessMedication(ctx context.Context, requestID string, in AssessMedicationInput) (any, error) {
	req := domain.DrugRequest{
		Drug:           in.Drug,
		Dosage:         in.Dosage,
		Frequency:      in.Frequency,
		AdverseEffects: in.AdverseEffects,
	}
	a, err := s.assessor.Assess(ctx, req, in.Patient)
	if err != nil {
		return nil, err
	}
	out := &AssessmentOutput{RequestID: requestID, Assessment: a}
	if rec := s.record(ctx, requestID, req, in.Patient, a); rec != nil {
		out.AuditID = rec.ID
	}
	return out, nil
}

func (s *Server) assessBatch(ctx context.Context, requestID string, in AssessBatchInput) (any, error) {
	if len(in.Items) == 0 {
		return nil, domain.NewInputError("items", "at least one item is required", nil)
	}
	if len(in.Items) > maxBatchItems {
		return nil, domain.NewInputError("items", fmt.Sprintf("at most %d items are allowed", maxBatchItems), len(in.Items))
	}

	results := s.assessor.AssessBatch(ctx, in.Items)
	for i, a := range results {
		if a != nil && a.RiskLevel != domain.RiskUnknown {
			s.record(ctx, requestID, in.Items[i].Request, in.Items[i].Patient, a)
		}
	}

	out := &AssessBatchOutput{RequestID: requestID, Assessments: results}
	if in.Compare {
		out.Comparison = service.CompareRisk(results)
	}
	return out, nil
}

func (s *Server) classifySeverity(ctx context.Context, _ string, in ClassifySeverityInput) (any, error) {
	if len(in.Effects) == 0 {
		return nil, domain.NewInputError("effects", "at least one adverse effect is required", nil)
	}
	classifications := make([]domain.SeverityClassification, 0, len(in.Effects))
	for _, effect := range in.Effects {
		c, err := s.assessor.ClassifySeverity(ctx, effect, in.Patient)
		if err != nil {
			return nil, err
		}
		classifications = append(classifications, *c)
	}
	return service.NewSeverityClassifier(s.logger).Summarize(classifications), nil
}

func (s *Server) checkInteractions(ctx context.Context, _ string, in CheckInteractionsInput) (any, error) {
	return s.assessor.CheckInteractions(ctx, in.Drugs, in.Conditions)
}

func (s *Server) interactionDetail(ctx context.Context, _ string, in InteractionDetailInput) (any, error) {
	return s.assessor.InteractionDetail(ctx, in.DrugA, in.DrugB)
}

func (s *Server) renalAdjust(ctx context.Context, _ string, in RenalAdjustInput) (any, error) {
	return s.assessor.RenalAdjust(ctx, in.Drug, in.CreatinineClearance, in.Dose)
}

func (s *Server) parseDosage(_ context.Context, _ string, in ParseDosageInput) (any, error) {
	d, err := dosage.Parse(in.Dosage)
	if err != nil {
		ie := domain.NewInputError("dosage", err.Error(), in.Dosage)
		ie.Err = err
		return nil, ie
	}

	schedule, _ := dosage.ParseFrequency(in.Frequency)
	out := &ParseDosageOutput{
		Dosage:          d,
		Normalized:      d.String(),
		Schedule:        schedule,
		DailyMultiplier: schedule.Max,
	}
	if mg, ok := d.Milligrams(); ok {
		out.Milligrams = &mg
		if !d.PerDay {
			daily := mg * out.DailyMultiplier
			out.DailyMilligrams = &daily
		} else {
			out.DailyMilligrams = &mg
		}
	}
	return out, nil
}

func (s *Server) ruleTablesInfo(_ context.Context, _ string, _ RuleTablesInput) (any, error) {
	t := s.tables.Tables()
	if t == nil {
		return nil, fmt.Errorf("no rule tables loaded")
	}
	return t.Stats(), nil
}

func (s *Server) recentAssessments(ctx context.Context, _ string, in RecentAssessmentsInput) (any, error) {
	if in.ID != "" {
		rec, err := s.audit.Get(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("audit record %s: %w", in.ID, domain.ErrNotFound)
		}
		return rec, nil
	}

	if in.Limit < 0 || in.Offset < 0 {
		return nil, domain.NewInputError("limit", "limit and offset must not be negative", in)
	}
	limit := in.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	records, err := s.audit.List(ctx, limit, in.Offset)
	if err != nil {
		return nil, err
	}
	total, err := s.audit.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &RecentAssessmentsOutput{Total: total, Records: records}, nil
}

// record saves an assessment to the audit trail. Failures are logged and do
// not fail the tool call.
func (s *Server) record(ctx context.Context, requestID string, req domain.DrugRequest, patient domain.PatientContext, a *domain.Assessment) *audit.Record {
	if s.audit == nil || a == nil {
		return nil
	}
	rec := audit.NewRecord(requestID, req, patient, a)
	if err := s.audit.Save(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Warn("Failed to record assessment")
		return nil
	}
	return rec
}
