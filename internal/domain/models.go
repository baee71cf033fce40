package domain

import (
	"math"
	"strings"

	"github.com/medsafe-mcp-server/pkg/dosage"
)

// Plausibility bounds for patient measurements.
const (
	MaxPatientAge          = 130.0
	MaxPatientWeightKg     = 700.0
	MaxCreatinineClearance = 500.0
	MaxSerumCreatinine     = 50.0
)

// DrugRequest is a single medication to assess.
type DrugRequest struct {
	Drug           string   `json:"drug"`
	Dosage         string   `json:"dosage,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	AdverseEffects []string `json:"adverse_effects,omitempty"`
}

// Validate checks the request and parses its dosage text. A nil dosage is
// returned when no dosage was supplied.
func (r DrugRequest) Validate() (*dosage.Dosage, error) {
	if strings.TrimSpace(r.Drug) == "" {
		return nil, NewInputError("drug", "drug name is required", r.Drug)
	}
	if strings.TrimSpace(r.Dosage) == "" {
		return nil, nil
	}
	d, err := dosage.Parse(r.Dosage)
	if err != nil {
		return nil, &InputError{Field: "dosage", Message: err.Error(), Value: r.Dosage, Err: err}
	}
	return &d, nil
}

// PatientContext describes the patient the drug is assessed for.
type PatientContext struct {
	Age                   float64         `json:"age"`
	WeightKg              *float64        `json:"weight_kg,omitempty"`
	CreatinineClearance   *float64        `json:"creatinine_clearance,omitempty"`
	SerumCreatinine       *float64        `json:"serum_creatinine,omitempty"`
	Gender                Gender          `json:"gender,omitempty"`
	PregnancyStatus       PregnancyStatus `json:"pregnancy_status,omitempty"`
	Conditions            []string        `json:"conditions,omitempty"`
	Allergies             []string        `json:"allergies,omitempty"`
	ConcurrentMedications []string        `json:"concurrent_medications,omitempty"`
}

// Validate rejects impossible patient values.
func (p PatientContext) Validate() error {
	if math.IsNaN(p.Age) || p.Age < 0 {
		return NewInputError("age", "age must be a non-negative number of years", p.Age)
	}
	if p.Age > MaxPatientAge {
		return NewInputError("age", "age exceeds plausible maximum", p.Age)
	}
	if err := checkMeasurement("weight_kg", "weight", p.WeightKg, MaxPatientWeightKg); err != nil {
		return err
	}
	if err := checkMeasurement("creatinine_clearance", "creatinine clearance", p.CreatinineClearance, MaxCreatinineClearance); err != nil {
		return err
	}
	if err := checkMeasurement("serum_creatinine", "serum creatinine", p.SerumCreatinine, MaxSerumCreatinine); err != nil {
		return err
	}
	switch p.Gender {
	case GenderUnspecified, GenderMale, GenderFemale:
	default:
		return NewInputError("gender", "gender must be male, female or empty", p.Gender)
	}
	switch p.PregnancyStatus {
	case PregnancyUnknown, PregnancyNotPregnant, PregnancyPregnant, PregnancyLactating:
	default:
		return NewInputError("pregnancy_status", "unknown pregnancy status", p.PregnancyStatus)
	}
	return nil
}

// checkMeasurement accepts a nil value or a finite one in (0, limit].
func checkMeasurement(field, label string, v *float64, limit float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || *v <= 0 {
		return NewInputError(field, label+" must be positive", *v)
	}
	if math.IsInf(*v, 1) || *v > limit {
		return NewInputError(field, label+" exceeds plausible maximum", *v)
	}
	return nil
}

// Finding is a single observation produced by an evaluator.
type Finding struct {
	Source            Source   `json:"source"`
	Kind              string   `json:"kind"`
	Severity          Severity `json:"severity"`
	Message           string   `json:"message"`
	Recommendation    string   `json:"recommendation,omitempty"`
	Subjects          []string `json:"subjects,omitempty"`
	Mechanism         string   `json:"mechanism,omitempty"`
	Management        string   `json:"management,omitempty"`
	Monitoring        string   `json:"monitoring,omitempty"`
	RequiresAttention bool     `json:"requires_attention"`
}

// EvaluatorReport is the uniform view of one evaluator's outcome that the
// aggregator consumes.
type EvaluatorReport struct {
	Source          Source          `json:"source"`
	Status          EvaluatorStatus `json:"status"`
	Safe            bool            `json:"safe"`
	DataAvailable   bool            `json:"data_available"`
	Findings        []Finding       `json:"findings"`
	Recommendations []string        `json:"recommendations,omitempty"`
	CheckedCriteria []string        `json:"checked_criteria,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// FailedReport builds the report of an evaluator that did not complete.
func FailedReport(source Source, err error) EvaluatorReport {
	return EvaluatorReport{
		Source: source,
		Status: StatusUnknown,
		Error:  err.Error(),
	}
}

// AgeResult is the outcome of the age evaluator.
type AgeResult struct {
	Drug                   string    `json:"drug"`
	Band                   AgeBand   `json:"band"`
	Safe                   bool      `json:"safe"`
	DataAvailable          bool      `json:"data_available"`
	BeersViolation         bool      `json:"beers_violation"`
	RequiresDoseAdjustment bool      `json:"requires_dose_adjustment"`
	RequiresWeightDosing   bool      `json:"requires_weight_dosing"`
	CheckedCriteria        []string  `json:"checked_criteria"`
	Findings               []Finding `json:"findings"`
	Recommendations        []string  `json:"recommendations,omitempty"`
}

// Report converts the result for aggregation.
func (r *AgeResult) Report() EvaluatorReport {
	status := StatusOK
	if !r.DataAvailable {
		status = StatusDataGap
	}
	return EvaluatorReport{
		Source:          SourceAge,
		Status:          status,
		Safe:            r.Safe,
		DataAvailable:   r.DataAvailable,
		Findings:        r.Findings,
		Recommendations: r.Recommendations,
		CheckedCriteria: r.CheckedCriteria,
	}
}

// RenalAdjustment is the renal dose adjustment for one drug.
type RenalAdjustment struct {
	Drug                string    `json:"drug"`
	CreatinineClearance float64   `json:"creatinine_clearance"`
	Band                RenalBand `json:"band"`
	DataAvailable       bool      `json:"data_available"`
	RenallyCleared      bool      `json:"renally_cleared"`
	RequiresAdjustment  bool      `json:"requires_adjustment"`
	Multiplier          float64   `json:"multiplier"`
	BaselineDose        *float64  `json:"baseline_dose,omitempty"`
	AdjustedDose        *float64  `json:"adjusted_dose,omitempty"`
	RecommendedDose     string    `json:"recommended_dose,omitempty"`
	MaxDailyDose        string    `json:"max_daily_dose,omitempty"`
	Monitoring          string    `json:"monitoring"`
	DrugMonitoring      string    `json:"drug_monitoring,omitempty"`
	Finding             Finding   `json:"finding"`
	Warnings            []Finding `json:"warnings,omitempty"`
}

// DosageResult is the outcome of the dosage evaluator.
type DosageResult struct {
	Drug                string           `json:"drug"`
	AgeGroup            AgeGroup         `json:"age_group"`
	HasGuideline        bool             `json:"has_guideline"`
	DataAvailable       bool             `json:"data_available"`
	DosingMethod        DosingMethod     `json:"dosing_method"`
	CalculatedDose      *float64         `json:"calculated_dose,omitempty"`
	MaxDailyDose        *float64         `json:"max_daily_dose,omitempty"`
	Unit                string           `json:"unit,omitempty"`
	Frequency           string           `json:"frequency,omitempty"`
	WeightKg            *float64         `json:"weight_kg,omitempty"`
	Renal               *RenalAdjustment `json:"renal,omitempty"`
	PrescribedDose      *float64         `json:"prescribed_dose,omitempty"`
	PrescribedDailyDose *float64         `json:"prescribed_daily_dose,omitempty"`
	DeviationPercent    *float64         `json:"deviation_percent,omitempty"`
	AcceptableRange     *DoseRange       `json:"acceptable_range,omitempty"`
	Valid               bool             `json:"valid"`
	Safe                bool             `json:"safe"`
	Findings            []Finding        `json:"findings"`
	Recommendations     []string         `json:"recommendations,omitempty"`
}

// DoseRange is an inclusive dose interval in mg.
type DoseRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Report converts the result for aggregation.
func (r *DosageResult) Report() EvaluatorReport {
	status := StatusOK
	if !r.DataAvailable {
		status = StatusDataGap
	}
	return EvaluatorReport{
		Source:          SourceDosage,
		Status:          status,
		Safe:            r.Safe,
		DataAvailable:   r.DataAvailable,
		Findings:        r.Findings,
		Recommendations: r.Recommendations,
	}
}

// PairCheck records the outcome of looking up one drug pair, including the
// explicit "no known interaction" sentinel.
type PairCheck struct {
	Drugs    [2]string `json:"drugs"`
	Known    bool      `json:"known"`
	Severity Severity  `json:"severity"`
	Effect   string    `json:"effect"`
}

// NoKnownInteraction is the effect text of an unknown pair.
const NoKnownInteraction = "No known interaction"

// InteractionCounts tallies drug-drug findings by severity.
type InteractionCounts struct {
	Minor    int `json:"minor"`
	Moderate int `json:"moderate"`
	Major    int `json:"major"`
}

// InteractionResult is the outcome of the interaction evaluator.
type InteractionResult struct {
	DrugsChecked      []string          `json:"drugs_checked"`
	DrugDrug          []Finding         `json:"drug_drug"`
	DrugDisease       []Finding         `json:"drug_disease"`
	Allergy           []Finding         `json:"allergy"`
	Layered           []Finding         `json:"layered"`
	CheckedPairs      []PairCheck       `json:"checked_pairs"`
	Counts            InteractionCounts `json:"counts"`
	TotalInteractions int               `json:"total_interactions"`
	RequiresAttention bool              `json:"requires_attention"`
	SafeToUse         bool              `json:"safe_to_use"`
	DataAvailable     bool              `json:"data_available"`
	Recommendations   []string          `json:"recommendations,omitempty"`
}

// Findings returns all findings in a stable order.
func (r *InteractionResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.DrugDrug)+len(r.DrugDisease)+len(r.Allergy)+len(r.Layered))
	out = append(out, r.DrugDrug...)
	out = append(out, r.DrugDisease...)
	out = append(out, r.Allergy...)
	out = append(out, r.Layered...)
	return out
}

// Report converts the result for aggregation.
func (r *InteractionResult) Report() EvaluatorReport {
	status := StatusOK
	if !r.DataAvailable {
		status = StatusDataGap
	}
	return EvaluatorReport{
		Source:          SourceInteraction,
		Status:          status,
		Safe:            r.SafeToUse,
		DataAvailable:   r.DataAvailable,
		Findings:        r.Findings(),
		Recommendations: r.Recommendations,
	}
}

// SeverityClassification is the classified severity of one adverse effect.
type SeverityClassification struct {
	Effect             string   `json:"effect"`
	Severity           Severity `json:"severity"`
	Score              int      `json:"severity_score"`
	RequiresAttention  bool     `json:"requires_attention"`
	Urgency            Urgency  `json:"urgency"`
	MonitoringRequired bool     `json:"monitoring_required"`
	RecommendedAction  string   `json:"recommended_action"`
	MatchedRule        string   `json:"matched_rule"`
	Escalations        []string `json:"escalations,omitempty"`
	RulesVersion       string   `json:"rules_version"`
}

// Finding converts the classification into a Finding.
func (c *SeverityClassification) Finding() Finding {
	return Finding{
		Source:            SourceSeverity,
		Kind:              "adverse_effect",
		Severity:          c.Severity,
		Message:           "Adverse effect '" + c.Effect + "' classified as " + strings.ReplaceAll(string(c.Severity), "_", "-"),
		Recommendation:    c.RecommendedAction,
		Subjects:          []string{c.Effect},
		RequiresAttention: c.RequiresAttention,
	}
}

// SeveritySummary aggregates several classified effects.
type SeveritySummary struct {
	Classifications          []SeverityClassification `json:"classifications"`
	Overall                  Severity                 `json:"overall_severity"`
	MaxScore                 int                      `json:"max_score"`
	MeanScore                float64                  `json:"mean_score"`
	RequiresMedicalAttention bool                     `json:"requires_medical_attention"`
	Recommendations          []string                 `json:"recommendations"`
}

// Report converts the summary for aggregation.
func (s *SeveritySummary) Report() EvaluatorReport {
	findings := make([]Finding, 0, len(s.Classifications))
	for i := range s.Classifications {
		findings = append(findings, s.Classifications[i].Finding())
	}
	return EvaluatorReport{
		Source:          SourceSeverity,
		Status:          StatusOK,
		Safe:            !s.RequiresMedicalAttention,
		DataAvailable:   true,
		Findings:        findings,
		Recommendations: s.Recommendations,
	}
}

// ScoreFactor is one auditable additive term of the risk score.
type ScoreFactor struct {
	Name   string  `json:"name"`
	Detail string  `json:"detail,omitempty"`
	Points float64 `json:"points"`
}

// EvaluatorOutcome summarizes one evaluator's status on the Assessment.
type EvaluatorOutcome struct {
	Source        Source          `json:"source"`
	Status        EvaluatorStatus `json:"status"`
	Safe          bool            `json:"safe"`
	DataAvailable bool            `json:"data_available"`
	Error         string          `json:"error,omitempty"`
}

// Assessment is the final, immutable verdict for one drug request.
type Assessment struct {
	Drug                   string             `json:"drug"`
	NormalizedDrug         string             `json:"normalized_drug"`
	RiskScore              float64            `json:"risk_score"`
	RiskLevel              RiskLevel          `json:"risk_level"`
	AgeCategory            AgeCategory        `json:"age_category"`
	Safe                   bool               `json:"safe"`
	RequiresDoseAdjustment bool               `json:"requires_dose_adjustment"`
	BeersViolation         bool               `json:"beers_violation"`
	DataAvailable          bool               `json:"data_available"`
	Confidence             Confidence         `json:"confidence"`
	Warnings               []string           `json:"warnings"`
	Recommendations        []string           `json:"recommendations"`
	Findings               []Finding          `json:"findings"`
	ScoreFactors           []ScoreFactor      `json:"score_factors"`
	CheckedCriteria        []string           `json:"checked_criteria"`
	Evaluators             []EvaluatorOutcome `json:"evaluators"`
	Dosage                 *DosageResult      `json:"dosage,omitempty"`
	Interactions           *InteractionResult `json:"interactions,omitempty"`
	AdverseEffects         *SeveritySummary   `json:"adverse_effects,omitempty"`
	RuleTablesVersion      string             `json:"rule_tables_version"`
	Error                  string             `json:"error,omitempty"`
}

// FailedAssessment is the safe-by-default result for a request that could not
// be assessed at all.
func FailedAssessment(drug string, err error) *Assessment {
	return &Assessment{
		Drug:            drug,
		RiskLevel:       RiskUnknown,
		Safe:            false,
		Confidence:      ConfidenceLow,
		Warnings:        []string{"Assessment failed: " + err.Error()},
		Recommendations: []string{"Unable to complete safety assessment - consult a healthcare professional"},
		Findings:        []Finding{},
		ScoreFactors:    []ScoreFactor{},
		Error:           err.Error(),
	}
}

// BatchItem is one entry of a bulk assessment.
type BatchItem struct {
	Request DrugRequest    `json:"request"`
	Patient PatientContext `json:"patient"`
}

// InteractionDetail answers a single pair query.
type InteractionDetail struct {
	Pair         PairCheck           `json:"pair"`
	Finding      *Finding            `json:"finding,omitempty"`
	Alternatives map[string][]string `json:"alternatives,omitempty"`
}

// RankedAssessment is one entry of a risk comparison.
type RankedAssessment struct {
	Rank      int       `json:"rank"`
	Drug      string    `json:"drug"`
	RiskScore float64   `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
	Safe      bool      `json:"safe"`
}

// RiskComparison orders assessed drugs from lowest to highest risk. Failed
// assessments sort last.
type RiskComparison struct {
	Ranked      []RankedAssessment `json:"ranked"`
	Safest      string             `json:"safest,omitempty"`
	HighestRisk string             `json:"highest_risk,omitempty"`
	SafeCount   int                `json:"safe_count"`
}
