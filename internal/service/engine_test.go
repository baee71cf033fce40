package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	logger := newTestLogger()
	engine, err := NewEngine(knowledge.NewRegistry(knowledge.Builtin(), logger), logger, opts...)
	require.NoError(t, err)
	return engine
}

func weight(kg float64) *float64 { return &kg }

func hasWarning(a *domain.Assessment, substr string) bool {
	for _, w := range a.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestNewEngineRejectsBadWorkers(t *testing.T) {
	logger := newTestLogger()
	_, err := NewEngine(knowledge.NewRegistry(knowledge.Builtin(), logger), logger, WithMaxWorkers(0))
	assert.Error(t, err)
}

func TestAssessPediatricContraindication(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "Tetracycline"},
		domain.PatientContext{Age: 5})
	require.NoError(t, err)

	assert.Equal(t, "tetracycline", a.NormalizedDrug)
	assert.False(t, a.Safe)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Equal(t, 7.5, a.RiskScore)
	assert.Equal(t, domain.CategoryChild, a.AgeCategory)
	assert.True(t, hasWarning(a, "Contraindicated in children under 8 years"))
	assert.Equal(t, "Report any adverse reactions immediately", a.Recommendations[len(a.Recommendations)-1])
	assert.Equal(t, knowledge.BuiltinVersion, a.RuleTablesVersion)
}

func TestAssessBeersViolation(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "Benadryl"},
		domain.PatientContext{Age: 78})
	require.NoError(t, err)

	assert.Equal(t, "diphenhydramine", a.NormalizedDrug)
	assert.True(t, a.BeersViolation)
	assert.False(t, a.Safe)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Equal(t, 7.5, a.RiskScore)
	assert.True(t, hasWarning(a, "Beers Criteria"))
	assert.Contains(t, a.Recommendations, "Consider alternative: loratadine, cetirizine")
	assert.Contains(t, a.CheckedCriteria, "beers_criteria")
}

func TestAssessPediatricWeightBasedDose(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "amoxicillin"},
		domain.PatientContext{Age: 8, WeightKg: weight(20)})
	require.NoError(t, err)

	require.NotNil(t, a.Dosage)
	assert.Equal(t, domain.DosingWeightBased, a.Dosage.DosingMethod)
	require.NotNil(t, a.Dosage.CalculatedDose)
	assert.Equal(t, 500.0, *a.Dosage.CalculatedDose)
	require.NotNil(t, a.Dosage.MaxDailyDose)
	assert.Equal(t, 2000.0, *a.Dosage.MaxDailyDose)
}

func TestAssessConcurrentMajorInteraction(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "warfarin"},
		domain.PatientContext{Age: 50, ConcurrentMedications: []string{"Aspirin"}})
	require.NoError(t, err)

	require.NotNil(t, a.Interactions)
	assert.Equal(t, 1, a.Interactions.Counts.Major)
	assert.False(t, a.Interactions.SafeToUse)
	assert.False(t, a.Safe)
	assert.True(t, hasWarning(a, "Drug interaction between warfarin and aspirin"))
	assert.GreaterOrEqual(t, a.RiskScore, 6.0)
}

func TestRenalAdjustSevereBand(t *testing.T) {
	engine := newTestEngine(t)

	adj, err := engine.RenalAdjust(context.Background(), "lisinopril", 25, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.RenalSevere, adj.Band)
	assert.True(t, adj.RequiresAdjustment)
	assert.Equal(t, 0.5, adj.Multiplier)
	require.NotNil(t, adj.AdjustedDose)
	assert.Equal(t, 5.0, *adj.AdjustedDose)
	assert.Equal(t, "Monthly or more frequent", adj.Monitoring)
}

func TestRenalAdjustValidation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.RenalAdjust(ctx, "", 50, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.RenalAdjust(ctx, "lisinopril", 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.RenalAdjust(ctx, "lisinopril", 40, weight(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.RenalAdjust(ctx, "lisinopril", 1e307, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.RenalAdjust(ctx, "lisinopril", 40, weight(1e307))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssessRejectsInvalidInput(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     domain.DrugRequest
		patient domain.PatientContext
		field   string
	}{
		{"empty drug", domain.DrugRequest{Drug: "  "}, domain.PatientContext{Age: 30}, "drug"},
		{"unparsable dosage", domain.DrugRequest{Drug: "ibuprofen", Dosage: "a few"}, domain.PatientContext{Age: 30}, "dosage"},
		{"negative age", domain.DrugRequest{Drug: "ibuprofen"}, domain.PatientContext{Age: -1}, "age"},
		{"zero weight", domain.DrugRequest{Drug: "ibuprofen"}, domain.PatientContext{Age: 30, WeightKg: weight(0)}, "weight_kg"},
		{"implausible weight", domain.DrugRequest{Drug: "amoxicillin", Dosage: "10mg/kg"}, domain.PatientContext{Age: 8, WeightKg: weight(1e307)}, "weight_kg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := engine.Assess(ctx, tt.req, tt.patient)
			assert.Nil(t, a)
			var ie *domain.InputError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestAssessUnknownDrug(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "notarealdrugzine"},
		domain.PatientContext{Age: 40})
	require.NoError(t, err)

	assert.False(t, a.DataAvailable)
	assert.False(t, a.Safe)
	assert.Equal(t, domain.ConfidenceLow, a.Confidence)
	assert.Contains(t, a.Recommendations, dataGapAdvice)
}

func TestAssessCancelledContext(t *testing.T) {
	engine := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Assess(ctx, domain.DrugRequest{Drug: "ibuprofen"}, domain.PatientContext{Age: 30})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssessIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	req := domain.DrugRequest{Drug: "ibuprofen", Dosage: "400mg", Frequency: "tid"}
	patient := domain.PatientContext{Age: 70, Conditions: []string{"Heart Failure"}}

	first, err := engine.Assess(context.Background(), req, patient)
	require.NoError(t, err)
	second, err := engine.Assess(context.Background(), req, patient)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssessWithAdverseEffects(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "amoxicillin", AdverseEffects: []string{"anaphylaxis"}},
		domain.PatientContext{Age: 30})
	require.NoError(t, err)

	require.NotNil(t, a.AdverseEffects)
	assert.Equal(t, domain.SeverityLifeThreatening, a.AdverseEffects.Overall)
	assert.Equal(t, domain.RiskCritical, a.RiskLevel)
}

func TestAssessEstimatesClearance(t *testing.T) {
	engine := newTestEngine(t)
	scr := 4.0

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "lisinopril"},
		domain.PatientContext{Age: 70, WeightKg: weight(60), SerumCreatinine: &scr, Gender: domain.GenderMale})
	require.NoError(t, err)

	require.NotNil(t, a.Dosage)
	require.NotNil(t, a.Dosage.Renal)
	// (140-70)*60/(72*4) = 14.6
	assert.Equal(t, 14.6, a.Dosage.Renal.CreatinineClearance)
	assert.Equal(t, domain.RenalSevere, a.Dosage.Renal.Band)
	assert.True(t, a.RequiresDoseAdjustment)
}

func TestRunIsolatesPanics(t *testing.T) {
	engine := newTestEngine(t)

	report := engine.run(domain.SourceDosage, func() (domain.EvaluatorReport, error) {
		panic("boom")
	})
	assert.Equal(t, domain.StatusUnknown, report.Status)
	assert.Contains(t, report.Error, "panic: boom")

	report = engine.run(domain.SourceAge, func() (domain.EvaluatorReport, error) {
		return domain.EvaluatorReport{}, errors.New("table missing")
	})
	assert.Equal(t, domain.StatusUnknown, report.Status)
	assert.Contains(t, report.Error, "age evaluator")
}

func TestAggregateWithFailedEvaluator(t *testing.T) {
	agg := NewRiskAggregator(newTestLogger())
	failed := domain.FailedReport(domain.SourceDosage,
		&domain.ComputationError{Evaluator: domain.SourceDosage, Op: "calculate dose", Err: errors.New("zero")})

	a := agg.Aggregate(aggregateInput{
		tables:     knowledge.Builtin(),
		drug:       "ibuprofen",
		normalized: "ibuprofen",
		age:        40,
		reports: []domain.EvaluatorReport{
			{Source: domain.SourceAge, Status: domain.StatusOK, Safe: true, DataAvailable: true},
			failed,
		},
	})

	assert.Equal(t, domain.RiskUnknown, a.RiskLevel)
	assert.False(t, a.Safe)
	assert.Contains(t, a.Error, "calculate dose")
	assert.Equal(t, domain.ConfidenceLow, a.Confidence)
	assert.Contains(t, a.Recommendations, failureAdvice)
}

func TestAssessBatchKeepsOrder(t *testing.T) {
	engine := newTestEngine(t, WithMaxWorkers(2))

	items := []domain.BatchItem{
		{Request: domain.DrugRequest{Drug: "tetracycline"}, Patient: domain.PatientContext{Age: 5}},
		{Request: domain.DrugRequest{Drug: ""}, Patient: domain.PatientContext{Age: 30}},
		{Request: domain.DrugRequest{Drug: "acetaminophen"}, Patient: domain.PatientContext{Age: 30}},
		{Request: domain.DrugRequest{Drug: "diphenhydramine"}, Patient: domain.PatientContext{Age: 78}},
	}

	results := engine.AssessBatch(context.Background(), items)
	require.Len(t, results, len(items))

	assert.Equal(t, "tetracycline", results[0].NormalizedDrug)
	assert.Equal(t, domain.RiskUnknown, results[1].RiskLevel)
	assert.False(t, results[1].Safe)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, "acetaminophen", results[2].NormalizedDrug)
	assert.Equal(t, "diphenhydramine", results[3].NormalizedDrug)
}

func TestAssessConcurrentWithSwap(t *testing.T) {
	logger := newTestLogger()
	registry := knowledge.NewRegistry(knowledge.Builtin(), logger)
	engine, err := NewEngine(registry, logger)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := engine.Assess(context.Background(),
				domain.DrugRequest{Drug: "warfarin"}, domain.PatientContext{Age: 70})
			assert.NoError(t, err)
			assert.Equal(t, knowledge.BuiltinVersion, a.RuleTablesVersion)
		}()
	}
	registry.Swap(knowledge.Builtin())
	wg.Wait()
}

func TestCheckInteractions(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.CheckInteractions(ctx, []string{" "}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	result, err := engine.CheckInteractions(ctx, []string{"warfarin", "ibuprofen", "amoxicillin", "lisinopril"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Counts.Moderate)
	assert.Equal(t, 0, result.Counts.Major)
	assert.True(t, result.RequiresAttention)
	assert.True(t, result.SafeToUse)
	assert.Len(t, result.CheckedPairs, 6)
}

func TestInteractionDetail(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	detail, err := engine.InteractionDetail(ctx, "Aspirin", "Coumadin")
	require.NoError(t, err)
	assert.True(t, detail.Pair.Known)
	assert.Equal(t, domain.SeverityMajor, detail.Pair.Severity)
	require.NotNil(t, detail.Finding)
	assert.Equal(t, "Use lowest effective doses, monitor INR closely", detail.Finding.Management)
	assert.Equal(t, []string{"apixaban", "rivaroxaban", "dabigatran"}, detail.Alternatives["warfarin"])

	none, err := engine.InteractionDetail(ctx, "acetaminophen", "amoxicillin")
	require.NoError(t, err)
	assert.False(t, none.Pair.Known)
	assert.Equal(t, domain.NoKnownInteraction, none.Pair.Effect)
	assert.Nil(t, none.Finding)

	_, err = engine.InteractionDetail(ctx, "warfarin", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClassifySeverityValidatesPatient(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.ClassifySeverity(context.Background(), "rash", &domain.PatientContext{Age: -3})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := engine.ClassifySeverity(context.Background(), "mild rash", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityMild, c.Severity)
}

func TestCompareRisk(t *testing.T) {
	assessments := []*domain.Assessment{
		{Drug: "a", RiskScore: 7.5, RiskLevel: domain.RiskHigh},
		{Drug: "b", RiskScore: 1.0, RiskLevel: domain.RiskLow, Safe: true},
		domain.FailedAssessment("c", errors.New("bad input")),
		nil,
		{Drug: "d", RiskScore: 3.5, RiskLevel: domain.RiskLow, Safe: true},
	}

	cmp := CompareRisk(assessments)
	require.Len(t, cmp.Ranked, 4)
	assert.Equal(t, "b", cmp.Ranked[0].Drug)
	assert.Equal(t, 1, cmp.Ranked[0].Rank)
	assert.Equal(t, "d", cmp.Ranked[1].Drug)
	assert.Equal(t, "a", cmp.Ranked[2].Drug)
	assert.Equal(t, "c", cmp.Ranked[3].Drug)
	assert.Equal(t, "b", cmp.Safest)
	assert.Equal(t, "a", cmp.HighestRisk)
	assert.Equal(t, 2, cmp.SafeCount)

	empty := CompareRisk(nil)
	assert.Empty(t, empty.Ranked)
	assert.Empty(t, empty.Safest)
}

func TestAssessMultiDoseAboveDailyMaximum(t *testing.T) {
	engine := newTestEngine(t)

	a, err := engine.Assess(context.Background(),
		domain.DrugRequest{Drug: "ibuprofen", Dosage: "600mg", Frequency: "q6-8h"},
		domain.PatientContext{Age: 40})
	require.NoError(t, err)

	require.NotNil(t, a.Dosage)
	assert.False(t, a.Dosage.Valid)
	assert.False(t, a.Safe)
	require.NotNil(t, a.Dosage.PrescribedDailyDose)
	assert.Equal(t, 2400.0, *a.Dosage.PrescribedDailyDose)
	assert.True(t, hasWarning(a, "Daily dose 2400mg exceeds maximum daily dose of 1200mg"))
}
