package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

func report(source domain.Source, safe bool, findings ...domain.Finding) domain.EvaluatorReport {
	return domain.EvaluatorReport{
		Source:        source,
		Status:        domain.StatusOK,
		Safe:          safe,
		DataAvailable: true,
		Findings:      findings,
	}
}

func finding(severity domain.Severity, message string) domain.Finding {
	return domain.Finding{Source: domain.SourceAge, Kind: "test", Severity: severity, Message: message}
}

func aggregate(age float64, reports ...domain.EvaluatorReport) *domain.Assessment {
	return NewRiskAggregator(newTestLogger()).Aggregate(aggregateInput{
		tables:     knowledge.Builtin(),
		drug:       "testdrug",
		normalized: "testdrug",
		age:        age,
		reports:    reports,
	})
}

func TestAggregateNoFindings(t *testing.T) {
	a := aggregate(40, report(domain.SourceAge, true))

	assert.Equal(t, 1.0, a.RiskScore)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)
	assert.True(t, a.Safe)
	assert.Equal(t, domain.ConfidenceHigh, a.Confidence)
	assert.Equal(t, []string{reportAdvice}, a.Recommendations)
	require.Len(t, a.ScoreFactors, 1)
	assert.Equal(t, "base_tier", a.ScoreFactors[0].Name)
}

func TestAggregatePhraseWeightsBelowTopTier(t *testing.T) {
	a := aggregate(40, report(domain.SourceAge, true,
		finding(domain.SeveritySevere, "Avoid in heart failure"),
		finding(domain.SeverityModerate, "Monitor blood pressure"),
		finding(domain.SeverityModerate, "Monitor blood pressure"),
	))

	// high base 6.0 + monitor 1.0; the top-tier warning carries no phrase points
	assert.Equal(t, 7.0, a.RiskScore)
	assert.Equal(t, []string{"Avoid in heart failure", "Monitor blood pressure"}, a.Warnings)
	names := make([]string, 0, len(a.ScoreFactors))
	for _, f := range a.ScoreFactors {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"base_tier", "phrase:monitoring"}, names)
}

func TestAggregateUnsafeBelowHigh(t *testing.T) {
	a := aggregate(40, report(domain.SourceDosage, false,
		finding(domain.SeverityModerate, "Dose differs from guideline")))

	// moderate base 3.0 + unsafe evaluator 1.0
	assert.Equal(t, 4.0, a.RiskScore)
	assert.Equal(t, domain.RiskModerate, a.RiskLevel)
	assert.False(t, a.Safe)
	assert.Contains(t, a.Recommendations, alternativeAdvice)
}

func TestAggregateAgeCategory(t *testing.T) {
	tests := []struct {
		age   float64
		score float64
	}{
		{1, 3.0},
		{8, 2.5},
		{15, 2.0},
		{40, 1.0},
		{70, 2.5},
	}
	for _, tt := range tests {
		a := aggregate(tt.age, report(domain.SourceAge, true))
		assert.Equal(t, tt.score, a.RiskScore, "age %v", tt.age)
	}
}

func TestAggregateClampsScore(t *testing.T) {
	a := aggregate(1, report(domain.SourceAge, false,
		finding(domain.SeverityLifeThreatening, "Cardiac arrest risk"),
		finding(domain.SeveritySevere, "Avoid: contraindicated, Beers Criteria, heart failure, exceeds maximum, interaction"),
		finding(domain.SeverityModerate, "Monitor closely with caution"),
	))

	assert.Equal(t, 10.0, a.RiskScore)
	assert.Equal(t, domain.RiskCritical, a.RiskLevel)
}

func TestAggregateProperties(t *testing.T) {
	severities := []domain.Severity{
		domain.SeverityMild, domain.SeverityModerate, domain.SeveritySevere,
		domain.SeverityLifeThreatening, domain.SeverityMinor, domain.SeverityMajor,
	}
	messages := []string{
		"Avoid this drug", "Beers Criteria listed", "Use with caution",
		"Monitor INR", "Drug interaction noted", "Plain note",
	}

	for _, age := range []float64{0.5, 7, 16, 40, 80} {
		for i, sev := range severities {
			for _, safe := range []bool{true, false} {
				base := []domain.Finding{finding(sev, messages[i])}
				a := aggregate(age, report(domain.SourceAge, safe, base...))

				assert.GreaterOrEqual(t, a.RiskScore, 0.0)
				assert.LessOrEqual(t, a.RiskScore, 10.0)
				assert.Equal(t, domain.RiskLevelForScore(a.RiskScore), a.RiskLevel)

				again := aggregate(age, report(domain.SourceAge, safe, base...))
				assert.Equal(t, a, again)

				// Adding a contraindication never lowers the score.
				worse := aggregate(age, report(domain.SourceAge, false,
					append(base, finding(domain.SeveritySevere, "Contraindicated in this patient"))...))
				assert.GreaterOrEqual(t, worse.RiskScore, a.RiskScore,
					"age %v severity %s safe %v", age, sev, safe)
			}
		}
	}
}

func TestAggregateSkippedAndDataGap(t *testing.T) {
	gap := domain.EvaluatorReport{Source: domain.SourceAge, Status: domain.StatusDataGap, DataAvailable: false}
	skipped := domain.EvaluatorReport{Source: domain.SourceSeverity, Status: domain.StatusSkipped, Safe: true, DataAvailable: true}

	a := aggregate(40, gap, skipped)

	assert.False(t, a.DataAvailable)
	assert.False(t, a.Safe)
	assert.Equal(t, domain.ConfidenceLow, a.Confidence)
	assert.Len(t, a.Evaluators, 2)
	assert.Equal(t, domain.StatusSkipped, a.Evaluators[1].Status)
	assert.Equal(t, dataGapAdvice, a.Recommendations[0])
	assert.Equal(t, reportAdvice, a.Recommendations[len(a.Recommendations)-1])
}

func TestAggregateCoverageBonus(t *testing.T) {
	pediatric := report(domain.SourceAge, true)
	pediatric.CheckedCriteria = []string{"pediatric_contraindications"}
	geriatric := report(domain.SourceDosage, true)
	geriatric.CheckedCriteria = []string{"geriatric_dose_adjustments"}

	a := aggregate(40, pediatric, geriatric)
	// low base 1.0 + coverage 0.5
	assert.Equal(t, 1.5, a.RiskScore)
	assert.Equal(t, "coverage", a.ScoreFactors[len(a.ScoreFactors)-1].Name)

	a = aggregate(40, pediatric)
	assert.Equal(t, 1.0, a.RiskScore)
}
