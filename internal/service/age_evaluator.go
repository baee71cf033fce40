package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

// AgeEvaluator applies pediatric and geriatric contraindication and caution
// rules.
type AgeEvaluator struct {
	logger *logrus.Logger
}

// NewAgeEvaluator creates a new age evaluator
func NewAgeEvaluator(logger *logrus.Logger) *AgeEvaluator {
	return &AgeEvaluator{logger: logger}
}

// Evaluate runs the pediatric path below 18 years and the geriatric path from
// 65 years on. An unknown drug yields no findings and is never safe.
func (a *AgeEvaluator) Evaluate(in *evaluation) (*domain.AgeResult, error) {
	age := in.patient.Age
	result := &domain.AgeResult{
		Drug:            in.drug,
		Band:            domain.BandForAge(age),
		Safe:            true,
		DataAvailable:   in.known(),
		CheckedCriteria: []string{},
		Findings:        []domain.Finding{},
	}

	if !result.DataAvailable {
		result.Safe = false
		a.logger.WithField("drug", in.drug).Debug("No age rules for drug")
		return result, nil
	}

	switch {
	case result.Band.IsPediatric():
		a.evaluatePediatric(in, result)
	case result.Band == domain.BandGeriatric:
		a.evaluateGeriatric(in, result)
	}

	a.logger.WithFields(logrus.Fields{
		"drug":     in.drug,
		"band":     result.Band,
		"findings": len(result.Findings),
		"safe":     result.Safe,
	}).Debug("Age evaluation completed")

	return result, nil
}

func (a *AgeEvaluator) evaluatePediatric(in *evaluation, result *domain.AgeResult) {
	t := in.tables
	age := in.patient.Age
	result.CheckedCriteria = append(result.CheckedCriteria,
		"pediatric_contraindications", "pediatric_dose_limits", "pediatric_condition_cautions")

	for _, rule := range t.PediatricContraindications {
		if !t.Matches(in.drug, rule.Drug) || age >= rule.AgeLimit {
			continue
		}
		a.add(result, domain.Finding{
			Kind:           "pediatric_contraindication",
			Severity:       domain.SeveritySevere,
			Message:        fmt.Sprintf("Contraindicated in children under %s years: %s", formatNumber(rule.AgeLimit), rule.Reason),
			Recommendation: "Select an age-appropriate alternative",
		})
		result.Safe = false
	}

	if perKg, ok := dosePerKg(in); ok {
		for _, rule := range t.PediatricDoseCeilings {
			if !t.Matches(in.drug, rule.Drug) || age < rule.MinAge || (rule.MaxAge > 0 && age >= rule.MaxAge) {
				continue
			}
			if perKg <= rule.MaxPerKg {
				continue
			}
			a.add(result, domain.Finding{
				Kind:     "pediatric_dose_limit",
				Severity: domain.SeverityModerate,
				Message: fmt.Sprintf("%s (%s mg/kg, limit %s mg/kg)",
					rule.Message, formatNumber(round2(perKg)), formatNumber(rule.MaxPerKg)),
				Recommendation: "Recalculate the dose from body weight",
			})
			result.Safe = false
		}
	}

	a.applyConditionRules(in, result, t.PediatricConditionCautions, "pediatric_condition_caution")

	if t.IsWeightBased(in.drug) {
		result.RequiresWeightDosing = true
		result.Recommendations = appendUnique(result.Recommendations,
			fmt.Sprintf("Use weight-based dosing for %s in children", in.drug))
		if in.patient.WeightKg == nil {
			result.Recommendations = appendUnique(result.Recommendations, "Obtain patient weight for accurate dosing")
		}
	}
}

func (a *AgeEvaluator) evaluateGeriatric(in *evaluation, result *domain.AgeResult) {
	t := in.tables
	age := in.patient.Age
	result.CheckedCriteria = append(result.CheckedCriteria,
		"beers_criteria", "beers_conditions", "geriatric_dose_adjustment",
		"geriatric_age_thresholds", "geriatric_condition_warnings")

	if entry, ok := t.BeersEntry(in.drug); ok {
		rec := "Review need for this medication in older adults"
		if entry.Alternative != "" {
			rec = "Consider alternative: " + entry.Alternative
		}
		a.add(result, domain.Finding{
			Kind:           "beers_criteria",
			Severity:       domain.SeveritySevere,
			Message:        fmt.Sprintf("Potentially inappropriate in older adults (Beers Criteria): %s", entry.Reason),
			Recommendation: rec,
		})
		result.BeersViolation = true
		result.Safe = false
	}

	for _, rule := range t.BeersConditions {
		if !t.Matches(in.drug, rule.Drug) || !hasCondition(in.conditions, rule.Condition) {
			continue
		}
		a.add(result, domain.Finding{
			Kind:           "beers_condition",
			Severity:       domain.SeveritySevere,
			Message:        fmt.Sprintf("Inappropriate with %s in older adults (Beers Criteria): %s", humanize(rule.Condition), rule.Reason),
			Recommendation: "Choose a drug without this disease interaction",
			Subjects:       []string{humanize(rule.Condition)},
		})
		result.BeersViolation = true
		result.Safe = false
	}

	if adj, ok := t.DoseAdjustment(in.drug); ok {
		a.add(result, domain.Finding{
			Kind:           "geriatric_dose_adjustment",
			Severity:       domain.SeverityModerate,
			Message:        fmt.Sprintf("Narrow therapeutic index drug in older adults: %s", adj.Adjustment),
			Recommendation: adj.Monitoring,
			Monitoring:     adj.Monitoring,
		})
		result.RequiresDoseAdjustment = true
	}

	switch {
	case age > 85:
		a.add(result, domain.Finding{
			Kind:           "geriatric_age_threshold",
			Severity:       domain.SeveritySevere,
			Message:        "Very elderly patient (>85 years) - increased sensitivity to medications",
			Recommendation: "Start at the lowest dose and titrate slowly",
		})
	case age > 75:
		a.add(result, domain.Finding{
			Kind:           "geriatric_age_threshold",
			Severity:       domain.SeverityModerate,
			Message:        "Elderly patient (>75 years) - consider dose reduction",
			Recommendation: "Consider a reduced starting dose",
		})
	}

	a.applyConditionRules(in, result, t.GeriatricConditionWarnings, "geriatric_condition_warning")
}

func (a *AgeEvaluator) applyConditionRules(in *evaluation, result *domain.AgeResult, rules []knowledge.ConditionRule, kind string) {
	for _, rule := range rules {
		cond, ok := matchesCondition(in.conditions, rule.Conditions)
		if !ok {
			continue
		}
		if _, ok := in.tables.MatchAny(in.drug, rule.Drugs); !ok {
			continue
		}
		a.add(result, domain.Finding{
			Kind:           kind,
			Severity:       rule.Severity,
			Message:        rule.Message,
			Recommendation: rule.Recommendation,
			Subjects:       []string{humanize(cond)},
		})
	}
}

func (a *AgeEvaluator) add(result *domain.AgeResult, f domain.Finding) {
	f.Source = domain.SourceAge
	f.RequiresAttention = f.Severity.Score() >= 3
	result.Findings = append(result.Findings, f)
	result.Recommendations = appendUnique(result.Recommendations, f.Recommendation)
}

// dosePerKg derives the prescribed single dose in mg/kg, if possible.
func dosePerKg(in *evaluation) (float64, bool) {
	if in.dose != nil && in.dose.PerKg {
		mg, ok := in.dose.Milligrams()
		if ok && in.dose.PerDay {
			s, _, _ := in.schedule()
			mg /= s.Min
		}
		return mg, ok
	}
	single, _, ok := in.prescribedAmounts()
	if !ok || in.patient.WeightKg == nil {
		return 0, false
	}
	return single / *in.patient.WeightKg, true
}
