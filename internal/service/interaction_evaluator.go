package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

// interactionInput is what the interaction checks need. Age and pregnancy are
// optional layers.
type interactionInput struct {
	tables     *knowledge.Tables
	drugs      []string
	conditions []string
	allergies  []string
	age        *float64
	pregnancy  domain.PregnancyStatus
}

// InteractionEvaluator detects drug-drug, drug-disease and allergy conflicts,
// with age and pregnancy layers on top.
type InteractionEvaluator struct {
	logger *logrus.Logger
}

// NewInteractionEvaluator creates a new interaction evaluator
func NewInteractionEvaluator(logger *logrus.Logger) *InteractionEvaluator {
	return &InteractionEvaluator{logger: logger}
}

// Evaluate checks the request drug together with the patient's concurrent
// medications.
func (e *InteractionEvaluator) Evaluate(in *evaluation) (*domain.InteractionResult, error) {
	drugs := []string{in.drug}
	for _, m := range in.patient.ConcurrentMedications {
		drugs = append(drugs, in.tables.Resolve(m))
	}
	age := in.patient.Age
	return e.check(interactionInput{
		tables:     in.tables,
		drugs:      drugs,
		conditions: in.conditions,
		allergies:  in.patient.Allergies,
		age:        &age,
		pregnancy:  in.patient.PregnancyStatus,
	}), nil
}

// check runs every interaction layer. The first drug is the primary one and
// decides data availability.
func (e *InteractionEvaluator) check(in interactionInput) *domain.InteractionResult {
	t := in.tables
	drugs := dedupe(in.drugs)

	result := &domain.InteractionResult{
		DrugsChecked:  drugs,
		DrugDrug:      []domain.Finding{},
		DrugDisease:   []domain.Finding{},
		Allergy:       []domain.Finding{},
		Layered:       []domain.Finding{},
		CheckedPairs:  []domain.PairCheck{},
		SafeToUse:     true,
		DataAvailable: len(drugs) > 0 && t.IsKnown(drugs[0]),
	}

	var unknown []string
	for _, d := range drugs {
		if !t.IsKnown(d) {
			unknown = append(unknown, d)
		}
	}

	e.checkPairs(t, drugs, result)
	e.checkDiseases(t, drugs, in.conditions, result)
	e.checkAllergies(t, drugs, in.allergies, result)
	if in.age != nil {
		e.checkAge(t, drugs, *in.age, result)
	}
	if in.pregnancy == domain.PregnancyPregnant {
		e.checkPregnancy(t, drugs, result)
	}

	result.TotalInteractions = len(result.DrugDrug)
	hasMajor := false
	for _, f := range result.Findings() {
		if f.Severity == domain.SeverityMajor {
			hasMajor = true
			break
		}
	}
	result.RequiresAttention = hasMajor || result.Counts.Moderate > 2
	result.SafeToUse = !hasMajor

	if hasMajor {
		result.Recommendations = appendUnique(result.Recommendations,
			"Review all major interactions with the prescriber before use")
	}
	if len(unknown) > 0 {
		result.Recommendations = appendUnique(result.Recommendations,
			"Interaction data unavailable for: "+strings.Join(unknown, ", "))
	}

	e.logger.WithFields(logrus.Fields{
		"drugs":        len(drugs),
		"interactions": result.TotalInteractions,
		"major":        result.Counts.Major,
		"safe_to_use":  result.SafeToUse,
	}).Debug("Interaction check completed")

	return result
}

func (e *InteractionEvaluator) checkPairs(t *knowledge.Tables, drugs []string, result *domain.InteractionResult) {
	for i := 0; i < len(drugs); i++ {
		for j := i + 1; j < len(drugs); j++ {
			a, b := drugs[i], drugs[j]
			rule, ok := t.Interaction(a, b)
			if !ok {
				result.CheckedPairs = append(result.CheckedPairs, domain.PairCheck{
					Drugs:    [2]string{a, b},
					Severity: domain.SeverityNone,
					Effect:   domain.NoKnownInteraction,
				})
				continue
			}

			result.CheckedPairs = append(result.CheckedPairs, domain.PairCheck{
				Drugs:    [2]string{a, b},
				Known:    true,
				Severity: rule.Severity,
				Effect:   rule.Effect,
			})
			f := pairFinding(a, b, rule)
			result.DrugDrug = append(result.DrugDrug, f)
			result.Recommendations = appendUnique(result.Recommendations, f.Recommendation)

			switch rule.Severity {
			case domain.SeverityMajor:
				result.Counts.Major++
				for _, d := range []string{a, b} {
					if alts := t.AlternativesFor(d); len(alts) > 0 {
						result.Recommendations = appendUnique(result.Recommendations,
							fmt.Sprintf("Consider alternatives to %s: %s", d, strings.Join(alts, ", ")))
					}
				}
			case domain.SeverityModerate:
				result.Counts.Moderate++
			default:
				result.Counts.Minor++
			}
		}
	}
}

func pairFinding(a, b string, rule *knowledge.InteractionRule) domain.Finding {
	rec := rule.Management
	if rec == "" {
		rec = fmt.Sprintf("Review the combination of %s and %s", a, b)
	}
	return domain.Finding{
		Source:            domain.SourceInteraction,
		Kind:              "drug_interaction",
		Severity:          rule.Severity,
		Message:           fmt.Sprintf("Drug interaction between %s and %s: %s", a, b, rule.Effect),
		Recommendation:    rec,
		Subjects:          []string{a, b},
		Mechanism:         rule.Mechanism,
		Management:        rule.Management,
		Monitoring:        rule.Monitoring,
		RequiresAttention: rule.Severity == domain.SeverityMajor,
	}
}

func (e *InteractionEvaluator) checkDiseases(t *knowledge.Tables, drugs, conditions []string, result *domain.InteractionResult) {
	for _, rule := range t.DiseaseContraindications {
		if !hasCondition(conditions, rule.Condition) {
			continue
		}
		for _, d := range drugs {
			if _, ok := t.MatchAny(d, rule.Drugs); !ok {
				continue
			}
			f := domain.Finding{
				Source:            domain.SourceInteraction,
				Kind:              "drug_disease",
				Severity:          domain.SeverityMajor,
				Message:           fmt.Sprintf("Avoid %s in patients with %s or use with extreme caution", d, humanize(rule.Condition)),
				Recommendation:    fmt.Sprintf("Select a drug that is safe in %s", humanize(rule.Condition)),
				Subjects:          []string{d, humanize(rule.Condition)},
				RequiresAttention: true,
			}
			result.DrugDisease = append(result.DrugDisease, f)
			result.Recommendations = appendUnique(result.Recommendations, f.Recommendation)
		}
	}
}

// checkAllergies matches each allergy directly by substring, then by class.
func (e *InteractionEvaluator) checkAllergies(t *knowledge.Tables, drugs, allergies []string, result *domain.InteractionResult) {
	for _, allergy := range allergies {
		raw := knowledge.NormalizeDrug(allergy)
		if raw == "" {
			continue
		}
		key := t.Resolve(allergy)
		for _, d := range drugs {
			var msg string
			switch {
			case strings.Contains(d, raw) || strings.Contains(raw, d) || d == key:
				msg = fmt.Sprintf("Patient has a documented allergy to %s", allergy)
			case t.Matches(d, key):
				msg = fmt.Sprintf("Patient allergic to %s: %s belongs to the same drug class", allergy, d)
			default:
				continue
			}
			f := domain.Finding{
				Source:            domain.SourceInteraction,
				Kind:              "allergy",
				Severity:          domain.SeverityMajor,
				Message:           msg,
				Recommendation:    "Do not administer; choose a drug from a different class",
				Subjects:          []string{d, allergy},
				RequiresAttention: true,
			}
			result.Allergy = append(result.Allergy, f)
			result.Recommendations = appendUnique(result.Recommendations, f.Recommendation)
		}
	}
}

func (e *InteractionEvaluator) checkAge(t *knowledge.Tables, drugs []string, age float64, result *domain.InteractionResult) {
	for _, rule := range t.InteractionAgeWarnings {
		if !rule.Applies(age) {
			continue
		}
		for _, d := range drugs {
			if _, ok := t.MatchAny(d, rule.Drugs); !ok {
				continue
			}
			result.Layered = append(result.Layered, domain.Finding{
				Source:            domain.SourceInteraction,
				Kind:              "age_interaction",
				Severity:          rule.Severity,
				Message:           rule.Message,
				Recommendation:    rule.Recommendation,
				Subjects:          []string{d},
				RequiresAttention: rule.Severity == domain.SeverityMajor,
			})
			result.Recommendations = appendUnique(result.Recommendations, rule.Recommendation)
		}
	}
}

func (e *InteractionEvaluator) checkPregnancy(t *knowledge.Tables, drugs []string, result *domain.InteractionResult) {
	for _, d := range drugs {
		rule, ok := t.PregnancyRule(d)
		if !ok {
			continue
		}
		result.Layered = append(result.Layered, domain.Finding{
			Source:            domain.SourceInteraction,
			Kind:              "pregnancy",
			Severity:          rule.Severity,
			Message:           fmt.Sprintf("%s: pregnancy %s", d, rule.Message),
			Recommendation:    "Review pregnancy safety with the prescriber",
			Subjects:          []string{d},
			RequiresAttention: rule.Severity == domain.SeverityMajor,
		})
		result.Recommendations = appendUnique(result.Recommendations, "Review pregnancy safety with the prescriber")
	}
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
