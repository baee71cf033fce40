package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

var recommendedActions = map[domain.Severity]string{
	domain.SeverityLifeThreatening: "Seek emergency medical care immediately",
	domain.SeveritySevere:          "Contact a healthcare provider immediately",
	domain.SeverityModerate:        "Contact a healthcare provider within 24 hours",
	domain.SeverityMild:            "Keep track of symptoms and report if they worsen",
}

// SeverityClassifier maps adverse-effect text to a severity tier using the
// ordered rule list of the tables.
type SeverityClassifier struct {
	logger *logrus.Logger
}

// NewSeverityClassifier creates a new severity classifier
func NewSeverityClassifier(logger *logrus.Logger) *SeverityClassifier {
	return &SeverityClassifier{logger: logger}
}

// Classify evaluates one effect. The first matching rule wins: critical
// symptoms short-circuit, then keyword tiers, then patient context
// escalations.
func (c *SeverityClassifier) Classify(t *knowledge.Tables, effect string, patient *domain.PatientContext) (*domain.SeverityClassification, error) {
	text := knowledge.NormalizeText(effect)
	if text == "" {
		return nil, domain.NewInputError("adverse_effect", "adverse effect text is required", effect)
	}

	rules := t.Severity
	result := &domain.SeverityClassification{
		Effect:       strings.TrimSpace(effect),
		Severity:     domain.SeverityMild,
		MatchedRule:  "default",
		RulesVersion: rules.Version,
	}

	critical := false
	for _, kw := range rules.Critical {
		if strings.Contains(text, kw) {
			result.Severity = domain.SeverityLifeThreatening
			result.MatchedRule = "critical:" + kw
			critical = true
			break
		}
	}

	if !critical {
	tiers:
		for _, tier := range rules.Tiers {
			for _, kw := range tier.Keywords {
				if strings.Contains(text, kw) {
					result.Severity = tier.Severity
					result.MatchedRule = fmt.Sprintf("tier:%s:%s", tier.Severity, kw)
					break tiers
				}
			}
		}
		if patient != nil {
			c.escalate(rules, text, patient, result)
		}
	}

	result.Score = result.Severity.Score()
	result.RequiresAttention = result.Score >= 3
	result.Urgency = domain.UrgencyForScore(result.Score)
	result.MonitoringRequired = result.Score >= 2
	result.RecommendedAction = recommendedActions[result.Severity]

	c.logger.WithFields(logrus.Fields{
		"severity":     result.Severity,
		"matched_rule": result.MatchedRule,
		"escalations":  len(result.Escalations),
	}).Debug("Adverse effect classified")

	return result, nil
}

func (c *SeverityClassifier) escalate(rules knowledge.SeverityRules, text string, patient *domain.PatientContext, result *domain.SeverityClassification) {
	switch {
	case patient.Age >= 65 && result.Severity == domain.SeverityModerate:
		result.Severity = domain.SeveritySevere
		result.Escalations = append(result.Escalations, "geriatric: moderate to severe")
	case patient.Age < 18 && result.Severity == domain.SeverityMild:
		result.Severity = domain.SeverityModerate
		result.Escalations = append(result.Escalations, "pediatric: mild to moderate")
	}

	conditions := normalizeConditions(patient.Conditions)
	for _, esc := range rules.Escalations {
		if !hasCondition(conditions, esc.Condition) {
			continue
		}
		for _, symptom := range esc.Symptoms {
			if strings.Contains(text, symptom) {
				result.Severity = esc.Severity
				result.Escalations = append(result.Escalations,
					fmt.Sprintf("%s with %s: %s", humanize(esc.Condition), symptom, esc.Severity))
				return
			}
		}
	}
}

// Summarize aggregates several classifications: the overall tier is the tier
// of the maximum score, and both the maximum and the mean are reported.
func (c *SeverityClassifier) Summarize(classifications []domain.SeverityClassification) *domain.SeveritySummary {
	summary := &domain.SeveritySummary{
		Classifications: classifications,
		Overall:         domain.SeverityMild,
		Recommendations: []string{},
	}
	if len(classifications) == 0 {
		return summary
	}

	total := 0
	for _, cl := range classifications {
		total += cl.Score
		if cl.Score > summary.MaxScore {
			summary.MaxScore = cl.Score
		}
		if cl.RequiresAttention {
			summary.RequiresMedicalAttention = true
		}
	}
	summary.Overall = domain.SeverityForScore(summary.MaxScore)
	summary.MeanScore = round2(float64(total) / float64(len(classifications)))

	summary.Recommendations = appendUnique(summary.Recommendations, recommendedActions[summary.Overall])
	if summary.RequiresMedicalAttention {
		summary.Recommendations = appendUnique(summary.Recommendations,
			"Consider discontinuing the suspected medication")
	}
	if len(classifications) > 1 {
		summary.Recommendations = appendUnique(summary.Recommendations,
			"Document all adverse effects in the patient record")
	}
	return summary
}
