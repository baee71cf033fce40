package service

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

const (
	maxRiskScore      = 10.0
	coverageBonus     = 0.5
	unsafeEvaluator   = 1.0
	dataGapAdvice     = "Insufficient data for this medication - consult a healthcare professional"
	failureAdvice     = "Unable to complete safety assessment - consult a healthcare professional"
	alternativeAdvice = "Alternative medications may be available"
	reportAdvice      = "Report any adverse reactions immediately"
)

var levelAdvice = map[domain.RiskLevel][]string{
	domain.RiskCritical: {
		"URGENT: Do not administer without specialist review",
		"Consult the prescribing physician immediately",
	},
	domain.RiskHigh: {
		"Consult a healthcare provider before use",
		"Close clinical follow-up is required",
	},
	domain.RiskModerate: {
		"Use with caution and follow up for side effects",
	},
}

var ageAdvice = map[domain.AgeCategory][]string{
	domain.CategoryInfant:     {"Ensure dosage is appropriate for weight", "Consult pediatrician"},
	domain.CategoryChild:      {"Ensure dosage is appropriate for weight", "Consult pediatrician"},
	domain.CategoryAdolescent: {"Verify adolescent dosing guidelines"},
	domain.CategoryGeriatric:  {"Start with the lowest effective dose", "Watch for increased sensitivity to side effects"},
}

// aggregateInput carries everything the aggregator folds into an Assessment.
// Reports are in evaluator order: age, dosage, interaction, severity.
type aggregateInput struct {
	tables       *knowledge.Tables
	drug         string
	normalized   string
	age          float64
	reports      []domain.EvaluatorReport
	ageResult    *domain.AgeResult
	dosage       *domain.DosageResult
	interactions *domain.InteractionResult
	adverse      *domain.SeveritySummary
}

// RiskAggregator merges evaluator reports into one Assessment.
type RiskAggregator struct {
	logger *logrus.Logger
}

// NewRiskAggregator creates a new risk aggregator
func NewRiskAggregator(logger *logrus.Logger) *RiskAggregator {
	return &RiskAggregator{logger: logger}
}

// Aggregate builds the Assessment. The score is additive and then clamped:
//
//	base(top tier) + age category + phrase weights + coverage + unsafe
//
// Two terms are not a plain sum over every warning. Phrase weights skip
// warnings at the top tier, and the +1.0 unsafe term is dropped once the top
// tier is high or critical; in both cases the base already counts the
// finding. The coverage term needs both pediatric_ and geriatric_ criteria in
// one assessment, which the age evaluator never reports for a single patient.
func (r *RiskAggregator) Aggregate(in aggregateInput) *domain.Assessment {
	a := &domain.Assessment{
		Drug:              in.drug,
		NormalizedDrug:    in.normalized,
		AgeCategory:       domain.CategoryForAge(in.age),
		Safe:              true,
		DataAvailable:     true,
		Warnings:          []string{},
		Recommendations:   []string{},
		Findings:          []domain.Finding{},
		ScoreFactors:      []domain.ScoreFactor{},
		CheckedCriteria:   []string{},
		Evaluators:        make([]domain.EvaluatorOutcome, 0, len(in.reports)),
		Dosage:            in.dosage,
		Interactions:      in.interactions,
		AdverseEffects:    in.adverse,
		RuleTablesVersion: in.tables.Version,
	}

	var errs []string
	anyUnsafe := false
	limitedGuidance := false
	for _, rep := range in.reports {
		a.Evaluators = append(a.Evaluators, domain.EvaluatorOutcome{
			Source:        rep.Source,
			Status:        rep.Status,
			Safe:          rep.Safe,
			DataAvailable: rep.DataAvailable,
			Error:         rep.Error,
		})
		switch rep.Status {
		case domain.StatusSkipped:
			continue
		case domain.StatusUnknown:
			errs = append(errs, rep.Error)
			continue
		}
		if !rep.DataAvailable {
			a.DataAvailable = false
		} else if !rep.Safe {
			anyUnsafe = true
		}
		a.Findings = append(a.Findings, rep.Findings...)
		a.CheckedCriteria = appendUnique(a.CheckedCriteria, rep.CheckedCriteria...)
	}

	if in.ageResult != nil {
		a.BeersViolation = in.ageResult.BeersViolation
		a.RequiresDoseAdjustment = in.ageResult.RequiresDoseAdjustment
	}
	if d := in.dosage; d != nil {
		if d.Renal != nil && d.Renal.RequiresAdjustment {
			a.RequiresDoseAdjustment = true
		}
		if !d.Valid {
			a.RequiresDoseAdjustment = true
		}
		limitedGuidance = d.DosingMethod == domain.DosingNoGuideline || d.DosingMethod == domain.DosingWeightRequired
	}

	// Warnings in first-seen order, remembering the highest tier per message.
	tierOf := make(map[string]domain.RiskLevel)
	top := domain.RiskLow
	for _, f := range a.Findings {
		tier := f.Severity.Tier()
		if tier.Priority() > top.Priority() {
			top = tier
		}
		prev, seen := tierOf[f.Message]
		if !seen {
			a.Warnings = append(a.Warnings, f.Message)
		}
		if !seen || tier.Priority() > prev.Priority() {
			tierOf[f.Message] = tier
		}
	}

	r.score(a, in.tables, top, tierOf, anyUnsafe)

	a.Safe = a.DataAvailable && !anyUnsafe && len(errs) == 0
	switch {
	case len(errs) > 0 || !a.DataAvailable:
		a.Confidence = domain.ConfidenceLow
	case limitedGuidance:
		a.Confidence = domain.ConfidenceMedium
	default:
		a.Confidence = domain.ConfidenceHigh
	}
	if len(errs) > 0 {
		a.RiskLevel = domain.RiskUnknown
		a.Error = strings.Join(errs, "; ")
	}

	a.Recommendations = r.recommendations(a, in.reports, len(errs) > 0)

	r.logger.WithFields(logrus.Fields{
		"drug":       a.NormalizedDrug,
		"risk_score": a.RiskScore,
		"risk_level": a.RiskLevel,
		"safe":       a.Safe,
		"warnings":   len(a.Warnings),
	}).Debug("Assessment aggregated")

	return a
}

func (r *RiskAggregator) score(a *domain.Assessment, t *knowledge.Tables, top domain.RiskLevel, tierOf map[string]domain.RiskLevel, anyUnsafe bool) {
	add := func(name, detail string, points float64) {
		a.ScoreFactors = append(a.ScoreFactors, domain.ScoreFactor{Name: name, Detail: detail, Points: points})
	}

	total := top.BaseScore()
	add("base_tier", string(top), total)

	if adj := a.AgeCategory.ScoreAdjustment(); adj > 0 {
		total += adj
		add("age_category", string(a.AgeCategory), adj)
	}

	for _, w := range a.Warnings {
		if tierOf[w].Priority() >= top.Priority() {
			continue
		}
		lower := strings.ToLower(w)
		for _, rule := range t.RiskPhrases {
			if containsAnyPhrase(lower, rule.Phrases) {
				total += rule.Weight
				add("phrase:"+rule.Category, w, rule.Weight)
			}
		}
	}

	if hasCriteria(a.CheckedCriteria, "pediatric_") && hasCriteria(a.CheckedCriteria, "geriatric_") {
		total += coverageBonus
		add("coverage", "pediatric and geriatric checks", coverageBonus)
	}

	if anyUnsafe && top.Priority() < domain.RiskHigh.Priority() {
		total += unsafeEvaluator
		add("unsafe_evaluator", "an evaluator reported unsafe", unsafeEvaluator)
	}

	a.RiskScore = math.Round(math.Min(math.Max(total, 0), maxRiskScore)*100) / 100
	a.RiskLevel = domain.RiskLevelForScore(a.RiskScore)
}

func (r *RiskAggregator) recommendations(a *domain.Assessment, reports []domain.EvaluatorReport, failed bool) []string {
	recs := []string{}
	recs = appendUnique(recs, levelAdvice[a.RiskLevel]...)
	if failed {
		recs = appendUnique(recs, failureAdvice)
	}
	if !a.DataAvailable {
		recs = appendUnique(recs, dataGapAdvice)
	}
	recs = appendUnique(recs, ageAdvice[a.AgeCategory]...)
	for _, rep := range reports {
		recs = appendUnique(recs, rep.Recommendations...)
	}
	if !a.Safe {
		recs = appendUnique(recs, alternativeAdvice)
	}
	// Always last.
	recs = appendUnique(recs, reportAdvice)
	return recs
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func hasCriteria(criteria []string, prefix string) bool {
	for _, c := range criteria {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
