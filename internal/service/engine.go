package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/pkg/dosage"
)

// Engine runs the evaluators with per-evaluator failure isolation and folds
// their reports into an Assessment.
type Engine struct {
	registry     *knowledge.Registry
	logger       *logrus.Logger
	age          *AgeEvaluator
	dosage       *DosageEvaluator
	interactions *InteractionEvaluator
	severity     *SeverityClassifier
	aggregator   *RiskAggregator
	maxWorkers   int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine) error

// WithMaxWorkers bounds the AssessBatch worker pool.
func WithMaxWorkers(n int) EngineOption {
	return func(e *Engine) error {
		if n <= 0 {
			return fmt.Errorf("max workers must be positive, got %d", n)
		}
		e.maxWorkers = n
		return nil
	}
}

// NewEngine creates an engine serving the registry's current tables.
func NewEngine(registry *knowledge.Registry, logger *logrus.Logger, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		registry:     registry,
		logger:       logger,
		age:          NewAgeEvaluator(logger),
		dosage:       NewDosageEvaluator(logger),
		interactions: NewInteractionEvaluator(logger),
		severity:     NewSeverityClassifier(logger),
		aggregator:   NewRiskAggregator(logger),
		maxWorkers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply engine option: %w", err)
		}
	}
	return e, nil
}

// Tables returns the tables snapshot new requests will use.
func (e *Engine) Tables() *knowledge.Tables {
	return e.registry.Current()
}

// Assess validates the inputs and runs every evaluator. Invalid input is
// rejected with an InputError and no Assessment. Evaluator faults are
// isolated and surface on the Assessment's error field.
func (e *Engine) Assess(ctx context.Context, req domain.DrugRequest, patient domain.PatientContext) (*domain.Assessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dose, err := req.Validate()
	if err != nil {
		return nil, err
	}
	if err := patient.Validate(); err != nil {
		return nil, err
	}

	tables := e.registry.Current()
	in := newEvaluation(tables, req, dose, patient)
	if !in.known() {
		e.logger.WithError(&domain.DataGapError{Drug: in.drug}).Warn("Drug not found in rule tables")
	}
	if in.crcl == nil && patient.SerumCreatinine != nil && patient.WeightKg != nil {
		crcl, err := EstimateCreatinineClearance(patient.Age, *patient.WeightKg, *patient.SerumCreatinine, patient.Gender)
		if err != nil {
			e.logger.WithError(err).Warn("Could not estimate creatinine clearance")
		} else {
			in.crcl = &crcl
		}
	}

	var (
		ageResult    *domain.AgeResult
		dosageResult *domain.DosageResult
		interResult  *domain.InteractionResult
		adverse      *domain.SeveritySummary
	)

	reports := []domain.EvaluatorReport{
		e.run(domain.SourceAge, func() (domain.EvaluatorReport, error) {
			r, err := e.age.Evaluate(in)
			if err != nil {
				return domain.EvaluatorReport{}, err
			}
			ageResult = r
			return r.Report(), nil
		}),
		e.run(domain.SourceDosage, func() (domain.EvaluatorReport, error) {
			r, err := e.dosage.Evaluate(in)
			if err != nil {
				return domain.EvaluatorReport{}, err
			}
			dosageResult = r
			return r.Report(), nil
		}),
		e.run(domain.SourceInteraction, func() (domain.EvaluatorReport, error) {
			r, err := e.interactions.Evaluate(in)
			if err != nil {
				return domain.EvaluatorReport{}, err
			}
			interResult = r
			return r.Report(), nil
		}),
	}

	if len(req.AdverseEffects) > 0 {
		reports = append(reports, e.run(domain.SourceSeverity, func() (domain.EvaluatorReport, error) {
			classifications := make([]domain.SeverityClassification, 0, len(req.AdverseEffects))
			for _, effect := range req.AdverseEffects {
				c, err := e.severity.Classify(tables, effect, &patient)
				if err != nil {
					return domain.EvaluatorReport{}, err
				}
				classifications = append(classifications, *c)
			}
			adverse = e.severity.Summarize(classifications)
			return adverse.Report(), nil
		}))
	} else {
		reports = append(reports, domain.EvaluatorReport{
			Source:        domain.SourceSeverity,
			Status:        domain.StatusSkipped,
			Safe:          true,
			DataAvailable: true,
		})
	}

	assessment := e.aggregator.Aggregate(aggregateInput{
		tables:       tables,
		drug:         req.Drug,
		normalized:   in.drug,
		age:          patient.Age,
		reports:      reports,
		ageResult:    ageResult,
		dosage:       dosageResult,
		interactions: interResult,
		adverse:      adverse,
	})

	e.logger.WithFields(logrus.Fields{
		"drug":       assessment.NormalizedDrug,
		"risk_score": assessment.RiskScore,
		"risk_level": assessment.RiskLevel,
		"safe":       assessment.Safe,
		"confidence": assessment.Confidence,
		"tables":     tables.Version,
	}).Info("Completed medication safety assessment")

	return assessment, nil
}

// run executes one evaluator, turning errors and panics into a failed report
// so that the remaining evaluators still complete.
func (e *Engine) run(source domain.Source, fn func() (domain.EvaluatorReport, error)) (report domain.EvaluatorReport) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &domain.ComputationError{Evaluator: source, Op: "evaluate", Err: fmt.Errorf("panic: %v", rec)}
			e.logger.WithError(err).WithField("evaluator", source).Warn("Evaluator panicked")
			report = domain.FailedReport(source, err)
		}
	}()

	report, err := fn()
	if err != nil {
		var ce *domain.ComputationError
		if !errors.As(err, &ce) {
			err = &domain.ComputationError{Evaluator: source, Op: "evaluate", Err: err}
		}
		e.logger.WithError(err).WithField("evaluator", source).Warn("Failed to evaluate")
		return domain.FailedReport(source, err)
	}
	return report
}

// AssessBatch assesses items concurrently on a bounded pool. Results keep the
// input order; a failed item becomes an error-tagged Assessment at its index.
func (e *Engine) AssessBatch(ctx context.Context, items []domain.BatchItem) []*domain.Assessment {
	results := make([]*domain.Assessment, len(items))

	var g errgroup.Group
	g.SetLimit(e.maxWorkers)
	for i, item := range items {
		g.Go(func() error {
			a, err := e.Assess(ctx, item.Request, item.Patient)
			if err != nil {
				a = domain.FailedAssessment(item.Request.Drug, err)
			}
			results[i] = a
			return nil
		})
	}
	_ = g.Wait()

	e.logger.WithField("items", len(items)).Info("Completed batch assessment")
	return results
}

// ClassifySeverity classifies one adverse-effect description.
func (e *Engine) ClassifySeverity(ctx context.Context, text string, patient *domain.PatientContext) (*domain.SeverityClassification, error) {
	if patient != nil {
		if err := patient.Validate(); err != nil {
			return nil, err
		}
	}
	return e.severity.Classify(e.registry.Current(), text, patient)
}

// CheckInteractions checks a drug list against each other and the conditions.
func (e *Engine) CheckInteractions(ctx context.Context, drugs []string, conditions []string) (*domain.InteractionResult, error) {
	tables := e.registry.Current()
	resolved := make([]string, 0, len(drugs))
	for _, d := range drugs {
		if strings.TrimSpace(d) == "" {
			continue
		}
		resolved = append(resolved, tables.Resolve(d))
	}
	if len(resolved) == 0 {
		return nil, domain.NewInputError("drugs", "at least one drug is required", drugs)
	}
	return e.interactions.check(interactionInput{
		tables:     tables,
		drugs:      resolved,
		conditions: normalizeConditions(conditions),
	}), nil
}

// InteractionDetail looks up a single pair. Unknown pairs return the explicit
// "No known interaction" sentinel.
func (e *Engine) InteractionDetail(ctx context.Context, drugA, drugB string) (*domain.InteractionDetail, error) {
	if strings.TrimSpace(drugA) == "" || strings.TrimSpace(drugB) == "" {
		return nil, domain.NewInputError("drugs", "two drug names are required", []string{drugA, drugB})
	}
	tables := e.registry.Current()
	a, b := tables.Resolve(drugA), tables.Resolve(drugB)

	detail := &domain.InteractionDetail{
		Pair: domain.PairCheck{
			Drugs:    [2]string{a, b},
			Severity: domain.SeverityNone,
			Effect:   domain.NoKnownInteraction,
		},
	}
	rule, ok := tables.Interaction(a, b)
	if !ok {
		return detail, nil
	}

	f := pairFinding(a, b, rule)
	detail.Pair.Known = true
	detail.Pair.Severity = rule.Severity
	detail.Pair.Effect = rule.Effect
	detail.Finding = &f
	if rule.Severity != domain.SeverityMinor {
		detail.Alternatives = map[string][]string{}
		for _, d := range []string{a, b} {
			if alts := tables.AlternativesFor(d); len(alts) > 0 {
				detail.Alternatives[d] = alts
			}
		}
	}
	return detail, nil
}

// RenalAdjust returns the renal dose adjustment for a drug at a clearance.
func (e *Engine) RenalAdjust(ctx context.Context, drug string, crcl float64, dose *float64) (*domain.RenalAdjustment, error) {
	if strings.TrimSpace(drug) == "" {
		return nil, domain.NewInputError("drug", "drug name is required", drug)
	}
	if math.IsNaN(crcl) || crcl <= 0 {
		return nil, domain.NewInputError("creatinine_clearance", "creatinine clearance must be positive", crcl)
	}
	if crcl > domain.MaxCreatinineClearance {
		return nil, domain.NewInputError("creatinine_clearance", "creatinine clearance exceeds plausible maximum", crcl)
	}
	if dose != nil && (math.IsNaN(*dose) || *dose <= 0 || *dose > dosage.MaxValue) {
		return nil, domain.NewInputError("dose", "dose must be positive and plausible", *dose)
	}
	tables := e.registry.Current()
	return renalAdjustment(tables, tables.Resolve(drug), crcl, dose), nil
}

// CompareRisk ranks assessments from lowest to highest risk score. Failed
// assessments rank last.
func CompareRisk(assessments []*domain.Assessment) *domain.RiskComparison {
	ranked := make([]domain.RankedAssessment, 0, len(assessments))
	for _, a := range assessments {
		if a == nil {
			continue
		}
		ranked = append(ranked, domain.RankedAssessment{
			Drug:      a.Drug,
			RiskScore: a.RiskScore,
			RiskLevel: a.RiskLevel,
			Safe:      a.Safe,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		fi, fj := ranked[i].RiskLevel == domain.RiskUnknown, ranked[j].RiskLevel == domain.RiskUnknown
		if fi != fj {
			return fj
		}
		return ranked[i].RiskScore < ranked[j].RiskScore
	})

	cmp := &domain.RiskComparison{Ranked: ranked}
	for i := range ranked {
		ranked[i].Rank = i + 1
		if ranked[i].Safe {
			cmp.SafeCount++
		}
	}
	if len(ranked) > 0 {
		if ranked[0].RiskLevel != domain.RiskUnknown {
			cmp.Safest = ranked[0].Drug
		}
		cmp.HighestRisk = ranked[len(ranked)-1].Drug
		for i := len(ranked) - 1; i >= 0; i-- {
			if ranked[i].RiskLevel != domain.RiskUnknown {
				cmp.HighestRisk = ranked[i].Drug
				break
			}
		}
	}
	return cmp
}
