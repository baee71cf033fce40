package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/pkg/dosage"
)

const (
	invalidDeviationPercent = 50.0
	cautionDeviationPercent = 20.0
)

// DosageEvaluator computes the guideline dose for the patient, applies renal
// adjustment and validates any prescribed dose against it.
type DosageEvaluator struct {
	logger *logrus.Logger
}

// NewDosageEvaluator creates a new dosage evaluator
func NewDosageEvaluator(logger *logrus.Logger) *DosageEvaluator {
	return &DosageEvaluator{logger: logger}
}

// Evaluate runs the dosage checks in a fixed order: guideline selection, dose
// calculation, renal adjustment, prescribed dose validation and finally hard
// age warnings.
func (d *DosageEvaluator) Evaluate(in *evaluation) (*domain.DosageResult, error) {
	t := in.tables
	result := &domain.DosageResult{
		Drug:          in.drug,
		AgeGroup:      domain.GroupForAge(in.patient.Age),
		DataAvailable: in.known(),
		DosingMethod:  domain.DosingNoGuideline,
		WeightKg:      in.patient.WeightKg,
		Valid:         true,
		Safe:          true,
		Findings:      []domain.Finding{},
	}
	if !result.DataAvailable {
		result.Safe = false
	}

	// 1. Guideline selection.
	var guideline *knowledge.Guideline
	if g, ok := t.Guideline(in.drug); ok {
		guideline = g.For(result.AgeGroup)
		result.Unit = g.Unit
	}

	// 2. Dose calculation.
	if guideline != nil {
		result.HasGuideline = true
		result.Frequency = guideline.Frequency
		if err := d.calculate(in, guideline, result); err != nil {
			return nil, err
		}
	} else {
		result.Recommendations = appendUnique(result.Recommendations,
			fmt.Sprintf("No dosing guideline available for %s - verify dose with a pharmacist", in.drug))
	}

	// 3. Renal adjustment.
	if in.crcl != nil {
		if _, ok := t.RenalRule(in.drug); ok {
			renal := renalAdjustment(t, in.drug, *in.crcl, result.CalculatedDose)
			result.Renal = renal
			if renal.AdjustedDose != nil && result.CalculatedDose != nil {
				result.CalculatedDose = renal.AdjustedDose
			}
			if renal.Band != domain.RenalNormal {
				d.add(result, renal.Finding)
			}
			for _, w := range renal.Warnings {
				d.add(result, w)
			}
		}
	}

	// 4. Prescribed dose validation.
	if in.dose != nil {
		if err := d.validatePrescription(in, result); err != nil {
			return nil, err
		}
	}

	// 5. Hard age warnings.
	for _, rule := range t.DosageAgeWarnings {
		if !rule.Applies(in.patient.Age) {
			continue
		}
		if _, ok := t.MatchAny(in.drug, rule.Drugs); !ok {
			continue
		}
		d.add(result, domain.Finding{
			Kind:           "dosage_age_warning",
			Severity:       rule.Severity,
			Message:        rule.Message,
			Recommendation: rule.Recommendation,
		})
		if rule.Unsafe {
			result.Safe = false
		}
	}

	d.logger.WithFields(logrus.Fields{
		"drug":          in.drug,
		"age_group":     result.AgeGroup,
		"dosing_method": result.DosingMethod,
		"valid":         result.Valid,
		"findings":      len(result.Findings),
	}).Debug("Dosage evaluation completed")

	return result, nil
}

func (d *DosageEvaluator) calculate(in *evaluation, g *knowledge.Guideline, result *domain.DosageResult) error {
	weight := in.patient.WeightKg

	switch {
	case g.WeightBased() && weight != nil:
		result.DosingMethod = domain.DosingWeightBased
		result.CalculatedDose = ptr(round2(*weight * g.DosePerKg))
		if g.MaxPerKgDay > 0 {
			result.MaxDailyDose = ptr(round2(*weight * g.MaxPerKgDay))
		} else if g.MaxDaily > 0 {
			result.MaxDailyDose = ptr(g.MaxDaily)
		}
	case g.WeightBased() && g.Dose > 0:
		result.DosingMethod = domain.DosingFixed
		result.CalculatedDose = ptr(g.Dose)
		if g.MaxDaily > 0 {
			result.MaxDailyDose = ptr(g.MaxDaily)
		}
		result.Recommendations = appendUnique(result.Recommendations,
			"Fixed dose used because patient weight is unknown")
	case g.WeightBased():
		result.DosingMethod = domain.DosingWeightRequired
		d.add(result, domain.Finding{
			Kind:           "weight_required",
			Severity:       domain.SeverityModerate,
			Message:        fmt.Sprintf("Patient weight required to calculate %s dose", in.drug),
			Recommendation: "Obtain patient weight for accurate dosing",
		})
		return nil
	default:
		result.DosingMethod = domain.DosingFixed
		result.CalculatedDose = ptr(g.Dose)
		if g.MaxDaily > 0 {
			result.MaxDailyDose = ptr(g.MaxDaily)
		}
	}

	if result.CalculatedDose == nil || *result.CalculatedDose <= 0 {
		return &domain.ComputationError{
			Evaluator: domain.SourceDosage,
			Op:        "calculate dose",
			Err:       errors.New("guideline yields a zero dose"),
		}
	}
	return nil
}

func (d *DosageEvaluator) validatePrescription(in *evaluation, result *domain.DosageResult) error {
	t := in.tables
	if _, ok := in.dose.Milligrams(); !ok || (result.Unit != "" && result.Unit != "mg") {
		result.Recommendations = appendUnique(result.Recommendations,
			fmt.Sprintf("Prescribed unit %q cannot be compared with the guideline", in.dose.Unit))
		return nil
	}
	single, daily, ok := in.prescribedAmounts()
	if !ok {
		result.Recommendations = appendUnique(result.Recommendations,
			"Patient weight required to validate a per-kg prescription")
		return nil
	}
	result.PrescribedDose = ptr(round2(single))
	result.PrescribedDailyDose = ptr(round2(daily))

	schedule, frequency, prescribed := in.schedule()
	if !prescribed && !in.dose.PerDay && schedule.Min != schedule.Max {
		result.Recommendations = appendUnique(result.Recommendations,
			fmt.Sprintf("Daily total assumes %s dosing at the longest interval - confirm the frequency", frequency))
	}

	if calc := result.CalculatedDose; calc != nil {
		if *calc == 0 {
			return &domain.ComputationError{
				Evaluator: domain.SourceDosage,
				Op:        "compute deviation",
				Err:       errors.New("division by a zero calculated dose"),
			}
		}
		if in.dose.PerDay {
			d.checkDailyDeviation(result, daily, *calc, schedule)
		} else {
			d.checkDeviation(result, single, *calc)
		}
	}

	if maxDaily := result.MaxDailyDose; maxDaily != nil && daily > *maxDaily {
		result.Valid = false
		result.Safe = false
		d.add(result, domain.Finding{
			Kind:           "max_daily_exceeded",
			Severity:       domain.SeveritySevere,
			Message:        fmt.Sprintf("Daily dose %smg exceeds maximum daily dose of %smg", formatNumber(round2(daily)), formatNumber(*maxDaily)),
			Recommendation: "Reduce dose or frequency to stay within the daily maximum",
		})
	}

	if limit, ok := safetyLimit(t, in, result.AgeGroup); ok && daily > limit {
		result.Valid = false
		result.Safe = false
		d.add(result, domain.Finding{
			Kind:           "safety_limit_exceeded",
			Severity:       domain.SeveritySevere,
			Message:        fmt.Sprintf("Daily dose %smg is above the absolute safety limit of %smg", formatNumber(round2(daily)), formatNumber(round2(limit))),
			Recommendation: "Do not exceed the absolute daily safety limit",
		})
	}

	if tr, ok := t.TherapeuticRange(in.drug); ok && (single < tr.Min || single > tr.Max) {
		d.add(result, domain.Finding{
			Kind:     "therapeutic_range",
			Severity: domain.SeverityModerate,
			Message: fmt.Sprintf("Dose %smg outside typical therapeutic range (%s-%smg)",
				formatNumber(round2(single)), formatNumber(tr.Min), formatNumber(tr.Max)),
			Recommendation: "Check serum drug levels",
			Monitoring:     "Serum drug levels",
		})
	}

	return nil
}

func (d *DosageEvaluator) checkDeviation(result *domain.DosageResult, single, calc float64) {
	deviation := math.Abs(single-calc) / calc * 100
	result.DeviationPercent = ptr(round2(deviation))
	result.AcceptableRange = &domain.DoseRange{Min: round2(calc * 0.8), Max: round2(calc * 1.2)}

	switch {
	case deviation > invalidDeviationPercent:
		result.Valid = false
		result.Safe = false
		d.add(result, domain.Finding{
			Kind:     "dose_deviation",
			Severity: domain.SeveritySevere,
			Message: fmt.Sprintf("Prescribed dose %smg deviates %s%% from the calculated dose %smg",
				formatNumber(round2(single)), formatNumber(math.Round(deviation)), formatNumber(calc)),
			Recommendation: fmt.Sprintf("Adjust dose to %s-%smg",
				formatNumber(result.AcceptableRange.Min), formatNumber(result.AcceptableRange.Max)),
		})
	case deviation > cautionDeviationPercent:
		d.add(result, domain.Finding{
			Kind:     "dose_deviation",
			Severity: domain.SeverityModerate,
			Message: fmt.Sprintf("Prescribed dose %smg differs %s%% from the calculated dose %smg",
				formatNumber(round2(single)), formatNumber(math.Round(deviation)), formatNumber(calc)),
			Recommendation: "Confirm the intended dose with the prescriber",
		})
	}
}

// checkDailyDeviation compares a per-day prescription with the daily amount
// the guideline dose gives across its schedule.
func (d *DosageEvaluator) checkDailyDeviation(result *domain.DosageResult, daily, calc float64, s dosage.Schedule) {
	low, high := calc*s.Min, calc*s.Max
	var deviation float64
	switch {
	case daily < low:
		deviation = (low - daily) / low * 100
	case daily > high:
		deviation = (daily - high) / high * 100
	}
	result.DeviationPercent = ptr(round2(deviation))
	result.AcceptableRange = &domain.DoseRange{Min: round2(low * 0.8), Max: round2(high * 1.2)}

	guideline := formatNumber(round2(low))
	if high != low {
		guideline += "-" + formatNumber(round2(high))
	}
	switch {
	case deviation > invalidDeviationPercent:
		result.Valid = false
		result.Safe = false
		d.add(result, domain.Finding{
			Kind:     "dose_deviation",
			Severity: domain.SeveritySevere,
			Message: fmt.Sprintf("Prescribed daily dose %smg deviates %s%% from the guideline daily dose %smg",
				formatNumber(round2(daily)), formatNumber(math.Round(deviation)), guideline),
			Recommendation: fmt.Sprintf("Adjust daily dose to %s-%smg",
				formatNumber(result.AcceptableRange.Min), formatNumber(result.AcceptableRange.Max)),
		})
	case deviation > cautionDeviationPercent:
		d.add(result, domain.Finding{
			Kind:     "dose_deviation",
			Severity: domain.SeverityModerate,
			Message: fmt.Sprintf("Prescribed daily dose %smg differs %s%% from the guideline daily dose %smg",
				formatNumber(round2(daily)), formatNumber(math.Round(deviation)), guideline),
			Recommendation: "Confirm the intended dose with the prescriber",
		})
	}
}

// safetyLimit returns the absolute daily limit in mg for the age group.
func safetyLimit(t *knowledge.Tables, in *evaluation, group domain.AgeGroup) (float64, bool) {
	sl, ok := t.SafetyLimit(in.drug)
	if !ok {
		return 0, false
	}
	switch group {
	case domain.GroupPediatric:
		if sl.PediatricMaxPerKgDay > 0 && in.patient.WeightKg != nil {
			return sl.PediatricMaxPerKgDay * *in.patient.WeightKg, true
		}
		return 0, false
	case domain.GroupGeriatric:
		if sl.GeriatricMaxDaily > 0 {
			return sl.GeriatricMaxDaily, true
		}
	}
	if sl.AdultMaxDaily > 0 {
		return sl.AdultMaxDaily, true
	}
	return 0, false
}

func (d *DosageEvaluator) add(result *domain.DosageResult, f domain.Finding) {
	f.Source = domain.SourceDosage
	f.RequiresAttention = f.RequiresAttention || f.Severity.Score() >= 3
	result.Findings = append(result.Findings, f)
	result.Recommendations = appendUnique(result.Recommendations, f.Recommendation)
}
