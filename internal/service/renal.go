package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
)

// nephrotoxicClasses warrant an extra warning once clearance is reduced.
var nephrotoxicClasses = []string{"nsaid", "aminoglycoside"}

var renalMessages = map[domain.RenalBand]string{
	domain.RenalNormal:   "Normal renal function - no adjustment required",
	domain.RenalMild:     "Mild renal impairment - dose adjustment may be required",
	domain.RenalModerate: "Moderate renal impairment - dose reduction required",
	domain.RenalSevere:   "Severe renal impairment - close monitoring required",
}

// renalAdjustment classifies clearance and applies the drug's band multiplier
// to dose, or to the drug's baseline dose when no dose is given.
func renalAdjustment(t *knowledge.Tables, drug string, crcl float64, dose *float64) *domain.RenalAdjustment {
	band := domain.BandForClearance(crcl)
	adj := &domain.RenalAdjustment{
		Drug:                drug,
		CreatinineClearance: crcl,
		Band:                band,
		DataAvailable:       t.IsKnown(drug),
		Multiplier:          1,
		Monitoring:          band.MonitoringCadence(),
	}

	finding := domain.Finding{
		Source:     domain.SourceDosage,
		Kind:       "renal_adjustment",
		Severity:   band.Severity(),
		Message:    fmt.Sprintf("%s (CrCl %s mL/min)", renalMessages[band], formatNumber(round2(crcl))),
		Subjects:   []string{drug},
		Monitoring: "Renal function: " + band.MonitoringCadence(),
	}

	rule, ok := t.RenalRule(drug)
	if ok {
		bandRule := rule.Band(band)
		adj.RenallyCleared = true
		adj.RequiresAdjustment = band != domain.RenalNormal
		adj.Multiplier = bandRule.Multiplier
		adj.RecommendedDose = bandRule.Dose
		adj.MaxDailyDose = bandRule.MaxDaily
		adj.DrugMonitoring = rule.Monitoring

		baseline := rule.BaselineDose
		if dose != nil {
			baseline = *dose
		}
		if baseline > 0 {
			adj.BaselineDose = ptr(baseline)
			adj.AdjustedDose = ptr(round2(baseline * bandRule.Multiplier))
		}

		finding.Recommendation = fmt.Sprintf("Recommended dose: %s (maximum %s per day)", bandRule.Dose, bandRule.MaxDaily)
		if rule.Monitoring != "" {
			finding.Monitoring += "; " + rule.Monitoring
		}
	} else {
		finding.Recommendation = fmt.Sprintf("No renal dose adjustment documented for %s", drug)
	}
	finding.RequiresAttention = finding.Severity.Score() >= 3
	adj.Finding = finding

	if band == domain.RenalModerate || band == domain.RenalSevere {
		if class, ok := t.MatchAny(drug, nephrotoxicClasses); ok {
			adj.Warnings = append(adj.Warnings, domain.Finding{
				Source:            domain.SourceDosage,
				Kind:              "renal_nephrotoxic",
				Severity:          band.Severity(),
				Message:           fmt.Sprintf("Nephrotoxic drug (%s) with reduced renal function", class),
				Recommendation:    "Prefer a non-nephrotoxic alternative",
				Subjects:          []string{drug},
				RequiresAttention: band == domain.RenalSevere,
			})
		}
	}

	return adj
}

// EstimateCreatinineClearance applies the Cockcroft-Gault equation:
// CrCl = (140 - age) * weight / (72 * SCr), times 0.85 for women. Serum
// creatinine is in mg/dL and the result in mL/min.
func EstimateCreatinineClearance(age, weightKg, serumCreatinine float64, gender domain.Gender) (float64, error) {
	if serumCreatinine <= 0 || math.IsNaN(serumCreatinine) {
		return 0, &domain.ComputationError{Evaluator: domain.SourceDosage, Op: "estimate creatinine clearance",
			Err: errors.New("serum creatinine must be positive")}
	}
	crcl := (140 - age) * weightKg / (72 * serumCreatinine)
	if gender == domain.GenderFemale {
		crcl *= 0.85
	}
	if crcl <= 0 || math.IsNaN(crcl) || math.IsInf(crcl, 0) {
		return 0, &domain.ComputationError{Evaluator: domain.SourceDosage, Op: "estimate creatinine clearance",
			Err: fmt.Errorf("non-positive result %v", crcl)}
	}
	return math.Round(crcl*10) / 10, nil
}
