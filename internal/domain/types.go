// Package domain contains the core entities of the medication safety engine:
// severities, risk levels, patient context, findings and assessments.
//
// Every value here is plain data. Evaluators produce Findings, the aggregator
// folds them into an Assessment, and nothing is mutated after construction.
package domain

import (
	"errors"
)

// Severity is the severity of a single Finding. Age, dosage and adverse-effect
// findings use mild/moderate/severe/life_threatening; interaction findings use
// minor/moderate/major.
type Severity string

const (
	SeverityMild            Severity = "mild"
	SeverityModerate        Severity = "moderate"
	SeveritySevere          Severity = "severe"
	SeverityLifeThreatening Severity = "life_threatening"

	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"

	// SeverityNone marks an explicit "no known interaction" result.
	SeverityNone Severity = "none"
)

// RiskLevel is the four-tier risk scale plus "unknown" for failed assessments.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// AgeBand is the fine-grained age grouping used by the age evaluator.
type AgeBand string

const (
	BandNeonate    AgeBand = "neonate"
	BandInfant     AgeBand = "infant"
	BandToddler    AgeBand = "toddler"
	BandChild      AgeBand = "child"
	BandAdolescent AgeBand = "adolescent"
	BandAdult      AgeBand = "adult"
	BandGeriatric  AgeBand = "geriatric"
)

// AgeCategory is the coarse grouping used for risk score adjustment.
type AgeCategory string

const (
	CategoryInfant     AgeCategory = "infant"
	CategoryChild      AgeCategory = "child"
	CategoryAdolescent AgeCategory = "adolescent"
	CategoryAdult      AgeCategory = "adult"
	CategoryGeriatric  AgeCategory = "geriatric"
)

// AgeGroup selects which dosing guideline applies.
type AgeGroup string

const (
	GroupPediatric AgeGroup = "pediatric"
	GroupAdult     AgeGroup = "adult"
	GroupGeriatric AgeGroup = "geriatric"
)

// RenalBand classifies creatinine clearance.
type RenalBand string

const (
	RenalNormal   RenalBand = "normal"
	RenalMild     RenalBand = "mild"
	RenalModerate RenalBand = "moderate"
	RenalSevere   RenalBand = "severe"
)

// Source identifies the evaluator that produced a Finding.
type Source string

const (
	SourceAge         Source = "age"
	SourceDosage      Source = "dosage"
	SourceInteraction Source = "interaction"
	SourceSeverity    Source = "severity"
)

// EvaluatorStatus reports how an evaluator finished.
type EvaluatorStatus string

const (
	StatusOK      EvaluatorStatus = "ok"
	StatusDataGap EvaluatorStatus = "data_gap"
	StatusUnknown EvaluatorStatus = "unknown"
	StatusSkipped EvaluatorStatus = "skipped"
)

// DosingMethod describes how a recommended dose was derived.
type DosingMethod string

const (
	DosingWeightBased    DosingMethod = "weight_based"
	DosingFixed          DosingMethod = "fixed"
	DosingWeightRequired DosingMethod = "weight_required"
	DosingNoGuideline    DosingMethod = "no_guideline"
)

// Urgency of an adverse effect.
type Urgency string

const (
	UrgencyRoutine   Urgency = "routine"
	UrgencySoon      Urgency = "soon"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyEmergency Urgency = "emergency"
)

// Confidence of an assessment.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Gender as reported by the caller.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
)

// PregnancyStatus as reported by the caller.
type PregnancyStatus string

const (
	PregnancyUnknown     PregnancyStatus = ""
	PregnancyNotPregnant PregnancyStatus = "not_pregnant"
	PregnancyPregnant    PregnancyStatus = "pregnant"
	PregnancyLactating   PregnancyStatus = "lactating"
)

var (
	ErrInvalidSeverity  = errors.New("invalid severity")
	ErrInvalidRiskLevel = errors.New("invalid risk level")
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityLifeThreatening,
		SeverityMinor, SeverityMajor, SeverityNone:
		return true
	default:
		return false
	}
}

func (s Severity) String() string {
	return string(s)
}

// Tier maps a severity onto the four-tier risk scale. Interaction severities
// map minor→low, moderate→moderate, major→high.
func (s Severity) Tier() RiskLevel {
	switch s {
	case SeverityMild, SeverityMinor, SeverityNone:
		return RiskLow
	case SeverityModerate:
		return RiskModerate
	case SeveritySevere, SeverityMajor:
		return RiskHigh
	case SeverityLifeThreatening:
		return RiskCritical
	default:
		return RiskUnknown
	}
}

// Score is the numeric severity used by the adverse-effect classifier (1-4).
func (s Severity) Score() int {
	switch s {
	case SeverityMild, SeverityMinor:
		return 1
	case SeverityModerate:
		return 2
	case SeveritySevere, SeverityMajor:
		return 3
	case SeverityLifeThreatening:
		return 4
	default:
		return 0
	}
}

// SeverityForScore is the inverse of Score for classifier tiers.
func SeverityForScore(score int) Severity {
	switch {
	case score >= 4:
		return SeverityLifeThreatening
	case score == 3:
		return SeveritySevere
	case score == 2:
		return SeverityModerate
	default:
		return SeverityMild
	}
}

// LogFields returns structured logging fields.
func (s Severity) LogFields() map[string]any {
	return map[string]any{
		"severity": string(s),
		"tier":     string(s.Tier()),
	}
}

// IsValid reports whether r is a known risk level.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh, RiskCritical, RiskUnknown:
		return true
	default:
		return false
	}
}

func (r RiskLevel) String() string {
	return string(r)
}

// Priority orders risk levels; unknown sorts lowest.
func (r RiskLevel) Priority() int {
	switch r {
	case RiskLow:
		return 1
	case RiskModerate:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	default:
		return 0
	}
}

// BaseScore is the aggregator's starting score for a tier.
func (r RiskLevel) BaseScore() float64 {
	switch r {
	case RiskModerate:
		return 3.0
	case RiskHigh:
		return 6.0
	case RiskCritical:
		return 9.0
	default:
		return 1.0
	}
}

// RiskLevelForScore maps a clamped risk score to its level.
func RiskLevelForScore(score float64) RiskLevel {
	switch {
	case score >= 8.0:
		return RiskCritical
	case score >= 6.0:
		return RiskHigh
	case score >= 4.0:
		return RiskModerate
	default:
		return RiskLow
	}
}

// BandForAge returns the age evaluator's band for an age in years.
func BandForAge(age float64) AgeBand {
	switch {
	case age < 1.0/12.0:
		return BandNeonate
	case age < 2:
		return BandInfant
	case age < 6:
		return BandToddler
	case age < 12:
		return BandChild
	case age < 18:
		return BandAdolescent
	case age < 65:
		return BandAdult
	default:
		return BandGeriatric
	}
}

// IsPediatric reports whether the band is below 18 years.
func (b AgeBand) IsPediatric() bool {
	switch b {
	case BandNeonate, BandInfant, BandToddler, BandChild, BandAdolescent:
		return true
	default:
		return false
	}
}

func (b AgeBand) String() string {
	return string(b)
}

// CategoryForAge returns the aggregator's age category.
func CategoryForAge(age float64) AgeCategory {
	switch {
	case age < 2:
		return CategoryInfant
	case age < 12:
		return CategoryChild
	case age < 18:
		return CategoryAdolescent
	case age >= 65:
		return CategoryGeriatric
	default:
		return CategoryAdult
	}
}

// ScoreAdjustment is the additive risk adjustment for the category.
func (c AgeCategory) ScoreAdjustment() float64 {
	switch c {
	case CategoryInfant:
		return 2.0
	case CategoryChild:
		return 1.5
	case CategoryAdolescent:
		return 1.0
	case CategoryGeriatric:
		return 1.5
	default:
		return 0.0
	}
}

func (c AgeCategory) String() string {
	return string(c)
}

// GroupForAge selects the dosing guideline group.
func GroupForAge(age float64) AgeGroup {
	switch {
	case age < 18:
		return GroupPediatric
	case age >= 65:
		return GroupGeriatric
	default:
		return GroupAdult
	}
}

// BandForClearance classifies creatinine clearance in mL/min.
func BandForClearance(crcl float64) RenalBand {
	switch {
	case crcl >= 80:
		return RenalNormal
	case crcl >= 50:
		return RenalMild
	case crcl >= 30:
		return RenalModerate
	default:
		return RenalSevere
	}
}

// Severity maps a renal band onto finding severity.
func (b RenalBand) Severity() Severity {
	switch b {
	case RenalSevere:
		return SeveritySevere
	case RenalModerate:
		return SeverityModerate
	default:
		return SeverityMild
	}
}

// MonitoringCadence is the renal function monitoring interval for the band.
func (b RenalBand) MonitoringCadence() string {
	switch b {
	case RenalMild:
		return "Every 6-12 months"
	case RenalModerate:
		return "Every 3-6 months"
	case RenalSevere:
		return "Monthly or more frequent"
	default:
		return "Routine monitoring"
	}
}

func (b RenalBand) String() string {
	return string(b)
}

// UrgencyForScore derives urgency from a classifier score.
func UrgencyForScore(score int) Urgency {
	switch {
	case score >= 4:
		return UrgencyEmergency
	case score == 3:
		return UrgencyUrgent
	case score == 2:
		return UrgencySoon
	default:
		return UrgencyRoutine
	}
}
