// Package knowledge holds the versioned, immutable clinical rule tables the
// evaluators run against. Tables are built once (builtin data plus an optional
// YAML overlay), compiled into lookup indexes and then shared read-only.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/medsafe-mcp-server/internal/domain"
)

var ErrInvalidTables = errors.New("invalid rule tables")

// AgeLimitRule contraindicates a drug or class below an age in years.
type AgeLimitRule struct {
	Drug     string  `yaml:"drug"`
	AgeLimit float64 `yaml:"age_limit"`
	Reason   string  `yaml:"reason"`
}

// DoseCeiling caps a weight-based pediatric dose in mg/kg for an age window.
// MaxAge of zero means no upper bound.
type DoseCeiling struct {
	Drug     string  `yaml:"drug"`
	MinAge   float64 `yaml:"min_age"`
	MaxAge   float64 `yaml:"max_age"`
	MaxPerKg float64 `yaml:"max_per_kg"`
	Message  string  `yaml:"message"`
}

// ConditionRule warns when a drug or class is used with a condition.
type ConditionRule struct {
	Conditions     []string        `yaml:"conditions"`
	Drugs          []string        `yaml:"drugs"`
	Severity       domain.Severity `yaml:"severity"`
	Message        string          `yaml:"message"`
	Recommendation string          `yaml:"recommendation"`
}

// BeersEntry is a potentially inappropriate medication for older adults.
type BeersEntry struct {
	Drug        string `yaml:"drug"`
	Reason      string `yaml:"reason"`
	Alternative string `yaml:"alternative"`
}

// BeersConditionRule is a drug or class to avoid in older adults with a condition.
type BeersConditionRule struct {
	Drug      string `yaml:"drug"`
	Condition string `yaml:"condition"`
	Reason    string `yaml:"reason"`
}

// DoseAdjustmentRule is a narrow therapeutic index drug needing geriatric adjustment.
type DoseAdjustmentRule struct {
	Drug       string `yaml:"drug"`
	Adjustment string `yaml:"adjustment"`
	Monitoring string `yaml:"monitoring"`
}

// Guideline is one age group's dosing rule. Doses are in the guideline unit.
type Guideline struct {
	DosePerKg   float64 `yaml:"dose_per_kg"`
	MaxPerKgDay float64 `yaml:"max_per_kg_day"`
	Dose        float64 `yaml:"dose"`
	MaxDaily    float64 `yaml:"max_daily"`
	Frequency   string  `yaml:"frequency"`
}

// WeightBased reports whether the guideline scales with body weight.
func (g *Guideline) WeightBased() bool {
	return g.DosePerKg > 0
}

// DosageGuideline groups the per-age-group guidelines of one drug.
type DosageGuideline struct {
	Drug      string     `yaml:"drug"`
	Unit      string     `yaml:"unit"`
	Pediatric *Guideline `yaml:"pediatric"`
	Adult     *Guideline `yaml:"adult"`
	Geriatric *Guideline `yaml:"geriatric"`
}

// For selects the guideline for an age group, falling back to adult.
func (g *DosageGuideline) For(group domain.AgeGroup) *Guideline {
	switch group {
	case domain.GroupPediatric:
		if g.Pediatric != nil {
			return g.Pediatric
		}
	case domain.GroupGeriatric:
		if g.Geriatric != nil {
			return g.Geriatric
		}
	}
	return g.Adult
}

// SafetyLimit is an absolute daily maximum independent of the guideline.
type SafetyLimit struct {
	Drug                 string  `yaml:"drug"`
	AdultMaxDaily        float64 `yaml:"adult_max_daily"`
	GeriatricMaxDaily    float64 `yaml:"geriatric_max_daily"`
	PediatricMaxPerKgDay float64 `yaml:"pediatric_max_per_kg_day"`
}

// TherapeuticRange is the typical single-dose range of a narrow-TI drug in mg.
type TherapeuticRange struct {
	Drug string  `yaml:"drug"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// AgeWarningRule flags drugs in an age window regardless of dose. MaxAge is
// exclusive; zero means unbounded.
type AgeWarningRule struct {
	Drugs          []string        `yaml:"drugs"`
	MinAge         float64         `yaml:"min_age"`
	MaxAge         float64         `yaml:"max_age"`
	Severity       domain.Severity `yaml:"severity"`
	Message        string          `yaml:"message"`
	Recommendation string          `yaml:"recommendation"`
	Unsafe         bool            `yaml:"unsafe"`
}

// Applies reports whether the rule's age window contains age.
func (r *AgeWarningRule) Applies(age float64) bool {
	if age < r.MinAge {
		return false
	}
	return r.MaxAge <= 0 || age < r.MaxAge
}

// RenalBandRule is the dosing for one renal band.
type RenalBandRule struct {
	Dose       string  `yaml:"dose"`
	MaxDaily   string  `yaml:"max_daily"`
	MaxDailyMg float64 `yaml:"max_daily_mg"`
	Multiplier float64 `yaml:"multiplier"`
}

// RenalRule is the renal adjustment table of a renally cleared drug.
type RenalRule struct {
	Drug         string        `yaml:"drug"`
	BaselineDose float64       `yaml:"baseline_dose"`
	Monitoring   string        `yaml:"monitoring"`
	Normal       RenalBandRule `yaml:"normal"`
	Mild         RenalBandRule `yaml:"mild"`
	Moderate     RenalBandRule `yaml:"moderate"`
	Severe       RenalBandRule `yaml:"severe"`
}

// Band returns the band's dosing rule.
func (r *RenalRule) Band(band domain.RenalBand) RenalBandRule {
	switch band {
	case domain.RenalMild:
		return r.Mild
	case domain.RenalModerate:
		return r.Moderate
	case domain.RenalSevere:
		return r.Severe
	default:
		return r.Normal
	}
}

// InteractionRule is a known interaction between two drugs or classes.
type InteractionRule struct {
	A          string          `yaml:"a"`
	B          string          `yaml:"b"`
	Severity   domain.Severity `yaml:"severity"`
	Effect     string          `yaml:"effect"`
	Mechanism  string          `yaml:"mechanism"`
	Management string          `yaml:"management"`
	Monitoring string          `yaml:"monitoring"`
}

// DiseaseRule lists drugs or classes contraindicated in a condition.
type DiseaseRule struct {
	Condition string   `yaml:"condition"`
	Drugs     []string `yaml:"drugs"`
}

// PregnancyRule is a pregnancy category warning.
type PregnancyRule struct {
	Drug     string          `yaml:"drug"`
	Category string          `yaml:"category"`
	Message  string          `yaml:"message"`
	Severity domain.Severity `yaml:"severity"`
}

// TierRule maps keywords to a severity tier.
type TierRule struct {
	Severity domain.Severity `yaml:"severity"`
	Keywords []string        `yaml:"keywords"`
}

// EscalationRule forces a tier when a condition and a symptom co-occur.
type EscalationRule struct {
	Condition string          `yaml:"condition"`
	Symptoms  []string        `yaml:"symptoms"`
	Severity  domain.Severity `yaml:"severity"`
}

// SeverityRules is the ordered, versioned adverse-effect rule list.
type SeverityRules struct {
	Version     string           `yaml:"version"`
	Critical    []string         `yaml:"critical"`
	Tiers       []TierRule       `yaml:"tiers"`
	Escalations []EscalationRule `yaml:"escalations"`
}

// PhraseRule is a warning phrase category scored by the aggregator.
type PhraseRule struct {
	Category string   `yaml:"category"`
	Weight   float64  `yaml:"weight"`
	Phrases  []string `yaml:"phrases"`
}

// Tables is the complete rule set. Treat a compiled Tables as read-only.
type Tables struct {
	Version string `yaml:"version"`

	Aliases map[string]string   `yaml:"aliases"`
	Classes map[string][]string `yaml:"classes"`

	PediatricContraindications []AgeLimitRule  `yaml:"pediatric_contraindications"`
	PediatricDoseCeilings      []DoseCeiling   `yaml:"pediatric_dose_ceilings"`
	PediatricConditionCautions []ConditionRule `yaml:"pediatric_condition_cautions"`
	WeightBasedDrugs           []string        `yaml:"weight_based_drugs"`

	Beers                      []BeersEntry         `yaml:"beers"`
	BeersConditions            []BeersConditionRule `yaml:"beers_conditions"`
	GeriatricDoseAdjustments   []DoseAdjustmentRule `yaml:"geriatric_dose_adjustments"`
	GeriatricConditionWarnings []ConditionRule      `yaml:"geriatric_condition_warnings"`

	DosageGuidelines  []DosageGuideline  `yaml:"dosage_guidelines"`
	SafetyLimits      []SafetyLimit      `yaml:"safety_limits"`
	TherapeuticRanges []TherapeuticRange `yaml:"therapeutic_ranges"`
	DosageAgeWarnings []AgeWarningRule   `yaml:"dosage_age_warnings"`
	Renal             []RenalRule        `yaml:"renal"`

	Interactions             []InteractionRule   `yaml:"interactions"`
	DiseaseContraindications []DiseaseRule       `yaml:"disease_contraindications"`
	InteractionAgeWarnings   []AgeWarningRule    `yaml:"interaction_age_warnings"`
	Pregnancy                []PregnancyRule     `yaml:"pregnancy"`
	Alternatives             map[string][]string `yaml:"alternatives"`

	Severity    SeverityRules `yaml:"severity"`
	RiskPhrases []PhraseRule  `yaml:"risk_phrases"`

	idx         *index
	fingerprint string
}

type index struct {
	known        map[string]bool
	classesOf    map[string][]string
	guidelines   map[string]*DosageGuideline
	renal        map[string]*RenalRule
	beers        map[string]*BeersEntry
	adjustments  map[string]*DoseAdjustmentRule
	safety       map[string]*SafetyLimit
	ranges       map[string]*TherapeuticRange
	pregnancy    map[string]*PregnancyRule
	interactions map[pairKey]*InteractionRule
	weightBased  map[string]bool
}

type pairKey struct {
	a, b string
}

func newPairKey(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Compile normalizes every key, validates the tables and builds lookup
// indexes. The receiver must not be modified afterwards.
func (t *Tables) Compile() (*Tables, error) {
	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.buildIndex()

	// Fingerprint the normalized content; yaml.v3 sorts map keys.
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTables, err)
	}
	sum := sha256.Sum256(data)
	t.fingerprint = hex.EncodeToString(sum[:])
	return t, nil
}

// Fingerprint is the SHA-256 of the compiled table content. Two tables with
// the same Version but different rules have different fingerprints.
func (t *Tables) Fingerprint() string {
	return t.fingerprint
}

// Revision identifies the exact rule content: the version plus a short
// fingerprint. Anything keyed on rule output should use it over Version.
func (t *Tables) Revision() string {
	if len(t.fingerprint) < 12 {
		return t.Version
	}
	return t.Version + "+" + t.fingerprint[:12]
}

func (t *Tables) normalize() {
	aliases := make(map[string]string, len(t.Aliases))
	for k, v := range t.Aliases {
		aliases[NormalizeDrug(k)] = NormalizeDrug(v)
	}
	t.Aliases = aliases

	classes := make(map[string][]string, len(t.Classes))
	for k, v := range t.Classes {
		classes[NormalizeDrug(k)] = normalizeAll(v, NormalizeDrug)
	}
	t.Classes = classes

	for i := range t.PediatricContraindications {
		t.PediatricContraindications[i].Drug = NormalizeDrug(t.PediatricContraindications[i].Drug)
	}
	for i := range t.PediatricDoseCeilings {
		t.PediatricDoseCeilings[i].Drug = NormalizeDrug(t.PediatricDoseCeilings[i].Drug)
	}
	normalizeConditionRules(t.PediatricConditionCautions)
	normalizeConditionRules(t.GeriatricConditionWarnings)
	t.WeightBasedDrugs = normalizeAll(t.WeightBasedDrugs, NormalizeDrug)
	for i := range t.Beers {
		t.Beers[i].Drug = NormalizeDrug(t.Beers[i].Drug)
	}
	for i := range t.BeersConditions {
		t.BeersConditions[i].Drug = NormalizeDrug(t.BeersConditions[i].Drug)
		t.BeersConditions[i].Condition = NormalizeCondition(t.BeersConditions[i].Condition)
	}
	for i := range t.GeriatricDoseAdjustments {
		t.GeriatricDoseAdjustments[i].Drug = NormalizeDrug(t.GeriatricDoseAdjustments[i].Drug)
	}
	for i := range t.DosageGuidelines {
		t.DosageGuidelines[i].Drug = NormalizeDrug(t.DosageGuidelines[i].Drug)
		if t.DosageGuidelines[i].Unit == "" {
			t.DosageGuidelines[i].Unit = "mg"
		}
	}
	for i := range t.SafetyLimits {
		t.SafetyLimits[i].Drug = NormalizeDrug(t.SafetyLimits[i].Drug)
	}
	for i := range t.TherapeuticRanges {
		t.TherapeuticRanges[i].Drug = NormalizeDrug(t.TherapeuticRanges[i].Drug)
	}
	for i := range t.DosageAgeWarnings {
		t.DosageAgeWarnings[i].Drugs = normalizeAll(t.DosageAgeWarnings[i].Drugs, NormalizeDrug)
	}
	for i := range t.InteractionAgeWarnings {
		t.InteractionAgeWarnings[i].Drugs = normalizeAll(t.InteractionAgeWarnings[i].Drugs, NormalizeDrug)
	}
	for i := range t.Renal {
		t.Renal[i].Drug = NormalizeDrug(t.Renal[i].Drug)
	}
	for i := range t.Interactions {
		t.Interactions[i].A = NormalizeDrug(t.Interactions[i].A)
		t.Interactions[i].B = NormalizeDrug(t.Interactions[i].B)
	}
	for i := range t.DiseaseContraindications {
		t.DiseaseContraindications[i].Condition = NormalizeCondition(t.DiseaseContraindications[i].Condition)
		t.DiseaseContraindications[i].Drugs = normalizeAll(t.DiseaseContraindications[i].Drugs, NormalizeDrug)
	}
	for i := range t.Pregnancy {
		t.Pregnancy[i].Drug = NormalizeDrug(t.Pregnancy[i].Drug)
	}
	alternatives := make(map[string][]string, len(t.Alternatives))
	for k, v := range t.Alternatives {
		alternatives[NormalizeDrug(k)] = v
	}
	t.Alternatives = alternatives
	for i := range t.Severity.Escalations {
		t.Severity.Escalations[i].Condition = NormalizeCondition(t.Severity.Escalations[i].Condition)
	}
}

func normalizeConditionRules(rules []ConditionRule) {
	for i := range rules {
		rules[i].Conditions = normalizeAll(rules[i].Conditions, NormalizeCondition)
		rules[i].Drugs = normalizeAll(rules[i].Drugs, NormalizeDrug)
	}
}

// Validate checks structural invariants of the tables.
func (t *Tables) Validate() error {
	if t.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidTables)
	}
	for _, g := range t.DosageGuidelines {
		if g.Drug == "" {
			return fmt.Errorf("%w: dosage guideline without drug", ErrInvalidTables)
		}
		for _, gl := range []*Guideline{g.Pediatric, g.Adult, g.Geriatric} {
			if gl == nil {
				continue
			}
			if gl.DosePerKg < 0 || gl.MaxPerKgDay < 0 || gl.Dose < 0 || gl.MaxDaily < 0 {
				return fmt.Errorf("%w: negative dose in guideline for %s", ErrInvalidTables, g.Drug)
			}
		}
	}
	for _, r := range t.Renal {
		for _, band := range []RenalBandRule{r.Normal, r.Mild, r.Moderate, r.Severe} {
			if band.Multiplier < 0 || band.Multiplier > 1 {
				return fmt.Errorf("%w: renal multiplier for %s must be within [0,1]", ErrInvalidTables, r.Drug)
			}
		}
	}
	for _, in := range t.Interactions {
		switch in.Severity {
		case domain.SeverityMinor, domain.SeverityModerate, domain.SeverityMajor:
		default:
			return fmt.Errorf("%w: interaction %s/%s has invalid severity %q", ErrInvalidTables, in.A, in.B, in.Severity)
		}
		if in.A == "" || in.B == "" || in.A == in.B {
			return fmt.Errorf("%w: interaction requires two distinct drugs", ErrInvalidTables)
		}
	}
	for _, tier := range t.Severity.Tiers {
		if tier.Severity.Score() == 0 {
			return fmt.Errorf("%w: severity tier %q is invalid", ErrInvalidTables, tier.Severity)
		}
	}
	for _, p := range t.RiskPhrases {
		if p.Weight < 0 {
			return fmt.Errorf("%w: phrase category %s has negative weight", ErrInvalidTables, p.Category)
		}
	}
	return nil
}

func (t *Tables) buildIndex() {
	idx := &index{
		known:        make(map[string]bool),
		classesOf:    make(map[string][]string),
		guidelines:   make(map[string]*DosageGuideline),
		renal:        make(map[string]*RenalRule),
		beers:        make(map[string]*BeersEntry),
		adjustments:  make(map[string]*DoseAdjustmentRule),
		safety:       make(map[string]*SafetyLimit),
		ranges:       make(map[string]*TherapeuticRange),
		pregnancy:    make(map[string]*PregnancyRule),
		interactions: make(map[pairKey]*InteractionRule),
		weightBased:  make(map[string]bool),
	}

	// Class membership, sorted for deterministic lookups.
	classNames := make([]string, 0, len(t.Classes))
	for c := range t.Classes {
		classNames = append(classNames, c)
	}
	sort.Strings(classNames)
	for _, c := range classNames {
		idx.known[c] = true
		for _, member := range t.Classes[c] {
			idx.classesOf[member] = append(idx.classesOf[member], c)
			idx.known[member] = true
		}
	}

	markKnown := func(names ...string) {
		for _, n := range names {
			if n != "" {
				idx.known[n] = true
			}
		}
	}

	for i := range t.PediatricContraindications {
		markKnown(t.PediatricContraindications[i].Drug)
	}
	for i := range t.PediatricDoseCeilings {
		markKnown(t.PediatricDoseCeilings[i].Drug)
	}
	for _, r := range t.PediatricConditionCautions {
		markKnown(r.Drugs...)
	}
	for _, r := range t.GeriatricConditionWarnings {
		markKnown(r.Drugs...)
	}
	for _, d := range t.WeightBasedDrugs {
		idx.weightBased[d] = true
		markKnown(d)
	}
	for i := range t.Beers {
		idx.beers[t.Beers[i].Drug] = &t.Beers[i]
		markKnown(t.Beers[i].Drug)
	}
	for i := range t.BeersConditions {
		markKnown(t.BeersConditions[i].Drug)
	}
	for i := range t.GeriatricDoseAdjustments {
		idx.adjustments[t.GeriatricDoseAdjustments[i].Drug] = &t.GeriatricDoseAdjustments[i]
		markKnown(t.GeriatricDoseAdjustments[i].Drug)
	}
	for i := range t.DosageGuidelines {
		idx.guidelines[t.DosageGuidelines[i].Drug] = &t.DosageGuidelines[i]
		markKnown(t.DosageGuidelines[i].Drug)
	}
	for i := range t.SafetyLimits {
		idx.safety[t.SafetyLimits[i].Drug] = &t.SafetyLimits[i]
		markKnown(t.SafetyLimits[i].Drug)
	}
	for i := range t.TherapeuticRanges {
		idx.ranges[t.TherapeuticRanges[i].Drug] = &t.TherapeuticRanges[i]
		markKnown(t.TherapeuticRanges[i].Drug)
	}
	for _, r := range t.DosageAgeWarnings {
		markKnown(r.Drugs...)
	}
	for _, r := range t.InteractionAgeWarnings {
		markKnown(r.Drugs...)
	}
	for i := range t.Renal {
		idx.renal[t.Renal[i].Drug] = &t.Renal[i]
		markKnown(t.Renal[i].Drug)
	}
	for i := range t.Interactions {
		in := &t.Interactions[i]
		idx.interactions[newPairKey(in.A, in.B)] = in
		markKnown(in.A, in.B)
	}
	for _, r := range t.DiseaseContraindications {
		markKnown(r.Drugs...)
	}
	for i := range t.Pregnancy {
		idx.pregnancy[t.Pregnancy[i].Drug] = &t.Pregnancy[i]
		markKnown(t.Pregnancy[i].Drug)
	}
	for d := range t.Alternatives {
		markKnown(d)
	}

	t.idx = idx
}

// Resolve normalizes a drug name and applies aliases.
func (t *Tables) Resolve(name string) string {
	n := NormalizeDrug(name)
	if alias, ok := t.Aliases[n]; ok {
		return alias
	}
	return n
}

// IsKnown reports whether the normalized drug appears anywhere in the tables.
func (t *Tables) IsKnown(drug string) bool {
	return t.idx.known[drug]
}

// ClassesOf returns the classes the drug belongs to, sorted.
func (t *Tables) ClassesOf(drug string) []string {
	return t.idx.classesOf[drug]
}

// Matches reports whether token names the drug itself or one of its classes.
func (t *Tables) Matches(drug, token string) bool {
	if drug == token {
		return true
	}
	for _, c := range t.idx.classesOf[drug] {
		if c == token {
			return true
		}
	}
	return false
}

// MatchAny returns the first token in tokens that matches the drug.
func (t *Tables) MatchAny(drug string, tokens []string) (string, bool) {
	for _, tok := range tokens {
		if t.Matches(drug, tok) {
			return tok, true
		}
	}
	return "", false
}

// identities lists the drug followed by its classes.
func (t *Tables) identities(drug string) []string {
	return append([]string{drug}, t.idx.classesOf[drug]...)
}

// Guideline returns the dosage guideline for a drug.
func (t *Tables) Guideline(drug string) (*DosageGuideline, bool) {
	g, ok := t.idx.guidelines[drug]
	return g, ok
}

// RenalRule returns the renal adjustment table for a drug.
func (t *Tables) RenalRule(drug string) (*RenalRule, bool) {
	r, ok := t.idx.renal[drug]
	return r, ok
}

// BeersEntry returns the Beers entry for a drug, falling back to its classes.
func (t *Tables) BeersEntry(drug string) (*BeersEntry, bool) {
	for _, id := range t.identities(drug) {
		if e, ok := t.idx.beers[id]; ok {
			return e, true
		}
	}
	return nil, false
}

// BeersAlternative returns the suggested alternative for a Beers drug.
func (t *Tables) BeersAlternative(drug string) string {
	if e, ok := t.BeersEntry(drug); ok {
		return e.Alternative
	}
	return ""
}

// DoseAdjustment returns the geriatric dose adjustment rule for a drug.
func (t *Tables) DoseAdjustment(drug string) (*DoseAdjustmentRule, bool) {
	r, ok := t.idx.adjustments[drug]
	return r, ok
}

// SafetyLimit returns the absolute daily limit for a drug.
func (t *Tables) SafetyLimit(drug string) (*SafetyLimit, bool) {
	s, ok := t.idx.safety[drug]
	return s, ok
}

// TherapeuticRange returns the typical dose range of a narrow-TI drug.
func (t *Tables) TherapeuticRange(drug string) (*TherapeuticRange, bool) {
	r, ok := t.idx.ranges[drug]
	return r, ok
}

// PregnancyRule returns the pregnancy warning for a drug or its classes.
func (t *Tables) PregnancyRule(drug string) (*PregnancyRule, bool) {
	for _, id := range t.identities(drug) {
		if r, ok := t.idx.pregnancy[id]; ok {
			return r, true
		}
	}
	return nil, false
}

// IsWeightBased reports whether the drug is dosed by weight in children.
func (t *Tables) IsWeightBased(drug string) bool {
	return t.idx.weightBased[drug]
}

// Interaction looks up a pair independent of order: the exact drug pair
// first, then drug/class combinations, then class/class. At most one rule is
// returned per pair.
func (t *Tables) Interaction(a, b string) (*InteractionRule, bool) {
	if in, ok := t.idx.interactions[newPairKey(a, b)]; ok {
		return in, true
	}
	ca, cb := t.idx.classesOf[a], t.idx.classesOf[b]
	for _, c := range cb {
		if in, ok := t.idx.interactions[newPairKey(a, c)]; ok {
			return in, true
		}
	}
	for _, c := range ca {
		if in, ok := t.idx.interactions[newPairKey(c, b)]; ok {
			return in, true
		}
	}
	for _, x := range ca {
		for _, y := range cb {
			if in, ok := t.idx.interactions[newPairKey(x, y)]; ok {
				return in, true
			}
		}
	}
	return nil, false
}

// AlternativesFor returns suggested substitutes for a drug.
func (t *Tables) AlternativesFor(drug string) []string {
	return t.Alternatives[drug]
}

// Stats summarizes table sizes.
type Stats struct {
	Version          string `json:"version"`
	KnownDrugs       int    `json:"known_drugs"`
	Classes          int    `json:"classes"`
	DosageGuidelines int    `json:"dosage_guidelines"`
	RenalRules       int    `json:"renal_rules"`
	Interactions     int    `json:"interactions"`
	BeersEntries     int    `json:"beers_entries"`
	SeverityVersion  string `json:"severity_rules_version"`
	Fingerprint      string `json:"fingerprint"`
}

// Stats returns the table sizes.
func (t *Tables) Stats() Stats {
	return Stats{
		Version:          t.Version,
		KnownDrugs:       len(t.idx.known),
		Classes:          len(t.Classes),
		DosageGuidelines: len(t.DosageGuidelines),
		RenalRules:       len(t.Renal),
		Interactions:     len(t.Interactions),
		BeersEntries:     len(t.Beers),
		SeverityVersion:  t.Severity.Version,
		Fingerprint:      t.fingerprint,
	}
}
