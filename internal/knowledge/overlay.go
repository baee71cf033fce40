package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile builds tables from the builtin data with the YAML overlay at path
// merged on top. Overlay entries replace builtin entries with the same key and
// new entries are appended.
func LoadFile(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule tables %s: %w", path, err)
	}
	return LoadOverlay(data)
}

// LoadOverlay merges a YAML overlay document onto the builtin data and
// compiles the result.
func LoadOverlay(data []byte) (*Tables, error) {
	var overlay Tables
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTables, err)
	}
	merged := Merge(builtinTables(), &overlay)
	return merged.Compile()
}

// Merge overlays over onto base and returns base. Both are normalized first so
// that keys compare equal regardless of spelling.
func Merge(base, over *Tables) *Tables {
	base.normalize()
	over.normalize()

	if over.Version != "" {
		base.Version = over.Version
	}
	for k, v := range over.Aliases {
		base.Aliases[k] = v
	}
	for k, v := range over.Classes {
		base.Classes[k] = v
	}
	for k, v := range over.Alternatives {
		base.Alternatives[k] = v
	}

	base.PediatricContraindications = mergeKeyed(base.PediatricContraindications, over.PediatricContraindications,
		func(r AgeLimitRule) string { return r.Drug })
	base.PediatricDoseCeilings = append(base.PediatricDoseCeilings, over.PediatricDoseCeilings...)
	base.PediatricConditionCautions = append(base.PediatricConditionCautions, over.PediatricConditionCautions...)
	base.WeightBasedDrugs = normalizeAll(append(base.WeightBasedDrugs, over.WeightBasedDrugs...), NormalizeDrug)

	base.Beers = mergeKeyed(base.Beers, over.Beers, func(e BeersEntry) string { return e.Drug })
	base.BeersConditions = mergeKeyed(base.BeersConditions, over.BeersConditions,
		func(r BeersConditionRule) string { return r.Drug + "|" + r.Condition })
	base.GeriatricDoseAdjustments = mergeKeyed(base.GeriatricDoseAdjustments, over.GeriatricDoseAdjustments,
		func(r DoseAdjustmentRule) string { return r.Drug })
	base.GeriatricConditionWarnings = append(base.GeriatricConditionWarnings, over.GeriatricConditionWarnings...)

	base.DosageGuidelines = mergeKeyed(base.DosageGuidelines, over.DosageGuidelines,
		func(g DosageGuideline) string { return g.Drug })
	base.SafetyLimits = mergeKeyed(base.SafetyLimits, over.SafetyLimits, func(s SafetyLimit) string { return s.Drug })
	base.TherapeuticRanges = mergeKeyed(base.TherapeuticRanges, over.TherapeuticRanges,
		func(r TherapeuticRange) string { return r.Drug })
	base.DosageAgeWarnings = append(base.DosageAgeWarnings, over.DosageAgeWarnings...)
	base.Renal = mergeKeyed(base.Renal, over.Renal, func(r RenalRule) string { return r.Drug })

	base.Interactions = mergeKeyed(base.Interactions, over.Interactions, func(r InteractionRule) string {
		k := newPairKey(r.A, r.B)
		return k.a + "|" + k.b
	})
	base.DiseaseContraindications = mergeKeyed(base.DiseaseContraindications, over.DiseaseContraindications,
		func(r DiseaseRule) string { return r.Condition })
	base.InteractionAgeWarnings = append(base.InteractionAgeWarnings, over.InteractionAgeWarnings...)
	base.Pregnancy = mergeKeyed(base.Pregnancy, over.Pregnancy, func(r PregnancyRule) string { return r.Drug })

	// Severity rules are an ordered list; a versioned overlay replaces them whole.
	if over.Severity.Version != "" {
		base.Severity = over.Severity
	}
	base.RiskPhrases = mergeKeyed(base.RiskPhrases, over.RiskPhrases, func(p PhraseRule) string { return p.Category })

	return base
}

// mergeKeyed replaces entries of base whose key appears in over, in place,
// and appends the rest of over in order.
func mergeKeyed[T any](base, over []T, key func(T) string) []T {
	if len(over) == 0 {
		return base
	}
	pos := make(map[string]int, len(base))
	for i, item := range base {
		pos[key(item)] = i
	}
	for _, item := range over {
		k := key(item)
		if i, ok := pos[k]; ok {
			base[i] = item
			continue
		}
		pos[k] = len(base)
		base = append(base, item)
	}
	return base
}
