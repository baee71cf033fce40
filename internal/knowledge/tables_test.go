package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medsafe-mcp-server/internal/domain"
)

func TestNormalizeDrug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Diphenhydramine HCl", "diphenhydramine"},
		{"  METOPROLOL   succinate ", "metoprolol"},
		{"amlodipine_besylate", "amlodipine"},
		{"Potassium", "potassium"},
		{"potassium chloride", "potassium chloride"},
		{"Warfarin Sodium", "warfarin"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDrug(tt.input))
		})
	}
}

func TestNormalizeCondition(t *testing.T) {
	assert.Equal(t, "heart_failure", NormalizeCondition("Heart Failure"))
	assert.Equal(t, "heart_failure", NormalizeCondition("heart-failure"))
	assert.Equal(t, "chronic_kidney_disease", NormalizeCondition(" chronic_kidney  disease "))
}

func TestBuiltin_Compiles(t *testing.T) {
	tables := Builtin()

	stats := tables.Stats()
	assert.Equal(t, BuiltinVersion, stats.Version)
	assert.Equal(t, "1", stats.SeverityVersion)
	assert.Greater(t, stats.KnownDrugs, 50)
	assert.Greater(t, stats.Interactions, 10)
}

func TestBuiltin_ReturnsIndependentCopies(t *testing.T) {
	a := Builtin()
	b := Builtin()

	a.Aliases["tylenol"] = "changed"
	assert.Equal(t, "acetaminophen", b.Resolve("Tylenol"))
}

func TestTables_Resolve(t *testing.T) {
	tables := Builtin()

	assert.Equal(t, "acetaminophen", tables.Resolve("Paracetamol"))
	assert.Equal(t, "ibuprofen", tables.Resolve("ADVIL"))
	assert.Equal(t, "diphenhydramine", tables.Resolve("Diphenhydramine Hydrochloride"))
	assert.Equal(t, "unknownium", tables.Resolve("Unknownium"))
}

func TestTables_ClassMembership(t *testing.T) {
	tables := Builtin()

	assert.True(t, tables.Matches("amoxicillin", "penicillin"))
	assert.True(t, tables.Matches("ibuprofen", "nsaid"))
	assert.True(t, tables.Matches("ibuprofen", "ibuprofen"))
	assert.False(t, tables.Matches("acetaminophen", "nsaid"))

	tok, ok := tables.MatchAny("ciprofloxacin", []string{"statin", "fluoroquinolone"})
	assert.True(t, ok)
	assert.Equal(t, "fluoroquinolone", tok)

	assert.Contains(t, tables.ClassesOf("diphenhydramine"), "anticholinergic")
	assert.True(t, tables.IsKnown("diphenhydramine"))
	assert.False(t, tables.IsKnown("unknownium"))
}

func TestTables_Interaction(t *testing.T) {
	tables := Builtin()

	tests := []struct {
		name     string
		a, b     string
		found    bool
		severity domain.Severity
	}{
		{name: "exact pair", a: "warfarin", b: "aspirin", found: true, severity: domain.SeverityMajor},
		{name: "reversed pair", a: "aspirin", b: "warfarin", found: true, severity: domain.SeverityMajor},
		{name: "drug and class", a: "warfarin", b: "naproxen", found: true, severity: domain.SeverityModerate},
		{name: "class and class", a: "enalapril", b: "naproxen", found: true, severity: domain.SeverityModerate},
		{name: "unknown pair", a: "acetaminophen", b: "amoxicillin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := tables.Interaction(tt.a, tt.b)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, rule)
				assert.Equal(t, tt.severity, rule.Severity)
			}
		})
	}
}

func TestTables_Lookups(t *testing.T) {
	tables := Builtin()

	g, ok := tables.Guideline("amoxicillin")
	require.True(t, ok)
	assert.Equal(t, 25.0, g.For(domain.GroupPediatric).DosePerKg)
	assert.Equal(t, "mg", g.Unit)

	lis, ok := tables.Guideline("lisinopril")
	require.True(t, ok)
	assert.Same(t, lis.Adult, lis.For(domain.GroupPediatric))

	r, ok := tables.RenalRule("lisinopril")
	require.True(t, ok)
	assert.Equal(t, 0.5, r.Band(domain.RenalSevere).Multiplier)
	assert.Equal(t, 1.0, r.Band(domain.RenalNormal).Multiplier)

	assert.Equal(t, "loratadine, cetirizine", tables.BeersAlternative("diphenhydramine"))
	assert.NotEmpty(t, tables.BeersAlternative("lorazepam"))
	assert.Empty(t, tables.BeersAlternative("amoxicillin"))

	preg, ok := tables.PregnancyRule("atorvastatin")
	require.True(t, ok)
	assert.Equal(t, "X", preg.Category)

	assert.True(t, tables.IsWeightBased("amoxicillin"))
	assert.False(t, tables.IsWeightBased("warfarin"))
	assert.NotEmpty(t, tables.AlternativesFor("warfarin"))
}

func TestAgeWarningRule_Applies(t *testing.T) {
	under8 := AgeWarningRule{MaxAge: 8}
	assert.True(t, under8.Applies(5))
	assert.False(t, under8.Applies(8))

	over65 := AgeWarningRule{MinAge: 65}
	assert.True(t, over65.Applies(65))
	assert.True(t, over65.Applies(100))
	assert.False(t, over65.Applies(64.9))
}

func TestTables_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{name: "missing version", mutate: func(tb *Tables) { tb.Version = "" }},
		{name: "negative dose", mutate: func(tb *Tables) {
			tb.DosageGuidelines[0].Adult = &Guideline{Dose: -1}
		}},
		{name: "multiplier above one", mutate: func(tb *Tables) { tb.Renal[0].Severe.Multiplier = 1.5 }},
		{name: "bad interaction severity", mutate: func(tb *Tables) {
			tb.Interactions[0].Severity = domain.SeveritySevere
		}},
		{name: "self interaction", mutate: func(tb *Tables) {
			tb.Interactions[0].B = tb.Interactions[0].A
		}},
		{name: "bad tier", mutate: func(tb *Tables) { tb.Severity.Tiers[0].Severity = "awful" }},
		{name: "negative phrase weight", mutate: func(tb *Tables) { tb.RiskPhrases[0].Weight = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tb := builtinTables()
			tt.mutate(tb)
			_, err := tb.Compile()
			assert.ErrorIs(t, err, ErrInvalidTables)
		})
	}
}
