package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/medsafe-mcp-server/internal/domain"
	"github.com/medsafe-mcp-server/internal/knowledge"
	"github.com/medsafe-mcp-server/pkg/dosage"
)

// evaluation is the normalized, read-only input every evaluator receives for
// one request. It pins a single tables snapshot for the whole assessment.
type evaluation struct {
	tables     *knowledge.Tables
	input      string
	drug       string
	dose       *dosage.Dosage
	frequency  string
	patient    domain.PatientContext
	conditions []string
	crcl       *float64
}

func newEvaluation(tables *knowledge.Tables, req domain.DrugRequest, dose *dosage.Dosage, patient domain.PatientContext) *evaluation {
	return &evaluation{
		tables:     tables,
		input:      req.Drug,
		drug:       tables.Resolve(req.Drug),
		dose:       dose,
		frequency:  req.Frequency,
		patient:    patient,
		conditions: normalizeConditions(patient.Conditions),
		crcl:       patient.CreatinineClearance,
	}
}

func (e *evaluation) known() bool {
	return e.tables.IsKnown(e.drug)
}

// schedule resolves how often the prescribed dose is given: the request
// frequency when present, otherwise the guideline frequency for the
// patient's age group. prescribed is false for the guideline fallback.
func (e *evaluation) schedule() (s dosage.Schedule, frequency string, prescribed bool) {
	frequency, prescribed = e.frequency, e.frequency != ""
	if !prescribed {
		if g, ok := e.tables.Guideline(e.drug); ok {
			if gl := g.For(domain.GroupForAge(e.patient.Age)); gl != nil {
				frequency = gl.Frequency
			}
		}
	}
	s, _ = dosage.ParseFrequency(frequency)
	return s, frequency, prescribed
}

// dailyAdministrations is the number of doses per day used for daily totals.
// A prescribed range counts at its most frequent interval; the guideline
// fallback counts at its least frequent one.
func (e *evaluation) dailyAdministrations() float64 {
	s, _, prescribed := e.schedule()
	if prescribed {
		return s.Max
	}
	return s.Min
}

// prescribedAmounts converts the prescribed dose into mg per administration
// and mg per day. A per-day dose is split over the fewest administrations
// the schedule allows, which gives the largest single dose.
func (e *evaluation) prescribedAmounts() (single, daily float64, ok bool) {
	if e.dose == nil {
		return 0, 0, false
	}
	mg, ok := e.dose.Milligrams()
	if !ok {
		return 0, 0, false
	}
	if e.dose.PerKg {
		if e.patient.WeightKg == nil {
			return 0, 0, false
		}
		mg *= *e.patient.WeightKg
	}
	if e.dose.PerDay {
		s, _, _ := e.schedule()
		return mg / s.Min, mg, true
	}
	return mg, mg * e.dailyAdministrations(), true
}

func normalizeConditions(conditions []string) []string {
	out := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if n := knowledge.NormalizeCondition(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// hasCondition reports whether any patient condition contains want, so that
// "congestive_heart_failure" satisfies "heart_failure".
func hasCondition(conditions []string, want string) bool {
	for _, c := range conditions {
		if strings.Contains(c, want) {
			return true
		}
	}
	return false
}

func matchesCondition(conditions, wanted []string) (string, bool) {
	for _, w := range wanted {
		if hasCondition(conditions, w) {
			return w, true
		}
	}
	return "", false
}

// humanize turns a condition key back into words.
func humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr(v float64) *float64 {
	return &v
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if item == "" {
			continue
		}
		dup := false
		for _, existing := range list {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, item)
		}
	}
	return list
}
