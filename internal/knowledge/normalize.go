package knowledge

import (
	"strings"
)

// saltSuffixes are trailing salt or ester names stripped from drug names so
// that "Diphenhydramine HCl" and "diphenhydramine" share one key.
var saltSuffixes = map[string]bool{
	"hydrochloride": true,
	"hcl":           true,
	"sodium":        true,
	"potassium":     true,
	"sulfate":       true,
	"sulphate":      true,
	"succinate":     true,
	"tartrate":      true,
	"maleate":       true,
	"citrate":       true,
	"besylate":      true,
	"calcium":       true,
	"mesylate":      true,
	"phosphate":     true,
	"acetate":       true,
	"bromide":       true,
	"carbonate":     true,
	"trihydrate":    true,
}

// NormalizeDrug lowercases, collapses whitespace and underscores, and strips
// trailing salt suffixes. A name consisting only of a salt word is kept.
func NormalizeDrug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", " ")
	fields := strings.Fields(name)
	for len(fields) > 1 && saltSuffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// NormalizeCondition produces snake_case condition keys: "Heart Failure" and
// "heart-failure" both become "heart_failure".
func NormalizeCondition(condition string) string {
	condition = strings.ToLower(strings.TrimSpace(condition))
	condition = strings.NewReplacer("-", " ", "_", " ").Replace(condition)
	return strings.Join(strings.Fields(condition), "_")
}

// NormalizeText lowercases free text for keyword matching.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func normalizeAll(names []string, fn func(string) string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		k := fn(n)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
