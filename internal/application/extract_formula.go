package application

import (
	"regexp"
	"strings"
)

// Reference is one extracted property reference and the expression text it
// was found in.
type Reference struct {
	PropertyName string
	Context      string
}

var (
	braceRefPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.]*)\}`)
	sigilRefPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	funcRefPattern  = regexp.MustCompile(`(?i)\b(SUM|AVG|MIN|MAX|COUNT|IF|CONCAT|ROUND|ABS|LOOKUP)\(\s*([A-Za-z_][A-Za-z0-9_.]*)`)
	dotRefPattern   = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*\.[A-Za-z_][A-Za-z0-9_.]*)\b`)
)

// ExtractFormulaRefs scans a formula for property references: {Name},
// $Name, first arguments of the known function set, and Related.Field
// dot-paths. Dot-paths yield both the head segment and the full path as
// separate candidates. Results are deduplicated by name.
func ExtractFormulaRefs(formula string) []Reference {
	if strings.TrimSpace(formula) == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []Reference
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, Reference{PropertyName: name, Context: formula})
		if head, _, found := strings.Cut(name, "."); found {
			if _, ok := seen[head]; !ok {
				seen[head] = struct{}{}
				out = append(out, Reference{PropertyName: head, Context: formula})
			}
		}
	}

	for _, m := range braceRefPattern.FindAllStringSubmatch(formula, -1) {
		add(m[1])
	}
	for _, m := range sigilRefPattern.FindAllStringSubmatch(formula, -1) {
		add(m[1])
	}
	for _, m := range funcRefPattern.FindAllStringSubmatch(formula, -1) {
		add(m[2])
	}
	for _, m := range dotRefPattern.FindAllStringSubmatch(formula, -1) {
		add(m[1])
	}

	return out
}

// formulaComplexity is a rough 0-based weight used by the validation
// complexity score: one point per reference plus one per operator.
func formulaComplexity(formula string) int {
	score := len(ExtractFormulaRefs(formula))
	for _, op := range []string{"+", "-", "*", "/", ">", "<", "=", "&&", "||"} {
		score += strings.Count(formula, op)
	}
	return score
}
