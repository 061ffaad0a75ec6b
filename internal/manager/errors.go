package manager

import "strings"

// errorClass is the Manager's classification of a stage-reported error
// (spec §4.6(c)(6)).
type errorClass int

const (
	classNonCritical errorClass = iota
	classCritical
)

// criticalSubstrings is the exact list spec §4.6(c)(6) names.
var criticalSubstrings = []string{
	"api key",
	"authentication",
	"authorization",
	"critical",
	"missing_credential",
}

// classifyError is a pure function over a stage-reported error message: it
// returns classCritical iff msg contains any of criticalSubstrings
// (case-insensitive), classNonCritical otherwise.
func classifyError(msg string) errorClass {
	lower := strings.ToLower(msg)
	for _, sub := range criticalSubstrings {
		if strings.Contains(lower, sub) {
			return classCritical
		}
	}
	return classNonCritical
}
