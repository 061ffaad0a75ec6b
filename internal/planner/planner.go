// Package planner implements the Route Planner (spec §4.5): it turns a
// classified intent plus the current Shared State into an ordered stage
// sequence, skipping stages whose output is already present and fresh.
package planner

import (
	"context"
	"strings"
	"time"

	"goa.design/estimo/internal/intent"
	"goa.design/estimo/internal/state"
)

var exportTokens = []string{"export", "download", "save", "format"}

// canonicalOrder is the tie-break and dependency-closure order for the
// seven domain stages (spec §4.5). smartsheet_integration is deliberately
// absent: it never participates in dependency-closure tie-breaking or the
// generic fallback sequence, since it only ever runs alone via the
// Smartsheet special-case in Plan.
var canonicalOrder = []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate", "qa", "export"}

// upstream maps each stage to the stage whose output it depends on. A stage
// absent from this map (parse, smartsheet_integration) has no upstream.
var upstream = map[string]string{
	"classify_trades": "parse",
	"extract_scope":   "classify_trades",
	"takeoff":         "extract_scope",
	"estimate":        "takeoff",
	"qa":              "estimate",
	"export":          "estimate",
}

// Skip describes why a stage was skipped, plus the planner's confidence in
// that decision.
type Skip struct {
	Stage      string
	Reason     string
	Confidence float64
}

// Plan is the Route Planner's output.
type Plan struct {
	Sequence          []string
	Skipped           []Skip
	Intent            intent.Intent
	Confidence        float64
	Reasoning         string
	OptimizationApplied bool
}

// Classifier is the subset of intent.Classifier the planner depends on.
type Classifier interface {
	Classify(ctx context.Context, s *state.State, model, credential string, now time.Time) intent.Result
}

// Planner implements spec §4.5.
type Planner struct {
	classifier Classifier
}

// New constructs a Planner.
func New(classifier Classifier) *Planner {
	return &Planner{classifier: classifier}
}

// Plan implements the seven-step procedure from spec §4.5. registeredStages
// is the set of stage names the Adapter Registry actually has adapters for;
// the planner never emits a stage outside this set.
func (p *Planner) Plan(ctx context.Context, s *state.State, registeredStages []string, model, credential string, now time.Time) Plan {
	result := p.classifier.Classify(ctx, s, model, credential, now)

	registered := toSet(registeredStages)

	// Smartsheet special-case (spec §4.5 open question, resolved): an
	// external spreadsheet URL always starts the sequence with the
	// smartsheet adapter, preempting document parsing even when files are
	// also present, since the sheet itself is the authoritative source of
	// the files to parse next.
	if result.Intent == intent.IntentSmartsheetIntegration && registered["smartsheet_integration"] {
		return Plan{
			Sequence:            []string{"smartsheet_integration"},
			Skipped:             nil,
			Intent:              result.Intent,
			Confidence:          result.Confidence,
			Reasoning:           result.Reasoning,
			OptimizationApplied: true,
		}
	}

	if result.Intent == intent.IntentUnknown {
		return fallbackPlan(registeredStages)
	}

	def, ok := intent.Catalog[result.Intent]
	if !ok {
		return fallbackPlan(registeredStages)
	}

	candidates := intersectPreservingOrder(append(append([]string{}, def.RequiredStages...), def.OptionalStages...), registered)

	canSkip := map[string]bool{}
	skipped := []Skip{}
	for _, stage := range candidates {
		skip, reason, conf := evaluateSkip(stage, s)
		canSkip[stage] = skip
		if skip {
			skipped = append(skipped, Skip{Stage: stage, Reason: reason, Confidence: conf})
		}
	}

	sequence := []string{}
	seen := map[string]bool{}
	for _, stage := range candidates {
		if canSkip[stage] {
			continue
		}
		for _, dep := range dependencyClosure(stage, s) {
			if !seen[dep] && registered[dep] {
				sequence = append(sequence, dep)
				seen[dep] = true
			}
		}
	}

	sequence = canonicalize(sequence)

	return Plan{
		Sequence:            sequence,
		Skipped:             skipped,
		Intent:              result.Intent,
		Confidence:          result.Confidence,
		Reasoning:           result.Reasoning,
		OptimizationApplied: true,
	}
}

// evaluateSkip implements spec §4.5 steps 3-5. The exporter has its own
// skip rule independent of presence/freshness (spec §4.5 step 5): it is
// never skipped when the query requests export, and otherwise skipped only
// when there is no estimate to export.
func evaluateSkip(stage string, s *state.State) (skip bool, reason string, confidence float64) {
	if stage == "export" {
		if containsExportToken(s.Query) {
			return false, "", 0
		}
		if s.Estimate == nil {
			return true, "no estimate present to export", 0.9
		}
		return false, "", 0
	}

	if !outputPresent(stage, s) {
		return false, "", 0
	}
	if !isFresh(stage, s) {
		return false, "", 0
	}
	return true, stage + " output already present and fresh", 0.85
}

func containsExportToken(query string) bool {
	lower := strings.ToLower(query)
	for _, tok := range exportTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// outputPresent reports whether stage's declared state output is non-nil.
func outputPresent(stage string, s *state.State) bool {
	switch stage {
	case "parse":
		return s.ParsedFiles != nil
	case "classify_trades":
		return s.TradeMapping != nil
	case "extract_scope":
		return s.ScopeItems != nil
	case "takeoff":
		return s.TakeoffData != nil
	case "estimate":
		return s.Estimate != nil
	case "qa":
		return s.QAFindings != nil
	case "export":
		return s.ExportedFile != nil
	default:
		return false
	}
}

// isFresh implements spec §4.5 step 4: an output is fresh iff its immediate
// upstream output is also present, or it has no upstream.
func isFresh(stage string, s *state.State) bool {
	up, ok := upstream[stage]
	if !ok {
		return true
	}
	return outputPresent(up, s)
}

// dependencyClosure implements spec §4.5 step 6: walk the dependency chain
// upward, prepending any ancestor whose output is absent, then the stage
// itself.
func dependencyClosure(stage string, s *state.State) []string {
	chain := []string{}
	cur := stage
	for {
		chain = append([]string{cur}, chain...)
		up, ok := upstream[cur]
		if !ok {
			break
		}
		if outputPresent(up, s) {
			break
		}
		cur = up
	}
	return chain
}

// canonicalize sorts seq into canonical pipeline order and removes
// duplicates, as ties in the dependency closure are broken by canonical
// order (spec §4.5).
func canonicalize(seq []string) []string {
	set := toSet(seq)
	out := make([]string, 0, len(seq))
	for _, stage := range canonicalOrder {
		if set[stage] {
			out = append(out, stage)
		}
	}
	return out
}

// fallbackPlan implements spec §4.5's safe-fallback-on-failure clause.
func fallbackPlan(registeredStages []string) Plan {
	registered := toSet(registeredStages)
	sequence := []string{}
	for _, stage := range canonicalOrder {
		if registered[stage] {
			sequence = append(sequence, stage)
		}
	}
	return Plan{
		Sequence:            sequence,
		Skipped:             nil,
		Intent:              intent.IntentFullEstimation,
		Confidence:          0.5,
		Reasoning:           "fallback: planner could not resolve a definition for the classified intent",
		OptimizationApplied: false,
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func intersectPreservingOrder(items []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		if allowed[it] && !seen[it] {
			out = append(out, it)
			seen[it] = true
		}
	}
	return out
}
