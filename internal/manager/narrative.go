package manager

import (
	"fmt"

	"goa.design/estimo/internal/state"
)

// narrate synthesizes the stage-specific human-facing summary spec
// §4.6(d) requires, using the original's stage phrasing (spec SPEC_FULL §9
// "stepwise narrative phrasing per stage") instead of a generic "stage X
// completed" sentence.
func narrate(stageName string, before, after *state.State) string {
	switch stageName {
	case "parse":
		return fmt.Sprintf("Parsed %d file(s)", len(after.ParsedFiles))
	case "classify_trades":
		return fmt.Sprintf("Classified line items into %d trade(s)", len(after.TradeMapping))
	case "extract_scope":
		return fmt.Sprintf("Extracted %d scope item(s) across %d trade(s)", len(after.ScopeItems), countTrades(after))
	case "takeoff":
		return fmt.Sprintf("Completed quantity takeoff for %d scope item(s)", len(after.TakeoffData))
	case "estimate":
		return fmt.Sprintf("Priced %d line item(s), total %.2f", len(after.Estimate), totalEstimate(after))
	case "qa":
		return fmt.Sprintf("QA review raised %d finding(s)", len(after.QAFindings))
	case "export":
		name := ""
		if after.ExportedFile != nil {
			name = after.ExportedFile.Name
		}
		return fmt.Sprintf("Exported estimate as %s", name)
	default:
		return fmt.Sprintf("Stage %s completed", stageName)
	}
}

func countTrades(s *state.State) int {
	seen := map[string]bool{}
	for _, si := range s.ScopeItems {
		seen[si.TradeName] = true
	}
	return len(seen)
}

func totalEstimate(s *state.State) float64 {
	var sum float64
	for _, item := range s.Estimate {
		sum += item.Total
	}
	return sum
}
