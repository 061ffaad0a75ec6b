package stages

import (
	"context"
	"fmt"

	"goa.design/estimo/internal/state"
)

// QAValidator is the QA validator adapter (spec §4.7): reads estimate,
// takeoff_data, scope_items; writes qa_findings. The default
// implementation checks the estimate total invariant (spec §3) and flags
// estimate items with no matching scope item.
type QAValidator struct{}

// NewQAValidator constructs the QA validator adapter.
func NewQAValidator() *QAValidator { return &QAValidator{} }

func (*QAValidator) Name() string               { return "qa" }
func (*QAValidator) RequiredInputField() string { return "estimate" }

func (v *QAValidator) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	estimate, ok := in["estimate"].([]any)
	if !ok {
		return nil, fmt.Errorf("qa: estimate missing or wrong type")
	}
	scopeItems, _ := in["scope_items"].([]any)

	scopeIDs := map[string]bool{}
	for _, raw := range scopeItems {
		si, _ := raw.(map[string]any)
		if id, ok := si["item_id"].(string); ok {
			scopeIDs[id] = true
		}
	}

	findings := make([]any, 0)
	for _, raw := range estimate {
		item, _ := raw.(map[string]any)
		id, _ := item["id"].(string)
		quantity := asFloatLocal(item["quantity"])
		unitPrice := asFloatLocal(item["unit_price"])
		total := asFloatLocal(item["total"])

		expected := roundCents(quantity * unitPrice)
		if absF(total-expected) >= 0.01 {
			findings = append(findings, map[string]any{
				"item_id":      id,
				"finding_type": "total_mismatch",
				"message":      fmt.Sprintf("total %.2f does not match quantity*unit_price %.2f", total, expected),
				"severity":     string(state.SeverityError),
			})
		}

		if len(scopeIDs) > 0 && !scopeIDs[id] {
			findings = append(findings, map[string]any{
				"item_id":      id,
				"finding_type": "orphaned_estimate_item",
				"message":      "estimate item has no matching scope item",
				"severity":     string(state.SeverityWarning),
			})
		}
	}

	in["qa_findings"] = findings
	return in, nil
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
