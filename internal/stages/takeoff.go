package stages

import (
	"context"
	"fmt"

	"goa.design/estimo/internal/state"
)

// defaultQuantity and defaultUnit are the placeholder quantity and
// lump-sum unit the default takeoff adapter assigns absent any real
// quantity survey; defaultUnit applies to every scope item without a
// unit_hint, whatever its work type. Nothing finer is knowable without the
// real adapter logic spec §1 excludes.
const defaultQuantity = 1.0
const defaultUnit = "LS"

// Takeoff is the quantity takeoff adapter (spec §4.7): reads scope_items,
// writes takeoff_data with quantity and unit per scope item.
type Takeoff struct{}

// NewTakeoff constructs the takeoff adapter.
func NewTakeoff() *Takeoff { return &Takeoff{} }

func (*Takeoff) Name() string               { return "takeoff" }
func (*Takeoff) RequiredInputField() string { return "scope_items" }

func (t *Takeoff) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	scopeItems, ok := in["scope_items"].([]any)
	if !ok {
		return nil, fmt.Errorf("takeoff: scope_items missing or wrong type")
	}

	entries := make([]any, 0, len(scopeItems))
	for _, raw := range scopeItems {
		si, _ := raw.(map[string]any)
		itemID, _ := si["item_id"].(string)
		division, _ := si["division_code"].(string)
		sourceFile, _ := si["source_file"].(string)
		unit, _ := si["unit_hint"].(string)
		if unit == "" {
			unit = defaultUnit
		}

		entries = append(entries, map[string]any{
			"scope_item_id": itemID,
			"division_code": division,
			"quantity":      defaultQuantity,
			"unit":          unit,
			"method":        "lump_sum_placeholder",
			"source_file":   sourceFile,
		})
	}

	in["takeoff_data"] = entries
	return in, nil
}
