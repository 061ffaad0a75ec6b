package stages

import (
	"context"
	"fmt"
	"math"

	"goa.design/estimo/internal/state"
)

// divisionUnitPrice is a minimal placeholder rate table keyed by division
// code; a production estimator would price against a real cost database.
var divisionUnitPrice = map[string]float64{
	"030000": 185.00, // concrete
	"260000": 95.00,  // electrical
	"220000": 110.00, // plumbing
	"230000": 130.00, // hvac
	"061000": 14.50,  // framing
	"092900": 2.75,   // drywall
	"075000": 7.25,   // roofing
	"099000": 3.10,   // painting
	"096500": 6.80,   // flooring
	"329000": 4.40,   // landscaping
}

const defaultUnitPrice = 100.00

// Estimator is the estimator adapter (spec §4.7): reads takeoff_data,
// writes estimate; computes total = round(quantity * unit_price, 2).
type Estimator struct{}

// NewEstimator constructs the estimator adapter.
func NewEstimator() *Estimator { return &Estimator{} }

func (*Estimator) Name() string               { return "estimate" }
func (*Estimator) RequiredInputField() string { return "takeoff_data" }

func (e *Estimator) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	takeoffData, ok := in["takeoff_data"].([]any)
	if !ok {
		return nil, fmt.Errorf("estimate: takeoff_data missing or wrong type")
	}

	items := make([]any, 0, len(takeoffData))
	for _, raw := range takeoffData {
		td, _ := raw.(map[string]any)
		scopeItemID, _ := td["scope_item_id"].(string)
		division, _ := td["division_code"].(string)
		unit, _ := td["unit"].(string)
		quantity := asFloatLocal(td["quantity"])

		unitPrice, ok := divisionUnitPrice[division]
		if !ok {
			unitPrice = defaultUnitPrice
		}
		total := roundCents(quantity * unitPrice)

		items = append(items, map[string]any{
			"id":            scopeItemID,
			"description":   fmt.Sprintf("division %s line item", division),
			"quantity":      quantity,
			"unit":          unit,
			"unit_price":    unitPrice,
			"total":         total,
			"division_code": division,
			"notes":         "",
		})
	}

	in["estimate"] = items
	return in, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func asFloatLocal(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
