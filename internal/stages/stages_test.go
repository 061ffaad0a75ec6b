package stages_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/stages"
	"goa.design/estimo/internal/state"
)

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := stages.NewRegistry(stages.NewEstimator(), stages.NewEstimator())
	require.Error(t, err)
}

func TestDefaultRegistryHasAllEightStages(t *testing.T) {
	r, err := stages.DefaultRegistry()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"smartsheet_integration", "parse", "classify_trades", "extract_scope", "takeoff", "estimate", "qa", "export"}, r.Names())
}

func TestSmartsheetAdapterRecordsSheetIDWithoutClient(t *testing.T) {
	a := stages.NewSmartsheetAdapter(nil)
	in := state.Plain{"metadata": map[string]any{"external_sheet_id": "abc123"}}

	out, err := a.Invoke(context.Background(), in)
	require.NoError(t, err)

	metadata := out["metadata"].(map[string]any)
	assert.Contains(t, metadata["smartsheet_status"], "no transport configured")
}

func TestSmartsheetAdapterRequiresSheetID(t *testing.T) {
	a := stages.NewSmartsheetAdapter(nil)
	_, err := a.Invoke(context.Background(), state.Plain{"metadata": map[string]any{}})
	require.Error(t, err)
}

func TestEstimatorTotalInvariant(t *testing.T) {
	e := stages.NewEstimator()
	in := state.Plain{
		"takeoff_data": []any{
			map[string]any{"scope_item_id": "s1", "division_code": "030000", "quantity": 10.0, "unit": "CY"},
		},
	}

	out, err := e.Invoke(context.Background(), in)
	require.NoError(t, err)

	items, ok := out["estimate"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)

	item := items[0].(map[string]any)
	qty := item["quantity"].(float64)
	price := item["unit_price"].(float64)
	total := item["total"].(float64)
	assert.InDelta(t, qty*price, total, 0.01)
}

func TestExporterJSONRoundTrip(t *testing.T) {
	e := stages.NewExporter()
	in := state.Plain{
		"estimate": []any{
			map[string]any{
				"id": "i1", "description": "Foundation", "quantity": 10.0, "unit": "CY",
				"unit_price": 150.0, "total": 1500.0, "division_code": "030000", "notes": "",
			},
		},
		"metadata": map[string]any{},
	}

	out, err := e.Invoke(context.Background(), in)
	require.NoError(t, err)

	ef, ok := out["exported_file"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", ef["mime"])

	var doc struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(ef["bytes"].([]byte), &doc))
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "i1", doc.Items[0]["id"])
	assert.Equal(t, 1500.0, doc.Items[0]["total"])
}

func TestQAValidatorFlagsTotalMismatch(t *testing.T) {
	v := stages.NewQAValidator()
	in := state.Plain{
		"estimate": []any{
			map[string]any{"id": "i1", "quantity": 10.0, "unit_price": 150.0, "total": 999.0},
		},
	}

	out, err := v.Invoke(context.Background(), in)
	require.NoError(t, err)

	findings, ok := out["qa_findings"].([]any)
	require.True(t, ok)
	require.Len(t, findings, 1)
	f := findings[0].(map[string]any)
	assert.Equal(t, "total_mismatch", f["finding_type"])
}

func TestTradeClassifierFindsKnownKeywords(t *testing.T) {
	c := stages.NewTradeClassifier()
	in := state.Plain{
		"parsed_files": map[string]any{
			"plans.txt": "Pour concrete foundation and install rebar before framing begins.",
		},
	}

	out, err := c.Invoke(context.Background(), in)
	require.NoError(t, err)

	mapping, ok := out["trade_mapping"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, mapping)
}
