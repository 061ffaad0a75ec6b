package stages

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"goa.design/estimo/internal/state"
)

// ScopeExtractor is the scope extractor adapter (spec §4.7): reads
// trade_mapping, writes scope_items. The default implementation emits one
// generic scope item per identified trade; a production adapter would
// further segment each trade's work from the parsed text.
type ScopeExtractor struct{}

// NewScopeExtractor constructs the scope extractor adapter.
func NewScopeExtractor() *ScopeExtractor { return &ScopeExtractor{} }

func (*ScopeExtractor) Name() string               { return "extract_scope" }
func (*ScopeExtractor) RequiredInputField() string { return "trade_mapping" }

func (e *ScopeExtractor) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	mapping, ok := in["trade_mapping"].([]any)
	if !ok {
		return nil, fmt.Errorf("extract_scope: trade_mapping missing or wrong type")
	}

	items := make([]any, 0, len(mapping))
	for _, raw := range mapping {
		tm, _ := raw.(map[string]any)
		tradeName, _ := tm["trade_name"].(string)
		division, _ := tm["division_code"].(string)
		sourceFile, _ := tm["source_file"].(string)

		items = append(items, map[string]any{
			"item_id":       uuid.NewString(),
			"trade_name":    tradeName,
			"division_code": division,
			"description":   fmt.Sprintf("%s scope of work", tradeName),
			"source_file":   sourceFile,
			"work_type":     "general",
			"unit_hint":     "",
		})
	}

	in["scope_items"] = items
	return in, nil
}
