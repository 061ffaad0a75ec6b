package stages

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"goa.design/estimo/internal/state"
)

// tradeKeywords is the deterministic keyword table the default trade
// classifier falls back to. A production deployment would consult the LLM
// first (spec §4.7 "may call the LLM"); this default stays keyword-only so
// the pipeline runs without credentials in tests and the demo CLI.
var tradeKeywords = map[string]struct {
	division string
	keywords []string
}{
	"concrete":    {"030000", []string{"concrete", "foundation", "slab", "footing", "rebar"}},
	"electrical":  {"260000", []string{"electrical", "wiring", "panel", "conduit", "circuit"}},
	"plumbing":    {"220000", []string{"plumbing", "pipe", "fixture", "drain", "water heater"}},
	"hvac":        {"230000", []string{"hvac", "duct", "furnace", "condenser", "ventilation"}},
	"framing":     {"061000", []string{"framing", "stud", "joist", "truss", "lumber"}},
	"drywall":     {"092900", []string{"drywall", "gypsum", "sheetrock"}},
	"roofing":     {"075000", []string{"roofing", "shingle", "membrane", "flashing"}},
	"painting":    {"099000", []string{"paint", "primer", "coating"}},
	"flooring":    {"096500", []string{"flooring", "tile", "carpet", "vinyl plank"}},
	"landscaping": {"329000", []string{"landscap", "irrigation", "planting", "sod"}},
}

// TradeClassifier is the trade classifier adapter (spec §4.7): reads
// parsed_files, writes trade_mapping.
type TradeClassifier struct{}

// NewTradeClassifier constructs the trade classifier adapter.
func NewTradeClassifier() *TradeClassifier { return &TradeClassifier{} }

func (*TradeClassifier) Name() string               { return "classify_trades" }
func (*TradeClassifier) RequiredInputField() string { return "parsed_files" }

func (c *TradeClassifier) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	parsed, ok := in["parsed_files"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("classify_trades: parsed_files missing or wrong type")
	}

	found := map[string]*state.TradeMapping{}
	for fileName, raw := range parsed {
		text := strings.ToLower(fmt.Sprintf("%v", raw))
		for trade, def := range tradeKeywords {
			var matched []string
			for _, kw := range def.keywords {
				if strings.Contains(text, kw) {
					matched = append(matched, kw)
				}
			}
			if len(matched) == 0 {
				continue
			}
			tm, exists := found[trade]
			if !exists {
				tm = &state.TradeMapping{TradeName: trade, DivisionCode: def.division, SourceFile: fileName}
				found[trade] = tm
			}
			tm.Keywords = append(tm.Keywords, matched...)
			tm.Confidence = minF(1.0, float64(len(tm.Keywords))*0.15+0.4)
		}
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	mapping := make([]any, 0, len(names))
	for _, name := range names {
		tm := found[name]
		mapping = append(mapping, map[string]any{
			"trade_name":    tm.TradeName,
			"division_code": tm.DivisionCode,
			"keywords":      tm.Keywords,
			"source_file":   tm.SourceFile,
			"confidence":    tm.Confidence,
		})
	}

	in["trade_mapping"] = mapping
	return in, nil
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
