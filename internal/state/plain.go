package state

import "time"

// Plain is the flat key-value representation of a State used to cross the
// transport/persistence boundary (spec §6 "Persisted state layout"). Every
// nested record is reduced to a map or slice of primitives.
type Plain map[string]any

// ToPlain renders the state into its wire representation. The result round
// trips through FromPlain: FromPlain(ToPlain(s)) reproduces every exported
// field of s.
func (s *State) ToPlain() Plain {
	s.mu.Lock()
	defer s.mu.Unlock()

	files := make([]any, len(s.Files))
	for i, f := range s.Files {
		files[i] = map[string]any{
			"name":         f.Name,
			"mime":         f.MIME,
			"raw_bytes":    f.RawBytes,
			"parsed_text":  f.ParsedText,
			"parse_status": string(f.ParseStatus),
			"attributes":   copyStringMap(f.Attributes),
		}
	}

	history := make([]any, len(s.History))
	for i, h := range s.History {
		history[i] = map[string]any{
			"role":      string(h.Role),
			"content":   h.Content,
			"timestamp": h.Timestamp,
		}
	}

	trace := make([]any, len(s.Trace))
	for i, t := range s.Trace {
		trace[i] = map[string]any{
			"stage_name": t.StageName,
			"decision":   t.Decision,
			"model_used": t.ModelUsed,
			"severity":   string(t.Severity),
			"error":      t.Error,
			"timestamp":  t.Timestamp,
		}
	}

	narrative := make([]any, len(s.Narrative))
	for i, n := range s.Narrative {
		narrative[i] = map[string]any{
			"stage_name": n.StageName,
			"message":    n.Message,
			"timestamp":  n.Timestamp,
		}
	}

	var parsedFiles any
	if s.ParsedFiles != nil {
		m := make(map[string]any, len(s.ParsedFiles))
		for k, v := range s.ParsedFiles {
			m[k] = v
		}
		parsedFiles = m
	}

	var tradeMapping any
	if s.TradeMapping != nil {
		list := make([]any, len(s.TradeMapping))
		for i, tm := range s.TradeMapping {
			list[i] = map[string]any{
				"trade_name":    tm.TradeName,
				"division_code": tm.DivisionCode,
				"keywords":      tm.Keywords,
				"source_file":   tm.SourceFile,
				"confidence":    tm.Confidence,
			}
		}
		tradeMapping = list
	}

	var scopeItems any
	if s.ScopeItems != nil {
		list := make([]any, len(s.ScopeItems))
		for i, si := range s.ScopeItems {
			list[i] = map[string]any{
				"item_id":       si.ItemID,
				"trade_name":    si.TradeName,
				"division_code": si.DivisionCode,
				"description":   si.Description,
				"source_file":   si.SourceFile,
				"work_type":     si.WorkType,
				"unit_hint":     si.UnitHint,
			}
		}
		scopeItems = list
	}

	var takeoffData any
	if s.TakeoffData != nil {
		list := make([]any, len(s.TakeoffData))
		for i, td := range s.TakeoffData {
			list[i] = map[string]any{
				"scope_item_id": td.ScopeItemID,
				"division_code": td.DivisionCode,
				"quantity":      td.Quantity,
				"unit":          td.Unit,
				"method":        td.Method,
				"source_file":   td.SourceFile,
			}
		}
		takeoffData = list
	}

	var qaFindings any
	if s.QAFindings != nil {
		list := make([]any, len(s.QAFindings))
		for i, f := range s.QAFindings {
			list[i] = map[string]any{
				"item_id":      f.ItemID,
				"finding_type": f.FindingType,
				"message":      f.Message,
				"severity":     string(f.Severity),
			}
		}
		qaFindings = list
	}

	var estimate any
	if s.Estimate != nil {
		list := make([]any, len(s.Estimate))
		for i, e := range s.Estimate {
			list[i] = map[string]any{
				"id":            e.ID,
				"description":   e.Description,
				"quantity":      e.Quantity,
				"unit":          e.Unit,
				"unit_price":    e.UnitPrice,
				"total":         e.Total,
				"division_code": e.DivisionCode,
				"notes":         e.Notes,
			}
		}
		estimate = list
	}

	var exported any
	if s.ExportedFile != nil {
		exported = map[string]any{
			"bytes": s.ExportedFile.Bytes,
			"name":  s.ExportedFile.Name,
			"mime":  s.ExportedFile.MIME,
		}
	}

	return Plain{
		"query":    s.Query,
		"files":    files,
		"metadata": copyAnyMap(s.Metadata),
		"model_config": map[string]any{
			"model_name":  s.ModelConfig.ModelName,
			"credential":  s.ModelConfig.Credential,
			"params":      copyAnyMap(s.ModelConfig.Params),
			"token_usage": map[string]any{"prompt": s.ModelConfig.TokenUsage.Prompt, "completion": s.ModelConfig.TokenUsage.Completion, "total": s.ModelConfig.TokenUsage.Total},
			"cost":        s.ModelConfig.CostEstimate,
		},
		"history":             history,
		"trace":               trace,
		"narrative":           narrative,
		"parsed_files":        parsedFiles,
		"trade_mapping":       tradeMapping,
		"scope_items":         scopeItems,
		"takeoff_data":        takeoffData,
		"qa_findings":         qaFindings,
		"estimate":            estimate,
		"exported_file":       exported,
		"status":              string(s.Status),
		"pending_user_action": s.PendingUserAction,
		"error":               s.Error,
		"created_at":          s.CreatedAt,
		"updated_at":          s.UpdatedAt,
		"session_id":          s.SessionID,
		"user_id":             s.UserID,
	}
}

// FromPlain reconstructs a State from its wire representation. Fields absent
// from p are left at their zero value.
func FromPlain(p Plain) *State {
	s := &State{
		Files:     []File{},
		Metadata:  map[string]any{},
		History:   []HistoryTurn{},
		Trace:     []TraceEntry{},
		Narrative: []NarrativeEntry{},
	}

	s.Query, _ = p["query"].(string)
	s.Metadata = copyAnyMap(asAnyMap(p["metadata"]))

	if rawFiles, ok := p["files"].([]any); ok {
		for _, rf := range rawFiles {
			m := asAnyMap(rf)
			s.Files = append(s.Files, File{
				Name:        asString(m["name"]),
				MIME:        asString(m["mime"]),
				RawBytes:    asBytes(m["raw_bytes"]),
				ParsedText:  asString(m["parsed_text"]),
				ParseStatus: ParseStatus(asString(m["parse_status"])),
				Attributes:  asStringMap(m["attributes"]),
			})
		}
	}

	if mc, ok := p["model_config"].(map[string]any); ok {
		s.ModelConfig.ModelName = asString(mc["model_name"])
		s.ModelConfig.Credential = asString(mc["credential"])
		s.ModelConfig.Params = copyAnyMap(asAnyMap(mc["params"]))
		s.ModelConfig.CostEstimate = asFloat(mc["cost"])
		if tu, ok := mc["token_usage"].(map[string]any); ok {
			s.ModelConfig.TokenUsage = TokenUsage{
				Prompt:     int(asFloat(tu["prompt"])),
				Completion: int(asFloat(tu["completion"])),
				Total:      int(asFloat(tu["total"])),
			}
		}
	}

	if rawHist, ok := p["history"].([]any); ok {
		for _, rh := range rawHist {
			m := asAnyMap(rh)
			s.History = append(s.History, HistoryTurn{
				Role:      Role(asString(m["role"])),
				Content:   asString(m["content"]),
				Timestamp: asTime(m["timestamp"]),
			})
		}
	}

	if rawTrace, ok := p["trace"].([]any); ok {
		for _, rt := range rawTrace {
			m := asAnyMap(rt)
			s.Trace = append(s.Trace, TraceEntry{
				StageName: asString(m["stage_name"]),
				Decision:  asString(m["decision"]),
				ModelUsed: asString(m["model_used"]),
				Severity:  Severity(asString(m["severity"])),
				Error:     asString(m["error"]),
				Timestamp: asTime(m["timestamp"]),
			})
		}
	}

	if rawNarr, ok := p["narrative"].([]any); ok {
		for _, rn := range rawNarr {
			m := asAnyMap(rn)
			s.Narrative = append(s.Narrative, NarrativeEntry{
				StageName: asString(m["stage_name"]),
				Message:   asString(m["message"]),
				Timestamp: asTime(m["timestamp"]),
			})
		}
	}

	if pf, ok := p["parsed_files"].(map[string]any); ok {
		s.ParsedFiles = map[string]string{}
		for k, v := range pf {
			s.ParsedFiles[k] = asString(v)
		}
	}

	if tm, ok := p["trade_mapping"].([]any); ok {
		s.TradeMapping = make([]TradeMapping, 0, len(tm))
		for _, rt := range tm {
			m := asAnyMap(rt)
			s.TradeMapping = append(s.TradeMapping, TradeMapping{
				TradeName:    asString(m["trade_name"]),
				DivisionCode: asString(m["division_code"]),
				Keywords:     asStringSlice(m["keywords"]),
				SourceFile:   asString(m["source_file"]),
				Confidence:   asFloat(m["confidence"]),
			})
		}
	}

	if si, ok := p["scope_items"].([]any); ok {
		s.ScopeItems = make([]ScopeItem, 0, len(si))
		for _, rs := range si {
			m := asAnyMap(rs)
			s.ScopeItems = append(s.ScopeItems, ScopeItem{
				ItemID:       asString(m["item_id"]),
				TradeName:    asString(m["trade_name"]),
				DivisionCode: asString(m["division_code"]),
				Description:  asString(m["description"]),
				SourceFile:   asString(m["source_file"]),
				WorkType:     asString(m["work_type"]),
				UnitHint:     asString(m["unit_hint"]),
			})
		}
	}

	if td, ok := p["takeoff_data"].([]any); ok {
		s.TakeoffData = make([]TakeoffEntry, 0, len(td))
		for _, rt := range td {
			m := asAnyMap(rt)
			s.TakeoffData = append(s.TakeoffData, TakeoffEntry{
				ScopeItemID:  asString(m["scope_item_id"]),
				DivisionCode: asString(m["division_code"]),
				Quantity:     asFloat(m["quantity"]),
				Unit:         asString(m["unit"]),
				Method:       asString(m["method"]),
				SourceFile:   asString(m["source_file"]),
			})
		}
	}

	if qf, ok := p["qa_findings"].([]any); ok {
		s.QAFindings = make([]QAFinding, 0, len(qf))
		for _, rf := range qf {
			m := asAnyMap(rf)
			s.QAFindings = append(s.QAFindings, QAFinding{
				ItemID:      asString(m["item_id"]),
				FindingType: asString(m["finding_type"]),
				Message:     asString(m["message"]),
				Severity:    Severity(asString(m["severity"])),
			})
		}
	}

	if es, ok := p["estimate"].([]any); ok {
		s.Estimate = make([]EstimateItem, 0, len(es))
		for _, re := range es {
			m := asAnyMap(re)
			s.Estimate = append(s.Estimate, EstimateItem{
				ID:           asString(m["id"]),
				Description:  asString(m["description"]),
				Quantity:     asFloat(m["quantity"]),
				Unit:         asString(m["unit"]),
				UnitPrice:    asFloat(m["unit_price"]),
				Total:        asFloat(m["total"]),
				DivisionCode: asString(m["division_code"]),
				Notes:        asString(m["notes"]),
			})
		}
	}

	if ef, ok := p["exported_file"].(map[string]any); ok {
		s.ExportedFile = &ExportedFile{
			Bytes: asBytes(ef["bytes"]),
			Name:  asString(ef["name"]),
			MIME:  asString(ef["mime"]),
		}
	}

	s.Status = Status(asString(p["status"]))
	s.PendingUserAction = asString(p["pending_user_action"])
	s.Error = asString(p["error"])
	s.CreatedAt = asTime(p["created_at"])
	s.UpdatedAt = asTime(p["updated_at"])
	s.SessionID = asString(p["session_id"])
	s.UserID = asString(p["user_id"])

	return s
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asAnyMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asStringMap(v any) map[string]string {
	m, ok := v.(map[string]string)
	if ok {
		return copyStringMap(m)
	}
	am, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(am))
	for k, vv := range am {
		out[k] = asString(vv)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
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

func asBytes(v any) []byte {
	b, _ := v.([]byte)
	return b
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

func asStringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			out = append(out, asString(e))
		}
		return out
	default:
		return nil
	}
}
