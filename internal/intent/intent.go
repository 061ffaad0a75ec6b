// Package intent implements the Intent Classifier (spec §4.4): given a
// Shared State, it produces a label from a closed intent set plus
// confidence and routing metadata, trying a strong-signal pattern pass
// first, then an LLM pass, then a deterministic rule table.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"goa.design/estimo/internal/llmclient"
	"goa.design/estimo/internal/state"
	"goa.design/estimo/internal/telemetry"
)

// Intent is one of the closed set of labels the classifier can produce.
type Intent string

// Intent values (spec §4.4).
const (
	IntentFullEstimation        Intent = "full_estimation"
	IntentFileAnalysis          Intent = "file_analysis"
	IntentExportExisting        Intent = "export_existing"
	IntentQuickEstimate         Intent = "quick_estimate"
	IntentScopeAnalysis         Intent = "scope_analysis"
	IntentTradeIdentification   Intent = "trade_identification"
	IntentSmartsheetIntegration Intent = "smartsheet_integration"
	IntentRerunStage            Intent = "rerun_stage"
	IntentUnknown               Intent = "unknown"
)

// Source records which pass of the classifier produced the final answer,
// appended to the trace for auditability.
type Source string

// Sources.
const (
	SourcePattern Source = "pattern"
	SourceLLM     Source = "llm"
	SourceRule    Source = "rule"
)

// Definition is the static record spec §4.4 requires per intent: required
// and optional stages plus the confidence threshold a classification must
// clear to be trusted outright.
type Definition struct {
	RequiredStages       []string
	OptionalStages       []string
	ConfidenceThreshold float64
}

// Catalog maps each closed intent to its Definition.
var Catalog = map[Intent]Definition{
	IntentFullEstimation:        {RequiredStages: []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate"}, OptionalStages: []string{"export"}, ConfidenceThreshold: 0.7},
	IntentFileAnalysis:          {RequiredStages: []string{"parse", "classify_trades"}, OptionalStages: []string{"extract_scope"}, ConfidenceThreshold: 0.8},
	IntentExportExisting:        {RequiredStages: []string{"export"}, ConfidenceThreshold: 0.9},
	IntentQuickEstimate:         {RequiredStages: []string{"estimate"}, OptionalStages: []string{"export"}, ConfidenceThreshold: 0.7},
	IntentScopeAnalysis:         {RequiredStages: []string{"extract_scope", "takeoff"}, OptionalStages: []string{"estimate"}, ConfidenceThreshold: 0.8},
	IntentTradeIdentification:   {RequiredStages: []string{"classify_trades"}, OptionalStages: []string{"extract_scope"}, ConfidenceThreshold: 0.8},
	IntentSmartsheetIntegration: {RequiredStages: []string{"smartsheet_integration"}, ConfidenceThreshold: 0.9},
	IntentRerunStage:            {ConfidenceThreshold: 0.6},
	IntentUnknown:               {RequiredStages: []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate"}, ConfidenceThreshold: 0.0},
}

// Result is the output of Classify.
type Result struct {
	Intent     Intent
	Confidence float64
	Source     Source
	Reasoning  string
	// RecommendedSequence and SkipReasons are the LLM pass's raw routing
	// suggestion, when available; the Route Planner treats these as advice,
	// not as instructions (it still runs its own freshness analysis).
	RecommendedSequence []string
	SkipReasons         map[string]string
}

// domainTokens boost confidence when present in the query (spec §4.4 step 3).
var domainTokens = []string{"estimate", "cost", "pricing", "bid", "budget"}

var exportTokens = []string{"export", "download", "save", "format"}

var smartsheetURLPattern = regexp.MustCompile(`(?i)https?://[^\s]*smartsheet\.com/[^\s]*`)

// Classifier implements spec §4.4.
type Classifier struct {
	llm    llmclient.Caller
	logger telemetry.Logger
}

// New constructs a Classifier. llm may be nil, in which case the LLM pass is
// always skipped and the classifier falls straight to rules after patterns.
func New(llm llmclient.Caller, logger telemetry.Logger) *Classifier {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Classifier{llm: llm, logger: logger}
}

// Classify implements spec §4.4's four-step algorithm and appends a trace
// entry describing the chosen intent, source, and confidence.
func (c *Classifier) Classify(ctx context.Context, s *state.State, model, credential string, now time.Time) Result {
	if res, ok := c.patternPass(s); ok {
		c.trace(s, res, now)
		return res
	}

	res, err := c.llmPass(ctx, s, model, credential)
	if err != nil {
		c.logger.Warn(ctx, "intent classification llm pass failed, falling back to rules", "error", err.Error())
		res = c.rulePass(s)
	} else {
		res = c.enhanceWithRules(res, s)
	}

	c.trace(s, res, now)
	return res
}

// patternPass implements spec §4.4 step 1: strong-signal shortcuts that skip
// the LLM call entirely when they fire.
func (c *Classifier) patternPass(s *state.State) (Result, bool) {
	if smartsheetURLPattern.MatchString(s.Query) {
		return Result{Intent: IntentSmartsheetIntegration, Confidence: 0.95, Source: SourcePattern, Reasoning: "query contains a smartsheet URL"}, true
	}

	lower := strings.ToLower(s.Query)
	if len(s.Estimate) > 0 && containsAny(lower, exportTokens) {
		return Result{Intent: IntentExportExisting, Confidence: 0.9, Source: SourcePattern, Reasoning: "estimate already present and query requests export"}, true
	}

	if !s.HasFiles() && noStageOutputsPresent(s) && s.HasQuery() {
		// Candidate only: spec says "candidate quick_estimate", not an
		// immediate high-confidence return, so this still goes to the LLM
		// pass unless the LLM pass is unavailable.
		return Result{}, false
	}

	return Result{}, false
}

// llmPass implements spec §4.4 step 2.
func (c *Classifier) llmPass(ctx context.Context, s *state.State, model, credential string) (Result, error) {
	if c.llm == nil {
		return Result{}, fmt.Errorf("no llm caller configured")
	}

	prompt := buildPrompt(s)
	text, err := c.llm.Complete(ctx, llmclient.CompleteRequest{
		Prompt:     prompt,
		Model:      model,
		Credential: credential,
		StageName:  "manager",
		MaxRetries: 3,
	})
	if err != nil {
		return Result{}, err
	}

	var parsed struct {
		PrimaryIntent       string            `json:"primary_intent"`
		Confidence          float64           `json:"confidence"`
		Reasoning           string            `json:"reasoning"`
		RecommendedSequence []string          `json:"recommended_sequence"`
		SkipReasons         map[string]string `json:"skip_reasons"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return Result{}, fmt.Errorf("parse llm intent response: %w", err)
	}
	if parsed.PrimaryIntent == "" {
		return Result{}, fmt.Errorf("llm intent response missing primary_intent")
	}

	return Result{
		Intent:              Intent(parsed.PrimaryIntent),
		Confidence:          parsed.Confidence,
		Source:              SourceLLM,
		Reasoning:           parsed.Reasoning,
		RecommendedSequence: parsed.RecommendedSequence,
		SkipReasons:         parsed.SkipReasons,
	}, nil
}

// enhanceWithRules implements spec §4.4 step 3.
func (c *Classifier) enhanceWithRules(res Result, s *state.State) Result {
	lower := strings.ToLower(s.Query)

	if len(s.Estimate) > 0 && containsAny(lower, exportTokens) {
		res.Intent = IntentExportExisting
		res.Confidence = maxFloat(res.Confidence, 0.85)
		res.Reasoning = "rule override: estimate exists and export tokens present"
	}

	if !s.HasFiles() && s.ParsedFiles == nil && requiresFiles(res.Intent) {
		res.Intent = IntentQuickEstimate
		res.Confidence = maxFloat(res.Confidence, 0.7)
	}

	if containsAny(lower, domainTokens) {
		res.Confidence = minFloat(1.0, res.Confidence+0.1)
	}

	res.Source = SourceLLM
	return res
}

// rulePass implements spec §4.4 step 4: a deterministic rule table keyed on
// the populated-fields bitmap, used whenever the LLM pass fails outright.
func (c *Classifier) rulePass(s *state.State) Result {
	switch {
	case len(s.Estimate) > 0 && containsAny(strings.ToLower(s.Query), exportTokens):
		return Result{Intent: IntentExportExisting, Confidence: 0.85, Source: SourceRule, Reasoning: "rule table: estimate present, export requested"}
	case len(s.TakeoffData) > 0 && len(s.Estimate) == 0:
		return Result{Intent: IntentScopeAnalysis, Confidence: 0.6, Source: SourceRule, Reasoning: "rule table: takeoff present, no estimate"}
	case len(s.TradeMapping) > 0 && len(s.ScopeItems) == 0:
		return Result{Intent: IntentScopeAnalysis, Confidence: 0.6, Source: SourceRule, Reasoning: "rule table: trade mapping present, no scope"}
	case s.HasFiles():
		return Result{Intent: IntentFullEstimation, Confidence: 0.5, Source: SourceRule, Reasoning: "rule table: files present, default to full estimation"}
	case s.HasQuery():
		return Result{Intent: IntentQuickEstimate, Confidence: 0.5, Source: SourceRule, Reasoning: "rule table: query only, no files or prior outputs"}
	default:
		return Result{Intent: IntentUnknown, Confidence: 0.3, Source: SourceRule, Reasoning: "rule table: no actionable signal"}
	}
}

func (c *Classifier) trace(s *state.State, res Result, now time.Time) {
	s.AppendTrace(state.TraceEntry{
		StageName: "intent_classifier",
		Decision:  fmt.Sprintf("classified intent=%s confidence=%.2f source=%s: %s", res.Intent, res.Confidence, res.Source, res.Reasoning),
		Severity:  state.SeverityInfo,
		Timestamp: now,
	})
}

func buildPrompt(s *state.State) string {
	fileCount := len(s.Files)
	exts := make([]string, 0, fileCount)
	for _, f := range s.Files {
		exts = append(exts, extOf(f.Name))
	}

	outputs := map[string]bool{
		"parsed_files":  s.ParsedFiles != nil,
		"trade_mapping": s.TradeMapping != nil,
		"scope_items":   s.ScopeItems != nil,
		"takeoff_data":  s.TakeoffData != nil,
		"estimate":      s.Estimate != nil,
	}
	outputsJSON, _ := json.Marshal(outputs)
	catalogJSON, _ := json.Marshal(Catalog)

	return fmt.Sprintf(`You are classifying the intent behind a construction estimation request.

Query: %q
Has query: %t
File count: %d
File extensions: %v
Existing outputs: %s

Intent catalog (required/optional stages, confidence threshold):
%s

Respond with JSON: {"primary_intent": "...", "confidence": 0.0, "reasoning": "...", "recommended_sequence": ["..."], "skip_reasons": {"stage": "reason"}}`,
		s.Query, s.HasQuery(), fileCount, exts, outputsJSON, catalogJSON)
}

func extOf(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "unknown"
	}
	return strings.ToLower(name[idx+1:])
}

func requiresFiles(i Intent) bool {
	switch i {
	case IntentFullEstimation, IntentFileAnalysis, IntentTradeIdentification:
		return true
	default:
		return false
	}
}

func noStageOutputsPresent(s *state.State) bool {
	return s.ParsedFiles == nil && s.TradeMapping == nil && s.ScopeItems == nil && s.TakeoffData == nil && s.Estimate == nil
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
