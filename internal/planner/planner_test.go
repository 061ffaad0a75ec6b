package planner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/intent"
	"goa.design/estimo/internal/planner"
	"goa.design/estimo/internal/state"
)

type fakeClassifier struct {
	result intent.Result
}

func (f fakeClassifier) Classify(ctx context.Context, s *state.State, model, credential string, now time.Time) intent.Result {
	return f.result
}

var allStages = []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate", "qa", "export"}

func TestPlanFullEstimationFromScratch(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentFullEstimation, Confidence: 0.9}})

	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.Equal(t, []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate"}, plan.Sequence)
	assert.True(t, plan.OptimizationApplied)
}

func TestPlanSkipsFreshUpstreamOutputs(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	s.ParsedFiles = map[string]string{"a.txt": "content"}
	s.TradeMapping = []state.TradeMapping{{TradeName: "electrical"}}

	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentFullEstimation, Confidence: 0.9}})
	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.Equal(t, []string{"extract_scope", "takeoff", "estimate"}, plan.Sequence)
	require.Len(t, plan.Skipped, 3)
}

func TestPlanOrphanedOutputIsRegenerated(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	// trade_mapping present but its upstream (parsed_files) is absent: orphaned.
	s.TradeMapping = []state.TradeMapping{{TradeName: "electrical"}}

	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentFullEstimation, Confidence: 0.9}})
	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.Contains(t, plan.Sequence, "parse")
	assert.Contains(t, plan.Sequence, "classify_trades")
}

func TestPlanExportNeverSkippedWithExportTokens(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	s.Query = "please export this as xlsx"
	s.Estimate = []state.EstimateItem{{ID: "1", Total: 10}}
	s.ExportedFile = &state.ExportedFile{Name: "out.json"}

	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentExportExisting, Confidence: 0.95}})
	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.Contains(t, plan.Sequence, "export")
}

func TestPlanFallsBackOnUnknownIntent(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	p := planner.New(fakeClassifier{result: intent.Result{Intent: "not_a_real_intent", Confidence: 0.5}})

	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.False(t, plan.OptimizationApplied)
	assert.Equal(t, intent.IntentFullEstimation, plan.Intent)
	assert.Equal(t, 0.5, plan.Confidence)
	assert.Equal(t, allStages, plan.Sequence)
}

func TestPlanFallsBackOnUnknownIntentLabel(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentUnknown, Confidence: 0.3}})

	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.False(t, plan.OptimizationApplied)
	assert.Equal(t, intent.IntentFullEstimation, plan.Intent)
	assert.Equal(t, 0.5, plan.Confidence)
}

func TestPlanSmartsheetPreemptsFullPipelineEvenWithFiles(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	s.Files = []state.File{{Name: "plans.pdf"}}
	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentSmartsheetIntegration, Confidence: 0.95}})

	registered := append([]string{"smartsheet_integration"}, allStages...)
	plan := p.Plan(context.Background(), s, registered, "model", "cred", time.Now())

	assert.Equal(t, []string{"smartsheet_integration"}, plan.Sequence)
	assert.True(t, plan.OptimizationApplied)
	assert.Equal(t, intent.IntentSmartsheetIntegration, plan.Intent)
}

func TestPlanSmartsheetFallsThroughWhenAdapterUnregistered(t *testing.T) {
	s := state.New("sess", "user", time.Now())
	p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentSmartsheetIntegration, Confidence: 0.95}})

	plan := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

	assert.NotEqual(t, []string{"smartsheet_integration"}, plan.Sequence)
}
