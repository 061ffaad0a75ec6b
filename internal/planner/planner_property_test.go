package planner_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/estimo/internal/intent"
	"goa.design/estimo/internal/planner"
	"goa.design/estimo/internal/state"
)

// outputFields lists the stages behind the five full-estimation output
// fields in dependency order: the first five entries of
// planner.canonicalOrder, leaving out qa and export.
var outputFields = []string{"parse", "classify_trades", "extract_scope", "takeoff", "estimate"}

// stateWithOutputs builds a State whose populated output fields are exactly
// those named true in present, in outputFields order.
func stateWithOutputs(present []bool) *state.State {
	s := state.New("sess", "user", time.Now())
	for i, has := range present {
		if !has {
			continue
		}
		switch outputFields[i] {
		case "parse":
			s.ParsedFiles = map[string]string{"a.txt": "content"}
		case "classify_trades":
			s.TradeMapping = []state.TradeMapping{{TradeName: "concrete"}}
		case "extract_scope":
			s.ScopeItems = []state.ScopeItem{{ItemID: "s1"}}
		case "takeoff":
			s.TakeoffData = []state.TakeoffEntry{{ScopeItemID: "s1"}}
		case "estimate":
			s.Estimate = []state.EstimateItem{{ID: "e1"}}
		}
	}
	return s
}

func genPresence() gopter.Gen {
	return gen.SliceOfN(len(outputFields), gen.Bool())
}

// TestPlanIsIdempotent verifies spec §8: calling plan twice on an unchanged
// state yields the same sequence and skip list.
func TestPlanIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("plan(s) == plan(s) for an unchanged state", prop.ForAll(
		func(present []bool) bool {
			p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentFullEstimation, Confidence: 0.9}})
			s := stateWithOutputs(present)

			first := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())
			second := p.Plan(context.Background(), s, allStages, "model", "cred", time.Now())

			return equalStrings(first.Sequence, second.Sequence) && len(first.Skipped) == len(second.Skipped)
		},
		genPresence(),
	))

	properties.TestingRun(t)
}

// TestPlanIsMonotonic verifies spec §8: adding a fresh output field to a
// state never increases the planned sequence length.
func TestPlanIsMonotonic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("adding a present output never lengthens the plan", prop.ForAll(
		func(present []bool) bool {
			flipIndex := -1
			for i, has := range present {
				if !has {
					flipIndex = i
					break
				}
			}
			if flipIndex < 0 {
				return true // already fully populated, nothing to add
			}

			before := append([]bool{}, present...)
			after := append([]bool{}, present...)
			after[flipIndex] = true

			p := planner.New(fakeClassifier{result: intent.Result{Intent: intent.IntentFullEstimation, Confidence: 0.9}})
			planBefore := p.Plan(context.Background(), stateWithOutputs(before), allStages, "model", "cred", time.Now())
			planAfter := p.Plan(context.Background(), stateWithOutputs(after), allStages, "model", "cred", time.Now())

			return len(planAfter.Sequence) <= len(planBefore.Sequence)
		},
		genPresence(),
	))

	properties.TestingRun(t)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
