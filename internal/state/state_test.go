package state_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/state"
)

func TestNewDefaults(t *testing.T) {
	now := time.Now()
	s := state.New("sess-1", "user-1", now)

	assert.Equal(t, state.StatusReceived, s.Status)
	assert.Empty(t, s.Files)
	assert.NotNil(t, s.Metadata)
	assert.Nil(t, s.Estimate, "output fields default to nil, not empty, so presence means produced")
	assert.Nil(t, s.ParsedFiles)
}

func TestAppendTraceIsAppendOnly(t *testing.T) {
	now := time.Now()
	s := state.New("sess-1", "user-1", now)

	s.AppendTrace(state.TraceEntry{StageName: "parse", Decision: "ran", Timestamp: now})
	before := append([]state.TraceEntry{}, s.Trace...)

	s.AppendTrace(state.TraceEntry{StageName: "classify_trades", Decision: "ran", Timestamp: now.Add(time.Second)})

	require.Len(t, s.Trace, 2)
	assert.Equal(t, before, s.Trace[:len(before)], "trace_after must have trace_before as a prefix")
}

func TestTouchOnMutation(t *testing.T) {
	start := time.Now()
	s := state.New("sess-1", "user-1", start)
	later := start.Add(time.Minute)

	s.SetStatus(state.StatusPlanning, later)
	assert.Equal(t, later, s.UpdatedAt)
}

func TestRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	s := state.New("sess-1", "user-1", now)
	s.Query = "estimate this"
	s.Files = []state.File{{Name: "plans.pdf", MIME: "application/pdf", ParseStatus: state.ParseStatusPending, Attributes: map[string]string{"pages": "12"}}}
	s.Estimate = []state.EstimateItem{{ID: "i1", Description: "Foundation", Quantity: 10, Unit: "CY", UnitPrice: 150, Total: 1500, DivisionCode: "030000"}}
	s.AppendTrace(state.TraceEntry{StageName: "estimate", Decision: "computed 1 item", Severity: state.SeverityInfo, Timestamp: now})
	s.SetStatus(state.StatusOutputReady, now)

	plain := s.ToPlain()
	restored := state.FromPlain(plain)

	assert.Equal(t, s.Query, restored.Query)
	assert.Equal(t, s.Files, restored.Files)
	assert.Equal(t, s.Estimate, restored.Estimate)
	assert.Equal(t, s.Trace, restored.Trace)
	assert.Equal(t, s.Status, restored.Status)
	assert.Equal(t, s.CreatedAt, restored.CreatedAt)
}

func TestEstimateTotalsMatchQuantityTimesUnitPrice(t *testing.T) {
	items := []state.EstimateItem{
		{ID: "i1", Quantity: 10, UnitPrice: 150.333, Total: 1503.33},
		{ID: "i2", Quantity: 3, UnitPrice: 0.1, Total: 0.3},
	}
	for _, it := range items {
		want := roundCents(it.Quantity * it.UnitPrice)
		assert.InDelta(t, want, it.Total, 0.01, "item %s total must equal round(qty*unit_price, 2)", it.ID)
	}
}

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
