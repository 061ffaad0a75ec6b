package manager_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/estimo/internal/broadcaster"
	"goa.design/estimo/internal/intent"
	"goa.design/estimo/internal/manager"
	"goa.design/estimo/internal/modelselect"
	"goa.design/estimo/internal/planner"
	"goa.design/estimo/internal/stages"
	"goa.design/estimo/internal/state"
)

type failingAdapter struct {
	name     string
	required string
	err      error
}

func (f failingAdapter) Name() string               { return f.name }
func (f failingAdapter) RequiredInputField() string { return f.required }
func (f failingAdapter) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	return nil, f.err
}

func TestProcessHaltsOnCriticalError(t *testing.T) {
	registry, err := stages.NewRegistry(failingAdapter{name: "parse", required: "files", err: assertErr("missing_credential: no anthropic key configured")})
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())
	s.Files = []state.File{{Name: "plans.txt", MIME: "text/plain", RawBytes: []byte("x")}}

	out, _ := m.Process(context.Background(), s)
	assert.Equal(t, state.StatusError, out.Status)
	assert.Contains(t, out.Error, "missing_credential")

	var sawError bool
	for _, tr := range out.Trace {
		if tr.Severity == state.SeverityError {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func assertErr(msg string) error { return errors.New(msg) }

func emptySelector() *modelselect.Selector {
	return modelselect.New(modelselect.Catalog{Default: modelselect.ModelOption{Model: "test-model"}})
}

func TestProcessAwaitsUserOnEmptyRequest(t *testing.T) {
	registry, err := stages.DefaultRegistry()
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())

	out, err := m.Process(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, state.StatusAwaitingUser, out.Status)
	assert.NotEmpty(t, out.PendingUserAction)
}

func TestProcessExportOnlyPath(t *testing.T) {
	registry, err := stages.DefaultRegistry()
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())
	s.Query = "export to json"
	s.Estimate = []state.EstimateItem{{ID: "i1", Description: "Foundation", Quantity: 10, Unit: "CY", UnitPrice: 150, Total: 1500}}

	out, err := m.Process(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, state.StatusOutputReady, out.Status)
	require.NotNil(t, out.ExportedFile)
	assert.Equal(t, "application/json", out.ExportedFile.MIME)
	assert.Contains(t, out.ExportedFile.Name, ".json")
}

func TestProcessFreshFullPipeline(t *testing.T) {
	registry, err := stages.DefaultRegistry()
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())
	s.Query = "estimate this building"
	s.Files = []state.File{{Name: "plans.txt", MIME: "text/plain", RawBytes: []byte("Pour concrete foundation, install electrical wiring and plumbing pipe.")}}

	out, err := m.Process(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, state.StatusOutputReady, out.Status)
	assert.NotEmpty(t, out.Estimate)
	assert.GreaterOrEqual(t, len(out.Narrative), 5)
}

func TestProcessSmartsheetPasteRunsOnlySmartsheetStage(t *testing.T) {
	registry, err := stages.DefaultRegistry()
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())
	s.Query = "https://app.smartsheet.com/sheets/ABC123"
	s.Metadata["external_sheet_id"] = "ABC123"

	out, err := m.Process(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, state.StatusOutputReady, out.Status)

	var sawSmartsheetPlan bool
	for _, tr := range out.Trace {
		if tr.StageName == "manager" && strings.Contains(tr.Decision, "sequence=[smartsheet_integration]") {
			sawSmartsheetPlan = true
		}
	}
	assert.True(t, sawSmartsheetPlan)
	assert.Equal(t, "sheet id recorded, no transport configured", out.Metadata["smartsheet_status"])
}

func TestProcessSkipOptimization(t *testing.T) {
	registry, err := stages.DefaultRegistry()
	require.NoError(t, err)
	classifier := intent.New(nil, nil)
	p := planner.New(classifier)
	b := broadcaster.NewLocalBroadcaster()
	defer b.Close()

	m := manager.New(p, registry, b, emptySelector(), nil, nil, nil, manager.DefaultConfig())
	s := state.New("sess", "user", time.Now())
	s.Query = "continue"
	s.ParsedFiles = map[string]string{"plans.pdf": "concrete foundation"}
	s.TradeMapping = []state.TradeMapping{{TradeName: "concrete", DivisionCode: "030000"}}

	out, err := m.Process(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, state.StatusOutputReady, out.Status)
	assert.NotEmpty(t, out.ScopeItems)
}
