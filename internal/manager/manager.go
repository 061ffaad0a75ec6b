// Package manager implements the Manager/Orchestrator (spec §4.6): the
// component that drives a single request through intake, planning,
// execution, presentation, and finalization, owning cancellation and
// failure policy for the whole pipeline.
package manager

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"goa.design/estimo/internal/broadcaster"
	"goa.design/estimo/internal/modelselect"
	"goa.design/estimo/internal/planner"
	"goa.design/estimo/internal/stages"
	"goa.design/estimo/internal/state"
	"goa.design/estimo/internal/telemetry"
)

// Sentinel errors, wrapped with context at call sites (ambient error
// handling style, see SPEC_FULL §2).
var (
	ErrStageNotReady  = errors.New("stage not ready: required input missing")
	ErrUnknownStage   = errors.New("unknown stage")
	ErrEmptyRequest   = errors.New("request has no files, url, or query")
)

// spreadsheetURLPattern detects an external-spreadsheet URL in the query
// during universal intake (spec §4.6(a)).
var spreadsheetURLPattern = regexp.MustCompile(`(?i)https?://[^\s]*smartsheet\.com/[^\s]*`)

// Clock abstracts time.Now so tests can drive deterministic timestamps.
type Clock func() time.Time

// Config carries the Manager's tunable deadlines (spec §4.6, SPEC_FULL §6).
type Config struct {
	StageTimeout        time.Duration
	RequestTimeout      time.Duration
}

// DefaultConfig returns the spec's stated defaults (120s per stage, 15m
// per request).
func DefaultConfig() Config {
	return Config{StageTimeout: 120 * time.Second, RequestTimeout: 15 * time.Minute}
}

// Manager implements spec §4.6.
type Manager struct {
	planner     *planner.Planner
	registry    *stages.Registry
	broadcaster broadcaster.Broadcaster
	selector    *modelselect.Selector
	logger      telemetry.Logger
	tracer      telemetry.Tracer
	metrics     telemetry.Metrics
	cfg         Config
	now         Clock
}

// New constructs a Manager. logger/tracer/metrics default to no-ops when
// nil so callers that don't wire observability still get a working Manager.
func New(p *planner.Planner, registry *stages.Registry, b broadcaster.Broadcaster, selector *modelselect.Selector, logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics, cfg Config) *Manager {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Manager{
		planner:     p,
		registry:    registry,
		broadcaster: b,
		selector:    selector,
		logger:      logger,
		tracer:      tracer,
		metrics:     metrics,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Process implements the Manager's contract: process(state) → state,
// synchronous from the caller's viewpoint (spec §4.6).
func (m *Manager) Process(ctx context.Context, s *state.State) (*state.State, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()

	ctx, span := m.tracer.Start(ctx, "manager.process")
	defer span.End()

	if done := m.intake(ctx, s); done {
		return s, nil
	}

	plan := m.planRoute(ctx, s)

	if err := m.execute(ctx, s, plan); err != nil {
		span.SetError(err)
		return s, nil
	}

	m.present(s)
	return s, nil
}

// intake implements spec §4.6(a). It returns true if the request was
// incomplete and the Manager already set status=awaiting_user.
func (m *Manager) intake(ctx context.Context, s *state.State) bool {
	now := m.now()
	hasURL := spreadsheetURLPattern.MatchString(s.Query)

	m.logger.Info(ctx, "intake", "session_id", s.SessionID, "file_count", len(s.Files), "has_url", hasURL)

	if !s.HasFiles() && !hasURL && !s.HasQuery() {
		s.PendingUserAction = "Please provide a query, a file, or a link to continue."
		s.SetStatus(state.StatusAwaitingUser, now)
		s.AppendTrace(state.TraceEntry{StageName: "manager", Decision: "intake found no files, url, or query", Severity: state.SeverityWarning, Timestamp: now})
		return true
	}

	s.SetStatus(state.StatusClassifying, now)
	return false
}

// planRoute implements spec §4.6(b).
func (m *Manager) planRoute(ctx context.Context, s *state.State) planner.Plan {
	now := m.now()
	s.SetStatus(state.StatusPlanning, now)

	sel := m.selector.Select("manager")
	plan := m.planner.Plan(ctx, s, m.registry.Names(), sel.Model, sel.Credential, now)

	s.AppendTrace(state.TraceEntry{
		StageName: "manager",
		Decision:  fmt.Sprintf("planned sequence=%v intent=%s confidence=%.2f skipped=%d", plan.Sequence, plan.Intent, plan.Confidence, len(plan.Skipped)),
		Severity:  state.SeverityInfo,
		Timestamp: now,
	})
	s.AppendNarrative(state.NarrativeEntry{StageName: "manager", Message: fmt.Sprintf("Planned %d stage(s) for a %s request", len(plan.Sequence), plan.Intent), Timestamp: now})

	_ = m.broadcaster.Publish(ctx, broadcaster.Event{
		SessionID: s.SessionID,
		Timestamp: now.Unix(),
		Kind:      broadcaster.KindWorkflowStateChange,
		Data:      map[string]any{"sequence": plan.Sequence, "intent": string(plan.Intent), "confidence": plan.Confidence},
	})

	return plan
}

// execute implements spec §4.6(c). It returns a non-nil error only when the
// pipeline halted on a critical failure (the state itself is always mutated
// in place and is the primary channel for reporting what happened).
func (m *Manager) execute(ctx context.Context, s *state.State, plan planner.Plan) error {
	s.SetStatus(state.StatusRunning, m.now())
	total := len(plan.Sequence)

	for i, stageName := range plan.Sequence {
		adapter, ok := m.registry.Get(stageName)
		if !ok {
			s.AppendTrace(state.TraceEntry{StageName: stageName, Decision: "stage not registered, skipping", Severity: state.SeverityWarning, Timestamp: m.now()})
			continue
		}

		sel := m.selector.Select(stageName)
		_ = m.broadcaster.Publish(ctx, broadcaster.Event{
			SessionID: s.SessionID, Timestamp: m.now().Unix(), Kind: broadcaster.KindManagerThinking,
			Data: map[string]any{"stage": stageName, "reason": "next in planned sequence"},
		})
		_ = m.broadcaster.Publish(ctx, broadcaster.Event{
			SessionID: s.SessionID, Timestamp: m.now().Unix(), Kind: broadcaster.KindBrainAllocation,
			Data: map[string]any{"stage": stageName, "model": sel.Model, "credential_source": sel.CredentialSource},
		})

		if !m.ready(s, adapter) {
			s.AppendTrace(state.TraceEntry{StageName: stageName, Decision: "readiness check failed: " + adapter.RequiredInputField() + " missing", Severity: state.SeverityWarning, Timestamp: m.now()})
			continue
		}

		before := s.Snapshot()
		if err := m.invokeStage(ctx, s, adapter); err != nil {
			wrapped := fmt.Sprintf("stage %s: %s", stageName, err.Error())
			s.SetError(wrapped, m.now())
			s.AppendTrace(state.TraceEntry{StageName: stageName, Decision: "adapter invocation failed", Severity: state.SeverityError, Error: wrapped, Timestamp: m.now()})
		}

		_ = m.broadcaster.Publish(ctx, broadcaster.Event{
			SessionID: s.SessionID, Timestamp: m.now().Unix(), Kind: broadcaster.KindAgentSubstep,
			Data: map[string]any{"stage": stageName, "progress": float64(i+1) / float64(total)},
		})

		if s.Error != "" {
			class := classifyError(s.Error)
			if class == classCritical {
				s.SetStatus(state.StatusError, m.now())
				m.metrics.IncCounter("estimo.stage.outcome", 1, "stage", stageName, "outcome", "critical_error")
				return fmt.Errorf("%w: %s", ErrStageNotReady, s.Error)
			}
			s.AppendTrace(state.TraceEntry{StageName: stageName, Decision: "non-critical error cleared, continuing", Severity: state.SeverityInfo, Timestamp: m.now()})
			s.SetError("", m.now())
			m.metrics.IncCounter("estimo.stage.outcome", 1, "stage", stageName, "outcome", "recovered")
		} else {
			m.metrics.IncCounter("estimo.stage.outcome", 1, "stage", stageName, "outcome", "success")
		}

		after := s.Snapshot()
		msg := narrate(stageName, &before, &after)
		s.AppendNarrative(state.NarrativeEntry{StageName: stageName, Message: msg, Timestamp: m.now()})
	}

	return nil
}

// ready implements the readiness check in spec §4.6(c)(3).
func (m *Manager) ready(s *state.State, adapter stages.Adapter) bool {
	field := adapter.RequiredInputField()
	if field == "" {
		return true
	}
	return fieldPresent(s, field)
}

func fieldPresent(s *state.State, field string) bool {
	switch field {
	case "files":
		return s.HasFiles()
	case "parsed_files":
		return s.ParsedFiles != nil
	case "trade_mapping":
		return s.TradeMapping != nil
	case "scope_items":
		return s.ScopeItems != nil
	case "takeoff_data":
		return s.TakeoffData != nil
	case "estimate":
		return s.Estimate != nil
	case "qa_findings":
		return s.QAFindings != nil
	case "external_sheet_id":
		id, _ := s.Metadata["external_sheet_id"].(string)
		return id != ""
	default:
		return false
	}
}

// invokeStage implements spec §4.6(c)(4)/(7): invoke the adapter under a
// per-stage deadline, merge its mutated plain representation back into
// state, and treat a panic or returned error as a stage failure recorded
// into state.error rather than propagated.
func (m *Manager) invokeStage(ctx context.Context, s *state.State, adapter stages.Adapter) (err error) {
	stageCtx, cancel := context.WithTimeout(ctx, m.cfg.StageTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	in := s.ToPlain()
	out, invokeErr := adapter.Invoke(stageCtx, in)
	if invokeErr != nil {
		if errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("stage timed out after %s", m.cfg.StageTimeout)
		}
		return invokeErr
	}

	merged := state.FromPlain(out)
	mergeInto(s, merged)
	return nil
}

// mergeInto copies merged's stage-writable fields into s, so that the Manager's own
// bookkeeping fields (Trace, Narrative, Status, CreatedAt, SessionID, ...)
// survive a stage's round trip through the plain representation unharmed.
func mergeInto(s *state.State, merged *state.State) {
	s.Query = merged.Query
	s.Files = merged.Files
	s.Metadata = merged.Metadata
	s.ModelConfig = merged.ModelConfig
	s.ParsedFiles = merged.ParsedFiles
	s.TradeMapping = merged.TradeMapping
	s.ScopeItems = merged.ScopeItems
	s.TakeoffData = merged.TakeoffData
	s.QAFindings = merged.QAFindings
	s.Estimate = merged.Estimate
	s.ExportedFile = merged.ExportedFile
	if merged.Error != "" {
		s.Error = merged.Error
	}
}

// present implements spec §4.6(e).
func (m *Manager) present(s *state.State) {
	if s.Status == state.StatusError {
		return
	}
	now := m.now()
	s.SetStatus(state.StatusOutputReady, now)

	formats := []string{}
	if s.Estimate != nil {
		formats = append(formats, "json")
	}
	if s.ExportedFile != nil {
		formats = append(formats, s.ExportedFile.MIME)
	}
	s.AppendTrace(state.TraceEntry{StageName: "manager", Decision: fmt.Sprintf("output ready, available formats=%v", formats), Severity: state.SeverityInfo, Timestamp: now})
}
