// Package state defines the typed Shared State Object threaded through every
// stage of a single estimation request. One State is created per request by
// a router entry point, mutated in place by the Manager and the stage
// adapters it invokes, and discarded once the response has been rendered;
// persistence, if any, lives outside this package.
package state

import (
	"sync"
	"time"
)

// Status is the lifecycle stage of a request as tracked by the Manager.
type Status string

const (
	// StatusReceived is the initial status assigned at intake, before the
	// intent classifier has run.
	StatusReceived Status = "received"
	// StatusClassifying indicates the Manager has handed the state to the
	// intent classifier.
	StatusClassifying Status = "classifying"
	// StatusPlanning indicates the route planner is deriving a stage sequence.
	StatusPlanning Status = "planning"
	// StatusRunning indicates the Manager is executing the planned sequence.
	StatusRunning Status = "running"
	// StatusAwaitingUser indicates the Manager paused and needs more input
	// from the caller before it can proceed. PendingUserAction explains why.
	StatusAwaitingUser Status = "awaiting_user"
	// StatusOutputReady indicates the planned sequence completed without a
	// critical failure and the state carries user-presentable output.
	StatusOutputReady Status = "output_ready"
	// StatusError indicates the Manager halted on a critical failure.
	StatusError Status = "error"
)

// Role identifies the speaker of a conversation turn.
type Role string

// Roles recognized in History.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Severity classifies a TraceEntry.
type Severity string

// Severities recognized in Trace.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseStatus reports whether a File was successfully parsed by the document
// parser stage.
type ParseStatus string

// ParseStatus values.
const (
	ParseStatusPending ParseStatus = "pending"
	ParseStatusParsed  ParseStatus = "parsed"
	ParseStatusFailed  ParseStatus = "failed"
)

type (
	// File is one document or spreadsheet attached to the request.
	File struct {
		// Name is the original filename, including extension.
		Name string
		// MIME is the declared or sniffed content type.
		MIME string
		// RawBytes holds the unparsed upload. Empty once the caller only has
		// a reference to external storage (not modeled here; out of scope).
		RawBytes []byte
		// ParsedText is the document parser's extracted text, empty until the
		// parser stage runs.
		ParsedText string
		// ParseStatus reports whether parsing has happened and succeeded.
		ParseStatus ParseStatus
		// Attributes carries parser-specific annotations (page count, sheet
		// names, detected language, ...). Open map: the set of attributes
		// legitimately varies per file type and parser backend.
		Attributes map[string]string
	}

	// ModelConfig records the model and credential selected for the stage
	// currently running, plus the usage and cost it produced.
	ModelConfig struct {
		ModelName      string
		Credential     string
		Params         map[string]any
		TokenUsage     TokenUsage
		CostEstimate   float64
	}

	// TokenUsage is a running token count for one model call.
	TokenUsage struct {
		Prompt     int
		Completion int
		Total      int
	}

	// HistoryTurn is one entry in the conversation transcript.
	HistoryTurn struct {
		Role      Role
		Content   string
		Timestamp time.Time
	}

	// TraceEntry is one append-only decision record written by a stage or by
	// the Manager itself. Trace is the audit trail: every routing decision,
	// skip, fallback, and failure the orchestrator makes gets one of these.
	TraceEntry struct {
		StageName string
		Decision  string
		ModelUsed string
		Severity  Severity
		Error     string
		Timestamp time.Time
	}

	// NarrativeEntry is one append-only human-facing progress sentence.
	NarrativeEntry struct {
		StageName string
		Message   string
		Timestamp time.Time
	}

	// TradeMapping is one construction trade identified in the parsed files.
	TradeMapping struct {
		TradeName    string
		DivisionCode string
		Keywords     []string
		SourceFile   string
		Confidence   float64
	}

	// ScopeItem is one line of work extracted for a trade.
	ScopeItem struct {
		ItemID       string
		TradeName    string
		DivisionCode string
		Description  string
		SourceFile   string
		WorkType     string
		UnitHint     string
	}

	// TakeoffEntry is the quantity and unit determined for one scope item.
	TakeoffEntry struct {
		ScopeItemID  string
		DivisionCode string
		Quantity     float64
		Unit         string
		Method       string
		SourceFile   string
	}

	// QAFinding is one validation issue raised against the estimate.
	QAFinding struct {
		ItemID      string
		FindingType string
		Message     string
		Severity    Severity
	}

	// EstimateItem is one priced line of the final estimate.
	EstimateItem struct {
		ID           string
		Description  string
		Quantity     float64
		Unit         string
		UnitPrice    float64
		Total        float64
		DivisionCode string
		Notes        string
	}

	// ExportedFile is the rendered estimate in an external format.
	ExportedFile struct {
		Bytes []byte
		Name  string
		MIME  string
	}

	// State is the single typed object threaded through every stage of one
	// request. Its zero value is not useful; construct with New.
	//
	// State guards its own mutation methods with a mutex even though the
	// concurrency model (see the manager package) guarantees only one stage
	// owns the state at a time: a broadcaster goroutine may still take a
	// read-only snapshot (for a workflow_state_change event, say) while the
	// Manager is between stages.
	State struct {
		mu sync.Mutex

		Query    string
		Files    []File
		Metadata map[string]any

		ModelConfig ModelConfig
		History     []HistoryTurn
		Trace       []TraceEntry
		Narrative   []NarrativeEntry

		ParsedFiles  map[string]string
		TradeMapping []TradeMapping
		ScopeItems   []ScopeItem
		TakeoffData  []TakeoffEntry
		QAFindings   []QAFinding
		Estimate     []EstimateItem
		ExportedFile *ExportedFile

		Status            Status
		PendingUserAction string
		Error             string

		CreatedAt time.Time
		UpdatedAt time.Time

		SessionID string
		UserID    string
	}
)

// New constructs a State with empty-container defaults for every field
// except the output fields, which default to nil/empty to represent "not
// yet produced" per the freshness contract the route planner relies on.
func New(sessionID, userID string, now time.Time) *State {
	return &State{
		Files:     []File{},
		Metadata:  map[string]any{},
		History:   []HistoryTurn{},
		Trace:     []TraceEntry{},
		Narrative: []NarrativeEntry{},
		Status:    StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
		SessionID: sessionID,
		UserID:    userID,
	}
}

// Touch updates UpdatedAt. Every mutating method on State calls this so the
// "every mutation updates updated_at" invariant holds without requiring
// callers to remember it.
func (s *State) Touch(now time.Time) {
	s.UpdatedAt = now
}

// AppendTrace appends a TraceEntry. Trace is append-only: no method exists to
// rewrite or remove an entry.
func (s *State) AppendTrace(entry TraceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trace = append(s.Trace, entry)
	s.Touch(entry.Timestamp)
}

// AppendNarrative appends a NarrativeEntry. Narrative is append-only.
func (s *State) AppendNarrative(entry NarrativeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Narrative = append(s.Narrative, entry)
	s.Touch(entry.Timestamp)
}

// SetStatus transitions the status field and touches UpdatedAt.
func (s *State) SetStatus(status Status, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
	s.Touch(now)
}

// SetError records a stage or manager failure. Clearing the error (empty
// msg) is how a stage signals it handled a prior, now-stale error so the
// Manager does not mistake it for a fresh one (see spec boundary behavior on
// stale errors).
func (s *State) SetError(msg string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Error = msg
	s.Touch(now)
}

// Snapshot returns a shallow copy of the state taken under the state's
// lock (used by the Manager to compare a stage's before and after state
// when writing its narrative entry).
func (s *State) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s
	cp.mu = sync.Mutex{}
	return cp
}

// HasFiles reports whether any file is attached to the request.
func (s *State) HasFiles() bool { return len(s.Files) > 0 }

// HasQuery reports whether a non-blank query string is present.
func (s *State) HasQuery() bool { return trimmedNonEmpty(s.Query) }

func trimmedNonEmpty(v string) bool {
	for _, r := range v {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}
