// Package router implements the Specialized Router Entry Points (spec
// §4.9): the three user-action shapes (plain message, file-selection
// submission, URL paste) that prepare a Shared State before handing it to
// the Manager.
package router

import (
	"context"
	"regexp"
	"strings"
	"time"

	"goa.design/estimo/internal/llmclient"
	"goa.design/estimo/internal/manager"
	"goa.design/estimo/internal/smartsheet"
	"goa.design/estimo/internal/state"
)

// domainTokens are the construction-domain tokens that push a plain
// message toward the full pipeline even when it's short (spec §4.9.1).
var domainTokens = []string{"estimate", "cost", "pricing", "bid", "budget", "takeoff", "scope", "trade"}

// fileSelectionMarkerPattern detects a file-selection submission embedded
// in a plain message (e.g. "files: 1,3,5" or "analyze all").
var fileSelectionMarkerPattern = regexp.MustCompile(`(?i)\b(analyze all|files?:\s*[\d,\s-]+)\b`)

var spreadsheetURLPattern = regexp.MustCompile(`(?i)https?://[^\s]*smartsheet\.com/[^\s]*`)

// shortMessageTokenThreshold is the "~10 tokens" heuristic spec §4.9.1 names.
const shortMessageTokenThreshold = 10

// Router implements the three entry points and converges them on Manager.Process.
type Router struct {
	manager   *manager.Manager
	llm       llmclient.Caller
	smartsheet smartsheet.RegexValidator
}

// New constructs a Router.
func New(m *manager.Manager, llm llmclient.Caller) *Router {
	return &Router{manager: m, llm: llm, smartsheet: smartsheet.NewRegexValidator()}
}

// PlainMessage implements spec §4.9.1: a free-text chat message. If the
// heuristic says this needs the full pipeline, a State is built and handed
// to the Manager; otherwise a direct model completion is returned without
// invoking the Manager at all.
func (r *Router) PlainMessage(ctx context.Context, sessionID, userID, message, model, credential string) (*state.State, string, error) {
	now := time.Now()

	if needsFullPipeline(message) {
		s := state.New(sessionID, userID, now)
		s.Query = message
		out, err := r.manager.Process(ctx, s)
		return out, "", err
	}

	text, err := r.llm.Complete(ctx, llmclient.CompleteRequest{Prompt: message, Model: model, Credential: credential, StageName: "manager"})
	return nil, text, err
}

// needsFullPipeline implements the spec §4.9.1 heuristic.
func needsFullPipeline(message string) bool {
	if spreadsheetURLPattern.MatchString(message) {
		return true
	}
	if fileSelectionMarkerPattern.MatchString(message) {
		return true
	}
	lower := strings.ToLower(message)
	for _, tok := range domainTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return len(strings.Fields(message)) > shortMessageTokenThreshold
}

// FileSelection implements spec §4.9.2: a file-selection submission. The
// state's Files are narrowed to the selected files; the raw selection text
// and the names of all available files are attached to state metadata
// before the Manager runs.
func (r *Router) FileSelection(ctx context.Context, sessionID, userID, query, selectionText string, availableFiles []state.File) (*state.State, error) {
	now := time.Now()
	s := state.New(sessionID, userID, now)
	s.Query = query
	s.Files = availableFiles

	names := make([]string, len(availableFiles))
	for i, f := range availableFiles {
		names[i] = f.Name
	}
	selectedIndices := ParseSelection(selectionText, names)

	selected := make([]state.File, 0, len(selectedIndices))
	for _, idx := range selectedIndices {
		if idx >= 0 && idx < len(availableFiles) {
			selected = append(selected, availableFiles[idx])
		}
	}
	s.Files = selected

	s.Metadata["file_selection"] = selectionText
	s.Metadata["available_files"] = names

	return r.manager.Process(ctx, s)
}

// URLPaste implements spec §4.9.3: a structured trigger carrying an
// external spreadsheet URL. The URL is routed into the query (the intent
// classifier's pattern pass matches the smartsheet URL shape directly
// against state.Query, spec §4.4 step 1), the sheet ID is extracted and
// attached to state metadata, and the Manager runs. An invalid URL returns
// an error without invoking the Manager.
func (r *Router) URLPaste(ctx context.Context, sessionID, userID, query, url string) (*state.State, error) {
	if !r.smartsheet.ValidateURL(url) {
		return nil, errInvalidSmartsheetURL(url)
	}
	sheetID, _ := r.smartsheet.ExtractSheetID(url)

	now := time.Now()
	s := state.New(sessionID, userID, now)
	s.Query = strings.TrimSpace(query + " " + url)
	s.Metadata["external_sheet_id"] = sheetID
	s.Metadata["source_url"] = url

	return r.manager.Process(ctx, s)
}
