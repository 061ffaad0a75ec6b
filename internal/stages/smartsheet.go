package stages

import (
	"context"
	"fmt"

	"goa.design/estimo/internal/smartsheet"
	"goa.design/estimo/internal/state"
)

// SmartsheetAdapter implements the smartsheet_integration stage (spec §4.5
// scenario 5, §1): it resolves metadata.external_sheet_id against the
// external spreadsheet client and records what it finds so the remaining
// pipeline stages can run against the sheet's attachments the same way they
// would against directly-uploaded files. client may be nil, in which case
// the adapter only confirms the sheet ID is present and records that no
// transport is configured, rather than failing the stage outright.
type SmartsheetAdapter struct {
	client smartsheet.Client
}

// NewSmartsheetAdapter constructs the smartsheet adapter. Pass nil for
// client when no transport implementation is wired yet.
func NewSmartsheetAdapter(client smartsheet.Client) *SmartsheetAdapter {
	return &SmartsheetAdapter{client: client}
}

func (*SmartsheetAdapter) Name() string               { return "smartsheet_integration" }
func (*SmartsheetAdapter) RequiredInputField() string { return "external_sheet_id" }

func (a *SmartsheetAdapter) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	metadata, _ := in["metadata"].(map[string]any)
	if metadata == nil {
		return nil, fmt.Errorf("smartsheet_integration: metadata missing")
	}
	sheetID, _ := metadata["external_sheet_id"].(string)
	if sheetID == "" {
		return nil, fmt.Errorf("smartsheet_integration: metadata.external_sheet_id missing")
	}

	if a.client == nil {
		metadata["smartsheet_status"] = "sheet id recorded, no transport configured"
		in["metadata"] = metadata
		return in, nil
	}

	attachments, err := a.client.ListAttachments(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("smartsheet_integration: list attachments: %w", err)
	}

	files, _ := in["files"].([]any)
	for _, att := range attachments {
		files = append(files, map[string]any{
			"name":                att.Name,
			"mime":                att.MIME,
			"smartsheet_attachment_id": att.ID,
		})
	}
	in["files"] = files
	metadata["smartsheet_status"] = fmt.Sprintf("fetched %d attachment(s)", len(attachments))
	in["metadata"] = metadata
	return in, nil
}
