// Package smartsheet defines the external spreadsheet client contract
// (spec §1 "external spreadsheet integration client", request/response
// shapes only) and the one piece of it the Router performs directly:
// URL validation and sheet-ID extraction (spec §4.9.3).
package smartsheet

import "context"

// Attachment is a file attached to a remote sheet.
type Attachment struct {
	ID   string
	Name string
	MIME string
}

// Row is one row of data to upload to a remote sheet.
type Row struct {
	Cells map[string]any
}

// Client is the external spreadsheet integration contract. Only its shape
// is specified (spec §1); no transport implementation lives in this
// module.
type Client interface {
	ValidateURL(url string) bool
	ExtractSheetID(url string) (string, bool)
	ListAttachments(ctx context.Context, sheetID string) ([]Attachment, error)
	DownloadAttachment(ctx context.Context, sheetID, attachmentID string) ([]byte, error)
	UploadRows(ctx context.Context, sheetID string, rows []Row) error
	ExportSheet(ctx context.Context, sheetID string, format string) ([]byte, error)
}
