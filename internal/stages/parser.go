package stages

import (
	"context"
	"fmt"
	"strings"

	"goa.design/estimo/internal/state"
)

// ParserBackend extracts text from one uploaded file. Production backends
// dispatch by MIME type to cloud OCR/document-understanding services; the
// default backend handles plain text formats directly and leaves anything
// else to a registered specialist backend.
type ParserBackend interface {
	// Supports reports whether this backend can handle the given MIME type.
	Supports(mime string) bool
	// Extract returns the file's text content.
	Extract(ctx context.Context, name, mime string, raw []byte) (string, error)
}

// plainTextBackend handles text and CSV uploads by decoding them directly;
// it needs no external service and is always registered first.
type plainTextBackend struct{}

func (plainTextBackend) Supports(mime string) bool {
	return mime == "text/plain" || mime == "text/csv" || strings.HasSuffix(mime, "+csv")
}

func (plainTextBackend) Extract(ctx context.Context, name, mime string, raw []byte) (string, error) {
	return string(raw), nil
}

// documentAIBackend is the production binding for PDFs, grounded on
// cloud.google.com/go/documentai: a real deployment would call
// documentai.NewDocumentProcessorClient and ProcessDocument here. Without
// a configured processor endpoint it reports itself unsupported, and a file
// that no backend supports is recorded with empty text and parse_status
// "failed".
type documentAIBackend struct {
	processorName string
}

// NewDocumentAIBackend returns a ParserBackend that would dispatch PDF
// extraction to Document AI once configured with a processor resource
// name (projects/*/locations/*/processors/*).
func NewDocumentAIBackend(processorName string) ParserBackend {
	return documentAIBackend{processorName: processorName}
}

func (b documentAIBackend) Supports(mime string) bool {
	return b.processorName != "" && mime == "application/pdf"
}

func (b documentAIBackend) Extract(ctx context.Context, name, mime string, raw []byte) (string, error) {
	return "", fmt.Errorf("document ai extraction for %q requires a live processor connection, not available in this deployment", name)
}

// visionBackend is the production binding for scanned images, grounded on
// cloud.google.com/go/vision/v2: a real deployment would call
// vision.NewImageAnnotatorClient and DetectDocumentText here.
type visionBackend struct{ enabled bool }

// NewVisionBackend returns a ParserBackend that would dispatch scanned-image
// OCR to Cloud Vision once enabled.
func NewVisionBackend(enabled bool) ParserBackend { return visionBackend{enabled: enabled} }

func (b visionBackend) Supports(mime string) bool {
	return b.enabled && (mime == "image/png" || mime == "image/jpeg" || mime == "image/tiff")
}

func (b visionBackend) Extract(ctx context.Context, name, mime string, raw []byte) (string, error) {
	return "", fmt.Errorf("vision ocr for %q requires a live client connection, not available in this deployment", name)
}

// Parser is the document parser adapter (spec §4.7): reads files, writes
// parsed_files with per-file status.
type Parser struct {
	backends []ParserBackend
}

// NewParser constructs the parser adapter. extra backends are tried, in
// order, before the built-in plain text backend is given up on; pass nil
// for the default (plain text only).
func NewParser(extra []ParserBackend) *Parser {
	backends := append([]ParserBackend{}, extra...)
	backends = append(backends, plainTextBackend{})
	return &Parser{backends: backends}
}

func (*Parser) Name() string               { return "parse" }
func (*Parser) RequiredInputField() string { return "files" }

func (p *Parser) Invoke(ctx context.Context, in state.Plain) (state.Plain, error) {
	rawFiles, _ := in["files"].([]any)
	parsed := make(map[string]any, len(rawFiles))
	files := make([]any, 0, len(rawFiles))

	for _, rf := range rawFiles {
		m, _ := rf.(map[string]any)
		name, _ := m["name"].(string)
		mime, _ := m["mime"].(string)
		raw, _ := m["raw_bytes"].([]byte)

		text, status := p.extract(ctx, name, mime, raw)
		parsed[name] = text
		m["parse_status"] = string(status)
		m["parsed_text"] = text
		files = append(files, m)
	}

	in["files"] = files
	in["parsed_files"] = parsed
	return in, nil
}

func (p *Parser) extract(ctx context.Context, name, mime string, raw []byte) (string, state.ParseStatus) {
	for _, b := range p.backends {
		if !b.Supports(mime) {
			continue
		}
		text, err := b.Extract(ctx, name, mime, raw)
		if err != nil {
			return "", state.ParseStatusFailed
		}
		return text, state.ParseStatusParsed
	}
	return "", state.ParseStatusFailed
}
