package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/report"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeZIP  = "application/zip"
)

// Encoder turns report data into a single artifact.
type Encoder interface {
	Encode(ctx context.Context, data *report.ReportData) (*report.Artifact, error)
}

// FormatEncoder dispatches to the encoder configured for each format. BOTH
// produces one zip archive holding the document and the spreadsheet.
type FormatEncoder struct {
	document    Encoder
	spreadsheet Encoder
}

func NewFormatEncoder(document, spreadsheet Encoder) *FormatEncoder {
	return &FormatEncoder{document: document, spreadsheet: spreadsheet}
}

// NewDefaultEncoder wires the PDF and XLSX encoders.
func NewDefaultEncoder() *FormatEncoder {
	return NewFormatEncoder(NewPDFEncoder(), NewXLSXEncoder())
}

func (e *FormatEncoder) Encode(ctx context.Context, data *report.ReportData, format models.Format) (*report.Artifact, error) {
	switch format {
	case models.FormatDocument:
		return e.document.Encode(ctx, data)
	case models.FormatSpreadsheet:
		return e.spreadsheet.Encode(ctx, data)
	case models.FormatBoth:
		doc, err := e.document.Encode(ctx, data)
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sheet, err := e.spreadsheet.Encode(ctx, data)
		if err != nil {
			return nil, err
		}
		return Bundle(BaseName(data)+".zip", doc, sheet)
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// BaseName builds a file name stem such as period-summary-2025-03.
func BaseName(data *report.ReportData) string {
	kind := strings.ToLower(strings.ReplaceAll(string(data.Type), "_", "-"))
	return kind + "-" + data.Period.Label()
}
