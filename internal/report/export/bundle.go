package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/ledgerly/reportflow/internal/report"
)

// Bundle packs artifacts into a single zip archive.
func Bundle(name string, artifacts ...*report.Artifact) (*report.Artifact, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, a := range artifacts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     a.FileName,
			Method:   zip.Deflate,
			Modified: time.Now().UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", a.FileName, err)
		}
		if _, err := w.Write(a.Data); err != nil {
			return nil, fmt.Errorf("failed to add %s to archive: %w", a.FileName, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	return &report.Artifact{
		FileName:    name,
		ContentType: ContentTypeZIP,
		Data:        buf.Bytes(),
	}, nil
}
