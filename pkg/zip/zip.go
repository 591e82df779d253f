// Package zip bundles in-memory files into a single archive.
package zip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"time"
)

// ErrNoAssets is returned when there is nothing to archive.
var ErrNoAssets = errors.New("zip: no assets")

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes every non-empty asset with the given modification
// time. PNG and JPEG payloads are stored, everything else is deflated.
func ArchiveAssets(assets []Asset, modified time.Time) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	written := 0
	for _, asset := range assets {
		if len(asset.Data) == 0 || asset.Filename == "" {
			continue
		}
		hdr := &zip.FileHeader{
			Name:     asset.Filename,
			Method:   methodFor(asset.MIME),
			Modified: modified,
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("zip: create %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write %s: %w", asset.Filename, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: close: %w", err)
	}
	if written == 0 {
		return nil, ErrNoAssets
	}
	return buf.Bytes(), nil
}

func methodFor(mime string) uint16 {
	switch mime {
	case "image/png", "image/jpeg", "image/webp":
		return zip.Store
	}
	return zip.Deflate
}
