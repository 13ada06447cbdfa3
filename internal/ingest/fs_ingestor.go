package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/notafiscal/constants"
	"github.com/joseph-ayodele/notafiscal/internal/entity"
)

// FSIngestor reads NF-e documents from the local filesystem.
type FSIngestor struct {
	logger   *slog.Logger
	maxBytes int64 // 0 -> unlimited
}

type FSOption func(*FSIngestor)

// WithMaxBytes rejects files larger than n bytes.
func WithMaxBytes(n int64) FSOption {
	return func(i *FSIngestor) {
		if n > 0 {
			i.maxBytes = n
		}
	}
}

func NewFSIngestor(logger *slog.Logger, opts ...FSOption) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	i := &FSIngestor{logger: logger}
	for _, o := range opts {
		o(i)
	}
	return i
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	out := IngestionResult{
		SourcePath: path,
		Document:   entity.Document{Name: filepath.Base(path)},
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.unsupported_ext", "path", path, "ext", ext)
		return out, fmt.Errorf("unsupported or missing extension %q", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		i.logger.Error("ingest.open_failed", "path", path, "error", err)
		return out, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.close_failed", "path", path, "error", err)
		}
	}(f)

	var src io.Reader = f
	if i.maxBytes > 0 {
		src = io.LimitReader(f, i.maxBytes+1)
	}

	var buf bytes.Buffer
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(&buf, h), src)
	if err != nil {
		i.logger.Error("ingest.read_failed", "path", path, "error", err)
		return out, fmt.Errorf("read: %w", err)
	}
	if i.maxBytes > 0 && n > i.maxBytes {
		return out, fmt.Errorf("file exceeds %d bytes", i.maxBytes)
	}

	out.Document.Data = buf.Bytes()
	out.HashHex = hex.EncodeToString(h.Sum(nil))
	out.Size = n
	out.ReadAt = time.Now().UTC()
	i.logger.Debug("ingest.file.ok", "path", path, "bytes", n, "sha256", out.HashHex)
	return out, nil
}
