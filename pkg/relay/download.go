package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/losparviero/telesh/pkg/shorts"
)

// ErrPayloadTooLarge means the stream exceeds the upload ceiling.
var ErrPayloadTooLarge = errors.New("payload exceeds upload ceiling")

// DownloadResult is one fetched payload on local disk. It is owned by the
// pipeline invocation that created it and must not outlive its cleanup.
type DownloadResult struct {
	Path string
	Size int64

	cleanupOnce sync.Once
}

// Cleanup removes the temporary payload. Safe to call more than once; the
// file is removed exactly once.
func (d *DownloadResult) Cleanup(log *slog.Logger) {
	d.cleanupOnce.Do(func() {
		if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove temporary payload", "path", d.Path, "error", err)
		}
	})
}

// fetch streams the candidate into a scoped temporary file, aborting the
// transfer as soon as the upload ceiling is passed.
func (p *Pipeline) fetch(ctx context.Context, candidate shorts.StreamCandidate) (*DownloadResult, error) {
	stream, reportedSize, err := p.resolver.OpenStream(ctx, candidate)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if reportedSize > p.maxBytes {
		return nil, fmt.Errorf("%w: provider reports %d bytes", ErrPayloadTooLarge, reportedSize)
	}

	path := filepath.Join(p.tempDir, uuid.NewString()+".mp4")
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create temporary payload: %w", err)
	}

	written, copyErr := io.Copy(file, io.LimitReader(stream, p.maxBytes+1))
	closeErr := file.Close()

	if copyErr != nil {
		removeQuietly(path, p.log)
		return nil, fmt.Errorf("download stream: %w", copyErr)
	}
	if closeErr != nil {
		removeQuietly(path, p.log)
		return nil, fmt.Errorf("flush temporary payload: %w", closeErr)
	}
	if written > p.maxBytes {
		removeQuietly(path, p.log)
		return nil, fmt.Errorf("%w: transfer passed %d bytes, aborted", ErrPayloadTooLarge, p.maxBytes)
	}

	return &DownloadResult{Path: path, Size: written}, nil
}

func removeQuietly(path string, log *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove partial payload", "path", path, "error", err)
	}
}
