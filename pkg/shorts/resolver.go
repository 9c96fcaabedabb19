package shorts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	youtube "github.com/kkdai/youtube/v2"
)

// ErrNoFormat means no progressive format satisfied the selection policy.
var ErrNoFormat = errors.New("no such format found")

// StreamCandidate is one selected playable format for a video.
type StreamCandidate struct {
	Video  *youtube.Video
	Format youtube.Format
}

// VideoID returns the id of the underlying video.
func (c StreamCandidate) VideoID() string {
	return c.Video.ID
}

// ReportedSize returns the provider-reported payload size in bytes, zero
// when the provider did not report one.
func (c StreamCandidate) ReportedSize() int64 {
	return c.Format.ContentLength
}

// Resolver selects a progressive stream for a video.
type Resolver struct {
	client    youtube.Client
	qualities []string
	log       *slog.Logger
}

// NewResolver builds a resolver preferring the given quality labels in
// order before falling back to the highest-bitrate progressive format.
func NewResolver(httpClient *http.Client, qualities []string, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}

	return &Resolver{
		client:    youtube.Client{HTTPClient: httpClient},
		qualities: qualities,
		log:       log.With("component", "shorts.resolver"),
	}
}

// Resolve fetches the format list for a reference and applies the
// selection policy.
func (r *Resolver) Resolve(ctx context.Context, ref VideoReference) (StreamCandidate, error) {
	video, err := r.client.GetVideoContext(ctx, ref.VideoID)
	if err != nil {
		return StreamCandidate{}, fmt.Errorf("fetch video info for %s: %w", ref.VideoID, err)
	}

	format, err := selectFormat(video.Formats, r.qualities)
	if err != nil {
		return StreamCandidate{}, err
	}

	r.log.Debug("Selected format",
		"video_id", ref.VideoID,
		"quality", format.QualityLabel,
		"bitrate", format.Bitrate,
		"reported_bytes", format.ContentLength,
	)

	return StreamCandidate{Video: video, Format: format}, nil
}

// OpenStream dereferences the candidate and returns the payload reader
// along with the provider-reported stream size.
func (r *Resolver) OpenStream(ctx context.Context, candidate StreamCandidate) (io.ReadCloser, int64, error) {
	stream, size, err := r.client.GetStreamContext(ctx, candidate.Video, &candidate.Format)
	if err != nil {
		return nil, 0, fmt.Errorf("open video stream for %s: %w", candidate.VideoID(), err)
	}

	return stream, size, nil
}

// selectFormat picks exactly one format: the first preferred quality label
// present wins, otherwise the highest-bitrate progressive format. Formats
// without an audio track are never considered.
func selectFormat(formats youtube.FormatList, qualities []string) (youtube.Format, error) {
	candidates := make([]youtube.Format, 0, len(formats))
	for _, f := range formats.WithAudioChannels() {
		if !strings.HasPrefix(f.MimeType, "video/mp4") {
			continue
		}
		if f.QualityLabel == "" || f.AudioQuality == "" {
			continue
		}
		candidates = append(candidates, f)
	}

	if len(candidates) == 0 {
		return youtube.Format{}, ErrNoFormat
	}

	for _, label := range qualities {
		for _, f := range candidates {
			if f.QualityLabel == label {
				return f, nil
			}
		}
	}

	best := candidates[0]
	for _, f := range candidates[1:] {
		if f.Bitrate > best.Bitrate {
			best = f
		}
	}

	return best, nil
}
