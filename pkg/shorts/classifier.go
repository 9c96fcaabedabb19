// Package shorts validates YouTube Shorts links and resolves playable
// streams for them.
package shorts

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	youtube "github.com/kkdai/youtube/v2"
)

// VideoReference identifies one validated Shorts video.
type VideoReference struct {
	VideoID   string
	SourceURL string
}

var urlRe = regexp.MustCompile(`https?://\S+`)

var (
	// ErrNoURL means the message text contains no http(s) URL at all.
	ErrNoURL = errors.New("no url in message")
	// ErrNotAVideo means the URL does not carry a YouTube video id.
	ErrNotAVideo = errors.New("url does not reference a youtube video")
	// ErrNotShorts means the video exists but is not a Shorts-form video.
	ErrNotShorts = errors.New("video is not a shorts video")
)

// OracleError wraps an oracle transport failure so callers can tell it
// apart from a clean negative verdict in logs.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("shorts oracle unavailable: %v", e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Oracle decides whether a video id belongs to a Shorts-form video.
type Oracle interface {
	IsShorts(ctx context.Context, videoID string) (bool, error)
}

// Classifier extracts a video reference from free-form message text and
// confirms it points at a Shorts video.
type Classifier struct {
	oracle Oracle
}

func NewClassifier(oracle Oracle) *Classifier {
	return &Classifier{oracle: oracle}
}

// Classify returns the validated reference, or one of ErrNoURL,
// ErrNotAVideo, ErrNotShorts, or an OracleError.
func (c *Classifier) Classify(ctx context.Context, text string) (VideoReference, error) {
	rawURL := urlRe.FindString(text)
	if rawURL == "" {
		return VideoReference{}, ErrNoURL
	}

	videoID, err := youtube.ExtractVideoID(rawURL)
	if err != nil || videoID == "" {
		return VideoReference{}, fmt.Errorf("%w: %s", ErrNotAVideo, rawURL)
	}

	isShorts, err := c.oracle.IsShorts(ctx, videoID)
	if err != nil {
		return VideoReference{}, &OracleError{Err: err}
	}
	if !isShorts {
		return VideoReference{}, fmt.Errorf("%w: %s", ErrNotShorts, videoID)
	}

	return VideoReference{VideoID: videoID, SourceURL: rawURL}, nil
}
