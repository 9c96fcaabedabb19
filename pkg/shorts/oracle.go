package shorts

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultOracleTimeout = 5 * time.Second

// HTTPOracle probes youtube.com/shorts/<id> without following redirects.
// YouTube answers 200 for an actual Shorts video and redirects to the
// regular /watch page for everything else.
type HTTPOracle struct {
	client  *http.Client
	baseURL string
}

func NewHTTPOracle(client *http.Client) *HTTPOracle {
	if client == nil {
		client = &http.Client{Timeout: defaultOracleTimeout}
	}

	probe := *client
	probe.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &HTTPOracle{
		client:  &probe,
		baseURL: "https://www.youtube.com",
	}
}

func (o *HTTPOracle) IsShorts(ctx context.Context, videoID string) (bool, error) {
	probeURL := o.baseURL + "/shorts/" + url.PathEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false, fmt.Errorf("build shorts probe request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("probe shorts url: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
