package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jusunglee/ciphertrack-go/internal/models"
)

// DefaultUpstreamURL is the live-status endpoint; {id} is replaced by the train number
const DefaultUpstreamURL = "https://rappid.in/apis/train.php?train_no={id}"

// DefaultProxyURL wraps the upstream response in a {"contents": "..."} envelope
const DefaultProxyURL = "https://api.allorigins.win/get"

// Fetcher retrieves live snapshots for a train. It performs exactly one request
// per call and keeps no state between calls.
type Fetcher struct {
	upstreamURL string
	proxyURL    string
	httpClient  *http.Client
}

// NewFetcher creates a new snapshot fetcher.
// An empty proxyURL requests the upstream directly and expects the bare payload.
func NewFetcher(upstreamURL, proxyURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		upstreamURL: upstreamURL,
		proxyURL:    proxyURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the current snapshot for entityID or a *FetchError
func (f *Fetcher) Fetch(ctx context.Context, entityID string) (*models.Snapshot, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return nil, newError(ErrNotFound, entityID, fmt.Errorf("empty train number"))
	}

	body, err := f.fetchFeed(ctx, f.requestURL(entityID))
	if err != nil {
		return nil, newError(ErrNetwork, entityID, err)
	}

	doc := body
	if f.proxyURL != "" {
		env, err := unwrapEnvelope(body)
		if err != nil {
			return nil, newError(ErrMalformed, entityID, err)
		}
		if code := env.Status.HTTPCode; code != 0 && (code < 200 || code > 299) {
			return nil, newError(ErrNetwork, entityID, fmt.Errorf("upstream HTTP %d", code))
		}
		if env.Contents == nil || strings.TrimSpace(*env.Contents) == "" {
			return nil, newError(ErrMalformed, entityID, fmt.Errorf("empty envelope contents"))
		}
		doc = []byte(*env.Contents)
	}

	var p payload
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, newError(ErrMalformed, entityID, fmt.Errorf("failed to parse payload: %w", err))
	}
	if strings.TrimSpace(string(p.TrainNumber)) == "" && strings.TrimSpace(p.TrainName) == "" {
		return nil, newError(ErrNotFound, entityID, nil)
	}

	return p.toSnapshot(), nil
}

func (f *Fetcher) requestURL(entityID string) string {
	target := strings.ReplaceAll(f.upstreamURL, "{id}", url.QueryEscape(entityID))
	if f.proxyURL == "" {
		return target
	}

	sep := "?"
	if strings.Contains(f.proxyURL, "?") {
		sep = "&"
	}
	return f.proxyURL + sep + "url=" + url.QueryEscape(target)
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

type envelope struct {
	Contents *string `json:"contents"`
	Status   struct {
		HTTPCode int `json:"http_code"`
	} `json:"status"`
}

func unwrapEnvelope(body []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	return &env, nil
}
