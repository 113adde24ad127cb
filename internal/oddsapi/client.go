package oddsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/linetracker/internal/config"
	"github.com/liamashdown/linetracker/internal/metrics"
	"github.com/liamashdown/linetracker/internal/ratelimit"
	"github.com/liamashdown/linetracker/internal/schedule"
	"github.com/sirupsen/logrus"
)

const (
	apiName          = "oddsapi"
	historicalOdds   = "historical_odds"
	maxErrorBodySize = 4096
)

// Client fetches historical odds snapshots from The Odds API
type Client struct {
	baseURL    string
	apiKey     string
	sportKey   string
	markets    []string
	regions    string
	oddsFormat string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	log        *logrus.Logger
}

// NewClient creates a new odds provider client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		baseURL:    cfg.OddsAPIBaseURL,
		apiKey:     cfg.OddsAPIKey,
		sportKey:   cfg.SportKey,
		markets:    cfg.Markets,
		regions:    cfg.Regions,
		oddsFormat: cfg.OddsFormat,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    ratelimit.New(cfg.OddsAPIRPS),
		log:        log,
	}
}

// FetchSnapshot fetches the full market snapshot for one capture timestamp.
// Errors are *TransientFetchError or *FatalFetchError; the client never retries.
func (c *Client) FetchSnapshot(ctx context.Context, ts time.Time) (*Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransientFetchError{Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	start := time.Now()
	snap, err := c.fetch(ctx, ts)
	metrics.RecordAPIRequest(apiName, historicalOdds, requestStatus(err), time.Since(start))
	return snap, err
}

func (c *Client) fetch(ctx context.Context, ts time.Time) (*Snapshot, error) {
	u, err := c.snapshotURL(ts)
	if err != nil {
		return nil, &FatalFetchError{Err: fmt.Errorf("parse URL: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FatalFetchError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientFetchError{Err: fmt.Errorf("execute request: %w", redactKey(err, c.apiKey))}
	}
	defer resp.Body.Close()

	quota := parseQuota(resp.Header)
	if quota.Remaining >= 0 {
		metrics.APIQuotaRemaining.Set(float64(quota.Remaining))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, classifyStatus(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransientFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &TransientFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	snap.Raw = body
	snap.Quota = quota

	c.log.WithFields(logrus.Fields{
		"timestamp":          schedule.Format(ts),
		"snapshot_timestamp": snap.Timestamp.UTC().Format(time.RFC3339),
		"events":             len(snap.Data),
		"quota_remaining":    quota.Remaining,
		"quota_used":         quota.Used,
	}).Debug("Fetched historical snapshot")

	return &snap, nil
}

func (c *Client) snapshotURL(ts time.Time) (string, error) {
	u, err := url.Parse(fmt.Sprintf("%s/historical/sports/%s/odds", c.baseURL, url.PathEscape(c.sportKey)))
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("apiKey", c.apiKey)
	q.Set("regions", c.regions)
	q.Set("markets", strings.Join(c.markets, ","))
	q.Set("oddsFormat", c.oddsFormat)
	q.Set("dateFormat", "iso")
	q.Set("date", schedule.Format(ts))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func classifyStatus(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
		if apiErr.ErrorCode != "" {
			msg = apiErr.ErrorCode + ": " + msg
		}
	}
	err := fmt.Errorf("unexpected status %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return &TransientFetchError{StatusCode: status, Err: err}
	case status >= 400:
		return &FatalFetchError{StatusCode: status, Err: err}
	default:
		return &TransientFetchError{StatusCode: status, Err: err}
	}
}

func parseQuota(h http.Header) Quota {
	return Quota{
		Remaining: headerInt(h, "x-requests-remaining"),
		Used:      headerInt(h, "x-requests-used"),
		Last:      headerInt(h, "x-requests-last"),
	}
}

func headerInt(h http.Header, key string) int {
	v := h.Get(key)
	if v == "" {
		return -1
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return -1
	}
	return int(f)
}

func requestStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsFatal(err):
		return "fatal"
	default:
		return "transient"
	}
}

// redactKey keeps the API key out of logged transport errors, which embed
// the request URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %q: %w", urlErr.Op, strings.ReplaceAll(urlErr.URL, key, "REDACTED"), urlErr.Err)
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}
