package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

// TelemetryClient queries a Datadog-compatible log/metrics API for incident
// evidence. All calls carry the configured bounded timeout via the underlying
// http.Client; a timeout surfaces as a KindUnavailable error.
type TelemetryClient struct {
	baseURL    string
	apiKey     string
	appKey     string
	searchPath string
	spansPath  string
	topN       int
	httpClient *http.Client
}

// TelemetryConfig collects the live telemetry connection settings.
type TelemetryConfig struct {
	BaseURL    string
	APIKey     string
	AppKey     string
	SearchPath string
	SpansPath  string
	Timeout    time.Duration
	TopN       int
}

// NewTelemetryClient constructs a client for the configured telemetry API.
func NewTelemetryClient(cfg TelemetryConfig) *TelemetryClient {
	if cfg.SearchPath == "" {
		cfg.SearchPath = "/api/v2/logs/events/search"
	}
	if cfg.SpansPath == "" {
		cfg.SpansPath = "/api/v2/spans/events/search"
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &TelemetryClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		appKey:     cfg.AppKey,
		searchPath: cfg.SearchPath,
		spansPath:  cfg.SpansPath,
		topN:       cfg.TopN,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Mode identifies this connector as backed by a real system.
func (c *TelemetryClient) Mode() models.ConnectorMode { return models.ModeLive }

type searchRequest struct {
	Filter searchFilter `json:"filter"`
	Sort   string       `json:"sort"`
	Page   searchPage   `json:"page"`
}

type searchFilter struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Query string `json:"query"`
}

type searchPage struct {
	Limit int `json:"limit"`
}

type logEventsResponse struct {
	Data []struct {
		Attributes struct {
			Timestamp  time.Time `json:"timestamp"`
			Status     string    `json:"status"`
			Message    string    `json:"message"`
			Attributes struct {
				Message   string `json:"message"`
				ErrorKind string `json:"error.kind"`
				Stack     string `json:"error.stack"`
				TraceID   string `json:"trace_id"`
				Host      string `json:"host"`
			} `json:"attributes"`
		} `json:"attributes"`
	} `json:"data"`
}

// FetchErrorLogs returns up to limit error-level log findings for the service
// over the window, newest first.
func (c *TelemetryClient) FetchErrorLogs(ctx context.Context, service string, window time.Duration, limit int) ([]models.LogFinding, error) {
	if limit <= 0 {
		limit = c.topN
	}
	query := fmt.Sprintf("service:%s (status:error OR level:error OR @level:error)", service)
	events, err := c.searchLogs(ctx, query, window, limit)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// FetchErrorRateSeries buckets error-log counts into fixed-width buckets over
// the window. Buckets with no events are zero-filled so trend classification
// sees a continuous series.
func (c *TelemetryClient) FetchErrorRateSeries(ctx context.Context, service string, window, bucket time.Duration) ([]models.SeriesPoint, error) {
	if bucket <= 0 {
		bucket = 5 * time.Minute
	}
	query := fmt.Sprintf("service:%s (status:error OR level:error)", service)
	events, err := c.searchLogs(ctx, query, window, 1000)
	if err != nil {
		return nil, err
	}

	end := time.Now().UTC()
	start := utils.BucketStart(end.Add(-window), bucket)
	counts := make(map[time.Time]float64)
	for _, ev := range events {
		counts[utils.BucketStart(ev.Timestamp, bucket)] += float64(maxInt(ev.Count, 1))
	}

	series := make([]models.SeriesPoint, 0, int(window/bucket)+1)
	for ts := start; ts.Before(end); ts = ts.Add(bucket) {
		series = append(series, models.SeriesPoint{Timestamp: ts, Value: counts[ts]})
	}
	return series, nil
}

// FetchSpanSummaries returns human-readable latency summaries for the
// service's slowest operations over the window.
func (c *TelemetryClient) FetchSpanSummaries(ctx context.Context, service string, window time.Duration) ([]string, error) {
	payload := searchRequest{
		Filter: searchFilter{
			From:  time.Now().UTC().Add(-window).Format(time.RFC3339),
			To:    time.Now().UTC().Format(time.RFC3339),
			Query: fmt.Sprintf("service:%s", service),
		},
		Sort: "-duration",
		Page: searchPage{Limit: 50},
	}

	var response struct {
		Data []struct {
			Attributes struct {
				ResourceName string  `json:"resource_name"`
				DurationMs   float64 `json:"duration_ms"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.spansPath), payload, &response); err != nil {
		return nil, err
	}

	type agg struct {
		total float64
		count int
		max   float64
	}
	byResource := make(map[string]*agg)
	for _, span := range response.Data {
		a, ok := byResource[span.Attributes.ResourceName]
		if !ok {
			a = &agg{}
			byResource[span.Attributes.ResourceName] = a
		}
		a.total += span.Attributes.DurationMs
		a.count++
		if span.Attributes.DurationMs > a.max {
			a.max = span.Attributes.DurationMs
		}
	}

	names := make([]string, 0, len(byResource))
	for name := range byResource {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return byResource[names[i]].max > byResource[names[j]].max
	})
	if len(names) > 5 {
		names = names[:5]
	}

	summaries := make([]string, 0, len(names))
	for _, name := range names {
		a := byResource[name]
		summaries = append(summaries, fmt.Sprintf("%s: max %.0fms, avg %.0fms over %d spans", name, a.max, a.total/float64(a.count), a.count))
	}
	return summaries, nil
}

// FetchCorrelatedLogs returns log entries that share any of the trace ids but
// belong to a different service, surfacing blast-radius symptoms.
func (c *TelemetryClient) FetchCorrelatedLogs(ctx context.Context, traceIDs []string, excludeService string, window time.Duration) ([]models.LogFinding, error) {
	if len(traceIDs) == 0 {
		return nil, nil
	}
	if len(traceIDs) > 10 {
		traceIDs = traceIDs[:10]
	}
	query := fmt.Sprintf("trace_id:(%s) -service:%s", strings.Join(traceIDs, " OR "), excludeService)
	findings, err := c.searchLogs(ctx, query, window, 20)
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// FetchRecentDeploys returns deployment-event descriptions for the service
// within the window.
func (c *TelemetryClient) FetchRecentDeploys(ctx context.Context, service string, window time.Duration) ([]string, error) {
	query := fmt.Sprintf("service:%s (deployment OR \"deploy finished\" OR rollout)", service)
	findings, err := c.searchLogs(ctx, query, window, 10)
	if err != nil {
		return nil, err
	}
	deploys := make([]string, 0, len(findings))
	for _, f := range findings {
		deploys = append(deploys, fmt.Sprintf("%s %s", f.Timestamp.Format(time.RFC3339), f.Message))
	}
	return deploys, nil
}

func (c *TelemetryClient) searchLogs(ctx context.Context, query string, window time.Duration, limit int) ([]models.LogFinding, error) {
	now := time.Now().UTC()
	payload := searchRequest{
		Filter: searchFilter{
			From:  now.Add(-window).Format(time.RFC3339),
			To:    now.Format(time.RFC3339),
			Query: query,
		},
		Sort: "timestamp",
		Page: searchPage{Limit: limit},
	}

	var response logEventsResponse
	if err := c.postJSON(ctx, c.resolvePath(c.searchPath), payload, &response); err != nil {
		return nil, err
	}

	findings := make([]models.LogFinding, 0, len(response.Data))
	for _, item := range response.Data {
		attrs := item.Attributes
		message := attrs.Attributes.Message
		if message == "" {
			message = attrs.Message
		}
		if message == "" {
			message = "unknown log line"
		}
		level := attrs.Status
		if level == "" {
			level = "error"
		}
		findings = append(findings, models.LogFinding{
			Timestamp:  attrs.Timestamp,
			Level:      level,
			Message:    message,
			StackTrace: attrs.Attributes.Stack,
			ErrorKind:  attrs.Attributes.ErrorKind,
			TraceID:    attrs.Attributes.TraceID,
			Host:       attrs.Attributes.Host,
		})
	}
	return findings, nil
}

func (c *TelemetryClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *TelemetryClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	const op = "telemetry.postJSON"
	if endpoint == "" {
		return utils.NewAppError(op, utils.KindUnavailable, "telemetry base URL not configured", nil)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", c.apiKey)
	req.Header.Set("DD-APPLICATION-KEY", c.appKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(op, utils.KindUnavailable, "telemetry request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utils.NewAppError(op, utils.KindUnavailable, fmt.Sprintf("telemetry returned %s", resp.Status), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.NewAppError(op, utils.KindInvalid, "decode telemetry response", err)
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
