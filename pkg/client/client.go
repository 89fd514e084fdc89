// Package client talks to a running career-constellation server.
package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/goatcheese98/career-constellation/pkg/models"
)

const (
	// DefaultHost is where a local server listens.
	DefaultHost = "127.0.0.1"
	// DefaultTimeout bounds every call.
	DefaultTimeout = 5 * time.Second
)

// Health is the server's health report.
type Health struct {
	Status     string  `json:"status"`
	Version    string  `json:"version"`
	Generation string  `json:"generation,omitempty"`
	Uptime     float64 `json:"uptime_seconds"`
	TotalJobs  int     `json:"total_jobs,omitempty"`
}

// Ready reports whether the server has published a generation.
func (h *Health) Ready() bool { return h != nil && h.Status == "ready" }

// Stats is the aggregate view of the current generation.
type Stats struct {
	ClusterDistribution  map[string]int   `json:"cluster_distribution"`
	EmbeddingStrategy    string           `json:"embedding_strategy"`
	TopKeywords          []models.Counted `json:"top_keywords_overall"`
	TotalJobs            int              `json:"total_jobs"`
	NumClusters          int              `json:"num_clusters"`
	AvgJobsPerCluster    float64          `json:"avg_jobs_per_cluster"`
	StandardizationPairs int              `json:"standardization_pairs"`
	DroppedRecords       int              `json:"dropped_records"`
	EmbeddingDim         int              `json:"embedding_dim"`
	Degraded             bool             `json:"degraded"`
}

// ChatContext is the retrieval result for one question.
type ChatContext struct {
	Action        string                    `json:"action_type"`
	Instruction   string                    `json:"instruction"`
	RecordContext string                    `json:"record_context"`
	Chunks        []models.RetrievedContext `json:"chunks"`
	Sources       []string                  `json:"sources"`
	DataQuery     bool                      `json:"data_query"`
}

// StatusError is returned for a non-success response.
type StatusError struct {
	Message string
	Code    int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client is a typed client for the server API.
type Client struct {
	http *resty.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	return &Client{http: r}
}

// ForPort creates a client for a server on the local host.
func ForPort(port int) *Client {
	return New(BaseURL(DefaultHost, port), DefaultTimeout)
}

// BaseURL builds the server URL for host and port.
func BaseURL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// get decodes a GET response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(out).SetError(&apiErr).Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return &StatusError{Code: resp.StatusCode(), Message: apiErr.Error}
	}
	return nil
}

// IsRunning reports whether a server answers its health check.
func (c *Client) IsRunning(ctx context.Context) bool {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}

// Version returns the server version, or "" when it cannot be read.
func (c *Client) Version(ctx context.Context) string {
	var v struct {
		Version string `json:"version"`
	}
	if err := c.get(ctx, "/api/version", &v); err != nil {
		return ""
	}
	return v.Version
}

// Health returns the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Stats returns the statistics of the current generation.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.get(ctx, "/api/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Rebuild asks the server to rebuild. It reports false when a rebuild was
// already queued.
func (c *Client) Rebuild(ctx context.Context) (bool, error) {
	resp, err := c.http.R().SetContext(ctx).Post("/api/rebuild")
	if err != nil {
		return false, fmt.Errorf("POST /api/rebuild: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusAccepted:
		return true, nil
	case http.StatusConflict:
		return false, nil
	default:
		return false, &StatusError{Code: resp.StatusCode()}
	}
}

// ChatContext retrieves the ranked context for message.
func (c *Client) ChatContext(ctx context.Context, message, currentReport string) (*ChatContext, error) {
	var out ChatContext
	var apiErr struct {
		Error string `json:"error"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"message": message, "current_report": currentReport}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/api/chat/context")
	if err != nil {
		return nil, fmt.Errorf("POST /api/chat/context: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Message: apiErr.Error}
	}
	return &out, nil
}

// IsPortInUse reports whether something accepts connections on the local
// port.
func IsPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(DefaultHost, strconv.Itoa(port)), 200*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// VersionMismatch reports whether a running server differs from the local
// build. An unknown running version is not a mismatch.
func VersionMismatch(running, local string) bool {
	return running != "" && running != local
}
