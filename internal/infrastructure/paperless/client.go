package paperless

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultPageSize     = 100
)

// Recorder receives request level telemetry. *metrics.BotMetrics satisfies it.
type Recorder interface {
	RecordBackendRequest(operation string, duration time.Duration, err error)
	ObserveTaskPolls(attempts int)
}

type Options struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	// InboxTagName overrides inbox tag auto-detection when set.
	InboxTagName string
	PollInterval time.Duration
	PageSize     int
	Executor     *resilience.Executor
	Metrics      Recorder
}

// Client talks to the Paperless-NGX REST API and keeps name caches for tags,
// correspondents and document types.
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	inboxTagName string
	pollInterval time.Duration
	pageSize     int
	executor     *resilience.Executor
	metrics      Recorder

	// writeMu serialises snapshot replacement; readers only load snapshot.
	writeMu  sync.Mutex
	snapshot atomic.Pointer[cacheSnapshot]
}

func New(baseURL, token string, opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	recorder := opts.Metrics
	if recorder == nil {
		recorder = noopRecorder{}
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   httpClient,
		inboxTagName: strings.TrimSpace(opts.InboxTagName),
		pollInterval: pollInterval,
		pageSize:     pageSize,
		executor:     opts.Executor,
		metrics:      recorder,
	}
	c.snapshot.Store(emptySnapshot())
	return c
}

// Ping reports whether the backend answers authenticated requests.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Statistics(ctx)
	return err
}

type noopRecorder struct{}

func (noopRecorder) RecordBackendRequest(string, time.Duration, error) {}
func (noopRecorder) ObserveTaskPolls(int)                              {}
