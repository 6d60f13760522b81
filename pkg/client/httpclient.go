package client

import (
	"context"
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	resty "gopkg.in/resty.v1"
	"io"
	"net"
	"net/http"
	"time"
)

const userAgent = "tuebus departure board (https://github.com/rycus86/tuebus)"

type HttpClient struct {
	client  *resty.Client
	timeout time.Duration
	logger  *zap.Logger
}

var (
	fetchCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tuebus_fetch_count",
		Help: "Number of times a departure page was downloaded",
	}, []string{"url"})
	fetchErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tuebus_fetch_error_count",
		Help: "Number of times downloading a departure page failed",
	}, []string{"url", "kind"})
)

func init() {
	prometheus.MustRegister(fetchCount, fetchErrorCount)
}

// FetchPage performs a single GET, without retries, bounded by the client timeout.
func (c *HttpClient) FetchPage(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	response, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil {
		kind := KindNetwork
		if isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return retError(url, &FetchError{URL: url, Kind: kind, Err: err})
	}

	c.logger.Debug("page fetched",
		zap.String("url", url),
		zap.Int("status", response.StatusCode()),
		zap.Int("bytes", len(response.Body())),
		zap.Duration("took", time.Since(started)))

	if code := response.StatusCode(); code < 200 || code > 299 {
		return retError(url, &FetchError{URL: url, Kind: KindStatus, StatusCode: code})
	}

	fetchCount.With(prometheus.Labels{"url": url}).Inc()

	return response.Body(), nil
}

func retError(url string, err *FetchError) ([]byte, error) {
	fetchErrorCount.With(prometheus.Labels{"url": url, "kind": string(err.Kind)}).Inc()
	return nil, err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func NewHttpClient(timeout time.Duration, logger *zap.Logger) *HttpClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := resty.NewWithClient(&http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	})
	rc.SetLogger(io.Discard)

	return &HttpClient{
		client:  rc,
		timeout: timeout,
		logger:  logger,
	}
}

type pageTransport struct {
	UserAgent string
}

func (t *pageTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request = request.Clone(request.Context())
	request.Header.Set("User-Agent", t.UserAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml")

	return http.DefaultTransport.RoundTrip(request)
}

func newTransport() http.RoundTripper {
	return &pageTransport{
		UserAgent: userAgent,
	}
}
