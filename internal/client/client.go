package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sdmx-io/fmr-client/internal/fileio"
	"github.com/sdmx-io/fmr-client/pkg/requestid"
	"go.uber.org/zap"
)

// SubmitTimeout bounds a load submission request.
const SubmitTimeout = 10 * time.Second

// TransformErrorCheck inspects metrics.json of a transformation and
// reports whether the transformation should be treated as failed.
type TransformErrorCheck func(metrics []byte) (bool, error)

// NoTransformErrors is the default check: transformations never fail on
// their metrics.
func NoTransformErrors([]byte) (bool, error) {
	return false, nil
}

// Client talks to the FMR validation and transformation web services.
type Client struct {
	httpClient      *http.Client
	auth            Authenticator
	out             io.Writer
	reader          *fileio.Reader
	writer          *fileio.Writer
	newWaiter       WaiterFactory
	maxPollAttempts int
	submitTimeout   time.Duration
	transformCheck  TransformErrorCheck
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func WithAuthenticator(auth Authenticator) Option {
	return func(c *Client) { c.auth = auth }
}

// WithOutput sets where reports and progress messages are printed.
func WithOutput(w io.Writer) Option {
	return func(c *Client) { c.out = w }
}

// WithOutputDir sets the directory ZIP responses are expanded into.
func WithOutputDir(dir string) Option {
	return func(c *Client) { c.writer.SetRootdir(dir) }
}

func WithWaiterFactory(f WaiterFactory) Option {
	return func(c *Client) { c.newWaiter = f }
}

func WithMaxPollAttempts(n int) Option {
	return func(c *Client) { c.maxPollAttempts = n }
}

func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Client) { c.submitTimeout = d }
}

func WithTransformErrorCheck(check TransformErrorCheck) Option {
	return func(c *Client) { c.transformCheck = check }
}

// New returns a client with defaults taken from config, overridden by opts.
func New(config *Config, opts ...Option) (*Client, error) {
	httpClient, err := NewHTTPClientFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	c := &Client{
		httpClient:      httpClient,
		auth:            NewAuthenticator(config.Service),
		out:             os.Stdout,
		reader:          fileio.NewReader(),
		writer:          fileio.NewWriter(),
		newWaiter:       NewTickerWaiter,
		maxPollAttempts: config.Poll.MaxAttempts,
		submitTimeout:   SubmitTimeout,
		transformCheck:  NoTransformErrors,
	}
	c.writer.SetRootdir(config.ResolvedOutputDir())
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, headers http.Header) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if err := c.auth.Authenticate(req); err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}
	requestid.SetHeader(req)
	return req, nil
}

// do sends the request and reads the whole body.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	zap.S().Debugw("sending request", "method", req.Method, "url", req.URL.String(),
		"request_id", requestid.FromHeader(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err)
	}
	return resp, body, nil
}
