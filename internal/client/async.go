package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sdmx-io/fmr-client/internal/report"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// Load status values. The service sends them in any case.
const (
	StatusComplete     = "complete"
	StatusIncorrectDSD = "incorrectdsd"
	StatusInvalidRef   = "invalidref"
	StatusMissingDSD   = "missingdsd"
	StatusError        = "error"
)

var failedStatuses = []string{StatusIncorrectDSD, StatusInvalidRef, StatusMissingDSD, StatusError}

// Headers sent with every load submission.
const (
	HeaderIncMetrics = "Inc-Metrics"
	HeaderIncValid   = "Inc-Valid"
	HeaderIncInvalid = "Inc-Invalid"
	HeaderZip        = "Zip"
	HeaderStructure  = "Structure"
)

type submitResponse struct {
	Success *bool   `json:"Success"`
	UID     *string `json:"uid"`
}

// SubmitLoad submits the data file to the asynchronous load service of
// the given API entrypoint, asking for metrics plus valid and invalid data
// packaged as a ZIP. The file contents are printed first.
func (c *Client) SubmitLoad(ctx context.Context, apiEntrypoint, filePath, inputType, sourceURN string) (bool, string) {
	headers := http.Header{}
	headers.Set(HeaderIncMetrics, "true")
	headers.Set(HeaderIncValid, "true")
	headers.Set(HeaderIncInvalid, "true")
	headers.Set(HeaderZip, "true")
	headers.Set("Content-Type", inputType)
	headers.Set(HeaderStructure, sourceURN)

	c.printf("\nSource data:\n")
	if err := c.reader.Dump(c.out, filePath); err != nil {
		zap.S().Errorw("failed to print data file", "file", filePath, "error", err)
	}

	return c.Submit(ctx, LoadURL(apiEntrypoint), filePath, headers)
}

// Submit streams the data file to serviceURL and returns the Success flag
// and job uid of the answer. Any failure is logged and reported as
// (false, "").
func (c *Client) Submit(ctx context.Context, serviceURL, filePath string, headers http.Header) (bool, string) {
	f, size, err := c.reader.Open(filePath)
	if err != nil {
		zap.S().Errorw("failed to open data file", "file", filePath, "error", err)
		return false, ""
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodPost, serviceURL, f, headers)
	if err != nil {
		zap.S().Errorw("an error occurred", "error", err)
		return false, ""
	}
	req.ContentLength = size

	resp, body, err := c.do(req)
	switch {
	case err != nil && isTimeout(err):
		zap.S().Errorw("request timed out, try again later", "url", serviceURL, "error", err)
		return false, ""
	case err != nil:
		zap.S().Errorw("connection error, check the service address", "url", serviceURL, "error", err)
		return false, ""
	case resp.StatusCode >= http.StatusBadRequest:
		zap.S().Errorw("HTTP error occurred", "url", serviceURL, "status_code", resp.StatusCode, "body", string(body))
		return false, ""
	}

	var payload submitResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		zap.S().Errorw("an error occurred decoding the load response", "error", err)
		return false, ""
	}

	success, uid := false, ""
	if payload.Success != nil {
		success = *payload.Success
	}
	if payload.UID != nil {
		uid = *payload.UID
	}
	zap.S().Infow("load submitted", "success", success, "uid", uid)
	return success, uid
}

// PollStatus checks the load status of jobID every interval until it is
// complete or failed, and returns true when the job ended with errors.
// Failed requests are logged and retried. The loop ends early when ctx is
// done, or after the configured maximum number of attempts; both count as
// errored and come with a non-nil error.
func (c *Client) PollStatus(ctx context.Context, statusURL, jobID string, interval time.Duration) (bool, error) {
	waiter := c.newWaiter(interval)
	defer waiter.Stop()

	for attempt := 1; ; attempt++ {
		status, body, err := c.loadStatus(ctx, statusURL, jobID)
		switch {
		case err != nil:
			zap.S().Errorw("error checking job status", "uid", jobID, "attempt", attempt, "error", err)
			c.printf("Error checking job status: %v. Retrying in %s...\n", err, interval)
		case status == StatusComplete:
			hasErrors, err := report.HasErrors(body)
			if err != nil {
				return true, fmt.Errorf("%w: %w", ErrMalformedReport, err)
			}
			zap.S().Infow("job complete", "uid", jobID, "errors", hasErrors)
			return hasErrors, nil
		case funk.ContainsString(failedStatuses, status):
			c.printf("Job %s has failed. Exiting.\n", jobID)
			return true, nil
		default:
			c.printf("Job %s is still in progress. Checking again in %s...\n", jobID, interval)
		}

		if c.maxPollAttempts > 0 && attempt >= c.maxPollAttempts {
			return true, fmt.Errorf("%w after %d attempts", ErrPollAttemptsExhausted, attempt)
		}
		if err := waiter.Wait(ctx); err != nil {
			return true, fmt.Errorf("waiting for job %s: %w", jobID, err)
		}
	}
}

// loadStatus fetches the status document of jobID and returns its
// case-folded Status with the raw body.
func (c *Client) loadStatus(ctx context.Context, statusURL, jobID string) (string, []byte, error) {
	target, err := withUID(statusURL, jobID)
	if err != nil {
		return "", nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		return "", nil, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", nil, fmt.Errorf("%w: status service returned status %d", ErrTransport, resp.StatusCode)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", nil, fmt.Errorf("%w: decoding status response: %w", ErrTransport, err)
	}
	return strings.ToLower(statusText(fields["Status"])), body, nil
}

// statusText returns a string status as is and any other JSON value as
// its literal text.
func statusText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// DownloadResult fetches the output of jobID in the accept media type and
// returns the body whatever the response status. The error is only set
// when no answer was received.
func (c *Client) DownloadResult(ctx context.Context, resultURL, jobID, accept string) (string, error) {
	target, err := withUID(resultURL, jobID)
	if err != nil {
		return "", err
	}
	headers := http.Header{}
	headers.Set("Accept", accept)

	req, err := c.newRequest(ctx, http.MethodGet, target, nil, headers)
	if err != nil {
		return "", err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	zap.S().Debugw("download answered", "uid", jobID, "status_code", resp.StatusCode, "bytes", len(body))
	return string(body), nil
}

func withUID(rawURL, jobID string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid service URL %q: %w", rawURL, err)
	}
	q := u.Query()
	q.Set("uid", jobID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
