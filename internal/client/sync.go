package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/sdmx-io/fmr-client/internal/fileio"
	"github.com/sdmx-io/fmr-client/internal/report"
	"go.uber.org/zap"
)

const (
	zipContentType = "application/zip"
	reportFile     = "report.json"
	metricsFile    = "metrics.json"
)

// ValidateOutcome is what a synchronous validation ended with.
type ValidateOutcome int

const (
	ValidateUnknown ValidateOutcome = iota
	// ValidateClean means the report carries no errors.
	ValidateClean
	// ValidateErrors means the report flags validation errors.
	ValidateErrors
	// ValidateBadFormat means the service answered 200 without a ZIP archive.
	ValidateBadFormat
	// ValidateRejected means the service answered with a non-200 status.
	ValidateRejected
)

func (o ValidateOutcome) String() string {
	switch o {
	case ValidateClean:
		return "clean"
	case ValidateErrors:
		return "errors"
	case ValidateBadFormat:
		return "bad-format"
	case ValidateRejected:
		return "rejected"
	}
	return "unknown"
}

// Validate posts the data file to the synchronous validation service,
// expands the returned archive into the output directory and prints the
// validation report. Extracted files are left in place.
func (c *Client) Validate(ctx context.Context, serviceURL, filePath string, headers http.Header) (ValidateOutcome, error) {
	archive, kind, err := c.postForArchive(ctx, serviceURL, filePath, headers)
	if err != nil {
		return ValidateUnknown, err
	}
	switch kind {
	case answerRejected:
		return ValidateRejected, nil
	case answerNotZip:
		c.printf("Error: the response is not a ZIP file\n")
		return ValidateBadFormat, nil
	}

	doc, err := archive.ReadFile(reportFile)
	if err != nil {
		return ValidateUnknown, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}
	hasErrors, err := report.HasErrors(doc)
	if err != nil {
		return ValidateUnknown, fmt.Errorf("%w: %s: %w", ErrMalformedReport, reportFile, err)
	}
	validationReport, err := report.Parse(doc)
	if err != nil {
		return ValidateUnknown, fmt.Errorf("%w: %s: %w", ErrMalformedReport, reportFile, err)
	}

	outcome := ValidateClean
	if hasErrors {
		outcome = ValidateErrors
		c.printf("Errors: %t\n", hasErrors)
		c.printf("Errors - stop processing this file and action exception tasks ...\n")
	} else {
		c.printf("File was processed successfully, continue processing ...\n")
	}
	if err := report.Print(c.out, validationReport); err != nil {
		return outcome, fmt.Errorf("printing report: %w", err)
	}
	return outcome, nil
}

// Transform posts the data file to the synchronous transformation service.
// It returns true when the service answered 200 with a ZIP archive and the
// transform error check found nothing wrong in metrics.json.
func (c *Client) Transform(ctx context.Context, serviceURL, filePath string, headers http.Header) (bool, error) {
	archive, kind, err := c.postForArchive(ctx, serviceURL, filePath, headers)
	if err != nil {
		return false, err
	}
	switch kind {
	case answerRejected:
		return false, nil
	case answerNotZip:
		zap.S().Warnw("transformation response is not a ZIP file", "url", serviceURL)
		return false, nil
	}

	metrics, err := archive.ReadFile(metricsFile)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedReport, err)
	}

	c.printf("\nDump of the %s file:\n", metricsFile)
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, metrics, "", "  "); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrMalformedReport, metricsFile, err)
	}
	c.printf("%s\n", pretty.String())

	hasErrors, err := c.transformCheck(metrics)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", metricsFile, err)
	}
	if !hasErrors {
		return true, nil
	}

	c.printf("Errors: %t\n", hasErrors)
	c.printf("Errors - stop processing this file and action exception tasks ...\n")
	r, err := report.Parse(metrics)
	if err != nil {
		zap.S().Warnw("metrics are not a report document", "file", metricsFile, "error", err)
		return false, nil
	}
	if err := report.Print(c.out, r); err != nil {
		zap.S().Warnw("failed to print transformation report", "file", metricsFile, "error", err)
	}
	return false, nil
}

type answer int

const (
	answerArchive answer = iota
	answerRejected
	answerNotZip
)

// postForArchive posts the file and, on a 200 ZIP answer, expands the
// archive into the output directory. Non-200 answers are printed.
func (c *Client) postForArchive(ctx context.Context, serviceURL, filePath string, headers http.Header) (*fileio.Archive, answer, error) {
	contents, err := c.reader.ReadFile(filePath)
	if err != nil {
		return nil, answerRejected, fmt.Errorf("reading data file: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, serviceURL, bytes.NewReader(contents), headers)
	if err != nil {
		return nil, answerRejected, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return nil, answerRejected, err
	}

	if resp.StatusCode != http.StatusOK {
		c.printf("NOT OK: %d\n", resp.StatusCode)
		c.printf("Error Text: %s\n", body)
		return nil, answerRejected, nil
	}
	contentType := resp.Header.Get("Content-Type")
	if !isZip(contentType) {
		zap.S().Debugw("unexpected content type", "content_type", contentType)
		return nil, answerNotZip, nil
	}

	archive, err := fileio.OpenArchive(body)
	if err != nil {
		return nil, answerRejected, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	written, err := archive.ExtractAll(c.writer)
	if err != nil {
		return nil, answerRejected, fmt.Errorf("expanding response archive: %w", err)
	}
	zap.S().Infow("response archive expanded", "files", written)
	return archive, answerArchive, nil
}

func isZip(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == zipContentType
}
