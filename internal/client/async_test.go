package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sdmx-io/fmr-client/internal/client"
)

var _ = Describe("asynchronous client", func() {
	var (
		ctx    context.Context
		out    *bytes.Buffer
		waiter *countingWaiter
	)

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}
		waiter = &countingWaiter{}
	})

	Describe("Submit", func() {
		It("returns the job uid on success", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				body, _ := io.ReadAll(r.Body)
				Expect(string(body)).To(Equal("<data/>"))
				Expect(r.Header.Get("X-Request-Id")).NotTo(BeEmpty())

				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"Success": true, "uid": "abc-123"}`))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			ok, uid := c.Submit(ctx, client.LoadURL(server.URL), writeDataFile(GinkgoT().TempDir(), "<data/>"), nil)

			Expect(ok).To(BeTrue())
			Expect(uid).To(Equal("abc-123"))
		})

		It("defaults missing fields", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			ok, uid := c.Submit(ctx, server.URL, writeDataFile(GinkgoT().TempDir(), "x"), nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})

		It("returns false and no uid on timeout", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithSubmitTimeout(50*time.Millisecond))
			ok, uid := c.Submit(ctx, server.URL, writeDataFile(GinkgoT().TempDir(), "x"), nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})

		It("returns false and no uid on an HTTP error status", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"Success": true, "uid": "ignored"}`))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			ok, uid := c.Submit(ctx, server.URL, writeDataFile(GinkgoT().TempDir(), "x"), nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})

		It("returns false and no uid when the service is unreachable", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			url := server.URL
			server.Close()

			c := newTestClient(url, out)
			ok, uid := c.Submit(ctx, url, writeDataFile(GinkgoT().TempDir(), "x"), nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})

		It("returns false and no uid when the answer is not JSON", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>maintenance</html>`))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			ok, uid := c.Submit(ctx, server.URL, writeDataFile(GinkgoT().TempDir(), "x"), nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})

		It("returns false when the data file does not exist", func() {
			c := newTestClient("http://localhost", out)
			ok, uid := c.Submit(ctx, "http://localhost", "/does/not/exist.xml", nil)

			Expect(ok).To(BeFalse())
			Expect(uid).To(BeEmpty())
		})
	})

	Describe("SubmitLoad", func() {
		It("sends the load headers to the load endpoint and prints the source data", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/ws/public/data/load"))
				Expect(r.Header.Get("Inc-Metrics")).To(Equal("true"))
				Expect(r.Header.Get("Inc-Valid")).To(Equal("true"))
				Expect(r.Header.Get("Inc-Invalid")).To(Equal("true"))
				Expect(r.Header.Get("Zip")).To(Equal("true"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/vnd.sdmx.data+csv"))
				Expect(r.Header.Get("Structure")).To(Equal("urn:sdmx:org.sdmx.infomodel.datastructure.Dataflow=ECB:EXR(1.0)"))
				user, pass, ok := r.BasicAuth()
				Expect(ok).To(BeTrue())
				Expect(user).To(Equal("alice"))
				Expect(pass).To(Equal("secret"))

				_ = json.NewEncoder(w).Encode(map[string]any{"Success": true, "uid": "job-1"})
			}))
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithAuthenticator(client.BasicAuth{Username: "alice", Password: "secret"}))
			ok, uid := c.SubmitLoad(ctx, server.URL+"/", writeDataFile(GinkgoT().TempDir(), "FREQ,CURRENCY\nA,USD"),
				"application/vnd.sdmx.data+csv", "urn:sdmx:org.sdmx.infomodel.datastructure.Dataflow=ECB:EXR(1.0)")

			Expect(ok).To(BeTrue())
			Expect(uid).To(Equal("job-1"))
			Expect(out.String()).To(ContainSubstring("Source data:\nFREQ,CURRENCY\nA,USD\n"))
		})
	})

	Describe("PollStatus", func() {
		statusServer := func(responses ...func(w http.ResponseWriter)) (*httptest.Server, *int32) {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("uid")).To(Equal("job-1"))
				n := int(atomic.AddInt32(&calls, 1)) - 1
				if n >= len(responses) {
					n = len(responses) - 1
				}
				responses[n](w)
			}))
			return server, &calls
		}
		status := func(body string) func(w http.ResponseWriter) {
			return func(w http.ResponseWriter) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
			}
		}
		failure := func(code int) func(w http.ResponseWriter) {
			return func(w http.ResponseWriter) {
				w.WriteHeader(code)
			}
		}

		It("returns false after two waits when the job completes cleanly", func() {
			server, calls := statusServer(
				status(`{"Status": "Pending"}`),
				status(`{"Status": "pending"}`),
				status(`{"Status": "Complete", "Errors": false}`),
			)
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
			errored, err := c.PollStatus(ctx, client.LoadStatusURL(server.URL), "job-1", 3*time.Second)

			Expect(err).To(BeNil())
			Expect(errored).To(BeFalse())
			Expect(waiter.waits).To(Equal(2))
			Expect(waiter.interval).To(Equal(3 * time.Second))
			Expect(waiter.stopped).To(BeTrue())
			Expect(atomic.LoadInt32(calls)).To(Equal(int32(3)))
			Expect(out.String()).To(ContainSubstring("Job job-1 is still in progress. Checking again in 3s..."))
		})

		It("returns true immediately on a failed status", func() {
			server, _ := statusServer(status(`{"Status": "error"}`))
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
			errored, err := c.PollStatus(ctx, server.URL, "job-1", time.Second)

			Expect(err).To(BeNil())
			Expect(errored).To(BeTrue())
			Expect(waiter.waits).To(BeZero())
			Expect(out.String()).To(ContainSubstring("Job job-1 has failed. Exiting."))
		})

		DescribeTable("treats every failure status as errored",
			func(value string) {
				server, _ := statusServer(status(fmt.Sprintf(`{"Status": %q}`, value)))
				defer server.Close()

				c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
				errored, err := c.PollStatus(ctx, server.URL, "job-1", time.Second)

				Expect(err).To(BeNil())
				Expect(errored).To(BeTrue())
				Expect(waiter.waits).To(BeZero())
			},
			Entry("incorrect DSD", "IncorrectDSD"),
			Entry("invalid reference", "InvalidRef"),
			Entry("missing DSD", "MissingDSD"),
			Entry("error", "ERROR"),
		)

		It("retries once after a transport failure", func() {
			server, calls := statusServer(
				failure(http.StatusBadGateway),
				status(`{"Status": "complete", "Errors": true}`),
			)
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
			errored, err := c.PollStatus(ctx, server.URL, "job-1", time.Second)

			Expect(err).To(BeNil())
			Expect(errored).To(BeTrue())
			Expect(waiter.waits).To(Equal(1))
			Expect(atomic.LoadInt32(calls)).To(Equal(int32(2)))
			Expect(out.String()).To(ContainSubstring("Error checking job status"))
		})

		It("keeps polling on unknown statuses and undecodable answers", func() {
			server, _ := statusServer(
				status(`{"Status": "Validating"}`),
				status(`not json`),
				status(`{"Status": 3}`),
				status(`{}`),
				status(`{"Status": "complete"}`),
			)
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
			errored, err := c.PollStatus(ctx, server.URL, "job-1", time.Second)

			Expect(err).To(BeNil())
			Expect(errored).To(BeFalse())
			Expect(waiter.waits).To(Equal(4))
		})

		It("gives up after the maximum number of attempts", func() {
			server, calls := statusServer(status(`{"Status": "pending"}`))
			defer server.Close()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()), client.WithMaxPollAttempts(3))
			errored, err := c.PollStatus(ctx, server.URL, "job-1", time.Second)

			Expect(err).To(MatchError(client.ErrPollAttemptsExhausted))
			Expect(errored).To(BeTrue())
			Expect(waiter.waits).To(Equal(2))
			Expect(atomic.LoadInt32(calls)).To(Equal(int32(3)))
		})

		It("stops when the context is cancelled", func() {
			server, _ := statusServer(status(`{"Status": "pending"}`))
			defer server.Close()

			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			c := newTestClient(server.URL, out, client.WithWaiterFactory(waiter.factory()))
			errored, err := c.PollStatus(cancelled, server.URL, "job-1", time.Second)

			Expect(err).To(MatchError(context.Canceled))
			Expect(errored).To(BeTrue())
		})

		It("waits on the jittered ticker by default", func() {
			server, _ := statusServer(
				status(`{"Status": "pending"}`),
				status(`{"Status": "complete", "Errors": false}`),
			)
			defer server.Close()

			c := newTestClient(server.URL, out)
			start := time.Now()
			errored, err := c.PollStatus(ctx, server.URL, "job-1", 200*time.Millisecond)

			Expect(err).To(BeNil())
			Expect(errored).To(BeFalse())
			Expect(time.Since(start)).To(BeNumerically(">=", 200*time.Millisecond))
		})

		It("waits a full interval after each slow status request", func() {
			var (
				mu     sync.Mutex
				starts []time.Time
				ends   []time.Time
			)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				starts = append(starts, time.Now())
				attempt := len(starts)
				mu.Unlock()

				time.Sleep(300 * time.Millisecond)
				if attempt < 4 {
					_, _ = w.Write([]byte(`{"Status": "pending"}`))
				} else {
					_, _ = w.Write([]byte(`{"Status": "complete", "Errors": false}`))
				}

				mu.Lock()
				ends = append(ends, time.Now())
				mu.Unlock()
			}))
			defer server.Close()

			interval := 200 * time.Millisecond
			c := newTestClient(server.URL, out)
			errored, err := c.PollStatus(ctx, server.URL, "job-1", interval)

			Expect(err).To(BeNil())
			Expect(errored).To(BeFalse())

			mu.Lock()
			defer mu.Unlock()
			Expect(starts).To(HaveLen(4))
			for i := 1; i < len(starts); i++ {
				Expect(starts[i].Sub(ends[i-1])).To(BeNumerically(">=", interval))
			}
		})
	})

	Describe("DownloadResult", func() {
		It("returns the body in the requested format", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				Expect(r.URL.Path).To(Equal("/ws/public/data/download"))
				Expect(r.URL.Query().Get("uid")).To(Equal("job-1"))
				Expect(r.Header.Get("Accept")).To(Equal(client.FormatCSV))
				_, _ = w.Write([]byte("FREQ,CURRENCY,OBS_VALUE\nA,USD,1.1\n"))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			body, err := c.DownloadResult(ctx, client.DownloadURL(server.URL), "job-1", client.FormatCSV)

			Expect(err).To(BeNil())
			Expect(body).To(Equal("FREQ,CURRENCY,OBS_VALUE\nA,USD,1.1\n"))
		})

		It("returns the body whatever the status code", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte("Job not found"))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			body, err := c.DownloadResult(ctx, server.URL, "job-1", client.FormatJSON)

			Expect(err).To(BeNil())
			Expect(body).To(Equal("Job not found"))
		})

		It("keeps existing query parameters", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("format")).To(Equal("full"))
				Expect(r.URL.Query().Get("uid")).To(Equal("job-1"))
			}))
			defer server.Close()

			c := newTestClient(server.URL, out)
			_, err := c.DownloadResult(ctx, server.URL+"?format=full", "job-1", client.FormatXML)
			Expect(err).To(BeNil())
		})
	})

	Describe("ResolveFormat", func() {
		It("maps aliases and keeps known media types", func() {
			Expect(client.ResolveFormat("csv")).To(Equal(client.FormatCSV))
			Expect(client.ResolveFormat("JSON")).To(Equal(client.FormatJSON))
			Expect(client.ResolveFormat(client.FormatXML)).To(Equal(client.FormatXML))
		})

		It("rejects unknown formats", func() {
			_, err := client.ResolveFormat("parquet")
			Expect(err).To(MatchError(client.ErrFormat))
		})
	})
})
