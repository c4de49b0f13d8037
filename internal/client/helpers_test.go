package client_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	. "github.com/onsi/gomega"
	"github.com/sdmx-io/fmr-client/internal/client"
)

// countingWaiter records waits instead of sleeping.
type countingWaiter struct {
	waits    int
	interval time.Duration
	stopped  bool
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.waits++
	return ctx.Err()
}

func (w *countingWaiter) Stop() {
	w.stopped = true
}

func (w *countingWaiter) factory() client.WaiterFactory {
	return func(interval time.Duration) client.Waiter {
		w.interval = interval
		return w
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func zipBytes(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		fw, err := zw.Create(name)
		Expect(err).To(BeNil())
		_, err = fw.Write([]byte(contents))
		Expect(err).To(BeNil())
	}
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

func writeDataFile(dir, contents string) string {
	path := filepath.Join(dir, "data.xml")
	Expect(os.WriteFile(path, []byte(contents), 0600)).To(Succeed())
	return path
}

func newTestClient(server string, out *bytes.Buffer, opts ...client.Option) *client.Client {
	cfg := client.NewDefault()
	cfg.Service.Server = server
	c, err := client.New(cfg, append([]client.Option{client.WithOutput(out)}, opts...)...)
	Expect(err).To(BeNil())
	return c
}
